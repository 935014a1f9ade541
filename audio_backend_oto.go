//go:build !headless

// audio_backend_oto.go - OTO v3 audio output pulling from the machine sample ring

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

package main

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

type OtoPlayer struct {
	ctx    *oto.Context
	player *oto.Player
	ring   *SampleRing
	mutex  sync.Mutex
	active bool
}

func NewOtoPlayer(sampleRate int, ring *SampleRing) (*OtoPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	return &OtoPlayer{ctx: ctx, ring: ring}, nil
}

// Read is the oto pull callback: drain the ring, pad with silence.
func (op *OtoPlayer) Read(p []byte) (int, error) {
	n := len(p) / 4
	for i := 0; i < n; i++ {
		s := op.ring.ReadSample()
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return n * 4, nil
}

func (op *OtoPlayer) Start() {
	op.mutex.Lock()
	defer op.mutex.Unlock()
	if !op.active {
		op.player = op.ctx.NewPlayer(op)
		op.player.Play()
		op.active = true
	}
}

func (op *OtoPlayer) Stop() {
	op.mutex.Lock()
	defer op.mutex.Unlock()
	if op.active && op.player != nil {
		_ = op.player.Close()
		op.player = nil
		op.active = false
	}
}

func (op *OtoPlayer) IsStarted() bool {
	op.mutex.Lock()
	defer op.mutex.Unlock()
	return op.active
}

// NewAudioOutput selects the platform audio backend.
func NewAudioOutput(sampleRate int, ring *SampleRing) (AudioOutput, error) {
	return NewOtoPlayer(sampleRate, ring)
}
