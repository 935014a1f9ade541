//go:build headless

// audio_backend_headless.go - No-op audio output for headless builds

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

package main

type HeadlessAudio struct {
	ring    *SampleRing
	started bool
}

func NewAudioOutput(sampleRate int, ring *SampleRing) (AudioOutput, error) {
	return &HeadlessAudio{ring: ring}, nil
}

func (h *HeadlessAudio) Start()          { h.started = true }
func (h *HeadlessAudio) Stop()           { h.started = false }
func (h *HeadlessAudio) IsStarted() bool { return h.started }
