// sample_ring.go - SPSC PCM ring between the emulation task and the audio backend

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

package main

import "sync/atomic"

const sampleRingSize = 1 << 14 // ~370ms at 44.1kHz

// SampleRing carries mono float32 PCM from the per-frame generator to
// the output backend's pull callback. Single producer, single consumer,
// lock-free; the emulator never blocks on the consumer — overruns drop
// samples and count them.
type SampleRing struct {
	buf     [sampleRingSize]float32
	head    atomic.Uint64
	tail    atomic.Uint64
	dropped atomic.Uint64
}

// Push appends samples, dropping what does not fit.
func (r *SampleRing) Push(samples []float32) {
	tail := r.tail.Load()
	free := sampleRingSize - int(tail-r.head.Load())
	n := len(samples)
	if n > free {
		r.dropped.Add(uint64(n - free))
		n = free
	}
	for i := 0; i < n; i++ {
		r.buf[(tail+uint64(i))%sampleRingSize] = samples[i]
	}
	r.tail.Store(tail + uint64(n))
}

// ReadSample pops one sample, or silence when the ring has drained.
func (r *SampleRing) ReadSample() float32 {
	head := r.head.Load()
	if head == r.tail.Load() {
		return 0
	}
	s := r.buf[head%sampleRingSize]
	r.head.Store(head + 1)
	return s
}

func (r *SampleRing) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *SampleRing) Len() int {
	return int(r.tail.Load() - r.head.Load())
}
