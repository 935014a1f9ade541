// frame_emitter.go - Double-buffered frame handoff to the display side

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

/*
The scheduler renders into the back buffer and flips; the emitter side
(display backend or stream encoder) takes the ready buffer on its own
schedule. The flip is an atomic index swap, so the emulation task never
blocks: if the consumer has not collected the previous frame it is
coalesced and the drop counter advances.

Emission can upscale by an integer factor with a nearest-neighbour
resample, which keeps the chunky ST pixel look.
*/

package main

import (
	"image"
	"sync/atomic"

	"golang.org/x/image/draw"
)

type FrameEmitter struct {
	bufs [2][]byte
	w, h [2]int

	back    int
	ready   atomic.Int32 // Index of the consumable buffer, -1 when none
	dropped atomic.Uint64

	scale  int
	scaled *image.RGBA
}

func NewFrameEmitter(scale int) *FrameEmitter {
	if scale < 1 {
		scale = 1
	}
	fe := &FrameEmitter{scale: scale}
	fe.ready.Store(-1)
	return fe
}

// BackBuffer returns the render target for the coming frame, sized for
// the given dimensions.
func (fe *FrameEmitter) BackBuffer(w, h int) []byte {
	need := w * h * 4
	if cap(fe.bufs[fe.back]) < need {
		fe.bufs[fe.back] = make([]byte, need)
	}
	fe.bufs[fe.back] = fe.bufs[fe.back][:need]
	fe.w[fe.back] = w
	fe.h[fe.back] = h
	return fe.bufs[fe.back]
}

// Flip publishes the back buffer. An uncollected previous frame is
// coalesced and counted as dropped.
func (fe *FrameEmitter) Flip() {
	if fe.ready.Load() >= 0 {
		fe.dropped.Add(1)
	}
	fe.ready.Store(int32(fe.back))
	fe.back ^= 1
}

// TakeFrame claims the ready buffer, applying the configured upscale.
// Returns nil when no new frame has been published since the last take.
func (fe *FrameEmitter) TakeFrame() (pix []byte, w, h int) {
	idx := fe.ready.Swap(-1)
	if idx < 0 {
		return nil, 0, 0
	}
	src := fe.bufs[idx]
	sw, sh := fe.w[idx], fe.h[idx]
	if fe.scale == 1 {
		return src, sw, sh
	}

	dw, dh := sw*fe.scale, sh*fe.scale
	if fe.scaled == nil || fe.scaled.Rect.Dx() != dw || fe.scaled.Rect.Dy() != dh {
		fe.scaled = image.NewRGBA(image.Rect(0, 0, dw, dh))
	}
	srcImg := &image.RGBA{Pix: src, Stride: sw * 4, Rect: image.Rect(0, 0, sw, sh)}
	draw.NearestNeighbor.Scale(fe.scaled, fe.scaled.Rect, srcImg, srcImg.Rect, draw.Src, nil)
	return fe.scaled.Pix, dw, dh
}

func (fe *FrameEmitter) Dropped() uint64 {
	return fe.dropped.Load()
}
