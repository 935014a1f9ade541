//go:build headless

// video_backend_headless.go - Frame sink for headless builds

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

package main

import "time"

// HeadlessVideo drains the frame emitter so drop accounting stays
// meaningful without a display.
type HeadlessVideo struct{}

func NewVideoOutput() (VideoOutput, error) {
	return &HeadlessVideo{}, nil
}

func (h *HeadlessVideo) Run(m *Machine, stop <-chan struct{}) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			m.Frames.TakeFrame()
		}
	}
}
