//go:build !headless

// video_backend_ebiten.go - Ebiten display window, keyboard capture and clipboard paste

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

package main

import (
	"errors"
	"sync"

	"golang.design/x/clipboard"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// ebitenKeymap maps host keys to IKBD make codes.
var ebitenKeymap = map[ebiten.Key]uint8{
	ebiten.KeyEscape: 0x01,
	ebiten.KeyDigit1: 0x02, ebiten.KeyDigit2: 0x03, ebiten.KeyDigit3: 0x04,
	ebiten.KeyDigit4: 0x05, ebiten.KeyDigit5: 0x06, ebiten.KeyDigit6: 0x07,
	ebiten.KeyDigit7: 0x08, ebiten.KeyDigit8: 0x09, ebiten.KeyDigit9: 0x0A,
	ebiten.KeyDigit0: 0x0B, ebiten.KeyMinus: 0x0C, ebiten.KeyEqual: 0x0D,
	ebiten.KeyBackspace: 0x0E, ebiten.KeyTab: 0x0F,
	ebiten.KeyQ: 0x10, ebiten.KeyW: 0x11, ebiten.KeyE: 0x12, ebiten.KeyR: 0x13,
	ebiten.KeyT: 0x14, ebiten.KeyY: 0x15, ebiten.KeyU: 0x16, ebiten.KeyI: 0x17,
	ebiten.KeyO: 0x18, ebiten.KeyP: 0x19,
	ebiten.KeyBracketLeft: 0x1A, ebiten.KeyBracketRight: 0x1B,
	ebiten.KeyEnter: 0x1C, ebiten.KeyControlLeft: 0x1D,
	ebiten.KeyA: 0x1E, ebiten.KeyS: 0x1F, ebiten.KeyD: 0x20, ebiten.KeyF: 0x21,
	ebiten.KeyG: 0x22, ebiten.KeyH: 0x23, ebiten.KeyJ: 0x24, ebiten.KeyK: 0x25,
	ebiten.KeyL: 0x26, ebiten.KeySemicolon: 0x27, ebiten.KeyQuote: 0x28,
	ebiten.KeyBackquote: 0x29, ebiten.KeyShiftLeft: 0x2A, ebiten.KeyBackslash: 0x2B,
	ebiten.KeyZ: 0x2C, ebiten.KeyX: 0x2D, ebiten.KeyC: 0x2E, ebiten.KeyV: 0x2F,
	ebiten.KeyB: 0x30, ebiten.KeyN: 0x31, ebiten.KeyM: 0x32,
	ebiten.KeyComma: 0x33, ebiten.KeyPeriod: 0x34, ebiten.KeySlash: 0x35,
	ebiten.KeyShiftRight: 0x36, ebiten.KeyAltLeft: 0x38, ebiten.KeySpace: 0x39,
	ebiten.KeyCapsLock: 0x3A,
	ebiten.KeyF1:       0x3B, ebiten.KeyF2: 0x3C, ebiten.KeyF3: 0x3D,
	ebiten.KeyF4: 0x3E, ebiten.KeyF5: 0x3F, ebiten.KeyF6: 0x40,
	ebiten.KeyF7: 0x41, ebiten.KeyF8: 0x42, ebiten.KeyF9: 0x43,
	ebiten.KeyF10: 0x44,
	ebiten.KeyArrowUp: 0x48, ebiten.KeyArrowLeft: 0x4B,
	ebiten.KeyArrowRight: 0x4D, ebiten.KeyArrowDown: 0x50,
}

// asciiScancodes maps printable characters to (scancode, shifted) for
// clipboard paste injection.
var asciiScancodes = map[byte]struct {
	code    uint8
	shifted bool
}{
	'1': {0x02, false}, '2': {0x03, false}, '3': {0x04, false}, '4': {0x05, false},
	'5': {0x06, false}, '6': {0x07, false}, '7': {0x08, false}, '8': {0x09, false},
	'9': {0x0A, false}, '0': {0x0B, false}, '-': {0x0C, false}, '=': {0x0D, false},
	'!': {0x02, true}, '"': {0x03, true}, '#': {0x04, true}, '$': {0x05, true},
	'q': {0x10, false}, 'w': {0x11, false}, 'e': {0x12, false}, 'r': {0x13, false},
	't': {0x14, false}, 'y': {0x15, false}, 'u': {0x16, false}, 'i': {0x17, false},
	'o': {0x18, false}, 'p': {0x19, false},
	'a': {0x1E, false}, 's': {0x1F, false}, 'd': {0x20, false}, 'f': {0x21, false},
	'g': {0x22, false}, 'h': {0x23, false}, 'j': {0x24, false}, 'k': {0x25, false},
	'l': {0x26, false}, ';': {0x27, false}, '\'': {0x28, false},
	'z': {0x2C, false}, 'x': {0x2D, false}, 'c': {0x2E, false}, 'v': {0x2F, false},
	'b': {0x30, false}, 'n': {0x31, false}, 'm': {0x32, false},
	',': {0x33, false}, '.': {0x34, false}, '/': {0x35, false},
	' ': {0x39, false}, '\n': {0x1C, false}, '\t': {0x0F, false},
	':': {0x27, true}, '?': {0x35, true}, '*': {0x09, true}, '+': {0x0D, true},
}

const ebitenPasteCap = 4096

type EbitenOutput struct {
	machine *Machine
	stop    <-chan struct{}
	window  *ebiten.Image
	lastW   int
	lastH   int

	clipboardOnce sync.Once
	clipboardOK   bool

	pending []uint8 // Scancode stream queued for injection, one per update
}

var errEbitenStop = errors.New("stop requested")

func NewVideoOutput() (VideoOutput, error) {
	return &EbitenOutput{}, nil
}

func (eo *EbitenOutput) Run(m *Machine, stop <-chan struct{}) error {
	eo.machine = m
	eo.stop = stop
	ebiten.SetWindowTitle("LucidST")
	ebiten.SetWindowSize(640, 400)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	err := ebiten.RunGame(eo)
	if errors.Is(err, errEbitenStop) {
		return nil
	}
	return err
}

func (eo *EbitenOutput) Update() error {
	select {
	case <-eo.stop:
		return errEbitenStop
	default:
	}

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		eo.handleClipboardPaste()
	} else {
		for key, code := range ebitenKeymap {
			if inpututil.IsKeyJustPressed(key) {
				eo.machine.Commands.Push(Command{Kind: CmdKeyEvent, Arg: uint32(code)})
			}
			if inpututil.IsKeyJustReleased(key) {
				eo.machine.Commands.Push(Command{Kind: CmdKeyEvent, Arg: uint32(code | 0x80)})
			}
		}
	}

	// Trickle pasted scancodes a few per frame so the IKBD queue and
	// TOS keyboard buffer keep up.
	for i := 0; i < 4 && len(eo.pending) > 0; i++ {
		eo.machine.Commands.Push(Command{Kind: CmdKeyEvent, Arg: uint32(eo.pending[0])})
		eo.pending = eo.pending[1:]
	}
	return nil
}

func (eo *EbitenOutput) handleClipboardPaste() {
	eo.clipboardOnce.Do(func() {
		eo.clipboardOK = clipboard.Init() == nil
	})
	if !eo.clipboardOK {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return
	}
	if len(data) > ebitenPasteCap {
		data = data[:ebitenPasteCap]
	}
	for _, b := range data {
		if b == '\r' {
			continue
		}
		upper := b >= 'A' && b <= 'Z'
		if upper {
			b += 'a' - 'A'
		}
		m, ok := asciiScancodes[b]
		if !ok {
			continue
		}
		shift := m.shifted || upper
		if shift {
			eo.pending = append(eo.pending, 0x2A)
		}
		eo.pending = append(eo.pending, m.code, m.code|0x80)
		if shift {
			eo.pending = append(eo.pending, 0x2A|0x80)
		}
	}
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	pix, w, h := eo.machine.Frames.TakeFrame()
	if pix != nil {
		if eo.window == nil || eo.lastW != w || eo.lastH != h {
			eo.window = ebiten.NewImage(w, h)
			eo.lastW, eo.lastH = w, h
		}
		eo.window.WritePixels(pix)
	}
	if eo.window != nil {
		screen.DrawImage(eo.window, nil)
	}
}

func (eo *EbitenOutput) Layout(outsideWidth, outsideHeight int) (int, int) {
	if eo.lastW > 0 {
		return eo.lastW, eo.lastH
	}
	return 640, 400
}
