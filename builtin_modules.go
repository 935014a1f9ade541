// builtin_modules.go - Compiled-in chip factories behind the builtin: scheme

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

/*
Profiles select compiled-in chips with builtin: files. Each factory
returns the chip behind the same capability contract a native EBIN
module would satisfy, so the machine assembly path is identical either
way. The MMU-configuration register is a builtin too: a single byte the
GLUE decodes for bank sizing, which TOS probes during boot.
*/

package main

import "fmt"

func builtinCPU(name string) (CPUComponent, error) {
	switch name {
	case "m68000":
		return NewM68KCPU(), nil
	default:
		return nil, fmt.Errorf("%w: builtin cpu %q", ErrNotFound, name)
	}
}

func builtinVideo(name string) (VideoComponent, error) {
	switch name {
	case "shifter":
		return NewShifter(), nil
	default:
		return nil, fmt.Errorf("%w: builtin video %q", ErrNotFound, name)
	}
}

func builtinAudio(name string, sampleRate int) (AudioComponent, error) {
	switch name {
	case "ym2149":
		return NewYM2149(sampleRate), nil
	default:
		return nil, fmt.Errorf("%w: builtin audio %q", ErrNotFound, name)
	}
}

func builtinIO(name string) (IOComponent, error) {
	switch name {
	case "mfp68901":
		return NewMFP68901(), nil
	case "acia6850":
		return NewACIAPair(), nil
	case "dma-fdc":
		return NewDMAFDC(), nil
	case "mmu-config":
		return NewMMUConfig(), nil
	default:
		return nil, fmt.Errorf("%w: builtin io %q", ErrNotFound, name)
	}
}

const mmuConfigInterfaceVersion uint32 = 1<<16 | 0 // 1.0

// MMUConfig is the bank configuration register at $FF8001.
type MMUConfig struct {
	config uint8
}

func NewMMUConfig() *MMUConfig {
	return &MMUConfig{}
}

func (u *MMUConfig) Name() string              { return "mmu-config" }
func (u *MMUConfig) InterfaceVersion() uint32  { return mmuConfigInterfaceVersion }
func (u *MMUConfig) IORange() (uint32, uint32) { return 0xFF8000, 0xFF800F }
func (u *MMUConfig) Reset()                    { u.config = 0 }
func (u *MMUConfig) Shutdown()                 {}
func (u *MMUConfig) Clock(cycles uint32)       {}
func (u *MMUConfig) IRQPending() bool          { return false }
func (u *MMUConfig) Vector() uint8             { return 0 }

func (u *MMUConfig) ReadByte(addr uint32) uint8 {
	if addr == MMU_CONFIG {
		return u.config
	}
	return 0
}

func (u *MMUConfig) WriteByte(addr uint32, value uint8) {
	if addr == MMU_CONFIG {
		u.config = value
	}
}

func (u *MMUConfig) ReadWord(addr uint32) uint16 {
	return uint16(u.ReadByte(addr))<<8 | uint16(u.ReadByte(addr+1))
}

func (u *MMUConfig) WriteWord(addr uint32, value uint16) {
	u.WriteByte(addr, uint8(value>>8))
	u.WriteByte(addr+1, uint8(value))
}
