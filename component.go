// component.go - Capability contracts for machine slot modules

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

/*
Every slot module — CPU, video, audio, I/O — is bound to the machine
through one of these capability tables. Builtin Go chips implement them
directly; natively loaded EBIN modules are adapted onto the same
contracts by the loader. The machine never knows which kind it holds.
*/

package main

// packVersion packs an interface version as major<<16 | minor.
func packVersion(major, minor uint16) uint32 {
	return uint32(major)<<16 | uint32(minor)
}

func versionMajor(v uint32) uint16 { return uint16(v >> 16) }
func versionMinor(v uint32) uint16 { return uint16(v) }

// Host-required interface versions per component type. A module is
// compatible when its major equals the required major and its minor is
// at least the required minor.
var requiredInterfaceVersion = map[ComponentType]uint32{
	ComponentCPU:    packVersion(1, 0),
	ComponentVideo:  packVersion(1, 0),
	ComponentAudio:  packVersion(1, 0),
	ComponentIO:     packVersion(1, 0),
	ComponentSystem: packVersion(1, 0),
}

// compatibleVersion codifies the intent: supplied major must equal
// required major, supplied minor must be >= required minor.
func compatibleVersion(required, supplied uint32) bool {
	return versionMajor(supplied) == versionMajor(required) &&
		versionMinor(supplied) >= versionMinor(required)
}

// Component is the lifecycle surface shared by all modules.
type Component interface {
	Name() string
	InterfaceVersion() uint32
	Reset()
	Shutdown()
}

// Clockable modules advance in lock-step with consumed CPU cycles.
type Clockable interface {
	Clock(cycles uint32)
}

// CPUComponent is the processor slot contract.
type CPUComponent interface {
	Component
	SetBus(bus Bus)
	Execute(budget uint32) uint32
	Stop()
	SetIRQ(level uint8)
	SetNMI()
	SetVectorSource(fn func() uint8)
	SetResetHook(fn func())
	GetState(out *M68KState)
	SetState(in *M68KState)
	Cycles() uint64
}

// VideoComponent is the video slot contract.
type VideoComponent interface {
	Component
	Clockable
	RenderFrame(fb []byte)
	FrameSize() (w, h int)
	HPos() int
	VPos() int
	InVBlank() bool
	InHBlank() bool
}

// AudioComponent is the audio slot contract. Generate fills n mono
// float32 samples at the machine sample rate.
type AudioComponent interface {
	Component
	Clockable
	Generate(out []float32, n int)
}

// IOComponent is the chip-register slot contract. IORange must lie
// inside the I/O window; the machine registers it with the memory map.
type IOComponent interface {
	Component
	Clockable
	IORange() (base, end uint32)
	ReadByte(addr uint32) uint8
	ReadWord(addr uint32) uint16
	WriteByte(addr uint32, value uint8)
	WriteWord(addr uint32, value uint16)
	IRQPending() bool
	Vector() uint8
}
