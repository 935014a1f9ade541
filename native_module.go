// native_module.go - Binds a loaded EBIN capability table onto the slot contracts

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

/*
A native module's entry function returns a pointer to an immutable
record: interface_version u32 (padded to pointer width), a name
C-string, then function pointers in the order fixed per module type.
These adapters read that record and forward each slot-contract call
through purego. The bus handed to a native CPU module is itself lowered
to a nine-pointer C table whose function members are purego callbacks
over the Go bus.

Layout of the capability record (pointer-sized fields after the head):

  +0                interface_version u32 (in a pointer-sized slot)
  +ptr              name *char
  +2*ptr onwards    function pointers per module type

CPU order:   init, reset, shutdown, execute, stop, get_state, set_state,
             set_irq, set_nmi, set_bus
I/O order:   init, reset, shutdown, read_byte, read_word, write_byte,
             write_word, clock, irq_pending, get_vector
Audio order: init, reset, shutdown, generate, read_reg, write_reg, clock
*/

package main

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// capField reads the nth pointer-sized field of the capability record.
func capField(table uintptr, n int) uintptr {
	return *(*uintptr)(unsafe.Pointer(table + uintptr(n)*ptrSize))
}

func capVersion(table uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(table))
}

func capName(table uintptr) string {
	p := capField(table, 1)
	if p == 0 {
		return ""
	}
	var out []byte
	for i := uintptr(0); i < 64; i++ {
		b := *(*byte)(unsafe.Pointer(p + i))
		if b == 0 {
			break
		}
		out = append(out, b)
	}
	return string(out)
}

// nativeModule is the shared lifecycle head of every adapter.
type nativeModule struct {
	table uintptr
	name  string
	fns   []uintptr // Function pointers, record order
}

func newNativeModule(table uintptr, fnCount int) nativeModule {
	m := nativeModule{table: table, name: capName(table)}
	for i := 0; i < fnCount; i++ {
		m.fns = append(m.fns, capField(table, 2+i))
	}
	return m
}

func (m *nativeModule) Name() string             { return m.name }
func (m *nativeModule) InterfaceVersion() uint32 { return capVersion(m.table) }

func (m *nativeModule) call(fn int, args ...uintptr) uintptr {
	if m.fns[fn] == 0 {
		return 0
	}
	r, _, _ := purego.SyscallN(m.fns[fn], args...)
	return r
}

// ------------------------------------------------------------------------------
// Native I/O module
// ------------------------------------------------------------------------------

const (
	nioInit = iota
	nioReset
	nioShutdown
	nioReadByte
	nioReadWord
	nioWriteByte
	nioWriteWord
	nioClock
	nioIRQPending
	nioGetVector
	nioFnCount
)

type NativeIOModule struct {
	nativeModule
	base, end uint32
}

// BindNativeIO adapts a loaded I/O module. The register range comes
// from the profile entry, since the record itself is address-agnostic.
func BindNativeIO(mod *LoadedModule, base, end uint32) (*NativeIOModule, error) {
	if mod == nil || mod.Capability() == 0 {
		return nil, fmt.Errorf("%w: no capability table", ErrInvalidArgument)
	}
	n := &NativeIOModule{
		nativeModule: newNativeModule(mod.Capability(), nioFnCount),
		base:         base,
		end:          end,
	}
	n.call(nioInit)
	return n, nil
}

func (n *NativeIOModule) IORange() (uint32, uint32) { return n.base, n.end }
func (n *NativeIOModule) Reset()                    { n.call(nioReset) }
func (n *NativeIOModule) Shutdown()                 { n.call(nioShutdown) }
func (n *NativeIOModule) Clock(cycles uint32)       { n.call(nioClock, uintptr(cycles)) }
func (n *NativeIOModule) IRQPending() bool          { return n.call(nioIRQPending) != 0 }
func (n *NativeIOModule) Vector() uint8             { return uint8(n.call(nioGetVector)) }

func (n *NativeIOModule) ReadByte(addr uint32) uint8 {
	return uint8(n.call(nioReadByte, uintptr(addr)))
}

func (n *NativeIOModule) ReadWord(addr uint32) uint16 {
	return uint16(n.call(nioReadWord, uintptr(addr)))
}

func (n *NativeIOModule) WriteByte(addr uint32, value uint8) {
	n.call(nioWriteByte, uintptr(addr), uintptr(value))
}

func (n *NativeIOModule) WriteWord(addr uint32, value uint16) {
	n.call(nioWriteWord, uintptr(addr), uintptr(value))
}

// ------------------------------------------------------------------------------
// Native audio module
// ------------------------------------------------------------------------------

const (
	nauInit = iota
	nauReset
	nauShutdown
	nauGenerate
	nauReadReg
	nauWriteReg
	nauClock
	nauFnCount
)

type NativeAudioModule struct {
	nativeModule
	buf []int16 // Native modules emit signed 16-bit PCM
}

func BindNativeAudio(mod *LoadedModule, sampleRate int) (*NativeAudioModule, error) {
	if mod == nil || mod.Capability() == 0 {
		return nil, fmt.Errorf("%w: no capability table", ErrInvalidArgument)
	}
	n := &NativeAudioModule{nativeModule: newNativeModule(mod.Capability(), nauFnCount)}
	n.call(nauInit, uintptr(sampleRate))
	return n, nil
}

func (n *NativeAudioModule) Reset()              { n.call(nauReset) }
func (n *NativeAudioModule) Shutdown()           { n.call(nauShutdown) }
func (n *NativeAudioModule) Clock(cycles uint32) { n.call(nauClock, uintptr(cycles)) }

func (n *NativeAudioModule) Generate(out []float32, count int) {
	if count > len(out) {
		count = len(out)
	}
	if count == 0 {
		return
	}
	if len(n.buf) < count {
		n.buf = make([]int16, count)
	}
	n.call(nauGenerate, uintptr(unsafe.Pointer(&n.buf[0])), uintptr(count))
	for i := 0; i < count; i++ {
		out[i] = float32(n.buf[i]) / 32768.0
	}
}

// ------------------------------------------------------------------------------
// Native video module
// ------------------------------------------------------------------------------

const (
	nviInit = iota
	nviReset
	nviShutdown
	nviRenderScanline
	nviRenderFrame
	nviGetHpos
	nviGetVpos
	nviInVblank
	nviInHblank
	nviReadReg
	nviWriteReg
	nviGetMode
	nviClock
	nviFnCount
)

type NativeVideoModule struct {
	nativeModule
	w, h int
}

// BindNativeVideo adapts a loaded video module. The frame geometry
// comes from the module's mode query at bind time.
func BindNativeVideo(mod *LoadedModule) (*NativeVideoModule, error) {
	if mod == nil || mod.Capability() == 0 {
		return nil, fmt.Errorf("%w: no capability table", ErrInvalidArgument)
	}
	n := &NativeVideoModule{nativeModule: newNativeModule(mod.Capability(), nviFnCount)}
	n.call(nviInit)
	n.w, n.h = 320, 200
	if mode := n.call(nviGetMode); mode != 0 {
		n.w, n.h = 640, 200
		if mode == 2 {
			n.h = 400
		}
	}
	return n, nil
}

func (n *NativeVideoModule) Reset()              { n.call(nviReset) }
func (n *NativeVideoModule) Shutdown()           { n.call(nviShutdown) }
func (n *NativeVideoModule) Clock(cycles uint32) { n.call(nviClock, uintptr(cycles)) }
func (n *NativeVideoModule) HPos() int           { return int(n.call(nviGetHpos)) }
func (n *NativeVideoModule) VPos() int           { return int(n.call(nviGetVpos)) }
func (n *NativeVideoModule) InVBlank() bool      { return n.call(nviInVblank) != 0 }
func (n *NativeVideoModule) InHBlank() bool      { return n.call(nviInHblank) != 0 }

func (n *NativeVideoModule) FrameSize() (int, int) { return n.w, n.h }

func (n *NativeVideoModule) RenderFrame(fb []byte) {
	if len(fb) == 0 {
		return
	}
	n.call(nviRenderFrame, uintptr(unsafe.Pointer(&fb[0])), uintptr(len(fb)))
}

// ------------------------------------------------------------------------------
// Native CPU module
// ------------------------------------------------------------------------------

const (
	ncpInit = iota
	ncpReset
	ncpShutdown
	ncpExecute
	ncpStop
	ncpGetState
	ncpSetState
	ncpSetIRQ
	ncpSetNMI
	ncpSetBus
	ncpFnCount
)

// nativeBusTable mirrors the C-side bus capability table: eight function
// pointers, the fault hooks and one context pointer. The callbacks close
// over the Go bus; the context slot is unused on the Go side but kept so
// the record layout matches the native contract.
type nativeBusTable struct {
	readByte   uintptr
	readWord   uintptr
	readLong   uintptr
	writeByte  uintptr
	writeWord  uintptr
	writeLong  uintptr
	busError   uintptr
	addrError  uintptr
	context    uintptr
}

type NativeCPUModule struct {
	nativeModule
	busTable *nativeBusTable
	faults   *cpuFaultLatch
}

// cpuFaultLatch replaces the bus's FaultSink while a native CPU is bound.
// It discards fault callbacks; nothing is forwarded.
type cpuFaultLatch struct {
	sink FaultSink
}

func (f *cpuFaultLatch) BusError(addr uint32, write bool)     { /* native CPUs latch internally */ }
func (f *cpuFaultLatch) AddressError(addr uint32, write bool) {}

func BindNativeCPU(mod *LoadedModule, bus Bus) (*NativeCPUModule, error) {
	if mod == nil || mod.Capability() == 0 {
		return nil, fmt.Errorf("%w: no capability table", ErrInvalidArgument)
	}
	n := &NativeCPUModule{nativeModule: newNativeModule(mod.Capability(), ncpFnCount)}
	n.call(ncpInit)
	n.SetBus(bus)
	return n, nil
}

func (n *NativeCPUModule) Reset()    { n.call(ncpReset) }
func (n *NativeCPUModule) Shutdown() { n.call(ncpShutdown) }
func (n *NativeCPUModule) Stop()     { n.call(ncpStop) }

func (n *NativeCPUModule) Execute(budget uint32) uint32 {
	return uint32(n.call(ncpExecute, uintptr(budget)))
}

func (n *NativeCPUModule) SetIRQ(level uint8) { n.call(ncpSetIRQ, uintptr(level)) }
func (n *NativeCPUModule) SetNMI()            { n.call(ncpSetNMI) }

// SetVectorSource and SetResetHook have no channel into the native
// record; native CPUs read their vector through the bus IACK space.
func (n *NativeCPUModule) SetVectorSource(fn func() uint8) {}
func (n *NativeCPUModule) SetResetHook(fn func())          {}

func (n *NativeCPUModule) GetState(out *M68KState) {
	n.call(ncpGetState, uintptr(unsafe.Pointer(out)))
}

func (n *NativeCPUModule) SetState(in *M68KState) {
	n.call(ncpSetState, uintptr(unsafe.Pointer(in)))
}

func (n *NativeCPUModule) Cycles() uint64 { return 0 }

// SetBus lowers the Go bus to a C-callable table and hands it to the
// module. The callbacks stay reachable through n.busTable for the
// module's lifetime.
func (n *NativeCPUModule) SetBus(bus Bus) {
	n.faults = &cpuFaultLatch{}
	bus.SetFaultSink(n.faults)
	n.busTable = &nativeBusTable{
		readByte: purego.NewCallback(func(addr uintptr) uintptr {
			return uintptr(bus.Read8(uint32(addr)))
		}),
		readWord: purego.NewCallback(func(addr uintptr) uintptr {
			return uintptr(bus.Read16(uint32(addr)))
		}),
		readLong: purego.NewCallback(func(addr uintptr) uintptr {
			return uintptr(bus.Read32(uint32(addr)))
		}),
		writeByte: purego.NewCallback(func(addr, val uintptr) uintptr {
			bus.Write8(uint32(addr), uint8(val))
			return 0
		}),
		writeWord: purego.NewCallback(func(addr, val uintptr) uintptr {
			bus.Write16(uint32(addr), uint16(val))
			return 0
		}),
		writeLong: purego.NewCallback(func(addr, val uintptr) uintptr {
			bus.Write32(uint32(addr), uint32(val))
			return 0
		}),
		busError: purego.NewCallback(func(addr, write uintptr) uintptr {
			return 0
		}),
		addrError: purego.NewCallback(func(addr, write uintptr) uintptr {
			return 0
		}),
	}
	n.call(ncpSetBus, uintptr(unsafe.Pointer(n.busTable)))
}
