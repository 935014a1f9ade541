// m68k_test_helpers_test.go - Table-driven harness for MC68000 instruction tests

package main

import (
	"encoding/binary"
	"testing"
)

const (
	testRAMSize   = 1024 * 1024
	testProgBase  = 0x1000
	testStackTop  = 0x8000
	testDefaultSR = 0x2700
)

// FlagExpectation checks condition codes after execution. -1 means
// "don't care".
type FlagExpectation struct {
	N, Z, V, C, X int8
}

func FlagDontCare() FlagExpectation {
	return FlagExpectation{N: -1, Z: -1, V: -1, C: -1, X: -1}
}

func FlagsNZVC(n, z, v, c int8) FlagExpectation {
	return FlagExpectation{N: n, Z: z, V: v, C: c, X: -1}
}

func FlagsAll(n, z, v, c, x int8) FlagExpectation {
	return FlagExpectation{N: n, Z: z, V: v, C: c, X: x}
}

type MemoryExpectation struct {
	Address uint32
	Size    Size
	Value   uint32
}

type M68KTestCase struct {
	Name string

	DataRegs [8]uint32
	AddrRegs [8]uint32
	SR       uint16 // 0 = supervisor, interrupts masked
	X        bool   // Set the X flag on entry

	InitialMem map[uint32]uint32 // Address -> byte value
	Opcodes    []uint16          // Placed at testProgBase

	Steps int // Instructions to execute (default 1)

	ExpectedRegs  map[string]uint32
	ExpectedMem   []MemoryExpectation
	ExpectedFlags FlagExpectation
	ExpectedPC    uint32 // 0 = don't check
}

// newTestCPU builds a CPU over an ST memory map with RAM only.
func newTestCPU(t *testing.T) (*M68KCPU, *STMemoryMap) {
	t.Helper()
	mem, err := NewSTMemoryMap(testRAMSize)
	if err != nil {
		t.Fatalf("memory map: %v", err)
	}
	cpu := NewM68KCPU()
	cpu.SetBus(mem)
	return cpu, mem
}

// pokeWords stores big-endian instruction words at addr.
func pokeWords(mem *STMemoryMap, addr uint32, words []uint16) {
	for i, w := range words {
		binary.BigEndian.PutUint16(mem.RAM()[addr+uint32(i*2):], w)
	}
}

// pokeBytes stores a raw byte stream at addr.
func pokeBytes(mem *STMemoryMap, addr uint32, stream []byte) {
	copy(mem.RAM()[addr:], stream)
}

func checkFlag(t *testing.T, name string, sr uint16, bit uint16, want int8) {
	t.Helper()
	if want < 0 {
		return
	}
	got := int8(0)
	if sr&bit != 0 {
		got = 1
	}
	if got != want {
		t.Errorf("flag %s = %d, want %d (SR=%04X)", name, got, want, sr)
	}
}

func runM68KTest(t *testing.T, tc M68KTestCase) {
	t.Helper()
	cpu, mem := newTestCPU(t)

	sr := tc.SR
	if sr == 0 {
		sr = testDefaultSR
	}
	if tc.X {
		sr |= uint16(SR_X)
	}

	state := M68KState{
		DataRegs: tc.DataRegs,
		AddrRegs: tc.AddrRegs,
		PC:       testProgBase,
		SR:       sr,
		SSP:      testStackTop,
		USP:      testStackTop - 0x1000,
	}
	if tc.AddrRegs[7] != 0 {
		state.SSP = tc.AddrRegs[7]
	}
	cpu.SetState(&state)

	for addr, val := range tc.InitialMem {
		mem.RAM()[addr] = uint8(val)
	}
	pokeWords(mem, testProgBase, tc.Opcodes)

	steps := tc.Steps
	if steps == 0 {
		steps = 1
	}
	for i := 0; i < steps; i++ {
		cpu.Execute(1)
	}

	for name, want := range tc.ExpectedRegs {
		var got uint32
		switch {
		case name[0] == 'D':
			got = cpu.DataRegs[name[1]-'0']
		case name[0] == 'A':
			got = cpu.AddrRegs[name[1]-'0']
		}
		if got != want {
			t.Errorf("%s = %08X, want %08X", name, got, want)
		}
	}
	for _, me := range tc.ExpectedMem {
		var got uint32
		switch me.Size {
		case SizeByte:
			got = uint32(mem.RAM()[me.Address])
		case SizeWord:
			got = uint32(binary.BigEndian.Uint16(mem.RAM()[me.Address:]))
		default:
			got = binary.BigEndian.Uint32(mem.RAM()[me.Address:])
		}
		if got != me.Value {
			t.Errorf("mem[%06X] = %08X, want %08X", me.Address, got, me.Value)
		}
	}
	checkFlag(t, "N", cpu.SR, SR_N, tc.ExpectedFlags.N)
	checkFlag(t, "Z", cpu.SR, SR_Z, tc.ExpectedFlags.Z)
	checkFlag(t, "V", cpu.SR, SR_V, tc.ExpectedFlags.V)
	checkFlag(t, "C", cpu.SR, SR_C, tc.ExpectedFlags.C)
	checkFlag(t, "X", cpu.SR, SR_X, tc.ExpectedFlags.X)
	if tc.ExpectedPC != 0 && cpu.PC != tc.ExpectedPC {
		t.Errorf("PC = %06X, want %06X", cpu.PC, tc.ExpectedPC)
	}
}

func runM68KTests(t *testing.T, tests []M68KTestCase) {
	t.Helper()
	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			runM68KTest(t, tc)
		})
	}
}
