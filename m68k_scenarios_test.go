// m68k_scenarios_test.go - End-to-end CPU programs over the ST memory map

package main

import (
	"encoding/binary"
	"testing"
)

// romWithVectors builds a minimal TOS-shaped image: initial SSP at
// offset 0, initial PC at offset 4.
func romWithVectors(ssp, pc uint32) []byte {
	rom := make([]byte, 16)
	binary.BigEndian.PutUint32(rom[0:], ssp)
	binary.BigEndian.PutUint32(rom[4:], pc)
	return rom
}

// bootCPU resets the machine with the given ROM vectors and program
// bytes placed in RAM.
func bootCPU(t *testing.T, ssp, pc uint32, program []byte) (*M68KCPU, *STMemoryMap) {
	t.Helper()
	cpu, mem := newTestCPU(t)
	if err := mem.LoadROMBytes(romWithVectors(ssp, pc)); err != nil {
		t.Fatalf("rom: %v", err)
	}
	mem.Reset()
	pokeBytes(mem, pc, program)
	cpu.Reset()
	return cpu, mem
}

// Reset determinism: PC and SSP come from the ROM's first two longs via
// the reset overlay, and no cycles have been consumed.
func TestResetDeterminism(t *testing.T) {
	cpu, _ := bootCPU(t, 0x8000, 0x0400, nil)

	if cpu.AddrRegs[7] != 0x8000 {
		t.Errorf("SSP = %08X, want 00008000", cpu.AddrRegs[7])
	}
	if cpu.PC != 0x0400 {
		t.Errorf("PC = %06X, want 000400", cpu.PC)
	}
	if cpu.SR != SR_S|SR_I {
		t.Errorf("SR = %04X, want %04X", cpu.SR, SR_S|SR_I)
	}
	if cpu.Cycles() != 0 {
		t.Errorf("cycles = %d, want 0", cpu.Cycles())
	}

	// A second reset yields the identical state.
	var first, second M68KState
	cpu.GetState(&first)
	cpu.Reset()
	cpu.GetState(&second)
	if first != second {
		t.Errorf("reset not deterministic:\n%+v\n%+v", first, second)
	}
}

// S1: MOVEQ #42,D0; MOVEQ #-1,D1; NOP; STOP #$2700.
func TestScenarioMoveqAndStop(t *testing.T) {
	program := []byte{0x70, 0x2A, 0x72, 0xFF, 0x4E, 0x71, 0x4E, 0x72, 0x27, 0x00}
	cpu, _ := bootCPU(t, 0x8000, 0x0400, program)

	cpu.Execute(100)

	if cpu.DataRegs[0] != 42 {
		t.Errorf("D0 = %08X, want 0000002A", cpu.DataRegs[0])
	}
	if cpu.DataRegs[1] != 0xFFFFFFFF {
		t.Errorf("D1 = %08X, want FFFFFFFF", cpu.DataRegs[1])
	}
	if !cpu.Stopped() {
		t.Error("CPU should be stopped")
	}
}

// S2: LEA $410.L,A0; JSR (A0); STOP. Subroutine: MOVEQ #77,D0; RTS.
func TestScenarioJsrRts(t *testing.T) {
	program := []byte{0x41, 0xF9, 0x00, 0x00, 0x04, 0x10, 0x4E, 0x90, 0x4E, 0x72, 0x27, 0x00}
	sub := []byte{0x70, 0x4D, 0x4E, 0x75}
	cpu, mem := bootCPU(t, 0x8000, 0x0400, program)
	pokeBytes(mem, 0x0410, sub)

	cpu.Execute(300)

	if cpu.DataRegs[0] != 77 {
		t.Errorf("D0 = %08X, want 0000004D", cpu.DataRegs[0])
	}
	if !cpu.Stopped() {
		t.Error("CPU should be stopped")
	}
}

// S3: MOVEQ #4,D0; MOVEQ #0,D1; loop: ADDQ.L #1,D1; DBRA D0,loop; STOP.
func TestScenarioDbraLoop(t *testing.T) {
	program := []byte{0x70, 0x04, 0x72, 0x00, 0x52, 0x81, 0x51, 0xC8, 0xFF, 0xFC, 0x4E, 0x72, 0x27, 0x00}
	cpu, _ := bootCPU(t, 0x8000, 0x0400, program)

	cpu.Execute(500)

	if cpu.DataRegs[1] != 5 {
		t.Errorf("D1 = %08X, want 00000005", cpu.DataRegs[1])
	}
	if cpu.DataRegs[0]&0xFFFF != 0xFFFF {
		t.Errorf("D0 low word = %04X, want FFFF", cpu.DataRegs[0]&0xFFFF)
	}
	if !cpu.Stopped() {
		t.Error("CPU should be stopped")
	}
}

// S4: MOVE.L #$DEADBEEF,D0; LEA $1000.L,A0; MOVE.L D0,(A0); CLR.L D0;
// MOVE.L (A0),D1; STOP.
func TestScenarioMemoryRoundTrip(t *testing.T) {
	program := []byte{
		0x20, 0x3C, 0xDE, 0xAD, 0xBE, 0xEF,
		0x41, 0xF9, 0x00, 0x00, 0x10, 0x00,
		0x20, 0x80,
		0x42, 0x80,
		0x22, 0x10,
		0x4E, 0x72, 0x27, 0x00,
	}
	cpu, mem := bootCPU(t, 0x8000, 0x0400, program)

	cpu.Execute(400)

	if got := binary.BigEndian.Uint32(mem.RAM()[0x1000:]); got != 0xDEADBEEF {
		t.Errorf("mem[1000] = %08X, want DEADBEEF", got)
	}
	if cpu.DataRegs[0] != 0 {
		t.Errorf("D0 = %08X, want 00000000", cpu.DataRegs[0])
	}
	if cpu.DataRegs[1] != 0xDEADBEEF {
		t.Errorf("D1 = %08X, want DEADBEEF", cpu.DataRegs[1])
	}
}

// S5: MOVEQ #1,D0; LSL.L #4,D0; MOVEQ #-128,D1; ASR.L #2,D1; STOP.
func TestScenarioShiftSemantics(t *testing.T) {
	program := []byte{0x70, 0x01, 0xE9, 0x88, 0x72, 0x80, 0xE4, 0x81, 0x4E, 0x72, 0x27, 0x00}
	cpu, _ := bootCPU(t, 0x8000, 0x0400, program)

	cpu.Execute(200)

	if cpu.DataRegs[0] != 0x10 {
		t.Errorf("D0 = %08X, want 00000010", cpu.DataRegs[0])
	}
	if cpu.DataRegs[1] != 0xFFFFFFE0 {
		t.Errorf("D1 = %08X, want FFFFFFE0 (ASR preserves sign)", cpu.DataRegs[1])
	}
	if !cpu.Stopped() {
		t.Error("CPU should be stopped")
	}
}

func TestMoveqFlags(t *testing.T) {
	runM68KTests(t, []M68KTestCase{
		{
			Name:          "MOVEQ_positive",
			Opcodes:       []uint16{0x702A},
			ExpectedRegs:  map[string]uint32{"D0": 42},
			ExpectedFlags: FlagsNZVC(0, 0, 0, 0),
		},
		{
			Name:          "MOVEQ_negative_sign_extends",
			Opcodes:       []uint16{0x72FF},
			ExpectedRegs:  map[string]uint32{"D1": 0xFFFFFFFF},
			ExpectedFlags: FlagsNZVC(1, 0, 0, 0),
		},
		{
			Name:          "MOVEQ_zero",
			Opcodes:       []uint16{0x7400},
			ExpectedRegs:  map[string]uint32{"D2": 0},
			ExpectedFlags: FlagsNZVC(0, 1, 0, 0),
		},
	})
}

func TestAddSubFlags(t *testing.T) {
	runM68KTests(t, []M68KTestCase{
		{
			Name:          "ADD.L_overflow",
			DataRegs:      [8]uint32{0x7FFFFFFF, 0x00000001},
			Opcodes:       []uint16{0xD081}, // ADD.L D1,D0
			ExpectedRegs:  map[string]uint32{"D0": 0x80000000},
			ExpectedFlags: FlagsNZVC(1, 0, 1, 0),
		},
		{
			Name:          "ADD.L_carry_and_zero",
			DataRegs:      [8]uint32{0xFFFFFFFF, 0x00000001},
			Opcodes:       []uint16{0xD081},
			ExpectedRegs:  map[string]uint32{"D0": 0},
			ExpectedFlags: FlagsAll(0, 1, 0, 1, 1),
		},
		{
			Name:          "ADD.B_preserves_upper",
			DataRegs:      [8]uint32{0xFFFFFF10, 0x00000005},
			Opcodes:       []uint16{0xD001},
			ExpectedRegs:  map[string]uint32{"D0": 0xFFFFFF15},
			ExpectedFlags: FlagsNZVC(0, 0, 0, 0),
		},
		{
			Name:          "SUB.L_borrow",
			DataRegs:      [8]uint32{0x00000001, 0x00000002},
			Opcodes:       []uint16{0x9081}, // SUB.L D1,D0
			ExpectedRegs:  map[string]uint32{"D0": 0xFFFFFFFF},
			ExpectedFlags: FlagsAll(1, 0, 0, 1, 1),
		},
		{
			Name:          "CMP.L_does_not_store",
			DataRegs:      [8]uint32{0x00000005, 0x00000005},
			Opcodes:       []uint16{0xB081}, // CMP.L D1,D0
			ExpectedRegs:  map[string]uint32{"D0": 5},
			ExpectedFlags: FlagsNZVC(0, 1, 0, 0),
		},
	})
}

func TestAddxSubxZFlagChaining(t *testing.T) {
	runM68KTests(t, []M68KTestCase{
		{
			Name:     "ADDX_nonzero_result_keeps_Z_clear",
			DataRegs: [8]uint32{0, 0},
			X:        true,
			Opcodes:  []uint16{0xD141}, // ADDX.W D1,D0
			// 0 + 0 + X(1) = 1: no flags set
			ExpectedRegs:  map[string]uint32{"D0": 1},
			ExpectedFlags: FlagsNZVC(0, 0, 0, 0),
		},
		{
			Name:          "SUBX_never_sets_Z",
			DataRegs:      [8]uint32{0x00000001, 0x00000001},
			Opcodes:       []uint16{0x9141}, // SUBX.W D1,D0 (X clear)
			ExpectedRegs:  map[string]uint32{"D0": 0},
			ExpectedFlags: FlagsNZVC(0, 0, 0, 0), // Z stays as it was (clear)
		},
	})
}

func TestUserStackByteAlignment(t *testing.T) {
	runM68KTests(t, []M68KTestCase{
		{
			Name:     "MOVE.B_to_predec_A7_steps_2",
			DataRegs: [8]uint32{0x41},
			AddrRegs: [8]uint32{0, 0, 0, 0, 0, 0, 0, 0x2000},
			Opcodes:  []uint16{0x1F00}, // MOVE.B D0,-(A7)
			ExpectedRegs: map[string]uint32{
				"A7": 0x1FFE,
			},
			ExpectedMem: []MemoryExpectation{
				{Address: 0x1FFE, Size: SizeByte, Value: 0x41},
			},
			ExpectedFlags: FlagDontCare(),
		},
	})
}
