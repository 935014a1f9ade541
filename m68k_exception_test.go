// m68k_exception_test.go - Exception frames, stack discipline and interrupts

package main

import (
	"encoding/binary"
	"testing"
)

// Forced bus error on a writing MOVE: group-0 frame layout from the
// stacked SP upward is SSW, fault address long, IR word, SR word, PC
// long, and A7 drops by exactly 14.
func TestBusErrorFrameOnWrite(t *testing.T) {
	cpu, mem := newTestCPU(t)
	cpu.SetState(&M68KState{
		PC:  testProgBase,
		SR:  testDefaultSR,
		SSP: testStackTop,
	})
	// MOVE.W D0,$F00000 — outside RAM, ROM and the I/O window.
	pokeWords(mem, testProgBase, []uint16{0x33C0, 0x00F0, 0x0000})

	cpu.Execute(1) // Executes the MOVE, latches the fault
	if !cpu.busErrPending {
		t.Fatal("bus error should be pending after the faulting write")
	}
	srAtFault := cpu.SR
	pcAtFault := cpu.PC
	cpu.Execute(1) // Takes vector 2

	sp := cpu.AddrRegs[7]
	if want := uint32(testStackTop - 14); sp != want {
		t.Fatalf("A7 = %06X, want %06X (14-byte group-0 frame)", sp, want)
	}
	ram := mem.RAM()

	ssw := binary.BigEndian.Uint16(ram[sp:])
	if ssw&0x10 != 0 {
		t.Errorf("SSW R/W bit = read, want write (ssw=%04X)", ssw)
	}
	if ssw&0x07 != 0x5 {
		t.Errorf("SSW function code = %d, want 5 (supervisor data)", ssw&0x07)
	}
	if fault := binary.BigEndian.Uint32(ram[sp+2:]); fault != 0xF00000 {
		t.Errorf("fault address = %06X, want F00000", fault)
	}
	if ir := binary.BigEndian.Uint16(ram[sp+6:]); ir != 0x33C0 {
		t.Errorf("stacked IR = %04X, want 33C0", ir)
	}
	if sr := binary.BigEndian.Uint16(ram[sp+8:]); sr != srAtFault {
		t.Errorf("stacked SR = %04X, want %04X", sr, srAtFault)
	}
	if pc := binary.BigEndian.Uint32(ram[sp+10:]); pc != pcAtFault {
		t.Errorf("stacked PC = %06X, want %06X", pc, pcAtFault)
	}
}

// S6: odd-address word write latches the address error before any
// memory mutation; the next boundary takes vector 3.
func TestAddressErrorOddWrite(t *testing.T) {
	cpu, mem := newTestCPU(t)
	cpu.SetState(&M68KState{
		AddrRegs: [8]uint32{0x1001, 0, 0, 0, 0, 0, 0, 0},
		PC:       testProgBase,
		SR:       testDefaultSR,
		SSP:      testStackTop,
	})
	mem.RAM()[0x1000] = 0xAA
	mem.RAM()[0x1001] = 0xBB
	mem.RAM()[0x1002] = 0xCC
	pokeWords(mem, testProgBase, []uint16{0x3080}) // MOVE.W D0,(A0)

	cpu.Execute(1)
	if !cpu.addrErrPending {
		t.Fatal("address error should be pending")
	}
	if mem.RAM()[0x1000] != 0xAA || mem.RAM()[0x1001] != 0xBB || mem.RAM()[0x1002] != 0xCC {
		t.Error("odd write must not mutate RAM")
	}

	cpu.Execute(1)
	if got, want := cpu.AddrRegs[7], uint32(testStackTop-14); got != want {
		t.Errorf("A7 = %06X, want %06X", got, want)
	}
	if fault := binary.BigEndian.Uint32(mem.RAM()[cpu.AddrRegs[7]+2:]); fault != 0x1001 {
		t.Errorf("fault address = %06X, want 001001", fault)
	}
}

// Entering an exception from user mode swaps A7 to the SSP; RTE with a
// user-mode SR swaps back.
func TestSupervisorUserStackSwap(t *testing.T) {
	cpu, mem := newTestCPU(t)

	const userSP = 0x3000
	const superSP = 0x7000
	cpu.SetState(&M68KState{
		PC:  testProgBase,
		SR:  0x0000, // User mode
		USP: userSP,
		SSP: superSP,
	})
	if cpu.AddrRegs[7] != userSP {
		t.Fatalf("A7 = %06X, want user stack %06X", cpu.AddrRegs[7], userSP)
	}

	// Handler at 0x2000: RTE. Vector 32 = TRAP #0.
	binary.BigEndian.PutUint32(mem.RAM()[32*4:], 0x2000)
	pokeWords(mem, testProgBase, []uint16{0x4E40}) // TRAP #0
	pokeWords(mem, 0x2000, []uint16{0x4E73})       // RTE

	cpu.Execute(1)
	if cpu.SR&SR_S == 0 {
		t.Fatal("exception entry must set supervisor")
	}
	if cpu.USP != userSP {
		t.Errorf("USP = %06X, want %06X", cpu.USP, userSP)
	}
	if got, want := cpu.AddrRegs[7], uint32(superSP-6); got != want {
		t.Errorf("A7 = %06X, want %06X (SR word + PC long)", got, want)
	}

	cpu.Execute(1) // RTE
	if cpu.SR&SR_S != 0 {
		t.Fatal("RTE must restore user mode")
	}
	if cpu.AddrRegs[7] != userSP {
		t.Errorf("A7 = %06X, want user stack %06X", cpu.AddrRegs[7], userSP)
	}
	if cpu.SSP != superSP {
		t.Errorf("SSP = %06X, want %06X", cpu.SSP, superSP)
	}
	if cpu.PC != testProgBase+2 {
		t.Errorf("PC = %06X, want %06X", cpu.PC, testProgBase+2)
	}
}

func TestPrivilegeViolationInUserMode(t *testing.T) {
	cpu, mem := newTestCPU(t)
	cpu.SetState(&M68KState{
		PC:  testProgBase,
		SR:  0x0000,
		USP: 0x3000,
		SSP: testStackTop,
	})
	binary.BigEndian.PutUint32(mem.RAM()[VEC_PRIVILEGE*4:], 0x2000)
	pokeWords(mem, testProgBase, []uint16{0x4E72, 0x2700}) // STOP (privileged)

	cpu.Execute(1)
	if cpu.PC != 0x2000 {
		t.Errorf("PC = %06X, want privilege handler 002000", cpu.PC)
	}
	if cpu.Stopped() {
		t.Error("user-mode STOP must not stop the CPU")
	}
	// The stacked PC points at the faulting instruction.
	if pc := binary.BigEndian.Uint32(mem.RAM()[cpu.AddrRegs[7]+2:]); pc != testProgBase {
		t.Errorf("stacked PC = %06X, want %06X", pc, testProgBase)
	}
}

func TestIllegalAndLineTraps(t *testing.T) {
	for _, tc := range []struct {
		name   string
		opcode uint16
		vector uint16
	}{
		{"illegal", 0x4AFC, VEC_ILLEGAL},
		{"line_a", 0xA000, VEC_LINE_A},
		{"line_f", 0xF123, VEC_LINE_F},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cpu, mem := newTestCPU(t)
			cpu.SetState(&M68KState{PC: testProgBase, SR: testDefaultSR, SSP: testStackTop})
			binary.BigEndian.PutUint32(mem.RAM()[uint32(tc.vector)*4:], 0x2000)
			pokeWords(mem, testProgBase, []uint16{tc.opcode})

			cpu.Execute(1)
			if cpu.PC != 0x2000 {
				t.Errorf("PC = %06X, want handler 002000", cpu.PC)
			}
		})
	}
}

func TestDivideByZero(t *testing.T) {
	cpu, mem := newTestCPU(t)
	cpu.SetState(&M68KState{
		DataRegs: [8]uint32{100, 0},
		PC:       testProgBase,
		SR:       testDefaultSR,
		SSP:      testStackTop,
	})
	binary.BigEndian.PutUint32(mem.RAM()[VEC_DIVIDE_ZERO*4:], 0x2000)
	pokeWords(mem, testProgBase, []uint16{0x80C1}) // DIVU D1,D0

	cpu.Execute(1)
	if cpu.PC != 0x2000 {
		t.Errorf("PC = %06X, want divide-by-zero handler", cpu.PC)
	}
	if cpu.DataRegs[0] != 100 {
		t.Errorf("D0 = %08X, dividend must be preserved", cpu.DataRegs[0])
	}
}

func TestTraceException(t *testing.T) {
	cpu, mem := newTestCPU(t)
	cpu.SetState(&M68KState{PC: testProgBase, SR: 0x2700 | SR_T, SSP: testStackTop})
	binary.BigEndian.PutUint32(mem.RAM()[VEC_TRACE*4:], 0x2000)
	pokeWords(mem, testProgBase, []uint16{0x4E71}) // NOP

	cpu.Execute(1)
	if cpu.PC != 0x2000 {
		t.Errorf("PC = %06X, want trace handler", cpu.PC)
	}
	if cpu.SR&SR_T != 0 {
		t.Error("exception entry must clear trace")
	}
	// The stacked PC is the instruction after the traced NOP.
	if pc := binary.BigEndian.Uint32(mem.RAM()[cpu.AddrRegs[7]+2:]); pc != testProgBase+2 {
		t.Errorf("stacked PC = %06X, want %06X", pc, testProgBase+2)
	}
}

func TestAutovectorInterrupt(t *testing.T) {
	cpu, mem := newTestCPU(t)
	cpu.SetState(&M68KState{PC: testProgBase, SR: 0x2000, SSP: testStackTop}) // Mask 0
	binary.BigEndian.PutUint32(mem.RAM()[(VEC_AUTOVECTOR+4)*4:], 0x2000)
	pokeWords(mem, testProgBase, []uint16{0x4E71, 0x4E71})
	pokeWords(mem, 0x2000, []uint16{0x4E71})

	cpu.SetIRQ(4)
	cpu.Execute(1)

	if cpu.PC != 0x2002 {
		t.Errorf("PC = %06X, want 002002 (handler's first instruction retired)", cpu.PC)
	}
	if mask := cpu.SR >> 8 & 7; mask != 4 {
		t.Errorf("interrupt mask = %d, want accepted level 4", mask)
	}
}

func TestMaskedInterruptHeld(t *testing.T) {
	cpu, mem := newTestCPU(t)
	cpu.SetState(&M68KState{PC: testProgBase, SR: testDefaultSR, SSP: testStackTop}) // Mask 7
	pokeWords(mem, testProgBase, []uint16{0x4E71})

	cpu.SetIRQ(3)
	cpu.Execute(1)
	if cpu.PC != testProgBase+2 {
		t.Errorf("PC = %06X, masked interrupt must not be taken", cpu.PC)
	}
}

func TestNMIIgnoresMask(t *testing.T) {
	cpu, mem := newTestCPU(t)
	cpu.SetState(&M68KState{PC: testProgBase, SR: testDefaultSR, SSP: testStackTop}) // Mask 7
	binary.BigEndian.PutUint32(mem.RAM()[(VEC_AUTOVECTOR+7)*4:], 0x2000)
	pokeWords(mem, testProgBase, []uint16{0x4E71})
	pokeWords(mem, 0x2000, []uint16{0x4E71})

	cpu.SetNMI()
	cpu.Execute(1)
	if cpu.PC != 0x2002 {
		t.Errorf("PC = %06X, level 7 must be taken despite mask", cpu.PC)
	}
}

// Level 6 consults the device vector source: the MFP path.
func TestDeviceSuppliedVector(t *testing.T) {
	cpu, mem := newTestCPU(t)
	cpu.SetState(&M68KState{PC: testProgBase, SR: 0x2000, SSP: testStackTop})
	cpu.SetVectorSource(func() uint8 { return 0x46 }) // Vector base 4, source 6 (GPIP4)
	binary.BigEndian.PutUint32(mem.RAM()[0x46*4:], 0x2000)
	pokeWords(mem, testProgBase, []uint16{0x4E71})
	pokeWords(mem, 0x2000, []uint16{0x4E71})

	cpu.SetIRQ(6)
	cpu.Execute(1)
	if cpu.PC != 0x2002 {
		t.Errorf("PC = %06X, want device-vectored handler", cpu.PC)
	}
}

// STOP wakes on an accepted interrupt.
func TestStopWakesOnInterrupt(t *testing.T) {
	cpu, mem := newTestCPU(t)
	cpu.SetState(&M68KState{PC: testProgBase, SR: testDefaultSR, SSP: testStackTop})
	binary.BigEndian.PutUint32(mem.RAM()[(VEC_AUTOVECTOR+5)*4:], 0x2000)
	pokeWords(mem, testProgBase, []uint16{0x4E72, 0x2300}) // STOP #$2300 (mask 3)
	pokeWords(mem, 0x2000, []uint16{0x4E71})

	cpu.Execute(1)
	if !cpu.Stopped() {
		t.Fatal("CPU should be stopped")
	}

	// Budget 30: the stopped tick (4) plus interrupt entry (34) exceeds
	// it, so execution halts right at the handler's doorstep.
	cpu.SetIRQ(5)
	cpu.Execute(30)
	if cpu.Stopped() {
		t.Error("interrupt above mask must clear the stopped state")
	}
	if cpu.PC != 0x2000 {
		t.Errorf("PC = %06X, want handler entry", cpu.PC)
	}
}

// Vector 28*4 for level 4 was set above; keep vector math honest here.
func TestAutovectorNumbering(t *testing.T) {
	if VEC_AUTOVECTOR+1 != 25 || VEC_AUTOVECTOR+7 != 31 {
		t.Fatal("autovectors for levels 1..7 must be 25..31")
	}
}
