// cpu_m68k_ops.go - MC68000 instruction decode and execution

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

/*
Decode follows the 68000 encoding map: the top nybble of the instruction
word selects one of sixteen groups, and each group decoder pattern-matches
the remaining bits. Unassigned patterns raise the illegal-instruction
exception; line-A and line-F words raise their own traps.

Cycle counts are the documented base figures; effective-address costs are
added via eaFetchCycles/eaWriteCycles.
*/

package main

import "math/bits"

// m68kDispatch indexes group decoders by instruction bits 15-12.
var m68kDispatch = [16]func(*M68KCPU, uint16){
	(*M68KCPU).decodeGroup0, // Bit manipulation, immediate, MOVEP
	(*M68KCPU).decodeGroup1, // MOVE.B
	(*M68KCPU).decodeGroup2, // MOVE.L
	(*M68KCPU).decodeGroup3, // MOVE.W
	(*M68KCPU).decodeGroup4, // Miscellaneous
	(*M68KCPU).decodeGroup5, // ADDQ, SUBQ, Scc, DBcc
	(*M68KCPU).decodeGroup6, // Bcc, BRA, BSR
	(*M68KCPU).decodeGroup7, // MOVEQ
	(*M68KCPU).decodeGroup8, // OR, DIVU, DIVS, SBCD
	(*M68KCPU).decodeGroup9, // SUB, SUBA, SUBX
	(*M68KCPU).decodeGroupA, // Line A
	(*M68KCPU).decodeGroupB, // CMP, CMPA, CMPM, EOR
	(*M68KCPU).decodeGroupC, // AND, MULU, MULS, ABCD, EXG
	(*M68KCPU).decodeGroupD, // ADD, ADDA, ADDX
	(*M68KCPU).decodeGroupE, // Shifts and rotates
	(*M68KCPU).decodeGroupF, // Line F
}

// sizeField maps the standard 2-bit size encoding (bits 7-6).
func sizeField(bits uint16) Size {
	switch bits {
	case 0:
		return SizeByte
	case 1:
		return SizeWord
	default:
		return SizeLong
	}
}

func (cpu *M68KCPU) opIllegal() {
	cpu.raiseException(VEC_ILLEGAL, cpu.prevPC)
}

func (cpu *M68KCPU) opPrivilege() {
	cpu.raiseException(VEC_PRIVILEGE, cpu.prevPC)
}

// ------------------------------------------------------------------------------
// Group 0: immediate ops, bit ops, MOVEP
// ------------------------------------------------------------------------------

func (cpu *M68KCPU) decodeGroup0(op uint16) {
	if op&0xF138 == 0x0108 {
		cpu.opMOVEP(op)
		return
	}
	if op&0x0100 != 0 {
		cpu.opBitDynamic(op)
		return
	}
	switch op {
	case 0x003C:
		imm := cpu.fetchWord()
		cpu.setCCR(uint8(cpu.SR) | uint8(imm))
		cpu.addCycles(20)
		return
	case 0x007C:
		if !cpu.supervisor() {
			cpu.opPrivilege()
			return
		}
		imm := cpu.fetchWord()
		cpu.setSR(cpu.SR | imm)
		cpu.addCycles(20)
		return
	case 0x023C:
		imm := cpu.fetchWord()
		cpu.setCCR(uint8(cpu.SR) & uint8(imm))
		cpu.addCycles(20)
		return
	case 0x027C:
		if !cpu.supervisor() {
			cpu.opPrivilege()
			return
		}
		imm := cpu.fetchWord()
		cpu.setSR(cpu.SR & imm)
		cpu.addCycles(20)
		return
	case 0x0A3C:
		imm := cpu.fetchWord()
		cpu.setCCR(uint8(cpu.SR) ^ uint8(imm))
		cpu.addCycles(20)
		return
	case 0x0A7C:
		if !cpu.supervisor() {
			cpu.opPrivilege()
			return
		}
		imm := cpu.fetchWord()
		cpu.setSR(cpu.SR ^ imm)
		cpu.addCycles(20)
		return
	}

	switch (op >> 9) & 7 {
	case 0:
		cpu.opImmediate(op, immOR)
	case 1:
		cpu.opImmediate(op, immAND)
	case 2:
		cpu.opImmediate(op, immSUB)
	case 3:
		cpu.opImmediate(op, immADD)
	case 4:
		cpu.opBitStatic(op)
	case 5:
		cpu.opImmediate(op, immEOR)
	case 6:
		cpu.opImmediate(op, immCMP)
	default:
		cpu.opIllegal()
	}
}

const (
	immOR = iota
	immAND
	immSUB
	immADD
	immEOR
	immCMP
)

func (cpu *M68KCPU) opImmediate(op uint16, kind int) {
	szBits := (op >> 6) & 3
	if szBits == 3 {
		cpu.opIllegal()
		return
	}
	sz := sizeField(szBits)
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	if mode == 1 || (mode == 7 && reg > 1) {
		cpu.opIllegal()
		return
	}

	var imm uint32
	if sz == SizeLong {
		imm = cpu.fetchLong()
	} else {
		imm = uint32(cpu.fetchWord()) & sz.mask()
	}

	dst := cpu.resolveEA(mode, reg, sz)
	d := dst.read(cpu, sz)

	switch kind {
	case immOR:
		result := d | imm
		cpu.setFlagsMove(result, sz)
		dst.write(cpu, sz, result)
	case immAND:
		result := d & imm
		cpu.setFlagsMove(result, sz)
		dst.write(cpu, sz, result)
	case immEOR:
		result := d ^ imm
		cpu.setFlagsMove(result, sz)
		dst.write(cpu, sz, result)
	case immSUB:
		result := d - imm
		cpu.setFlagsSub(imm, d, result, sz)
		dst.write(cpu, sz, result)
	case immADD:
		result := d + imm
		cpu.setFlagsAdd(imm, d, result, sz)
		dst.write(cpu, sz, result)
	case immCMP:
		result := d - imm
		cpu.setFlagsCmp(imm, d, result, sz)
	}

	switch {
	case mode == 0 && kind == immCMP:
		if sz == SizeLong {
			cpu.addCycles(14)
		} else {
			cpu.addCycles(8)
		}
	case mode == 0:
		if sz == SizeLong {
			cpu.addCycles(16)
		} else {
			cpu.addCycles(8)
		}
	case kind == immCMP:
		if sz == SizeLong {
			cpu.addCycles(12 + eaFetchCycles(mode, reg, sz))
		} else {
			cpu.addCycles(8 + eaFetchCycles(mode, reg, sz))
		}
	default:
		if sz == SizeLong {
			cpu.addCycles(20 + eaFetchCycles(mode, reg, sz))
		} else {
			cpu.addCycles(12 + eaFetchCycles(mode, reg, sz))
		}
	}
}

// opBitDynamic handles BTST/BCHG/BCLR/BSET with the bit number in Dn.
func (cpu *M68KCPU) opBitDynamic(op uint16) {
	dn := (op >> 9) & 7
	cpu.bitOp(op, cpu.DataRegs[dn], false)
}

// opBitStatic handles the immediate-bit-number forms.
func (cpu *M68KCPU) opBitStatic(op uint16) {
	bitNum := uint32(cpu.fetchWord() & 0xFF)
	cpu.bitOp(op, bitNum, true)
}

func (cpu *M68KCPU) bitOp(op uint16, bitNum uint32, static bool) {
	kind := (op >> 6) & 3 // 0 BTST, 1 BCHG, 2 BCLR, 3 BSET
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	if mode == 1 {
		cpu.opIllegal()
		return
	}

	if mode == 0 {
		// Register target: long operand, bit mod 32.
		bitNum &= 31
		mask := uint32(1) << bitNum
		old := cpu.DataRegs[reg]
		if old&mask == 0 {
			cpu.SR |= SR_Z
		} else {
			cpu.SR &^= SR_Z
		}
		switch kind {
		case 1:
			cpu.DataRegs[reg] ^= mask
		case 2:
			cpu.DataRegs[reg] &^= mask
		case 3:
			cpu.DataRegs[reg] |= mask
		}
		switch kind {
		case 0:
			cpu.addCycles(6)
		case 2:
			cpu.addCycles(10)
		default:
			cpu.addCycles(8)
		}
	} else {
		// Memory target: byte operand, bit mod 8.
		bitNum &= 7
		mask := uint32(1) << bitNum
		dst := cpu.resolveEA(mode, reg, SizeByte)
		val := dst.read(cpu, SizeByte)
		if val&mask == 0 {
			cpu.SR |= SR_Z
		} else {
			cpu.SR &^= SR_Z
		}
		switch kind {
		case 1:
			dst.write(cpu, SizeByte, val^mask)
		case 2:
			dst.write(cpu, SizeByte, val&^mask)
		case 3:
			dst.write(cpu, SizeByte, val|mask)
		}
		if kind == 0 {
			cpu.addCycles(4 + eaFetchCycles(mode, reg, SizeByte))
		} else {
			cpu.addCycles(8 + eaFetchCycles(mode, reg, SizeByte))
		}
	}
	if static {
		cpu.addCycles(4)
	}
}

func (cpu *M68KCPU) opMOVEP(op uint16) {
	dn := (op >> 9) & 7
	an := op & 7
	opmode := (op >> 6) & 7
	disp := int16(cpu.fetchWord())
	addr := uint32(int32(cpu.AddrRegs[an]) + int32(disp))

	switch opmode {
	case 4: // MOVEP.W mem->reg
		b0 := cpu.readBus(SizeByte, addr)
		b1 := cpu.readBus(SizeByte, addr+2)
		cpu.DataRegs[dn] = (cpu.DataRegs[dn] & 0xFFFF0000) | (b0<<8 | b1)
		cpu.addCycles(16)
	case 5: // MOVEP.L mem->reg
		b0 := cpu.readBus(SizeByte, addr)
		b1 := cpu.readBus(SizeByte, addr+2)
		b2 := cpu.readBus(SizeByte, addr+4)
		b3 := cpu.readBus(SizeByte, addr+6)
		cpu.DataRegs[dn] = b0<<24 | b1<<16 | b2<<8 | b3
		cpu.addCycles(24)
	case 6: // MOVEP.W reg->mem
		val := cpu.DataRegs[dn]
		cpu.writeBus(SizeByte, addr, (val>>8)&0xFF)
		cpu.writeBus(SizeByte, addr+2, val&0xFF)
		cpu.addCycles(16)
	case 7: // MOVEP.L reg->mem
		val := cpu.DataRegs[dn]
		cpu.writeBus(SizeByte, addr, (val>>24)&0xFF)
		cpu.writeBus(SizeByte, addr+2, (val>>16)&0xFF)
		cpu.writeBus(SizeByte, addr+4, (val>>8)&0xFF)
		cpu.writeBus(SizeByte, addr+6, val&0xFF)
		cpu.addCycles(24)
	default:
		cpu.opIllegal()
	}
}

// ------------------------------------------------------------------------------
// Groups 1-3: MOVE and MOVEA
// ------------------------------------------------------------------------------

var moveSizes = [4]Size{0, SizeByte, SizeLong, SizeWord}

func (cpu *M68KCPU) decodeGroup1(op uint16) { cpu.opMOVE(op) }
func (cpu *M68KCPU) decodeGroup2(op uint16) { cpu.opMOVE(op) }
func (cpu *M68KCPU) decodeGroup3(op uint16) { cpu.opMOVE(op) }

func (cpu *M68KCPU) opMOVE(op uint16) {
	sz := moveSizes[(op>>12)&3]
	srcMode := uint8((op >> 3) & 7)
	srcReg := uint8(op & 7)
	dstMode := uint8((op >> 6) & 7)
	dstReg := uint8((op >> 9) & 7)

	if dstMode == 1 {
		// MOVEA: word source sign-extends, flags untouched.
		if sz == SizeByte {
			cpu.opIllegal()
			return
		}
		src := cpu.resolveEA(srcMode, srcReg, sz)
		val := src.read(cpu, sz)
		if sz == SizeWord {
			val = uint32(int32(int16(val)))
		}
		cpu.AddrRegs[dstReg] = val
		cpu.addCycles(4 + eaFetchCycles(srcMode, srcReg, sz))
		return
	}
	if dstMode == 7 && dstReg > 1 {
		cpu.opIllegal()
		return
	}

	src := cpu.resolveEA(srcMode, srcReg, sz)
	val := src.read(cpu, sz)
	dst := cpu.resolveEA(dstMode, dstReg, sz)
	dst.write(cpu, sz, val)
	cpu.setFlagsMove(val, sz)
	cpu.addCycles(4 + eaFetchCycles(srcMode, srcReg, sz) + eaWriteCycles(dstMode, dstReg, sz))
}

// ------------------------------------------------------------------------------
// Group 4: miscellaneous
// ------------------------------------------------------------------------------

func (cpu *M68KCPU) decodeGroup4(op uint16) {
	switch {
	case op == 0x4AFC:
		cpu.opIllegal()
	case op == 0x4E70: // RESET
		if !cpu.supervisor() {
			cpu.opPrivilege()
			return
		}
		if cpu.resetHook != nil {
			cpu.resetHook()
		}
		cpu.addCycles(132)
	case op == 0x4E71: // NOP
		cpu.addCycles(4)
	case op == 0x4E72: // STOP
		if !cpu.supervisor() {
			cpu.opPrivilege()
			return
		}
		imm := cpu.fetchWord()
		cpu.setSR(imm)
		cpu.stopped = true
		cpu.addCycles(4)
	case op == 0x4E73: // RTE
		if !cpu.supervisor() {
			cpu.opPrivilege()
			return
		}
		sr := cpu.popWord()
		pc := cpu.popLong()
		cpu.setSR(sr)
		cpu.PC = pc
		cpu.addCycles(20)
	case op == 0x4E75: // RTS
		cpu.PC = cpu.popLong()
		cpu.addCycles(16)
	case op == 0x4E76: // TRAPV
		if cpu.SR&SR_V != 0 {
			cpu.raiseException(VEC_TRAPV, cpu.PC)
		} else {
			cpu.addCycles(4)
		}
	case op == 0x4E77: // RTR
		ccr := cpu.popWord()
		cpu.setCCR(uint8(ccr))
		cpu.PC = cpu.popLong()
		cpu.addCycles(20)
	case op&0xFFF0 == 0x4E40: // TRAP #n
		cpu.raiseException(VEC_TRAP_BASE+(op&0xF), cpu.PC)
	case op&0xFFF8 == 0x4E50: // LINK
		an := op & 7
		disp := int16(cpu.fetchWord())
		cpu.pushLong(cpu.AddrRegs[an])
		cpu.AddrRegs[an] = cpu.AddrRegs[7]
		cpu.AddrRegs[7] = uint32(int32(cpu.AddrRegs[7]) + int32(disp))
		cpu.addCycles(16)
	case op&0xFFF8 == 0x4E58: // UNLK
		an := op & 7
		cpu.AddrRegs[7] = cpu.AddrRegs[an]
		cpu.AddrRegs[an] = cpu.popLong()
		cpu.addCycles(12)
	case op&0xFFF8 == 0x4E60: // MOVE An,USP
		if !cpu.supervisor() {
			cpu.opPrivilege()
			return
		}
		cpu.USP = cpu.AddrRegs[op&7]
		cpu.addCycles(4)
	case op&0xFFF8 == 0x4E68: // MOVE USP,An
		if !cpu.supervisor() {
			cpu.opPrivilege()
			return
		}
		cpu.AddrRegs[op&7] = cpu.USP
		cpu.addCycles(4)
	case op&0xFFC0 == 0x4E80: // JSR
		cpu.opJSR(op)
	case op&0xFFC0 == 0x4EC0: // JMP
		cpu.opJMP(op)
	case op&0xFFF8 == 0x4840: // SWAP
		dn := op & 7
		val := cpu.DataRegs[dn]
		cpu.DataRegs[dn] = val>>16 | val<<16
		cpu.setFlagsMove(cpu.DataRegs[dn], SizeLong)
		cpu.addCycles(4)
	case op&0xFFC0 == 0x4840: // PEA
		cpu.opPEA(op)
	case op&0xFFF8 == 0x4880: // EXT.W
		dn := op & 7
		val := uint32(uint16(int16(int8(cpu.DataRegs[dn]))))
		cpu.DataRegs[dn] = (cpu.DataRegs[dn] & 0xFFFF0000) | val
		cpu.setFlagsMove(val, SizeWord)
		cpu.addCycles(4)
	case op&0xFFF8 == 0x48C0: // EXT.L
		dn := op & 7
		val := uint32(int32(int16(cpu.DataRegs[dn])))
		cpu.DataRegs[dn] = val
		cpu.setFlagsMove(val, SizeLong)
		cpu.addCycles(4)
	case op&0xFFC0 == 0x4800: // NBCD
		cpu.opNBCD(op)
	case op&0xFB80 == 0x4880: // MOVEM
		cpu.opMOVEM(op)
	case op&0xFFC0 == 0x40C0: // MOVE SR,<ea>
		cpu.opMoveFromSR(op)
	case op&0xFFC0 == 0x44C0: // MOVE <ea>,CCR
		cpu.opMoveToCCR(op)
	case op&0xFFC0 == 0x46C0: // MOVE <ea>,SR
		cpu.opMoveToSR(op)
	case op&0xFF00 == 0x4000: // NEGX
		cpu.opNEGX(op)
	case op&0xFF00 == 0x4200: // CLR
		cpu.opCLR(op)
	case op&0xFF00 == 0x4400: // NEG
		cpu.opNEG(op)
	case op&0xFF00 == 0x4600: // NOT
		cpu.opNOT(op)
	case op&0xFFC0 == 0x4AC0: // TAS
		cpu.opTAS(op)
	case op&0xFF00 == 0x4A00: // TST
		cpu.opTST(op)
	case op&0xF1C0 == 0x4180: // CHK
		cpu.opCHK(op)
	case op&0xF1C0 == 0x41C0: // LEA
		cpu.opLEA(op)
	default:
		cpu.opIllegal()
	}
}

func (cpu *M68KCPU) opJSR(op uint16) {
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	dst := cpu.resolveEA(mode, reg, SizeWord)
	cpu.pushLong(cpu.PC)
	cpu.PC = dst.addr
	cpu.addCycles(16)
}

func (cpu *M68KCPU) opJMP(op uint16) {
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	dst := cpu.resolveEA(mode, reg, SizeWord)
	cpu.PC = dst.addr
	cpu.addCycles(8)
}

func (cpu *M68KCPU) opLEA(op uint16) {
	an := (op >> 9) & 7
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	src := cpu.resolveEA(mode, reg, SizeLong)
	cpu.AddrRegs[an] = src.addr

	switch mode {
	case 2:
		cpu.addCycles(4)
	case 5:
		cpu.addCycles(8)
	case 6:
		cpu.addCycles(12)
	case 7:
		switch reg {
		case 0, 2:
			cpu.addCycles(8)
		default:
			cpu.addCycles(12)
		}
	default:
		cpu.opIllegal()
	}
}

func (cpu *M68KCPU) opPEA(op uint16) {
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	src := cpu.resolveEA(mode, reg, SizeLong)
	cpu.pushLong(src.addr)

	switch mode {
	case 2:
		cpu.addCycles(12)
	case 5:
		cpu.addCycles(16)
	case 6:
		cpu.addCycles(20)
	case 7:
		switch reg {
		case 0, 2:
			cpu.addCycles(16)
		default:
			cpu.addCycles(20)
		}
	default:
		cpu.opIllegal()
	}
}

func (cpu *M68KCPU) opMOVEM(op uint16) {
	toRegs := op&0x0400 != 0
	sz := SizeWord
	if op&0x0040 != 0 {
		sz = SizeLong
	}
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	mask := cpu.fetchWord()

	if !toRegs && mode == 4 {
		// -(An): mask is reversed, A7 first.
		addr := cpu.AddrRegs[reg]
		for i := 0; i < 16; i++ {
			if mask&(1<<i) == 0 {
				continue
			}
			addr -= uint32(sz)
			ri := 15 - i
			if ri < 8 {
				cpu.writeBus(sz, addr, cpu.DataRegs[ri])
			} else {
				cpu.writeBus(sz, addr, cpu.AddrRegs[ri-8])
			}
		}
		cpu.AddrRegs[reg] = addr
	} else if !toRegs {
		dst := cpu.resolveEA(mode, reg, sz)
		addr := dst.addr
		for i := 0; i < 16; i++ {
			if mask&(1<<i) == 0 {
				continue
			}
			if i < 8 {
				cpu.writeBus(sz, addr, cpu.DataRegs[i])
			} else {
				cpu.writeBus(sz, addr, cpu.AddrRegs[i-8])
			}
			addr += uint32(sz)
		}
	} else {
		var addr uint32
		post := mode == 3
		if post {
			addr = cpu.AddrRegs[reg]
		} else {
			src := cpu.resolveEA(mode, reg, sz)
			addr = src.addr
		}
		for i := 0; i < 16; i++ {
			if mask&(1<<i) == 0 {
				continue
			}
			val := cpu.readBus(sz, addr)
			if sz == SizeWord {
				val = uint32(int32(int16(val)))
			}
			if i < 8 {
				cpu.DataRegs[i] = val
			} else {
				cpu.AddrRegs[i-8] = val
			}
			addr += uint32(sz)
		}
		if post {
			cpu.AddrRegs[reg] = addr
		}
	}

	n := uint32(bits.OnesCount16(mask))
	perReg := uint32(4)
	if sz == SizeLong {
		perReg = 8
	}
	var base uint32
	if !toRegs {
		switch mode {
		case 2, 4:
			base = 8
		case 5:
			base = 12
		case 6:
			base = 14
		case 7:
			if reg == 0 {
				base = 12
			} else {
				base = 16
			}
		}
	} else {
		switch mode {
		case 2, 3:
			base = 12
		case 5:
			base = 16
		case 6:
			base = 18
		case 7:
			switch reg {
			case 0, 2:
				base = 16
			default:
				base = 18
			}
		}
	}
	cpu.addCycles(base + n*perReg)
}

func (cpu *M68KCPU) opMoveFromSR(op uint16) {
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	dst := cpu.resolveEA(mode, reg, SizeWord)
	dst.write(cpu, SizeWord, uint32(cpu.SR))
	if mode == 0 {
		cpu.addCycles(6)
	} else {
		cpu.addCycles(8 + eaWriteCycles(mode, reg, SizeWord))
	}
}

func (cpu *M68KCPU) opMoveToCCR(op uint16) {
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	src := cpu.resolveEA(mode, reg, SizeWord)
	cpu.setCCR(uint8(src.read(cpu, SizeWord)))
	cpu.addCycles(12 + eaFetchCycles(mode, reg, SizeWord))
}

func (cpu *M68KCPU) opMoveToSR(op uint16) {
	if !cpu.supervisor() {
		cpu.opPrivilege()
		return
	}
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	src := cpu.resolveEA(mode, reg, SizeWord)
	cpu.setSR(uint16(src.read(cpu, SizeWord)))
	cpu.addCycles(12 + eaFetchCycles(mode, reg, SizeWord))
}

func (cpu *M68KCPU) opNEG(op uint16) {
	sz := sizeField((op >> 6) & 3)
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	dst := cpu.resolveEA(mode, reg, sz)
	d := dst.read(cpu, sz)
	result := 0 - d
	cpu.setFlagsSub(d, 0, result, sz)
	dst.write(cpu, sz, result)
	cpu.singleOperandCycles(mode, reg, sz)
}

func (cpu *M68KCPU) opNEGX(op uint16) {
	sz := sizeField((op >> 6) & 3)
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	dst := cpu.resolveEA(mode, reg, sz)
	d := dst.read(cpu, sz)
	result := 0 - d - cpu.flagX()
	oldZ := cpu.SR & SR_Z
	cpu.setFlagsSub(d, 0, result, sz)
	// Z is only ever cleared, preserving it across multi-precision chains.
	if result&sz.mask() == 0 {
		cpu.SR = (cpu.SR &^ SR_Z) | oldZ
	}
	dst.write(cpu, sz, result)
	cpu.singleOperandCycles(mode, reg, sz)
}

func (cpu *M68KCPU) opCLR(op uint16) {
	sz := sizeField((op >> 6) & 3)
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	dst := cpu.resolveEA(mode, reg, sz)
	dst.write(cpu, sz, 0)
	cpu.SR &^= SR_N | SR_V | SR_C
	cpu.SR |= SR_Z
	cpu.singleOperandCycles(mode, reg, sz)
}

func (cpu *M68KCPU) opNOT(op uint16) {
	sz := sizeField((op >> 6) & 3)
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	dst := cpu.resolveEA(mode, reg, sz)
	result := ^dst.read(cpu, sz) & sz.mask()
	cpu.setFlagsMove(result, sz)
	dst.write(cpu, sz, result)
	cpu.singleOperandCycles(mode, reg, sz)
}

// singleOperandCycles is the shared NEG/NEGX/CLR/NOT timing.
func (cpu *M68KCPU) singleOperandCycles(mode, reg uint8, sz Size) {
	if mode == 0 {
		if sz == SizeLong {
			cpu.addCycles(6)
		} else {
			cpu.addCycles(4)
		}
	} else {
		if sz == SizeLong {
			cpu.addCycles(12 + eaFetchCycles(mode, reg, sz))
		} else {
			cpu.addCycles(8 + eaFetchCycles(mode, reg, sz))
		}
	}
}

func (cpu *M68KCPU) opTST(op uint16) {
	szBits := (op >> 6) & 3
	if szBits == 3 {
		cpu.opIllegal()
		return
	}
	sz := sizeField(szBits)
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	src := cpu.resolveEA(mode, reg, sz)
	cpu.setFlagsMove(src.read(cpu, sz), sz)
	cpu.addCycles(4 + eaFetchCycles(mode, reg, sz))
}

func (cpu *M68KCPU) opTAS(op uint16) {
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	dst := cpu.resolveEA(mode, reg, SizeByte)
	val := dst.read(cpu, SizeByte)
	cpu.setFlagsMove(val, SizeByte)
	dst.write(cpu, SizeByte, val|0x80)
	if mode == 0 {
		cpu.addCycles(4)
	} else {
		cpu.addCycles(14 + eaFetchCycles(mode, reg, SizeByte))
	}
}

func (cpu *M68KCPU) opCHK(op uint16) {
	dn := (op >> 9) & 7
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	src := cpu.resolveEA(mode, reg, SizeWord)
	bound := int16(src.read(cpu, SizeWord))
	val := int16(cpu.DataRegs[dn])

	if val < 0 {
		cpu.SR = (cpu.SR &^ (SR_Z | SR_V | SR_C)) | SR_N
		cpu.raiseException(VEC_CHK, cpu.PC)
		return
	}
	if val > bound {
		cpu.SR &^= SR_N | SR_Z | SR_V | SR_C
		cpu.raiseException(VEC_CHK, cpu.PC)
		return
	}
	cpu.addCycles(10 + eaFetchCycles(mode, reg, SizeWord))
}

// ------------------------------------------------------------------------------
// Group 5: ADDQ, SUBQ, Scc, DBcc
// ------------------------------------------------------------------------------

func (cpu *M68KCPU) decodeGroup5(op uint16) {
	if (op>>6)&3 == 3 {
		if (op>>3)&7 == 1 {
			cpu.opDBcc(op)
		} else {
			cpu.opScc(op)
		}
		return
	}
	cpu.opAddqSubq(op)
}

func (cpu *M68KCPU) opAddqSubq(op uint16) {
	data := uint32((op >> 9) & 7)
	if data == 0 {
		data = 8
	}
	sub := op&0x0100 != 0
	sz := sizeField((op >> 6) & 3)
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)

	if mode == 1 {
		// Address register target: full 32 bits, no flags.
		if sz == SizeByte {
			cpu.opIllegal()
			return
		}
		if sub {
			cpu.AddrRegs[reg] -= data
		} else {
			cpu.AddrRegs[reg] += data
		}
		cpu.addCycles(8)
		return
	}

	dst := cpu.resolveEA(mode, reg, sz)
	d := dst.read(cpu, sz)
	var result uint32
	if sub {
		result = d - data
		cpu.setFlagsSub(data, d, result, sz)
	} else {
		result = data + d
		cpu.setFlagsAdd(data, d, result, sz)
	}
	dst.write(cpu, sz, result)

	if mode == 0 {
		if sz == SizeLong {
			cpu.addCycles(8)
		} else {
			cpu.addCycles(4)
		}
	} else {
		if sz == SizeLong {
			cpu.addCycles(12 + eaFetchCycles(mode, reg, sz))
		} else {
			cpu.addCycles(8 + eaFetchCycles(mode, reg, sz))
		}
	}
}

func (cpu *M68KCPU) opScc(op uint16) {
	cc := (op >> 8) & 0xF
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	dst := cpu.resolveEA(mode, reg, SizeByte)

	if cpu.testCondition(cc) {
		dst.write(cpu, SizeByte, 0xFF)
		cpu.addCycles(6)
	} else {
		dst.write(cpu, SizeByte, 0x00)
		cpu.addCycles(4)
	}
	if mode >= 2 {
		cpu.addCycles(eaWriteCycles(mode, reg, SizeByte))
	}
}

func (cpu *M68KCPU) opDBcc(op uint16) {
	cc := (op >> 8) & 0xF
	dn := op & 7
	disp := int16(cpu.fetchWord())

	if cpu.testCondition(cc) {
		cpu.addCycles(12)
		return
	}

	val := int16(cpu.DataRegs[dn]) - 1
	cpu.DataRegs[dn] = (cpu.DataRegs[dn] & 0xFFFF0000) | uint32(uint16(val))
	if val == -1 {
		cpu.addCycles(14)
	} else {
		cpu.PC = uint32(int32(cpu.PC) - 2 + int32(disp))
		cpu.addCycles(10)
	}
}

// ------------------------------------------------------------------------------
// Group 6: branches
// ------------------------------------------------------------------------------

func (cpu *M68KCPU) decodeGroup6(op uint16) {
	cc := (op >> 8) & 0xF
	disp := int32(int8(op))
	base := cpu.PC // Instruction address + 2
	word := disp == 0
	if word {
		disp = int32(int16(cpu.fetchWord()))
	}

	switch cc {
	case 0: // BRA
		cpu.PC = uint32(int32(base) + disp)
		cpu.addCycles(10)
	case 1: // BSR
		cpu.pushLong(cpu.PC)
		cpu.PC = uint32(int32(base) + disp)
		cpu.addCycles(18)
	default: // Bcc
		if cpu.testCondition(cc) {
			cpu.PC = uint32(int32(base) + disp)
			cpu.addCycles(10)
		} else if word {
			cpu.addCycles(12)
		} else {
			cpu.addCycles(8)
		}
	}
}

// ------------------------------------------------------------------------------
// Group 7: MOVEQ
// ------------------------------------------------------------------------------

func (cpu *M68KCPU) decodeGroup7(op uint16) {
	if op&0x0100 != 0 {
		cpu.opIllegal()
		return
	}
	dn := (op >> 9) & 7
	cpu.DataRegs[dn] = uint32(int32(int8(op)))
	cpu.setFlagsMove(cpu.DataRegs[dn], SizeLong)
	cpu.addCycles(4)
}

// ------------------------------------------------------------------------------
// Group 8: OR, DIVU, DIVS, SBCD
// ------------------------------------------------------------------------------

func (cpu *M68KCPU) decodeGroup8(op uint16) {
	switch (op >> 6) & 7 {
	case 3:
		cpu.opDIVU(op)
	case 7:
		cpu.opDIVS(op)
	case 4, 5, 6:
		if op&0x0030 == 0 {
			if (op>>6)&7 == 4 {
				cpu.opSBCD(op)
				return
			}
		}
		cpu.opLogicToEA(op, logicOR)
	default:
		cpu.opLogicToReg(op, logicOR)
	}
}

const (
	logicOR = iota
	logicAND
)

func (cpu *M68KCPU) opLogicToReg(op uint16, kind int) {
	dn := (op >> 9) & 7
	sz := sizeField((op >> 6) & 3)
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	if mode == 1 {
		cpu.opIllegal()
		return
	}

	src := cpu.resolveEA(mode, reg, sz)
	var result uint32
	if kind == logicOR {
		result = src.read(cpu, sz) | (cpu.DataRegs[dn] & sz.mask())
	} else {
		result = src.read(cpu, sz) & cpu.DataRegs[dn]
	}
	cpu.setFlagsMove(result, sz)
	mask := sz.mask()
	cpu.DataRegs[dn] = (cpu.DataRegs[dn] &^ mask) | (result & mask)

	fetch := eaFetchCycles(mode, reg, sz)
	if sz == SizeLong {
		if mode >= 2 && !(mode == 7 && reg == 4) {
			cpu.addCycles(6 + fetch)
		} else {
			cpu.addCycles(8 + fetch)
		}
	} else {
		cpu.addCycles(4 + fetch)
	}
}

func (cpu *M68KCPU) opLogicToEA(op uint16, kind int) {
	dn := (op >> 9) & 7
	sz := sizeField((op >> 6) & 3)
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	if mode < 2 {
		cpu.opIllegal()
		return
	}

	dst := cpu.resolveEA(mode, reg, sz)
	var result uint32
	if kind == logicOR {
		result = dst.read(cpu, sz) | (cpu.DataRegs[dn] & sz.mask())
	} else {
		result = dst.read(cpu, sz) & cpu.DataRegs[dn]
	}
	cpu.setFlagsMove(result, sz)
	dst.write(cpu, sz, result)

	fetch := eaFetchCycles(mode, reg, sz)
	if sz == SizeLong {
		cpu.addCycles(12 + fetch)
	} else {
		cpu.addCycles(8 + fetch)
	}
}

func (cpu *M68KCPU) opDIVU(op uint16) {
	dn := (op >> 9) & 7
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	src := cpu.resolveEA(mode, reg, SizeWord)
	divisor := src.read(cpu, SizeWord)

	if divisor == 0 {
		cpu.raiseException(VEC_DIVIDE_ZERO, cpu.PC)
		return
	}

	dividend := cpu.DataRegs[dn]
	quotient := dividend / divisor
	remainder := dividend % divisor

	if quotient > 0xFFFF {
		cpu.SR |= SR_V
		cpu.SR &^= SR_C
	} else {
		cpu.DataRegs[dn] = remainder<<16 | quotient
		cpu.setFlagsMove(quotient, SizeWord)
	}
	// Worst-case documented figure; the real unit is data-dependent.
	cpu.addCycles(140 + eaFetchCycles(mode, reg, SizeWord))
}

func (cpu *M68KCPU) opDIVS(op uint16) {
	dn := (op >> 9) & 7
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	src := cpu.resolveEA(mode, reg, SizeWord)
	divisor := int32(int16(src.read(cpu, SizeWord)))

	if divisor == 0 {
		cpu.raiseException(VEC_DIVIDE_ZERO, cpu.PC)
		return
	}

	dividend := int32(cpu.DataRegs[dn])
	quotient := dividend / divisor
	remainder := dividend % divisor

	if quotient > 32767 || quotient < -32768 {
		cpu.SR = (cpu.SR &^ (SR_C | SR_Z)) | SR_V | SR_N
	} else {
		cpu.DataRegs[dn] = uint32(remainder&0xFFFF)<<16 | uint32(quotient)&0xFFFF
		cpu.setFlagsMove(uint32(quotient), SizeWord)
	}
	cpu.addCycles(158 + eaFetchCycles(mode, reg, SizeWord))
}

// ------------------------------------------------------------------------------
// Group 9: SUB family
// ------------------------------------------------------------------------------

func (cpu *M68KCPU) decodeGroup9(op uint16) {
	opmode := (op >> 6) & 7
	switch {
	case opmode == 3 || opmode == 7:
		cpu.opAddaSuba(op, true)
	case opmode >= 4 && op&0x0030 == 0:
		cpu.opAddxSubx(op, true)
	case opmode >= 4:
		cpu.opAddSubToEA(op, true)
	default:
		cpu.opAddSubToReg(op, true)
	}
}

// ------------------------------------------------------------------------------
// Group D: ADD family
// ------------------------------------------------------------------------------

func (cpu *M68KCPU) decodeGroupD(op uint16) {
	opmode := (op >> 6) & 7
	switch {
	case opmode == 3 || opmode == 7:
		cpu.opAddaSuba(op, false)
	case opmode >= 4 && op&0x0030 == 0:
		cpu.opAddxSubx(op, false)
	case opmode >= 4:
		cpu.opAddSubToEA(op, false)
	default:
		cpu.opAddSubToReg(op, false)
	}
}

func (cpu *M68KCPU) opAddSubToReg(op uint16, sub bool) {
	dn := (op >> 9) & 7
	sz := sizeField((op >> 6) & 3)
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	if mode == 1 && sz == SizeByte {
		cpu.opIllegal()
		return
	}

	src := cpu.resolveEA(mode, reg, sz)
	s := src.read(cpu, sz)
	d := cpu.DataRegs[dn] & sz.mask()
	var result uint32
	if sub {
		result = d - s
		cpu.setFlagsSub(s, d, result, sz)
	} else {
		result = s + d
		cpu.setFlagsAdd(s, d, result, sz)
	}
	mask := sz.mask()
	cpu.DataRegs[dn] = (cpu.DataRegs[dn] &^ mask) | (result & mask)

	fetch := eaFetchCycles(mode, reg, sz)
	if sz != SizeLong {
		cpu.addCycles(4 + fetch)
	} else if mode >= 2 && !(mode == 7 && reg == 4) {
		cpu.addCycles(6 + fetch)
	} else {
		cpu.addCycles(8 + fetch)
	}
}

func (cpu *M68KCPU) opAddSubToEA(op uint16, sub bool) {
	dn := (op >> 9) & 7
	sz := sizeField((op >> 6) & 3)
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)

	dst := cpu.resolveEA(mode, reg, sz)
	d := dst.read(cpu, sz)
	s := cpu.DataRegs[dn] & sz.mask()
	var result uint32
	if sub {
		result = d - s
		cpu.setFlagsSub(s, d, result, sz)
	} else {
		result = s + d
		cpu.setFlagsAdd(s, d, result, sz)
	}
	dst.write(cpu, sz, result)

	fetch := eaFetchCycles(mode, reg, sz)
	if sz == SizeLong {
		cpu.addCycles(12 + fetch)
	} else {
		cpu.addCycles(8 + fetch)
	}
}

func (cpu *M68KCPU) opAddaSuba(op uint16, sub bool) {
	an := (op >> 9) & 7
	sz := SizeWord
	if (op>>6)&7 == 7 {
		sz = SizeLong
	}
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)

	src := cpu.resolveEA(mode, reg, sz)
	val := src.read(cpu, sz)
	if sz == SizeWord {
		val = uint32(int32(int16(val)))
	}
	if sub {
		cpu.AddrRegs[an] -= val
	} else {
		cpu.AddrRegs[an] += val
	}

	fetch := eaFetchCycles(mode, reg, sz)
	if sz == SizeLong && mode >= 2 && !(mode == 7 && reg == 4) {
		cpu.addCycles(6 + fetch)
	} else {
		cpu.addCycles(8 + fetch)
	}
}

func (cpu *M68KCPU) opAddxSubx(op uint16, sub bool) {
	rx := (op >> 9) & 7
	sz := sizeField((op >> 6) & 3)
	ry := op & 7
	memForm := op&0x0008 != 0

	var s, d uint32
	var dst ea
	if memForm {
		src := cpu.resolveEA(4, uint8(ry), sz)
		s = src.read(cpu, sz)
		dst = cpu.resolveEA(4, uint8(rx), sz)
		d = dst.read(cpu, sz)
	} else {
		s = cpu.DataRegs[ry] & sz.mask()
		d = cpu.DataRegs[rx] & sz.mask()
	}

	var result uint32
	oldZ := cpu.SR & SR_Z
	if sub {
		result = d - s - cpu.flagX()
		cpu.setFlagsSub(s, d, result, sz)
	} else {
		result = d + s + cpu.flagX()
		cpu.setFlagsAdd(s, d, result, sz)
	}
	// X-form ops never set Z, only clear it.
	if result&sz.mask() == 0 {
		cpu.SR = (cpu.SR &^ SR_Z) | oldZ
	}

	if memForm {
		dst.write(cpu, sz, result)
		if sz == SizeLong {
			cpu.addCycles(30)
		} else {
			cpu.addCycles(18)
		}
	} else {
		mask := sz.mask()
		cpu.DataRegs[rx] = (cpu.DataRegs[rx] &^ mask) | (result & mask)
		if sz == SizeLong {
			cpu.addCycles(8)
		} else {
			cpu.addCycles(4)
		}
	}
}

// ------------------------------------------------------------------------------
// Group A / F: unimplemented lines
// ------------------------------------------------------------------------------

func (cpu *M68KCPU) decodeGroupA(op uint16) {
	cpu.raiseException(VEC_LINE_A, cpu.prevPC)
}

func (cpu *M68KCPU) decodeGroupF(op uint16) {
	cpu.raiseException(VEC_LINE_F, cpu.prevPC)
}

// ------------------------------------------------------------------------------
// Group B: CMP, CMPA, CMPM, EOR
// ------------------------------------------------------------------------------

func (cpu *M68KCPU) decodeGroupB(op uint16) {
	opmode := (op >> 6) & 7
	switch {
	case opmode == 3 || opmode == 7:
		cpu.opCMPA(op)
	case opmode >= 4 && (op>>3)&7 == 1:
		cpu.opCMPM(op)
	case opmode >= 4:
		cpu.opEOR(op)
	default:
		cpu.opCMP(op)
	}
}

func (cpu *M68KCPU) opCMP(op uint16) {
	dn := (op >> 9) & 7
	sz := sizeField((op >> 6) & 3)
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	if mode == 1 && sz == SizeByte {
		cpu.opIllegal()
		return
	}

	src := cpu.resolveEA(mode, reg, sz)
	s := src.read(cpu, sz)
	d := cpu.DataRegs[dn] & sz.mask()
	cpu.setFlagsCmp(s, d, d-s, sz)

	fetch := eaFetchCycles(mode, reg, sz)
	if sz == SizeLong {
		cpu.addCycles(6 + fetch)
	} else {
		cpu.addCycles(4 + fetch)
	}
}

func (cpu *M68KCPU) opCMPA(op uint16) {
	an := (op >> 9) & 7
	sz := SizeWord
	if (op>>6)&7 == 7 {
		sz = SizeLong
	}
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)

	src := cpu.resolveEA(mode, reg, sz)
	val := src.read(cpu, sz)
	if sz == SizeWord {
		val = uint32(int32(int16(val)))
	}
	d := cpu.AddrRegs[an]
	cpu.setFlagsCmp(val, d, d-val, SizeLong)
	cpu.addCycles(6 + eaFetchCycles(mode, reg, sz))
}

func (cpu *M68KCPU) opCMPM(op uint16) {
	sz := sizeField((op >> 6) & 3)
	ay := uint8(op & 7)
	ax := uint8((op >> 9) & 7)

	src := cpu.resolveEA(3, ay, sz)
	s := src.read(cpu, sz)
	dst := cpu.resolveEA(3, ax, sz)
	d := dst.read(cpu, sz)
	cpu.setFlagsCmp(s, d, d-s, sz)

	if sz == SizeLong {
		cpu.addCycles(20)
	} else {
		cpu.addCycles(12)
	}
}

func (cpu *M68KCPU) opEOR(op uint16) {
	dn := (op >> 9) & 7
	sz := sizeField((op >> 6) & 3)
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)

	dst := cpu.resolveEA(mode, reg, sz)
	result := dst.read(cpu, sz) ^ (cpu.DataRegs[dn] & sz.mask())
	cpu.setFlagsMove(result, sz)
	dst.write(cpu, sz, result)

	if mode == 0 {
		if sz == SizeLong {
			cpu.addCycles(8)
		} else {
			cpu.addCycles(4)
		}
	} else {
		fetch := eaFetchCycles(mode, reg, sz)
		if sz == SizeLong {
			cpu.addCycles(12 + fetch)
		} else {
			cpu.addCycles(8 + fetch)
		}
	}
}

// ------------------------------------------------------------------------------
// Group C: AND, MULU, MULS, ABCD, EXG
// ------------------------------------------------------------------------------

func (cpu *M68KCPU) decodeGroupC(op uint16) {
	switch {
	case (op>>6)&7 == 3:
		cpu.opMULU(op)
	case (op>>6)&7 == 7:
		cpu.opMULS(op)
	case op&0xF1F8 == 0xC140 || op&0xF1F8 == 0xC148 || op&0xF1F8 == 0xC188:
		cpu.opEXG(op)
	case op&0xF1F0 == 0xC100:
		cpu.opABCD(op)
	case op&0x0100 != 0:
		cpu.opLogicToEA(op, logicAND)
	default:
		cpu.opLogicToReg(op, logicAND)
	}
}

func (cpu *M68KCPU) opMULU(op uint16) {
	dn := (op >> 9) & 7
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	src := cpu.resolveEA(mode, reg, SizeWord)
	s := src.read(cpu, SizeWord)
	d := cpu.DataRegs[dn] & 0xFFFF
	result := s * d
	cpu.DataRegs[dn] = result
	cpu.setFlagsMove(result, SizeLong)
	// 38 + 2n for n set multiplier bits on silicon; counted as the
	// documented worst case.
	cpu.addCycles(70 + eaFetchCycles(mode, reg, SizeWord))
}

func (cpu *M68KCPU) opMULS(op uint16) {
	dn := (op >> 9) & 7
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	src := cpu.resolveEA(mode, reg, SizeWord)
	s := int32(int16(src.read(cpu, SizeWord)))
	d := int32(int16(cpu.DataRegs[dn]))
	result := uint32(s * d)
	cpu.DataRegs[dn] = result
	cpu.setFlagsMove(result, SizeLong)
	cpu.addCycles(70 + eaFetchCycles(mode, reg, SizeWord))
}

func (cpu *M68KCPU) opEXG(op uint16) {
	rx := (op >> 9) & 7
	ry := op & 7
	switch (op >> 3) & 0x1F {
	case 0x08:
		cpu.DataRegs[rx], cpu.DataRegs[ry] = cpu.DataRegs[ry], cpu.DataRegs[rx]
	case 0x09:
		cpu.AddrRegs[rx], cpu.AddrRegs[ry] = cpu.AddrRegs[ry], cpu.AddrRegs[rx]
	case 0x11:
		cpu.DataRegs[rx], cpu.AddrRegs[ry] = cpu.AddrRegs[ry], cpu.DataRegs[rx]
	}
	cpu.addCycles(6)
}

// ------------------------------------------------------------------------------
// BCD arithmetic
// ------------------------------------------------------------------------------

// bcdAdd computes dst + src + X in packed BCD, updating XNZC.
func (cpu *M68KCPU) bcdAdd(dst, src uint32) uint32 {
	res := (dst & 0x0F) + (src & 0x0F) + cpu.flagX()
	if res > 9 {
		res += 6
	}
	res += (dst & 0xF0) + (src & 0xF0)
	carry := false
	if res > 0x99 {
		res -= 0xA0
		carry = true
	}
	res &= 0xFF

	if carry {
		cpu.SR |= SR_C | SR_X
	} else {
		cpu.SR &^= SR_C | SR_X
	}
	if res != 0 {
		cpu.SR &^= SR_Z
	}
	if res&0x80 != 0 {
		cpu.SR |= SR_N
	} else {
		cpu.SR &^= SR_N
	}
	return res
}

// bcdSub computes dst - src - X in packed BCD, updating XNZC.
func (cpu *M68KCPU) bcdSub(dst, src uint32) uint32 {
	res := int32(dst&0x0F) - int32(src&0x0F) - int32(cpu.flagX())
	if res < 0 {
		res -= 6
	}
	res += int32(dst&0xF0) - int32(src&0xF0)
	borrow := false
	if res < 0 {
		res += 0xA0
		borrow = true
	}
	r := uint32(res) & 0xFF

	if borrow {
		cpu.SR |= SR_C | SR_X
	} else {
		cpu.SR &^= SR_C | SR_X
	}
	if r != 0 {
		cpu.SR &^= SR_Z
	}
	if r&0x80 != 0 {
		cpu.SR |= SR_N
	} else {
		cpu.SR &^= SR_N
	}
	return r
}

func (cpu *M68KCPU) opABCD(op uint16) {
	cpu.bcdPair(op, false)
}

func (cpu *M68KCPU) opSBCD(op uint16) {
	cpu.bcdPair(op, true)
}

func (cpu *M68KCPU) bcdPair(op uint16, sub bool) {
	rx := (op >> 9) & 7
	ry := op & 7
	memForm := op&0x0008 != 0

	if memForm {
		src := cpu.resolveEA(4, uint8(ry), SizeByte)
		s := src.read(cpu, SizeByte)
		dst := cpu.resolveEA(4, uint8(rx), SizeByte)
		d := dst.read(cpu, SizeByte)
		var r uint32
		if sub {
			r = cpu.bcdSub(d, s)
		} else {
			r = cpu.bcdAdd(d, s)
		}
		dst.write(cpu, SizeByte, r)
		cpu.addCycles(18)
	} else {
		s := cpu.DataRegs[ry] & 0xFF
		d := cpu.DataRegs[rx] & 0xFF
		var r uint32
		if sub {
			r = cpu.bcdSub(d, s)
		} else {
			r = cpu.bcdAdd(d, s)
		}
		cpu.DataRegs[rx] = (cpu.DataRegs[rx] &^ 0xFF) | r
		cpu.addCycles(6)
	}
}

func (cpu *M68KCPU) opNBCD(op uint16) {
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	dst := cpu.resolveEA(mode, reg, SizeByte)
	d := dst.read(cpu, SizeByte)
	r := cpu.bcdSub(0, d)
	dst.write(cpu, SizeByte, r)
	if mode == 0 {
		cpu.addCycles(6)
	} else {
		cpu.addCycles(8 + eaFetchCycles(mode, reg, SizeByte))
	}
}

// ------------------------------------------------------------------------------
// Group E: shifts and rotates
// ------------------------------------------------------------------------------

func (cpu *M68KCPU) decodeGroupE(op uint16) {
	if (op>>6)&3 == 3 {
		if op&0x0800 != 0 {
			// 68020 bit-field territory.
			cpu.opIllegal()
			return
		}
		cpu.opShiftMem(op)
		return
	}
	cpu.opShiftReg(op)
}

func (cpu *M68KCPU) opShiftReg(op uint16) {
	cnt := (op >> 9) & 7
	dir := (op >> 8) & 1
	sz := sizeField((op >> 6) & 3)
	fromReg := op&0x0020 != 0
	typ := (op >> 3) & 3
	dreg := op & 7

	var count uint32
	if fromReg {
		count = cpu.DataRegs[cnt] & 63
	} else {
		count = uint32(cnt)
		if count == 0 {
			count = 8
		}
	}

	val := cpu.DataRegs[dreg] & sz.mask()
	result := cpu.doShift(val, count, dir, typ, sz)
	mask := sz.mask()
	cpu.DataRegs[dreg] = (cpu.DataRegs[dreg] &^ mask) | (result & mask)

	cpu.addCycles(6 + 2*count)
	if sz == SizeLong {
		cpu.addCycles(2)
	}
}

func (cpu *M68KCPU) opShiftMem(op uint16) {
	dir := (op >> 8) & 1
	typ := (op >> 9) & 3
	mode := uint8((op >> 3) & 7)
	reg := uint8(op & 7)
	if mode < 2 {
		cpu.opIllegal()
		return
	}

	dst := cpu.resolveEA(mode, reg, SizeWord)
	val := dst.read(cpu, SizeWord)
	result := cpu.doShift(val, 1, dir, typ, SizeWord)
	dst.write(cpu, SizeWord, result)
	cpu.addCycles(8 + eaFetchCycles(mode, reg, SizeWord))
}

// doShift performs one shift/rotate family operation and sets flags.
// typ: 0 arithmetic, 1 logical, 2 rotate-through-X, 3 rotate.
func (cpu *M68KCPU) doShift(val, count uint32, dir, typ uint16, sz Size) uint32 {
	msb := sz.msb()
	mask := sz.mask()
	nbits := sz.bits()

	if count == 0 {
		cpu.setFlagsMove(val, sz)
		if typ == 2 && cpu.SR&SR_X != 0 {
			cpu.SR |= SR_C
		}
		return val
	}

	var result uint32

	switch typ {
	case 0: // ASL / ASR
		if dir == 1 {
			result = val
			cpu.SR &^= SR_V
			for i := uint32(0); i < count; i++ {
				sign := result & msb
				result = (result << 1) & mask
				if result&msb != sign {
					cpu.SR |= SR_V
				}
			}
			var lastOut uint32
			if count <= nbits {
				lastOut = (val >> (nbits - count)) & 1
			}
			if lastOut != 0 {
				cpu.SR |= SR_C | SR_X
			} else {
				cpu.SR &^= SR_C | SR_X
			}
		} else {
			sign := val & msb
			result = val
			for i := uint32(0); i < count; i++ {
				result = (result >> 1) | sign
			}
			result &= mask
			var lastOut uint32
			if count >= nbits {
				lastOut = (val >> (nbits - 1)) & 1
			} else {
				lastOut = (val >> (count - 1)) & 1
			}
			if lastOut != 0 {
				cpu.SR |= SR_C | SR_X
			} else {
				cpu.SR &^= SR_C | SR_X
			}
			cpu.SR &^= SR_V
		}

	case 1: // LSL / LSR
		if dir == 1 {
			if count < nbits {
				result = (val << count) & mask
			}
			var lastOut uint32
			if count <= nbits {
				lastOut = (val >> (nbits - count)) & 1
			}
			if lastOut != 0 {
				cpu.SR |= SR_C | SR_X
			} else {
				cpu.SR &^= SR_C | SR_X
			}
		} else {
			if count < nbits {
				result = (val & mask) >> count
			}
			var lastOut uint32
			if count <= nbits {
				lastOut = (val >> (count - 1)) & 1
			}
			if lastOut != 0 {
				cpu.SR |= SR_C | SR_X
			} else {
				cpu.SR &^= SR_C | SR_X
			}
		}
		cpu.SR &^= SR_V

	case 2: // ROXL / ROXR
		result = val
		for i := uint32(0); i < count; i++ {
			x := cpu.flagX()
			if dir == 1 {
				if result&msb != 0 {
					cpu.SR |= SR_X | SR_C
				} else {
					cpu.SR &^= SR_X | SR_C
				}
				result = ((result << 1) | x) & mask
			} else {
				if result&1 != 0 {
					cpu.SR |= SR_X | SR_C
				} else {
					cpu.SR &^= SR_X | SR_C
				}
				result = (result >> 1) | x<<(nbits-1)
			}
		}
		result &= mask
		cpu.SR &^= SR_V

	default: // ROL / ROR
		shift := count % nbits
		if dir == 1 {
			result = ((val << shift) | (val >> (nbits - shift))) & mask
			if result&1 != 0 {
				cpu.SR |= SR_C
			} else {
				cpu.SR &^= SR_C
			}
		} else {
			result = ((val >> shift) | (val << (nbits - shift))) & mask
			if result&msb != 0 {
				cpu.SR |= SR_C
			} else {
				cpu.SR &^= SR_C
			}
		}
		cpu.SR &^= SR_V
	}

	cpu.SR &^= SR_N | SR_Z
	if result&msb != 0 {
		cpu.SR |= SR_N
	}
	if result&mask == 0 {
		cpu.SR |= SR_Z
	}
	return result
}
