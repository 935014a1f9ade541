// mfp_68901.go - MC68901 Multi-Function Peripheral: timers and interrupt controller

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

/*
The MFP provides the ST's vectored interrupt fan-in: 16 sources gated by
enable, pending, in-service and mask registers, four timers A..D with
independent prescalers, and a vector base register supplying the top four
bits of the IACK vector. Timer underflow sets the matching pending bit;
the GLUE polls IRQPending() and the CPU collects the vector through
Vector() on acknowledge.

Registers are byte-wide on odd addresses, as the chip is wired to the
lower half of the data bus. The USART side is not modelled; its registers
read back as zero.
*/

package main

import "log"

const mfpInterfaceVersion uint32 = 1<<16 | 0 // 1.0

// Source bit positions inside the 16-bit enable/pending/mask aggregate
// (channel A in the high byte, channel B in the low byte).
const (
	mfpSrcTimerA   = 13
	mfpSrcTimerB   = 8
	mfpSrcTimerC   = 5
	mfpSrcTimerD   = 4
	mfpSrcKeyboard = 6  // ACIA interrupt via GPIP4
	mfpSrcFDC      = 7  // GPIP5, FDC/DMA
)

// mfpPrescale maps timer control values 1..7 to prescaler divisors.
var mfpPrescale = [8]uint32{0, 4, 10, 16, 50, 64, 100, 200}

type mfpTimer struct {
	control uint8  // Mode/prescale selector
	data    uint8  // Reload value
	counter uint8  // Live down-counter
	prediv  uint32 // Prescaler accumulator
}

type MFP68901 struct {
	gpip uint8
	aer  uint8
	ddr  uint8

	ier uint16 // Interrupt enable (A<<8 | B)
	ipr uint16 // Interrupt pending
	isr uint16 // In-service
	imr uint16 // Interrupt mask

	vectorBase uint8 // Top four bits of the supplied vector

	timers [4]mfpTimer
}

func NewMFP68901() *MFP68901 {
	return &MFP68901{}
}

func (m *MFP68901) Name() string              { return "mfp68901" }
func (m *MFP68901) InterfaceVersion() uint32  { return mfpInterfaceVersion }
func (m *MFP68901) IORange() (uint32, uint32) { return MFP_BASE, MFP_END }
func (m *MFP68901) Shutdown()                 {}

func (m *MFP68901) Reset() {
	*m = MFP68901{}
}

// Clock advances the four timers by the given CPU cycles. Timers run
// from the 2.4576MHz MFP clock; the ratio to the 8MHz CPU clock is
// close enough to 1:3 that the prescaler accumulates CPU cycles and
// divides by prescale*3 (delay mode only; event modes are unused by the
// timer sources modelled here).
func (m *MFP68901) Clock(cycles uint32) {
	for i := range m.timers {
		t := &m.timers[i]
		mode := t.control & 0x07
		if mode == 0 {
			continue // Stopped
		}
		div := mfpPrescale[mode] * 3
		t.prediv += cycles
		for t.prediv >= div {
			t.prediv -= div
			if t.counter == 0 {
				t.counter = t.data
			}
			t.counter--
			if t.counter == 0 {
				m.timerUnderflow(i)
				t.counter = t.data
			}
		}
	}
}

func (m *MFP68901) timerUnderflow(timer int) {
	var src uint
	switch timer {
	case 0:
		src = mfpSrcTimerA
	case 1:
		src = mfpSrcTimerB
	case 2:
		src = mfpSrcTimerC
	default:
		src = mfpSrcTimerD
	}
	if m.ier&(1<<src) != 0 {
		m.ipr |= 1 << src
	}
}

// RaiseGPIP posts an external source (keyboard ACIA, FDC) by source id.
func (m *MFP68901) RaiseGPIP(src uint) {
	if src < 16 && m.ier&(1<<src) != 0 {
		m.ipr |= 1 << src
	}
}

// IRQPending reports whether any enabled, unmasked source is pending.
func (m *MFP68901) IRQPending() bool {
	return m.ipr&m.imr != 0
}

// Vector acknowledges the highest pending source: returns
// (vector_base << 4) | source and clears the pending bit.
func (m *MFP68901) Vector() uint8 {
	pending := m.ipr & m.imr
	for src := 15; src >= 0; src-- {
		if pending&(1<<uint(src)) != 0 {
			m.ipr &^= 1 << uint(src)
			m.isr |= 1 << uint(src)
			return m.vectorBase<<4 | uint8(src)
		}
	}
	// Spurious acknowledge.
	log.Printf("[mfp] IACK with no pending source")
	return m.vectorBase << 4
}

func (m *MFP68901) ReadByte(addr uint32) uint8 {
	switch addr {
	case MFP_GPIP:
		return m.gpip
	case MFP_AER:
		return m.aer
	case MFP_DDR:
		return m.ddr
	case MFP_IERA:
		return uint8(m.ier >> 8)
	case MFP_IERB:
		return uint8(m.ier)
	case MFP_IPRA:
		return uint8(m.ipr >> 8)
	case MFP_IPRB:
		return uint8(m.ipr)
	case MFP_ISRA:
		return uint8(m.isr >> 8)
	case MFP_ISRB:
		return uint8(m.isr)
	case MFP_IMRA:
		return uint8(m.imr >> 8)
	case MFP_IMRB:
		return uint8(m.imr)
	case MFP_VR:
		return m.vectorBase << 4
	case MFP_TACR:
		return m.timers[0].control
	case MFP_TBCR:
		return m.timers[1].control
	case MFP_TCDCR:
		return m.timers[2].control<<4 | m.timers[3].control
	case MFP_TADR:
		return m.timers[0].counter
	case MFP_TBDR:
		return m.timers[1].counter
	case MFP_TCDR:
		return m.timers[2].counter
	case MFP_TDDR:
		return m.timers[3].counter
	default:
		return 0
	}
}

func (m *MFP68901) WriteByte(addr uint32, value uint8) {
	switch addr {
	case MFP_GPIP:
		m.gpip = value
	case MFP_AER:
		m.aer = value
	case MFP_DDR:
		m.ddr = value
	case MFP_IERA:
		m.ier = uint16(value)<<8 | m.ier&0x00FF
		m.ipr &= m.ier // Disabling a source drops its pending bit
	case MFP_IERB:
		m.ier = m.ier&0xFF00 | uint16(value)
		m.ipr &= m.ier
	case MFP_IPRA:
		// Writing zeros clears pending bits; ones leave them.
		m.ipr &= uint16(value)<<8 | 0x00FF
	case MFP_IPRB:
		m.ipr &= 0xFF00 | uint16(value)
	case MFP_ISRA:
		m.isr &= uint16(value)<<8 | 0x00FF
	case MFP_ISRB:
		m.isr &= 0xFF00 | uint16(value)
	case MFP_IMRA:
		m.imr = uint16(value)<<8 | m.imr&0x00FF
	case MFP_IMRB:
		m.imr = m.imr&0xFF00 | uint16(value)
	case MFP_VR:
		m.vectorBase = value >> 4
	case MFP_TACR:
		m.timers[0].control = value & 0x0F
	case MFP_TBCR:
		m.timers[1].control = value & 0x0F
	case MFP_TCDCR:
		m.timers[2].control = (value >> 4) & 0x07
		m.timers[3].control = value & 0x07
	case MFP_TADR:
		m.setTimerData(0, value)
	case MFP_TBDR:
		m.setTimerData(1, value)
	case MFP_TCDR:
		m.setTimerData(2, value)
	case MFP_TDDR:
		m.setTimerData(3, value)
	}
}

func (m *MFP68901) setTimerData(timer int, value uint8) {
	t := &m.timers[timer]
	t.data = value
	if t.control&0x07 == 0 {
		// Stopped timers load the counter immediately.
		t.counter = value
	}
}

// The MFP sits on the low byte of the data bus; word access reads the
// register byte in the low half.
func (m *MFP68901) ReadWord(addr uint32) uint16 {
	return 0xFF00 | uint16(m.ReadByte(addr|1))
}

func (m *MFP68901) WriteWord(addr uint32, value uint16) {
	m.WriteByte(addr|1, uint8(value))
}
