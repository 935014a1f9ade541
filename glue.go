// glue.go - GLUE timing and interrupt aggregation

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

/*
The GLUE synthesises HBL and VBL from consumed CPU cycles and folds the
MFP's pending state into a single prioritised level presented to the CPU.
It is the one indirection layer between peripherals and the CPU: chips
report through IRQPending(), the GLUE calls SetIRQ, and nothing else
holds a CPU reference.

Timing: PAL runs 313 lines of 512 cycles at 8MHz (50Hz), NTSC 263 lines
of 508 cycles (60Hz). HBL asserts level 2 at each line rollover, VBL
level 4 at frame rollover; both are short pulses cleared on the next
clock advance once the CPU has had an instruction boundary to sample
them.
*/

package main

type GLUE struct {
	pal           bool
	linesPerFrame uint32
	cyclesPerLine uint32

	line      uint32
	lineCycle uint32
	frames    uint64

	hblAsserted bool
	vblAsserted bool
	lastLevel   uint8

	setIRQ     func(level uint8)
	mfpPending func() bool
}

func NewGLUE(pal bool) *GLUE {
	g := &GLUE{}
	g.Init(pal)
	return g
}

// Init selects the PAL or NTSC raster geometry.
func (g *GLUE) Init(pal bool) {
	g.pal = pal
	if pal {
		g.linesPerFrame = PAL_LINES_PER_FRAME
		g.cyclesPerLine = PAL_CYCLES_PER_LINE
	} else {
		g.linesPerFrame = NTSC_LINES_PER_FRAME
		g.cyclesPerLine = NTSC_CYCLES_PER_LINE
	}
	g.Reset()
}

// ConnectCPU records the CPU's interrupt request input.
func (g *GLUE) ConnectCPU(setIRQ func(level uint8)) {
	g.setIRQ = setIRQ
}

// ConnectMFP records the MFP's pending-interrupt query.
func (g *GLUE) ConnectMFP(irqPending func() bool) {
	g.mfpPending = irqPending
}

func (g *GLUE) Reset() {
	g.line = 0
	g.lineCycle = 0
	g.frames = 0
	g.hblAsserted = false
	g.vblAsserted = false
	g.lastLevel = IRQ_LEVEL_NONE
}

// Clock advances the raster position by the given CPU cycles and
// re-evaluates the aggregated interrupt level. The HBL/VBL pulses last
// one clock call: long enough for the CPU to sample them at its next
// instruction boundary, matching the auto-vector acknowledge cycle.
func (g *GLUE) Clock(cycles uint32) {
	g.hblAsserted = false
	g.vblAsserted = false

	g.lineCycle += cycles
	for g.lineCycle >= g.cyclesPerLine {
		g.lineCycle -= g.cyclesPerLine
		g.line++
		g.hblAsserted = true
		if g.line >= g.linesPerFrame {
			g.line = 0
			g.frames++
			g.vblAsserted = true
		}
	}

	g.aggregate()
}

// aggregate reports max(HBL, VBL, MFP) to the CPU, calling SetIRQ only
// on level changes.
func (g *GLUE) aggregate() {
	level := uint8(IRQ_LEVEL_NONE)
	if g.hblAsserted {
		level = IRQ_LEVEL_HBL
	}
	if g.vblAsserted {
		level = IRQ_LEVEL_VBL
	}
	if g.mfpPending != nil && g.mfpPending() {
		level = IRQ_LEVEL_MFP
	}
	if level != g.lastLevel {
		g.lastLevel = level
		if g.setIRQ != nil {
			g.setIRQ(level)
		}
	}
}

func (g *GLUE) Scanline() uint32 {
	return g.line
}

func (g *GLUE) FrameCount() uint64 {
	return g.frames
}

func (g *GLUE) PAL() bool {
	return g.pal
}
