// psg_ym2149.go - YM2149 PSG: tone, noise, envelope and the ST GPIO ports

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

/*
The YM2149 is two registers in the CPU's view: an address latch at
$FF8800 and a data port at $FF8802. Internally it holds 16 registers
driving three square-wave tone channels, one noise LFSR, a shared
envelope generator, and the two GPIO ports the ST uses for floppy
drive-select, side-select and the parallel port.

Generate() renders mono float32 samples at the host sample rate. The
period registers count at clock/16, the envelope at clock/256, exactly
the AY/YM arrangement; levels follow the logarithmic YM DAC curve.
*/

package main

import "math"

const psgInterfaceVersion uint32 = 1<<16 | 0 // 1.0

// ymVolumeCurve is the 16-step logarithmic DAC response, 2dB per step.
var ymVolumeCurve = func() [16]float32 {
	var curve [16]float32
	for i := 1; i < len(curve); i++ {
		db := float64(i-15) * 2.0
		curve[i] = float32(math.Pow(10.0, db/20.0))
	}
	curve[15] = 1.0
	return curve
}()

type psgChannel struct {
	counter float64
	output  bool
}

type YM2149 struct {
	selected uint8
	regs     [PSG_REG_COUNT]uint8

	sampleRate int
	clockHz    uint32

	tone  [3]psgChannel
	noise struct {
		counter float64
		lfsr    uint32
		output  bool
	}
	env struct {
		counter   float64
		level     int
		direction int
		holding   bool
		alternate bool
		attack    bool
		cont      bool
		holdReq   bool
	}

	// Port A drives floppy side and drive select lines.
	portAOut func(value uint8)
}

func NewYM2149(sampleRate int) *YM2149 {
	p := &YM2149{
		sampleRate: sampleRate,
		clockHz:    PSG_CLOCK_ATARI_ST,
	}
	p.Reset()
	return p
}

func (p *YM2149) Name() string              { return "ym2149" }
func (p *YM2149) InterfaceVersion() uint32  { return psgInterfaceVersion }
func (p *YM2149) IORange() (uint32, uint32) { return PSG_BASE, PSG_END }
func (p *YM2149) Shutdown()                 {}
func (p *YM2149) IRQPending() bool          { return false }
func (p *YM2149) Vector() uint8             { return 0 }

func (p *YM2149) Reset() {
	p.selected = 0
	for i := range p.regs {
		p.regs[i] = 0
	}
	p.regs[7] = 0xFF // All channels off, ports output
	for i := range p.tone {
		p.tone[i] = psgChannel{}
	}
	p.noise.counter = 0
	p.noise.lfsr = 1
	p.noise.output = false
	p.resetEnvelope()
}

// SetClockHz overrides the PSG master clock (profile clock_hz).
func (p *YM2149) SetClockHz(clock uint32) {
	if clock != 0 {
		p.clockHz = clock
	}
}

// SetPortAHandler wires port A writes to the floppy select lines.
func (p *YM2149) SetPortAHandler(fn func(value uint8)) {
	p.portAOut = fn
}

// Clock is a no-op: the PSG is sampled on the audio path, not the bus
// clock. It satisfies the I/O clocking contract.
func (p *YM2149) Clock(cycles uint32) {}

func (p *YM2149) ReadByte(addr uint32) uint8 {
	if addr&3 == 0 {
		// Reading the select address returns the selected register.
		return p.regs[p.selected]
	}
	return 0xFF
}

func (p *YM2149) WriteByte(addr uint32, value uint8) {
	switch addr & 3 {
	case 0: // Address latch
		p.selected = value & 0x0F
	case 2: // Data
		p.WriteRegister(p.selected, value)
	}
}

func (p *YM2149) ReadWord(addr uint32) uint16 {
	return uint16(p.ReadByte(addr))<<8 | 0xFF
}

// Word access puts the value on the upper data bus half, where the
// chip's 8-bit port is wired.
func (p *YM2149) WriteWord(addr uint32, value uint16) {
	p.WriteByte(addr, uint8(value>>8))
}

// WriteRegister stores a register and applies its side effects.
func (p *YM2149) WriteRegister(reg, value uint8) {
	if reg >= PSG_REG_COUNT {
		return
	}
	p.regs[reg] = value
	switch reg {
	case 13:
		p.resetEnvelope()
	case 14:
		if p.portAOut != nil {
			p.portAOut(value)
		}
	}
}

// Register returns the raw register value (debug/test surface).
func (p *YM2149) Register(reg uint8) uint8 {
	if reg >= PSG_REG_COUNT {
		return 0
	}
	return p.regs[reg]
}

func (p *YM2149) resetEnvelope() {
	shape := p.regs[13] & 0x0F
	e := &p.env
	e.cont = shape&0x08 != 0
	e.attack = shape&0x04 != 0
	e.alternate = shape&0x02 != 0
	e.holdReq = shape&0x01 != 0
	e.holding = false
	e.counter = 0
	if e.attack {
		e.level = 0
		e.direction = 1
	} else {
		e.level = 15
		e.direction = -1
	}
}

func (p *YM2149) tonePeriod(ch int) uint16 {
	low := uint16(p.regs[ch*2])
	high := uint16(p.regs[ch*2+1] & 0x0F)
	period := high<<8 | low
	if period == 0 {
		period = 1
	}
	return period
}

// Generate renders n mono samples into out.
func (p *YM2149) Generate(out []float32, n int) {
	if n > len(out) {
		n = len(out)
	}
	toneStep := float64(p.clockHz) / 16.0 / float64(p.sampleRate)
	envStep := float64(p.clockHz) / 256.0 / float64(p.sampleRate)
	mixer := p.regs[7]

	for i := 0; i < n; i++ {
		// Advance tone channels.
		for ch := range p.tone {
			period := float64(p.tonePeriod(ch))
			c := &p.tone[ch]
			c.counter += toneStep
			for c.counter >= period {
				c.counter -= period
				c.output = !c.output
			}
		}

		// Advance noise.
		noisePeriod := float64(p.regs[6] & 0x1F)
		if noisePeriod == 0 {
			noisePeriod = 1
		}
		p.noise.counter += toneStep
		for p.noise.counter >= noisePeriod {
			p.noise.counter -= noisePeriod
			// 17-bit LFSR, taps 17 and 14.
			bit := (p.noise.lfsr ^ p.noise.lfsr>>3) & 1
			p.noise.lfsr = p.noise.lfsr>>1 | bit<<16
			p.noise.output = p.noise.lfsr&1 != 0
		}

		// Advance envelope.
		envPeriod := float64(uint16(p.regs[11]) | uint16(p.regs[12])<<8)
		if envPeriod == 0 {
			envPeriod = 1
		}
		p.env.counter += envStep
		for p.env.counter >= envPeriod {
			p.env.counter -= envPeriod
			p.stepEnvelope()
		}

		// Mix.
		var sample float32
		for ch := 0; ch < 3; ch++ {
			toneOn := mixer&(1<<ch) == 0
			noiseOn := mixer&(1<<(ch+3)) == 0
			high := true
			if toneOn {
				high = p.tone[ch].output
			}
			if noiseOn {
				high = high && p.noise.output
			}
			if !toneOn && !noiseOn {
				high = true // Disabled channels sit at DC set by volume
			}
			if high {
				sample += ymVolumeCurve[p.channelLevel(ch)]
			}
		}
		out[i] = sample / 3.0
	}
}

func (p *YM2149) channelLevel(ch int) int {
	vol := p.regs[8+ch]
	if vol&0x10 != 0 {
		return p.env.level
	}
	return int(vol & 0x0F)
}

func (p *YM2149) stepEnvelope() {
	e := &p.env
	if e.holding {
		return
	}
	e.level += e.direction
	if e.level >= 0 && e.level <= 15 {
		return
	}
	// Hit an end of the ramp.
	if !e.cont {
		e.level = 0
		e.holding = true
		return
	}
	if e.holdReq {
		e.holding = true
		if e.alternate {
			if e.direction > 0 {
				e.level = 0
			} else {
				e.level = 15
			}
		} else {
			if e.direction > 0 {
				e.level = 15
			} else {
				e.level = 0
			}
		}
		return
	}
	if e.alternate {
		e.direction = -e.direction
		if e.direction > 0 {
			e.level = 0
		} else {
			e.level = 15
		}
		// First step of the new ramp was consumed by the turnaround.
		e.level += e.direction
		if e.level < 0 {
			e.level = 0
		}
		if e.level > 15 {
			e.level = 15
		}
		return
	}
	// Sawtooth: wrap to the start of the ramp.
	if e.direction > 0 {
		e.level = 0
	} else {
		e.level = 15
	}
}
