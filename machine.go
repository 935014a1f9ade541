// machine.go - Machine assembly, lifecycle and the per-frame scheduler

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

/*
The Machine owns everything: memory map, loaded modules, GLUE and the
frame loop. MachineLoad is all-or-nothing — any failure unwinds to the
no-machine state before returning. Slot modules come up in dependency
order (CPU, MMU, video, audio, I/O), a native module's init running as
it is bound, and each I/O module's register range is registered with
the memory map. The reset pass does not follow that order: memory is
reset first (RAM cleared, ROM overlay in place), then the I/O, audio and
video modules and the GLUE, and the CPU last.

The frame loop is single-threaded and cooperative: drain the command
queue, compute the frame's cycle budget, then alternate CPU execution
with lock-step peripheral clocking. GLUE clocks last in each slice so
the CPU samples updated interrupt levels at its next boundary. At frame
boundary the Shifter renders into the emitter's back buffer and the
audio modules produce one frame of samples into the ring.
*/

package main

import (
	"fmt"
	"log"
	"path/filepath"
	"time"
)

type Machine struct {
	profile *MachineProfile

	mem    *STMemoryMap
	cpu    CPUComponent
	video  VideoComponent
	audio  []AudioComponent
	io     []IOComponent
	glue   *GLUE
	loader *EBINLoader

	// Builtin chip handles for cross-wiring; nil when the slot holds a
	// native module.
	mfp     *MFP68901
	acia    *ACIAPair
	psg     *YM2149
	dma     *DMAFDC
	shifter *Shifter

	componentsDir string
	tosDir        string

	Commands CommandQueue
	Frames   *FrameEmitter
	Samples  *SampleRing

	running bool
	paused  bool
	loaded  bool

	frameRate       int
	cyclesPerFrame  uint32
	samplesPerFrame int
	sampleBuf       []float32
	mixBuf          []float32
	frameCount      uint64
	frameHook       func()
}

// NewMachine prepares an empty machine bound to a components directory
// and a TOS image directory.
func NewMachine(componentsDir, tosDir string, scale int) *Machine {
	return &Machine{
		loader:        NewEBINLoader(),
		componentsDir: componentsDir,
		tosDir:        tosDir,
		Frames:        NewFrameEmitter(scale),
		Samples:       &SampleRing{},
	}
}

func (m *Machine) Loaded() bool  { return m.loaded }
func (m *Machine) Running() bool { return m.running && !m.paused }

func (m *Machine) Profile() *MachineProfile { return m.profile }
func (m *Machine) CPU() CPUComponent        { return m.cpu }
func (m *Machine) GLUE() *GLUE              { return m.glue }
func (m *Machine) Memory() *STMemoryMap     { return m.mem }
func (m *Machine) FrameCount() uint64       { return m.frameCount }

// Load composes a machine from a profile. A loaded machine is unloaded
// first; on any failure the machine is left in the no-machine state.
func (m *Machine) Load(profile *MachineProfile) (err error) {
	if m.loaded {
		m.Unload()
	}
	defer func() {
		if err != nil {
			m.Unload()
		}
	}()

	if err = profile.Validate(); err != nil {
		return err
	}
	m.profile = profile

	m.mem, err = NewSTMemoryMap(profile.RAMBytes())
	if err != nil {
		return err
	}
	if profile.Memory.TOSFile != "" {
		romPath := filepath.Join(m.tosDir, profile.Memory.TOSFile)
		if err = m.mem.LoadROM(romPath); err != nil {
			if profile.TOSRequired() {
				return err
			}
			log.Printf("[machine] optional TOS %s not loaded: %v", romPath, err)
		}
	}

	// Slots in dependency order: CPU, MMU, video, audio, I/O.
	if err = m.loadCPUSlot(*profile.Components.CPU); err != nil {
		return err
	}
	if err = m.loadMMUSlot(*profile.Components.MMU); err != nil {
		return err
	}
	if err = m.loadVideoSlot(*profile.Components.Video); err != nil {
		return err
	}
	for _, entry := range profile.Components.Audio {
		if err = m.loadAudioSlot(entry); err != nil {
			return err
		}
	}
	for _, entry := range profile.Components.IO {
		if err = m.loadIOSlot(entry); err != nil {
			return err
		}
	}

	// Register chip windows and bridge the interrupt topology.
	for _, dev := range m.io {
		base, end := dev.IORange()
		h := IOHandler{
			Base: base, End: end, Name: dev.Name(),
			ReadByte: dev.ReadByte, ReadWord: dev.ReadWord,
			WriteByte: dev.WriteByte, WriteWord: dev.WriteWord,
		}
		if err = m.mem.RegisterIO(h); err != nil {
			return err
		}
	}
	if m.shifter != nil {
		base, end := m.shifter.IORange()
		err = m.mem.RegisterIO(IOHandler{
			Base: base, End: end, Name: m.shifter.Name(),
			ReadByte: m.shifter.ReadByte, ReadWord: m.shifter.ReadWord,
			WriteByte: m.shifter.WriteByte, WriteWord: m.shifter.WriteWord,
		})
		if err != nil {
			return err
		}
		m.shifter.SetMemory(m.mem.RAM())
	}
	if m.psg != nil {
		base, end := m.psg.IORange()
		err = m.mem.RegisterIO(IOHandler{
			Base: base, End: end, Name: m.psg.Name(),
			ReadByte: m.psg.ReadByte, ReadWord: m.psg.ReadWord,
			WriteByte: m.psg.WriteByte, WriteWord: m.psg.WriteWord,
		})
		if err != nil {
			return err
		}
	}

	m.glue = NewGLUE(profile.IsPAL())
	m.glue.ConnectCPU(m.cpu.SetIRQ)
	if m.mfp != nil {
		m.glue.ConnectMFP(m.mfp.IRQPending)
		m.cpu.SetVectorSource(m.mfp.Vector)
	}
	if m.acia != nil && m.mfp != nil {
		m.acia.SetMFPBridge(m.mfp.RaiseGPIP)
	}
	if m.psg != nil && m.dma != nil {
		m.psg.SetPortAHandler(m.dma.SetDriveSelect)
	}
	m.cpu.SetBus(m.mem)
	m.cpu.SetResetHook(m.resetPeripherals)

	if profile.IsPAL() {
		m.frameRate = PAL_FRAME_RATE
	} else {
		m.frameRate = NTSC_FRAME_RATE
	}
	m.cyclesPerFrame = CPU_CLOCK_HZ / uint32(m.frameRate)
	m.samplesPerFrame = AUDIO_SAMPLE_RATE / m.frameRate
	m.sampleBuf = make([]float32, m.samplesPerFrame)
	m.mixBuf = make([]float32, m.samplesPerFrame)
	m.frameCount = 0

	m.loaded = true
	m.Reset()
	log.Printf("[machine] loaded %s (%s): %dKB RAM, %d audio, %d io modules",
		profile.Machine, profile.DisplayName, profile.Memory.RAMKB, len(m.audio), len(m.io))
	return nil
}

func (m *Machine) loadCPUSlot(entry ProfileComponent) error {
	if name, ok := builtinName(entry.File); ok {
		cpu, err := builtinCPU(name)
		if err != nil {
			return err
		}
		m.cpu = cpu
		return nil
	}
	mod, err := m.loader.LoadComponent(m.componentPath(entry.File), ComponentCPU)
	if err != nil {
		return err
	}
	cpu, err := BindNativeCPU(mod, m.mem)
	if err != nil {
		return err
	}
	m.cpu = cpu
	return nil
}

func (m *Machine) loadMMUSlot(entry ProfileComponent) error {
	if name, ok := builtinName(entry.File); ok {
		// The builtin MMU is the memory map itself.
		if name != "mmu" {
			return fmt.Errorf("%w: unknown builtin mmu %q", ErrInvalidArgument, name)
		}
		return nil
	}
	_, err := m.loader.LoadComponent(m.componentPath(entry.File), ComponentSystem)
	return err
}

func (m *Machine) loadVideoSlot(entry ProfileComponent) error {
	if name, ok := builtinName(entry.File); ok {
		video, err := builtinVideo(name)
		if err != nil {
			return err
		}
		m.video = video
		if s, ok := video.(*Shifter); ok {
			m.shifter = s
		}
		return nil
	}
	mod, err := m.loader.LoadComponent(m.componentPath(entry.File), ComponentVideo)
	if err != nil {
		return err
	}
	video, err := BindNativeVideo(mod)
	if err != nil {
		return err
	}
	m.video = video
	return nil
}

func (m *Machine) loadAudioSlot(entry ProfileComponent) error {
	if name, ok := builtinName(entry.File); ok {
		audio, err := builtinAudio(name, AUDIO_SAMPLE_RATE)
		if err != nil {
			if entry.Optional {
				log.Printf("[machine] optional audio %q skipped: %v", name, err)
				return nil
			}
			return err
		}
		if p, ok := audio.(*YM2149); ok {
			m.psg = p
			p.SetClockHz(entry.ClockHz)
		}
		m.audio = append(m.audio, audio)
		return nil
	}
	mod, err := m.loader.LoadComponent(m.componentPath(entry.File), ComponentAudio)
	if err != nil {
		if entry.Optional {
			return nil
		}
		return err
	}
	audio, err := BindNativeAudio(mod, AUDIO_SAMPLE_RATE)
	if err != nil {
		return err
	}
	m.audio = append(m.audio, audio)
	return nil
}

func (m *Machine) loadIOSlot(entry ProfileComponent) error {
	if name, ok := builtinName(entry.File); ok {
		dev, err := builtinIO(name)
		if err != nil {
			if entry.Optional {
				log.Printf("[machine] optional io %q skipped: %v", name, err)
				return nil
			}
			return err
		}
		switch d := dev.(type) {
		case *MFP68901:
			m.mfp = d
		case *ACIAPair:
			m.acia = d
		case *DMAFDC:
			m.dma = d
		}
		m.io = append(m.io, dev)
		return nil
	}
	// Native I/O modules are address-agnostic: the register window they
	// answer on comes from the profile entry's range or role tag.
	base, end, err := entry.IOWindow()
	if err != nil {
		if entry.Optional {
			log.Printf("[machine] optional io %s skipped: %v", entry.File, err)
			return nil
		}
		return err
	}
	mod, err := m.loader.LoadComponent(m.componentPath(entry.File), ComponentIO)
	if err != nil {
		if entry.Optional {
			return nil
		}
		return err
	}
	dev, err := BindNativeIO(mod, base, end)
	if err != nil {
		return err
	}
	m.io = append(m.io, dev)
	return nil
}

func (m *Machine) componentPath(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(m.componentsDir, file)
}

// Unload shuts everything down in reverse acquisition order and
// restores the no-machine state.
func (m *Machine) Unload() {
	m.running = false
	m.paused = false
	for i := len(m.io) - 1; i >= 0; i-- {
		m.io[i].Shutdown()
	}
	for i := len(m.audio) - 1; i >= 0; i-- {
		m.audio[i].Shutdown()
	}
	if m.video != nil {
		m.video.Shutdown()
	}
	if m.cpu != nil {
		m.cpu.Shutdown()
	}
	m.loader.UnloadAll()
	if m.mem != nil {
		m.mem.Shutdown()
	}
	m.io = nil
	m.audio = nil
	m.video = nil
	m.cpu = nil
	m.mem = nil
	m.glue = nil
	m.mfp = nil
	m.acia = nil
	m.psg = nil
	m.dma = nil
	m.shifter = nil
	m.profile = nil
	m.loaded = false
}

// Reset cold-starts the loaded machine: RAM cleared, ROM overlay in
// place, peripherals and CPU reset.
func (m *Machine) Reset() {
	if !m.loaded {
		return
	}
	m.mem.Reset()
	m.resetPeripherals()
	m.glue.Reset()
	m.cpu.Reset()
}

func (m *Machine) resetPeripherals() {
	for _, dev := range m.io {
		dev.Reset()
	}
	for _, dev := range m.audio {
		dev.Reset()
	}
	if m.video != nil {
		m.video.Reset()
	}
}

// Start begins execution; rejected when no machine is loaded.
func (m *Machine) Start() error {
	if !m.loaded {
		return fmt.Errorf("%w: no machine loaded", ErrInvalidState)
	}
	m.running = true
	m.paused = false
	return nil
}

func (m *Machine) StopMachine() {
	m.running = false
}

// drainCommands applies queued API commands at the top of the frame.
func (m *Machine) drainCommands() {
	for {
		cmd, ok := m.Commands.Pop()
		if !ok {
			return
		}
		switch cmd.Kind {
		case CmdStart:
			if err := m.Start(); err != nil {
				log.Printf("[machine] start rejected: %v", err)
			}
		case CmdStop:
			m.running = false
		case CmdPause:
			m.paused = true
		case CmdResume:
			m.paused = false
			// Commands queued behind a resume wait for the next frame
			// top, so a resume+pause pair runs exactly one frame.
			return
		case CmdReset:
			m.Reset()
		case CmdKeyEvent:
			if m.acia != nil {
				m.acia.PushKey(uint8(cmd.Arg))
			}
		}
	}
}

// RunFrame executes one frame's worth of emulation: the cycle budget is
// CPU clock over frame rate (160000 at 8MHz PAL).
func (m *Machine) RunFrame() {
	m.drainCommands()
	if !m.loaded || !m.running || m.paused {
		return
	}

	remaining := m.cyclesPerFrame
	for remaining > 0 && m.running {
		consumed := m.cpu.Execute(remaining)
		if consumed == 0 {
			consumed = remaining // Halted CPU burns the rest of the frame
		}
		if consumed > remaining {
			consumed = remaining
		}
		m.video.Clock(consumed)
		for _, dev := range m.audio {
			dev.Clock(consumed)
		}
		for _, dev := range m.io {
			dev.Clock(consumed)
		}
		// GLUE last, so the CPU sees updated levels at its next boundary.
		m.glue.Clock(consumed)
		remaining -= consumed
	}

	m.emitFrame()
	m.emitSamples()
	m.frameCount++
	if m.frameHook != nil {
		m.frameHook()
	}
}

// SetFrameHook installs a callback run on the emulation task after each
// completed frame. The debug monitor uses it for breakpoint checks.
func (m *Machine) SetFrameHook(fn func()) {
	m.frameHook = fn
}

func (m *Machine) emitFrame() {
	w, h := m.video.FrameSize()
	fb := m.Frames.BackBuffer(w, h)
	m.video.RenderFrame(fb)
	m.Frames.Flip()
}

func (m *Machine) emitSamples() {
	if len(m.audio) == 0 {
		return
	}
	for i := range m.mixBuf {
		m.mixBuf[i] = 0
	}
	for _, dev := range m.audio {
		dev.Generate(m.sampleBuf, m.samplesPerFrame)
		for i := 0; i < m.samplesPerFrame; i++ {
			m.mixBuf[i] += m.sampleBuf[i]
		}
	}
	if n := len(m.audio); n > 1 {
		inv := 1.0 / float32(n)
		for i := range m.mixBuf {
			m.mixBuf[i] *= inv
		}
	}
	m.Samples.Push(m.mixBuf[:m.samplesPerFrame])
}

// Run is the emulation task's loop: one frame per tick until stopped.
// Between frames, when paused, the task idles on the ticker waiting for
// a resume command.
func (m *Machine) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / time.Duration(m.frameRate))
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			m.drainCommands()
			return
		case <-ticker.C:
			m.RunFrame()
		}
	}
}

// HotSwapCPU replaces the CPU module while the scheduler is paused:
// shutdown, load, init, reset, in that order. The outgoing module is not
// unloaded here; a native CPU image stays in the loader's registry until
// the machine unloads. Programmer state carries across through
// GetState/SetState.
func (m *Machine) HotSwapCPU(entry ProfileComponent) error {
	if !m.loaded {
		return fmt.Errorf("%w: no machine loaded", ErrInvalidState)
	}
	if m.running && !m.paused {
		return fmt.Errorf("%w: hot swap requires a paused scheduler", ErrInvalidState)
	}

	var state M68KState
	m.cpu.GetState(&state)
	m.cpu.Shutdown()

	if err := m.loadCPUSlot(entry); err != nil {
		return err
	}
	m.cpu.SetBus(m.mem)
	m.cpu.SetResetHook(m.resetPeripherals)
	m.glue.ConnectCPU(m.cpu.SetIRQ)
	if m.mfp != nil {
		m.cpu.SetVectorSource(m.mfp.Vector)
	}
	m.cpu.Reset()
	m.cpu.SetState(&state)
	return nil
}
