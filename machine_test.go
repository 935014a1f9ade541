// machine_test.go - Full machine lifecycle over builtin modules

package main

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testMachine composes a full ST from builtins with a tiny TOS image
// whose reset vectors point into ROM at the supplied program.
func testMachine(t *testing.T, program []byte) *Machine {
	t.Helper()
	dir := t.TempDir()

	// Vectors: SSP 0x8000, PC at ROM_BASE+8, program follows.
	rom := make([]byte, 8+len(program))
	binary.BigEndian.PutUint32(rom[0:], 0x00008000)
	binary.BigEndian.PutUint32(rom[4:], ROM_BASE+8)
	copy(rom[8:], program)
	writeTempFile(t, dir, "tos.img", rom)

	profile, err := ParseProfile([]byte(`{
	  "machine": "st-test",
	  "display_name": "Test ST",
	  "memory": { "ram_kb": 512, "tos_file": "tos.img" },
	  "components": {
	    "cpu": { "file": "builtin:m68000" },
	    "mmu": { "file": "builtin:mmu" },
	    "video": { "file": "builtin:shifter" },
	    "audio": [ { "file": "builtin:ym2149", "role": "psg" } ],
	    "io": [
	      { "file": "builtin:mmu-config" },
	      { "file": "builtin:mfp68901" },
	      { "file": "builtin:acia6850" },
	      { "file": "builtin:dma-fdc" }
	    ]
	  }
	}`))
	require.NoError(t, err)

	m := NewMachine(dir, dir, 1)
	require.NoError(t, m.Load(profile))
	t.Cleanup(m.Unload)
	return m
}

// A MOVEQ/STOP program executed from ROM through a whole frame.
func TestMachineRunsProgramFromROM(t *testing.T) {
	program := []byte{0x70, 0x2A, 0x72, 0xFF, 0x4E, 0x72, 0x27, 0x00}
	m := testMachine(t, program)

	require.NoError(t, m.Start())
	m.RunFrame()

	var st M68KState
	m.CPU().GetState(&st)
	assert.Equal(t, uint32(42), st.DataRegs[0])
	assert.Equal(t, uint32(0xFFFFFFFF), st.DataRegs[1])
	assert.True(t, st.Stopped)
	assert.Equal(t, uint64(1), m.FrameCount())

	// A frame and its samples were emitted.
	pix, w, h := m.Frames.TakeFrame()
	assert.NotNil(t, pix)
	assert.Equal(t, 320, w)
	assert.Equal(t, 200, h)
	assert.Equal(t, AUDIO_SAMPLE_RATE/PAL_FRAME_RATE, m.Samples.Len())
}

func TestMachineResetVectorConvention(t *testing.T) {
	m := testMachine(t, []byte{0x4E, 0x71})

	// The first 8 RAM bytes mirror the ROM's reset vectors.
	assert.Equal(t, uint32(0x00008000), m.Memory().Read32(0))
	assert.Equal(t, uint32(ROM_BASE+8), m.Memory().Read32(4))

	var st M68KState
	m.CPU().GetState(&st)
	assert.Equal(t, uint32(0x8000), st.SSP)
	assert.Equal(t, uint32(ROM_BASE+8), st.PC)
}

func TestMachineStartRequiresLoad(t *testing.T) {
	m := NewMachine(t.TempDir(), t.TempDir(), 1)
	assert.ErrorIs(t, m.Start(), ErrInvalidState)

	// RunFrame without a machine is a no-op, not a crash.
	m.RunFrame()
	assert.Equal(t, uint64(0), m.FrameCount())
}

func TestMachineLoadFailureLeavesNoMachine(t *testing.T) {
	profile, err := ParseProfile([]byte(`{
	  "machine": "broken",
	  "display_name": "Broken",
	  "memory": { "ram_kb": 512, "tos_file": "missing.img" },
	  "components": {
	    "cpu": { "file": "builtin:m68000" },
	    "mmu": { "file": "builtin:mmu" },
	    "video": { "file": "builtin:shifter" },
	    "audio": [], "io": []
	  }
	}`))
	require.NoError(t, err)

	m := NewMachine(t.TempDir(), t.TempDir(), 1)
	err = m.Load(profile)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, m.Loaded(), "failed load must restore the no-machine state")
	assert.Nil(t, m.CPU())
}

func TestMachineUnknownBuiltinRejected(t *testing.T) {
	profile, err := ParseProfile([]byte(`{
	  "machine": "odd",
	  "display_name": "Odd",
	  "memory": { "ram_kb": 512, "tos_file": "", "tos_required": false },
	  "components": {
	    "cpu": { "file": "builtin:z80" },
	    "mmu": { "file": "builtin:mmu" },
	    "video": { "file": "builtin:shifter" },
	    "audio": [], "io": []
	  }
	}`))
	require.NoError(t, err)

	m := NewMachine(t.TempDir(), t.TempDir(), 1)
	assert.ErrorIs(t, m.Load(profile), ErrNotFound)
	assert.False(t, m.Loaded())
}

func TestMachineCommandQueue(t *testing.T) {
	m := testMachine(t, []byte{0x4E, 0x71, 0x60, 0xFC}) // NOP; BRA back

	m.Commands.Push(Command{Kind: CmdStart})
	m.RunFrame()
	assert.Equal(t, uint64(1), m.FrameCount())

	// Pause takes effect at the next frame top.
	m.Commands.Push(Command{Kind: CmdPause})
	m.RunFrame()
	assert.Equal(t, uint64(1), m.FrameCount(), "paused machine must not advance")

	m.Commands.Push(Command{Kind: CmdResume})
	m.RunFrame()
	assert.Equal(t, uint64(2), m.FrameCount())

	// Stop ends execution; a later start resumes.
	m.Commands.Push(Command{Kind: CmdStop})
	m.RunFrame()
	assert.Equal(t, uint64(2), m.FrameCount())
	m.Commands.Push(Command{Kind: CmdStart})
	m.RunFrame()
	assert.Equal(t, uint64(3), m.FrameCount())
}

func TestMachineKeyEventReachesACIA(t *testing.T) {
	m := testMachine(t, []byte{0x4E, 0x71, 0x60, 0xFC})
	require.NoError(t, m.Start())

	m.Commands.Push(Command{Kind: CmdKeyEvent, Arg: 0x39}) // Space make
	m.RunFrame()

	// The scancode is readable through the keyboard ACIA data register.
	status := m.Memory().Read8(ACIA_KBD_CTRL)
	assert.NotZero(t, status&aciaStatusRDRF, "RDRF must be set")
	assert.Equal(t, uint8(0x39), m.Memory().Read8(ACIA_KBD_DATA))
}

func TestMachineGLUETracksFrames(t *testing.T) {
	m := testMachine(t, []byte{0x4E, 0x71, 0x60, 0xFC})
	require.NoError(t, m.Start())

	// A PAL raster frame is 313x512 = 160256 cycles, slightly more
	// than the 160000-cycle scheduling quantum, so the VBL wrap lands
	// during the second frame.
	m.RunFrame()
	assert.Equal(t, uint64(0), m.GLUE().FrameCount())
	assert.Equal(t, uint32(312), m.GLUE().Scanline())
	m.RunFrame()
	assert.Equal(t, uint64(1), m.GLUE().FrameCount())
}

func TestMachineHotSwapRequiresPause(t *testing.T) {
	m := testMachine(t, []byte{0x4E, 0x71, 0x60, 0xFC})
	require.NoError(t, m.Start())

	err := m.HotSwapCPU(ProfileComponent{File: "builtin:m68000"})
	assert.ErrorIs(t, err, ErrInvalidState)

	m.Commands.Push(Command{Kind: CmdPause})
	m.RunFrame()

	var before M68KState
	m.CPU().GetState(&before)
	require.NoError(t, m.HotSwapCPU(ProfileComponent{File: "builtin:m68000"}))
	var after M68KState
	m.CPU().GetState(&after)
	assert.Equal(t, before.DataRegs, after.DataRegs, "state carries across the swap")
	assert.Equal(t, before.PC, after.PC)
}
