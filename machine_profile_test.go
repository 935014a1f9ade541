// machine_profile_test.go - Profile parsing and validation

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validProfileJSON = `{
  "machine": "st520",
  "display_name": "Atari 520ST",
  "year": 1985,
  "memory": { "ram_kb": 512, "tos_file": "tos100.img" },
  "components": {
    "cpu": { "file": "builtin:m68000" },
    "mmu": { "file": "builtin:mmu" },
    "video": { "file": "builtin:shifter" },
    "audio": [ { "file": "builtin:ym2149", "role": "psg", "clock_hz": 2000000 } ],
    "io": [ { "file": "builtin:mfp68901" }, { "file": "builtin:acia6850" } ]
  }
}`

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile([]byte(validProfileJSON))
	require.NoError(t, err)

	assert.Equal(t, "st520", p.Machine)
	assert.Equal(t, uint32(512*1024), p.RAMBytes())
	assert.True(t, p.TOSRequired(), "tos_required defaults to true")
	assert.True(t, p.IsPAL(), "pal defaults to true")
	require.Len(t, p.Components.Audio, 1)
	assert.Equal(t, "psg", p.Components.Audio[0].Role)
	assert.Equal(t, uint32(2000000), p.Components.Audio[0].ClockHz)
}

func TestProfileValidation(t *testing.T) {
	base := func() *MachineProfile {
		p, err := ParseProfile([]byte(validProfileJSON))
		require.NoError(t, err)
		return p
	}

	t.Run("missing_cpu", func(t *testing.T) {
		p := base()
		p.Components.CPU = nil
		assert.ErrorIs(t, p.Validate(), ErrInvalidFormat)
	})
	t.Run("missing_video", func(t *testing.T) {
		p := base()
		p.Components.Video = &ProfileComponent{}
		assert.ErrorIs(t, p.Validate(), ErrInvalidFormat)
	})
	t.Run("zero_ram", func(t *testing.T) {
		p := base()
		p.Memory.RAMKB = 0
		assert.ErrorIs(t, p.Validate(), ErrInvalidFormat)
	})
	t.Run("over_4mb", func(t *testing.T) {
		p := base()
		p.Memory.RAMKB = 8192
		assert.ErrorIs(t, p.Validate(), ErrInvalidFormat)
	})
	t.Run("tos_required_but_absent", func(t *testing.T) {
		p := base()
		p.Memory.TOSFile = ""
		assert.ErrorIs(t, p.Validate(), ErrInvalidFormat)
	})
	t.Run("tos_optional", func(t *testing.T) {
		p := base()
		f := false
		p.Memory.TOSFile = ""
		p.Memory.TOSRequired = &f
		assert.NoError(t, p.Validate())
	})
	t.Run("bad_json", func(t *testing.T) {
		_, err := ParseProfile([]byte("{"))
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})
}

func TestIOWindowResolution(t *testing.T) {
	t.Run("explicit_range_wins", func(t *testing.T) {
		c := ProfileComponent{File: "x.ebin", Role: "mfp", IOBase: 0xFF9000, IOEnd: 0xFF90FF}
		base, end, err := c.IOWindow()
		require.NoError(t, err)
		assert.Equal(t, uint32(0xFF9000), base)
		assert.Equal(t, uint32(0xFF90FF), end)
	})
	t.Run("role_window", func(t *testing.T) {
		for role, want := range map[string][2]uint32{
			"mfp":  {MFP_BASE, MFP_END},
			"psg":  {PSG_BASE, PSG_END},
			"dma":  {DMA_BASE, DMA_END},
			"acia": {ACIA_BASE, ACIA_END},
			"mmu":  {0xFF8000, 0xFF800F},
		} {
			c := ProfileComponent{File: "x.ebin", Role: role}
			base, end, err := c.IOWindow()
			require.NoError(t, err, role)
			assert.Equal(t, want[0], base, role)
			assert.Equal(t, want[1], end, role)
		}
	})
	t.Run("no_range_no_role", func(t *testing.T) {
		c := ProfileComponent{File: "x.ebin"}
		_, _, err := c.IOWindow()
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})
	t.Run("unknown_role", func(t *testing.T) {
		c := ProfileComponent{File: "x.ebin", Role: "blitter"}
		_, _, err := c.IOWindow()
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})
}

func TestBuiltinNameScheme(t *testing.T) {
	name, ok := builtinName("builtin:m68000")
	assert.True(t, ok)
	assert.Equal(t, "m68000", name)

	_, ok = builtinName("shifter.ebin")
	assert.False(t, ok)
}
