// machine_profile.go - Declarative machine composition records

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

/*
A machine profile is a JSON document naming which module composes each
slot of a model, its RAM size and TOS image. Component files either name
an EBIN on storage or use the builtin: scheme to select a compiled-in
chip. Required slots are cpu, mmu and video; audio and io are ordered
arrays; blitter is optional and absent on the plain ST.
*/

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type ProfileComponent struct {
	File     string `json:"file"`
	ClockHz  uint32 `json:"clock_hz,omitempty"`
	Role     string `json:"role,omitempty"`
	Optional bool   `json:"optional,omitempty"`

	// Register window for native I/O modules. Either an explicit range
	// or, when absent, the window implied by the role tag.
	IOBase uint32 `json:"io_base,omitempty"`
	IOEnd  uint32 `json:"io_end,omitempty"`
}

// ioWindowForRole maps the standard ST chip roles onto their register
// windows, so a profile can say role:"mfp" instead of spelling out
// $FFFA00..$FFFA3F.
func ioWindowForRole(role string) (base, end uint32, ok bool) {
	switch role {
	case "mmu":
		return 0xFF8000, 0xFF800F, true
	case "dma", "fdc":
		return DMA_BASE, DMA_END, true
	case "psg":
		return PSG_BASE, PSG_END, true
	case "mfp":
		return MFP_BASE, MFP_END, true
	case "acia", "ikbd", "midi":
		return ACIA_BASE, ACIA_END, true
	default:
		return 0, 0, false
	}
}

// IOWindow resolves the register range a native I/O module is bound
// to: an explicit io_base/io_end pair wins, then the role tag. The
// range itself is validated by the memory map on registration.
func (c *ProfileComponent) IOWindow() (base, end uint32, err error) {
	if c.IOBase != 0 || c.IOEnd != 0 {
		return c.IOBase, c.IOEnd, nil
	}
	if base, end, ok := ioWindowForRole(c.Role); ok {
		return base, end, nil
	}
	return 0, 0, fmt.Errorf("%w: io module %s has neither a register range nor a known role",
		ErrInvalidFormat, c.File)
}

type ProfileMemory struct {
	RAMKB       uint32 `json:"ram_kb"`
	TOSFile     string `json:"tos_file"`
	TOSRequired *bool  `json:"tos_required,omitempty"` // Default true
}

type ProfileComponents struct {
	CPU     *ProfileComponent  `json:"cpu"`
	MMU     *ProfileComponent  `json:"mmu"`
	Video   *ProfileComponent  `json:"video"`
	Blitter *ProfileComponent  `json:"blitter,omitempty"`
	Audio   []ProfileComponent `json:"audio"`
	IO      []ProfileComponent `json:"io"`
}

type MachineProfile struct {
	Machine     string            `json:"machine"`
	DisplayName string            `json:"display_name"`
	Description string            `json:"description,omitempty"`
	Year        int               `json:"year,omitempty"`
	Memory      ProfileMemory     `json:"memory"`
	Components  ProfileComponents `json:"components"`
	PAL         *bool             `json:"pal,omitempty"` // Default true
}

func (p *MachineProfile) TOSRequired() bool {
	return p.Memory.TOSRequired == nil || *p.Memory.TOSRequired
}

func (p *MachineProfile) IsPAL() bool {
	return p.PAL == nil || *p.PAL
}

func (p *MachineProfile) RAMBytes() uint32 {
	return p.Memory.RAMKB * 1024
}

// Validate rejects profiles with missing required slots or nonsensical
// memory geometry.
func (p *MachineProfile) Validate() error {
	if p.Machine == "" {
		return fmt.Errorf("%w: profile missing machine id", ErrInvalidFormat)
	}
	if p.Memory.RAMKB == 0 || p.RAMBytes() > RAM_MAX_SIZE {
		return fmt.Errorf("%w: ram_kb %d", ErrInvalidFormat, p.Memory.RAMKB)
	}
	if p.TOSRequired() && p.Memory.TOSFile == "" {
		return fmt.Errorf("%w: profile requires a TOS image", ErrInvalidFormat)
	}
	for slot, c := range map[string]*ProfileComponent{
		"cpu": p.Components.CPU, "mmu": p.Components.MMU, "video": p.Components.Video,
	} {
		if c == nil || c.File == "" {
			return fmt.Errorf("%w: profile missing %s slot", ErrInvalidFormat, slot)
		}
	}
	for _, c := range append(p.Components.Audio, p.Components.IO...) {
		if c.File == "" {
			return fmt.Errorf("%w: component entry without file", ErrInvalidFormat)
		}
	}
	return nil
}

// LoadProfile parses and validates a profile document from disk.
func LoadProfile(path string) (*MachineProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return ParseProfile(data)
}

// ParseProfile decodes a profile from raw JSON.
func ParseProfile(data []byte) (*MachineProfile, error) {
	var p MachineProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// builtinName extracts the chip name from a builtin: component file.
func builtinName(file string) (string, bool) {
	name, ok := strings.CutPrefix(file, "builtin:")
	return name, ok
}
