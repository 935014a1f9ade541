// ebin_loader.go - Turns an EBIN file into a live, bound module

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

/*
Load algorithm, in order: read and validate the header; check the
declared type against the caller's slot; check interface-version
compatibility; size one contiguous executable region for code+data+bss
rounded to 8-byte alignment; partition it code | data | bss with bss
zeroed; copy the sections in; apply the relocation table with per-entry
bounds checks; seal the region executable (which performs the fence and
instruction-cache invalidation on split-cache hosts); resolve the entry
pointer and call it; a nil capability pointer is a device fault. The
module lands in a fixed-size registry so UnloadComponent can release it.

Nothing is retained on failure: every early return releases the region.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unsafe"

	"github.com/ebitengine/purego"
)

const loaderRegistrySize = 16

type LoadedModule struct {
	Path   string
	Header EBINHeader

	region *execRegion
	code   []byte
	data   []byte
	bss    []byte

	capability uintptr
}

// CodeBase exposes the relocated code slice (loader tests and the
// debug monitor's module view).
func (m *LoadedModule) CodeBase() []byte { return m.code }

// Capability returns the raw table pointer the entry function handed
// back. nativeBind wraps it into the slot contracts.
func (m *LoadedModule) Capability() uintptr { return m.capability }

type EBINLoader struct {
	registry [loaderRegistrySize]*LoadedModule
}

func NewEBINLoader() *EBINLoader {
	return &EBINLoader{}
}

// LoadComponent performs the full load algorithm and registers the
// module. expected guards slot mismatches at the call site.
func (l *EBINLoader) LoadComponent(path string, expected ComponentType) (*LoadedModule, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty module path", ErrInvalidArgument)
	}
	slot := -1
	for i, m := range l.registry {
		if m == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, fmt.Errorf("%w: module registry full", ErrOutOfMemory)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	h, err := ParseEBINHeader(data)
	if err != nil {
		return nil, err
	}
	if h.Type != expected {
		return nil, fmt.Errorf("%w: %s declares type %s, slot wants %s",
			ErrInvalidFormat, path, h.Type, expected)
	}
	required := requiredInterfaceVersion[expected]
	if !compatibleVersion(required, h.InterfaceVersion) {
		return nil, fmt.Errorf("%w: %s interface %d.%d, host requires %d.%d",
			ErrUnsupportedVersion, path,
			versionMajor(h.InterfaceVersion), versionMinor(h.InterfaceVersion),
			versionMajor(required), versionMinor(required))
	}

	relocs, err := parseRelocs(data, h)
	if err != nil {
		return nil, err
	}

	total := (int(h.CodeSize) + int(h.DataSize) + int(h.BSSSize) + 7) &^ 7
	region, err := allocExecRegion(total)
	if err != nil {
		return nil, err
	}

	mod := &LoadedModule{
		Path:   path,
		Header: h,
		region: region,
		code:   region.mem[:h.CodeSize],
		data:   region.mem[h.CodeSize : h.CodeSize+h.DataSize],
		bss:    region.mem[h.CodeSize+h.DataSize : h.CodeSize+h.DataSize+h.BSSSize],
	}
	copy(mod.code, data[h.CodeOffset:h.CodeOffset+h.CodeSize])
	copy(mod.data, data[h.DataOffset:h.DataOffset+h.DataSize])
	// The region is fresh anonymous memory: bss is already zero.

	if err := applyRelocations(mod, relocs); err != nil {
		region.release()
		return nil, err
	}
	if err := region.makeExecutable(); err != nil {
		region.release()
		return nil, err
	}

	entry := uintptr(unsafe.Pointer(&mod.code[0])) + uintptr(h.EntryOffset)
	capability, _, _ := purego.SyscallN(entry)
	if capability == 0 {
		region.release()
		return nil, fmt.Errorf("%w: %s entry returned nil capability table", ErrDeviceFault, path)
	}
	mod.capability = capability

	l.registry[slot] = mod
	log.Printf("[loader] %s: %s module, code=%d data=%d bss=%d relocs=%d",
		filepath.Base(path), h.Type, h.CodeSize, h.DataSize, h.BSSSize, h.RelocCount)
	return mod, nil
}

// applyRelocations patches section words by the code load base. Every
// offset is bounds-checked against its section before anything is
// patched. The 32-bit container cannot express a 64-bit base, so native
// modules are only honoured when the region landed in the low 4GB
// (which the allocator requests); anything else is a loud failure, not
// silent truncation.
func applyRelocations(mod *LoadedModule, relocs []EBINReloc) error {
	for _, r := range relocs {
		section := mod.code
		if r.Section == RelocSectionData {
			section = mod.data
		}
		var width uint32 = 4
		if r.Type == RelocHigh16 || r.Type == RelocLow16 {
			width = 2
		}
		if uint64(r.Offset)+uint64(width) > uint64(len(section)) {
			return fmt.Errorf("%w: relocation offset %d outside section %d",
				ErrInvalidFormat, r.Offset, r.Section)
		}
	}
	if len(relocs) == 0 {
		return nil
	}

	base := uintptr(unsafe.Pointer(&mod.code[0]))
	if uint64(base) > 0xFFFFFFFF {
		return fmt.Errorf("%w: module region above 4GB, 32-bit relocation impossible", ErrOutOfMemory)
	}
	base32 := uint32(base)
	le := binary.LittleEndian

	for _, r := range relocs {
		section := mod.code
		if r.Section == RelocSectionData {
			section = mod.data
		}
		switch r.Type {
		case RelocAbsolute:
			v := le.Uint32(section[r.Offset:])
			le.PutUint32(section[r.Offset:], v+base32)
		case RelocRelative:
			// Position-independent: nothing to patch.
		case RelocHigh16:
			v := le.Uint16(section[r.Offset:])
			le.PutUint16(section[r.Offset:], v+uint16(base32>>16))
		case RelocLow16:
			v := le.Uint16(section[r.Offset:])
			le.PutUint16(section[r.Offset:], v+uint16(base32))
		}
	}
	return nil
}

// UnloadComponent releases a loaded module. The caller must guarantee
// the module's code is not on any call stack; the machine pauses the
// scheduler before releasing.
func (l *EBINLoader) UnloadComponent(mod *LoadedModule) error {
	if mod == nil {
		return fmt.Errorf("%w: nil module", ErrInvalidArgument)
	}
	for i, m := range l.registry {
		if m == mod {
			l.registry[i] = nil
			mod.region.release()
			mod.code = nil
			mod.data = nil
			mod.bss = nil
			mod.capability = 0
			return nil
		}
	}
	return fmt.Errorf("%w: module not in registry", ErrNotFound)
}

// UnloadAll releases every registered module in reverse load order.
func (l *EBINLoader) UnloadAll() {
	for i := len(l.registry) - 1; i >= 0; i-- {
		if l.registry[i] != nil {
			_ = l.UnloadComponent(l.registry[i])
		}
	}
}

// ComponentInfo summarises a module file for directory inspection.
type ComponentInfo struct {
	Path             string
	Type             ComponentType
	InterfaceVersion uint32
	CodeSize         uint32
	MinRAM           uint32
}

// ScanComponents lists the *.ebin files under dir with their headers.
// Unreadable or malformed files are skipped, not fatal: the directory
// is user storage.
func ScanComponents(dir string) ([]ComponentInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, err
	}

	var infos []ComponentInfo
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".ebin") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		h, err := ParseEBINHeader(data)
		if err != nil {
			log.Printf("[loader] skipping %s: %v", e.Name(), err)
			continue
		}
		infos = append(infos, ComponentInfo{
			Path:             path,
			Type:             h.Type,
			InterfaceVersion: h.InterfaceVersion,
			CodeSize:         h.CodeSize,
			MinRAM:           h.MinRAM,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos, nil
}
