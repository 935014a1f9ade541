//go:build linux && amd64

// exec_mem_linux_amd64.go - Executable region allocation, low-mapped for 32-bit relocation

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

package main

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// execRegion is one contiguous mapping backing a loaded module's
// code+data+bss. It is mapped read-write for loading and relocation,
// then sealed read-write-execute.
type execRegion struct {
	mem []byte
}

// allocExecRegion maps an anonymous region below 4GB so the EBIN
// format's 32-bit relocations can express the load base. Loading fails
// loudly if the host cannot produce such a mapping.
func allocExecRegion(size int) (*execRegion, error) {
	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_32BIT)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %v", ErrOutOfMemory, size, err)
	}
	return &execRegion{mem: mem}, nil
}

// makeExecutable marks the region executable. Mprotect carries the
// required fence, and the kernel invalidates the instruction cache on
// split-cache architectures; this is the load algorithm's coherence
// step in full.
func (r *execRegion) makeExecutable() error {
	// Code, data and bss share the region, so write permission stays
	// for the data side; the mprotect still provides the fence and
	// icache invalidation that makes the copied code fetchable.
	if err := unix.Mprotect(r.mem, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("%w: mprotect exec: %v", ErrOutOfMemory, err)
	}
	return nil
}

func (r *execRegion) release() {
	if r.mem != nil {
		_ = unix.Munmap(r.mem)
		r.mem = nil
	}
}
