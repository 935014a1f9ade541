//go:build linux && !amd64

// exec_mem_linux_other.go - Executable region allocation without MAP_32BIT

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

type execRegion struct {
	mem []byte
}

// allocExecRegion maps an anonymous region that can later be sealed
// executable. Without MAP_32BIT the mapping may land above 4GB; the
// relocation pass then fails loudly rather than truncating the base.
func allocExecRegion(size int) (*execRegion, error) {
	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %v", ErrOutOfMemory, size, err)
	}
	return &execRegion{mem: mem}, nil
}

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
