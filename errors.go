// errors.go - Result kinds shared by the loader, machine and bus

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

package main

import "errors"

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("not found")
	ErrInvalidFormat      = errors.New("invalid format")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrOutOfMemory        = errors.New("out of memory")
	ErrInvalidState       = errors.New("invalid state")
	ErrDeviceFault        = errors.New("device fault")
)
