// debug_monitor.go - Interactive run control with Lua breakpoint conditions

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

/*
The monitor owns stdin in raw mode and drives the machine through its
command queue, never touching emulator state from its own goroutine:

  p pause    r resume    space step one frame    R reset
  d dump machine state   q quit

Breakpoint conditions are Lua expressions evaluated on the emulation
task after every frame, with d0..d7, a0..a7, pc, sr, frame and cycles in
scope:

  lucidst -break 'd0 == 42 and pc > 0x400'

A true result pauses the machine. Frame granularity, not instruction
granularity: the monitor is a supervision tool, not a tracer.
*/

package main

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/davecgh/go-spew/spew"
	lua "github.com/yuin/gopher-lua"
	"golang.org/x/term"
)

type DebugMonitor struct {
	machine *Machine
	quit    func()

	lmu   sync.Mutex
	lua   *lua.LState
	check *lua.LFunction

	oldState *term.State
}

// NewDebugMonitor attaches a monitor to the machine. quit is invoked on
// the q command.
func NewDebugMonitor(m *Machine, quit func()) *DebugMonitor {
	d := &DebugMonitor{machine: m, quit: quit}
	m.SetFrameHook(d.frameHook)
	return d
}

// SetBreakCondition compiles a Lua expression; an empty string clears
// the breakpoint.
func (d *DebugMonitor) SetBreakCondition(expr string) error {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	if expr == "" {
		d.check = nil
		return nil
	}
	if d.lua == nil {
		d.lua = lua.NewState()
	}
	fn, err := d.lua.LoadString("return (" + expr + ")")
	if err != nil {
		return fmt.Errorf("%w: breakpoint expression: %v", ErrInvalidArgument, err)
	}
	d.check = fn
	return nil
}

// frameHook runs on the emulation task: evaluate the condition against
// current CPU state and pause on a hit.
func (d *DebugMonitor) frameHook() {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	if d.check == nil || d.machine.cpu == nil {
		return
	}

	var st M68KState
	d.machine.cpu.GetState(&st)
	L := d.lua
	for i := 0; i < 8; i++ {
		L.SetGlobal(fmt.Sprintf("d%d", i), lua.LNumber(st.DataRegs[i]))
		L.SetGlobal(fmt.Sprintf("a%d", i), lua.LNumber(st.AddrRegs[i]))
	}
	L.SetGlobal("pc", lua.LNumber(st.PC))
	L.SetGlobal("sr", lua.LNumber(st.SR))
	L.SetGlobal("cycles", lua.LNumber(st.Cycles))
	L.SetGlobal("frame", lua.LNumber(d.machine.FrameCount()))

	L.Push(d.check)
	if err := L.PCall(0, 1, nil); err != nil {
		log.Printf("[monitor] breakpoint expression error: %v", err)
		d.check = nil
		return
	}
	hit := lua.LVAsBool(L.Get(-1))
	L.Pop(1)
	if hit {
		log.Printf("[monitor] break at PC=%06X frame=%d", st.PC, d.machine.FrameCount())
		d.machine.Commands.Push(Command{Kind: CmdPause})
	}
}

// Run reads single keys from raw-mode stdin until the stop channel
// closes. Restores the terminal on exit.
func (d *DebugMonitor) Run(stop <-chan struct{}) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		log.Printf("[monitor] raw mode unavailable: %v", err)
		return
	}
	d.oldState = oldState
	defer func() { _ = term.Restore(fd, d.oldState) }()

	keys := make(chan byte, 8)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				close(keys)
				return
			}
			if n == 1 {
				keys <- buf[0]
			}
		}
	}()

	for {
		select {
		case <-stop:
			return
		case key, ok := <-keys:
			if !ok {
				return
			}
			if !d.handleKey(key) {
				return
			}
		}
	}
}

func (d *DebugMonitor) handleKey(key byte) bool {
	switch key {
	case 'p':
		d.machine.Commands.Push(Command{Kind: CmdPause})
	case 'r':
		d.machine.Commands.Push(Command{Kind: CmdResume})
	case ' ':
		// Step: one frame runs, then the pause takes effect again.
		d.machine.Commands.Push(Command{Kind: CmdResume})
		d.machine.Commands.Push(Command{Kind: CmdPause})
	case 'R':
		d.machine.Commands.Push(Command{Kind: CmdReset})
	case 'd':
		d.dump()
	case 'q', 0x03: // q or ctrl-c
		if d.quit != nil {
			d.quit()
		}
		return false
	}
	return true
}

// dump prints the full programmer-visible state. Reads are racy against
// the emulation task by design; this is an operator convenience, and a
// paused machine dumps exact state.
func (d *DebugMonitor) dump() {
	if d.machine.cpu == nil {
		fmt.Fprintln(os.Stderr, "no machine loaded")
		return
	}
	var st M68KState
	d.machine.cpu.GetState(&st)
	cfg := spew.ConfigState{Indent: "  ", DisableMethods: true}
	fmt.Fprintf(os.Stderr, "frame=%d dropped=%d ring=%d\r\n",
		d.machine.FrameCount(), d.machine.Frames.Dropped(), d.machine.Samples.Len())
	for _, line := range []string{cfg.Sdump(st)} {
		fmt.Fprint(os.Stderr, line)
	}
}
