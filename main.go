// main.go - LucidST entry point

/*
LucidST - Atari ST emulation engine

(c) 2025 - 2026 The LucidST Authors
https://github.com/lucidretro/LucidST

License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
)

func main() {
	var (
		profilePath   = flag.String("profile", "profiles/st520.json", "machine profile document")
		componentsDir = flag.String("components", "components", "EBIN module directory")
		tosDir        = flag.String("tos", "roms", "TOS image directory")
		scale         = flag.Int("scale", 2, "integer display upscale (1-4)")
		breakExpr     = flag.String("break", "", "Lua breakpoint condition, e.g. 'd0 == 42'")
		monitor       = flag.Bool("monitor", false, "interactive debug monitor on stdin")
		listMods      = flag.Bool("list", false, "list EBIN components and exit")
		paused        = flag.Bool("paused", false, "load the machine but wait for a resume")
	)
	flag.Parse()

	if *listMods {
		infos, err := ScanComponents(*componentsDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
			os.Exit(1)
		}
		for _, info := range infos {
			fmt.Printf("%-32s %-6s iface %d.%d code %6d min-ram %dK\n",
				info.Path, info.Type,
				versionMajor(info.InterfaceVersion), versionMinor(info.InterfaceVersion),
				info.CodeSize, info.MinRAM/1024)
		}
		return
	}

	if *scale < 1 {
		*scale = 1
	}
	if *scale > 4 {
		*scale = 4
	}

	profile, err := LoadProfile(*profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "profile: %v\n", err)
		os.Exit(1)
	}

	machine := NewMachine(*componentsDir, *tosDir, *scale)
	if err := machine.Load(profile); err != nil {
		fmt.Fprintf(os.Stderr, "machine load: %v\n", err)
		os.Exit(1)
	}
	defer machine.Unload()

	audioOut, err := NewAudioOutput(AUDIO_SAMPLE_RATE, machine.Samples)
	if err != nil {
		log.Printf("[main] audio unavailable: %v", err)
	} else {
		audioOut.Start()
		defer audioOut.Stop()
	}

	videoOut, err := NewVideoOutput()
	if err != nil {
		fmt.Fprintf(os.Stderr, "video: %v\n", err)
		os.Exit(1)
	}

	stop := make(chan struct{})
	quit := func() {
		select {
		case <-stop:
		default:
			close(stop)
		}
	}

	if *breakExpr != "" || *monitor {
		mon := NewDebugMonitor(machine, quit)
		if *breakExpr != "" {
			if err := mon.SetBreakCondition(*breakExpr); err != nil {
				fmt.Fprintf(os.Stderr, "breakpoint: %v\n", err)
				os.Exit(1)
			}
		}
		if *monitor {
			go mon.Run(stop)
		}
	}

	machine.Commands.Push(Command{Kind: CmdStart})
	if *paused {
		machine.Commands.Push(Command{Kind: CmdPause})
	}
	go machine.Run(stop)

	// The display loop owns the main goroutine (the window system
	// requires it); closing the window or the monitor's q ends the run.
	if err := videoOut.Run(machine, stop); err != nil {
		log.Printf("[main] video loop: %v", err)
	}
	quit()
}
