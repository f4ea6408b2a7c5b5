// Command emulator runs a ROM against the full core: CPU, PPU, joypad, and
// driver, presented in an SDL2 window.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"duskboy-core/internal/cpu"
	"duskboy-core/internal/debug"
	"duskboy-core/internal/driver"
	"duskboy-core/internal/joypad"
	"duskboy-core/internal/memory"
	"duskboy-core/internal/ppu"
	"duskboy-core/internal/rom"
	"duskboy-core/internal/ui"
)

func main() {
	var (
		cpuVerbose    bool
		driverVerbose bool
		skipUnknown   bool
		fastPath      bool
	)
	flag.BoolVar(&cpuVerbose, "v", false, "log every CPU instruction")
	flag.BoolVar(&driverVerbose, "V", false, "log every driver redraw/frame event")
	flag.BoolVar(&skipUnknown, "u", false, "print and skip unknown opcodes instead of halting")
	flag.BoolVar(&fastPath, "f", false, "skip the pixmap mutex on write detection (races the redraw flags)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: emulator [-v] [-V] [-u] [-f] rom_file")
		os.Exit(1)
	}
	romPath := flag.Arg(0)

	mem := memory.New()
	if err := rom.LoadFile(romPath, mem); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := debug.NewLogger(10000)
	logger.SetComponentEnabled(debug.ComponentCPU, cpuVerbose)
	logger.SetComponentEnabled(debug.ComponentDriver, driverVerbose)
	logger.SetMinLevel(debug.LogLevelDebug)

	cpuLogLevel := cpu.CPULogNone
	if cpuVerbose {
		cpuLogLevel = cpu.CPULogInstructions
	}

	logger.SetComponentEnabled(debug.ComponentPPU, driverVerbose)

	cpuLoggerAdapter := cpu.NewCPULoggerAdapter(logger, cpuLogLevel)
	c := cpu.NewCPU(mem, cpuLoggerAdapter)
	c.UnknownOpcodeSkip = skipUnknown

	p := ppu.New(mem, ppu.NewPPULoggerAdapter(logger))
	jp := joypad.New()

	d := driver.New(mem, c, p, jp, driver.NewDriverLoggerAdapter(logger))
	d.FastPath = fastPath
	d.Verbose = driverVerbose

	if cpuVerbose {
		trace, err := debug.NewInstructionLogger("cpu_trace.log", 0, 0)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer trace.Close()
		cpuLoggerAdapter.SetInstructionTrace(trace, mem, d.InVBlank)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		d.SetEnding()
	}()

	window, err := ui.NewWindow(d, jp)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	driverErrCh := make(chan error, 1)
	go func() { driverErrCh <- d.Run() }()

	if err := window.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := <-driverErrCh; err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
