// Package driver owns the frame clock: it alternates the LY register
// between active-scan and VBlank, detects CPU writes into VRAM/OAM/LCDC
// to raise PPU redraw flags, and backs the CPU's halt instruction with a
// VBlank-edge wait. It is the one component that observes both the CPU
// and the PPU, and it keeps that relation one-way: the PPU holds no
// reference to the driver, and the CPU reaches it only through the
// cpu.HaltWaiter interface and the unknown-opcode sink.
package driver

import (
	"fmt"
	"sync"
	"time"

	"duskboy-core/internal/cpu"
	"duskboy-core/internal/joypad"
	"duskboy-core/internal/memory"
	"duskboy-core/internal/ppu"
)

// Frame pacing constants, per the ~60 Hz cadence and the roughly 15 ms of
// each frame spent in VBlank.
const (
	FrameInterval  = time.Second / 60
	VBlankDuration = 15 * time.Millisecond
)

// LoggerInterface decouples the driver from any concrete logging backend.
type LoggerInterface interface {
	LogDriver(message string)
}

// Debugger lets an external breakpoint/step controller (the devkit
// inspector's debug.Debugger) decide whether the CPU thread should pause
// before the instruction at pc, and block it there until resumed.
type Debugger interface {
	ShouldBreak(pc uint16) bool
	BlockWhilePaused(ending func() bool)
}

// Driver clocks the emulator, mediates the CPU/PPU handshake, and throttles
// the joypad register refresh to instruction boundaries.
type Driver struct {
	CPU    *cpu.CPU
	PPU    *ppu.PPU
	Mem    *memory.Memory
	Joypad *joypad.Joypad
	Log    LoggerInterface

	// Debugger, when set, is consulted at every instruction boundary so a
	// breakpoint or an exhausted single-step count suspends the CPU thread
	// until the inspector resumes it.
	Debugger Debugger

	// FastPath, when true, skips the pixmap mutex during write-detection,
	// trading a documented race on the redraw-flag booleans (worst case:
	// one extra or delayed redraw) for less lock contention.
	FastPath bool
	// Verbose enables a driver trace line for each redraw-flag raise and
	// frame tick.
	Verbose bool

	pixmapMu sync.Mutex

	vblankMu   sync.Mutex
	vblankCond *sync.Cond
	inVBlank   bool
	vblankGen  uint64

	endingMu sync.Mutex
	ending   bool

	lastLCDC uint8
}

// New wires a driver to the given components: it registers itself as the
// CPU's halt-wait collaborator and as a memory write observer.
func New(mem *memory.Memory, c *cpu.CPU, p *ppu.PPU, jp *joypad.Joypad, log LoggerInterface) *Driver {
	d := &Driver{CPU: c, PPU: p, Mem: mem, Joypad: jp, Log: log}
	d.vblankCond = sync.NewCond(&d.vblankMu)
	c.Halt = d
	c.UnknownOpcodeSink = d.logUnknownOpcode
	mem.Observe(d.onWrite)
	return d
}

func (d *Driver) trace(format string, args ...interface{}) {
	if d.Verbose && d.Log != nil {
		d.Log.LogDriver(fmt.Sprintf(format, args...))
	}
}

func (d *Driver) logUnknownOpcode(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(msg)
	if d.Log != nil {
		d.Log.LogDriver(msg)
	}
}

// onWrite is the memory.WriteObserver behind write detection: it inspects
// the effective address of every store and raises the redraw flags the
// affected region owns.
func (d *Driver) onWrite(addr uint16, value uint8) {
	if !d.FastPath {
		d.pixmapMu.Lock()
		defer d.pixmapMu.Unlock()
	}

	switch {
	case addr >= memory.VRAMUnsignedBase && addr < memory.TileMapEnd+2:
		d.PPU.RedrawBackground = true
		d.PPU.RedrawWindow = true
		d.PPU.RedrawSprites = true
		d.trace("write 0x%04X raised background/window/sprite redraw", addr)
	case addr >= memory.OAMStart && addr <= memory.OAMEnd:
		d.PPU.RedrawSprites = true
		d.trace("write 0x%04X raised sprite redraw", addr)
	case addr == memory.RegLCDC:
		d.onLCDCWrite(value)
	}
}

// onLCDCWrite raises the redraw flag for each enable bit that transitions
// from off to on.
func (d *Driver) onLCDCWrite(value uint8) {
	old := d.lastLCDC
	d.lastLCDC = value

	turnedOn := func(bit uint8) bool { return old&bit == 0 && value&bit != 0 }

	if turnedOn(ppu.LCDCEnable) {
		d.PPU.RedrawBackground = true
		d.PPU.RedrawWindow = true
		d.PPU.RedrawSprites = true
	}
	if turnedOn(ppu.LCDCBGEnable) {
		d.PPU.RedrawBackground = true
	}
	if turnedOn(ppu.LCDCWindowEnable) {
		d.PPU.RedrawWindow = true
	}
	if turnedOn(ppu.LCDCSpriteEnable) {
		d.PPU.RedrawSprites = true
	}
	d.trace("LCDC write 0x%02X (was 0x%02X)", value, old)
}

// WaitForVBlankEdge implements cpu.HaltWaiter: it blocks until the frame
// thread next transitions into VBlank, or until the driver is told to end.
func (d *Driver) WaitForVBlankEdge() {
	d.vblankMu.Lock()
	defer d.vblankMu.Unlock()
	gen := d.vblankGen
	for d.vblankGen == gen && !d.Ending() {
		d.vblankCond.Wait()
	}
}

// Ending reports whether the driver has been told to stop.
func (d *Driver) Ending() bool {
	d.endingMu.Lock()
	defer d.endingMu.Unlock()
	return d.ending
}

// SetEnding raises the process-wide cancel flag and wakes any goroutine
// parked in WaitForVBlankEdge.
func (d *Driver) SetEnding() {
	d.endingMu.Lock()
	d.ending = true
	d.endingMu.Unlock()

	d.vblankMu.Lock()
	d.vblankCond.Broadcast()
	d.vblankMu.Unlock()
}

// runFrameThread drives the VBlank handshake: raise VBlank, hold it for
// VBlankDuration, then clear it, reset LY, compose the frame, and pace the
// remainder of the ~60 Hz tick.
func (d *Driver) runFrameThread() {
	for !d.Ending() {
		tickStart := time.Now()

		d.vblankMu.Lock()
		d.inVBlank = true
		d.vblankGen++
		d.Mem.Write8(memory.RegLY, 144)
		d.vblankCond.Broadcast()
		d.vblankMu.Unlock()
		d.trace("VBlank start")

		time.Sleep(VBlankDuration)
		if d.Ending() {
			return
		}

		d.vblankMu.Lock()
		d.inVBlank = false
		d.Mem.Write8(memory.RegLY, 0)
		d.vblankMu.Unlock()

		d.pixmapMu.Lock()
		d.PPU.ComposeFrame()
		d.pixmapMu.Unlock()
		d.trace("frame composed")

		if elapsed := time.Since(tickStart); elapsed < FrameInterval {
			time.Sleep(FrameInterval - elapsed)
		}
	}
}

// runCPUThread steps the CPU in a loop, consulting the optional debugger
// and polling the joypad register at each instruction boundary, until the
// CPU returns an error or the driver's ending flag is observed.
func (d *Driver) runCPUThread() error {
	for !d.Ending() {
		if d.Debugger != nil && d.Debugger.ShouldBreak(d.CPU.State.PC) {
			d.Debugger.BlockWhilePaused(d.Ending)
		}
		if err := d.CPU.Step(); err != nil {
			return err
		}
		if d.Joypad != nil {
			d.Joypad.Poll(d.Mem, d.CPU.State.InstrCount)
		}
	}
	return nil
}

// Run starts the CPU and frame threads and blocks until both exit,
// returning the CPU thread's terminal error (nil on a clean ending).
func (d *Driver) Run() error {
	var cpuErr error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		d.runFrameThread()
	}()
	go func() {
		defer wg.Done()
		cpuErr = d.runCPUThread()
		d.SetEnding()
	}()

	wg.Wait()
	return cpuErr
}

// InVBlank reports whether the frame thread currently has the display in
// VBlank. Exposed for tests and for a UI that wants to avoid tearing.
func (d *Driver) InVBlank() bool {
	d.vblankMu.Lock()
	defer d.vblankMu.Unlock()
	return d.inVBlank
}
