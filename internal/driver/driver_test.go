package driver

import (
	"testing"
	"time"

	"duskboy-core/internal/cpu"
	"duskboy-core/internal/joypad"
	"duskboy-core/internal/memory"
	"duskboy-core/internal/ppu"
)

func newTestDriver() (*Driver, *memory.Memory) {
	mem := memory.New()
	p := ppu.New(mem, nil)
	c := cpu.NewCPU(mem, nil)
	jp := joypad.New()
	d := New(mem, c, p, jp, nil)
	return d, mem
}

func TestVRAMWriteRaisesAllThreeRedrawFlags(t *testing.T) {
	d, mem := newTestDriver()
	mem.Write8(memory.VRAMUnsignedBase, 0x77)

	if !d.PPU.RedrawBackground || !d.PPU.RedrawWindow || !d.PPU.RedrawSprites {
		t.Fatalf("expected all redraw flags raised by a VRAM write, got bg=%v win=%v spr=%v",
			d.PPU.RedrawBackground, d.PPU.RedrawWindow, d.PPU.RedrawSprites)
	}
}

func TestOAMWriteRaisesOnlySpriteFlag(t *testing.T) {
	d, mem := newTestDriver()
	mem.Write8(memory.OAMStart, 0x10)

	if d.PPU.RedrawBackground || d.PPU.RedrawWindow {
		t.Fatalf("expected background/window untouched by an OAM write")
	}
	if !d.PPU.RedrawSprites {
		t.Fatalf("expected sprite redraw flag raised by an OAM write")
	}
}

func TestLCDCOffToOnTransitionRaisesFlags(t *testing.T) {
	d, mem := newTestDriver()
	mem.Write8(memory.RegLCDC, 0x80) // LCD on, bg/window/sprites all still off

	if !d.PPU.RedrawBackground || !d.PPU.RedrawWindow || !d.PPU.RedrawSprites {
		t.Fatalf("expected LCDC enable transition to raise all redraw flags")
	}
}

func TestLCDCWriteWithNoTransitionRaisesNothing(t *testing.T) {
	d, mem := newTestDriver()
	mem.Write8(memory.RegLCDC, 0x80)
	d.PPU.RedrawBackground, d.PPU.RedrawWindow, d.PPU.RedrawSprites = false, false, false

	mem.Write8(memory.RegLCDC, 0x80) // identical value, no bit transitions

	if d.PPU.RedrawBackground || d.PPU.RedrawWindow || d.PPU.RedrawSprites {
		t.Fatalf("expected no redraw flags raised when LCDC is rewritten unchanged")
	}
}

// TestEndToEndRedrawAndComposeScenario: writing 0x80 to LCDC then 0x77 to
// 0x8000 must raise all three redraw flags, and composing a frame must
// clear them while reading the tile at 0x8000.
func TestEndToEndRedrawAndComposeScenario(t *testing.T) {
	d, mem := newTestDriver()
	mem.Write8(memory.RegLCDC, 0x80)
	mem.Write8(memory.VRAMUnsignedBase, 0x77)

	if !d.PPU.RedrawBackground || !d.PPU.RedrawWindow || !d.PPU.RedrawSprites {
		t.Fatalf("expected all redraw flags raised before compose")
	}

	d.PPU.ComposeFrame()

	if d.PPU.RedrawBackground || d.PPU.RedrawWindow || d.PPU.RedrawSprites {
		t.Fatalf("expected redraw flags cleared after ComposeFrame")
	}
}

func TestWaitForVBlankEdgeUnblocksOnFrameTick(t *testing.T) {
	d, _ := newTestDriver()

	go d.runFrameThread()
	defer d.SetEnding()

	done := make(chan struct{})
	go func() {
		d.WaitForVBlankEdge()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForVBlankEdge did not unblock within one frame tick")
	}
}

func TestSetEndingWakesWaiter(t *testing.T) {
	d, _ := newTestDriver()

	done := make(chan struct{})
	go func() {
		d.WaitForVBlankEdge()
		close(done)
	}()

	// Give the waiter goroutine a moment to park, then end without ever
	// starting the frame thread: the wait must still return.
	time.Sleep(10 * time.Millisecond)
	d.SetEnding()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SetEnding did not wake a parked WaitForVBlankEdge")
	}
}

// fakeDebugger breaks on exactly one PC, then reports paused until
// released unblocks it, letting the test assert that the CPU thread
// actually stalls at an instruction boundary rather than just consulting
// ShouldBreak for show.
type fakeDebugger struct {
	breakPC   uint16
	broke     chan struct{}
	brokeOnce bool
	released  chan struct{}
}

func (f *fakeDebugger) ShouldBreak(pc uint16) bool {
	return !f.brokeOnce && pc == f.breakPC
}

func (f *fakeDebugger) BlockWhilePaused(ending func() bool) {
	f.brokeOnce = true
	close(f.broke)
	<-f.released
}

func TestDebuggerBreakBlocksCPUThreadUntilReleased(t *testing.T) {
	d, mem := newTestDriver()
	// NOP at 0x0100, the CPU's reset PC, so the break fires on the first
	// fetched instruction.
	mem.Write8(0x0100, 0x00)

	fd := &fakeDebugger{breakPC: 0x0100, broke: make(chan struct{}), released: make(chan struct{})}
	d.Debugger = fd

	runErr := make(chan error, 1)
	go func() { runErr <- d.runCPUThread() }()

	select {
	case <-fd.broke:
	case <-time.After(time.Second):
		t.Fatal("debugger break was never consulted before the first instruction")
	}

	if d.CPU.State.InstrCount != 0 {
		t.Fatalf("expected the CPU thread to stall before stepping, got InstrCount=%d", d.CPU.State.InstrCount)
	}

	close(fd.released)
	d.SetEnding()

	select {
	case <-runErr:
	case <-time.After(time.Second):
		t.Fatal("CPU thread did not exit after being released and ended")
	}
}
