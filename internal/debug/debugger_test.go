package debug

import (
	"testing"
	"time"
)

func TestSetAndCheckBreakpoint(t *testing.T) {
	d := NewDebugger()
	d.SetBreakpoint(0x0150)

	if !d.CheckBreakpoint(0x0150) {
		t.Fatalf("expected breakpoint at 0x0150 to hit")
	}
	bp, ok := d.GetBreakpoint(0x0150)
	if !ok || bp.HitCount != 1 {
		t.Fatalf("expected hit count 1, got %+v", bp)
	}
}

func TestDisabledBreakpointDoesNotHit(t *testing.T) {
	d := NewDebugger()
	d.SetBreakpoint(0x0100)
	d.DisableBreakpoint(0x0100)

	if d.CheckBreakpoint(0x0100) {
		t.Fatalf("expected a disabled breakpoint not to hit")
	}
}

func TestRemoveBreakpoint(t *testing.T) {
	d := NewDebugger()
	d.SetBreakpoint(0x0200)
	if !d.RemoveBreakpoint(0x0200) {
		t.Fatalf("expected removal of an existing breakpoint to report true")
	}
	if _, ok := d.GetBreakpoint(0x0200); ok {
		t.Fatalf("expected breakpoint to be gone after removal")
	}
}

func TestStepArmsExactlyCountInstructions(t *testing.T) {
	d := NewDebugger()
	d.Step(2)

	if !d.ShouldBreak(0x0000) {
		t.Fatalf("expected first stepped instruction to break")
	}
	if !d.ShouldBreak(0x0001) {
		t.Fatalf("expected second stepped instruction to break")
	}
	if d.ShouldBreak(0x0002) {
		t.Fatalf("expected stepping to be exhausted after count instructions")
	}
	if !d.IsPaused() {
		t.Fatalf("expected debugger to be paused once stepping is exhausted")
	}
}

func TestPauseAndResume(t *testing.T) {
	d := NewDebugger()
	d.Pause()
	if !d.IsPaused() {
		t.Fatalf("expected paused after Pause")
	}
	d.Resume()
	if d.IsPaused() {
		t.Fatalf("expected not paused after Resume")
	}
}

func TestCallStackPushAndPop(t *testing.T) {
	d := NewDebugger()
	d.PushCallFrame(0x1000)
	d.PushCallFrame(0x2000)

	if len(d.GetCallStack()) != 2 {
		t.Fatalf("expected two call frames")
	}
	frame := d.PopCallFrame()
	if frame == nil || frame.ReturnPC != 0x2000 {
		t.Fatalf("expected to pop the most recently pushed frame, got %+v", frame)
	}
	if len(d.GetCallStack()) != 1 {
		t.Fatalf("expected one call frame remaining")
	}
}

func TestWatchAddAndRemove(t *testing.T) {
	d := NewDebugger()
	d.AddWatch("hl")
	d.AddWatch("f.z")

	watches := d.GetWatches()
	if len(watches) != 2 || watches[0].Expression != "hl" {
		t.Fatalf("unexpected watches: %+v", watches)
	}
	if !d.RemoveWatch(0) {
		t.Fatalf("expected removal of watch index 0 to succeed")
	}
	if len(d.GetWatches()) != 1 {
		t.Fatalf("expected one watch remaining")
	}
}

func TestShouldBreakOnBreakpointLeavesDebuggerPaused(t *testing.T) {
	d := NewDebugger()
	d.SetBreakpoint(0x0150)

	if !d.ShouldBreak(0x0150) {
		t.Fatalf("expected a breakpoint hit to report true")
	}
	if !d.IsPaused() {
		t.Fatalf("expected a breakpoint hit to leave the debugger paused")
	}
}

func TestBlockWhilePausedReturnsOnResume(t *testing.T) {
	d := NewDebugger()
	d.Pause()

	done := make(chan struct{})
	go func() {
		d.BlockWhilePaused(nil)
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("BlockWhilePaused returned before Resume was called")
	case <-time.After(20 * time.Millisecond):
	}

	d.Resume()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("BlockWhilePaused did not return after Resume")
	}
}

func TestBlockWhilePausedReturnsOnEnding(t *testing.T) {
	d := NewDebugger()
	d.Pause()

	ended := false
	done := make(chan struct{})
	go func() {
		d.BlockWhilePaused(func() bool { return ended })
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("BlockWhilePaused returned before ending was observed")
	case <-time.After(20 * time.Millisecond):
	}

	ended = true

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("BlockWhilePaused did not return once ending reported true")
	}
}

func TestOnCallAndOnReturnDriveCallStack(t *testing.T) {
	d := NewDebugger()
	d.OnCall(0x1234)
	d.OnCall(0x5678)

	if len(d.GetCallStack()) != 2 {
		t.Fatalf("expected OnCall to push a call frame")
	}

	d.OnReturn()
	stack := d.GetCallStack()
	if len(stack) != 1 || stack[0].ReturnPC != 0x1234 {
		t.Fatalf("expected OnReturn to pop the most recent frame, got %+v", stack)
	}
}

func TestSetWatchValueUpdatesLastValue(t *testing.T) {
	d := NewDebugger()
	d.AddWatch("hl")

	if !d.SetWatchValue(0, uint16(0x0100)) {
		t.Fatalf("expected SetWatchValue to succeed for a valid index")
	}
	if !d.SetWatchValue(0, uint16(0x0200)) {
		t.Fatalf("expected second SetWatchValue to succeed")
	}

	watches := d.GetWatches()
	if watches[0].Value != uint16(0x0200) || watches[0].LastValue != uint16(0x0100) {
		t.Fatalf("expected value=0x0200 lastValue=0x0100, got %+v", watches[0])
	}

	if d.SetWatchValue(5, uint16(0)) {
		t.Fatalf("expected SetWatchValue to report false for an out-of-range index")
	}
}

func TestClearBreakpointsAndWatches(t *testing.T) {
	d := NewDebugger()
	d.SetBreakpoint(0x0100)
	d.AddWatch("a")

	d.ClearBreakpoints()
	d.ClearWatches()

	if len(d.GetAllBreakpoints()) != 0 {
		t.Fatalf("expected no breakpoints after clear")
	}
	if len(d.GetWatches()) != 0 {
		t.Fatalf("expected no watches after clear")
	}
}
