package debug

import (
	"fmt"
	"sync"
	"time"
)

// blockPollInterval is how often BlockWhilePaused re-checks the paused
// state, matching the CPU package's fixed-duration halt fallback rather
// than a true condition-variable wake (see cpu.opHalt).
const blockPollInterval = 5 * time.Millisecond

// Breakpoint represents a breakpoint at a program-counter address.
type Breakpoint struct {
	PC       uint16
	Enabled  bool
	HitCount int
}

// WatchExpression holds the text of a watch (e.g. "a", "hl", "sp"). The
// devkit inspector resolves register, register-pair, sp and pc names
// against a CPU state snapshot and shows any other text as unresolved; the
// debugger itself only tracks the expression text and its last two
// observed values.
type WatchExpression struct {
	Expression string
	Value      interface{}
	LastValue  interface{}
}

// CallFrame represents one outstanding call/ret pair, tracked purely for
// the devkit inspector's call-stack view.
type CallFrame struct {
	ReturnPC uint16
}

// Debugger is the devkit inspector's breakpoint/watch/call-stack model. It
// has no opinion about how the CPU is stepped; a driver or CLI decides
// whether to consult ShouldBreak between instructions.
type Debugger struct {
	breakpoints   map[uint16]*Breakpoint
	breakpointsMu sync.RWMutex

	watches   []*WatchExpression
	watchesMu sync.RWMutex

	paused    bool
	stepping  bool
	stepCount int
	stateMu   sync.RWMutex

	callStack []CallFrame
	stackMu   sync.RWMutex
}

// NewDebugger creates an empty debugger with no breakpoints or watches.
func NewDebugger() *Debugger {
	return &Debugger{
		breakpoints: make(map[uint16]*Breakpoint),
		watches:     make([]*WatchExpression, 0),
		callStack:   make([]CallFrame, 0),
	}
}

// SetBreakpoint sets a breakpoint at pc.
func (d *Debugger) SetBreakpoint(pc uint16) {
	d.breakpointsMu.Lock()
	defer d.breakpointsMu.Unlock()
	d.breakpoints[pc] = &Breakpoint{PC: pc, Enabled: true}
}

// RemoveBreakpoint removes the breakpoint at pc, reporting whether one
// existed.
func (d *Debugger) RemoveBreakpoint(pc uint16) bool {
	d.breakpointsMu.Lock()
	defer d.breakpointsMu.Unlock()
	if _, exists := d.breakpoints[pc]; exists {
		delete(d.breakpoints, pc)
		return true
	}
	return false
}

// GetBreakpoint returns the breakpoint at pc, if any.
func (d *Debugger) GetBreakpoint(pc uint16) (*Breakpoint, bool) {
	d.breakpointsMu.RLock()
	defer d.breakpointsMu.RUnlock()
	bp, exists := d.breakpoints[pc]
	return bp, exists
}

// GetAllBreakpoints returns a copy of every registered breakpoint.
func (d *Debugger) GetAllBreakpoints() map[uint16]*Breakpoint {
	d.breakpointsMu.RLock()
	defer d.breakpointsMu.RUnlock()
	result := make(map[uint16]*Breakpoint, len(d.breakpoints))
	for k, v := range d.breakpoints {
		result[k] = v
	}
	return result
}

// CheckBreakpoint reports whether pc has an enabled breakpoint, bumping
// its hit count if so.
func (d *Debugger) CheckBreakpoint(pc uint16) bool {
	d.breakpointsMu.RLock()
	defer d.breakpointsMu.RUnlock()
	bp, exists := d.breakpoints[pc]
	if exists && bp.Enabled {
		bp.HitCount++
		return true
	}
	return false
}

// EnableBreakpoint enables the breakpoint at pc.
func (d *Debugger) EnableBreakpoint(pc uint16) bool {
	d.breakpointsMu.Lock()
	defer d.breakpointsMu.Unlock()
	if bp, exists := d.breakpoints[pc]; exists {
		bp.Enabled = true
		return true
	}
	return false
}

// DisableBreakpoint disables the breakpoint at pc.
func (d *Debugger) DisableBreakpoint(pc uint16) bool {
	d.breakpointsMu.Lock()
	defer d.breakpointsMu.Unlock()
	if bp, exists := d.breakpoints[pc]; exists {
		bp.Enabled = false
		return true
	}
	return false
}

// AddWatch adds a watch expression.
func (d *Debugger) AddWatch(expr string) {
	d.watchesMu.Lock()
	defer d.watchesMu.Unlock()
	d.watches = append(d.watches, &WatchExpression{Expression: expr})
}

// RemoveWatch removes the watch at index.
func (d *Debugger) RemoveWatch(index int) bool {
	d.watchesMu.Lock()
	defer d.watchesMu.Unlock()
	if index < 0 || index >= len(d.watches) {
		return false
	}
	d.watches = append(d.watches[:index], d.watches[index+1:]...)
	return true
}

// GetWatches returns a copy of the current watch list.
func (d *Debugger) GetWatches() []*WatchExpression {
	d.watchesMu.RLock()
	defer d.watchesMu.RUnlock()
	result := make([]*WatchExpression, len(d.watches))
	copy(result, d.watches)
	return result
}

// SetWatchValue records a newly resolved value for the watch at index,
// shifting its previous value into LastValue. The devkit inspector owns
// resolving a watch expression against a CPU state snapshot; the debugger
// only remembers the two most recent values.
func (d *Debugger) SetWatchValue(index int, value interface{}) bool {
	d.watchesMu.Lock()
	defer d.watchesMu.Unlock()
	if index < 0 || index >= len(d.watches) {
		return false
	}
	w := d.watches[index]
	w.LastValue = w.Value
	w.Value = value
	return true
}

// Pause stops single-stepping and marks execution paused.
func (d *Debugger) Pause() {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.paused = true
	d.stepping = false
}

// Resume clears paused/stepping state.
func (d *Debugger) Resume() {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.paused = false
	d.stepping = false
}

// Step arms single-step mode for count instructions.
func (d *Debugger) Step(count int) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.stepping = true
	d.stepCount = count
	d.paused = false
}

// IsPaused reports whether execution is currently paused.
func (d *Debugger) IsPaused() bool {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.paused
}

// ShouldBreak reports true for each instruction boundary that consumes one
// count of an armed Step, and for a pc with an enabled breakpoint. A
// breakpoint hit, or the boundary that exhausts the step count, leaves the
// debugger paused; earlier stepped boundaries leave it running. A caller
// follows a true ShouldBreak with BlockWhilePaused, which returns at once
// unless the debugger is paused.
func (d *Debugger) ShouldBreak(pc uint16) bool {
	d.stateMu.RLock()
	stepping, stepCount := d.stepping, d.stepCount
	d.stateMu.RUnlock()

	if stepping {
		if stepCount > 0 {
			d.stateMu.Lock()
			d.stepCount--
			if d.stepCount <= 0 {
				d.stepping = false
				d.paused = true
			}
			d.stateMu.Unlock()
			return true
		}
	}
	if d.CheckBreakpoint(pc) {
		d.stateMu.Lock()
		d.paused = true
		d.stateMu.Unlock()
		return true
	}
	return false
}

// BlockWhilePaused blocks the calling goroutine while the debugger is
// paused, polling at blockPollInterval and returning early once ending
// reports true. Intended for a CPU run loop to call immediately after a
// true ShouldBreak, so a breakpoint or exhausted step count actually
// suspends execution until Resume or Step is called from the inspector.
func (d *Debugger) BlockWhilePaused(ending func() bool) {
	for {
		d.stateMu.RLock()
		paused := d.paused
		d.stateMu.RUnlock()
		if !paused || (ending != nil && ending()) {
			return
		}
		time.Sleep(blockPollInterval)
	}
}

// OnCall implements cpu.CallHook, recording pc as a call's return address.
func (d *Debugger) OnCall(returnPC uint16) { d.PushCallFrame(returnPC) }

// OnReturn implements cpu.CallHook, discarding the most recently pushed
// call frame.
func (d *Debugger) OnReturn() { d.PopCallFrame() }

// PushCallFrame records a call's return address.
func (d *Debugger) PushCallFrame(returnPC uint16) {
	d.stackMu.Lock()
	defer d.stackMu.Unlock()
	d.callStack = append(d.callStack, CallFrame{ReturnPC: returnPC})
}

// PopCallFrame removes and returns the most recently pushed call frame.
func (d *Debugger) PopCallFrame() *CallFrame {
	d.stackMu.Lock()
	defer d.stackMu.Unlock()
	if len(d.callStack) == 0 {
		return nil
	}
	frame := d.callStack[len(d.callStack)-1]
	d.callStack = d.callStack[:len(d.callStack)-1]
	return &frame
}

// GetCallStack returns a copy of the current call stack, deepest call
// last.
func (d *Debugger) GetCallStack() []CallFrame {
	d.stackMu.RLock()
	defer d.stackMu.RUnlock()
	result := make([]CallFrame, len(d.callStack))
	copy(result, d.callStack)
	return result
}

// ClearBreakpoints removes every breakpoint.
func (d *Debugger) ClearBreakpoints() {
	d.breakpointsMu.Lock()
	defer d.breakpointsMu.Unlock()
	d.breakpoints = make(map[uint16]*Breakpoint)
}

// ClearWatches removes every watch expression.
func (d *Debugger) ClearWatches() {
	d.watchesMu.Lock()
	defer d.watchesMu.Unlock()
	d.watches = make([]*WatchExpression, 0)
}

// FormatBreakpoint renders a breakpoint the way the devkit's breakpoint
// list displays it.
func FormatBreakpoint(bp *Breakpoint) string {
	state := "enabled"
	if !bp.Enabled {
		state = "disabled"
	}
	return fmt.Sprintf("0x%04X [%s] hits=%d", bp.PC, state, bp.HitCount)
}
