// Package joypad maintains the set of currently pressed buttons and
// refreshes the memory-mapped joypad register (0xFF00) the CPU polls,
// throttled to the instruction cadence the CPU itself advances.
package joypad

import "duskboy-core/internal/memory"

// Button names the host input subsystem reports press/release events for.
type Button int

const (
	Up Button = iota
	Down
	Left
	Right
	Start
	Select
	A
	B
)

// dpadBit and buttonBit give each button's position within the low nibble
// of the joypad register, per the d-pad/button bit table.
var dpadBit = map[Button]uint8{
	Down:  3,
	Up:    2,
	Left:  1,
	Right: 0,
}

var buttonBit = map[Button]uint8{
	Start:  3,
	Select: 2,
	B:      1,
	A:      0,
}

// Selection bits within the joypad register the CPU drives to pick which
// half of the controller it wants to read.
const (
	selectButtons uint8 = 1 << 4
	selectDpad    uint8 = 1 << 5
)

// Refresh cadences, in elapsed CPU instructions since the nibble was last
// rewritten. These throttle the register so a tight polling loop does not
// cause every single fetched instruction to re-derive the nibble.
const (
	dpadRefreshInstructions   = 2
	buttonRefreshInstructions = 6
)

// Joypad tracks which buttons are currently held and the last instruction
// count at which each nibble was refreshed.
type Joypad struct {
	pressed map[Button]bool

	lastDpadRefresh   uint64
	lastButtonRefresh uint64
}

// New creates a joypad with no buttons held.
func New() *Joypad {
	return &Joypad{pressed: make(map[Button]bool, 8)}
}

// SetPressed records a press or release of button b, reported by the host
// input subsystem.
func (j *Joypad) SetPressed(b Button, pressed bool) {
	if pressed {
		j.pressed[b] = true
	} else {
		delete(j.pressed, b)
	}
}

// IsPressed reports whether b is currently held.
func (j *Joypad) IsPressed(b Button) bool {
	return j.pressed[b]
}

// Poll inspects the joypad register in mem and, subject to the refresh
// cadence, overwrites the low nibble to reflect currently held buttons.
// instrCount is the CPU's running instruction counter, used to throttle
// each nibble independently.
func (j *Joypad) Poll(mem *memory.Memory, instrCount uint64) {
	reg := mem.Read8(memory.RegJOYP)

	if reg&selectDpad == 0 && instrCount-j.lastDpadRefresh > dpadRefreshInstructions {
		reg = j.refreshNibble(reg, dpadBit)
		j.lastDpadRefresh = instrCount
	}
	if reg&selectButtons == 0 && instrCount-j.lastButtonRefresh > buttonRefreshInstructions {
		reg = j.refreshNibble(reg, buttonBit)
		j.lastButtonRefresh = instrCount
	}

	mem.Write8(memory.RegJOYP, reg)
}

// refreshNibble overwrites the low nibble of reg with the complement of the
// buttons named in bits (0 = pressed), leaving the upper nibble untouched.
func (j *Joypad) refreshNibble(reg uint8, bits map[Button]uint8) uint8 {
	reg |= 0x0F
	for button, bit := range bits {
		if j.pressed[button] {
			reg &^= 1 << bit
		}
	}
	return reg
}
