package joypad

import (
	"testing"

	"duskboy-core/internal/memory"
)

func TestPollRefreshesDpadWhenSelected(t *testing.T) {
	mem := memory.New()
	mem.Write8(memory.RegJOYP, 0xFF&^(1<<5)) // select d-pad, buttons deselected
	j := New()
	j.SetPressed(Right, true)

	// Drive instrCount past the d-pad refresh cadence.
	j.Poll(mem, dpadRefreshInstructions+1)

	got := mem.Read8(memory.RegJOYP)
	if got&0x01 != 0 {
		t.Fatalf("expected RIGHT bit (0) clear when pressed, register = 0x%02X", got)
	}
	if got&0x0E != 0x0E {
		t.Fatalf("expected other d-pad bits set (not pressed), register = 0x%02X", got)
	}
}

func TestPollRefreshesButtonsWhenSelected(t *testing.T) {
	mem := memory.New()
	mem.Write8(memory.RegJOYP, 0xFF&^(1<<4)) // select buttons
	j := New()
	j.SetPressed(Start, true)
	j.SetPressed(A, true)

	j.Poll(mem, buttonRefreshInstructions+1)

	got := mem.Read8(memory.RegJOYP)
	if got&0x08 != 0 {
		t.Fatalf("expected START bit (3) clear when pressed, register = 0x%02X", got)
	}
	if got&0x01 != 0 {
		t.Fatalf("expected A bit (0) clear when pressed, register = 0x%02X", got)
	}
	if got&0x06 != 0x06 {
		t.Fatalf("expected SELECT/B bits set (not pressed), register = 0x%02X", got)
	}
}

func TestPollIgnoresDeselectedHalf(t *testing.T) {
	mem := memory.New()
	// Neither half selected: both bit 4 and bit 5 set.
	mem.Write8(memory.RegJOYP, 0xFF)
	j := New()
	j.SetPressed(Right, true)

	j.Poll(mem, dpadRefreshInstructions+1)

	got := mem.Read8(memory.RegJOYP)
	if got&0x0F != 0x0F {
		t.Fatalf("expected low nibble untouched when neither half selected, register = 0x%02X", got)
	}
}

func TestPollThrottlesRefresh(t *testing.T) {
	mem := memory.New()
	mem.Write8(memory.RegJOYP, 0xFF&^(1<<5))
	j := New()

	// First poll within the cadence window leaves the nibble as last
	// written (all released) even after a press, since the refresh has
	// not yet elapsed.
	j.Poll(mem, 0)
	j.SetPressed(Right, true)
	j.Poll(mem, 1)

	got := mem.Read8(memory.RegJOYP)
	if got&0x01 != 0x01 {
		t.Fatalf("expected throttled poll to leave RIGHT bit set, register = 0x%02X", got)
	}
}
