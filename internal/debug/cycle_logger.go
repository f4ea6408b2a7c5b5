package debug

import (
	"fmt"
	"os"
)

// CPUStateSnapshot is a point-in-time capture of everything an instruction
// trace line reports. It is populated by cpu.CPULoggerAdapter from
// cpu.State plus the two values that matter for a trace:
// LY and whether the frame thread currently has the display in VBlank.
type CPUStateSnapshot struct {
	PC, SP     uint16
	A, B, C, D uint8
	E, H, L, F uint8
	LY         uint8
	VBlank     bool
	InstrCount uint64
}

// InstructionLogger writes one line per CPU instruction to a file, honoring
// an optional start offset and a maximum line count so a trace can be
// windowed onto the instructions of interest instead of an entire run.
type InstructionLogger struct {
	file         *os.File
	maxLines     uint64
	startInstr   uint64
	linesWritten uint64
	enabled      bool
}

// NewInstructionLogger opens filename for writing and returns a logger that
// begins recording at startInstr (an instruction count) and stops after
// maxLines lines (0 means unbounded).
func NewInstructionLogger(filename string, maxLines uint64, startInstr uint64) (*InstructionLogger, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("creating instruction trace file %q: %w", filename, err)
	}
	return &InstructionLogger{file: f, maxLines: maxLines, startInstr: startInstr, enabled: true}, nil
}

// LogInstruction writes one trace line for snap, if the logger is enabled,
// snap.InstrCount is at or past the configured start offset, and the
// configured line budget has not been exhausted.
func (l *InstructionLogger) LogInstruction(snap CPUStateSnapshot) {
	if !l.enabled || l.file == nil {
		return
	}
	if snap.InstrCount < l.startInstr {
		return
	}
	if l.maxLines > 0 && l.linesWritten >= l.maxLines {
		return
	}

	vblank := "-"
	if snap.VBlank {
		vblank = "V"
	}
	fmt.Fprintf(l.file, "%08d PC=%04X SP=%04X A=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X F=%02X LY=%03d %s\n",
		snap.InstrCount, snap.PC, snap.SP, snap.A, snap.B, snap.C, snap.D, snap.E, snap.H, snap.L, snap.F, snap.LY, vblank)
	l.linesWritten++
}

// SetEnabled toggles whether LogInstruction writes anything.
func (l *InstructionLogger) SetEnabled(enabled bool) { l.enabled = enabled }

// Toggle flips the enabled state and returns the new value.
func (l *InstructionLogger) Toggle() bool {
	l.enabled = !l.enabled
	return l.enabled
}

// IsEnabled reports the current enabled state.
func (l *InstructionLogger) IsEnabled() bool { return l.enabled }

// Close flushes and closes the underlying file.
func (l *InstructionLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// GetStatus renders a one-line human-readable summary, matching the style
// of a devkit status bar.
func (l *InstructionLogger) GetStatus() string {
	state := "disabled"
	if l.enabled {
		state = "enabled"
	}
	return fmt.Sprintf("trace %s: %d lines written (start=%d, max=%d)", state, l.linesWritten, l.startInstr, l.maxLines)
}
