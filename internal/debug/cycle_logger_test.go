package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogInstructionWritesALine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	l, err := NewInstructionLogger(path, 0, 0)
	if err != nil {
		t.Fatalf("NewInstructionLogger: %v", err)
	}
	defer l.Close()

	l.LogInstruction(CPUStateSnapshot{PC: 0x0100, SP: 0xFFFE, A: 0x01, LY: 144, VBlank: true, InstrCount: 0})
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading trace file: %v", err)
	}
	if !strings.Contains(string(data), "PC=0100") || !strings.Contains(string(data), "LY=144") {
		t.Fatalf("unexpected trace line: %q", data)
	}
}

func TestLogInstructionRespectsStartOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	l, err := NewInstructionLogger(path, 0, 10)
	if err != nil {
		t.Fatalf("NewInstructionLogger: %v", err)
	}
	defer l.Close()

	l.LogInstruction(CPUStateSnapshot{InstrCount: 5})
	l.LogInstruction(CPUStateSnapshot{InstrCount: 10})
	l.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Count(string(data), "\n")
	if lines != 1 {
		t.Fatalf("expected exactly one line past the start offset, got %d", lines)
	}
}

func TestLogInstructionRespectsMaxLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	l, err := NewInstructionLogger(path, 1, 0)
	if err != nil {
		t.Fatalf("NewInstructionLogger: %v", err)
	}
	defer l.Close()

	l.LogInstruction(CPUStateSnapshot{InstrCount: 0})
	l.LogInstruction(CPUStateSnapshot{InstrCount: 1})
	l.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Count(string(data), "\n")
	if lines != 1 {
		t.Fatalf("expected max-lines cap to hold at 1, got %d", lines)
	}
}

func TestToggleFlipsEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	l, err := NewInstructionLogger(path, 0, 0)
	if err != nil {
		t.Fatalf("NewInstructionLogger: %v", err)
	}
	defer l.Close()

	if !l.IsEnabled() {
		t.Fatalf("expected logger enabled by default")
	}
	if l.Toggle() {
		t.Fatalf("expected Toggle to disable")
	}
	if l.IsEnabled() {
		t.Fatalf("expected IsEnabled false after Toggle")
	}
}
