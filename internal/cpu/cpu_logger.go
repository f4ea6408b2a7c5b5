package cpu

import (
	"fmt"

	"duskboy-core/internal/debug"
	"duskboy-core/internal/memory"
)

// CPULogLevel selects how much detail CPULoggerAdapter emits per step.
type CPULogLevel int

const (
	CPULogNone         CPULogLevel = iota // no CPU logging
	CPULogErrors                          // only errors (handled by the caller, not LogCPU)
	CPULogBranches                        // jumps, calls, returns
	CPULogInstructions                    // every instruction
	CPULogTrace                           // every instruction plus full register state
)

// CPULoggerAdapter bridges the CPU's LoggerInterface to the shared
// debug.Logger, decoding the real mnemonic table instead of a nibble-coded
// opcode.
type CPULoggerAdapter struct {
	logger *debug.Logger
	level  CPULogLevel

	// trace, when set via SetInstructionTrace, receives one windowed file
	// line per step regardless of level. It backs the -v flag's on-disk
	// instruction trace rather than the in-memory circular-buffer logger.
	trace       *debug.InstructionLogger
	traceMem    MemoryInterface
	traceVBlank func() bool
}

// NewCPULoggerAdapter creates an adapter at the given verbosity. Pass
// CPULogNone to build a no-op adapter (LogCPU becomes a cheap early return).
func NewCPULoggerAdapter(logger *debug.Logger, level CPULogLevel) *CPULoggerAdapter {
	return &CPULoggerAdapter{logger: logger, level: level}
}

// SetLevel changes the adapter's verbosity at runtime.
func (a *CPULoggerAdapter) SetLevel(level CPULogLevel) {
	a.level = level
}

// SetInstructionTrace attaches a windowed on-disk instruction trace. mem is
// read for LY and vblank reports whether the frame thread currently has the
// display in VBlank; both are folded into the CPUStateSnapshot the trace
// writes for each instruction.
func (a *CPULoggerAdapter) SetInstructionTrace(trace *debug.InstructionLogger, mem MemoryInterface, vblank func() bool) {
	a.trace = trace
	a.traceMem = mem
	a.traceVBlank = vblank
}

func isBranchMnemonic(mnemonic string) bool {
	switch {
	case len(mnemonic) >= 2 && mnemonic[:2] == "JP":
		return true
	case len(mnemonic) >= 2 && mnemonic[:2] == "JR":
		return true
	case len(mnemonic) >= 4 && mnemonic[:4] == "CALL":
		return true
	case len(mnemonic) >= 3 && mnemonic[:3] == "RET":
		return true
	case mnemonic == "HALT":
		return true
	default:
		return false
	}
}

// LogCPU implements cpu.LoggerInterface.
func (a *CPULoggerAdapter) LogCPU(pc uint16, opcode uint16, mnemonic string, state State) {
	if a.trace != nil {
		ly := uint8(0)
		if a.traceMem != nil {
			ly = a.traceMem.Read8(memory.RegLY)
		}
		vblank := a.traceVBlank != nil && a.traceVBlank()
		a.trace.LogInstruction(debug.CPUStateSnapshot{
			PC: pc, SP: state.SP,
			A: state.A, B: state.B, C: state.C, D: state.D,
			E: state.E, H: state.H, L: state.L, F: state.F,
			LY: ly, VBlank: vblank, InstrCount: state.InstrCount,
		})
	}

	if a.logger == nil || a.level == CPULogNone || a.level == CPULogErrors {
		return
	}

	if a.level == CPULogBranches && !isBranchMnemonic(mnemonic) {
		return
	}

	message := fmt.Sprintf("%04X: %s (0x%04X)", pc, mnemonic, opcode)

	if a.level == CPULogInstructions {
		a.logger.LogCPU(debug.LogLevelDebug, message, nil)
		return
	}

	// CPULogTrace
	data := map[string]interface{}{
		"pc":    fmt.Sprintf("0x%04X", pc),
		"sp":    fmt.Sprintf("0x%04X", state.SP),
		"a":     fmt.Sprintf("0x%02X", state.A),
		"f":     fmt.Sprintf("0x%02X", state.F),
		"bc":    fmt.Sprintf("0x%02X%02X", state.B, state.C),
		"de":    fmt.Sprintf("0x%02X%02X", state.D, state.E),
		"hl":    fmt.Sprintf("0x%02X%02X", state.H, state.L),
		"ime":   state.IME,
		"instr": state.InstrCount,
	}
	a.logger.LogCPU(debug.LogLevelTrace, message, data)
}
