// Package cpu implements fetch/decode/execute for the LR35902 instruction
// set: eight 8-bit registers, a 16-bit stack pointer and program counter,
// and a two-byte-prefix (0xCB) opcode table.
package cpu

import "fmt"

// Flag bits within the F register. Only Z and C are given meaning; every
// other bit is left unspecified and must not be relied upon.
const (
	FlagZ uint8 = 1 << 7
	FlagC uint8 = 1 << 4
)

// State is the complete register file plus the handful of CPU-internal
// flags the driver and joypad need to observe (IME, halted, and a running
// instruction counter used to throttle joypad register refreshes).
type State struct {
	A, B, C, D, E, H, L, F uint8
	SP, PC                 uint16

	IME    bool // interrupt master enable, toggled by di/ei/reti
	Halted bool

	// InstrCount increments once per fetched opcode. The joypad package
	// uses it to throttle how often the register is refreshed.
	InstrCount uint64
}

// MemoryInterface is the CPU's view of addressable storage. Load/store
// instructions are plain memory accesses; there is no separate MMIO path.
type MemoryInterface interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, value uint8)
	Read16(addr uint16) uint16
	Write16(addr uint16, value uint16)
}

// LoggerInterface decouples the CPU from any concrete logging backend.
// CPULoggerAdapter bridges this to the shared debug.Logger.
type LoggerInterface interface {
	LogCPU(pc uint16, opcode uint16, mnemonic string, state State)
}

// HaltWaiter lets the driver supply the VBlank-edge wait that backs the
// halt instruction, keeping the CPU package free of any knowledge of the
// frame thread or its locks.
type HaltWaiter interface {
	WaitForVBlankEdge()
}

// CallHook lets an external debugger track the call stack as CALL/RET
// instructions execute, keeping the CPU package free of any knowledge of
// how (or whether) that stack is displayed.
type CallHook interface {
	OnCall(returnPC uint16)
	OnReturn()
}

// CPU couples the register file to injected memory and (optional) logging
// and halt-wait collaborators.
type CPU struct {
	State State
	Mem   MemoryInterface
	Log   LoggerInterface
	Halt  HaltWaiter
	Calls CallHook

	// UnknownOpcodeSkip, when true, makes an unrecognized opcode print its
	// mnemonic and skip its (best-guess) operand bytes instead of
	// returning a fatal error. Set from the -u CLI flag.
	UnknownOpcodeSkip bool
	// UnknownOpcodeSink receives the printed notice for each skipped
	// opcode; if nil, skipped opcodes are silently consumed.
	UnknownOpcodeSink func(format string, args ...interface{})

	// Ending is polled between instructions; when true the run loop
	// returns without executing another instruction.
	Ending func() bool
}

// NewCPU creates a CPU wired to mem (and, optionally, a logger).
func NewCPU(mem MemoryInterface, log LoggerInterface) *CPU {
	c := &CPU{Mem: mem, Log: log}
	c.Reset()
	return c
}

// Reset restores the initial register state: all 8-bit registers zero,
// sp = 0xFFFE, pc = 0x0100.
func (c *CPU) Reset() {
	c.State = State{SP: 0xFFFE, PC: 0x0100}
}

// GetFlag reports whether the given flag bit is set in F.
func (c *CPU) GetFlag(flag uint8) bool {
	return c.State.F&flag != 0
}

// SetFlag sets or clears the given flag bit in F.
func (c *CPU) SetFlag(flag uint8, value bool) {
	if value {
		c.State.F |= flag
	} else {
		c.State.F &^= flag
	}
}

// BC, DE, HL, AF read the named register pair as a big-endian 16-bit
// quantity: the first letter is the high byte.
func (c *CPU) BC() uint16 { return uint16(c.State.B)<<8 | uint16(c.State.C) }
func (c *CPU) DE() uint16 { return uint16(c.State.D)<<8 | uint16(c.State.E) }
func (c *CPU) HL() uint16 { return uint16(c.State.H)<<8 | uint16(c.State.L) }
func (c *CPU) AF() uint16 { return uint16(c.State.A)<<8 | uint16(c.State.F) }

// SetBC, SetDE, SetHL, SetAF write a 16-bit quantity back across the pair,
// high byte to the first letter, low byte to the second.
func (c *CPU) SetBC(v uint16) { c.State.B, c.State.C = uint8(v>>8), uint8(v) }
func (c *CPU) SetDE(v uint16) { c.State.D, c.State.E = uint8(v>>8), uint8(v) }
func (c *CPU) SetHL(v uint16) { c.State.H, c.State.L = uint8(v>>8), uint8(v) }
func (c *CPU) SetAF(v uint16) { c.State.A, c.State.F = uint8(v>>8), uint8(v) }

// fetch8 reads the byte at pc and advances pc by one.
func (c *CPU) fetch8() uint8 {
	b := c.Mem.Read8(c.State.PC)
	c.State.PC++
	return b
}

// fetch16 reads a little-endian 16-bit immediate at pc and advances pc by
// two: byte 0 is the low byte, byte 1 is the high byte.
func (c *CPU) fetch16() uint16 {
	lo := c.fetch8()
	hi := c.fetch8()
	return uint16(hi)<<8 | uint16(lo)
}

// fetchOpcode reads the next opcode, forming the 16-bit value 0xCBxx when
// the byte at pc is the 0xCB prefix.
func (c *CPU) fetchOpcode() uint16 {
	b := c.fetch8()
	if b == 0xCB {
		return 0xCB00 | uint16(c.fetch8())
	}
	return uint16(b)
}

// Step fetches, decodes, and executes a single instruction.
func (c *CPU) Step() error {
	pc := c.State.PC
	opcode := c.fetchOpcode()
	c.State.InstrCount++

	var fn opcodeFunc
	var mnemonic string
	if opcode&0xCB00 == 0xCB00 && opcode > 0xFF {
		idx := uint8(opcode)
		fn = cbOpcodes[idx]
		mnemonic = cbMnemonics[idx]
	} else {
		idx := uint8(opcode)
		fn = mainOpcodes[idx]
		mnemonic = mainMnemonics[idx]
	}

	if c.Log != nil {
		c.Log.LogCPU(pc, opcode, mnemonic, c.State)
	}

	if fn == nil {
		return c.handleUnknownOpcode(opcode)
	}
	return fn(c)
}

// handleUnknownOpcode implements the fatal-by-default, print-and-skip-when
// -u policy for opcodes with no table entry.
func (c *CPU) handleUnknownOpcode(opcode uint16) error {
	if !c.UnknownOpcodeSkip {
		return fmt.Errorf("unsupported instruction: opcode 0x%04X at pc 0x%04X", opcode, c.State.PC)
	}
	n := unimplementedOperandLength(opcode)
	operands := make([]uint8, 0, n)
	for i := 0; i < n; i++ {
		operands = append(operands, c.fetch8())
	}
	if c.UnknownOpcodeSink != nil {
		c.UnknownOpcodeSink("skipping unimplemented opcode 0x%04X (operands %v)", opcode, operands)
	}
	return nil
}

// Run executes Step in a loop until Ending reports true or an instruction
// returns an error. A nil Ending never stops the loop on its own.
func (c *CPU) Run() error {
	for {
		if c.Ending != nil && c.Ending() {
			return nil
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
}
