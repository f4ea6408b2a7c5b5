package cpu

import "time"

// r8 register indices, in the conventional LR35902 ordering. Index 6
// addresses memory at HL rather than a register.
const (
	r8B = iota
	r8C
	r8D
	r8E
	r8H
	r8L
	r8HLMem
	r8A
)

var r8Names = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

// rp register-pair indices used by LD rp,d16 / INC rp / DEC rp / ADD HL,rp.
const (
	rpBC = iota
	rpDE
	rpHL
	rpSP
)

var rpNames = [4]string{"BC", "DE", "HL", "SP"}

// rp2 register-pair indices used by PUSH/POP, where slot 3 is AF rather
// than SP.
const (
	rp2BC = iota
	rp2DE
	rp2HL
	rp2AF
)

var rp2Names = [4]string{"BC", "DE", "HL", "AF"}

// Condition indices shared by JR/JP/CALL/RET.
const (
	condNZ = iota
	condZ
	condNC
	condC
)

var condNames = [4]string{"NZ", "Z", "NC", "C"}

func (c *CPU) getR8(idx uint8) uint8 {
	switch idx {
	case r8B:
		return c.State.B
	case r8C:
		return c.State.C
	case r8D:
		return c.State.D
	case r8E:
		return c.State.E
	case r8H:
		return c.State.H
	case r8L:
		return c.State.L
	case r8HLMem:
		return c.Mem.Read8(c.HL())
	default:
		return c.State.A
	}
}

func (c *CPU) setR8(idx uint8, v uint8) {
	switch idx {
	case r8B:
		c.State.B = v
	case r8C:
		c.State.C = v
	case r8D:
		c.State.D = v
	case r8E:
		c.State.E = v
	case r8H:
		c.State.H = v
	case r8L:
		c.State.L = v
	case r8HLMem:
		c.Mem.Write8(c.HL(), v)
	default:
		c.State.A = v
	}
}

func (c *CPU) getRP(idx uint8) uint16 {
	switch idx {
	case rpBC:
		return c.BC()
	case rpDE:
		return c.DE()
	case rpHL:
		return c.HL()
	default:
		return c.State.SP
	}
}

func (c *CPU) setRP(idx uint8, v uint16) {
	switch idx {
	case rpBC:
		c.SetBC(v)
	case rpDE:
		c.SetDE(v)
	case rpHL:
		c.SetHL(v)
	default:
		c.State.SP = v
	}
}

func (c *CPU) getRP2(idx uint8) uint16 {
	switch idx {
	case rp2BC:
		return c.BC()
	case rp2DE:
		return c.DE()
	case rp2HL:
		return c.HL()
	default:
		return c.AF()
	}
}

func (c *CPU) setRP2(idx uint8, v uint16) {
	switch idx {
	case rp2BC:
		c.SetBC(v)
	case rp2DE:
		c.SetDE(v)
	case rp2HL:
		c.SetHL(v)
	default:
		c.SetAF(v)
	}
}

func (c *CPU) checkCond(idx uint8) bool {
	switch idx {
	case condNZ:
		return !c.GetFlag(FlagZ)
	case condZ:
		return c.GetFlag(FlagZ)
	case condNC:
		return !c.GetFlag(FlagC)
	default:
		return c.GetFlag(FlagC)
	}
}

// --- loads ---

func (c *CPU) opNOP() error { return nil }

func (c *CPU) opLdRpD16(rp uint8) error {
	c.setRP(rp, c.fetch16())
	return nil
}

func (c *CPU) opLdMemBCA() error { c.Mem.Write8(c.BC(), c.State.A); return nil }
func (c *CPU) opLdMemDEA() error { c.Mem.Write8(c.DE(), c.State.A); return nil }

func (c *CPU) opLdiMemHLA() error {
	hl := c.HL()
	c.Mem.Write8(hl, c.State.A)
	c.SetHL(hl + 1)
	return nil
}

func (c *CPU) opLddMemHLA() error {
	hl := c.HL()
	c.Mem.Write8(hl, c.State.A)
	c.SetHL(hl - 1)
	return nil
}

func (c *CPU) opLdABC() error { c.State.A = c.Mem.Read8(c.BC()); return nil }
func (c *CPU) opLdADE() error { c.State.A = c.Mem.Read8(c.DE()); return nil }

func (c *CPU) opLdiAHL() error {
	hl := c.HL()
	c.State.A = c.Mem.Read8(hl)
	c.SetHL(hl + 1)
	return nil
}

func (c *CPU) opLddAHL() error {
	hl := c.HL()
	c.State.A = c.Mem.Read8(hl)
	c.SetHL(hl - 1)
	return nil
}

func (c *CPU) opLdR8D8(dst uint8) error {
	c.setR8(dst, c.fetch8())
	return nil
}

func (c *CPU) opLdR8R8(dst, src uint8) error {
	c.setR8(dst, c.getR8(src))
	return nil
}

func (c *CPU) opLdMemA16SP() error {
	addr := c.fetch16()
	c.Mem.Write16(addr, c.State.SP)
	return nil
}

func (c *CPU) opLdhMemA8A() error {
	addr := 0xFF00 + uint16(c.fetch8())
	c.Mem.Write8(addr, c.State.A)
	return nil
}

func (c *CPU) opLdhAMemA8() error {
	addr := 0xFF00 + uint16(c.fetch8())
	c.State.A = c.Mem.Read8(addr)
	return nil
}

func (c *CPU) opLdMemCA() error {
	c.Mem.Write8(0xFF00+uint16(c.State.C), c.State.A)
	return nil
}

func (c *CPU) opLdAMemC() error {
	c.State.A = c.Mem.Read8(0xFF00 + uint16(c.State.C))
	return nil
}

func (c *CPU) opLdMemA16A() error {
	addr := c.fetch16()
	c.Mem.Write8(addr, c.State.A)
	return nil
}

func (c *CPU) opLdAMemA16() error {
	addr := c.fetch16()
	c.State.A = c.Mem.Read8(addr)
	return nil
}

func (c *CPU) opLdSPHL() error { c.State.SP = c.HL(); return nil }

// --- 16-bit arithmetic (no flag effect except ADD HL,rp's carry) ---

func (c *CPU) opIncRp(rp uint8) error {
	c.setRP(rp, c.getRP(rp)+1)
	return nil
}

func (c *CPU) opDecRp(rp uint8) error {
	c.setRP(rp, c.getRP(rp)-1)
	return nil
}

func (c *CPU) opAddHLRp(rp uint8) error {
	hl := uint32(c.HL())
	v := uint32(c.getRP(rp))
	sum := hl + v
	c.SetFlag(FlagC, sum > 0xFFFF)
	c.SetHL(uint16(sum))
	return nil
}

// --- 8-bit arithmetic ---

func (c *CPU) opIncR8(idx uint8) error {
	v := c.getR8(idx)
	nv := v + 1
	c.setR8(idx, nv)
	c.SetFlag(FlagZ, nv == 0)
	c.SetFlag(FlagC, v == 0xFF)
	return nil
}

func (c *CPU) opDecR8(idx uint8) error {
	v := c.getR8(idx)
	nv := v - 1
	c.setR8(idx, nv)
	c.SetFlag(FlagZ, nv == 0)
	c.SetFlag(FlagC, v == 0x00)
	return nil
}

func (c *CPU) aluAdd(x uint8, carryIn uint8) {
	sum := int(c.State.A) + int(x) + int(carryIn)
	result := uint8(sum)
	c.State.A = result
	c.SetFlag(FlagZ, result == 0)
	c.SetFlag(FlagC, sum > 0xFF)
}

func (c *CPU) aluSub(x uint8, borrowIn uint8, writeBack bool) {
	diff := int(c.State.A) - int(x) - int(borrowIn)
	result := uint8(diff)
	c.SetFlag(FlagZ, result == 0)
	c.SetFlag(FlagC, diff < 0)
	if writeBack {
		c.State.A = result
	}
}

func (c *CPU) aluAnd(x uint8) {
	c.State.A &= x
	c.SetFlag(FlagC, false)
	c.SetFlag(FlagZ, c.State.A == 0)
}

func (c *CPU) aluOr(x uint8) {
	c.State.A |= x
	c.SetFlag(FlagC, false)
	c.SetFlag(FlagZ, c.State.A == 0)
}

func (c *CPU) aluXor(x uint8) {
	c.State.A ^= x
	c.SetFlag(FlagC, false)
	c.SetFlag(FlagZ, c.State.A == 0)
}

// alu operation indices shared by the ALU-against-register and
// ALU-against-immediate opcode blocks.
const (
	aluADD = iota
	aluADC
	aluSUB
	aluSBC
	aluAND
	aluXOR
	aluOR
	aluCP
)

var aluNames = [8]string{"ADD", "ADC", "SUB", "SBC", "AND", "XOR", "OR", "CP"}

func (c *CPU) applyAlu(op uint8, x uint8) {
	switch op {
	case aluADD:
		c.aluAdd(x, 0)
	case aluADC:
		carry := uint8(0)
		if c.GetFlag(FlagC) {
			carry = 1
		}
		c.aluAdd(x, carry)
	case aluSUB:
		c.aluSub(x, 0, true)
	case aluSBC:
		borrow := uint8(0)
		if c.GetFlag(FlagC) {
			borrow = 1
		}
		c.aluSub(x, borrow, true)
	case aluAND:
		c.aluAnd(x)
	case aluXOR:
		c.aluXor(x)
	case aluOR:
		c.aluOr(x)
	case aluCP:
		c.aluSub(x, 0, false)
	}
}

func (c *CPU) opAluR8(op, src uint8) error {
	c.applyAlu(op, c.getR8(src))
	return nil
}

func (c *CPU) opAluD8(op uint8) error {
	c.applyAlu(op, c.fetch8())
	return nil
}

func (c *CPU) opCPL() error {
	c.State.A = ^c.State.A
	return nil
}

// --- control flow ---

func (c *CPU) opJpA16() error {
	c.State.PC = c.fetch16()
	return nil
}

func (c *CPU) opJpCCA16(cond uint8) error {
	addr := c.fetch16()
	if c.checkCond(cond) {
		c.State.PC = addr
	}
	return nil
}

func (c *CPU) opJpHL() error {
	c.State.PC = c.HL()
	return nil
}

func (c *CPU) opJrS8() error {
	disp := int8(c.fetch8())
	c.State.PC = uint16(int32(c.State.PC) + int32(disp))
	return nil
}

func (c *CPU) opJrCCS8(cond uint8) error {
	disp := int8(c.fetch8())
	if c.checkCond(cond) {
		c.State.PC = uint16(int32(c.State.PC) + int32(disp))
	}
	return nil
}

// --- stack ---

func (c *CPU) push16(v uint16) {
	c.State.SP -= 2
	c.Mem.Write8(c.State.SP, uint8(v))
	c.Mem.Write8(c.State.SP+1, uint8(v>>8))
}

func (c *CPU) pop16() uint16 {
	lo := c.Mem.Read8(c.State.SP)
	hi := c.Mem.Read8(c.State.SP + 1)
	c.State.SP += 2
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) opPushRp2(rp2 uint8) error {
	c.push16(c.getRP2(rp2))
	return nil
}

func (c *CPU) opPopRp2(rp2 uint8) error {
	c.setRP2(rp2, c.pop16())
	return nil
}

func (c *CPU) opCallA16() error {
	addr := c.fetch16()
	c.push16(c.State.PC)
	if c.Calls != nil {
		c.Calls.OnCall(c.State.PC)
	}
	c.State.PC = addr
	return nil
}

// opCallCCA16 always consumes the 16-bit immediate; only the push/jump is
// conditional, so pc stays in sync with the instruction stream either way.
func (c *CPU) opCallCCA16(cond uint8) error {
	addr := c.fetch16()
	if c.checkCond(cond) {
		c.push16(c.State.PC)
		if c.Calls != nil {
			c.Calls.OnCall(c.State.PC)
		}
		c.State.PC = addr
	}
	return nil
}

func (c *CPU) opRet() error {
	c.State.PC = c.pop16()
	if c.Calls != nil {
		c.Calls.OnReturn()
	}
	return nil
}

func (c *CPU) opRetCC(cond uint8) error {
	if c.checkCond(cond) {
		c.State.PC = c.pop16()
		if c.Calls != nil {
			c.Calls.OnReturn()
		}
	}
	return nil
}

func (c *CPU) opReti() error {
	c.State.PC = c.pop16()
	c.State.IME = true
	if c.Calls != nil {
		c.Calls.OnReturn()
	}
	return nil
}

func (c *CPU) opRst(vector uint8) error {
	c.push16(c.State.PC)
	c.State.PC = uint16(vector)
	return nil
}

// --- interrupts & halt ---

func (c *CPU) opDI() error { c.State.IME = false; return nil }
func (c *CPU) opEI() error { c.State.IME = true; return nil }

const lcdcAddr = 0xFF40
const lcdOnBit = 1 << 7

// opHalt suspends until the frame thread signals VBlank, unless IME is
// clear or the LCD is off, in which case there is nothing to wait for.
func (c *CPU) opHalt() error {
	c.State.Halted = true
	defer func() { c.State.Halted = false }()

	if !c.State.IME || c.Mem.Read8(lcdcAddr)&lcdOnBit == 0 {
		return nil
	}
	if c.Halt != nil {
		c.Halt.WaitForVBlankEdge()
		return nil
	}
	time.Sleep(16 * time.Millisecond)
	return nil
}

// --- 0xCB-prefixed bit/shift/rotate operations ---

const (
	cbRLC = iota
	cbRRC
	cbRL
	cbRR
	cbSLA
	cbSRA
	cbSWAP
	cbSRL
)

var cbGroupNames = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}

func rlcVal(v uint8) (uint8, bool) {
	carry := v&0x80 != 0
	nv := v << 1
	if carry {
		nv |= 1
	}
	return nv, carry
}

func rrcVal(v uint8) (uint8, bool) {
	carry := v&1 != 0
	nv := v >> 1
	if carry {
		nv |= 0x80
	}
	return nv, carry
}

func rlVal(v uint8, carryIn bool) (uint8, bool) {
	carry := v&0x80 != 0
	nv := v << 1
	if carryIn {
		nv |= 1
	}
	return nv, carry
}

func rrVal(v uint8, carryIn bool) (uint8, bool) {
	carry := v&1 != 0
	nv := v >> 1
	if carryIn {
		nv |= 0x80
	}
	return nv, carry
}

func slaVal(v uint8) (uint8, bool) {
	carry := v&0x80 != 0
	return v << 1, carry
}

func sraVal(v uint8) (uint8, bool) {
	carry := v&1 != 0
	return (v >> 1) | (v & 0x80), carry
}

func swapVal(v uint8) uint8 {
	return (v << 4) | (v >> 4)
}

func srlVal(v uint8) (uint8, bool) {
	carry := v&1 != 0
	return v >> 1, carry
}

func (c *CPU) opCbShift(group, r uint8) error {
	v := c.getR8(r)
	var nv uint8
	var carry bool
	switch group {
	case cbRLC:
		nv, carry = rlcVal(v)
	case cbRRC:
		nv, carry = rrcVal(v)
	case cbRL:
		nv, carry = rlVal(v, c.GetFlag(FlagC))
	case cbRR:
		nv, carry = rrVal(v, c.GetFlag(FlagC))
	case cbSLA:
		nv, carry = slaVal(v)
	case cbSRA:
		nv, carry = sraVal(v)
	case cbSWAP:
		nv, carry = swapVal(v), false
	case cbSRL:
		nv, carry = srlVal(v)
	}
	c.setR8(r, nv)
	c.SetFlag(FlagZ, nv == 0)
	c.SetFlag(FlagC, carry)
	return nil
}

func (c *CPU) opCbBit(bit, r uint8) error {
	v := c.getR8(r)
	c.SetFlag(FlagZ, v&(1<<bit) == 0)
	return nil
}

func (c *CPU) opCbRes(bit, r uint8) error {
	v := c.getR8(r)
	c.setR8(r, v&^(1<<bit))
	return nil
}

func (c *CPU) opCbSet(bit, r uint8) error {
	v := c.getR8(r)
	c.setR8(r, v|(1<<bit))
	return nil
}
