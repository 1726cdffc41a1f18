package cpu

import "github.com/andrep/go-brick/brick/bit"

// opcodeTable dispatches the primary opcode space. The regular LD and ALU
// blocks (0x40-0xBF) decode their register operands from the opcode bits;
// everything else has a dedicated handler.
var opcodeTable [256]func(*CPU) int

func init() {
	for op := range opcodeTable {
		opcodeTable[op] = explicitOpcodes[op]
	}
	for op := 0x40; op <= 0x7F; op++ {
		if op != 0x76 {
			opcodeTable[op] = opcodeLoadMatrix
		}
	}
	for op := 0x80; op <= 0xBF; op++ {
		opcodeTable[op] = opcodeALUMatrix
	}
}

// operand indices follow the SM83 encoding: B C D E H L (HL) A.
const operandHL = 6

func (c *CPU) getOperand(idx uint8) uint8 {
	switch idx {
	case 0:
		return c.b
	case 1:
		return c.c
	case 2:
		return c.d
	case 3:
		return c.e
	case 4:
		return c.h
	case 5:
		return c.l
	case operandHL:
		return c.mem.Read(c.getHL())
	default:
		return c.a
	}
}

func (c *CPU) setOperand(idx uint8, value uint8) {
	switch idx {
	case 0:
		c.b = value
	case 1:
		c.c = value
	case 2:
		c.d = value
	case 3:
		c.e = value
	case 4:
		c.h = value
	case 5:
		c.l = value
	case operandHL:
		c.mem.Write(c.getHL(), value)
	default:
		c.a = value
	}
}

// opcodeLoadMatrix handles LD r,r' for 0x40-0x7F (except HALT).
func opcodeLoadMatrix(c *CPU) int {
	dst := (c.currentOpcode >> 3) & 0x07
	src := c.currentOpcode & 0x07
	c.setOperand(dst, c.getOperand(src))
	if dst == operandHL || src == operandHL {
		return 8
	}
	return 4
}

// opcodeALUMatrix handles the 0x80-0xBF arithmetic block.
func opcodeALUMatrix(c *CPU) int {
	src := c.currentOpcode & 0x07
	value := c.getOperand(src)

	switch (c.currentOpcode >> 3) & 0x07 {
	case 0:
		c.addToA(value)
	case 1:
		c.adcToA(value)
	case 2:
		c.subFromA(value)
	case 3:
		c.sbcFromA(value)
	case 4:
		c.andWithA(value)
	case 5:
		c.xorWithA(value)
	case 6:
		c.orWithA(value)
	case 7:
		c.compareA(value)
	}

	if src == operandHL {
		return 8
	}
	return 4
}

var explicitOpcodes = [256]func(*CPU) int{
	0x00: opcode0x00, 0x01: opcode0x01, 0x02: opcode0x02, 0x03: opcode0x03,
	0x04: opcode0x04, 0x05: opcode0x05, 0x06: opcode0x06, 0x07: opcode0x07,
	0x08: opcode0x08, 0x09: opcode0x09, 0x0A: opcode0x0A, 0x0B: opcode0x0B,
	0x0C: opcode0x0C, 0x0D: opcode0x0D, 0x0E: opcode0x0E, 0x0F: opcode0x0F,
	0x10: opcode0x10, 0x11: opcode0x11, 0x12: opcode0x12, 0x13: opcode0x13,
	0x14: opcode0x14, 0x15: opcode0x15, 0x16: opcode0x16, 0x17: opcode0x17,
	0x18: opcode0x18, 0x19: opcode0x19, 0x1A: opcode0x1A, 0x1B: opcode0x1B,
	0x1C: opcode0x1C, 0x1D: opcode0x1D, 0x1E: opcode0x1E, 0x1F: opcode0x1F,
	0x20: opcode0x20, 0x21: opcode0x21, 0x22: opcode0x22, 0x23: opcode0x23,
	0x24: opcode0x24, 0x25: opcode0x25, 0x26: opcode0x26, 0x27: opcode0x27,
	0x28: opcode0x28, 0x29: opcode0x29, 0x2A: opcode0x2A, 0x2B: opcode0x2B,
	0x2C: opcode0x2C, 0x2D: opcode0x2D, 0x2E: opcode0x2E, 0x2F: opcode0x2F,
	0x30: opcode0x30, 0x31: opcode0x31, 0x32: opcode0x32, 0x33: opcode0x33,
	0x34: opcode0x34, 0x35: opcode0x35, 0x36: opcode0x36, 0x37: opcode0x37,
	0x38: opcode0x38, 0x39: opcode0x39, 0x3A: opcode0x3A, 0x3B: opcode0x3B,
	0x3C: opcode0x3C, 0x3D: opcode0x3D, 0x3E: opcode0x3E, 0x3F: opcode0x3F,
	0x76: opcode0x76,
	0xC0: opcode0xC0, 0xC1: opcode0xC1, 0xC2: opcode0xC2, 0xC3: opcode0xC3,
	0xC4: opcode0xC4, 0xC5: opcode0xC5, 0xC6: opcode0xC6, 0xC7: opcode0xC7,
	0xC8: opcode0xC8, 0xC9: opcode0xC9, 0xCA: opcode0xCA, 0xCB: opcode0xCB,
	0xCC: opcode0xCC, 0xCD: opcode0xCD, 0xCE: opcode0xCE, 0xCF: opcode0xCF,
	0xD0: opcode0xD0, 0xD1: opcode0xD1, 0xD2: opcode0xD2, 0xD3: opcodeInvalid,
	0xD4: opcode0xD4, 0xD5: opcode0xD5, 0xD6: opcode0xD6, 0xD7: opcode0xD7,
	0xD8: opcode0xD8, 0xD9: opcode0xD9, 0xDA: opcode0xDA, 0xDB: opcodeInvalid,
	0xDC: opcode0xDC, 0xDD: opcodeInvalid, 0xDE: opcode0xDE, 0xDF: opcode0xDF,
	0xE0: opcode0xE0, 0xE1: opcode0xE1, 0xE2: opcode0xE2, 0xE3: opcodeInvalid,
	0xE4: opcodeInvalid, 0xE5: opcode0xE5, 0xE6: opcode0xE6, 0xE7: opcode0xE7,
	0xE8: opcode0xE8, 0xE9: opcode0xE9, 0xEA: opcode0xEA, 0xEB: opcodeInvalid,
	0xEC: opcodeInvalid, 0xED: opcodeInvalid, 0xEE: opcode0xEE, 0xEF: opcode0xEF,
	0xF0: opcode0xF0, 0xF1: opcode0xF1, 0xF2: opcode0xF2, 0xF3: opcode0xF3,
	0xF4: opcodeInvalid, 0xF5: opcode0xF5, 0xF6: opcode0xF6, 0xF7: opcode0xF7,
	0xF8: opcode0xF8, 0xF9: opcode0xF9, 0xFA: opcode0xFA, 0xFB: opcode0xFB,
	0xFC: opcodeInvalid, 0xFD: opcodeInvalid, 0xFE: opcode0xFE, 0xFF: opcode0xFF,
}

func opcodeInvalid(c *CPU) int {
	return c.invalidOpcode()
}

// NOP
func opcode0x00(_ *CPU) int {
	return 4
}

// LD BC, d16
func opcode0x01(c *CPU) int {
	c.setBC(c.readImmediateWord())
	return 12
}

// LD (BC), A
func opcode0x02(c *CPU) int {
	c.mem.Write(c.getBC(), c.a)
	return 8
}

// INC BC
func opcode0x03(c *CPU) int {
	c.setBC(c.getBC() + 1)
	return 8
}

// INC B
func opcode0x04(c *CPU) int {
	c.b = c.inc(c.b)
	return 4
}

// DEC B
func opcode0x05(c *CPU) int {
	c.b = c.dec(c.b)
	return 4
}

// LD B, d8
func opcode0x06(c *CPU) int {
	c.b = c.readImmediate()
	return 8
}

// RLCA
func opcode0x07(c *CPU) int {
	c.rlca()
	return 4
}

// LD (a16), SP
func opcode0x08(c *CPU) int {
	target := c.readImmediateWord()
	c.mem.Write(target, bit.Low(c.sp))
	c.mem.Write(target+1, bit.High(c.sp))
	return 20
}

// ADD HL, BC
func opcode0x09(c *CPU) int {
	c.addToHL(c.getBC())
	return 8
}

// LD A, (BC)
func opcode0x0A(c *CPU) int {
	c.a = c.mem.Read(c.getBC())
	return 8
}

// DEC BC
func opcode0x0B(c *CPU) int {
	c.setBC(c.getBC() - 1)
	return 8
}

// INC C
func opcode0x0C(c *CPU) int {
	c.c = c.inc(c.c)
	return 4
}

// DEC C
func opcode0x0D(c *CPU) int {
	c.c = c.dec(c.c)
	return 4
}

// LD C, d8
func opcode0x0E(c *CPU) int {
	c.c = c.readImmediate()
	return 8
}

// RRCA
func opcode0x0F(c *CPU) int {
	c.rrca()
	return 4
}

// STOP
func opcode0x10(c *CPU) int {
	c.stopped = true
	c.readImmediate() // skip the padding byte
	return 4
}

// LD DE, d16
func opcode0x11(c *CPU) int {
	c.setDE(c.readImmediateWord())
	return 12
}

// LD (DE), A
func opcode0x12(c *CPU) int {
	c.mem.Write(c.getDE(), c.a)
	return 8
}

// INC DE
func opcode0x13(c *CPU) int {
	c.setDE(c.getDE() + 1)
	return 8
}

// INC D
func opcode0x14(c *CPU) int {
	c.d = c.inc(c.d)
	return 4
}

// DEC D
func opcode0x15(c *CPU) int {
	c.d = c.dec(c.d)
	return 4
}

// LD D, d8
func opcode0x16(c *CPU) int {
	c.d = c.readImmediate()
	return 8
}

// RLA
func opcode0x17(c *CPU) int {
	c.rla()
	return 4
}

// JR r8
func opcode0x18(c *CPU) int {
	return c.jumpRelative(true)
}

// ADD HL, DE
func opcode0x19(c *CPU) int {
	c.addToHL(c.getDE())
	return 8
}

// LD A, (DE)
func opcode0x1A(c *CPU) int {
	c.a = c.mem.Read(c.getDE())
	return 8
}

// DEC DE
func opcode0x1B(c *CPU) int {
	c.setDE(c.getDE() - 1)
	return 8
}

// INC E
func opcode0x1C(c *CPU) int {
	c.e = c.inc(c.e)
	return 4
}

// DEC E
func opcode0x1D(c *CPU) int {
	c.e = c.dec(c.e)
	return 4
}

// LD E, d8
func opcode0x1E(c *CPU) int {
	c.e = c.readImmediate()
	return 8
}

// RRA
func opcode0x1F(c *CPU) int {
	c.rra()
	return 4
}

// JR NZ, r8
func opcode0x20(c *CPU) int {
	return c.jumpRelative(!c.isSetFlag(zeroFlag))
}

// LD HL, d16
func opcode0x21(c *CPU) int {
	c.setHL(c.readImmediateWord())
	return 12
}

// LD (HL+), A
func opcode0x22(c *CPU) int {
	hl := c.getHL()
	c.mem.Write(hl, c.a)
	c.setHL(hl + 1)
	return 8
}

// INC HL
func opcode0x23(c *CPU) int {
	c.setHL(c.getHL() + 1)
	return 8
}

// INC H
func opcode0x24(c *CPU) int {
	c.h = c.inc(c.h)
	return 4
}

// DEC H
func opcode0x25(c *CPU) int {
	c.h = c.dec(c.h)
	return 4
}

// LD H, d8
func opcode0x26(c *CPU) int {
	c.h = c.readImmediate()
	return 8
}

// DAA
func opcode0x27(c *CPU) int {
	c.daa()
	return 4
}

// JR Z, r8
func opcode0x28(c *CPU) int {
	return c.jumpRelative(c.isSetFlag(zeroFlag))
}

// ADD HL, HL
func opcode0x29(c *CPU) int {
	c.addToHL(c.getHL())
	return 8
}

// LD A, (HL+)
func opcode0x2A(c *CPU) int {
	hl := c.getHL()
	c.a = c.mem.Read(hl)
	c.setHL(hl + 1)
	return 8
}

// DEC HL
func opcode0x2B(c *CPU) int {
	c.setHL(c.getHL() - 1)
	return 8
}

// INC L
func opcode0x2C(c *CPU) int {
	c.l = c.inc(c.l)
	return 4
}

// DEC L
func opcode0x2D(c *CPU) int {
	c.l = c.dec(c.l)
	return 4
}

// LD L, d8
func opcode0x2E(c *CPU) int {
	c.l = c.readImmediate()
	return 8
}

// CPL
func opcode0x2F(c *CPU) int {
	c.a = ^c.a
	c.setFlag(subFlag)
	c.setFlag(halfCarryFlag)
	return 4
}

// JR NC, r8
func opcode0x30(c *CPU) int {
	return c.jumpRelative(!c.isSetFlag(carryFlag))
}

// LD SP, d16
func opcode0x31(c *CPU) int {
	c.sp = c.readImmediateWord()
	return 12
}

// LD (HL-), A
func opcode0x32(c *CPU) int {
	hl := c.getHL()
	c.mem.Write(hl, c.a)
	c.setHL(hl - 1)
	return 8
}

// INC SP
func opcode0x33(c *CPU) int {
	c.sp++
	return 8
}

// INC (HL)
func opcode0x34(c *CPU) int {
	hl := c.getHL()
	c.mem.Write(hl, c.inc(c.mem.Read(hl)))
	return 12
}

// DEC (HL)
func opcode0x35(c *CPU) int {
	hl := c.getHL()
	c.mem.Write(hl, c.dec(c.mem.Read(hl)))
	return 12
}

// LD (HL), d8
func opcode0x36(c *CPU) int {
	c.mem.Write(c.getHL(), c.readImmediate())
	return 12
}

// SCF
func opcode0x37(c *CPU) int {
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlag(carryFlag)
	return 4
}

// JR C, r8
func opcode0x38(c *CPU) int {
	return c.jumpRelative(c.isSetFlag(carryFlag))
}

// ADD HL, SP
func opcode0x39(c *CPU) int {
	c.addToHL(c.sp)
	return 8
}

// LD A, (HL-)
func opcode0x3A(c *CPU) int {
	hl := c.getHL()
	c.a = c.mem.Read(hl)
	c.setHL(hl - 1)
	return 8
}

// DEC SP
func opcode0x3B(c *CPU) int {
	c.sp--
	return 8
}

// INC A
func opcode0x3C(c *CPU) int {
	c.a = c.inc(c.a)
	return 4
}

// DEC A
func opcode0x3D(c *CPU) int {
	c.a = c.dec(c.a)
	return 4
}

// LD A, d8
func opcode0x3E(c *CPU) int {
	c.a = c.readImmediate()
	return 8
}

// CCF
func opcode0x3F(c *CPU) int {
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, !c.isSetFlag(carryFlag))
	return 4
}

// HALT
func opcode0x76(c *CPU) int {
	if !c.ime && c.mem.PendingInterrupts() != 0 {
		// HALT bug: execution continues and the next opcode byte is
		// fetched twice
		c.haltBug = true
	} else {
		c.halted = true
	}
	return 4
}

// RET NZ
func opcode0xC0(c *CPU) int {
	return c.ret(!c.isSetFlag(zeroFlag))
}

// POP BC
func opcode0xC1(c *CPU) int {
	c.setBC(c.popStack())
	return 12
}

// JP NZ, a16
func opcode0xC2(c *CPU) int {
	return c.jumpAbsolute(!c.isSetFlag(zeroFlag))
}

// JP a16
func opcode0xC3(c *CPU) int {
	return c.jumpAbsolute(true)
}

// CALL NZ, a16
func opcode0xC4(c *CPU) int {
	return c.call(!c.isSetFlag(zeroFlag))
}

// PUSH BC
func opcode0xC5(c *CPU) int {
	c.pushStack(c.getBC())
	return 16
}

// ADD A, d8
func opcode0xC6(c *CPU) int {
	c.addToA(c.readImmediate())
	return 8
}

// RST 00H
func opcode0xC7(c *CPU) int {
	return c.rst(0x0000)
}

// RET Z
func opcode0xC8(c *CPU) int {
	return c.ret(c.isSetFlag(zeroFlag))
}

// RET
func opcode0xC9(c *CPU) int {
	c.pc = c.popStack()
	return 16
}

// JP Z, a16
func opcode0xCA(c *CPU) int {
	return c.jumpAbsolute(c.isSetFlag(zeroFlag))
}

// CB prefix
func opcode0xCB(c *CPU) int {
	return c.execCB(c.readImmediate())
}

// CALL Z, a16
func opcode0xCC(c *CPU) int {
	return c.call(c.isSetFlag(zeroFlag))
}

// CALL a16
func opcode0xCD(c *CPU) int {
	return c.call(true)
}

// ADC A, d8
func opcode0xCE(c *CPU) int {
	c.adcToA(c.readImmediate())
	return 8
}

// RST 08H
func opcode0xCF(c *CPU) int {
	return c.rst(0x0008)
}

// RET NC
func opcode0xD0(c *CPU) int {
	return c.ret(!c.isSetFlag(carryFlag))
}

// POP DE
func opcode0xD1(c *CPU) int {
	c.setDE(c.popStack())
	return 12
}

// JP NC, a16
func opcode0xD2(c *CPU) int {
	return c.jumpAbsolute(!c.isSetFlag(carryFlag))
}

// CALL NC, a16
func opcode0xD4(c *CPU) int {
	return c.call(!c.isSetFlag(carryFlag))
}

// PUSH DE
func opcode0xD5(c *CPU) int {
	c.pushStack(c.getDE())
	return 16
}

// SUB d8
func opcode0xD6(c *CPU) int {
	c.subFromA(c.readImmediate())
	return 8
}

// RST 10H
func opcode0xD7(c *CPU) int {
	return c.rst(0x0010)
}

// RET C
func opcode0xD8(c *CPU) int {
	return c.ret(c.isSetFlag(carryFlag))
}

// RETI
func opcode0xD9(c *CPU) int {
	c.pc = c.popStack()
	c.ime = true
	return 16
}

// JP C, a16
func opcode0xDA(c *CPU) int {
	return c.jumpAbsolute(c.isSetFlag(carryFlag))
}

// CALL C, a16
func opcode0xDC(c *CPU) int {
	return c.call(c.isSetFlag(carryFlag))
}

// SBC A, d8
func opcode0xDE(c *CPU) int {
	c.sbcFromA(c.readImmediate())
	return 8
}

// RST 18H
func opcode0xDF(c *CPU) int {
	return c.rst(0x0018)
}

// LDH (a8), A
func opcode0xE0(c *CPU) int {
	c.mem.Write(0xFF00+uint16(c.readImmediate()), c.a)
	return 12
}

// POP HL
func opcode0xE1(c *CPU) int {
	c.setHL(c.popStack())
	return 12
}

// LD (C), A
func opcode0xE2(c *CPU) int {
	c.mem.Write(0xFF00+uint16(c.c), c.a)
	return 8
}

// PUSH HL
func opcode0xE5(c *CPU) int {
	c.pushStack(c.getHL())
	return 16
}

// AND d8
func opcode0xE6(c *CPU) int {
	c.andWithA(c.readImmediate())
	return 8
}

// RST 20H
func opcode0xE7(c *CPU) int {
	return c.rst(0x0020)
}

// ADD SP, r8
func opcode0xE8(c *CPU) int {
	c.sp = c.addSPOffset(int8(c.readImmediate()))
	return 16
}

// JP (HL)
func opcode0xE9(c *CPU) int {
	c.pc = c.getHL()
	return 4
}

// LD (a16), A
func opcode0xEA(c *CPU) int {
	c.mem.Write(c.readImmediateWord(), c.a)
	return 16
}

// XOR d8
func opcode0xEE(c *CPU) int {
	c.xorWithA(c.readImmediate())
	return 8
}

// RST 28H
func opcode0xEF(c *CPU) int {
	return c.rst(0x0028)
}

// LDH A, (a8)
func opcode0xF0(c *CPU) int {
	c.a = c.mem.Read(0xFF00 + uint16(c.readImmediate()))
	return 12
}

// POP AF
func opcode0xF1(c *CPU) int {
	c.setAF(c.popStack())
	return 12
}

// LD A, (C)
func opcode0xF2(c *CPU) int {
	c.a = c.mem.Read(0xFF00 + uint16(c.c))
	return 8
}

// DI
func opcode0xF3(c *CPU) int {
	c.ime = false
	c.eiPending = false
	return 4
}

// PUSH AF
func opcode0xF5(c *CPU) int {
	c.pushStack(c.getAF())
	return 16
}

// OR d8
func opcode0xF6(c *CPU) int {
	c.orWithA(c.readImmediate())
	return 8
}

// RST 30H
func opcode0xF7(c *CPU) int {
	return c.rst(0x0030)
}

// LD HL, SP+r8
func opcode0xF8(c *CPU) int {
	c.setHL(c.addSPOffset(int8(c.readImmediate())))
	return 12
}

// LD SP, HL
func opcode0xF9(c *CPU) int {
	c.sp = c.getHL()
	return 8
}

// LD A, (a16)
func opcode0xFA(c *CPU) int {
	c.a = c.mem.Read(c.readImmediateWord())
	return 16
}

// EI
func opcode0xFB(c *CPU) int {
	c.eiPending = true
	return 4
}

// CP d8
func opcode0xFE(c *CPU) int {
	c.compareA(c.readImmediate())
	return 8
}

// RST 38H
func opcode0xFF(c *CPU) int {
	return c.rst(0x0038)
}
