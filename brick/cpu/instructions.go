package cpu

import "github.com/andrep/go-brick/brick/bit"

// stack

func (c *CPU) pushStack(v uint16) {
	c.sp--
	c.mem.Write(c.sp, bit.High(v))
	c.sp--
	c.mem.Write(c.sp, bit.Low(v))
}

func (c *CPU) popStack() uint16 {
	low := c.mem.Read(c.sp)
	c.sp++
	high := c.mem.Read(c.sp)
	c.sp++
	return bit.Combine(high, low)
}

// 8-bit inc/dec, carry untouched

func (c *CPU) inc(v uint8) uint8 {
	v++
	c.setFlagToCondition(zeroFlag, v == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, v&0x0F == 0x00)
	return v
}

func (c *CPU) dec(v uint8) uint8 {
	v--
	c.setFlagToCondition(zeroFlag, v == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, v&0x0F == 0x0F)
	return v
}

// accumulator arithmetic

func (c *CPU) addToA(value uint8) {
	a := c.a
	result := a + value

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0x0F)+(value&0x0F) > 0x0F)
	c.setFlagToCondition(carryFlag, uint16(a)+uint16(value) > 0xFF)

	c.a = result
}

func (c *CPU) adcToA(value uint8) {
	a := c.a
	carry := c.flagToBit(carryFlag)
	result := a + value + carry

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0x0F)+(value&0x0F)+carry > 0x0F)
	c.setFlagToCondition(carryFlag, uint16(a)+uint16(value)+uint16(carry) > 0xFF)

	c.a = result
}

func (c *CPU) subFromA(value uint8) {
	a := c.a
	result := a - value

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, a&0x0F < value&0x0F)
	c.setFlagToCondition(carryFlag, a < value)

	c.a = result
}

func (c *CPU) sbcFromA(value uint8) {
	a := c.a
	carry := c.flagToBit(carryFlag)
	result := a - value - carry

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, a&0x0F < (value&0x0F)+carry)
	c.setFlagToCondition(carryFlag, uint16(a) < uint16(value)+uint16(carry))

	c.a = result
}

func (c *CPU) andWithA(value uint8) {
	c.a &= value
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) xorWithA(value uint8) {
	c.a ^= value
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) orWithA(value uint8) {
	c.a |= value
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) compareA(value uint8) {
	a := c.a
	c.setFlagToCondition(zeroFlag, a == value)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, a&0x0F < value&0x0F)
	c.setFlagToCondition(carryFlag, a < value)
}

// 16-bit arithmetic

func (c *CPU) addToHL(value uint16) {
	hl := c.getHL()
	result := hl + value

	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (hl&0x0FFF)+(value&0x0FFF) > 0x0FFF)
	c.setFlagToCondition(carryFlag, uint32(hl)+uint32(value) > 0xFFFF)

	c.setHL(result)
}

// addSPOffset computes SP plus a signed immediate; flags come from the low
// byte addition. Shared by ADD SP,i8 and LD HL,SP+i8.
func (c *CPU) addSPOffset(offset int8) uint16 {
	sp := c.sp
	value := uint16(offset)
	result := sp + value

	c.resetFlag(zeroFlag)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (sp&0x0F)+(value&0x0F) > 0x0F)
	c.setFlagToCondition(carryFlag, (sp&0xFF)+(value&0xFF) > 0xFF)

	return result
}

// rotates on A (Z always cleared)

func (c *CPU) rlca() {
	carry := c.a >> 7
	c.a = c.a<<1 | carry
	c.f = 0
	c.setFlagToCondition(carryFlag, carry == 1)
}

func (c *CPU) rla() {
	carry := c.flagToBit(carryFlag)
	newCarry := c.a >> 7
	c.a = c.a<<1 | carry
	c.f = 0
	c.setFlagToCondition(carryFlag, newCarry == 1)
}

func (c *CPU) rrca() {
	carry := c.a & 1
	c.a = c.a>>1 | carry<<7
	c.f = 0
	c.setFlagToCondition(carryFlag, carry == 1)
}

func (c *CPU) rra() {
	carry := c.flagToBit(carryFlag)
	newCarry := c.a & 1
	c.a = c.a>>1 | carry<<7
	c.f = 0
	c.setFlagToCondition(carryFlag, newCarry == 1)
}

// CB rotates and shifts (Z computed from the result)

func (c *CPU) rlc(v uint8) uint8 {
	carry := v >> 7
	v = v<<1 | carry
	c.f = 0
	c.setFlagToCondition(zeroFlag, v == 0)
	c.setFlagToCondition(carryFlag, carry == 1)
	return v
}

func (c *CPU) rrc(v uint8) uint8 {
	carry := v & 1
	v = v>>1 | carry<<7
	c.f = 0
	c.setFlagToCondition(zeroFlag, v == 0)
	c.setFlagToCondition(carryFlag, carry == 1)
	return v
}

func (c *CPU) rl(v uint8) uint8 {
	carry := c.flagToBit(carryFlag)
	newCarry := v >> 7
	v = v<<1 | carry
	c.f = 0
	c.setFlagToCondition(zeroFlag, v == 0)
	c.setFlagToCondition(carryFlag, newCarry == 1)
	return v
}

func (c *CPU) rr(v uint8) uint8 {
	carry := c.flagToBit(carryFlag)
	newCarry := v & 1
	v = v>>1 | carry<<7
	c.f = 0
	c.setFlagToCondition(zeroFlag, v == 0)
	c.setFlagToCondition(carryFlag, newCarry == 1)
	return v
}

func (c *CPU) sla(v uint8) uint8 {
	carry := v >> 7
	v <<= 1
	c.f = 0
	c.setFlagToCondition(zeroFlag, v == 0)
	c.setFlagToCondition(carryFlag, carry == 1)
	return v
}

func (c *CPU) sra(v uint8) uint8 {
	carry := v & 1
	v = v>>1 | v&0x80
	c.f = 0
	c.setFlagToCondition(zeroFlag, v == 0)
	c.setFlagToCondition(carryFlag, carry == 1)
	return v
}

func (c *CPU) srl(v uint8) uint8 {
	carry := v & 1
	v >>= 1
	c.f = 0
	c.setFlagToCondition(zeroFlag, v == 0)
	c.setFlagToCondition(carryFlag, carry == 1)
	return v
}

func (c *CPU) swap(v uint8) uint8 {
	v = v<<4 | v>>4
	c.f = 0
	c.setFlagToCondition(zeroFlag, v == 0)
	return v
}

func (c *CPU) bitTest(index, v uint8) {
	c.setFlagToCondition(zeroFlag, !bit.IsSet(index, v))
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

// daa adjusts A to valid BCD after an add or subtract.
func (c *CPU) daa() {
	a := c.a
	carry := c.isSetFlag(carryFlag)

	if !c.isSetFlag(subFlag) {
		if carry || a > 0x99 {
			a += 0x60
			carry = true
		}
		if c.isSetFlag(halfCarryFlag) || a&0x0F > 0x09 {
			a += 0x06
		}
	} else {
		if carry {
			a -= 0x60
		}
		if c.isSetFlag(halfCarryFlag) {
			a -= 0x06
		}
	}

	c.a = a
	c.setFlagToCondition(zeroFlag, a == 0)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry)
}

// control flow

func (c *CPU) jumpRelative(condition bool) int {
	offset := int8(c.readImmediate())
	if !condition {
		return 8
	}
	c.pc = uint16(int32(c.pc) + int32(offset))
	return 12
}

func (c *CPU) jumpAbsolute(condition bool) int {
	target := c.readImmediateWord()
	if !condition {
		return 12
	}
	c.pc = target
	return 16
}

func (c *CPU) call(condition bool) int {
	target := c.readImmediateWord()
	if !condition {
		return 12
	}
	c.pushStack(c.pc)
	c.pc = target
	return 24
}

func (c *CPU) ret(condition bool) int {
	if !condition {
		return 8
	}
	c.pc = c.popStack()
	return 20
}

func (c *CPU) rst(vector uint16) int {
	c.pushStack(c.pc)
	c.pc = vector
	return 16
}
