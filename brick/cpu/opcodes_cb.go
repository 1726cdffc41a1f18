package cpu

import "github.com/andrep/go-brick/brick/bit"

// execCB runs a CB-prefixed opcode. The block is fully regular, so it is
// decoded from the bit pattern instead of a second 256-entry table:
//
//	bits 7-6 select the group (rotate/shift, BIT, RES, SET)
//	bits 5-3 select the sub-operation or bit index
//	bits 2-0 select the operand (B C D E H L (HL) A)
func (c *CPU) execCB(op uint8) int {
	group := op >> 6
	index := (op >> 3) & 0x07
	operand := op & 0x07

	value := c.getOperand(operand)

	switch group {
	case 0:
		switch index {
		case 0:
			value = c.rlc(value)
		case 1:
			value = c.rrc(value)
		case 2:
			value = c.rl(value)
		case 3:
			value = c.rr(value)
		case 4:
			value = c.sla(value)
		case 5:
			value = c.sra(value)
		case 6:
			value = c.swap(value)
		case 7:
			value = c.srl(value)
		}
		c.setOperand(operand, value)
	case 1:
		// BIT only reads its operand
		c.bitTest(index, value)
		if operand == operandHL {
			return 12
		}
		return 8
	case 2:
		c.setOperand(operand, bit.Reset(index, value))
	case 3:
		c.setOperand(operand, bit.Set(index, value))
	}

	if operand == operandHL {
		return 16
	}
	return 8
}
