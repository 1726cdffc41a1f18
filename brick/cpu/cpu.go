// Package cpu implements the SM83 core.
package cpu

import (
	"errors"
	"fmt"

	"github.com/andrep/go-brick/brick/bit"
	"github.com/andrep/go-brick/brick/memory"
	"github.com/andrep/go-brick/brick/snapshot"
)

// ErrInvalidInstruction is latched when one of the eleven unassigned
// opcodes is fetched. The core freezes; only a reload clears it.
var ErrInvalidInstruction = errors.New("invalid instruction")

// Flag is one of the four flag bits in the high nibble of F.
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// interruptDispatchCycles is the cost of servicing an interrupt.
const interruptDispatchCycles = 20

// CPU holds the SM83 register file and control state.
type CPU struct {
	mem *memory.MMU

	a, f uint8
	b, c uint8
	d, e uint8
	h, l uint8
	sp   uint16
	pc   uint16

	ime     bool
	halted  bool
	stopped bool

	// eiPending arms IME after the instruction following EI.
	eiPending bool
	// haltBug suppresses the PC increment of the next fetch, reproducing
	// the double-read after HALT with IME=0 and a pending interrupt.
	haltBug bool

	fault         error
	currentOpcode uint8
}

// New creates a CPU attached to the bus, in post-boot state.
func New(mem *memory.MMU) *CPU {
	c := &CPU{mem: mem}
	c.Reset()
	return c
}

// Reset restores the registers to the DMG post-boot values (no boot ROM).
func (c *CPU) Reset() {
	c.a, c.f = 0x01, 0xB0
	c.b, c.c = 0x00, 0x13
	c.d, c.e = 0x00, 0xD8
	c.h, c.l = 0x01, 0x4D
	c.sp = 0xFFFE
	c.pc = 0x0100
	c.ime = false
	c.halted = false
	c.stopped = false
	c.eiPending = false
	c.haltBug = false
	c.fault = nil
}

// Fault returns the latched execution fault, if any.
func (c *CPU) Fault() error {
	return c.fault
}

// PC returns the program counter.
func (c *CPU) PC() uint16 {
	return c.pc
}

// Halted reports whether the CPU is sleeping in HALT.
func (c *CPU) Halted() bool {
	return c.halted
}

// Exec runs one instruction (or services one interrupt) and returns the
// consumed T-cycles. A faulted CPU only burns idle cycles.
func (c *CPU) Exec() int {
	if c.fault != nil {
		return 4
	}

	if c.halted {
		// HALT wakes on any pending interrupt, IME or not
		if c.mem.PendingInterrupts() == 0 {
			return 4
		}
		c.halted = false
	}

	if c.ime {
		if pending := c.mem.PendingInterrupts(); pending != 0 {
			return c.serviceInterrupt(pending)
		}
	}

	if c.stopped {
		// STOP ends on joypad input
		if c.mem.IF()&uint8(0x10) == 0 {
			return 4
		}
		c.stopped = false
	}

	eiWasPending := c.eiPending

	op := c.mem.Read(c.pc)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.pc++
	}
	c.currentOpcode = op

	cycles := opcodeTable[op](c)

	// EI takes effect after the instruction that follows it
	if eiWasPending && c.eiPending {
		c.eiPending = false
		c.ime = true
	}

	return cycles
}

// serviceInterrupt dispatches the lowest pending interrupt bit.
func (c *CPU) serviceInterrupt(pending uint8) int {
	var bitIndex uint8
	for bitIndex = 0; bitIndex < 5; bitIndex++ {
		if pending&(1<<bitIndex) != 0 {
			break
		}
	}

	c.mem.ClearInterrupt(bitIndex)
	c.ime = false
	c.pushStack(c.pc)
	c.pc = 0x0040 + uint16(bitIndex)*8
	return interruptDispatchCycles
}

func (c *CPU) invalidOpcode() int {
	c.fault = fmt.Errorf("%w: opcode 0x%02X at 0x%04X", ErrInvalidInstruction, c.currentOpcode, c.pc-1)
	return 4
}

// flag helpers

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

// register pair views

func (c *CPU) getAF() uint16 { return bit.Combine(c.a, c.f&0xF0) }
func (c *CPU) getBC() uint16 { return bit.Combine(c.b, c.c) }
func (c *CPU) getDE() uint16 { return bit.Combine(c.d, c.e) }
func (c *CPU) getHL() uint16 { return bit.Combine(c.h, c.l) }

func (c *CPU) setAF(v uint16) { c.a, c.f = bit.High(v), bit.Low(v)&0xF0 }
func (c *CPU) setBC(v uint16) { c.b, c.c = bit.High(v), bit.Low(v) }
func (c *CPU) setDE(v uint16) { c.d, c.e = bit.High(v), bit.Low(v) }
func (c *CPU) setHL(v uint16) { c.h, c.l = bit.High(v), bit.Low(v) }

// memory helpers

func (c *CPU) readImmediate() uint8 {
	v := c.mem.Read(c.pc)
	c.pc++
	return v
}

func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}

// Save appends the register file and control state.
func (c *CPU) Save(s *snapshot.State) {
	s.Write8(c.a)
	s.Write8(c.f)
	s.Write8(c.b)
	s.Write8(c.c)
	s.Write8(c.d)
	s.Write8(c.e)
	s.Write8(c.h)
	s.Write8(c.l)
	s.Write16(c.sp)
	s.Write16(c.pc)
	s.WriteBool(c.ime)
	s.WriteBool(c.halted)
	s.WriteBool(c.stopped)
	s.WriteBool(c.eiPending)
	s.WriteBool(c.haltBug)
}

// Load restores the register file and control state.
func (c *CPU) Load(s *snapshot.State) {
	c.a = s.Read8()
	c.f = s.Read8()
	c.b = s.Read8()
	c.c = s.Read8()
	c.d = s.Read8()
	c.e = s.Read8()
	c.h = s.Read8()
	c.l = s.Read8()
	c.sp = s.Read16()
	c.pc = s.Read16()
	c.ime = s.ReadBool()
	c.halted = s.ReadBool()
	c.stopped = s.ReadBool()
	c.eiPending = s.ReadBool()
	c.haltBug = s.ReadBool()
	c.fault = nil
}
