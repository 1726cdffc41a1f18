package memory

import (
	"github.com/andrep/go-brick/brick/bit"
	"github.com/andrep/go-brick/brick/snapshot"
)

// JoypadKey identifies a button on the joypad.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Joypad models the P1 button matrix. Button lines are active-low: a set
// bit means released. The selection bits (4-5, also active-low) choose
// which nibble is visible on the low four bits of P1.
type Joypad struct {
	buttons uint8 // A, B, Select, Start on bits 0-3
	dpad    uint8 // Right, Left, Up, Down on bits 0-3
	selects uint8 // last written bits 4-5
	lower4  uint8 // last computed low nibble, for edge detection

	// RequestInterrupt is wired to the MMU to raise the joypad interrupt.
	RequestInterrupt func()
}

// NewJoypad creates a joypad with every button released.
func NewJoypad() *Joypad {
	return &Joypad{
		buttons: 0x0F,
		dpad:    0x0F,
		selects: 0x30,
		lower4:  0x0F,
	}
}

// Read computes P1 from the selection bits and current button state.
// Bits 6-7 always read as 1.
func (j *Joypad) Read() uint8 {
	return 0xC0 | j.selects | j.visibleLines()
}

// Write stores the selection bits; only bits 4-5 are writable.
func (j *Joypad) Write(value uint8) {
	j.selects = value & 0x30
	j.updateEdge()
}

func (j *Joypad) visibleLines() uint8 {
	selectDpad := !bit.IsSet(4, j.selects)
	selectButtons := !bit.IsSet(5, j.selects)

	switch {
	case selectDpad && selectButtons:
		return j.dpad & j.buttons & 0x0F
	case selectDpad:
		return j.dpad & 0x0F
	case selectButtons:
		return j.buttons & 0x0F
	default:
		return 0x0F
	}
}

// Set presses or releases a button and raises the joypad interrupt on any
// falling edge of a selected line.
func (j *Joypad) Set(key JoypadKey, pressed bool) {
	line := uint8(key) & 0x03
	dpad := key <= JoypadDown

	target := &j.buttons
	if dpad {
		target = &j.dpad
	}
	if pressed {
		*target = bit.Reset(line, *target)
	} else {
		*target = bit.Set(line, *target)
	}

	j.updateEdge()
}

// updateEdge recomputes the visible low nibble and fires the interrupt on
// any 1 -> 0 transition.
func (j *Joypad) updateEdge() {
	lines := j.visibleLines()
	falling := j.lower4 &^ lines
	j.lower4 = lines
	if falling != 0 && j.RequestInterrupt != nil {
		j.RequestInterrupt()
	}
}

// AnyPressed reports whether any button line is held, selected or not.
func (j *Joypad) AnyPressed() bool {
	return (j.buttons&0x0F) != 0x0F || (j.dpad&0x0F) != 0x0F
}

// Save appends the joypad state.
func (j *Joypad) Save(s *snapshot.State) {
	s.Write8(j.buttons)
	s.Write8(j.dpad)
	s.Write8(j.selects)
	s.Write8(j.lower4)
}

// Load restores the joypad state.
func (j *Joypad) Load(s *snapshot.State) {
	j.buttons = s.Read8()
	j.dpad = s.Read8()
	j.selects = s.Read8()
	j.lower4 = s.Read8()
}
