package memory

import (
	"github.com/andrep/go-brick/brick/addr"
	"github.com/andrep/go-brick/brick/bit"
	"github.com/andrep/go-brick/brick/snapshot"
)

// timaReloadCycles is the delay between a TIMA overflow and the reload from
// TMA. TIMA reads back 0x00 during the window.
const timaReloadCycles = 4

// Timer implements DIV/TIMA/TMA/TAC around a free-running 16-bit counter.
// TIMA is clocked by falling edges of the TAC-selected counter bit, so DIV
// resets and TAC changes can produce spurious increments; both are modelled
// here, as is the delayed TMA reload.
type Timer struct {
	counter uint16 // DIV is the upper 8 bits
	tima    uint8
	tma     uint8
	tac     uint8

	reloadCountdown int  // cycles until TIMA reloads from TMA, 0 = idle
	irqPending      bool // interrupt fires one tick batch after the reload

	// RequestInterrupt is wired to the MMU to raise the timer interrupt.
	RequestInterrupt func()
}

// SetSeed initializes the divider counter to its post-boot value.
func (t *Timer) SetSeed(seed uint16) {
	t.counter = seed
	t.reloadCountdown = 0
	t.irqPending = false
}

// input is the gated clock line feeding TIMA: the selected counter bit
// ANDed with the TAC enable.
func (t *Timer) input() bool {
	if t.tac&0x04 == 0 {
		return false
	}
	return bit.IsSet16(t.selectedBit(), t.counter)
}

func (t *Timer) selectedBit() uint {
	switch t.tac & 0x03 {
	case 0x00:
		return 9 // 4096 Hz
	case 0x01:
		return 3 // 262144 Hz
	case 0x02:
		return 5 // 65536 Hz
	default:
		return 7 // 16384 Hz
	}
}

// increment clocks TIMA once, entering the overflow window on wrap.
func (t *Timer) increment() {
	if t.reloadCountdown > 0 {
		// increments during the reload window are swallowed
		return
	}
	if t.tima == 0xFF {
		t.tima = 0x00
		t.reloadCountdown = timaReloadCycles
		return
	}
	t.tima++
}

// Tick advances the timer by the given number of T-cycles.
func (t *Timer) Tick(cycles int) {
	if t.irqPending {
		t.irqPending = false
		if t.RequestInterrupt != nil {
			t.RequestInterrupt()
		}
	}

	for range cycles {
		old := t.input()
		t.counter++

		if t.reloadCountdown > 0 {
			t.reloadCountdown--
			if t.reloadCountdown == 0 {
				t.tima = t.tma
				t.irqPending = true
			}
		}

		if old && !t.input() {
			t.increment()
		}
	}
}

// DIV returns the divider register value.
func (t *Timer) DIV() uint8 {
	return uint8(t.counter >> 8)
}

// Counter exposes the raw divider counter. The APU frame sequencer does not
// read it: the APU counts its own 8192-cycle steps, so a DIV write does not
// move the sequencer.
func (t *Timer) Counter() uint16 {
	return t.counter
}

func (t *Timer) Read(address uint16) uint8 {
	switch address {
	case addr.DIV:
		return t.DIV()
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return 0xF8 | (t.tac & 0x07)
	}
	return 0xFF
}

func (t *Timer) Write(address uint16, value uint8) {
	switch address {
	case addr.DIV:
		// resetting the counter can drop the selected bit from 1 to 0,
		// which clocks TIMA like any other falling edge
		old := t.input()
		t.counter = 0
		if old && !t.input() {
			t.increment()
		}
	case addr.TIMA:
		// a write during the reload window cancels the reload
		t.tima = value
		t.reloadCountdown = 0
	case addr.TMA:
		t.tma = value
	case addr.TAC:
		old := t.input()
		t.tac = value & 0x07
		if old && !t.input() {
			t.increment()
		}
	}
}

// Save appends the timer state.
func (t *Timer) Save(s *snapshot.State) {
	s.Write16(t.counter)
	s.Write8(t.tima)
	s.Write8(t.tma)
	s.Write8(t.tac)
	s.WriteInt(t.reloadCountdown)
	s.WriteBool(t.irqPending)
}

// Load restores the timer state.
func (t *Timer) Load(s *snapshot.State) {
	t.counter = s.Read16()
	t.tima = s.Read8()
	t.tma = s.Read8()
	t.tac = s.Read8()
	t.reloadCountdown = s.ReadInt()
	t.irqPending = s.ReadBool()
}
