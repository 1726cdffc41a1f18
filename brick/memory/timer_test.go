package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andrep/go-brick/brick/addr"
	"github.com/andrep/go-brick/brick/timing"
)

func newTestTimer() (*Timer, *int) {
	fired := 0
	t := &Timer{}
	t.RequestInterrupt = func() { fired++ }
	return t, &fired
}

func TestDIVCountsAt16384Hz(t *testing.T) {
	tm, _ := newTestTimer()

	tm.Tick(255)
	assert.Equal(t, uint8(0), tm.Read(addr.DIV))
	tm.Tick(1)
	assert.Equal(t, uint8(1), tm.Read(addr.DIV))
	tm.Tick(256 * 9)
	assert.Equal(t, uint8(10), tm.Read(addr.DIV))
}

func TestDIVWriteResetsCounter(t *testing.T) {
	tm, _ := newTestTimer()

	tm.Tick(0x1234)
	tm.Write(addr.DIV, 0xAB) // value is ignored, counter resets
	assert.Equal(t, uint8(0), tm.Read(addr.DIV))
	assert.Equal(t, uint16(0), tm.Counter())
}

func TestDIVWriteSpuriousEdge(t *testing.T) {
	tm, _ := newTestTimer()
	tm.Write(addr.TAC, 0x05) // enabled, bit 3

	// bring the selected bit high, then reset DIV: the 1 -> 0 transition
	// must clock TIMA exactly once
	tm.Tick(8)
	assert.Equal(t, uint8(0), tm.Read(addr.TIMA))
	tm.Write(addr.DIV, 0x00)
	assert.Equal(t, uint8(1), tm.Read(addr.TIMA))

	// with the bit low, a DIV reset does nothing
	tm.Write(addr.DIV, 0x00)
	assert.Equal(t, uint8(1), tm.Read(addr.TIMA))
}

func TestTACWriteSpuriousEdge(t *testing.T) {
	tm, _ := newTestTimer()
	tm.Write(addr.TAC, 0x05)
	tm.Tick(8) // selected bit (3) high

	// disabling the timer drops the gated input from 1 to 0
	tm.Write(addr.TAC, 0x00)
	assert.Equal(t, uint8(1), tm.Read(addr.TIMA))
}

func TestTIMAFrequencies(t *testing.T) {
	cases := []struct {
		tac       uint8
		increment int // T-cycles per TIMA increment
	}{
		{0x04, 1024}, // 4096 Hz
		{0x05, 16},   // 262144 Hz
		{0x06, 64},   // 65536 Hz
		{0x07, 256},  // 16384 Hz
	}
	for _, tc := range cases {
		tm, _ := newTestTimer()
		tm.Write(addr.TAC, tc.tac)
		tm.Tick(tc.increment * 10)
		assert.Equal(t, uint8(10), tm.Read(addr.TIMA), "TAC=0x%02X", tc.tac)
	}
}

func TestTIMAOverflowReloadsFromTMA(t *testing.T) {
	tm, fired := newTestTimer()
	tm.Write(addr.TAC, 0x05)
	tm.Write(addr.TMA, 0x80)
	tm.Write(addr.TIMA, 0xFF)

	// drive one increment: 16 cycles with bit 3
	tm.Tick(16)
	// overflow window: TIMA reads 0 for one machine cycle
	assert.Equal(t, uint8(0x00), tm.Read(addr.TIMA))
	assert.Equal(t, 0, *fired)

	tm.Tick(4)
	assert.Equal(t, uint8(0x80), tm.Read(addr.TIMA))
	tm.Tick(4)
	assert.Equal(t, 1, *fired)
}

func TestTIMAWriteCancelsReload(t *testing.T) {
	tm, fired := newTestTimer()
	tm.Write(addr.TAC, 0x05)
	tm.Write(addr.TMA, 0x80)
	tm.Write(addr.TIMA, 0xFF)
	tm.Tick(16)
	assert.Equal(t, uint8(0x00), tm.Read(addr.TIMA))

	tm.Write(addr.TIMA, 0x42)
	tm.Tick(8)
	assert.Equal(t, uint8(0x42), tm.Read(addr.TIMA))
	assert.Equal(t, 0, *fired)
}

// TestTIMARate covers the 262144 Hz property: over one simulated second
// the timer must overflow 262144/256 times, within one.
func TestTIMARate(t *testing.T) {
	tm, fired := newTestTimer()
	tm.Write(addr.TAC, 0x05)
	tm.Write(addr.TMA, 0x00)

	for i := 0; i < timing.CPUFrequency; i += 1024 {
		tm.Tick(1024)
	}
	assert.InDelta(t, 262144/256, *fired, 1)
}

func TestTACReadMask(t *testing.T) {
	tm, _ := newTestTimer()
	tm.Write(addr.TAC, 0x05)
	assert.Equal(t, uint8(0xFD), tm.Read(addr.TAC))
}
