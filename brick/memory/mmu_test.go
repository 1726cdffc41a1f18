package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrep/go-brick/brick/addr"
)

func newTestMMU(t *testing.T) *MMU {
	t.Helper()
	cart, err := NewCartridge(buildROM(t, 0x00, 0x00, 2))
	require.NoError(t, err)
	return NewWithCartridge(cart)
}

func TestWRAMAndEcho(t *testing.T) {
	m := newTestMMU(t)

	m.Write(0xC123, 0x42)
	assert.Equal(t, uint8(0x42), m.Read(0xC123))
	assert.Equal(t, uint8(0x42), m.Read(0xE123), "echo mirrors WRAM")

	m.Write(0xE200, 0x55)
	assert.Equal(t, uint8(0x55), m.Read(0xC200), "echo writes land in WRAM")
}

func TestProhibitedRegion(t *testing.T) {
	m := newTestMMU(t)

	for a := uint16(0xFEA0); a <= 0xFEFF; a++ {
		assert.Equal(t, uint8(0xFF), m.Read(a))
		m.Write(a, 0x12) // must be dropped silently
	}
	assert.Equal(t, uint8(0xFF), m.Read(0xFEA0))
}

func TestHRAM(t *testing.T) {
	m := newTestMMU(t)

	m.Write(0xFF80, 0xAA)
	m.Write(0xFFFE, 0xBB)
	assert.Equal(t, uint8(0xAA), m.Read(0xFF80))
	assert.Equal(t, uint8(0xBB), m.Read(0xFFFE))
}

func TestROMIsReadOnly(t *testing.T) {
	m := newTestMMU(t)

	before := m.Read(0x0150)
	m.Write(0x0150, before^0xFF)
	assert.Equal(t, before, m.Read(0x0150))
}

func TestInterruptRegisters(t *testing.T) {
	m := newTestMMU(t)

	m.Write(addr.IE, 0x1F)
	assert.Equal(t, uint8(0x1F), m.Read(addr.IE))

	m.Write(addr.IF, 0x00)
	assert.Equal(t, uint8(0xE0), m.Read(addr.IF), "unwired IF bits read as 1")

	m.RequestInterrupt(addr.TimerInterrupt)
	assert.Equal(t, uint8(0xE4), m.Read(addr.IF))
	assert.Equal(t, uint8(0x04), m.PendingInterrupts())

	m.ClearInterrupt(2)
	assert.Equal(t, uint8(0x00), m.PendingInterrupts())
}

func TestBootInterruptFlags(t *testing.T) {
	m := newTestMMU(t)
	assert.Equal(t, uint8(0xE1), m.Read(addr.IF))
	assert.Equal(t, uint8(0x00), m.Read(addr.IE))
}

func TestOAMDMA(t *testing.T) {
	m := newTestMMU(t)

	for i := uint16(0); i < 0xA0; i++ {
		m.Write(0xC000+i, uint8(i)+1)
	}

	m.Write(addr.DMA, 0xC0)
	require.True(t, m.DMAActive())

	// mid-transfer: everything but HRAM reads 0xFF
	m.Tick(80 * 4)
	assert.Equal(t, uint8(0xFF), m.Read(0xC000))
	assert.Equal(t, uint8(0xFF), m.Read(0xFE00))
	m.Write(0xFF80, 0x77)
	assert.Equal(t, uint8(0x77), m.Read(0xFF80), "HRAM stays reachable")

	// 160 machine cycles total
	m.Tick(80 * 4)
	assert.False(t, m.DMAActive())
	for i := uint16(0); i < 0xA0; i++ {
		assert.Equal(t, uint8(i)+1, m.Read(0xFE00+i))
	}
	assert.Equal(t, uint8(0xC0), m.Read(addr.DMA))
}

func TestReadWithoutCartridge(t *testing.T) {
	m := New()
	assert.Equal(t, uint8(0xFF), m.Read(0x0100))
	assert.Equal(t, uint8(0xFF), m.Read(0xA000))
}

func TestResetSeedsPostBootState(t *testing.T) {
	m := newTestMMU(t)

	m.Write(0xC000, 0x99)
	m.Write(addr.IE, 0x05)
	m.Tick(5000)
	m.Reset()

	assert.Equal(t, uint8(0x00), m.Read(0xC000))
	assert.Equal(t, uint8(0x00), m.Read(addr.IE))
	assert.Equal(t, uint8(0xE1), m.Read(addr.IF))
	assert.Equal(t, uint8(0xAB), m.Read(addr.DIV), "divider seed")
}
