package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoypadSelection(t *testing.T) {
	j := NewJoypad()

	// nothing selected: low nibble floats high
	j.Write(0x30)
	assert.Equal(t, uint8(0xFF), j.Read())

	j.Set(JoypadA, true)
	j.Set(JoypadDown, true)

	// buttons group (bit 5 low)
	j.Write(0x10)
	assert.Equal(t, uint8(0xDE), j.Read())

	// d-pad group (bit 4 low)
	j.Write(0x20)
	assert.Equal(t, uint8(0xE7), j.Read())

	// both groups: matrix AND
	j.Write(0x00)
	assert.Equal(t, uint8(0xC6), j.Read())
}

func TestJoypadInterruptOnFallingEdge(t *testing.T) {
	fired := 0
	j := NewJoypad()
	j.RequestInterrupt = func() { fired++ }

	j.Write(0x10) // select buttons

	j.Set(JoypadA, true)
	assert.Equal(t, 1, fired)

	// holding produces no further edges
	j.Set(JoypadA, true)
	assert.Equal(t, 1, fired)

	j.Set(JoypadA, false)
	assert.Equal(t, 1, fired, "release is a rising edge")

	// a line outside the selected group stays invisible
	j.Set(JoypadUp, true)
	assert.Equal(t, 1, fired)
}

func TestJoypadAnyPressed(t *testing.T) {
	j := NewJoypad()
	assert.False(t, j.AnyPressed())

	j.Set(JoypadStart, true)
	assert.True(t, j.AnyPressed())

	j.Set(JoypadStart, false)
	assert.False(t, j.AnyPressed())
}
