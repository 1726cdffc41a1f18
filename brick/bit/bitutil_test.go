package bit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	assert.Equal(t, uint16(0xABCD), Combine(0xAB, 0xCD))
	assert.Equal(t, uint16(0x00FF), Combine(0x00, 0xFF))
}

func TestSetResetValue(t *testing.T) {
	v := uint8(0)
	v = Set(3, v)
	assert.True(t, IsSet(3, v))
	assert.Equal(t, uint8(1), Value(3, v))

	v = Reset(3, v)
	assert.False(t, IsSet(3, v))
	assert.Equal(t, uint8(0), Value(3, v))
}

func TestHighLow(t *testing.T) {
	assert.Equal(t, uint8(0x12), High(0x1234))
	assert.Equal(t, uint8(0x34), Low(0x1234))
}

func TestExtract(t *testing.T) {
	assert.Equal(t, uint8(0b101), Extract(0b11010110, 6, 4))
	assert.Equal(t, uint8(0b11), Extract(0b11010110, 2, 1))
	assert.Equal(t, uint8(0b11010110), Extract(0b11010110, 7, 0))
}

func TestIsSet16(t *testing.T) {
	assert.True(t, IsSet16(9, 1<<9))
	assert.False(t, IsSet16(9, 1<<8))
}
