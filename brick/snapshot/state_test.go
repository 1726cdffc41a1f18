package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	s := New()
	s.Write8(0xAB)
	s.Write16(0x1234)
	s.Write32(0xDEADBEEF)
	s.Write64(0x0102030405060708)
	s.WriteBool(true)
	s.WriteBool(false)
	s.WriteInt(-42)
	s.WriteData([]byte{1, 2, 3})
	s.WriteString("tetris")

	r := FromBytes(s.Bytes())
	assert.Equal(t, uint8(0xAB), r.Read8())
	assert.Equal(t, uint16(0x1234), r.Read16())
	assert.Equal(t, uint32(0xDEADBEEF), r.Read32())
	assert.Equal(t, uint64(0x0102030405060708), r.Read64())
	assert.True(t, r.ReadBool())
	assert.False(t, r.ReadBool())
	assert.Equal(t, -42, r.ReadInt())
	buf := make([]byte, 3)
	r.ReadData(buf)
	assert.Equal(t, []byte{1, 2, 3}, buf)
	assert.Equal(t, "tetris", r.ReadString())
	assert.NoError(t, r.Err())
}

func TestShortReadLatchesError(t *testing.T) {
	r := FromBytes([]byte{0x01})
	assert.Equal(t, uint8(1), r.Read8())
	assert.Equal(t, uint16(0), r.Read16())
	assert.ErrorIs(t, r.Err(), ErrShortData)

	// further reads stay zero, no panic
	assert.Equal(t, uint32(0), r.Read32())
}

func TestHeader(t *testing.T) {
	s := New()
	s.WriteHeader(0xCAFEBABE)

	version, hash, err := FromBytes(s.Bytes()).ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, Version, version)
	assert.Equal(t, uint32(0xCAFEBABE), hash)
}

func TestHeaderBadMagic(t *testing.T) {
	_, _, err := FromBytes([]byte("GBC1\x01\x00\x00\x00\x00\x00")).ReadHeader()
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestHeaderTruncated(t *testing.T) {
	_, _, err := FromBytes([]byte("DM")).ReadHeader()
	assert.ErrorIs(t, err, ErrShortData)
}
