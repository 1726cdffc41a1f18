package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andrep/go-brick/brick/addr"
)

func TestTransferCapturesAndInterrupts(t *testing.T) {
	fired := 0
	p := NewPort(func() { fired++ })

	p.Write(addr.SB, 'P')
	p.Write(addr.SC, 0x81)

	// transfer in progress: start bit visible
	assert.Equal(t, byte(0xFF), p.Read(addr.SC))

	p.Tick(transferCycles)

	assert.Equal(t, 1, fired)
	assert.Equal(t, []byte{'P'}, p.Captured())
	// no peer: SB reads back all ones, start bit cleared
	assert.Equal(t, byte(0xFF), p.Read(addr.SB))
	assert.Equal(t, byte(0x7F), p.Read(addr.SC))
}

func TestExternalClockNeverCompletes(t *testing.T) {
	fired := 0
	p := NewPort(func() { fired++ })

	p.Write(addr.SB, 0x42)
	p.Write(addr.SC, 0x80) // start, external clock

	p.Tick(transferCycles * 10)
	assert.Equal(t, 0, fired)
	assert.Empty(t, p.Captured())
}

func TestPartialTickAccumulates(t *testing.T) {
	fired := 0
	p := NewPort(func() { fired++ })

	p.Write(addr.SB, 'A')
	p.Write(addr.SC, 0x81)

	p.Tick(transferCycles - 4)
	assert.Equal(t, 0, fired)
	p.Tick(4)
	assert.Equal(t, 1, fired)
}
