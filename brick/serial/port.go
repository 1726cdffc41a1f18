// Package serial models the link port with no peer attached.
package serial

import (
	"log/slog"

	"github.com/andrep/go-brick/brick/addr"
	"github.com/andrep/go-brick/brick/bit"
	"github.com/andrep/go-brick/brick/snapshot"
)

// transferCycles is the DMG internal-clock cost of shifting one byte
// (8 bits at 8192 Hz).
const transferCycles = 4096

// Port implements SB/SC with no link partner: outgoing bytes are captured
// and logged, incoming bits read as 1 (SB becomes 0xFF after a transfer).
// Test ROMs print their results this way, so the captured stream is exposed
// to the host.
type Port struct {
	irq func()

	sb, sc         byte
	transferActive bool
	countdown      int

	captured []byte
	line     []byte
	logger   *slog.Logger
}

// NewPort creates a disconnected serial port. The callback is invoked when
// a transfer completes and should raise the Serial interrupt.
func NewPort(irq func()) *Port {
	p := &Port{irq: irq, logger: slog.Default()}
	p.Reset()
	return p
}

// Reset returns the port to its power-on state. Captured output survives a
// reset so the host can still collect test ROM results.
func (p *Port) Reset() {
	p.sb = 0x00
	p.sc = 0x00
	p.transferActive = false
	p.countdown = 0
	p.line = p.line[:0]
}

func (p *Port) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return p.sb
	case addr.SC:
		// unused bits read as 1
		return p.sc | 0x7E
	}
	return 0xFF
}

func (p *Port) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		p.sb = value
	case addr.SC:
		p.sc = value & 0x81
		p.maybeStartTransfer()
	}
}

// Tick advances an active transfer by the given number of T-cycles.
func (p *Port) Tick(cycles int) {
	if !p.transferActive {
		return
	}
	p.countdown -= cycles
	if p.countdown <= 0 {
		p.completeTransfer()
	}
}

// Captured returns every byte sent out the port since construction.
func (p *Port) Captured() []byte {
	return p.captured
}

func (p *Port) maybeStartTransfer() {
	if p.transferActive {
		return
	}
	// a transfer starts on SC bit 7 (start) with bit 0 (internal clock);
	// with an external clock and no peer there is no clock, so nothing happens
	if !bit.IsSet(7, p.sc) || !bit.IsSet(0, p.sc) {
		return
	}

	b := p.sb
	p.captured = append(p.captured, b)
	if b == 0 || b == '\n' || b == '\r' {
		if len(p.line) > 0 {
			p.logger.Debug("serial", "line", string(p.line))
			p.line = p.line[:0]
		}
	} else {
		p.line = append(p.line, b)
	}

	p.transferActive = true
	p.countdown = transferCycles
}

func (p *Port) completeTransfer() {
	// no peer: all ones shift in
	p.sb = 0xFF
	p.sc = bit.Reset(7, p.sc)
	p.transferActive = false
	p.countdown = 0
	if p.irq != nil {
		p.irq()
	}
}

// Save appends the port state. Captured host-side output is not part of
// machine state and is excluded.
func (p *Port) Save(s *snapshot.State) {
	s.Write8(p.sb)
	s.Write8(p.sc)
	s.WriteBool(p.transferActive)
	s.WriteInt(p.countdown)
}

// Load restores the port state.
func (p *Port) Load(s *snapshot.State) {
	p.sb = s.Read8()
	p.sc = s.Read8()
	p.transferActive = s.ReadBool()
	p.countdown = s.ReadInt()
	p.line = p.line[:0]
}
