package memory

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cespare/xxhash"

	"github.com/andrep/go-brick/brick/snapshot"
)

// Cartridge loading errors.
var (
	// ErrUnsupportedCartridge is returned for cartridge type bytes that do
	// not map to a supported MBC.
	ErrUnsupportedCartridge = errors.New("unsupported cartridge type")
	// ErrMalformedHeader is returned when the ROM is too small, the header
	// checksum fails, or the declared ROM size disagrees with the data.
	ErrMalformedHeader = errors.New("malformed cartridge header")
	// ErrRAMSizeMismatch is returned by LoadRAM when the image length does
	// not match the cartridge declaration.
	ErrRAMSizeMismatch = errors.New("cartridge RAM size mismatch")
)

// Header field offsets.
const (
	titleAddress          = 0x134
	titleLength           = 11
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	headerChecksumAddress = 0x14D
	headerEnd             = 0x150
)

// MBCType identifies which bank controller family a cartridge carries.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC2Type
	MBC3Type
	MBC5Type
)

func (t MBCType) String() string {
	switch t {
	case NoMBCType:
		return "ROM"
	case MBC1Type:
		return "MBC1"
	case MBC2Type:
		return "MBC2"
	case MBC3Type:
		return "MBC3"
	case MBC5Type:
		return "MBC5"
	}
	return "unknown"
}

// Cartridge is a parsed ROM image plus its bank controller. ROM bytes are
// immutable after loading; all mutation goes through the MBC.
type Cartridge struct {
	rom []byte
	mbc MBC

	title      string
	cartType   uint8
	mbcType    MBCType
	romBanks   int
	ramBanks   int
	hasBattery bool
	hash       uint32
}

// cartFeatures decodes the cartridge type byte.
type cartFeatures struct {
	mbc     MBCType
	ram     bool
	battery bool
}

var cartTypes = map[uint8]cartFeatures{
	0x00: {mbc: NoMBCType},
	0x08: {mbc: NoMBCType, ram: true},
	0x09: {mbc: NoMBCType, ram: true, battery: true},
	0x01: {mbc: MBC1Type},
	0x02: {mbc: MBC1Type, ram: true},
	0x03: {mbc: MBC1Type, ram: true, battery: true},
	0x05: {mbc: MBC2Type, ram: true},
	0x06: {mbc: MBC2Type, ram: true, battery: true},
	0x0F: {mbc: MBC3Type, battery: true},
	0x10: {mbc: MBC3Type, ram: true, battery: true},
	0x11: {mbc: MBC3Type},
	0x12: {mbc: MBC3Type, ram: true},
	0x13: {mbc: MBC3Type, ram: true, battery: true},
	0x19: {mbc: MBC5Type},
	0x1A: {mbc: MBC5Type, ram: true},
	0x1B: {mbc: MBC5Type, ram: true, battery: true},
	0x1C: {mbc: MBC5Type},
	0x1D: {mbc: MBC5Type, ram: true},
	0x1E: {mbc: MBC5Type, ram: true, battery: true},
}

// ramBankCounts maps the RAM size code to 8 KiB bank counts.
var ramBankCounts = map[uint8]int{
	0x00: 0,
	0x01: 1, // 2 KiB carts exist; modelled as one full 8 KiB bank
	0x02: 1,
	0x03: 4,
	0x04: 16,
	0x05: 8,
}

// NewCartridge parses and validates a ROM image and builds the matching MBC.
func NewCartridge(rom []byte) (*Cartridge, error) {
	if len(rom) < headerEnd {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedHeader, len(rom))
	}

	var sum uint8
	for a := titleAddress; a < headerChecksumAddress; a++ {
		sum = sum - rom[a] - 1
	}
	if sum != rom[headerChecksumAddress] {
		return nil, fmt.Errorf("%w: header checksum 0x%02X, computed 0x%02X",
			ErrMalformedHeader, rom[headerChecksumAddress], sum)
	}

	features, ok := cartTypes[rom[cartridgeTypeAddress]]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnsupportedCartridge, rom[cartridgeTypeAddress])
	}

	romBanks := 2 << rom[romSizeAddress]
	if rom[romSizeAddress] > 0x08 || romBanks*romBankSize != len(rom) {
		return nil, fmt.Errorf("%w: size code 0x%02X for %d bytes",
			ErrMalformedHeader, rom[romSizeAddress], len(rom))
	}

	ramBanks := 0
	if features.ram && features.mbc != MBC2Type {
		ramBanks, ok = ramBankCounts[rom[ramSizeAddress]]
		if !ok {
			return nil, fmt.Errorf("%w: RAM size code 0x%02X",
				ErrMalformedHeader, rom[ramSizeAddress])
		}
	}

	title := strings.TrimRight(string(rom[titleAddress:titleAddress+titleLength]), "\x00 ")

	c := &Cartridge{
		rom:        rom,
		title:      title,
		cartType:   rom[cartridgeTypeAddress],
		mbcType:    features.mbc,
		romBanks:   romBanks,
		ramBanks:   ramBanks,
		hasBattery: features.battery,
		hash:       uint32(xxhash.Sum64(rom)),
	}

	switch features.mbc {
	case NoMBCType:
		c.mbc = NewNoMBC(rom, ramBanks)
	case MBC1Type:
		c.mbc = NewMBC1(rom, ramBanks)
	case MBC2Type:
		c.mbc = NewMBC2(rom)
	case MBC3Type:
		c.mbc = NewMBC3(rom, ramBanks)
	case MBC5Type:
		c.mbc = NewMBC5(rom, ramBanks)
	}

	slog.Debug("cartridge loaded",
		"title", c.title,
		"mbc", c.mbcType.String(),
		"romBanks", c.romBanks,
		"ramBanks", c.ramBanks,
		"battery", c.hasBattery,
		"hash", fmt.Sprintf("0x%08X", c.hash))

	return c, nil
}

// Title returns the trimmed header title.
func (c *Cartridge) Title() string { return c.title }

// Hash returns a stable 32-bit identity hash of the full ROM bytes.
func (c *Cartridge) Hash() uint32 { return c.hash }

// HasBattery reports whether cartridge RAM is battery backed.
func (c *Cartridge) HasBattery() bool { return c.hasBattery }

// RAMSize returns the external RAM size in bytes.
func (c *Cartridge) RAMSize() int { return len(c.mbc.RAM()) }

// Read dispatches a bus read in 0x0000-0x7FFF or 0xA000-0xBFFF to the MBC.
func (c *Cartridge) Read(address uint16) uint8 {
	return c.mbc.Read(address)
}

// Write dispatches a bus write to the MBC register map or external RAM.
func (c *Cartridge) Write(address uint16, value uint8) {
	c.mbc.Write(address, value)
}

// SaveRAM returns a copy of the external RAM image.
func (c *Cartridge) SaveRAM() []byte {
	ram := c.mbc.RAM()
	out := make([]byte, len(ram))
	copy(out, ram)
	return out
}

// LoadRAM replaces the external RAM image. The length must match the
// cartridge declaration exactly.
func (c *Cartridge) LoadRAM(data []byte) error {
	ram := c.mbc.RAM()
	if len(data) != len(ram) {
		return fmt.Errorf("%w: got %d bytes, cartridge has %d",
			ErrRAMSizeMismatch, len(data), len(ram))
	}
	copy(ram, data)
	return nil
}

// Reset clears the banking registers but keeps RAM contents, matching a
// power cycle of a battery-backed cartridge.
func (c *Cartridge) Reset() {
	c.mbc.Reset()
}

// Save appends the MBC banking state and RAM image.
func (c *Cartridge) Save(s *snapshot.State) {
	c.mbc.Save(s)
	ram := c.mbc.RAM()
	s.Write32(uint32(len(ram)))
	s.WriteData(ram)
}

// Load restores the MBC banking state and RAM image.
func (c *Cartridge) Load(s *snapshot.State) {
	c.mbc.Load(s)
	n := int(s.Read32())
	ram := c.mbc.RAM()
	if n == len(ram) {
		s.ReadData(ram)
	} else {
		skip := make([]byte, n)
		s.ReadData(skip)
	}
}
