package memory

import (
	"fmt"
	"log/slog"

	"github.com/andrep/go-brick/brick/addr"
	"github.com/andrep/go-brick/brick/audio"
	"github.com/andrep/go-brick/brick/serial"
	"github.com/andrep/go-brick/brick/snapshot"
	"github.com/andrep/go-brick/brick/video"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionHigh // 0xFF00-0xFFFF: I/O, HRAM, IE
)

// dmaCyclesPerByte is the OAM DMA copy rate: one byte per machine cycle.
const dmaCyclesPerByte = 4

// divSeed is the divider counter value right after the boot ROM hands off.
const divSeed = 0xABCC

// MMU arbitrates the 64 KiB address space. It owns work/high RAM and the
// interrupt registers and routes everything else to the cartridge, PPU,
// APU, timer, joypad and serial port.
type MMU struct {
	cart *Cartridge

	wram [0x2000]uint8
	hram [0x7F]uint8

	ifReg uint8
	ie    uint8

	regionMap [256]memRegion

	GPU    *video.GPU
	APU    *audio.APU
	Timer  Timer
	Joypad *Joypad
	Serial *serial.Port

	// OAM DMA engine. While a transfer runs, CPU reads outside HRAM
	// return 0xFF.
	dmaReg    uint8
	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int
	dmaCycles int
}

// New creates an MMU with no cartridge inserted.
func New() *MMU {
	m := &MMU{}
	m.GPU = video.NewGPU(m.RequestInterrupt)
	m.APU = audio.New()
	m.Joypad = NewJoypad()
	m.Serial = serial.NewPort(func() { m.RequestInterrupt(addr.SerialInterrupt) })
	m.Timer.RequestInterrupt = func() { m.RequestInterrupt(addr.TimerInterrupt) }
	m.Joypad.RequestInterrupt = func() { m.RequestInterrupt(addr.JoypadInterrupt) }
	m.initRegionMap()
	m.Reset()
	return m
}

// NewWithCartridge creates an MMU with the cartridge inserted.
func NewWithCartridge(cart *Cartridge) *MMU {
	m := New()
	m.cart = cart
	return m
}

// Cartridge returns the inserted cartridge, or nil.
func (m *MMU) Cartridge() *Cartridge {
	return m.cart
}

// Reset restores the post-boot state of everything behind the bus except
// cartridge RAM contents.
func (m *MMU) Reset() {
	m.wram = [0x2000]uint8{}
	m.hram = [0x7F]uint8{}
	m.ifReg = 0xE1
	m.ie = 0x00
	m.dmaReg = 0xFF
	m.dmaActive = false
	m.dmaSrc = 0
	m.dmaIndex = 0
	m.dmaCycles = 0
	m.Timer = Timer{RequestInterrupt: m.Timer.RequestInterrupt}
	m.Timer.SetSeed(divSeed)
	*m.Joypad = *NewJoypad()
	m.Joypad.RequestInterrupt = func() { m.RequestInterrupt(addr.JoypadInterrupt) }
	m.Serial.Reset()
	m.GPU.Reset()
	m.APU.Reset()
	if m.cart != nil {
		m.cart.Reset()
	}
}

func (m *MMU) initRegionMap() {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	m.regionMap[0xFE] = regionOAM
	m.regionMap[0xFF] = regionHigh
}

// RequestInterrupt sets the interrupt's bit in IF.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.ifReg |= uint8(interrupt)
}

// Tick advances the bus-resident peripherals: timer, serial and a running
// OAM DMA transfer.
func (m *MMU) Tick(cycles int) {
	m.Timer.Tick(cycles)
	m.Serial.Tick(cycles)
	m.tickDMA(cycles)
}

func (m *MMU) tickDMA(cycles int) {
	if !m.dmaActive {
		return
	}
	m.dmaCycles += cycles
	for m.dmaCycles >= dmaCyclesPerByte && m.dmaIndex < 0xA0 {
		m.dmaCycles -= dmaCyclesPerByte
		m.GPU.WriteOAMDMA(m.dmaIndex, m.readInternal(m.dmaSrc+uint16(m.dmaIndex)))
		m.dmaIndex++
	}
	if m.dmaIndex >= 0xA0 {
		m.dmaActive = false
		m.dmaCycles = 0
	}
}

// DMAActive reports whether an OAM DMA transfer is running.
func (m *MMU) DMAActive() bool {
	return m.dmaActive
}

// Read returns the byte at the given bus address. During OAM DMA only HRAM,
// IE and the DMA register are reachable; everything else reads as 0xFF.
func (m *MMU) Read(address uint16) uint8 {
	if m.dmaActive && (address < 0xFF80 || address == addr.DMA) {
		if address == addr.DMA {
			return m.dmaReg
		}
		return 0xFF
	}
	return m.readInternal(address)
}

// readInternal reads without DMA gating; the DMA engine itself uses it to
// fetch source bytes.
func (m *MMU) readInternal(address uint16) uint8 {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.cart == nil {
			return 0xFF
		}
		return m.cart.Read(address)
	case regionVRAM:
		return m.GPU.CPURead(address)
	case regionWRAM:
		return m.wram[address-0xC000]
	case regionEcho:
		return m.wram[address-0xE000]
	case regionOAM:
		if address <= addr.OAMEnd {
			return m.GPU.CPURead(address)
		}
		// 0xFEA0-0xFEFF is prohibited
		return 0xFF
	default:
		return m.readHigh(address)
	}
}

func (m *MMU) readHigh(address uint16) uint8 {
	switch {
	case address == addr.IE:
		return m.ie
	case address >= 0xFF80:
		return m.hram[address-0xFF80]
	case address == addr.P1:
		return m.Joypad.Read()
	case address == addr.SB || address == addr.SC:
		return m.Serial.Read(address)
	case address >= addr.DIV && address <= addr.TAC:
		return m.Timer.Read(address)
	case address == addr.IF:
		// upper three bits are unwired and read as 1
		return m.ifReg | 0xE0
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		return m.APU.ReadRegister(address)
	case address == addr.DMA:
		return m.dmaReg
	case address >= addr.LCDC && address <= addr.WX:
		return m.GPU.CPURead(address)
	default:
		return 0xFF
	}
}

// Write stores the byte at the given bus address.
func (m *MMU) Write(address uint16, value uint8) {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.cart == nil {
			slog.Warn("write with no cartridge", "addr", fmt.Sprintf("0x%04X", address))
			return
		}
		m.cart.Write(address, value)
	case regionVRAM:
		m.GPU.CPUWrite(address, value)
	case regionWRAM:
		m.wram[address-0xC000] = value
	case regionEcho:
		m.wram[address-0xE000] = value
	case regionOAM:
		if address <= addr.OAMEnd {
			m.GPU.CPUWrite(address, value)
		}
		// prohibited region writes are dropped
	default:
		m.writeHigh(address, value)
	}
}

func (m *MMU) writeHigh(address uint16, value uint8) {
	switch {
	case address == addr.IE:
		m.ie = value
	case address >= 0xFF80:
		m.hram[address-0xFF80] = value
	case address == addr.P1:
		m.Joypad.Write(value)
	case address == addr.SB || address == addr.SC:
		m.Serial.Write(address, value)
	case address >= addr.DIV && address <= addr.TAC:
		m.Timer.Write(address, value)
	case address == addr.IF:
		m.ifReg = value & 0x1F
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		m.APU.WriteRegister(address, value)
	case address == addr.DMA:
		m.dmaReg = value
		m.dmaActive = true
		m.dmaSrc = uint16(value) << 8
		m.dmaIndex = 0
		m.dmaCycles = 0
	case address >= addr.LCDC && address <= addr.WX:
		m.GPU.CPUWrite(address, value)
	}
}

// IF returns the raw interrupt request bits.
func (m *MMU) IF() uint8 { return m.ifReg }

// IE returns the interrupt enable bits.
func (m *MMU) IE() uint8 { return m.ie }

// PendingInterrupts returns the enabled-and-requested interrupt bits.
func (m *MMU) PendingInterrupts() uint8 {
	return m.ie & m.ifReg & 0x1F
}

// ClearInterrupt acknowledges one interrupt bit.
func (m *MMU) ClearInterrupt(interruptBit uint8) {
	m.ifReg &^= 1 << interruptBit
}

// Save appends the bus state: RAMs, interrupt registers, DMA engine and
// the bus-resident peripherals. The PPU, APU and CPU serialize separately.
func (m *MMU) Save(s *snapshot.State) {
	s.WriteData(m.wram[:])
	s.WriteData(m.hram[:])
	s.Write8(m.ifReg)
	s.Write8(m.ie)
	s.Write8(m.dmaReg)
	s.WriteBool(m.dmaActive)
	s.Write16(m.dmaSrc)
	s.WriteInt(m.dmaIndex)
	s.WriteInt(m.dmaCycles)
	m.Timer.Save(s)
	m.Joypad.Save(s)
	m.Serial.Save(s)
	if m.cart != nil {
		m.cart.Save(s)
	}
}

// Load restores the bus state.
func (m *MMU) Load(s *snapshot.State) {
	s.ReadData(m.wram[:])
	s.ReadData(m.hram[:])
	m.ifReg = s.Read8()
	m.ie = s.Read8()
	m.dmaReg = s.Read8()
	m.dmaActive = s.ReadBool()
	m.dmaSrc = s.Read16()
	m.dmaIndex = s.ReadInt()
	m.dmaCycles = s.ReadInt()
	m.Timer.Load(s)
	m.Joypad.Load(s)
	m.Serial.Load(s)
	if m.cart != nil {
		m.cart.Load(s)
	}
}
