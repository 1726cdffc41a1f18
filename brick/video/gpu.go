package video

import (
	"github.com/andrep/go-brick/brick/addr"
	"github.com/andrep/go-brick/brick/bit"
	"github.com/andrep/go-brick/brick/snapshot"
)

// Mode is the PPU's current rendering stage, matching STAT bits 1-0.
type Mode uint8

const (
	// ModeHBlank (0): horizontal blank, CPU can access VRAM/OAM.
	ModeHBlank Mode = 0
	// ModeVBlank (1): vertical blank, lines 144-153.
	ModeVBlank Mode = 1
	// ModeOAMSearch (2): sprite selection, OAM is locked.
	ModeOAMSearch Mode = 2
	// ModeDrawing (3): pixel transfer, VRAM and OAM are locked.
	ModeDrawing Mode = 3
)

// Scanline timing in dots (T-cycles). Mode 3 is modelled with a constant
// duration; the SCX/window/sprite fetch penalties are not simulated.
const (
	oamSearchDots = 80
	drawingDots   = 172
	dotsPerLine   = 456

	visibleLines = 144
	totalLines   = 154

	maxSpritesPerLine = 10
	spriteCount       = 40
)

// LCDC bits.
const (
	lcdcBGEnable      = 0
	lcdcSpriteEnable  = 1
	lcdcSpriteSize    = 2
	lcdcBGTileMap     = 3
	lcdcTileData      = 4
	lcdcWindowEnable  = 5
	lcdcWindowTileMap = 6
	lcdcLCDEnable     = 7
)

// STAT bits.
const (
	statLYCFlag   = 2
	statHBlankIRQ = 3
	statVBlankIRQ = 4
	statOAMIRQ    = 5
	statLYCIRQ    = 6
)

// Sprite is one OAM entry, decoded for a scanline.
type Sprite struct {
	Y     int // top edge in screen space (OAM byte 0 minus 16)
	X     int // left edge in screen space (OAM byte 1 minus 8)
	Tile  uint8
	Flags uint8
	Index int // OAM slot, used for priority ties
}

// GPU is the picture processing unit. It owns VRAM, OAM and the LCD
// registers, so CPU access can be gated by the current mode without
// starving the renderer itself.
type GPU struct {
	vram [0x2000]uint8
	oam  [0xA0]uint8

	lcdc, stat             uint8
	scy, scx               uint8
	ly, lyc                uint8
	bgp, obp0, obp1        uint8
	wy, wx                 uint8

	mode       Mode
	dot        int // dots into the current scanline, 0-455
	windowLine int // internal window line counter
	statLine   bool
	frameReady bool
	frames     uint64

	framebuffer *FrameBuffer
	bgColor     [FramebufferWidth]uint8 // raw BG/window color numbers, pre-palette
	priority    spritePriorityBuffer
	lineSprites []Sprite

	requestInterrupt func(addr.Interrupt)
}

// NewGPU creates a PPU. The callback raises interrupts on the bus.
func NewGPU(requestInterrupt func(addr.Interrupt)) *GPU {
	g := &GPU{
		framebuffer:      NewFrameBuffer(),
		lineSprites:      make([]Sprite, 0, maxSpritesPerLine),
		requestInterrupt: requestInterrupt,
	}
	g.Reset()
	return g
}

// Reset restores the post-boot register state.
func (g *GPU) Reset() {
	g.lcdc = 0x91
	g.stat = 0x85
	g.scy, g.scx = 0, 0
	g.ly, g.lyc = 0, 0
	g.bgp = 0xFC
	g.obp0, g.obp1 = 0xFF, 0xFF
	g.wy, g.wx = 0, 0
	g.mode = Mode(g.stat & 0x03)
	g.dot = 0
	g.windowLine = 0
	g.statLine = false
	g.frameReady = false
	g.frames = 0
	g.lineSprites = g.lineSprites[:0]
	g.framebuffer.Clear()
}

// FrameBuffer returns the published frame. The PPU redraws it in place;
// the host reads between StepFor calls.
func (g *GPU) FrameBuffer() *FrameBuffer {
	return g.framebuffer
}

// ConsumeFrame reports and clears the frame-complete latch.
func (g *GPU) ConsumeFrame() bool {
	ready := g.frameReady
	g.frameReady = false
	return ready
}

// Frames returns the number of completed frames since reset.
func (g *GPU) Frames() uint64 {
	return g.frames
}

// Mode returns the current rendering stage.
func (g *GPU) Mode() Mode {
	return g.mode
}

// LY returns the current scanline.
func (g *GPU) LY() uint8 {
	return g.ly
}

func (g *GPU) lcdEnabled() bool {
	return bit.IsSet(lcdcLCDEnable, g.lcdc)
}

// Tick advances the PPU by the given number of dots.
func (g *GPU) Tick(cycles int) {
	if !g.lcdEnabled() {
		return
	}

	for range cycles {
		if g.dot == 0 {
			g.startLine()
		}
		g.dot++

		if g.ly < visibleLines {
			switch g.dot {
			case oamSearchDots:
				g.setMode(ModeDrawing)
			case oamSearchDots + drawingDots:
				g.renderScanline()
				g.setMode(ModeHBlank)
			}
		}

		if g.dot == dotsPerLine {
			g.dot = 0
			g.advanceLine()
		}
	}
}

// startLine enters the first mode of the scanline and refreshes the
// LY=LYC comparison.
func (g *GPU) startLine() {
	if g.ly < visibleLines {
		g.lineSprites = g.searchSprites(g.lineSprites[:0])
		g.setMode(ModeOAMSearch)
	} else {
		g.setMode(ModeVBlank)
	}
	g.compareLYC()
}

func (g *GPU) advanceLine() {
	g.ly++
	switch {
	case g.ly == visibleLines:
		g.frames++
		g.frameReady = true
		g.windowLine = 0
		g.requestInterrupt(addr.VBlankInterrupt)
	case g.ly == totalLines:
		g.ly = 0
	}
}

// setMode updates the mode bits in STAT and re-evaluates the STAT line.
func (g *GPU) setMode(mode Mode) {
	g.mode = mode
	g.stat = g.stat&0xFC | uint8(mode)
	g.updateSTATLine()
}

// compareLYC refreshes the coincidence flag and the STAT line.
func (g *GPU) compareLYC() {
	if g.ly == g.lyc {
		g.stat = bit.Set(statLYCFlag, g.stat)
	} else {
		g.stat = bit.Reset(statLYCFlag, g.stat)
	}
	g.updateSTATLine()
}

// updateSTATLine recomputes the shared STAT interrupt line. The interrupt
// fires only on a rising edge, so a condition that stays true cannot
// re-raise it.
func (g *GPU) updateSTATLine() {
	line := false
	switch g.mode {
	case ModeHBlank:
		line = bit.IsSet(statHBlankIRQ, g.stat)
	case ModeVBlank:
		line = bit.IsSet(statVBlankIRQ, g.stat)
	case ModeOAMSearch:
		line = bit.IsSet(statOAMIRQ, g.stat)
	}
	if bit.IsSet(statLYCFlag, g.stat) && bit.IsSet(statLYCIRQ, g.stat) {
		line = true
	}

	if line && !g.statLine {
		g.requestInterrupt(addr.LCDSTATInterrupt)
	}
	g.statLine = line
}

// searchSprites picks the first 10 sprites whose vertical span intersects
// LY, in OAM order. X position does not affect selection.
func (g *GPU) searchSprites(out []Sprite) []Sprite {
	height := 8
	if bit.IsSet(lcdcSpriteSize, g.lcdc) {
		height = 16
	}

	line := int(g.ly)
	for i := 0; i < spriteCount && len(out) < maxSpritesPerLine; i++ {
		base := i * 4
		y := int(g.oam[base]) - 16
		if line < y || line >= y+height {
			continue
		}
		out = append(out, Sprite{
			Y:     y,
			X:     int(g.oam[base+1]) - 8,
			Tile:  g.oam[base+2],
			Flags: g.oam[base+3],
			Index: i,
		})
	}
	return out
}

// LineSprites returns the sprites selected for the current scanline.
func (g *GPU) LineSprites() []Sprite {
	return g.lineSprites
}

func (g *GPU) renderScanline() {
	g.renderBackground()
	g.renderWindow()
	g.renderSprites()
}

// tileRow reads the two bitplane bytes of a tile row. Tile indexing is
// unsigned from 0x8000 or signed from 0x9000 per LCDC bit 4.
func (g *GPU) tileRow(tileIndex uint8, rowOffset uint16, signed bool) (low, high uint8) {
	var base uint16
	if signed {
		base = uint16(int(addr.TileData2) + int(int8(tileIndex))*16)
	} else {
		base = addr.TileData0 + uint16(tileIndex)*16
	}
	a := base + rowOffset - 0x8000
	return g.vram[a], g.vram[a+1]
}

func (g *GPU) renderBackground() {
	line := int(g.ly)
	if !bit.IsSet(lcdcBGEnable, g.lcdc) {
		// background off shows color 0 through BGP
		shade := g.bgp & 0x03
		for x := range FramebufferWidth {
			g.framebuffer.Set(x, line, shade)
			g.bgColor[x] = 0
		}
		return
	}

	signedTiles := !bit.IsSet(lcdcTileData, g.lcdc)
	tileMap := addr.TileMap0
	if bit.IsSet(lcdcBGTileMap, g.lcdc) {
		tileMap = addr.TileMap1
	}

	mapY := (line + int(g.scy)) & 0xFF
	mapRow := uint16(mapY/8) * 32
	rowOffset := uint16(mapY%8) * 2

	for x := range FramebufferWidth {
		mapX := (x + int(g.scx)) & 0xFF
		tileIndex := g.vram[tileMap+mapRow+uint16(mapX/8)-0x8000]
		low, high := g.tileRow(tileIndex, rowOffset, signedTiles)

		px := uint8(7 - mapX%8)
		color := bit.Value(px, low) | bit.Value(px, high)<<1

		g.bgColor[x] = color
		g.framebuffer.Set(x, line, (g.bgp>>(color*2))&0x03)
	}
}

func (g *GPU) renderWindow() {
	if !bit.IsSet(lcdcWindowEnable, g.lcdc) {
		return
	}
	line := int(g.ly)
	if int(g.wy) > line || g.wx > 166 {
		return
	}

	signedTiles := !bit.IsSet(lcdcTileData, g.lcdc)
	tileMap := addr.TileMap0
	if bit.IsSet(lcdcWindowTileMap, g.lcdc) {
		tileMap = addr.TileMap1
	}

	mapRow := uint16(g.windowLine/8) * 32
	rowOffset := uint16(g.windowLine%8) * 2
	startX := int(g.wx) - 7

	for x := max(startX, 0); x < FramebufferWidth; x++ {
		winX := x - startX
		tileIndex := g.vram[tileMap+mapRow+uint16(winX/8)-0x8000]
		low, high := g.tileRow(tileIndex, rowOffset, signedTiles)

		px := uint8(7 - winX%8)
		color := bit.Value(px, low) | bit.Value(px, high)<<1

		g.bgColor[x] = color
		g.framebuffer.Set(x, line, (g.bgp>>(color*2))&0x03)
	}

	g.windowLine++
}

func (g *GPU) renderSprites() {
	if !bit.IsSet(lcdcSpriteEnable, g.lcdc) {
		return
	}

	height := 8
	tileMask := uint8(0xFF)
	if bit.IsSet(lcdcSpriteSize, g.lcdc) {
		height = 16
		tileMask = 0xFE
	}

	// ownership pass: each sprite claims the pixels it covers, with
	// lower X / lower OAM index winning overlaps
	g.priority.clear()
	for _, sp := range g.lineSprites {
		for i := range 8 {
			g.priority.tryClaim(sp.X+i, sp.Index, sp.X)
		}
	}

	line := int(g.ly)
	for _, sp := range g.lineSprites {
		row := line - sp.Y
		if bit.IsSet(6, sp.Flags) { // Y flip
			row = height - 1 - row
		}

		tileAddr := uint16(sp.Tile&tileMask)*16 + uint16(row)*2
		low, high := g.vram[tileAddr], g.vram[tileAddr+1]

		palette := g.obp0
		if bit.IsSet(4, sp.Flags) {
			palette = g.obp1
		}
		behindBG := bit.IsSet(7, sp.Flags)

		for i := range 8 {
			x := sp.X + i
			if x < 0 || x >= FramebufferWidth {
				continue
			}
			if g.priority.owner(x) != sp.Index {
				continue
			}

			px := uint8(7 - i)
			if bit.IsSet(5, sp.Flags) { // X flip
				px = uint8(i)
			}
			color := bit.Value(px, low) | bit.Value(px, high)<<1
			if color == 0 {
				// color 0 is transparent for sprites
				continue
			}
			if behindBG && g.bgColor[x] != 0 {
				continue
			}

			g.framebuffer.Set(x, line, (palette>>(color*2))&0x03)
		}
	}
}

// vramAccessible reports whether the CPU may touch VRAM right now.
func (g *GPU) vramAccessible() bool {
	return !g.lcdEnabled() || g.mode != ModeDrawing
}

// oamAccessible reports whether the CPU may touch OAM right now.
func (g *GPU) oamAccessible() bool {
	return !g.lcdEnabled() || (g.mode != ModeOAMSearch && g.mode != ModeDrawing)
}

// CPURead handles bus reads routed to the PPU: VRAM, OAM and the LCD
// registers. Locked memory reads as 0xFF.
func (g *GPU) CPURead(address uint16) uint8 {
	switch {
	case address >= 0x8000 && address <= 0x9FFF:
		if !g.vramAccessible() {
			return 0xFF
		}
		return g.vram[address-0x8000]
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		if !g.oamAccessible() {
			return 0xFF
		}
		return g.oam[address-addr.OAMStart]
	}

	switch address {
	case addr.LCDC:
		return g.lcdc
	case addr.STAT:
		return 0x80 | g.stat
	case addr.SCY:
		return g.scy
	case addr.SCX:
		return g.scx
	case addr.LY:
		return g.ly
	case addr.LYC:
		return g.lyc
	case addr.BGP:
		return g.bgp
	case addr.OBP0:
		return g.obp0
	case addr.OBP1:
		return g.obp1
	case addr.WY:
		return g.wy
	case addr.WX:
		return g.wx
	}
	return 0xFF
}

// CPUWrite handles bus writes routed to the PPU. Writes to locked memory
// are dropped; LY is read-only.
func (g *GPU) CPUWrite(address uint16, value uint8) {
	switch {
	case address >= 0x8000 && address <= 0x9FFF:
		if g.vramAccessible() {
			g.vram[address-0x8000] = value
		}
		return
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		if g.oamAccessible() {
			g.oam[address-addr.OAMStart] = value
		}
		return
	}

	switch address {
	case addr.LCDC:
		wasEnabled := g.lcdEnabled()
		g.lcdc = value
		if wasEnabled && !g.lcdEnabled() {
			g.disableLCD()
		}
	case addr.STAT:
		// bits 0-2 are read-only status
		g.stat = (value & 0x78) | (g.stat & 0x07)
		g.updateSTATLine()
	case addr.SCY:
		g.scy = value
	case addr.SCX:
		g.scx = value
	case addr.LYC:
		g.lyc = value
		g.compareLYC()
	case addr.BGP:
		g.bgp = value
	case addr.OBP0:
		g.obp0 = value
	case addr.OBP1:
		g.obp1 = value
	case addr.WY:
		g.wy = value
	case addr.WX:
		g.wx = value
	}
}

// disableLCD resets the scan position; output is suppressed until the LCD
// is switched back on.
func (g *GPU) disableLCD() {
	g.ly = 0
	g.dot = 0
	g.windowLine = 0
	g.mode = ModeHBlank
	g.stat &= 0xFC
	g.updateSTATLine()
}

// WriteOAMDMA stores a byte into OAM, bypassing mode locking. Only the DMA
// engine uses this path.
func (g *GPU) WriteOAMDMA(index int, value uint8) {
	g.oam[index] = value
}

// Save appends the full PPU state.
func (g *GPU) Save(s *snapshot.State) {
	s.WriteData(g.vram[:])
	s.WriteData(g.oam[:])
	s.Write8(g.lcdc)
	s.Write8(g.stat)
	s.Write8(g.scy)
	s.Write8(g.scx)
	s.Write8(g.ly)
	s.Write8(g.lyc)
	s.Write8(g.bgp)
	s.Write8(g.obp0)
	s.Write8(g.obp1)
	s.Write8(g.wy)
	s.Write8(g.wx)
	s.Write8(uint8(g.mode))
	s.WriteInt(g.dot)
	s.WriteInt(g.windowLine)
	s.WriteBool(g.statLine)
	s.Write64(g.frames)
	g.framebuffer.Save(s)
}

// Load restores the full PPU state.
func (g *GPU) Load(s *snapshot.State) {
	s.ReadData(g.vram[:])
	s.ReadData(g.oam[:])
	g.lcdc = s.Read8()
	g.stat = s.Read8()
	g.scy = s.Read8()
	g.scx = s.Read8()
	g.ly = s.Read8()
	g.lyc = s.Read8()
	g.bgp = s.Read8()
	g.obp0 = s.Read8()
	g.obp1 = s.Read8()
	g.wy = s.Read8()
	g.wx = s.Read8()
	g.mode = Mode(s.Read8())
	g.dot = s.ReadInt()
	g.windowLine = s.ReadInt()
	g.statLine = s.ReadBool()
	g.frames = s.Read64()
	g.framebuffer.Load(s)
	g.frameReady = false
	g.lineSprites = g.lineSprites[:0]
}
