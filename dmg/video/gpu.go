package video

import (
	"github.com/dcanelhas/go-dmg/dmg/addr"
	"github.com/dcanelhas/go-dmg/dmg/bit"
	"github.com/dcanelhas/go-dmg/dmg/memory"
)

// GpuMode is the PPU mode as exposed in STAT bits 0-1.
type GpuMode uint8

const (
	hblank GpuMode = iota
	vblank
	oamScan
	pixelTransfer
)

const (
	oamScanCycles       = 80
	pixelTransferCycles = 172
	hblankCycles        = 204
	scanlineCycles      = oamScanCycles + pixelTransferCycles + hblankCycles

	vblankStartLine = 144
	totalLines      = 154

	// FrameCycles is one full frame, 154 scanlines of 456 cycles.
	FrameCycles = scanlineCycles * totalLines
)

// STAT interrupt source enable bits.
const (
	statHBlankSource = 3
	statVBlankSource = 4
	statOAMSource    = 5
	statLYCSource    = 6
)

// GPU steps through the four PPU modes per scanline, renders at the end
// of pixel transfer and raises the V-Blank and STAT interrupts.
type GPU struct {
	memory      *memory.MMU
	framebuffer *FrameBuffer
	oam         *OAM

	mode   GpuMode
	line   int
	cycles int

	// windowLine counts rendered window lines, which pause when the
	// window is hidden instead of following LY
	windowLine int

	// offCycles accumulates time while the LCD is disabled so callers
	// waiting for a frame still get one per frame period
	offCycles int
}

func NewGpu(memory *memory.MMU) *GPU {
	g := &GPU{
		memory:      memory,
		framebuffer: NewFrameBuffer(),
		mode:        oamScan,
	}
	g.oam = NewOAM(memory)
	return g
}

// Framebuffer returns the most recently completed frame's pixels.
func (g *GPU) Framebuffer() *FrameBuffer {
	return g.framebuffer
}

// Mode returns the current PPU mode.
func (g *GPU) Mode() GpuMode {
	return g.mode
}

// Line returns the scanline currently being processed.
func (g *GPU) Line() int {
	return g.line
}

// Tick advances the PPU and reports whether a frame was completed.
func (g *GPU) Tick(cycles int) bool {
	if !bit.IsSet(7, g.memory.Read(addr.LCDC)) {
		return g.tickDisabled(cycles)
	}
	g.offCycles = 0
	g.cycles += cycles

	frameDone := false
	for {
		switch g.mode {
		case oamScan:
			if g.cycles < oamScanCycles {
				return frameDone
			}
			g.cycles -= oamScanCycles
			g.setMode(pixelTransfer)
		case pixelTransfer:
			if g.cycles < pixelTransferCycles {
				return frameDone
			}
			g.cycles -= pixelTransferCycles
			g.renderScanline()
			g.setMode(hblank)
		case hblank:
			if g.cycles < hblankCycles {
				return frameDone
			}
			g.cycles -= hblankCycles
			g.advanceLine()
			if g.line == vblankStartLine {
				g.setMode(vblank)
				g.memory.RequestInterrupt(addr.VBlankInterrupt)
				frameDone = true
			} else {
				g.setMode(oamScan)
			}
		case vblank:
			if g.cycles < scanlineCycles {
				return frameDone
			}
			g.cycles -= scanlineCycles
			g.advanceLine()
			if g.line == 0 {
				g.windowLine = 0
				g.setMode(oamScan)
			}
		}
	}
}

// tickDisabled keeps time while the LCD is off: the line counter holds
// at 0 and a blank frame is produced once per frame period.
func (g *GPU) tickDisabled(cycles int) bool {
	if g.line != 0 || g.cycles != 0 {
		g.line = 0
		g.cycles = 0
		g.windowLine = 0
		g.mode = hblank
		g.memory.Write(addr.LY, 0)
		g.writeModeBits()
	}

	g.offCycles += cycles
	if g.offCycles >= FrameCycles {
		g.offCycles -= FrameCycles
		g.framebuffer.Clear(White)
		return true
	}
	return false
}

func (g *GPU) advanceLine() {
	g.line = (g.line + 1) % totalLines
	g.memory.Write(addr.LY, uint8(g.line))
	g.compareLYC()
}

// setMode switches the PPU mode, updates STAT and fires the STAT
// interrupt when the new mode's source is enabled.
func (g *GPU) setMode(mode GpuMode) {
	g.mode = mode
	g.writeModeBits()

	stat := g.memory.Read(addr.STAT)
	var source uint8
	switch mode {
	case hblank:
		source = statHBlankSource
	case vblank:
		source = statVBlankSource
	case oamScan:
		source = statOAMSource
	default:
		return
	}
	if bit.IsSet(source, stat) {
		g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (g *GPU) writeModeBits() {
	stat := g.memory.Read(addr.STAT)
	stat = stat&0xFC | uint8(g.mode)
	g.memory.Write(addr.STAT, stat)
}

// compareLYC updates the STAT coincidence flag and fires the STAT
// interrupt on a match when the LYC source is enabled.
func (g *GPU) compareLYC() {
	stat := g.memory.Read(addr.STAT)
	match := uint8(g.line) == g.memory.Read(addr.LYC)

	if match {
		stat = bit.Set(2, stat)
	} else {
		stat = bit.Clear(2, stat)
	}
	g.memory.Write(addr.STAT, stat)

	if match && bit.IsSet(statLYCSource, stat) {
		g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (g *GPU) renderScanline() {
	if g.line >= FramebufferHeight {
		return
	}

	lcdc := g.memory.Read(addr.LCDC)

	// color indices before palette mapping, needed for the sprite
	// behind-background attribute
	var bgIndex [FramebufferWidth]uint8

	if bit.IsSet(0, lcdc) {
		g.drawBackground(lcdc, &bgIndex)
		if bit.IsSet(5, lcdc) {
			g.drawWindow(lcdc, &bgIndex)
		}
	} else {
		for x := 0; x < FramebufferWidth; x++ {
			g.framebuffer.SetPixel(x, g.line, White)
		}
	}

	if bit.IsSet(1, lcdc) {
		g.drawSprites(&bgIndex)
	}
}

func (g *GPU) drawBackground(lcdc uint8, bgIndex *[FramebufferWidth]uint8) {
	scy := g.memory.Read(addr.SCY)
	scx := g.memory.Read(addr.SCX)
	palette := g.memory.Read(addr.BGP)

	mapBase := addr.TileMap0
	if bit.IsSet(3, lcdc) {
		mapBase = addr.TileMap1
	}

	bgY := int(uint8(g.line) + scy)
	for x := 0; x < FramebufferWidth; x++ {
		bgX := int(uint8(x) + scx)

		tileNumber := g.memory.Read(mapBase + uint16(bgY/8*32+bgX/8))
		row := fetchTileRow(g.memory, tileDataAddress(lcdc, tileNumber), bgY%8)

		index := row.GetPixel(bgX % 8)
		bgIndex[x] = uint8(index)
		g.framebuffer.SetPixel(x, g.line, paletteShade(palette, index))
	}
}

func (g *GPU) drawWindow(lcdc uint8, bgIndex *[FramebufferWidth]uint8) {
	wy := int(g.memory.Read(addr.WY))
	wx := int(g.memory.Read(addr.WX)) - 7
	if g.line < wy || wx >= FramebufferWidth {
		return
	}
	palette := g.memory.Read(addr.BGP)

	mapBase := addr.TileMap0
	if bit.IsSet(6, lcdc) {
		mapBase = addr.TileMap1
	}

	winY := g.windowLine
	for x := max(wx, 0); x < FramebufferWidth; x++ {
		winX := x - wx

		tileNumber := g.memory.Read(mapBase + uint16(winY/8*32+winX/8))
		row := fetchTileRow(g.memory, tileDataAddress(lcdc, tileNumber), winY%8)

		index := row.GetPixel(winX % 8)
		bgIndex[x] = uint8(index)
		g.framebuffer.SetPixel(x, g.line, paletteShade(palette, index))
	}
	g.windowLine++
}

func (g *GPU) drawSprites(bgIndex *[FramebufferWidth]uint8) {
	obp0 := g.memory.Read(addr.OBP0)
	obp1 := g.memory.Read(addr.OBP1)

	for _, sprite := range g.oam.GetSpritesForScanline(g.line) {
		tileRow := sprite.tileRowFor(g.memory, g.line)

		palette := obp0
		if sprite.PaletteOBP1 {
			palette = obp1
		}

		for pixelX := 0; pixelX < 8; pixelX++ {
			screenX := sprite.X + pixelX
			if screenX < 0 || screenX >= FramebufferWidth {
				continue
			}
			// the mask only ever covers opaque pixels
			if !sprite.HasPriorityForPixel(pixelX) {
				continue
			}
			if sprite.BehindBG && bgIndex[screenX] != 0 {
				continue
			}

			index := sprite.pixelIndex(tileRow, pixelX)
			g.framebuffer.SetPixel(screenX, g.line, paletteShade(palette, index))
		}
	}
}

// tileDataAddress resolves a tile number to its pattern address, using
// unsigned addressing from 0x8000 or signed addressing around 0x9000
// depending on LCDC bit 4.
func tileDataAddress(lcdc, tileNumber uint8) uint16 {
	if bit.IsSet(4, lcdc) {
		return addr.TileData0 + uint16(tileNumber)*16
	}
	return uint16(0x9000 + int(int8(tileNumber))*16)
}

// paletteShade maps a 2-bit color index through a palette register.
func paletteShade(palette uint8, index int) Shade {
	return Shade((palette >> (index * 2)) & 0x03)
}
