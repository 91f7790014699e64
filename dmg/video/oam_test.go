package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dcanelhas/go-dmg/dmg/addr"
)

// fakeBus is a flat 64KB memory for OAM tests.
type fakeBus struct {
	mem [0x10000]byte
}

func (b *fakeBus) Read(addr uint16) byte { return b.mem[addr] }

func (b *fakeBus) setSprite(index int, y, x, tile, flags byte) {
	base := addr.OAMStart + uint16(index*4)
	b.mem[base] = y
	b.mem[base+1] = x
	b.mem[base+2] = tile
	b.mem[base+3] = flags
}

// fillTile makes every pixel of a tile opaque (color 1).
func (b *fakeBus) fillTile(tile byte) {
	base := addr.TileData0 + uint16(tile)*16
	for i := uint16(0); i < 16; i += 2 {
		b.mem[base+i] = 0xFF
	}
}

func TestScanlineSpriteSelection(t *testing.T) {
	bus := &fakeBus{}
	oam := NewOAM(bus)

	bus.setSprite(0, 16, 8, 1, 0)  // covers lines 0-7
	bus.setSprite(1, 30, 8, 2, 0)  // covers lines 14-21
	bus.setSprite(2, 160, 8, 3, 0) // covers lines 144-151, off screen

	sprites := oam.GetSpritesForScanline(0)
	assert.Len(t, sprites, 1)
	assert.Equal(t, 0, sprites[0].OAMIndex)

	sprites = oam.GetSpritesForScanline(14)
	assert.Len(t, sprites, 1)
	assert.Equal(t, 1, sprites[0].OAMIndex)

	assert.Empty(t, oam.GetSpritesForScanline(100))
}

func TestTenSpritePerScanlineLimit(t *testing.T) {
	bus := &fakeBus{}
	oam := NewOAM(bus)

	for i := 0; i < 12; i++ {
		bus.setSprite(i, 16, byte(8+i*8), byte(i), 0)
	}

	sprites := oam.GetSpritesForScanline(0)
	assert.Len(t, sprites, 10)
	assert.Equal(t, 9, sprites[9].OAMIndex, "selection follows OAM order")
}

func TestTallSpritesSpanSixteenLines(t *testing.T) {
	bus := &fakeBus{}
	bus.mem[addr.LCDC] = 1 << 2 // 8x16 mode
	oam := NewOAM(bus)

	bus.setSprite(0, 16, 8, 0, 0)

	assert.Len(t, oam.GetSpritesForScanline(15), 1)
	assert.Empty(t, oam.GetSpritesForScanline(16))
}

func TestSpriteFlagParsing(t *testing.T) {
	bus := &fakeBus{}
	oam := NewOAM(bus)

	bus.setSprite(0, 16, 8, 0, 0xF0)
	sprite := oam.GetSpritesForScanline(0)[0]

	assert.True(t, sprite.PaletteOBP1)
	assert.True(t, sprite.FlipX)
	assert.True(t, sprite.FlipY)
	assert.True(t, sprite.BehindBG)
}

func TestPixelMaskResolvesOverlap(t *testing.T) {
	bus := &fakeBus{}
	oam := NewOAM(bus)

	bus.fillTile(0)
	bus.setSprite(0, 16, 16, 0, 0) // X=8
	bus.setSprite(1, 16, 12, 0, 0) // X=4, wins the overlap

	sprites := oam.GetSpritesForScanline(0)
	assert.Equal(t, uint8(0xFF), sprites[1].PixelMask, "lower X owns all its pixels")
	assert.Equal(t, uint8(0x0F), sprites[0].PixelMask, "higher X keeps only the non-overlapping half")
}

func TestTransparentPixelsDoNotBlockLowerPriority(t *testing.T) {
	bus := &fakeBus{}
	oam := NewOAM(bus)

	// sprite 0 wins the overlap but only its left half is opaque
	bus.mem[addr.TileData0] = 0xF0
	bus.fillTile(1)
	bus.setSprite(0, 16, 8, 0, 0)
	bus.setSprite(1, 16, 8, 1, 0)

	sprites := oam.GetSpritesForScanline(0)
	assert.Equal(t, uint8(0xF0), sprites[0].PixelMask)
	assert.Equal(t, uint8(0x0F), sprites[1].PixelMask, "shows through the winner's transparent half")
}
