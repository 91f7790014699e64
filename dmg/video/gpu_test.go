package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcanelhas/go-dmg/dmg/addr"
	"github.com/dcanelhas/go-dmg/dmg/memory"
)

func testGPU(t *testing.T) (*GPU, *memory.MMU) {
	t.Helper()
	rom := make([]byte, 0x8000)
	rom[0x147] = 0x00 // ROM only
	cart, err := memory.NewCartridge(rom)
	require.NoError(t, err)

	mmu := memory.New(cart)
	mmu.Write(addr.LCDC, 0x91) // LCD on, BG on, unsigned tile data
	return NewGpu(mmu), mmu
}

func TestFrameTiming(t *testing.T) {
	g, _ := testGPU(t)

	total := 0
	for !g.Tick(4) {
		total += 4
	}
	total += 4
	if total != FrameCycles {
		t.Errorf("frame completed after %d cycles, want %d", total, FrameCycles)
	}
}

func TestLYProgression(t *testing.T) {
	g, mmu := testGPU(t)

	assert.Equal(t, uint8(0), mmu.Read(addr.LY))

	g.Tick(456)
	assert.Equal(t, uint8(1), mmu.Read(addr.LY))

	// a full frame later the counter has wrapped
	g.Tick(FrameCycles)
	assert.Equal(t, uint8(1), mmu.Read(addr.LY))
}

func TestVBlankInterruptAtLine144(t *testing.T) {
	g, mmu := testGPU(t)
	mmu.Write(addr.IF, 0x00)

	g.Tick(456*144 - 4)
	assert.Zero(t, mmu.Read(addr.IF)&0x01, "no V-Blank before line 144")

	g.Tick(4)
	assert.Equal(t, uint8(0x01), mmu.Read(addr.IF)&0x01)
	assert.Equal(t, vblank, g.Mode())
}

func TestModeSequenceWithinScanline(t *testing.T) {
	g, _ := testGPU(t)

	assert.Equal(t, oamScan, g.Mode())
	g.Tick(80)
	assert.Equal(t, pixelTransfer, g.Mode())
	g.Tick(172)
	assert.Equal(t, hblank, g.Mode())
	g.Tick(204)
	assert.Equal(t, oamScan, g.Mode())
	assert.Equal(t, 1, g.Line())
}

func TestLYCCoincidence(t *testing.T) {
	g, mmu := testGPU(t)
	mmu.Write(addr.LYC, 2)
	mmu.Write(addr.STAT, 1<<6) // enable the LYC source
	mmu.Write(addr.IF, 0x00)

	g.Tick(456)
	assert.Zero(t, mmu.Read(addr.STAT)&0x04)
	assert.Zero(t, mmu.Read(addr.IF)&0x02)

	g.Tick(456)
	assert.NotZero(t, mmu.Read(addr.STAT)&0x04, "coincidence flag set on LY=LYC")
	assert.NotZero(t, mmu.Read(addr.IF)&0x02, "STAT interrupt requested")
}

func TestDisabledLCDProducesBlankFrames(t *testing.T) {
	g, mmu := testGPU(t)
	mmu.Write(addr.LCDC, 0x00)

	assert.False(t, g.Tick(FrameCycles-4))
	assert.True(t, g.Tick(4))
	assert.Equal(t, uint8(0), mmu.Read(addr.LY))
	assert.Equal(t, White, g.Framebuffer().GetPixel(80, 72))
}

// solidTile fills a tile pattern with color index 3.
func solidTile(mmu *memory.MMU, tileAddr uint16) {
	for i := uint16(0); i < 16; i++ {
		mmu.Write(tileAddr+i, 0xFF)
	}
}

func TestBackgroundRendering(t *testing.T) {
	g, mmu := testGPU(t)
	mmu.Write(addr.BGP, 0xE4) // identity palette

	// tile 1 solid black, tile map points line 0 row at it
	solidTile(mmu, addr.TileData0+16)
	mmu.Write(addr.TileMap0, 1)

	// render the first scanline
	g.Tick(80 + 172)

	assert.Equal(t, Black, g.Framebuffer().GetPixel(0, 0))
	assert.Equal(t, Black, g.Framebuffer().GetPixel(7, 0))
	assert.Equal(t, White, g.Framebuffer().GetPixel(8, 0), "next tile is empty")
}

func TestScrolledBackgroundWraps(t *testing.T) {
	g, mmu := testGPU(t)
	mmu.Write(addr.BGP, 0xE4)

	solidTile(mmu, addr.TileData0+16)
	mmu.Write(addr.TileMap0, 1) // tile (0,0)
	mmu.Write(addr.SCX, 0xF8)   // scroll so tile (0,0) appears at x=8

	g.Tick(80 + 172)

	assert.Equal(t, Black, g.Framebuffer().GetPixel(8, 0))
	assert.Equal(t, White, g.Framebuffer().GetPixel(0, 0))
}

func TestSpriteRendering(t *testing.T) {
	g, mmu := testGPU(t)
	mmu.Write(addr.LCDC, 0x93) // sprites on
	mmu.Write(addr.BGP, 0xE4)
	mmu.Write(addr.OBP0, 0xE4)

	solidTile(mmu, addr.TileData0+2*16)

	// sprite at screen (10, 0) using tile 2
	mmu.Write(addr.OAMStart+0, 16)
	mmu.Write(addr.OAMStart+1, 18)
	mmu.Write(addr.OAMStart+2, 2)
	mmu.Write(addr.OAMStart+3, 0)

	g.Tick(80 + 172)

	assert.Equal(t, Black, g.Framebuffer().GetPixel(10, 0))
	assert.Equal(t, Black, g.Framebuffer().GetPixel(17, 0))
	assert.Equal(t, White, g.Framebuffer().GetPixel(9, 0))
	assert.Equal(t, White, g.Framebuffer().GetPixel(18, 0))
}

func TestSpriteBehindBackground(t *testing.T) {
	g, mmu := testGPU(t)
	mmu.Write(addr.LCDC, 0x93)
	mmu.Write(addr.BGP, 0xE4)
	mmu.Write(addr.OBP0, 0x00) // sprite pixels would render white

	// background line 0 is solid color 3
	solidTile(mmu, addr.TileData0+16)
	for i := uint16(0); i < 32; i++ {
		mmu.Write(addr.TileMap0+i, 1)
	}

	solidTile(mmu, addr.TileData0+2*16)
	mmu.Write(addr.OAMStart+0, 16)
	mmu.Write(addr.OAMStart+1, 18)
	mmu.Write(addr.OAMStart+2, 2)
	mmu.Write(addr.OAMStart+3, 0x80) // behind background

	g.Tick(80 + 172)

	// the sprite loses against non-zero background pixels
	assert.Equal(t, Black, g.Framebuffer().GetPixel(10, 0))
}
