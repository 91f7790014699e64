package video

import (
	"github.com/dcanelhas/go-dmg/dmg/addr"
	"github.com/dcanelhas/go-dmg/dmg/bit"
)

// Sprite is one object from OAM, with its attribute flags parsed and
// the hardware position offsets (-16 on Y, -8 on X) already applied.
type Sprite struct {
	Y         int
	X         int
	TileIndex uint8
	Flags     uint8
	OAMIndex  int
	Height    int

	PaletteOBP1 bool
	FlipX       bool
	FlipY       bool
	BehindBG    bool

	// PixelMask marks the pixels this sprite owns after priority
	// resolution, bit 7 being its leftmost pixel.
	PixelMask uint8
}

func (s *Sprite) parseFlags() {
	s.PaletteOBP1 = bit.IsSet(4, s.Flags)
	s.FlipX = bit.IsSet(5, s.Flags)
	s.FlipY = bit.IsSet(6, s.Flags)
	s.BehindBG = bit.IsSet(7, s.Flags)
}

// HasPriorityForPixel reports whether this sprite owns its pixel at the
// given offset (0 = leftmost, 7 = rightmost).
func (s *Sprite) HasPriorityForPixel(pixelX int) bool {
	if pixelX < 0 || pixelX > 7 {
		return false
	}
	return s.PixelMask&(1<<(7-pixelX)) != 0
}

// tileRowFor fetches the sprite's pattern row intersecting a scanline,
// applying vertical flip and the 8x16 pairing rule.
func (s *Sprite) tileRowFor(memory MemoryReader, scanline int) TileRow {
	row := scanline - s.Y
	if s.FlipY {
		row = s.Height - 1 - row
	}

	tileIndex := s.TileIndex
	if s.Height == 16 {
		// the low bit is ignored in 8x16 mode; row 8-15 reads the
		// second tile of the pair
		tileIndex &= 0xFE
	}
	return fetchTileRow(memory, addr.TileData0+uint16(tileIndex)*16, row)
}

// pixelIndex returns the 2-bit color of the sprite's pixel at an
// offset, honoring horizontal flip. Index 0 is transparent.
func (s *Sprite) pixelIndex(row TileRow, pixelX int) int {
	if s.FlipX {
		return row.GetPixelFlipped(pixelX)
	}
	return row.GetPixel(pixelX)
}

// OAM scans object attribute memory and selects the sprites visible on
// a scanline.
type OAM struct {
	bus            MemoryReader
	priorityBuffer SpritePriorityBuffer
	spriteBuffer   [10]Sprite
}

func NewOAM(bus MemoryReader) *OAM {
	return &OAM{bus: bus}
}

// GetSpritesForScanline returns the sprites overlapping a scanline, at
// most 10 in OAM order, each with its PixelMask resolved. The returned
// slice is reused on the next call.
func (o *OAM) GetSpritesForScanline(scanline int) []Sprite {
	sprites := o.spriteBuffer[:0]
	o.priorityBuffer.Clear()

	spriteHeight := 8
	if bit.IsSet(2, o.bus.Read(addr.LCDC)) {
		spriteHeight = 16
	}

	for i := 0; i < 40 && len(sprites) < 10; i++ {
		base := addr.OAMStart + uint16(i*4)

		spriteY := int(o.bus.Read(base)) - 16
		if scanline < spriteY || scanline >= spriteY+spriteHeight {
			continue
		}

		sprite := Sprite{
			Y:         spriteY,
			X:         int(o.bus.Read(base+1)) - 8,
			TileIndex: o.bus.Read(base + 2),
			Flags:     o.bus.Read(base + 3),
			OAMIndex:  i,
			Height:    spriteHeight,
		}
		sprite.parseFlags()
		sprites = append(sprites, sprite)

		// transparent pixels never claim ownership, so a lower-priority
		// sprite can show through the winner's color 0 holes
		row := sprite.tileRowFor(o.bus, scanline)
		for pixelX := 0; pixelX < 8; pixelX++ {
			if sprite.pixelIndex(row, pixelX) == 0 {
				continue
			}
			o.priorityBuffer.TryClaimPixel(sprite.X+pixelX, sprite.OAMIndex, sprite.X)
		}
	}

	for i := range sprites {
		var mask uint8
		for pixelX := 0; pixelX < 8; pixelX++ {
			if o.priorityBuffer.GetOwner(sprites[i].X+pixelX) == sprites[i].OAMIndex {
				mask |= 1 << (7 - pixelX)
			}
		}
		sprites[i].PixelMask = mask
	}

	return sprites
}
