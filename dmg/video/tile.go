package video

import "github.com/dcanelhas/go-dmg/dmg/bit"

// TileRow is one 8-pixel row of a tile in the 2-bit-per-pixel bit plane
// format: Low carries bit 0 of each pixel, High carries bit 1, and bit
// 7 of each byte is the leftmost pixel.
type TileRow struct {
	Low  byte
	High byte
}

// GetPixel returns the 2-bit color index of a pixel, 0 being the
// leftmost.
func (t TileRow) GetPixel(pixelX int) int {
	bitIndex := uint8(7 - pixelX)

	pixel := 0
	if bit.IsSet(bitIndex, t.Low) {
		pixel |= 1
	}
	if bit.IsSet(bitIndex, t.High) {
		pixel |= 2
	}
	return pixel
}

// GetPixelFlipped returns the color index with the row mirrored, used
// for sprites with the flip X attribute.
func (t TileRow) GetPixelFlipped(pixelX int) int {
	bitIndex := uint8(pixelX)

	pixel := 0
	if bit.IsSet(bitIndex, t.Low) {
		pixel |= 1
	}
	if bit.IsSet(bitIndex, t.High) {
		pixel |= 2
	}
	return pixel
}

// MemoryReader is the read-only bus access the renderer needs.
type MemoryReader interface {
	Read(addr uint16) byte
}

// fetchTileRow reads one row of a tile pattern. Each row is 2 bytes,
// each tile 16.
func fetchTileRow(memory MemoryReader, tileAddr uint16, row int) TileRow {
	rowAddr := tileAddr + uint16(row*2)
	return TileRow{
		Low:  memory.Read(rowAddr),
		High: memory.Read(rowAddr + 1),
	}
}
