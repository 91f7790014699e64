// Package addr holds the memory-mapped register addresses of the DMG.
package addr

// LCD registers.
const (
	// LCDC controls the LCD and the layers it composes.
	LCDC uint16 = 0xFF40
	// STAT holds the PPU mode bits, the LYC compare flag and the
	// STAT interrupt source enables.
	STAT uint16 = 0xFF41
	// SCY and SCX scroll the background layer.
	SCY uint16 = 0xFF42
	SCX uint16 = 0xFF43
	// LY is the current scanline, read-only from the CPU side.
	LY uint16 = 0xFF44
	// LYC is compared against LY on every line change.
	LYC uint16 = 0xFF45
	// DMA starts a 160-byte copy into OAM when written.
	DMA uint16 = 0xFF46
	// BGP, OBP0 and OBP1 are the monochrome palettes.
	BGP  uint16 = 0xFF47
	OBP0 uint16 = 0xFF48
	OBP1 uint16 = 0xFF49
	// WY and WX position the window layer. WX is offset by 7.
	WY uint16 = 0xFF4A
	WX uint16 = 0xFF4B
)

// Audio registers, 0xFF10-0xFF3F.
const (
	AudioStart uint16 = 0xFF10
	AudioEnd   uint16 = 0xFF3F

	// Channel 1, pulse with sweep.
	NR10 uint16 = 0xFF10
	NR11 uint16 = 0xFF11
	NR12 uint16 = 0xFF12
	NR13 uint16 = 0xFF13
	NR14 uint16 = 0xFF14

	// Channel 2, pulse.
	NR21 uint16 = 0xFF16
	NR22 uint16 = 0xFF17
	NR23 uint16 = 0xFF18
	NR24 uint16 = 0xFF19

	// Channel 3, wave.
	NR30 uint16 = 0xFF1A
	NR31 uint16 = 0xFF1B
	NR32 uint16 = 0xFF1C
	NR33 uint16 = 0xFF1D
	NR34 uint16 = 0xFF1E

	// Channel 4, noise.
	NR41 uint16 = 0xFF20
	NR42 uint16 = 0xFF21
	NR43 uint16 = 0xFF22
	NR44 uint16 = 0xFF23

	// Master volume, panning, power.
	NR50 uint16 = 0xFF24
	NR51 uint16 = 0xFF25
	NR52 uint16 = 0xFF26

	// Wave pattern RAM, 32 4-bit samples.
	WaveRAMStart uint16 = 0xFF30
	WaveRAMEnd   uint16 = 0xFF3F
)

// OAM, 40 sprites of 4 bytes each.
const (
	OAMStart uint16 = 0xFE00
	OAMEnd   uint16 = 0xFE9F
)

// Tile data and tile maps in VRAM.
const (
	// TileData0 is the unsigned tile data region (indices 0-255).
	TileData0 uint16 = 0x8000
	// TileData1 is the base of the signed addressing mode, where the
	// tile index is treated as an int8 relative to 0x9000.
	TileData1 uint16 = 0x8800

	TileMap0 uint16 = 0x9800
	TileMap1 uint16 = 0x9C00
)

// Interrupt registers.
const (
	// IF holds the pending interrupt flags. Upper 3 bits read as 1.
	IF uint16 = 0xFF0F
	// IE enables individual interrupts.
	IE uint16 = 0xFFFF
)

// P1 selects and reads the joypad matrix.
const P1 uint16 = 0xFF00

// Serial port registers.
const (
	// SB holds the byte being shifted out; after a transfer it holds
	// the byte received from the peer (0xFF with no peer attached).
	SB uint16 = 0xFF01
	// SC bit 7 starts a transfer, bit 0 selects the internal clock.
	// Hardware clears bit 7 and requests the Serial interrupt when the
	// transfer completes.
	SC uint16 = 0xFF02
)

// Timer registers.
const (
	// DIV is the upper byte of the internal 16-bit divider. Any write
	// resets the whole divider.
	DIV uint16 = 0xFF04
	// TIMA counts up at the TAC-selected rate and requests the Timer
	// interrupt when it overflows.
	TIMA uint16 = 0xFF05
	// TMA is reloaded into TIMA after an overflow.
	TMA uint16 = 0xFF06
	// TAC enables the timer and selects its clock.
	TAC uint16 = 0xFF07
)

// Interrupt identifies one of the five interrupt sources. The value is
// the bit mask used in both IE and IF.
type Interrupt uint8

const (
	// VBlankInterrupt fires when the PPU enters the vertical blank.
	VBlankInterrupt Interrupt = 1
	// LCDSTATInterrupt fires on the STAT conditions enabled in 0xFF41.
	LCDSTATInterrupt Interrupt = 1 << 1
	// TimerInterrupt fires when TIMA overflows.
	TimerInterrupt Interrupt = 1 << 2
	// SerialInterrupt fires when a serial transfer completes.
	SerialInterrupt Interrupt = 1 << 3
	// JoypadInterrupt fires on a high-to-low transition of a selected key line.
	JoypadInterrupt Interrupt = 1 << 4
)

// Bit returns the bit position of the interrupt in IE/IF (0-4).
func (i Interrupt) Bit() uint8 {
	switch i {
	case VBlankInterrupt:
		return 0
	case LCDSTATInterrupt:
		return 1
	case TimerInterrupt:
		return 2
	case SerialInterrupt:
		return 3
	default:
		return 4
	}
}

// Vector returns the interrupt handler address for the source.
func (i Interrupt) Vector() uint16 {
	return 0x40 + uint16(i.Bit())*8
}
