package memory

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Load errors reported while parsing a ROM image header.
var (
	// ErrInvalidHeader means the image is too small to contain the
	// cartridge header or carries size codes that make no sense.
	ErrInvalidHeader = errors.New("invalid cartridge header")
	// ErrROMTruncated means the header declares more ROM banks than the
	// image actually contains.
	ErrROMTruncated = errors.New("truncated ROM image")
	// ErrUnsupportedMBC means the cartridge type byte names a mapper
	// this core does not implement.
	ErrUnsupportedMBC = errors.New("unsupported MBC type")
)

// Cartridge header layout, fixed offsets within the ROM image.
const (
	titleAddress         = 0x134
	titleLength          = 11
	cartridgeTypeAddress = 0x147
	romSizeAddress       = 0x148
	ramSizeAddress       = 0x149
	headerEnd            = 0x150
)

// MBCType tags the mapper variant selected from the header.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC2Type
	MBC3Type
)

func (t MBCType) String() string {
	switch t {
	case NoMBCType:
		return "ROM only"
	case MBC1Type:
		return "MBC1"
	case MBC2Type:
		return "MBC2"
	case MBC3Type:
		return "MBC3"
	}
	return "unknown"
}

// Cartridge holds an immutable ROM image and the metadata parsed from
// its header. The mutable side (bank registers, external RAM) lives in
// the MBC built from it.
type Cartridge struct {
	data         []byte
	title        string
	mbcType      MBCType
	romBankCount int
	ramBankCount int
	hasBattery   bool
}

// NewCartridge parses the header of a raw ROM image and validates its
// declared sizes against the image length.
func NewCartridge(data []byte) (*Cartridge, error) {
	if len(data) < headerEnd {
		return nil, fmt.Errorf("%w: image is %d bytes, header needs at least %d", ErrInvalidHeader, len(data), headerEnd)
	}

	romCode := data[romSizeAddress]
	if romCode > 0x08 {
		return nil, fmt.Errorf("%w: ROM size code 0x%02X", ErrInvalidHeader, romCode)
	}
	romBanks := 2 << romCode
	if len(data) < romBanks*romBankSize {
		return nil, fmt.Errorf("%w: header declares %d banks (%d bytes), image has %d",
			ErrROMTruncated, romBanks, romBanks*romBankSize, len(data))
	}

	ramBanks, err := ramBankCount(data[ramSizeAddress])
	if err != nil {
		return nil, err
	}

	cart := &Cartridge{
		data:         data,
		title:        cleanTitle(data[titleAddress : titleAddress+titleLength]),
		romBankCount: romBanks,
		ramBankCount: ramBanks,
	}

	switch typeByte := data[cartridgeTypeAddress]; typeByte {
	case 0x00, 0x08, 0x09:
		cart.mbcType = NoMBCType
		cart.hasBattery = typeByte == 0x09
	case 0x01, 0x02, 0x03:
		cart.mbcType = MBC1Type
		cart.hasBattery = typeByte == 0x03
	case 0x05, 0x06:
		cart.mbcType = MBC2Type
		cart.hasBattery = typeByte == 0x06
	case 0x11, 0x12, 0x13:
		cart.mbcType = MBC3Type
		cart.hasBattery = typeByte == 0x13
	case 0x0F, 0x10:
		// MBC3 variants with the real-time clock.
		return nil, fmt.Errorf("%w: 0x%02X (MBC3 with RTC)", ErrUnsupportedMBC, typeByte)
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnsupportedMBC, typeByte)
	}

	return cart, nil
}

// Title returns the game title from the header, cleaned for display.
func (c *Cartridge) Title() string { return c.title }

// Type returns the mapper variant the header selects.
func (c *Cartridge) Type() MBCType { return c.mbcType }

// HasBattery reports whether external RAM is battery backed, i.e.
// whether save data is meaningful for this cartridge.
func (c *Cartridge) HasBattery() bool { return c.hasBattery }

// MBC builds the bank controller for this cartridge.
func (c *Cartridge) MBC() MBC {
	switch c.mbcType {
	case MBC1Type:
		return NewMBC1(c.data, c.ramBankCount)
	case MBC2Type:
		return NewMBC2(c.data)
	case MBC3Type:
		return NewMBC3(c.data, c.ramBankCount)
	default:
		return NewNoMBC(c.data)
	}
}

// ramBankCount maps the header RAM size code to 8KB bank count.
func ramBankCount(code uint8) (int, error) {
	switch code {
	case 0x00:
		return 0, nil
	case 0x01:
		// 2KB, only seen in homebrew. Backed by a full bank.
		return 1, nil
	case 0x02:
		return 1, nil
	case 0x03:
		return 4, nil
	case 0x04:
		return 16, nil
	case 0x05:
		return 8, nil
	}
	return 0, fmt.Errorf("%w: RAM size code 0x%02X", ErrInvalidHeader, code)
}

// cleanTitle strips padding and non-printable bytes from the raw title
// field.
func cleanTitle(raw []byte) string {
	runes := make([]rune, 0, len(raw))
	for _, b := range raw {
		r := rune(b)
		switch {
		case r == 0:
			r = ' '
		case !unicode.IsPrint(r):
			r = '?'
		}
		runes = append(runes, r)
	}
	return strings.TrimSpace(string(runes))
}
