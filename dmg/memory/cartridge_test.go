package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeROM builds a minimal ROM image with a valid header.
func makeROM(typeByte, romCode, ramCode uint8) []byte {
	banks := 2 << romCode
	data := make([]byte, banks*romBankSize)
	copy(data[titleAddress:], "TESTCART")
	data[cartridgeTypeAddress] = typeByte
	data[romSizeAddress] = romCode
	data[ramSizeAddress] = ramCode
	return data
}

func TestNewCartridgeParsesHeader(t *testing.T) {
	tests := []struct {
		name       string
		typeByte   uint8
		wantType   MBCType
		wantBatt   bool
	}{
		{"ROM only", 0x00, NoMBCType, false},
		{"ROM+RAM+battery", 0x09, NoMBCType, true},
		{"MBC1", 0x01, MBC1Type, false},
		{"MBC1+RAM+battery", 0x03, MBC1Type, true},
		{"MBC2", 0x05, MBC2Type, false},
		{"MBC2+battery", 0x06, MBC2Type, true},
		{"MBC3 without RTC", 0x11, MBC3Type, false},
		{"MBC3+RAM+battery", 0x13, MBC3Type, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart, err := NewCartridge(makeROM(tt.typeByte, 0x00, 0x02))
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, cart.Type())
			assert.Equal(t, tt.wantBatt, cart.HasBattery())
			assert.Equal(t, "TESTCART", cart.Title())
		})
	}
}

func TestNewCartridgeRejectsBadImages(t *testing.T) {
	t.Run("too small for header", func(t *testing.T) {
		_, err := NewCartridge(make([]byte, 0x100))
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("truncated ROM", func(t *testing.T) {
		data := makeROM(0x01, 0x02, 0x00) // declares 8 banks
		_, err := NewCartridge(data[:4*romBankSize])
		assert.ErrorIs(t, err, ErrROMTruncated)
	})

	t.Run("bad ROM size code", func(t *testing.T) {
		data := makeROM(0x00, 0x00, 0x00)
		data[romSizeAddress] = 0x52
		_, err := NewCartridge(data)
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("bad RAM size code", func(t *testing.T) {
		data := makeROM(0x03, 0x00, 0x06)
		_, err := NewCartridge(data)
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("MBC3 with RTC", func(t *testing.T) {
		_, err := NewCartridge(makeROM(0x10, 0x00, 0x02))
		assert.ErrorIs(t, err, ErrUnsupportedMBC)
	})

	t.Run("unknown mapper", func(t *testing.T) {
		_, err := NewCartridge(makeROM(0x19, 0x00, 0x00)) // MBC5
		assert.ErrorIs(t, err, ErrUnsupportedMBC)
	})
}

func TestCleanTitle(t *testing.T) {
	raw := append([]byte("ZELDA"), 0, 0, 0, 0, 0, 0)
	assert.Equal(t, "ZELDA", cleanTitle(raw))

	raw = []byte{'A', 0x01, 'B', 0, 0, 0, 0, 0, 0, 0, 0}
	assert.Equal(t, "A?B", cleanTitle(raw))
}
