package memory

import (
	"errors"
	"fmt"
)

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
)

// ErrSaveSize is returned when loading save data whose length does not
// match the cartridge RAM size. The RAM is left untouched.
var ErrSaveSize = errors.New("save data size mismatch")

// MBC is the bank controller contract shared by all cartridge mappers.
// Reads below 0x8000 come from (possibly banked) ROM, reads in
// 0xA000-0xBFFF from external RAM. Writes below 0x8000 are bank control
// writes, never data writes.
type MBC interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)

	// DumpRAM returns a copy of the external RAM, or nil when the
	// mapper has none.
	DumpRAM() []byte
	// LoadRAM replaces the external RAM content. The data length must
	// match the mapper's RAM size exactly.
	LoadRAM(data []byte) error
}

// openBusValue is returned for reads the cartridge does not drive:
// disabled RAM, missing RAM, addresses outside the cartridge ranges.
const openBusValue uint8 = 0xFF

// bankedROMRead resolves a read in 0x4000-0x7FFF against the selected
// bank, wrapping bank indices past the physical ROM size.
func bankedROMRead(rom []uint8, bank int, addr uint16) uint8 {
	offset := bank * romBankSize
	if offset >= len(rom) {
		offset %= len(rom)
	}
	return rom[offset+int(addr-0x4000)]
}

// NoMBC is a cartridge without a mapper chip: 32KB of ROM mapped flat,
// optionally a single unbanked RAM chip.
type NoMBC struct {
	rom []uint8
}

func NewNoMBC(rom []uint8) *NoMBC {
	return &NoMBC{rom: rom}
}

func (m *NoMBC) Read(addr uint16) uint8 {
	if int(addr) < len(m.rom) && addr <= 0x7FFF {
		return m.rom[addr]
	}
	return openBusValue
}

func (m *NoMBC) Write(addr uint16, value uint8) {
	// No control registers and no RAM, all writes are dropped.
}

func (m *NoMBC) DumpRAM() []byte { return nil }

func (m *NoMBC) LoadRAM(data []byte) error {
	if len(data) != 0 {
		return fmt.Errorf("%w: cartridge has no RAM, got %d bytes", ErrSaveSize, len(data))
	}
	return nil
}

// MBC1 banks up to 2MB of ROM with a 5-bit bank register extended by a
// 2-bit register. The 2-bit register is shared: it always supplies the
// upper ROM bank bits for 0x4000-0x7FFF, and in banking mode 1 it also
// banks the 0x0000-0x3FFF region and external RAM.
type MBC1 struct {
	rom         []uint8
	ram         []uint8
	bankLow     uint8
	bankHigh    uint8
	ramEnabled  bool
	bankingMode uint8
}

func NewMBC1(rom []uint8, ramBanks int) *MBC1 {
	return &MBC1{
		rom:     rom,
		ram:     make([]uint8, ramBanks*ramBankSize),
		bankLow: 1,
	}
}

func (m *MBC1) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		if m.bankingMode == 1 {
			offset := (int(m.bankHigh) << 5) * romBankSize
			if offset >= len(m.rom) {
				offset %= len(m.rom)
			}
			return m.rom[offset+int(addr)]
		}
		return m.rom[addr]
	case addr <= 0x7FFF:
		return bankedROMRead(m.rom, int(m.bankHigh)<<5|int(m.bankLow), addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return openBusValue
		}
		return m.ram[m.ramOffset(addr)]
	}
	return openBusValue
}

func (m *MBC1) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case addr <= 0x3FFF:
		// Lower 5 bits of the ROM bank. Zero selects bank 1, a quirk
		// that makes banks 0x00/0x20/0x40/0x60 unreachable here.
		bank := value & 0x1F
		if bank == 0 {
			bank = 1
		}
		m.bankLow = bank
	case addr <= 0x5FFF:
		m.bankHigh = value & 0x03
	case addr <= 0x7FFF:
		m.bankingMode = value & 0x01
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		m.ram[m.ramOffset(addr)] = value
	}
}

func (m *MBC1) ramOffset(addr uint16) int {
	offset := 0
	if m.bankingMode == 1 {
		offset = int(m.bankHigh) * ramBankSize
		if offset >= len(m.ram) {
			offset %= len(m.ram)
		}
	}
	return offset + int(addr-0xA000)
}

func (m *MBC1) DumpRAM() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC1) LoadRAM(data []byte) error {
	if len(data) != len(m.ram) {
		return fmt.Errorf("%w: have %d bytes of RAM, got %d", ErrSaveSize, len(m.ram), len(data))
	}
	copy(m.ram, data)
	return nil
}

// MBC2 banks up to 256KB of ROM and carries 512 half-bytes of RAM on
// the mapper chip itself. Bit 8 of the write address picks between the
// RAM enable latch and the ROM bank register.
type MBC2 struct {
	rom        []uint8
	ram        [512]uint8
	romBank    uint8
	ramEnabled bool
}

func NewMBC2(rom []uint8) *MBC2 {
	return &MBC2{rom: rom, romBank: 1}
}

func (m *MBC2) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr <= 0x7FFF:
		return bankedROMRead(m.rom, int(m.romBank), addr)
	case addr >= 0xA000 && addr <= 0xA1FF:
		if !m.ramEnabled {
			return openBusValue
		}
		// Only the low nibble is driven, the rest floats high.
		return 0xF0 | m.ram[addr-0xA000]
	}
	return openBusValue
}

func (m *MBC2) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x3FFF:
		if addr&0x0100 == 0 {
			m.ramEnabled = value&0x0F == 0x0A
		} else {
			bank := value & 0x0F
			if bank == 0 {
				bank = 1
			}
			m.romBank = bank
		}
	case addr >= 0xA000 && addr <= 0xA1FF:
		if !m.ramEnabled {
			return
		}
		m.ram[addr-0xA000] = value & 0x0F
	}
}

func (m *MBC2) DumpRAM() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram[:])
	return out
}

func (m *MBC2) LoadRAM(data []byte) error {
	if len(data) != len(m.ram) {
		return fmt.Errorf("%w: have %d bytes of RAM, got %d", ErrSaveSize, len(m.ram), len(data))
	}
	for i, b := range data {
		m.ram[i] = b & 0x0F
	}
	return nil
}

// MBC3 banks up to 2MB of ROM with a full 7-bit bank register and up to
// 4 RAM banks. The RTC registers of the real chip are not implemented;
// selecting them reads as open bus.
type MBC3 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint8
	ramBank    uint8
	ramEnabled bool
}

func NewMBC3(rom []uint8, ramBanks int) *MBC3 {
	return &MBC3{
		rom:     rom,
		ram:     make([]uint8, ramBanks*ramBankSize),
		romBank: 1,
	}
}

func (m *MBC3) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr <= 0x7FFF:
		return bankedROMRead(m.rom, int(m.romBank), addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 || m.ramBank > 0x03 {
			return openBusValue
		}
		return m.ram[m.ramOffset(addr)]
	}
	return openBusValue
}

func (m *MBC3) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case addr <= 0x3FFF:
		bank := value & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case addr <= 0x5FFF:
		m.ramBank = value
	case addr <= 0x7FFF:
		// RTC latch register on the real chip, nothing to do here.
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 || m.ramBank > 0x03 {
			return
		}
		m.ram[m.ramOffset(addr)] = value
	}
}

func (m *MBC3) ramOffset(addr uint16) int {
	offset := int(m.ramBank) * ramBankSize
	if offset >= len(m.ram) {
		offset %= len(m.ram)
	}
	return offset + int(addr-0xA000)
}

func (m *MBC3) DumpRAM() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC3) LoadRAM(data []byte) error {
	if len(data) != len(m.ram) {
		return fmt.Errorf("%w: have %d bytes of RAM, got %d", ErrSaveSize, len(m.ram), len(data))
	}
	copy(m.ram, data)
	return nil
}
