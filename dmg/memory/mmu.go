package memory

import (
	"fmt"
	"log/slog"

	"github.com/dcanelhas/go-dmg/dmg/addr"
	"github.com/dcanelhas/go-dmg/dmg/audio"
	"github.com/dcanelhas/go-dmg/dmg/bit"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// JoypadKey identifies one of the eight joypad inputs.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// SerialPort is the interface for a device connected to SB/SC.
// Implementations only see reads and writes to those two addresses.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
}

// MMU maps the 16-bit address space: cartridge banking, work RAM, video
// memory, and the memory mapped I/O registers.
type MMU struct {
	cart   *Cartridge
	mbc    MBC
	memory []byte
	APU    *audio.APU

	regionMap [256]memRegion

	joypadButtons uint8 // A/B/Select/Start, active low
	joypadDpad    uint8 // Right/Left/Up/Down, active low

	serial SerialPort
	timer  Timer
}

// New creates a memory unit with the given cartridge mapped in.
func New(cart *Cartridge) *MMU {
	m := &MMU{
		memory:        make([]byte, 0x10000),
		cart:          cart,
		mbc:           cart.MBC(),
		APU:           audio.New(),
		joypadButtons: 0x0F,
		joypadDpad:    0x0F,
	}
	m.timer.requestInterrupt = func() { m.RequestInterrupt(addr.TimerInterrupt) }
	m.initRegionMap()
	m.memory[addr.P1] = 0xCF
	return m
}

// SetSerialPort attaches a serial device to SB/SC.
func (m *MMU) SetSerialPort(port SerialPort) {
	m.serial = port
}

// Tick advances the timer and serial port.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
}

// SetTimerSeed initializes the internal divider so DIV matches the
// post-boot value.
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.SetSeed(seed)
}

// Cartridge returns the loaded cartridge.
func (m *MMU) Cartridge() *Cartridge {
	return m.cart
}

// DumpSaveRAM returns a copy of battery-backed cartridge RAM, or nil
// when the cartridge has none.
func (m *MMU) DumpSaveRAM() []byte {
	return m.mbc.DumpRAM()
}

// LoadSaveRAM restores battery-backed cartridge RAM from a previous
// dump.
func (m *MMU) LoadSaveRAM(data []byte) error {
	return m.mbc.LoadRAM(data)
}

func (m *MMU) initRegionMap() {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	m.regionMap[0xFE] = regionOAM
	m.regionMap[0xFF] = regionIO
}

// RequestInterrupt sets the chosen interrupt's bit in IF.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.Write(addr.IF, bit.Set(interrupt.Bit(), m.Read(addr.IF)))
}

func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Read(address))
}

func (m *MMU) SetBit(index uint8, address uint16, set bool) {
	value := m.Read(address)
	if set {
		value = bit.Set(index, value)
	} else {
		value = bit.Clear(index, value)
	}
	m.Write(address, value)
}

func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		return m.mbc.Read(address)
	case regionVRAM, regionWRAM:
		return m.memory[address]
	case regionEcho:
		return m.memory[address-0x2000]
	case regionOAM:
		if address <= addr.OAMEnd {
			return m.memory[address]
		}
		// 0xFEA0-0xFEFF is unusable
		return 0x00
	case regionIO:
		switch {
		case address == addr.SB || address == addr.SC:
			if m.serial == nil {
				return 0xFF
			}
			return m.serial.Read(address)
		case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
			return m.timer.Read(address)
		case address >= addr.AudioStart && address <= addr.AudioEnd:
			return m.APU.ReadRegister(address)
		case address == addr.IF:
			// upper 3 bits are unused and always read as 1
			return m.memory[address] | 0xE0
		default:
			return m.memory[address]
		}
	default:
		panic(fmt.Sprintf("read at unmapped address 0x%04X", address))
	}
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		m.mbc.Write(address, value)
	case regionVRAM, regionWRAM:
		m.memory[address] = value
	case regionEcho:
		m.memory[address-0x2000] = value
	case regionOAM:
		if address <= addr.OAMEnd {
			m.memory[address] = value
		}
	case regionIO:
		switch {
		case address == addr.P1:
			m.writeJoypad(value)
		case address == addr.SB || address == addr.SC:
			if m.serial != nil {
				m.serial.Write(address, value)
			}
		case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
			m.timer.Write(address, value)
		case address >= addr.AudioStart && address <= addr.AudioEnd:
			m.APU.WriteRegister(address, value)
		case address == addr.IF:
			m.memory[address] = value | 0xE0
		case address == addr.DMA:
			m.dmaTransfer(value)
		default:
			m.memory[address] = value
		}
	default:
		panic(fmt.Sprintf("write at unmapped address 0x%04X", address))
	}
}

// ReadWord reads a little-endian 16-bit value, low byte first.
func (m *MMU) ReadWord(address uint16) uint16 {
	return bit.Combine(m.Read(address+1), m.Read(address))
}

// WriteWord writes a little-endian 16-bit value, low byte first.
func (m *MMU) WriteWord(address uint16, value uint16) {
	m.Write(address, bit.Low(value))
	m.Write(address+1, bit.High(value))
}

// dmaTransfer copies 160 bytes from value<<8 into OAM. The copy is done
// instantly rather than over the 160 machine cycle window the hardware
// takes.
func (m *MMU) dmaTransfer(value uint8) {
	source := uint16(value) << 8
	for i := uint16(0); i < 160; i++ {
		m.memory[addr.OAMStart+i] = m.Read(source + i)
	}
	m.memory[addr.DMA] = value
}

// updateJoypadRegister recomputes P1 from the selection bits and the
// tracked button state.
//
// Bits 4-5 select which button group maps onto bits 0-3:
//   - bit 4 low selects the d-pad
//   - bit 5 low selects A/B/Select/Start
//   - both low ANDs the two groups, neither reads 0x0F
//
// A low bit means pressed. Bits 6-7 always read as 1.
func (m *MMU) updateJoypadRegister() {
	p1 := m.memory[addr.P1]
	result := uint8(0b11000000)
	result |= p1 & 0b00110000

	selectDpad := !bit.IsSet(4, p1)
	selectButtons := !bit.IsSet(5, p1)

	switch {
	case selectButtons && !selectDpad:
		result |= m.joypadButtons & 0x0F
	case selectDpad && !selectButtons:
		result |= m.joypadDpad & 0x0F
	case selectButtons && selectDpad:
		result |= m.joypadButtons & m.joypadDpad & 0x0F
	default:
		result |= 0x0F
	}

	m.memory[addr.P1] = result
}

func (m *MMU) writeJoypad(value uint8) {
	// only the selection bits are writable
	m.memory[addr.P1] = value & 0b00110000
	m.updateJoypadRegister()
}

// HandleKeyPress marks a key as held and raises the joypad interrupt on
// a high-to-low transition.
func (m *MMU) HandleKeyPress(key JoypadKey) {
	oldButtons := m.joypadButtons
	oldDpad := m.joypadDpad

	switch key {
	case JoypadRight:
		m.joypadDpad = bit.Clear(0, m.joypadDpad)
	case JoypadLeft:
		m.joypadDpad = bit.Clear(1, m.joypadDpad)
	case JoypadUp:
		m.joypadDpad = bit.Clear(2, m.joypadDpad)
	case JoypadDown:
		m.joypadDpad = bit.Clear(3, m.joypadDpad)
	case JoypadA:
		m.joypadButtons = bit.Clear(0, m.joypadButtons)
	case JoypadB:
		m.joypadButtons = bit.Clear(1, m.joypadButtons)
	case JoypadSelect:
		m.joypadButtons = bit.Clear(2, m.joypadButtons)
	case JoypadStart:
		m.joypadButtons = bit.Clear(3, m.joypadButtons)
	default:
		slog.Warn("ignoring unknown joypad key", "key", key)
		return
	}

	if (oldButtons&^m.joypadButtons)|(oldDpad&^m.joypadDpad) != 0 {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}

	m.updateJoypadRegister()
}

// HandleKeyRelease marks a key as released.
func (m *MMU) HandleKeyRelease(key JoypadKey) {
	switch key {
	case JoypadRight:
		m.joypadDpad = bit.Set(0, m.joypadDpad)
	case JoypadLeft:
		m.joypadDpad = bit.Set(1, m.joypadDpad)
	case JoypadUp:
		m.joypadDpad = bit.Set(2, m.joypadDpad)
	case JoypadDown:
		m.joypadDpad = bit.Set(3, m.joypadDpad)
	case JoypadA:
		m.joypadButtons = bit.Set(0, m.joypadButtons)
	case JoypadB:
		m.joypadButtons = bit.Set(1, m.joypadButtons)
	case JoypadSelect:
		m.joypadButtons = bit.Set(2, m.joypadButtons)
	case JoypadStart:
		m.joypadButtons = bit.Set(3, m.joypadButtons)
	}

	m.updateJoypadRegister()
}
