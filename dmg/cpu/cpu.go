// Package cpu implements the LR35902 interpreter: fetch, decode and
// execute with cycle counts, interrupt servicing and the documented
// HALT and EI quirks.
package cpu

import (
	"fmt"

	"github.com/dcanelhas/go-dmg/dmg/addr"
	"github.com/dcanelhas/go-dmg/dmg/bit"
)

// Bus provides the interface for component communication.
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	RequestInterrupt(interrupt addr.Interrupt)
	Tick(cycles int)
}

// Flag is one of the 4 flags in the flag register (low byte of AF).
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// interruptServiceCycles is the cost of dispatching to a handler: two
// wait cycles, the PC push and the vector jump.
const interruptServiceCycles = 20

// DecodeError reports execution of an opcode the LR35902 does not
// define. These lock up real hardware, so execution cannot continue.
type DecodeError struct {
	Opcode uint8
	PC     uint16
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("illegal opcode 0x%02X at 0x%04X", e.Opcode, e.PC)
}

// CPU holds the full execution state of the LR35902.
type CPU struct {
	a  uint8
	f  uint8
	b  uint8
	c  uint8
	d  uint8
	e  uint8
	h  uint8
	l  uint8
	sp uint16
	pc uint16

	interruptsEnabled bool
	eiPending         bool // EI takes effect after the next instruction
	currentOpcode     uint16
	stopped           bool
	halted            bool
	cycles            uint64

	// haltBug makes the next instruction skip its first PC increment,
	// re-reading the opcode byte as its first operand. Triggered by
	// HALT with IME=0 while an interrupt is already pending.
	haltBug bool

	// decodeErr is set by the illegal opcode handlers and surfaced
	// from Exec
	decodeErr error

	bus Bus
}

// initializeMemory writes the register values the DMG boot ROM leaves
// behind before handing control to the cartridge.
func initializeMemory(bus Bus) {
	bus.Write(addr.P1, 0xCF)
	bus.Write(addr.TIMA, 0x00)
	bus.Write(addr.TMA, 0x00)
	bus.Write(addr.TAC, 0x00)
	bus.Write(addr.LCDC, 0x91)
	bus.Write(addr.STAT, 0x85)
	bus.Write(addr.SCY, 0x00)
	bus.Write(addr.SCX, 0x00)
	bus.Write(addr.LYC, 0x00)
	bus.Write(addr.BGP, 0xFC)
	bus.Write(addr.OBP0, 0xFF)
	bus.Write(addr.OBP1, 0xFF)
	bus.Write(addr.WY, 0x00)
	bus.Write(addr.WX, 0x00)
	bus.Write(addr.IF, 0xE1)
	bus.Write(addr.IE, 0x00)
}

// New returns a CPU in the post-boot state, PC at the cartridge entry
// point.
func New(bus Bus) *CPU {
	initializeMemory(bus)

	cpu := &CPU{bus: bus}
	cpu.setAF(0x01B0)
	cpu.setBC(0x0013)
	cpu.setDE(0x00D8)
	cpu.setHL(0x014D)
	cpu.sp = 0xFFFE
	cpu.pc = 0x0100

	return cpu
}

// Exec executes a single instruction (or services an interrupt, or
// burns a HALT cycle) without ticking other components. It returns the
// cycles taken, or an error when the instruction stream hits an
// undefined opcode.
func (c *CPU) Exec() (int, error) {
	if serviced := c.handleInterrupts(); serviced {
		return interruptServiceCycles, nil
	}

	if c.halted {
		if c.interruptPending() {
			c.halted = false
		} else {
			return 4, nil
		}
	}

	instruction := Decode(c)

	// under the halt bug the opcode byte is not consumed, so the next
	// fetch sees it again
	skipFirstPCInc := c.haltBug
	if !skipFirstPCInc {
		c.pc++
	}
	if bit.High(c.currentOpcode) == 0xCB {
		c.pc++
	}

	// EI only takes effect after the instruction that follows it, so
	// an eiPending set by this very instruction must not apply yet
	applyEI := c.eiPending

	cycles := instruction(c)
	c.cycles += uint64(cycles)

	if skipFirstPCInc {
		c.haltBug = false
	}

	if c.decodeErr != nil {
		err := c.decodeErr
		c.decodeErr = nil
		return cycles, err
	}

	if applyEI && c.eiPending {
		c.eiPending = false
		c.interruptsEnabled = true
	}

	return cycles, nil
}

// interruptPending reports whether any enabled interrupt is requested,
// regardless of IME.
func (c *CPU) interruptPending() bool {
	return c.bus.Read(addr.IE)&c.bus.Read(addr.IF)&0x1F != 0
}

// handleInterrupts dispatches the highest-priority pending interrupt
// when IME is set. Returns true when one was serviced.
func (c *CPU) handleInterrupts() bool {
	if !c.interruptsEnabled || !c.interruptPending() {
		return false
	}

	enabled := c.bus.Read(addr.IE)
	fired := c.bus.Read(addr.IF)

	// bit 0 (V-Blank) has the highest priority
	for i := uint8(0); i < 5; i++ {
		if !bit.IsSet(i, fired) || !bit.IsSet(i, enabled) {
			continue
		}

		c.bus.Write(addr.IF, bit.Clear(i, fired))
		c.interruptsEnabled = false
		c.halted = false

		c.pushStack(c.pc)
		c.pc = addr.Interrupt(1 << i).Vector()
		c.cycles += interruptServiceCycles
		return true
	}

	return false
}

// readImmediate consumes the operand byte at PC.
func (c *CPU) readImmediate() uint8 {
	n := c.bus.Read(c.pc)
	c.pc++
	return n
}

// readImmediateWord consumes the two operand bytes at PC, low first.
func (c *CPU) readImmediateWord() uint16 {
	low := c.bus.Read(c.pc)
	high := c.bus.Read(c.pc + 1)
	c.pc += 2
	return bit.Combine(high, low)
}

func (c *CPU) readSignedImmediate() int8 {
	return int8(c.readImmediate())
}

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

// flagToBit returns 1 if the flag is set, 0 otherwise.
func (c CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c CPU) getBC() uint16 {
	return bit.Combine(c.b, c.c)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c CPU) getDE() uint16 {
	return bit.Combine(c.d, c.e)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

func (c CPU) getHL() uint16 {
	return bit.Combine(c.h, c.l)
}

func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	// the low 4 bits of F do not exist in hardware
	c.f = bit.Low(value) & 0xF0
}

func (c CPU) getAF() uint16 {
	return bit.Combine(c.a, c.f)
}

// Register access by name, for debuggers and scripting. Pair names
// return/accept 16-bit values, single registers the low 8 bits.

var registerNames = []string{"a", "f", "b", "c", "d", "e", "h", "l", "af", "bc", "de", "hl", "sp", "pc"}

// RegisterNames lists the names accepted by ReadRegister and
// WriteRegister.
func RegisterNames() []string {
	out := make([]string, len(registerNames))
	copy(out, registerNames)
	return out
}

// ReadRegister returns the named register's value.
func (c *CPU) ReadRegister(name string) (uint16, error) {
	switch name {
	case "a":
		return uint16(c.a), nil
	case "f":
		return uint16(c.f), nil
	case "b":
		return uint16(c.b), nil
	case "c":
		return uint16(c.c), nil
	case "d":
		return uint16(c.d), nil
	case "e":
		return uint16(c.e), nil
	case "h":
		return uint16(c.h), nil
	case "l":
		return uint16(c.l), nil
	case "af":
		return c.getAF(), nil
	case "bc":
		return c.getBC(), nil
	case "de":
		return c.getDE(), nil
	case "hl":
		return c.getHL(), nil
	case "sp":
		return c.sp, nil
	case "pc":
		return c.pc, nil
	}
	return 0, fmt.Errorf("unknown register %q", name)
}

// WriteRegister sets the named register. Writes through "f" or "af"
// keep the low 4 flag bits clear, as on hardware.
func (c *CPU) WriteRegister(name string, value uint16) error {
	switch name {
	case "a":
		c.a = uint8(value)
	case "f":
		c.f = uint8(value) & 0xF0
	case "b":
		c.b = uint8(value)
	case "c":
		c.c = uint8(value)
	case "d":
		c.d = uint8(value)
	case "e":
		c.e = uint8(value)
	case "h":
		c.h = uint8(value)
	case "l":
		c.l = uint8(value)
	case "af":
		c.setAF(value)
	case "bc":
		c.setBC(value)
	case "de":
		c.setDE(value)
	case "hl":
		c.setHL(value)
	case "sp":
		c.sp = value
	case "pc":
		c.pc = value
	default:
		return fmt.Errorf("unknown register %q", name)
	}
	return nil
}

// Debug getters.
func (c *CPU) GetA() uint8       { return c.a }
func (c *CPU) GetF() uint8       { return c.f }
func (c *CPU) GetB() uint8       { return c.b }
func (c *CPU) GetC() uint8       { return c.c }
func (c *CPU) GetD() uint8       { return c.d }
func (c *CPU) GetE() uint8       { return c.e }
func (c *CPU) GetH() uint8       { return c.h }
func (c *CPU) GetL() uint8       { return c.l }
func (c *CPU) GetSP() uint16     { return c.sp }
func (c *CPU) GetPC() uint16     { return c.pc }
func (c *CPU) GetCycles() uint64 { return c.cycles }

func (c *CPU) GetIME() bool    { return c.interruptsEnabled }
func (c *CPU) IsHalted() bool  { return c.halted }
func (c *CPU) IsStopped() bool { return c.stopped }
func (c *CPU) GetIE() uint8    { return c.bus.Read(addr.IE) }
func (c *CPU) GetIF() uint8    { return c.bus.Read(addr.IF) }

// GetPendingInterrupts returns the interrupts both enabled and
// requested.
func (c *CPU) GetPendingInterrupts() uint8 {
	return c.GetIE() & c.GetIF() & 0x1F
}

// GetFlagString renders the flag register as "ZNHC" with dashes for
// clear flags.
func (c *CPU) GetFlagString() string {
	out := []byte("----")
	if c.isSetFlag(zeroFlag) {
		out[0] = 'Z'
	}
	if c.isSetFlag(subFlag) {
		out[1] = 'N'
	}
	if c.isSetFlag(halfCarryFlag) {
		out[2] = 'H'
	}
	if c.isSetFlag(carryFlag) {
		out[3] = 'C'
	}
	return string(out)
}
