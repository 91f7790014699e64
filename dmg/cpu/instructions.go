package cpu

import "github.com/dcanelhas/go-dmg/dmg/bit"

func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.bus.Write(c.sp, bit.High(value))
	c.sp--
	c.bus.Write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.sp)
	c.sp++
	high := c.bus.Read(c.sp)
	c.sp++
	return bit.Combine(high, low)
}

func (c *CPU) inc(r *uint8) {
	*r++
	c.setFlagToCondition(zeroFlag, *r == 0)
	c.setFlagToCondition(halfCarryFlag, *r&0xF == 0)
	c.resetFlag(subFlag)
}

func (c *CPU) dec(r *uint8) {
	*r--
	c.setFlagToCondition(zeroFlag, *r == 0)
	c.setFlagToCondition(halfCarryFlag, *r&0xF == 0xF)
	c.setFlag(subFlag)
}

// addToA adds a value (plus carry for ADC) to A with full flag updates.
func (c *CPU) addToA(value uint8, withCarry bool) {
	carryIn := uint8(0)
	if withCarry && c.isSetFlag(carryFlag) {
		carryIn = 1
	}
	a := c.a
	result := a + value + carryIn

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, a&0xF+value&0xF+carryIn > 0xF)
	c.setFlagToCondition(carryFlag, uint16(a)+uint16(value)+uint16(carryIn) > 0xFF)

	c.a = result
}

// subFromA subtracts a value (plus carry for SBC) from A with full flag
// updates.
func (c *CPU) subFromA(value uint8, withCarry bool) {
	carryIn := uint8(0)
	if withCarry && c.isSetFlag(carryFlag) {
		carryIn = 1
	}
	a := c.a
	result := a - value - carryIn

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, a&0xF < value&0xF+carryIn)
	c.setFlagToCondition(carryFlag, uint16(a) < uint16(value)+uint16(carryIn))

	c.a = result
}

// compareA sets the flags of A-value without storing the result.
func (c *CPU) compareA(value uint8) {
	a := c.a
	c.subFromA(value, false)
	c.a = a
}

func (c *CPU) andA(value uint8) {
	c.a &= value
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) orA(value uint8) {
	c.a |= value
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) xorA(value uint8) {
	c.a ^= value
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) addToHL(value uint16) {
	hl := c.getHL()

	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, hl&0xFFF+value&0xFFF > 0xFFF)
	c.setFlagToCondition(carryFlag, uint32(hl)+uint32(value) > 0xFFFF)

	c.setHL(hl + value)
}

// addSignedToSP computes SP+n for ADD SP,n and LD HL,SP+n. The half and
// full carry come from the low byte addition; Z and N are cleared.
func (c *CPU) addSignedToSP(n int8) uint16 {
	sp := c.sp
	value := uint16(int32(n)) // sign-extended

	c.resetFlag(zeroFlag)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, sp&0xF+value&0xF > 0xF)
	c.setFlagToCondition(carryFlag, sp&0xFF+value&0xFF > 0xFF)

	return sp + value
}

// daa decimal-adjusts A after a BCD addition or subtraction.
func (c *CPU) daa() {
	a := uint16(c.a)

	if c.isSetFlag(subFlag) {
		if c.isSetFlag(halfCarryFlag) {
			a = (a - 0x06) & 0xFF
		}
		if c.isSetFlag(carryFlag) {
			a -= 0x60
		}
	} else {
		if c.isSetFlag(halfCarryFlag) || a&0x0F > 0x09 {
			a += 0x06
		}
		if c.isSetFlag(carryFlag) || a > 0x9F {
			a += 0x60
		}
	}

	if a&0x100 != 0 {
		c.setFlag(carryFlag)
	}
	c.a = uint8(a)

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(halfCarryFlag)
}

// Rotates and shifts. The A-register variants (RLCA etc.) clear Z, the
// CB-prefixed forms set it from the result; zeroSensitive selects that.

func (c *CPU) rlc(value uint8, zeroSensitive bool) uint8 {
	result := value<<1 | value>>7
	c.setFlagToCondition(carryFlag, value > 0x7F)
	c.setFlagToCondition(zeroFlag, zeroSensitive && result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	return result
}

func (c *CPU) rrc(value uint8, zeroSensitive bool) uint8 {
	result := value>>1 | value<<7
	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.setFlagToCondition(zeroFlag, zeroSensitive && result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	return result
}

func (c *CPU) rl(value uint8, zeroSensitive bool) uint8 {
	result := value<<1 | c.flagToBit(carryFlag)
	c.setFlagToCondition(carryFlag, value > 0x7F)
	c.setFlagToCondition(zeroFlag, zeroSensitive && result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	return result
}

func (c *CPU) rr(value uint8, zeroSensitive bool) uint8 {
	result := value>>1 | c.flagToBit(carryFlag)<<7
	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.setFlagToCondition(zeroFlag, zeroSensitive && result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	return result
}

func (c *CPU) sla(value uint8) uint8 {
	result := value << 1
	c.setFlagToCondition(carryFlag, value > 0x7F)
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	return result
}

func (c *CPU) sra(value uint8) uint8 {
	result := value>>1 | value&0x80
	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	return result
}

func (c *CPU) srl(value uint8) uint8 {
	result := value >> 1
	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	return result
}

func (c *CPU) swap(value uint8) uint8 {
	result := value<<4 | value>>4
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
	return result
}

// testBit implements BIT n,r: Z from the complement of the tested bit.
func (c *CPU) testBit(index uint8, value uint8) {
	c.setFlagToCondition(zeroFlag, !bit.IsSet(index, value))
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

// jr adds the signed operand to PC. The operand is consumed first, so
// the offset is relative to the following instruction.
func (c *CPU) jr() {
	n := c.readSignedImmediate()
	c.pc = uint16(int32(c.pc) + int32(n))
}

func (c *CPU) jp() {
	c.pc = c.readImmediateWord()
}

func (c *CPU) call() {
	target := c.readImmediateWord()
	c.pushStack(c.pc)
	c.pc = target
}

func (c *CPU) ret() {
	c.pc = c.popStack()
}

func (c *CPU) rst(target uint16) {
	c.pushStack(c.pc)
	c.pc = target
}

// halt stops execution until an interrupt is pending. Executing it with
// IME off while an interrupt is already pending triggers the halt bug
// instead of halting.
func (c *CPU) halt() {
	if !c.interruptsEnabled && c.interruptPending() {
		c.haltBug = true
		return
	}
	c.halted = true
}

// illegal records a decode failure for the current opcode.
func (c *CPU) illegal() {
	c.decodeErr = &DecodeError{
		Opcode: uint8(c.currentOpcode),
		PC:     c.pc - 1,
	}
}
