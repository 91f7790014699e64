package cpu

import "fmt"

// The 256 0xCB-prefixed opcodes are fully regular: bits 3-7 select the
// operation and bits 0-2 the target register, with 6 meaning (HL).
// The table is generated from that structure instead of being written
// out by hand.

var opcodesCB = buildCBTable()
var opcodeNamesCB = buildCBNames()

func (c *CPU) readCBTarget(target uint8) uint8 {
	switch target {
	case 0:
		return c.b
	case 1:
		return c.c
	case 2:
		return c.d
	case 3:
		return c.e
	case 4:
		return c.h
	case 5:
		return c.l
	case 6:
		return c.bus.Read(c.getHL())
	default:
		return c.a
	}
}

func (c *CPU) writeCBTarget(target uint8, value uint8) {
	switch target {
	case 0:
		c.b = value
	case 1:
		c.c = value
	case 2:
		c.d = value
	case 3:
		c.e = value
	case 4:
		c.h = value
	case 5:
		c.l = value
	case 6:
		c.bus.Write(c.getHL(), value)
	default:
		c.a = value
	}
}

func buildCBTable() [256]Opcode {
	var table [256]Opcode
	for i := range table {
		op := uint8(i) >> 3
		target := uint8(i) & 0x07
		table[i] = makeCBOpcode(op, target)
	}
	return table
}

func makeCBOpcode(op, target uint8) Opcode {
	isHL := target == 6

	switch {
	case op < 8:
		// rotates, shifts and SWAP
		cycles := 8
		if isHL {
			cycles = 16
		}
		return func(c *CPU) int {
			value := c.readCBTarget(target)
			switch op {
			case 0:
				value = c.rlc(value, true)
			case 1:
				value = c.rrc(value, true)
			case 2:
				value = c.rl(value, true)
			case 3:
				value = c.rr(value, true)
			case 4:
				value = c.sla(value)
			case 5:
				value = c.sra(value)
			case 6:
				value = c.swap(value)
			case 7:
				value = c.srl(value)
			}
			c.writeCBTarget(target, value)
			return cycles
		}
	case op < 16:
		// BIT b, r
		index := op - 8
		cycles := 8
		if isHL {
			cycles = 12
		}
		return func(c *CPU) int {
			c.testBit(index, c.readCBTarget(target))
			return cycles
		}
	case op < 24:
		// RES b, r
		index := op - 16
		cycles := 8
		if isHL {
			cycles = 16
		}
		return func(c *CPU) int {
			c.writeCBTarget(target, c.readCBTarget(target)&^(1<<index))
			return cycles
		}
	default:
		// SET b, r
		index := op - 24
		cycles := 8
		if isHL {
			cycles = 16
		}
		return func(c *CPU) int {
			c.writeCBTarget(target, c.readCBTarget(target)|1<<index)
			return cycles
		}
	}
}

var cbTargetNames = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
var cbShiftNames = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}

func buildCBNames() [256]string {
	var names [256]string
	for i := range names {
		op := uint8(i) >> 3
		target := cbTargetNames[uint8(i)&0x07]
		switch {
		case op < 8:
			names[i] = fmt.Sprintf("%s %s", cbShiftNames[op], target)
		case op < 16:
			names[i] = fmt.Sprintf("BIT %d,%s", op-8, target)
		case op < 24:
			names[i] = fmt.Sprintf("RES %d,%s", op-16, target)
		default:
			names[i] = fmt.Sprintf("SET %d,%s", op-24, target)
		}
	}
	return names
}
