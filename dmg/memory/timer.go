package memory

import (
	"github.com/dcanelhas/go-dmg/dmg/addr"
	"github.com/dcanelhas/go-dmg/dmg/bit"
)

// tacBit maps the TAC clock select (bits 1-0) to the bit of the
// internal 16-bit divider whose falling edge clocks TIMA:
//
//	00 -> bit 9  (4096 Hz)
//	01 -> bit 3  (262144 Hz)
//	10 -> bit 5  (65536 Hz)
//	11 -> bit 7  (16384 Hz)
var tacBit = [4]uint8{9, 3, 5, 7}

// Timer implements DIV/TIMA/TMA/TAC. DIV is the upper byte of a free
// running 16-bit divider; TIMA increments on falling edges of the
// TAC-selected divider bit and, four cycles after overflowing, reloads
// from TMA and requests the Timer interrupt.
type Timer struct {
	divider      uint16
	lastEdge     bool
	overflowWait int  // cycles left until the TMA reload completes
	pendingIRQ   bool // interrupt request delayed one cycle after reload

	tima uint8
	tma  uint8
	tac  uint8

	requestInterrupt func()
}

func (t *Timer) Tick(cycles int) {
	for i := 0; i < cycles; i++ {
		if t.pendingIRQ {
			if t.requestInterrupt != nil {
				t.requestInterrupt()
			}
			t.pendingIRQ = false
		}

		t.divider++

		if t.overflowWait > 0 {
			t.overflowWait--
			if t.overflowWait == 0 {
				t.tima = t.tma
				t.pendingIRQ = true
			}
			continue
		}

		if !bit.IsSet(2, t.tac) {
			t.lastEdge = false
			continue
		}

		edge := bit.IsSet16(tacBit[t.tac&0x03], t.divider)
		if t.lastEdge && !edge {
			t.tima++
			if t.tima == 0 {
				t.overflowWait = 4
			}
		}
		t.lastEdge = edge
	}
}

// SetSeed sets the internal divider, used to match the value the boot
// ROM leaves behind.
func (t *Timer) SetSeed(seed uint16) {
	t.divider = seed
}

func (t *Timer) Read(address uint16) uint8 {
	switch address {
	case addr.DIV:
		return uint8(t.divider >> 8)
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac
	}
	return 0xFF
}

func (t *Timer) Write(address uint16, value uint8) {
	switch address {
	case addr.DIV:
		// Any write clears the whole divider, not just the visible byte.
		t.divider = 0
	case addr.TIMA:
		t.tima = value
	case addr.TMA:
		t.tma = value
	case addr.TAC:
		t.tac = value
	}
}
