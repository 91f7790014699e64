package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestCPU() (*CPU, *fakeBus) {
	bus := &fakeBus{}
	c := New(bus)
	c.f = 0
	return c, bus
}

func TestAddToAFlags(t *testing.T) {
	tests := []struct {
		name      string
		a         uint8
		value     uint8
		carryIn   bool
		withCarry bool
		want      uint8
		wantFlags string
	}{
		{"no carries", 0x12, 0x34, false, false, 0x46, "----"},
		{"half carry", 0x0F, 0x01, false, false, 0x10, "--H-"},
		{"full carry", 0xF0, 0x20, false, false, 0x10, "---C"},
		{"zero with both carries", 0xFF, 0x01, false, false, 0x00, "Z-HC"},
		{"adc consumes carry", 0x10, 0x01, true, true, 0x12, "----"},
		{"adc carry into half", 0x0F, 0x00, true, true, 0x10, "--H-"},
		{"add ignores carry flag", 0x10, 0x01, true, false, 0x11, "----"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCPU()
			c.a = tt.a
			c.setFlagToCondition(carryFlag, tt.carryIn)
			c.addToA(tt.value, tt.withCarry)
			assert.Equal(t, tt.want, c.a)
			assert.Equal(t, tt.wantFlags, c.GetFlagString())
		})
	}
}

func TestSubFromAFlags(t *testing.T) {
	tests := []struct {
		name      string
		a         uint8
		value     uint8
		carryIn   bool
		withCarry bool
		want      uint8
		wantFlags string
	}{
		{"simple", 0x34, 0x12, false, false, 0x22, "-N--"},
		{"half borrow", 0x10, 0x01, false, false, 0x0F, "-NH-"},
		{"full borrow", 0x10, 0x20, false, false, 0xF0, "-N-C"},
		{"zero", 0x42, 0x42, false, false, 0x00, "ZN--"},
		{"sbc consumes carry", 0x10, 0x0F, true, true, 0x00, "ZNH-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCPU()
			c.a = tt.a
			c.setFlagToCondition(carryFlag, tt.carryIn)
			c.subFromA(tt.value, tt.withCarry)
			assert.Equal(t, tt.want, c.a)
			assert.Equal(t, tt.wantFlags, c.GetFlagString())
		})
	}
}

func TestCompareLeavesAUntouched(t *testing.T) {
	c, _ := newTestCPU()
	c.a = 0x42
	c.compareA(0x42)
	assert.Equal(t, uint8(0x42), c.a)
	assert.Equal(t, "ZN--", c.GetFlagString())

	c.compareA(0x50)
	assert.Equal(t, uint8(0x42), c.a)
	assert.True(t, c.isSetFlag(carryFlag))
}

func TestIncDecFlags(t *testing.T) {
	c, _ := newTestCPU()
	c.setFlag(carryFlag) // INC and DEC must not touch C

	r := uint8(0x0F)
	c.inc(&r)
	assert.Equal(t, uint8(0x10), r)
	assert.Equal(t, "--HC", c.GetFlagString())

	r = 0xFF
	c.inc(&r)
	assert.Equal(t, uint8(0x00), r)
	assert.Equal(t, "Z-HC", c.GetFlagString())

	r = 0x10
	c.dec(&r)
	assert.Equal(t, uint8(0x0F), r)
	assert.Equal(t, "-NHC", c.GetFlagString())

	r = 0x01
	c.dec(&r)
	assert.Equal(t, uint8(0x00), r)
	assert.Equal(t, "ZN-C", c.GetFlagString())
}

func TestDAA(t *testing.T) {
	tests := []struct {
		name      string
		a         uint8
		flags     string
		want      uint8
		wantFlags string
	}{
		{"45+38", 0x7D, "----", 0x83, "----"},
		{"99+01", 0x9A, "----", 0x00, "Z--C"},
		{"80+90 with carry", 0x10, "---C", 0x70, "---C"},
		{"already bcd", 0x83, "----", 0x83, "----"},
		{"47-28 with half borrow", 0x1F, "-NH-", 0x19, "-N--"},
		{"05-12 with borrow", 0xF3, "-N-C", 0x93, "-N-C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCPU()
			c.a = tt.a
			for i, flag := range []Flag{zeroFlag, subFlag, halfCarryFlag, carryFlag} {
				c.setFlagToCondition(flag, tt.flags[i] != '-')
			}
			c.daa()
			assert.Equal(t, tt.want, c.a)
			assert.Equal(t, tt.wantFlags, c.GetFlagString())
		})
	}
}

func TestAddToHL(t *testing.T) {
	c, _ := newTestCPU()
	c.setFlag(zeroFlag) // 16-bit ADD leaves Z alone

	c.setHL(0x0FFF)
	c.addToHL(0x0001)
	assert.Equal(t, uint16(0x1000), c.getHL())
	assert.Equal(t, "Z-H-", c.GetFlagString())

	c.setHL(0xFFFF)
	c.addToHL(0x0001)
	assert.Equal(t, uint16(0x0000), c.getHL())
	assert.Equal(t, "Z-HC", c.GetFlagString())
}

func TestAddSignedToSP(t *testing.T) {
	c, _ := newTestCPU()

	c.sp = 0xFFF8
	got := c.addSignedToSP(8)
	assert.Equal(t, uint16(0x0000), got)
	assert.Equal(t, "--HC", c.GetFlagString())

	c.sp = 0x0000
	got = c.addSignedToSP(-1)
	assert.Equal(t, uint16(0xFFFF), got)
	assert.Equal(t, "----", c.GetFlagString())
}

func TestRotations(t *testing.T) {
	c, _ := newTestCPU()

	// RLCA style: Z always cleared
	got := c.rlc(0x80, false)
	assert.Equal(t, uint8(0x01), got)
	assert.Equal(t, "---C", c.GetFlagString())

	// CB RLC: Z from the result
	got = c.rlc(0x00, true)
	assert.Equal(t, uint8(0x00), got)
	assert.Equal(t, "Z---", c.GetFlagString())

	// RL shifts the old carry in
	c.setFlag(carryFlag)
	got = c.rl(0x00, true)
	assert.Equal(t, uint8(0x01), got)
	assert.Equal(t, "----", c.GetFlagString())

	// RR shifts the old carry into bit 7
	c.setFlag(carryFlag)
	got = c.rr(0x01, true)
	assert.Equal(t, uint8(0x80), got)
	assert.Equal(t, "---C", c.GetFlagString())

	// RRC wraps bit 0 around
	got = c.rrc(0x01, true)
	assert.Equal(t, uint8(0x80), got)
	assert.Equal(t, "---C", c.GetFlagString())
}

func TestShifts(t *testing.T) {
	c, _ := newTestCPU()

	got := c.sla(0x81)
	assert.Equal(t, uint8(0x02), got)
	assert.True(t, c.isSetFlag(carryFlag))

	// SRA keeps the sign bit
	got = c.sra(0x81)
	assert.Equal(t, uint8(0xC0), got)
	assert.True(t, c.isSetFlag(carryFlag))

	// SRL does not
	got = c.srl(0x81)
	assert.Equal(t, uint8(0x40), got)
	assert.True(t, c.isSetFlag(carryFlag))

	got = c.swap(0xAB)
	assert.Equal(t, uint8(0xBA), got)
	assert.Equal(t, "----", c.GetFlagString())

	got = c.swap(0x00)
	assert.Equal(t, uint8(0x00), got)
	assert.Equal(t, "Z---", c.GetFlagString())
}

func TestTestBit(t *testing.T) {
	c, _ := newTestCPU()

	c.testBit(7, 0x80)
	assert.Equal(t, "--H-", c.GetFlagString())

	c.testBit(0, 0x80)
	assert.Equal(t, "Z-H-", c.GetFlagString())
}

func TestStackRoundTrip(t *testing.T) {
	c, _ := newTestCPU()
	c.sp = 0xFFFE

	c.pushStack(0x1234)
	assert.Equal(t, uint16(0xFFFC), c.sp)
	c.pushStack(0xBEEF)

	assert.Equal(t, uint16(0xBEEF), c.popStack())
	assert.Equal(t, uint16(0x1234), c.popStack())
	assert.Equal(t, uint16(0xFFFE), c.sp)
}
