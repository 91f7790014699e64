package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcanelhas/go-dmg/dmg/addr"
)

func TestEIDelaysOneInstruction(t *testing.T) {
	c, bus := newTestCPU()
	loadProgram(c, bus,
		0xFB, // EI
		0x00, // NOP
		0x00, // NOP
	)
	bus.mem[addr.IE] = 0x01
	bus.mem[addr.IF] = 0x01

	_, err := c.Exec() // EI
	require.NoError(t, err)
	assert.False(t, c.GetIME())

	_, err = c.Exec() // NOP, IME turns on after it
	require.NoError(t, err)
	assert.True(t, c.GetIME())
	assert.Equal(t, uint16(0x0102), c.pc)

	cycles, err := c.Exec() // interrupt is serviced instead of the NOP
	require.NoError(t, err)
	assert.Equal(t, interruptServiceCycles, cycles)
	assert.Equal(t, uint16(0x0040), c.pc)
	assert.False(t, c.GetIME())
	assert.Equal(t, byte(0x00), bus.mem[addr.IF])
}

func TestDICancelsPendingEI(t *testing.T) {
	c, bus := newTestCPU()
	loadProgram(c, bus,
		0xFB, // EI
		0xF3, // DI
		0x00, // NOP
	)
	bus.mem[addr.IE] = 0x01
	bus.mem[addr.IF] = 0x01

	for i := 0; i < 3; i++ {
		_, err := c.Exec()
		require.NoError(t, err)
	}
	assert.False(t, c.GetIME())
	assert.Equal(t, uint16(0x0103), c.pc)
}

func TestInterruptPriorityOrder(t *testing.T) {
	c, bus := newTestCPU()
	loadProgram(c, bus, 0x00, 0x00)
	bus.mem[addr.IE] = 0x1F
	bus.mem[addr.IF] = 0x06 // LCD STAT and Timer both pending
	c.interruptsEnabled = true

	_, err := c.Exec()
	require.NoError(t, err)
	assert.Equal(t, addr.LCDSTATInterrupt.Vector(), c.pc)
	assert.Equal(t, byte(0x04), bus.mem[addr.IF])

	// IME is off inside the handler; re-enable to take the next one
	c.interruptsEnabled = true
	_, err = c.Exec()
	require.NoError(t, err)
	assert.Equal(t, addr.TimerInterrupt.Vector(), c.pc)
	assert.Equal(t, byte(0x00), bus.mem[addr.IF])
}

func TestInterruptPushesReturnAddress(t *testing.T) {
	c, bus := newTestCPU()
	loadProgram(c, bus, 0x00)
	bus.mem[addr.IE] = 0x01
	bus.mem[addr.IF] = 0x01
	c.interruptsEnabled = true

	_, err := c.Exec()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFFC), c.sp)
	assert.Equal(t, byte(0x00), bus.mem[0xFFFC])
	assert.Equal(t, byte(0x01), bus.mem[0xFFFD])
}

func TestRETIRestoresIME(t *testing.T) {
	c, bus := newTestCPU()
	loadProgram(c, bus, 0xD9) // RETI
	c.sp = 0xFFFC
	bus.mem[0xFFFC] = 0x34
	bus.mem[0xFFFD] = 0x12

	cycles, err := c.Exec()
	require.NoError(t, err)
	assert.Equal(t, 16, cycles)
	assert.Equal(t, uint16(0x1234), c.pc)
	assert.True(t, c.GetIME())
}

func TestHaltWaitsForInterrupt(t *testing.T) {
	c, bus := newTestCPU()
	loadProgram(c, bus,
		0x76, // HALT
		0x3C, // INC A
	)
	bus.mem[addr.IE] = 0x04

	_, err := c.Exec()
	require.NoError(t, err)
	assert.True(t, c.IsHalted())

	for i := 0; i < 3; i++ {
		cycles, err := c.Exec()
		require.NoError(t, err)
		assert.Equal(t, 4, cycles)
		assert.Equal(t, uint16(0x0101), c.pc)
	}

	// an enabled pending interrupt wakes the core even with IME off
	bus.mem[addr.IF] = 0x04
	_, err = c.Exec()
	require.NoError(t, err)
	assert.False(t, c.IsHalted())
	assert.Equal(t, uint16(0x0102), c.pc)
	assert.Equal(t, uint8(0x02), c.a) // INC A on the post-boot value
}

func TestHaltBugRepeatsInstructionByte(t *testing.T) {
	c, bus := newTestCPU()
	loadProgram(c, bus,
		0x76, // HALT with IME off and an interrupt already pending
		0x3C, // INC A
		0x00, // NOP
	)
	bus.mem[addr.IE] = 0x01
	bus.mem[addr.IF] = 0x01
	c.a = 0

	_, err := c.Exec()
	require.NoError(t, err)
	assert.False(t, c.IsHalted())

	// the byte after HALT executes twice because PC fails to advance
	_, err = c.Exec()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), c.a)
	assert.Equal(t, uint16(0x0101), c.pc)

	_, err = c.Exec()
	require.NoError(t, err)
	assert.Equal(t, uint8(2), c.a)
	assert.Equal(t, uint16(0x0102), c.pc)
}

func TestPendingInterruptSnapshot(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[addr.IE] = 0x05
	bus.mem[addr.IF] = 0xE4

	assert.Equal(t, uint8(0x04), c.GetPendingInterrupts())
}
