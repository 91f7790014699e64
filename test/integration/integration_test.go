// Package integration exercises the assembled machine end to end with
// a small hand-assembled ROM, covering the interrupt path from timer
// tick to ISR execution.
package integration

import (
	"crypto/md5"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcanelhas/go-dmg/dmg"
)

// buildTimerROM assembles a program that enables the timer interrupt
// and halts in a loop. The ISR at 0x0050 increments a counter held in
// HRAM at 0xFF80.
func buildTimerROM() []byte {
	rom := make([]byte, 0x8000)
	copy(rom[0x134:], "TIMERTEST")
	rom[0x147] = 0x00

	copy(rom[0x0050:], []byte{
		0xF0, 0x80, // LDH A, (0x80)
		0x3C,       // INC A
		0xE0, 0x80, // LDH (0x80), A
		0xD9, // RETI
	})

	copy(rom[0x0100:], []byte{
		0x3E, 0x04, // LD A, 0x04
		0xE0, 0xFF, // LDH (IE), A: enable the timer interrupt
		0x3E, 0x05, // LD A, 0x05: timer on, 262144 Hz
		0xE0, 0x07, // LDH (TAC), A
		0xAF,       // XOR A
		0xE0, 0x0F, // LDH (IF), A: clear anything pending
		0xE0, 0x80, // LDH (0x80), A: zero the counter
		0xFB,       // EI
		0x76,       // HALT
		0x18, 0xFD, // JR -3: halt again after each interrupt
	})

	return rom
}

func TestTimerInterruptServiceLoop(t *testing.T) {
	emu, err := dmg.New(buildTimerROM())
	require.NoError(t, err)

	require.NoError(t, emu.RunUntilFrame())

	// TIMA overflows every 256 ticks of the 262144 Hz timer, so a
	// 70224-cycle frame fires the ISR dozens of times
	count := emu.ReadMemory(0xFF80)
	assert.Greater(t, count, uint8(10))
}

func TestFramebufferIsStableOnIdleROM(t *testing.T) {
	rom := make([]byte, 0x8000)
	copy(rom[0x134:], "IDLE")
	copy(rom[0x100:], []byte{0x18, 0xFE}) // JR -2

	emu, err := dmg.New(rom)
	require.NoError(t, err)

	hash := func() [16]byte {
		pixels := emu.Framebuffer().ToSlice()
		raw := make([]byte, len(pixels))
		for i, px := range pixels {
			raw[i] = byte(px)
		}
		return md5.Sum(raw)
	}

	require.NoError(t, emu.RunUntilFrame())
	first := hash()
	require.NoError(t, emu.RunUntilFrame())
	second := hash()

	assert.Equal(t, first, second, "idle machine should produce identical frames")
}
