package dmg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcanelhas/go-dmg/dmg/addr"
	"github.com/dcanelhas/go-dmg/dmg/video"
)

// buildROM assembles a minimal 32 KiB image with a valid header and the
// given program at the entry point.
func buildROM(cartType, ramCode byte, program ...byte) []byte {
	rom := make([]byte, 0x8000)
	copy(rom[0x134:], "DMGTEST")
	rom[0x147] = cartType
	rom[0x148] = 0x00
	rom[0x149] = ramCode
	copy(rom[0x100:], program)
	return rom
}

// spin is an infinite JR -2 loop.
var spin = []byte{0x18, 0xFE}

func TestNewRejectsBadROM(t *testing.T) {
	_, err := New([]byte{0x00, 0x01, 0x02})
	assert.Error(t, err)
}

func TestRunUntilFrameCompletes(t *testing.T) {
	e, err := New(buildROM(0x00, 0x00, spin...))
	require.NoError(t, err)

	require.NoError(t, e.RunUntilFrame())

	fb := e.Framebuffer()
	assert.Equal(t, video.White, fb.GetPixel(0, 0))

	state := e.DebugSnapshot()
	assert.GreaterOrEqual(t, state.Cycles, uint64(video.FrameCycles))
}

func TestIllegalOpcodeStopsExecution(t *testing.T) {
	e, err := New(buildROM(0x00, 0x00, 0xD3))
	require.NoError(t, err)

	err = e.RunUntilFrame()
	assert.Error(t, err)
}

func TestSaveRAMRoundTrip(t *testing.T) {
	program := []byte{
		0x3E, 0x0A, // LD A, 0x0A
		0xEA, 0x00, 0x00, // LD (0x0000), A: enable cartridge RAM
		0xFA, 0x00, 0xA0, // LD A, (0xA000)
		0xE0, 0x80, // LDH (0x80), A
		0xFA, 0x01, 0xA0, // LD A, (0xA001)
		0xE0, 0x81, // LDH (0x81), A
		0x18, 0xFE, // JR -2
	}
	rom := buildROM(0x03, 0x02, program...) // MBC1 with battery RAM

	e, err := New(rom)
	require.NoError(t, err)

	e.WriteMemory(0x0000, 0x0A) // enable RAM
	e.WriteMemory(0xA000, 0x5A)
	e.WriteMemory(0xA001, 0xC3)

	snapshot := e.DumpSaveRAM()
	require.NotNil(t, snapshot)

	first, err := New(rom)
	require.NoError(t, err)
	require.NoError(t, first.LoadSaveRAM(snapshot))

	second, err := New(rom)
	require.NoError(t, err)
	require.NoError(t, second.LoadSaveRAM(snapshot))

	first.WriteMemory(0x0000, 0x0A)
	assert.Equal(t, byte(0x5A), first.ReadMemory(0xA000))
	assert.Equal(t, byte(0xC3), first.ReadMemory(0xA001))

	// both restored machines run the program against the loaded save
	// and must stay in lockstep
	for i := 0; i < 64; i++ {
		_, err := first.Step()
		require.NoError(t, err)
		_, err = second.Step()
		require.NoError(t, err)
		assert.Equal(t, first.DebugSnapshot(), second.DebugSnapshot(), "step %d", i)
	}

	assert.Equal(t, byte(0x5A), first.ReadMemory(0xFF80))
	assert.Equal(t, byte(0xC3), first.ReadMemory(0xFF81))
	assert.Equal(t, byte(0x5A), second.ReadMemory(0xFF80))
}

func TestSerialBytesArePollable(t *testing.T) {
	program := []byte{
		0x3E, 0x48, // LD A, 'H'
		0xE0, 0x01, // LDH (SB), A
		0x3E, 0x81, // LD A, 0x81
		0xE0, 0x02, // LDH (SC), A: start transfer, internal clock
		0x18, 0xFE, // JR -2
	}
	e, err := New(buildROM(0x00, 0x00, program...))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := e.Step()
		require.NoError(t, err)
	}

	got, ok := e.PollSerial()
	require.True(t, ok)
	assert.Equal(t, byte('H'), got)

	// the open cable leaves 0xFF behind and clears the start bit
	assert.Equal(t, byte(0xFF), e.ReadMemory(addr.SB))
	assert.Equal(t, byte(0), e.ReadMemory(addr.SC)&0x80)

	_, ok = e.PollSerial()
	assert.False(t, ok)
}

func TestAudioSamplesAccumulate(t *testing.T) {
	e, err := New(buildROM(0x00, 0x00, spin...))
	require.NoError(t, err)

	require.NoError(t, e.RunUntilFrame())

	pending := e.PendingAudioSamples()
	assert.Greater(t, pending, 0)

	samples := e.DrainAudioSamples()
	assert.Len(t, samples, pending)
	assert.Zero(t, e.PendingAudioSamples())
}

func TestJoypadReadsThroughMatrix(t *testing.T) {
	e, err := New(buildROM(0x00, 0x00, spin...))
	require.NoError(t, err)

	e.PressKey(KeyStart)
	e.WriteMemory(addr.P1, 0x10) // select the button lines
	assert.Equal(t, byte(0xD7), e.ReadMemory(addr.P1))

	e.ReleaseKey(KeyStart)
	assert.Equal(t, byte(0xDF), e.ReadMemory(addr.P1))
}

func TestDebugInterface(t *testing.T) {
	e, err := New(buildROM(0x00, 0x00, 0x00, 0x18, 0xFD)) // NOP; JR -3
	require.NoError(t, err)

	state := e.DebugSnapshot()
	assert.Equal(t, uint16(0x0100), state.PC)
	assert.Equal(t, "NOP", state.NextOpcode)
	assert.Equal(t, uint16(0xFFFE), state.SP)

	require.NoError(t, e.WriteRegister("bc", 0x1234))
	got, err := e.ReadRegister("bc")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), got)

	assert.Equal(t, "DMGTEST", e.CartridgeTitle())
}
