package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dcanelhas/go-dmg/dmg/addr"
)

func TestImmediateTransfer(t *testing.T) {
	fired := 0
	s := NewLogSink(func() { fired++ })

	s.Write(addr.SB, 'A')
	s.Write(addr.SC, 0x81)

	assert.Equal(t, 1, fired)
	assert.Equal(t, uint8(0xFF), s.Read(addr.SB), "open cable shifts in 0xFF")
	assert.Equal(t, uint8(0x01), s.Read(addr.SC), "start bit cleared on completion")

	b, ok := s.Poll()
	assert.True(t, ok)
	assert.Equal(t, uint8('A'), b)

	_, ok = s.Poll()
	assert.False(t, ok)
}

func TestExternalClockNeverCompletes(t *testing.T) {
	fired := 0
	s := NewLogSink(func() { fired++ })

	s.Write(addr.SB, 'A')
	s.Write(addr.SC, 0x80) // external clock, no peer

	assert.Equal(t, 0, fired)
	_, ok := s.Poll()
	assert.False(t, ok)
}

func TestFixedTiming(t *testing.T) {
	fired := 0
	s := NewLogSink(func() { fired++ }, WithFixedTiming())

	s.Write(addr.SB, 'X')
	s.Write(addr.SC, 0x81)
	assert.Equal(t, 0, fired)

	s.Tick(4000)
	assert.Equal(t, 0, fired)
	s.Tick(100)
	assert.Equal(t, 1, fired)
}

func TestPollPreservesOrder(t *testing.T) {
	s := NewLogSink(nil)
	for _, b := range []byte("OK") {
		s.Write(addr.SB, b)
		s.Write(addr.SC, 0x81)
	}

	first, _ := s.Poll()
	second, _ := s.Poll()
	assert.Equal(t, uint8('O'), first)
	assert.Equal(t, uint8('K'), second)
}
