// Package audio implements the DMG audio processing unit: two pulse
// channels, a wave channel and a noise channel, sequenced at 512 Hz and
// mixed into a stereo sample stream.
package audio

import (
	"sync"

	"github.com/dcanelhas/go-dmg/dmg/addr"
	"github.com/dcanelhas/go-dmg/dmg/bit"
)

// channel holds the state shared by the four generators. Not every
// field is meaningful for every channel; the wave channel has no
// envelope and the noise channel has no duty.
type channel struct {
	enabled    bool
	dacEnabled bool

	freq     uint16 // 11-bit period value from NRx3/NRx4
	timer    int    // cycles until the next waveform step
	dutyStep uint8  // current position in the duty pattern (0-7)
	duty     uint8

	volume        uint8
	envelopePace  uint8
	envelopeUp    bool
	envelopeTimer uint8

	lengthCounter uint16
	lengthEnabled bool

	left, right bool // NR51 panning
	muted       bool // debug mute, not hardware state
}

// APU implements the audio processing unit. Tick drives it with CPU
// cycles; the frontend drains the accumulated samples.
type APU struct {
	enabled   bool
	registers [0x30]uint8

	ch [4]channel

	// frame sequencer, 512 Hz
	frameStep   int
	frameCycles int

	// channel 1 sweep
	sweepTimer   uint8
	sweepShadow  uint16
	sweepEnabled bool

	// channel 3
	waveRAM [waveRAMSize]uint8
	wavePos uint8

	// channel 4
	lfsr uint16

	volLeft  uint8
	volRight uint8

	// sample output
	sampleCounter int
	samples       []int16
	samplesMu     sync.Mutex
}

// New returns an APU in its power-on state.
func New() *APU {
	a := &APU{
		enabled: true,
		lfsr:    lfsrSeed,
		samples: make([]int16, 0, maxBufferSamples),
	}
	a.powerOnRegisters()
	return a
}

// powerOnRegisters applies the DMG boot register values by replaying
// them through the normal write path.
func (a *APU) powerOnRegisters() {
	boot := []struct {
		address uint16
		value   uint8
	}{
		{addr.NR10, 0x80}, {addr.NR11, 0xBF}, {addr.NR12, 0xF3}, {addr.NR14, 0xBF},
		{addr.NR21, 0x3F}, {addr.NR22, 0x00}, {addr.NR24, 0xBF},
		{addr.NR30, 0x7F}, {addr.NR31, 0xFF}, {addr.NR32, 0x9F}, {addr.NR34, 0xBF},
		{addr.NR41, 0xFF}, {addr.NR42, 0x00}, {addr.NR43, 0x00}, {addr.NR44, 0xBF},
		{addr.NR50, 0x77}, {addr.NR51, 0xF3},
	}
	for _, b := range boot {
		a.WriteRegister(b.address, b.value)
	}
	a.registers[addr.NR52-addr.AudioStart] = 0xF1
	// The boot ROM leaves the channels silent despite the register values.
	for i := range a.ch {
		a.ch[i].enabled = false
	}
}

// Tick advances the APU by the given number of CPU cycles. A powered
// off APU still produces samples, all of them silence, so consumers
// keep a steady stream.
func (a *APU) Tick(cycles int) {
	if a.enabled {
		a.frameCycles += cycles
		for a.frameCycles >= frameSequencerCycles {
			a.frameCycles -= frameSequencerCycles
			a.tickFrameSequencer()
		}

		a.stepPulse(0, cycles)
		a.stepPulse(1, cycles)
		a.stepWave(cycles)
		a.stepNoise(cycles)
	}

	a.sampleCounter += cycles
	for a.sampleCounter >= sampleCycles {
		a.sampleCounter -= sampleCycles
		if a.enabled {
			a.emitSample()
		} else {
			a.emitSilence()
		}
	}
}

// tickFrameSequencer advances the 512 Hz sequencer:
//
//	step:     0     1     2     3     4     5     6     7
//	length:   x           x           x           x
//	sweep:                x                       x
//	envelope:                                           x
func (a *APU) tickFrameSequencer() {
	switch a.frameStep {
	case 0, 4:
		a.tickLengthCounters()
	case 2, 6:
		a.tickLengthCounters()
		a.tickSweep()
	case 7:
		a.tickEnvelopes()
	}
	a.frameStep = (a.frameStep + 1) & 7
}

func (a *APU) tickLengthCounters() {
	for i := range a.ch {
		c := &a.ch[i]
		if c.lengthEnabled && c.lengthCounter > 0 {
			c.lengthCounter--
			if c.lengthCounter == 0 {
				c.enabled = false
			}
		}
	}
}

func (a *APU) tickEnvelopes() {
	for _, i := range []int{0, 1, 3} {
		c := &a.ch[i]
		if c.envelopePace == 0 {
			continue
		}
		c.envelopeTimer++
		if c.envelopeTimer < c.envelopePace {
			continue
		}
		c.envelopeTimer = 0
		if c.envelopeUp && c.volume < 15 {
			c.volume++
		} else if !c.envelopeUp && c.volume > 0 {
			c.volume--
		}
	}
}

func (a *APU) tickSweep() {
	if !a.sweepEnabled {
		return
	}
	if a.sweepTimer > 0 {
		a.sweepTimer--
	}
	if a.sweepTimer != 0 {
		return
	}
	pace := a.sweepPace()
	if pace == 0 {
		a.sweepTimer = 8
		return
	}
	a.sweepTimer = pace

	next, overflow := a.sweepNext()
	if overflow {
		a.ch[0].enabled = false
		return
	}
	if a.sweepShift() > 0 {
		a.sweepShadow = next
		a.ch[0].freq = next
		// a second overflow check runs on the new value
		if _, overflow := a.sweepNext(); overflow {
			a.ch[0].enabled = false
		}
	}
}

func (a *APU) sweepPace() uint8  { return (a.registers[0x00] >> 4) & 0x07 }
func (a *APU) sweepShift() uint8 { return a.registers[0x00] & 0x07 }

// sweepNext computes the next sweep frequency and whether it overflows
// the 11-bit range.
func (a *APU) sweepNext() (uint16, bool) {
	delta := a.sweepShadow >> a.sweepShift()
	var next uint16
	if bit.IsSet(3, a.registers[0x00]) {
		next = a.sweepShadow - delta
	} else {
		next = a.sweepShadow + delta
	}
	return next, next > 2047
}

// stepPulse advances a pulse channel's frequency timer. The timer
// reloads with (2048-freq)*4 cycles and each expiry moves the duty
// pattern one step.
func (a *APU) stepPulse(i int, cycles int) {
	c := &a.ch[i]
	if !c.enabled {
		return
	}
	c.timer -= cycles
	for c.timer <= 0 {
		c.timer += int(2048-c.freq) * 4
		c.dutyStep = (c.dutyStep + 1) & 7
	}
}

// stepWave advances the wave channel; it steps twice as fast as the
// pulse channels, one nibble per (2048-freq)*2 cycles.
func (a *APU) stepWave(cycles int) {
	c := &a.ch[2]
	if !c.enabled {
		return
	}
	c.timer -= cycles
	for c.timer <= 0 {
		c.timer += int(2048-c.freq) * 2
		a.wavePos = (a.wavePos + 1) & 31
	}
}

// stepNoise advances the noise LFSR at the NR43-selected rate.
func (a *APU) stepNoise(cycles int) {
	c := &a.ch[3]
	if !c.enabled {
		return
	}
	c.timer -= cycles
	for c.timer <= 0 {
		c.timer += a.noisePeriod()
		feedback := (a.lfsr & 1) ^ ((a.lfsr >> 1) & 1)
		a.lfsr = (a.lfsr >> 1) | (feedback << 14)
		if bit.IsSet(3, a.registers[0x12]) {
			// 7-bit mode also mirrors the feedback into bit 6
			a.lfsr = (a.lfsr & ^uint16(1<<6)) | (feedback << 6)
		}
	}
}

// noisePeriod returns the LFSR step period in cycles from NR43.
func (a *APU) noisePeriod() int {
	nr43 := a.registers[0x12]
	shift := nr43 >> 4
	divisor := int(nr43&0x07) * 16
	if divisor == 0 {
		divisor = 8
	}
	return divisor << shift
}

// channelLevel returns the current 4-bit output of a channel, before
// panning and master volume.
func (a *APU) channelLevel(i int) uint8 {
	c := &a.ch[i]
	if !c.enabled || !c.dacEnabled || c.muted {
		return 0
	}
	switch i {
	case 0, 1:
		if (dutyPatterns[c.duty]>>(7-c.dutyStep))&1 == 1 {
			return c.volume
		}
		return 0
	case 2:
		sample := a.waveRAM[a.wavePos/2]
		if a.wavePos&1 == 0 {
			sample >>= 4
		}
		sample &= 0x0F
		switch c.volume & 0x03 {
		case 0:
			return 0
		case 1:
			return sample
		case 2:
			return sample >> 1
		default:
			return sample >> 2
		}
	default:
		if a.lfsr&1 == 0 {
			return c.volume
		}
		return 0
	}
}

// emitSample mixes the four channels into one stereo frame and appends
// it to the output buffer.
func (a *APU) emitSample() {
	var left, right int32
	for i := range a.ch {
		// center the 0-15 DAC output around zero
		level := int32(a.channelLevel(i))*2 - 15
		if !a.ch[i].dacEnabled {
			level = 0
		}
		if a.ch[i].left {
			left += level
		}
		if a.ch[i].right {
			right += level
		}
	}
	left *= int32(a.volLeft+1) * sampleAmplitude / 8
	right *= int32(a.volRight+1) * sampleAmplitude / 8

	a.samplesMu.Lock()
	a.samples = append(a.samples, clamp16(left), clamp16(right))
	if len(a.samples) > maxBufferSamples {
		a.samples = a.samples[len(a.samples)-maxBufferSamples:]
	}
	a.samplesMu.Unlock()
}

func (a *APU) emitSilence() {
	a.samplesMu.Lock()
	a.samples = append(a.samples, 0, 0)
	if len(a.samples) > maxBufferSamples {
		a.samples = a.samples[len(a.samples)-maxBufferSamples:]
	}
	a.samplesMu.Unlock()
}

func clamp16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// DrainSamples returns and clears the pending sample buffer. Samples
// are interleaved left/right int16 frames at SampleRate.
func (a *APU) DrainSamples() []int16 {
	a.samplesMu.Lock()
	defer a.samplesMu.Unlock()
	out := make([]int16, len(a.samples))
	copy(out, a.samples)
	a.samples = a.samples[:0]
	return out
}

// PendingSamples reports how many samples are buffered.
func (a *APU) PendingSamples() int {
	a.samplesMu.Lock()
	defer a.samplesMu.Unlock()
	return len(a.samples)
}

// readMask gives the bits that read back as 1 for each register,
// 0xFF10-0xFF26. Unreadable bits (triggers, frequencies) float high.
var readMask = [0x17]uint8{
	0x80, 0x3F, 0x00, 0xFF, 0xBF, // NR10-NR14
	0xFF, 0x3F, 0x00, 0xFF, 0xBF, // NR20-NR24
	0x7F, 0xFF, 0x9F, 0xFF, 0xBF, // NR30-NR34
	0xFF, 0xFF, 0x00, 0x00, 0xBF, // NR40-NR44
	0x00, 0x00, 0x70, // NR50-NR52
}

// ReadRegister reads an audio register, applying the hardware OR mask.
func (a *APU) ReadRegister(address uint16) uint8 {
	if address < addr.AudioStart || address > addr.AudioEnd {
		return 0xFF
	}
	if address >= addr.WaveRAMStart {
		return a.waveRAM[address-addr.WaveRAMStart]
	}

	index := address - addr.AudioStart
	if address == addr.NR52 {
		status := a.registers[index] & 0x80
		for i := range a.ch {
			if a.ch[i].enabled {
				status |= 1 << i
			}
		}
		return status | 0x70
	}
	if int(index) >= len(readMask) {
		// 0xFF27-0xFF2F, unmapped
		return 0xFF
	}
	return a.registers[index] | readMask[index]
}

// WriteRegister writes an audio register and updates channel state.
// While the APU is powered off only NR52 is writable.
func (a *APU) WriteRegister(address uint16, value uint8) {
	if address < addr.AudioStart || address > addr.AudioEnd {
		return
	}
	if address >= addr.WaveRAMStart {
		a.waveRAM[address-addr.WaveRAMStart] = value
		return
	}
	if !a.enabled && address != addr.NR52 {
		return
	}

	index := address - addr.AudioStart
	a.registers[index] = value

	switch address {
	case addr.NR10:
		// picked up by the sweep on its next tick
	case addr.NR11:
		a.ch[0].duty = value >> 6
		a.ch[0].lengthCounter = 64 - uint16(value&0x3F)
	case addr.NR12:
		a.writeEnvelope(0, value)
	case addr.NR13:
		a.ch[0].freq = a.ch[0].freq&0x700 | uint16(value)
	case addr.NR14:
		a.ch[0].freq = a.ch[0].freq&0xFF | uint16(value&0x07)<<8
		a.ch[0].lengthEnabled = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.trigger(0)
			a.triggerSweep()
		}
	case addr.NR21:
		a.ch[1].duty = value >> 6
		a.ch[1].lengthCounter = 64 - uint16(value&0x3F)
	case addr.NR22:
		a.writeEnvelope(1, value)
	case addr.NR23:
		a.ch[1].freq = a.ch[1].freq&0x700 | uint16(value)
	case addr.NR24:
		a.ch[1].freq = a.ch[1].freq&0xFF | uint16(value&0x07)<<8
		a.ch[1].lengthEnabled = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.trigger(1)
		}
	case addr.NR30:
		a.ch[2].dacEnabled = bit.IsSet(7, value)
		if !a.ch[2].dacEnabled {
			a.ch[2].enabled = false
		}
	case addr.NR31:
		a.ch[2].lengthCounter = 256 - uint16(value)
	case addr.NR32:
		a.ch[2].volume = (value >> 5) & 0x03
	case addr.NR33:
		a.ch[2].freq = a.ch[2].freq&0x700 | uint16(value)
	case addr.NR34:
		a.ch[2].freq = a.ch[2].freq&0xFF | uint16(value&0x07)<<8
		a.ch[2].lengthEnabled = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.trigger(2)
			a.wavePos = 0
		}
	case addr.NR41:
		a.ch[3].lengthCounter = 64 - uint16(value&0x3F)
	case addr.NR42:
		a.writeEnvelope(3, value)
	case addr.NR43:
		// period derived on demand in noisePeriod
	case addr.NR44:
		a.ch[3].lengthEnabled = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.trigger(3)
			a.lfsr = lfsrSeed
		}
	case addr.NR50:
		a.volLeft = (value >> 4) & 0x07
		a.volRight = value & 0x07
	case addr.NR51:
		for i := range a.ch {
			a.ch[i].right = bit.IsSet(uint8(i), value)
			a.ch[i].left = bit.IsSet(uint8(i+4), value)
		}
	case addr.NR52:
		wasEnabled := a.enabled
		a.enabled = bit.IsSet(7, value)
		if wasEnabled && !a.enabled {
			a.powerOff()
		}
	}
}

// writeEnvelope applies an NRx2 write: initial volume, direction, pace
// and the DAC enable derived from the top 5 bits.
func (a *APU) writeEnvelope(i int, value uint8) {
	c := &a.ch[i]
	c.volume = value >> 4
	c.envelopeUp = bit.IsSet(3, value)
	c.envelopePace = value & 0x07
	c.dacEnabled = value&0xF8 != 0
	if !c.dacEnabled {
		c.enabled = false
	}
}

// trigger starts a channel per the NRx4 trigger rules. A channel with
// its DAC off stays silent.
func (a *APU) trigger(i int) {
	c := &a.ch[i]
	if !c.dacEnabled {
		return
	}
	c.enabled = true
	c.envelopeTimer = 0
	if c.lengthCounter == 0 {
		if i == 2 {
			c.lengthCounter = 256
		} else {
			c.lengthCounter = 64
		}
	}
	switch i {
	case 0, 1:
		c.timer = int(2048-c.freq) * 4
		// envelope volume reloads from the register
		c.volume = a.registers[0x02+uint16(i)*5] >> 4
	case 2:
		c.timer = int(2048-c.freq) * 2
	case 3:
		c.timer = a.noisePeriod()
		c.volume = a.registers[0x11] >> 4
	}
}

// triggerSweep initializes the sweep unit on a channel 1 trigger.
func (a *APU) triggerSweep() {
	a.sweepShadow = a.ch[0].freq
	a.sweepTimer = a.sweepPace()
	if a.sweepTimer == 0 {
		a.sweepTimer = 8
	}
	a.sweepEnabled = a.sweepPace() != 0 || a.sweepShift() != 0
	if a.sweepShift() > 0 {
		if _, overflow := a.sweepNext(); overflow {
			a.ch[0].enabled = false
		}
	}
}

// powerOff clears every register and silences all channels, keeping
// only the NR52 power bit itself.
func (a *APU) powerOff() {
	for i := range a.registers {
		if uint16(i) != addr.NR52-addr.AudioStart {
			a.registers[i] = 0
		}
	}
	for i := range a.ch {
		muted := a.ch[i].muted
		a.ch[i] = channel{muted: muted}
	}
	a.frameStep = 0
	a.volLeft = 0
	a.volRight = 0
	a.sweepEnabled = false
}

// ToggleChannel flips the debug mute on a channel (1-4).
func (a *APU) ToggleChannel(ch int) {
	if ch >= 1 && ch <= 4 {
		a.ch[ch-1].muted = !a.ch[ch-1].muted
	}
}

// ChannelStatus reports which channels are currently audible.
func (a *APU) ChannelStatus() (ch1, ch2, ch3, ch4 bool) {
	audible := func(i int) bool { return a.ch[i].enabled && a.ch[i].dacEnabled && !a.ch[i].muted }
	return audible(0), audible(1), audible(2), audible(3)
}
