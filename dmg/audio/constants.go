package audio

// Timing constants.
const (
	// ClockRate is the DMG master clock in Hz.
	ClockRate = 4194304

	// SampleRate is the output sample rate the APU resamples to.
	SampleRate = 44100

	// frameSequencerCycles is the number of CPU cycles per frame
	// sequencer step. The sequencer runs at 512 Hz.
	frameSequencerCycles = ClockRate / 512

	// sampleCycles is the number of CPU cycles between output samples.
	sampleCycles = ClockRate / SampleRate
)

// Channel constants.
const (
	// waveRAMSize is the wave pattern RAM size in bytes, 32 nibbles.
	waveRAMSize = 16

	// lfsrSeed is the all-ones reset value of the noise shift register.
	lfsrSeed uint16 = 0x7FFF

	// sampleAmplitude scales a 4-bit channel level into int16 range,
	// leaving headroom for mixing four channels.
	sampleAmplitude = 512

	// maxBufferSamples caps the pending sample buffer when the
	// frontend stops draining.
	maxBufferSamples = SampleRate
)

// dutyPatterns holds the four pulse duty waveforms, one bit per eighth
// of the period (12.5%, 25%, 50%, 75%).
var dutyPatterns = [4]uint8{0b00000001, 0b10000001, 0b10000111, 0b01111110}
