// Package wavdump records emulated audio to a WAV file. Samples are
// buffered in memory in their entirety and written on Close, so it is
// meant for captures and test runs rather than long sessions.
package wavdump

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/dcanelhas/go-dmg/dmg/audio"
)

const (
	numChannels = 2
	bitDepth    = 16
	// 1 is PCM in the WAV format tag
	formatPCM = 1
)

// Writer accumulates interleaved stereo samples for a single output
// file.
type Writer struct {
	filename string
	buffer   []int
}

// New prepares a writer targeting the given path. Nothing is written
// until Close.
func New(filename string) *Writer {
	return &Writer{filename: filename}
}

// Append buffers a batch of interleaved stereo samples, typically the
// result of a DrainAudioSamples call.
func (w *Writer) Append(samples []int16) {
	for _, s := range samples {
		w.buffer = append(w.buffer, int(s))
	}
}

// Len returns the number of buffered samples, counting each channel.
func (w *Writer) Len() int {
	return len(w.buffer)
}

// Close encodes the buffered samples and writes the file.
func (w *Writer) Close() (rerr error) {
	f, err := os.Create(w.filename)
	if err != nil {
		return fmt.Errorf("wavdump: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("wavdump: %w", err)
		}
	}()

	enc := wav.NewEncoder(f, audio.SampleRate, bitDepth, numChannels, formatPCM)

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: numChannels,
			SampleRate:  audio.SampleRate,
		},
		Data:           w.buffer,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavdump: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavdump: %w", err)
	}

	return nil
}
