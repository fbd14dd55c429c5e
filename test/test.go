// Package test contains helper functions useful for testing wavpipe
// packages. Fixtures are generated on the fly, so no binary assets are
// stored in the repository.
package test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	"pipelined.dev/wavpipe/signal"
)

// Wav describes a WAV fixture. Zero values are replaced with defaults:
// 44100 Hz, mono, 16 bit, 1000 frames.
type Wav struct {
	Name       string
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int
	// Float produces 32 bit IEEE float samples, BitDepth is ignored.
	Float bool
	// Empty produces a file with valid header and no frames.
	Empty bool
}

const (
	formatPCM   = 1
	formatFloat = 3
)

func (w Wav) withDefaults() Wav {
	if w.Name == "" {
		w.Name = "fixture.wav"
	}
	if w.SampleRate == 0 {
		w.SampleRate = 44100
	}
	if w.Channels == 0 {
		w.Channels = 1
	}
	if w.Float {
		w.BitDepth = 32
	}
	if w.BitDepth == 0 {
		w.BitDepth = 16
	}
	if w.Frames == 0 && !w.Empty {
		w.Frames = 1000
	}
	if w.Empty {
		w.Frames = 0
	}
	return w
}

// Samples returns interleaved samples of the fixture as they are stored
// in the file. Every channel contains a 441 Hz sine at half of the full
// scale, channels are shifted by a quarter of period. Float samples are
// returned as bit patterns.
func (w Wav) Samples() []int {
	w = w.withDefaults()
	bitDepth := signal.BitDepth(w.BitDepth)
	max := float64(int(1)<<(w.BitDepth-1) - 1)
	data := make([]int, w.Frames*w.Channels)
	for i := 0; i < w.Frames; i++ {
		for c := 0; c < w.Channels; c++ {
			v := 0.5 * math.Sin(w.phase(i, c))
			if w.Float {
				data[i*w.Channels+c] = int(int32(math.Float32bits(float32(v))))
				continue
			}
			data[i*w.Channels+c] = int(math.Round(max*v)) + bitDepth.Offset()
		}
	}
	return data
}

// Floats returns the signal of the fixture as it's expected to be
// decoded.
func (w Wav) Floats() signal.Float64 {
	w = w.withDefaults()
	if !w.Float {
		return signal.InterInt{
			Data:     w.Samples(),
			Channels: w.Channels,
			BitDepth: signal.BitDepth(w.BitDepth),
		}.AsFloat64()
	}
	floats := signal.Allocator{Channels: w.Channels, Length: w.Frames}.Float64()
	for c := range floats {
		for i := range floats[c] {
			floats[c][i] = float64(float32(0.5 * math.Sin(w.phase(i, c))))
		}
	}
	return floats
}

func (w Wav) phase(i, c int) float64 {
	return 2*math.Pi*441*float64(i)/float64(w.SampleRate) + float64(c)*math.Pi/2
}

// Write creates the fixture in the temporary directory of the test and
// returns its path.
func (w Wav) Write(t testing.TB) string {
	t.Helper()
	w = w.withDefaults()
	path := filepath.Join(t.TempDir(), w.Name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := formatPCM
	if w.Float {
		format = formatFloat
	}
	e := wav.NewEncoder(f, w.SampleRate, w.BitDepth, w.Channels, format)
	// header is written with the first buffer, even if it's empty
	err = e.Write(&audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: w.Channels,
			SampleRate:  w.SampleRate,
		},
		Data:           w.Samples(),
		SourceBitDepth: w.BitDepth,
	})
	require.NoError(t, err)
	require.NoError(t, e.Close())
	return path
}

// Garbage creates a file that is not a valid WAV and returns its path.
func Garbage(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a riff file"), 0o644))
	return path
}
