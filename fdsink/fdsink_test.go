package fdsink_test

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/convert"
	"pipelined.dev/wavpipe/fdsink"
	"pipelined.dev/wavpipe/mock"
	"pipelined.dev/wavpipe/run"
)

func TestValid(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.bin"))
	require.NoError(t, err)
	assert.NoError(t, fdsink.Valid(int(f.Fd())))
	require.NoError(t, f.Close())

	assert.ErrorIs(t, fdsink.Valid(-1), fdsink.ErrInvalidDescriptor)

	r, err := os.Open(f.Name())
	require.NoError(t, err)
	defer r.Close()
	assert.ErrorIs(t, fdsink.Valid(int(r.Fd())), fdsink.ErrInvalidDescriptor, "read only")
}

func TestSinkComplex(t *testing.T) {
	const (
		bufferSize = 64
		samples    = 3*bufferSize + 5
	)
	f, err := os.Create(filepath.Join(t.TempDir(), "out.bin"))
	require.NoError(t, err)
	source := &mock.Source{Limit: samples, Value: 0.5}
	p, err := pipe.New(bufferSize, pipe.Routing{
		Source:     source.Source(),
		Processors: pipe.Processors(convert.FloatToComplex(convert.NoImag)),
		Sink:       fdsink.Sink(int(f.Fd()), fdsink.Complex64),
	})
	require.NoError(t, err)
	require.NoError(t, run.New(context.Background(), p).Wait())

	// descriptor is still open
	require.NoError(t, fdsink.Valid(int(f.Fd())))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	require.Equal(t, samples*fdsink.Complex64.ItemSize(), len(data))
	for i := 0; i < samples; i++ {
		re := math.Float32frombits(binary.LittleEndian.Uint32(data[i*8:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(data[i*8+4:]))
		assert.Equal(t, float32(0.5), re)
		assert.Equal(t, float32(0), im)
	}
}

func TestSinkFloat32(t *testing.T) {
	const bufferSize = 16
	f, err := os.Create(filepath.Join(t.TempDir(), "out.bin"))
	require.NoError(t, err)
	defer f.Close()
	source := &mock.Source{Limit: 10, Channels: 3, Value: -0.25}
	p, err := pipe.New(bufferSize, pipe.Routing{
		Source: source.Source(),
		Sink:   fdsink.Sink(int(f.Fd()), fdsink.Float32),
	})
	require.NoError(t, err)
	require.NoError(t, run.New(context.Background(), p).Wait())

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(10*3*fdsink.Float32.ItemSize()), info.Size())
}

func TestSinkErrors(t *testing.T) {
	_, err := pipe.New(16, pipe.Routing{
		Source: (&mock.Source{Channels: 1}).Source(),
		Sink:   fdsink.Sink(1, fdsink.Complex64),
	})
	assert.ErrorIs(t, err, fdsink.ErrUnsupportedFormat)

	_, err = pipe.New(16, pipe.Routing{
		Source: (&mock.Source{}).Source(),
		Sink:   fdsink.Sink(1, fdsink.Format(10)),
	})
	assert.ErrorIs(t, err, fdsink.ErrUnsupportedFormat)

	// descriptor is checked on start
	p, err := pipe.New(16, pipe.Routing{
		Source: (&mock.Source{Limit: 16}).Source(),
		Sink:   fdsink.Sink(-1, fdsink.Float32),
	})
	require.NoError(t, err)
	assert.ErrorIs(t, run.New(context.Background(), p).Wait(), fdsink.ErrInvalidDescriptor)
}
