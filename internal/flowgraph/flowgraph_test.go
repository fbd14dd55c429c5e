package flowgraph_test

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/wavpipe/internal/flowgraph"
	"pipelined.dev/wavpipe/metric"
	"pipelined.dev/wavpipe/signal"
	"pipelined.dev/wavpipe/test"
)

func output(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "out.bin"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestFlowgraph(t *testing.T) {
	for _, sync := range []bool{false, true} {
		// float input for the sync run
		fixture := test.Wav{SampleRate: 8000, Channels: 2, Frames: 1000, Float: sync}
		out := output(t)
		fg, err := flowgraph.New(flowgraph.Config{
			Input:      fixture.Write(t),
			Gain:       0.5,
			BufferSize: 256,
			Sync:       sync,
		}, int(out.Fd()))
		require.NoError(t, err)
		assert.Equal(t, signal.Frequency(8000), fg.SampleRate())

		fg.Start(context.Background())
		require.NoError(t, fg.Wait())
		fg.Stop()
		assert.Zero(t, fg.Rate())

		data, err := os.ReadFile(out.Name())
		require.NoError(t, err)
		require.Equal(t, fixture.Frames*8, len(data), "sync %v", sync)

		expected := fixture.Floats()
		for i := 0; i < fixture.Frames; i++ {
			re := math.Float32frombits(binary.LittleEndian.Uint32(data[i*8:]))
			im := math.Float32frombits(binary.LittleEndian.Uint32(data[i*8+4:]))
			require.Equal(t, float32(0.5*expected[0][i]), re, "frame %d", i)
			require.Zero(t, im)
		}
	}
}

func TestFlowgraphStop(t *testing.T) {
	out := output(t)
	fg, err := flowgraph.New(flowgraph.Config{
		Input:        test.Wav{SampleRate: 8000, Frames: 800}.Write(t),
		Gain:         0.5,
		BufferSize:   128,
		Loop:         true,
		MeterOptions: []metric.MeterOption{metric.WithWindow(50 * time.Millisecond)},
	}, int(out.Fd()))
	require.NoError(t, err)

	fg.Start(context.Background())
	assert.Eventually(t, func() bool {
		return fg.Rate() > 0
	}, 5*time.Second, 10*time.Millisecond)
	fg.SetThrottle(16000)
	fg.SetGain(0.25)

	fg.Stop()
	fg.Stop()
	require.NoError(t, fg.Wait())
	<-fg.Done()

	info, err := out.Stat()
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.Zero(t, info.Size()%8)
}

func TestFlowgraphErrors(t *testing.T) {
	out := output(t)
	_, err := flowgraph.New(flowgraph.Config{
		Input:      filepath.Join(t.TempDir(), "missing.wav"),
		BufferSize: 128,
	}, int(out.Fd()))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = flowgraph.New(flowgraph.Config{
		Input:      test.Wav{}.Write(t),
		BufferSize: 0,
	}, int(out.Fd()))
	assert.Error(t, err)

	// not started
	fg, err := flowgraph.New(flowgraph.Config{
		Input:      test.Wav{}.Write(t),
		BufferSize: 128,
	}, int(out.Fd()))
	require.NoError(t, err)
	assert.Nil(t, fg.Done())
	fg.Stop()
	assert.NoError(t, fg.Wait())
}
