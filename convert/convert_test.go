package convert_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/convert"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/signal"
)

func TestFloatToComplex(t *testing.T) {
	tests := []struct {
		imag     int
		in       signal.Float64
		expected signal.Float64
	}{
		{
			imag:     convert.NoImag,
			in:       signal.Float64{{1, 2, 3}},
			expected: signal.Float64{{1, 2, 3}, {0, 0, 0}},
		},
		{
			imag:     convert.NoImag,
			in:       signal.Float64{{1, 2, 3}, {4, 5, 6}},
			expected: signal.Float64{{1, 2, 3}, {0, 0, 0}},
		},
		{
			imag:     1,
			in:       signal.Float64{{1, 2, 3}, {4, 5, 6}},
			expected: signal.Float64{{1, 2, 3}, {4, 5, 6}},
		},
		{
			imag:     0,
			in:       signal.Float64{{1, 2, 3}},
			expected: signal.Float64{{1, 2, 3}, {1, 2, 3}},
		},
	}
	for _, c := range tests {
		props := pipe.SignalProperties{SampleRate: 8000, Channels: c.in.Channels()}
		proc, err := convert.FloatToComplex(c.imag)(mutable.Mutable(), 4, props)
		require.NoError(t, err)
		assert.Equal(t, pipe.SignalProperties{SampleRate: 8000, Channels: 2}, proc.Output)

		// stale values of reused buffer must be overwritten
		out := signal.Float64{{9, 9, 9, 9}, {9, 9, 9, 9}}
		n, err := proc.ProcessFunc(c.in, out)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, c.expected, out.Slice(0, n))
	}
}

func TestFloatToComplexInvalidChannel(t *testing.T) {
	props := pipe.SignalProperties{SampleRate: 8000, Channels: 1}
	for _, imag := range []int{1, -2} {
		_, err := convert.FloatToComplex(imag)(mutable.Mutable(), 4, props)
		assert.ErrorIs(t, err, convert.ErrInvalidChannel)
	}
}
