// Package convert provides processors that change the layout of the
// signal.
package convert

import (
	"errors"
	"fmt"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/signal"
)

// NoImag is used when the imaginary part should be zero.
const NoImag = -1

// ErrInvalidChannel is returned when input doesn't have requested
// channel.
var ErrInvalidChannel = errors.New("invalid channel")

// FloatToComplex converts real signal into complex. Channel 0 of the input
// is the real part, channel imag is the imaginary part. Output has two
// channels: real and imaginary parts.
func FloatToComplex(imag int) pipe.ProcessorAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int, input pipe.SignalProperties) (pipe.Processor, error) {
		if imag != NoImag && (imag < 0 || imag >= input.Channels) {
			return pipe.Processor{}, fmt.Errorf("%w: %d of %d channels", ErrInvalidChannel, imag, input.Channels)
		}
		return pipe.Processor{
			ProcessFunc: func(in, out signal.Float64) (int, error) {
				n := copy(out[0], in[0])
				if imag == NoImag {
					for i := 0; i < n; i++ {
						out[1][i] = 0
					}
					return n, nil
				}
				copy(out[1], in[imag][:n])
				return n, nil
			},
			Output: pipe.SignalProperties{
				SampleRate: input.SampleRate,
				Channels:   2,
			},
		}, nil
	}
}
