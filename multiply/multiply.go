// Package multiply scales the signal by a constant factor.
package multiply

import (
	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/signal"
)

// Multiplier multiplies every sample of every channel by the factor.
type Multiplier struct {
	mutable.Context
	factor float64
}

// Const returns a new multiplier with provided factor.
func Const(factor float64) *Multiplier {
	return &Multiplier{factor: factor}
}

// Processor returns the allocator of the multiplier.
func (m *Multiplier) Processor() pipe.ProcessorAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int, input pipe.SignalProperties) (pipe.Processor, error) {
		m.Context = mctx
		return pipe.Processor{
			ProcessFunc: m.process,
			Output:      input,
		}, nil
	}
}

// Factor returns current factor.
func (m *Multiplier) Factor() float64 {
	return m.factor
}

// SetFactor returns a mutation that changes the factor of running
// multiplier.
func (m *Multiplier) SetFactor(factor float64) mutable.Mutation {
	return m.Mutate(func() error {
		m.factor = factor
		return nil
	})
}

func (m *Multiplier) process(in, out signal.Float64) (int, error) {
	for c := range in {
		for i, v := range in[c] {
			out[c][i] = v * m.factor
		}
	}
	return in.Length(), nil
}
