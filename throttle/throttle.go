// Package throttle limits the throughput of the signal.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/time/rate"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/signal"
)

// ErrInvalidLimit is returned when limit is negative.
var ErrInvalidLimit = errors.New("invalid limit")

// Throttle passes the signal through with bounded rate. It doesn't
// change the signal.
type Throttle struct {
	mutable.Context
	limit      signal.Frequency
	sampleRate signal.Frequency
	limiter    *rate.Limiter
	ctx        context.Context
}

// Rate returns a new throttle with provided limit in samples per second.
// Zero limit means the sample rate of the input signal.
func Rate(limit signal.Frequency) *Throttle {
	return &Throttle{limit: limit}
}

// Processor returns the allocator of the throttle.
func (t *Throttle) Processor() pipe.ProcessorAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int, input pipe.SignalProperties) (pipe.Processor, error) {
		if t.limit < 0 {
			return pipe.Processor{}, fmt.Errorf("%w: %d", ErrInvalidLimit, t.limit)
		}
		t.Context = mctx
		t.sampleRate = input.SampleRate
		// burst of a single buffer allows to wait for a whole buffer
		t.limiter = rate.NewLimiter(t.rateLimit(), bufferSize)
		return pipe.Processor{
			ProcessFunc: t.process,
			StartFunc:   t.start,
			Output:      input,
		}, nil
	}
}

// Limit returns the configured limit.
func (t *Throttle) Limit() signal.Frequency {
	return t.limit
}

// SetLimit returns a mutation that changes the limit of running
// throttle.
func (t *Throttle) SetLimit(limit signal.Frequency) mutable.Mutation {
	return t.Mutate(func() error {
		if limit < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
		}
		t.limit = limit
		t.limiter.SetLimit(t.rateLimit())
		return nil
	})
}

func (t *Throttle) rateLimit() rate.Limit {
	if t.limit == 0 {
		return rate.Limit(t.sampleRate)
	}
	return rate.Limit(t.limit)
}

func (t *Throttle) start(ctx context.Context) error {
	t.ctx = ctx
	return nil
}

func (t *Throttle) process(in, out signal.Float64) (int, error) {
	n := in.Length()
	if err := t.limiter.WaitN(t.ctx, n); err != nil {
		if t.ctx.Err() != nil {
			return 0, io.EOF
		}
		return 0, err
	}
	return in.CopyTo(out), nil
}
