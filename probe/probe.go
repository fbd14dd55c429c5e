// Package probe provides a pass-through processor that measures the
// throughput of the signal.
package probe

import (
	"context"
	"sync/atomic"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/metric"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/signal"
)

// Probe measures the rate of samples passed through it.
type Probe struct {
	name    string
	options []metric.MeterOption
	meter   atomic.Pointer[metric.Meter]
}

// Rate returns a new probe. Name is used to publish the counters.
func Rate(name string, options ...metric.MeterOption) *Probe {
	return &Probe{
		name:    name,
		options: options,
	}
}

// Processor returns the allocator of the probe. Signal is copied to the
// output unchanged.
func (p *Probe) Processor() pipe.ProcessorAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int, input pipe.SignalProperties) (pipe.Processor, error) {
		meter := metric.NewMeter(p.name, input.SampleRate, p.options...)
		p.meter.Store(meter)
		return pipe.Processor{
			ProcessFunc: func(in, out signal.Float64) (int, error) {
				n := in.CopyTo(out)
				meter.Measure(n)
				return n, nil
			},
			StartFunc: func(context.Context) error {
				meter.Start()
				return nil
			},
			FlushFunc: func(context.Context) error {
				meter.Stop()
				return nil
			},
			Output: input,
		}, nil
	}
}

// Rate returns the throughput in samples per second per channel. It's
// safe to call from any goroutine.
func (p *Probe) Rate() float64 {
	if m := p.meter.Load(); m != nil {
		return m.Rate()
	}
	return 0
}
