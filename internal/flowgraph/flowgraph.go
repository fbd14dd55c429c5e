// Package flowgraph assembles the fixed pipeline that converts a WAV file
// into complex samples written to a file descriptor:
//
//	wav -> throttle -> multiply -> probe -> float to complex -> descriptor
package flowgraph

import (
	"context"
	"sync"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/convert"
	"pipelined.dev/wavpipe/fdsink"
	"pipelined.dev/wavpipe/log"
	"pipelined.dev/wavpipe/metric"
	"pipelined.dev/wavpipe/multiply"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/probe"
	"pipelined.dev/wavpipe/run"
	"pipelined.dev/wavpipe/signal"
	"pipelined.dev/wavpipe/throttle"
	"pipelined.dev/wavpipe/wav"
)

// ProbeName is the name of published probe counters.
const ProbeName = "probe"

// Config of the flowgraph.
type Config struct {
	Input      string
	Gain       float64
	BufferSize int
	// Throttle limit in samples per second, zero means the sample rate of
	// the input.
	Throttle signal.Frequency
	Loop     bool
	// Sync executes all stages in a single goroutine.
	Sync   bool
	Logger log.Logger
	// MeterOptions are passed to the probe.
	MeterOptions []metric.MeterOption
}

// Flowgraph is the bound pipeline.
type Flowgraph struct {
	pipe       *pipe.Pipe
	probe      *probe.Probe
	throttle   *throttle.Throttle
	gain       *multiply.Multiplier
	sampleRate signal.Frequency
	logger     log.Logger

	mu       sync.Mutex
	run      *run.Run
	stopOnce sync.Once
}

// New binds the pipeline. The descriptor must be open for writing, it's
// never closed by the flowgraph.
func New(cfg Config, fd int) (*Flowgraph, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Silent()
	}
	f := Flowgraph{
		probe:    probe.Rate(ProbeName, cfg.MeterOptions...),
		throttle: throttle.Rate(cfg.Throttle),
		gain:     multiply.Const(cfg.Gain),
		logger:   logger,
	}
	routing := pipe.Routing{
		Source: wav.Source(cfg.Input, cfg.Loop),
		Processors: pipe.Processors(
			f.throttle.Processor(),
			f.gain.Processor(),
			f.probe.Processor(),
			convert.FloatToComplex(convert.NoImag),
		),
		Sink: fdsink.Sink(fd, fdsink.Complex64),
	}
	if cfg.Sync {
		routing.Context = mutable.Mutable()
	}
	p, err := pipe.New(cfg.BufferSize, routing)
	if err != nil {
		return nil, err
	}
	f.pipe = p
	f.sampleRate = p.Lines[0].Source.Output.SampleRate
	logger.Debug("flowgraph ", p.ID(), " bound with buffer size ", cfg.BufferSize)
	return &f, nil
}

// SampleRate of the WAV source.
func (f *Flowgraph) SampleRate() signal.Frequency {
	return f.sampleRate
}

// Start the execution. It must be called once.
func (f *Flowgraph) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger.Debug("flowgraph ", f.pipe.ID(), " started")
	f.run = run.New(ctx, f.pipe)
}

// Rate returns the throughput measured by the probe.
func (f *Flowgraph) Rate() float64 {
	return f.probe.Rate()
}

// Done returns a channel that is closed when execution is done. Nil is
// returned if flowgraph wasn't started.
func (f *Flowgraph) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.run == nil {
		return nil
	}
	return f.run.Done()
}

// SetGain changes the gain of running flowgraph.
func (f *Flowgraph) SetGain(gain float64) {
	f.push(f.gain.SetFactor(gain))
}

// SetThrottle changes the throughput limit of running flowgraph.
func (f *Flowgraph) SetThrottle(limit signal.Frequency) {
	f.push(f.throttle.SetLimit(limit))
}

func (f *Flowgraph) push(m mutable.Mutation) {
	f.mu.Lock()
	r := f.run
	f.mu.Unlock()
	if r != nil {
		r.Push(m)
	}
}

// Stop the execution. It's safe to call multiple times.
func (f *Flowgraph) Stop() {
	f.stopOnce.Do(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.run != nil {
			f.logger.Debug("flowgraph ", f.pipe.ID(), " stopping")
			f.run.Stop()
		}
	})
}

// Wait for the execution to finish. All buffered output is written to the
// descriptor when Wait returns.
func (f *Flowgraph) Wait() error {
	f.mu.Lock()
	r := f.run
	f.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.Wait()
}
