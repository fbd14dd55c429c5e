// Package mock provides mocks for pipeline components and allows to
// execute integration tests.
package mock

import (
	"context"
	"io"
	"time"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/signal"
)

// DefaultSampleRate is used by source if sample rate is not provided.
const DefaultSampleRate = signal.Frequency(44100)

type (
	// Counter counts messages and samples.
	Counter struct {
		Messages int
		Samples  int
	}

	// Flusher mocks flush hook.
	Flusher struct {
		Flushed      bool
		ErrorOnFlush error
	}

	// Starter mocks start hook.
	Starter struct {
		Started      bool
		ErrorOnStart error
	}
)

// Source mocks a pipe.Source.
type Source struct {
	mutable.Context
	Counter
	Starter
	Flusher
	Interval    time.Duration
	Limit       int
	Channels    int
	Value       float64
	SampleRate  signal.Frequency
	ErrorOnCall error
	ErrorOnMake error
}

// Processor mocks a pipe.Processor.
type Processor struct {
	mutable.Context
	Counter
	Starter
	Flusher
	ErrorOnCall error
	ErrorOnMake error
}

// Sink mocks a pipe.Sink. Values are not thread-safe, so they should not
// be checked while pipe is running.
type Sink struct {
	mutable.Context
	Counter
	Starter
	Flusher
	Discard     bool
	Values      signal.Float64
	ErrorOnCall error
	ErrorOnMake error
}

// Source returns new source allocator.
func (m *Source) Source() pipe.SourceAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int) (pipe.Source, error) {
		if m.ErrorOnMake != nil {
			return pipe.Source{}, m.ErrorOnMake
		}
		m.Context = mctx
		if m.Channels == 0 {
			m.Channels = 1
		}
		if m.SampleRate == 0 {
			m.SampleRate = DefaultSampleRate
		}
		return pipe.Source{
			SourceFunc: func(out signal.Float64) (int, error) {
				if m.ErrorOnCall != nil {
					return 0, m.ErrorOnCall
				}
				if m.Samples >= m.Limit {
					return 0, io.EOF
				}
				time.Sleep(m.Interval)
				read := out.Length()
				// check if we need a shorter buffer.
				if left := m.Limit - m.Samples; left < read {
					read = left
				}
				for i := range out {
					for j := 0; j < read; j++ {
						out[i][j] = m.Value
					}
				}
				m.advance(read)
				return read, nil
			},
			StartFunc: m.start,
			FlushFunc: m.flush,
			Output: pipe.SignalProperties{
				Channels:   m.Channels,
				SampleRate: m.SampleRate,
			},
		}, nil
	}
}

// Reset returns a mutation that resets source counters.
func (m *Source) Reset() mutable.Mutation {
	return m.Mutate(func() error {
		m.Counter = Counter{}
		return nil
	})
}

// SetLimit returns a mutation that changes the samples limit.
func (m *Source) SetLimit(limit int) mutable.Mutation {
	return m.Mutate(func() error {
		m.Limit = limit
		return nil
	})
}

// Processor returns new processor allocator. Processor copies input
// signal into output.
func (m *Processor) Processor() pipe.ProcessorAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int, input pipe.SignalProperties) (pipe.Processor, error) {
		if m.ErrorOnMake != nil {
			return pipe.Processor{}, m.ErrorOnMake
		}
		m.Context = mctx
		return pipe.Processor{
			ProcessFunc: func(in, out signal.Float64) (int, error) {
				if m.ErrorOnCall != nil {
					return 0, m.ErrorOnCall
				}
				n := in.CopyTo(out)
				m.advance(n)
				return n, nil
			},
			StartFunc: m.start,
			FlushFunc: m.flush,
			Output:    input,
		}, nil
	}
}

// Sink returns new sink allocator.
func (m *Sink) Sink() pipe.SinkAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int, input pipe.SignalProperties) (pipe.Sink, error) {
		if m.ErrorOnMake != nil {
			return pipe.Sink{}, m.ErrorOnMake
		}
		m.Context = mctx
		return pipe.Sink{
			SinkFunc: func(in signal.Float64) error {
				if m.ErrorOnCall != nil {
					return m.ErrorOnCall
				}
				if !m.Discard {
					m.Values = m.Values.Append(in)
				}
				m.advance(in.Length())
				return nil
			},
			StartFunc: m.start,
			FlushFunc: m.flush,
		}, nil
	}
}

func (c *Counter) advance(size int) {
	c.Messages++
	c.Samples += size
}

func (s *Starter) start(context.Context) error {
	s.Started = true
	return s.ErrorOnStart
}

func (f *Flusher) flush(context.Context) error {
	f.Flushed = true
	return f.ErrorOnFlush
}
