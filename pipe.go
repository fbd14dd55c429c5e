package pipe

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/signal"
)

type (
	// Pipe is a set of bound lines ready to be executed.
	Pipe struct {
		id         string
		bufferSize int
		Lines      []*Line
	}

	// Routing defines sequence of DSP components allocators. It has a
	// single source, zero or many processors and single sink. If the
	// context is mutable, the line will be executed in a single
	// goroutine and all components share this context.
	Routing struct {
		mutable.Context
		Source     SourceAllocatorFunc
		Processors []ProcessorAllocatorFunc
		Sink       SinkAllocatorFunc
	}

	// Line is a sequence of allocated components.
	Line struct {
		mutable.Context
		bufferSize int
		Source     Source
		Processors []Processor
		Sink       Sink
	}

	// SourceAllocatorFunc returns source for provided buffer size. It is
	// responsible for pre-allocation of all necessary buffers and
	// structures.
	SourceAllocatorFunc func(mctx mutable.Context, bufferSize int) (Source, error)

	// ProcessorAllocatorFunc returns processor for provided buffer size.
	// It is responsible for pre-allocation of all necessary buffers and
	// structures. Along with the processor, output signal properties are
	// returned.
	ProcessorAllocatorFunc func(mctx mutable.Context, bufferSize int, input SignalProperties) (Processor, error)

	// SinkAllocatorFunc returns sink for provided buffer size. It is
	// responsible for pre-allocation of all necessary buffers and
	// structures.
	SinkAllocatorFunc func(mctx mutable.Context, bufferSize int, input SignalProperties) (Sink, error)

	// SignalProperties contains information about input/output signal.
	SignalProperties struct {
		SampleRate signal.Frequency
		Channels   int
	}

	// Source is a source of signal data. Optinaly, mutability can be
	// provided to handle mutations and flush hook to handle resource
	// clean up.
	Source struct {
		mutable.Context
		SourceFunc
		StartFunc
		FlushFunc
		Output SignalProperties
	}

	// Processor is a mutator of signal data. Optinaly, mutability can be
	// provided to handle mutations and flush hook to handle resource
	// clean up.
	Processor struct {
		mutable.Context
		ProcessFunc
		StartFunc
		FlushFunc
		Output SignalProperties
	}

	// Sink is a destination of signal data. Optinaly, mutability can be
	// provided to handle mutations and flush hook to handle resource
	// clean up.
	Sink struct {
		mutable.Context
		SinkFunc
		StartFunc
		FlushFunc
	}

	// SourceFunc writes signal into the buffer and returns the number of
	// samples per channel written. io.EOF is returned when source is
	// exhausted.
	SourceFunc func(out signal.Float64) (int, error)

	// ProcessFunc processes the input buffer into the output buffer and
	// returns the number of samples per channel written.
	ProcessFunc func(in, out signal.Float64) (int, error)

	// SinkFunc consumes the buffer.
	SinkFunc func(in signal.Float64) error

	// StartFunc is a hook that is triggered before the execution.
	StartFunc func(ctx context.Context) error

	// FlushFunc is a hook that is triggered after the execution is done.
	FlushFunc func(ctx context.Context) error
)

var (
	// ErrInvalidBufferSize is returned if buffer size is not positive.
	ErrInvalidBufferSize = errors.New("invalid buffer size")
	// ErrIncompleteRouting is returned if routing misses source or sink.
	ErrIncompleteRouting = errors.New("incomplete routing")
	// ErrInvalidProperties is returned if component provides signal
	// properties that cannot be processed.
	ErrInvalidProperties = errors.New("invalid signal properties")
)

// New creates a new pipe that executes provided routes. All allocators
// are executed in the order of components in the routes.
func New(bufferSize int, routes ...Routing) (*Pipe, error) {
	if bufferSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBufferSize, bufferSize)
	}
	lines := make([]*Line, 0, len(routes))
	for i := range routes {
		l, err := routes[i].Line(bufferSize)
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		lines = append(lines, l)
	}
	return &Pipe{
		id:         xid.New().String(),
		bufferSize: bufferSize,
		Lines:      lines,
	}, nil
}

// ID returns unique identifier of the pipe.
func (p *Pipe) ID() string {
	return p.id
}

// BufferSize of the pipe.
func (p *Pipe) BufferSize() int {
	return p.bufferSize
}

// Processors is a helper function to use in line constructors.
func Processors(processors ...ProcessorAllocatorFunc) []ProcessorAllocatorFunc {
	return processors
}

// Line executes allocators of the routing and binds components into the
// line.
func (r Routing) Line(bufferSize int) (*Line, error) {
	if r.Source == nil || r.Sink == nil {
		return nil, ErrIncompleteRouting
	}
	source, err := r.Source.allocate(componentContext(r.Context), bufferSize)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}

	input := source.Output
	processors := make([]Processor, 0, len(r.Processors))
	for i := range r.Processors {
		processor, err := r.Processors[i].allocate(componentContext(r.Context), bufferSize, input)
		if err != nil {
			return nil, fmt.Errorf("processor %d: %w", i, err)
		}
		processors = append(processors, processor)
		input = processor.Output
	}

	sink, err := r.Sink.allocate(componentContext(r.Context), bufferSize, input)
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}

	return &Line{
		Context:    r.Context,
		bufferSize: bufferSize,
		Source:     source,
		Processors: processors,
		Sink:       sink,
	}, nil
}

// BufferSize of the line.
func (l *Line) BufferSize() int {
	return l.bufferSize
}

// SourceOutputPool returns a pool of buffers produced by the source.
func (l *Line) SourceOutputPool() *signal.Pool {
	return l.Source.Output.pool(l.bufferSize)
}

// ProcessorOutputPool returns a pool of buffers produced by the
// processor at provided position.
func (l *Line) ProcessorOutputPool(i int) *signal.Pool {
	return l.Processors[i].Output.pool(l.bufferSize)
}

// SinkInputPool returns a pool of buffers consumed by the sink.
func (l *Line) SinkInputPool() *signal.Pool {
	if n := len(l.Processors); n > 0 {
		return l.ProcessorOutputPool(n - 1)
	}
	return l.SourceOutputPool()
}

func (fn SourceAllocatorFunc) allocate(mctx mutable.Context, bufferSize int) (Source, error) {
	c, err := fn(mctx, bufferSize)
	if err != nil {
		return Source{}, err
	}
	if err := c.Output.validate(); err != nil {
		return Source{}, err
	}
	c.Context = mctx
	return c, nil
}

func (fn ProcessorAllocatorFunc) allocate(mctx mutable.Context, bufferSize int, input SignalProperties) (Processor, error) {
	c, err := fn(mctx, bufferSize, input)
	if err != nil {
		return Processor{}, err
	}
	if err := c.Output.validate(); err != nil {
		return Processor{}, err
	}
	c.Context = mctx
	return c, nil
}

func (fn SinkAllocatorFunc) allocate(mctx mutable.Context, bufferSize int, input SignalProperties) (Sink, error) {
	c, err := fn(mctx, bufferSize, input)
	if err != nil {
		return Sink{}, err
	}
	c.Context = mctx
	return c, nil
}

func (p SignalProperties) validate() error {
	if p.Channels <= 0 {
		return fmt.Errorf("%w: channels %d", ErrInvalidProperties, p.Channels)
	}
	if p.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidProperties, p.SampleRate)
	}
	return nil
}

func (p SignalProperties) pool(bufferSize int) *signal.Pool {
	return signal.GetPool(signal.Allocator{
		Channels: p.Channels,
		Length:   bufferSize,
	})
}

// componentContext returns the context of the line if it's mutable.
// Otherwise every component gets its own context.
func componentContext(lineContext mutable.Context) mutable.Context {
	if lineContext.IsMutable() {
		return lineContext
	}
	return mutable.Mutable()
}
