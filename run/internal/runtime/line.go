package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/mutable"
)

// Line executes all components of a single line in the same goroutine.
// Components are executed one by one, so every buffer passes through the
// whole line in a single iteration.
type Line struct {
	started   int
	Executors []Executor
}

// LineExecutor returns executor for components bound into line. All
// components are connected with sync links.
func LineExecutor(l *pipe.Line, mc <-chan mutable.Mutations) *Line {
	executors := make([]Executor, 0, 2+len(l.Processors))
	link := SyncLink()
	output := l.SourceOutputPool()
	executors = append(executors, SourceExecutor(l.Source, mc, output, link))
	for i := range l.Processors {
		next := SyncLink()
		input := output
		output = l.ProcessorOutputPool(i)
		executors = append(executors, ProcessExecutor(l.Processors[i], input, output, link, next))
		link = next
	}
	executors = append(executors, SinkExecutor(l.Sink, output, link))
	return &Line{Executors: executors}
}

// AsyncExecutors returns executors for components bound into line. Every
// component is meant to run in its own goroutine, they are connected with
// async links.
func AsyncExecutors(l *pipe.Line, mc <-chan mutable.Mutations) []Executor {
	executors := make([]Executor, 0, 2+len(l.Processors))
	link := AsyncLink()
	output := l.SourceOutputPool()
	executors = append(executors, SourceExecutor(l.Source, mc, output, link))
	for i := range l.Processors {
		next := AsyncLink()
		input := output
		output = l.ProcessorOutputPool(i)
		executors = append(executors, ProcessExecutor(l.Processors[i], input, output, link, next))
		link = next
	}
	executors = append(executors, SinkExecutor(l.Sink, output, link))
	return executors
}

// Start calls start hooks of all components. If any component fails to
// start, successfully started components are flushed.
func (l *Line) Start(ctx context.Context) error {
	for _, e := range l.Executors {
		if err := e.Start(ctx); err != nil {
			err = fmt.Errorf("error starting component %d: %w", l.started, err)
			if flushErr := l.Flush(ctx); flushErr != nil {
				return errors.Join(err, flushErr)
			}
			return err
		}
		l.started++
	}
	return nil
}

// Execute passes a single buffer through all components of the line.
func (l *Line) Execute(ctx context.Context) error {
	for _, e := range l.Executors {
		if err := e.Execute(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Flush calls flush hooks of all started components.
func (l *Line) Flush(ctx context.Context) error {
	var errs []error
	for i := 0; i < l.started; i++ {
		if err := l.Executors[i].Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	l.started = 0
	return errors.Join(errs...)
}

// Lines executes multiple lines that share the same mutable context in a
// single goroutine. Lines that reached the end of stream are flushed and
// removed, io.EOF is returned once no lines are left.
type Lines struct {
	Lines []*Line
}

// Start calls start hooks of all lines. If any line fails to start,
// already started lines are flushed.
func (l *Lines) Start(ctx context.Context) error {
	for i := range l.Lines {
		if err := l.Lines[i].Start(ctx); err != nil {
			errs := []error{fmt.Errorf("error starting line %d: %w", i, err)}
			for j := 0; j < i; j++ {
				if flushErr := l.Lines[j].Flush(ctx); flushErr != nil {
					errs = append(errs, flushErr)
				}
			}
			return errors.Join(errs...)
		}
	}
	return nil
}

// Execute passes a single buffer through every running line.
func (l *Lines) Execute(ctx context.Context) error {
	for i := 0; i < len(l.Lines); {
		err := l.Lines[i].Execute(ctx)
		if err == nil {
			i++
			continue
		}
		if !errors.Is(err, io.EOF) {
			return err
		}
		if err := l.Lines[i].Flush(ctx); err != nil {
			return err
		}
		l.Lines = append(l.Lines[:i], l.Lines[i+1:]...)
	}
	if len(l.Lines) == 0 {
		return io.EOF
	}
	return nil
}

// Flush calls flush hooks of lines that are still running.
func (l *Lines) Flush(ctx context.Context) error {
	var errs []error
	for i := range l.Lines {
		if err := l.Lines[i].Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
