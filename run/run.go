// Package run executes bound pipes.
//
// Every line with immutable context is executed with one goroutine per
// component. Lines with mutable context are executed in a single
// goroutine, lines that share the same context share the goroutine.
package run

import (
	"context"

	"golang.org/x/sync/errgroup"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/run/internal/runtime"
)

type (
	// Run executes the pipe asynchronously.
	Run struct {
		cancelFn      context.CancelFunc
		listeners     map[mutable.Context]chan mutable.Mutations
		mutationsChan chan []mutable.Mutation
		done          chan struct{}
		err           error
	}

	// mutationsCache accumulates mutations per listener until they can be
	// delivered.
	mutationsCache map[chan mutable.Mutations]mutable.Mutations
)

// New creates and starts new pipe. Initializers are delivered to the
// components before the first buffer is processed.
func New(ctx context.Context, p *pipe.Pipe, initializers ...mutable.Mutation) *Run {
	// cancel is required to stop the pipe
	ctx, cancelFn := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	r := Run{
		cancelFn:      cancelFn,
		listeners:     make(map[mutable.Context]chan mutable.Mutations),
		mutationsChan: make(chan []mutable.Mutation),
		done:          make(chan struct{}),
	}
	executors := r.bind(p)

	// initializers are pushed before start, channels are empty
	mc := r.cache(make(mutationsCache), initializers)
	mc.push(gctx)

	for i := range executors {
		e := executors[i]
		g.Go(func() error {
			return runtime.Run(gctx, e)
		})
	}
	go r.dispatch(gctx, mc)
	go func() {
		r.err = g.Wait()
		cancelFn()
		close(r.done)
	}()
	return &r
}

// bind creates executors for all lines of the pipe and registers
// mutation listeners of all components.
func (r *Run) bind(p *pipe.Pipe) []runtime.Executor {
	var executors []runtime.Executor
	syncLines := make(map[mutable.Context]*runtime.Lines)
	for _, l := range p.Lines {
		if l.Context.IsMutable() {
			if lines, ok := syncLines[l.Context]; ok {
				lines.Lines = append(lines.Lines, runtime.LineExecutor(l, r.listeners[l.Context]))
				continue
			}
			mc := make(chan mutable.Mutations, 1)
			r.listeners[l.Context] = mc
			lines := &runtime.Lines{Lines: []*runtime.Line{runtime.LineExecutor(l, mc)}}
			syncLines[l.Context] = lines
			executors = append(executors, lines)
			continue
		}

		mc := make(chan mutable.Mutations, 1)
		r.listeners[l.Source.Context] = mc
		for i := range l.Processors {
			r.listeners[l.Processors[i].Context] = mc
		}
		r.listeners[l.Sink.Context] = mc
		executors = append(executors, runtime.AsyncExecutors(l, mc)...)
	}
	return executors
}

func (r *Run) dispatch(ctx context.Context, mc mutationsCache) {
	for {
		select {
		case ms := <-r.mutationsChan:
			r.cache(mc, ms).push(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// cache puts mutations into the cache. Mutations of unknown contexts are
// dropped.
func (r *Run) cache(mc mutationsCache, ms []mutable.Mutation) mutationsCache {
	for i := range ms {
		if c, ok := r.listeners[ms[i].Context]; ok {
			mc[c] = mc[c].Put(ms[i])
		}
	}
	return mc
}

func (mc mutationsCache) push(ctx context.Context) {
	for c, m := range mc {
		select {
		case c <- m:
			delete(mc, c)
		case <-ctx.Done():
			return
		}
	}
}

// Push new mutators into pipe. Mutations pushed after the pipe is done
// are dropped.
func (r *Run) Push(mutations ...mutable.Mutation) {
	select {
	case r.mutationsChan <- mutations:
	case <-r.done:
	}
}

// Stop cancels the execution. Every started component is flushed.
func (r *Run) Stop() {
	r.cancelFn()
}

// Done returns a channel that is closed when the execution is done.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait for successful finish or first error to occur.
func (r *Run) Wait() error {
	<-r.done
	return r.err
}
