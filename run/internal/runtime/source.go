package runtime

import (
	"context"
	"io"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/signal"
)

// Source is the executor for source component.
type Source struct {
	Mutations <-chan mutable.Mutations
	mutable.Context
	OutputPool *signal.Pool
	pipe.SourceFunc
	StartFunc
	FlushFunc
	Sender
}

// SourceExecutor returns executor for source component.
func SourceExecutor(s pipe.Source, mc <-chan mutable.Mutations, output *signal.Pool, sender Sender) Source {
	return Source{
		Mutations:  mc,
		Context:    s.Context,
		OutputPool: output,
		SourceFunc: s.SourceFunc,
		StartFunc:  StartFunc(s.StartFunc),
		FlushFunc:  FlushFunc(s.FlushFunc),
		Sender:     sender,
	}
}

// Execute does a single iteration of source component. io.EOF is returned
// if context is done.
func (e Source) Execute(ctx context.Context) error {
	var ms mutable.Mutations
	select {
	case ms = <-e.Mutations:
		if err := ms.ApplyTo(e.Context); err != nil {
			e.Sender.Close()
			return err
		}
	case <-ctx.Done():
		e.Sender.Close()
		return io.EOF
	default:
	}

	out := e.OutputPool.Get()
	read, err := e.SourceFunc(out)
	if err != nil {
		e.Sender.Close()
		e.OutputPool.Put(out)
		return err
	}
	if read != out.Length() {
		out = out.Slice(0, read)
	}
	if !e.Sender.Send(ctx, Message{Signal: out, Mutations: ms}) {
		e.Sender.Close()
		return io.EOF
	}
	return nil
}
