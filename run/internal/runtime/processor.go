package runtime

import (
	"context"
	"io"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/signal"
)

// Processor is the executor for processor component.
type Processor struct {
	mutable.Context
	InputPool  *signal.Pool
	OutputPool *signal.Pool
	pipe.ProcessFunc
	StartFunc
	FlushFunc
	Receiver
	Sender
}

// ProcessExecutor returns executor for processor component.
func ProcessExecutor(p pipe.Processor, input, output *signal.Pool, receiver Receiver, sender Sender) Processor {
	return Processor{
		Context:     p.Context,
		InputPool:   input,
		OutputPool:  output,
		ProcessFunc: p.ProcessFunc,
		StartFunc:   StartFunc(p.StartFunc),
		FlushFunc:   FlushFunc(p.FlushFunc),
		Receiver:    receiver,
		Sender:      sender,
	}
}

// Execute does a single iteration of processor component. io.EOF is
// returned if context is done or input is closed.
func (e Processor) Execute(ctx context.Context) error {
	m, ok := e.Receiver.Receive(ctx)
	if !ok {
		e.Sender.Close()
		return io.EOF
	}
	if err := m.Mutations.ApplyTo(e.Context); err != nil {
		e.Sender.Close()
		return err
	}

	out := e.OutputPool.Get()
	written, err := e.ProcessFunc(m.Signal, out)
	if err != nil {
		e.Sender.Close()
		e.OutputPool.Put(out)
		return err
	}
	if written != out.Length() {
		out = out.Slice(0, written)
	}
	e.InputPool.Put(m.Signal)

	if !e.Sender.Send(ctx, Message{Signal: out, Mutations: m.Mutations}) {
		e.Sender.Close()
		e.OutputPool.Put(out)
		return io.EOF
	}
	return nil
}
