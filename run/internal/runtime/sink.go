package runtime

import (
	"context"
	"io"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/signal"
)

// Sink is the executor for sink component.
type Sink struct {
	mutable.Context
	InputPool *signal.Pool
	pipe.SinkFunc
	StartFunc
	FlushFunc
	Receiver
}

// SinkExecutor returns executor for sink component.
func SinkExecutor(s pipe.Sink, input *signal.Pool, receiver Receiver) Sink {
	return Sink{
		Context:   s.Context,
		InputPool: input,
		SinkFunc:  s.SinkFunc,
		StartFunc: StartFunc(s.StartFunc),
		FlushFunc: FlushFunc(s.FlushFunc),
		Receiver:  receiver,
	}
}

// Execute does a single iteration of sink component. io.EOF is returned if
// context is done or input is closed.
func (e Sink) Execute(ctx context.Context) error {
	m, ok := e.Receiver.Receive(ctx)
	if !ok {
		return io.EOF
	}
	if err := m.Mutations.ApplyTo(e.Context); err != nil {
		return err
	}
	err := e.SinkFunc(m.Signal)
	e.InputPool.Put(m.Signal)
	return err
}
