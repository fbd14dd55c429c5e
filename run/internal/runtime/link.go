package runtime

import (
	"context"

	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/signal"
)

type (
	// Message is a main structure for pipe transport.
	Message struct {
		Signal    signal.Float64
		Mutations mutable.Mutations
	}

	// Sender sends the message.
	Sender interface {
		Send(context.Context, Message) bool
		Close()
	}

	// Receiver receives the message.
	Receiver interface {
		Receive(context.Context) (Message, bool)
	}

	// Link implements both Sender and Receiver. It's used to connect two
	// pipe components.
	Link interface {
		Sender
		Receiver
	}

	syncLink struct {
		closed  bool
		message Message
	}

	asyncLink chan Message
)

// SyncLink is a link that connects two components executed in the same
// goroutine.
func SyncLink() Link {
	return &syncLink{}
}

// AsyncLink is a link that connects two components executed in different
// goroutines.
func AsyncLink() Link {
	return asyncLink(make(chan Message, 1))
}

func (l *syncLink) Send(_ context.Context, m Message) bool {
	if l.closed {
		return false
	}
	l.message = m
	return true
}

func (l *syncLink) Receive(context.Context) (Message, bool) {
	if l.closed {
		return Message{}, false
	}
	return l.message, true
}

func (l *syncLink) Close() {
	l.closed = true
}

func (l asyncLink) Send(ctx context.Context, m Message) bool {
	select {
	case <-ctx.Done():
		return false
	case l <- m:
		return true
	}
}

func (l asyncLink) Receive(ctx context.Context) (Message, bool) {
	select {
	case <-ctx.Done():
		return Message{}, false
	case m, ok := <-l:
		return m, ok
	}
}

func (l asyncLink) Close() {
	close(l)
}
