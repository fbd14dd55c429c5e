package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
)

type (
	// Executor executes a single DSP operation.
	Executor interface {
		Execute(context.Context) error
		Start(context.Context) error
		Flush(context.Context) error
	}

	// StartFunc is a closure that triggers pipe component start hook.
	StartFunc func(ctx context.Context) error
	// FlushFunc is a closure that triggers pipe component flush hook.
	FlushFunc func(ctx context.Context) error
)

// Start calls the start hook.
func (fn StartFunc) Start(ctx context.Context) error {
	return callHook(ctx, fn)
}

// Flush calls the flush hook.
func (fn FlushFunc) Flush(ctx context.Context) error {
	return callHook(ctx, fn)
}

func callHook(ctx context.Context, hook func(context.Context) error) error {
	if hook == nil {
		return nil
	}
	return hook(ctx)
}

// Run executes the component until io.EOF or error is returned. Flush
// hook is called only if start hook succeeded. Flush receives a context
// that is never done, so the component can release resources after the
// execution was cancelled.
func Run(ctx context.Context, e Executor) error {
	if err := e.Start(ctx); err != nil {
		return fmt.Errorf("error starting component: %w", err)
	}

	var err error
	for err == nil {
		err = e.Execute(ctx)
	}
	if errors.Is(err, io.EOF) {
		err = nil
	} else {
		err = fmt.Errorf("error running component: %w", err)
	}

	if flushErr := e.Flush(context.WithoutCancel(ctx)); flushErr != nil {
		flushErr = fmt.Errorf("error flushing component: %w", flushErr)
		if err == nil {
			return flushErr
		}
		return errors.Join(err, flushErr)
	}
	return err
}
