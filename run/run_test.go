package run_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/goleak"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/mock"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/run"
)

const bufferSize = 512

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSimplePipe(t *testing.T) {
	source := &mock.Source{
		Limit:    862 * bufferSize,
		Channels: 2,
	}

	proc1 := &mock.Processor{}
	sink1 := &mock.Sink{Discard: true}

	p, err := pipe.New(
		bufferSize,
		pipe.Routing{
			Source:     source.Source(),
			Processors: pipe.Processors(proc1.Processor()),
			Sink:       sink1.Sink(),
		},
	)
	assertNil(t, "error", err)

	// start
	r := run.New(context.Background(), p)
	err = r.Wait()
	assertNil(t, "error", err)

	assertEqual(t, "messages", source.Counter.Messages, 862)
	assertEqual(t, "samples", source.Counter.Samples, 862*bufferSize)
	assertEqual(t, "sink samples", sink1.Counter.Samples, 862*bufferSize)
	assertEqual(t, "sink flushed", sink1.Flushed, true)
}

func TestReset(t *testing.T) {
	source := &mock.Source{
		Limit:    862 * bufferSize,
		Channels: 2,
	}
	sink := &mock.Sink{Discard: true}

	p, err := pipe.New(
		bufferSize,
		pipe.Routing{
			Source: source.Source(),
			Sink:   sink.Sink(),
		},
	)
	assertNil(t, "error", err)
	r := run.New(context.Background(), p)
	// start
	err = r.Wait()
	assertNil(t, "error", err)
	assertEqual(t, "messages", source.Counter.Messages, 862)
	assertEqual(t, "samples", source.Counter.Samples, 862*bufferSize)

	r = run.New(context.Background(), p, source.Reset())
	err = r.Wait()
	assertNil(t, "error", err)
	assertEqual(t, "messages", sink.Counter.Messages, 2*862)
	assertEqual(t, "samples", sink.Counter.Samples, 2*862*bufferSize)
}

func TestSync(t *testing.T) {
	tests := []struct {
		name   string
		limits []int
	}{
		{name: "single line", limits: []int{862}},
		{name: "lines of different length", limits: []int{862, 100}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mctx := mutable.Mutable()
			var routes []pipe.Routing
			var sinks []*mock.Sink
			for _, limit := range test.limits {
				source := &mock.Source{Limit: limit * bufferSize, Channels: 2}
				sink := &mock.Sink{Discard: true}
				routes = append(routes, pipe.Routing{
					Context: mctx,
					Source:  source.Source(),
					Sink:    sink.Sink(),
				})
				sinks = append(sinks, sink)
			}
			p, err := pipe.New(bufferSize, routes...)
			assertNil(t, "error", err)

			err = run.New(context.Background(), p).Wait()
			assertNil(t, "error", err)
			for i, sink := range sinks {
				assertEqual(t, "messages", sink.Counter.Messages, test.limits[i])
				assertEqual(t, "samples", sink.Counter.Samples, test.limits[i]*bufferSize)
				assertEqual(t, "sink flushed", sink.Flushed, true)
			}
		})
	}
}

func TestStop(t *testing.T) {
	testStop := func(mctx mutable.Context) func(*testing.T) {
		return func(t *testing.T) {
			source := &mock.Source{
				Limit:    1 << 30,
				Interval: time.Millisecond,
			}
			sink := &mock.Sink{Discard: true}
			p, err := pipe.New(
				bufferSize,
				pipe.Routing{
					Context:    mctx,
					Source:     source.Source(),
					Processors: pipe.Processors((&mock.Processor{}).Processor()),
					Sink:       sink.Sink(),
				},
			)
			assertNil(t, "error", err)

			r := run.New(context.Background(), p)
			time.Sleep(20 * time.Millisecond)
			r.Stop()
			err = r.Wait()
			assertNil(t, "error", err)
			<-r.Done()
			assertEqual(t, "source flushed", source.Flushed, true)
			assertEqual(t, "sink flushed", sink.Flushed, true)
			assertEqual(t, "source limit reached", source.Samples >= source.Limit, false)
		}
	}
	t.Run("async", testStop(mutable.Immutable()))
	t.Run("sync", testStop(mutable.Mutable()))
}

func TestContextCancel(t *testing.T) {
	source := &mock.Source{
		Limit:    1 << 30,
		Interval: time.Millisecond,
	}
	sink := &mock.Sink{Discard: true}
	p, err := pipe.New(
		bufferSize,
		pipe.Routing{
			Source: source.Source(),
			Sink:   sink.Sink(),
		},
	)
	assertNil(t, "error", err)

	ctx, cancelFn := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelFn()
	err = run.New(ctx, p).Wait()
	assertNil(t, "error", err)
	assertEqual(t, "sink flushed", sink.Flushed, true)
}

func TestPush(t *testing.T) {
	testPush := func(mctx mutable.Context) func(*testing.T) {
		return func(t *testing.T) {
			source := &mock.Source{
				Limit:    1 << 30,
				Interval: time.Millisecond,
			}
			sink := &mock.Sink{Discard: true}
			p, err := pipe.New(
				bufferSize,
				pipe.Routing{
					Context: mctx,
					Source:  source.Source(),
					Sink:    sink.Sink(),
				},
			)
			assertNil(t, "error", err)

			r := run.New(context.Background(), p)
			r.Push(source.SetLimit(0))
			err = r.Wait()
			assertNil(t, "error", err)
			assertEqual(t, "source limit", source.Limit, 0)

			// pushed after done are dropped
			r.Push(source.SetLimit(10))
			assertEqual(t, "source limit after done", source.Limit, 0)
		}
	}
	t.Run("async", testPush(mutable.Immutable()))
	t.Run("sync", testPush(mutable.Mutable()))
}

func TestErrors(t *testing.T) {
	errorMock := errors.New("mock error")
	tests := []struct {
		name      string
		source    *mock.Source
		processor *mock.Processor
		sink      *mock.Sink
	}{
		{
			name:      "source call",
			source:    &mock.Source{Limit: 10 * bufferSize, ErrorOnCall: errorMock},
			processor: &mock.Processor{},
			sink:      &mock.Sink{},
		},
		{
			name:      "processor start",
			source:    &mock.Source{Limit: 10 * bufferSize},
			processor: &mock.Processor{Starter: mock.Starter{ErrorOnStart: errorMock}},
			sink:      &mock.Sink{},
		},
		{
			name:      "processor call",
			source:    &mock.Source{Limit: 10 * bufferSize},
			processor: &mock.Processor{ErrorOnCall: errorMock},
			sink:      &mock.Sink{},
		},
		{
			name:      "sink flush",
			source:    &mock.Source{Limit: 10 * bufferSize},
			processor: &mock.Processor{},
			sink:      &mock.Sink{Flusher: mock.Flusher{ErrorOnFlush: errorMock}},
		},
	}
	for _, test := range tests {
		for _, mctx := range []mutable.Context{mutable.Immutable(), mutable.Mutable()} {
			p, err := pipe.New(
				bufferSize,
				pipe.Routing{
					Context:    mctx,
					Source:     test.source.Source(),
					Processors: pipe.Processors(test.processor.Processor()),
					Sink:       test.sink.Sink(),
				},
			)
			assertNil(t, "error", err)
			err = run.New(context.Background(), p).Wait()
			assertEqual(t, test.name+" error", errors.Is(err, errorMock), true)
		}
	}
}

func TestPushMutationError(t *testing.T) {
	errorMock := errors.New("mutation error")
	for _, mctx := range []mutable.Context{mutable.Immutable(), mutable.Mutable()} {
		source := &mock.Source{
			Limit:    1 << 30,
			Interval: time.Millisecond,
		}
		sink := &mock.Sink{Discard: true}
		p, err := pipe.New(
			bufferSize,
			pipe.Routing{
				Context: mctx,
				Source:  source.Source(),
				Sink:    sink.Sink(),
			},
		)
		assertNil(t, "error", err)

		r := run.New(context.Background(), p)
		r.Push(source.Mutate(func() error {
			return errorMock
		}))
		err = r.Wait()
		assertEqual(t, "mutation error", errors.Is(err, errorMock), true)
		assertEqual(t, "sink flushed", sink.Flushed, true)
	}
}

func TestPushUnknownContext(t *testing.T) {
	source := &mock.Source{Limit: 100 * bufferSize, Interval: time.Millisecond}
	sink := &mock.Sink{Discard: true}
	p, err := pipe.New(
		bufferSize,
		pipe.Routing{
			Source: source.Source(),
			Sink:   sink.Sink(),
		},
	)
	assertNil(t, "error", err)

	var called bool
	r := run.New(context.Background(), p)
	r.Push(mutable.Mutable().Mutate(func() error {
		called = true
		return nil
	}))
	err = r.Wait()
	assertNil(t, "error", err)
	assertEqual(t, "unknown mutation called", called, false)
	assertEqual(t, "sink samples", sink.Counter.Samples, 100*bufferSize)
}

// This benchmark runs next line:
// 1 Source, 2 Processors, 1 Sink, 862 buffers of 512 samples with 2 channels.
func BenchmarkSingleLine(b *testing.B) {
	source := &mock.Source{
		Limit:    862 * bufferSize,
		Channels: 2,
	}
	sink := &mock.Sink{Discard: true}
	p, _ := pipe.New(bufferSize, pipe.Routing{
		Source: source.Source(),
		Processors: pipe.Processors(
			(&mock.Processor{}).Processor(),
			(&mock.Processor{}).Processor(),
		),
		Sink: sink.Sink(),
	})
	for i := 0; i < b.N; i++ {
		_ = run.New(context.Background(), p, source.Reset()).Wait()
	}
	b.Logf("recieved messages: %d samples: %d", sink.Messages, sink.Samples)
}

func assertNil(t *testing.T, name string, result interface{}) {
	t.Helper()
	assertEqual(t, name, result, nil)
}

func assertEqual(t *testing.T, name string, result, expected interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, result) {
		t.Fatalf("%v\nresult: \t%T\t%+v \nexpected: \t%T\t%+v", name, result, result, expected, expected)
	}
}
