// Package app runs the WAV to file descriptor flowgraph and monitors its
// throughput.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pipelined.dev/wavpipe/fdsink"
	"pipelined.dev/wavpipe/internal/flowgraph"
	"pipelined.dev/wavpipe/metric"
	"pipelined.dev/wavpipe/signal"
)

// Run creates the output file, executes the flowgraph and reports the
// size of the output. Status lines are printed to stdout. Returned value
// is the exit code.
func Run(ctx context.Context, cfg Config, stdout io.Writer, logger *logrus.Logger) int {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}
	out, err := os.OpenFile(cfg.Output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Fake FD created: %d\n", out.Fd())
	return execute(ctx, cfg, out, stdout, logger)
}

// execute owns the output file and closes it exactly once.
func execute(ctx context.Context, cfg Config, out *os.File, stdout io.Writer, logger *logrus.Logger) int {
	closeOutput := sync.OnceValue(out.Close)
	defer closeOutput()

	if _, err := os.Stat(cfg.Input); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stdout, "Error: WAV file '%s' does not exist\n", cfg.Input)
		return 1
	}

	fd := int(out.Fd())
	if err := fdsink.Valid(fd); err != nil {
		logger.WithError(err).Debug("descriptor check failed")
		fmt.Fprintf(stdout, "Error: Invalid file descriptor %d\n", fd)
		return 1
	}

	fg, err := flowgraph.New(flowgraph.Config{
		Input:      cfg.Input,
		Gain:       cfg.Gain,
		BufferSize: cfg.BufferSize,
		Throttle:   signal.Frequency(cfg.Throttle),
		Loop:       cfg.Loop,
		Sync:       cfg.Sync,
		Logger:     logger,
	}, fd)
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Starting flowgraph with sample rate: %d\n", fg.SampleRate())

	// interrupt is handled by monitor, pipe is stopped explicitly
	fg.Start(context.WithoutCancel(ctx))
	monitor(ctx, fg, cfg, stdout, logger)

	fg.Stop()
	runErr := fg.Wait()
	if err := closeOutput(); err != nil {
		logger.WithError(err).Warn("failed to close output")
	}

	info, err := os.Stat(cfg.Output)
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "\nOutput file size: %d bytes\n", info.Size())
	if runErr != nil {
		logger.WithError(runErr).Error("flowgraph failed")
		fmt.Fprintf(stdout, "Error: %v\n", runErr)
		return 1
	}
	return 0
}

// monitor polls the rate once per interval until duration is over, rate
// drops to zero or context is done.
func monitor(ctx context.Context, fg *flowgraph.Flowgraph, cfg Config, stdout io.Writer, logger *logrus.Logger) {
	polls := int(cfg.Duration / cfg.Interval)
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for i := 0; i < polls; i++ {
		select {
		case <-ctx.Done():
			fmt.Fprintln(stdout, "\nStopping flowgraph...")
			return
		case <-ticker.C:
		}
		rate := fg.Rate()
		logger.WithFields(fields(metric.Get(flowgraph.ProbeName))).Debug("probe counters")
		fmt.Fprintf(stdout, "Current processing rate: %.2f samples/second\n", rate)
		if rate == 0 {
			fmt.Fprintln(stdout, "Processing complete or no data flow detected")
			return
		}
	}
}

func fields(m map[string]string) logrus.Fields {
	f := make(logrus.Fields, len(m))
	for k, v := range m {
		f[k] = v
	}
	return f
}
