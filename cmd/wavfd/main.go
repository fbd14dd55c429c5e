package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pipelined.dev/wavpipe/internal/app"
	"pipelined.dev/wavpipe/log"
)

var (
	successExitCode = 0
	errorExitCode   = 1

	errUsage = errors.New("wrong number of arguments")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the root command and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	code := successExitCode
	cmd := newRootCommand(stdout, stderr, &code)
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stdout, "Usage: %s <wav_file>\n", cmd.Name())
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return errorExitCode
	}
	return code
}

type flags struct {
	config     string
	output     string
	gain       float64
	duration   time.Duration
	interval   time.Duration
	bufferSize int
	throttle   int
	loop       bool
	sync       bool
	debug      bool
}

func newRootCommand(stdout, stderr io.Writer, code *int) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "wavfd <wav_file>",
		Short: "Stream WAV file as complex samples into a file descriptor",
		Long: `wavfd reads a WAV file at its native sample rate, scales it by the gain,
converts it to complex samples and writes them into an open file. The
throughput is printed once per interval until the file is processed or
the monitoring window is over.

Example:
  wavfd --interval 500ms --duration 5s sample.wav`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			cfg.Input = args[0]
			if cfg.Debug {
				log.SetDebug(true)
			}
			logger := log.GetLogger()
			logger.SetOutput(stderr)
			logger.WithField("config", fmt.Sprintf("%+v", cfg)).Debug("starting")
			*code = app.Run(cmd.Context(), cfg, stdout, logger)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.config, "config", "", "YAML config file")
	cmd.Flags().StringVar(&f.output, "output", app.DefaultOutput, "output file")
	cmd.Flags().Float64Var(&f.gain, "gain", 0.5, "scale factor of the signal")
	cmd.Flags().DurationVar(&f.duration, "duration", 10*time.Second, "monitoring window")
	cmd.Flags().DurationVar(&f.interval, "interval", time.Second, "rate polling interval")
	cmd.Flags().IntVar(&f.bufferSize, "buffer-size", 512, "samples per buffer")
	cmd.Flags().IntVar(&f.throttle, "throttle", 0, "samples per second, 0 is the sample rate of file")
	cmd.Flags().BoolVar(&f.loop, "loop", false, "restart the file when it's over")
	cmd.Flags().BoolVar(&f.sync, "sync", false, "run all stages in a single goroutine")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "enable debug logging, also "+log.DebugEnv)
	return cmd
}

// resolve loads config file if provided and overrides its values with
// flags set explicitly.
func (f *flags) resolve(cmd *cobra.Command) (app.Config, error) {
	cfg := app.DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = app.LoadConfig(f.config); err != nil {
			return cfg, err
		}
	}
	changed := cmd.Flags().Changed
	if changed("output") || f.config == "" {
		cfg.Output = f.output
	}
	if changed("gain") {
		cfg.Gain = f.gain
	}
	if changed("duration") {
		cfg.Duration = f.duration
	}
	if changed("interval") {
		cfg.Interval = f.interval
	}
	if changed("buffer-size") {
		cfg.BufferSize = f.bufferSize
	}
	if changed("throttle") {
		cfg.Throttle = f.throttle
	}
	if changed("loop") {
		cfg.Loop = f.loop
	}
	if changed("sync") {
		cfg.Sync = f.sync
	}
	if changed("debug") {
		cfg.Debug = f.debug
	}
	return cfg, nil
}
