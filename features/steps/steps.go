//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"pipelined.dev/wavpipe/internal/app"
	"pipelined.dev/wavpipe/log"
)

// scenario holds the state of a single scenario.
type scenario struct {
	dir    string
	cfg    app.Config
	stdout bytes.Buffer
	code   int
}

// InitializeScenario registers all steps. Every scenario gets a fresh
// working directory.
func InitializeScenario(ctx *godog.ScenarioContext) {
	s := &scenario{}
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		dir, err := os.MkdirTemp("", "wavfd-")
		if err != nil {
			return c, err
		}
		*s = scenario{dir: dir, cfg: app.DefaultConfig()}
		s.cfg.Output = filepath.Join(dir, app.DefaultOutput)
		s.cfg.Interval = 500 * time.Millisecond
		return c, nil
	})
	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		return c, os.RemoveAll(s.dir)
	})

	ctx.Step(`^a WAV path that does not exist$`, s.missingInput)
	ctx.Step(`^a mono WAV file with (\d+) frames at (\d+) Hz$`, s.wavFile)
	ctx.Step(`^a looped mono WAV file with (\d+) frames at (\d+) Hz$`, s.loopedWavFile)
	ctx.Step(`^the program runs$`, s.run)
	ctx.Step(`^the program runs and is interrupted after (\d+) milliseconds$`, s.runInterrupted)
	ctx.Step(`^the exit code is (\d+)$`, s.exitCode)
	ctx.Step(`^the output mentions the input path$`, s.mentionsInput)
	ctx.Step(`^the output mentions "([^"]*)"$`, s.mentions)
	ctx.Step(`^the printed sample rate is (\d+)$`, s.sampleRate)
	ctx.Step(`^the output file has (\d+) bytes$`, s.outputSize)
	ctx.Step(`^the output file is not empty$`, s.outputNotEmpty)
	ctx.Step(`^monitoring stopped early on zero rate$`, s.stoppedEarly)
}

func (s *scenario) missingInput() error {
	s.cfg.Input = filepath.Join(s.dir, "missing.wav")
	return nil
}

func (s *scenario) wavFile(frames, sampleRate int) error {
	s.cfg.Input = filepath.Join(s.dir, "input.wav")
	return writeWav(s.cfg.Input, sampleRate, frames)
}

func (s *scenario) loopedWavFile(frames, sampleRate int) error {
	s.cfg.Loop = true
	return s.wavFile(frames, sampleRate)
}

func (s *scenario) run() error {
	s.code = app.Run(context.Background(), s.cfg, &s.stdout, log.Silent())
	return nil
}

func (s *scenario) runInterrupted(ms int) error {
	ctx, cancelFn := context.WithTimeout(context.Background(), time.Duration(ms)*time.Millisecond)
	defer cancelFn()
	s.code = app.Run(ctx, s.cfg, &s.stdout, log.Silent())
	return nil
}

func (s *scenario) exitCode(expected int) error {
	if s.code != expected {
		return fmt.Errorf("expected exit code %d, got %d, output:\n%s", expected, s.code, s.stdout.String())
	}
	return nil
}

func (s *scenario) mentions(text string) error {
	if !strings.Contains(s.stdout.String(), text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, s.stdout.String())
	}
	return nil
}

func (s *scenario) mentionsInput() error {
	return s.mentions(s.cfg.Input)
}

func (s *scenario) sampleRate(rate int) error {
	return s.mentions(fmt.Sprintf("Starting flowgraph with sample rate: %d\n", rate))
}

func (s *scenario) outputSize(size int64) error {
	info, err := os.Stat(s.cfg.Output)
	if err != nil {
		return err
	}
	if info.Size() != size {
		return fmt.Errorf("expected %d bytes, got %d", size, info.Size())
	}
	return s.mentions(fmt.Sprintf("Output file size: %d bytes", size))
}

func (s *scenario) outputNotEmpty() error {
	info, err := os.Stat(s.cfg.Output)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("output file %s is empty", s.cfg.Output)
	}
	return nil
}

func (s *scenario) stoppedEarly() error {
	if n := strings.Count(s.stdout.String(), "Current processing rate"); n != 1 {
		return fmt.Errorf("expected a single rate poll, got %d", n)
	}
	return s.mentions("Processing complete or no data flow detected")
}
