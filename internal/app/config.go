package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultOutput is the file created in the working directory.
const DefaultOutput = "fake_fd_test.bin"

// ErrInvalidConfig is returned when configuration values are out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config of the application.
type Config struct {
	// Input is the path of WAV file, it's provided as argument.
	Input      string        `yaml:"-"`
	Output     string        `yaml:"output"`
	Gain       float64       `yaml:"gain"`
	Duration   time.Duration `yaml:"duration"`
	Interval   time.Duration `yaml:"interval"`
	BufferSize int           `yaml:"buffer_size"`
	Throttle   int           `yaml:"throttle"`
	Loop       bool          `yaml:"loop"`
	Sync       bool          `yaml:"sync"`
	Debug      bool          `yaml:"debug"`
}

// DefaultConfig returns configuration that monitors the output for ten
// seconds, once per second.
func DefaultConfig() Config {
	return Config{
		Output:     DefaultOutput,
		Gain:       0.5,
		Duration:   10 * time.Second,
		Interval:   time.Second,
		BufferSize: 512,
	}
}

// LoadConfig reads YAML file on top of default configuration.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that configuration values are in range.
func (c Config) Validate() error {
	switch {
	case c.Output == "":
		return fmt.Errorf("%w: empty output", ErrInvalidConfig)
	case c.BufferSize <= 0:
		return fmt.Errorf("%w: buffer size %d", ErrInvalidConfig, c.BufferSize)
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval %v", ErrInvalidConfig, c.Interval)
	case c.Duration <= 0:
		return fmt.Errorf("%w: duration %v", ErrInvalidConfig, c.Duration)
	case c.Throttle < 0:
		return fmt.Errorf("%w: throttle %d", ErrInvalidConfig, c.Throttle)
	}
	return nil
}
