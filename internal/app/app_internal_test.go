package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/wavpipe/log"
	"pipelined.dev/wavpipe/test"
)

func TestInvalidDescriptor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input = test.Wav{}.Write(t)
	cfg.Output = filepath.Join(t.TempDir(), DefaultOutput)

	// descriptor opened for reading cannot be used as output
	require.NoError(t, os.WriteFile(cfg.Output, nil, 0o644))
	out, err := os.Open(cfg.Output)
	require.NoError(t, err)

	var stdout bytes.Buffer
	code := execute(context.Background(), cfg, out, &stdout, log.Silent())
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "Error: Invalid file descriptor ")
	assert.NotContains(t, stdout.String(), "Starting flowgraph")
}
