package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/thoughtflow/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_JSONOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.log")
	cfg := config.DefaultLogConfig()
	cfg.Format = "json"
	cfg.Level = "warn"
	cfg.OutputPaths = []string{out}

	logger, closer, err := New(cfg)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", zap.Int("step", 2))
	require.NoError(t, closer())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"step":2`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestNew_RotatingFileTee(t *testing.T) {
	dir := t.TempDir()
	console := filepath.Join(dir, "console.log")
	file := filepath.Join(dir, "rotating.log")

	cfg := config.DefaultLogConfig()
	cfg.Format = "console"
	cfg.Level = "debug"
	cfg.OutputPaths = []string{console}
	cfg.File = file

	logger, closer, err := New(cfg)
	require.NoError(t, err)
	logger.Debug("step completed", zap.Int("candidates", 9))
	require.NoError(t, closer())

	consoleData, err := os.ReadFile(console)
	require.NoError(t, err)
	assert.Contains(t, string(consoleData), "step completed")

	fileData, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(fileData), `"msg":"step completed"`)
	assert.Contains(t, string(fileData), `"candidates":9`)
}

func TestNew_BadOutputPath(t *testing.T) {
	cfg := config.DefaultLogConfig()
	cfg.OutputPaths = []string{filepath.Join(t.TempDir(), "missing", "dir", "out.log")}

	_, _, err := New(cfg)
	assert.Error(t, err)
}
