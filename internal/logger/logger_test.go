package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Alexander-D-Karpov/campanula/internal/config"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected zapcore.Level
	}{
		{DebugLevel, zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{InfoLevel, zapcore.InfoLevel},
		{WarnLevel, zapcore.WarnLevel},
		{ErrorLevel, zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.zapLevel(), "level %q", test.level)
	}
}

func TestNew_WritesFile(t *testing.T) {
	cfg := config.Default()
	cfg.Log.File = filepath.Join(t.TempDir(), "logs", "test.log")
	cfg.Log.Level = "info"

	log, err := New(cfg)
	require.NoError(t, err)

	log.Info("hello")
	_ = log.Sync()

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
