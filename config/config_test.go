package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1<<16, cfg.Feedback.Slots)
	assert.True(t, cfg.Constants.Enabled)
	assert.True(t, cfg.Constants.VerifyReadOnly)
	assert.Equal(t, time.Second, cfg.Constants.RefreshInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestParse(t *testing.T) {
	data := []byte(`
feedback:
  slots: 4096
constants:
  max_len: 128
  verify_read_only: false
  refresh_interval: 250ms
logging:
  level: debug
  development: true
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.Feedback.Slots)
	assert.Equal(t, 128, cfg.Constants.MaxLen)
	assert.Equal(t, 2, cfg.Constants.MinLen, "unset fields keep their defaults")
	assert.False(t, cfg.Constants.VerifyReadOnly)
	assert.Equal(t, 250*time.Millisecond, cfg.Constants.RefreshInterval)
	assert.True(t, cfg.Logging.Development)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"Slots not a power of two", "feedback:\n  slots: 1000\n"},
		{"Zero slots", "feedback:\n  slots: 0\n"},
		{"Zero capacity", "constants:\n  capacity: 0\n"},
		{"Inverted length range", "constants:\n  min_len: 10\n  max_len: 4\n"},
		{"Unknown level", "logging:\n  level: chatty\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseDisabledConstantsSkipChecks(t *testing.T) {
	cfg, err := Parse([]byte("constants:\n  enabled: false\n  capacity: 0\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Constants.Enabled)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("feedback: ["))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmphook.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feedback:\n  slots: 256\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Feedback.Slots)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoggingBuild(t *testing.T) {
	for _, tt := range []struct {
		cfg   LoggingConfig
		level zapcore.Level
	}{
		{LoggingConfig{}, zapcore.InfoLevel},
		{LoggingConfig{Level: "warn"}, zapcore.WarnLevel},
		{LoggingConfig{Level: "debug", Development: true}, zapcore.DebugLevel},
	} {
		logger, err := tt.cfg.Build()
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(tt.level))
		assert.False(t, logger.Core().Enabled(tt.level-1))
	}

	_, err := LoggingConfig{Level: "loud"}.Build()
	assert.Error(t, err)
}
