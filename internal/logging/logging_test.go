package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, level string) (*Logger, string) {
	t.Helper()
	file := filepath.Join(t.TempDir(), "test.log")
	logger, err := NewLogger(&Config{Level: level, File: file, MaxSize: 1, MaxBackups: 1, MaxAge: 1})
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger, file
}

func TestLevelGating(t *testing.T) {
	logger, file := newTestLogger(t, LevelWarn)

	logger.Debug("debug line")
	logger.Info("info line")
	logger.Warn("warn line")
	logger.Error("error line")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	out := string(data)

	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "error line")
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	logger, file := newTestLogger(t, "chatty")

	logger.Debug("debug line")
	logger.Info("info line")

	data, err := os.ReadFile(file)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "debug line")
	assert.Contains(t, string(data), "info line")
}

func TestLogFileIsCreated(t *testing.T) {
	logger, file := newTestLogger(t, LevelInfo)
	logger.Info("hello")

	_, err := os.Stat(file)
	assert.NoError(t, err)
}
