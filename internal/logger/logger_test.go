package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drowsyguard/internal/config"
)

func TestLoggerWritesPerLevelFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := NewLogger(&config.Config{LogDirectory: dir})
	require.NoError(t, err)

	log.Info("session %s started", "abc")
	log.Warning("skipped %d ticks", 3)
	log.Error("detection failed")
	log.Close()

	info, err := os.ReadFile(filepath.Join(dir, InfoFile))
	require.NoError(t, err)
	assert.Contains(t, string(info), "session abc started")

	warning, err := os.ReadFile(filepath.Join(dir, WarningFile))
	require.NoError(t, err)
	assert.Contains(t, string(warning), "skipped 3 ticks")
	assert.NotContains(t, string(warning), "session abc")

	errLog, err := os.ReadFile(filepath.Join(dir, ErrorFile))
	require.NoError(t, err)
	assert.Contains(t, string(errLog), "detection failed")
}

func TestCleanLogsTruncates(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(&config.Config{LogDirectory: dir})
	require.NoError(t, err)
	defer log.Close()

	log.Error("boom")
	require.NoError(t, log.CleanLogs(ErrorFile))

	data, err := os.ReadFile(filepath.Join(dir, ErrorFile))
	require.NoError(t, err)
	assert.Empty(t, data)

	assert.Error(t, log.CleanLogs("missing.log"))
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Info("nothing")
	log.Close()
}
