package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaultsToStdout(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	err := Init(&Config{Level: "debug"})
	require.NoError(t, err)

	l := GetLogger()
	require.NotNil(t, l)
	assert.True(t, l.IsDebugEnabled())
}

func TestInitOnlyAppliesOnce(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	require.NoError(t, Init(&Config{Level: "error"}))
	require.NoError(t, Init(&Config{Level: "debug"}))

	assert.False(t, GetLogger().IsDebugEnabled(), "second Init call must be ignored")
}

func TestFileAppenderWritesToDisk(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	dir := t.TempDir()
	logPath := filepath.Join(dir, "engine.log")

	err := Init(&Config{
		Level: "info",
		Appenders: []AppenderConfig{
			{Type: "file", Options: map[string]interface{}{"filename": logPath}},
		},
	})
	require.NoError(t, err)

	GetLogger().WithField("task", "download").Info("item started")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "item started")
	assert.Contains(t, string(data), "task=download")
}

func TestGetLoggerBeforeInitIsNoop(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	assert.NotPanics(t, func() {
		GetLogger().Info("should not panic")
	})
}
