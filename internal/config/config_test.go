package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
warrior-pipeline:
  tracker:
    base_url: "https://tracker.example.org/example"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Runner.Concurrent)
	assert.Equal(t, "stop", cfg.Runner.StopFile)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":8001", cfg.Metrics.Listen)
}

func TestLoadRejectsMissingTrackerURL(t *testing.T) {
	path := writeConfig(t, `
warrior-pipeline:
  runner:
    concurrent: 2
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracker.base_url")
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
warrior-pipeline:
  tracker:
    base_url: "https://tracker.example.org/example"
  log:
    level: "verbose"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
warrior-pipeline:
  tracker:
    base_url: "https://tracker.example.org/example"
`)

	t.Setenv("WARRIOR_PIPELINE_RUNNER_CONCURRENT", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Runner.Concurrent)
}

func TestToLogConfig(t *testing.T) {
	lc := LogConfig{Level: "debug", Pattern: "%msg"}
	out := lc.ToLogConfig()
	assert.Equal(t, "debug", out.Level)
	assert.Equal(t, "%msg", out.Pattern)
}

func TestContextLookup(t *testing.T) {
	lookup := ContextLookup{"concurrent_uploads": "4"}

	v, ok := lookup.Lookup("concurrent_uploads")
	require.True(t, ok)
	assert.Equal(t, "4", v)

	_, ok = lookup.Lookup("missing")
	assert.False(t, ok)
}
