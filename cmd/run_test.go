package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiveteam/warrior-pipeline/internal/config"
)

func TestDownloaderPatternAccepts(t *testing.T) {
	assert.True(t, downloaderPattern.MatchString("my-warrior_1"))
	assert.True(t, downloaderPattern.MatchString("abc"))
}

func TestDownloaderPatternRejects(t *testing.T) {
	assert.False(t, downloaderPattern.MatchString("ab"))               // too short
	assert.False(t, downloaderPattern.MatchString("has a space"))      // invalid chars
	assert.False(t, downloaderPattern.MatchString("waaaaaaaaaaaaaaaaaaaaaaaaaaaaay-too-long-for-this"))
}

func TestMergeContextValuesOverlaysBase(t *testing.T) {
	base := map[string]string{"concurrent_uploads": "2", "region": "us"}
	merged, err := mergeContextValues(base, []string{"concurrent_uploads=4", "project=test"})
	require.NoError(t, err)
	assert.Equal(t, "4", merged["concurrent_uploads"])
	assert.Equal(t, "us", merged["region"])
	assert.Equal(t, "test", merged["project"])
}

func TestMergeContextValuesRejectsMalformedPair(t *testing.T) {
	_, err := mergeContextValues(nil, []string{"no-equals-sign"})
	require.Error(t, err)
}

func TestApplyRunFlagsOnlyOverridesSetFlags(t *testing.T) {
	flagConcurrent = 4
	flagMaxItems = 0
	flagStopFile = ""
	flagKeepData = false
	flagDisableWebServer = false
	defer func() {
		flagConcurrent = 0
		flagMaxItems = 0
		flagStopFile = ""
		flagKeepData = false
		flagDisableWebServer = false
	}()

	cfg := &config.GlobalConfig{
		Runner: config.RunnerConfig{Concurrent: 1, MaxItems: 10, StopFile: "stop"},
	}
	applyRunFlags(cfg)

	assert.Equal(t, 4, cfg.Runner.Concurrent)
	assert.Equal(t, 10, cfg.Runner.MaxItems)
	assert.Equal(t, "stop", cfg.Runner.StopFile)
}
