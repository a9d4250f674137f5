// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/archiveteam/warrior-pipeline/internal/log"
)

// GlobalConfig is the top-level static configuration for the engine.
// Maps to the `warrior-pipeline:` root key in YAML.
type GlobalConfig struct {
	Tracker TrackerConfig     `mapstructure:"tracker"`
	Runner  RunnerConfig      `mapstructure:"runner"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
	Log     LogConfig         `mapstructure:"log"`
	Context map[string]string `mapstructure:"context"`
}

// ─── Tracker ───

// TrackerConfig configures the tracker HTTP client shared by TrackerRequest tasks.
type TrackerConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	UserAgentSuffix string `mapstructure:"user_agent_suffix"`
}

// ─── Runner ───

// RunnerConfig controls the top-level admission loop.
type RunnerConfig struct {
	Concurrent       int    `mapstructure:"concurrent"`
	MaxItems         int    `mapstructure:"max_items"` // 0 = unlimited
	StopFile         string `mapstructure:"stop_file"`
	DataDir          string `mapstructure:"data_dir"`
	KeepData         bool   `mapstructure:"keep_data"`
	DisableWebServer bool   `mapstructure:"disable_web_server"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics server settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Log ───

// LogConfig mirrors log.Config for YAML/env decoding. ToLogConfig converts
// it into the shape the log package actually consumes.
type LogConfig struct {
	Level     string               `mapstructure:"level"`
	Pattern   string               `mapstructure:"pattern"`
	Time      string               `mapstructure:"time"`
	Appenders []log.AppenderConfig `mapstructure:"appenders"`
}

// ToLogConfig converts the decoded LogConfig into *log.Config.
func (c LogConfig) ToLogConfig() *log.Config {
	return &log.Config{
		Level:     c.Level,
		Pattern:   c.Pattern,
		Time:      c.Time,
		Appenders: c.Appenders,
	}
}

// ContextLookup adapts GlobalConfig.Context to realize.ConfigLookup, the
// pipeline-scoped overlay that ConfigValue descriptors resolve against.
type ContextLookup map[string]string

// Lookup implements realize.ConfigLookup.
func (c ContextLookup) Lookup(name string) (interface{}, bool) {
	v, ok := c[name]
	return v, ok
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `warrior-pipeline: ...`.
type configRoot struct {
	WarriorPipeline GlobalConfig `mapstructure:"warrior-pipeline"`
}

// Load loads configuration from file.
// The YAML file uses `warrior-pipeline:` as root key; env vars use the
// WARRIOR_PIPELINE_ prefix (e.g. WARRIOR_PIPELINE_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.WarriorPipeline

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "warrior-pipeline." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("warrior-pipeline.runner.concurrent", 1)
	v.SetDefault("warrior-pipeline.runner.max_items", 0)
	v.SetDefault("warrior-pipeline.runner.stop_file", "stop")
	v.SetDefault("warrior-pipeline.runner.data_dir", "data")
	v.SetDefault("warrior-pipeline.runner.keep_data", false)
	v.SetDefault("warrior-pipeline.runner.disable_web_server", false)

	v.SetDefault("warrior-pipeline.metrics.enabled", true)
	v.SetDefault("warrior-pipeline.metrics.listen", ":8001")
	v.SetDefault("warrior-pipeline.metrics.path", "/metrics")

	v.SetDefault("warrior-pipeline.log.level", "info")
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}

	if cfg.Runner.Concurrent <= 0 {
		return fmt.Errorf("runner.concurrent must be positive, got %d", cfg.Runner.Concurrent)
	}

	if cfg.Tracker.BaseURL == "" {
		return fmt.Errorf("tracker.base_url is required")
	}

	return nil
}
