package log

// AppenderConfig describes one log output in the appender chain.
type AppenderConfig struct {
	Type    string                 `mapstructure:"type"`
	Options map[string]interface{} `mapstructure:"options,omitempty"`
}
