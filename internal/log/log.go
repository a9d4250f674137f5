// Package log implements structured logging for the pipeline engine.
//
// The engine logs through a small Logger interface rather than calling
// logrus directly, so item-scoped log lines (which always carry a task
// name and item id as fields) and engine-scoped lines share one
// formatter/appender chain configured once at startup.
package log

import (
	"sync"
)

// Logger is the logging surface used throughout the engine.
type Logger interface {
	Print(args ...interface{})
	Printf(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsDebugEnabled() bool
}

var (
	once   sync.Once
	mu     sync.RWMutex
	logger Logger = noopLogger{}
)

// GetLogger returns the process-wide logger. Safe to call before Init:
// returns a no-op logger so packages can hold a reference at init() time.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init configures the global logger from cfg. Only the first call takes
// effect, matching the engine's single logging configuration per process.
func Init(cfg *Config) error {
	var err error
	once.Do(func() {
		err = initByConfig(cfg)
	})
	return err
}

// Reset clears the once-guard so tests can call Init with different configs.
func Reset() {
	once = sync.Once{}
	mu.Lock()
	logger = noopLogger{}
	mu.Unlock()
}

func setLogger(l Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

type noopLogger struct{}

func (noopLogger) Print(args ...interface{})                  {}
func (noopLogger) Printf(format string, args ...interface{})  {}
func (noopLogger) Debug(args ...interface{})                  {}
func (noopLogger) Debugf(format string, args ...interface{})  {}
func (noopLogger) Info(args ...interface{})                   {}
func (noopLogger) Infof(format string, args ...interface{})   {}
func (noopLogger) Warn(args ...interface{})                   {}
func (noopLogger) Warnf(format string, args ...interface{})   {}
func (noopLogger) Error(args ...interface{})                  {}
func (noopLogger) Errorf(format string, args ...interface{})  {}
func (noopLogger) Fatal(args ...interface{})                  {}
func (noopLogger) Fatalf(format string, args ...interface{})  {}
func (l noopLogger) WithField(field string, value interface{}) Logger { return l }
func (l noopLogger) WithFields(fields map[string]interface{}) Logger  { return l }
func (l noopLogger) WithError(err error) Logger                       { return l }
func (noopLogger) IsDebugEnabled() bool                               { return false }
