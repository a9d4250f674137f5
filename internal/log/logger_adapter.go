package log

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Config controls the global logger. Loaded from the engine's "log:"
// config section (see internal/config).
type Config struct {
	Level     string           `mapstructure:"level"`
	Pattern   string           `mapstructure:"pattern"`
	Time      string           `mapstructure:"time"`
	Appenders []AppenderConfig `mapstructure:"appenders"`
}

type logrusAdapter struct {
	entry *logrus.Entry
}

func initByConfig(cfg *Config) error {
	l := logrus.New()

	pattern := cfg.Pattern
	if pattern == "" {
		pattern = "%time [%level] %field%msg\n"
	}
	timeFmt := cfg.Time
	if timeFmt == "" {
		timeFmt = "2006-01-02T15:04:05.000Z07:00"
	}
	l.SetFormatter(&formatter{pattern: pattern, time: timeFmt})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	mw := NewMultiWriter()
	if len(cfg.Appenders) == 0 {
		mw.Add(os.Stdout)
	}
	for _, a := range cfg.Appenders {
		switch a.Type {
		case "", "console", "stdout":
			mw.Add(os.Stdout)
		case "file":
			opt, err := decodeFileAppenderOpt(a.Options)
			if err != nil {
				return fmt.Errorf("log: appender[file]: %w", err)
			}
			mw.AddFileAppender(opt)
		default:
			return fmt.Errorf("log: unsupported appender type %q", a.Type)
		}
	}
	l.SetOutput(mw)

	setLogger(&logrusAdapter{entry: logrus.NewEntry(l)})
	return nil
}

func decodeFileAppenderOpt(options map[string]interface{}) (FileAppenderOpt, error) {
	var opt FileAppenderOpt
	if v, ok := options["filename"].(string); ok {
		opt.Filename = v
	}
	if opt.Filename == "" {
		return opt, fmt.Errorf("file appender requires a filename")
	}
	if v, ok := options["max_size"].(int); ok {
		opt.MaxSize = v
	}
	if v, ok := options["max_backups"].(int); ok {
		opt.MaxBackups = v
	}
	if v, ok := options["max_age"].(int); ok {
		opt.MaxAge = v
	}
	if v, ok := options["compress"].(bool); ok {
		opt.Compress = v
	}
	return opt, nil
}

func (l *logrusAdapter) Print(args ...interface{})                 { l.entry.Print(args...) }
func (l *logrusAdapter) Printf(format string, args ...interface{}) { l.entry.Printf(format, args...) }

func (l *logrusAdapter) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *logrusAdapter) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

func (l *logrusAdapter) Info(args ...interface{})                 { l.entry.Info(args...) }
func (l *logrusAdapter) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }

func (l *logrusAdapter) Warn(args ...interface{})                 { l.entry.Warn(args...) }
func (l *logrusAdapter) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }

func (l *logrusAdapter) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *logrusAdapter) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusAdapter) Fatal(args ...interface{})                 { l.entry.Fatal(args...) }
func (l *logrusAdapter) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

func (l *logrusAdapter) WithField(field string, value interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithField(field, value)}
}
func (l *logrusAdapter) WithFields(fields map[string]interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithFields(fields)}
}
func (l *logrusAdapter) WithError(err error) Logger {
	return &logrusAdapter{entry: l.entry.WithError(err)}
}

func (l *logrusAdapter) IsDebugEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}
