package config

import (
	"fmt"
	"io"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

// LogConfig controls the log level and, optionally, a rotating log file.
type LogConfig struct {
	Level   string `yaml:"level" toml:"level"`
	Logfile string `yaml:"logfile" toml:"logfile"`
	MaxSize int    `yaml:"max_log_size" toml:"max_log_size"` // megabytes
	MaxAge  int    `yaml:"max_log_age" toml:"max_log_age"`   // days
}

func (c LogConfig) validate() error {
	if c.Level == "" {
		return nil
	}
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if c.MaxSize < 0 || c.MaxAge < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}
	return nil
}

// NewLogger builds a logger writing to the configured log file, or to
// fallback when no file is set. The returned close function releases the
// log file and is safe to call when none was opened.
func (c LogConfig) NewLogger(fallback io.Writer) (*logrus.Logger, func() error, error) {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := logrus.InfoLevel
	if c.Level != "" {
		var err error
		if level, err = logrus.ParseLevel(c.Level); err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
	}
	l.SetLevel(level)

	if c.Logfile == "" {
		l.SetOutput(fallback)
		return l, func() error { return nil }, nil
	}
	rot := &lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize,
		MaxAge:   c.MaxAge,
	}
	l.SetOutput(rot)
	return l, rot.Close, nil
}
