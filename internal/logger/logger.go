// Package logger wraps logrus behind a small package-level API so the
// whole tree logs through one configured instance.
package logger

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Fields is re-exported so callers don't import logrus directly.
type Fields = log.Fields

var defaultLogger = newLogger()

func newLogger() *log.Logger {
	l := log.New()
	l.SetLevel(log.InfoLevel)
	l.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// SetLevelFromString sets the level of the default logger from its
// string name: debug, info, warn or error.
func SetLevelFromString(levelStr string) error {
	switch strings.ToLower(levelStr) {
	case "debug":
		defaultLogger.SetLevel(log.DebugLevel)
	case "info":
		defaultLogger.SetLevel(log.InfoLevel)
	case "warn", "warning":
		defaultLogger.SetLevel(log.WarnLevel)
	case "error":
		defaultLogger.SetLevel(log.ErrorLevel)
	default:
		return fmt.Errorf("invalid log level: %s", levelStr)
	}
	return nil
}

// SetOutput redirects the default logger's output.
func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

// IsDebugEnabled returns true if debug logging is enabled.
func IsDebugEnabled() bool {
	return defaultLogger.GetLevel() >= log.DebugLevel
}

// Debug logs a debug message.
func Debug(format string, args ...interface{}) {
	defaultLogger.Debugf(format, args...)
}

// Info logs an info message.
func Info(format string, args ...interface{}) {
	defaultLogger.Infof(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...interface{}) {
	defaultLogger.Warnf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	defaultLogger.Errorf(format, args...)
}

// WithField adds a field to a log entry.
func WithField(key string, value interface{}) *log.Entry {
	return defaultLogger.WithField(key, value)
}

// WithFields adds multiple fields to a log entry.
func WithFields(fields Fields) *log.Entry {
	return defaultLogger.WithFields(fields)
}

// WithError adds an error field to a log entry.
func WithError(err error) *log.Entry {
	return defaultLogger.WithError(err)
}
