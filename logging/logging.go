// Package logging provides the structured logger used by the visual map core. Entries carry
// key/value context and are fanned out to appenders, one of which may be a zap observer in tests.
package logging

import (
	"os"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Logger is the logging interface handed to frames and maps.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})

	// Sublogger returns a logger named "<name>.<subname>" writing to the same appenders.
	Sublogger(subname string) Logger
	Sync() error
}

var globalLogger = NewLogger("livo")

// Global returns the process-wide logger used when a component is given none.
func Global() Logger {
	return globalLogger
}

// NewLogger returns a logger that writes Info+ entries to stdout in UTC.
func NewLogger(name string) Logger {
	return &structuredLogger{
		name:      name,
		minLevel:  zapcore.InfoLevel,
		inUTC:     true,
		appenders: []Appender{consoleAppender{os.Stdout}},
	}
}

// NewTestLogger returns a logger that writes Debug+ entries to tb in local time.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is NewTestLogger that also records every entry for assertions.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &structuredLogger{
		minLevel:  zapcore.DebugLevel,
		appenders: []Appender{testAppender{tb}, core},
	}, logs
}
