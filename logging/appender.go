package logging

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

const timeFormat = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. It is a subset of zapcore.Core, so a zap observer core
// is also an Appender.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

type consoleAppender struct {
	w io.Writer
}

func (a consoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := formatLine(entry, fields)
	if _, werr := fmt.Fprintln(a.w, line); werr != nil {
		return werr
	}
	return err
}

func (consoleAppender) Sync() error {
	return nil
}

// testAppender sends entries through tb.Log so that output stays attached to the running test.
type testAppender struct {
	tb testing.TB
}

func (a testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	a.tb.Helper()
	line, err := formatLine(entry, fields)
	a.tb.Log(line)
	return err
}

func (testAppender) Sync() error {
	return nil
}

// formatLine renders an entry as tab separated columns: time, level, logger name when set, caller
// when known, message, then the fields as one JSON object in their original order. When the
// fields cannot be encoded the line is returned without them along with the error.
func formatLine(entry zapcore.Entry, fields []zapcore.Field) (string, error) {
	cols := []string{entry.Time.Format(timeFormat), entry.Level.CapitalString()}
	if entry.LoggerName != "" {
		cols = append(cols, entry.LoggerName)
	}
	if entry.Caller.Defined {
		cols = append(cols, entry.Caller.TrimmedPath())
	}
	cols = append(cols, entry.Message)
	if len(fields) == 0 {
		return strings.Join(cols, "\t"), nil
	}

	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := enc.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return strings.Join(cols, "\t"), err
	}
	defer buf.Free()
	return strings.Join(append(cols, buf.String()), "\t"), nil
}
