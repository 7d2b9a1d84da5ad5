package logging

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var errUnpairedKey = errors.New("log key has no value")

type structuredLogger struct {
	name      string
	minLevel  zapcore.Level
	inUTC     bool
	appenders []Appender
}

func (l *structuredLogger) Debugw(msg string, keysAndValues ...interface{}) {
	l.write(zapcore.DebugLevel, msg, keysAndValues)
}

func (l *structuredLogger) Infow(msg string, keysAndValues ...interface{}) {
	l.write(zapcore.InfoLevel, msg, keysAndValues)
}

func (l *structuredLogger) Warnw(msg string, keysAndValues ...interface{}) {
	l.write(zapcore.WarnLevel, msg, keysAndValues)
}

func (l *structuredLogger) Sublogger(subname string) Logger {
	name := subname
	if l.name != "" {
		name = l.name + "." + subname
	}
	return &structuredLogger{name: name, minLevel: l.minLevel, inUTC: l.inUTC, appenders: l.appenders}
}

func (l *structuredLogger) Sync() error {
	var err error
	for _, appender := range l.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

// write must be called directly from the exported level methods: the caller lookup skips exactly
// write and that method.
func (l *structuredLogger) write(level zapcore.Level, msg string, keysAndValues []interface{}) {
	if !l.minLevel.Enabled(level) {
		return
	}
	const skipToCaller = 2
	entry := zapcore.Entry{
		Level:      level,
		Time:       time.Now(),
		LoggerName: l.name,
		Message:    msg,
		Caller:     zapcore.NewEntryCaller(runtime.Caller(skipToCaller)),
	}
	if l.inUTC {
		entry.Time = entry.Time.UTC()
	}
	fields := contextFields(keysAndValues)
	for _, appender := range l.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// contextFields pairs alternating keys and values. A trailing key keeps an error as its value.
func contextFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.NamedError(key, errUnpairedKey))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
