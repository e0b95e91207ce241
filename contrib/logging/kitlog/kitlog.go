// Package kitlog adapts a github.com/go-kit/log Logger to the cqlguard
// Logger interface.
//
//	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
//	logger = level.NewFilter(logger, level.AllowInfo())
//	client, _ := cqlguard.NewClient(control, hosts, pools, dispatcher, metadata,
//	    cqlguard.WithLogger(kitlog.New(logger)),
//	)
package kitlog

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/arloliu/cqlguard/types"
)

// Logger writes cqlguard log events to a go-kit logger, tagging each one
// with a level and a "component" key.
type Logger struct {
	logger log.Logger
	exit   func(code int)
}

// Compile-time assertion that Logger implements types.Logger.
var _ types.Logger = (*Logger)(nil)

// New wraps logger.
//
// Parameters:
//   - logger: go-kit logger receiving the events
//
// Returns:
//   - *Logger: The adapter
func New(logger log.Logger) *Logger {
	return &Logger{
		logger: log.With(logger, "component", "cqlguard"),
		exit:   os.Exit,
	}
}

func (l *Logger) log(lvl log.Logger, msg string, keysAndValues []any) {
	kv := make([]any, 0, len(keysAndValues)+2)
	kv = append(kv, "msg", msg)
	kv = append(kv, keysAndValues...)
	if len(kv)%2 != 0 {
		kv = append(kv, log.ErrMissingValue)
	}
	_ = lvl.Log(kv...)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.log(level.Debug(l.logger), msg, keysAndValues)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.log(level.Info(l.logger), msg, keysAndValues)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.log(level.Warn(l.logger), msg, keysAndValues)
}

// Error logs at error level.
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.log(level.Error(l.logger), msg, keysAndValues)
}

// Fatal logs at error level and exits the process with status 1.
func (l *Logger) Fatal(msg string, keysAndValues ...any) {
	l.log(level.Error(l.logger), msg, keysAndValues)
	l.exit(1)
}
