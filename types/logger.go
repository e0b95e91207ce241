package types

// Logger is the structured logging contract used across cqlguard.
//
// The method set matches zap.SugaredLogger's "w" style loosely: a message
// followed by alternating keys and values. Adapters for other loggers live
// under contrib/logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	Fatal(msg string, keysAndValues ...any)
}
