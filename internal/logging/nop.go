// Package logging holds the logger plumbing shared by cqlguard packages.
package logging

import "github.com/arloliu/cqlguard/types"

// nop discards every message. Fatal does not exit.
type nop struct{}

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Warn(string, ...any)  {}
func (nop) Error(string, ...any) {}
func (nop) Fatal(string, ...any) {}

// NewNopLogger returns a logger that discards all messages.
//
// It is the default wherever a types.Logger is optional, so callers never
// check for nil.
func NewNopLogger() types.Logger {
	return nop{}
}

// tagged prepends fixed key-value pairs to every message of a logger.
type tagged struct {
	base types.Logger
	tags []any
}

// With returns a logger that adds keysAndValues in front of the pairs of
// every message. A nil base yields a no-op logger.
//
// Parameters:
//   - base: The logger to write to
//   - keysAndValues: Alternating keys and values, e.g. "component", "topology"
//
// Returns:
//   - types.Logger: The tagged logger
func With(base types.Logger, keysAndValues ...any) types.Logger {
	if base == nil {
		return nop{}
	}
	if len(keysAndValues) == 0 {
		return base
	}
	if t, ok := base.(*tagged); ok {
		return &tagged{base: t.base, tags: t.merge(keysAndValues)}
	}

	return &tagged{base: base, tags: append([]any(nil), keysAndValues...)}
}

func (t *tagged) merge(kv []any) []any {
	out := make([]any, 0, len(t.tags)+len(kv))
	out = append(out, t.tags...)

	return append(out, kv...)
}

func (t *tagged) Debug(msg string, kv ...any) { t.base.Debug(msg, t.merge(kv)...) }
func (t *tagged) Info(msg string, kv ...any)  { t.base.Info(msg, t.merge(kv)...) }
func (t *tagged) Warn(msg string, kv ...any)  { t.base.Warn(msg, t.merge(kv)...) }
func (t *tagged) Error(msg string, kv ...any) { t.base.Error(msg, t.merge(kv)...) }
func (t *tagged) Fatal(msg string, kv ...any) { t.base.Fatal(msg, t.merge(kv)...) }
