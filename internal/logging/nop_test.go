package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type entry struct {
	level string
	msg   string
	kv    []any
}

type recorder struct{ entries []entry }

func (r *recorder) log(level, msg string, kv []any) {
	r.entries = append(r.entries, entry{level: level, msg: msg, kv: kv})
}

func (r *recorder) Debug(msg string, kv ...any) { r.log("debug", msg, kv) }
func (r *recorder) Info(msg string, kv ...any)  { r.log("info", msg, kv) }
func (r *recorder) Warn(msg string, kv ...any)  { r.log("warn", msg, kv) }
func (r *recorder) Error(msg string, kv ...any) { r.log("error", msg, kv) }
func (r *recorder) Fatal(msg string, kv ...any) { r.log("fatal", msg, kv) }

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	require.NotNil(t, l)
	require.NotPanics(t, func() {
		l.Debug("d", "k", 1)
		l.Info("i")
		l.Warn("w")
		l.Error("e")
		l.Fatal("f")
	})
}

func TestWith(t *testing.T) {
	rec := &recorder{}
	l := With(rec, "component", "topology")

	l.Warn("watch failed", "key", "hosts")
	l.Info("plain")

	require.Equal(t, []entry{
		{level: "warn", msg: "watch failed", kv: []any{"component", "topology", "key", "hosts"}},
		{level: "info", msg: "plain", kv: []any{"component", "topology"}},
	}, rec.entries)
}

func TestWithNested(t *testing.T) {
	rec := &recorder{}
	l := With(With(rec, "a", 1), "b", 2)

	l.Error("boom")
	require.Len(t, rec.entries, 1)
	require.Equal(t, []any{"a", 1, "b", 2}, rec.entries[0].kv)
}

func TestWithEdgeCases(t *testing.T) {
	rec := &recorder{}
	require.Same(t, rec, With(rec))
	require.NotNil(t, With(nil, "k", "v"))
}
