package kitlog

import (
	"bytes"
	"testing"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(log.NewLogfmtLogger(&buf))

	l.Warn("pool warmup failed", "host", "10.0.0.1:9042@dc1", "error", "refused")

	out := buf.String()
	require.Contains(t, out, "level=warn")
	require.Contains(t, out, "component=cqlguard")
	require.Contains(t, out, `msg="pool warmup failed"`)
	require.Contains(t, out, "host=10.0.0.1:9042@dc1")
	require.Contains(t, out, "error=refused")
}

func TestLoggerOddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := New(log.NewLogfmtLogger(&buf))

	l.Info("connected", "hosts")
	require.Contains(t, buf.String(), "hosts=(MISSING)")
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(level.NewFilter(log.NewLogfmtLogger(&buf), level.AllowWarn()))

	l.Debug("retrying")
	l.Info("connected")
	require.Empty(t, buf.String())

	l.Error("connect failed")
	require.Contains(t, buf.String(), "level=error")
}

func TestLoggerFatalExits(t *testing.T) {
	var buf bytes.Buffer
	l := New(log.NewLogfmtLogger(&buf))
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal("unrecoverable")
	require.Equal(t, 1, code)
	require.Contains(t, buf.String(), "level=error")
}
