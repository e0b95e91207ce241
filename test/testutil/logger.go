package testutil

import (
	"strings"
	"testing"

	"github.com/go-kit/log"

	"github.com/arloliu/cqlguard/contrib/logging/kitlog"
)

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))

	return len(p), nil
}

// NewTestLogger returns a logfmt logger that writes through t.Log.
//
// Only use it for code that stops logging before the test returns;
// testing.T panics on Log calls made after completion.
func NewTestLogger(t testing.TB) *kitlog.Logger {
	return kitlog.New(log.NewLogfmtLogger(log.NewSyncWriter(testWriter{t: t})))
}
