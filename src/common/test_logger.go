package common

import (
	"testing"

	"github.com/sirupsen/logrus"
)

// testLoggerAdapter maps logger output into calls to testing.T.Log, so that
// log lines only show up for failed or verbose tests.
type testLoggerAdapter struct {
	t testing.TB
}

func (a *testLoggerAdapter) Write(d []byte) (int, error) {
	n := len(d)
	if n > 0 && d[n-1] == '\n' {
		d = d[:n-1]
	}
	a.t.Log(string(d))
	return n, nil
}

// NewTestLogger returns a Debug level logger writing to t.Log
func NewTestLogger(t testing.TB) *logrus.Logger {
	logger := logrus.New()
	logger.Out = &testLoggerAdapter{t: t}
	logger.Level = logrus.DebugLevel
	return logger
}

// NewTestEntry returns an entry of a test logger set to the given level
func NewTestEntry(t testing.TB, level logrus.Level) *logrus.Entry {
	logger := NewTestLogger(t)
	logger.Level = level
	return logrus.NewEntry(logger)
}
