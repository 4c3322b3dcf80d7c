package diag

import (
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// loggerPtr stores the active logger so SetLogger may race with logging
// from any goroutine.
var loggerPtr atomic.Pointer[logrus.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// newNopLogger returns a logger that discards everything. The level is set
// to Panic so entries are dropped before formatting.
func newNopLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// SetLogger configures the logger shared by every kernel package. By
// default the kernel produces no log output. Passing nil restores the
// silent default.
//
// Levels used:
//   - Debug: per-query detail (knot spans, rank classification, crossings)
//   - Warn: diagnostics recorded by batch operations
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current kernel logger.
func Logger() *logrus.Logger {
	return loggerPtr.Load()
}
