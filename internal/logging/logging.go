// Package logging provides the single leveled log sink used across the
// engine, autoconfig, multiproc, and facade packages.
package logging

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level is the sink's global level, coarser than logrus's own levels so
// callers never have to import logrus directly.
type Level int32

const (
	Off Level = iota
	Error
	Warn
	Info
	Debug
	Trace
)

func (l Level) String() string {
	switch l {
	case Off:
		return "off"
	case Error:
		return "error"
	case Warn:
		return "warn"
	case Info:
		return "info"
	case Debug:
		return "debug"
	case Trace:
		return "trace"
	default:
		return "unknown"
	}
}

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case Off:
		// logrus.PanicLevel, the most restrictive logrus level: Fatal,
		// Error and every lower level are suppressed; only Panic entries
		// would still be written.
		return logrus.Level(0)
	case Error:
		return logrus.ErrorLevel
	case Warn:
		return logrus.WarnLevel
	case Info:
		return logrus.InfoLevel
	case Debug:
		return logrus.DebugLevel
	case Trace:
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}

var (
	mu     sync.Mutex
	logger = newLogger()
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(Info.logrusLevel())
	return l
}

// Logger returns the shared logger instance. Safe for concurrent use;
// logrus itself serializes output.
func Logger() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// SetLevel atomically swaps the global log level.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetLevel(level.logrusLevel())
}

// SetOutput redirects the sink's output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// Fields is a re-export of logrus.Fields so callers in this module never
// need to import logrus directly.
type Fields = logrus.Fields
