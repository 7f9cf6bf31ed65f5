// Package log creates the loggers used for block diagnostics.
package log

import (
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// DebugEnv is the environment variable that enables debug output.
const DebugEnv = "BLOCK_DEBUG"

// Categories of diagnostic events.
const (
	Topology  = "topology"
	Lifecycle = "lifecycle"
	Shutdown  = "shutdown"
)

// GetLogger returns a new logger instance. Debug level is enabled when
// DebugEnv parses as true.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug, err := strconv.ParseBool(os.Getenv(DebugEnv)); err == nil && debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Silent returns a logger that discards everything.
func Silent() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}
