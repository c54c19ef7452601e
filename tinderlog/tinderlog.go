// Package tinderlog wraps logrus the way the teacher's logging package
// wraps its own logger: a small interface a host can swap out (unit tests
// use NoOp; production gets a real logrus.Logger), plus a
// level parser and field helpers for the fields the interpreter itself logs.
package tinderlog

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the shape every component in this module logs against. A
// *logrus.Logger and a *logrus.Entry both satisfy it.
type Logger = logrus.FieldLogger

// New returns a standard logger writing text-formatted entries at Info
// level, the module's default.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// NewWithLevel returns a standard logger at the given level string ("debug",
// "info", "warn", "error"); an unrecognized level is a fatal configuration
// error, not silently downgraded.
func NewWithLevel(level string) (*logrus.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := New()
	l.SetLevel(lvl)
	return l, nil
}

// ParseLevel maps a CLI-facing level name to a logrus.Level.
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return logrus.InfoLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("invalid log level: %q", level)
	}
}

// NoOp returns a logger that discards everything, for callers that don't
// want to wire one up (unit tests exercising unrelated machinery).
func NoOp() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(nopWriter{})
	return l
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// MachineFields builds the base field set every interp.Machine log line
// carries: which compiled line it's at and what component emitted it.
func MachineFields(component string, line int) logrus.Fields {
	return logrus.Fields{
		"component": component,
		"line":      line,
	}
}

// SignalFields extends MachineFields with the outcome of a Run call.
func SignalFields(component string, line int, signal string) logrus.Fields {
	f := MachineFields(component, line)
	f["signal"] = signal
	return f
}

// LabelFields extends MachineFields with the label a LabelHit/Catch/Jump
// instruction names.
func LabelFields(component string, line int, label string) logrus.Fields {
	f := MachineFields(component, line)
	f["label"] = label
	return f
}
