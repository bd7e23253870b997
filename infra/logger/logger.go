package logger

import corelogger "github.com/kilianp07/crisistriage/core/logger"

type Logger = corelogger.Logger

// NopLogger discards everything. Tests and optional components use it when
// no logger is supplied.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns the logger for a named component ("triage", "mqtt", "api").
// APP_ENV=dev switches to console output.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
