// Package logger declares the logging surface shared by the triage pipeline.
// Implementations live in infra/logger.
package logger

// Logger is a levelled printf logger. Debugw attaches structured fields and
// is used for LLM request and response traces.
type Logger interface {
	Debugf(format string, args ...any)
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
