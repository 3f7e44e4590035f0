// Package logger defines the pluggable logging surface amqpmux's
// connection, channel and entity layers log through. It carries over the
// teacher's own Logger interface unchanged; the default implementation
// is backed by go.uber.org/zap instead of a hand-rolled writer, the way
// moby-moby reaches for a real structured-logging library rather than
// fmt.Printf.
package logger

import "fmt"

// Logger interface definition
type Logger interface {
	Fatal(format string, a ...any)
	Err(format string, a ...any)
	Warn(format string, a ...any)
	Info(format string, a ...any)
	Debug(format string, a ...any)
}

// NilLogger is a logger implementation that doesn't write any logs.
// Installed via amqpmux.WithNilLogger.
type NilLogger struct{}

// Fatal does nothing but panic, matching the contract that Fatal never returns.
func (n *NilLogger) Fatal(format string, a ...any) { panic(fmt.Sprintf(format, a...)) }

// Err does nothing
func (n *NilLogger) Err(format string, a ...any) {}

// Warn does nothing
func (n *NilLogger) Warn(format string, a ...any) {}

// Info does nothing
func (n *NilLogger) Info(format string, a ...any) {}

// Debug does nothing
func (n *NilLogger) Debug(format string, a ...any) {}
