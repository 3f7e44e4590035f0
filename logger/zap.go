package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// ZapLogger adapts a *zap.SugaredLogger to the Logger interface. This is
// the default logger amqpmux.Connection uses when no WithLogger option
// is supplied.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds a ZapLogger around a production zap configuration.
// It panics only if zap itself fails to build its encoder, mirroring
// zap.Must's own contract.
func NewZapLogger() *ZapLogger {
	l := zap.Must(zap.NewProduction())
	return &ZapLogger{sugar: l.Sugar()}
}

// NewZapLoggerFrom wraps an already-configured zap logger, for callers
// that want amqpmux's log lines to share their application's sinks.
func NewZapLoggerFrom(l *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: l.Sugar()}
}

func (z *ZapLogger) Fatal(format string, a ...any) { z.sugar.Fatal(fmt.Sprintf(format, a...)) }
func (z *ZapLogger) Err(format string, a ...any)   { z.sugar.Error(fmt.Sprintf(format, a...)) }
func (z *ZapLogger) Warn(format string, a ...any)  { z.sugar.Warn(fmt.Sprintf(format, a...)) }
func (z *ZapLogger) Info(format string, a ...any)  { z.sugar.Info(fmt.Sprintf(format, a...)) }
func (z *ZapLogger) Debug(format string, a ...any) { z.sugar.Debug(fmt.Sprintf(format, a...)) }
