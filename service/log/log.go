package log

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logKeyT struct{}

var logKey logKeyT

var defaultLogger = zap.Must(zap.NewDevelopment())

// Init replaces the default logger with a console logger at the level
// matching verbosity: 0=warn, 1=info, >=2 debug.
func Init(verbosity int) {
	level := zapcore.WarnLevel
	switch {
	case verbosity == 1:
		level = zapcore.InfoLevel
	case verbosity >= 2:
		level = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	defaultLogger = zap.Must(cfg.Build())
}

// Logger returns the logger attached to ctx, or the default logger.
func Logger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(logKey).(*zap.Logger); ok {
		return l
	}
	return defaultLogger
}

// With attaches to ctx a logger carrying the given field.
func With(ctx context.Context, key string, value interface{}) context.Context {
	return context.WithValue(ctx, logKey, Logger(ctx).With(zap.Any(key, value)))
}

// Fatal logs the message on the default logger and exits.
func Fatal(msg string, fields ...zap.Field) {
	defaultLogger.Fatal(msg, fields...)
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = defaultLogger.Sync()
}
