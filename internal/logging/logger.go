package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// requestIDKey is the key used to store request ID in context
type requestIDKey struct{}

// Logger provides operation-scoped structured logging for services
type Logger struct {
	l *zap.Logger
}

// New builds a zap-backed logger. format "json" selects the production
// encoder, anything else the development console encoder.
func New(levelStr, format string) (*Logger, error) {
	level := zapcore.InfoLevel
	switch levelStr {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{l: l}, nil
}

// Wrap adapts an existing *zap.Logger.
func Wrap(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{l: l}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{l: zap.NewNop()}
}

// Named returns a child logger tagged with a component name.
func (lg *Logger) Named(component string) *Logger {
	return &Logger{l: lg.l.With(zap.String("component", component))}
}

// With returns a child logger carrying the given fields.
func (lg *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{l: lg.l.With(fields...)}
}

// WithRequest tags the logger with the request ID found in ctx, if any.
func (lg *Logger) WithRequest(ctx context.Context) *Logger {
	rid := RequestID(ctx)
	if rid == "" {
		return lg
	}
	return lg.With(zap.String("request_id", rid))
}

// Zap exposes the underlying zap logger.
func (lg *Logger) Zap() *zap.Logger {
	return lg.l
}

func (lg *Logger) Sync() {
	_ = lg.l.Sync()
}

// LogError logs an error with context
func (lg *Logger) LogError(operation string, err error) {
	lg.l.Error("operation failed", zap.String("operation", operation), zap.Error(err))
}

// LogErrorf logs a formatted error with context
func (lg *Logger) LogErrorf(operation string, format string, args ...interface{}) {
	lg.l.Error(fmt.Sprintf(format, args...), zap.String("operation", operation))
}

// LogInfo logs an info message with context
func (lg *Logger) LogInfo(operation string, message string) {
	lg.l.Info(message, zap.String("operation", operation))
}

// LogInfof logs a formatted info message with context
func (lg *Logger) LogInfof(operation string, format string, args ...interface{}) {
	lg.l.Info(fmt.Sprintf(format, args...), zap.String("operation", operation))
}

// LogWarn logs a warning with context
func (lg *Logger) LogWarn(operation string, message string) {
	lg.l.Warn(message, zap.String("operation", operation))
}

// LogWarnf logs a formatted warning with context
func (lg *Logger) LogWarnf(operation string, format string, args ...interface{}) {
	lg.l.Warn(fmt.Sprintf(format, args...), zap.String("operation", operation))
}

// LogDebugf logs a formatted debug message with context
func (lg *Logger) LogDebugf(operation string, format string, args ...interface{}) {
	lg.l.Debug(fmt.Sprintf(format, args...), zap.String("operation", operation))
}

// ContextWithRequestID stores a request ID in a standard context.
func ContextWithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request ID from a standard context
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}
