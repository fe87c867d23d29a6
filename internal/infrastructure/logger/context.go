package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey scopes the values this package stores in a context.
type contextKey string

const (
	// LoggerKey carries the request-scoped logger.
	LoggerKey contextKey = "logger"
	// RequestIDKey carries the request ID assigned by the HTTP layer.
	RequestIDKey contextKey = "request_id"
)

// WithContext returns a context carrying the given logger. Code further
// down the call chain retrieves it through L or FromContext.
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, log)
}

// FromContext returns the logger stored in ctx, or a no-op logger when
// none was attached.
func FromContext(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

// WithRequestID returns a context carrying the request ID so correlation
// fields can pick it up later.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID returns the request ID stored in ctx, or an empty string.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// correlationFields collects the fields that tie a log entry back to its
// request: trace_id and span_id from the active span plus the request ID.
// Fields whose source is absent are left out entirely.
func correlationFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	return fields
}

// ContextLogger logs through the context's logger with correlation fields
// attached to every entry.
type ContextLogger struct {
	ctx context.Context
	log *zap.Logger
}

// L returns a ContextLogger for ctx.
//
// Usage: logger.L(ctx).Info("invoice confirmed", zap.String("number", n))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, log: FromContext(ctx)}
}

// With returns a child ContextLogger carrying extra fields.
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, log: cl.log.With(fields...)}
}

// Zap returns the underlying zap.Logger with correlation fields applied,
// for code that expects a plain *zap.Logger.
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.log.With(correlationFields(cl.ctx)...)
}

// Debug logs at debug level with correlation fields.
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.log.Debug(msg, append(correlationFields(cl.ctx), fields...)...)
}

// Info logs at info level with correlation fields.
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.log.Info(msg, append(correlationFields(cl.ctx), fields...)...)
}

// Warn logs at warn level with correlation fields.
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.log.Warn(msg, append(correlationFields(cl.ctx), fields...)...)
}

// Error logs at error level with correlation fields.
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.log.Error(msg, append(correlationFields(cl.ctx), fields...)...)
}
