package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// contextWithSpan returns a context carrying a valid remote span context,
// the same shape a traced HTTP request would have.
func contextWithSpan(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	require.True(t, sc.IsValid())
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestWithContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		log := zap.NewNop()
		ctx := WithContext(context.Background(), log)
		assert.Same(t, log, FromContext(ctx))
	})

	t.Run("missing logger falls back to nop", func(t *testing.T) {
		log := FromContext(context.Background())
		require.NotNil(t, log)
		assert.NotPanics(t, func() {
			log.Info("into the void")
		})
	})

	t.Run("wrong value type falls back to nop", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
		log := FromContext(ctx)
		require.NotNil(t, log)
		assert.NotPanics(t, func() {
			log.Info("still fine")
		})
	})
}

func TestWithRequestID(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-123")
		assert.Equal(t, "req-123", GetRequestID(ctx))
	})

	t.Run("missing", func(t *testing.T) {
		assert.Empty(t, GetRequestID(context.Background()))
	})

	t.Run("latest value wins", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "first")
		ctx = WithRequestID(ctx, "second")
		assert.Equal(t, "second", GetRequestID(ctx))
	})
}

func TestCorrelationFields(t *testing.T) {
	t.Run("empty context yields no fields", func(t *testing.T) {
		assert.Empty(t, correlationFields(context.Background()))
	})

	t.Run("request id only", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-7")
		fields := correlationFields(ctx)
		require.Len(t, fields, 1)
		assert.Equal(t, "request_id", fields[0].Key)
		assert.Equal(t, "req-7", fields[0].String)
	})

	t.Run("valid span yields trace and span ids", func(t *testing.T) {
		ctx := contextWithSpan(t)
		fields := correlationFields(ctx)
		require.Len(t, fields, 2)
		assert.Equal(t, "trace_id", fields[0].Key)
		assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", fields[0].String)
		assert.Equal(t, "span_id", fields[1].Key)
		assert.Equal(t, "0102030405060708", fields[1].String)
	})
}

func TestContextLogger(t *testing.T) {
	t.Run("logs through the context logger with correlation", func(t *testing.T) {
		log, logs := newObservedLogger()
		ctx := WithContext(WithRequestID(contextWithSpan(t), "req-42"), log)

		L(ctx).Info("invoice confirmed", zap.String("number", "F000042"))

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "invoice confirmed", entries[0].Message)

		fields := entries[0].ContextMap()
		assert.Equal(t, "req-42", fields["request_id"])
		assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", fields["trace_id"])
		assert.Equal(t, "F000042", fields["number"])
	})

	t.Run("levels", func(t *testing.T) {
		log, logs := newObservedLogger()
		ctx := WithContext(context.Background(), log)

		L(ctx).Debug("d")
		L(ctx).Info("i")
		L(ctx).Warn("w")
		L(ctx).Error("e")

		entries := logs.All()
		require.Len(t, entries, 4)
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
		assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
		assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	})

	t.Run("With carries fields to children", func(t *testing.T) {
		log, logs := newObservedLogger()
		ctx := WithContext(context.Background(), log)

		L(ctx).
			With(zap.String("invoice_id", "abc")).
			With(zap.Int64("lines", 3)).
			Info("saved")

		entries := logs.All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "abc", fields["invoice_id"])
		assert.Equal(t, int64(3), fields["lines"])
	})

	t.Run("Zap returns a plain logger with correlation applied", func(t *testing.T) {
		log, logs := newObservedLogger()
		ctx := WithContext(WithRequestID(context.Background(), "req-z"), log)

		L(ctx).Zap().Info("direct")

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "req-z", entries[0].ContextMap()["request_id"])
	})

	t.Run("bare context does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			L(context.Background()).Info("nobody listening")
		})
	})
}
