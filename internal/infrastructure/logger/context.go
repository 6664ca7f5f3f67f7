package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	tenantIDKey
	userIDKey
)

// WithContext stores logger in ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID records the request id in ctx and on its logger
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withField(ctx, requestIDKey, "request_id", requestID)
}

// WithTenantID records the tenant id in ctx and on its logger
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return withField(ctx, tenantIDKey, "tenant_id", tenantID)
}

// WithUserID records the user id in ctx and on its logger
func WithUserID(ctx context.Context, userID string) context.Context {
	return withField(ctx, userIDKey, "user_id", userID)
}

func withField(ctx context.Context, key ctxKey, name, value string) context.Context {
	ctx = context.WithValue(ctx, key, value)
	return WithContext(ctx, FromContext(ctx).With(zap.String(name, value)))
}

// RequestID returns the request id stored in ctx
func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey).(string)
	return s
}

// TenantID returns the tenant id stored in ctx
func TenantID(ctx context.Context) string {
	s, _ := ctx.Value(tenantIDKey).(string)
	return s
}

// UserID returns the user id stored in ctx
func UserID(ctx context.Context) string {
	s, _ := ctx.Value(userIDKey).(string)
	return s
}

// L returns the context logger with the active trace and span ids attached
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
