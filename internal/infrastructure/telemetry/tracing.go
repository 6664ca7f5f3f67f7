package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for spans started by this module
const TracerName = "zone-reporting"

// StartSpan starts an internal span. keyValues are alternating string keys and
// values; non-string keys are skipped. The caller must End the span.
//
//	ctx, span := telemetry.StartSpan(ctx, "job.imports.process", "job_id", id)
//	defer span.End()
func StartSpan(ctx context.Context, name string, keyValues ...any) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attributes(keyValues)...))
}

// RecordError marks the span failed with err
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the trace id of the span in ctx, or "" when there is none
func TraceID(ctx context.Context) string {
	id := trace.SpanContextFromContext(ctx).TraceID()
	if !id.IsValid() {
		return ""
	}
	return id.String()
}

// SpanID returns the span id of the span in ctx, or "" when there is none
func SpanID(ctx context.Context) string {
	id := trace.SpanContextFromContext(ctx).SpanID()
	if !id.IsValid() {
		return ""
	}
	return id.String()
}

func attributes(keyValues []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, toAttribute(key, keyValues[i+1]))
	}
	return attrs
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
