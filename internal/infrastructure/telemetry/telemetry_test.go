package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	m.BatchTransition("lock")
	m.BatchTransition("lock")
	m.ImportFinished("people", "completed", 120)
	m.ExportFinished("xlsx", "failed")
	m.NotificationDelivered("sent")
	m.JobProcessed("imports", "imports.process", "succeeded")
	m.ObserveHTTP(http.MethodGet, "/api/v1/finance/batches/:id", http.StatusOK, time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchTransitions.WithLabelValues("lock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImportsFinished.WithLabelValues("people", "completed")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.ImportRows.WithLabelValues("people")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportsFinished.WithLabelValues("xlsx", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsDelivered.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsProcessed.WithLabelValues("imports", "imports.process", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/finance/batches/:id", "200")))

	t.Run("handler exposes the registry", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.True(t, strings.Contains(body, `zone_finance_batch_transitions_total{action="lock"} 2`))
		assert.True(t, strings.Contains(body, "go_goroutines"))
	})

	t.Run("instances do not share collectors", func(t *testing.T) {
		other := NewMetrics()
		assert.Equal(t, 0.0, testutil.ToFloat64(other.BatchTransitions.WithLabelValues("lock")))
	})
}

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func TestStartSpan(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := StartSpan(context.Background(), "job.exports.process", "export_id", "e-1", "attempt", 2, 42, "skipped")
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))
	RecordError(span, errors.New("render failed"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "job.exports.process", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, map[string]string{"export_id": "e-1", "attempt": "2"}, attrs)

	assert.Empty(t, TraceID(context.Background()))
}

func TestRegisterDBTracing(t *testing.T) {
	recorder := withRecorder(t)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: true}, zap.NewNop()))

	type tracedRow struct {
		ID   int
		Name string
	}
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	ctx, span := StartSpan(context.Background(), "test")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "x"}).Error)
	span.End()

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "test")
	assert.Greater(t, len(names), 1, "queries produce their own spans")

	t.Run("disabled is a no-op", func(t *testing.T) {
		plain, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
		require.NoError(t, err)
		require.NoError(t, RegisterDBTracing(plain, DBTracingConfig{}, zap.NewNop()))
	})
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}
