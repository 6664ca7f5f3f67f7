package telemetry

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zone"

// Metrics holds the Prometheus collectors of the service and implements core.Metrics
type Metrics struct {
	registry *prometheus.Registry

	BatchTransitions       *prometheus.CounterVec
	ImportsFinished        *prometheus.CounterVec
	ImportRows             *prometheus.CounterVec
	ExportsFinished        *prometheus.CounterVec
	NotificationsDelivered *prometheus.CounterVec
	JobsProcessed          *prometheus.CounterVec
	HTTPRequests           *prometheus.CounterVec
	HTTPDuration           *prometheus.HistogramVec
}

// NewMetrics registers every collector on a fresh registry that also carries
// the Go runtime and process collectors
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		BatchTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finance_batch_transitions_total",
			Help:      "Batch workflow transitions by action (verify, lock, unlock)",
		}, []string{"action"}),
		ImportsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_finished_total",
			Help:      "Import jobs that reached a final status",
		}, []string{"entity_type", "status"}),
		ImportRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Rows read by finished import jobs",
		}, []string{"entity_type"}),
		ExportsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_finished_total",
			Help:      "Report export jobs that reached a final status",
		}, []string{"format", "status"}),
		NotificationsDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivery_total",
			Help:      "Outbox delivery attempts by outcome",
		}, []string{"status"}),
		JobsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Background queue jobs by outcome",
		}, []string{"queue", "job", "status"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
	}
}

// RegisterDB exports connection pool statistics of db
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// Registry returns the registry backing the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one served request. route is the matched route
// template so that path parameters do not explode the label space.
func (m *Metrics) ObserveHTTP(method, route string, status int, start time.Time) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}

// BatchTransition implements core.Metrics
func (m *Metrics) BatchTransition(action string) {
	m.BatchTransitions.WithLabelValues(action).Inc()
}

// ImportFinished implements core.Metrics
func (m *Metrics) ImportFinished(entityType, status string, rows int) {
	m.ImportsFinished.WithLabelValues(entityType, status).Inc()
	m.ImportRows.WithLabelValues(entityType).Add(float64(rows))
}

// ExportFinished implements core.Metrics
func (m *Metrics) ExportFinished(format, status string) {
	m.ExportsFinished.WithLabelValues(format, status).Inc()
}

// NotificationDelivered implements core.Metrics
func (m *Metrics) NotificationDelivered(status string) {
	m.NotificationsDelivered.WithLabelValues(status).Inc()
}

// JobProcessed implements core.Metrics
func (m *Metrics) JobProcessed(queue, name, status string) {
	m.JobsProcessed.WithLabelValues(queue, name, status).Inc()
}

var _ core.Metrics = (*Metrics)(nil)
