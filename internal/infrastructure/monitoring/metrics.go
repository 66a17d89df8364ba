// Package monitoring provides the Prometheus, zap and OpenTelemetry implementations of
// the registry's observability interfaces.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/turtacn/keyreg/internal/domain/service"
)

var _ service.Metrics = (*Metrics)(nil)

// Metrics manages the Prometheus metrics.
// Metrics 管理 Prometheus 指标。
type Metrics struct {
	Transitions    *prometheus.CounterVec
	BulkOutcomes   *prometheus.CounterVec
	BulkLatency    *prometheus.HistogramVec
	BulkTargets    *prometheus.HistogramVec
	QueryLatency   *prometheus.HistogramVec
	QueryMatches   *prometheus.HistogramVec
	Expirations    prometheus.Counter
	RecordsByState *prometheus.GaugeVec

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg uses the
// Prometheus default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyreg_lifecycle_transitions_total",
				Help: "Total number of lifecycle transition attempts.",
			},
			[]string{"action", "result", "error_code"},
		),
		BulkOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyreg_bulk_outcomes_total",
				Help: "Per-target outcomes of confirmed bulk actions.",
			},
			[]string{"action", "kind"},
		),
		BulkLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyreg_bulk_duration_seconds",
				Help:    "Duration of confirmed bulk actions.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		BulkTargets: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyreg_bulk_targets",
				Help:    "Number of targets per confirmed bulk action.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 6),
			},
			[]string{"action"},
		),
		QueryLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyreg_query_duration_seconds",
				Help:    "Latency of filtered and sorted views.",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"entity"},
		),
		QueryMatches: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyreg_query_matches",
				Help:    "Number of records matching a view's filter.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"entity"},
		),
		Expirations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "keyreg_expirations_total",
				Help: "Records expired by the scheduled sweep.",
			},
		),
		RecordsByState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keyreg_records",
				Help: "Stored key records per lifecycle status.",
			},
			[]string{"status"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyreg_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyreg_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordTransition records a single lifecycle transition attempt.
func (m *Metrics) RecordTransition(action string, success bool, errorCode string) {
	m.Transitions.WithLabelValues(action, result(success), errorCode).Inc()
}

// RecordBulkOutcome records one target outcome of a bulk action.
func (m *Metrics) RecordBulkOutcome(action, kind string) {
	m.BulkOutcomes.WithLabelValues(action, kind).Inc()
}

// RecordBulkDuration records a confirmed bulk action.
func (m *Metrics) RecordBulkDuration(action string, targets int, duration time.Duration) {
	m.BulkLatency.WithLabelValues(action).Observe(duration.Seconds())
	m.BulkTargets.WithLabelValues(action).Observe(float64(targets))
}

// RecordQuery records a filtered view.
func (m *Metrics) RecordQuery(entity string, matched int, duration time.Duration) {
	m.QueryLatency.WithLabelValues(entity).Observe(duration.Seconds())
	m.QueryMatches.WithLabelValues(entity).Observe(float64(matched))
}

// RecordExpirations records records expired by a sweep.
func (m *Metrics) RecordExpirations(count int) {
	m.Expirations.Add(float64(count))
}

// UpdateRecordCount sets the gauge of stored records with status.
func (m *Metrics) UpdateRecordCount(status string, count int) {
	m.RecordsByState.WithLabelValues(status).Set(float64(count))
}

func result(success bool) string {
	return strconv.FormatBool(success)
}
