// Package metrics exposes Prometheus metrics for the API server and worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledgerbook/internal/domain/ledger"
)

// Metrics holds all ledgerbook metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Outbox / Kafka metrics
	EventsPublished      *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec
	OutboxDeadLettered   prometheus.Counter

	// Business metrics
	MovementsApplied   *prometheus.CounterVec
	MovementsReversed  *prometheus.CounterVec
	BulkItemFailures   *prometheus.CounterVec
	CounterDivergences prometheus.Gauge
}

var _ ledger.Observer = (*Metrics)(nil)

// Config holds metrics configuration
type Config struct {
	Namespace string
	Subsystem string // "api" or "worker"
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(subsystem string) Config {
	return Config{
		Namespace: "ledgerbook",
		Subsystem: subsystem,
	}
}

// New creates a new Metrics instance on its own registry.
func New(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	m.EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "events_published_total",
			Help:      "Outbox events relayed to Kafka",
		},
		[]string{"topic", "event_type", "status"},
	)

	m.KafkaPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"topic"},
	)

	m.OutboxDeadLettered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "outbox_dead_lettered_total",
			Help:      "Outbox messages moved to the dead letter table",
		},
	)

	m.MovementsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "movements_applied_total",
			Help:      "Ledger entries appended, by movement type",
		},
		[]string{"movement_type"},
	)

	m.MovementsReversed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "movements_reversed_total",
			Help:      "Ledger entries reversed, by movement type",
		},
		[]string{"movement_type"},
	)

	m.BulkItemFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "bulk_item_failures_total",
			Help:      "Failed items in bulk ledger operations",
		},
		[]string{"operation"},
	)

	m.CounterDivergences = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "counter_divergences",
			Help:      "Products whose stored counters differ from their ledger sums at the last reconciliation",
		},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.EventsPublished,
		m.KafkaPublishDuration,
		m.OutboxDeadLettered,
		m.MovementsApplied,
		m.MovementsReversed,
		m.BulkItemFailures,
		m.CounterDivergences,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records a finished HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordEventPublished records one outbox message relay attempt.
func (m *Metrics) RecordEventPublished(topic, eventType string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.EventsPublished.WithLabelValues(topic, eventType, status).Inc()
	m.KafkaPublishDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// MovementApplied implements ledger.Observer.
func (m *Metrics) MovementApplied(kind string) {
	m.MovementsApplied.WithLabelValues(kind).Inc()
}

// MovementReversed implements ledger.Observer.
func (m *Metrics) MovementReversed(kind string) {
	m.MovementsReversed.WithLabelValues(kind).Inc()
}

// BulkItemFailed implements ledger.Observer.
func (m *Metrics) BulkItemFailed(operation string) {
	m.BulkItemFailures.WithLabelValues(operation).Inc()
}
