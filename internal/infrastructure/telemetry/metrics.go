// Package telemetry exposes Prometheus metrics for artifact production, gateway
// queries and the database connection pool.
package telemetry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bimate/backend/internal/domain/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names without the namespace prefix.
const (
	MetricArtifactsTotal        = "artifacts_total"
	MetricArtifactDuration      = "artifact_duration_seconds"
	MetricQueryTotal            = "gateway_query_total"
	MetricQueryDuration         = "gateway_query_duration_seconds"
	MetricSlowQueryTotal        = "gateway_slow_query_total"
	MetricUpdatesTotal          = "bot_updates_total"
	MetricPoolConnections       = "db_pool_connections"
	MetricPoolConnectionsMax    = "db_pool_connections_max"
	MetricArchiveFailuresTotal  = "archive_failures_total"
	MetricDigestDeliveriesTotal = "digest_deliveries_total"
	MetricHTTPRequestsTotal     = "http_requests_total"
	MetricHTTPRequestDuration   = "http_request_duration_seconds"
)

// Outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeNoData      = "no_data"
	OutcomeUnavailable = "unavailable"
	OutcomeRender      = "render_failed"
	OutcomeError       = "error"
)

// QueryDurationBuckets are the latency buckets of gateway queries in seconds.
var QueryDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// ArtifactDurationBuckets cover browser rendering, which takes seconds.
var ArtifactDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Namespace string
	// SlowQueryThreshold marks gateway queries counted as slow (default: 500ms).
	SlowQueryThreshold time.Duration
	// RuntimeCollectors registers Go runtime and process collectors.
	RuntimeCollectors bool
}

// DefaultMetricsConfig returns the production configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:          "bimate",
		SlowQueryThreshold: 500 * time.Millisecond,
		RuntimeCollectors:  true,
	}
}

// Metrics holds every instrument on a private registry.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Metrics struct {
	registry *prometheus.Registry
	config   MetricsConfig

	artifactsTotal   *prometheus.CounterVec
	artifactDuration *prometheus.HistogramVec
	queryTotal       *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec
	slowQueryTotal   *prometheus.CounterVec
	updatesTotal     *prometheus.CounterVec
	archiveFailures  prometheus.Counter
	digestDeliveries *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec

	poolConnections    *prometheus.GaugeVec
	poolConnectionsMax prometheus.Gauge
}

// NewMetrics creates the instruments and registers them on a new registry.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "bimate"
	}
	if cfg.SlowQueryThreshold == 0 {
		cfg.SlowQueryThreshold = 500 * time.Millisecond
	}

	// Create a new registry to avoid conflicts with default metrics
	registry := prometheus.NewRegistry()
	ns := cfg.Namespace

	m := &Metrics{
		registry: registry,
		config:   cfg,
		artifactsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      MetricArtifactsTotal,
			Help:      "Produced artifacts by kind and outcome",
		}, []string{"kind", "outcome"}),
		artifactDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      MetricArtifactDuration,
			Help:      "Artifact production latency in seconds",
			Buckets:   ArtifactDurationBuckets,
		}, []string{"kind"}),
		queryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      MetricQueryTotal,
			Help:      "Aggregate queries executed against the sales database",
		}, []string{"query", "outcome"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      MetricQueryDuration,
			Help:      "Aggregate query latency in seconds",
			Buckets:   QueryDurationBuckets,
		}, []string{"query"}),
		slowQueryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      MetricSlowQueryTotal,
			Help:      "Aggregate queries slower than the configured threshold",
		}, []string{"query"}),
		updatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      MetricUpdatesTotal,
			Help:      "Telegram updates handled by kind",
		}, []string{"kind"}),
		archiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      MetricArchiveFailuresTotal,
			Help:      "Artifacts that could not be archived",
		}),
		digestDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      MetricDigestDeliveriesTotal,
			Help:      "Weekly digest deliveries by outcome",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      MetricHTTPRequestsTotal,
			Help:      "Web requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      MetricHTTPRequestDuration,
			Help:      "Web request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		poolConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      MetricPoolConnections,
			Help:      "Number of connections in the pool by state",
		}, []string{"state"}),
		poolConnectionsMax: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      MetricPoolConnectionsMax,
			Help:      "Maximum number of connections in the pool",
		}),
	}

	registry.MustRegister(
		m.artifactsTotal,
		m.artifactDuration,
		m.queryTotal,
		m.queryDuration,
		m.slowQueryTotal,
		m.updatesTotal,
		m.archiveFailures,
		m.digestDeliveries,
		m.httpRequests,
		m.httpDuration,
		m.poolConnections,
		m.poolConnectionsMax,
	)
	if cfg.RuntimeCollectors {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordArtifact counts one production attempt and, on success, its latency.
func (m *Metrics) RecordArtifact(kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := Outcome(err)
	m.artifactsTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeSuccess {
		m.artifactDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// ObserveQuery records one named gateway query. The signature matches
// logger.QueryObserver so the gorm logger can feed it directly.
func (m *Metrics) ObserveQuery(query string, elapsed time.Duration, err error) {
	if m == nil || query == "" {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.queryTotal.WithLabelValues(query, outcome).Inc()
	m.queryDuration.WithLabelValues(query).Observe(elapsed.Seconds())
	if elapsed > m.config.SlowQueryThreshold {
		m.slowQueryTotal.WithLabelValues(query).Inc()
	}
}

// RecordUpdate counts one handled chat update (message, callback).
func (m *Metrics) RecordUpdate(kind string) {
	if m == nil {
		return
	}
	m.updatesTotal.WithLabelValues(kind).Inc()
}

// RecordArchiveFailure counts an artifact that was delivered but not archived.
func (m *Metrics) RecordArchiveFailure() {
	if m == nil {
		return
	}
	m.archiveFailures.Inc()
}

// RecordDigest counts one weekly digest delivery.
func (m *Metrics) RecordDigest(err error) {
	if m == nil {
		return
	}
	m.digestDeliveries.WithLabelValues(Outcome(err)).Inc()
}

// ObserveHTTP records one web request. route is the matched gin route, so
// path parameters do not explode the label set.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Outcome maps an error to its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, shared.ErrNoData):
		return OutcomeNoData
	case errors.Is(err, shared.ErrDataUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, shared.ErrRenderFailed):
		return OutcomeRender
	}
	return OutcomeError
}
