// Package metrics provides Prometheus metrics for the draftelo voting service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Latency buckets in milliseconds. Spreadsheet round trips routinely take
// hundreds of milliseconds, so the range is wider than prometheus.DefBuckets.
var defaultLatencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // constant bucket layout

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Voting
	votesCast     prometheus.Counter
	voteFailures  *prometheus.CounterVec
	matchupsDrawn prometheus.Counter
	ratingDelta   prometheus.Histogram

	// Store round trips
	storeLatency      *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec
	redundantWrites   prometheus.Counter
	dataShapeRecovery *prometheus.CounterVec

	// Session cache and lifecycle
	cacheEvents    *prometheus.CounterVec
	activeSessions prometheus.Gauge
	expiredTotal   prometheus.Counter
	playersTotal   prometheus.Gauge
	usersTotal     prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "draftelo",
		subsystem:        "voting",
		histogramBuckets: defaultLatencyBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.votesCast = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "votes_cast_total",
		Help: "Total number of votes committed to the rating store",
	})
	m.voteFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "vote_failures_total",
		Help: "Votes that were rejected or failed, by reason",
	}, []string{"reason"})
	m.matchupsDrawn = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "matchups_drawn_total",
		Help: "Total number of matchups drawn by the selection sampler",
	})
	m.ratingDelta = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "rating_delta_points",
		Help:    "Absolute rating change applied to the winner of each vote",
		Buckets: []float64{1, 2, 4, 8, 12, 16, 20, 24, 32},
	})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "store_call_latency_milliseconds",
		Help:    "Latency of remote store calls by store and operation",
		Buckets: m.histogramBuckets,
	}, []string{"store", "operation"})
	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "store_errors_total",
		Help: "Remote store failures by store and operation",
	}, []string{"store", "operation"})
	m.redundantWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "redundant_writes_skipped_total",
		Help: "Rating writes skipped because the value did not change",
	})
	m.dataShapeRecovery = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "data_shape_recoveries_total",
		Help: "Missing or unparseable cells replaced by defaults, by store and column",
	}, []string{"store", "column"})

	m.cacheEvents = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "session_cache_events_total",
		Help: "Session cache events (populate, hit, invalidate, apply) by dataset",
	}, []string{"dataset", "event"})
	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "active_sessions",
		Help: "Number of live voting sessions",
	})
	m.expiredTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "sessions_expired_total",
		Help: "Sessions removed by the idle sweeper",
	})
	m.playersTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "players_total",
		Help: "Number of players in the last rating store snapshot",
	})
	m.usersTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "users_total",
		Help: "Number of users in the last participation ledger snapshot",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "errors_by_endpoint_total",
		Help: "HTTP errors by endpoint, method and error type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: labels,
		Name: "memory_usage_bytes",
		Help: "Current heap allocation in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: labels,
		Name: "goroutine_count",
		Help: "Current number of goroutines",
	})
}

// Global convenience functions. They are no-ops when metrics are disabled.

// RecordVoteCast counts a committed vote and the winner's rating gain.
func RecordVoteCast(winnerDelta float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.votesCast.Inc()
	if winnerDelta < 0 {
		winnerDelta = -winnerDelta
	}
	globalManager.ratingDelta.Observe(winnerDelta)
}

// RecordVoteFailure counts a rejected or failed vote.
func RecordVoteFailure(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.voteFailures.WithLabelValues(reason).Inc()
}

// RecordMatchupDrawn counts a drawn matchup.
func RecordMatchupDrawn() {
	if !globalManager.enabled {
		return
	}
	globalManager.matchupsDrawn.Inc()
}

// RecordStoreCall records the latency of a store call and counts it as an
// error when err is non-nil.
func RecordStoreCall(store, operation string, latency time.Duration, err error) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeLatency.WithLabelValues(store, operation).Observe(float64(latency.Milliseconds()))
	if err != nil {
		globalManager.storeErrors.WithLabelValues(store, operation).Inc()
	}
}

// RecordRedundantWriteSkipped counts a rating write that was skipped.
func RecordRedundantWriteSkipped() {
	if !globalManager.enabled {
		return
	}
	globalManager.redundantWrites.Inc()
}

// RecordDataShapeRecovery counts a cell replaced by its default value.
func RecordDataShapeRecovery(store, column string) {
	if !globalManager.enabled {
		return
	}
	globalManager.dataShapeRecovery.WithLabelValues(store, column).Inc()
}

// RecordCacheEvent counts a session cache event for a dataset.
func RecordCacheEvent(dataset, event string) {
	if !globalManager.enabled {
		return
	}
	globalManager.cacheEvents.WithLabelValues(dataset, event).Inc()
}

// UpdateActiveSessions sets the live session gauge.
func UpdateActiveSessions(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.activeSessions.Set(float64(count))
}

// RecordSessionsExpired counts sessions removed by the sweeper.
func RecordSessionsExpired(count int) {
	if !globalManager.enabled || count <= 0 {
		return
	}
	globalManager.expiredTotal.Add(float64(count))
}

// UpdatePlayersTotal sets the players gauge.
func UpdatePlayersTotal(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.playersTotal.Set(float64(count))
}

// UpdateUsersTotal sets the users gauge.
func UpdateUsersTotal(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.usersTotal.Set(float64(count))
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint counts an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// SetEnabled toggles the global manager. Tests use it to silence metrics.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// RefreshInterval reports how often process gauges are sampled.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// SetRefreshInterval changes the sampling period of the global manager.
// Non-positive values are ignored.
func SetRefreshInterval(interval time.Duration) {
	WithRefreshInterval(interval)(globalManager)
}

// RefreshInterval reports the sampling period of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
