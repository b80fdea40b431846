// Package metrics provides Prometheus metrics for the muster roster service.
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

// Manager manages all Prometheus metrics for the muster service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Core Business Metrics - the parse/normalize/evaluate pipeline
	rostersEvaluated   prometheus.Counter
	evaluationDuration prometheus.Histogram
	stratagemsMatched  prometheus.Histogram
	parseDuration      prometheus.Histogram
	parseFailures      *prometheus.CounterVec
	unitsPerRoster     prometheus.Histogram

	// Data Quality Metrics - normalization and reference-data health
	unresolvedFactionTags     prometheus.Counter
	unresolvedUnitRenames     prometheus.Counter
	unitsWithoutKeywords      prometheus.Counter
	malformedReferenceEntries *prometheus.CounterVec
	predicateFailures         prometheus.Counter

	// Snapshot Metrics - reference snapshot load state
	snapshotLoadDuration prometheus.Histogram
	snapshotLoadedAtUnix prometheus.Gauge
	snapshotStratagems   prometheus.Gauge
	snapshotFactions     prometheus.Gauge
	snapshotUnitNames    prometheus.Gauge

	// Fetch Metrics - snapshot downloader behavior
	fetchDownloads    *prometheus.CounterVec
	fetchRetries      prometheus.Counter
	fetchRateLimited  prometheus.Counter
	fetchFileDuration prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Enhanced Error Metrics - detailed error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "muster",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Business Metrics - pipeline throughput and latency
	m.rostersEvaluated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rosters_evaluated_total",
		Help:      "Total number of rosters run through the eligibility pipeline",
	})

	m.evaluationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_duration_milliseconds",
		Help:      "Histogram of full parse+normalize+evaluate duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.stratagemsMatched = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stratagems_matched_per_roster",
		Help:      "Histogram of eligible stratagems returned per roster",
		Buckets:   []float64{1, 5, 10, 20, 40, 80, 160},
	})

	m.parseDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "parse_duration_milliseconds",
		Help:      "Roster document parse duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.parseFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "parse_failures_total",
			Help:      "Total number of roster parse failures by reason",
		},
		[]string{"reason"},
	)

	m.unitsPerRoster = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "units_per_roster",
		Help:      "Histogram of unit counts per parsed roster",
		Buckets:   []float64{1, 5, 10, 20, 40, 80},
	})

	// Data Quality Metrics - signals that reference data or exports drifted
	m.unresolvedFactionTags = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unresolved_faction_tags_total",
		Help:      "Total number of roster faction tags that failed alias and name resolution",
	})

	m.unresolvedUnitRenames = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unresolved_unit_renames_total",
		Help:      "Total number of units whose canonical name is missing from the reference vocabulary",
	})

	m.unitsWithoutKeywords = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "units_without_keywords_total",
		Help:      "Total number of parsed units carrying zero keywords (parse-quality signal)",
	})

	m.malformedReferenceEntries = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "malformed_reference_entries_total",
			Help:      "Total number of snapshot rows skipped during load by file",
		},
		[]string{"file"},
	)

	m.predicateFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "predicate_failures_total",
		Help:      "Total number of stratagem condition evaluations that errored (treated as non-match)",
	})

	// Snapshot Metrics - reference snapshot load state
	m.snapshotLoadDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_load_duration_milliseconds",
		Help:      "Reference snapshot load duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.snapshotLoadedAtUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_loaded_at_unix",
		Help:      "Unix timestamp of the last successful snapshot load",
	})

	m.snapshotStratagems = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_stratagems",
		Help:      "Number of stratagems in the loaded snapshot",
	})

	m.snapshotFactions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_factions",
		Help:      "Number of factions in the loaded snapshot",
	})

	m.snapshotUnitNames = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_unit_names",
		Help:      "Number of canonical unit names in the loaded snapshot",
	})

	// Fetch Metrics - snapshot downloader behavior
	m.fetchDownloads = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "fetch_downloads_total",
			Help:      "Total number of snapshot file downloads by file and outcome",
		},
		[]string{"file", "outcome"},
	)

	m.fetchRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_retries_total",
		Help:      "Total number of snapshot download retries",
	})

	m.fetchRateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_rate_limited_total",
		Help:      "Total number of rate-limit responses seen while fetching the snapshot",
	})

	m.fetchFileDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_file_duration_milliseconds",
		Help:      "Per-file snapshot download duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// HTTP Performance Metrics - user experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds (user experience)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Enhanced Error Metrics - detailed error tracking
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Total number of errors by type",
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of operations that resulted in errors",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordRosterEvaluated increments the rosters evaluated counter.
func RecordRosterEvaluated() {
	globalManager.rostersEvaluated.Inc()
}

// RecordEvaluationDuration records full pipeline duration in milliseconds.
func RecordEvaluationDuration(latencyMs float64) {
	globalManager.evaluationDuration.Observe(latencyMs)
}

// RecordStratagemsMatched records the number of eligible stratagems for one roster.
func RecordStratagemsMatched(count int) {
	globalManager.stratagemsMatched.Observe(float64(count))
}

// RecordParseDuration records roster parse duration in milliseconds.
func RecordParseDuration(latencyMs float64) {
	globalManager.parseDuration.Observe(latencyMs)
}

// RecordParseFailure increments the parse failure counter for a reason
// ("malformed" or "unsupported_schema").
func RecordParseFailure(reason string) {
	globalManager.parseFailures.WithLabelValues(reason).Inc()
}

// RecordUnitsPerRoster records the number of units in a parsed roster.
func RecordUnitsPerRoster(count int) {
	globalManager.unitsPerRoster.Observe(float64(count))
}

// Data Quality Metrics Functions.

// RecordUnresolvedFactionTag increments the unresolved faction tag counter.
func RecordUnresolvedFactionTag() {
	globalManager.unresolvedFactionTags.Inc()
}

// RecordUnresolvedUnitRename increments the unresolved unit rename counter.
func RecordUnresolvedUnitRename() {
	globalManager.unresolvedUnitRenames.Inc()
}

// RecordUnitWithoutKeywords increments the zero-keyword unit counter.
func RecordUnitWithoutKeywords() {
	globalManager.unitsWithoutKeywords.Inc()
}

// RecordMalformedReferenceEntry counts a skipped snapshot row for a file.
func RecordMalformedReferenceEntry(file string) {
	globalManager.malformedReferenceEntries.WithLabelValues(file).Inc()
}

// RecordPredicateFailure increments the failed condition evaluation counter.
func RecordPredicateFailure() {
	globalManager.predicateFailures.Inc()
}

// Snapshot Metrics Functions.

// RecordSnapshotLoadDuration records snapshot load duration in milliseconds.
func RecordSnapshotLoadDuration(latencyMs float64) {
	globalManager.snapshotLoadDuration.Observe(latencyMs)
}

// UpdateSnapshotLoadedAt sets the unix timestamp of the last snapshot load.
func UpdateSnapshotLoadedAt(unix int64) {
	globalManager.snapshotLoadedAtUnix.Set(float64(unix))
}

// UpdateSnapshotCounts sets the entity counts of the loaded snapshot.
func UpdateSnapshotCounts(stratagems, factions, unitNames int) {
	globalManager.snapshotStratagems.Set(float64(stratagems))
	globalManager.snapshotFactions.Set(float64(factions))
	globalManager.snapshotUnitNames.Set(float64(unitNames))
}

// Fetch Metrics Functions.

// RecordFetchDownload counts a snapshot file download attempt outcome
// ("ok", "failed", "skipped").
func RecordFetchDownload(file, outcome string) {
	globalManager.fetchDownloads.WithLabelValues(file, outcome).Inc()
}

// RecordFetchRetry increments the fetch retry counter.
func RecordFetchRetry() {
	globalManager.fetchRetries.Inc()
}

// RecordFetchRateLimited increments the rate-limit counter.
func RecordFetchRateLimited() {
	globalManager.fetchRateLimited.Inc()
}

// RecordFetchFileDuration records a per-file download duration in milliseconds.
func RecordFetchFileDuration(latencyMs float64) {
	globalManager.fetchFileDuration.Observe(latencyMs)
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Enhanced Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
