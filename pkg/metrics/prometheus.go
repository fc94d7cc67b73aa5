// Package metrics provides Prometheus metrics for the territory engine.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Histogram buckets in milliseconds. Batch steps take far longer than a
// request, so they get their own scale.
var (
	defaultBuckets = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}
	batchBuckets   = []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Transfer engine
	contestsApplied    prometheus.Counter
	contestsSkipped    *prometheus.CounterVec
	transfers          prometheus.Counter
	regionsTransferred prometheus.Counter
	weeksAdvanced      prometheus.Counter
	weeksMissing       *prometheus.CounterVec
	weekAdvanceLatency prometheus.Histogram

	// Baseline and derived outputs
	baselineBuilds   prometheus.Counter
	baselineLatency  prometheus.Histogram
	regionsTracked   prometheus.Gauge
	teamsWithRegions prometheus.Gauge
	latestWeekIndex  prometheus.Gauge

	// Persistence
	commits        *prometheus.CounterVec
	storeLatency   *prometheus.HistogramVec
	storeErrors    *prometheus.CounterVec
	componentError *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// customRegistry keeps Go runtime collectors out of the exposition.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide metrics registry

var globalManager atomic.Pointer[Manager] //nolint:gochecknoglobals // process-wide metrics manager

func init() { //nolint:gochecknoinits // metrics must exist before any package records
	globalManager.Store(NewManager(WithPrometheusRegistry(customRegistry)))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "territory",
		subsystem:        "engine",
		histogramBuckets: defaultBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// Use makes m the target of the package-level recording functions and
// returns the previous manager.
func Use(m *Manager) (*Manager, error) {
	if m == nil {
		return nil, ErrNoManager
	}
	return globalManager.Swap(m), nil
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.contestsApplied = m.counter("contests_applied_total", "Contest results accepted by the transfer engine")
	m.contestsSkipped = m.counterVec("contests_skipped_total", "Contest results skipped, by reason", "reason")
	m.transfers = m.counter("transfers_total", "Ledger entries written")
	m.regionsTransferred = m.counter("regions_transferred_total", "Regions moved between teams")
	m.weeksAdvanced = m.counter("weeks_advanced_total", "Weeks successfully advanced")
	m.weeksMissing = m.counterVec("weeks_missing_total", "Weeks whose contest feed was absent, by policy", "policy")
	m.weekAdvanceLatency = m.histogram("week_advance_duration_milliseconds", "Time to advance and commit one week", batchBuckets)

	m.baselineBuilds = m.counter("baseline_builds_total", "Baseline snapshots built")
	m.baselineLatency = m.histogram("baseline_duration_milliseconds", "Time to assign and commit a baseline", batchBuckets)
	m.regionsTracked = m.gauge("regions_tracked", "Regions in the latest snapshot")
	m.teamsWithRegions = m.gauge("teams_with_regions", "Teams owning at least one region in the latest snapshot")
	m.latestWeekIndex = m.gauge("latest_week_index", "Week index of the latest committed snapshot")

	m.commits = m.counterVec("store_commits_total", "Store transactions committed, by kind", "kind")
	m.storeLatency = m.histogramVec("store_operation_duration_milliseconds", "Store operation latency", m.histogramBuckets, "operation")
	m.storeErrors = m.counterVec("store_errors_total", "Store operations that failed", "operation")
	m.componentError = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		m.histogramBuckets, "endpoint", "method", "status_code")
}

func current() *Manager { return globalManager.Load() }

// RecordContestApplied increments the accepted contest counter.
func RecordContestApplied(n int) {
	current().contestsApplied.Add(float64(n))
}

// RecordContestSkipped counts n skipped contests for reason.
func RecordContestSkipped(reason string, n int) {
	current().contestsSkipped.WithLabelValues(reason).Add(float64(n))
}

// RecordTransfers counts ledger entries and the regions they moved.
func RecordTransfers(records, regions int) {
	m := current()
	m.transfers.Add(float64(records))
	m.regionsTransferred.Add(float64(regions))
}

// RecordWeekAdvanced counts a committed week and its duration.
func RecordWeekAdvanced(latencyMs float64) {
	m := current()
	m.weeksAdvanced.Inc()
	m.weekAdvanceLatency.Observe(latencyMs)
}

// RecordWeekMissing counts a week with no contest feed.
func RecordWeekMissing(policy string) {
	current().weeksMissing.WithLabelValues(policy).Inc()
}

// RecordBaselineBuilt counts a baseline build and its duration.
func RecordBaselineBuilt(latencyMs float64) {
	m := current()
	m.baselineBuilds.Inc()
	m.baselineLatency.Observe(latencyMs)
}

// UpdateSnapshotGauges publishes the shape of the latest snapshot.
func UpdateSnapshotGauges(weekIndex, regions, teamsWithRegions int) {
	m := current()
	m.latestWeekIndex.Set(float64(weekIndex))
	m.regionsTracked.Set(float64(regions))
	m.teamsWithRegions.Set(float64(teamsWithRegions))
}

// RecordCommit counts a committed store transaction of kind.
func RecordCommit(kind string) {
	current().commits.WithLabelValues(kind).Inc()
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	current().storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(operation string) {
	current().storeErrors.WithLabelValues(operation).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	current().componentError.WithLabelValues(component, errorType).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	current().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	current().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
