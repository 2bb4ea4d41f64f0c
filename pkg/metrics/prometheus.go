// Package metrics provides Prometheus metrics for the podium odds service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Distribution builds
	distributionBuilds       *prometheus.CounterVec
	distributionBuildLatency *prometheus.HistogramVec
	distributionSupport      prometheus.Gauge
	placementVectors         prometheus.Counter
	buildsShared             prometheus.Counter

	// Odds computations
	oddsRuns        prometheus.Counter
	oddsRunLatency  prometheus.Histogram
	oddsTeams       prometheus.Gauge
	oddsColumnDrift *prometheus.GaugeVec

	// Distribution cache
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheItems  prometheus.Gauge

	// Worker pool and task queue
	workerCount        prometheus.Gauge
	workerTasks        prometheus.Counter
	workerTaskErrors   prometheus.Counter
	workerTaskLatency  prometheus.Histogram
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "podium",
		subsystem:        "odds",
		histogramBuckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000, 30000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.distributionBuilds = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "distribution_builds_total",
		Help:      "Score distributions built, by strategy",
	}, []string{"strategy"})

	m.distributionBuildLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "distribution_build_latency_milliseconds",
		Help:      "Time spent building a score distribution",
		Buckets:   m.histogramBuckets,
	}, []string{"strategy"})

	m.distributionSupport = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "distribution_support_size",
		Help:      "Number of distinct scores in the last built distribution",
	})

	m.placementVectors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "placement_vectors_total",
		Help:      "Placement vectors emitted by the enumeration strategy",
	})

	m.buildsShared = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "distribution_builds_shared_total",
		Help:      "Callers served by another caller's in-flight build",
	})

	m.oddsRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Odds computations completed",
	})

	m.oddsRunLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_latency_milliseconds",
		Help:      "Time spent computing odds for a roster",
		Buckets:   m.histogramBuckets,
	})

	m.oddsTeams = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "teams",
		Help:      "Roster size of the last odds computation",
	})

	m.oddsColumnDrift = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "column_sum_before_normalization",
		Help:      "Raw per-rank column sum before cross-team normalization",
	}, []string{"rank"})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "distribution_cache_hits_total",
		Help:      "Distribution cache hits",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "distribution_cache_misses_total",
		Help:      "Distribution cache misses",
	})

	m.cacheItems = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "distribution_cache_items",
		Help:      "Distributions currently cached",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Workers in the odds pool",
	})

	m.workerTasks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_tasks_total",
		Help:      "Per-team tasks processed by the pool",
	})

	m.workerTaskErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_task_errors_total",
		Help:      "Per-team tasks that returned an error",
	})

	m.workerTaskLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_task_latency_milliseconds",
		Help:      "Time spent on a single per-team task",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Tasks waiting in the queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Capacity of the last created task queue",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Tasks rejected by a full or closed queue",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and kind",
	}, []string{"component", "kind"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Heap bytes allocated",
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
		Help:      "Average GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordDistributionBuild records a finished build.
func RecordDistributionBuild(strategy string, latencyMs float64, support int) {
	globalManager.distributionBuilds.WithLabelValues(strategy).Inc()
	globalManager.distributionBuildLatency.WithLabelValues(strategy).Observe(latencyMs)
	globalManager.distributionSupport.Set(float64(support))
}

// AddPlacementVectors counts enumerated placement vectors.
func AddPlacementVectors(n int) {
	globalManager.placementVectors.Add(float64(n))
}

// RecordSharedBuild counts a caller that joined an in-flight build.
func RecordSharedBuild() {
	globalManager.buildsShared.Inc()
}

// RecordOddsRun records a finished odds computation.
func RecordOddsRun(teams int, latencyMs float64) {
	globalManager.oddsRuns.Inc()
	globalManager.oddsRunLatency.Observe(latencyMs)
	globalManager.oddsTeams.Set(float64(teams))
}

// UpdateColumnSum records a raw column sum (first, second or third).
func UpdateColumnSum(rank string, sum float64) {
	globalManager.oddsColumnDrift.WithLabelValues(rank).Set(sum)
}

// RecordCacheHit increments the distribution cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the distribution cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// UpdateCacheItems sets the number of cached distributions.
func UpdateCacheItems(n int) {
	globalManager.cacheItems.Set(float64(n))
}

// UpdateWorkerCount sets the pool size.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerTask records one processed task.
func RecordWorkerTask(latencyMs float64, failed bool) {
	globalManager.workerTasks.Inc()
	globalManager.workerTaskLatency.Observe(latencyMs)
	if failed {
		globalManager.workerTaskErrors.Inc()
	}
}

// UpdateQueueSize sets the current queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError increments the rejected enqueue counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordError records an error for a component.
func RecordError(component, kind string) {
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
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
