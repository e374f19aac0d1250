// Package metrics provides Prometheus metrics for the drillsheet service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the drillsheet service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	composeBuckets   []float64
	sizeBuckets      []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pipeline Metrics - one practice plan in, one workbook out
	plansGenerated   *prometheus.CounterVec
	plansFailed      *prometheus.CounterVec
	pipelineDuration prometheus.Histogram

	// Plan Provider Metrics
	llmLatency *prometheus.HistogramVec
	llmErrors  *prometheus.CounterVec

	// Compositor Metrics
	stepComposeLatency prometheus.Histogram
	overlaysRendered   *prometheus.CounterVec
	movementsSkipped   prometheus.Counter

	// Render Cache Metrics
	renderCacheLookups *prometheus.CounterVec
	renderCacheEntries prometheus.Gauge

	// Workbook Metrics
	workbookBuildLatency prometheus.Histogram
	workbookSize         prometheus.Histogram

	// Job Queue Metrics
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge
	queueRejected     prometheus.Counter
	workerCount       prometheus.Gauge
	workerActiveCount prometheus.Gauge
	jobLatency        prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

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
	globalManager = newManager(WithPrometheusRegistry(customRegistry))
}

// newManager creates a new metrics manager with default configuration.
func newManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "drillsheet",
		subsystem:        "generator",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		composeBuckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250},
		sizeBuckets:      prometheus.ExponentialBuckets(16*1024, 2, 10),
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.plansGenerated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "plans_generated_total",
		Help:        "Total number of practice plans turned into workbooks, by source",
		ConstLabels: labels,
	}, []string{"source"})

	m.plansFailed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "plans_failed_total",
		Help:        "Total number of failed generations, by pipeline stage",
		ConstLabels: labels,
	}, []string{"stage"})

	m.pipelineDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "pipeline_duration_milliseconds",
		Help:        "End-to-end generation time in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.llmLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "llm_latency_milliseconds",
		Help:        "Plan provider call latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"provider"})

	m.llmErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "llm_errors_total",
		Help:        "Plan provider failures by provider and reason",
		ConstLabels: labels,
	}, []string{"provider", "reason"})

	m.stepComposeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "step_compose_latency_milliseconds",
		Help:        "Time to composite one step into a diagram bundle",
		Buckets:     m.composeBuckets,
		ConstLabels: labels,
	})

	m.overlaysRendered = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "overlays_rendered_total",
		Help:        "Overlay images rendered, by kind (player, ball, move)",
		ConstLabels: labels,
	}, []string{"kind"})

	m.movementsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "movements_skipped_total",
		Help:        "Player movements dropped because the origin player id did not resolve",
		ConstLabels: labels,
	})

	m.renderCacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "render_cache_lookups_total",
		Help:        "Render cache lookups by result (hit or miss)",
		ConstLabels: labels,
	}, []string{"result"})

	m.renderCacheEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "render_cache_entries",
		Help:        "Rendered artifacts currently cached",
		ConstLabels: labels,
	})

	m.workbookBuildLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "workbook_build_latency_milliseconds",
		Help:        "Time to assemble and serialize a workbook",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.workbookSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "workbook_size_bytes",
		Help:        "Size of generated workbooks in bytes",
		Buckets:     m.sizeBuckets,
		ConstLabels: labels,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_size",
		Help:        "Current number of queued generation jobs",
		ConstLabels: labels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_capacity",
		Help:        "Maximum number of queued generation jobs",
		ConstLabels: labels,
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_utilization_ratio",
		Help:        "Queue size divided by capacity",
		ConstLabels: labels,
	})

	m.queueRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_rejected_total",
		Help:        "Jobs rejected because the queue was full",
		ConstLabels: labels,
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_count",
		Help:        "Number of generation workers",
		ConstLabels: labels,
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_active_count",
		Help:        "Number of workers currently running a job",
		ConstLabels: labels,
	})

	m.jobLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "job_latency_milliseconds",
		Help:        "Time from dequeue to job completion in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "HTTP errors by endpoint, method and error type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// RecordPlanGenerated counts a finished workbook. source is "llm" or "plan".
func RecordPlanGenerated(source string) {
	globalManager.plansGenerated.WithLabelValues(source).Inc()
}

// RecordPlanFailed counts a failed generation at the given stage.
func RecordPlanFailed(stage string) {
	globalManager.plansFailed.WithLabelValues(stage).Inc()
}

// RecordPipelineDuration records end-to-end generation time.
func RecordPipelineDuration(durationMs float64) {
	globalManager.pipelineDuration.Observe(durationMs)
}

// RecordLLMLatency records a plan provider call.
func RecordLLMLatency(provider string, latencyMs float64) {
	globalManager.llmLatency.WithLabelValues(provider).Observe(latencyMs)
}

// RecordLLMError counts a plan provider failure.
func RecordLLMError(provider, reason string) {
	globalManager.llmErrors.WithLabelValues(provider, reason).Inc()
}

// RecordStepComposeLatency records the time spent compositing one step.
func RecordStepComposeLatency(latencyMs float64) {
	globalManager.stepComposeLatency.Observe(latencyMs)
}

// RecordOverlaysRendered adds n rendered overlays of the given kind.
func RecordOverlaysRendered(kind string, n int) {
	if n <= 0 {
		return
	}
	globalManager.overlaysRendered.WithLabelValues(kind).Add(float64(n))
}

// RecordMovementSkipped counts a player movement dropped for an unknown player.
func RecordMovementSkipped() {
	globalManager.movementsSkipped.Inc()
}

// RecordRenderCacheLookup counts a cache lookup; result is "hit" or "miss".
func RecordRenderCacheLookup(result string) {
	globalManager.renderCacheLookups.WithLabelValues(result).Inc()
}

// UpdateRenderCacheEntries sets the number of cached artifacts.
func UpdateRenderCacheEntries(n int64) {
	globalManager.renderCacheEntries.Set(float64(n))
}

// RecordWorkbookBuild records workbook assembly latency and output size.
func RecordWorkbookBuild(latencyMs float64, sizeBytes int) {
	globalManager.workbookBuildLatency.Observe(latencyMs)
	globalManager.workbookSize.Observe(float64(sizeBytes))
}

// UpdateQueueSize updates the queue size gauge and derived utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity updates the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueRejected counts a job rejected for backpressure.
func RecordQueueRejected() {
	globalManager.queueRejected.Inc()
}

// UpdateWorkerCount updates the worker count gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// AddActiveWorkers moves the active worker gauge by delta.
func AddActiveWorkers(delta int) {
	globalManager.workerActiveCount.Add(float64(delta))
}

// RecordJobLatency records how long a worker spent on one job.
func RecordJobLatency(latencyMs float64) {
	globalManager.jobLatency.Observe(latencyMs)
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an HTTP error for an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage updates the system memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
