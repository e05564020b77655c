package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsCollector using Prometheus
type Collector struct {
	runsSubmitted *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   prometheus.Histogram

	tasksExecuted *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	fallbacks *prometheus.CounterVec

	backendCalls    *prometheus.CounterVec
	backendFailures *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	backendTokens   *prometheus.CounterVec
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	return &Collector{
		runsSubmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docforge_runs_submitted_total",
				Help: "Total number of runs submitted",
			},
			[]string{"status"},
		),
		runsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docforge_runs_completed_total",
				Help: "Total number of runs completed",
			},
			[]string{"status"},
		),
		runDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docforge_run_duration_seconds",
				Help:    "Run duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		tasksExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docforge_tasks_executed_total",
				Help: "Total number of generation tasks by terminal status",
			},
			[]string{"status"},
		),
		taskDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docforge_task_duration_seconds",
				Help:    "Task execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		cacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "docforge_cache_hits_total",
				Help: "Total number of result cache hits",
			},
		),
		cacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "docforge_cache_misses_total",
				Help: "Total number of result cache misses",
			},
		),
		fallbacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docforge_fallbacks_total",
				Help: "Total number of fallback strategy applications",
			},
			[]string{"strategy", "success"},
		),
		backendCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docforge_backend_calls_total",
				Help: "Total number of generation backend calls",
			},
			[]string{"backend"},
		),
		backendFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docforge_backend_failures_total",
				Help: "Total number of failed generation backend calls",
			},
			[]string{"backend"},
		),
		backendLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docforge_backend_latency_seconds",
				Help:    "Generation backend call latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 60, 120},
			},
			[]string{"backend"},
		),
		backendTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docforge_backend_tokens_total",
				Help: "Total number of tokens used by generation backends",
			},
			[]string{"backend"},
		),
	}
}

// RecordRunSubmitted records a run submission
func (c *Collector) RecordRunSubmitted(status string) {
	c.runsSubmitted.WithLabelValues(status).Inc()
}

// RecordRunCompleted records a run completion and its duration
func (c *Collector) RecordRunCompleted(status string, durationMs int64) {
	c.runsCompleted.WithLabelValues(status).Inc()
	c.runDuration.Observe(float64(durationMs) / 1000)
}

// RecordTaskExecuted records a task reaching a terminal status
func (c *Collector) RecordTaskExecuted(status string, durationMs int64) {
	c.tasksExecuted.WithLabelValues(status).Inc()
	c.taskDuration.WithLabelValues(status).Observe(float64(durationMs) / 1000)
}

// RecordCacheHit records a result cache hit
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

// RecordCacheMiss records a result cache miss
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}

// RecordFallback records a fallback strategy application
func (c *Collector) RecordFallback(strategy string, success bool) {
	label := "false"
	if success {
		label = "true"
	}
	c.fallbacks.WithLabelValues(strategy, label).Inc()
}

// RecordBackendCall records a generation backend call
func (c *Collector) RecordBackendCall(backendID string, durationMs int64, failed bool) {
	c.backendCalls.WithLabelValues(backendID).Inc()
	c.backendLatency.WithLabelValues(backendID).Observe(float64(durationMs) / 1000)
	if failed {
		c.backendFailures.WithLabelValues(backendID).Inc()
	}
}

// RecordBackendTokens records tokens consumed by a backend
func (c *Collector) RecordBackendTokens(backendID string, tokens int) {
	c.backendTokens.WithLabelValues(backendID).Add(float64(tokens))
}
