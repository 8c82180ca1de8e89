package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector emitted by the grouping service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Runs
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	rowsEmitted  *prometheus.CounterVec
	jobDuplicate prometheus.Counter

	// Artifacts
	artifactsWritten *prometheus.CounterVec
	artifactBytes    *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerActiveCount       prometheus.Gauge
	workerBusyCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// Errors
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "q2fmt",
		subsystem:        "engraftment",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.runsTotal = auto.NewCounterVec(
		m.counterOpts("runs_total", "Grouping runs by measure mode and outcome"),
		[]string{"mode", "outcome"},
	)
	m.runDuration = auto.NewHistogramVec(
		m.histogramOpts("run_duration_seconds", "Wall time of a grouping run", m.histogramBuckets),
		[]string{"mode"},
	)
	m.rowsEmitted = auto.NewCounterVec(
		m.counterOpts("rows_emitted_total", "Rows written to grouped distribution tables"),
		[]string{"kind"},
	)
	m.jobDuplicate = auto.NewCounter(
		m.counterOpts("jobs_duplicate_total", "Batch jobs skipped because their id was already claimed"),
	)

	m.artifactsWritten = auto.NewCounterVec(
		m.counterOpts("artifacts_written_total", "Artifacts saved per blob driver"),
		[]string{"driver"},
	)
	m.artifactBytes = auto.NewCounterVec(
		m.counterOpts("artifact_bytes_total", "Bytes of artifact data saved per blob driver"),
		[]string{"driver"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Jobs currently waiting in the batch queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Configured batch queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Jobs accepted by the batch queue"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Jobs handed to workers"))
	m.queueEnqueueErrors = auto.NewCounterVec(
		m.counterOpts("queue_enqueue_errors_total", "Jobs the batch queue refused"),
		[]string{"reason"},
	)

	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers started in the pool"))
	m.workerBusyCount = auto.NewGauge(m.gaugeOpts("worker_busy_count", "Workers currently running a job"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts(
		"worker_processing_latency_milliseconds",
		"Time a worker spends on one job",
		[]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	))

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_total", "Errors by component and kind"),
		[]string{"component", "kind"},
	)
}

// RecordRun counts one finished run.
func RecordRun(mode, outcome string) {
	globalManager.runsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordRunDuration observes a run's wall time in seconds.
func RecordRunDuration(mode string, seconds float64) {
	globalManager.runDuration.WithLabelValues(mode).Observe(seconds)
}

// RecordRowsEmitted adds n rows for a table kind (ordinal or nominal).
func RecordRowsEmitted(kind string, n int) {
	globalManager.rowsEmitted.WithLabelValues(strings.ToLower(kind)).Add(float64(n))
}

// RecordJobDuplicate counts a batch job dropped as a duplicate.
func RecordJobDuplicate() {
	globalManager.jobDuplicate.Inc()
}

// RecordArtifactWritten counts a saved artifact and its data size.
func RecordArtifactWritten(driver string, bytes int) {
	globalManager.artifactsWritten.WithLabelValues(driver).Inc()
	globalManager.artifactBytes.WithLabelValues(driver).Add(float64(bytes))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a job handed out.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a refused job.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerActiveCount sets the number of started workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// AddWorkerBusy moves the busy gauge by delta.
func AddWorkerBusy(delta int) {
	globalManager.workerBusyCount.Add(float64(delta))
}

// RecordWorkerProcessingLatency records per-job latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordErrorByComponent counts an error.
func RecordErrorByComponent(component, kind string) {
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile dumps the registry in the text exposition format for the
// node-exporter textfile collector. The file is replaced atomically.
func WriteTextfile(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrNoTextfile
	}
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}
