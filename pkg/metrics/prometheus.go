// Package metrics provides Prometheus metrics for trialmatch batch runs.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for trialmatch.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	scoreBuckets     []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Matching Metrics
	pairsScored     prometheus.Counter
	matchesEmitted  prometheus.Counter
	matchScore      prometheus.Histogram
	patientLatency  prometheus.Histogram
	batchDuration   prometheus.Histogram
	patientsMatched prometheus.Counter

	// Operational Metrics
	workerCount    prometheus.Gauge
	queueCapacity  prometheus.Gauge
	queueEnqueued  prometheus.Counter
	queueDequeued  prometheus.Counter
	queueEnqErrors prometheus.Counter

	// Input Metrics
	recordsLoaded  *prometheus.GaugeVec
	recordsDropped *prometheus.CounterVec

	// Evaluation Metrics
	evaluationRuns   prometheus.Counter
	evaluationResult *prometheus.GaugeVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "trialmatch",
		subsystem:        "batch",
		histogramBuckets: prometheus.DefBuckets,
		scoreBuckets:     prometheus.LinearBuckets(10, 10, 10), //nolint:mnd // 10..100 in steps of 10
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.pairsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "pairs_scored_total",
		Help:        "Total number of (patient, trial) pairs scored",
		ConstLabels: labels,
	})

	m.matchesEmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "matches_emitted_total",
		Help:        "Total number of match results that cleared the minimum score and top-K cut",
		ConstLabels: labels,
	})

	m.matchScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "match_score",
		Help:        "Distribution of emitted match scores",
		Buckets:     m.scoreBuckets,
		ConstLabels: labels,
	})

	m.patientLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "patient_match_latency_milliseconds",
		Help:        "Time spent ranking all trials for one patient",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.batchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_duration_milliseconds",
		Help:        "Wall-clock duration of a full batch match",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.patientsMatched = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "patients_matched_total",
		Help:        "Total number of patients ranked",
		ConstLabels: labels,
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_count",
		Help:        "Number of workers used by the last batch",
		ConstLabels: labels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_capacity",
		Help:        "Capacity of the patient job queue",
		ConstLabels: labels,
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_enqueue_total",
		Help:        "Total number of patient jobs enqueued",
		ConstLabels: labels,
	})

	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_dequeue_total",
		Help:        "Total number of patient jobs dequeued",
		ConstLabels: labels,
	})

	m.queueEnqErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_enqueue_errors_total",
		Help:        "Total number of rejected enqueue attempts",
		ConstLabels: labels,
	})

	m.recordsLoaded = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "records_loaded",
			Help:        "Number of records accepted from the last load, by kind",
			ConstLabels: labels,
		},
		[]string{"kind"},
	)

	m.recordsDropped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "records_dropped_total",
			Help:        "Total number of malformed or duplicate records dropped",
			ConstLabels: labels,
		},
		[]string{"kind", "reason"},
	)

	m.evaluationRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "evaluation_runs_total",
		Help:        "Total number of evaluation runs",
		ConstLabels: labels,
	})

	m.evaluationResult = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "evaluation_result_ratio",
			Help:        "Headline ratios of the last evaluation run",
			ConstLabels: labels,
		},
		[]string{"metric"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)
}

// RecordPairsScored adds n scored pairs.
func RecordPairsScored(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.pairsScored.Add(float64(n))
}

// RecordMatch records one emitted match and its score.
func RecordMatch(score int) {
	if !globalManager.enabled {
		return
	}
	globalManager.matchesEmitted.Inc()
	globalManager.matchScore.Observe(float64(score))
}

// RecordPatientLatency records the time spent ranking one patient.
func RecordPatientLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.patientsMatched.Inc()
	globalManager.patientLatency.Observe(latencyMs)
}

// RecordBatchDuration records a full batch duration.
func RecordBatchDuration(durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.batchDuration.Observe(durationMs)
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerCount.Set(float64(count))
}

// UpdateQueueCapacity sets the job queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqErrors.Inc()
}

// UpdateRecordsLoaded sets the number of accepted records of the given kind.
func UpdateRecordsLoaded(kind string, count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.recordsLoaded.WithLabelValues(kind).Set(float64(count))
}

// RecordRecordDropped increments the dropped records counter.
func RecordRecordDropped(kind, reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.recordsDropped.WithLabelValues(kind, reason).Inc()
}

// RecordEvaluationRun increments the evaluation runs counter.
func RecordEvaluationRun() {
	if !globalManager.enabled {
		return
	}
	globalManager.evaluationRuns.Inc()
}

// UpdateEvaluationResult sets a headline evaluation ratio such as precision or recall.
func UpdateEvaluationResult(metric string, value float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.evaluationResult.WithLabelValues(metric).Set(value)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// SetEnabled toggles recording on the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the current state of the registry to path in the
// node-exporter textfile format.
func WriteTextfile(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}
