// Package metrics provides Prometheus collectors for framegrade components.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EvaluationMetrics records video evaluation activity. It satisfies the
// evaluation package's Recorder interface.
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	framesClassified   prometheus.Counter
	batchesTotal       *prometheus.CounterVec
	classifyDuration   prometheus.Histogram
	classifyRetries    prometheus.Counter
	evaluationDuration prometheus.Histogram
	activeEvaluations  prometheus.Gauge
}

// NewEvaluationMetrics creates the collector and registers it with registry.
func NewEvaluationMetrics(registry prometheus.Registerer) (*EvaluationMetrics, error) {
	m := &EvaluationMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register evaluation metrics: %w", err)
	}
	return m, nil
}

func (m *EvaluationMetrics) initMetrics() {
	m.evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "framegrade_evaluations_total",
		Help: "Total number of finished video evaluations by status",
	}, []string{"status"})

	m.framesClassified = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "framegrade_frames_classified_total",
		Help: "Total number of frames classified",
	})

	m.batchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "framegrade_batches_total",
		Help: "Total number of batches classified by kind (full or partial)",
	}, []string{"kind"})

	m.classifyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "framegrade_classify_duration_seconds",
		Help:    "Time spent classifying one batch",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
	})

	m.classifyRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "framegrade_classify_retries_total",
		Help: "Total number of retried classifier calls",
	})

	m.evaluationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "framegrade_evaluation_duration_seconds",
		Help:    "Wall time of one video evaluation",
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount15),
	})

	m.activeEvaluations = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "framegrade_active_evaluations",
		Help: "Number of evaluations currently running",
	})
}

// EvaluationStarted marks an evaluation as running
func (m *EvaluationMetrics) EvaluationStarted() {
	m.activeEvaluations.Inc()
}

// EvaluationFinished records the outcome and duration of an evaluation
func (m *EvaluationMetrics) EvaluationFinished(status string, elapsed time.Duration) {
	m.activeEvaluations.Dec()
	m.evaluationsTotal.WithLabelValues(status).Inc()
	m.evaluationDuration.Observe(elapsed.Seconds())
}

// BatchClassified records one classified batch
func (m *EvaluationMetrics) BatchClassified(frames int, full bool, elapsed time.Duration) {
	kind := LabelPartial
	if full {
		kind = LabelFull
	}
	m.batchesTotal.WithLabelValues(kind).Inc()
	m.framesClassified.Add(float64(frames))
	m.classifyDuration.Observe(elapsed.Seconds())
}

// RecordRetry counts one retried classifier call. The signature matches
// classifier.RetryFunc.
func (m *EvaluationMetrics) RecordRetry(int, time.Duration, error) {
	m.classifyRetries.Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *EvaluationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.evaluationsTotal.Describe(ch)
	m.framesClassified.Describe(ch)
	m.batchesTotal.Describe(ch)
	m.classifyDuration.Describe(ch)
	m.classifyRetries.Describe(ch)
	m.evaluationDuration.Describe(ch)
	m.activeEvaluations.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *EvaluationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.evaluationsTotal.Collect(ch)
	m.framesClassified.Collect(ch)
	m.batchesTotal.Collect(ch)
	m.classifyDuration.Collect(ch)
	m.classifyRetries.Collect(ch)
	m.evaluationDuration.Collect(ch)
	m.activeEvaluations.Collect(ch)
}
