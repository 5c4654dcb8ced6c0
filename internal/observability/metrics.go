// Package observability exposes framegrade's Prometheus metrics.
// Error telemetry to Sentry lives in the telemetry package.
package observability

import (
	"fmt"
	stdlog "log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/framegrade/framegrade/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry   *prometheus.Registry
	Evaluation *metrics.EvaluationMetrics
	Publish    *metrics.PublishMetrics
}

// NewMetrics creates a private registry with all collectors registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	evaluationMetrics, err := metrics.NewEvaluationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation metrics: %w", err)
	}

	publishMetrics, err := metrics.NewPublishMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create publish metrics: %w", err)
	}

	return &Metrics{
		registry:   registry,
		Evaluation: evaluationMetrics,
		Publish:    publishMetrics,
	}, nil
}

// Registry returns the registry backing the metrics
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      stdlog.New(os.Stderr, "metrics handler: ", stdlog.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
}
