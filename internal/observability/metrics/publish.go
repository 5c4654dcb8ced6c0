package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PublishMetrics covers everything that leaves the process after an
// evaluation: MQTT messages and report store writes.
type PublishMetrics struct {
	mqttConnected   prometheus.Gauge
	mqttDelivered   prometheus.Counter
	mqttErrors      prometheus.Counter
	mqttMessageSize prometheus.Histogram
	mqttLatency     prometheus.Histogram
	storeOperations *prometheus.CounterVec
}

// NewPublishMetrics creates the collector and registers it with registry.
func NewPublishMetrics(registry prometheus.Registerer) (*PublishMetrics, error) {
	m := &PublishMetrics{
		mqttConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "framegrade_mqtt_connection_status",
			Help: "Current MQTT connection status (1 for connected, 0 for disconnected)",
		}),
		mqttDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framegrade_mqtt_messages_delivered_total",
			Help: "Total number of reports delivered over MQTT",
		}),
		mqttErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framegrade_mqtt_errors_total",
			Help: "Total number of MQTT errors encountered",
		}),
		mqttMessageSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "framegrade_mqtt_message_size_bytes",
			Help:    "Size of MQTT messages in bytes",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}),
		mqttLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "framegrade_mqtt_publish_latency_seconds",
			Help:    "Latency of MQTT publish operations in seconds",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
		storeOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "framegrade_store_operations_total",
			Help: "Total number of report store operations by operation and status",
		}, []string{"operation", "status"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register publish metrics: %w", err)
	}
	return m, nil
}

// UpdateConnectionStatus sets the MQTT connection gauge
func (m *PublishMetrics) UpdateConnectionStatus(connected bool) {
	if connected {
		m.mqttConnected.Set(1)
	} else {
		m.mqttConnected.Set(0)
	}
}

// RecordPublish records one MQTT publish attempt
func (m *PublishMetrics) RecordPublish(sizeBytes int, latency time.Duration, err error) {
	if err != nil {
		m.mqttErrors.Inc()
		return
	}
	m.mqttDelivered.Inc()
	m.mqttMessageSize.Observe(float64(sizeBytes))
	m.mqttLatency.Observe(latency.Seconds())
}

// RecordStoreOperation counts a report store operation
func (m *PublishMetrics) RecordStoreOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.storeOperations.WithLabelValues(operation, status).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *PublishMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.mqttConnected.Desc()
	ch <- m.mqttDelivered.Desc()
	ch <- m.mqttErrors.Desc()
	ch <- m.mqttMessageSize.Desc()
	ch <- m.mqttLatency.Desc()
	m.storeOperations.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *PublishMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.mqttConnected
	ch <- m.mqttDelivered
	ch <- m.mqttErrors
	ch <- m.mqttMessageSize
	ch <- m.mqttLatency
	m.storeOperations.Collect(ch)
}
