// Package mqtt publishes finished evaluation reports to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"github.com/framegrade/framegrade/internal/conf"
)

// Client defines the MQTT operations used for report publishing.
type Client interface {
	// Connect establishes the broker connection.
	Connect(ctx context.Context) error

	// Publish sends payload to topic and waits for delivery.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected returns true if the client is connected to the broker.
	IsConnected() bool

	// Disconnect closes the broker connection.
	Disconnect()
}

// Observer receives connection and publish measurements
type Observer interface {
	UpdateConnectionStatus(connected bool)
	RecordPublish(sizeBytes int, latency time.Duration, err error)
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // prefix for report topics
	Retain   bool
	QoS      byte

	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ClientID:          "framegrade",
		Topic:             "framegrade/reports",
		QoS:               1,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// ConfigFromSettings builds a Config from the output.mqtt settings
func ConfigFromSettings(s *conf.MQTTSettings) Config {
	cfg := DefaultConfig()
	cfg.Broker = s.Broker
	cfg.Username = s.Username
	cfg.Password = s.Password
	if s.ClientID != "" {
		cfg.ClientID = s.ClientID
	}
	if s.Topic != "" {
		cfg.Topic = s.Topic
	}
	if s.Timeout > 0 {
		cfg.ConnectTimeout = s.Timeout
		cfg.PublishTimeout = s.Timeout
	}
	return cfg
}
