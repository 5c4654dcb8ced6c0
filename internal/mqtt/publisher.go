package mqtt

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/evaluation"
	"github.com/framegrade/framegrade/internal/logger"
)

// ReportPublisher sends evaluation reports as JSON, one message per video
type ReportPublisher struct {
	client Client
	prefix string
}

// NewReportPublisher returns a publisher writing beneath topic prefix
func NewReportPublisher(client Client, prefix string) *ReportPublisher {
	return &ReportPublisher{client: client, prefix: strings.TrimRight(prefix, "/")}
}

// reportMessage is the published payload
type reportMessage struct {
	*evaluation.Report
	Dominant string             `json:"dominant"`
	Shares   map[string]float64 `json:"shares"`
}

// Publish connects if needed and publishes r to its topic
func (p *ReportPublisher) Publish(ctx context.Context, r *evaluation.Report) error {
	if !p.client.IsConnected() {
		if err := p.client.Connect(ctx); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(reportMessage{
		Report:   r,
		Dominant: r.Dominant(),
		Shares:   r.Distribution.Map(),
	})
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Build()
	}

	topic := Topic(p.prefix, r.Source)
	if err := p.client.Publish(ctx, topic, payload); err != nil {
		return err
	}
	GetLogger().Debug("report published",
		logger.String("topic", topic),
		logger.Int("bytes", len(payload)))
	return nil
}

// Topic returns the topic for source under prefix. The file extension is
// dropped and MQTT wildcard or separator characters become underscores.
func Topic(prefix, source string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch r {
		case '+', '#', '/', ' ', 0:
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." {
		base = "unknown"
	}
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return base
	}
	return prefix + "/" + base
}
