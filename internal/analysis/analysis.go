// Package analysis assembles the evaluation stack from settings and runs
// the file, directory, probe and history commands.
package analysis

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/framegrade/framegrade/internal/classifier"
	"github.com/framegrade/framegrade/internal/conf"
	"github.com/framegrade/framegrade/internal/datastore"
	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/evaluation"
	"github.com/framegrade/framegrade/internal/logger"
	"github.com/framegrade/framegrade/internal/mqtt"
	"github.com/framegrade/framegrade/internal/observability"
	"github.com/framegrade/framegrade/internal/preprocess"
	"github.com/framegrade/framegrade/internal/video"
)

const probeTimeout = 30 * time.Second

// Publisher sends finished reports to a remote consumer
type Publisher interface {
	Publish(ctx context.Context, r *evaluation.Report) error
}

// Stack is a fully wired evaluation pipeline plus its report sinks
type Stack struct {
	settings  *conf.Settings
	pipeline  *evaluation.Pipeline
	runner    *evaluation.Runner
	oracle    classifier.Oracle
	opener    video.Opener
	metrics   *observability.Metrics
	store     datastore.Interface
	publisher Publisher
	mqtt      mqtt.Client

	closers []func() error
	quit    chan struct{}
	wg      sync.WaitGroup
}

// Option overrides a part of the stack normally built from settings
type Option func(*Stack)

// WithOracle uses o instead of loading the TFLite model
func WithOracle(o classifier.Oracle) Option {
	return func(s *Stack) { s.oracle = o }
}

// WithOpener uses o instead of the ffmpeg and image directory openers
func WithOpener(o video.Opener) Option {
	return func(s *Stack) { s.opener = o }
}

// WithPublisher sends reports to p instead of an MQTT broker
func WithPublisher(p Publisher) Option {
	return func(s *Stack) { s.publisher = p }
}

// NewStack builds the stack described by settings. Close must be called
// to release the model, store and broker connection.
func NewStack(settings *conf.Settings, opts ...Option) (*Stack, error) {
	s := &Stack{settings: settings, quit: make(chan struct{})}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setup(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stack) setup() error {
	settings := s.settings
	log := GetLogger()

	m, err := observability.NewMetrics()
	if err != nil {
		return errors.New(err).
			Component("analysis").
			Category(errors.CategoryConfiguration).
			Build()
	}
	s.metrics = m

	if settings.Telemetry.Enabled {
		endpoint := observability.NewEndpoint(settings.Telemetry.Listen, m)
		if err := endpoint.Start(&s.wg, s.quit); err != nil {
			return err
		}
		log.Info("metrics endpoint listening", logger.String("address", endpoint.Addr()))
	}

	if s.oracle == nil {
		tfl, err := classifier.NewTFLiteOracle(classifier.TFLiteConfig{
			ModelPath:  settings.Model.Path,
			Classes:    len(settings.Model.Classes),
			Height:     settings.Model.InputHeight,
			Width:      settings.Model.InputWidth,
			Channels:   settings.Model.Channels,
			BatchSize:  settings.Evaluation.BatchSize,
			Threads:    settings.Model.Threads,
			UseXNNPACK: settings.Model.UseXNNPACK,
			Softmax:    settings.Model.Softmax,
		})
		if err != nil {
			return err
		}
		s.closers = append(s.closers, tfl.Close)
		s.oracle = tfl
	}

	retry := settings.Evaluation.Retry
	oracle := classifier.NewRetrying(s.oracle, classifier.RetryConfig{
		MaxRetries:   retry.MaxRetries,
		InitialDelay: retry.InitialDelay,
		MaxDelay:     retry.MaxDelay,
		Multiplier:   retry.Multiplier,
	},
		classifier.WithCallTimeout(settings.Evaluation.CallTimeout),
		classifier.WithOnRetry(m.Evaluation.RecordRetry),
	)

	transform, err := preprocess.NewResizer(preprocess.Config{
		Width:    settings.Model.InputWidth,
		Height:   settings.Model.InputHeight,
		Channels: settings.Model.Channels,
		Mean:     toFloat32(settings.Model.Mean),
		Std:      toFloat32(settings.Model.Std),
	})
	if err != nil {
		return err
	}

	if s.opener == nil {
		s.opener = newRoutingOpener(settings)
	}

	s.pipeline, err = evaluation.New(s.opener, transform, oracle, evaluation.Config{
		Classes:   settings.Model.Classes,
		BatchSize: settings.Evaluation.BatchSize,
		Prefetch:  settings.Evaluation.Prefetch,
	},
		evaluation.WithRecorder(m.Evaluation),
	)
	if err != nil {
		return err
	}
	s.runner = evaluation.NewRunner(s.pipeline, settings.Evaluation.Workers)

	if settings.Output.SQLite.Enabled {
		store := datastore.NewSQLiteStore(settings.Output.SQLite.Path, m.Publish)
		if err := store.Open(); err != nil {
			return err
		}
		s.store = store
		s.closers = append(s.closers, store.Close)
	}

	if s.publisher == nil && settings.Output.MQTT.Enabled {
		client, err := mqtt.NewClient(mqtt.ConfigFromSettings(&settings.Output.MQTT), m.Publish)
		if err != nil {
			return err
		}
		s.mqtt = client
		s.publisher = mqtt.NewReportPublisher(client, settings.Output.MQTT.Topic)
	}

	return nil
}

// newRoutingOpener opens directories as still-image sequences and
// everything else through ffmpeg
func newRoutingOpener(settings *conf.Settings) video.Opener {
	ffmpeg := video.NewFFmpegOpener(video.FFmpegConfig{
		FFmpegPath:   settings.Video.FFmpegPath,
		FFprobePath:  settings.Video.FFprobePath,
		FrameRate:    settings.Evaluation.FrameRate,
		Width:        settings.Model.InputWidth,
		Height:       settings.Model.InputHeight,
		ProbeTimeout: probeTimeout,
	})
	stills := video.ImageDirOpener{FPS: settings.Evaluation.FrameRate}

	return video.OpenerFunc(func(ctx context.Context, id string) (video.Source, error) {
		if fi, err := os.Stat(id); err == nil && fi.IsDir() {
			return stills.Open(ctx, id)
		}
		return ffmpeg.Open(ctx, id)
	})
}

// Evaluate runs every id through the pipeline with the configured
// parallelism
func (s *Stack) Evaluate(ctx context.Context, ids []string) []evaluation.Result {
	return s.runner.EvaluateAll(ctx, ids)
}

// Metrics returns the stack's collectors
func (s *Stack) Metrics() *observability.Metrics { return s.metrics }

// Store returns the report store, nil when disabled
func (s *Stack) Store() datastore.Interface { return s.store }

// Close stops the metrics endpoint and releases the model, store and
// broker connection
func (s *Stack) Close() error {
	select {
	case <-s.quit:
		return nil
	default:
		close(s.quit)
	}
	s.wg.Wait()

	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func toFloat32(in []float64) []float32 {
	if len(in) == 0 {
		return nil
	}
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func fileError(err error, operation string) error {
	return errors.New(fmt.Errorf("%s: %w", operation, err)).
		Component("analysis").
		Category(errors.CategoryFileIO).
		Build()
}
