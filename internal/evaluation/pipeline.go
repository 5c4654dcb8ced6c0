// Package evaluation runs videos through batching, classification and
// aggregation to produce a per-class frame distribution.
package evaluation

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/framegrade/framegrade/internal/batch"
	"github.com/framegrade/framegrade/internal/classifier"
	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/logger"
	"github.com/framegrade/framegrade/internal/preprocess"
	"github.com/framegrade/framegrade/internal/tally"
	"github.com/framegrade/framegrade/internal/video"
)

const (
	defaultPrefetch  = 64
	progressInterval = 5 * time.Second
)

// Config holds the per-pipeline evaluation settings
type Config struct {
	Classes   tally.ClassList
	BatchSize int
	Prefetch  int // decoded frames buffered ahead of classification; 0 uses a default
}

// Pipeline evaluates videos. A Pipeline holds no per-video state, so one
// instance may run many evaluations concurrently.
type Pipeline struct {
	opener       video.Opener
	transform    preprocess.Transform
	oracle       classifier.Oracle
	classes      tally.ClassList
	batchSize    int
	prefetch     int
	recorder     Recorder
	onTransition TransitionFunc
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithRecorder sends measurements to r
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithTransitionHook calls fn on every state change
func WithTransitionHook(fn TransitionFunc) Option {
	return func(p *Pipeline) { p.onTransition = fn }
}

// New validates cfg and returns a Pipeline
func New(opener video.Opener, transform preprocess.Transform, oracle classifier.Oracle, cfg Config, opts ...Option) (*Pipeline, error) {
	if opener == nil || transform == nil || oracle == nil {
		return nil, errors.Newf("pipeline requires an opener, a transform and a classifier").
			Component("evaluation").
			Category(errors.CategoryValidation).
			Build()
	}
	classes, err := tally.NewClassList(cfg.Classes...)
	if err != nil {
		return nil, err
	}
	if cfg.BatchSize < 1 {
		return nil, errors.Newf("batch size must be at least 1, got %d", cfg.BatchSize).
			Component("evaluation").
			Category(errors.CategoryValidation).
			Context("batch_size", cfg.BatchSize).
			Build()
	}
	if cfg.Prefetch < 0 {
		return nil, errors.Newf("prefetch must not be negative, got %d", cfg.Prefetch).
			Component("evaluation").
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.Prefetch == 0 {
		cfg.Prefetch = defaultPrefetch
	}

	p := &Pipeline{
		opener:    opener,
		transform: transform,
		oracle:    oracle,
		classes:   classes,
		batchSize: cfg.BatchSize,
		prefetch:  cfg.Prefetch,
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Classes returns the class list the pipeline reports on
func (p *Pipeline) Classes() tally.ClassList { return p.classes }

// decoded is one prefetched model input or the error that ended decoding
type decoded struct {
	tensor preprocess.Tensor
	err    error
}

// run is the state of a single evaluation. It never outlives Evaluate.
type run struct {
	p       *Pipeline
	id      string
	state   State
	acc     *batch.Accumulator
	agg     *tally.Aggregator
	info    video.Info
	log     logger.Logger
	started time.Time
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	r.log.Trace("state change", logger.String("from", from.String()), logger.String("to", to.String()))
	if r.p.onTransition != nil {
		r.p.onTransition(r.id, from, to)
	}
}

// Evaluate decodes the video identified by id, classifies every frame and
// returns the class distribution. On failure the report is nil. The video
// source is closed before Evaluate returns.
func (p *Pipeline) Evaluate(ctx context.Context, id string) (*Report, error) {
	runID := uuid.New().String()
	ctx = logger.WithTraceID(ctx, runID)

	acc, err := batch.NewAccumulator(p.batchSize)
	if err != nil {
		return nil, err
	}
	r := &run{
		p:       p,
		id:      id,
		state:   StateOpening,
		acc:     acc,
		agg:     tally.NewAggregator(p.classes),
		log:     GetLogger().WithContext(ctx).With(logger.String("video", id)),
		started: time.Now(),
	}

	p.recorder.EvaluationStarted()

	report, err := r.execute(ctx)
	elapsed := time.Since(r.started)
	if err != nil {
		r.transition(StateFailed)
		p.recorder.EvaluationFinished(failureStatus(err), elapsed)
		r.log.Warn("evaluation failed",
			logger.Error(err),
			logger.Int("frames", r.acc.Stats().Frames),
			logger.Duration("elapsed", elapsed))
		return nil, err
	}

	report.RunID = runID
	report.Elapsed = elapsed
	r.transition(StateDone)
	p.recorder.EvaluationFinished(StatusSuccess, elapsed)
	r.log.Info("evaluation complete",
		logger.Int("frames", report.Frames),
		logger.Int("batches", report.Batches),
		logger.String("dominant", report.Dominant()),
		logger.Duration("elapsed", elapsed))
	return report, nil
}

func failureStatus(err error) string {
	switch {
	case IsCancelled(err):
		return StatusCancelled
	case IsDegenerateInput(err):
		return StatusEmpty
	default:
		return StatusFailed
	}
}

func (r *run) execute(ctx context.Context) (*Report, error) {
	// streamCtx ends decoding on every exit path, including oracle failure
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	src, err := r.p.opener.Open(streamCtx, r.id)
	if err != nil {
		if ctx.Err() != nil {
			return nil, r.cancelled(ctx)
		}
		return nil, ensureCategory(err, errors.CategorySource, "video")
	}
	r.info = src.Info()

	frames := make(chan decoded, r.p.prefetch)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.prefetch(streamCtx, src, frames)
	}()
	defer func() {
		cancel()
		wg.Wait()
		if err := src.Close(); err != nil {
			r.log.Debug("error closing video source", logger.Error(err))
		}
	}()

	r.transition(StateStreaming)
	r.log.Debug("streaming frames",
		logger.Int("width", r.info.Width),
		logger.Int("height", r.info.Height),
		logger.Float64("fps", r.info.FPS),
		logger.Int("estimated_frames", r.info.EstimatedFrames),
		logger.Int("batch_size", r.p.batchSize))

	progress := rate.Sometimes{Interval: progressInterval}

stream:
	for {
		select {
		case <-ctx.Done():
			return nil, r.cancelled(ctx)
		case item, ok := <-frames:
			if !ok {
				break stream
			}
			if item.err != nil {
				return nil, item.err
			}
			b, err := r.acc.Push(item.tensor)
			if err != nil {
				return nil, err
			}
			if b == nil {
				continue
			}
			if err := r.classify(ctx, b); err != nil {
				return nil, err
			}
			progress.Do(r.logProgress)
		}
	}

	// A closed channel also follows cancellation of the parent context
	if ctx.Err() != nil {
		return nil, r.cancelled(ctx)
	}
	if b := r.acc.Finish(); b != nil {
		if err := r.classify(ctx, b); err != nil {
			return nil, err
		}
	}

	r.transition(StateAggregating)
	t := r.agg.Tally()
	dist, err := tally.Normalize(r.p.classes, t)
	if err != nil {
		if !IsDegenerateInput(err) {
			return nil, err
		}
		return nil, errors.New(err).
			Component("evaluation").
			Category(errors.CategoryDegenerate).
			VideoContext(r.id, -1).
			Build()
	}

	stats := r.acc.Stats()
	return &Report{
		Source:          r.id,
		Classes:         append([]string(nil), r.p.classes...),
		Counts:          t.Counts(),
		Distribution:    dist,
		Frames:          t.Total(),
		Batches:         stats.Batches,
		BatchSize:       r.p.batchSize,
		EstimatedFrames: r.info.EstimatedFrames,
		Started:         r.started,
	}, nil
}

// prefetch decodes and transforms frames ahead of classification. It closes
// out when the source is exhausted, after delivering the first error, or
// when ctx ends.
func (r *run) prefetch(ctx context.Context, src video.Source, out chan<- decoded) {
	defer close(out)

	send := func(d decoded) bool {
		select {
		case out <- d:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		f, err := src.Next(ctx)
		if err == io.EOF {
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				send(decoded{err: ensureCategory(err, errors.CategorySource, "video")})
			}
			return
		}

		t, err := r.apply(f)
		if err != nil {
			send(decoded{err: err})
			return
		}
		if !send(decoded{tensor: t}) {
			return
		}
	}
}

func (r *run) apply(f video.Frame) (t preprocess.Tensor, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.New(fmt.Errorf("panic during frame transform: %v", rec)).
				Component("preprocess").
				Category(errors.CategoryTransform).
				VideoContext(r.id, f.Index).
				Build()
		}
	}()

	t, err = r.p.transform.Apply(f)
	if err != nil {
		return preprocess.Tensor{}, ensureCategory(err, errors.CategoryTransform, "preprocess")
	}
	return t, nil
}

// classify sends one batch to the oracle and folds the outputs into the
// tally.
func (r *run) classify(ctx context.Context, b *batch.Batch) (err error) {
	if ctx.Err() != nil {
		return r.cancelled(ctx)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = classifier.NewOracleError(fmt.Errorf("panic during batch inference: %v", rec), b)
		}
	}()

	start := time.Now()
	outputs, err := r.p.oracle.Classify(ctx, b)
	if err != nil {
		if ctx.Err() != nil {
			return r.cancelled(ctx)
		}
		if IsCancelled(err) {
			return err
		}
		return ensureCategory(err, errors.CategoryClassifier, "classifier")
	}
	if err := r.agg.Add(b, outputs); err != nil {
		return err
	}
	r.p.recorder.BatchClassified(b.Len(), b.Full(), time.Since(start))
	return nil
}

func (r *run) cancelled(ctx context.Context) error {
	return errors.New(fmt.Errorf("evaluation cancelled: %w", ctx.Err())).
		Component("evaluation").
		Category(errors.CategoryCancellation).
		VideoContext(r.id, -1).
		Context("state", r.state.String()).
		Build()
}

func (r *run) logProgress() {
	stats := r.acc.Stats()
	fields := []logger.Field{
		logger.Int("frames", stats.Frames),
		logger.Int("batches", stats.Batches),
		logger.Duration("elapsed", time.Since(r.started)),
	}
	if est := r.info.EstimatedFrames; est > 0 {
		fields = append(fields, logger.Float64("percent", 100*float64(min(stats.Frames, est))/float64(est)))
	}
	r.log.Info("evaluation progress", fields...)
}
