package evaluation

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/logger"
)

const maxDefaultWorkers = 8

// Result is the outcome for one video of a multi-video run. Exactly one of
// Report and Err is set.
type Result struct {
	ID     string
	Report *Report
	Err    error
}

// Runner evaluates many videos with bounded parallelism. Every video gets
// its own source, accumulator and tally; a failure is confined to its
// Result.
type Runner struct {
	pipeline *Pipeline
	workers  int
}

// NewRunner returns a Runner. workers <= 0 selects the CPU count clamped
// to 1..8.
func NewRunner(p *Pipeline, workers int) *Runner {
	return &Runner{pipeline: p, workers: resolveWorkers(workers)}
}

func resolveWorkers(configured int) int {
	if configured > 0 {
		return configured
	}
	return clampInt(runtime.NumCPU(), 1, maxDefaultWorkers)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Workers returns the parallelism limit
func (r *Runner) Workers() int { return r.workers }

// EvaluateAll evaluates ids and returns one Result per id, in input order.
// Videos not started before ctx ends are reported as cancelled.
func (r *Runner) EvaluateAll(ctx context.Context, ids []string) []Result {
	results := make([]Result, len(ids))
	sem := semaphore.NewWeighted(int64(r.workers))
	log := GetLogger()

	var wg sync.WaitGroup
	for i, id := range ids {
		results[i].ID = id
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i].Err = errors.New(fmt.Errorf("evaluation not started: %w", err)).
				Component("evaluation").
				Category(errors.CategoryCancellation).
				VideoContext(id, -1).
				Build()
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			results[i].Report, results[i].Err = r.pipeline.Evaluate(ctx, id)
		}()
	}
	wg.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	log.Info("batch evaluation finished",
		logger.Int("videos", len(ids)),
		logger.Int("failed", failed),
		logger.Int("workers", r.workers))
	return results
}
