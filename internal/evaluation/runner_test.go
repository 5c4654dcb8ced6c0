package evaluation

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrade/framegrade/internal/batch"
	"github.com/framegrade/framegrade/internal/classifier"
	"github.com/framegrade/framegrade/internal/tally"
	"github.com/framegrade/framegrade/internal/video"
)

func TestRunnerEvaluatesIndependently(t *testing.T) {
	t.Parallel()

	lengths := map[string]int{"a.mp4": 5, "b.mp4": 12, "c.mp4": 1, "d.mp4": 8}
	opener := video.OpenerFunc(func(_ context.Context, id string) (video.Source, error) {
		n, ok := lengths[id]
		if !ok {
			return nil, fmt.Errorf("%s: no such file", id)
		}
		return video.NewSliceSource(grayFrames(n), video.Info{}), nil
	})
	oracle := &labelOracle{classes: 2, label: func(i int) int { return i % 2 }}
	p := newTestPipeline(t, opener, oracle, 3, "even", "odd")

	ids := []string{"a.mp4", "missing.mp4", "b.mp4", "c.mp4", "d.mp4"}
	results := NewRunner(p, 2).EvaluateAll(t.Context(), ids)
	require.Len(t, results, len(ids))

	for i, res := range results {
		assert.Equal(t, ids[i], res.ID)
		if res.ID == "missing.mp4" {
			assert.Nil(t, res.Report)
			assert.True(t, IsSourceError(res.Err))
			continue
		}
		require.NoError(t, res.Err, res.ID)
		want := lengths[res.ID]
		assert.Equal(t, want, res.Report.Frames, res.ID)
		assert.Equal(t, (want+1)/2, res.Report.Counts[0], res.ID)
		assert.Equal(t, res.ID, res.Report.Source)
	}
}

func TestRunnerBoundsParallelism(t *testing.T) {
	t.Parallel()

	var active, peak atomic.Int32
	oracle := classifier.OracleFunc(func(_ context.Context, b *batch.Batch) ([]classifier.ClassOutput, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		runtime.Gosched()
		out := make([]classifier.ClassOutput, b.Len())
		for i := range out {
			out[i] = classifier.ClassOutput{1}
		}
		return out, nil
	})
	opener := video.OpenerFunc(func(context.Context, string) (video.Source, error) {
		return video.NewSliceSource(grayFrames(20), video.Info{}), nil
	})
	p, err := New(opener, identity, oracle, Config{Classes: tally.ClassList{"only"}, BatchSize: 2})
	require.NoError(t, err)

	ids := make([]string, 12)
	for i := range ids {
		ids[i] = fmt.Sprintf("v%02d", i)
	}
	for _, res := range NewRunner(p, 3).EvaluateAll(t.Context(), ids) {
		require.NoError(t, res.Err)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRunnerCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	opener := &sourceTracker{frames: grayFrames(4)}
	p := newTestPipeline(t, opener, &labelOracle{classes: 1, label: alwaysGood}, 2, "only")

	for _, res := range NewRunner(p, 1).EvaluateAll(ctx, []string{"x", "y"}) {
		assert.Nil(t, res.Report)
		assert.True(t, IsCancelled(res.Err), "got %v", res.Err)
	}
}

func TestResolveWorkers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5, resolveWorkers(5))
	auto := resolveWorkers(0)
	assert.GreaterOrEqual(t, auto, 1)
	assert.LessOrEqual(t, auto, maxDefaultWorkers)
	assert.Equal(t, auto, resolveWorkers(-3))
	assert.Equal(t, min(runtime.NumCPU(), maxDefaultWorkers), auto)
}
