package evaluation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/framegrade/framegrade/internal/batch"
	"github.com/framegrade/framegrade/internal/classifier"
	"github.com/framegrade/framegrade/internal/preprocess"
	"github.com/framegrade/framegrade/internal/tally"
	"github.com/framegrade/framegrade/internal/video"
)

// grayFrames returns n 1x1 single channel frames whose pixel value is the
// frame index.
func grayFrames(n int) []video.Frame {
	frames := make([]video.Frame, n)
	for i := range frames {
		frames[i] = video.Frame{Index: i, Width: 1, Height: 1, Channels: 1, Pix: []byte{byte(i)}}
	}
	return frames
}

var identity = preprocess.TransformFunc(func(f video.Frame) (preprocess.Tensor, error) {
	return preprocess.Tensor{Index: f.Index, Shape: [3]int{1, 1, 1}, Data: []float32{float32(f.Pix[0])}}, nil
})

// sourceTracker opens slice sources and remembers them
type sourceTracker struct {
	mu      sync.Mutex
	frames  []video.Frame
	sources []*video.SliceSource
}

func (s *sourceTracker) Open(_ context.Context, _ string) (video.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := video.NewSliceSource(s.frames, video.Info{FPS: 25})
	s.sources = append(s.sources, src)
	return src, nil
}

func (s *sourceTracker) allClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, src := range s.sources {
		if !src.Closed() {
			return false
		}
	}
	return len(s.sources) > 0
}

// labelOracle predicts label(frameIndex) for every valid frame and records
// the length of each batch it sees.
type labelOracle struct {
	classes int
	label   func(frameIndex int) int

	mu    sync.Mutex
	sizes []int
	calls atomic.Int32
}

func (o *labelOracle) Classify(_ context.Context, b *batch.Batch) ([]classifier.ClassOutput, error) {
	o.calls.Add(1)
	o.mu.Lock()
	o.sizes = append(o.sizes, b.Len())
	o.mu.Unlock()

	frames := b.Frames()
	out := make([]classifier.ClassOutput, len(frames))
	for i, f := range frames {
		scores := make(classifier.ClassOutput, o.classes)
		scores[o.label(f.Index)] = 1
		out[i] = scores
	}
	return out, nil
}

func (o *labelOracle) batchSizes() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.sizes...)
}

func newTestPipeline(t *testing.T, opener video.Opener, oracle classifier.Oracle, batchSize int, classes ...string) *Pipeline {
	t.Helper()
	p, err := New(opener, identity, oracle, Config{Classes: tally.ClassList(classes), BatchSize: batchSize, Prefetch: 2})
	require.NoError(t, err)
	return p
}

// blockingSource yields limit frames, then blocks in Next until ctx ends.
type blockingSource struct {
	yielded int
	limit   int
	closed  atomic.Bool
}

func (s *blockingSource) Next(ctx context.Context) (video.Frame, error) {
	if s.yielded < s.limit {
		s.yielded++
		return video.Frame{Index: s.yielded - 1, Width: 1, Height: 1, Channels: 1, Pix: []byte{0}}, nil
	}
	<-ctx.Done()
	return video.Frame{}, ctx.Err()
}

func (s *blockingSource) Info() video.Info { return video.Info{} }

func (s *blockingSource) Close() error {
	s.closed.Store(true)
	return nil
}
