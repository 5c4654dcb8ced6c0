// Package batch groups model-input frames into fixed-capacity batches.
package batch

import (
	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/preprocess"
)

// ErrFinished is returned by Push after Finish has been called
var ErrFinished = errors.NewStd("batch accumulator is finished")

// Batch is an ordered group of frames submitted together for
// classification. Only the first Len() frames exist; there is no storage
// past them.
type Batch struct {
	Seq      int // 0-based position in the video's batch sequence
	Capacity int
	frames   []preprocess.Tensor
}

// New builds a batch from frames, copying them. It fails when frames
// exceed capacity.
func New(seq, capacity int, frames ...preprocess.Tensor) (*Batch, error) {
	if capacity < 1 || len(frames) > capacity {
		return nil, errors.Newf("cannot place %d frames in a batch of capacity %d", len(frames), capacity).
			Component("batch").
			Category(errors.CategoryValidation).
			Build()
	}
	owned := make([]preprocess.Tensor, len(frames), capacity)
	copy(owned, frames)
	return &Batch{Seq: seq, Capacity: capacity, frames: owned}, nil
}

// Len returns the number of valid frames
func (b *Batch) Len() int { return len(b.frames) }

// Full reports whether the batch holds Capacity frames
func (b *Batch) Full() bool { return len(b.frames) == b.Capacity }

// Frames returns the valid frames in temporal order. The slice capacity is
// clipped to its length, so appending to it reallocates.
func (b *Batch) Frames() []preprocess.Tensor {
	return b.frames[:len(b.frames):len(b.frames)]
}

// FirstIndex returns the frame index of the first frame, or -1 when empty
func (b *Batch) FirstIndex() int {
	if len(b.frames) == 0 {
		return -1
	}
	return b.frames[0].Index
}

// Stats counts what an Accumulator has emitted
type Stats struct {
	Batches        int
	PartialBatches int
	Frames         int
}

// Accumulator fills batches of a fixed capacity. Every emitted batch owns
// freshly allocated storage. An Accumulator belongs to one evaluation and
// is not safe for concurrent use.
type Accumulator struct {
	capacity int
	current  *Batch
	stats    Stats
	finished bool
}

// NewAccumulator returns an accumulator for batches of capacity frames
func NewAccumulator(capacity int) (*Accumulator, error) {
	if capacity < 1 {
		return nil, errors.Newf("batch capacity must be at least 1, got %d", capacity).
			Component("batch").
			Category(errors.CategoryValidation).
			Context("capacity", capacity).
			Build()
	}
	return &Accumulator{capacity: capacity}, nil
}

// Capacity returns the configured batch size
func (a *Accumulator) Capacity() int { return a.capacity }

// Push appends t to the batch being filled. When that batch reaches
// capacity it is returned and a new one is started; otherwise Push
// returns nil.
func (a *Accumulator) Push(t preprocess.Tensor) (*Batch, error) {
	if a.finished {
		return nil, ErrFinished
	}
	if a.current == nil {
		a.current = &Batch{
			Seq:      a.stats.Batches,
			Capacity: a.capacity,
			frames:   make([]preprocess.Tensor, 0, a.capacity),
		}
	}

	a.current.frames = append(a.current.frames, t)
	a.stats.Frames++

	if len(a.current.frames) < a.capacity {
		return nil, nil
	}
	return a.emit(), nil
}

// Finish returns the partially filled batch, or nil when nothing is
// pending. The accumulator accepts no frames afterwards.
func (a *Accumulator) Finish() *Batch {
	if a.finished {
		return nil
	}
	a.finished = true
	if a.current == nil || len(a.current.frames) == 0 {
		return nil
	}
	a.stats.PartialBatches++
	return a.emit()
}

func (a *Accumulator) emit() *Batch {
	b := a.current
	a.current = nil
	a.stats.Batches++
	return b
}

// Stats returns counts of batches emitted and frames pushed
func (a *Accumulator) Stats() Stats { return a.stats }
