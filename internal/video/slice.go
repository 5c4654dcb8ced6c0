package video

import (
	"context"
	"io"
	"sync/atomic"
)

// SliceSource serves frames already held in memory.
type SliceSource struct {
	frames []Frame
	info   Info
	next   int
	closed atomic.Bool
}

// NewSliceSource returns a source over frames. Frame indexes are
// renumbered to their position. Width and Height in info default to the
// first frame; EstimatedFrames defaults to len(frames).
func NewSliceSource(frames []Frame, info Info) *SliceSource {
	owned := make([]Frame, len(frames))
	copy(owned, frames)
	for i := range owned {
		owned[i].Index = i
	}
	if len(owned) > 0 && info.Width == 0 && info.Height == 0 {
		info.Width, info.Height = owned[0].Width, owned[0].Height
	}
	if info.EstimatedFrames == 0 {
		info.EstimatedFrames = len(owned)
	}
	return &SliceSource{frames: owned, info: info}
}

func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if s.closed.Load() {
		return Frame{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.next >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *SliceSource) Info() Info { return s.info }

func (s *SliceSource) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed reports whether Close has been called
func (s *SliceSource) Closed() bool { return s.closed.Load() }
