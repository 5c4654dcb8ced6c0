// Package video produces decoded frame sequences from video files and
// still-image directories.
package video

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Frame is one decoded image. Pix holds interleaved 8-bit samples, row
// major, Width*Height*Channels bytes. A Frame is never modified after a
// Source returns it and its Pix is never reused for a later frame.
type Frame struct {
	Index    int
	Width    int
	Height   int
	Channels int
	Pix      []byte
	PTS      time.Duration
}

// Validate checks that the pixel buffer matches the declared shape
func (f *Frame) Validate() error {
	if f.Width < 1 || f.Height < 1 || f.Channels < 1 {
		return fmt.Errorf("frame %d has invalid shape %dx%dx%d", f.Index, f.Width, f.Height, f.Channels)
	}
	if want := f.Width * f.Height * f.Channels; len(f.Pix) != want {
		return fmt.Errorf("frame %d has %d bytes, want %d", f.Index, len(f.Pix), want)
	}
	return nil
}

// Info describes a source. EstimatedFrames is a hint for progress reporting
// and is never relied on for correctness.
type Info struct {
	Width           int
	Height          int
	FPS             float64
	Duration        time.Duration
	EstimatedFrames int
}

// EstimateFrames returns round(fps × duration).
func EstimateFrames(fps float64, duration time.Duration) int {
	if fps <= 0 || duration <= 0 {
		return 0
	}
	return int(math.Round(fps * duration.Seconds()))
}

// Source is a single-pass, finite frame sequence in temporal order.
// Next returns io.EOF once the sequence is exhausted and keeps returning
// it on later calls. A Source must be closed by whoever opened it.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Info() Info
	Close() error
}

// Opener opens a fresh Source for a video identifier.
type Opener interface {
	Open(ctx context.Context, id string) (Source, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(ctx context.Context, id string) (Source, error)

func (f OpenerFunc) Open(ctx context.Context, id string) (Source, error) {
	return f(ctx, id)
}

func durationOf(frames int, fps float64) time.Duration {
	return time.Duration(math.Round(float64(frames) / fps * float64(time.Second)))
}
