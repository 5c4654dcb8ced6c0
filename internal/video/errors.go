package video

import (
	"github.com/framegrade/framegrade/internal/errors"
)

// ErrClosed is returned by Next on a closed source
var ErrClosed = errors.NewStd("video source is closed")

// newSourceError wraps a decode or open failure. frameIndex is -1 when the
// failure is not tied to a frame.
func newSourceError(err error, id string, frameIndex int, operation string) error {
	return errors.New(err).
		Component("video").
		Category(errors.CategorySource).
		VideoContext(id, frameIndex).
		Context("operation", operation).
		Build()
}
