package evaluation

import (
	"github.com/framegrade/framegrade/internal/errors"
)

// IsSourceError reports whether err came from opening or decoding the video
func IsSourceError(err error) bool { return errors.IsCategory(err, errors.CategorySource) }

// IsTransformError reports whether a frame could not be turned into model input
func IsTransformError(err error) bool { return errors.IsCategory(err, errors.CategoryTransform) }

// IsOracleError reports whether classification failed or returned unusable output
func IsOracleError(err error) bool { return errors.IsCategory(err, errors.CategoryClassifier) }

// IsDegenerateInput reports whether the video produced no frames
func IsDegenerateInput(err error) bool { return errors.IsCategory(err, errors.CategoryDegenerate) }

// IsCancelled reports whether the evaluation stopped because its context ended
func IsCancelled(err error) bool { return errors.IsCategory(err, errors.CategoryCancellation) }

// ensureCategory returns err unchanged when it already carries cat, otherwise
// wraps it with cat.
func ensureCategory(err error, cat errors.ErrorCategory, component string) error {
	if err == nil || errors.IsCategory(err, cat) {
		return err
	}
	return errors.New(err).
		Component(component).
		Category(cat).
		Build()
}
