// Package classifier defines the batch classification capability and its
// TensorFlow Lite implementation.
package classifier

import (
	"context"

	"github.com/framegrade/framegrade/internal/batch"
	"github.com/framegrade/framegrade/internal/errors"
)

// ClassOutput holds one score per class for a single frame, in class-list
// order.
type ClassOutput []float32

// Oracle classifies a batch. The returned slice is aligned with
// b.Frames(): output i belongs to frame i, and there are exactly b.Len()
// outputs. Implementations must be safe for concurrent use.
type Oracle interface {
	Classify(ctx context.Context, b *batch.Batch) ([]ClassOutput, error)
}

// OracleFunc adapts a function to the Oracle interface
type OracleFunc func(ctx context.Context, b *batch.Batch) ([]ClassOutput, error)

func (f OracleFunc) Classify(ctx context.Context, b *batch.Batch) ([]ClassOutput, error) {
	return f(ctx, b)
}

// NewOracleError marks err as a classifier failure for batch b.
func NewOracleError(err error, b *batch.Batch) *errors.EnhancedError {
	eb := errors.New(err).
		Component("classifier").
		Category(errors.CategoryClassifier)
	if b != nil {
		eb = eb.Context("batch_seq", b.Seq).
			Context("batch_len", b.Len()).
			Context("first_frame", b.FirstIndex())
	}
	return eb.Build()
}
