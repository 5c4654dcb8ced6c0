// Package datastore persists evaluation reports in SQLite through GORM.
package datastore

import (
	"github.com/framegrade/framegrade/internal/evaluation"
)

// Interface is the report store used by the CLI
type Interface interface {
	Open() error
	Save(r *evaluation.Report) error
	Get(runID string) (*Evaluation, error)
	List(source string, limit int) ([]Evaluation, error)
	Close() error
}

// Observer receives one call per store operation
type Observer interface {
	RecordStoreOperation(operation string, err error)
}
