package datastore

import (
	"time"

	"github.com/framegrade/framegrade/internal/evaluation"
)

// Evaluation is one stored evaluation report
type Evaluation struct {
	ID              uint   `gorm:"primaryKey"`
	RunID           string `gorm:"size:36;uniqueIndex"`
	Source          string `gorm:"index"`
	Frames          int
	Batches         int
	BatchSize       int
	EstimatedFrames int
	Dominant        string
	StartedAt       time.Time `gorm:"index"`
	ElapsedMs       int64
	CreatedAt       time.Time
	Shares          []ClassShare `gorm:"foreignKey:EvaluationID;constraint:OnDelete:CASCADE"`
}

// ClassShare is the count and percentage of one class in an evaluation
type ClassShare struct {
	ID           uint `gorm:"primaryKey"`
	EvaluationID uint `gorm:"index"`
	Position     int
	Class        string
	Count        int
	Percent      float64
}

// FromReport converts a report to its stored form
func FromReport(r *evaluation.Report) Evaluation {
	e := Evaluation{
		RunID:           r.RunID,
		Source:          r.Source,
		Frames:          r.Frames,
		Batches:         r.Batches,
		BatchSize:       r.BatchSize,
		EstimatedFrames: r.EstimatedFrames,
		Dominant:        r.Dominant(),
		StartedAt:       r.Started,
		ElapsedMs:       r.Elapsed.Milliseconds(),
		Shares:          make([]ClassShare, len(r.Classes)),
	}
	for k, class := range r.Classes {
		e.Shares[k] = ClassShare{Position: k, Class: class}
		if k < len(r.Counts) {
			e.Shares[k].Count = r.Counts[k]
		}
		if k < len(r.Distribution.Percent) {
			e.Shares[k].Percent = r.Distribution.Percent[k]
		}
	}
	return e
}

// Distribution returns class name to percentage
func (e *Evaluation) Distribution() map[string]float64 {
	m := make(map[string]float64, len(e.Shares))
	for _, s := range e.Shares {
		m[s.Class] = s.Percent
	}
	return m
}
