package evaluation

import (
	"time"

	"github.com/framegrade/framegrade/internal/tally"
)

// Report is the outcome of one successful evaluation
type Report struct {
	RunID           string             `json:"run_id" yaml:"run_id"`
	Source          string             `json:"source" yaml:"source"`
	Classes         []string           `json:"classes" yaml:"classes"`
	Counts          []int              `json:"counts" yaml:"counts"`
	Distribution    tally.Distribution `json:"distribution" yaml:"distribution"`
	Frames          int                `json:"frames" yaml:"frames"`
	Batches         int                `json:"batches" yaml:"batches"`
	BatchSize       int                `json:"batch_size" yaml:"batch_size"`
	EstimatedFrames int                `json:"estimated_frames" yaml:"estimated_frames"`
	Started         time.Time          `json:"started" yaml:"started"`
	Elapsed         time.Duration      `json:"elapsed" yaml:"elapsed"`
}

// Percent returns the share of class name, or 0 when it is not a class
func (r *Report) Percent(name string) float64 {
	p, _ := r.Distribution.Percentage(name)
	return p
}

// Dominant returns the class with the largest share. Ties go to the
// earlier class.
func (r *Report) Dominant() string {
	best := -1
	for k, p := range r.Distribution.Percent {
		if best < 0 || p > r.Distribution.Percent[best] {
			best = k
		}
	}
	if best < 0 {
		return ""
	}
	return r.Distribution.Classes[best]
}
