package evaluation

import "time"

// Status values passed to Recorder.EvaluationFinished
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusEmpty     = "empty"
)

// Recorder receives evaluation measurements. Implementations must be safe
// for concurrent use.
type Recorder interface {
	EvaluationStarted()
	EvaluationFinished(status string, elapsed time.Duration)
	BatchClassified(frames int, full bool, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) EvaluationStarted()                       {}
func (nopRecorder) EvaluationFinished(string, time.Duration) {}
func (nopRecorder) BatchClassified(int, bool, time.Duration) {}
