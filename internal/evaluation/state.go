package evaluation

// State is the phase of one evaluation
type State int

const (
	StateOpening State = iota
	StateStreaming
	StateAggregating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateStreaming:
		return "streaming"
	case StateAggregating:
		return "aggregating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions follow s
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// TransitionFunc observes state changes of an evaluation identified by id
type TransitionFunc func(id string, from, to State)
