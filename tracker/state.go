package tracker

import "fmt"

// State is a phase of a tracking session.
type State int

const (
	Idle State = iota
	Searching
	Capturing
	Processing
	Rendering
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Searching:
		return "SEARCHING"
	case Capturing:
		return "CAPTURING"
	case Processing:
		return "PROCESSING"
	case Rendering:
		return "RENDERING"
	case Done:
		return "DONE"
	case Aborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool {
	return s == Done || s == Aborted
}
