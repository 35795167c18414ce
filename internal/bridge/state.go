package bridge

import "fmt"

// State is the position of a call in the engine callback sequence.
type State int

const (
	StateSubmitted State = iota
	StateHeadersReceived
	StateBodyAccumulating
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateHeadersReceived:
		return "headers-received"
	case StateBodyAccumulating:
		return "body-accumulating"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type event int

const (
	eventHeaders event = iota
	eventBody
	eventComplete
)

func (e event) String() string {
	switch e {
	case eventHeaders:
		return "headers"
	case eventBody:
		return "body"
	default:
		return "complete"
	}
}

// next returns the state reached by applying ev, or false when ev is not
// allowed in s. Completion is accepted from every state but Completed so a
// call can always finish.
func (s State) next(ev event) (State, bool) {
	switch {
	case s == StateCompleted:
		return s, false
	case ev == eventComplete:
		return StateCompleted, true
	case s == StateSubmitted && ev == eventHeaders:
		return StateHeadersReceived, true
	case s == StateHeadersReceived && ev == eventBody,
		s == StateBodyAccumulating && ev == eventBody:
		return StateBodyAccumulating, true
	default:
		return s, false
	}
}
