package session

import (
	"slices"

	"arbor/internal/application"
)

// State is the lifecycle position of an edit session.
type State int

const (
	Closed State = iota
	Loading
	Editing
	Saving
	Cancelling
	ChangingType
	TogglingEncryption
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Loading:
		return "loading"
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	case Cancelling:
		return "cancelling"
	case ChangingType:
		return "changing-type"
	case TogglingEncryption:
		return "toggling-encryption"
	default:
		return "unknown"
	}
}

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	Closed:             {Loading},
	Loading:            {Editing, Closed},
	Editing:            {Saving, Cancelling, ChangingType, TogglingEncryption},
	Saving:             {Closed, Editing},
	Cancelling:         {Closed},
	ChangingType:       {Editing},
	TogglingEncryption: {Editing},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

func (s *Session) transition(to State) error {
	if !CanTransition(s.state, to) {
		if s.state == Closed {
			return application.ErrSessionClosed
		}
		return &application.TransitionError{From: s.state.String(), To: to.String()}
	}
	s.logger.Debug("edit session transition", "node", s.nodeID(), "from", s.state, "to", to)
	s.state = to
	return nil
}
