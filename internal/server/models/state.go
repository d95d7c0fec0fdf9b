package models

// State is the translation lifecycle state of a drawing.
//
//	uploading → pending → processing → {success | failed}
//
// uploading and pending may also go straight to failed. Transitions are
// forward-only.
type State string

const (
	StateUploading  State = "uploading"
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

var stateRank = map[State]int{
	StateUploading:  0,
	StatePending:    1,
	StateProcessing: 2,
	StateSuccess:    3,
	StateFailed:     3,
}

// AllStates lists every state in lifecycle order.
func AllStates() []State {
	return []State{StateUploading, StatePending, StateProcessing, StateSuccess, StateFailed}
}

// ParseState returns the State named by s and whether it exists.
func ParseState(s string) (State, bool) {
	st := State(s)
	_, ok := stateRank[st]
	return st, ok
}

// Valid reports whether s is one of the five lifecycle states.
func (s State) Valid() bool {
	_, ok := stateRank[s]
	return ok
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

// Active reports whether an external job may still be moving the drawing.
func (s State) Active() bool {
	return s == StatePending || s == StateProcessing
}

// CanTransition reports whether a drawing in s may move to next.
// Re-asserting the current state is always allowed.
func (s State) CanTransition(next State) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}
	return stateRank[next] > stateRank[s]
}
