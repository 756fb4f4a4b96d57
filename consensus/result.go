package consensus

// Result is the outcome of a state handler invocation, consulted by the
// Context to decide whether (and how) to transition.
type Result int

const (
	// Continue keeps the current state; the event was processed but
	// does not end the state's work.
	Continue Result = iota
	// Finish ends the current state's work successfully; the Context
	// consults the transition table for the next state.
	Finish
	// Ignore drops the event without effect, e.g. it arrived for a
	// strictly older round or the current state has no handler for it.
	Ignore
	// Failure ends the current state's work abnormally; the Context
	// falls back to a safe state via the transition table.
	Failure
)

func (r Result) String() string {
	switch r {
	case Continue:
		return "continue"
	case Finish:
		return "finish"
	case Ignore:
		return "ignore"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}
