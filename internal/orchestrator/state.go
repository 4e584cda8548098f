package orchestrator

import "fmt"

// State is a step of one checkout attempt.
type State string

const (
	StateIdle            State = "idle"
	StateExpanding       State = "expanding"
	StateCompressing     State = "compressing"
	StateUploading       State = "uploading"
	StateSessionCreating State = "session_creating"
	StatePersistingOrder State = "persisting_order"
	StateRedirecting     State = "redirecting"
	StateFailed          State = "failed"
)

var transitions = map[State][]State{
	StateIdle:            {StateExpanding},
	StateExpanding:       {StateCompressing},
	StateCompressing:     {StateUploading, StateFailed},
	StateUploading:       {StateSessionCreating, StateFailed},
	StateSessionCreating: {StatePersistingOrder, StateFailed},
	StatePersistingOrder: {StateRedirecting},
}

func (s State) canMoveTo(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Progress is reported to the observer on every transition and as work
// inside a phase completes.
type Progress struct {
	State State
	Done  int
	Total int
	Text  string
}

// Observer calls are serialized.
type Observer func(Progress)

// StepError is returned when a phase aborts the attempt.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("checkout failed while %s: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
