// Package state defines the monitor state machine.
package state

import "fmt"

// MonitorState represents the state of the monitoring loop.
type MonitorState int

const (
	// StateIdle is the initial state before monitoring starts.
	StateIdle MonitorState = iota
	// StateRunning indicates the poll loop is actively evaluating rules.
	StateRunning
	// StatePaused indicates a match is in flight and polling is suspended
	// until the intervention/click cycle resolves.
	StatePaused
	// StateStopping indicates the monitor is shutting down.
	StateStopping
	// StateStopped indicates the monitor has terminated.
	StateStopped
)

// String returns the string representation of the state.
func (s MonitorState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// validTransitions defines the allowed state transitions.
// Key is the current state, value is a list of valid target states.
var validTransitions = map[MonitorState][]MonitorState{
	StateIdle:     {StateRunning, StateStopping},
	StateRunning:  {StatePaused, StateStopping},
	StatePaused:   {StateRunning, StateStopping},
	StateStopping: {StateStopped},
	StateStopped:  {}, // Terminal state, no transitions allowed
}

// CanTransitionTo checks if transitioning from the current state to the target state is valid.
func (s MonitorState) CanTransitionTo(target MonitorState) bool {
	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// ValidTransitions returns the list of valid target states from the current state.
func (s MonitorState) ValidTransitions() []MonitorState {
	return validTransitions[s]
}

// IsTerminal returns true if the state is a terminal state (no further transitions).
func (s MonitorState) IsTerminal() bool {
	return s == StateStopped
}

// IsActive returns true if the monitor is running or paused on a match.
func (s MonitorState) IsActive() bool {
	return s == StateRunning || s == StatePaused
}

// CanStart returns true if monitoring can be started from this state.
func (s MonitorState) CanStart() bool {
	return s == StateIdle
}

// CanAcceptConfig returns true if a configuration update may be accepted.
// Updates arriving while Running are deferred to the next tick boundary.
func (s MonitorState) CanAcceptConfig() bool {
	return s == StateIdle || s == StateRunning || s == StatePaused
}

// TransitionError represents an invalid state transition attempt.
type TransitionError struct {
	From   MonitorState
	To     MonitorState
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid state transition from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// NewTransitionError creates a new TransitionError.
func NewTransitionError(from, to MonitorState, reason string) *TransitionError {
	return &TransitionError{From: from, To: to, Reason: reason}
}
