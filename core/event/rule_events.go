package event

import "time"

// RuleMatched is published when all of a rule's conditions satisfy its logic.
// Publishing pauses the monitor loop until the intervention pipeline resolves.
type RuleMatched struct {
	baseRuleEvent
	MatchedAt time.Time
}

func NewRuleMatched(ruleName string, matchedAt time.Time) *RuleMatched {
	return &RuleMatched{
		baseRuleEvent: baseRuleEvent{ruleName: ruleName},
		MatchedAt:     matchedAt,
	}
}

func (e *RuleMatched) EventName() string {
	return "RuleMatched"
}

// ConditionEvaluated is published after a single condition check completes.
// Mainly consumed by the activity log in the UI.
type ConditionEvaluated struct {
	baseRuleEvent
	Kind     string // "color" or "text"
	Matched  bool
	Observed string
	Error    error // nil unless capture/OCR failed
}

func NewConditionEvaluated(ruleName, kind string, matched bool, observed string, err error) *ConditionEvaluated {
	return &ConditionEvaluated{
		baseRuleEvent: baseRuleEvent{ruleName: ruleName},
		Kind:          kind,
		Matched:       matched,
		Observed:      observed,
		Error:         err,
	}
}

func (e *ConditionEvaluated) EventName() string {
	return "ConditionEvaluated"
}

// InterventionResolved is published when the confirmation/delay pipeline for a
// matched rule completes, before any click is attempted.
type InterventionResolved struct {
	baseRuleEvent
	Proceeded bool
	Reason    string // "confirmed", "timeout", "cancelled", "no_popup"
}

func NewInterventionResolved(ruleName string, proceeded bool, reason string) *InterventionResolved {
	return &InterventionResolved{
		baseRuleEvent: baseRuleEvent{ruleName: ruleName},
		Proceeded:     proceeded,
		Reason:        reason,
	}
}

func (e *InterventionResolved) EventName() string {
	return "InterventionResolved"
}

// ClickPerformed is published after the executor finishes a click attempt.
type ClickPerformed struct {
	baseRuleEvent
	Success   bool
	X, Y      int
	ClickType string
	Error     error
}

func NewClickPerformed(ruleName string, success bool, x, y int, clickType string, err error) *ClickPerformed {
	return &ClickPerformed{
		baseRuleEvent: baseRuleEvent{ruleName: ruleName},
		Success:       success,
		X:             x,
		Y:             y,
		ClickType:     clickType,
		Error:         err,
	}
}

func (e *ClickPerformed) EventName() string {
	return "ClickPerformed"
}

// MonitorError is published when a poll cycle hits a non-fatal error.
// The loop keeps running; the UI surfaces the message.
type MonitorError struct {
	Message string
	Error   error
}

func NewMonitorError(message string, err error) *MonitorError {
	return &MonitorError{Message: message, Error: err}
}

func (e *MonitorError) EventName() string {
	return "MonitorError"
}
