// Package event defines all events that can be published by the application.
// Events represent state changes and are consumed by the presentation layer.
package event

import "pixelwarden-go/core/state"

// Event is the base interface for all events.
// Events are published by the application layer and consumed by subscribers.
type Event interface {
	// EventName returns the name of the event for logging/debugging
	EventName() string
}

// RuleEvent is an event that originates from a specific rule.
type RuleEvent interface {
	Event
	// RuleName returns the source rule name
	RuleName() string
}

// baseRuleEvent provides common implementation for rule events.
type baseRuleEvent struct {
	ruleName string
}

func (e *baseRuleEvent) RuleName() string {
	return e.ruleName
}

// MonitorStarted is published when the monitoring loop starts.
type MonitorStarted struct {
	ProfileName string
	RuleCount   int
}

func NewMonitorStarted(profileName string, ruleCount int) *MonitorStarted {
	return &MonitorStarted{ProfileName: profileName, RuleCount: ruleCount}
}

func (e *MonitorStarted) EventName() string {
	return "MonitorStarted"
}

// MonitorStopped is published when the monitoring loop stops.
type MonitorStopped struct {
	Error error // nil if stopped normally
}

func NewMonitorStopped(err error) *MonitorStopped {
	return &MonitorStopped{Error: err}
}

func (e *MonitorStopped) EventName() string {
	return "MonitorStopped"
}

// MonitorStateChanged is published when the monitor's state changes.
type MonitorStateChanged struct {
	OldState state.MonitorState
	NewState state.MonitorState
}

func NewMonitorStateChanged(oldState, newState state.MonitorState) *MonitorStateChanged {
	return &MonitorStateChanged{OldState: oldState, NewState: newState}
}

func (e *MonitorStateChanged) EventName() string {
	return "MonitorStateChanged"
}
