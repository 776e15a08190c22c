// Package presentation provides the UI layer with event bridging to the application layer.
package presentation

import (
	"log/slog"
	"sync"
	"time"

	"pixelwarden-go/application"
	"pixelwarden-go/core/command"
	"pixelwarden-go/core/event"
	"pixelwarden-go/core/eventbus"
	"pixelwarden-go/core/state"
)

// UIEventBridge bridges UI events to the application layer and routes events back to UI.
// It provides a clean separation between UI and business logic.
type UIEventBridge struct {
	coordinator *application.Coordinator
	eventBus    eventbus.EventBus
	logger      *slog.Logger

	// UI callbacks - set by UI components
	callbacks   *UICallbacks
	callbacksMu sync.RWMutex

	// Subscription management
	subscriptionID string
}

// UICallbacks contains callbacks for UI updates.
type UICallbacks struct {
	// Monitor lifecycle
	OnMonitorStarted      func(profileName string, ruleCount int)
	OnMonitorStopped      func(err error)
	OnMonitorStateChanged func(oldState, newState state.MonitorState)
	OnMonitorError        func(message string, err error)

	// Detection and intervention
	OnRuleMatched          func(ruleName string, matchedAt time.Time)
	OnConditionEvaluated   func(ruleName, kind string, matched bool, observed string, err error)
	OnInterventionResolved func(ruleName string, proceeded bool, reason string)
	OnClickPerformed       func(ruleName string, success bool, x, y int, clickType string, err error)

	// Profiles
	OnProfileLoaded  func(profileName string, ruleCount int)
	OnProfileSaved   func(profileName string)
	OnPositionPicked func(x, y int)
}

// BridgeConfig holds configuration for UIEventBridge.
type BridgeConfig struct {
	Coordinator *application.Coordinator
	EventBus    eventbus.EventBus
	Logger      *slog.Logger
}

// NewUIEventBridge creates a new UI event bridge.
func NewUIEventBridge(cfg *BridgeConfig) *UIEventBridge {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	b := &UIEventBridge{
		coordinator: cfg.Coordinator,
		eventBus:    cfg.EventBus,
		logger:      cfg.Logger,
		callbacks:   &UICallbacks{},
	}

	// Subscribe to events
	if b.eventBus != nil {
		b.subscriptionID = b.eventBus.Subscribe(b.handleEvent)
	}

	return b
}

// SetCallbacks sets the UI callbacks.
func (b *UIEventBridge) SetCallbacks(callbacks *UICallbacks) {
	b.callbacksMu.Lock()
	defer b.callbacksMu.Unlock()
	b.callbacks = callbacks
}

// Close unsubscribes from the event bus.
func (b *UIEventBridge) Close() {
	if b.eventBus != nil && b.subscriptionID != "" {
		b.eventBus.Unsubscribe(b.subscriptionID)
	}
}

// Command dispatching methods

// StartMonitoring starts the monitor loop with the named profile.
// An empty name uses the currently selected profile.
func (b *UIEventBridge) StartMonitoring(profileName string) error {
	return b.coordinator.Dispatch(command.NewStartMonitoring(profileName))
}

// StopMonitoring stops the monitor loop.
func (b *UIEventBridge) StopMonitoring() error {
	return b.coordinator.Dispatch(&command.StopMonitoring{})
}

// SelectProfile sets the active profile.
func (b *UIEventBridge) SelectProfile(profileName string) error {
	return b.coordinator.Dispatch(command.NewSelectProfile(profileName))
}

// SaveProfile persists the named profile.
func (b *UIEventBridge) SaveProfile(profileName string) error {
	return b.coordinator.Dispatch(command.NewSaveProfile(profileName))
}

// ReloadProfiles re-reads profiles from storage.
func (b *UIEventBridge) ReloadProfiles() error {
	return b.coordinator.Dispatch(&command.ReloadProfiles{})
}

// PickPosition captures the next mouse click position.
func (b *UIEventBridge) PickPosition(timeoutSeconds int) error {
	return b.coordinator.Dispatch(command.NewPickPosition(timeoutSeconds))
}

// Query methods

// MonitorState returns the current monitor state.
func (b *UIEventBridge) MonitorState() state.MonitorState {
	return b.coordinator.MonitorState()
}

// IsMonitoring returns true while the monitor is running or paused.
func (b *UIEventBridge) IsMonitoring() bool {
	return b.coordinator.MonitorState().IsActive()
}

// ProfileNames returns all known profile names.
func (b *UIEventBridge) ProfileNames() []string {
	return b.coordinator.ProfileNames()
}

// ActiveProfileName returns the selected profile name, empty when none.
func (b *UIEventBridge) ActiveProfileName() string {
	p := b.coordinator.ActiveProfile()
	if p == nil {
		return ""
	}
	return p.Name
}

// Event handling

func (b *UIEventBridge) handleEvent(e event.Event) {
	b.callbacksMu.RLock()
	callbacks := b.callbacks
	b.callbacksMu.RUnlock()

	if callbacks == nil {
		return
	}

	switch evt := e.(type) {
	case *event.MonitorStarted:
		if callbacks.OnMonitorStarted != nil {
			callbacks.OnMonitorStarted(evt.ProfileName, evt.RuleCount)
		}

	case *event.MonitorStopped:
		if callbacks.OnMonitorStopped != nil {
			callbacks.OnMonitorStopped(evt.Error)
		}

	case *event.MonitorStateChanged:
		if callbacks.OnMonitorStateChanged != nil {
			callbacks.OnMonitorStateChanged(evt.OldState, evt.NewState)
		}

	case *event.MonitorError:
		if callbacks.OnMonitorError != nil {
			callbacks.OnMonitorError(evt.Message, evt.Error)
		}

	case *event.RuleMatched:
		if callbacks.OnRuleMatched != nil {
			callbacks.OnRuleMatched(evt.RuleName(), evt.MatchedAt)
		}

	case *event.ConditionEvaluated:
		if callbacks.OnConditionEvaluated != nil {
			callbacks.OnConditionEvaluated(evt.RuleName(), evt.Kind, evt.Matched, evt.Observed, evt.Error)
		}

	case *event.InterventionResolved:
		if callbacks.OnInterventionResolved != nil {
			callbacks.OnInterventionResolved(evt.RuleName(), evt.Proceeded, evt.Reason)
		}

	case *event.ClickPerformed:
		if callbacks.OnClickPerformed != nil {
			callbacks.OnClickPerformed(evt.RuleName(), evt.Success, evt.X, evt.Y, evt.ClickType, evt.Error)
		}

	case *event.ProfileLoaded:
		if callbacks.OnProfileLoaded != nil {
			callbacks.OnProfileLoaded(evt.ProfileName, evt.RuleCount)
		}

	case *event.ProfileSaved:
		if callbacks.OnProfileSaved != nil {
			callbacks.OnProfileSaved(evt.ProfileName)
		}

	case *event.PositionPicked:
		if callbacks.OnPositionPicked != nil {
			callbacks.OnPositionPicked(evt.X, evt.Y)
		}
	}
}
