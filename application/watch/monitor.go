package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pixelwarden-go/core/event"
	"pixelwarden-go/core/eventbus"
	"pixelwarden-go/core/state"
	"pixelwarden-go/domain/detect"
	"pixelwarden-go/domain/rule"
)

// ConditionEvaluator checks a single condition against the live screen.
// *detect.Engine is the production implementation.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, cond *rule.Condition) detect.Result
}

// Monitor runs the poll loop for one profile. A Monitor is single-use:
// once stopped it cannot be restarted; the coordinator creates a fresh
// one per monitoring run.
type Monitor struct {
	evaluator ConditionEvaluator
	pipeline  *Pipeline
	executor  *Executor
	bus       eventbus.EventBus
	logger    *slog.Logger

	mu      sync.Mutex
	state   state.MonitorState
	profile *rule.Profile
	pending *rule.Profile // applied at the next tick boundary

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates an idle monitor.
func NewMonitor(evaluator ConditionEvaluator, pipeline *Pipeline, executor *Executor, bus eventbus.EventBus, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		evaluator: evaluator,
		pipeline:  pipeline,
		executor:  executor,
		bus:       bus,
		logger:    logger,
		state:     state.StateIdle,
	}
}

// State returns the current monitor state.
func (m *Monitor) State() state.MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start begins polling with the given profile.
func (m *Monitor) Start(profile *rule.Profile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("cannot start monitoring: %w", err)
	}

	m.mu.Lock()
	if !m.state.CanStart() {
		st := m.state
		m.mu.Unlock()
		return state.NewTransitionError(st, state.StateRunning, "monitor already started")
	}
	m.profile = profile
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.setStateLocked(state.StateRunning)
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run()

	m.logger.Info("Monitoring started", "profile", profile.Name, "rules", len(profile.Rules), "interval", profile.Interval())
	m.bus.Publish(event.NewMonitorStarted(profile.Name, len(profile.Rules)))
	return nil
}

// Stop halts the poll loop and waits briefly for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.state.IsActive() {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(state.StateStopping)
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		m.logger.Warn("Monitor stop timeout")
	}

	m.mu.Lock()
	m.setStateLocked(state.StateStopped)
	m.mu.Unlock()

	m.logger.Info("Monitoring stopped")
	m.bus.Publish(event.NewMonitorStopped(nil))
}

// UpdateProfile stages a new profile to take effect at the next tick
// boundary. The in-flight tick always finishes under the old profile.
func (m *Monitor) UpdateProfile(profile *rule.Profile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("cannot update profile: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.CanAcceptConfig() {
		return state.NewTransitionError(m.state, m.state, "configuration frozen in this state")
	}
	if m.state == state.StateIdle {
		m.profile = profile
		return nil
	}
	m.pending = profile
	return nil
}

// setStateLocked transitions the state and publishes the change.
// Caller must hold m.mu.
func (m *Monitor) setStateLocked(next state.MonitorState) {
	if m.state == next {
		return
	}
	if !m.state.CanTransitionTo(next) {
		m.logger.Error("Invalid state transition", "from", m.state, "to", next)
		return
	}
	old := m.state
	m.state = next
	m.bus.Publish(event.NewMonitorStateChanged(old, next))
}

// run is the main poll loop.
func (m *Monitor) run() {
	defer m.wg.Done()

	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("Monitor loop panicked", "error", rec)
			m.bus.Publish(event.NewMonitorError("monitor loop panicked", fmt.Errorf("panic: %v", rec)))
		}
	}()

	m.mu.Lock()
	interval := m.profile.Interval()
	m.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
		}

		// Config updates only land between ticks
		m.mu.Lock()
		if m.pending != nil {
			m.profile = m.pending
			m.pending = nil
			if next := m.profile.Interval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
			m.logger.Info("Profile updated", "profile", m.profile.Name, "rules", len(m.profile.Rules))
			m.bus.Publish(event.NewProfileLoaded(m.profile.Name, len(m.profile.Rules)))
		}
		profile := m.profile
		m.mu.Unlock()

		if stop := m.tick(profile); stop {
			return
		}
	}
}

// tick evaluates every rule once. Returns true if the loop must end.
func (m *Monitor) tick(profile *rule.Profile) bool {
	for _, r := range profile.Rules {
		select {
		case <-m.ctx.Done():
			return true
		default:
		}

		matched, err := m.evaluateRule(r)
		if err != nil {
			m.bus.Publish(event.NewMonitorError(fmt.Sprintf("rule %q evaluation failed", r.Name), err))
			continue
		}
		if !matched {
			continue
		}

		if stop := m.handleMatch(r, profile.Intervention); stop {
			return true
		}
		// One match per tick: the pause and intervention consumed the
		// frame the remaining rules would have seen.
		break
	}
	return false
}

// evaluateRule checks all of a rule's conditions and combines them.
func (m *Monitor) evaluateRule(r *rule.Rule) (bool, error) {
	conds := r.AllConditions()
	results := make([]bool, len(conds))

	for i, cond := range conds {
		res := m.evaluator.Evaluate(m.ctx, cond)
		results[i] = res.Matched
		m.bus.Publish(event.NewConditionEvaluated(r.Name, string(cond.Kind), res.Matched, res.Observed, res.Err))
		if res.Err != nil {
			var derr *detect.Error
			if errors.As(res.Err, &derr) {
				m.logger.Warn("Condition check failed", "rule", r.Name, "stage", derr.Stage, "error", derr.Err)
			}
		}
	}

	return rule.Evaluate(r, results), nil
}

// handleMatch pauses the loop, runs the intervention pipeline, and clicks
// when the outcome says to proceed. Exactly one match is in flight at a
// time since this runs synchronously inside the loop.
func (m *Monitor) handleMatch(r *rule.Rule, cfg rule.InterventionConfig) (stop bool) {
	match := &Match{Rule: r, MatchedAt: time.Now()}

	m.mu.Lock()
	m.setStateLocked(state.StatePaused)
	m.mu.Unlock()

	m.logger.Info("Rule matched", "rule", r.Name)
	m.bus.Publish(event.NewRuleMatched(r.Name, match.MatchedAt))

	outcome := m.pipeline.Resolve(m.ctx, match, cfg)
	m.bus.Publish(event.NewInterventionResolved(r.Name, outcome.Proceeded, outcome.Reason))

	if outcome.Proceeded {
		clicked, err := m.executor.Execute(m.ctx, r)
		for _, pt := range clicked {
			m.bus.Publish(event.NewClickPerformed(r.Name, true, pt.X, pt.Y, string(r.ClickType), nil))
		}
		if err != nil {
			m.bus.Publish(event.NewClickPerformed(r.Name, false, 0, 0, string(r.ClickType), err))

			var abort *SafetyAbortError
			if errors.As(err, &abort) {
				m.logger.Warn("Safety abort, stopping monitor", "cursor_x", abort.Cursor.X, "cursor_y", abort.Cursor.Y)
				m.mu.Lock()
				m.setStateLocked(state.StateStopping)
				m.setStateLocked(state.StateStopped)
				m.mu.Unlock()
				m.bus.Publish(event.NewMonitorStopped(err))
				return true
			}
			m.logger.Error("Click execution failed", "rule", r.Name, "error", err)
		}
	}

	m.mu.Lock()
	// Stop may have raced in while the pipeline ran
	if m.state == state.StatePaused {
		m.setStateLocked(state.StateRunning)
	}
	stop = m.state != state.StateRunning
	m.mu.Unlock()
	return stop
}
