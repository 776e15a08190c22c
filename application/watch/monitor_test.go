package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pixelwarden-go/core/event"
	"pixelwarden-go/core/eventbus"
	"pixelwarden-go/core/state"
	"pixelwarden-go/domain/detect"
	"pixelwarden-go/domain/rule"
)

// scriptedEvaluator returns a fixed match result and records every
// condition it was asked about.
type scriptedEvaluator struct {
	mu    sync.Mutex
	match bool
	seen  []*rule.Condition
	calls int
}

func (e *scriptedEvaluator) Evaluate(ctx context.Context, cond *rule.Condition) detect.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.seen = append(e.seen, cond)
	return detect.Result{Matched: e.match, Condition: cond, Observed: "scripted"}
}

func (e *scriptedEvaluator) setMatch(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.match = v
}

func (e *scriptedEvaluator) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *scriptedEvaluator) lastSeen() *rule.Condition {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.seen) == 0 {
		return nil
	}
	return e.seen[len(e.seen)-1]
}

// blockingConfirmer hands each prompt's answer channel to the test.
type blockingConfirmer struct {
	requests chan chan Decision
	mu       sync.Mutex
	prompts  int
}

func newBlockingConfirmer() *blockingConfirmer {
	return &blockingConfirmer{requests: make(chan chan Decision, 10)}
}

func (c *blockingConfirmer) Confirm(ctx context.Context, m *Match, timeout time.Duration) <-chan Decision {
	c.mu.Lock()
	c.prompts++
	c.mu.Unlock()

	ch := make(chan Decision, 1)
	c.requests <- ch
	return ch
}

func (c *blockingConfirmer) promptCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompts
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}

func fastProfile(t *testing.T, popup bool) *rule.Profile {
	t.Helper()
	return &rule.Profile{
		Name:         "test",
		PollInterval: 5 * time.Millisecond,
		Intervention: rule.InterventionConfig{
			DelaySeconds:       0,
			PopupEnabled:       popup,
			AutoTimeoutSeconds: 60000,
		},
		Rules: []*rule.Rule{threePointRule(t, rule.StrategyFirst)},
	}
}

type monitorFixture struct {
	monitor   *Monitor
	evaluator *scriptedEvaluator
	confirmer *blockingConfirmer
	clicker   *fakeClicker
	bus       eventbus.EventBus

	mu     sync.Mutex
	events []event.Event
}

func newMonitorFixture(t *testing.T) *monitorFixture {
	t.Helper()

	f := &monitorFixture{
		evaluator: &scriptedEvaluator{},
		confirmer: newBlockingConfirmer(),
		clicker:   newFakeClicker(),
		bus:       eventbus.New(100),
	}
	t.Cleanup(f.bus.Close)

	f.bus.Subscribe(func(e event.Event) {
		f.mu.Lock()
		f.events = append(f.events, e)
		f.mu.Unlock()
	})

	pipeline := NewPipeline(f.confirmer, nil)
	pipeline.delayUnit = time.Millisecond
	executor := fastExecutor(f.clicker)
	f.monitor = NewMonitor(f.evaluator, pipeline, executor, f.bus, nil)
	return f
}

func (f *monitorFixture) eventNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.events))
	for i, e := range f.events {
		names[i] = e.EventName()
	}
	return names
}

func (f *monitorFixture) hasEvent(name string) bool {
	for _, n := range f.eventNames() {
		if n == name {
			return true
		}
	}
	return false
}

func TestMonitor_StartStop(t *testing.T) {
	f := newMonitorFixture(t)

	if f.monitor.State() != state.StateIdle {
		t.Fatalf("initial state = %v, want Idle", f.monitor.State())
	}

	if err := f.monitor.Start(fastProfile(t, false)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if f.monitor.State() != state.StateRunning {
		t.Errorf("state = %v, want Running", f.monitor.State())
	}

	// Second start must be rejected with a transition error
	var transErr *state.TransitionError
	if err := f.monitor.Start(fastProfile(t, false)); !errors.As(err, &transErr) {
		t.Errorf("second Start() error = %v, want *state.TransitionError", err)
	}

	f.monitor.Stop()
	if f.monitor.State() != state.StateStopped {
		t.Errorf("state after stop = %v, want Stopped", f.monitor.State())
	}

	// A stopped monitor is terminal
	if err := f.monitor.Start(fastProfile(t, false)); err == nil {
		t.Error("Start() after stop should fail")
	}
}

func TestMonitor_StartRejectsInvalidProfile(t *testing.T) {
	f := newMonitorFixture(t)

	bad := &rule.Profile{Name: "bad", Rules: []*rule.Rule{{Name: "empty", Logic: rule.LogicAll}}}
	if err := f.monitor.Start(bad); err == nil {
		t.Error("Start() should reject an invalid profile")
	}
	if f.monitor.State() != state.StateIdle {
		t.Errorf("state = %v, want Idle after rejected start", f.monitor.State())
	}
}

func TestMonitor_PollsWithoutMatch(t *testing.T) {
	f := newMonitorFixture(t)

	if err := f.monitor.Start(fastProfile(t, false)); err != nil {
		t.Fatal(err)
	}
	defer f.monitor.Stop()

	waitFor(t, time.Second, func() bool { return f.evaluator.callCount() >= 6 },
		"evaluator should be polled repeatedly")

	if f.monitor.State() != state.StateRunning {
		t.Errorf("state = %v, want Running while nothing matches", f.monitor.State())
	}
	if len(f.clicker.recorded()) != 0 {
		t.Error("no clicks without a match")
	}

	waitFor(t, time.Second, func() bool { return f.hasEvent("ConditionEvaluated") },
		"condition evaluations should be published")
}

func TestMonitor_SingleMatchInFlight(t *testing.T) {
	f := newMonitorFixture(t)
	f.evaluator.setMatch(true)

	if err := f.monitor.Start(fastProfile(t, true)); err != nil {
		t.Fatal(err)
	}
	defer f.monitor.Stop()

	// Wait for the first prompt
	var answer chan Decision
	select {
	case answer = <-f.confirmer.requests:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for confirmation prompt")
	}

	if f.monitor.State() != state.StatePaused {
		t.Errorf("state = %v, want Paused while the prompt is unanswered", f.monitor.State())
	}

	// Several intervals pass; the paused loop must not stack up prompts
	time.Sleep(50 * time.Millisecond)
	if got := f.confirmer.promptCount(); got != 1 {
		t.Errorf("prompts = %d, want exactly 1 in-flight match", got)
	}

	// Cancel: no click, monitoring resumes
	f.evaluator.setMatch(false)
	answer <- DecisionCancel

	waitFor(t, time.Second, func() bool { return f.monitor.State() == state.StateRunning },
		"monitor should resume after cancel")
	if len(f.clicker.recorded()) != 0 {
		t.Error("cancel must suppress the click")
	}
}

func TestMonitor_MatchProceedsToClick(t *testing.T) {
	f := newMonitorFixture(t)
	f.evaluator.setMatch(true)

	if err := f.monitor.Start(fastProfile(t, false)); err != nil {
		t.Fatal(err)
	}
	defer f.monitor.Stop()

	waitFor(t, time.Second, func() bool { return len(f.clicker.recorded()) >= 1 },
		"a click should fire with popup disabled and zero delay")

	first := f.clicker.recorded()[0]
	if first.X != 10 || first.Y != 10 {
		t.Errorf("click = (%d,%d), want the first condition's reference (10,10)", first.X, first.Y)
	}

	waitFor(t, time.Second, func() bool {
		return f.hasEvent("RuleMatched") && f.hasEvent("InterventionResolved") && f.hasEvent("ClickPerformed")
	}, "match lifecycle events should be published")
}

func TestMonitor_UpdateProfileAtTickBoundary(t *testing.T) {
	f := newMonitorFixture(t)

	if err := f.monitor.Start(fastProfile(t, false)); err != nil {
		t.Fatal(err)
	}
	defer f.monitor.Stop()

	waitFor(t, time.Second, func() bool { return f.evaluator.callCount() > 0 },
		"initial profile should be polled")

	next := &rule.Profile{
		Name:         "replacement",
		PollInterval: 5 * time.Millisecond,
		Intervention: rule.InterventionConfig{AutoTimeoutSeconds: 10},
		Rules: []*rule.Rule{
			{
				Name:       "swapped",
				Conditions: []*rule.Condition{pointCond(t, 77, 88)},
				Logic:      rule.LogicAll,
			},
		},
	}
	if err := f.monitor.UpdateProfile(next); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	waitFor(t, time.Second, func() bool {
		last := f.evaluator.lastSeen()
		return last != nil && last.Region.Reference() == (rule.Point{X: 77, Y: 88})
	}, "replacement profile should take effect at a tick boundary")
}

func TestMonitor_UpdateProfileRejectsInvalid(t *testing.T) {
	f := newMonitorFixture(t)

	bad := &rule.Profile{Name: ""}
	if err := f.monitor.UpdateProfile(bad); err == nil {
		t.Error("UpdateProfile() should reject an invalid profile")
	}
}

func TestMonitor_UpdateProfileRejectedAfterStop(t *testing.T) {
	f := newMonitorFixture(t)

	if err := f.monitor.Start(fastProfile(t, false)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.monitor.Stop()

	var transErr *state.TransitionError
	if err := f.monitor.UpdateProfile(fastProfile(t, false)); !errors.As(err, &transErr) {
		t.Errorf("UpdateProfile() after stop error = %v, want *state.TransitionError", err)
	}
}

func TestMonitor_SafetyAbortStopsMonitor(t *testing.T) {
	f := newMonitorFixture(t)
	f.evaluator.setMatch(true)
	f.clicker.loc = rule.Point{X: 0, Y: 0} // cursor parked in the corner

	if err := f.monitor.Start(fastProfile(t, false)); err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool { return f.monitor.State() == state.StateStopped },
		"safety abort should stop the monitor")

	if len(f.clicker.recorded()) != 0 {
		t.Error("no clicks after a safety abort")
	}
	waitFor(t, time.Second, func() bool { return f.hasEvent("MonitorStopped") },
		"MonitorStopped should be published on abort")
}
