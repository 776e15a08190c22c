package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"pixelwarden-go/domain/rule"
)

// scriptedConfirmer answers every prompt with a fixed decision after an
// optional delay. A nil answer channel means never answer.
type scriptedConfirmer struct {
	mu       sync.Mutex
	decision Decision
	delay    time.Duration
	silent   bool
	prompts  int
	lastAsk  time.Time
	askCtx   context.Context
}

func (c *scriptedConfirmer) Confirm(ctx context.Context, m *Match, timeout time.Duration) <-chan Decision {
	c.mu.Lock()
	c.prompts++
	c.lastAsk = time.Now()
	c.askCtx = ctx
	c.mu.Unlock()

	ch := make(chan Decision, 1)
	if c.silent {
		return ch
	}
	if c.delay > 0 {
		go func() {
			time.Sleep(c.delay)
			ch <- c.decision
		}()
	} else {
		ch <- c.decision
	}
	return ch
}

func (c *scriptedConfirmer) promptCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompts
}

func testMatch(t *testing.T) *Match {
	t.Helper()
	return &Match{
		Rule:      threePointRule(t, rule.StrategyFirst),
		MatchedAt: time.Now(),
	}
}

func msPipeline(confirmer Confirmer) *Pipeline {
	p := NewPipeline(confirmer, nil)
	p.delayUnit = time.Millisecond
	return p
}

func TestPipeline_NoPopupNoDelay(t *testing.T) {
	confirmer := &scriptedConfirmer{}
	p := msPipeline(confirmer)

	cfg := rule.InterventionConfig{PopupEnabled: false}
	outcome := p.Resolve(context.Background(), testMatch(t), cfg)

	if !outcome.Proceeded {
		t.Error("expected proceed with popup disabled and zero delay")
	}
	if outcome.Reason != "no_popup" {
		t.Errorf("Reason = %q, want no_popup", outcome.Reason)
	}
	if confirmer.promptCount() != 0 {
		t.Error("confirmer should not be asked when popup is disabled")
	}
}

func TestPipeline_NilConfirmerSkipsPopup(t *testing.T) {
	p := msPipeline(nil)

	cfg := rule.InterventionConfig{PopupEnabled: true, AutoTimeoutSeconds: 10}
	outcome := p.Resolve(context.Background(), testMatch(t), cfg)

	if !outcome.Proceeded || outcome.Reason != "no_popup" {
		t.Errorf("outcome = %+v, want proceed via no_popup", outcome)
	}
}

func TestPipeline_Confirmed(t *testing.T) {
	confirmer := &scriptedConfirmer{decision: DecisionProceed}
	p := msPipeline(confirmer)

	cfg := rule.InterventionConfig{PopupEnabled: true, AutoTimeoutSeconds: 100}
	outcome := p.Resolve(context.Background(), testMatch(t), cfg)

	if !outcome.Proceeded {
		t.Error("expected proceed after confirmation")
	}
	if outcome.Reason != "confirmed" {
		t.Errorf("Reason = %q, want confirmed", outcome.Reason)
	}
}

func TestPipeline_Cancelled(t *testing.T) {
	confirmer := &scriptedConfirmer{decision: DecisionCancel}
	p := msPipeline(confirmer)

	cfg := rule.InterventionConfig{PopupEnabled: true, AutoTimeoutSeconds: 100, DelaySeconds: 50}
	start := time.Now()
	outcome := p.Resolve(context.Background(), testMatch(t), cfg)

	if outcome.Proceeded {
		t.Error("cancel must suppress the click")
	}
	if outcome.Reason != "cancelled" {
		t.Errorf("Reason = %q, want cancelled", outcome.Reason)
	}
	// The delay countdown must not run after a cancel
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("cancel took %v, delay should be skipped", elapsed)
	}
}

func TestPipeline_AutoTimeoutProceeds(t *testing.T) {
	confirmer := &scriptedConfirmer{silent: true}
	p := msPipeline(confirmer)

	cfg := rule.InterventionConfig{PopupEnabled: true, AutoTimeoutSeconds: 20}
	outcome := p.Resolve(context.Background(), testMatch(t), cfg)

	if !outcome.Proceeded {
		t.Error("unanswered popup should proceed after the auto timeout")
	}
	if outcome.Reason != "timeout" {
		t.Errorf("Reason = %q, want timeout", outcome.Reason)
	}
}

func TestPipeline_PopupPrecedesDelay(t *testing.T) {
	confirmer := &scriptedConfirmer{decision: DecisionProceed, delay: 30 * time.Millisecond}
	p := msPipeline(confirmer)

	cfg := rule.InterventionConfig{PopupEnabled: true, AutoTimeoutSeconds: 500, DelaySeconds: 20}
	start := time.Now()
	outcome := p.Resolve(context.Background(), testMatch(t), cfg)

	if !outcome.Proceeded {
		t.Fatalf("outcome = %+v, want proceed", outcome)
	}
	// Decision took ~30ms, the 20ms countdown starts only afterwards
	if elapsed := time.Since(start); elapsed < 45*time.Millisecond {
		t.Errorf("Resolve took %v, countdown must start after the decision", elapsed)
	}
}

func TestPipeline_ContextCancelDuringPopup(t *testing.T) {
	confirmer := &scriptedConfirmer{silent: true}
	p := msPipeline(confirmer)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	cfg := rule.InterventionConfig{PopupEnabled: true, AutoTimeoutSeconds: 5000}
	outcome := p.Resolve(ctx, testMatch(t), cfg)

	if outcome.Proceeded {
		t.Error("cancellation during popup must not proceed")
	}
	if outcome.Reason != "cancelled" {
		t.Errorf("Reason = %q, want cancelled", outcome.Reason)
	}
}

// The prompt receives the pipeline's context so it can tear down its UI
// when the monitor stops mid-confirmation.
func TestPipeline_CancelReachesPrompt(t *testing.T) {
	confirmer := &scriptedConfirmer{silent: true}
	p := msPipeline(confirmer)

	ctx, cancel := context.WithCancel(context.Background())
	cfg := rule.InterventionConfig{PopupEnabled: true, AutoTimeoutSeconds: 5000}
	m := testMatch(t)

	done := make(chan Outcome, 1)
	go func() { done <- p.Resolve(ctx, m, cfg) }()

	deadline := time.Now().Add(time.Second)
	for {
		confirmer.mu.Lock()
		asked := confirmer.askCtx != nil
		confirmer.mu.Unlock()
		if asked {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("prompt was never shown")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	outcome := <-done
	if outcome.Proceeded || outcome.Reason != "cancelled" {
		t.Errorf("outcome = %+v, want cancelled", outcome)
	}

	select {
	case <-confirmer.askCtx.Done():
	case <-time.After(time.Second):
		t.Error("prompt context was not cancelled")
	}
}

func TestPipeline_ContextCancelDuringDelay(t *testing.T) {
	p := msPipeline(nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	cfg := rule.InterventionConfig{DelaySeconds: 5000}
	start := time.Now()
	outcome := p.Resolve(ctx, testMatch(t), cfg)

	if outcome.Proceeded {
		t.Error("cancellation during delay must not proceed")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Resolve took %v after cancel, countdown must abort promptly", elapsed)
	}
}
