package watch

import (
	"context"
	"log/slog"
	"time"

	"pixelwarden-go/domain/rule"
)

// Decision is the user's answer to a confirmation prompt.
type Decision int

const (
	// DecisionProceed continues to the delay countdown and the click.
	DecisionProceed Decision = iota
	// DecisionCancel suppresses the click and resumes monitoring.
	DecisionCancel
)

// Match describes a rule that fired on a poll tick.
type Match struct {
	Rule      *rule.Rule
	MatchedAt time.Time
}

// Confirmer presents a confirmation prompt for a match and delivers exactly
// one decision on the returned channel. The timeout is advisory: the
// pipeline enforces it regardless of whether the prompt honours it. When
// ctx is cancelled the prompt must tear itself down.
type Confirmer interface {
	Confirm(ctx context.Context, m *Match, timeout time.Duration) <-chan Decision
}

// Outcome is the result of the intervention pipeline.
type Outcome struct {
	Proceeded bool
	// Reason is one of "confirmed", "timeout", "cancelled", "no_popup".
	Reason string
}

// Pipeline runs the confirm-then-delay phase between a match and its click.
// The popup always precedes the delay so the countdown only starts once the
// user has had their say.
type Pipeline struct {
	confirmer Confirmer
	logger    *slog.Logger

	// delayUnit scales DelaySeconds and AutoTimeoutSeconds; tests shrink it.
	delayUnit time.Duration
}

// NewPipeline creates an intervention pipeline. A nil confirmer disables
// the popup phase regardless of profile settings.
func NewPipeline(confirmer Confirmer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		confirmer: confirmer,
		logger:    logger,
		delayUnit: time.Second,
	}
}

// Resolve runs the pipeline for a match. Cancellation of ctx at any phase
// yields a cancelled outcome.
func (p *Pipeline) Resolve(ctx context.Context, m *Match, cfg rule.InterventionConfig) Outcome {
	reason := "no_popup"

	if cfg.PopupEnabled && p.confirmer != nil {
		timeout := time.Duration(cfg.AutoTimeoutSeconds) * p.delayUnit
		decisions := p.confirmer.Confirm(ctx, m, timeout)

		var timeoutChan <-chan time.Time
		if timeout > 0 {
			timer := time.NewTimer(timeout)
			defer timer.Stop()
			timeoutChan = timer.C
		}

		select {
		case <-ctx.Done():
			return Outcome{Proceeded: false, Reason: "cancelled"}
		case d := <-decisions:
			if d == DecisionCancel {
				p.logger.Info("Match cancelled by user", "rule", m.Rule.Name)
				return Outcome{Proceeded: false, Reason: "cancelled"}
			}
			reason = "confirmed"
		case <-timeoutChan:
			p.logger.Info("Confirmation timed out, proceeding", "rule", m.Rule.Name)
			reason = "timeout"
		}
	}

	if cfg.DelaySeconds > 0 {
		if !p.countdown(ctx, time.Duration(cfg.DelaySeconds)*p.delayUnit) {
			return Outcome{Proceeded: false, Reason: "cancelled"}
		}
	}

	return Outcome{Proceeded: true, Reason: reason}
}

// countdown waits for the delay in small cancellable steps.
// Returns false if ctx was cancelled before the delay elapsed.
func (p *Pipeline) countdown(ctx context.Context, delay time.Duration) bool {
	step := 100 * time.Millisecond
	if step > delay {
		step = delay
	}

	deadline := time.Now().Add(delay)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(step):
		}
	}
}
