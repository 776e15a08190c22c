// Package watch implements the monitoring loop: condition polling,
// match intervention, and click execution.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pixelwarden-go/domain/rule"
)

// Clicker dispatches real pointer actions.
type Clicker interface {
	// Click moves to (x, y) and presses the given button.
	Click(x, y int, button string, double bool) error
	// Location returns the current cursor position.
	Location() (x, y int)
	// ScreenSize returns the primary screen dimensions.
	ScreenSize() (width, height int)
}

// ValidationError reports a click target outside the screen bounds.
type ValidationError struct {
	Target rule.Point
	Width  int
	Height int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("click target (%d,%d) outside screen bounds %dx%d", e.Target.X, e.Target.Y, e.Width, e.Height)
}

// SafetyAbortError reports that the cursor was parked in a screen corner,
// which aborts all automation.
type SafetyAbortError struct {
	Cursor rule.Point
}

func (e *SafetyAbortError) Error() string {
	return fmt.Sprintf("safety abort: cursor at (%d,%d) in screen corner", e.Cursor.X, e.Cursor.Y)
}

// DispatchError wraps a pointer backend failure.
type DispatchError struct {
	Target rule.Point
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("click dispatch at (%d,%d) failed: %v", e.Target.X, e.Target.Y, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// ExecutorConfig holds click execution settings.
type ExecutorConfig struct {
	// InterClickPause is the pause between clicks for the all strategy.
	InterClickPause time.Duration
	// FailsafeEnabled aborts execution when the cursor sits in a corner.
	FailsafeEnabled bool
	// FailsafeMargin is the corner size in pixels for the failsafe check.
	FailsafeMargin int
}

// DefaultExecutorConfig returns default execution settings.
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		InterClickPause: 200 * time.Millisecond,
		FailsafeEnabled: true,
		FailsafeMargin:  10,
	}
}

// Executor resolves a matched rule's click targets and dispatches clicks.
type Executor struct {
	clicker Clicker
	config  *ExecutorConfig
	logger  *slog.Logger
}

// NewExecutor creates a click executor.
func NewExecutor(clicker Clicker, config *ExecutorConfig, logger *slog.Logger) *Executor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		clicker: clicker,
		config:  config,
		logger:  logger,
	}
}

// ResolveTargets computes the click coordinates for a rule. An explicit
// ClickPosition overrides the strategy; otherwise the strategy selects from
// the conditions' reference points in evaluation order.
func ResolveTargets(r *rule.Rule) ([]rule.Point, error) {
	if r.ClickPosition != nil {
		return []rule.Point{*r.ClickPosition}, nil
	}

	conds := r.AllConditions()
	if len(conds) == 0 {
		return nil, fmt.Errorf("rule %q has no conditions to click", r.Name)
	}

	refs := make([]rule.Point, len(conds))
	for i, c := range conds {
		refs[i] = c.Region.Reference()
	}

	strategy := r.ClickStrategy
	if strategy == "" {
		strategy = rule.StrategyFirst
	}

	switch strategy {
	case rule.StrategyFirst:
		return refs[:1], nil
	case rule.StrategyCenter:
		var sx, sy int
		for _, p := range refs {
			sx += p.X
			sy += p.Y
		}
		return []rule.Point{{X: sx / len(refs), Y: sy / len(refs)}}, nil
	case rule.StrategyAll:
		return refs, nil
	default:
		return nil, fmt.Errorf("unknown click strategy %q", strategy)
	}
}

// Execute dispatches clicks for a matched rule. It returns the targets that
// were actually clicked; on error, execution stops and the clicks performed
// so far are returned alongside the error.
func (e *Executor) Execute(ctx context.Context, r *rule.Rule) ([]rule.Point, error) {
	targets, err := ResolveTargets(r)
	if err != nil {
		return nil, err
	}

	button, double := clickParams(r.ClickType)
	width, height := e.clicker.ScreenSize()

	var clicked []rule.Point
	for i, target := range targets {
		if i > 0 {
			select {
			case <-ctx.Done():
				return clicked, ctx.Err()
			case <-time.After(e.config.InterClickPause):
			}
		}

		if target.X < 0 || target.X >= width || target.Y < 0 || target.Y >= height {
			return clicked, &ValidationError{Target: target, Width: width, Height: height}
		}

		if e.config.FailsafeEnabled {
			cx, cy := e.clicker.Location()
			if e.inCorner(cx, cy, width, height) {
				return clicked, &SafetyAbortError{Cursor: rule.Point{X: cx, Y: cy}}
			}
		}

		if err := e.clicker.Click(target.X, target.Y, button, double); err != nil {
			return clicked, &DispatchError{Target: target, Err: err}
		}

		clicked = append(clicked, target)
		e.logger.Info("Click dispatched",
			"rule", r.Name,
			"x", target.X,
			"y", target.Y,
			"type", string(r.ClickType),
		)
	}

	return clicked, nil
}

func (e *Executor) inCorner(x, y, width, height int) bool {
	m := e.config.FailsafeMargin
	nearX := x <= m || x >= width-1-m
	nearY := y <= m || y >= height-1-m
	return nearX && nearY
}

func clickParams(t rule.ClickType) (button string, double bool) {
	switch t {
	case rule.ClickDouble:
		return "left", true
	case rule.ClickRight:
		return "right", false
	default:
		return "left", false
	}
}
