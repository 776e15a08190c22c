package watch

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"testing"
	"time"

	"pixelwarden-go/domain/rule"
)

type clickRecord struct {
	X, Y   int
	Button string
	Double bool
}

type fakeClicker struct {
	mu     sync.Mutex
	clicks []clickRecord
	loc    rule.Point
	width  int
	height int
	err    error
}

func newFakeClicker() *fakeClicker {
	return &fakeClicker{
		loc:    rule.Point{X: 500, Y: 500},
		width:  1920,
		height: 1080,
	}
}

func (c *fakeClicker) Click(x, y int, button string, double bool) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clicks = append(c.clicks, clickRecord{X: x, Y: y, Button: button, Double: double})
	return nil
}

func (c *fakeClicker) Location() (int, int) {
	return c.loc.X, c.loc.Y
}

func (c *fakeClicker) ScreenSize() (int, int) {
	return c.width, c.height
}

func (c *fakeClicker) recorded() []clickRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]clickRecord, len(c.clicks))
	copy(out, c.clicks)
	return out
}

func pointCond(t *testing.T, x, y int) *rule.Condition {
	t.Helper()
	c, err := rule.NewColorCondition(rule.PointRegion(x, y), color.RGBA{R: 255, A: 255}, rule.CompSimilar, 10)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func threePointRule(t *testing.T, strategy rule.ClickStrategy) *rule.Rule {
	t.Helper()
	return &rule.Rule{
		Name: "three-points",
		Conditions: []*rule.Condition{
			pointCond(t, 10, 10),
			pointCond(t, 20, 10),
			pointCond(t, 30, 10),
		},
		Logic:         rule.LogicAll,
		ClickStrategy: strategy,
		ClickType:     rule.ClickSingle,
	}
}

func fastExecutor(clicker Clicker) *Executor {
	cfg := DefaultExecutorConfig()
	cfg.InterClickPause = time.Millisecond
	return NewExecutor(clicker, cfg, nil)
}

func TestResolveTargets(t *testing.T) {
	tests := []struct {
		name     string
		rule     *rule.Rule
		expected []rule.Point
	}{
		{
			"first strategy",
			threePointRule(t, rule.StrategyFirst),
			[]rule.Point{{X: 10, Y: 10}},
		},
		{
			"empty strategy defaults to first",
			threePointRule(t, ""),
			[]rule.Point{{X: 10, Y: 10}},
		},
		{
			"center strategy averages references",
			threePointRule(t, rule.StrategyCenter),
			[]rule.Point{{X: 20, Y: 10}},
		},
		{
			"all strategy keeps order",
			threePointRule(t, rule.StrategyAll),
			[]rule.Point{{X: 10, Y: 10}, {X: 20, Y: 10}, {X: 30, Y: 10}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, err := ResolveTargets(tt.rule)
			if err != nil {
				t.Fatalf("ResolveTargets() error = %v", err)
			}
			if len(targets) != len(tt.expected) {
				t.Fatalf("targets = %v, want %v", targets, tt.expected)
			}
			for i := range targets {
				if targets[i] != tt.expected[i] {
					t.Errorf("target[%d] = %v, want %v", i, targets[i], tt.expected[i])
				}
			}
		})
	}
}

func TestResolveTargets_ExplicitPositionOverridesStrategy(t *testing.T) {
	r := threePointRule(t, rule.StrategyAll)
	r.ClickPosition = &rule.Point{X: 640, Y: 480}

	targets, err := ResolveTargets(r)
	if err != nil {
		t.Fatalf("ResolveTargets() error = %v", err)
	}
	if len(targets) != 1 || targets[0] != (rule.Point{X: 640, Y: 480}) {
		t.Errorf("targets = %v, want [(640,480)]", targets)
	}
}

func TestResolveTargets_RectCenterReference(t *testing.T) {
	c, err := rule.NewTextCondition(rule.RectRegion(100, 100, 300, 200), "OK", rule.CompEquals)
	if err != nil {
		t.Fatal(err)
	}
	r := &rule.Rule{
		Name:       "rect",
		Conditions: []*rule.Condition{c},
		Logic:      rule.LogicAll,
	}

	targets, err := ResolveTargets(r)
	if err != nil {
		t.Fatalf("ResolveTargets() error = %v", err)
	}
	if targets[0] != (rule.Point{X: 200, Y: 150}) {
		t.Errorf("target = %v, want (200,150)", targets[0])
	}
}

func TestExecutor_ClickTypes(t *testing.T) {
	tests := []struct {
		clickType rule.ClickType
		button    string
		double    bool
	}{
		{rule.ClickSingle, "left", false},
		{rule.ClickDouble, "left", true},
		{rule.ClickRight, "right", false},
		{"", "left", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.clickType)+"_type", func(t *testing.T) {
			clicker := newFakeClicker()
			exec := fastExecutor(clicker)

			r := threePointRule(t, rule.StrategyFirst)
			r.ClickType = tt.clickType

			if _, err := exec.Execute(context.Background(), r); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			clicks := clicker.recorded()
			if len(clicks) != 1 {
				t.Fatalf("clicks = %d, want 1", len(clicks))
			}
			if clicks[0].Button != tt.button || clicks[0].Double != tt.double {
				t.Errorf("click = %+v, want button=%s double=%v", clicks[0], tt.button, tt.double)
			}
		})
	}
}

func TestExecutor_AllStrategyClicksEveryTarget(t *testing.T) {
	clicker := newFakeClicker()
	exec := fastExecutor(clicker)

	clicked, err := exec.Execute(context.Background(), threePointRule(t, rule.StrategyAll))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(clicked) != 3 {
		t.Fatalf("clicked = %v, want 3 targets", clicked)
	}

	clicks := clicker.recorded()
	wantX := []int{10, 20, 30}
	for i, c := range clicks {
		if c.X != wantX[i] || c.Y != 10 {
			t.Errorf("click[%d] = (%d,%d), want (%d,10)", i, c.X, c.Y, wantX[i])
		}
	}
}

func TestExecutor_OutOfBoundsRejected(t *testing.T) {
	clicker := newFakeClicker()
	exec := fastExecutor(clicker)

	r := threePointRule(t, rule.StrategyFirst)
	r.ClickPosition = &rule.Point{X: 5000, Y: 10}

	_, err := exec.Execute(context.Background(), r)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if len(clicker.recorded()) != 0 {
		t.Error("no clicks should be dispatched for an out-of-bounds target")
	}
}

func TestExecutor_NegativeCoordinateRejected(t *testing.T) {
	clicker := newFakeClicker()
	exec := fastExecutor(clicker)

	r := threePointRule(t, rule.StrategyFirst)
	r.ClickPosition = &rule.Point{X: -1, Y: 10}

	if _, err := exec.Execute(context.Background(), r); err == nil {
		t.Error("expected validation error for negative coordinate")
	}
}

func TestExecutor_FailsafeCornerAborts(t *testing.T) {
	clicker := newFakeClicker()
	clicker.loc = rule.Point{X: 0, Y: 0}
	exec := fastExecutor(clicker)

	_, err := exec.Execute(context.Background(), threePointRule(t, rule.StrategyFirst))
	var abort *SafetyAbortError
	if !errors.As(err, &abort) {
		t.Fatalf("error = %v, want *SafetyAbortError", err)
	}
	if len(clicker.recorded()) != 0 {
		t.Error("no clicks should be dispatched after a safety abort")
	}
}

func TestExecutor_FailsafeAllCorners(t *testing.T) {
	corners := []rule.Point{
		{X: 0, Y: 0},
		{X: 1919, Y: 0},
		{X: 0, Y: 1079},
		{X: 1919, Y: 1079},
	}

	for _, corner := range corners {
		clicker := newFakeClicker()
		clicker.loc = corner
		exec := fastExecutor(clicker)

		_, err := exec.Execute(context.Background(), threePointRule(t, rule.StrategyFirst))
		var abort *SafetyAbortError
		if !errors.As(err, &abort) {
			t.Errorf("cursor at %v: error = %v, want *SafetyAbortError", corner, err)
		}
	}
}

func TestExecutor_FailsafeDisabled(t *testing.T) {
	clicker := newFakeClicker()
	clicker.loc = rule.Point{X: 0, Y: 0}

	cfg := DefaultExecutorConfig()
	cfg.FailsafeEnabled = false
	exec := NewExecutor(clicker, cfg, nil)

	if _, err := exec.Execute(context.Background(), threePointRule(t, rule.StrategyFirst)); err != nil {
		t.Errorf("Execute() error = %v, want nil with failsafe disabled", err)
	}
}

func TestExecutor_DispatchErrorWrapped(t *testing.T) {
	backendErr := errors.New("backend down")
	clicker := newFakeClicker()
	clicker.err = backendErr
	exec := fastExecutor(clicker)

	_, err := exec.Execute(context.Background(), threePointRule(t, rule.StrategyFirst))
	var derr *DispatchError
	if !errors.As(err, &derr) {
		t.Fatalf("error = %v, want *DispatchError", err)
	}
	if !errors.Is(err, backendErr) {
		t.Error("DispatchError should unwrap to the backend error")
	}
}

func TestExecutor_CancelledBetweenClicks(t *testing.T) {
	clicker := newFakeClicker()
	cfg := DefaultExecutorConfig()
	cfg.InterClickPause = 50 * time.Millisecond
	exec := NewExecutor(clicker, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	clicked, err := exec.Execute(ctx, threePointRule(t, rule.StrategyAll))
	if err == nil {
		t.Fatal("expected context error")
	}
	if len(clicked) != 1 {
		t.Errorf("clicked = %v, want exactly the first target before cancellation", clicked)
	}
}
