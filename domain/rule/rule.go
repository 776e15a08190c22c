// Package rule defines the detection rule model for screen automation.
package rule

import (
	"fmt"
	"image/color"
)

// ConditionKind identifies what a condition detects.
type ConditionKind string

const (
	KindColor ConditionKind = "color"
	KindText  ConditionKind = "text"
)

// Comparator defines how an observed value is compared against the target.
type Comparator string

const (
	CompEquals   Comparator = "equals"
	CompContains Comparator = "contains"
	CompSimilar  Comparator = "similar"
)

// Logic combines multiple condition results into one verdict.
type Logic string

const (
	LogicAll Logic = "all"
	LogicAny Logic = "any"
	LogicNOf Logic = "n-of"
)

// ClickStrategy selects the click coordinate from a rule's conditions.
type ClickStrategy string

const (
	// StrategyFirst clicks the first condition's reference point.
	StrategyFirst ClickStrategy = "first"
	// StrategyCenter clicks the arithmetic mean of all reference points.
	StrategyCenter ClickStrategy = "center"
	// StrategyAll clicks every condition's reference point in order.
	StrategyAll ClickStrategy = "all"
)

// ClickType is the kind of mouse click to dispatch.
type ClickType string

const (
	ClickSingle ClickType = "single"
	ClickDouble ClickType = "double"
	ClickRight  ClickType = "right"
)

// Point is a screen coordinate.
type Point struct {
	X, Y int
}

// Region is the screen area a condition observes: a single point or a
// rectangle. For a point region Min == Max.
type Region struct {
	Min Point
	Max Point
}

// PointRegion creates a single-point region.
func PointRegion(x, y int) Region {
	return Region{Min: Point{x, y}, Max: Point{x, y}}
}

// RectRegion creates a rectangular region. Coordinates are normalized so
// Min is the top-left corner.
func RectRegion(x1, y1, x2, y2 int) Region {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return Region{Min: Point{x1, y1}, Max: Point{x2, y2}}
}

// IsPoint returns true for a single-point region.
func (r Region) IsPoint() bool {
	return r.Min == r.Max
}

// Width returns the region width in pixels (0 for a point).
func (r Region) Width() int {
	return r.Max.X - r.Min.X
}

// Height returns the region height in pixels (0 for a point).
func (r Region) Height() int {
	return r.Max.Y - r.Min.Y
}

// Reference returns the region's click reference point: the point itself,
// or the center of a rectangle.
func (r Region) Reference() Point {
	if r.IsPoint() {
		return r.Min
	}
	return Point{(r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2}
}

// Condition is a single detectable predicate over a screen region. It is a
// tagged variant: color conditions carry Color, text conditions carry Text.
// Conditions are validated at construction and immutable afterwards.
type Condition struct {
	Kind       ConditionKind
	Region     Region
	Color      color.RGBA
	Text       string
	Comparator Comparator
	Tolerance  int
}

// NewColorCondition creates a validated color condition.
func NewColorCondition(region Region, target color.RGBA, cmp Comparator, tolerance int) (*Condition, error) {
	if cmp != CompEquals && cmp != CompSimilar && cmp != CompContains {
		return nil, fmt.Errorf("invalid comparator %q for color condition", cmp)
	}
	if tolerance < 0 || tolerance > 255 {
		return nil, fmt.Errorf("color tolerance %d out of range [0, 255]", tolerance)
	}
	return &Condition{
		Kind:       KindColor,
		Region:     region,
		Color:      target,
		Comparator: cmp,
		Tolerance:  tolerance,
	}, nil
}

// NewTextCondition creates a validated text condition.
func NewTextCondition(region Region, target string, cmp Comparator) (*Condition, error) {
	if target == "" {
		return nil, fmt.Errorf("text condition requires a non-empty target")
	}
	if cmp != CompEquals && cmp != CompContains && cmp != CompSimilar {
		return nil, fmt.Errorf("invalid comparator %q for text condition", cmp)
	}
	return &Condition{
		Kind:       KindText,
		Region:     region,
		Text:       target,
		Comparator: cmp,
	}, nil
}

// Group is a named set of conditions combined under their own logic. Group
// verdicts feed into the rule-level logic alongside standalone conditions.
type Group struct {
	Name       string
	Conditions []*Condition
	Logic      Logic
	N          int // required matches for n-of logic
}

// Validate checks the group's logic configuration.
func (g *Group) Validate() error {
	if len(g.Conditions) == 0 {
		return fmt.Errorf("group %q has no conditions", g.Name)
	}
	return validateLogic(g.Logic, g.N, len(g.Conditions))
}

// Rule is the unit of evaluation: condition groups plus standalone
// conditions combined under a top-level logic, and a click target.
type Rule struct {
	Name       string
	Groups     []*Group
	Conditions []*Condition // standalone conditions, outside any group
	Logic      Logic
	N          int

	// ClickPosition, when set, overrides strategy-based resolution.
	ClickPosition *Point
	ClickStrategy ClickStrategy
	ClickType     ClickType
}

// Validate checks the rule's structure and logic configuration.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule requires a name")
	}
	total := len(r.Groups) + len(r.Conditions)
	if total == 0 {
		return fmt.Errorf("rule %q has no conditions", r.Name)
	}
	if err := validateLogic(r.Logic, r.N, total); err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}
	for _, g := range r.Groups {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
	}
	switch r.ClickStrategy {
	case StrategyFirst, StrategyCenter, StrategyAll, "":
	default:
		return fmt.Errorf("rule %q: unknown click strategy %q", r.Name, r.ClickStrategy)
	}
	switch r.ClickType {
	case ClickSingle, ClickDouble, ClickRight, "":
	default:
		return fmt.Errorf("rule %q: unknown click type %q", r.Name, r.ClickType)
	}
	return nil
}

// AllConditions returns every condition in evaluation order: grouped
// conditions first (group by group), then standalone conditions.
func (r *Rule) AllConditions() []*Condition {
	var conds []*Condition
	for _, g := range r.Groups {
		conds = append(conds, g.Conditions...)
	}
	conds = append(conds, r.Conditions...)
	return conds
}

// ConditionCount returns the total number of conditions in the rule.
func (r *Rule) ConditionCount() int {
	n := len(r.Conditions)
	for _, g := range r.Groups {
		n += len(g.Conditions)
	}
	return n
}

// Summary returns a short human-readable description for status display.
func (r *Rule) Summary() string {
	return fmt.Sprintf("%s (%d condition(s), %s logic)", r.Name, r.ConditionCount(), r.Logic)
}

func validateLogic(logic Logic, n, total int) error {
	switch logic {
	case LogicAll, LogicAny:
		return nil
	case LogicNOf:
		if n < 1 || n > total {
			return fmt.Errorf("n-of logic requires 1 <= n <= %d, got %d", total, n)
		}
		return nil
	default:
		return fmt.Errorf("unknown logic %q", logic)
	}
}
