// Package detect evaluates rule conditions against screen captures.
package detect

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"pixelwarden-go/domain/rule"
)

// Capturer captures a rectangular screen region as an image.
// Implementations must return an error, never panic, on capture failure.
type Capturer interface {
	CaptureRegion(ctx context.Context, x, y, width, height int) (image.Image, error)
}

// TextReader extracts text from a captured image.
type TextReader interface {
	ExtractText(ctx context.Context, img image.Image) (string, error)
}

// Error wraps a capture or OCR backend failure. It is always recovered at
// the engine boundary: the condition evaluates to not-matched and the error
// is carried in the result for logging.
type Error struct {
	Stage string // "capture" or "ocr"
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("detection %s failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result is the outcome of evaluating one condition on one frame.
// Results are ephemeral: produced per tick, consumed immediately.
type Result struct {
	Matched   bool
	Condition *rule.Condition
	// Observed carries diagnostic data: the sampled color or extracted text.
	Observed string
	Err      error
}

// Config holds tunables for the detection engine.
type Config struct {
	// PointTextWindow is the square window captured around a point region
	// for text conditions, since OCR needs context pixels.
	PointTextWindow int
	// EqualsTolerance is the implicit per-channel tolerance applied to the
	// equals comparator, absorbing minor screen rendering variation.
	EqualsTolerance int
	// SimilarityThreshold is the minimum text similarity score for the
	// similar comparator.
	SimilarityThreshold float64
}

// DefaultConfig returns the default detection tunables.
func DefaultConfig() *Config {
	return &Config{
		PointTextWindow:     200,
		EqualsTolerance:     3,
		SimilarityThreshold: 0.7,
	}
}

// Engine evaluates conditions using a screen capturer and an OCR reader.
// It is a leaf component: no knowledge of rules' logic or scheduling.
type Engine struct {
	capturer Capturer
	reader   TextReader
	config   *Config
	logger   *slog.Logger
}

// NewEngine creates a detection engine.
func NewEngine(capturer Capturer, reader TextReader, cfg *Config, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		capturer: capturer,
		reader:   reader,
		config:   cfg,
		logger:   logger,
	}
}

// Evaluate checks a single condition against a fresh capture of its region.
// Backend failures never propagate: they yield a not-matched result with
// the error attached.
func (e *Engine) Evaluate(ctx context.Context, cond *rule.Condition) Result {
	switch cond.Kind {
	case rule.KindColor:
		return e.evaluateColor(ctx, cond)
	case rule.KindText:
		return e.evaluateText(ctx, cond)
	default:
		return Result{
			Condition: cond,
			Err:       fmt.Errorf("unknown condition kind %q", cond.Kind),
		}
	}
}

func (e *Engine) evaluateColor(ctx context.Context, cond *rule.Condition) Result {
	region := cond.Region

	if region.IsPoint() {
		img, err := e.capturer.CaptureRegion(ctx, region.Min.X, region.Min.Y, 1, 1)
		if err != nil {
			return Result{Condition: cond, Err: &Error{Stage: "capture", Err: err}}
		}
		observed := rgbaAt(img, img.Bounds().Min.X, img.Bounds().Min.Y)
		matched := e.colorMatches(observed, cond.Color, cond.Comparator, cond.Tolerance)
		return Result{
			Matched:   matched,
			Condition: cond,
			Observed:  formatColor(observed),
		}
	}

	// Rect regions use existential semantics: any pixel within tolerance
	// matches. This is what lets area detection tolerate anti-aliasing.
	width, height := region.Width(), region.Height()
	img, err := e.capturer.CaptureRegion(ctx, region.Min.X, region.Min.Y, width, height)
	if err != nil {
		return Result{Condition: cond, Err: &Error{Stage: "capture", Err: err}}
	}

	bounds := img.Bounds()
	matching := 0
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			total++
			if e.colorMatches(rgbaAt(img, x, y), cond.Color, cond.Comparator, cond.Tolerance) {
				matching++
			}
		}
	}

	return Result{
		Matched:   matching > 0,
		Condition: cond,
		Observed:  fmt.Sprintf("%d/%d pixels within tolerance", matching, total),
	}
}

func (e *Engine) evaluateText(ctx context.Context, cond *rule.Condition) Result {
	region := cond.Region

	var x, y, width, height int
	if region.IsPoint() {
		// OCR needs surrounding context; capture a fixed window centered
		// on the point, clamped at the origin.
		win := e.config.PointTextWindow
		x = region.Min.X - win/2
		y = region.Min.Y - win/2
		if x < 0 {
			x = 0
		}
		if y < 0 {
			y = 0
		}
		width, height = win, win
	} else {
		x, y = region.Min.X, region.Min.Y
		width, height = region.Width(), region.Height()
	}

	img, err := e.capturer.CaptureRegion(ctx, x, y, width, height)
	if err != nil {
		return Result{Condition: cond, Err: &Error{Stage: "capture", Err: err}}
	}

	text, err := e.reader.ExtractText(ctx, img)
	if err != nil {
		return Result{Condition: cond, Err: &Error{Stage: "ocr", Err: err}}
	}

	matched := e.textMatches(text, cond.Text, cond.Comparator)
	return Result{
		Matched:   matched,
		Condition: cond,
		Observed:  text,
	}
}

// colorMatches compares an observed color against the target. The equals
// comparator uses a small implicit tolerance; similar (and contains, which
// color conditions treat as similar) uses the configured tolerance. A color
// is within tolerance when every channel differs by at most the tolerance,
// or when the Euclidean RGB distance is within 1.5x the tolerance.
func (e *Engine) colorMatches(observed, target color.RGBA, cmp rule.Comparator, tolerance int) bool {
	if cmp == rule.CompEquals {
		tolerance = e.config.EqualsTolerance
	}

	dr := absDiff(observed.R, target.R)
	dg := absDiff(observed.G, target.G)
	db := absDiff(observed.B, target.B)

	if dr <= tolerance && dg <= tolerance && db <= tolerance {
		return true
	}

	dist := math.Sqrt(float64(dr*dr + dg*dg + db*db))
	return dist <= float64(tolerance)*1.5
}

func (e *Engine) textMatches(observed, target string, cmp rule.Comparator) bool {
	obs := normalizeText(observed)
	tgt := normalizeText(target)
	if tgt == "" {
		return false
	}

	switch cmp {
	case rule.CompEquals:
		return obs == tgt
	case rule.CompContains:
		return contains(obs, tgt)
	case rule.CompSimilar:
		return Similarity(obs, tgt) >= e.config.SimilarityThreshold
	default:
		return false
	}
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	r, g, b, a := img.At(x, y).RGBA()
	return color.RGBA{
		R: uint8(r >> 8),
		G: uint8(g >> 8),
		B: uint8(b >> 8),
		A: uint8(a >> 8),
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func formatColor(c color.RGBA) string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}
