// Package screen provides screen capture infrastructure backed by robotgo.
package screen

import (
	"context"
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
)

// Grabber captures regions of the OS desktop.
// It satisfies the detection engine's capturer interface.
type Grabber struct{}

// NewGrabber creates a new screen grabber.
func NewGrabber() *Grabber {
	return &Grabber{}
}

// CaptureRegion captures a w x h region of the screen starting at (x, y).
func (g *Grabber) CaptureRegion(ctx context.Context, x, y, w, h int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid capture region %dx%d at (%d,%d)", w, h, x, y)
	}

	img, err := robotgo.CaptureImg(x, y, w, h)
	if err != nil {
		return nil, fmt.Errorf("screen capture at (%d,%d) %dx%d: %w", x, y, w, h, err)
	}
	return img, nil
}

// Size returns the primary screen dimensions in pixels.
func (g *Grabber) Size() (width, height int) {
	return robotgo.GetScreenSize()
}

// Bounds returns the primary screen as a rectangle anchored at the origin.
func (g *Grabber) Bounds() image.Rectangle {
	w, h := robotgo.GetScreenSize()
	return image.Rect(0, 0, w, h)
}
