// Package pointer provides mouse control infrastructure backed by robotgo.
package pointer

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// Config contains pointer dispatch settings.
type Config struct {
	// MoveDelayMs is the pause between moving the cursor and pressing the button.
	MoveDelayMs int
	// DoubleClickIntervalMs is the pause between the two presses of a double click.
	DoubleClickIntervalMs int
}

// DefaultConfig returns default pointer settings.
func DefaultConfig() *Config {
	return &Config{
		MoveDelayMs:           50,
		DoubleClickIntervalMs: 80,
	}
}

// RobotDispatcher drives the real OS cursor via robotgo.
type RobotDispatcher struct {
	config *Config
}

// NewRobotDispatcher creates a dispatcher with the given config.
func NewRobotDispatcher(config *Config) *RobotDispatcher {
	if config == nil {
		config = DefaultConfig()
	}
	return &RobotDispatcher{config: config}
}

// MoveTo moves the cursor to (x, y).
func (d *RobotDispatcher) MoveTo(x, y int) {
	robotgo.Move(x, y)
}

// Click moves to (x, y) and presses the given button.
// button is "left" or "right"; double performs a double click.
func (d *RobotDispatcher) Click(x, y int, button string, double bool) error {
	if button != "left" && button != "right" {
		return fmt.Errorf("unsupported mouse button %q", button)
	}

	robotgo.Move(x, y)
	robotgo.MilliSleep(d.config.MoveDelayMs)

	if double && button == "left" {
		robotgo.Click(button, false)
		robotgo.MilliSleep(d.config.DoubleClickIntervalMs)
		robotgo.Click(button, false)
		return nil
	}

	robotgo.Click(button, false)
	return nil
}

// Location returns the current cursor position.
func (d *RobotDispatcher) Location() (x, y int) {
	return robotgo.Location()
}

// ScreenSize returns the primary screen dimensions.
func (d *RobotDispatcher) ScreenSize() (width, height int) {
	return robotgo.GetScreenSize()
}
