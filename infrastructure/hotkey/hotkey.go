// Package hotkey provides global input hooks: an emergency stop key and a
// mouse position picker.
package hotkey

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
	hook "github.com/robotn/gohook"
)

// doubleTapWindow is the maximum gap between two escape presses that
// still counts as an emergency stop.
const doubleTapWindow = time.Second

type point struct {
	X int
	Y int
}

// Listener owns the global event hook. gohook's event stream is
// process-global, so a single Listener multiplexes it for every consumer:
// the emergency stop key and any in-flight position pick share one
// hook.Start/hook.End pair.
type Listener struct {
	mu       sync.Mutex
	stopChan chan struct{}
	pick     chan point // non-nil while a pick is waiting for a click

	onStop  func()
	lastEsc time.Time

	// locate reads the cursor position, replaceable in tests.
	locate func() (int, int)
}

// NewListener creates an inactive listener.
func NewListener() *Listener {
	return &Listener{locate: robotgo.Location}
}

// StartEmergencyStop starts the global hook and registers the escape key
// pressed twice within a second to invoke onStop. Call Stop to release
// the hook.
func (l *Listener) StartEmergencyStop(onStop func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopChan != nil {
		return
	}
	l.stopChan = make(chan struct{})
	l.onStop = onStop

	stopChan := l.stopChan
	go func() {
		evChan := hook.Start()
		defer hook.End()

		for {
			select {
			case ev := <-evChan:
				l.handleEvent(ev)
			case <-stopChan:
				return
			}
		}
	}()
}

// handleEvent dispatches one hook event to whichever consumer wants it.
func (l *Listener) handleEvent(ev hook.Event) {
	switch ev.Kind {
	case hook.KeyDown:
		if ev.Keycode != hook.Keycode["esc"] {
			return
		}
		now := time.Now()
		if now.Sub(l.lastEsc) < doubleTapWindow {
			l.lastEsc = time.Time{}
			if l.onStop != nil {
				l.onStop()
			}
		} else {
			l.lastEsc = now
		}
	case hook.MouseDown:
		l.mu.Lock()
		ch := l.pick
		l.pick = nil
		l.mu.Unlock()
		if ch != nil {
			x, y := l.locate()
			ch <- point{X: x, Y: y} // buffered, never blocks
		}
	}
}

// Stop releases the global hook.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopChan != nil {
		close(l.stopChan)
		l.stopChan = nil
	}
}

// PickPosition waits for the next mouse click and returns its screen
// position. timeout specifies the wait duration in seconds, 0 means wait
// indefinitely. The listener must be started; only one pick may be in
// flight at a time.
func (l *Listener) PickPosition(timeout float64) (int, int, error) {
	ch := make(chan point, 1)

	l.mu.Lock()
	if l.stopChan == nil {
		l.mu.Unlock()
		return 0, 0, fmt.Errorf("input hook is not running")
	}
	if l.pick != nil {
		l.mu.Unlock()
		return 0, 0, fmt.Errorf("a position pick is already in progress")
	}
	l.pick = ch
	l.mu.Unlock()

	var timeoutChan <-chan time.Time
	if timeout > 0 {
		timeoutChan = time.After(time.Duration(timeout * float64(time.Second)))
	}

	select {
	case pos := <-ch:
		return pos.X, pos.Y, nil
	case <-timeoutChan:
		l.mu.Lock()
		if l.pick == ch {
			l.pick = nil
		}
		l.mu.Unlock()
		// A click may have landed as the timer fired.
		select {
		case pos := <-ch:
			return pos.X, pos.Y, nil
		default:
		}
		return 0, 0, fmt.Errorf("timed out waiting for click")
	}
}
