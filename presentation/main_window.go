package presentation

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"pixelwarden-go/core/state"
)

const activityLogCap = 200

// MainWindow is the main application window.
type MainWindow struct {
	window fyne.Window
	bridge *UIEventBridge
	logger *slog.Logger

	// Toolbar
	profileSelect *widget.Select
	startBtn      *widget.Button
	stopBtn       *widget.Button
	saveBtn       *widget.Button
	reloadBtn     *widget.Button
	pickBtn       *widget.Button

	// Status
	statusLabel *widget.Label

	// Activity log
	logLines  []string
	logMu     sync.Mutex
	logLabel  *widget.Label
	logScroll *container.Scroll

	cleanupOnce sync.Once
}

// MainWindowConfig holds configuration for MainWindow. The window is
// created by the caller so that dialogs built before the window exists
// can be parented on it.
type MainWindowConfig struct {
	App    fyne.App
	Window fyne.Window
	Bridge *UIEventBridge
	Logger *slog.Logger
}

// NewMainWindow creates a new main window.
func NewMainWindow(cfg *MainWindowConfig) *MainWindow {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	w := &MainWindow{
		window: cfg.Window,
		bridge: cfg.Bridge,
		logger: cfg.Logger,
	}

	w.init()
	w.setupEventCallbacks()

	w.window.SetOnClosed(func() {
		w.Cleanup()
		cfg.App.Quit()
	})

	return w
}

// Window returns the underlying fyne window, used to parent dialogs.
func (w *MainWindow) Window() fyne.Window {
	return w.window
}

// Show displays the window.
func (w *MainWindow) Show() {
	w.window.Resize(fyne.NewSize(640, 480))
	w.window.Show()
}

// Cleanup stops monitoring and releases UI resources.
func (w *MainWindow) Cleanup() {
	w.cleanupOnce.Do(func() {
		if w.bridge.IsMonitoring() {
			if err := w.bridge.StopMonitoring(); err != nil {
				w.logger.Warn("Failed to stop monitoring on close", "error", err)
			}
		}
		w.bridge.Close()
	})
}

func (w *MainWindow) init() {
	w.profileSelect = widget.NewSelect(w.bridge.ProfileNames(), func(name string) {
		if err := w.bridge.SelectProfile(name); err != nil {
			dialog.ShowError(err, w.window)
		}
	})
	if name := w.bridge.ActiveProfileName(); name != "" {
		w.profileSelect.SetSelected(name)
	}

	w.startBtn = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), func() {
		if err := w.bridge.StartMonitoring(w.profileSelect.Selected); err != nil {
			dialog.ShowError(err, w.window)
		}
	})
	w.stopBtn = widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), func() {
		if err := w.bridge.StopMonitoring(); err != nil {
			dialog.ShowError(err, w.window)
		}
	})
	w.stopBtn.Disable()

	w.saveBtn = widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), func() {
		name := w.profileSelect.Selected
		if name == "" {
			return
		}
		if err := w.bridge.SaveProfile(name); err != nil {
			dialog.ShowError(err, w.window)
		}
	})
	w.reloadBtn = widget.NewButtonWithIcon("Reload", theme.ViewRefreshIcon(), func() {
		if err := w.bridge.ReloadProfiles(); err != nil {
			dialog.ShowError(err, w.window)
			return
		}
		w.profileSelect.Options = w.bridge.ProfileNames()
		w.profileSelect.Refresh()
	})
	w.pickBtn = widget.NewButtonWithIcon("Pick position", theme.SearchIcon(), func() {
		if err := w.bridge.PickPosition(10); err != nil {
			dialog.ShowError(err, w.window)
			return
		}
		w.appendLog("Click anywhere on the screen to pick a position")
	})

	toolbar := container.NewHBox(
		widget.NewLabel("Profile:"),
		w.profileSelect,
		w.startBtn,
		w.stopBtn,
		w.saveBtn,
		w.reloadBtn,
		w.pickBtn,
	)

	w.statusLabel = widget.NewLabel("Idle")
	w.logLabel = widget.NewLabel("")
	w.logLabel.Wrapping = fyne.TextWrapWord
	w.logScroll = container.NewVScroll(w.logLabel)

	content := container.NewBorder(toolbar, w.statusLabel, nil, nil, w.logScroll)
	w.window.SetContent(content)
}

func (w *MainWindow) setupEventCallbacks() {
	w.bridge.SetCallbacks(&UICallbacks{
		OnMonitorStarted: func(profileName string, ruleCount int) {
			fyne.Do(func() {
				w.startBtn.Disable()
				w.stopBtn.Enable()
			})
			w.appendLog(fmt.Sprintf("Monitoring started: profile %q, %d rule(s)", profileName, ruleCount))
		},
		OnMonitorStopped: func(err error) {
			fyne.Do(func() {
				w.startBtn.Enable()
				w.stopBtn.Disable()
			})
			if err != nil {
				w.appendLog(fmt.Sprintf("Monitoring stopped: %v", err))
			} else {
				w.appendLog("Monitoring stopped")
			}
		},
		OnMonitorStateChanged: func(oldState, newState state.MonitorState) {
			fyne.Do(func() {
				w.statusLabel.SetText(newState.String())
			})
		},
		OnMonitorError: func(message string, err error) {
			w.appendLog(fmt.Sprintf("Error: %s (%v)", message, err))
		},
		OnRuleMatched: func(ruleName string, matchedAt time.Time) {
			w.appendLog(fmt.Sprintf("Rule %q matched", ruleName))
		},
		OnInterventionResolved: func(ruleName string, proceeded bool, reason string) {
			if proceeded {
				w.appendLog(fmt.Sprintf("Rule %q: proceeding (%s)", ruleName, reason))
			} else {
				w.appendLog(fmt.Sprintf("Rule %q: skipped (%s)", ruleName, reason))
			}
		},
		OnClickPerformed: func(ruleName string, success bool, x, y int, clickType string, err error) {
			if success {
				w.appendLog(fmt.Sprintf("Clicked (%d,%d) for rule %q", x, y, ruleName))
			} else {
				w.appendLog(fmt.Sprintf("Click failed for rule %q: %v", ruleName, err))
			}
		},
		OnProfileLoaded: func(profileName string, ruleCount int) {
			w.appendLog(fmt.Sprintf("Profile %q loaded with %d rule(s)", profileName, ruleCount))
		},
		OnProfileSaved: func(profileName string) {
			w.appendLog(fmt.Sprintf("Profile %q saved", profileName))
		},
		OnPositionPicked: func(x, y int) {
			w.appendLog(fmt.Sprintf("Picked position (%d,%d)", x, y))
		},
	})
}

func (w *MainWindow) appendLog(line string) {
	stamp := time.Now().Format("15:04:05")

	w.logMu.Lock()
	w.logLines = append(w.logLines, fmt.Sprintf("[%s] %s", stamp, line))
	if len(w.logLines) > activityLogCap {
		w.logLines = w.logLines[len(w.logLines)-activityLogCap:]
	}
	text := strings.Join(w.logLines, "\n")
	w.logMu.Unlock()

	fyne.Do(func() {
		w.logLabel.SetText(text)
		w.logScroll.ScrollToBottom()
	})
}
