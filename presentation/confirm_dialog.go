package presentation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"pixelwarden-go/application/watch"
)

// ConfirmDialog presents the match confirmation popup. It implements the
// monitor's Confirmer interface; Confirm is called from the monitor
// goroutine, so all widget work is marshalled onto the UI thread.
type ConfirmDialog struct {
	window fyne.Window
	logger *slog.Logger
}

// NewConfirmDialog creates a confirmation popup bound to the given window.
func NewConfirmDialog(window fyne.Window, logger *slog.Logger) *ConfirmDialog {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmDialog{window: window, logger: logger}
}

// Confirm shows the popup and delivers one decision: the user's choice, or
// nothing if the pipeline times out first and hides the popup. The popup is
// torn down when ctx is cancelled, e.g. by a stop request mid-prompt.
func (d *ConfirmDialog) Confirm(ctx context.Context, m *watch.Match, timeout time.Duration) <-chan watch.Decision {
	decisions := make(chan watch.Decision, 1)
	done := make(chan struct{})
	var once sync.Once

	decide := func(dec watch.Decision) {
		once.Do(func() {
			decisions <- dec
			close(done)
		})
	}

	var dlg dialog.Dialog
	countdown := widget.NewLabel("")

	fyne.Do(func() {
		message := widget.NewLabel(fmt.Sprintf("Rule %q matched. Click its target?", m.Rule.Name))
		content := container.NewVBox(message, countdown)

		dlg = dialog.NewCustomConfirm("Match detected", "Click now", "Skip", content, func(confirmed bool) {
			if confirmed {
				decide(watch.DecisionProceed)
			} else {
				decide(watch.DecisionCancel)
			}
		}, d.window)
		dlg.Show()
	})

	// Countdown label ticks once a second; the pipeline enforces the actual
	// timeout, this goroutine only keeps the popup honest. Every exit hides
	// the dialog: decision, auto-timeout, or pipeline cancellation.
	go func() {
		hide := func() {
			fyne.Do(func() {
				if dlg != nil {
					dlg.Hide()
				}
			})
		}

		deadline := time.Now().Add(timeout)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			if timeout > 0 {
				remaining := time.Until(deadline)
				if remaining <= 0 {
					hide()
					return
				}
				fyne.Do(func() {
					countdown.SetText(fmt.Sprintf("Proceeding automatically in %ds", int(remaining.Seconds())))
				})
			}

			select {
			case <-done:
				hide()
				return
			case <-ctx.Done():
				hide()
				return
			case <-ticker.C:
			}
		}
	}()

	return decisions
}
