// Package tray provides a system tray interface showing the last recognized
// gesture and the current frame rate.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/overlay"
)

// Tray represents the system tray application.
type Tray struct {
	onPreview func()
	onQuit    func()
	mu        sync.RWMutex

	lastLabel string
	lastFPS   string

	// Menu items stored for later updates
	menuLastGesture *systray.MenuItem
	menuFPS         *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnPreview sets the callback for the "Open Preview" menu item. The item is
// only shown when a callback is set before Run.
func (t *Tray) OnPreview(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPreview = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application. It must be called from the main
// goroutine and blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("mudra")
	systray.SetTooltip("mudra hand gesture recognition")

	t.mu.Lock()
	t.menuLastGesture = systray.AddMenuItem(gestureTitle(t.lastLabel), "Last recognized gesture")
	t.menuLastGesture.Disable()
	t.menuFPS = systray.AddMenuItem(overlay.FormatFPS(0), "Processing frame rate")
	t.menuFPS.Disable()
	preview := t.onPreview
	t.mu.Unlock()
	systray.AddSeparator()

	var previewClicked chan struct{}
	if preview != nil {
		previewClicked = systray.AddMenuItem("Open Preview...", "Open the live preview in a browser").ClickedCh
		systray.AddSeparator()
	}

	menuQuit := systray.AddMenuItem("Quit", "Quit mudra")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-previewClicked:
				t.handlePreview()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handlePreview handles the preview menu item click.
func (t *Tray) handlePreview() {
	t.mu.RLock()
	callback := t.onPreview
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Update refreshes the menu from a loop result. Menu titles are only
// rewritten when their text changes.
func (t *Tray) Update(r app.Result) {
	t.SetLastGesture(r.Label)
	t.SetFPS(r.FPS)
}

// SetLastGesture updates the last gesture display in the menu. Frames with no
// recognized gesture keep the previous one.
func (t *Tray) SetLastGesture(name string) {
	if name == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if name == t.lastLabel {
		return
	}
	t.lastLabel = name
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(gestureTitle(name))
	}
}

// SetFPS updates the frame rate display in the menu.
func (t *Tray) SetFPS(fps float64) {
	title := overlay.FormatFPS(fps)

	t.mu.Lock()
	defer t.mu.Unlock()

	if title == t.lastFPS {
		return
	}
	t.lastFPS = title
	if t.menuFPS != nil {
		t.menuFPS.SetTitle(title)
	}
}

// LastGesture returns the last gesture shown in the menu.
func (t *Tray) LastGesture() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastLabel
}

func gestureTitle(name string) string {
	if name == "" {
		return "Last: none"
	}
	return fmt.Sprintf("Last: %s", name)
}
