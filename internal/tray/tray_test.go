package tray

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ayusman/mudra/internal/app"
)

func TestGestureTitle(t *testing.T) {
	assert.Equal(t, "Last: none", gestureTitle(""))
	assert.Equal(t, "Last: palm", gestureTitle("palm"))
}

func TestTray_UpdateBeforeRun(t *testing.T) {
	tr := New()

	tr.Update(app.Result{Label: "palm", FPS: 29.9})
	assert.Equal(t, "palm", tr.LastGesture())
	assert.Equal(t, "FPS: 29", tr.lastFPS)

	tr.Update(app.Result{Label: "", FPS: 31})
	assert.Equal(t, "palm", tr.LastGesture(), "empty label keeps the last gesture")
	assert.Equal(t, "FPS: 31", tr.lastFPS)
}

func TestTray_Callbacks(t *testing.T) {
	tr := New()

	var previews int
	tr.OnPreview(func() { previews++ })
	tr.handlePreview()
	tr.handlePreview()
	assert.Equal(t, 2, previews)
}
