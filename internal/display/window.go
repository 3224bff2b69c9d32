package display

import "gocv.io/x/gocv"

// QuitKey is the key that closes the window.
const QuitKey = 'q'

// Window shows frames in a native OpenCV window and watches for the quit key.
// It must be created and used on the thread that runs the processing loop.
type Window struct {
	window  *gocv.Window
	pressed bool
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

// Show displays frame and polls the keyboard for one millisecond.
func (w *Window) Show(frame *gocv.Mat) error {
	w.window.IMShow(*frame)
	if key := w.window.WaitKey(1); key == QuitKey {
		w.pressed = true
	}
	return nil
}

// QuitRequested reports whether the quit key was pressed.
func (w *Window) QuitRequested() bool {
	return w.pressed
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}
