// Package display provides the sinks annotated frames are shown on and the
// quit signals the processing loop polls.
package display

import (
	"context"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Sink shows annotated frames. Show must not retain frame after returning.
type Sink interface {
	Show(frame *gocv.Mat) error
	Close() error
}

// QuitSignal reports whether the user asked to stop.
type QuitSignal interface {
	QuitRequested() bool
}

// QuitFunc adapts a function to QuitSignal.
type QuitFunc func() bool

// QuitRequested calls f.
func (f QuitFunc) QuitRequested() bool { return f() }

// Never is a QuitSignal that never fires.
var Never QuitSignal = QuitFunc(func() bool { return false })

// ContextQuit fires once ctx is done.
func ContextQuit(ctx context.Context) QuitSignal {
	return QuitFunc(func() bool { return ctx.Err() != nil })
}

// AnyQuit fires when any of signals fires. Nil entries are skipped.
func AnyQuit(signals ...QuitSignal) QuitSignal {
	return QuitFunc(func() bool {
		for _, s := range signals {
			if s != nil && s.QuitRequested() {
				return true
			}
		}
		return false
	})
}

// QuitFlag is a QuitSignal that can be raised from another goroutine, such
// as a tray menu handler.
type QuitFlag struct {
	set atomic.Bool
}

// Raise marks the flag; QuitRequested returns true from then on.
func (f *QuitFlag) Raise() { f.set.Store(true) }

// QuitRequested implements QuitSignal.
func (f *QuitFlag) QuitRequested() bool { return f.set.Load() }

// Discard drops every frame. It is used for headless runs.
type Discard struct {
	mu     sync.Mutex
	frames int
}

// Show counts the frame and returns.
func (d *Discard) Show(frame *gocv.Mat) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames++
	return nil
}

// Frames returns how many frames were shown.
func (d *Discard) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Close is a no-op.
func (d *Discard) Close() error { return nil }

// Multi fans frames out to several sinks. Every sink sees every frame; the
// first error is returned.
type Multi []Sink

// Show shows frame on each sink.
func (m Multi) Show(frame *gocv.Mat) error {
	var first error
	for _, s := range m {
		if err := s.Show(frame); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes each sink and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
