// Package app wires the frame source, hand detector, classifier and display
// into the gesture recognition loop.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/display"
	"github.com/ayusman/mudra/internal/features"
)

// Config holds the components the application runs with.
type Config struct {
	Camera        capture.Camera
	Detector      detector.Detector
	Classifier    *classifier.Classifier
	Sink          display.Sink
	Quit          display.QuitSignal
	Axes          features.AxisOrder
	DrawLandmarks bool
}

// Stats is a snapshot of the running application.
type Stats struct {
	State  string        `json:"state"`
	Frames int           `json:"frames"`
	FPS    float64       `json:"fps"`
	Label  string        `json:"label"`
	Uptime time.Duration `json:"uptime"`
}

// App owns the resources of one recognition session.
type App struct {
	config  Config
	loop    *Loop
	started time.Time

	mu     sync.RWMutex
	last   Result
	cancel context.CancelFunc
	done   chan error
}

// New creates an App. The camera is opened by Run or Start.
func New(config Config) (*App, error) {
	if config.Detector == nil {
		config.Detector = NewDetector(detector.DefaultConfig())
	}

	loop, err := NewLoop(LoopConfig{
		Source:        config.Camera,
		Detector:      config.Detector,
		Classifier:    config.Classifier,
		Sink:          config.Sink,
		Quit:          config.Quit,
		Axes:          config.Axes,
		DrawLandmarks: config.DrawLandmarks,
	})
	if err != nil {
		return nil, err
	}

	a := &App{config: config, loop: loop}
	loop.OnResult(func(r Result) {
		a.mu.Lock()
		a.last = r
		a.mu.Unlock()
	})
	return a, nil
}

// NewDetector tries MediaPipe first and falls back to a mock detector that
// never finds a hand.
func NewDetector(cfg detector.Config) detector.Detector {
	mp, err := detector.NewMediaPipeDetector(cfg)
	if err != nil {
		log.Warnf("MediaPipe not available (%v), using mock detector", err)
		return detector.NewMockDetector()
	}
	log.Info("Using MediaPipe hand detection")
	return mp
}

// Run opens the camera and processes frames on the calling goroutine until
// the loop stops. Resources are released before it returns. Use Run when the
// sink is a native window, which must be driven from the main thread.
func (a *App) Run(ctx context.Context) error {
	if err := a.config.Camera.Open(); err != nil {
		return err
	}
	defer a.release()

	a.mu.Lock()
	a.started = time.Now()
	a.mu.Unlock()

	log.Info("Detection loop started")
	return a.loop.Run(ctx)
}

// Start runs the loop on a new goroutine. Wait or Stop collect its result.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.done != nil {
		a.mu.Unlock()
		return errors.New("app: already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan error, 1)
	done := a.done
	a.mu.Unlock()

	if err := a.config.Camera.Open(); err != nil {
		cancel()
		a.mu.Lock()
		a.done, a.cancel = nil, nil
		a.mu.Unlock()
		return err
	}

	a.mu.Lock()
	a.started = time.Now()
	a.mu.Unlock()

	go func() {
		log.Info("Detection loop started")
		err := a.loop.Run(ctx)
		a.release()
		cancel()
		done <- err
		close(done)
	}()
	return nil
}

// Wait blocks until a loop started with Start has stopped.
func (a *App) Wait() error {
	a.mu.RLock()
	done := a.done
	a.mu.RUnlock()
	if done == nil {
		return nil
	}
	return <-done
}

// Stop cancels a loop started with Start and waits for it.
func (a *App) Stop() error {
	a.mu.RLock()
	cancel := a.cancel
	a.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	return a.Wait()
}

func (a *App) release() {
	if err := a.config.Camera.Close(); err != nil {
		log.Warnf("Error closing camera: %v", err)
	}
	if err := a.config.Detector.Close(); err != nil {
		log.Warnf("Error closing detector: %v", err)
	}
	if err := a.config.Sink.Close(); err != nil {
		log.Warnf("Error closing display: %v", err)
	}
	log.Info("Detection loop stopped")
}

// OnResult registers an observer for per-frame results.
func (a *App) OnResult(fn func(Result)) {
	a.loop.OnResult(fn)
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	return a.config.Detector
}

// Stats returns a snapshot for health reporting.
func (a *App) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := Stats{
		State:  a.loop.State().String(),
		Frames: a.loop.Frames(),
		FPS:    a.last.FPS,
		Label:  a.last.Label,
	}
	if !a.started.IsZero() {
		s.Uptime = time.Since(a.started)
	}
	return s
}
