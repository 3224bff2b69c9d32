package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/display"
	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/timing"
)

// State is the lifecycle state of a Loop.
type State int32

const (
	StateRunning State = iota
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Result is what the loop recognized on one rendered frame.
type Result struct {
	Frame     int       `json:"frame"`
	Label     string    `json:"label"`
	Index     int       `json:"index"`
	Score     float64   `json:"score"`
	FPS       float64   `json:"fps"`
	Hand      bool      `json:"hand"`
	Timestamp time.Time `json:"timestamp"`
}

// LoopConfig holds the collaborators of a Loop.
type LoopConfig struct {
	Source     capture.Camera
	Detector   detector.Detector
	Classifier *classifier.Classifier
	Sink       display.Sink
	// Quit is polled once per iteration. Nil means only ctx stops the loop.
	Quit display.QuitSignal
	// Axes selects which frame dimension scales which landmark coordinate.
	Axes features.AxisOrder
	// Tracker defaults to timing.New().
	Tracker       *timing.Tracker
	DrawLandmarks bool
}

// Loop reads frames, recognizes the gesture on each one and shows the
// annotated result until the source runs out or the user quits.
type Loop struct {
	source        capture.Camera
	detector      detector.Detector
	normalizer    *features.Normalizer
	classifier    *classifier.Classifier
	tracker       *timing.Tracker
	sink          display.Sink
	quit          display.QuitSignal
	drawLandmarks bool

	state  atomic.Int32
	frames atomic.Int64

	mu        sync.Mutex
	observers []func(Result)
	onState   []func(State)
}

// NewLoop validates cfg and returns a loop ready to Run.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	switch {
	case cfg.Source == nil:
		return nil, errors.New("loop: frame source is required")
	case cfg.Detector == nil:
		return nil, errors.New("loop: hand detector is required")
	case cfg.Classifier == nil:
		return nil, errors.New("loop: classifier is required")
	case cfg.Sink == nil:
		return nil, errors.New("loop: display sink is required")
	}

	quit := cfg.Quit
	if quit == nil {
		quit = display.Never
	}
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = timing.New()
	}

	l := &Loop{
		source:        cfg.Source,
		detector:      cfg.Detector,
		normalizer:    features.NewNormalizer(cfg.Axes),
		classifier:    cfg.Classifier,
		tracker:       tracker,
		sink:          cfg.Sink,
		quit:          quit,
		drawLandmarks: cfg.DrawLandmarks,
	}
	l.state.Store(int32(StateStopped))
	return l, nil
}

// OnResult registers fn to be called after every rendered frame. Observers
// run on the loop goroutine and must not block.
func (l *Loop) OnResult(fn func(Result)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

// OnStateChange registers fn to be called on every state transition.
func (l *Loop) OnStateChange(fn func(State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onState = append(l.onState, fn)
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Frames returns how many frames have been rendered.
func (l *Loop) Frames() int {
	return int(l.frames.Load())
}

// Run processes frames until the source is exhausted, the quit signal fires
// or ctx is cancelled. Running out of frames is the normal way to stop and
// is not reported as an error.
func (l *Loop) Run(ctx context.Context) error {
	if l.State() == StateRunning {
		return errors.New("loop: already running")
	}
	l.setState(StateRunning)
	defer l.setState(StateStopped)
	l.tracker.Reset()

	for l.State() == StateRunning {
		frame, err := l.source.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				log.Debug("Frame source exhausted")
			} else {
				log.Warnf("Failed to grab frame: %v", err)
			}
			l.setState(StateStopping)
			break
		}

		l.process(frame)

		if l.quit.QuitRequested() || ctx.Err() != nil {
			log.Debug("Quit requested")
			l.setState(StateStopping)
		}
	}

	log.Infof("Processing loop stopped after %d frames", l.Frames())
	return nil
}

func (l *Loop) process(frame *gocv.Mat) {
	defer frame.Close()

	mirrored := gocv.NewMat()
	defer mirrored.Close()
	gocv.Flip(*frame, &mirrored, 1)

	res, hand := l.recognize(&mirrored)
	res.FPS = l.tracker.Tick()

	if l.drawLandmarks && hand != nil {
		overlay.DrawLandmarks(&mirrored, hand)
	}
	overlay.Annotate(&mirrored, res.Label, res.FPS)
	if err := l.sink.Show(&mirrored); err != nil {
		log.Debugf("Display sink: %v", err)
	}

	res.Frame = int(l.frames.Add(1))
	res.Timestamp = time.Now()
	l.notify(res)
}

// recognize runs detection and classification on frame. Every failure,
// including a panic in the detector or scorer, yields an empty label.
func (l *Loop) recognize(frame *gocv.Mat) (res Result, hand *detector.HandLandmarks) {
	res.Index = -1

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recognition panicked: %v", r)
			res = Result{Index: -1}
			hand = nil
		}
	}()

	hands, err := l.detector.Detect(frame)
	if err != nil {
		log.Debugf("Hand detection failed: %v", err)
		return res, nil
	}
	if len(hands) == 0 {
		return res, nil
	}

	hand = &hands[0]
	res.Hand = true

	set := features.FromHand(*hand, frame.Cols(), frame.Rows())
	vec, err := l.normalizer.Normalize(set)
	if err != nil {
		log.Debugf("Landmark normalization failed: %v", err)
		return res, hand
	}

	p, err := l.classifier.ClassifyDetailed(vec)
	if err != nil {
		log.Debugf("Classification failed: %v", err)
		return res, hand
	}

	res.Label = p.Label
	res.Index = p.Index
	res.Score = p.Score
	return res, hand
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))

	l.mu.Lock()
	hooks := append([]func(State){}, l.onState...)
	l.mu.Unlock()
	for _, fn := range hooks {
		fn(s)
	}
}

func (l *Loop) notify(res Result) {
	l.mu.Lock()
	observers := append([]func(Result){}, l.observers...)
	l.mu.Unlock()
	for _, fn := range observers {
		fn(res)
	}
}
