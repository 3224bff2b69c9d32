// Package timing measures the instantaneous frame rate of the processing loop.
package timing

import "time"

// Tracker computes frames per second from the time between consecutive
// Tick calls. It is not safe for concurrent use; the processing loop owns it.
type Tracker struct {
	now  func() time.Time
	prev time.Time
	fps  float64
}

// New returns a Tracker driven by the wall clock.
func New() *Tracker {
	return NewWithClock(time.Now)
}

// NewWithClock returns a Tracker that reads time from now.
func NewWithClock(now func() time.Time) *Tracker {
	return &Tracker{now: now}
}

// Tick records the current time and returns 1/elapsed since the previous
// Tick. The first call has no baseline and returns 0, as does any call whose
// elapsed time is not positive.
func (t *Tracker) Tick() float64 {
	now := t.now()
	prev := t.prev
	t.prev = now

	if prev.IsZero() {
		t.fps = 0
		return 0
	}

	elapsed := now.Sub(prev)
	if elapsed <= 0 {
		t.fps = 0
		return 0
	}

	t.fps = 1 / elapsed.Seconds()
	return t.fps
}

// FPS returns the value computed by the last Tick.
func (t *Tracker) FPS() float64 {
	return t.fps
}

// Reset forgets the previous timestamp so the next Tick starts a new baseline.
func (t *Tracker) Reset() {
	t.prev = time.Time{}
	t.fps = 0
}
