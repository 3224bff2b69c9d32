package timing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock returns the queued instants in order.
type fakeClock struct {
	times []time.Time
}

func (c *fakeClock) now() time.Time {
	t := c.times[0]
	c.times = c.times[1:]
	return t
}

func TestTracker_FirstTickIsZero(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &fakeClock{times: []time.Time{base}}
	tr := NewWithClock(clock.now)

	assert.Equal(t, 0.0, tr.Tick())
	assert.Equal(t, 0.0, tr.FPS())
}

func TestTracker_Tick(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{name: "30 fps", elapsed: time.Second / 30, want: 30},
		{name: "1 fps", elapsed: time.Second, want: 1},
		{name: "two seconds", elapsed: 2 * time.Second, want: 0.5},
		{name: "one nanosecond", elapsed: time.Nanosecond, want: 1e9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{times: []time.Time{base, base.Add(tt.elapsed)}}
			tr := NewWithClock(clock.now)
			tr.Tick()

			got := tr.Tick()
			assert.InDelta(t, tt.want, got, tt.want*1e-6)
			assert.False(t, math.IsInf(got, 0))
			assert.Greater(t, got, 0.0)
		})
	}
}

func TestTracker_NonPositiveElapsed(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &fakeClock{times: []time.Time{base, base, base.Add(-time.Second)}}
	tr := NewWithClock(clock.now)

	tr.Tick()
	assert.Equal(t, 0.0, tr.Tick(), "zero elapsed")
	assert.Equal(t, 0.0, tr.Tick(), "clock went backwards")
}

func TestTracker_Reset(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &fakeClock{times: []time.Time{base, base.Add(time.Second), base.Add(10 * time.Second)}}
	tr := NewWithClock(clock.now)

	tr.Tick()
	assert.InDelta(t, 1.0, tr.Tick(), 1e-9)

	tr.Reset()
	assert.Equal(t, 0.0, tr.FPS())
	assert.Equal(t, 0.0, tr.Tick(), "first tick after reset has no baseline")
}

func TestTracker_WallClock(t *testing.T) {
	tr := New()
	tr.Tick()
	time.Sleep(5 * time.Millisecond)

	fps := tr.Tick()
	assert.Greater(t, fps, 0.0)
	assert.Less(t, fps, 1000.0)
}
