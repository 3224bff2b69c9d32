package display

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

type recordingSink struct {
	shown  int
	closed bool
	err    error
}

func (s *recordingSink) Show(frame *gocv.Mat) error {
	s.shown++
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed = true
	return s.err
}

func TestContextQuit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := ContextQuit(ctx)

	assert.False(t, q.QuitRequested())
	cancel()
	assert.True(t, q.QuitRequested())
}

func TestAnyQuit(t *testing.T) {
	var flag QuitFlag
	q := AnyQuit(nil, Never, &flag)

	assert.False(t, q.QuitRequested())
	flag.Raise()
	assert.True(t, q.QuitRequested())
	assert.False(t, AnyQuit().QuitRequested())
}

func TestDiscard(t *testing.T) {
	var d Discard
	assert.NoError(t, d.Show(nil))
	assert.NoError(t, d.Show(nil))
	assert.Equal(t, 2, d.Frames())
	assert.NoError(t, d.Close())
}

func TestMulti(t *testing.T) {
	failing := &recordingSink{err: errors.New("broken pipe")}
	ok := &recordingSink{}
	m := Multi{failing, ok}

	err := m.Show(nil)
	assert.EqualError(t, err, "broken pipe")
	assert.Equal(t, 1, failing.shown)
	assert.Equal(t, 1, ok.shown, "later sinks still see the frame")

	assert.Error(t, m.Close())
	assert.True(t, failing.closed)
	assert.True(t, ok.closed)
}
