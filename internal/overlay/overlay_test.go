package overlay

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

func TestFormatFPS(t *testing.T) {
	tests := []struct {
		fps  float64
		want string
	}{
		{0, "FPS: 0"},
		{29.97, "FPS: 29"},
		{30, "FPS: 30"},
		{-1, "FPS: 0"},
		{math.Inf(1), "FPS: 0"},
		{math.NaN(), "FPS: 0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFPS(tt.fps))
	}
}

func TestAnnotate_DrawsOnFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	Annotate(&frame, "palm", 30)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	assert.Greater(t, gocv.CountNonZero(gray), 0, "text should change some pixels")
}

func TestDrawLandmarks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	DrawLandmarks(&frame, nil)
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	assert.Equal(t, 0, gocv.CountNonZero(gray), "nil hand draws nothing")

	hand := detector.OpenPalmLandmarks()
	DrawLandmarks(&frame, &hand)
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	assert.Greater(t, gocv.CountNonZero(gray), 0)
}
