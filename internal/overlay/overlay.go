// Package overlay draws recognition results onto video frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

// Text placement and style.
var (
	LabelOrigin = image.Pt(10, 50)
	FPSOrigin   = image.Pt(10, 90)

	LabelColor    = color.RGBA{R: 255, A: 255}
	FPSColor      = color.RGBA{G: 255, A: 255}
	LandmarkColor = color.RGBA{R: 255, A: 255}
	BoneColor     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	fontScale     = 1.0
	fontThickness = 2
)

// FormatFPS renders the frame rate the way it appears on screen. The value is
// truncated to an integer.
func FormatFPS(fps float64) string {
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps < 0 {
		fps = 0
	}
	return fmt.Sprintf("FPS: %d", int(fps))
}

// Annotate writes the gesture label and frame rate onto frame. An empty
// label draws nothing in the label slot.
func Annotate(frame *gocv.Mat, label string, fps float64) {
	if label != "" {
		gocv.PutTextWithParams(frame, label, LabelOrigin, gocv.FontHersheySimplex,
			fontScale, LabelColor, fontThickness, gocv.LineAA, false)
	}
	gocv.PutTextWithParams(frame, FormatFPS(fps), FPSOrigin, gocv.FontHersheySimplex,
		fontScale, FPSColor, fontThickness, gocv.LineAA, false)
}

// DrawLandmarks draws the hand skeleton. Landmarks are fractions of the frame
// size.
func DrawLandmarks(frame *gocv.Mat, hand *detector.HandLandmarks) {
	if hand == nil {
		return
	}

	w, h := frame.Cols(), frame.Rows()
	pt := func(i int) image.Point {
		p := hand.Points[i]
		return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
	}

	for _, c := range detector.HandConnections {
		gocv.Line(frame, pt(c[0]), pt(c[1]), BoneColor, 2)
	}
	for i := range hand.Points {
		gocv.Circle(frame, pt(i), 4, LandmarkColor, -1)
	}
}
