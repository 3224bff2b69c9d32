// Package features turns detected hand landmarks into the feature vectors
// consumed by the gesture classifier.
package features

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/mudra/internal/detector"
)

// ErrDegenerate is returned when every scaled landmark is at the origin and
// the vector cannot be normalized.
var ErrDegenerate = errors.New("features: zero-norm landmark vector")

// AxisOrder selects which frame dimension each landmark coordinate is scaled by.
type AxisOrder int

const (
	// AxisRowsCols scales x by the frame's row count and y by its column
	// count. The bundled classifier was calibrated on coordinates produced
	// this way, so it is the default.
	AxisRowsCols AxisOrder = iota
	// AxisColsRows scales x by the frame width and y by the frame height.
	AxisColsRows
)

// String returns the configuration name of the axis order.
func (a AxisOrder) String() string {
	switch a {
	case AxisColsRows:
		return "cols_rows"
	default:
		return "rows_cols"
	}
}

// ParseAxisOrder parses a configuration value. Unknown names yield false.
func ParseAxisOrder(s string) (AxisOrder, bool) {
	switch s {
	case "", "rows_cols":
		return AxisRowsCols, true
	case "cols_rows":
		return AxisColsRows, true
	}
	return AxisRowsCols, false
}

// RawLandmarkSet is one detected hand in fractional coordinates, paired with
// the pixel size of the frame it was detected in.
type RawLandmarkSet struct {
	Points []detector.Point3D
	Width  int
	Height int
}

// FromHand builds a RawLandmarkSet for a hand detected in a width x height frame.
func FromHand(h detector.HandLandmarks, width, height int) *RawLandmarkSet {
	points := make([]detector.Point3D, detector.NumLandmarks)
	copy(points, h.Points[:])
	return &RawLandmarkSet{Points: points, Width: width, Height: height}
}

// Len returns the number of landmarks in the set.
func (s *RawLandmarkSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// FeatureVector is a flattened x,y sequence with unit L2 norm. An empty
// vector means no hand.
type FeatureVector []float64

// Empty reports whether the vector carries no hand.
func (v FeatureVector) Empty() bool {
	return len(v) == 0
}

// Float32 returns a float32 copy of the vector for model inputs.
func (v FeatureVector) Float32() []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// Normalizer converts landmark sets into feature vectors. The zero value
// uses AxisRowsCols.
type Normalizer struct {
	Axes AxisOrder
}

// NewNormalizer returns a Normalizer using the given axis order.
func NewNormalizer(axes AxisOrder) *Normalizer {
	return &Normalizer{Axes: axes}
}

// Pixels scales every landmark to integer pixel coordinates and flattens
// them into x0, y0, x1, y1, ... in landmark order. Truncation is toward zero.
func (n *Normalizer) Pixels(set *RawLandmarkSet) []float64 {
	if set.Len() == 0 {
		return nil
	}

	sx, sy := float64(set.Height), float64(set.Width)
	if n != nil && n.Axes == AxisColsRows {
		sx, sy = float64(set.Width), float64(set.Height)
	}

	flat := make([]float64, 0, 2*len(set.Points))
	for _, p := range set.Points {
		flat = append(flat, math.Trunc(p.X*sx), math.Trunc(p.Y*sy))
	}
	return flat
}

// Normalize returns the unit-length feature vector for set. A nil or empty
// set yields an empty vector and no error. A set whose pixel coordinates
// are all zero yields ErrDegenerate.
func (n *Normalizer) Normalize(set *RawLandmarkSet) (FeatureVector, error) {
	flat := n.Pixels(set)
	if len(flat) == 0 {
		return FeatureVector{}, nil
	}

	norm := floats.Norm(flat, 2)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return FeatureVector{}, ErrDegenerate
	}

	floats.Scale(1/norm, flat)
	return FeatureVector(flat), nil
}

// Normalize is a convenience wrapper using the default axis order.
func Normalize(set *RawLandmarkSet) (FeatureVector, error) {
	var n Normalizer
	return n.Normalize(set)
}
