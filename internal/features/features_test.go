package features

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/mudra/internal/detector"
)

const tolerance = 1e-12

func TestNormalize_EmptyInputs(t *testing.T) {
	tests := []struct {
		name string
		set  *RawLandmarkSet
	}{
		{name: "nil set", set: nil},
		{name: "no points", set: &RawLandmarkSet{Width: 640, Height: 480}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, err := Normalize(tt.set)
			require.NoError(t, err)
			assert.True(t, vec.Empty())
			assert.Len(t, vec, 0)
		})
	}
}

func TestNormalize_UnitNorm(t *testing.T) {
	hands := map[string]detector.HandLandmarks{
		"thumbs up": detector.ThumbsUpLandmarks(),
		"open palm": detector.OpenPalmLandmarks(),
		"uniform":   detector.UniformLandmarks(0.5, 0.5),
	}

	for name, hand := range hands {
		for _, axes := range []AxisOrder{AxisRowsCols, AxisColsRows} {
			t.Run(name+"/"+axes.String(), func(t *testing.T) {
				n := NewNormalizer(axes)
				vec, err := n.Normalize(FromHand(hand, 640, 480))
				require.NoError(t, err)
				require.Len(t, vec, 2*detector.NumLandmarks)
				assert.InDelta(t, 1.0, floats.Norm(vec, 2), tolerance)
			})
		}
	}
}

func TestNormalize_UniformHandOnVGAFrame(t *testing.T) {
	// 21 points at (0.5, 0.5) on a 480-row, 640-column frame scale to
	// (240, 320) each, so every pair normalizes to (0.6, 0.8) / sqrt(21).
	vec, err := Normalize(FromHand(detector.UniformLandmarks(0.5, 0.5), 640, 480))
	require.NoError(t, err)

	wantX := 0.6 / math.Sqrt(21)
	wantY := 0.8 / math.Sqrt(21)
	for i := 0; i < len(vec); i += 2 {
		assert.InDelta(t, wantX, vec[i], tolerance, "x at %d", i)
		assert.InDelta(t, wantY, vec[i+1], tolerance, "y at %d", i+1)
	}
}

func TestPixels_Truncates(t *testing.T) {
	set := &RawLandmarkSet{
		Points: []detector.Point3D{
			{X: 0.999, Y: 0.001},
			{X: 0.5, Y: 0.5},
			{X: -0.01, Y: 1.01},
		},
		Width:  640,
		Height: 480,
	}

	t.Run("rows then cols", func(t *testing.T) {
		got := NewNormalizer(AxisRowsCols).Pixels(set)
		want := []float64{479, 0, 240, 320, -4, 646}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Pixels() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("cols then rows", func(t *testing.T) {
		got := NewNormalizer(AxisColsRows).Pixels(set)
		want := []float64{639, 0, 320, 240, -6, 484}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Pixels() mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestNormalize_Degenerate(t *testing.T) {
	t.Run("all landmarks at origin", func(t *testing.T) {
		vec, err := Normalize(FromHand(detector.UniformLandmarks(0, 0), 640, 480))
		assert.ErrorIs(t, err, ErrDegenerate)
		assert.True(t, vec.Empty())
	})

	t.Run("sub-pixel landmarks truncate to origin", func(t *testing.T) {
		vec, err := Normalize(FromHand(detector.UniformLandmarks(0.001, 0.001), 640, 480))
		assert.ErrorIs(t, err, ErrDegenerate)
		assert.True(t, vec.Empty())
	})

	t.Run("zero sized frame", func(t *testing.T) {
		_, err := Normalize(FromHand(detector.OpenPalmLandmarks(), 0, 0))
		assert.ErrorIs(t, err, ErrDegenerate)
	})
}

func TestNormalize_ScaleInvariant(t *testing.T) {
	// Doubling the frame doubles every pixel coordinate; after
	// normalization the vectors agree up to truncation error.
	hand := detector.OpenPalmLandmarks()
	small, err := Normalize(FromHand(hand, 640, 480))
	require.NoError(t, err)
	large, err := Normalize(FromHand(hand, 1280, 960))
	require.NoError(t, err)

	assert.InDelta(t, 0, floats.Distance(small, large, 2), 1e-2)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	hand := detector.ThumbsUpLandmarks()
	set := FromHand(hand, 640, 480)
	before := append([]detector.Point3D(nil), set.Points...)

	_, err := Normalize(set)
	require.NoError(t, err)
	assert.Equal(t, before, set.Points)
}

func TestFeatureVector_Float32(t *testing.T) {
	vec := FeatureVector{0.6, 0.8}
	assert.Equal(t, []float32{0.6, 0.8}, vec.Float32())
}

func TestParseAxisOrder(t *testing.T) {
	tests := []struct {
		in   string
		want AxisOrder
		ok   bool
	}{
		{"", AxisRowsCols, true},
		{"rows_cols", AxisRowsCols, true},
		{"cols_rows", AxisColsRows, true},
		{"diagonal", AxisRowsCols, false},
	}
	for _, tt := range tests {
		got, ok := ParseAxisOrder(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
