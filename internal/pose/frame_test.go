package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameAt_ShortFrame(t *testing.T) {
	f := Frame{Landmarks: []Landmark{{X: 0.5, Visibility: 1, Presence: 1}}}

	assert.Equal(t, 0.5, f.At(Nose).X)
	assert.Equal(t, Landmark{}, f.At(LeftHip))
	assert.Equal(t, Landmark{}, f.At(-1))
	assert.False(t, f.Complete())
}

func TestFrameMeanConfidence(t *testing.T) {
	assert.Zero(t, Frame{}.MeanConfidence())

	f := Frame{Landmarks: make([]Landmark, LandmarkCount)}
	for i := range f.Landmarks {
		f.Landmarks[i] = Landmark{Visibility: 0.9, Presence: 0.5}
	}
	assert.InDelta(t, 0.45, f.MeanConfidence(), 1e-9)
	assert.InDelta(t, 0.9, f.MeanVisibility(), 1e-9)

	// Out-of-range inputs are clamped per landmark.
	f.Landmarks[0] = Landmark{Visibility: 5, Presence: 5}
	assert.LessOrEqual(t, f.MeanConfidence(), 1.0)
}

func TestFrameMirror(t *testing.T) {
	f := Frame{TimestampMs: 7, Landmarks: make([]Landmark, LandmarkCount)}
	f.Landmarks[LeftKnee] = Landmark{X: 0.6}
	f.Landmarks[RightKnee] = Landmark{X: 0.4}
	f.Landmarks[Nose] = Landmark{X: 0.5}

	m := f.Mirror()
	require.Len(t, m.Landmarks, LandmarkCount)
	assert.Equal(t, 0.4, m.At(LeftKnee).X)
	assert.Equal(t, 0.6, m.At(RightKnee).X)
	assert.Equal(t, 0.5, m.At(Nose).X)
	assert.Equal(t, int64(7), m.TimestampMs)

	// The original is untouched.
	assert.Equal(t, 0.6, f.At(LeftKnee).X)
}

func TestAngleAt(t *testing.T) {
	tests := []struct {
		name      string
		a, v, c   Vec3
		want      float64
		wantValid bool
	}{
		{"straight", Vec3{0, 0, 0}, Vec3{0, 1, 0}, Vec3{0, 2, 0}, 180, true},
		{"right angle", Vec3{1, 0, 0}, Vec3{0, 0, 0}, Vec3{0, 1, 0}, 90, true},
		{"folded", Vec3{1, 0, 0}, Vec3{0, 0, 0}, Vec3{1, 0, 0}, 0, true},
		{"3d", Vec3{1, 0, 0}, Vec3{0, 0, 0}, Vec3{0, 0, 1}, 90, true},
		{"degenerate", Vec3{0, 0, 0}, Vec3{0, 0, 0}, Vec3{0, 1, 0}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AngleAt(tt.a, tt.v, tt.c)
			assert.Equal(t, tt.wantValid, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestTilt(t *testing.T) {
	assert.InDelta(t, 0, TiltFromVertical(Vec3{0, -1, 0}), 1e-9)
	assert.InDelta(t, 45, TiltFromVertical(Vec3{1, 1, 0}), 1e-9)
	assert.InDelta(t, 45, TiltFromVertical(Vec3{0, 1, 1}), 1e-9)
	assert.Zero(t, TiltFromVertical(Vec3{}))

	assert.InDelta(t, 0, TiltFromHorizontal(Vec3{-1, 0, 0}), 1e-9)
	assert.InDelta(t, 90, TiltFromHorizontal(Vec3{0, 1, 0}), 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
	assert.Equal(t, 1.0, Clamp01(3))
	assert.Equal(t, -1.0, Clamp(-4, -1, 1))
	assert.Equal(t, 0.25, Clamp01(0.25))
}
