package posture

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.report/internal/pose"
	"github.com/banshee-data/motion.report/internal/testutil"
)

func deviationTypes(a Analysis) []DeviationType {
	out := make([]DeviationType, 0, len(a.Deviations))
	for _, d := range a.Deviations {
		out = append(out, d.Type)
	}
	return out
}

func TestAssess_NeutralFrame(t *testing.T) {
	a := NewAssessor(DefaultConfig()).Assess(testutil.NeutralFrame(0, 0.9))

	for name, c := range map[string]Component{
		"head": a.Head, "shoulder": a.Shoulder, "spine": a.Spine, "pelvis": a.Pelvis, "leg": a.Leg,
	} {
		assert.True(t, c.Measured, name)
		assert.InDelta(t, 1, c.Score, 1e-3, name)
	}
	assert.InDelta(t, 1, a.Overall, 1e-3)
	assert.Equal(t, StatusExcellent, a.Status)
	assert.Empty(t, a.Deviations)
}

func TestAssess_ForwardHead(t *testing.T) {
	f := testutil.Shift(testutil.NeutralFrame(0, 0.9), pose.Vec3{Z: -0.1}, pose.LeftEar, pose.RightEar, pose.Nose)
	a := NewAssessor(DefaultConfig()).Assess(f)

	// atan(0.1 / 0.16) ≈ 32°
	assert.InDelta(t, 32.0, a.Head.Deviation, 0.1)
	assert.Zero(t, a.Head.Score)
	require.Contains(t, deviationTypes(a), ForwardHead)
	require.Contains(t, deviationTypes(a), Kyphosis)
	for _, d := range a.Deviations {
		if d.Type == ForwardHead {
			assert.InDelta(t, 3.2, d.Severity, 0.01)
			assert.NotEmpty(t, d.Correction)
		}
	}
}

func TestAssess_ShoulderTilt(t *testing.T) {
	f := testutil.Shift(testutil.NeutralFrame(0, 0.9), pose.Vec3{Y: 0.01}, pose.LeftShoulder)
	a := AssessQuick(f)

	// atan(0.01 / 0.2) ≈ 2.86°, tolerance 5°
	assert.InDelta(t, 2.86, a.Shoulder.Deviation, 0.01)
	assert.InDelta(t, 1-2.862/5, a.Shoulder.Score, 0.01)
	assert.Equal(t, StatusPoor, a.Shoulder.Status)
}

func TestAssess_KneeValgusAndVarus(t *testing.T) {
	base := testutil.NeutralFrame(0, 0.9)

	valgus := testutil.Shift(base, pose.Vec3{X: -0.04}, pose.LeftKnee)
	valgus = testutil.Shift(valgus, pose.Vec3{X: 0.04}, pose.RightKnee)
	a := NewAssessor(DefaultConfig()).Assess(valgus)
	require.Contains(t, deviationTypes(a), KneeValgus)
	assert.NotContains(t, deviationTypes(a), KneeVarus)
	assert.Greater(t, a.Leg.Deviation, 20.0)
	assert.Zero(t, a.Leg.Score)

	varus := testutil.Shift(base, pose.Vec3{X: 0.04}, pose.LeftKnee)
	varus = testutil.Shift(varus, pose.Vec3{X: -0.04}, pose.RightKnee)
	b := NewAssessor(DefaultConfig()).Assess(varus)
	require.Contains(t, deviationTypes(b), KneeVarus)
	assert.NotContains(t, deviationTypes(b), KneeValgus)
}

func TestAssess_RoundedShoulders(t *testing.T) {
	f := testutil.Shift(testutil.NeutralFrame(0, 0.9), pose.Vec3{Z: -0.1}, pose.LeftShoulder, pose.RightShoulder)
	a := NewAssessor(DefaultConfig()).Assess(f)

	require.Contains(t, deviationTypes(a), RoundedShoulders)
	assert.Less(t, a.Spine.Score, 0.5)
}

func TestAssess_UnmeasuredComponentsExcluded(t *testing.T) {
	f := testutil.SetConfidence(testutil.NeutralFrame(0, 0.9), 0.1, pose.LeftEar, pose.RightEar)
	a := AssessQuick(f)

	assert.False(t, a.Head.Measured)
	assert.Zero(t, a.Head.Score)
	assert.InDelta(t, 1, a.Overall, 1e-3)
}

func TestAssess_EmptyFrame(t *testing.T) {
	a := NewAssessor(DefaultConfig()).Assess(pose.Frame{})
	assert.Zero(t, a.Overall)
	assert.Equal(t, StatusCritical, a.Status)
	assert.Empty(t, a.Deviations)
}

func TestAssess_ScoresBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	as := NewAssessor(DefaultConfig())
	frames := testutil.SquatSequence(60, 33)
	for i := 0; i < 200; i++ {
		f := testutil.NeutralFrame(int64(i), 0.9)
		for j := range f.Landmarks {
			f.Landmarks[j].X += rng.NormFloat64() * 0.1
			f.Landmarks[j].Y += rng.NormFloat64() * 0.1
			f.Landmarks[j].Z += rng.NormFloat64() * 0.1
		}
		frames = append(frames, f)
	}
	for _, f := range frames {
		a := as.Assess(f)
		for _, c := range []Component{a.Head, a.Shoulder, a.Spine, a.Pelvis, a.Leg} {
			require.GreaterOrEqual(t, c.Score, 0.0)
			require.LessOrEqual(t, c.Score, 1.0)
		}
		require.GreaterOrEqual(t, a.Overall, 0.0)
		require.LessOrEqual(t, a.Overall, 1.0)
		for _, d := range a.Deviations {
			require.LessOrEqual(t, d.Severity, maxSeverity)
		}
	}
	assert.Len(t, as.History(), 150)

	as.Reset()
	assert.Empty(t, as.History())
}

func TestTrends(t *testing.T) {
	as := NewAssessor(DefaultConfig())
	assert.False(t, as.Trends(10*time.Second).Available)

	for i := 0; i < 30; i++ {
		as.Assess(testutil.NeutralFrame(int64(i)*100, 0.9))
	}
	for i := 30; i < 60; i++ {
		f := testutil.Shift(testutil.NeutralFrame(int64(i)*100, 0.9), pose.Vec3{Y: 0.05}, pose.LeftShoulder)
		as.Assess(f)
	}

	tr := as.Trends(10 * time.Second)
	require.True(t, tr.Available)
	assert.Equal(t, 60, tr.Samples)
	assert.Equal(t, DirectionDeclining, tr.Overall)
	assert.Equal(t, DirectionDeclining, tr.Shoulder)
	assert.Equal(t, DirectionStable, tr.Pelvis)
	assert.Equal(t, DirectionStable, tr.Leg)

	recent := as.Trends(time.Second)
	assert.Equal(t, 11, recent.Samples)
	assert.Equal(t, DirectionStable, recent.Overall)
}

func TestTrends_Improving(t *testing.T) {
	as := NewAssessor(DefaultConfig())
	for i := 0; i < 10; i++ {
		f := testutil.Shift(testutil.NeutralFrame(int64(i)*100, 0.9), pose.Vec3{Y: 0.05}, pose.LeftHip)
		as.Assess(f)
	}
	for i := 10; i < 20; i++ {
		as.Assess(testutil.NeutralFrame(int64(i)*100, 0.9))
	}
	tr := as.Trends(5 * time.Second)
	assert.Equal(t, DirectionImproving, tr.Pelvis)
	assert.Equal(t, DirectionImproving, tr.Overall)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Status
	}{
		{1, StatusExcellent},
		{0.9, StatusExcellent},
		{0.85, StatusGood},
		{0.7, StatusFair},
		{0.5, StatusPoor},
		{0.1, StatusCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.score), "score %v", tt.score)
	}
}
