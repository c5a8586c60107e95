package asymmetry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.report/internal/pose"
	"github.com/banshee-data/motion.report/internal/testutil"
)

// leftDistal are left-side joints whose outward shift leaves the midline
// where it is.
var leftDistal = []int{pose.LeftElbow, pose.LeftWrist, pose.LeftKnee, pose.LeftAnkle}

func leftHeavyFrame(ts int64) pose.Frame {
	return testutil.Shift(testutil.NeutralFrame(ts, 0.9), pose.Vec3{X: 0.1}, leftDistal...)
}

func TestAnalyze_NeutralFrame(t *testing.T) {
	d := NewDetector(DefaultConfig())
	a := d.Analyze(testutil.NeutralFrame(0, 0.9))

	assert.InDelta(t, 0, a.LeftRight, 1e-6)
	assert.InDelta(t, 0, a.AnteriorPosterior, 1e-9)
	assert.InDelta(t, 0, a.MedioLateral, 1e-6)
	assert.InDelta(t, 0, a.Rotational, 1e-9)
	assert.Less(t, a.Overall, 0.1)
	assert.Len(t, a.Pairs, len(Pairs))
	assert.Empty(t, a.Recommendations)
	assert.False(t, a.Trends.Available)
}

func TestAnalyze_LeftRightSwapNegates(t *testing.T) {
	f := leftHeavyFrame(0)
	a := Measure(f, nil)
	b := Measure(f.Mirror(), nil)

	require.Greater(t, a.LeftRight, 0.1)
	assert.InDelta(t, -a.LeftRight, b.LeftRight, 1e-9)
	assert.InDelta(t, a.AnteriorPosterior, b.AnteriorPosterior, 1e-9)
	assert.InDelta(t, a.Rotational, b.Rotational, 1e-9)
	assert.InDelta(t, a.Overall, b.Overall, 1e-9)
	for i := range a.Pairs {
		assert.InDelta(t, -a.Pairs[i].Position, b.Pairs[i].Position, 1e-9, a.Pairs[i].Pair)
	}
}

func TestAnalyze_LeftRightSwapKeepsOverall(t *testing.T) {
	// Shoulders drift toward +X and the left leg is less visible, so both
	// medio-lateral terms are non-zero.
	f := testutil.Shift(testutil.NeutralFrame(0, 0.9), pose.Vec3{X: 0.02}, pose.LeftShoulder, pose.RightShoulder)
	f = testutil.SetConfidence(f, 0.6, pose.LeftKnee, pose.LeftAnkle)
	a := Measure(f, nil)
	b := Measure(f.Mirror(), nil)

	require.Greater(t, math.Abs(a.MedioLateral), 0.01)
	assert.InDelta(t, -a.LeftRight, b.LeftRight, 1e-9)
	assert.InDelta(t, -a.MedioLateral, b.MedioLateral, 1e-9)
	assert.InDelta(t, a.Overall, b.Overall, 1e-9)
}

func TestMedioLateral_ShoulderShiftTowardLeft(t *testing.T) {
	f := testutil.Shift(testutil.NeutralFrame(0, 0.9), pose.Vec3{X: 0.04}, pose.LeftShoulder, pose.RightShoulder)
	assert.InDelta(t, 0.2, medioLateral(f), 1e-9)
	assert.InDelta(t, -0.2, medioLateral(f.Mirror()), 1e-9)
}

func TestAnalyze_ScoresBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	d := NewDetector(DefaultConfig())
	for i := 0; i < 300; i++ {
		f := testutil.NeutralFrame(int64(i)*33, 0.9)
		for j := range f.Landmarks {
			f.Landmarks[j].X += rng.NormFloat64() * 0.2
			f.Landmarks[j].Y += rng.NormFloat64() * 0.2
			f.Landmarks[j].Z += rng.NormFloat64() * 0.5
			f.Landmarks[j].Visibility = rng.Float64()
		}
		a := d.Analyze(f)
		require.GreaterOrEqual(t, a.Overall, 0.0)
		require.LessOrEqual(t, a.Overall, 1.0)
		require.GreaterOrEqual(t, a.Rotational, 0.0)
		require.LessOrEqual(t, a.Rotational, 1.0)
		for _, v := range []float64{a.LeftRight, a.AnteriorPosterior, a.MedioLateral} {
			require.GreaterOrEqual(t, v, -1.0)
			require.LessOrEqual(t, v, 1.0)
		}
	}
	assert.Len(t, d.History(), 100)
}

func TestAnalyze_SkipsLowVisibilityPairs(t *testing.T) {
	f := testutil.SetConfidence(leftHeavyFrame(0), 0.3, pose.LeftKnee)
	a := Measure(f, nil)

	names := make([]string, 0, len(a.Pairs))
	for _, p := range a.Pairs {
		names = append(names, p.Pair)
	}
	assert.NotContains(t, names, "knees")
	assert.Len(t, a.Pairs, len(Pairs)-1)
}

func TestAnalyze_NoVisiblePairs(t *testing.T) {
	a := Measure(pose.Frame{}, nil)
	assert.Empty(t, a.Pairs)
	assert.Zero(t, a.LeftRight)
	assert.Zero(t, a.Overall)
}

func TestRotational(t *testing.T) {
	f := testutil.Shift(testutil.NeutralFrame(0, 0.9), pose.Vec3{Z: -0.1}, pose.LeftShoulder)
	f = testutil.Shift(f, pose.Vec3{Z: 0.1}, pose.RightShoulder)
	// Shoulder line (0.2, -0.2) against hip line (0.12, 0): 45°.
	assert.InDelta(t, 0.5, rotational(f), 1e-9)
}

func TestAnteriorPosterior_ForwardLean(t *testing.T) {
	upper := []int{pose.Nose, pose.LeftShoulder, pose.RightShoulder}
	f := testutil.Shift(testutil.NeutralFrame(0, 0.9), pose.Vec3{Z: -0.1}, upper...)
	assert.InDelta(t, 0.2, anteriorPosterior(f), 1e-9)
}

func TestHistoryBounded(t *testing.T) {
	d := NewDetector(Config{HistorySize: 10})
	for i := 0; i < 25; i++ {
		d.Analyze(testutil.NeutralFrame(int64(i), 0.9))
	}
	h := d.History()
	require.Len(t, h, 10)
	assert.Equal(t, int64(15), h[0].TimestampMs)
	assert.Equal(t, int64(24), h[9].TimestampMs)

	d.Reset()
	assert.Empty(t, d.History())
}

func TestMovementProxyNeedsHistory(t *testing.T) {
	d := NewDetector(DefaultConfig())
	for i := 0; i < movementHistoryMin-1; i++ {
		d.Analyze(testutil.NeutralFrame(int64(i), 0.9))
		assert.Nil(t, d.movementProxy())
	}
	d.Analyze(testutil.NeutralFrame(10, 0.9))
	require.NotNil(t, d.movementProxy())
	assert.InDelta(t, 0, *d.movementProxy(), 1e-9)
}

func TestTrends(t *testing.T) {
	d := NewDetector(DefaultConfig())
	for i := 0; i < 2*trendBlock-1; i++ {
		d.Analyze(testutil.NeutralFrame(int64(i), 0.9))
	}
	assert.False(t, d.Trends().Available)

	d.Reset()
	for i := 0; i < trendBlock; i++ {
		d.Analyze(testutil.NeutralFrame(int64(i), 0.9))
	}
	var last Analysis
	for i := trendBlock; i < 2*trendBlock; i++ {
		last = d.Analyze(leftHeavyFrame(int64(i)))
	}
	require.True(t, last.Trends.Available)
	assert.Equal(t, DirectionWorsening, last.Trends.LeftRight)
	assert.Equal(t, DirectionStable, last.Trends.AnteriorPosterior)
	assert.Equal(t, DirectionStable, last.Trends.Rotational)

	for i := 2 * trendBlock; i < 4*trendBlock; i++ {
		last = d.Analyze(testutil.NeutralFrame(int64(i), 0.9))
	}
	assert.Equal(t, DirectionStable, last.Trends.LeftRight)

	for i := 4 * trendBlock; i < 5*trendBlock; i++ {
		d.Analyze(leftHeavyFrame(int64(i)))
	}
	for i := 5 * trendBlock; i < 6*trendBlock; i++ {
		last = d.Analyze(testutil.NeutralFrame(int64(i), 0.9))
	}
	assert.Equal(t, DirectionImproving, last.Trends.LeftRight)
}

func TestRecommendationsDeduplicated(t *testing.T) {
	a := Analysis{
		LeftRight:         0.3,
		AnteriorPosterior: 0.5,
		Rotational:        0.5,
		Trends: Trends{
			Available:         true,
			LeftRight:         DirectionWorsening,
			AnteriorPosterior: DirectionWorsening,
			Rotational:        DirectionWorsening,
		},
	}
	recs := recommendations(a)
	assert.Len(t, recs, 3)
	assert.Contains(t, recs[0], "left-side")
}

func TestMeasureQuick(t *testing.T) {
	a := MeasureQuick(testutil.NeutralFrame(0, 0.9))
	assert.Len(t, a.Pairs, 2)
	assert.Zero(t, a.AnteriorPosterior)
	assert.Less(t, a.Overall, 0.1)
}
