package testutil

import (
	"testing"

	"github.com/banshee-data/motion.report/internal/pose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeutralFrame(t *testing.T) {
	f := NeutralFrame(100, 0.9)
	require.True(t, f.Complete())
	assert.Equal(t, int64(100), f.TimestampMs)
	assert.InDelta(t, 0.81, f.MeanConfidence(), 1e-9)

	// Midline symmetric.
	assert.InDelta(t, 0.5, f.ShoulderMid().X, 1e-9)
	assert.InDelta(t, 0.5, f.HipMid().X, 1e-9)
}

func TestShiftDoesNotAlias(t *testing.T) {
	f := NeutralFrame(0, 1)
	g := Shift(f, pose.Vec3{Y: 0.1}, pose.LeftKnee)
	assert.InDelta(t, 0.78, f.At(pose.LeftKnee).Y, 1e-9)
	assert.InDelta(t, 0.88, g.At(pose.LeftKnee).Y, 1e-9)
}

func TestSquatSequence(t *testing.T) {
	frames := SquatSequence(31, 100)
	require.Len(t, frames, 31)
	assert.InDelta(t, frames[0].HipMid().Y, frames[30].HipMid().Y, 1e-9)
	assert.InDelta(t, 0.15, frames[15].HipMid().Y-frames[0].HipMid().Y, 1e-9)
	assert.Equal(t, int64(3000), frames[30].TimestampMs)
}
