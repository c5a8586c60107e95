package biomech

import (
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/motion.report/internal/biomech/angles"
	"github.com/banshee-data/motion.report/internal/pose"
)

const (
	fatigueBlock   = 10
	fatigueMinimum = 2 * fatigueBlock

	// Changes that saturate each half of the fatigue score.
	variabilitySaturation = 10.0 // degrees of extra std-dev
	postureSaturation     = 0.2
)

// fatigueJoints are the angles whose frame-to-frame variability is
// tracked.
var fatigueJoints = []string{angles.LeftKnee, angles.RightKnee, angles.LeftHip, angles.RightHip, angles.Spine}

// windowEntry is one frame in the analysis window.
type windowEntry struct {
	frame   pose.Frame
	angles  angles.Map
	posture float64
}

// fatigue compares the newest fatigueBlock entries with the block before
// them. It returns nil until the window holds fatigueMinimum entries.
func fatigue(window []windowEntry) *FatigueIndicators {
	if len(window) < fatigueMinimum {
		return nil
	}
	recent := window[len(window)-fatigueBlock:]
	prior := window[len(window)-fatigueMinimum : len(window)-fatigueBlock]

	var increase float64
	for _, j := range fatigueJoints {
		increase += blockStdDev(recent, j) - blockStdDev(prior, j)
	}
	increase /= float64(len(fatigueJoints))

	decline := blockPosture(prior) - blockPosture(recent)

	score := 50*pose.Clamp01(increase/variabilitySaturation) + 50*pose.Clamp01(decline/postureSaturation)
	level := FatigueLow
	switch {
	case score >= 60:
		level = FatigueHigh
	case score >= 30:
		level = FatigueModerate
	}
	return &FatigueIndicators{
		Score:               score,
		Level:               level,
		VariabilityIncrease: increase,
		PostureDecline:      decline,
	}
}

func blockStdDev(block []windowEntry, joint string) float64 {
	vals := make([]float64, 0, len(block))
	for _, e := range block {
		if a, ok := e.angles[joint]; ok {
			vals = append(vals, a.Angle)
		}
	}
	if len(vals) < 2 {
		return 0
	}
	return stat.StdDev(vals, nil)
}

func blockPosture(block []windowEntry) float64 {
	vals := make([]float64, len(block))
	for i, e := range block {
		vals[i] = e.posture
	}
	return stat.Mean(vals, nil)
}
