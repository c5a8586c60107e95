package movement

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/motion.report/internal/pose"
)

// symmetryPairs are compared for bilateral symmetry of motion.
var symmetryPairs = [][2]int{
	{pose.LeftShoulder, pose.RightShoulder},
	{pose.LeftHip, pose.RightHip},
	{pose.LeftKnee, pose.RightKnee},
	{pose.LeftAnkle, pose.RightAnkle},
}

// series holds the per-frame trajectories derived from a sequence.
type series struct {
	frames    []pose.Frame
	times     []float64 // seconds
	hipY      []float64
	shoulderY []float64
	centreY   []float64
	centre    []pose.Vec3
}

func newSeries(frames []pose.Frame) *series {
	n := len(frames)
	s := &series{
		frames:    frames,
		times:     make([]float64, n),
		hipY:      make([]float64, n),
		shoulderY: make([]float64, n),
		centreY:   make([]float64, n),
		centre:    make([]pose.Vec3, n),
	}
	for i, f := range frames {
		hip, sh := f.HipMid(), f.ShoulderMid()
		s.times[i] = float64(f.TimestampMs) / 1000
		s.hipY[i] = hip.Y
		s.shoulderY[i] = sh.Y
		s.centre[i] = hip.Add(sh).Scale(0.5)
		s.centreY[i] = s.centre[i].Y
	}
	return s
}

func (s *series) vertical(t track) []float64 {
	switch t {
	case trackHip:
		return s.hipY
	case trackShoulder:
		return s.shoulderY
	default:
		return s.centreY
	}
}

func (s *series) features() Features {
	tilt := make([]float64, len(s.frames))
	var stance float64
	for i, f := range s.frames {
		tilt[i] = pose.TiltFromVertical(f.ShoulderMid().Sub(f.HipMid()))
		stance = math.Max(stance, math.Abs(f.At(pose.LeftKnee).Y-f.At(pose.RightKnee).Y))
	}
	return Features{
		Duration:        s.times[len(s.times)-1] - s.times[0],
		HipRange:        rangeOf(s.hipY),
		ShoulderRange:   rangeOf(s.shoulderY),
		CentreRange:     rangeOf(s.centreY),
		TrunkTilt:       stat.Mean(tilt, nil),
		StanceAsymmetry: stance,
	}
}

func (s *series) meanPoseQuality() float64 {
	q := make([]float64, len(s.frames))
	for i, f := range s.frames {
		q[i] = f.MeanConfidence()
	}
	return stat.Mean(q, nil)
}

// symmetry compares each left landmark's displacement from its starting
// position with the mirrored displacement of its right partner. Every
// sample scores 1/(1+d); a pair scores the mean of its samples.
func (s *series) symmetry() float64 {
	first := s.frames[0]
	scores := make([]float64, 0, len(symmetryPairs))
	for _, p := range symmetryPairs {
		l0, r0 := first.At(p[0]).Pos(), first.At(p[1]).Pos()
		closeness := make([]float64, len(s.frames))
		for i, f := range s.frames {
			dl := f.At(p[0]).Pos().Sub(l0)
			dr := f.At(p[1]).Pos().Sub(r0)
			mirrored := pose.Vec3{X: -dr.X, Y: dr.Y, Z: dr.Z}
			closeness[i] = 1 / (1 + dl.Distance(mirrored))
		}
		scores = append(scores, stat.Mean(closeness, nil))
	}
	return stat.Mean(scores, nil)
}

// efficiency blends the straight-line share of the centre-of-mass path
// with how smoothly it moves. A stationary centre counts as fully
// efficient.
func (s *series) efficiency() float64 {
	n := len(s.centre)
	if n < 2 {
		return 0
	}
	steps := make([]float64, n-1)
	for i := 1; i < n; i++ {
		steps[i-1] = s.centre[i].Distance(s.centre[i-1])
	}
	total := floats.Sum(steps)
	path := 1.0
	if total > 1e-9 {
		path = s.centre[n-1].Distance(s.centre[0]) / total
	}

	smoothness := 1.0
	if peak := floats.Max(steps); peak > 1e-9 && len(steps) > 1 {
		accel := make([]float64, len(steps)-1)
		for i := 1; i < len(steps); i++ {
			accel[i-1] = math.Abs(steps[i] - steps[i-1])
		}
		smoothness = 1 / (1 + stat.Mean(accel, nil)/peak)
	}
	return pose.Clamp01(0.6*path + 0.4*smoothness)
}
