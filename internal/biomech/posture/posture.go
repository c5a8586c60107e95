// Package posture scores static alignment of the head, shoulders, spine,
// pelvis and legs, flags common postural deviations and tracks how the
// scores move over time.
package posture

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/motion.report/internal/pose"
)

// Component tolerances in degrees. A deviation equal to the tolerance
// scores 0.
const (
	headTolerance     = 10.0
	shoulderTolerance = 5.0
	spineTolerance    = 10.0
	pelvisTolerance   = 8.0
	legTolerance      = 10.0
)

// Deviation detection thresholds and the reference magnitudes severity is
// expressed against.
const (
	forwardHeadThreshold   = 15.0 // degrees
	forwardHeadReference   = 10.0
	roundedShoulderOffset  = 0.05 // depth units
	curvatureThreshold     = 20.0 // degrees
	curvatureReference     = 20.0
	kneeOffsetThreshold    = 0.05 // fraction of leg length
	kneeDeviationReference = 10.0
	maxSeverity            = 5.0

	minComponentVisibility = 0.3
	trendHysteresis        = 0.05
)

// Status buckets a score.
type Status string

const (
	StatusExcellent Status = "EXCELLENT"
	StatusGood      Status = "GOOD"
	StatusFair      Status = "FAIR"
	StatusPoor      Status = "POOR"
	StatusCritical  Status = "CRITICAL"
)

// StatusFor maps a score in [0,1] to its bucket.
func StatusFor(score float64) Status {
	switch {
	case score >= 0.9:
		return StatusExcellent
	case score >= 0.8:
		return StatusGood
	case score >= 0.6:
		return StatusFair
	case score >= 0.4:
		return StatusPoor
	default:
		return StatusCritical
	}
}

// DeviationType names a detected postural fault.
type DeviationType string

const (
	ForwardHead      DeviationType = "FORWARD_HEAD"
	RoundedShoulders DeviationType = "ROUNDED_SHOULDERS"
	Kyphosis         DeviationType = "KYPHOSIS"
	Lordosis         DeviationType = "LORDOSIS"
	KneeValgus       DeviationType = "KNEE_VALGUS"
	KneeVarus        DeviationType = "KNEE_VARUS"
)

var corrections = map[DeviationType]string{
	ForwardHead:      "Tuck the chin and stack the ears over the shoulders",
	RoundedShoulders: "Draw the shoulder blades back and down; stretch the chest",
	Kyphosis:         "Extend through the upper back; strengthen the mid-back",
	Lordosis:         "Brace the core and tuck the pelvis to neutral",
	KneeValgus:       "Push the knees out over the toes; strengthen the glutes",
	KneeVarus:        "Keep the knees tracking over the second toe",
}

// Deviation is one detected fault. Severity is magnitude over its
// reference, capped at 5.
type Deviation struct {
	Type       DeviationType `json:"type"`
	Magnitude  float64       `json:"magnitude"`
	Severity   float64       `json:"severity"`
	Correction string        `json:"correction"`
}

// Component is the score for one body segment.
type Component struct {
	Deviation float64 `json:"deviation_degrees"`
	Score     float64 `json:"score"`
	Status    Status  `json:"status"`
	Measured  bool    `json:"measured"`
}

// Analysis is the posture report for one frame.
type Analysis struct {
	Head       Component   `json:"head"`
	Shoulder   Component   `json:"shoulder"`
	Spine      Component   `json:"spine"`
	Pelvis     Component   `json:"pelvis"`
	Leg        Component   `json:"leg"`
	Overall    float64     `json:"overall_score"`
	Status     Status      `json:"status"`
	Deviations []Deviation `json:"deviations,omitempty"`
}

// Snapshot is the per-frame score record kept for trends.
type Snapshot struct {
	TimestampMs int64   `json:"timestamp_ms"`
	Head        float64 `json:"head"`
	Shoulder    float64 `json:"shoulder"`
	Spine       float64 `json:"spine"`
	Pelvis      float64 `json:"pelvis"`
	Leg         float64 `json:"leg"`
	Overall     float64 `json:"overall"`
}

// Direction describes how a score is moving.
type Direction string

const (
	DirectionImproving Direction = "IMPROVING"
	DirectionStable    Direction = "STABLE"
	DirectionDeclining Direction = "DECLINING"
)

// Trends compares the older and recent halves of a time window.
type Trends struct {
	Available bool      `json:"available"`
	Samples   int       `json:"samples"`
	Overall   Direction `json:"overall"`
	Head      Direction `json:"head"`
	Shoulder  Direction `json:"shoulder"`
	Spine     Direction `json:"spine"`
	Pelvis    Direction `json:"pelvis"`
	Leg       Direction `json:"leg"`
}

// Config holds tunables for the assessor.
type Config struct {
	HistorySize int // snapshots retained (5s at 30 fps for 150)
}

// DefaultConfig returns the assessor defaults.
func DefaultConfig() Config {
	return Config{HistorySize: 150}
}

// Assessor scores posture and keeps a bounded snapshot ring. It is not
// safe for concurrent use.
type Assessor struct {
	cfg     Config
	history []Snapshot
}

// NewAssessor creates an Assessor.
func NewAssessor(cfg Config) *Assessor {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	return &Assessor{cfg: cfg, history: make([]Snapshot, 0, cfg.HistorySize)}
}

// Assess scores the frame, detects deviations and records a snapshot.
func (a *Assessor) Assess(f pose.Frame) Analysis {
	out := components(f)
	out.Deviations = deviations(f)
	a.record(Snapshot{
		TimestampMs: f.TimestampMs,
		Head:        out.Head.Score,
		Shoulder:    out.Shoulder.Score,
		Spine:       out.Spine.Score,
		Pelvis:      out.Pelvis.Score,
		Leg:         out.Leg.Score,
		Overall:     out.Overall,
	})
	return out
}

// AssessQuick scores the components only. Nothing is recorded.
func AssessQuick(f pose.Frame) Analysis {
	return components(f)
}

// History returns a copy of the retained snapshots, oldest first.
func (a *Assessor) History() []Snapshot {
	out := make([]Snapshot, len(a.history))
	copy(out, a.history)
	return out
}

// Reset clears the snapshot history.
func (a *Assessor) Reset() {
	a.history = a.history[:0]
}

func (a *Assessor) record(s Snapshot) {
	if len(a.history) >= a.cfg.HistorySize {
		copy(a.history, a.history[1:])
		a.history = a.history[:len(a.history)-1]
	}
	a.history = append(a.history, s)
}

// Trends splits the snapshots from the last window of frame time into an
// older and a recent half and compares their mean scores.
func (a *Assessor) Trends(window time.Duration) Trends {
	stable := Trends{
		Overall: DirectionStable, Head: DirectionStable, Shoulder: DirectionStable,
		Spine: DirectionStable, Pelvis: DirectionStable, Leg: DirectionStable,
	}
	if len(a.history) == 0 {
		return stable
	}
	cutoff := a.history[len(a.history)-1].TimestampMs - window.Milliseconds()
	start := len(a.history)
	for start > 0 && a.history[start-1].TimestampMs >= cutoff {
		start--
	}
	inWindow := a.history[start:]
	stable.Samples = len(inWindow)
	if len(inWindow) < 2 {
		return stable
	}
	half := len(inWindow) / 2
	older, recent := inWindow[:half], inWindow[len(inWindow)-half:]

	direction := func(pick func(Snapshot) float64) Direction {
		change := meanOf(recent, pick) - meanOf(older, pick)
		switch {
		case change > trendHysteresis:
			return DirectionImproving
		case change < -trendHysteresis:
			return DirectionDeclining
		default:
			return DirectionStable
		}
	}
	return Trends{
		Available: true,
		Samples:   len(inWindow),
		Overall:   direction(func(s Snapshot) float64 { return s.Overall }),
		Head:      direction(func(s Snapshot) float64 { return s.Head }),
		Shoulder:  direction(func(s Snapshot) float64 { return s.Shoulder }),
		Spine:     direction(func(s Snapshot) float64 { return s.Spine }),
		Pelvis:    direction(func(s Snapshot) float64 { return s.Pelvis }),
		Leg:       direction(func(s Snapshot) float64 { return s.Leg }),
	}
}

func meanOf(ss []Snapshot, pick func(Snapshot) float64) float64 {
	vals := make([]float64, len(ss))
	for i, s := range ss {
		vals[i] = pick(s)
	}
	return stat.Mean(vals, nil)
}

func visible(f pose.Frame, indices ...int) bool {
	for _, i := range indices {
		if f.At(i).Visibility < minComponentVisibility {
			return false
		}
	}
	return true
}

func component(deviation, tolerance float64, measured bool) Component {
	if !measured {
		return Component{Status: StatusCritical}
	}
	score := 1 - math.Min(deviation/tolerance, 1)
	return Component{Deviation: deviation, Score: score, Status: StatusFor(score), Measured: true}
}

// components scores every segment. Unmeasured segments score 0 and are
// left out of the overall mean.
func components(f pose.Frame) Analysis {
	shMid, hipMid, earMid := f.ShoulderMid(), f.HipMid(), f.EarMid()

	var out Analysis
	out.Head = component(
		pose.TiltFromVertical(earMid.Sub(shMid)), headTolerance,
		visible(f, pose.LeftEar, pose.RightEar, pose.LeftShoulder, pose.RightShoulder))
	out.Shoulder = component(
		pose.TiltFromHorizontal(f.At(pose.LeftShoulder).Pos().Sub(f.At(pose.RightShoulder).Pos())), shoulderTolerance,
		visible(f, pose.LeftShoulder, pose.RightShoulder))
	out.Spine = component(
		pose.TiltFromVertical(shMid.Sub(hipMid)), spineTolerance,
		visible(f, pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip))
	out.Pelvis = component(
		pose.TiltFromHorizontal(f.At(pose.LeftHip).Pos().Sub(f.At(pose.RightHip).Pos())), pelvisTolerance,
		visible(f, pose.LeftHip, pose.RightHip))
	out.Leg = component(
		legDeviation(f), legTolerance,
		visible(f, pose.LeftHip, pose.RightHip, pose.LeftKnee, pose.RightKnee, pose.LeftAnkle, pose.RightAnkle))

	var scores []float64
	for _, c := range []Component{out.Head, out.Shoulder, out.Spine, out.Pelvis, out.Leg} {
		if c.Measured {
			scores = append(scores, c.Score)
		}
	}
	if len(scores) > 0 {
		out.Overall = pose.Clamp01(stat.Mean(scores, nil))
	}
	out.Status = StatusFor(out.Overall)
	return out
}

func flat(v pose.Vec3) pose.Vec3 { return pose.Vec3{X: v.X, Y: v.Y} }

// legDeviation is the mean frontal-plane knee bend away from a straight
// hip-knee-ankle line, in degrees.
func legDeviation(f pose.Frame) float64 {
	var devs []float64
	for _, leg := range [][3]int{
		{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
		{pose.RightHip, pose.RightKnee, pose.RightAnkle},
	} {
		angle, ok := pose.AngleAt(flat(f.At(leg[0]).Pos()), flat(f.At(leg[1]).Pos()), flat(f.At(leg[2]).Pos()))
		if ok {
			devs = append(devs, 180-angle)
		}
	}
	if len(devs) == 0 {
		return 0
	}
	return stat.Mean(devs, nil)
}

// kneeMedialOffset is the mean medial displacement of each knee from its
// hip-ankle line as a fraction of leg length. Positive is medial.
func kneeMedialOffset(f pose.Frame) (float64, bool) {
	var offs []float64
	for _, leg := range []struct {
		hip, knee, ankle int
		medialSign       float64
	}{
		{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle, -1},
		{pose.RightHip, pose.RightKnee, pose.RightAnkle, 1},
	} {
		hip, knee, ankle := f.At(leg.hip).Pos(), f.At(leg.knee).Pos(), f.At(leg.ankle).Pos()
		length := flat(ankle.Sub(hip)).Norm()
		if length < 1e-6 {
			continue
		}
		t := (knee.Y - hip.Y) / (ankle.Y - hip.Y + 1e-9)
		lineX := hip.X + t*(ankle.X-hip.X)
		offs = append(offs, leg.medialSign*(knee.X-lineX)/length)
	}
	if len(offs) == 0 {
		return 0, false
	}
	return stat.Mean(offs, nil), true
}

func newDeviation(t DeviationType, magnitude, reference float64) Deviation {
	return Deviation{
		Type:       t,
		Magnitude:  magnitude,
		Severity:   math.Min(magnitude/reference, maxSeverity),
		Correction: corrections[t],
	}
}

func deviations(f pose.Frame) []Deviation {
	var out []Deviation
	shMid, hipMid, earMid := f.ShoulderMid(), f.HipMid(), f.EarMid()

	if visible(f, pose.LeftEar, pose.RightEar, pose.LeftShoulder, pose.RightShoulder) {
		if head := pose.TiltFromVertical(earMid.Sub(shMid)); head > forwardHeadThreshold {
			out = append(out, newDeviation(ForwardHead, head, forwardHeadReference))
		}
		if angle, ok := pose.AngleAt(earMid, shMid, hipMid); ok {
			if curve := 180 - angle; curve > curvatureThreshold {
				t := Lordosis
				if earMid.Z < shMid.Z {
					t = Kyphosis
				}
				out = append(out, newDeviation(t, curve, curvatureReference))
			}
		}
	}

	if visible(f, pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip) {
		if lead := hipMid.Z - shMid.Z; lead > roundedShoulderOffset {
			out = append(out, newDeviation(RoundedShoulders, lead, roundedShoulderOffset))
		}
	}

	if visible(f, pose.LeftHip, pose.RightHip, pose.LeftKnee, pose.RightKnee, pose.LeftAnkle, pose.RightAnkle) {
		if off, ok := kneeMedialOffset(f); ok && math.Abs(off) > kneeOffsetThreshold {
			t := KneeValgus
			if off < 0 {
				t = KneeVarus
			}
			out = append(out, newDeviation(t, legDeviation(f), kneeDeviationReference))
		}
	}
	return out
}

// String renders a one-line summary for logs.
func (a Analysis) String() string {
	return fmt.Sprintf("posture %.2f (%s) head=%.2f shoulder=%.2f spine=%.2f pelvis=%.2f leg=%.2f deviations=%d",
		a.Overall, a.Status, a.Head.Score, a.Shoulder.Score, a.Spine.Score, a.Pelvis.Score, a.Leg.Score, len(a.Deviations))
}
