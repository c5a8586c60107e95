// Package angles computes smoothed 3D joint angles from pose frames.
package angles

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/motion.report/internal/pose"
)

// Quality is the confidence bucket attached to a single joint angle.
type Quality string

const (
	QualityHigh   Quality = "HIGH"
	QualityMedium Quality = "MEDIUM"
	QualityLow    Quality = "LOW"
)

// Quality score thresholds.
const (
	highQualityThreshold   = 0.8
	mediumQualityThreshold = 0.6
)

// Joint keys.
const (
	LeftElbow     = "left_elbow"
	RightElbow    = "right_elbow"
	LeftShoulder  = "left_shoulder"
	RightShoulder = "right_shoulder"
	LeftHip       = "left_hip"
	RightHip      = "right_hip"
	LeftKnee      = "left_knee"
	RightKnee     = "right_knee"
	LeftAnkle     = "left_ankle"
	RightAnkle    = "right_ankle"
	LeftWrist     = "left_wrist"
	RightWrist    = "right_wrist"
	Spine         = "spine"
	Neck          = "neck"
)

// Range is the reference range of motion for a joint, in degrees of the
// inner angle at the vertex (180 = fully extended).
type Range struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Ideal float64 `json:"ideal"`
}

// Contains reports whether angle lies inside the range, inclusive.
func (r Range) Contains(angle float64) bool {
	return angle >= r.Min && angle <= r.Max
}

// JointAngle is one smoothed joint measurement.
type JointAngle struct {
	Joint          string  `json:"joint"`
	Angle          float64 `json:"angle"`
	RangeOfMotion  Range   `json:"range_of_motion"`
	Quality        Quality `json:"quality"`
	Stability      float64 `json:"stability"`
	WithinRange    bool    `json:"is_within_normal_range"`
	Recommendation string  `json:"recommendation"`
}

// Map holds joint angles keyed by joint name.
type Map map[string]JointAngle

// point resolves one end of a joint triple from a frame.
type point func(pose.Frame) (pose.Vec3, []pose.Landmark)

func landmark(i int) point {
	return func(f pose.Frame) (pose.Vec3, []pose.Landmark) {
		l := f.At(i)
		return l.Pos(), []pose.Landmark{l}
	}
}

func midpoint(a, b int) point {
	return func(f pose.Frame) (pose.Vec3, []pose.Landmark) {
		return f.Midpoint(a, b), []pose.Landmark{f.At(a), f.At(b)}
	}
}

// jointDef names a proximal, vertex and distal point triple.
type jointDef struct {
	name                     string
	proximal, vertex, distal point
	rom                      Range
}

var jointDefs = []jointDef{
	{LeftShoulder, landmark(pose.LeftHip), landmark(pose.LeftShoulder), landmark(pose.LeftElbow), Range{0, 180, 90}},
	{RightShoulder, landmark(pose.RightHip), landmark(pose.RightShoulder), landmark(pose.RightElbow), Range{0, 180, 90}},
	{LeftElbow, landmark(pose.LeftShoulder), landmark(pose.LeftElbow), landmark(pose.LeftWrist), Range{30, 180, 160}},
	{RightElbow, landmark(pose.RightShoulder), landmark(pose.RightElbow), landmark(pose.RightWrist), Range{30, 180, 160}},
	{LeftWrist, landmark(pose.LeftElbow), landmark(pose.LeftWrist), landmark(pose.LeftIndex), Range{110, 180, 175}},
	{RightWrist, landmark(pose.RightElbow), landmark(pose.RightWrist), landmark(pose.RightIndex), Range{110, 180, 175}},
	{LeftHip, landmark(pose.LeftShoulder), landmark(pose.LeftHip), landmark(pose.LeftKnee), Range{60, 180, 170}},
	{RightHip, landmark(pose.RightShoulder), landmark(pose.RightHip), landmark(pose.RightKnee), Range{60, 180, 170}},
	{LeftKnee, landmark(pose.LeftHip), landmark(pose.LeftKnee), landmark(pose.LeftAnkle), Range{40, 180, 170}},
	{RightKnee, landmark(pose.RightHip), landmark(pose.RightKnee), landmark(pose.RightAnkle), Range{40, 180, 170}},
	{LeftAnkle, landmark(pose.LeftKnee), landmark(pose.LeftAnkle), landmark(pose.LeftFootIndex), Range{60, 150, 110}},
	{RightAnkle, landmark(pose.RightKnee), landmark(pose.RightAnkle), landmark(pose.RightFootIndex), Range{60, 150, 110}},
	{Spine, midpoint(pose.LeftShoulder, pose.RightShoulder), midpoint(pose.LeftHip, pose.RightHip), midpoint(pose.LeftKnee, pose.RightKnee), Range{120, 180, 175}},
	{Neck, midpoint(pose.LeftEar, pose.RightEar), midpoint(pose.LeftShoulder, pose.RightShoulder), midpoint(pose.LeftHip, pose.RightHip), Range{130, 180, 175}},
}

// essentialJoints are computed on degraded tiers.
var essentialJoints = map[string]bool{LeftKnee: true, RightKnee: true, Spine: true}

// ReferenceRange returns the range of motion for a joint key.
func ReferenceRange(joint string) (Range, bool) {
	for _, d := range jointDefs {
		if d.name == joint {
			return d.rom, true
		}
	}
	return Range{}, false
}

// Config holds tunables for the calculator.
type Config struct {
	SmoothingWindow int // raw angles kept per joint
}

// DefaultConfig returns the calculator defaults.
func DefaultConfig() Config {
	return Config{SmoothingWindow: 5}
}

// Calculator computes joint angles and owns the per-joint smoothing
// buffers. It is not safe for concurrent use.
type Calculator struct {
	cfg     Config
	history map[string][]float64
	weights []float64
}

// NewCalculator creates a Calculator. A non-positive smoothing window
// falls back to the default.
func NewCalculator(cfg Config) *Calculator {
	if cfg.SmoothingWindow <= 0 {
		cfg.SmoothingWindow = DefaultConfig().SmoothingWindow
	}
	weights := make([]float64, cfg.SmoothingWindow)
	for i := range weights {
		weights[i] = float64(i + 1)
	}
	return &Calculator{
		cfg:     cfg,
		history: make(map[string][]float64),
		weights: weights,
	}
}

// CalculateAll computes every known joint. Joints whose computation fails
// are omitted; the method never fails.
func (c *Calculator) CalculateAll(f pose.Frame) Map {
	return c.calculate(f, func(string) bool { return true })
}

// CalculateEssential computes only the knees and spine.
func (c *Calculator) CalculateEssential(f pose.Frame) Map {
	return c.calculate(f, func(name string) bool { return essentialJoints[name] })
}

// Reset clears all smoothing buffers.
func (c *Calculator) Reset() {
	c.history = make(map[string][]float64)
}

func (c *Calculator) calculate(f pose.Frame, include func(string) bool) Map {
	out := make(Map, len(jointDefs))
	for _, def := range jointDefs {
		if !include(def.name) {
			continue
		}
		if ja, err := c.joint(f, def); err == nil {
			out[def.name] = ja
		}
	}
	return out
}

// joint computes a single joint, converting any panic into an error so
// one bad joint cannot take the frame down.
func (c *Calculator) joint(f pose.Frame, def jointDef) (ja JointAngle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("joint %s: %v", def.name, r)
		}
	}()

	a, la := def.proximal(f)
	v, lv := def.vertex(f)
	b, lb := def.distal(f)
	parts := append(append(la, lv...), lb...)

	// A degenerate joint reports 0 and stays out of the smoothing history.
	raw, valid := pose.AngleAt(a, v, b)
	smoothed := raw
	if valid {
		smoothed = c.smooth(def.name, raw)
	}

	var visSum, stability float64
	for _, l := range parts {
		visSum += pose.Clamp01(l.Visibility)
		stability += l.Confidence()
	}
	visibility := visSum / float64(len(parts))
	stability /= float64(len(parts))

	within := def.rom.Contains(smoothed)
	quality := QualityLow
	if valid {
		quality = qualityFor(visibility, within)
	}

	return JointAngle{
		Joint:          def.name,
		Angle:          smoothed,
		RangeOfMotion:  def.rom,
		Quality:        quality,
		Stability:      stability,
		WithinRange:    within,
		Recommendation: recommendation(def.name, smoothed, def.rom),
	}, nil
}

// smooth appends raw to the joint's history and returns the linearly
// weighted mean, newest sample weighted highest.
func (c *Calculator) smooth(joint string, raw float64) float64 {
	h := append(c.history[joint], raw)
	if len(h) > c.cfg.SmoothingWindow {
		h = h[len(h)-c.cfg.SmoothingWindow:]
	}
	c.history[joint] = h
	return stat.Mean(h, c.weights[:len(h)])
}

// qualityFor combines visibility, range compliance and temporal
// consistency. Temporal consistency is held at its 1.0 baseline.
func qualityFor(visibility float64, within bool) Quality {
	const temporalConsistency = 1.0
	rangeScore := 0.0
	if within {
		rangeScore = 1
	}
	score := 0.4*visibility + 0.3*rangeScore + 0.3*temporalConsistency
	switch {
	case score >= highQualityThreshold:
		return QualityHigh
	case score >= mediumQualityThreshold:
		return QualityMedium
	default:
		return QualityLow
	}
}

func recommendation(joint string, angle float64, rom Range) string {
	switch {
	case angle < rom.Min:
		return fmt.Sprintf("%s flexed beyond normal range (%.0f° < %.0f°); reduce depth or load", joint, angle, rom.Min)
	case angle > rom.Max:
		return fmt.Sprintf("%s extended beyond normal range (%.0f° > %.0f°); avoid locking out", joint, angle, rom.Max)
	default:
		return fmt.Sprintf("%s within normal range", joint)
	}
}
