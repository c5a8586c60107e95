// Package asymmetry measures left/right and plane-wise body asymmetry
// from pose frames, keeping a bounded history for trend detection.
package asymmetry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/motion.report/internal/pose"
)

// Detection thresholds.
const (
	minPairVisibility = 0.5
	epsilon           = 1e-6

	// movementHistoryMin is the number of snapshots needed before the
	// movement-asymmetry proxy contributes.
	movementHistoryMin = 5

	// trendBlock is the size of each block compared by Trends.
	trendBlock = 20

	leftRightTrendThreshold = 0.1
	apTrendThreshold        = 0.15
	rotationTrendThreshold  = 0.2

	leftRightConcern  = 0.15
	apConcern         = 0.2
	mlConcern         = 0.15
	rotationalConcern = 0.3
)

// Overall score weights.
const (
	weightLeftRight  = 0.4
	weightAP         = 0.3
	weightML         = 0.2
	weightRotational = 0.1
)

// Pair names a bilateral landmark pair.
type Pair struct {
	Name        string
	Left, Right int
}

// Pairs are the bilateral joint pairs compared for left-right asymmetry.
var Pairs = []Pair{
	{"shoulders", pose.LeftShoulder, pose.RightShoulder},
	{"elbows", pose.LeftElbow, pose.RightElbow},
	{"wrists", pose.LeftWrist, pose.RightWrist},
	{"hips", pose.LeftHip, pose.RightHip},
	{"knees", pose.LeftKnee, pose.RightKnee},
	{"ankles", pose.LeftAnkle, pose.RightAnkle},
}

// Snapshot is one frame's scalar asymmetries.
type Snapshot struct {
	TimestampMs       int64   `json:"timestamp_ms"`
	LeftRight         float64 `json:"left_right"`
	AnteriorPosterior float64 `json:"anterior_posterior"`
	MedioLateral      float64 `json:"medio_lateral"`
	Rotational        float64 `json:"rotational"`
}

// PairAsymmetry is the per-pair breakdown. Positive values mean the left
// side sits further from the midline.
type PairAsymmetry struct {
	Pair     string  `json:"pair"`
	Position float64 `json:"position"`
	Movement float64 `json:"movement"`
	Combined float64 `json:"combined"`
}

// Direction describes how a dimension is changing over time.
type Direction string

const (
	DirectionImproving Direction = "IMPROVING"
	DirectionStable    Direction = "STABLE"
	DirectionWorsening Direction = "WORSENING"
)

// Trends compares the latest block of snapshots with the block before it.
type Trends struct {
	Available         bool      `json:"available"`
	LeftRight         Direction `json:"left_right"`
	AnteriorPosterior Direction `json:"anterior_posterior"`
	Rotational        Direction `json:"rotational"`
}

// Analysis is the full asymmetry report for one frame.
type Analysis struct {
	LeftRight         float64         `json:"left_right"`         // [-1,1], positive = left dominant
	AnteriorPosterior float64         `json:"anterior_posterior"` // [-1,1], positive = upper body forward
	MedioLateral      float64         `json:"medio_lateral"`      // [-1,1], positive = shifted to subject's left
	Rotational        float64         `json:"rotational"`         // [0,1]
	Overall           float64         `json:"overall_asymmetry_score"`
	Pairs             []PairAsymmetry `json:"pairs,omitempty"`
	Trends            Trends          `json:"trends"`
	Recommendations   []string        `json:"recommendations,omitempty"`
}

// Config holds tunables for the detector.
type Config struct {
	HistorySize int // snapshots retained (~3.3s at 30 fps for 100)
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{HistorySize: 100}
}

// Detector computes asymmetry and owns a bounded snapshot ring. It is not
// safe for concurrent use.
type Detector struct {
	cfg     Config
	history []Snapshot
}

// NewDetector creates a Detector.
func NewDetector(cfg Config) *Detector {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	return &Detector{cfg: cfg, history: make([]Snapshot, 0, cfg.HistorySize)}
}

// Analyze measures the frame, records a snapshot and returns the report.
func (d *Detector) Analyze(f pose.Frame) Analysis {
	a := Measure(f, d.movementProxy())
	d.record(Snapshot{
		TimestampMs:       f.TimestampMs,
		LeftRight:         a.LeftRight,
		AnteriorPosterior: a.AnteriorPosterior,
		MedioLateral:      a.MedioLateral,
		Rotational:        a.Rotational,
	})
	a.Trends = d.Trends()
	a.Recommendations = recommendations(a)
	return a
}

// History returns a copy of the retained snapshots, oldest first.
func (d *Detector) History() []Snapshot {
	out := make([]Snapshot, len(d.history))
	copy(out, d.history)
	return out
}

// Reset clears the snapshot history.
func (d *Detector) Reset() {
	d.history = d.history[:0]
}

func (d *Detector) record(s Snapshot) {
	if len(d.history) >= d.cfg.HistorySize {
		// Evict oldest in place so the backing array stays bounded.
		copy(d.history, d.history[1:])
		d.history = d.history[:len(d.history)-1]
	}
	d.history = append(d.history, s)
}

// movementProxy returns the mean per-frame change of the aggregate
// left-right asymmetry over the most recent snapshots, or nil when there
// is not enough history.
func (d *Detector) movementProxy() *float64 {
	if len(d.history) < movementHistoryMin {
		return nil
	}
	recent := d.history[len(d.history)-movementHistoryMin:]
	diffs := make([]float64, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		diffs[i-1] = recent[i].LeftRight - recent[i-1].LeftRight
	}
	v := pose.Clamp(stat.Mean(diffs, nil), -1, 1)
	return &v
}

// Measure computes the stateless part of the analysis. movement, when
// non-nil, blends a rate-of-change term into every pair.
func Measure(f pose.Frame, movement *float64) Analysis {
	var a Analysis
	a.Pairs = pairAsymmetries(f, movement)
	if len(a.Pairs) > 0 {
		combined := make([]float64, len(a.Pairs))
		for i, p := range a.Pairs {
			combined[i] = p.Combined
		}
		a.LeftRight = pose.Clamp(stat.Mean(combined, nil), -1, 1)
	}
	a.AnteriorPosterior = anteriorPosterior(f)
	a.MedioLateral = medioLateral(f)
	a.Rotational = rotational(f)
	a.Overall = overall(a)
	return a
}

// MeasureQuick is the reduced variant used on degraded tiers: shoulder
// and hip pairs plus rotation, no history.
func MeasureQuick(f pose.Frame) Analysis {
	var a Analysis
	var vals []float64
	for _, p := range []Pair{Pairs[0], Pairs[3]} {
		if pa, ok := pairAsymmetry(f, p, nil); ok {
			a.Pairs = append(a.Pairs, pa)
			vals = append(vals, pa.Combined)
		}
	}
	if len(vals) > 0 {
		a.LeftRight = pose.Clamp(stat.Mean(vals, nil), -1, 1)
	}
	a.Rotational = rotational(f)
	a.Overall = overall(a)
	return a
}

func pairAsymmetries(f pose.Frame, movement *float64) []PairAsymmetry {
	out := make([]PairAsymmetry, 0, len(Pairs))
	for _, p := range Pairs {
		if pa, ok := pairAsymmetry(f, p, movement); ok {
			out = append(out, pa)
		}
	}
	return out
}

// midlineX is the lateral body midline: the mean of the shoulder and hip
// midpoints.
func midlineX(f pose.Frame) float64 {
	return (f.ShoulderMid().X + f.HipMid().X) / 2
}

func pairAsymmetry(f pose.Frame, p Pair, movement *float64) (PairAsymmetry, bool) {
	l, r := f.At(p.Left), f.At(p.Right)
	if l.Visibility < minPairVisibility || r.Visibility < minPairVisibility {
		return PairAsymmetry{}, false
	}
	mid := midlineX(f)
	dl := math.Abs(l.X - mid)
	dr := math.Abs(r.X - mid)
	pos := pose.Clamp((dl-dr)/(dl+dr+epsilon), -1, 1)

	pa := PairAsymmetry{Pair: p.Name, Position: pos, Combined: pos}
	if movement != nil {
		pa.Movement = *movement
		pa.Combined = pose.Clamp(0.7*pos+0.3*pa.Movement, -1, 1)
	}
	return pa, true
}

// anteriorPosterior is positive when the upper body sits in front of the
// hips (smaller Z is closer to the camera).
func anteriorPosterior(f pose.Frame) float64 {
	sh := f.ShoulderMid()
	hip := f.HipMid()
	head := f.At(pose.Nose).Pos()
	torso := hip.Z - sh.Z
	headLead := sh.Z - head.Z
	if f.At(pose.Nose).Visibility < minPairVisibility {
		headLead = 0
	}
	return pose.Clamp(2*(torso+0.5*headLead), -1, 1)
}

// medioLateral combines the lateral offset of the shoulders over the hips
// with a visibility-weighted lower-limb load proxy. Both terms are signed
// toward the subject's left, so exchanging sides negates the result.
func medioLateral(f pose.Frame) float64 {
	lateral := (f.ShoulderMid().X - f.HipMid().X) * leftward(f)

	left := []float64{f.At(pose.LeftHip).Visibility, f.At(pose.LeftKnee).Visibility, f.At(pose.LeftAnkle).Visibility}
	right := []float64{f.At(pose.RightHip).Visibility, f.At(pose.RightKnee).Visibility, f.At(pose.RightAnkle).Visibility}
	ls, rs := floats.Sum(left), floats.Sum(right)
	weight := (ls - rs) / (ls + rs + epsilon)

	return pose.Clamp(5*lateral+0.5*weight, -1, 1)
}

// leftward is +1 when the subject's left side lies toward +X, -1 when it
// lies toward -X and 0 when neither the hip nor the shoulder line says.
func leftward(f pose.Frame) float64 {
	for _, p := range [][2]int{{pose.LeftHip, pose.RightHip}, {pose.LeftShoulder, pose.RightShoulder}} {
		dx := f.At(p[0]).X - f.At(p[1]).X
		if math.Abs(dx) > epsilon {
			return math.Copysign(1, dx)
		}
	}
	return 0
}

// rotational is the angle between the shoulder line and the hip line in
// the transverse (x-z) plane, normalised by 90°.
func rotational(f pose.Frame) float64 {
	s := f.At(pose.LeftShoulder).Pos().Sub(f.At(pose.RightShoulder).Pos())
	h := f.At(pose.LeftHip).Pos().Sub(f.At(pose.RightHip).Pos())
	s.Y, h.Y = 0, 0
	ns, nh := s.Norm(), h.Norm()
	if ns < epsilon || nh < epsilon {
		return 0
	}
	cos := math.Abs(s.Dot(h)) / (ns * nh)
	deg := math.Acos(math.Min(1, cos)) * 180 / math.Pi
	return pose.Clamp01(deg / 90)
}

func overall(a Analysis) float64 {
	return pose.Clamp01(weightLeftRight*math.Abs(a.LeftRight) +
		weightAP*math.Abs(a.AnteriorPosterior) +
		weightML*math.Abs(a.MedioLateral) +
		weightRotational*a.Rotational)
}

// Trends compares the most recent trendBlock snapshots with the block
// before them. It needs at least two full blocks of history.
func (d *Detector) Trends() Trends {
	if len(d.history) < 2*trendBlock {
		return Trends{LeftRight: DirectionStable, AnteriorPosterior: DirectionStable, Rotational: DirectionStable}
	}
	n := len(d.history)
	recent := d.history[n-trendBlock:]
	prior := d.history[n-2*trendBlock : n-trendBlock]

	magnitude := func(ss []Snapshot, pick func(Snapshot) float64) float64 {
		vals := make([]float64, len(ss))
		for i, s := range ss {
			vals[i] = math.Abs(pick(s))
		}
		return stat.Mean(vals, nil)
	}
	direction := func(pick func(Snapshot) float64, threshold float64) Direction {
		change := magnitude(recent, pick) - magnitude(prior, pick)
		switch {
		case change > threshold:
			return DirectionWorsening
		case change < -threshold:
			return DirectionImproving
		default:
			return DirectionStable
		}
	}

	return Trends{
		Available:         true,
		LeftRight:         direction(func(s Snapshot) float64 { return s.LeftRight }, leftRightTrendThreshold),
		AnteriorPosterior: direction(func(s Snapshot) float64 { return s.AnteriorPosterior }, apTrendThreshold),
		Rotational:        direction(func(s Snapshot) float64 { return s.Rotational }, rotationTrendThreshold),
	}
}

func recommendations(a Analysis) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	if math.Abs(a.LeftRight) > leftRightConcern {
		add(fmt.Sprintf("Reduce %s-side dominance with unilateral strengthening", dominantSide(a.LeftRight)))
	}
	if math.Abs(a.AnteriorPosterior) > apConcern {
		add("Stack shoulders over hips to reduce forward/backward lean")
	}
	if math.Abs(a.MedioLateral) > mlConcern {
		add("Distribute weight evenly between both feet")
	}
	if a.Rotational > rotationalConcern {
		add("Square shoulders and hips to reduce trunk rotation")
	}
	if a.Trends.LeftRight == DirectionWorsening {
		add(fmt.Sprintf("Reduce %s-side dominance with unilateral strengthening", dominantSide(a.LeftRight)))
	}
	if a.Trends.AnteriorPosterior == DirectionWorsening {
		add("Stack shoulders over hips to reduce forward/backward lean")
	}
	if a.Trends.Rotational == DirectionWorsening {
		add("Square shoulders and hips to reduce trunk rotation")
	}
	return out
}

func dominantSide(lr float64) string {
	if lr < 0 {
		return "right"
	}
	return "left"
}
