// Package movement classifies short frame sequences into exercise
// patterns and breaks a repetition into phases with tempo, symmetry and
// efficiency scores.
package movement

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/motion.report/internal/pose"
)

// Type is a recognised exercise pattern.
type Type string

const (
	Squat    Type = "SQUAT"
	PushUp   Type = "PUSH_UP"
	Deadlift Type = "DEADLIFT"
	Lunge    Type = "LUNGE"
	Unknown  Type = "UNKNOWN"
)

// Phase is a segment of a repetition.
type Phase string

const (
	Preparation    Phase = "PREPARATION"
	Eccentric      Phase = "ECCENTRIC"
	BottomPosition Phase = "BOTTOM_POSITION"
	Concentric     Phase = "CONCENTRIC"
	Hold           Phase = "HOLD"
)

// Rhythm classifies a repetition's tempo.
type Rhythm string

const (
	RhythmOptimal      Rhythm = "OPTIMAL"
	RhythmTooFast      Rhythm = "TOO_FAST"
	RhythmTooSlow      Rhythm = "TOO_SLOW"
	RhythmInconsistent Rhythm = "INCONSISTENT"
)

const (
	recognisedConfidence = 0.8
	unknownConfidence    = 0.3

	bandFraction    = 0.1  // fraction of range treated as top or bottom
	stillVelocity   = 0.05 // normalised units per second
	stanceAsymmetry = 0.05 // knee height difference marking a split stance
	hingeRatio      = 1.3  // shoulder travel over hip travel for a hinge
	uprightTrunk    = 45.0 // degrees from vertical
	hingeTrunk      = 60.0

	tooFastSeconds = 1.0
	tooSlowSeconds = 8.0
	minTempoRatio  = 0.5
	maxTempoRatio  = 2.0

	unknownPatternScore = 0.5
)

// PhaseSegment is a run of consecutive frames in the same phase.
type PhaseSegment struct {
	Phase   Phase   `json:"phase"`
	StartMs int64   `json:"start_ms"`
	EndMs   int64   `json:"end_ms"`
	Frames  int     `json:"frames"`
	Seconds float64 `json:"seconds"`
	Quality float64 `json:"quality"`
}

// Tempo is the time spent lowering, pausing and raising, in seconds.
type Tempo struct {
	Eccentric  float64 `json:"eccentric"`
	Pause      float64 `json:"pause"`
	Concentric float64 `json:"concentric"`
	Rhythm     Rhythm  `json:"rhythm"`
}

// Features are the sequence measurements templates are matched against.
type Features struct {
	Duration        float64 `json:"duration_s"`
	HipRange        float64 `json:"hip_range"`
	ShoulderRange   float64 `json:"shoulder_range"`
	CentreRange     float64 `json:"centre_range"`
	TrunkTilt       float64 `json:"trunk_tilt_degrees"`
	StanceAsymmetry float64 `json:"stance_asymmetry"`
}

// Pattern is the classification of one frame sequence.
type Pattern struct {
	Type       Type           `json:"type"`
	Confidence float64        `json:"confidence"`
	Phase      Phase          `json:"current_phase"`
	Phases     []PhaseSegment `json:"phases"`
	Tempo      Tempo          `json:"tempo"`
	Quality    float64        `json:"quality"`
	Symmetry   float64        `json:"symmetry"`
	Efficiency float64        `json:"efficiency"`
	Similarity float64        `json:"similarity"`
	Features   Features       `json:"features"`
}

// track selects the vertical series a template follows.
type track int

const (
	trackHip track = iota
	trackShoulder
	trackCentre
)

type template struct {
	typ                    Type
	minSeconds, maxSeconds float64
	verticalRange          float64
	track                  track
	accepts                func(Features) bool
}

var templates = []template{
	{Squat, 2.0, 4.0, 0.15, trackHip, func(f Features) bool {
		return f.TrunkTilt < uprightTrunk && f.StanceAsymmetry <= stanceAsymmetry && !hinge(f)
	}},
	{PushUp, 1.5, 3.0, 0.10, trackShoulder, func(f Features) bool {
		return f.TrunkTilt >= uprightTrunk
	}},
	{Deadlift, 2.0, 4.0, 0.20, trackShoulder, func(f Features) bool {
		return f.TrunkTilt < hingeTrunk && hinge(f)
	}},
	{Lunge, 2.0, 4.0, 0.12, trackHip, func(f Features) bool {
		return f.TrunkTilt < uprightTrunk && f.StanceAsymmetry > stanceAsymmetry
	}},
}

func hinge(f Features) bool {
	return f.ShoulderRange >= hingeRatio*f.HipRange && f.ShoulderRange > 0
}

// Config holds tunables for the analyzer.
type Config struct {
	MinFrames           int     // shortest sequence analysed
	MaxFrames           int     // newest frames kept from longer sequences
	SimilarityThreshold float64 // template match score needed to recognise
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{MinFrames: 10, MaxFrames: 60, SimilarityThreshold: 0.7}
}

// Analyzer classifies frame sequences. It holds no per-sequence state and
// is safe for concurrent use.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an Analyzer. Zero fields fall back to defaults.
func NewAnalyzer(cfg Config) *Analyzer {
	def := DefaultConfig()
	if cfg.MinFrames <= 0 {
		cfg.MinFrames = def.MinFrames
	}
	if cfg.MaxFrames < cfg.MinFrames {
		cfg.MaxFrames = max(def.MaxFrames, cfg.MinFrames)
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	return &Analyzer{cfg: cfg}
}

// AnalyzeSequence classifies the newest MaxFrames frames. It returns nil
// when fewer than MinFrames frames are given.
func (a *Analyzer) AnalyzeSequence(frames []pose.Frame) *Pattern {
	if len(frames) < a.cfg.MinFrames {
		return nil
	}
	if len(frames) > a.cfg.MaxFrames {
		frames = frames[len(frames)-a.cfg.MaxFrames:]
	}

	s := newSeries(frames)
	feat := s.features()

	p := &Pattern{Type: Unknown, Confidence: unknownConfidence, Features: feat}
	best, score := matchTemplate(feat)
	if best != nil && score > a.cfg.SimilarityThreshold {
		p.Type = best.typ
		p.Confidence = recognisedConfidence
		p.Similarity = score
	}

	var labels []Phase
	var primary []float64
	if p.Type == Unknown {
		primary = s.centreY
		labels = velocityPhases(s.times, primary)
	} else {
		primary = s.vertical(best.track)
		labels = extremePhases(primary)
	}
	p.Phases = segments(s.times, primary, labels)
	p.Phase = labels[len(labels)-1]
	p.Tempo = tempo(p.Phases)

	patternScore := unknownPatternScore
	if p.Type != Unknown {
		patternScore = math.Min(1, rangeOf(primary)/best.verticalRange)
	}
	p.Quality = pose.Clamp01(0.3*s.meanPoseQuality() + 0.4*meanPhaseQuality(p.Phases) + 0.3*patternScore)
	p.Symmetry = s.symmetry()
	p.Efficiency = s.efficiency()
	return p
}

// matchTemplate returns the best accepted template and its score.
func matchTemplate(f Features) (*template, float64) {
	var best *template
	bestScore := 0.0
	for i := range templates {
		t := &templates[i]
		if !t.accepts(f) {
			continue
		}
		var r float64
		switch t.track {
		case trackHip:
			r = f.HipRange
		case trackShoulder:
			r = f.ShoulderRange
		default:
			r = f.CentreRange
		}
		score := 0.5*durationCloseness(f.Duration, t.minSeconds, t.maxSeconds) + 0.5*rangeCloseness(r, t.verticalRange)
		if score > bestScore {
			best, bestScore = t, score
		}
	}
	return best, bestScore
}

func durationCloseness(d, lo, hi float64) float64 {
	switch {
	case d < lo:
		return math.Max(0, 1-(lo-d)/lo)
	case d > hi:
		return math.Max(0, 1-(d-hi)/lo)
	default:
		return 1
	}
}

func rangeCloseness(r, want float64) float64 {
	return math.Max(0, 1-math.Abs(r-want)/want)
}

// extremePhases labels a single repetition around the lowest point of the
// tracked series. Y grows downwards so the lowest point is the maximum.
func extremePhases(y []float64) []Phase {
	labels := make([]Phase, len(y))
	lo, hi := floats.Min(y), floats.Max(y)
	band := bandFraction * (hi - lo)
	bottom := floats.MaxIdx(y)

	first, last := bottom, bottom
	for first > 0 && y[first-1] >= hi-band {
		first--
	}
	for last < len(y)-1 && y[last+1] >= hi-band {
		last++
	}
	for i, v := range y {
		atTop := v <= lo+band
		switch {
		case i >= first && i <= last:
			labels[i] = BottomPosition
		case i < first && atTop:
			labels[i] = Preparation
		case i < first:
			labels[i] = Eccentric
		case atTop:
			labels[i] = Hold
		default:
			labels[i] = Concentric
		}
	}
	return labels
}

// velocityPhases labels frames from the vertical velocity of the centre
// of mass when no template matched.
func velocityPhases(times []float64, y []float64) []Phase {
	labels := make([]Phase, len(y))
	moved := false
	labels[0] = Preparation
	for i := 1; i < len(y); i++ {
		dt := times[i] - times[i-1]
		v := 0.0
		if dt > 0 {
			v = (y[i] - y[i-1]) / dt
		}
		switch {
		case v > stillVelocity:
			labels[i], moved = Eccentric, true
		case v < -stillVelocity:
			labels[i], moved = Concentric, true
		case moved:
			labels[i] = Hold
		default:
			labels[i] = Preparation
		}
	}
	return labels
}

// expectedDirection is the sign of vertical motion within a phase, 0 for
// phases that should be still.
func expectedDirection(p Phase) float64 {
	switch p {
	case Eccentric:
		return 1
	case Concentric:
		return -1
	default:
		return 0
	}
}

// segments groups consecutive labels. Each frame after the first carries
// the time since its predecessor.
func segments(times, y []float64, labels []Phase) []PhaseSegment {
	var out []PhaseSegment
	var consistent int
	for i, l := range labels {
		if len(out) == 0 || out[len(out)-1].Phase != l {
			if len(out) > 0 {
				finish(&out[len(out)-1], consistent)
			}
			out = append(out, PhaseSegment{Phase: l, StartMs: toMs(times[i])})
			consistent = 0
		}
		seg := &out[len(out)-1]
		seg.EndMs = toMs(times[i])
		seg.Frames++
		if i > 0 {
			seg.Seconds += times[i] - times[i-1]
			if dir := expectedDirection(l); dir == 0 || (y[i]-y[i-1])*dir > 0 {
				consistent++
			}
		} else {
			consistent++
		}
	}
	if len(out) > 0 {
		finish(&out[len(out)-1], consistent)
	}
	return out
}

func toMs(sec float64) int64 { return int64(math.Round(sec * 1000)) }

func finish(seg *PhaseSegment, consistent int) {
	seg.Quality = float64(consistent) / float64(seg.Frames)
}

func meanPhaseQuality(segs []PhaseSegment) float64 {
	if len(segs) == 0 {
		return 0
	}
	q := make([]float64, len(segs))
	w := make([]float64, len(segs))
	for i, s := range segs {
		q[i], w[i] = s.Quality, float64(s.Frames)
	}
	return stat.Mean(q, w)
}

func tempo(segs []PhaseSegment) Tempo {
	var t Tempo
	for _, s := range segs {
		switch s.Phase {
		case Eccentric:
			t.Eccentric += s.Seconds
		case BottomPosition:
			t.Pause += s.Seconds
		case Concentric:
			t.Concentric += s.Seconds
		}
	}
	total := t.Eccentric + t.Pause + t.Concentric
	switch {
	case total < tooFastSeconds:
		t.Rhythm = RhythmTooFast
	case total > tooSlowSeconds:
		t.Rhythm = RhythmTooSlow
	case t.Concentric > 0 && t.Eccentric/t.Concentric >= minTempoRatio && t.Eccentric/t.Concentric <= maxTempoRatio:
		t.Rhythm = RhythmOptimal
	default:
		t.Rhythm = RhythmInconsistent
	}
	return t
}

func rangeOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Max(v) - floats.Min(v)
}
