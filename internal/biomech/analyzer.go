// Package biomech combines the joint angle, asymmetry, posture and movement
// analysers into a per-frame assessment with kinetic chain, fatigue and
// movement quality scores. Cheaper entry points serve the degraded tiers.
package biomech

import (
	"time"

	"github.com/banshee-data/motion.report/internal/biomech/angles"
	"github.com/banshee-data/motion.report/internal/biomech/asymmetry"
	"github.com/banshee-data/motion.report/internal/biomech/movement"
	"github.com/banshee-data/motion.report/internal/biomech/posture"
	"github.com/banshee-data/motion.report/internal/config"
	"github.com/banshee-data/motion.report/internal/pose"
)

// placeholderPosture stands in for posture on the MINIMAL tier.
const placeholderPosture = 0.8

// Config holds the analyzer and sub-analyser tunables.
type Config struct {
	WindowSize int // frames buffered for pattern and fatigue analysis
	Angles     angles.Config
	Asymmetry  asymmetry.Config
	Posture    posture.Config
	Movement   movement.Config
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{
		WindowSize: 30,
		Angles:     angles.DefaultConfig(),
		Asymmetry:  asymmetry.DefaultConfig(),
		Posture:    posture.DefaultConfig(),
		Movement:   movement.DefaultConfig(),
	}
}

// ConfigFromTuning builds a Config from the tuning file.
func ConfigFromTuning(tc *config.TuningConfig) Config {
	return Config{
		WindowSize: tc.GetAnalysisWindow(),
		Angles:     angles.Config{SmoothingWindow: tc.GetSmoothingWindow()},
		Asymmetry:  asymmetry.Config{HistorySize: tc.GetAsymmetryHistory()},
		Posture:    posture.Config{HistorySize: tc.GetPostureHistory()},
		Movement: movement.Config{
			MinFrames:           tc.GetPatternMinFrames(),
			MaxFrames:           tc.GetPatternMaxFrames(),
			SimilarityThreshold: tc.GetPatternSimilarityThreshold(),
		},
	}
}

// Analyzer owns all per-session analysis state. It is not safe for
// concurrent use; the realtime processor confines it to its worker.
type Analyzer struct {
	cfg       Config
	angles    *angles.Calculator
	asymmetry *asymmetry.Detector
	posture   *posture.Assessor
	movement  *movement.Analyzer
	window    []windowEntry
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultConfig().WindowSize
	}
	return &Analyzer{
		cfg:       cfg,
		angles:    angles.NewCalculator(cfg.Angles),
		asymmetry: asymmetry.NewDetector(cfg.Asymmetry),
		posture:   posture.NewAssessor(cfg.Posture),
		movement:  movement.NewAnalyzer(cfg.Movement),
		window:    make([]windowEntry, 0, cfg.WindowSize),
	}
}

// Reset clears the window and every sub-analyser's history.
func (a *Analyzer) Reset() {
	a.angles.Reset()
	a.asymmetry.Reset()
	a.posture.Reset()
	a.window = a.window[:0]
	diagf("analysis state reset")
}

// WindowLen returns the number of buffered frames.
func (a *Analyzer) WindowLen() int { return len(a.window) }

// PostureTrends reports posture trends over the given span of frame time.
func (a *Analyzer) PostureTrends(window time.Duration) posture.Trends {
	return a.posture.Trends(window)
}

// AnalyzePose runs the full HIGH tier analysis.
func (a *Analyzer) AnalyzePose(f pose.Frame) (*Result, error) {
	return a.guard(TierHigh, f, func(start time.Time) *Result {
		ja := a.angles.CalculateAll(f)
		asym := a.asymmetry.Analyze(f)
		post := a.posture.Assess(f)
		a.push(windowEntry{frame: f, angles: ja, posture: post.Overall})

		// nil until the window reaches the movement analyser's minimum.
		pattern := a.movement.AnalyzeSequence(a.frames())
		fat := fatigue(a.window)
		if fat != nil && fat.Level == FatigueHigh {
			diagf("fatigue high at %dms: score=%.1f variability=+%.1f° posture=-%.2f",
				f.TimestampMs, fat.Score, fat.VariabilityIncrease, fat.PostureDecline)
		}

		kc := kineticChain(f, ja, asym, post)
		return &Result{
			TimestampMs:    f.TimestampMs,
			ProcessingTime: time.Since(start),
			Tier:           TierHigh,
			JointAngles:    ja,
			Asymmetry:      asym,
			Posture:        post,
			Pattern:        pattern,
			KineticChain:   kc,
			Quality:        movementQuality(ja, asym, post, kc),
			Fatigue:        fat,
			Compensations:  compensations(asym),
			Confidence:     f.MeanConfidence(),
		}
	})
}

// AnalyzeMedium computes angles, asymmetry and posture in full but uses
// placeholder kinetic chain scores and skips pattern, fatigue and
// compensation work.
func (a *Analyzer) AnalyzeMedium(f pose.Frame) (*Result, error) {
	return a.guard(TierMedium, f, func(start time.Time) *Result {
		ja := a.angles.CalculateAll(f)
		asym := a.asymmetry.Analyze(f)
		post := a.posture.Assess(f)
		kc := placeholderChain()
		return &Result{
			TimestampMs:    f.TimestampMs,
			ProcessingTime: time.Since(start),
			Tier:           TierMedium,
			JointAngles:    ja,
			Asymmetry:      asym,
			Posture:        post,
			KineticChain:   kc,
			Quality:        movementQuality(ja, asym, post, kc),
			Confidence:     f.MeanConfidence(),
		}
	})
}

// AnalyzeLow computes the essential angles with stateless asymmetry and
// posture checks. Kinetic chain, quality and compensations are left empty.
func (a *Analyzer) AnalyzeLow(f pose.Frame) (*Result, error) {
	return a.guard(TierLow, f, func(start time.Time) *Result {
		return &Result{
			TimestampMs:    f.TimestampMs,
			ProcessingTime: time.Since(start),
			Tier:           TierLow,
			JointAngles:    a.angles.CalculateEssential(f),
			Asymmetry:      asymmetry.MeasureQuick(f),
			Posture:        posture.AssessQuick(f),
			Confidence:     f.MeanConfidence(),
		}
	})
}

// Minimal returns a frame confidence with placeholder posture and no
// other analysis.
func (a *Analyzer) Minimal(f pose.Frame) (*Result, error) {
	return a.guard(TierMinimal, f, func(start time.Time) *Result {
		return &Result{
			TimestampMs:    f.TimestampMs,
			ProcessingTime: time.Since(start),
			Tier:           TierMinimal,
			JointAngles:    angles.Map{},
			Posture: posture.Analysis{
				Overall: placeholderPosture,
				Status:  posture.StatusFor(placeholderPosture),
			},
			Confidence: f.MeanConfidence(),
		}
	})
}

// guard runs fn, converting a panic into an *AnalysisError.
func (a *Analyzer) guard(tier Tier, f pose.Frame, fn func(start time.Time) *Result) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &AnalysisError{Tier: tier, TimestampMs: f.TimestampMs, Cause: recovered(r)}
			opsf("%v", err)
		}
	}()
	res = fn(time.Now())
	tracef("frame %d tier=%s conf=%.2f quality=%.1f took=%s",
		res.TimestampMs, res.Tier, res.Confidence, res.Quality.Overall, res.ProcessingTime)
	return res, nil
}

func (a *Analyzer) push(e windowEntry) {
	if len(a.window) >= a.cfg.WindowSize {
		copy(a.window, a.window[1:])
		a.window = a.window[:len(a.window)-1]
	}
	a.window = append(a.window, e)
}

func (a *Analyzer) frames() []pose.Frame {
	out := make([]pose.Frame, len(a.window))
	for i, e := range a.window {
		out[i] = e.frame
	}
	return out
}
