package realtime

import (
	"github.com/banshee-data/motion.report/internal/biomech"
	"github.com/banshee-data/motion.report/internal/pose"
)

// strategy analyses one frame at a fixed depth.
type strategy func(*biomech.Analyzer, pose.Frame) (*biomech.Result, error)

func defaultStrategies() map[biomech.Tier]strategy {
	return map[biomech.Tier]strategy{
		biomech.TierHigh:    (*biomech.Analyzer).AnalyzePose,
		biomech.TierMedium:  (*biomech.Analyzer).AnalyzeMedium,
		biomech.TierLow:     (*biomech.Analyzer).AnalyzeLow,
		biomech.TierMinimal: (*biomech.Analyzer).Minimal,
	}
}
