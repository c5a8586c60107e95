package realtime

import (
	"fmt"
	"time"

	"github.com/banshee-data/motion.report/internal/biomech"
	"github.com/banshee-data/motion.report/internal/config"
	"github.com/banshee-data/motion.report/internal/timeutil"
)

// Feedback controller thresholds, as multiples of the target latency.
const (
	degradeFactor      = 1.5
	upgradeFactor      = 0.7
	maxUpgradeDropRate = 0.05
)

// Config configures a Processor.
type Config struct {
	TargetLatency   time.Duration
	MonitorInterval time.Duration
	AdaptiveQuality bool
	InitialTier     biomech.Tier
	QueueCapacity   int
	MaxFrameSkip    int
	DurationWindow  int // processing durations kept for the rolling mean
	StreamBacklog   int // undelivered results kept per subscriber

	Analysis biomech.Config

	// Clock drives latency measurement and the monitor ticker. Nil means
	// timeutil.RealClock.
	Clock timeutil.Clock

	// TransitionSink, when set, receives every tier change.
	TransitionSink TransitionSink
}

// DefaultConfig returns the processor defaults.
func DefaultConfig() Config {
	return Config{
		TargetLatency:   30 * time.Millisecond,
		MonitorInterval: time.Second,
		AdaptiveQuality: true,
		InitialTier:     biomech.TierHigh,
		QueueCapacity:   5,
		MaxFrameSkip:    4,
		DurationWindow:  100,
		StreamBacklog:   5,
		Analysis:        biomech.DefaultConfig(),
	}
}

// ConfigFromTuning builds a Config from the tuning file.
func ConfigFromTuning(tc *config.TuningConfig) (Config, error) {
	tier, err := biomech.ParseTier(tc.GetInitialQuality())
	if err != nil {
		return Config{}, fmt.Errorf("initial_quality: %w", err)
	}
	return Config{
		TargetLatency:   tc.GetTargetLatency(),
		MonitorInterval: tc.GetMonitorInterval(),
		AdaptiveQuality: tc.GetAdaptiveQuality(),
		InitialTier:     tier,
		QueueCapacity:   tc.GetQueueCapacity(),
		MaxFrameSkip:    tc.GetMaxFrameSkip(),
		DurationWindow:  tc.GetDurationWindow(),
		StreamBacklog:   tc.GetStreamBacklog(),
		Analysis:        biomech.ConfigFromTuning(tc),
	}, nil
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TargetLatency <= 0 {
		c.TargetLatency = def.TargetLatency
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = def.MonitorInterval
	}
	if !c.InitialTier.Valid() {
		c.InitialTier = def.InitialTier
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = def.QueueCapacity
	}
	if c.MaxFrameSkip <= 0 {
		c.MaxFrameSkip = def.MaxFrameSkip
	}
	if c.DurationWindow <= 0 {
		c.DurationWindow = def.DurationWindow
	}
	if c.StreamBacklog <= 0 {
		c.StreamBacklog = def.StreamBacklog
	}
	if c.Clock == nil {
		c.Clock = timeutil.RealClock{}
	}
	return c
}
