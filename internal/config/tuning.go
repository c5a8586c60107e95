package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Quality tier names accepted by initial_quality.
var validQualityNames = []string{"HIGH", "MEDIUM", "LOW", "MINIMAL"}

// TuningConfig represents the root configuration for the processing
// pipeline. Every field is optional; the Get* methods supply defaults for
// anything a file leaves out, so partial configs are safe.
type TuningConfig struct {
	// Scheduler params
	TargetLatency   *string `json:"target_latency,omitempty"` // duration string like "30ms"
	AdaptiveQuality *bool   `json:"adaptive_quality,omitempty"`
	InitialQuality  *string `json:"initial_quality,omitempty"` // HIGH, MEDIUM, LOW or MINIMAL
	QueueCapacity   *int    `json:"queue_capacity,omitempty"`
	MaxFrameSkip    *int    `json:"max_frame_skip,omitempty"`
	DurationWindow  *int    `json:"duration_window,omitempty"`
	MonitorInterval *string `json:"monitor_interval,omitempty"` // duration string like "1s"
	StreamBacklog   *int    `json:"stream_backlog,omitempty"`

	// Analyser history sizes
	SmoothingWindow  *int `json:"smoothing_window,omitempty"`
	AsymmetryHistory *int `json:"asymmetry_history,omitempty"`
	PostureHistory   *int `json:"posture_history,omitempty"`
	AnalysisWindow   *int `json:"analysis_window,omitempty"`

	// Movement pattern params
	PatternMinFrames           *int     `json:"pattern_min_frames,omitempty"`
	PatternMaxFrames           *int     `json:"pattern_max_frames,omitempty"`
	PatternSimilarityThreshold *float64 `json:"pattern_similarity_threshold,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults. It matches config/tuning.defaults.json.
func DefaultTuningConfig() *TuningConfig {
	empty := EmptyTuningConfig()
	return &TuningConfig{
		TargetLatency:              ptrString(empty.GetTargetLatency().String()),
		AdaptiveQuality:            ptrBool(empty.GetAdaptiveQuality()),
		InitialQuality:             ptrString(empty.GetInitialQuality()),
		QueueCapacity:              ptrInt(empty.GetQueueCapacity()),
		MaxFrameSkip:               ptrInt(empty.GetMaxFrameSkip()),
		DurationWindow:             ptrInt(empty.GetDurationWindow()),
		MonitorInterval:            ptrString(empty.GetMonitorInterval().String()),
		StreamBacklog:              ptrInt(empty.GetStreamBacklog()),
		SmoothingWindow:            ptrInt(empty.GetSmoothingWindow()),
		AsymmetryHistory:           ptrInt(empty.GetAsymmetryHistory()),
		PostureHistory:             ptrInt(empty.GetPostureHistory()),
		AnalysisWindow:             ptrInt(empty.GetAnalysisWindow()),
		PatternMinFrames:           ptrInt(empty.GetPatternMinFrames()),
		PatternMaxFrames:           ptrInt(empty.GetPatternMaxFrames()),
		PatternSimilarityThreshold: ptrFloat64(empty.GetPatternSimilarityThreshold()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/biomech/angles/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*string{
		"target_latency":   c.TargetLatency,
		"monitor_interval": c.MonitorInterval,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}

	if c.InitialQuality != nil {
		ok := false
		for _, q := range validQualityNames {
			if strings.EqualFold(*c.InitialQuality, q) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("initial_quality must be one of %v, got %q", validQualityNames, *c.InitialQuality)
		}
	}

	for name, v := range map[string]*int{
		"queue_capacity":     c.QueueCapacity,
		"max_frame_skip":     c.MaxFrameSkip,
		"duration_window":    c.DurationWindow,
		"stream_backlog":     c.StreamBacklog,
		"smoothing_window":   c.SmoothingWindow,
		"asymmetry_history":  c.AsymmetryHistory,
		"posture_history":    c.PostureHistory,
		"analysis_window":    c.AnalysisWindow,
		"pattern_min_frames": c.PatternMinFrames,
		"pattern_max_frames": c.PatternMaxFrames,
	} {
		if v != nil && *v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", name, *v)
		}
	}

	if c.GetPatternMinFrames() > c.GetPatternMaxFrames() {
		return fmt.Errorf("pattern_min_frames (%d) exceeds pattern_max_frames (%d)",
			c.GetPatternMinFrames(), c.GetPatternMaxFrames())
	}

	if c.PatternSimilarityThreshold != nil {
		if *c.PatternSimilarityThreshold < 0 || *c.PatternSimilarityThreshold > 1 {
			return fmt.Errorf("pattern_similarity_threshold must be between 0 and 1, got %f", *c.PatternSimilarityThreshold)
		}
	}

	return nil
}

// GetTargetLatency parses and returns the per-frame latency target.
func (c *TuningConfig) GetTargetLatency() time.Duration {
	return parseDurationOr(c.TargetLatency, 30*time.Millisecond)
}

// GetMonitorInterval parses and returns the feedback-loop period.
func (c *TuningConfig) GetMonitorInterval() time.Duration {
	return parseDurationOr(c.MonitorInterval, time.Second)
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def // default on parse error
	}
	return d
}

// GetAdaptiveQuality returns the adaptive_quality value or the default.
func (c *TuningConfig) GetAdaptiveQuality() bool {
	if c.AdaptiveQuality == nil {
		return true
	}
	return *c.AdaptiveQuality
}

// GetInitialQuality returns the upper-cased initial_quality or "HIGH".
func (c *TuningConfig) GetInitialQuality() string {
	if c.InitialQuality == nil || *c.InitialQuality == "" {
		return "HIGH"
	}
	return strings.ToUpper(*c.InitialQuality)
}

// GetQueueCapacity returns the queue_capacity value or the default.
func (c *TuningConfig) GetQueueCapacity() int {
	if c.QueueCapacity == nil {
		return 5
	}
	return *c.QueueCapacity
}

// GetMaxFrameSkip returns the max_frame_skip value or the default.
func (c *TuningConfig) GetMaxFrameSkip() int {
	if c.MaxFrameSkip == nil {
		return 4
	}
	return *c.MaxFrameSkip
}

// GetDurationWindow returns the duration_window value or the default.
func (c *TuningConfig) GetDurationWindow() int {
	if c.DurationWindow == nil {
		return 100
	}
	return *c.DurationWindow
}

// GetStreamBacklog returns the stream_backlog value or the default.
func (c *TuningConfig) GetStreamBacklog() int {
	if c.StreamBacklog == nil {
		return 5
	}
	return *c.StreamBacklog
}

// GetSmoothingWindow returns the smoothing_window value or the default.
func (c *TuningConfig) GetSmoothingWindow() int {
	if c.SmoothingWindow == nil {
		return 5
	}
	return *c.SmoothingWindow
}

// GetAsymmetryHistory returns the asymmetry_history value or the default.
func (c *TuningConfig) GetAsymmetryHistory() int {
	if c.AsymmetryHistory == nil {
		return 100
	}
	return *c.AsymmetryHistory
}

// GetPostureHistory returns the posture_history value or the default.
func (c *TuningConfig) GetPostureHistory() int {
	if c.PostureHistory == nil {
		return 150
	}
	return *c.PostureHistory
}

// GetAnalysisWindow returns the analysis_window value or the default.
func (c *TuningConfig) GetAnalysisWindow() int {
	if c.AnalysisWindow == nil {
		return 30
	}
	return *c.AnalysisWindow
}

// GetPatternMinFrames returns the pattern_min_frames value or the default.
func (c *TuningConfig) GetPatternMinFrames() int {
	if c.PatternMinFrames == nil {
		return 10
	}
	return *c.PatternMinFrames
}

// GetPatternMaxFrames returns the pattern_max_frames value or the default.
func (c *TuningConfig) GetPatternMaxFrames() int {
	if c.PatternMaxFrames == nil {
		return 60
	}
	return *c.PatternMaxFrames
}

// GetPatternSimilarityThreshold returns the pattern_similarity_threshold value or the default.
func (c *TuningConfig) GetPatternSimilarityThreshold() float64 {
	if c.PatternSimilarityThreshold == nil {
		return 0.7
	}
	return *c.PatternSimilarityThreshold
}
