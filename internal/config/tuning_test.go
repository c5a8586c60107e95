package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.TargetLatency == nil || *cfg.TargetLatency != "30ms" {
		t.Errorf("Expected TargetLatency '30ms', got %v", cfg.TargetLatency)
	}
	if cfg.MonitorInterval == nil || *cfg.MonitorInterval != "1s" {
		t.Errorf("Expected MonitorInterval '1s', got %v", cfg.MonitorInterval)
	}
	if cfg.QueueCapacity == nil || *cfg.QueueCapacity != 5 {
		t.Errorf("Expected QueueCapacity 5, got %v", cfg.QueueCapacity)
	}
	if cfg.InitialQuality == nil || *cfg.InitialQuality != "HIGH" {
		t.Errorf("Expected InitialQuality HIGH, got %v", cfg.InitialQuality)
	}

	if cfg.GetTargetLatency() != 30*time.Millisecond {
		t.Errorf("GetTargetLatency() = %v, want 30ms", cfg.GetTargetLatency())
	}
	if cfg.GetAsymmetryHistory() != 100 {
		t.Errorf("GetAsymmetryHistory() = %d, want 100", cfg.GetAsymmetryHistory())
	}
	if cfg.GetPostureHistory() != 150 {
		t.Errorf("GetPostureHistory() = %d, want 150", cfg.GetPostureHistory())
	}
	if cfg.GetAnalysisWindow() != 30 {
		t.Errorf("GetAnalysisWindow() = %d, want 30", cfg.GetAnalysisWindow())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestDefaultsFileMatchesBuiltins(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	builtin := DefaultTuningConfig()

	if fromFile.GetTargetLatency() != builtin.GetTargetLatency() {
		t.Errorf("target_latency: file %v, builtin %v", fromFile.GetTargetLatency(), builtin.GetTargetLatency())
	}
	if fromFile.GetQueueCapacity() != builtin.GetQueueCapacity() {
		t.Errorf("queue_capacity: file %d, builtin %d", fromFile.GetQueueCapacity(), builtin.GetQueueCapacity())
	}
	if fromFile.GetSmoothingWindow() != builtin.GetSmoothingWindow() {
		t.Errorf("smoothing_window: file %d, builtin %d", fromFile.GetSmoothingWindow(), builtin.GetSmoothingWindow())
	}
	if fromFile.GetPatternSimilarityThreshold() != builtin.GetPatternSimilarityThreshold() {
		t.Errorf("pattern_similarity_threshold: file %f, builtin %f",
			fromFile.GetPatternSimilarityThreshold(), builtin.GetPatternSimilarityThreshold())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "target_latency": "20ms",
  "adaptive_quality": false,
  "initial_quality": "medium",
  "queue_capacity": 8
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetTargetLatency() != 20*time.Millisecond {
		t.Errorf("Expected 20ms target, got %v", cfg.GetTargetLatency())
	}
	if cfg.GetAdaptiveQuality() {
		t.Error("Expected adaptive quality disabled")
	}
	if cfg.GetInitialQuality() != "MEDIUM" {
		t.Errorf("Expected MEDIUM, got %q", cfg.GetInitialQuality())
	}
	if cfg.GetQueueCapacity() != 8 {
		t.Errorf("Expected queue capacity 8, got %d", cfg.GetQueueCapacity())
	}
	// Omitted fields fall back to defaults.
	if cfg.GetMonitorInterval() != time.Second {
		t.Errorf("Expected default monitor interval, got %v", cfg.GetMonitorInterval())
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigWrongExtension(t *testing.T) {
	_, err := LoadTuningConfig("tuning.yaml")
	if err == nil || !strings.Contains(err.Error(), ".json") {
		t.Errorf("Expected extension error, got %v", err)
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	if err := os.WriteFile(configPath, []byte(`{"queue_capacity": "five"`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := LoadTuningConfig(configPath); err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{name: "valid config", cfg: DefaultTuningConfig()},
		{name: "empty config is valid", cfg: &TuningConfig{}},
		{name: "invalid target latency", cfg: &TuningConfig{TargetLatency: ptrString("fast")}, wantErr: true},
		{name: "negative target latency", cfg: &TuningConfig{TargetLatency: ptrString("-5ms")}, wantErr: true},
		{name: "invalid monitor interval", cfg: &TuningConfig{MonitorInterval: ptrString("soon")}, wantErr: true},
		{name: "unknown quality tier", cfg: &TuningConfig{InitialQuality: ptrString("ULTRA")}, wantErr: true},
		{name: "lower case quality tier", cfg: &TuningConfig{InitialQuality: ptrString("low")}},
		{name: "zero queue capacity", cfg: &TuningConfig{QueueCapacity: ptrInt(0)}, wantErr: true},
		{name: "zero smoothing window", cfg: &TuningConfig{SmoothingWindow: ptrInt(0)}, wantErr: true},
		{
			name:    "pattern window inverted",
			cfg:     &TuningConfig{PatternMinFrames: ptrInt(40), PatternMaxFrames: ptrInt(20)},
			wantErr: true,
		},
		{name: "similarity above one", cfg: &TuningConfig{PatternSimilarityThreshold: ptrFloat64(1.2)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetTargetLatency(t *testing.T) {
	tests := []struct {
		name string
		cfg  *TuningConfig
		want time.Duration
	}{
		{name: "explicit", cfg: &TuningConfig{TargetLatency: ptrString("45ms")}, want: 45 * time.Millisecond},
		{name: "nil pointer returns default", cfg: &TuningConfig{}, want: 30 * time.Millisecond},
		{name: "empty string returns default", cfg: &TuningConfig{TargetLatency: ptrString("")}, want: 30 * time.Millisecond},
		{name: "invalid duration returns default", cfg: &TuningConfig{TargetLatency: ptrString("x")}, want: 30 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetTargetLatency(); got != tt.want {
				t.Errorf("GetTargetLatency() = %v, want %v", got, tt.want)
			}
		})
	}
}
