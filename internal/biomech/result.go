package biomech

import (
	"time"

	"github.com/banshee-data/motion.report/internal/biomech/angles"
	"github.com/banshee-data/motion.report/internal/biomech/asymmetry"
	"github.com/banshee-data/motion.report/internal/biomech/movement"
	"github.com/banshee-data/motion.report/internal/biomech/posture"
)

// ChainLink scores one limb segment, every field in [0,1].
type ChainLink struct {
	Alignment    float64 `json:"alignment"`
	Stability    float64 `json:"stability"`
	Efficiency   float64 `json:"efficiency"`
	Coordination float64 `json:"coordination"`
}

// KineticChain scores how the limbs and trunk work together.
type KineticChain struct {
	LeftArm       ChainLink `json:"left_arm"`
	RightArm      ChainLink `json:"right_arm"`
	LeftLeg       ChainLink `json:"left_leg"`
	RightLeg      ChainLink `json:"right_leg"`
	CoreStability float64   `json:"core_stability"`
	Overall       float64   `json:"overall"`
}

// MovementQuality aggregates the frame into 0-100 scores.
type MovementQuality struct {
	Overall       float64 `json:"overall"`
	RangeOfMotion float64 `json:"range_of_motion"`
	Symmetry      float64 `json:"symmetry"`
	Posture       float64 `json:"posture"`
	Coordination  float64 `json:"coordination"`
}

// FatigueLevel buckets a fatigue score.
type FatigueLevel string

const (
	FatigueLow      FatigueLevel = "LOW"
	FatigueModerate FatigueLevel = "MODERATE"
	FatigueHigh     FatigueLevel = "HIGH"
)

// FatigueIndicators compares the newest frames in the window with the
// ones before them.
type FatigueIndicators struct {
	Score               float64      `json:"score"` // 0-100
	Level               FatigueLevel `json:"level"`
	VariabilityIncrease float64      `json:"variability_increase_degrees"`
	PostureDecline      float64      `json:"posture_decline"`
}

// CompensationType names a compensation pattern.
type CompensationType string

const (
	LeftRightImbalance CompensationType = "LEFT_RIGHT_IMBALANCE"
	ForwardLean        CompensationType = "FORWARD_LEAN"
)

// Compensation is a detected compensation pattern.
type Compensation struct {
	Type        CompensationType `json:"type"`
	Severity    float64          `json:"severity"`
	Description string           `json:"description"`
}

// Result is the analysis of one frame. It is not modified after it has
// been handed to a consumer.
type Result struct {
	TimestampMs    int64              `json:"timestamp_ms"`
	ProcessingTime time.Duration      `json:"processing_time_ns"`
	Tier           Tier               `json:"tier"`
	JointAngles    angles.Map         `json:"joint_angles"`
	Asymmetry      asymmetry.Analysis `json:"asymmetry"`
	Posture        posture.Analysis   `json:"posture"`
	Pattern        *movement.Pattern  `json:"movement_pattern,omitempty"`
	KineticChain   KineticChain       `json:"kinetic_chain"`
	Quality        MovementQuality    `json:"movement_quality"`
	Fatigue        *FatigueIndicators `json:"fatigue,omitempty"`
	Compensations  []Compensation     `json:"compensations,omitempty"`
	Confidence     float64            `json:"confidence"`
}
