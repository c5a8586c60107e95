package biomech

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/motion.report/internal/biomech/angles"
	"github.com/banshee-data/motion.report/internal/biomech/asymmetry"
	"github.com/banshee-data/motion.report/internal/biomech/posture"
	"github.com/banshee-data/motion.report/internal/pose"
)

// Functional working range for a limb's middle joint, in degrees.
const (
	functionalMin = 30.0
	functionalMax = 150.0

	// Used by the MEDIUM tier in place of the computed chain.
	placeholderLink = 0.8
)

// Compensation thresholds.
const (
	imbalanceThreshold   = 0.15
	forwardLeanThreshold = 0.2
)

type limb struct {
	joint     string
	landmarks [3]int
}

var (
	leftArm  = limb{angles.LeftElbow, [3]int{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist}}
	rightArm = limb{angles.RightElbow, [3]int{pose.RightShoulder, pose.RightElbow, pose.RightWrist}}
	leftLeg  = limb{angles.LeftKnee, [3]int{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle}}
	rightLeg = limb{angles.RightKnee, [3]int{pose.RightHip, pose.RightKnee, pose.RightAnkle}}
)

func chainLink(f pose.Frame, ja angles.Map, l limb, coordination float64) ChainLink {
	angle := ja[l.joint].Angle
	alignment := pose.Clamp01(angle / 180)

	var conf float64
	for _, i := range l.landmarks {
		conf += f.At(i).Confidence()
	}
	stability := conf / float64(len(l.landmarks))

	functional := 0.5
	if angle >= functionalMin && angle <= functionalMax {
		functional = 1
	}
	return ChainLink{
		Alignment:    alignment,
		Stability:    stability,
		Efficiency:   pose.Clamp01(0.4*alignment + 0.3*stability + 0.3*functional),
		Coordination: coordination,
	}
}

func coordination(ja angles.Map, left, right string) float64 {
	return pose.Clamp01(1 - math.Abs(ja[left].Angle-ja[right].Angle)/180)
}

func kineticChain(f pose.Frame, ja angles.Map, asym asymmetry.Analysis, post posture.Analysis) KineticChain {
	arms := coordination(ja, angles.LeftElbow, angles.RightElbow)
	legs := coordination(ja, angles.LeftKnee, angles.RightKnee)

	kc := KineticChain{
		LeftArm:  chainLink(f, ja, leftArm, arms),
		RightArm: chainLink(f, ja, rightArm, arms),
		LeftLeg:  chainLink(f, ja, leftLeg, legs),
		RightLeg: chainLink(f, ja, rightLeg, legs),
	}
	kc.CoreStability = pose.Clamp01(stat.Mean([]float64{
		pose.Clamp01(ja[angles.Spine].Angle / 180),
		post.Shoulder.Score,
		post.Pelvis.Score,
		1 - asym.Rotational,
	}, nil))
	kc.Overall = stat.Mean([]float64{
		kc.LeftArm.Efficiency, kc.RightArm.Efficiency,
		kc.LeftLeg.Efficiency, kc.RightLeg.Efficiency,
		kc.CoreStability,
	}, nil)
	return kc
}

func placeholderChain() KineticChain {
	link := ChainLink{
		Alignment: placeholderLink, Stability: placeholderLink,
		Efficiency: placeholderLink, Coordination: placeholderLink,
	}
	return KineticChain{
		LeftArm: link, RightArm: link, LeftLeg: link, RightLeg: link,
		CoreStability: placeholderLink, Overall: placeholderLink,
	}
}

func movementQuality(ja angles.Map, asym asymmetry.Analysis, post posture.Analysis, kc KineticChain) MovementQuality {
	var rom float64
	if len(ja) > 0 {
		within := 0
		for _, a := range ja {
			if a.WithinRange {
				within++
			}
		}
		rom = 100 * float64(within) / float64(len(ja))
	}
	q := MovementQuality{
		RangeOfMotion: rom,
		Symmetry:      100 - asym.Overall*100,
		Posture:       post.Overall * 100,
		Coordination:  100 * (kc.LeftArm.Coordination + kc.LeftLeg.Coordination) / 2,
	}
	q.Overall = stat.Mean([]float64{q.RangeOfMotion, q.Symmetry, q.Posture, q.Coordination}, nil)
	return q
}

func compensations(asym asymmetry.Analysis) []Compensation {
	var out []Compensation
	if lr := asym.LeftRight; math.Abs(lr) > imbalanceThreshold {
		side := "left"
		if lr < 0 {
			side = "right"
		}
		out = append(out, Compensation{
			Type:        LeftRightImbalance,
			Severity:    math.Abs(lr),
			Description: fmt.Sprintf("Load shifted towards the %s side", side),
		})
	}
	if ap := asym.AnteriorPosterior; math.Abs(ap) > forwardLeanThreshold {
		dir := "forward"
		if ap < 0 {
			dir = "backward"
		}
		out = append(out, Compensation{
			Type:        ForwardLean,
			Severity:    math.Abs(ap),
			Description: fmt.Sprintf("Trunk leaning %s of the hips", dir),
		})
	}
	return out
}
