// Package testutil provides shared test fixtures.
//
// This package centralises synthetic pose frames so analyser, pipeline
// and storage tests exercise the same skeleton geometry.
package testutil

import (
	"math"

	"github.com/banshee-data/motion.report/internal/pose"
)

// neutralStanding is a front-facing upright skeleton in normalised image
// coordinates. The subject's left side sits at larger X.
var neutralStanding = [pose.LandmarkCount]pose.Vec3{
	pose.Nose:           {X: 0.50, Y: 0.15},
	pose.LeftEyeInner:   {X: 0.51, Y: 0.13},
	pose.LeftEye:        {X: 0.52, Y: 0.13},
	pose.LeftEyeOuter:   {X: 0.53, Y: 0.13},
	pose.RightEyeInner:  {X: 0.49, Y: 0.13},
	pose.RightEye:       {X: 0.48, Y: 0.13},
	pose.RightEyeOuter:  {X: 0.47, Y: 0.13},
	pose.LeftEar:        {X: 0.54, Y: 0.14},
	pose.RightEar:       {X: 0.46, Y: 0.14},
	pose.MouthLeft:      {X: 0.51, Y: 0.18},
	pose.MouthRight:     {X: 0.49, Y: 0.18},
	pose.LeftShoulder:   {X: 0.60, Y: 0.30},
	pose.RightShoulder:  {X: 0.40, Y: 0.30},
	pose.LeftElbow:      {X: 0.62, Y: 0.45},
	pose.RightElbow:     {X: 0.38, Y: 0.45},
	pose.LeftWrist:      {X: 0.62, Y: 0.58},
	pose.RightWrist:     {X: 0.38, Y: 0.58},
	pose.LeftPinky:      {X: 0.63, Y: 0.61},
	pose.RightPinky:     {X: 0.37, Y: 0.61},
	pose.LeftIndex:      {X: 0.62, Y: 0.62},
	pose.RightIndex:     {X: 0.38, Y: 0.62},
	pose.LeftThumb:      {X: 0.61, Y: 0.60},
	pose.RightThumb:     {X: 0.39, Y: 0.60},
	pose.LeftHip:        {X: 0.56, Y: 0.60},
	pose.RightHip:       {X: 0.44, Y: 0.60},
	pose.LeftKnee:       {X: 0.56, Y: 0.78},
	pose.RightKnee:      {X: 0.44, Y: 0.78},
	pose.LeftAnkle:      {X: 0.56, Y: 0.95},
	pose.RightAnkle:     {X: 0.44, Y: 0.95},
	pose.LeftHeel:       {X: 0.56, Y: 0.97, Z: 0.02},
	pose.RightHeel:      {X: 0.44, Y: 0.97, Z: 0.02},
	pose.LeftFootIndex:  {X: 0.56, Y: 0.98, Z: -0.05},
	pose.RightFootIndex: {X: 0.44, Y: 0.98, Z: -0.05},
}

// NeutralFrame returns an upright standing frame with every landmark at
// the given visibility and presence.
func NeutralFrame(timestampMs int64, confidence float64) pose.Frame {
	f := pose.Frame{TimestampMs: timestampMs, Landmarks: make([]pose.Landmark, pose.LandmarkCount)}
	for i, p := range neutralStanding {
		f.Landmarks[i] = pose.Landmark{X: p.X, Y: p.Y, Z: p.Z, Visibility: confidence, Presence: confidence}
	}
	return f
}

// Shift moves the given landmarks by d.
func Shift(f pose.Frame, d pose.Vec3, indices ...int) pose.Frame {
	out := pose.Frame{TimestampMs: f.TimestampMs, Landmarks: append([]pose.Landmark(nil), f.Landmarks...)}
	for _, i := range indices {
		if i < len(out.Landmarks) {
			out.Landmarks[i].X += d.X
			out.Landmarks[i].Y += d.Y
			out.Landmarks[i].Z += d.Z
		}
	}
	return out
}

// SetConfidence overrides visibility and presence of the given landmarks.
func SetConfidence(f pose.Frame, confidence float64, indices ...int) pose.Frame {
	out := pose.Frame{TimestampMs: f.TimestampMs, Landmarks: append([]pose.Landmark(nil), f.Landmarks...)}
	for _, i := range indices {
		if i < len(out.Landmarks) {
			out.Landmarks[i].Visibility = confidence
			out.Landmarks[i].Presence = confidence
		}
	}
	return out
}

// upperBody lists every landmark above the hips.
var upperBody = []int{
	pose.Nose, pose.LeftEyeInner, pose.LeftEye, pose.LeftEyeOuter,
	pose.RightEyeInner, pose.RightEye, pose.RightEyeOuter, pose.LeftEar, pose.RightEar,
	pose.MouthLeft, pose.MouthRight, pose.LeftShoulder, pose.RightShoulder,
	pose.LeftElbow, pose.RightElbow, pose.LeftWrist, pose.RightWrist,
	pose.LeftPinky, pose.RightPinky, pose.LeftIndex, pose.RightIndex,
	pose.LeftThumb, pose.RightThumb,
}

// SquatFrame returns a squat snapshot at normalised depth in [0,1]:
// the torso and hips drop while the knees travel forward in depth.
func SquatFrame(timestampMs int64, depth float64) pose.Frame {
	drop := 0.15 * depth
	f := NeutralFrame(timestampMs, 0.95)
	f = Shift(f, pose.Vec3{Y: drop}, upperBody...)
	f = Shift(f, pose.Vec3{Y: drop, Z: 0.05 * depth}, pose.LeftHip, pose.RightHip)
	f = Shift(f, pose.Vec3{Y: drop / 3, Z: -0.12 * depth}, pose.LeftKnee, pose.RightKnee)
	return f
}

// SquatSequence returns n frames spaced stepMs apart covering one
// repetition: descend, bottom, ascend.
func SquatSequence(n int, stepMs int64) []pose.Frame {
	frames := make([]pose.Frame, n)
	for i := range frames {
		phase := float64(i) / float64(n-1)
		depth := (1 - math.Cos(2*math.Pi*phase)) / 2
		frames[i] = SquatFrame(int64(i)*stepMs, depth)
	}
	return frames
}

// StandingSequence returns n identical upright frames spaced stepMs apart.
func StandingSequence(n int, stepMs int64) []pose.Frame {
	frames := make([]pose.Frame, n)
	for i := range frames {
		frames[i] = NeutralFrame(int64(i)*stepMs, 0.9)
	}
	return frames
}
