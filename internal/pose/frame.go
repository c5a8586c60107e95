package pose

// LandmarkCount is the number of landmarks in a complete frame.
const LandmarkCount = 33

// Landmark indices, ordered as emitted by the upstream detector.
// "Left" and "Right" refer to the subject's own sides.
const (
	Nose = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
)

// BilateralPairs maps every left-side landmark to its right-side partner.
// Used to mirror a frame and by analysers that walk both sides.
var BilateralPairs = [][2]int{
	{LeftEyeInner, RightEyeInner},
	{LeftEye, RightEye},
	{LeftEyeOuter, RightEyeOuter},
	{LeftEar, RightEar},
	{MouthLeft, MouthRight},
	{LeftShoulder, RightShoulder},
	{LeftElbow, RightElbow},
	{LeftWrist, RightWrist},
	{LeftPinky, RightPinky},
	{LeftIndex, RightIndex},
	{LeftThumb, RightThumb},
	{LeftHip, RightHip},
	{LeftKnee, RightKnee},
	{LeftAnkle, RightAnkle},
	{LeftHeel, RightHeel},
	{LeftFootIndex, RightFootIndex},
}

// Landmark is one detected joint. X and Y are normalised image
// coordinates in [0,1] (Y grows downwards); Z is depth relative to the
// hip midpoint, smaller values being closer to the camera.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
	Presence   float64 `json:"presence"`
}

// Pos returns the landmark position as a vector.
func (l Landmark) Pos() Vec3 {
	return Vec3{X: l.X, Y: l.Y, Z: l.Z}
}

// Confidence is visibility × presence, clamped to [0,1].
func (l Landmark) Confidence() float64 {
	return Clamp01(l.Visibility * l.Presence)
}

// Frame is a single skeletal snapshot.
type Frame struct {
	TimestampMs int64      `json:"timestamp_ms"` // monotonic milliseconds
	Landmarks   []Landmark `json:"landmarks"`
}

// At returns the landmark at index i, or the zero Landmark (visibility 0)
// when the frame is short.
func (f Frame) At(i int) Landmark {
	if i < 0 || i >= len(f.Landmarks) {
		return Landmark{}
	}
	return f.Landmarks[i]
}

// Complete reports whether the frame carries the full landmark set.
func (f Frame) Complete() bool {
	return len(f.Landmarks) == LandmarkCount
}

// MeanConfidence is the mean visibility × presence over all landmarks.
// An empty frame has confidence 0.
func (f Frame) MeanConfidence() float64 {
	if len(f.Landmarks) == 0 {
		return 0
	}
	var sum float64
	for _, l := range f.Landmarks {
		sum += l.Confidence()
	}
	return sum / float64(len(f.Landmarks))
}

// MeanVisibility is the mean visibility over all landmarks.
func (f Frame) MeanVisibility() float64 {
	if len(f.Landmarks) == 0 {
		return 0
	}
	var sum float64
	for _, l := range f.Landmarks {
		sum += Clamp01(l.Visibility)
	}
	return sum / float64(len(f.Landmarks))
}

// Midpoint returns the midpoint of landmarks a and b.
func (f Frame) Midpoint(a, b int) Vec3 {
	return f.At(a).Pos().Add(f.At(b).Pos()).Scale(0.5)
}

// ShoulderMid is the midpoint of both shoulders.
func (f Frame) ShoulderMid() Vec3 { return f.Midpoint(LeftShoulder, RightShoulder) }

// HipMid is the midpoint of both hips.
func (f Frame) HipMid() Vec3 { return f.Midpoint(LeftHip, RightHip) }

// KneeMid is the midpoint of both knees.
func (f Frame) KneeMid() Vec3 { return f.Midpoint(LeftKnee, RightKnee) }

// EarMid is the midpoint of both ears.
func (f Frame) EarMid() Vec3 { return f.Midpoint(LeftEar, RightEar) }

// Mirror returns a copy of the frame with every left landmark exchanged
// for its right-side partner. Positions are not reflected.
func (f Frame) Mirror() Frame {
	out := Frame{TimestampMs: f.TimestampMs, Landmarks: make([]Landmark, len(f.Landmarks))}
	copy(out.Landmarks, f.Landmarks)
	for _, p := range BilateralPairs {
		if p[0] < len(out.Landmarks) && p[1] < len(out.Landmarks) {
			out.Landmarks[p[0]], out.Landmarks[p[1]] = out.Landmarks[p[1]], out.Landmarks[p[0]]
		}
	}
	return out
}
