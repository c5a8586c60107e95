package pose

import "math"

// degenerateLength is the magnitude below which a vector carries no
// direction.
const degenerateLength = 1e-6

// Vec3 is a 3D vector in landmark space.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Norm() float64        { return math.Sqrt(v.Dot(v)) }

// Distance returns the Euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float64 { return v.Sub(o).Norm() }

// Degenerate reports whether the vector is too short to have a direction.
func (v Vec3) Degenerate() bool { return v.Norm() < degenerateLength }

// AngleAt returns the angle in degrees at vertex between the rays towards
// a and c, computed with the law of cosines. ok is false when either ray
// is degenerate, in which case the angle is 0.
func AngleAt(a, vertex, c Vec3) (deg float64, ok bool) {
	u := a.Sub(vertex)
	w := c.Sub(vertex)
	nu, nw := u.Norm(), w.Norm()
	if nu < degenerateLength || nw < degenerateLength {
		return 0, false
	}
	cos := u.Dot(w) / (nu * nw)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}

// TiltFromVertical returns the angle in degrees between v and the image
// vertical axis, ignoring direction. A degenerate vector has tilt 0.
func TiltFromVertical(v Vec3) float64 {
	if v.Degenerate() {
		return 0
	}
	horizontal := math.Hypot(v.X, v.Z)
	return math.Atan2(horizontal, math.Abs(v.Y)) * 180 / math.Pi
}

// TiltFromHorizontal returns the angle in degrees between the image-plane
// projection of v and the horizontal axis, in [0,90].
func TiltFromHorizontal(v Vec3) float64 {
	if math.Hypot(v.X, v.Y) < degenerateLength {
		return 0
	}
	return math.Atan2(math.Abs(v.Y), math.Abs(v.X)) * 180 / math.Pi
}

// Clamp restricts v to [lo,hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 restricts v to [0,1].
func Clamp01(v float64) float64 { return Clamp(v, 0, 1) }
