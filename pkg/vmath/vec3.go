// Package vmath provides the small float64 vector, box and transform types the
// particle simulation runs on.
//
// Values are plain structs passed by value; nothing here allocates.
package vmath

import "math"

// SmallNumber is the tolerance used by the nearly-zero checks.
const SmallNumber = 1e-8

// KindaSmallNumber is the looser tolerance used when normalizing.
const KindaSmallNumber = 1e-4

// Vec3 is a float64 3D vector.
type Vec3 struct {
	X, Y, Z float64
}

// Zero is the zero vector.
var Zero = Vec3{}

// One is the vector (1,1,1).
var One = Vec3{1, 1, 1}

// Splat returns a vector with all components set to v.
func Splat(v float64) Vec3 {
	return Vec3{v, v, v}
}

func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{a.X * s, a.Y * s, a.Z * s}
}

// Mul is the component-wise product.
func (a Vec3) Mul(b Vec3) Vec3 {
	return Vec3{a.X * b.X, a.Y * b.Y, a.Z * b.Z}
}

func (a Vec3) Neg() Vec3 {
	return Vec3{-a.X, -a.Y, -a.Z}
}

func (a Vec3) Dot(b Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func (a Vec3) SizeSquared() float64 {
	return a.X*a.X + a.Y*a.Y + a.Z*a.Z
}

func (a Vec3) Size() float64 {
	return math.Sqrt(a.SizeSquared())
}

// SafeNormal returns the unit vector, or zero when a is too short to normalize.
func (a Vec3) SafeNormal() Vec3 {
	sq := a.SizeSquared()
	if sq < SmallNumber {
		return Vec3{}
	}
	inv := 1.0 / math.Sqrt(sq)
	return Vec3{a.X * inv, a.Y * inv, a.Z * inv}
}

// MirrorByVector reflects a about the plane whose normal is n.
// n is expected to be unit length.
func (a Vec3) MirrorByVector(n Vec3) Vec3 {
	return a.Sub(n.Scale(2 * a.Dot(n)))
}

// IsNearlyZero reports whether every component is within SmallNumber of zero.
func (a Vec3) IsNearlyZero() bool {
	return math.Abs(a.X) <= SmallNumber && math.Abs(a.Y) <= SmallNumber && math.Abs(a.Z) <= SmallNumber
}

// AbsMax returns the largest absolute component.
func (a Vec3) AbsMax() float64 {
	return math.Max(math.Abs(a.X), math.Max(math.Abs(a.Y), math.Abs(a.Z)))
}

func (a Vec3) ComponentMin(b Vec3) Vec3 {
	return Vec3{math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)}
}

func (a Vec3) ComponentMax(b Vec3) Vec3 {
	return Vec3{math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z)}
}

// DistSquared is the squared distance between two points.
func DistSquared(a, b Vec3) float64 {
	return a.Sub(b).SizeSquared()
}

// Lerp interpolates between a and b by t.
func Lerp(a, b Vec3, t float64) Vec3 {
	return Vec3{
		a.X + (b.X-a.X)*t,
		a.Y + (b.Y-a.Y)*t,
		a.Z + (b.Z-a.Z)*t,
	}
}

// Get returns the component at index 0..2.
func (a Vec3) Get(i int) float64 {
	switch i {
	case 0:
		return a.X
	case 1:
		return a.Y
	default:
		return a.Z
	}
}

// With returns a copy of a with component i replaced by v.
func (a Vec3) With(i int, v float64) Vec3 {
	switch i {
	case 0:
		a.X = v
	case 1:
		a.Y = v
	default:
		a.Z = v
	}
	return a
}
