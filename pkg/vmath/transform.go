package vmath

import "math"

// Matrix3 is a row-major 3x3 matrix acting on column vectors.
type Matrix3 [3][3]float64

// Identity3 is the identity rotation.
var Identity3 = Matrix3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// RotationFromEuler builds a rotation from Euler angles in degrees:
// X is roll, Y is pitch, Z is yaw, applied roll first and yaw last.
func RotationFromEuler(deg Vec3) Matrix3 {
	rx := deg.X * math.Pi / 180
	ry := deg.Y * math.Pi / 180
	rz := deg.Z * math.Pi / 180

	sx, cx := math.Sincos(rx)
	sy, cy := math.Sincos(ry)
	sz, cz := math.Sincos(rz)

	roll := Matrix3{{1, 0, 0}, {0, cx, -sx}, {0, sx, cx}}
	pitch := Matrix3{{cy, 0, sy}, {0, 1, 0}, {-sy, 0, cy}}
	yaw := Matrix3{{cz, -sz, 0}, {sz, cz, 0}, {0, 0, 1}}

	return yaw.Mul(pitch).Mul(roll)
}

// Mul returns m*o.
func (m Matrix3) Mul(o Matrix3) Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j] + m[i][2]*o[2][j]
		}
	}
	return r
}

// Apply returns m*v.
func (m Matrix3) Apply(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Transpose is the inverse for pure rotations.
func (m Matrix3) Transpose() Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[j][i]
		}
	}
	return r
}

// Transform is scale, then rotation, then translation.
type Transform struct {
	Rotation    Matrix3
	Translation Vec3
	Scale3D     Vec3
}

// IdentityTransform leaves points unchanged.
var IdentityTransform = Transform{Rotation: Identity3, Scale3D: One}

// NewTransform builds a transform from a location, Euler rotation in degrees and scale.
func NewTransform(location, rotationDeg, scale Vec3) Transform {
	if scale == Zero {
		scale = One
	}
	return Transform{
		Rotation:    RotationFromEuler(rotationDeg),
		Translation: location,
		Scale3D:     scale,
	}
}

func (t Transform) TransformPosition(p Vec3) Vec3 {
	return t.Rotation.Apply(p.Mul(t.Scale3D)).Add(t.Translation)
}

func (t Transform) TransformVector(v Vec3) Vec3 {
	return t.Rotation.Apply(v.Mul(t.Scale3D))
}

func (t Transform) InverseTransformPosition(p Vec3) Vec3 {
	return t.InverseTransformVector(p.Sub(t.Translation))
}

func (t Transform) InverseTransformVector(v Vec3) Vec3 {
	r := t.Rotation.Transpose().Apply(v)
	return Vec3{safeDiv(r.X, t.Scale3D.X), safeDiv(r.Y, t.Scale3D.Y), safeDiv(r.Z, t.Scale3D.Z)}
}

func safeDiv(a, b float64) float64 {
	if math.Abs(b) < SmallNumber {
		return 0
	}
	return a / b
}
