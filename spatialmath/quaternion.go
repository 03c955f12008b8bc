package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// Normalize returns the unit quaternion pointing the same way as q. The zero quaternion maps to identity.
func Normalize(q quat.Number) quat.Number {
	abs := quat.Abs(q)
	if abs == 0 || math.IsNaN(abs) {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/abs, q)
}

// RotateVector rotates v by the unit quaternion q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

// QuatAngle returns the rotation angle of the unit quaternion in [0, pi].
func QuatAngle(q quat.Number) float64 {
	return 2 * math.Atan2(Norm(q), math.Abs(q.Real))
}

// QuatAngleBetween returns the angle of the rotation taking a to b.
func QuatAngleBetween(a, b quat.Number) float64 {
	return QuatAngle(quat.Mul(quat.Conj(a), b))
}

// QuatAlmostEqual returns whether two unit quaternions describe rotations within tol radians,
// treating q and -q as equal.
func QuatAlmostEqual(a, b quat.Number, tol float64) bool {
	return QuatAngleBetween(a, b) <= tol
}

// RotationAboutX returns the rotation of angle radians around the X axis.
func RotationAboutX(angle float64) quat.Number {
	return (&R4AA{Theta: angle, RX: 1}).ToQuat()
}

// RotationAboutY returns the rotation of angle radians around the Y axis.
func RotationAboutY(angle float64) quat.Number {
	return (&R4AA{Theta: angle, RY: 1}).ToQuat()
}

// RotationAboutZ returns the rotation of angle radians around the Z axis.
func RotationAboutZ(angle float64) quat.Number {
	return (&R4AA{Theta: angle, RZ: 1}).ToQuat()
}

// Yaw returns the heading of the rotated X axis projected on the xy plane.
func Yaw(q quat.Number) float64 {
	x := RotateVector(q, r3.Vector{X: 1})
	return math.Atan2(x.Y, x.X)
}
