// Package spatialmath defines spatial mathematical operations.
// Poses are rigid transforms backed by unit dual quaternions; rotations use the Hamilton convention.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a rigid transform: a unit rotation followed by a translation.
type Pose interface {
	Point() r3.Vector
	Orientation() quat.Number
}

// dualQuaternion implements Pose. The real part is the rotation, the dual part is 0.5 * t * rotation.
type dualQuaternion struct {
	dualquat.Number
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return &dualQuaternion{dualquat.Number{Real: quat.Number{Real: 1}}}
}

// NewPose builds a pose from a translation and a rotation. The rotation is normalized; a zero
// quaternion is treated as the identity rotation.
func NewPose(point r3.Vector, rotation quat.Number) Pose {
	rot := Normalize(rotation)
	return &dualQuaternion{dualquat.Number{
		Real: rot,
		Dual: quat.Scale(0.5, quat.Mul(quat.Number{Imag: point.X, Jmag: point.Y, Kmag: point.Z}, rot)),
	}}
}

// NewPoseFromPoint returns a pure translation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return NewPose(point, quat.Number{Real: 1})
}

// NewPoseFromAxisAngle builds a pose from a translation and a rotation vector whose norm is the angle.
func NewPoseFromAxisAngle(point, rotation r3.Vector) Pose {
	return NewPose(point, R3ToR4(rotation).ToQuat())
}

// NewPoseFromOrientation returns a pure rotation.
func NewPoseFromOrientation(rotation quat.Number) Pose {
	return NewPose(r3.Vector{}, rotation)
}

func newDualQuaternionFromPose(p Pose) *dualQuaternion {
	if dq, ok := p.(*dualQuaternion); ok {
		return dq
	}
	return NewPose(p.Point(), p.Orientation()).(*dualQuaternion)
}

// Point returns the translation of the pose.
func (q *dualQuaternion) Point() r3.Vector {
	t := quat.Mul(quat.Scale(2, q.Dual), quat.Conj(q.Real))
	return r3.Vector{X: t.Imag, Y: t.Jmag, Z: t.Kmag}
}

// Orientation returns the rotation of the pose.
func (q *dualQuaternion) Orientation() quat.Number {
	return q.Real
}

func (q *dualQuaternion) String() string {
	p := q.Point()
	r := q.Real
	return fmt.Sprintf("{t: (%.4f, %.4f, %.4f), q: (w %.4f, x %.4f, y %.4f, z %.4f)}", p.X, p.Y, p.Z, r.Real, r.Imag, r.Jmag, r.Kmag)
}

// Compose returns a*b: b expressed in a's frame, so b is applied first.
// Its translation is a.t + a.rot(b.t) and its rotation a.rot * b.rot.
func Compose(a, b Pose) Pose {
	result := dualquat.Mul(newDualQuaternionFromPose(a).Number, newDualQuaternionFromPose(b).Number)
	// Keep the real part unit length.
	if abs := quat.Abs(result.Real); abs != 1 && abs > 0 {
		result.Real = quat.Scale(1/abs, result.Real)
		result.Dual = quat.Scale(1/abs, result.Dual)
	}
	return &dualQuaternion{result}
}

// PoseInverse returns the pose that composes with p to yield the identity.
func PoseInverse(p Pose) Pose {
	dq := newDualQuaternionFromPose(p)
	return &dualQuaternion{dualquat.Number{
		Real: quat.Conj(dq.Real),
		Dual: quat.Conj(dq.Dual),
	}}
}

// PoseBetween returns the pose that takes a to b, i.e. inverse(a) * b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// TransformPoint applies the pose to a point.
func TransformPoint(p Pose, point r3.Vector) r3.Vector {
	return RotateVector(p.Orientation(), point).Add(p.Point())
}

// PoseAlmostEqual returns whether two poses have translations within 1e-6 and rotations within
// 1e-6 radians of each other.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-6)
}

// PoseAlmostEqualEps is PoseAlmostEqual with a caller supplied tolerance used for both the
// translation distance and the rotation angle.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	if a.Point().Sub(b.Point()).Norm() > epsilon {
		return false
	}
	return QuatAngleBetween(a.Orientation(), b.Orientation()) <= epsilon
}

// PoseDelta returns the translation and the rotation angle (radians) that separate two poses.
func PoseDelta(a, b Pose) (r3.Vector, float64) {
	between := PoseBetween(a, b)
	return between.Point(), QuatAngle(between.Orientation())
}

// Distance2D returns the norm of the translation projected on the xy plane.
func Distance2D(p Pose) float64 {
	pt := p.Point()
	return math.Hypot(pt.X, pt.Y)
}
