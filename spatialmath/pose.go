// Package spatialmath defines the rigid transforms used by the visual map.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform mapping a point p to R*p + t. A Pose is a value: copies never alias
// the original, so a captured Pose stays fixed when the source is later refined.
type Pose struct {
	rot   quat.Number
	trans r3.Vector
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return Pose{rot: quat.Number{Real: 1}}
}

// NewPose returns a Pose with the given translation and rotation. The rotation quaternion is
// normalized; a zero quaternion is treated as no rotation.
func NewPose(trans r3.Vector, rot quat.Number) Pose {
	return Pose{rot: normalizeQuat(rot), trans: trans}
}

// NewPoseFromPoint returns a pure translation.
func NewPoseFromPoint(trans r3.Vector) Pose {
	return Pose{rot: quat.Number{Real: 1}, trans: trans}
}

// NewPoseFromAxisAngle returns a Pose rotating by theta radians around axis, then translating.
func NewPoseFromAxisAngle(trans, axis r3.Vector, theta float64) Pose {
	return Pose{rot: AxisAngleToQuat(axis, theta), trans: trans}
}

// Point returns the translation of the pose.
func (p Pose) Point() r3.Vector {
	return p.trans
}

// Orientation returns the unit rotation quaternion of the pose.
func (p Pose) Orientation() quat.Number {
	if p.rot == (quat.Number{}) {
		return quat.Number{Real: 1}
	}
	return p.rot
}

// Rotate applies only the rotation part of the pose to v.
func (p Pose) Rotate(v r3.Vector) r3.Vector {
	return rotateByQuat(p.Orientation(), v)
}

// Transform maps v through the pose: R*v + t.
func (p Pose) Transform(v r3.Vector) r3.Vector {
	return p.Rotate(v).Add(p.trans)
}

// Inverse returns the pose undoing p.
func (p Pose) Inverse() Pose {
	inv := quat.Conj(p.Orientation())
	return Pose{rot: inv, trans: rotateByQuat(inv, p.trans).Mul(-1)}
}

func (p Pose) String() string {
	q := p.Orientation()
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f qW:%.4f qX:%.4f qY:%.4f qZ:%.4f}",
		p.trans.X, p.trans.Y, p.trans.Z, q.Real, q.Imag, q.Jmag, q.Kmag)
}

// PoseAlmostEqual returns whether the translations are within epsilon of each other and the
// rotations describe the same orientation within epsilon.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.trans, b.trans, epsilon) &&
		QuaternionAlmostEqual(a.Orientation(), b.Orientation(), epsilon)
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if they are all within epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}
