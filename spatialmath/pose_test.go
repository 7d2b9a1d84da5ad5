package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestZeroPose(t *testing.T) {
	p := NewZeroPose()
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{})
	test.That(t, p.Orientation(), test.ShouldResemble, quat.Number{Real: 1})

	v := r3.Vector{X: 1, Y: -2, Z: 3}
	test.That(t, p.Transform(v), test.ShouldResemble, v)

	// The zero value behaves as the identity as well.
	var zero Pose
	test.That(t, zero.Transform(v), test.ShouldResemble, v)
}

func TestPoseTransform(t *testing.T) {
	// 90 degrees around z, then shift along x.
	p := NewPoseFromAxisAngle(r3.Vector{X: 1}, r3.Vector{Z: 1}, math.Pi/2)
	out := p.Transform(r3.Vector{X: 1})
	test.That(t, out.X, test.ShouldAlmostEqual, 1)
	test.That(t, out.Y, test.ShouldAlmostEqual, 1)
	test.That(t, out.Z, test.ShouldAlmostEqual, 0)

	r := p.Rotate(r3.Vector{Y: 2})
	test.That(t, r.X, test.ShouldAlmostEqual, -2)
	test.That(t, r.Y, test.ShouldAlmostEqual, 0)
}

func TestPoseInverse(t *testing.T) {
	p := NewPoseFromAxisAngle(r3.Vector{X: 0.3, Y: -1.2, Z: 4}, r3.Vector{X: 1, Y: 1, Z: 0.5}, 0.7)
	inv := p.Inverse()

	v := r3.Vector{X: -2, Y: 5, Z: 0.25}
	test.That(t, R3VectorAlmostEqual(inv.Transform(p.Transform(v)), v, 1e-9), test.ShouldBeTrue)
	test.That(t, R3VectorAlmostEqual(p.Transform(inv.Transform(v)), v, 1e-9), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(inv.Inverse(), p, 1e-9), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(inv, p, 1e-3), test.ShouldBeFalse)
}

func TestPoseIsAValue(t *testing.T) {
	p := NewPoseFromPoint(r3.Vector{X: 1})
	snapshot := p
	p = NewPoseFromAxisAngle(r3.Vector{Y: 3}, r3.Vector{Z: 1}, 0.4)
	test.That(t, snapshot.Point(), test.ShouldResemble, r3.Vector{X: 1})
	test.That(t, snapshot.Orientation(), test.ShouldResemble, quat.Number{Real: 1})
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{Y: 3})
}

func TestCameraCenterFromWorldToCamera(t *testing.T) {
	// A camera at (2, 0, 0) looking down the world axes: T_c_w maps world to camera.
	tcw := NewPoseFromPoint(r3.Vector{X: -2})
	test.That(t, tcw.Inverse().Point(), test.ShouldResemble, r3.Vector{X: 2})
}

func TestQuaternionAlmostEqual(t *testing.T) {
	q := AxisAngleToQuat(r3.Vector{Y: 1}, 1.1)
	test.That(t, QuaternionAlmostEqual(q, quat.Scale(-1, q), 1e-12), test.ShouldBeTrue)
	test.That(t, QuaternionAlmostEqual(q, quat.Number{Real: 1}, 1e-3), test.ShouldBeFalse)
	test.That(t, AxisAngleToQuat(r3.Vector{}, 2), test.ShouldResemble, quat.Number{Real: 1})
	test.That(t, NewPose(r3.Vector{}, quat.Number{}).Orientation(), test.ShouldResemble, quat.Number{Real: 1})
}

func TestAngleBetween(t *testing.T) {
	test.That(t, AngleBetween(r3.Vector{X: 1}, r3.Vector{Y: 2}), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, AngleBetween(r3.Vector{}, r3.Vector{Y: 2}), test.ShouldEqual, 0.0)
}
