package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// AxisAngleToQuat returns the unit quaternion rotating theta radians around axis. A zero axis
// yields the identity.
func AxisAngleToQuat(axis r3.Vector, theta float64) quat.Number {
	norm := axis.Norm()
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	s := math.Sin(theta/2) / norm
	return quat.Number{Real: math.Cos(theta / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

// QuaternionAlmostEqual is an equality test for all the float components of a quaternion. Both
// inputs are flipped to a non-negative real part first, so q and -q compare equal.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	if a.Real < 0 {
		a = quat.Scale(-1, a)
	}
	if b.Real < 0 {
		b = quat.Scale(-1, b)
	}
	return math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
}

// AngleBetween returns the angle in radians between two vectors. Zero vectors give zero.
func AngleBetween(a, b r3.Vector) float64 {
	if a.Norm2() == 0 || b.Norm2() == 0 {
		return 0
	}
	return float64(a.Angle(b))
}

func normalizeQuat(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

func rotateByQuat(q quat.Number, v r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}
