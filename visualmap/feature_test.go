package visualmap

import (
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/livo/rimage"
	"go.viam.com/livo/spatialmath"
)

func TestNewFeature(t *testing.T) {
	s := newTestStore(t)
	fr := frameAt(t, s, r3.Vector{X: 2})
	p := NewVisualPoint(r3.Vector{Z: 5})

	f, err := NewFeature(fr, p, r2.Point{X: 100, Y: 50}, 1, r3.Vector{X: 3, Z: 4}, 2.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Bearing().X, test.ShouldAlmostEqual, 0.6)
	test.That(t, f.Bearing().Z, test.ShouldAlmostEqual, 0.8)
	test.That(t, f.Px(), test.ShouldResemble, r2.Point{X: 100, Y: 50})
	test.That(t, f.LevelPx(), test.ShouldResemble, r2.Point{X: 50, Y: 25})
	test.That(t, f.Alive(), test.ShouldBeTrue)
	test.That(t, fr.Features(), test.ShouldResemble, []*Feature{f})
	// linking into the point is the caller's step
	test.That(t, p.NumObservations(), test.ShouldEqual, 0)

	captured := fr.Pose()
	fr.SetPose(spatialmath.NewZeroPose())
	test.That(t, spatialmath.PoseAlmostEqual(f.TFW(), captured, 1e-12), test.ShouldBeTrue)
	test.That(t, f.AnchorPosition().Sub(r3.Vector{X: 2}).Norm(), test.ShouldAlmostEqual, 0)
}

func TestNewFeatureErrors(t *testing.T) {
	s := newTestStore(t)
	fr := frameAt(t, s, r3.Vector{})
	p := NewVisualPoint(r3.Vector{Z: 5})
	bearing := r3.Vector{Z: 1}

	for _, tc := range []struct {
		name  string
		px    r2.Point
		level int
	}{
		{"negative pixel", r2.Point{X: -0.5, Y: 10}, 0},
		{"past the width", r2.Point{X: 640, Y: 10}, 0},
		{"past the height at level 2", r2.Point{X: 10, Y: 480}, 2},
		{"negative level", centerPx, -1},
		{"missing level", centerPx, DefaultPyramidLevels},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFeature(fr, p, tc.px, tc.level, bearing, 1)
			test.That(t, errors.Is(err, ErrFeatureOutOfBounds), test.ShouldBeTrue)
		})
	}
	test.That(t, fr.NumFeatures(), test.ShouldEqual, 0)

	_, err := NewFeature(nil, p, centerPx, 0, bearing, 1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewFeature(fr, nil, centerPx, 0, bearing, 1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewFeature(fr, p, centerPx, 0, r3.Vector{}, 1)
	test.That(t, err, test.ShouldNotBeNil)

	s.DetachFrame(fr)
	_, err = NewFeature(fr, p, centerPx, 0, bearing, 1)
	test.That(t, errors.Is(err, ErrFrameRetired), test.ShouldBeTrue)
}

func TestFeaturePatch(t *testing.T) {
	s := newTestStore(t)
	img := image.NewGray(image.Rect(0, 0, 640, 480))
	for i := range img.Pix {
		img.Pix[i] = 80
	}
	fr, err := s.NewFrame(testCamera(t), img)
	test.That(t, err, test.ShouldBeNil)
	p := s.NewPoint(r3.Vector{Z: 5})

	f, err := s.AddObservation(fr, p, r2.Point{X: 200, Y: 120}, 2, 1)
	test.That(t, err, test.ShouldBeNil)
	patch, ok := f.Patch(DefaultPatchHalfSize, nil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(patch), test.ShouldEqual, rimage.PatchArea(DefaultPatchHalfSize))
	for _, v := range patch {
		test.That(t, v, test.ShouldEqual, 80.0)
	}

	// the pixel maps to (1.25, 0.75) at level 2, too close to the border for a 9x9 patch
	edge, err := s.AddObservation(fr, p, r2.Point{X: 5, Y: 3}, 2, 1)
	test.That(t, err, test.ShouldBeNil)
	_, ok = edge.Patch(DefaultPatchHalfSize, patch)
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, s.RemovePoint(p), test.ShouldBeNil)
	_, ok = f.Patch(DefaultPatchHalfSize, nil)
	test.That(t, ok, test.ShouldBeFalse)
}
