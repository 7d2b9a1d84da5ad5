package visualmap

import (
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/livo/logging"
	"go.viam.com/livo/rimage/transform"
	"go.viam.com/livo/spatialmath"
)

var centerPx = r2.Point{X: 320, Y: 240}

func testCamera(t *testing.T) *transform.PinholeCameraModel {
	t.Helper()
	cam, err := transform.NewPinholeCameraModel(&transform.PinholeCameraIntrinsics{
		Width: 640, Height: 480, Fx: 500, Fy: 500, Ppx: 320, Ppy: 240,
	}, nil)
	test.That(t, err, test.ShouldBeNil)
	return cam
}

func gradientImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = uint8((x + 2*y) % 256)
		}
	}
	return img
}

// poseAt is the world-to-camera pose of an unrotated camera centred at c.
func poseAt(c r3.Vector) spatialmath.Pose {
	return spatialmath.NewPoseFromPoint(c).Inverse()
}

func newTestStore(t *testing.T, opts ...StoreOption) *MapStore {
	t.Helper()
	return newTestStoreWithConfig(t, DefaultConfig(), opts...)
}

func newTestStoreWithConfig(t *testing.T, conf Config, opts ...StoreOption) *MapStore {
	t.Helper()
	opts = append([]StoreOption{WithStoreFrameCounter(NewFrameCounter())}, opts...)
	s, err := NewMapStore(conf, logging.NewTestLogger(t), opts...)
	test.That(t, err, test.ShouldBeNil)
	return s
}

// frameAt builds a frame through s whose camera centre is c.
func frameAt(t *testing.T, s *MapStore, c r3.Vector) *Frame {
	t.Helper()
	fr, err := s.NewFrame(testCamera(t), gradientImage(640, 480))
	test.That(t, err, test.ShouldBeNil)
	fr.SetPose(poseAt(c))
	return fr
}

func observe(t *testing.T, s *MapStore, fr *Frame, p *VisualPoint, score float64) *Feature {
	t.Helper()
	f, err := s.AddObservation(fr, p, centerPx, 0, score)
	test.That(t, err, test.ShouldBeNil)
	return f
}

func requireConsistent(t *testing.T, s *MapStore) {
	t.Helper()
	test.That(t, s.CheckConsistency(), test.ShouldBeNil)
}
