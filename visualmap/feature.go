package visualmap

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/livo/rimage"
	"go.viam.com/livo/spatialmath"
)

// A Feature is one observation of a VisualPoint in one Frame at one pyramid level. The frame
// owns the feature; the point only references it.
type Feature struct {
	frame *Frame
	point *VisualPoint

	px      r2.Point
	level   int
	bearing r3.Vector
	score   float64
	tfw     spatialmath.Pose
}

// NewFeature anchors an observation of point in frame and appends it to the frame's features.
// px is in level 0 coordinates and must fall inside the image at the given level. The bearing is
// normalized and the frame's current pose is captured. The caller links the feature into the
// point with point.AddFrameRef; MapStore.AddObservation does both steps.
func NewFeature(
	frame *Frame,
	point *VisualPoint,
	px r2.Point,
	level int,
	bearing r3.Vector,
	score float64,
) (*Feature, error) {
	if frame == nil {
		return nil, errors.New("feature: frame is nil")
	}
	if point == nil {
		return nil, errors.New("feature: visual point is nil")
	}
	if frame.retired {
		return nil, errors.Wrapf(ErrFrameRetired, "frame %d", frame.id)
	}
	img := frame.pyramid.Level(level)
	if img == nil {
		return nil, errors.Wrapf(ErrFeatureOutOfBounds, "level %d of %d", level, frame.pyramid.NumLevels())
	}
	scaled := scalePixel(px, level)
	size := img.Bounds().Size()
	if scaled.X < 0 || scaled.Y < 0 || scaled.X >= float64(size.X) || scaled.Y >= float64(size.Y) {
		return nil, errors.Wrapf(ErrFeatureOutOfBounds, "pixel %v at level %d of a %dx%d image", px, level, size.X, size.Y)
	}
	if bearing.Norm2() == 0 {
		return nil, errors.New("feature: bearing must be non-zero")
	}

	f := &Feature{
		frame:   frame,
		point:   point,
		px:      px,
		level:   level,
		bearing: bearing.Normalize(),
		score:   score,
		tfw:     frame.tfw,
	}
	frame.addFeature(f)
	return f, nil
}

// scalePixel maps a level 0 pixel to the given pyramid level.
func scalePixel(px r2.Point, level int) r2.Point {
	return px.Mul(1 / math.Pow(2, float64(level)))
}

// Frame returns the owning frame, or nil once the feature was released.
func (f *Feature) Frame() *Frame {
	return f.frame
}

// Point returns the observed point, or nil once the feature was released.
func (f *Feature) Point() *VisualPoint {
	return f.point
}

// Px returns the pixel in level 0 coordinates.
func (f *Feature) Px() r2.Point {
	return f.px
}

// LevelPx returns the pixel in the coordinates of the feature's pyramid level.
func (f *Feature) LevelPx() r2.Point {
	return scalePixel(f.px, f.level)
}

// Level returns the pyramid level.
func (f *Feature) Level() int {
	return f.level
}

// Bearing returns the unit bearing in the camera frame.
func (f *Feature) Bearing() r3.Vector {
	return f.bearing
}

// Score returns the photometric score; lower is better.
func (f *Feature) Score() float64 {
	return f.score
}

// SetScore replaces the photometric score.
func (f *Feature) SetScore(score float64) {
	f.score = score
}

// TFW returns the world-to-camera pose captured when the feature was anchored.
func (f *Feature) TFW() spatialmath.Pose {
	return f.tfw
}

// AnchorPosition returns the camera centre in world coordinates at anchoring time.
func (f *Feature) AnchorPosition() r3.Vector {
	return f.tfw.Inverse().Point()
}

// Alive reports whether the feature is still linked to a frame.
func (f *Feature) Alive() bool {
	return f.frame != nil
}

// Patch samples the square patch of side 2*halfSize+1 around the feature at its own pyramid
// level into dst. It returns false if the patch leaves the image or the feature was released.
func (f *Feature) Patch(halfSize int, dst []float64) ([]float64, bool) {
	if f.frame == nil {
		return dst[:0], false
	}
	img := f.frame.pyramid.Level(f.level)
	if img == nil {
		return dst[:0], false
	}
	return rimage.ExtractPatch(img, f.LevelPx(), halfSize, dst)
}

// release unlinks the feature from its frame and drops both back-references. Removing it from the
// point's observation list is the caller's job. Releasing twice is a no-op.
func (f *Feature) release() {
	if f.frame != nil {
		f.frame.removeFeature(f)
	}
	f.frame = nil
	f.point = nil
}
