// Package visualmap is the sparse visual map of a direct LiDAR-inertial-visual odometry
// estimator. It ties 3D world points to their image observations in camera frames, keeps a
// reference patch per point for photometric alignment, and hands the tracker the best
// observation of every point visible from a new frame.
//
// Frames own the features anchored in them and points hold non-owning references to the
// features observing them. Every removal goes through MapStore (DetachFrame, RemovePoint, Cull,
// Prune) or VisualPoint (DeleteFeatureRef, DeleteNonRefPatchFeatures), and each of these
// unlinks a feature from both its frame and its point before dropping it. A MapStore and the
// frames and points it holds must be mutated from a single goroutine.
package visualmap

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/livo/logging"
	"go.viam.com/livo/rimage"
	"go.viam.com/livo/rimage/transform"
	"go.viam.com/livo/spatialmath"
)

// FrameCounter hands out monotone frame ids.
type FrameCounter struct {
	next *atomic.Int64
}

// NewFrameCounter returns a counter whose first id is 0.
func NewFrameCounter() *FrameCounter {
	return &FrameCounter{next: atomic.NewInt64(0)}
}

// Next returns the next id.
func (c *FrameCounter) Next() int64 {
	return c.next.Inc() - 1
}

// Peek returns the id the next frame will get.
func (c *FrameCounter) Peek() int64 {
	return c.next.Load()
}

// defaultFrameCounter is shared by every frame built without WithFrameCounter. It lives for the
// whole process and is never reset.
var defaultFrameCounter = NewFrameCounter()

type frameOptions struct {
	levels  int
	counter *FrameCounter
	logger  logging.Logger
}

// FrameOption configures NewFrame.
type FrameOption func(*frameOptions)

// WithPyramidLevels sets the number of pyramid levels. The default is DefaultPyramidLevels.
func WithPyramidLevels(levels int) FrameOption {
	return func(opts *frameOptions) {
		opts.levels = levels
	}
}

// WithFrameCounter draws the frame id from counter instead of the process-wide counter.
func WithFrameCounter(counter *FrameCounter) FrameOption {
	return func(opts *frameOptions) {
		opts.counter = counter
	}
}

// WithLogger sets the logger that receives construction warnings.
func WithLogger(logger logging.Logger) FrameOption {
	return func(opts *frameOptions) {
		opts.logger = logger
	}
}

// Frame is a single camera acquisition: id, image pyramid, camera model, world-to-camera pose
// and the features anchored in it. A Frame owns its features.
type Frame struct {
	id      int64
	cam     transform.Camera
	pyramid rimage.Pyramid
	tfw     spatialmath.Pose

	features []*Feature
	retired  bool
}

// NewFrame validates img, builds its pyramid eagerly and assigns the next frame id. An image
// whose size differs from the camera model is accepted with a warning. The pose starts as the
// identity and must be set with SetPose before features are anchored.
func NewFrame(cam transform.Camera, img image.Image, opts ...FrameOption) (*Frame, error) {
	options := frameOptions{levels: DefaultPyramidLevels, counter: defaultFrameCounter}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = logging.Global()
	}
	if cam == nil {
		return nil, errors.New("frame: camera model is nil")
	}

	gray, err := rimage.AsGray(img)
	if err != nil {
		return nil, errors.Wrap(err, "frame")
	}
	if size := gray.Bounds().Size(); size.X != cam.Width() || size.Y != cam.Height() {
		options.logger.Warnw("frame image size differs from camera model, continuing with supplied image",
			"image_width", size.X, "image_height", size.Y,
			"camera_width", cam.Width(), "camera_height", cam.Height())
	}
	pyr, err := rimage.BuildPyramid(gray, options.levels)
	if err != nil {
		return nil, errors.Wrap(err, "frame")
	}

	return &Frame{
		id:      options.counter.Next(),
		cam:     cam,
		pyramid: pyr,
		tfw:     spatialmath.NewZeroPose(),
	}, nil
}

// ID returns the frame id.
func (fr *Frame) ID() int64 {
	return fr.id
}

// Camera returns the camera model of the frame.
func (fr *Frame) Camera() transform.Camera {
	return fr.cam
}

// Pyramid returns the image pyramid. It must not be modified.
func (fr *Frame) Pyramid() rimage.Pyramid {
	return fr.pyramid
}

// Image returns level 0 of the pyramid.
func (fr *Frame) Image() *image.Gray {
	return fr.pyramid[0]
}

// Pose returns the world-to-camera transform T_f_w.
func (fr *Frame) Pose() spatialmath.Pose {
	return fr.tfw
}

// SetPose sets the world-to-camera transform. Features already anchored keep the pose they
// captured.
func (fr *Frame) SetPose(tfw spatialmath.Pose) {
	fr.tfw = tfw
}

// Position returns the camera centre in world coordinates.
func (fr *Frame) Position() r3.Vector {
	return fr.tfw.Inverse().Point()
}

// WorldToCamera maps a world point into the camera frame.
func (fr *Frame) WorldToCamera(pw r3.Vector) r3.Vector {
	return fr.tfw.Transform(pw)
}

// WorldToPixel projects a world point into the level 0 image. It returns false for points
// behind the camera.
func (fr *Frame) WorldToPixel(pw r3.Vector) (r2.Point, bool) {
	pc := fr.WorldToCamera(pw)
	if pc.Z <= 0 {
		return r2.Point{}, false
	}
	return fr.cam.BearingToPixel(pc), true
}

// Features returns the features anchored in the frame, oldest first.
func (fr *Frame) Features() []*Feature {
	out := make([]*Feature, len(fr.features))
	copy(out, fr.features)
	return out
}

// NumFeatures returns the number of features anchored in the frame.
func (fr *Frame) NumFeatures() int {
	return len(fr.features)
}

// Retired reports whether the frame was detached from the map.
func (fr *Frame) Retired() bool {
	return fr.retired
}

func (fr *Frame) addFeature(f *Feature) {
	fr.features = append(fr.features, f)
}

func (fr *Frame) hasFeature(f *Feature) bool {
	for _, owned := range fr.features {
		if owned == f {
			return true
		}
	}
	return false
}

// removeFeature drops f from the owned list, keeping the order of the rest.
func (fr *Frame) removeFeature(f *Feature) bool {
	for i, owned := range fr.features {
		if owned == f {
			copy(fr.features[i:], fr.features[i+1:])
			fr.features[len(fr.features)-1] = nil
			fr.features = fr.features[:len(fr.features)-1]
			return true
		}
	}
	return false
}
