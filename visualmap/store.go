package visualmap

import (
	"image"
	"sort"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/livo/logging"
	"go.viam.com/livo/rimage/transform"
)

// StoreOption configures NewMapStore.
type StoreOption func(*MapStore)

// WithClock sets the clock used to timestamp observations for age pruning.
func WithClock(clk clock.Clock) StoreOption {
	return func(s *MapStore) {
		s.clock = clk
	}
}

// WithVisibilityCuller replaces the default FrustumCuller.
func WithVisibilityCuller(culler VisibilityCuller) StoreOption {
	return func(s *MapStore) {
		s.culler = culler
	}
}

// WithStoreFrameCounter makes frames built by the store draw ids from counter, so that several
// maps can number their frames independently.
func WithStoreFrameCounter(counter *FrameCounter) StoreOption {
	return func(s *MapStore) {
		s.counter = counter
	}
}

// MapStore is the set of registered visual points and the single entry point for removals that
// must cascade between frames and points. It is not safe for concurrent use.
type MapStore struct {
	conf      Config
	logger    logging.Logger
	pruneLog  logging.Logger
	detachLog logging.Logger
	clock     clock.Clock
	culler    VisibilityCuller
	counter   *FrameCounter

	points map[int64]*VisualPoint
	// frames is keyed by identity: frames from different counters may share an id.
	frames map[*Frame]struct{}
	voxels *voxelIndex
	nextID int64
}

// NewMapStore returns an empty map. conf must be valid.
func NewMapStore(conf Config, logger logging.Logger, opts ...StoreOption) (*MapStore, error) {
	if err := conf.Validate("visual_map"); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Global()
	}
	logger = logger.Sublogger("map")
	s := &MapStore{
		conf:      conf,
		logger:    logger,
		pruneLog:  logger.Sublogger("prune"),
		detachLog: logger.Sublogger("detach"),
		clock:     clock.New(),
		culler:    FrustumCuller{Border: float64(conf.PatchHalfSize)},
		counter:   defaultFrameCounter,
		points:    map[int64]*VisualPoint{},
		frames:    map[*Frame]struct{}{},
		voxels:    newVoxelIndex(conf.VoxelSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the configuration of the map.
func (s *MapStore) Config() Config {
	return s.conf
}

// NewFrame builds a frame with the map's pyramid depth, logger and frame counter.
func (s *MapStore) NewFrame(cam transform.Camera, img image.Image) (*Frame, error) {
	return NewFrame(cam, img,
		WithPyramidLevels(s.conf.PyramidLevels),
		WithFrameCounter(s.counter),
		WithLogger(s.logger))
}

// NumPoints returns the number of registered points.
func (s *MapStore) NumPoints() int {
	return len(s.points)
}

// Point returns the registered point with the given id.
func (s *MapStore) Point(id int64) (*VisualPoint, bool) {
	p, ok := s.points[id]
	return p, ok
}

// Points returns the registered points ordered by id.
func (s *MapStore) Points() []*VisualPoint {
	out := make([]*VisualPoint, 0, len(s.points))
	for _, p := range s.points {
		out = append(out, p)
	}
	sortByID(out)
	return out
}

// Contains reports whether p is registered in this map.
func (s *MapStore) Contains(p *VisualPoint) bool {
	if p == nil || p.store != s {
		return false
	}
	q, ok := s.points[p.id]
	return ok && q == p
}

// adopt gives a point owned by no map an id from this map. A point stays owned by the map that
// adopted it, and keeps its id, after it is unregistered.
func (s *MapStore) adopt(p *VisualPoint) error {
	switch p.store {
	case s:
		return nil
	case nil:
		p.id = s.nextID
		s.nextID++
		p.store = s
		return nil
	default:
		return errors.Wrapf(ErrPointRegistered, "point %d belongs to another map", p.id)
	}
}

func (s *MapStore) register(p *VisualPoint) {
	if _, ok := s.points[p.id]; ok {
		return
	}
	s.points[p.id] = p
	s.voxels.insert(p)
	p.lastObserved = s.clock.Now()
}

// unregister drops p from the map without touching its observations.
func (s *MapStore) unregister(p *VisualPoint) {
	if !s.Contains(p) {
		return
	}
	delete(s.points, p.id)
	s.voxels.remove(p, p.pos)
}

func (s *MapStore) reindex(p *VisualPoint, from r3.Vector) {
	if s.Contains(p) {
		s.voxels.move(p, from)
	}
}

func (s *MapStore) trackFrame(frame *Frame) {
	s.frames[frame] = struct{}{}
}

func (s *MapStore) tracks(frame *Frame) bool {
	_, ok := s.frames[frame]
	return ok
}

// Insert registers a point that already carries observations built with NewFeature.
func (s *MapStore) Insert(p *VisualPoint) error {
	if p == nil {
		return errors.New("cannot insert a nil visual point")
	}
	if s.Contains(p) {
		return errors.Wrapf(ErrPointRegistered, "point %d", p.id)
	}
	if len(p.obs) == 0 {
		return errors.Wrap(ErrNoObservations, "cannot insert")
	}
	if err := s.adopt(p); err != nil {
		return err
	}
	for _, f := range p.obs {
		if f.frame != nil {
			s.trackFrame(f.frame)
		}
	}
	s.register(p)
	return nil
}

// NewPoint allocates a point owned by this map. It becomes registered with its first
// observation.
func (s *MapStore) NewPoint(pos r3.Vector) *VisualPoint {
	p := NewVisualPoint(pos)
	//nolint:errcheck
	s.adopt(p)
	return p
}

// AddObservation anchors a new feature of p in frame at the level 0 pixel px and links it to
// both. The bearing comes from the frame's camera model. p is registered if it was not.
func (s *MapStore) AddObservation(frame *Frame, p *VisualPoint, px r2.Point, level int, score float64) (*Feature, error) {
	if frame == nil {
		return nil, errors.New("cannot add an observation to a nil frame")
	}
	if p == nil {
		return nil, errors.New("cannot add an observation of a nil visual point")
	}
	if p.store != nil && p.store != s {
		return nil, errors.Wrapf(ErrPointRegistered, "point %d belongs to another map", p.id)
	}
	f, err := NewFeature(frame, p, px, level, frame.cam.PixelToBearing(px), score)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck
	s.adopt(p)
	p.AddFrameRef(f)
	s.trackFrame(frame)
	s.register(p)
	p.lastObserved = s.clock.Now()
	return f, nil
}

// RemovePoint releases every observation of p, so their frames drop them, and unregisters it.
func (s *MapStore) RemovePoint(p *VisualPoint) error {
	if !s.Contains(p) {
		return ErrPointNotRegistered
	}
	for _, f := range p.obs {
		f.release()
	}
	for i := range p.obs {
		p.obs[i] = nil
	}
	p.obs = p.obs[:0]
	p.ref = nil
	s.unregister(p)
	return nil
}

// DetachFrame retires frame: each of its features is removed from its point and released.
// Points left without observations are unregistered. It returns how many were.
func (s *MapStore) DetachFrame(frame *Frame) int {
	if frame == nil {
		return 0
	}
	features := frame.features
	frame.features = nil
	frame.retired = true
	delete(s.frames, frame)

	evicted := 0
	for _, f := range features {
		p := f.point
		if p == nil {
			f.release()
			continue
		}
		wasRegistered := s.Contains(p)
		p.DeleteFeatureRef(f)
		f.release()
		if wasRegistered && !s.Contains(p) {
			evicted++
		}
	}
	if evicted > 0 {
		s.detachLog.Debugw("detached frame emptied visual points", "frame", frame.id, "evicted", evicted)
	}
	return evicted
}

// Cull trims p after tracking: with keep_only_ref_patch_on_cull only the reference patch
// survives, otherwise the whole point is removed.
func (s *MapStore) Cull(p *VisualPoint) error {
	if !s.Contains(p) {
		return ErrPointNotRegistered
	}
	if s.conf.KeepOnlyRefPatchOnCull {
		p.DeleteNonRefPatchFeatures()
		return nil
	}
	return s.RemovePoint(p)
}

// VisiblePoints returns the registered points within max_visible_distance of the camera that the
// culler accepts, ordered by id.
func (s *MapStore) VisiblePoints(frame *Frame) []*VisualPoint {
	if frame == nil {
		return nil
	}
	var out []*VisualPoint
	s.voxels.within(frame.Position(), s.conf.MaxVisibleDistance, func(p *VisualPoint) {
		if s.culler.Visible(frame, p) {
			out = append(out, p)
		}
	})
	sortByID(out)
	return out
}

// SelectObservations runs selector on every visible point and returns the usable observations,
// ordered by point id. Points the selector reports as having nothing usable are skipped.
func (s *MapStore) SelectObservations(frame *Frame, selector ObservationSelector) ([]Observation, error) {
	if frame == nil {
		return nil, errors.New("cannot select observations for a nil frame")
	}
	if selector == nil {
		return nil, errors.New("observation selector is nil")
	}
	framePos := frame.Position()
	var out []Observation
	for _, p := range s.VisiblePoints(frame) {
		px, _ := frame.WorldToPixel(p.pos)
		f, err := selector.Select(p, framePos, px)
		if err != nil {
			if errors.Is(err, ErrNoObservations) || errors.Is(err, ErrViewpointTooOblique) {
				continue
			}
			return nil, errors.Wrapf(err, "selecting observation of point %d", p.id)
		}
		out = append(out, Observation{Point: p, Feature: f, Pixel: px, HasRefPatch: p.HasRefPatch()})
	}
	return out, nil
}

func sortByID(points []*VisualPoint) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].id < points[j].id
	})
}
