package visualmap

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// CheckConsistency walks every tracked frame and registered point and reports each broken link
// between frames, features and points as an ErrDanglingReference. It returns nil for a
// consistent map.
func (s *MapStore) CheckConsistency() error {
	var err error
	dangling := func(format string, args ...interface{}) {
		err = multierr.Append(err, errors.Wrapf(ErrDanglingReference, format, args...))
	}

	for frame := range s.frames {
		id := frame.id
		if frame.retired {
			dangling("frame %d is retired but still tracked", id)
		}
		for i, f := range frame.features {
			switch {
			case f.frame != frame:
				dangling("feature %d of frame %d points to another frame", i, id)
			case f.point == nil:
				dangling("feature %d of frame %d has no point", i, id)
			case !s.Contains(f.point):
				dangling("feature %d of frame %d observes unregistered point %d", i, id, f.point.id)
			case !f.point.hasObservation(f):
				dangling("feature %d of frame %d is missing from point %d", i, id, f.point.id)
			}
		}
	}

	for id, p := range s.points {
		if p.store != s {
			dangling("point %d is registered but owned by another map", id)
		}
		if len(p.obs) == 0 {
			dangling("point %d is registered with no observations", id)
		}
		for i, f := range p.obs {
			switch {
			case f.point != p:
				dangling("observation %d of point %d points to another point", i, id)
			case f.frame == nil:
				dangling("observation %d of point %d was released", i, id)
			case f.frame.retired:
				dangling("observation %d of point %d belongs to retired frame %d", i, id, f.frame.id)
			case !f.frame.hasFeature(f):
				dangling("observation %d of point %d is missing from frame %d", i, id, f.frame.id)
			case !s.tracks(f.frame):
				dangling("observation %d of point %d belongs to untracked frame %d", i, id, f.frame.id)
			}
		}
		if p.ref != nil && !p.hasObservation(p.ref) {
			dangling("reference patch of point %d is not one of its observations", id)
		}
	}
	return err
}
