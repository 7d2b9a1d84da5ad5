package visualmap

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// An ObservationSelector picks which observation of a point the tracker aligns against when
// looking from framePos. It returns ErrNoObservations or ErrViewpointTooOblique, possibly
// wrapped, when the point has nothing usable.
type ObservationSelector interface {
	Select(p *VisualPoint, framePos r3.Vector, curPx r2.Point) (*Feature, error)
}

// Observation is what the tracker receives for each visible point.
type Observation struct {
	Point   *VisualPoint
	Feature *Feature
	// Pixel is the level 0 projection of the point into the queried frame.
	Pixel       r2.Point
	HasRefPatch bool
}
