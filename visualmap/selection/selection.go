// Package selection contains the observation selection policies the tracker uses to choose which
// observation of a visual point to align against.
package selection

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/livo/visualmap"
)

// Status errors returned by the policies. They are the visualmap sentinels so callers may match
// either.
var (
	ErrNoObservations      = visualmap.ErrNoObservations
	ErrViewpointTooOblique = visualmap.ErrViewpointTooOblique
)

// SelectByViewpoint returns the observation of p whose anchoring viewpoint is closest to
// framePos, provided its viewpoint cosine is strictly greater than minCos.
func SelectByViewpoint(p *visualmap.VisualPoint, framePos r3.Vector, curPx r2.Point, minCos float64) (*visualmap.Feature, error) {
	if p == nil || p.NumObservations() == 0 {
		return nil, ErrNoObservations
	}
	f, ok := p.GetCloseViewObsWithThreshold(framePos, curPx, minCos)
	if !ok {
		return nil, ErrViewpointTooOblique
	}
	return f, nil
}

// SelectByScore returns the observation of p with the lowest photometric score.
func SelectByScore(p *visualmap.VisualPoint, framePos r3.Vector) (*visualmap.Feature, error) {
	if p == nil || p.NumObservations() == 0 {
		return nil, ErrNoObservations
	}
	return p.FindMinScoreFeature(framePos), nil
}

// A Policy is a pluggable observation selector.
type Policy interface {
	visualmap.ObservationSelector
}

// Viewpoint selects the closest view whose cosine exceeds MinCos.
type Viewpoint struct {
	MinCos float64
}

// NewViewpoint returns the viewpoint policy configured by conf.
func NewViewpoint(conf visualmap.Config) Viewpoint {
	return Viewpoint{MinCos: conf.ViewpointCosThreshold}
}

// Select implements Policy.
func (v Viewpoint) Select(p *visualmap.VisualPoint, framePos r3.Vector, curPx r2.Point) (*visualmap.Feature, error) {
	return SelectByViewpoint(p, framePos, curPx, v.MinCos)
}

// MinScore selects the lowest-score observation.
type MinScore struct{}

// Select implements Policy.
func (MinScore) Select(p *visualmap.VisualPoint, framePos r3.Vector, _ r2.Point) (*visualmap.Feature, error) {
	return SelectByScore(p, framePos)
}

// RefPatch selects the reference patch of the point.
type RefPatch struct{}

// Select implements Policy.
func (RefPatch) Select(p *visualmap.VisualPoint, _ r3.Vector, _ r2.Point) (*visualmap.Feature, error) {
	if p == nil || p.NumObservations() == 0 {
		return nil, ErrNoObservations
	}
	f, ok := p.ReferencePatch()
	if !ok {
		return nil, errors.Wrap(ErrNoObservations, "no reference patch")
	}
	return f, nil
}

// Chain tries each policy in order and returns the first selection. Status errors move on to the
// next policy; any other error stops the chain.
type Chain []Policy

// Select implements Policy.
func (c Chain) Select(p *visualmap.VisualPoint, framePos r3.Vector, curPx r2.Point) (*visualmap.Feature, error) {
	if len(c) == 0 {
		return nil, errors.New("empty selection chain")
	}
	var last error
	for _, policy := range c {
		f, err := policy.Select(p, framePos, curPx)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, ErrNoObservations) && !errors.Is(err, ErrViewpointTooOblique) {
			return nil, err
		}
		last = err
	}
	return nil, last
}
