package visualmap

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/livo/spatialmath"
)

// NormalState is the progress of a point's surface normal estimate.
type NormalState int

// The normal estimate only moves forward: NoNormal, then NormalPending, then NormalConverged.
const (
	NoNormal NormalState = iota
	NormalPending
	NormalConverged
)

func (s NormalState) String() string {
	switch s {
	case NoNormal:
		return "no_normal"
	case NormalPending:
		return "pending"
	case NormalConverged:
		return "converged"
	default:
		return fmt.Sprintf("NormalState(%d)", int(s))
	}
}

// A VisualPoint is a 3D world point together with the features observing it, an optional
// reference patch and a surface normal estimate.
type VisualPoint struct {
	id  int64
	pos r3.Vector

	normal     r3.Vector
	prevNormal r3.Vector
	state      NormalState

	// obs is stored oldest first; every public view is newest first.
	obs []*Feature
	ref *Feature

	store        *MapStore
	lastObserved time.Time
}

// NewVisualPoint returns an unregistered point at pos with no observations.
func NewVisualPoint(pos r3.Vector) *VisualPoint {
	return &VisualPoint{id: -1, pos: pos}
}

// ID returns the id assigned by the owning MapStore, or -1.
func (p *VisualPoint) ID() int64 {
	return p.id
}

// Pos returns the world position.
func (p *VisualPoint) Pos() r3.Vector {
	return p.pos
}

// SetPos moves the point and keeps the owning store's spatial index up to date.
func (p *VisualPoint) SetPos(pos r3.Vector) {
	old := p.pos
	p.pos = pos
	if p.store != nil {
		p.store.reindex(p, old)
	}
}

// LastObserved returns when the owning store last linked an observation to the point.
func (p *VisualPoint) LastObserved() time.Time {
	return p.lastObserved
}

// AddFrameRef makes f the newest observation. Duplicates are not checked.
func (p *VisualPoint) AddFrameRef(f *Feature) {
	p.obs = append(p.obs, f)
}

// DeleteFeatureRef removes the newest entry equal to f from the observations and releases f,
// clearing the reference patch first if f is the reference. A feature that is not an observation
// is left untouched.
func (p *VisualPoint) DeleteFeatureRef(f *Feature) {
	if f == nil {
		return
	}
	if p.ref == f {
		p.ref = nil
	}
	for i := len(p.obs) - 1; i >= 0; i-- {
		if p.obs[i] != f {
			continue
		}
		copy(p.obs[i:], p.obs[i+1:])
		p.obs[len(p.obs)-1] = nil
		p.obs = p.obs[:len(p.obs)-1]
		f.release()
		break
	}
	p.evictIfEmpty()
}

// DeleteNonRefPatchFeatures releases every observation except the reference patch. Without a
// reference patch the point is left with no observations.
func (p *VisualPoint) DeleteNonRefPatchFeatures() {
	kept := p.obs[:0]
	for _, f := range p.obs {
		if f == p.ref {
			kept = append(kept, f)
			continue
		}
		f.release()
	}
	for i := len(kept); i < len(p.obs); i++ {
		p.obs[i] = nil
	}
	p.obs = kept
	p.evictIfEmpty()
}

// evictIfEmpty unregisters a point that lost its last observation.
func (p *VisualPoint) evictIfEmpty() {
	if len(p.obs) == 0 && p.store != nil {
		p.store.unregister(p)
	}
}

// Observations returns the observing features, newest first.
func (p *VisualPoint) Observations() []*Feature {
	out := make([]*Feature, len(p.obs))
	for i, f := range p.obs {
		out[len(p.obs)-1-i] = f
	}
	return out
}

// NumObservations returns the number of observing features.
func (p *VisualPoint) NumObservations() int {
	return len(p.obs)
}

func (p *VisualPoint) hasObservation(f *Feature) bool {
	for _, o := range p.obs {
		if o == f {
			return true
		}
	}
	return false
}

// SetReferencePatch designates f as the photometric template of the point.
func (p *VisualPoint) SetReferencePatch(f *Feature) error {
	if f == nil || !p.hasObservation(f) {
		return ErrNotObservation
	}
	p.ref = f
	return nil
}

// ReferencePatch returns the reference feature, if one is designated.
func (p *VisualPoint) ReferencePatch() (*Feature, bool) {
	return p.ref, p.ref != nil
}

// HasRefPatch reports whether the point can provide a template for photometric alignment.
func (p *VisualPoint) HasRefPatch() bool {
	return p.ref != nil
}

// viewDirection returns the unit vector from the point towards pos, or the zero vector when they
// coincide.
func (p *VisualPoint) viewDirection(pos r3.Vector) r3.Vector {
	return pos.Sub(p.pos).Normalize()
}

// ClosestView returns the observation whose anchoring viewpoint is most aligned with framePos as
// seen from the point, and that cosine. Ties go to the newest observation. It returns nil and -Inf
// with no observations.
func (p *VisualPoint) ClosestView(framePos r3.Vector) (*Feature, float64) {
	dq := p.viewDirection(framePos)
	var best *Feature
	bestCos := math.Inf(-1)
	for i := len(p.obs) - 1; i >= 0; i-- {
		f := p.obs[i]
		c := dq.Dot(p.viewDirection(f.AnchorPosition()))
		if c > bestCos {
			best, bestCos = f, c
		}
	}
	return best, bestCos
}

// GetCloseViewObs is GetCloseViewObsWithThreshold with DefaultViewpointCosThreshold.
func (p *VisualPoint) GetCloseViewObs(framePos r3.Vector, curPx r2.Point) (*Feature, bool) {
	return p.GetCloseViewObsWithThreshold(framePos, curPx, DefaultViewpointCosThreshold)
}

// GetCloseViewObsWithThreshold returns the closest view to framePos if its cosine is strictly
// greater than minCos. curPx is accepted for pixel-distance gating and currently ignored.
func (p *VisualPoint) GetCloseViewObsWithThreshold(framePos r3.Vector, curPx r2.Point, minCos float64) (*Feature, bool) {
	best, bestCos := p.ClosestView(framePos)
	if best == nil || !(bestCos > minCos) {
		return nil, false
	}
	return best, true
}

// FindMinScoreFeature returns the observation with the lowest score, the newest on ties. NaN
// scores are never selected, so it returns nil when no observation has a comparable score.
// framePos is part of the selection signature and unused.
func (p *VisualPoint) FindMinScoreFeature(framePos r3.Vector) *Feature {
	var best *Feature
	for i := len(p.obs) - 1; i >= 0; i-- {
		f := p.obs[i]
		if math.IsNaN(f.score) {
			continue
		}
		if best == nil || f.score < best.score {
			best = f
		}
	}
	return best
}

// Normal returns the current surface normal, the zero vector before the first update.
func (p *VisualPoint) Normal() r3.Vector {
	return p.normal
}

// PreviousNormal returns the normal before the most recent update.
func (p *VisualPoint) PreviousNormal() r3.Vector {
	return p.prevNormal
}

// NormalState returns the state of the normal estimate.
func (p *VisualPoint) NormalState() NormalState {
	return p.state
}

// UpdateNormal stores a new unit normal and keeps the old one as the previous normal. A point in
// NoNormal moves to NormalPending; a converged point stays converged.
func (p *VisualPoint) UpdateNormal(n r3.Vector) error {
	if n.Norm2() == 0 {
		return errors.New("visual point: normal must be non-zero")
	}
	p.prevNormal = p.normal
	p.normal = n.Normalize()
	if p.state == NoNormal {
		p.state = NormalPending
	}
	return nil
}

// NormalDelta returns the angle in radians between the previous and current normal. It is 0
// until two updates happened.
func (p *VisualPoint) NormalDelta() float64 {
	return spatialmath.AngleBetween(p.prevNormal, p.normal)
}

// MarkConverged moves a pending normal to NormalConverged and reports whether it did.
func (p *VisualPoint) MarkConverged() bool {
	if p.state != NormalPending {
		return false
	}
	p.state = NormalConverged
	return true
}

// ConvergeIfStable marks the normal converged once two updates differ by at most maxDelta radians.
func (p *VisualPoint) ConvergeIfStable(maxDelta float64) bool {
	if p.state != NormalPending || p.prevNormal.Norm2() == 0 {
		return false
	}
	if p.NormalDelta() > maxDelta {
		return false
	}
	return p.MarkConverged()
}

func (p *VisualPoint) String() string {
	return fmt.Sprintf("VisualPoint(id=%d pos=%v obs=%d ref=%t normal=%s)", p.id, p.pos, len(p.obs), p.ref != nil, p.state)
}
