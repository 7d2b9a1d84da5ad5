package visualmap

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/livo/rimage/transform"
)

// A VisibilityCuller decides whether a candidate point near the camera is visible in frame.
type VisibilityCuller interface {
	Visible(frame *Frame, p *VisualPoint) bool
}

// FrustumCuller accepts points in front of the camera that project at least Border pixels inside
// the image.
type FrustumCuller struct {
	Border float64
}

// Visible implements VisibilityCuller.
func (c FrustumCuller) Visible(frame *Frame, p *VisualPoint) bool {
	px, ok := frame.WorldToPixel(p.pos)
	if !ok {
		return false
	}
	return transform.InFrame(frame.cam, px, c.Border)
}

type voxelKey struct {
	x, y, z int64
}

// voxelIndex buckets points by the cubic cell containing them.
type voxelIndex struct {
	size  float64
	cells map[voxelKey][]*VisualPoint
}

func newVoxelIndex(size float64) *voxelIndex {
	return &voxelIndex{size: size, cells: map[voxelKey][]*VisualPoint{}}
}

func (idx *voxelIndex) key(pos r3.Vector) voxelKey {
	return voxelKey{
		x: int64(math.Floor(pos.X / idx.size)),
		y: int64(math.Floor(pos.Y / idx.size)),
		z: int64(math.Floor(pos.Z / idx.size)),
	}
}

func (idx *voxelIndex) insert(p *VisualPoint) {
	k := idx.key(p.pos)
	idx.cells[k] = append(idx.cells[k], p)
}

func (idx *voxelIndex) remove(p *VisualPoint, pos r3.Vector) {
	k := idx.key(pos)
	cell := idx.cells[k]
	for i, q := range cell {
		if q == p {
			cell[i] = cell[len(cell)-1]
			cell[len(cell)-1] = nil
			cell = cell[:len(cell)-1]
			break
		}
	}
	if len(cell) == 0 {
		delete(idx.cells, k)
		return
	}
	idx.cells[k] = cell
}

func (idx *voxelIndex) move(p *VisualPoint, from r3.Vector) {
	if idx.key(from) == idx.key(p.pos) {
		return
	}
	idx.remove(p, from)
	idx.insert(p)
}

// cellDistance is the distance from pos to the nearest point of the cell k.
func (idx *voxelIndex) cellDistance(k voxelKey, pos r3.Vector) float64 {
	axis := func(c int64, v float64) float64 {
		start := float64(c) * idx.size
		end := start + idx.size
		switch {
		case v < start:
			return start - v
		case v > end:
			return v - end
		default:
			return 0
		}
	}
	return r3.Vector{X: axis(k.x, pos.X), Y: axis(k.y, pos.Y), Z: axis(k.z, pos.Z)}.Norm()
}

// within calls fn for every indexed point no farther than radius from center.
func (idx *voxelIndex) within(center r3.Vector, radius float64, fn func(p *VisualPoint)) {
	for k, cell := range idx.cells {
		if idx.cellDistance(k, center) > radius {
			continue
		}
		for _, p := range cell {
			if p.pos.Sub(center).Norm() <= radius {
				fn(p)
			}
		}
	}
}
