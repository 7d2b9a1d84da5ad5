package visualmap

import (
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
)

// PruneResult counts the points removed by Prune per reason.
type PruneResult struct {
	Aged         int
	OverCapacity int
}

// Total returns the number of removed points.
func (r PruneResult) Total() int {
	return r.Aged + r.OverCapacity
}

// Prune removes points not observed within max_point_age, then the least recently observed
// points beyond max_points. Either limit is disabled when zero.
func (s *MapStore) Prune() PruneResult {
	var res PruneResult
	now := s.clock.Now()

	if s.conf.MaxPointAge > 0 {
		stale := lo.Filter(s.Points(), func(p *VisualPoint, _ int) bool {
			return now.Sub(p.lastObserved) > s.conf.MaxPointAge
		})
		for _, p := range stale {
			//nolint:errcheck
			s.RemovePoint(p)
		}
		res.Aged = len(stale)
		if res.Aged > 0 {
			s.pruneLog.Infow("pruned visual points", "reason", "age", "count", res.Aged, "remaining", len(s.points))
		}
	}

	if s.conf.MaxPoints > 0 && len(s.points) > s.conf.MaxPoints {
		points := s.Points()
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].lastObserved.Before(points[j].lastObserved)
		})
		excess := points[:len(points)-s.conf.MaxPoints]
		for _, p := range excess {
			//nolint:errcheck
			s.RemovePoint(p)
		}
		res.OverCapacity = len(excess)
		s.pruneLog.Infow("pruned visual points", "reason", "max_points", "count", res.OverCapacity, "remaining", len(s.points))
	}
	return res
}

// Stats summarises the map.
type Stats struct {
	Points             int
	Frames             int
	Features           int
	RefPatches         int
	MeanObservations   float64
	MedianObservations float64
}

// Stats returns counts and observation statistics of the registered points.
func (s *MapStore) Stats() Stats {
	points := s.Points()
	counts := stats.Float64Data(lo.Map(points, func(p *VisualPoint, _ int) float64 {
		return float64(len(p.obs))
	}))
	out := Stats{
		Points:     len(points),
		Frames:     len(s.frames),
		Features:   lo.SumBy(points, func(p *VisualPoint) int { return len(p.obs) }),
		RefPatches: lo.CountBy(points, func(p *VisualPoint) bool { return p.ref != nil }),
	}
	if len(counts) == 0 {
		return out
	}
	// both only fail on empty input
	out.MeanObservations, _ = stats.Mean(counts)
	out.MedianObservations, _ = stats.Median(counts)
	return out
}
