package placement

import (
	"math"

	"marketlabels/pkg/geo"
	"marketlabels/pkg/logging"
)

// Energy weights: overlap dominates proximity, which dominates edge closeness.
const (
	minAnnealItems  = 10
	overlapPenalty  = 100.0
	proximityWeight = 10.0
	edgeWeight      = 1.0
)

// HighQuality runs Advanced, then refines the layout with simulated annealing
// when at least ten labels were placed. Only perturbations that keep a box
// inside the viewport and within reach of its anchor are considered, and the
// lowest-energy state seen is applied.
func HighQuality(items []Item, occupied []Box, c Constraints) []Box {
	fixed := append([]Box(nil), occupied...)
	occupied = Advanced(items, occupied, c)

	idx := visibleIndexes(items)
	if len(idx) < minAnnealItems {
		return occupied
	}

	s := c.Anneal
	if s.StartTemperature <= 0 || s.Cooling <= 0 || s.Cooling >= 1 || s.InnerIterations <= 0 {
		return occupied
	}

	rng := c.rng()
	boxes := make([]Box, len(idx))
	for k, i := range idx {
		boxes[k] = items[i].Box
	}
	best := append([]Box(nil), boxes...)
	energy := totalEnergy(boxes, fixed, &c)
	bestEnergy := energy

	for t := s.StartTemperature; t > s.MinTemperature; t *= s.Cooling {
		for n := 0; n < s.InnerIterations; n++ {
			k := rng.IntN(len(boxes))
			old := boxes[k]
			moved := old.Moved((rng.Float64()*2-1)*s.MaxStep, (rng.Float64()*2-1)*s.MaxStep)
			if !c.valid(moved, items[idx[k]].Anchor) {
				continue
			}

			before := boxEnergy(k, boxes, fixed, &c)
			boxes[k] = moved
			after := boxEnergy(k, boxes, fixed, &c)

			delta := after - before
			if delta < 0 || rng.Float64() < math.Exp(-delta/t) {
				energy += delta
				if energy < bestEnergy {
					bestEnergy = energy
					copy(best, boxes)
				}
				continue
			}
			boxes[k] = old
		}
		logging.TraceDefault("Placement: anneal step", "temperature", t, "energy", energy, "best", bestEnergy)
	}

	for k, i := range idx {
		items[i].Box = best[k]
	}
	return rebuildOccupied(items, fixed)
}

func pairEnergy(a, b Box, minDist float64) float64 {
	if a.Overlaps(b) {
		return overlapPenalty
	}
	if minDist <= 0 {
		return 0
	}
	if d := geo.Distance(a.Center(), b.Center()); d < minDist {
		return proximityWeight * (minDist - d) / minDist
	}
	return 0
}

func edgeEnergy(b Box, c *Constraints) float64 {
	if c.BorderMargin <= 0 {
		return 0
	}
	e := math.Min(
		math.Min(b.X-c.Padding, c.Viewport.Width-c.Padding-(b.X+b.Width)),
		math.Min(b.Y-c.Padding, c.Viewport.Height-c.Padding-(b.Y+b.Height)),
	)
	if e >= c.BorderMargin {
		return 0
	}
	return edgeWeight * (c.BorderMargin - math.Max(e, 0)) / c.BorderMargin
}

// boxEnergy is every energy term involving boxes[k].
func boxEnergy(k int, boxes, fixed []Box, c *Constraints) float64 {
	e := edgeEnergy(boxes[k], c)
	for j := range boxes {
		if j != k {
			e += pairEnergy(boxes[k], boxes[j], c.MinDistance)
		}
	}
	for _, f := range fixed {
		e += pairEnergy(boxes[k], f, c.MinDistance)
	}
	return e
}

func totalEnergy(boxes, fixed []Box, c *Constraints) float64 {
	e := 0.0
	for i := range boxes {
		e += edgeEnergy(boxes[i], c)
		for j := i + 1; j < len(boxes); j++ {
			e += pairEnergy(boxes[i], boxes[j], c.MinDistance)
		}
		for _, f := range fixed {
			e += pairEnergy(boxes[i], f, c.MinDistance)
		}
	}
	return e
}
