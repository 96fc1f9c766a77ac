package placement

import (
	"math"

	"marketlabels/pkg/geo"
)

// Force tuning. The roles matter more than the magnitudes.
const (
	minForceItems    = 5
	repulsion        = 500.0
	edgeStiffness    = 0.5
	springStiffness  = 0.1
	anchorClearance  = 15.0
	anchorStiffness  = 0.5
	initialDamping   = 0.85
	repulsionReach   = 1.5 // times MinDistance
	minPairDistance  = 1.0
	maxForcePerPixel = 50.0
)

// Advanced runs Simple, then relaxes the layout with a force simulation
// when at least five labels were placed. Boxes in occupied on entry are
// treated as fixed obstacles.
func Advanced(items []Item, occupied []Box, c Constraints) []Box {
	fixed := append([]Box(nil), occupied...)
	occupied = Simple(items, occupied, c)

	idx := visibleIndexes(items)
	if len(idx) < minForceItems {
		return occupied
	}

	initial := make([]Box, len(items))
	for _, i := range idx {
		initial[i] = items[i].Box
	}

	relax(items, idx, fixed, &c)

	for _, i := range idx {
		if !c.valid(items[i].Box, items[i].Anchor) {
			items[i].Box = initial[i]
		}
	}
	return rebuildOccupied(items, fixed)
}

func relax(items []Item, idx []int, fixed []Box, c *Constraints) {
	iterations := c.ForceIterations
	if iterations <= 0 {
		return
	}
	reach := c.MinDistance * repulsionReach
	forces := make([]geo.ScreenPoint, len(items))

	for iter := 0; iter < iterations; iter++ {
		damping := initialDamping * (1 - float64(iter)/float64(iterations))

		for _, i := range idx {
			forces[i] = geo.ScreenPoint{}
		}

		// Pairwise repulsion
		for a, i := range idx {
			ci := items[i].Box.Center()
			for _, j := range idx[a+1:] {
				fx, fy := repel(ci, items[j].Box.Center(), reach, i < j)
				forces[i].X += fx
				forces[i].Y += fy
				forces[j].X -= fx
				forces[j].Y -= fy
			}
			for _, f := range fixed {
				fx, fy := repel(ci, f.Center(), reach, true)
				forces[i].X += fx
				forces[i].Y += fy
			}
		}

		for _, i := range idx {
			it := &items[i]
			f := &forces[i]
			edgeForce(it.Box, c, f)
			springForce(it, c, f)
			anchorForce(it, f)

			dx := clampAbs(f.X*damping, maxForcePerPixel)
			dy := clampAbs(f.Y*damping, maxForcePerPixel)
			it.Box = it.Box.Moved(dx, dy)
			it.Box = constrain(it, c)
		}
	}
}

// repel is the inverse-square push on a from b. Coincident centers split
// along x, with first deciding the sign so the pair separates.
func repel(a, b geo.ScreenPoint, reach float64, first bool) (float64, float64) {
	dx, dy := a.X-b.X, a.Y-b.Y
	dist := math.Hypot(dx, dy)
	if dist >= reach {
		return 0, 0
	}
	if dist < minPairDistance {
		dx, dy, dist = 1, 0, minPairDistance
		if !first {
			dx = -1
		}
	}
	force := repulsion / (dist * dist)
	return force * dx / dist, force * dy / dist
}

func edgeForce(b Box, c *Constraints, f *geo.ScreenPoint) {
	lo := c.Padding + c.BorderMargin
	if b.X < lo {
		f.X += (lo - b.X) * edgeStiffness
	}
	if b.Y < lo {
		f.Y += (lo - b.Y) * edgeStiffness
	}
	if hi := c.Viewport.Width - lo; b.X+b.Width > hi {
		f.X -= (b.X + b.Width - hi) * edgeStiffness
	}
	if hi := c.Viewport.Height - lo; b.Y+b.Height > hi {
		f.Y -= (b.Y + b.Height - hi) * edgeStiffness
	}
}

// springForce pulls the box toward its ideal slot. Past half the max
// distance the stiffness grows with the square of the overshoot ratio.
func springForce(it *Item, c *Constraints, f *geo.ScreenPoint) {
	center := it.Box.Center()
	dx, dy := center.X-it.ideal.X, center.Y-it.ideal.Y
	k := springStiffness
	if half := c.MaxDistance / 2; half > 0 {
		if d := geo.Distance(center, it.Anchor); d > half {
			r := d / half
			k *= r * r
		}
	}
	f.X -= dx * k
	f.Y -= dy * k
}

// anchorForce keeps the box from covering its own anchor point.
func anchorForce(it *Item, f *geo.ScreenPoint) {
	d := it.Box.distanceToPoint(it.Anchor)
	if d >= anchorClearance {
		return
	}
	center := it.Box.Center()
	dx, dy := center.X-it.Anchor.X, center.Y-it.Anchor.Y
	n := math.Hypot(dx, dy)
	if n == 0 {
		dx, dy, n = 0, -1, 1
	}
	push := (anchorClearance - d) * anchorStiffness
	f.X += push * dx / n
	f.Y += push * dy / n
}

// constrain pulls the box back within MaxDistance of its anchor, then into the viewport.
func constrain(it *Item, c *Constraints) Box {
	b := it.Box
	if c.MaxDistance > 0 {
		center := b.Center()
		d := geo.Distance(center, it.Anchor)
		if d > c.MaxDistance {
			s := c.MaxDistance / d
			center = geo.ScreenPoint{
				X: it.Anchor.X + (center.X-it.Anchor.X)*s,
				Y: it.Anchor.Y + (center.Y-it.Anchor.Y)*s,
			}
			b = BoxAt(center, b.Width, b.Height)
		}
	}
	if cb, ok := c.clamp(b); ok {
		b = cb
	}
	return b
}

func clampAbs(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}

func visibleIndexes(items []Item) []int {
	var idx []int
	for i := range items {
		if items[i].Visible {
			idx = append(idx, i)
		}
	}
	return idx
}

func rebuildOccupied(items []Item, fixed []Box) []Box {
	out := append([]Box(nil), fixed...)
	for i := range items {
		if items[i].Visible {
			out = append(out, items[i].Box)
		}
	}
	return out
}
