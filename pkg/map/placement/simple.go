package placement

import (
	"marketlabels/pkg/geo"
)

// slot returns the clamped box for it in direction d, reporting false when
// the box does not fit or drifts beyond MaxDistance.
func (c *Constraints) slot(it *Item, d Direction) (Box, bool) {
	gap := it.FontSize + c.Padding
	center := geo.ScreenPoint{
		X: it.Anchor.X + d.DX*(it.Width/2+gap),
		Y: it.Anchor.Y + d.DY*(it.Height/2+gap),
	}
	b, ok := c.clamp(BoxAt(center, it.Width, it.Height))
	if !ok || !c.inReach(b, it.Anchor) {
		return b, false
	}
	return b, true
}

// Simple places items in order, trying each direction and accepting the
// first slot free of conflicts with occupied. Failing that the slot with the
// fewest conflicts is accepted unless StrictOverlap is set and it has two or more.
// It returns occupied extended by the placed boxes.
func Simple(items []Item, occupied []Box, c Constraints) []Box {
	dirs := c.directions()
	for i := range items {
		it := &items[i]
		it.Visible = false

		best, bestConflicts := Box{}, -1
		for _, d := range dirs {
			b, ok := c.slot(it, d)
			if !ok {
				continue
			}
			n := conflicts(b, occupied, c.MinDistance)
			if bestConflicts < 0 || n < bestConflicts {
				best, bestConflicts = b, n
			}
			if n == 0 {
				break
			}
		}

		if bestConflicts < 0 {
			continue
		}
		if bestConflicts > 0 && c.StrictOverlap && bestConflicts >= 2 {
			continue
		}

		it.Box = best
		it.Visible = true
		it.ideal = best.Center()
		occupied = append(occupied, best)
	}
	return occupied
}
