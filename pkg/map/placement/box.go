// Package placement resolves label boxes around their anchors without overlap.
package placement

import (
	"math"

	"marketlabels/pkg/geo"
)

// Box is a screen-space rectangle, origin top-left.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BoxAt returns the box of the given size centered on c.
func BoxAt(c geo.ScreenPoint, w, h float64) Box {
	return Box{X: c.X - w/2, Y: c.Y - h/2, Width: w, Height: h}
}

// Center returns the box center.
func (b Box) Center() geo.ScreenPoint {
	return geo.ScreenPoint{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Overlaps reports whether the interiors of b and o intersect.
func (b Box) Overlaps(o Box) bool {
	return b.X < o.X+o.Width && o.X < b.X+b.Width &&
		b.Y < o.Y+o.Height && o.Y < b.Y+b.Height
}

// Moved returns the box translated by (dx, dy).
func (b Box) Moved(dx, dy float64) Box {
	b.X += dx
	b.Y += dy
	return b
}

// distanceToPoint is the distance from p to the nearest point of b, 0 inside.
func (b Box) distanceToPoint(p geo.ScreenPoint) float64 {
	dx := math.Max(math.Max(b.X-p.X, 0), p.X-(b.X+b.Width))
	dy := math.Max(math.Max(b.Y-p.Y, 0), p.Y-(b.Y+b.Height))
	return math.Hypot(dx, dy)
}

// Item is one label being placed.
type Item struct {
	ID       string
	Anchor   geo.ScreenPoint
	Width    float64
	Height   float64
	FontSize float64

	// Set by the strategies.
	Box     Box
	Visible bool

	// ideal is the box center chosen by the directional pass; forces pull back toward it.
	ideal geo.ScreenPoint
}

// Offset is the box center relative to the anchor.
func (it *Item) Offset() geo.ScreenPoint {
	c := it.Box.Center()
	return geo.ScreenPoint{X: c.X - it.Anchor.X, Y: c.Y - it.Anchor.Y}
}

// conflicts counts occupied boxes that overlap b or sit closer than minDist center to center.
func conflicts(b Box, occupied []Box, minDist float64) int {
	n := 0
	c := b.Center()
	for _, o := range occupied {
		if b.Overlaps(o) || geo.Distance(c, o.Center()) < minDist {
			n++
		}
	}
	return n
}
