package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ScreenPoint is a position in viewport pixels, origin top-left, y down.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a viewport size in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Distance returns the euclidean distance between two screen points.
func Distance(a, b ScreenPoint) float64 {
	return planar.Distance(orb.Point{a.X, a.Y}, orb.Point{b.X, b.Y})
}

// Project maps a map-space point into screen space for a viewport showing extent.
// Map y grows upward, screen y grows downward.
func Project(extent orb.Bound, size Size, p orb.Point) ScreenPoint {
	w := extent.Max[0] - extent.Min[0]
	h := extent.Max[1] - extent.Min[1]
	if w <= 0 || h <= 0 {
		return ScreenPoint{}
	}
	return ScreenPoint{
		X: (p[0] - extent.Min[0]) / w * size.Width,
		Y: (extent.Max[1] - p[1]) / h * size.Height,
	}
}
