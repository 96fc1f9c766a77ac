package placement

import (
	"math"
	"math/rand/v2"

	"marketlabels/pkg/geo"
)

// Direction is a unit step from the anchor toward a candidate slot.
type Direction struct {
	Name string
	DX   float64
	DY   float64
}

var directions = map[string]Direction{
	"top":          {"top", 0, -1},
	"right":        {"right", 1, 0},
	"bottom":       {"bottom", 0, 1},
	"left":         {"left", -1, 0},
	"top-right":    {"top-right", 1, -1},
	"bottom-right": {"bottom-right", 1, 1},
	"bottom-left":  {"bottom-left", -1, 1},
	"top-left":     {"top-left", -1, -1},
}

// DefaultDirectionOrder is the slot order tried by Simple.
var DefaultDirectionOrder = []string{"top", "right", "bottom", "left", "top-right", "bottom-right", "bottom-left", "top-left"}

// ParseDirections maps names to directions, ignoring unknown names.
// An empty result falls back to DefaultDirectionOrder.
func ParseDirections(names []string) []Direction {
	var out []Direction
	for _, n := range names {
		if d, ok := directions[n]; ok {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		for _, n := range DefaultDirectionOrder {
			out = append(out, directions[n])
		}
	}
	return out
}

// Anneal is the simulated annealing schedule.
type Anneal struct {
	StartTemperature float64
	Cooling          float64
	MinTemperature   float64
	InnerIterations  int
	MaxStep          float64
}

// Constraints are shared by all strategies.
type Constraints struct {
	Viewport      geo.Size
	Padding       float64
	MinDistance   float64
	MaxDistance   float64
	StrictOverlap bool
	Directions    []Direction

	BorderMargin    float64
	ForceIterations int
	Anneal          Anneal

	// Rand drives annealing perturbations. Nil uses a fixed seed.
	Rand *rand.Rand
}

// DefaultConstraints returns constraints for a viewport with the stock tuning.
func DefaultConstraints(viewport geo.Size) Constraints {
	return Constraints{
		Viewport:        viewport,
		Padding:         5,
		MinDistance:     20,
		MaxDistance:     120,
		Directions:      ParseDirections(nil),
		BorderMargin:    20,
		ForceIterations: 10,
		Anneal: Anneal{
			StartTemperature: 10,
			Cooling:          0.95,
			MinTemperature:   0.1,
			InnerIterations:  20,
			MaxStep:          15,
		},
	}
}

func (c *Constraints) directions() []Direction {
	if len(c.Directions) == 0 {
		c.Directions = ParseDirections(nil)
	}
	return c.Directions
}

func (c *Constraints) rng() *rand.Rand {
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(1, 2))
	}
	return c.Rand
}

// clamp moves b into the padded viewport. It fails when b cannot fit at all.
func (c *Constraints) clamp(b Box) (Box, bool) {
	maxX := c.Viewport.Width - c.Padding - b.Width
	maxY := c.Viewport.Height - c.Padding - b.Height
	if maxX < c.Padding || maxY < c.Padding {
		return b, false
	}
	b.X = math.Min(math.Max(b.X, c.Padding), maxX)
	b.Y = math.Min(math.Max(b.Y, c.Padding), maxY)
	return b, true
}

// inBounds reports whether b lies within the padded viewport.
func (c *Constraints) inBounds(b Box) bool {
	const eps = 1e-9
	return b.X >= c.Padding-eps && b.Y >= c.Padding-eps &&
		b.X+b.Width <= c.Viewport.Width-c.Padding+eps &&
		b.Y+b.Height <= c.Viewport.Height-c.Padding+eps
}

// inReach reports whether the box center is within MaxDistance of the anchor.
func (c *Constraints) inReach(b Box, anchor geo.ScreenPoint) bool {
	if c.MaxDistance <= 0 {
		return true
	}
	return geo.Distance(b.Center(), anchor) <= c.MaxDistance+1e-9
}

func (c *Constraints) valid(b Box, anchor geo.ScreenPoint) bool {
	return c.inBounds(b) && c.inReach(b, anchor)
}
