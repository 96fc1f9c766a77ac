package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestProject(t *testing.T) {
	extent := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1000, 500}}
	size := Size{Width: 200, Height: 100}

	tests := []struct {
		name string
		in   orb.Point
		want ScreenPoint
	}{
		{"TopLeft", orb.Point{0, 500}, ScreenPoint{0, 0}},
		{"BottomRight", orb.Point{1000, 0}, ScreenPoint{200, 100}},
		{"Center", orb.Point{500, 250}, ScreenPoint{100, 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(extent, size, tt.in)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
		})
	}
}

func TestProject_DegenerateExtent(t *testing.T) {
	got := Project(orb.Bound{}, Size{Width: 100, Height: 100}, orb.Point{5, 5})
	assert.Equal(t, ScreenPoint{}, got)
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(ScreenPoint{0, 0}, ScreenPoint{3, 4}), 1e-9)
}

func TestRepresentativePoint(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
	p, ok := representativePoint(square)
	assert.True(t, ok)
	assert.InDelta(t, 5.0, p[0], 1e-9)
	assert.InDelta(t, 5.0, p[1], 1e-9)

	line := orb.LineString{{0, 0}, {1, 1}, {2, 2}}
	p, ok = representativePoint(line)
	assert.True(t, ok)
	assert.Equal(t, orb.Point{1, 1}, p)

	_, ok = representativePoint(nil)
	assert.False(t, ok)
}

func TestCoerceAttribute(t *testing.T) {
	assert.Equal(t, 1250.0, coerceAttribute("  1250\x00\x00"))
	assert.Equal(t, "Main St", coerceAttribute("Main St  "))
	assert.Equal(t, "", coerceAttribute("\x00\x00"))
	v, ok := coerceAttribute("3.5").(float64)
	assert.True(t, ok)
	assert.False(t, math.IsNaN(v))
}
