package placement

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlabels/pkg/geo"
)

func newItem(id string, x, y float64) Item {
	return Item{ID: id, Anchor: geo.ScreenPoint{X: x, Y: y}, Width: 60, Height: 14.4, FontSize: 12}
}

func crowd(n int, seed uint64) []Item {
	r := rand.New(rand.NewPCG(seed, seed+1))
	items := make([]Item, n)
	for i := range items {
		items[i] = newItem(fmt.Sprintf("c%d", i), 100+r.Float64()*300, 100+r.Float64()*300)
	}
	return items
}

func TestSimple_NoCollisions(t *testing.T) {
	c := DefaultConstraints(geo.Size{Width: 1000, Height: 1000})
	c.MinDistance = 20
	items := []Item{
		newItem("a", 100, 100),
		newItem("b", 500, 500),
		newItem("c", 900, 900),
	}

	occupied := Simple(items, nil, c)
	require.Len(t, occupied, 3)

	for _, it := range items {
		assert.True(t, it.Visible, it.ID)
		off := it.Offset()
		assert.InDelta(t, 0, off.X, 1e-9, "%s should sit directly above its anchor", it.ID)
		assert.Less(t, off.Y, 0.0, it.ID)
		assert.InDelta(t, -(it.Height/2 + it.FontSize + c.Padding), off.Y, 1e-9, it.ID)
	}
}

func TestSimple_SecondLabelTakesNextDirection(t *testing.T) {
	c := DefaultConstraints(geo.Size{Width: 1000, Height: 1000})
	occupied := []Box{}
	first := []Item{newItem("a", 500, 500)}
	occupied = Simple(first, occupied, c)

	// Same anchor: "top" now conflicts, "right" is free.
	second := []Item{newItem("b", 500, 500)}
	Simple(second, occupied, c)

	require.True(t, second[0].Visible)
	off := second[0].Offset()
	assert.Greater(t, off.X, 0.0)
	assert.InDelta(t, 0, off.Y, 1e-9)
}

func TestSimple_StrictOverlap(t *testing.T) {
	c := DefaultConstraints(geo.Size{Width: 1000, Height: 1000})
	c.MinDistance = 400 // every slot conflicts with every obstacle
	obstacles := []Box{
		BoxAt(geo.ScreenPoint{X: 450, Y: 450}, 10, 10),
		BoxAt(geo.ScreenPoint{X: 550, Y: 550}, 10, 10),
	}

	lenient := []Item{newItem("a", 500, 500)}
	Simple(lenient, obstacles, c)
	assert.True(t, lenient[0].Visible, "fewest-conflict slot is accepted when not strict")

	c.StrictOverlap = true
	strict := []Item{newItem("a", 500, 500)}
	Simple(strict, obstacles, c)
	assert.False(t, strict[0].Visible, "two conflicts are rejected under strict overlap")

	single := []Item{newItem("a", 500, 500)}
	Simple(single, obstacles[:1], c)
	assert.True(t, single[0].Visible, "one conflict is tolerated under strict overlap")
}

func TestSimple_TooWideForViewport(t *testing.T) {
	c := DefaultConstraints(geo.Size{Width: 50, Height: 50})
	items := []Item{newItem("a", 25, 25)}
	Simple(items, nil, c)
	assert.False(t, items[0].Visible)
}

func TestParseDirections(t *testing.T) {
	d := ParseDirections([]string{"left", "bogus", "top"})
	require.Len(t, d, 2)
	assert.Equal(t, "left", d[0].Name)
	assert.Equal(t, "top", d[1].Name)

	assert.Len(t, ParseDirections(nil), 8)
}

func TestByName(t *testing.T) {
	for _, name := range []string{NameSimple, NameAdvanced, NameHighQuality} {
		_, ok := ByName(name)
		assert.True(t, ok, name)
	}
	_, ok := ByName("fancy")
	assert.False(t, ok)
}

// Every strategy must keep boxes inside the padded viewport and within reach of their anchors.
func TestStrategies_Containment(t *testing.T) {
	strategies := map[string]Func{
		NameSimple:      Simple,
		NameAdvanced:    Advanced,
		NameHighQuality: HighQuality,
	}
	for name, place := range strategies {
		t.Run(name, func(t *testing.T) {
			for seed := uint64(1); seed <= 5; seed++ {
				c := DefaultConstraints(geo.Size{Width: 500, Height: 500})
				c.Rand = rand.New(rand.NewPCG(seed, 99))
				items := crowd(40, seed)
				// Anchors near the edges exercise clamping.
				items = append(items, newItem("edge-tl", 2, 2), newItem("edge-br", 498, 498))

				place(items, nil, c)

				placed := 0
				for _, it := range items {
					if !it.Visible {
						continue
					}
					placed++
					b := it.Box
					assert.GreaterOrEqual(t, b.X, c.Padding-1e-6, it.ID)
					assert.GreaterOrEqual(t, b.Y, c.Padding-1e-6, it.ID)
					assert.LessOrEqual(t, b.X+b.Width, c.Viewport.Width-c.Padding+1e-6, it.ID)
					assert.LessOrEqual(t, b.Y+b.Height, c.Viewport.Height-c.Padding+1e-6, it.ID)
					assert.LessOrEqual(t, geo.Distance(b.Center(), it.Anchor), c.MaxDistance+1e-6, it.ID)
				}
				assert.Positive(t, placed)
			}
		})
	}
}

func TestAdvanced_FixedObstaclesStay(t *testing.T) {
	c := DefaultConstraints(geo.Size{Width: 500, Height: 500})
	fixed := BoxAt(geo.ScreenPoint{X: 250, Y: 250}, 40, 14)
	occupied := Advanced(crowd(20, 7), []Box{fixed}, c)
	require.NotEmpty(t, occupied)
	assert.Equal(t, fixed, occupied[0])
}

func TestHighQuality_DoesNotIncreaseEnergy(t *testing.T) {
	c := DefaultConstraints(geo.Size{Width: 500, Height: 500})

	adv := crowd(30, 3)
	Advanced(adv, nil, c)
	var advBoxes []Box
	for _, it := range adv {
		if it.Visible {
			advBoxes = append(advBoxes, it.Box)
		}
	}

	hq := crowd(30, 3)
	c.Rand = rand.New(rand.NewPCG(5, 6))
	HighQuality(hq, nil, c)
	var hqBoxes []Box
	for _, it := range hq {
		if it.Visible {
			hqBoxes = append(hqBoxes, it.Box)
		}
	}

	require.Equal(t, len(advBoxes), len(hqBoxes))
	assert.LessOrEqual(t, totalEnergy(hqBoxes, nil, &c), totalEnergy(advBoxes, nil, &c)+1e-9)
}

func TestBox(t *testing.T) {
	a := Box{X: 0, Y: 0, Width: 10, Height: 10}
	assert.True(t, a.Overlaps(Box{X: 5, Y: 5, Width: 10, Height: 10}))
	assert.False(t, a.Overlaps(Box{X: 10, Y: 0, Width: 10, Height: 10}), "touching edges do not overlap")
	assert.Equal(t, geo.ScreenPoint{X: 5, Y: 5}, a.Center())
	assert.Equal(t, 0.0, a.distanceToPoint(geo.ScreenPoint{X: 3, Y: 3}))
	assert.Equal(t, 5.0, a.distanceToPoint(geo.ScreenPoint{X: 13, Y: 14}))
}
