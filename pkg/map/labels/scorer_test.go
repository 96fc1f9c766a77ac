package labels

import (
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestScorer_AttributeWeight(t *testing.T) {
	s := NewScorer([]string{"priority", "population", "featured"}, 0, 0, nil)
	a := &Anchor{
		Attributes:        map[string]any{"priority": 3},
		FeatureAttributes: map[string]any{"priority": 100, "population": 2.5, "featured": "yes"},
	}
	// label priority 3 wins over the feature's 100
	assert.InDelta(t, 3+2.5+PresenceBonus, s.CalculateAttributeWeight(a), 1e-9)
	assert.Equal(t, 0.0, s.CalculateAttributeWeight(&Anchor{}))
}

func TestScorer_ProximityBonus(t *testing.T) {
	s := NewScorer(nil, 150, 0, nil)
	center := orb.Point{0, 0}
	assert.InDelta(t, 2.0, s.CalculateProximityBonus(center, center), 1e-9)
	assert.InDelta(t, 1.0, s.CalculateProximityBonus(orb.Point{75, 0}, center), 1e-9)
	assert.Equal(t, 0.0, s.CalculateProximityBonus(orb.Point{150, 0}, center))
	assert.Equal(t, 0.0, NewScorer(nil, 0, 0, nil).CalculateProximityBonus(center, center))
}

func TestScorer_Jitter(t *testing.T) {
	a := &Anchor{Point: orb.Point{500, 500}}
	center := orb.Point{0, 0}

	s1 := NewScorer(nil, 150, 0.1, rand.New(rand.NewPCG(1, 7)))
	s2 := NewScorer(nil, 150, 0.1, rand.New(rand.NewPCG(1, 7)))
	p1 := s1.CalculateBasePriority(a, center)
	p2 := s2.CalculateBasePriority(a, center)

	assert.Equal(t, p1, p2, "same seed and pass give the same jitter")
	assert.GreaterOrEqual(t, p1, BasePriority)
	assert.Less(t, p1, BasePriority+0.1)
}

func TestRank(t *testing.T) {
	g := NewDensityGrid(40)
	g.Reset(1000, 1000)
	mk := func(key string, x, y, base float64, cluster string) *Candidate {
		c := &Candidate{Key: hostRef(key), Screen: screen(x, y), BasePriority: base, Cluster: cluster}
		c.Cell = g.Insert(x, y, key, base)
		return c
	}
	cands := []*Candidate{
		mk("a", 10, 10, 5, "k1"),
		mk("b", 12, 12, 5, "k1"),
		mk("c", 500, 500, 3, "k2"),
		mk("d", 900, 900, 1, "k3"),
	}

	kept := Rank(cands, g, 3)
	assert.Len(t, kept, 3)
	keys := []string{string(kept[0].Key), string(kept[1].Key), string(kept[2].Key)}
	// a leads cluster k1, b does not; both are damped by their shared cell.
	assert.Equal(t, []string{"a", "c", "b"}, keys)
	assert.InDelta(t, kept[0].Priority/1.5, kept[2].Priority, 1e-9)

	assert.Equal(t, ReasonCapped, cands[3].Reason)
	assert.Equal(t, "d", string(cands[3].Key))
	assert.False(t, cands[3].Visible)
}
