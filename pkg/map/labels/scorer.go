package labels

import (
	"math/rand/v2"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Heuristic weights for priority ranking.
const (
	BasePriority       = 1.0
	PresenceBonus      = 2.0 // non-numeric priority attribute
	ProximityWeight    = 2.0
	ClusterLeaderBoost = 1.5
)

// Scorer computes the base priority of an anchor.
type Scorer struct {
	Attributes       []string
	PriorityDistance float64
	Jitter           float64
	rng              *rand.Rand
}

// NewScorer creates a Scorer. rng supplies tie-breaking jitter; nil disables it.
func NewScorer(attributes []string, priorityDistance, jitter float64, rng *rand.Rand) *Scorer {
	return &Scorer{
		Attributes:       attributes,
		PriorityDistance: priorityDistance,
		Jitter:           jitter,
		rng:              rng,
	}
}

// CalculateAttributeWeight sums the configured priority attributes present on a.
// Numeric values add themselves, anything else adds PresenceBonus.
func (s *Scorer) CalculateAttributeWeight(a *Anchor) float64 {
	w := 0.0
	for _, name := range s.Attributes {
		v, ok := a.Lookup(name)
		if !ok || v == nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			w += f
		} else {
			w += PresenceBonus
		}
	}
	return w
}

// CalculateProximityBonus rewards anchors near the viewport center, in map units.
func (s *Scorer) CalculateProximityBonus(p, center orb.Point) float64 {
	if s.PriorityDistance <= 0 {
		return 0
	}
	d := planar.Distance(p, center)
	if d >= s.PriorityDistance {
		return 0
	}
	return ProximityWeight * (1 - d/s.PriorityDistance)
}

// CalculateBasePriority combines all factors plus jitter.
func (s *Scorer) CalculateBasePriority(a *Anchor, center orb.Point) float64 {
	p := BasePriority + s.CalculateAttributeWeight(a) + s.CalculateProximityBonus(a.Point, center)
	if s.rng != nil && s.Jitter > 0 {
		p += s.rng.Float64() * s.Jitter
	}
	return p
}
