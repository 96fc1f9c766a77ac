package labels

import (
	"sort"
	"unicode/utf8"

	"marketlabels/pkg/geo"
	"marketlabels/pkg/map/host"
)

// Duplicate scoring weights. Text quality outweighs proximity.
const (
	textBonus      = 5.0
	maxTextRunes   = 40
	proximityScale = 10.0
)

func duplicateScore(c *Candidate) float64 {
	s := 0.0
	if v, ok := c.Anchor.Lookup("priority"); ok {
		if f, ok := toFloat(v); ok {
			s += f
		}
	}
	if n := utf8.RuneCountInString(c.Text); n > 0 && n <= maxTextRunes {
		s += textBonus
	}
	s += proximityScale / (1 + geo.Distance(c.Box.Center(), c.Screen))
	return s
}

// ResolveDuplicates keeps one visible candidate per anchor identity. Losers
// are hidden and point at the winner. It returns the suppressed graphics.
func ResolveDuplicates(cands []Candidate) []host.GraphicRef {
	groups := make(map[string][]*Candidate)
	var order []string
	for i := range cands {
		c := &cands[i]
		if !c.Visible {
			continue
		}
		id := c.ID.Value
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], c)
	}

	var suppressed []host.GraphicRef
	for _, id := range order {
		g := groups[id]
		if len(g) < 2 {
			continue
		}
		scores := make(map[host.GraphicRef]float64, len(g))
		for _, c := range g {
			scores[c.Key] = duplicateScore(c)
		}
		sort.SliceStable(g, func(i, j int) bool {
			if g[i].Override != g[j].Override {
				return g[i].Override
			}
			si, sj := scores[g[i].Key], scores[g[j].Key]
			if si != sj {
				return si > sj
			}
			return g[i].Key < g[j].Key
		})
		winner := g[0]
		for _, c := range g[1:] {
			c.Visible = false
			c.DuplicateOf = winner.Key
			c.Reason = ReasonDuplicate
			suppressed = append(suppressed, c.Key)
		}
	}
	return suppressed
}
