package labels

import (
	"sort"
)

// Rank scales each candidate's base priority by its cell's density score,
// boosts the first candidate seen per cluster, sorts by priority and keeps
// the top maxVisible. The rest are marked capped and hidden.
// Cells must already be assigned.
func Rank(cands []*Candidate, grid *DensityGrid, maxVisible int) []*Candidate {
	leaders := make(map[string]bool)
	for _, c := range cands {
		c.Priority = c.BasePriority * grid.DensityScore(c.Cell)
		if !leaders[c.Cluster] {
			leaders[c.Cluster] = true
			c.Priority *= ClusterLeaderBoost
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Priority != cands[j].Priority {
			return cands[i].Priority > cands[j].Priority
		}
		return cands[i].Key < cands[j].Key
	})

	if maxVisible <= 0 || len(cands) <= maxVisible {
		return cands
	}
	for _, c := range cands[maxVisible:] {
		c.Visible = false
		c.Reason = ReasonCapped
	}
	return cands[:maxVisible]
}
