package labels

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"marketlabels/pkg/geo"
	"marketlabels/pkg/map/host"
	"marketlabels/pkg/map/overrides"
	"marketlabels/pkg/map/placement"
)

// OverrideSource is consulted for every candidate on every pass.
type OverrideSource interface {
	Get(id string) (overrides.Override, bool)
}

// PassContext is everything one pass reads. Working state lives inside ComputePass.
type PassContext struct {
	Pass      uint64
	Layers    []*LayerRecord
	Projector Projector
	Viewport  geo.Size
	Extent    orb.Bound
	Zoom      float64
	Overrides OverrideSource
	Settings  Settings
	// Editing holds cluster ids under manual editing. Their candidates keep Previous state.
	Editing  map[string]bool
	Previous map[host.GraphicRef]Candidate
}

// Result is the outcome of one pass.
type Result struct {
	ID         string            `json:"id"`
	Pass       uint64            `json:"pass"`
	Strategy   string            `json:"strategy"`
	Zoom       float64           `json:"zoom"`
	Viewport   geo.Size          `json:"viewport"`
	Candidates []Candidate       `json:"candidates"`
	Suppressed []host.GraphicRef `json:"suppressed"`
	Visible    int               `json:"visible"`
	Duration   time.Duration     `json:"duration"`
}

// ComputePass runs build, rank, place and de-duplicate for one viewport state.
func ComputePass(pc *PassContext) *Result {
	start := time.Now()
	s := pc.Settings

	scorer := NewScorer(s.PriorityAttributes, s.PriorityDistance, s.Jitter, rand.New(rand.NewPCG(s.Seed, pc.Pass)))
	cands := BuildCandidates(pc, scorer)

	grid := NewDensityGrid(s.CellSize)
	grid.Reset(pc.Viewport.Width, pc.Viewport.Height)
	for i := range cands {
		c := &cands[i]
		c.Cell = grid.Insert(c.Screen.X, c.Screen.Y, string(c.Key), c.BasePriority)
		c.Cluster = ClusterID(c.Anchor.Point, s.CRS, pc.Zoom, c.Cell)
	}

	var occupied []placement.Box
	var ranked []*Candidate
	for i := range cands {
		c := &cands[i]
		if pc.Editing[c.Cluster] {
			keepPrevious(c, pc.Previous)
			if c.Visible {
				occupied = append(occupied, c.Box)
			}
			continue
		}
		if pc.Overrides != nil {
			if o, ok := pc.Overrides.Get(c.ID.Value); ok && o.Permanent {
				applyOverride(c, o, s.Constraints.Padding)
				occupied = append(occupied, c.Box)
				continue
			}
		}
		ranked = append(ranked, c)
	}

	kept := Rank(ranked, grid, s.MaxVisible)
	strategy := place(kept, occupied, pc)
	suppressed := ResolveDuplicates(cands)

	res := &Result{
		ID:         uuid.NewString(),
		Pass:       pc.Pass,
		Strategy:   strategy,
		Zoom:       pc.Zoom,
		Viewport:   pc.Viewport,
		Candidates: cands,
		Suppressed: suppressed,
	}
	for i := range cands {
		if cands[i].Visible {
			res.Visible++
		}
	}
	res.Duration = time.Since(start)
	return res
}

// place runs the configured strategy over kept and copies the outcome back.
func place(kept []*Candidate, occupied []placement.Box, pc *PassContext) string {
	s := pc.Settings
	fn, ok := placement.ByName(s.Strategy)
	strategy := s.Strategy
	if !ok {
		slog.Warn("Labels: unknown placement strategy, using simple", "strategy", s.Strategy)
		strategy = placement.NameSimple
	}

	items := make([]placement.Item, len(kept))
	for i, c := range kept {
		items[i] = placement.Item{
			ID:       string(c.Key),
			Anchor:   c.Screen,
			Width:    c.Width,
			Height:   c.Height,
			FontSize: c.FontSize,
		}
	}

	cons := s.Constraints
	cons.Viewport = pc.Viewport
	cons.Rand = rand.New(rand.NewPCG(s.Seed^0x9e3779b97f4a7c15, pc.Pass))
	fn(items, occupied, cons)

	for i, c := range kept {
		it := &items[i]
		c.Visible = it.Visible
		if !it.Visible {
			c.Reason = ReasonUnplaced
			continue
		}
		c.Box = it.Box
		c.Offset = it.Offset()
	}
	return strategy
}

// applyOverride places c exactly where its override says. Without a stored
// offset the label sits in the first directional slot above its anchor.
func applyOverride(c *Candidate, o overrides.Override, padding float64) {
	if o.Text != nil {
		c.Text = *o.Text
	}
	if o.FontSize != nil {
		c.FontSize = *o.FontSize
	}
	c.Width, c.Height = MeasureText(c.Text, c.FontSize)

	if o.Offset != nil {
		c.Offset = geo.ScreenPoint{X: o.Offset.X, Y: o.Offset.Y}
	} else {
		c.Offset = geo.ScreenPoint{X: 0, Y: -(c.Height/2 + c.FontSize + padding)}
	}
	center := geo.ScreenPoint{X: c.Screen.X + c.Offset.X, Y: c.Screen.Y + c.Offset.Y}
	c.Box = placement.BoxAt(center, c.Width, c.Height)
	c.Visible = true
	c.Override = true
	c.Reason = ReasonOverride
}

func keepPrevious(c *Candidate, previous map[host.GraphicRef]Candidate) {
	c.Reason = ReasonEditing
	prev, ok := previous[c.Key]
	if !ok {
		return
	}
	c.Text = prev.Text
	c.FontSize = prev.FontSize
	c.Width, c.Height = prev.Width, prev.Height
	c.Box = prev.Box
	c.Offset = prev.Offset
	c.Visible = prev.Visible
	c.Override = prev.Override
}
