package labels

import (
	"github.com/paulmach/orb"

	"marketlabels/pkg/geo"
)

// Projector converts map points to screen points.
type Projector interface {
	ProjectToScreen(p orb.Point) (geo.ScreenPoint, bool)
}

// BuildCandidates emits one candidate per anchor of every visible,
// in-zoom-range layer whose anchor projects into the viewport.
// Anchors that fail to project, fall off screen, or are forced off are skipped.
func BuildCandidates(pc *PassContext, scorer *Scorer) []Candidate {
	center := pc.Extent.Center()
	var out []Candidate
	for _, layer := range pc.Layers {
		if !layer.Visible || pc.Zoom < layer.MinZoom {
			continue
		}
		fs := layer.Style.FontSize
		if fs <= 0 {
			fs = pc.Settings.FontSize
		}
		if fs <= 0 {
			fs = DefaultFontSize
		}

		for i := range layer.Anchors {
			a := &layer.Anchors[i]
			if a.ForcedOff() {
				continue
			}
			screen, ok := pc.Projector.ProjectToScreen(a.Point)
			if !ok || !onScreen(screen, pc.Viewport) {
				continue
			}

			text := ResolveText(layer.Style, a)
			w, h := MeasureText(text, fs)
			out = append(out, Candidate{
				Key:          a.GraphicRef(layer.ID, i),
				ID:           ResolveAnchorID(a),
				Layer:        layer.ID,
				Anchor:       a,
				Screen:       screen,
				Text:         text,
				FontSize:     fs,
				Width:        w,
				Height:       h,
				SelfManaged:  layer.SelfManaged,
				BasePriority: scorer.CalculateBasePriority(a, center),
			})
		}
	}
	return out
}

func onScreen(p geo.ScreenPoint, size geo.Size) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= size.Width && p.Y <= size.Height
}
