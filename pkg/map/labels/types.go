// Package labels builds, ranks, places and de-duplicates map labels.
package labels

import (
	"fmt"

	"github.com/paulmach/orb"

	"marketlabels/pkg/geo"
	"marketlabels/pkg/map/host"
	"marketlabels/pkg/map/placement"
)

// DefaultFontSize applies when neither the layer nor the settings name one.
const DefaultFontSize = 12.0

// Anchor is the geographic point a label hangs from. Anchors are read-only to the engine.
type Anchor struct {
	Point   orb.Point
	LayerID string
	Graphic host.GraphicRef
	UID     string
	// Text is the raw label text supplied by the source, used when no primary field resolves.
	Text string
	// Attributes belong to the label graphic, FeatureAttributes to the underlying feature.
	Attributes        map[string]any
	FeatureAttributes map[string]any
}

// Lookup finds key on the label attributes first, then the feature attributes.
func (a *Anchor) Lookup(key string) (any, bool) {
	if v, ok := a.Attributes[key]; ok {
		return v, true
	}
	v, ok := a.FeatureAttributes[key]
	return v, ok
}

// ForcedOff reports whether the label graphic's own "visible" attribute is explicitly false.
func (a *Anchor) ForcedOff() bool {
	v, ok := a.Attributes["visible"].(bool)
	return ok && !v
}

// GraphicRef returns the host graphic of the anchor at index i of layer.
func (a *Anchor) GraphicRef(layer string, i int) host.GraphicRef {
	if a.Graphic != "" {
		return a.Graphic
	}
	return host.GraphicRef(fmt.Sprintf("%s:%d", layer, i))
}

// Field formats one attribute into label text.
type Field struct {
	Name   string `json:"name"`
	Prefix string `json:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty"`
}

// LabelStyle describes how a layer's label text is composed.
type LabelStyle struct {
	Primary   Field   `json:"primary"`
	Variables []Field `json:"variables,omitempty"`
	FontSize  float64 `json:"fontSize,omitempty"`
}

// LayerRecord tracks one managed map layer.
type LayerRecord struct {
	ID      string  `json:"id"`
	MinZoom float64 `json:"minZoom"`
	Visible bool    `json:"visible"`
	// SelfManaged layers render their own label graphics; the engine only toggles visibility.
	SelfManaged bool       `json:"selfManaged"`
	Style       LabelStyle `json:"style"`
	Anchors     []Anchor   `json:"-"`
}

// Reasons a candidate ends a pass in its state.
const (
	ReasonCapped    = "capped"
	ReasonUnplaced  = "unplaced"
	ReasonDuplicate = "duplicate"
	ReasonOverride  = "override"
	ReasonEditing   = "editing"
)

// Candidate is one label proposal for one pass.
type Candidate struct {
	Key         host.GraphicRef `json:"key"`
	ID          AnchorID        `json:"id"`
	Layer       string          `json:"layer"`
	Anchor      *Anchor         `json:"-"`
	Screen      geo.ScreenPoint `json:"screen"`
	Text        string          `json:"text"`
	FontSize    float64         `json:"fontSize"`
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	SelfManaged bool            `json:"selfManaged,omitempty"`

	BasePriority float64 `json:"basePriority"`
	Priority     float64 `json:"priority"`
	Cell         CellID  `json:"cell"`
	Cluster      string  `json:"cluster"`

	Box         placement.Box   `json:"box"`
	Offset      geo.ScreenPoint `json:"offset"`
	Visible     bool            `json:"visible"`
	Override    bool            `json:"override,omitempty"`
	DuplicateOf host.GraphicRef `json:"duplicateOf,omitempty"`
	Reason      string          `json:"reason,omitempty"`
}

// Settings are the tunables read fresh for every pass.
type Settings struct {
	Strategy           string
	CRS                string
	MaxVisible         int
	PriorityAttributes []string
	PriorityDistance   float64
	Jitter             float64
	CellSize           float64
	FontSize           float64
	Seed               uint64
	// Constraints carries everything but the viewport, which comes from the host.
	Constraints placement.Constraints
}
