// Package host describes the map rendering host the label engine drives.
package host

import (
	"github.com/paulmach/orb"

	"marketlabels/pkg/geo"
)

// Event is a host change notification.
type Event string

const (
	EventZoom     Event = "zoom"
	EventExtent   Event = "extent"
	EventLayerSet Event = "layerset"
)

// GraphicRef identifies one label graphic on the host.
type GraphicRef string

// SymbolOffset positions a text symbol relative to its anchor.
type SymbolOffset struct {
	XOffset  float64 `json:"xoffset"`
	YOffset  float64 `json:"yoffset"`
	Text     string  `json:"text,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`
}

// MapHost is the capability set consumed from the rendering host.
type MapHost interface {
	// ProjectToScreen returns false when the point cannot be projected.
	ProjectToScreen(p orb.Point) (geo.ScreenPoint, bool)
	CurrentZoom() float64
	CurrentExtent() orb.Bound
	ViewportSize() geo.Size
	// Watch registers cb for ev and returns a function removing it.
	Watch(ev Event, cb func()) (unsubscribe func())
	SetGraphicVisibility(ref GraphicRef, visible bool)
	SetGraphicSymbolOffset(ref GraphicRef, off SymbolOffset)
}

// VisibilityReader is implemented by hosts that expose current graphic visibility.
type VisibilityReader interface {
	GraphicVisible(ref GraphicRef) (visible, ok bool)
}

// VisibilityInterceptor is implemented by hosts whose visibility writes can be
// filtered. The filter returns the visibility actually applied.
type VisibilityInterceptor interface {
	SetVisibilityFilter(filter func(ref GraphicRef, visible bool) bool)
}
