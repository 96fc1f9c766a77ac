package host

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"marketlabels/pkg/geo"
)

// GraphicState is the host-side state of one label graphic.
type GraphicState struct {
	Ref     GraphicRef   `json:"ref"`
	Layer   string       `json:"layer"`
	Visible bool         `json:"visible"`
	Symbol  SymbolOffset `json:"symbol"`
}

// View is an in-memory MapHost. It projects the extent linearly onto the
// viewport and records every graphic write so a remote renderer can mirror it.
type View struct {
	mu       sync.Mutex
	zoom     float64
	extent   orb.Bound
	size     geo.Size
	graphics map[GraphicRef]*GraphicState
	watchers map[Event]map[string]func()
	filter   func(ref GraphicRef, visible bool) bool
	onWrite  func(GraphicState)
}

// NewView creates a view with the given initial viewport.
func NewView(zoom float64, extent orb.Bound, size geo.Size) *View {
	return &View{
		zoom:     zoom,
		extent:   extent,
		size:     size,
		graphics: make(map[GraphicRef]*GraphicState),
		watchers: make(map[Event]map[string]func()),
	}
}

func (v *View) ProjectToScreen(p orb.Point) (geo.ScreenPoint, bool) {
	v.mu.Lock()
	extent, size := v.extent, v.size
	v.mu.Unlock()
	if extent.Max[0] <= extent.Min[0] || extent.Max[1] <= extent.Min[1] {
		return geo.ScreenPoint{}, false
	}
	return geo.Project(extent, size, p), true
}

func (v *View) CurrentZoom() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zoom
}

func (v *View) CurrentExtent() orb.Bound {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.extent
}

func (v *View) ViewportSize() geo.Size {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size
}

func (v *View) Watch(ev Event, cb func()) func() {
	id := uuid.NewString()
	v.mu.Lock()
	if v.watchers[ev] == nil {
		v.watchers[ev] = make(map[string]func())
	}
	v.watchers[ev][id] = cb
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.watchers[ev], id)
		v.mu.Unlock()
	}
}

func (v *View) SetGraphicVisibility(ref GraphicRef, visible bool) {
	v.mu.Lock()
	if v.filter != nil {
		visible = v.filter(ref, visible)
	}
	g := v.graphic(ref)
	changed := g.Visible != visible
	g.Visible = visible
	state, notify := *g, v.onWrite
	v.mu.Unlock()

	if changed && notify != nil {
		notify(state)
	}
}

func (v *View) SetGraphicSymbolOffset(ref GraphicRef, off SymbolOffset) {
	v.mu.Lock()
	g := v.graphic(ref)
	changed := g.Symbol != off
	g.Symbol = off
	state, notify := *g, v.onWrite
	v.mu.Unlock()

	if changed && notify != nil {
		notify(state)
	}
}

// SetVisibilityFilter implements VisibilityInterceptor.
func (v *View) SetVisibilityFilter(filter func(ref GraphicRef, visible bool) bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = filter
}

// GraphicVisible implements VisibilityReader.
func (v *View) GraphicVisible(ref GraphicRef) (visible, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	g, ok := v.graphics[ref]
	if !ok {
		return false, false
	}
	return g.Visible, true
}

// OnWrite registers a callback invoked after each graphic change.
func (v *View) OnWrite(fn func(GraphicState)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onWrite = fn
}

// SetViewport updates the view and fires zoom and extent watchers for what changed.
func (v *View) SetViewport(zoom float64, extent orb.Bound, size geo.Size) {
	v.mu.Lock()
	zoomChanged := zoom != v.zoom
	extentChanged := extent != v.extent || size != v.size
	v.zoom, v.extent, v.size = zoom, extent, size
	v.mu.Unlock()

	if zoomChanged {
		v.fire(EventZoom)
	}
	if extentChanged {
		v.fire(EventExtent)
	}
}

// AddLayer registers the graphics of a layer, initially visible, and fires layerset watchers.
func (v *View) AddLayer(layer string, refs []GraphicRef) {
	v.mu.Lock()
	for _, r := range refs {
		g := v.graphic(r)
		g.Layer = layer
		g.Visible = true
	}
	v.mu.Unlock()
	v.fire(EventLayerSet)
}

// RemoveLayer drops the graphics of a layer and fires layerset watchers.
func (v *View) RemoveLayer(layer string) {
	v.mu.Lock()
	for ref, g := range v.graphics {
		if g.Layer == layer {
			delete(v.graphics, ref)
		}
	}
	v.mu.Unlock()
	v.fire(EventLayerSet)
}

// RefreshLayer shows every graphic of the layer, as a host-side layer reload does.
// Writes pass through the visibility filter.
func (v *View) RefreshLayer(layer string) {
	v.mu.Lock()
	var refs []GraphicRef
	for ref, g := range v.graphics {
		if g.Layer == layer {
			refs = append(refs, ref)
		}
	}
	v.mu.Unlock()
	for _, r := range refs {
		v.SetGraphicVisibility(r, true)
	}
}

// Graphics returns a snapshot of every graphic sorted by ref.
func (v *View) Graphics() []GraphicState {
	v.mu.Lock()
	out := make([]GraphicState, 0, len(v.graphics))
	for _, g := range v.graphics {
		out = append(out, *g)
	}
	v.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out
}

// graphic returns the state for ref, creating it. Callers hold v.mu.
func (v *View) graphic(ref GraphicRef) *GraphicState {
	g, ok := v.graphics[ref]
	if !ok {
		g = &GraphicState{Ref: ref}
		v.graphics[ref] = g
	}
	return g
}

func (v *View) fire(ev Event) {
	v.mu.Lock()
	cbs := make([]func(), 0, len(v.watchers[ev]))
	for _, cb := range v.watchers[ev] {
		cbs = append(cbs, cb)
	}
	v.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}
