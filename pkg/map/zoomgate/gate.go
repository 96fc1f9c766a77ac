package zoomgate

import (
	"log/slog"
	"sort"
	"sync"

	"marketlabels/pkg/map/host"
	"marketlabels/pkg/metrics"
)

// GraphicSource lists the graphics of a layer and which are forced off.
type GraphicSource interface {
	LayerGraphics(id string) (refs []host.GraphicRef, forcedOff []bool)
}

type layerState struct {
	minZoom float64
	visible bool
}

// Gate shows or hides whole layers by zoom, independently of placement.
type Gate struct {
	mu      sync.Mutex
	writer  host.MapHost
	source  GraphicSource
	metrics *metrics.Collector
	layers  map[string]*layerState
}

// New creates a gate writing through writer.
func New(writer host.MapHost, source GraphicSource, m *metrics.Collector) *Gate {
	return &Gate{
		writer:  writer,
		source:  source,
		metrics: m,
		layers:  make(map[string]*layerState),
	}
}

// AddLayer registers a layer and syncs it with zoom right away.
// It returns how many graphics were written.
func (g *Gate) AddLayer(id string, minZoom, zoom float64) int {
	visible := zoom >= minZoom
	g.mu.Lock()
	g.layers[id] = &layerState{minZoom: minZoom, visible: visible}
	g.mu.Unlock()

	n := g.apply(id, visible)
	slog.Debug("ZoomGate: layer synced", "layer", id, "min_zoom", minZoom, "zoom", zoom, "visible", visible, "toggled", n)
	return n
}

// RemoveLayer stops tracking a layer.
func (g *Gate) RemoveLayer(id string) {
	g.mu.Lock()
	delete(g.layers, id)
	g.mu.Unlock()
}

// Observe applies a zoom level and returns the toggled graphic count per
// layer whose visibility changed.
func (g *Gate) Observe(zoom float64) map[string]int {
	g.mu.Lock()
	var changed []string
	targets := make(map[string]bool)
	for id, st := range g.layers {
		visible := zoom >= st.minZoom
		if visible == st.visible {
			continue
		}
		st.visible = visible
		changed = append(changed, id)
		targets[id] = visible
	}
	g.mu.Unlock()

	sort.Strings(changed)
	out := make(map[string]int, len(changed))
	for _, id := range changed {
		n := g.apply(id, targets[id])
		out[id] = n
		g.metrics.ObserveZoomToggles(id, n)
		slog.Info("ZoomGate: layer toggled", "layer", id, "visible", targets[id], "zoom", zoom, "count", n)
	}
	return out
}

// Visible reports the gate state of a layer.
func (g *Gate) Visible(id string) (visible, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.layers[id]
	if !ok {
		return false, false
	}
	return st.visible, true
}

// Attach re-evaluates the gate on every zoom event of h.
func (g *Gate) Attach(h host.MapHost) func() {
	return h.Watch(host.EventZoom, func() { g.Observe(h.CurrentZoom()) })
}

func (g *Gate) apply(id string, visible bool) int {
	refs, forcedOff := g.source.LayerGraphics(id)
	n := 0
	for i, ref := range refs {
		if forcedOff[i] {
			continue
		}
		g.writer.SetGraphicVisibility(ref, visible)
		n++
	}
	return n
}
