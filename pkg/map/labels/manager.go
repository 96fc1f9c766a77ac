package labels

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"marketlabels/pkg/map/host"
	"marketlabels/pkg/map/overrides"
	"marketlabels/pkg/metrics"
)

// Manager owns the long-lived label state: the layer registry, the override
// store and the last pass result. Each pass is computed from a snapshot and
// written back to the host through a suppression guard.
type Manager struct {
	mu     sync.Mutex
	host   host.MapHost
	writer host.MapHost

	suppressed  *host.Suppressions
	intercepted bool

	overrides *overrides.Store
	settings  func(ctx context.Context) Settings
	metrics   *metrics.Collector

	layers map[string]*LayerRecord
	order  []string

	pass   uint64
	last   *Result
	shown  map[host.GraphicRef]bool
	halted bool // set by HideAll until the next pass is written
	subs   map[string]func(*Result)
}

// NewManager creates a Manager writing to h. When h supports visibility
// interception, duplicate suppression is enforced at the host itself.
func NewManager(h host.MapHost, ov *overrides.Store, settings func(ctx context.Context) Settings, m *metrics.Collector) *Manager {
	s := host.NewSuppressions()
	return &Manager{
		host:        h,
		writer:      host.Guard(h, s),
		suppressed:  s,
		intercepted: host.Intercept(h, s),
		overrides:   ov,
		settings:    settings,
		metrics:     m,
		layers:      make(map[string]*LayerRecord),
		shown:       make(map[host.GraphicRef]bool),
		subs:        make(map[string]func(*Result)),
	}
}

// Writer is the guarded host all engine writes go through.
func (m *Manager) Writer() host.MapHost { return m.writer }

// Suppressions returns the current duplicate suppression set.
func (m *Manager) Suppressions() *host.Suppressions { return m.suppressed }

// Intercepted reports whether the host filters visibility writes itself.
// When false a periodic sweep has to re-hide duplicates.
func (m *Manager) Intercepted() bool { return m.intercepted }

// Overrides returns the override store.
func (m *Manager) Overrides() *overrides.Store { return m.overrides }

// AddLayer registers or replaces a layer. A missing min zoom means always visible.
func (m *Manager) AddLayer(rec LayerRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layers[rec.ID]; !ok {
		m.order = append(m.order, rec.ID)
	}
	r := rec
	m.layers[rec.ID] = &r
	slog.Info("Labels: layer added", "layer", rec.ID, "anchors", len(rec.Anchors), "min_zoom", rec.MinZoom)
}

// RemoveLayer forgets a layer and hides the graphics it had shown.
func (m *Manager) RemoveLayer(id string) bool {
	m.mu.Lock()
	rec, ok := m.layers[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.layers, id)
	for i, lid := range m.order {
		if lid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	var refs []host.GraphicRef
	for i := range rec.Anchors {
		ref := rec.Anchors[i].GraphicRef(id, i)
		if m.shown[ref] {
			refs = append(refs, ref)
			delete(m.shown, ref)
		}
	}
	m.mu.Unlock()

	for _, ref := range refs {
		m.writer.SetGraphicVisibility(ref, false)
	}
	slog.Info("Labels: layer removed", "layer", id)
	return true
}

// SetLayerVisible toggles whether a layer takes part in passes.
func (m *Manager) SetLayerVisible(id string, visible bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.layers[id]
	if ok {
		rec.Visible = visible
	}
	return ok
}

// Layers returns copies of the registered layers in registration order.
func (m *Manager) Layers() []LayerRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LayerRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.layers[id])
	}
	return out
}

// LayerGraphics lists the graphics of a layer and whether each is forced off.
func (m *Manager) LayerGraphics(id string) (refs []host.GraphicRef, forcedOff []bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.layers[id]
	if !ok {
		return nil, nil
	}
	for i := range rec.Anchors {
		refs = append(refs, rec.Anchors[i].GraphicRef(id, i))
		forcedOff = append(forcedOff, rec.Anchors[i].ForcedOff())
	}
	return refs, forcedOff
}

// RunPass computes a pass for the current host state and writes it back.
// Candidates in editingRegions keep their current state.
func (m *Manager) RunPass(ctx context.Context, editingRegions []string) {
	settings := m.settings(ctx)

	m.mu.Lock()
	m.pass++
	pc := &PassContext{
		Pass:      m.pass,
		Layers:    make([]*LayerRecord, 0, len(m.order)),
		Projector: m.host,
		Viewport:  m.host.ViewportSize(),
		Extent:    m.host.CurrentExtent(),
		Zoom:      m.host.CurrentZoom(),
		Overrides: m.overrides,
		Settings:  settings,
		Editing:   make(map[string]bool, len(editingRegions)),
		Previous:  make(map[host.GraphicRef]Candidate),
	}
	for _, id := range m.order {
		cp := *m.layers[id]
		pc.Layers = append(pc.Layers, &cp)
	}
	for _, r := range editingRegions {
		pc.Editing[r] = true
	}
	if m.last != nil {
		for _, c := range m.last.Candidates {
			pc.Previous[c.Key] = c
		}
	}
	m.mu.Unlock()

	res := ComputePass(pc)
	m.write(res)

	m.metrics.ObservePass(res.Strategy, res.Duration, res.Visible, len(res.Suppressed))
	slog.Debug("Labels: pass complete",
		"pass", res.Pass,
		"strategy", res.Strategy,
		"candidates", len(res.Candidates),
		"visible", res.Visible,
		"suppressed", len(res.Suppressed),
		"duration", res.Duration,
	)
	m.publish(res)
}

// write applies a result to the host. Graphics shown by an earlier pass
// that are no longer candidates are hidden.
func (m *Manager) write(res *Result) {
	m.suppressed.Replace(res.Suppressed)

	m.mu.Lock()
	prevShown := make(map[host.GraphicRef]bool, len(m.shown))
	for ref := range m.shown {
		prevShown[ref] = true
	}
	m.mu.Unlock()

	shown := make(map[host.GraphicRef]bool)
	seen := make(map[host.GraphicRef]bool, len(res.Candidates))
	for i := range res.Candidates {
		c := &res.Candidates[i]
		seen[c.Key] = true
		if c.Reason == ReasonEditing {
			if prevShown[c.Key] {
				shown[c.Key] = true
			}
			continue
		}
		if c.Visible {
			if !c.SelfManaged {
				m.writer.SetGraphicSymbolOffset(c.Key, symbolFor(c))
			}
			m.writer.SetGraphicVisibility(c.Key, true)
			shown[c.Key] = true
			continue
		}
		m.writer.SetGraphicVisibility(c.Key, false)
	}
	for ref := range prevShown {
		if !seen[ref] {
			m.writer.SetGraphicVisibility(ref, false)
		}
	}

	m.mu.Lock()
	m.shown = shown
	m.last = res
	m.halted = false
	m.mu.Unlock()
}

func symbolFor(c *Candidate) host.SymbolOffset {
	return host.SymbolOffset{
		XOffset:  c.Offset.X,
		YOffset:  c.Offset.Y,
		Text:     c.Text,
		FontSize: c.FontSize,
	}
}

// HideAll hides every managed graphic immediately. Overrides are not
// re-applied until the next pass has been written.
func (m *Manager) HideAll(ctx context.Context) {
	m.mu.Lock()
	var refs []host.GraphicRef
	for _, id := range m.order {
		rec := m.layers[id]
		for i := range rec.Anchors {
			refs = append(refs, rec.Anchors[i].GraphicRef(id, i))
		}
	}
	m.shown = make(map[host.GraphicRef]bool)
	m.halted = true
	m.mu.Unlock()

	for _, ref := range refs {
		m.writer.SetGraphicVisibility(ref, false)
	}
	slog.Info("Labels: all labels hidden", "count", len(refs))
}

// ApplyOverrides re-applies stored overrides to the labels of the last pass
// without a full recomputation. With no ids every overridden label is refreshed.
// Only one graphic per anchor id is shown: the current winner, or the first
// eligible one. The others are hidden and suppressed. It returns how many
// labels were written, and 0 while labels are hidden by HideAll.
func (m *Manager) ApplyOverrides(ids ...string) int {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil || m.halted {
		return 0
	}
	padding := m.settings(context.Background()).Constraints.Padding

	// Results are shared with subscribers, so edit a copy.
	next := *m.last
	next.Candidates = append([]Candidate(nil), m.last.Candidates...)
	next.Suppressed = append([]host.GraphicRef(nil), m.last.Suppressed...)

	groups := make(map[string][]*Candidate)
	var order []string
	editing := make(map[string]bool)
	for i := range next.Candidates {
		c := &next.Candidates[i]
		id := c.ID.Value
		if len(want) > 0 && !want[id] {
			continue
		}
		if c.Reason == ReasonEditing {
			editing[id] = true
			continue
		}
		if c.DuplicateOf != "" {
			continue
		}
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], c)
	}

	var hidden []host.GraphicRef
	var winners []*Candidate
	for _, id := range order {
		if editing[id] {
			continue
		}
		o, ok := m.overrides.Get(id)
		if !ok {
			continue
		}
		g := groups[id]
		winner := g[0]
		for _, c := range g {
			if c.Visible {
				winner = c
				break
			}
		}
		for _, c := range g {
			if c == winner {
				continue
			}
			c.Visible = false
			c.DuplicateOf = winner.Key
			c.Reason = ReasonDuplicate
			hidden = append(hidden, c.Key)
		}

		applyOverride(winner, o, padding)
		winners = append(winners, winner)
	}
	if len(hidden) > 0 {
		next.Suppressed = append(next.Suppressed, hidden...)
		m.suppressed.Add(hidden...)
		for _, ref := range hidden {
			m.writer.SetGraphicVisibility(ref, false)
			delete(m.shown, ref)
		}
	}
	for _, c := range winners {
		if !c.SelfManaged {
			m.writer.SetGraphicSymbolOffset(c.Key, symbolFor(c))
		}
		m.writer.SetGraphicVisibility(c.Key, true)
		m.shown[c.Key] = true
	}

	next.Visible = 0
	for i := range next.Candidates {
		if next.Candidates[i].Visible {
			next.Visible++
		}
	}
	m.last = &next
	return len(winners)
}

// Last returns the most recent pass result, or nil before the first pass.
func (m *Manager) Last() *Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Candidate returns the last pass's candidate for an anchor id, preferring a visible one.
func (m *Manager) Candidate(anchorID string) (Candidate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return Candidate{}, false
	}
	var found *Candidate
	for i := range m.last.Candidates {
		c := &m.last.Candidates[i]
		if c.ID.Value != anchorID {
			continue
		}
		if c.Visible {
			return *c, true
		}
		if found == nil {
			found = c
		}
	}
	if found == nil {
		return Candidate{}, false
	}
	return *found, true
}

// AnchorIDs returns the distinct anchor ids of the last pass, sorted.
func (m *Manager) AnchorIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	set := make(map[string]bool)
	for _, c := range m.last.Candidates {
		set[c.ID.Value] = true
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Subscribe registers fn for every pass result and returns a function removing it.
func (m *Manager) Subscribe(fn func(*Result)) func() {
	id := uuid.NewString()
	m.mu.Lock()
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) publish(res *Result) {
	m.mu.Lock()
	subs := make([]func(*Result), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(res)
	}
}
