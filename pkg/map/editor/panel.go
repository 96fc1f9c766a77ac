// Package editor is the façade the label-editing panel talks to.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"marketlabels/pkg/logging"
	"marketlabels/pkg/map/labels"
	"marketlabels/pkg/map/overrides"
	"marketlabels/pkg/map/scheduler"
	"marketlabels/pkg/metrics"
)

// Scheduler is the part of the update scheduler the panel drives.
type Scheduler interface {
	BeginEditing(anchorID, region string)
	EndEditing(anchorID string)
	Trigger(t scheduler.Trigger)
}

// SelectionFunc is called with the previous and the new selection.
type SelectionFunc func(prev, next string)

// Panel applies user edits to labels and persists them as overrides.
type Panel struct {
	mgr     *labels.Manager
	ov      *overrides.Store
	sched   Scheduler
	metrics *metrics.Collector

	mu        sync.Mutex
	editing   bool
	selected  string
	moving    string
	listeners map[string]SelectionFunc
}

// NewPanel creates a panel over the manager's override store.
func NewPanel(mgr *labels.Manager, sched Scheduler, m *metrics.Collector) *Panel {
	return &Panel{
		mgr:       mgr,
		ov:        mgr.Overrides(),
		sched:     sched,
		metrics:   m,
		listeners: make(map[string]SelectionFunc),
	}
}

// ToggleEditingMode enables or disables editing. Leaving editing mode ends
// any move in progress and clears the selection.
func (p *Panel) ToggleEditingMode(on bool) {
	p.mu.Lock()
	p.editing = on
	p.mu.Unlock()
	slog.Info("Editor: editing mode", "enabled", on)
	if !on {
		p.StopMovingLabel()
		p.Select("")
	}
}

// EditingMode reports whether editing is enabled.
func (p *Panel) EditingMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.editing
}

// Selected returns the selected anchor id, or "".
func (p *Panel) Selected() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

// Select changes the selection and notifies listeners before returning.
// Selecting a label requires editing mode; clearing is always allowed.
func (p *Panel) Select(id string) bool {
	p.mu.Lock()
	if id != "" && !p.editing {
		p.mu.Unlock()
		return false
	}
	prev := p.selected
	if prev == id {
		p.mu.Unlock()
		return true
	}
	p.selected = id
	fns := make([]SelectionFunc, 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(prev, id)
	}
	return true
}

// OnSelectionChanged registers fn and returns a function removing it.
func (p *Panel) OnSelectionChanged(fn SelectionFunc) func() {
	id := uuid.NewString()
	p.mu.Lock()
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// UpdateLabelText overrides the text of a label.
func (p *Panel) UpdateLabelText(id, text string) overrides.Result {
	text = strings.TrimSpace(text)
	return p.edit("text", id, overrides.Patch{Text: &text}, text)
}

// UpdateLabelFontSize overrides the font size of a label.
func (p *Panel) UpdateLabelFontSize(id string, size float64) overrides.Result {
	if size <= 0 {
		p.metrics.ObserveOverride("font-size", false)
		return overrides.Result{Message: fmt.Sprintf("invalid font size %g", size)}
	}
	return p.edit("font-size", id, overrides.Patch{FontSize: &size}, fmt.Sprintf("%g", size))
}

// StartMovingLabel freezes the label's cluster region so automatic passes
// leave it alone while it is dragged.
func (p *Panel) StartMovingLabel(id string) overrides.Result {
	c, ok := p.mgr.Candidate(id)
	if !ok {
		return overrides.Result{Message: fmt.Sprintf("unknown label %s", id)}
	}
	p.StopMovingLabel()

	p.mu.Lock()
	p.moving = id
	p.mu.Unlock()
	p.sched.BeginEditing(id, c.Cluster)
	return overrides.Result{Success: true, Count: 1}
}

// MoveLabel sets the label's offset relative to its anchor.
func (p *Panel) MoveLabel(id string, off overrides.Offset) overrides.Result {
	return p.edit("move", id, overrides.Patch{Offset: &off}, fmt.Sprintf("%.1f,%.1f", off.X, off.Y))
}

// StopMovingLabel releases the region frozen by StartMovingLabel.
func (p *Panel) StopMovingLabel() {
	p.mu.Lock()
	id := p.moving
	p.moving = ""
	p.mu.Unlock()
	if id != "" {
		p.sched.EndEditing(id)
	}
}

// Moving returns the anchor id being moved, or "".
func (p *Panel) Moving() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.moving
}

// SavePositions persists every override.
func (p *Panel) SavePositions(ctx context.Context) overrides.Result {
	res := p.ov.Save(ctx)
	p.metrics.ObserveOverride("save", res.Success)
	logging.LogEdit(&logging.EditEvent{Action: "save", Detail: fmt.Sprintf("success=%t count=%d", res.Success, res.Count)})
	return res
}

// LoadPositions replaces the overrides with the saved set and re-lays out the map.
func (p *Panel) LoadPositions(ctx context.Context) overrides.Result {
	res := p.ov.Load(ctx)
	p.metrics.ObserveOverride("load", res.Success)
	logging.LogEdit(&logging.EditEvent{Action: "load", Detail: fmt.Sprintf("success=%t count=%d", res.Success, res.Count)})
	if res.Success {
		p.mgr.ApplyOverrides()
		p.sched.Trigger(scheduler.TriggerEdit)
	}
	return res
}

// ResetLabelPosition moves a label back to where it was before its first edit.
func (p *Panel) ResetLabelPosition(id string) overrides.Result {
	res := p.ov.ResetPosition(id)
	p.metrics.ObserveOverride("reset", res.Success)
	if !res.Success {
		slog.Warn("Editor: reset failed", "anchor", id, "reason", res.Message)
		return res
	}
	p.mgr.ApplyOverrides(id)
	logging.LogEdit(&logging.EditEvent{Action: "reset", AnchorID: id})
	return res
}

// ResetAllLabels drops every override and returns placement to the engine.
func (p *Panel) ResetAllLabels() overrides.Result {
	n := p.ov.ClearAll()
	p.metrics.ObserveOverride("reset-all", true)
	logging.LogEdit(&logging.EditEvent{Action: "reset-all", Detail: fmt.Sprintf("count=%d", n)})
	p.sched.Trigger(scheduler.TriggerEdit)
	return overrides.Result{Success: true, Count: n}
}

// RefreshLabels re-applies overrides to the given labels, or to all
// overridden labels when ids is empty, without a full pass.
func (p *Panel) RefreshLabels(ids ...string) overrides.Result {
	n := p.mgr.ApplyOverrides(ids...)
	return overrides.Result{Success: true, Count: n}
}

func (p *Panel) edit(action, id string, patch overrides.Patch, detail string) overrides.Result {
	c, ok := p.mgr.Candidate(id)
	if !ok {
		p.metrics.ObserveOverride(action, false)
		return overrides.Result{Message: fmt.Sprintf("unknown label %s", id)}
	}
	before := overrides.Snapshot{
		Text:     c.Text,
		FontSize: c.FontSize,
		Offset:   overrides.Offset{X: c.Offset.X, Y: c.Offset.Y},
	}
	// Text and size edits pin the label where it currently is.
	if patch.Offset == nil {
		if o, ok := p.ov.Get(id); !ok || o.Offset == nil {
			patch.Offset = &before.Offset
		}
	}
	p.ov.Record(id, patch, before)
	p.mgr.ApplyOverrides(id)

	p.metrics.ObserveOverride(action, true)
	logging.LogEdit(&logging.EditEvent{Action: action, AnchorID: id, Detail: detail})
	slog.Debug("Editor: label edited", "action", action, "anchor", id)
	return overrides.Result{Success: true, Count: 1}
}
