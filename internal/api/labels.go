package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"marketlabels/pkg/map/editor"
	"marketlabels/pkg/map/labels"
	"marketlabels/pkg/map/overrides"
	"marketlabels/pkg/map/scheduler"
)

// Trigger requests a layout pass.
type Trigger interface {
	Trigger(t scheduler.Trigger)
}

// LabelsHandler exposes the last layout pass and the label editor.
type LabelsHandler struct {
	manager *labels.Manager
	panel   *editor.Panel
	sched   Trigger
}

// NewLabelsHandler creates a new LabelsHandler.
func NewLabelsHandler(m *labels.Manager, p *editor.Panel, sched Trigger) *LabelsHandler {
	return &LabelsHandler{manager: m, panel: p, sched: sched}
}

type editingRequest struct {
	Enabled bool `json:"enabled"`
}

type selectRequest struct {
	ID string `json:"id"`
}

type textRequest struct {
	Text string `json:"text"`
}

type fontSizeRequest struct {
	Size float64 `json:"size"`
}

type moveRequest struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Final bool    `json:"final"`
}

type refreshRequest struct {
	IDs []string `json:"ids"`
}

type layerVisibleRequest struct {
	Visible bool `json:"visible"`
}

// EditorState is the panel state returned by the editing endpoints.
type EditorState struct {
	Editing  bool   `json:"editing"`
	Selected string `json:"selected"`
	Moving   string `json:"moving"`
}

// HandleGet returns the last pass result.
// GET /api/labels
func (h *LabelsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	res := h.manager.Last()
	if res == nil {
		res = &labels.Result{}
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleEditing toggles editing mode.
// POST /api/labels/editing
func (h *LabelsHandler) HandleEditing(w http.ResponseWriter, r *http.Request) {
	var req editingRequest
	if !decode(w, r, &req) {
		return
	}
	h.panel.ToggleEditingMode(req.Enabled)
	writeJSON(w, http.StatusOK, h.state())
}

// HandleSelect changes the selected label.
// POST /api/labels/select
func (h *LabelsHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.panel.Select(req.ID) {
		http.Error(w, "Editing mode is off", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, h.state())
}

// HandleText overrides a label's text.
// POST /api/labels/{id}/text
func (h *LabelsHandler) HandleText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.panel.UpdateLabelText(r.PathValue("id"), req.Text))
}

// HandleFontSize overrides a label's font size.
// POST /api/labels/{id}/font-size
func (h *LabelsHandler) HandleFontSize(w http.ResponseWriter, r *http.Request) {
	var req fontSizeRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.panel.UpdateLabelFontSize(r.PathValue("id"), req.Size))
}

// HandleMove moves a label. The first move of a drag freezes the label's
// region and a final move releases it.
// POST /api/labels/{id}/move
func (h *LabelsHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if h.panel.Moving() != id {
		if res := h.panel.StartMovingLabel(id); !res.Success {
			writeResult(w, res)
			return
		}
	}
	res := h.panel.MoveLabel(id, overrides.Offset{X: req.X, Y: req.Y})
	if req.Final {
		h.panel.StopMovingLabel()
	}
	writeResult(w, res)
}

// HandleReset restores a label's pre-edit position.
// POST /api/labels/{id}/reset
func (h *LabelsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.panel.ResetLabelPosition(r.PathValue("id")))
}

// HandleResetAll drops every override.
// POST /api/labels/reset-all
func (h *LabelsHandler) HandleResetAll(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.panel.ResetAllLabels())
}

// HandleSave persists the overrides.
// POST /api/labels/save
func (h *LabelsHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.panel.SavePositions(r.Context()))
}

// HandleLoad restores the persisted overrides.
// POST /api/labels/load
func (h *LabelsHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.panel.LoadPositions(r.Context()))
}

// HandleRefresh re-applies overrides without a full pass. An empty body refreshes all.
// POST /api/labels/refresh
func (h *LabelsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.ContentLength != 0 {
		if !decode(w, r, &req) {
			return
		}
	}
	writeResult(w, h.panel.RefreshLabels(req.IDs...))
}

// HandleLayers lists the registered layers.
// GET /api/layers
func (h *LabelsHandler) HandleLayers(w http.ResponseWriter, r *http.Request) {
	type layerDTO struct {
		ID          string  `json:"id"`
		MinZoom     float64 `json:"minZoom"`
		Visible     bool    `json:"visible"`
		SelfManaged bool    `json:"selfManaged"`
		Anchors     int     `json:"anchors"`
	}
	layers := h.manager.Layers()
	out := make([]layerDTO, 0, len(layers))
	for _, l := range layers {
		out = append(out, layerDTO{ID: l.ID, MinZoom: l.MinZoom, Visible: l.Visible, SelfManaged: l.SelfManaged, Anchors: len(l.Anchors)})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleLayerVisible shows or hides a layer's labels.
// POST /api/layers/{id}/visible
func (h *LabelsHandler) HandleLayerVisible(w http.ResponseWriter, r *http.Request) {
	var req layerVisibleRequest
	if !decode(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if !h.manager.SetLayerVisible(id, req.Visible) {
		http.Error(w, "Layer not found", http.StatusNotFound)
		return
	}
	h.sched.Trigger(scheduler.TriggerLayerSet)
	w.WriteHeader(http.StatusNoContent)
}

func (h *LabelsHandler) state() EditorState {
	return EditorState{Editing: h.panel.EditingMode(), Selected: h.panel.Selected(), Moving: h.panel.Moving()}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeResult maps an unsuccessful edit to 422 so clients can tell it from transport errors.
func writeResult(w http.ResponseWriter, res overrides.Result) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}
