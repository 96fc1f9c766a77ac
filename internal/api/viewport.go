package api

import (
	"net/http"

	"github.com/paulmach/orb"

	"marketlabels/pkg/geo"
	"marketlabels/pkg/map/host"
)

// ViewportHandler lets a remote renderer drive the in-process map view.
type ViewportHandler struct {
	view *host.View
}

// NewViewportHandler creates a new ViewportHandler.
func NewViewportHandler(v *host.View) *ViewportHandler {
	return &ViewportHandler{view: v}
}

// ViewportRequest is a renderer's current viewport.
type ViewportRequest struct {
	Zoom   float64    `json:"zoom"`
	Extent [4]float64 `json:"extent"` // minX, minY, maxX, maxY
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
}

// HandleSetViewport updates the view. Zoom and extent watchers schedule the next pass.
// POST /api/map/viewport
func (h *ViewportHandler) HandleSetViewport(w http.ResponseWriter, r *http.Request) {
	var req ViewportRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Width <= 0 || req.Height <= 0 || req.Extent[2] <= req.Extent[0] || req.Extent[3] <= req.Extent[1] {
		http.Error(w, "Invalid viewport", http.StatusBadRequest)
		return
	}
	extent := orb.Bound{Min: orb.Point{req.Extent[0], req.Extent[1]}, Max: orb.Point{req.Extent[2], req.Extent[3]}}
	h.view.SetViewport(req.Zoom, extent, geo.Size{Width: req.Width, Height: req.Height})
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetViewport returns the current viewport.
// GET /api/map/viewport
func (h *ViewportHandler) HandleGetViewport(w http.ResponseWriter, r *http.Request) {
	e := h.view.CurrentExtent()
	s := h.view.ViewportSize()
	writeJSON(w, http.StatusOK, ViewportRequest{
		Zoom:   h.view.CurrentZoom(),
		Extent: [4]float64{e.Min[0], e.Min[1], e.Max[0], e.Max[1]},
		Width:  s.Width,
		Height: s.Height,
	})
}

// HandleGraphics returns the state of every graphic in the view.
// GET /api/map/graphics
func (h *ViewportHandler) HandleGraphics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.view.Graphics())
}
