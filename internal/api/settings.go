package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"marketlabels/pkg/config"
	"marketlabels/pkg/map/placement"
	"marketlabels/pkg/map/scheduler"
	"marketlabels/pkg/store"
)

// SettingsHandler reads and updates the runtime layout settings kept in the state store.
type SettingsHandler struct {
	store   store.StateStore
	cfgProv config.Provider
	sched   Trigger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(st store.StateStore, cfg config.Provider, sched Trigger) *SettingsHandler {
	return &SettingsHandler{
		store:   st,
		cfgProv: cfg,
		sched:   sched,
	}
}

// SettingsResponse represents the settings API response.
type SettingsResponse struct {
	Strategy         string  `json:"strategy"`
	CRS              string  `json:"crs"`
	MaxVisibleLabels int     `json:"max_visible_labels"`
	MinDistance      float64 `json:"min_distance"`
	MaxDistance      float64 `json:"max_distance"`
	StrictOverlap    bool    `json:"strict_overlap"`
	MinZoom          float64 `json:"min_zoom"`
}

// SettingsRequest represents a partial settings update. Missing fields are left unchanged.
type SettingsRequest struct {
	Strategy         string   `json:"strategy,omitempty"`
	MaxVisibleLabels *int     `json:"max_visible_labels,omitempty"`
	MinDistance      *float64 `json:"min_distance,omitempty"`
	MaxDistance      *float64 `json:"max_distance,omitempty"`
	StrictOverlap    *bool    `json:"strict_overlap,omitempty"`
	MinZoom          *float64 `json:"min_zoom,omitempty"`
}

// HandleSettings is a unified handler for all settings methods, facilitating CORS/OPTIONS.
func (h *SettingsHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		h.HandleGetSettings(w, r)
	case http.MethodPut, http.MethodPost:
		h.HandleSetSettings(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGetSettings returns the effective settings.
func (h *SettingsHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settingsResponse(r.Context()))
}

func (h *SettingsHandler) settingsResponse(ctx context.Context) SettingsResponse {
	return SettingsResponse{
		Strategy:         h.cfgProv.Strategy(ctx),
		CRS:              h.cfgProv.AppConfig().Labels.CRS,
		MaxVisibleLabels: h.cfgProv.MaxVisibleLabels(ctx),
		MinDistance:      h.cfgProv.MinDistance(ctx),
		MaxDistance:      h.cfgProv.MaxDistance(ctx),
		StrictOverlap:    h.cfgProv.StrictOverlap(ctx),
		MinZoom:          h.cfgProv.MinZoom(ctx),
	}
}

// HandleSetSettings validates and stores an update, then schedules a pass.
func (h *SettingsHandler) HandleSetSettings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.Body.Close() }()

	var req SettingsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validateSettings(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := h.apply(ctx, &req); err != nil {
		slog.Error("Settings: failed to save", "error", err)
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}
	h.sched.Trigger(scheduler.TriggerLayerSet)

	h.HandleGetSettings(w, r)
}

func validateSettings(req *SettingsRequest) error {
	if req.Strategy != "" {
		if _, ok := placement.ByName(req.Strategy); !ok {
			return fmt.Errorf("unknown strategy '%s'", req.Strategy)
		}
	}
	if req.MaxVisibleLabels != nil && *req.MaxVisibleLabels < 0 {
		return fmt.Errorf("max_visible_labels must not be negative")
	}
	if req.MinDistance != nil && *req.MinDistance < 0 {
		return fmt.Errorf("min_distance must not be negative")
	}
	if req.MaxDistance != nil && *req.MaxDistance <= 0 {
		return fmt.Errorf("max_distance must be positive")
	}
	return nil
}

func (h *SettingsHandler) apply(ctx context.Context, req *SettingsRequest) error {
	updates := make(map[string]string)
	if req.Strategy != "" {
		updates[config.KeyStrategy] = req.Strategy
	}
	if req.MaxVisibleLabels != nil {
		updates[config.KeyMaxVisibleLabels] = strconv.Itoa(*req.MaxVisibleLabels)
	}
	if req.MinDistance != nil {
		updates[config.KeyMinDistance] = formatFloat(*req.MinDistance)
	}
	if req.MaxDistance != nil {
		updates[config.KeyMaxDistance] = formatFloat(*req.MaxDistance)
	}
	if req.StrictOverlap != nil {
		updates[config.KeyStrictOverlap] = strconv.FormatBool(*req.StrictOverlap)
	}
	if req.MinZoom != nil {
		updates[config.KeyMinZoom] = formatFloat(*req.MinZoom)
	}
	for key, val := range updates {
		if err := h.store.SetState(ctx, key, val); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
		slog.Debug("Settings: updated", key, val)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
