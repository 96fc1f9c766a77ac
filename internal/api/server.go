package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"marketlabels/pkg/version"
)

// Handlers groups everything the server routes to.
type Handlers struct {
	Labels   *LabelsHandler
	Viewport *ViewportHandler
	Settings *SettingsHandler
	Stream   *StreamHub
	Metrics  http.Handler
}

// NewServer creates and configures the HTTP server.
// shutdown is called when a client requests a graceful shutdown.
func NewServer(addr string, h Handlers, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health and version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Runtime settings
	mux.HandleFunc("/api/settings", h.Settings.HandleSettings)

	// 3. Logs
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/edits", handleLatestEdit)

	// 4. Map view
	mux.HandleFunc("GET /api/map/viewport", h.Viewport.HandleGetViewport)
	mux.HandleFunc("POST /api/map/viewport", h.Viewport.HandleSetViewport)
	mux.HandleFunc("GET /api/map/graphics", h.Viewport.HandleGraphics)

	// 5. Layers
	mux.HandleFunc("GET /api/layers", h.Labels.HandleLayers)
	mux.HandleFunc("POST /api/layers/{id}/visible", h.Labels.HandleLayerVisible)

	// 6. Labels and the editor
	mux.HandleFunc("GET /api/labels", h.Labels.HandleGet)
	mux.HandleFunc("POST /api/labels/editing", h.Labels.HandleEditing)
	mux.HandleFunc("POST /api/labels/select", h.Labels.HandleSelect)
	mux.HandleFunc("POST /api/labels/save", h.Labels.HandleSave)
	mux.HandleFunc("POST /api/labels/load", h.Labels.HandleLoad)
	mux.HandleFunc("POST /api/labels/refresh", h.Labels.HandleRefresh)
	mux.HandleFunc("POST /api/labels/reset-all", h.Labels.HandleResetAll)
	mux.HandleFunc("POST /api/labels/{id}/text", h.Labels.HandleText)
	mux.HandleFunc("POST /api/labels/{id}/font-size", h.Labels.HandleFontSize)
	mux.HandleFunc("POST /api/labels/{id}/move", h.Labels.HandleMove)
	mux.HandleFunc("POST /api/labels/{id}/reset", h.Labels.HandleReset)

	// 7. Stream
	if h.Stream != nil {
		mux.HandleFunc("GET /api/labels/stream", h.Stream.HandleStream)
	}

	// 8. Metrics
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}

	// 9. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
