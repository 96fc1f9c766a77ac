package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"marketlabels/pkg/config"
)

func TestInit(t *testing.T) {
	tempDir := t.TempDir()
	serverLog := filepath.Join(tempDir, "server.log")
	requestLog := filepath.Join(tempDir, "requests.log")
	editLog := filepath.Join(tempDir, "edits.log")

	cfg := &config.LogConfig{
		Server:   config.LogSettings{Path: serverLog, Level: "DEBUG"},
		Requests: config.LogSettings{Path: requestLog, Level: "INFO"},
		Edits:    config.LogSettings{Path: editLog, Level: "INFO"},
	}

	prev := slog.Default()
	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() {
		cleanup()
		slog.SetDefault(prev)
		SetEditLogPath("")
	}()

	if _, err := os.Stat(serverLog); os.IsNotExist(err) {
		t.Error("Server log file not created")
	}
	if _, err := os.Stat(requestLog); os.IsNotExist(err) {
		t.Error("Request log file not created")
	}
	if RequestLogger == nil {
		t.Error("RequestLogger was not initialized")
	}

	slog.Info("Labels: pass complete", "visible", 3)
	if got := GlobalLogCapture.GetLastLine(); !strings.Contains(got, "Labels: pass complete") {
		t.Errorf("capture = %q, want pass message", got)
	}
}

func TestRotatePaths(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "server.log")
	if err := os.WriteFile(p, []byte("previous run"), 0o644); err != nil {
		t.Fatal(err)
	}

	rotatePaths(p, "")

	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("expected current log to be moved")
	}
	data, err := os.ReadFile(p + ".old")
	if err != nil {
		t.Fatalf("expected .old file: %v", err)
	}
	if string(data) != "previous run" {
		t.Errorf(".old content = %q", data)
	}
}

func TestLogEdit(t *testing.T) {
	p := filepath.Join(t.TempDir(), "edits.log")
	SetEditLogPath(p)
	defer SetEditLogPath("")

	LogEdit(&EditEvent{
		Timestamp: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		Action:    "text",
		AnchorID:  "oid:42",
		Detail:    "Springfield",
	})
	LogEdit(&EditEvent{Action: "reset-all"})

	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0] != "[2024-05-01 10:30:00] [text] oid:42 - Springfield" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(GlobalEditCapture.GetLastLine(), "[reset-all]") {
		t.Errorf("edit capture = %q", GlobalEditCapture.GetLastLine())
	}
}

func TestSetupHandler_Levels(t *testing.T) {
	dir := t.TempDir()
	h, f, err := setupHandler(filepath.Join(dir, "x.log"), "warn", false)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if h.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("INFO should be disabled at WARN")
	}
	if !h.Enabled(t.Context(), slog.LevelError) {
		t.Error("ERROR should be enabled at WARN")
	}
}
