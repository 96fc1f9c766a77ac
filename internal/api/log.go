package api

import (
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"marketlabels/pkg/logging"
)

// maxParamLen drops long attribute values (cluster ids, paths) from the status line.
const maxParamLen = 20

var logAttr = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

// handleLatestLog returns the last INFO+ server log line, condensed.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"log": formatLogLine(logging.GlobalLogCapture.GetLastLine()),
	})
}

// EditLogResponse carries the latest edit line and the recent history.
type EditLogResponse struct {
	Edit   string   `json:"edit"`
	Recent []string `json:"recent"`
}

// handleLatestEdit returns recent label edits, newest first. ?limit caps the history.
func handleLatestEdit(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, EditLogResponse{
		Edit:   logging.GlobalEditCapture.GetLastLine(),
		Recent: logging.GlobalEditCapture.Recent(limit),
	})
}

// formatLogLine condenses a slog text line to "HH:MM:SS msg (k=v, ...)".
// Level is dropped and attributes are sorted. Lines without msg pass through.
func formatLogLine(raw string) string {
	var clock, msg string
	var params []string

	for _, m := range logAttr.FindAllStringSubmatch(raw, -1) {
		key, val := m[1], m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				clock = t.Format("15:04:05")
			}
		case "level":
		case "msg":
			msg = val
		default:
			if len(val) <= maxParamLen {
				params = append(params, key+"="+val)
			}
		}
	}
	if msg == "" {
		return raw
	}

	out := msg
	if clock != "" {
		out = clock + " " + msg
	}
	if len(params) == 0 {
		return out
	}
	sort.Strings(params)
	return out + " (" + strings.Join(params, ", ") + ")"
}
