// Package overrides keeps user-authored label edits that automatic layout must not disturb.
package overrides

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"marketlabels/pkg/store"
)

// formatVersion is written into every saved blob.
const formatVersion = 1

// Offset is a label position relative to its anchor's screen point.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Snapshot is a label's state before its first edit.
type Snapshot struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize"`
	Offset   Offset  `json:"offset"`
}

// Override is a persistent per-anchor exception to automatic placement.
type Override struct {
	Text       *string   `json:"text,omitempty"`
	FontSize   *float64  `json:"fontSize,omitempty"`
	Offset     *Offset   `json:"offset,omitempty"`
	UserEdited bool      `json:"userEdited"`
	Permanent  bool      `json:"permanent"`
	Original   *Snapshot `json:"original,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Patch holds the fields of one edit. Nil fields are left unchanged.
type Patch struct {
	Text     *string
	FontSize *float64
	Offset   *Offset
}

// Result reports the outcome of a persistence or reset operation.
// Failures are carried here instead of as errors so a render in progress is never aborted.
type Result struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

type envelope struct {
	Version   int                        `json:"version"`
	Overrides map[string]json.RawMessage `json:"overrides"`
}

// Store holds the override set in memory and persists it as one blob.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Override

	blobs store.BlobStore
	key   string
	now   func() time.Time
}

// NewStore creates an empty store persisting under key in blobs.
func NewStore(blobs store.BlobStore, key string) *Store {
	if key == "" {
		key = "label_overrides"
	}
	return &Store{
		entries: make(map[string]Override),
		blobs:   blobs,
		key:     key,
		now:     time.Now,
	}
}

// Record upserts the override for id. The first edit captures before as the
// label's original state. Every recorded override is user-edited and permanent.
func (s *Store) Record(id string, p Patch, before Snapshot) Override {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := s.entries[id]
	if o.Original == nil {
		snap := before
		o.Original = &snap
	}
	if p.Text != nil {
		o.Text = ptr(*p.Text)
	}
	if p.FontSize != nil {
		o.FontSize = ptr(*p.FontSize)
	}
	if p.Offset != nil {
		o.Offset = ptr(*p.Offset)
	}
	o.UserEdited = true
	o.Permanent = true
	o.UpdatedAt = s.now()

	s.entries[id] = o
	return clone(o)
}

// Get returns a copy of the override for id.
func (s *Store) Get(id string) (Override, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.entries[id]
	if !ok {
		return Override{}, false
	}
	return clone(o), true
}

// Clear removes the override for id, reporting whether one existed.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// ClearAll removes every override and returns how many were removed.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = make(map[string]Override)
	return n
}

// All returns a copy of the full override set.
func (s *Store) All() map[string]Override {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Override, len(s.entries))
	for id, o := range s.entries {
		out[id] = clone(o)
	}
	return out
}

// Len returns the number of overrides.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ResetPosition restores the pre-edit position of id while keeping its override record.
func (s *Store) ResetPosition(id string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.entries[id]
	if !ok {
		return Result{Success: false, Message: fmt.Sprintf("no override for label %s", id)}
	}
	if o.Original == nil {
		return Result{Success: false, Message: fmt.Sprintf("no original position recorded for label %s", id)}
	}
	o.Offset = ptr(o.Original.Offset)
	o.UpdatedAt = s.now()
	s.entries[id] = o
	return Result{Success: true, Count: 1}
}

// Save writes the full override set to the blob store.
func (s *Store) Save(ctx context.Context) Result {
	s.mu.RLock()
	env := struct {
		Version   int                 `json:"version"`
		Overrides map[string]Override `json:"overrides"`
	}{Version: formatVersion, Overrides: make(map[string]Override, len(s.entries))}
	for id, o := range s.entries {
		env.Overrides[id] = o
	}
	s.mu.RUnlock()

	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("Overrides: failed to encode", "error", err)
		return Result{Success: false, Message: fmt.Sprintf("failed to encode overrides: %v", err)}
	}
	if err := s.blobs.SetBlob(ctx, s.key, string(data)); err != nil {
		slog.Error("Overrides: failed to save", "key", s.key, "error", err)
		return Result{Success: false, Message: fmt.Sprintf("failed to save overrides: %v", err)}
	}

	slog.Info("Overrides: saved", "key", s.key, "count", len(env.Overrides))
	return Result{Success: true, Count: len(env.Overrides)}
}

// Load replaces the in-memory set with the persisted one. Malformed entries
// are skipped individually. Entries for anchors not currently on the map are kept.
func (s *Store) Load(ctx context.Context) Result {
	raw, ok, err := s.blobs.GetBlob(ctx, s.key)
	if err != nil {
		slog.Error("Overrides: failed to load", "key", s.key, "error", err)
		return Result{Success: false, Message: fmt.Sprintf("failed to load overrides: %v", err)}
	}
	if !ok {
		return Result{Success: true, Count: 0, Message: "no saved overrides"}
	}

	entries, err := decodeEntries(raw)
	if err != nil {
		slog.Error("Overrides: malformed blob", "key", s.key, "error", err)
		return Result{Success: false, Message: fmt.Sprintf("malformed override data: %v", err)}
	}

	loaded := make(map[string]Override, len(entries))
	skipped := 0
	for id, msg := range entries {
		var o Override
		if err := json.Unmarshal(msg, &o); err != nil {
			slog.Warn("Overrides: skipping malformed entry", "id", id, "error", err)
			skipped++
			continue
		}
		if err := validate(id, &o); err != nil {
			slog.Warn("Overrides: skipping invalid entry", "id", id, "error", err)
			skipped++
			continue
		}
		o.UserEdited = true
		o.Permanent = true
		loaded[id] = o
	}

	s.mu.Lock()
	s.entries = loaded
	s.mu.Unlock()

	slog.Info("Overrides: loaded", "key", s.key, "count", len(loaded), "skipped", skipped)
	res := Result{Success: true, Count: len(loaded)}
	if skipped > 0 {
		res.Message = fmt.Sprintf("skipped %d malformed entries", skipped)
	}
	return res
}

// decodeEntries accepts the versioned envelope or a bare id-to-override map.
func decodeEntries(raw string) (map[string]json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err == nil && env.Overrides != nil {
		return env.Overrides, nil
	}
	var bare map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &bare); err != nil {
		return nil, err
	}
	delete(bare, "version")
	return bare, nil
}

func validate(id string, o *Override) error {
	if id == "" {
		return fmt.Errorf("empty id")
	}
	if o.Text == nil && o.FontSize == nil && o.Offset == nil {
		return fmt.Errorf("override carries no text, font size or offset")
	}
	if o.FontSize != nil && (*o.FontSize <= 0 || math.IsNaN(*o.FontSize) || math.IsInf(*o.FontSize, 0)) {
		return fmt.Errorf("invalid font size %v", *o.FontSize)
	}
	return nil
}

func clone(o Override) Override {
	if o.Text != nil {
		o.Text = ptr(*o.Text)
	}
	if o.FontSize != nil {
		o.FontSize = ptr(*o.FontSize)
	}
	if o.Offset != nil {
		o.Offset = ptr(*o.Offset)
	}
	if o.Original != nil {
		o.Original = ptr(*o.Original)
	}
	return o
}

func ptr[T any](v T) *T { return &v }
