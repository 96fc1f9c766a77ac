package watcher

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"
)

// Service monitors layer source files for modifications.
type Service struct {
	mu      sync.Mutex
	sources map[string]string // layer id -> path
	seen    map[string]time.Time
}

// NewService creates a monitor over the given layer sources. Current
// modification times are the baseline, so nothing is reported until a file changes.
func NewService(sources map[string]string) *Service {
	s := &Service{
		sources: make(map[string]string, len(sources)),
		seen:    make(map[string]time.Time, len(sources)),
	}
	for id, path := range sources {
		s.sources[id] = path
		if info, err := os.Stat(path); err == nil {
			s.seen[id] = info.ModTime()
		} else {
			slog.Warn("Watcher: layer source missing", "layer", id, "path", path)
		}
	}
	return s
}

// CheckChanged returns the ids of layers whose source was modified since the last check, sorted.
func (s *Service) CheckChanged() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []string
	for id, path := range s.sources {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		modTime := info.ModTime()
		if last, ok := s.seen[id]; ok && !modTime.After(last) {
			continue
		}
		s.seen[id] = modTime
		changed = append(changed, id)
		slog.Info("Watcher: layer source changed", "layer", id, "path", path)
	}
	sort.Strings(changed)
	return changed
}

// Start polls every interval and calls reload for each changed layer.
func (s *Service) Start(ctx context.Context, interval time.Duration, reload func(layerID string)) {
	ticker := time.NewTicker(interval)

	slog.Info("Watcher: layer source watch started", "layers", len(s.sources), "interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, id := range s.CheckChanged() {
					reload(id)
				}
			}
		}
	}()
}
