package scheduler

import (
	"context"
	"log/slog"
	"time"

	"marketlabels/pkg/map/host"
)

// Sweeper periodically re-hides suppressed duplicates on hosts that cannot
// filter visibility writes themselves. It only flips visibility flags.
type Sweeper struct {
	suppressed *host.Suppressions
	host       host.MapHost
	interval   time.Duration
}

// NewSweeper creates a sweeper writing to h.
func NewSweeper(s *host.Suppressions, h host.MapHost, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sweeper{suppressed: s, host: h, interval: interval}
}

// Start begins the sweep loop.
func (w *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)

	slog.Info("Sweeper: duplicate sweep loop started", "interval", w.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Sweep()
			}
		}
	}()
}

// Sweep hides every suppressed graphic that is visible, or every suppressed
// graphic when the host cannot report visibility. It returns the number hidden.
func (w *Sweeper) Sweep() int {
	reader, canRead := w.host.(host.VisibilityReader)
	n := 0
	for _, ref := range w.suppressed.Refs() {
		if canRead {
			if visible, ok := reader.GraphicVisible(ref); ok && !visible {
				continue
			}
		}
		w.host.SetGraphicVisibility(ref, false)
		n++
	}
	if n > 0 {
		slog.Debug("Sweeper: re-hid duplicates", "count", n)
	}
	return n
}
