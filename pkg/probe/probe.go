package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single check when Run is given no timeout.
const DefaultTimeout = 5 * time.Second

// CheckFunc reports whether a dependency is usable. A nil error passes.
type CheckFunc func(ctx context.Context) error

// Probe is one startup check.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool // a failure aborts startup
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Run executes the probes in order, each under its own timeout.
func Run(ctx context.Context, probes []Probe, timeout time.Duration) []Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	results := make([]Result, len(probes))
	for i, p := range probes {
		start := time.Now()
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err := p.Check(pctx)
		cancel()

		results[i] = Result{Probe: p, Error: err, Duration: time.Since(start)}
	}
	return results
}

// AnalyzeResults logs a summary line per probe and joins the errors of
// failed critical probes.
func AnalyzeResults(results []Result) error {
	var critical []error

	for _, r := range results {
		took := r.Duration.Round(time.Millisecond)
		if r.Error == nil {
			slog.Info("Probe: pass", "name", r.Probe.Name, "took", took)
			continue
		}
		if r.Probe.Critical {
			slog.Error("Probe: fail", "name", r.Probe.Name, "took", took, "error", r.Error)
			critical = append(critical, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		} else {
			slog.Warn("Probe: fail", "name", r.Probe.Name, "took", took, "error", r.Error)
		}
	}
	return errors.Join(critical...)
}
