package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"marketlabels/pkg/map/host"
	"marketlabels/pkg/metrics"
)

// Trigger is the reason a pass was requested.
type Trigger int

const (
	TriggerExtent Trigger = iota
	TriggerZoom
	TriggerLayerSet
	TriggerEdit
	TriggerPending
)

func (t Trigger) String() string {
	switch t {
	case TriggerExtent:
		return "extent"
	case TriggerZoom:
		return "zoom"
	case TriggerLayerSet:
		return "layerset"
	case TriggerEdit:
		return "edit"
	case TriggerPending:
		return "pending"
	}
	return "unknown"
}

// State is the scheduler's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateScheduled
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateRunning:
		return "running"
	}
	return "idle"
}

// Runner executes layout passes.
type Runner interface {
	RunPass(ctx context.Context, editingRegions []string)
	HideAll(ctx context.Context)
}

// Options tunes the scheduler. Zero values fall back to the defaults.
type Options struct {
	BaseDelay   time.Duration
	RapidWindow time.Duration
	// MinZoom returns the zoom below which all labels are hidden.
	MinZoom func(ctx context.Context) float64
	Clock   Clock
	Metrics *metrics.Collector
}

const (
	DefaultBaseDelay   = 250 * time.Millisecond
	DefaultRapidWindow = 500 * time.Millisecond
)

// Scheduler debounces host events into layout passes. At most one pass
// runs at a time; triggers arriving during a pass are coalesced into a
// single follow-up pass.
type Scheduler struct {
	runner  Runner
	zoom    func() float64
	minZoom func(ctx context.Context) float64
	clock   Clock
	metrics *metrics.Collector
	base    time.Duration
	rapid   time.Duration

	updateInProgress int32
	pending          int32

	mu      sync.Mutex
	ctx     context.Context
	state   State
	timer   Timer
	lastRun time.Time
	halted  bool
	editing map[string]string // anchor id -> cluster region
	runs    int
}

// New creates a scheduler driving runner. zoom reports the host's current zoom.
func New(runner Runner, zoom func() float64, opts Options) *Scheduler {
	s := &Scheduler{
		runner:  runner,
		zoom:    zoom,
		minZoom: opts.MinZoom,
		clock:   opts.Clock,
		metrics: opts.Metrics,
		base:    opts.BaseDelay,
		rapid:   opts.RapidWindow,
		ctx:     context.Background(),
		editing: make(map[string]string),
	}
	if s.clock == nil {
		s.clock = RealClock
	}
	if s.base <= 0 {
		s.base = DefaultBaseDelay
	}
	if s.rapid <= 0 {
		s.rapid = DefaultRapidWindow
	}
	return s
}

// Attach subscribes the scheduler to the host's zoom, extent and layer-set
// events. Passes run with ctx. The returned function detaches.
func (s *Scheduler) Attach(ctx context.Context, h host.MapHost) func() {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	unsubs := []func(){
		h.Watch(host.EventZoom, func() { s.Trigger(TriggerZoom) }),
		h.Watch(host.EventExtent, func() { s.Trigger(TriggerExtent) }),
		h.Watch(host.EventLayerSet, func() { s.Trigger(TriggerLayerSet) }),
	}
	slog.Info("Scheduler: attached to host", "base_delay", s.base, "rapid_window", s.rapid)
	return func() {
		for _, u := range unsubs {
			u()
		}
		s.Stop()
	}
}

// Trigger requests a pass. Below the minimum zoom every label is hidden
// immediately instead.
func (s *Scheduler) Trigger(t Trigger) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if s.belowMinZoom(ctx) {
		s.halt(ctx, t)
		return
	}

	if atomic.LoadInt32(&s.updateInProgress) == 1 {
		atomic.StoreInt32(&s.pending, 1)
		s.metrics.ObserveCoalesced()
		slog.Debug("Scheduler: trigger coalesced", "trigger", t)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.halted = false
	s.scheduleLocked(t)
}

// scheduleLocked (re)starts the debounce timer. Callers hold s.mu.
func (s *Scheduler) scheduleLocked(t Trigger) {
	if s.timer != nil {
		s.timer.Stop()
	}
	delay := s.base
	now := s.clock.Now()
	if !s.lastRun.IsZero() && now.Add(s.base).Sub(s.lastRun) < s.rapid {
		delay = 2 * s.base
	}
	s.timer = s.clock.AfterFunc(delay, s.fire)
	if s.state != StateRunning {
		s.state = StateScheduled
	}
	slog.Debug("Scheduler: pass scheduled", "trigger", t, "delay", delay)
}

func (s *Scheduler) halt(ctx context.Context, t Trigger) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if atomic.LoadInt32(&s.updateInProgress) == 0 {
		s.state = StateIdle
	}
	already := s.halted
	s.halted = true
	s.mu.Unlock()

	// A new layer may bring visible graphics even while halted.
	if already && t != TriggerLayerSet {
		return
	}
	slog.Info("Scheduler: zoom below minimum, hiding labels", "zoom", s.zoom())
	s.runner.HideAll(ctx)
}

func (s *Scheduler) belowMinZoom(ctx context.Context) bool {
	if s.minZoom == nil || s.zoom == nil {
		return false
	}
	return s.zoom() < s.minZoom(ctx)
}

func (s *Scheduler) fire() {
	if !atomic.CompareAndSwapInt32(&s.updateInProgress, 0, 1) {
		atomic.StoreInt32(&s.pending, 1)
		s.metrics.ObserveCoalesced()
		return
	}

	s.mu.Lock()
	s.timer = nil
	s.state = StateRunning
	ctx := s.ctx
	regions := s.regionsLocked()
	s.mu.Unlock()

	if s.belowMinZoom(ctx) {
		atomic.StoreInt32(&s.updateInProgress, 0)
		s.halt(ctx, TriggerZoom)
		return
	}

	s.runner.RunPass(ctx, regions)

	s.mu.Lock()
	s.lastRun = s.clock.Now()
	s.runs++
	s.state = StateIdle
	atomic.StoreInt32(&s.updateInProgress, 0)
	if atomic.SwapInt32(&s.pending, 0) == 1 {
		s.scheduleLocked(TriggerPending)
	}
	s.mu.Unlock()
}

func (s *Scheduler) regionsLocked() []string {
	if len(s.editing) == 0 {
		return nil
	}
	set := make(map[string]bool, len(s.editing))
	for _, r := range s.editing {
		set[r] = true
	}
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// BeginEditing freezes the cluster region of an anchor being edited.
func (s *Scheduler) BeginEditing(anchorID, region string) {
	s.mu.Lock()
	s.editing[anchorID] = region
	s.mu.Unlock()
	slog.Debug("Scheduler: editing started", "anchor", anchorID, "region", region)
}

// EndEditing releases the anchor's region and schedules a pass.
func (s *Scheduler) EndEditing(anchorID string) {
	s.mu.Lock()
	_, ok := s.editing[anchorID]
	delete(s.editing, anchorID)
	s.mu.Unlock()
	if ok {
		slog.Debug("Scheduler: editing finished", "anchor", anchorID)
		s.Trigger(TriggerEdit)
	}
}

// EditingRegions returns the regions currently frozen.
func (s *Scheduler) EditingRegions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regionsLocked()
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Runs returns how many passes have completed.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Stop cancels any pending pass.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.state == StateScheduled {
		s.state = StateIdle
	}
}
