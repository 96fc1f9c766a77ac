package host

import (
	"sync"
)

// Suppressions is the set of graphics that must stay hidden.
type Suppressions struct {
	mu   sync.RWMutex
	refs map[GraphicRef]struct{}
}

// NewSuppressions creates an empty set.
func NewSuppressions() *Suppressions {
	return &Suppressions{refs: make(map[GraphicRef]struct{})}
}

// Replace swaps the full set.
func (s *Suppressions) Replace(refs []GraphicRef) {
	next := make(map[GraphicRef]struct{}, len(refs))
	for _, r := range refs {
		next[r] = struct{}{}
	}
	s.mu.Lock()
	s.refs = next
	s.mu.Unlock()
}

// Add suppresses refs in addition to the current set.
func (s *Suppressions) Add(refs ...GraphicRef) {
	s.mu.Lock()
	for _, r := range refs {
		s.refs[r] = struct{}{}
	}
	s.mu.Unlock()
}

// Contains reports whether ref is suppressed.
func (s *Suppressions) Contains(ref GraphicRef) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.refs[ref]
	return ok
}

// Refs returns the suppressed refs.
func (s *Suppressions) Refs() []GraphicRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]GraphicRef, 0, len(s.refs))
	for r := range s.refs {
		out = append(out, r)
	}
	return out
}

// Filter is a visibility filter that forces suppressed graphics off.
func (s *Suppressions) Filter(ref GraphicRef, visible bool) bool {
	return visible && !s.Contains(ref)
}

// GuardedWriter wraps a MapHost so that showing a suppressed graphic is
// redirected to hiding it.
type GuardedWriter struct {
	MapHost
	suppressed *Suppressions
}

// Guard wraps h with the suppression set s.
func Guard(h MapHost, s *Suppressions) *GuardedWriter {
	return &GuardedWriter{MapHost: h, suppressed: s}
}

func (g *GuardedWriter) SetGraphicVisibility(ref GraphicRef, visible bool) {
	g.MapHost.SetGraphicVisibility(ref, g.suppressed.Filter(ref, visible))
}

// Intercept installs the suppression filter on h when it supports
// interception and reports whether it did.
func Intercept(h MapHost, s *Suppressions) bool {
	ic, ok := h.(VisibilityInterceptor)
	if !ok {
		return false
	}
	ic.SetVisibilityFilter(s.Filter)
	return true
}
