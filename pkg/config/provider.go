package config

import (
	"context"
	"strconv"

	"marketlabels/pkg/store"
)

// Provider defines the interface for accessing unified configuration.
type Provider interface {
	// Layout
	Strategy(ctx context.Context) string
	MaxVisibleLabels(ctx context.Context) int
	MinDistance(ctx context.Context) float64
	MaxDistance(ctx context.Context) float64
	StrictOverlap(ctx context.Context) bool

	// Scheduling
	MinZoom(ctx context.Context) float64

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

// --- Implementations ---

func (p *UnifiedProvider) Strategy(ctx context.Context) string {
	fallback := p.base.Labels.Strategy
	if fallback == "" {
		fallback = "simple"
	}
	return p.getString(ctx, KeyStrategy, fallback)
}

func (p *UnifiedProvider) MaxVisibleLabels(ctx context.Context) int {
	return p.getInt(ctx, KeyMaxVisibleLabels, p.base.Labels.MaxVisibleLabels)
}

func (p *UnifiedProvider) MinDistance(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyMinDistance, p.base.Labels.MinDistance)
}

func (p *UnifiedProvider) MaxDistance(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyMaxDistance, p.base.Labels.MaxDistance)
}

func (p *UnifiedProvider) StrictOverlap(ctx context.Context) bool {
	return p.getBool(ctx, KeyStrictOverlap, p.base.Labels.StrictOverlap)
}

func (p *UnifiedProvider) MinZoom(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyMinZoom, p.base.Scheduler.MinZoom)
}

// --- Helpers ---

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *UnifiedProvider) getInt(ctx context.Context, key string, fallback int) int {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				return i
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val == "true"
		}
	}
	return fallback
}
