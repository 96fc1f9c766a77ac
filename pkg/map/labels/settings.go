package labels

import (
	"context"

	"marketlabels/pkg/config"
	"marketlabels/pkg/map/placement"
)

// SettingsFrom reads the current layout settings. Runtime overrides in the
// provider's state store win over the static configuration.
func SettingsFrom(ctx context.Context, p config.Provider) Settings {
	cfg := p.AppConfig().Labels
	return Settings{
		Strategy:           p.Strategy(ctx),
		CRS:                cfg.CRS,
		MaxVisible:         p.MaxVisibleLabels(ctx),
		PriorityAttributes: cfg.PriorityAttributes,
		PriorityDistance:   float64(cfg.PriorityDistance),
		Jitter:             cfg.Jitter,
		CellSize:           cfg.ClusterDistance,
		FontSize:           cfg.FontSize,
		Seed:               cfg.Seed,
		Constraints: placement.Constraints{
			Padding:         cfg.Padding,
			MinDistance:     p.MinDistance(ctx),
			MaxDistance:     p.MaxDistance(ctx),
			StrictOverlap:   p.StrictOverlap(ctx),
			Directions:      placement.ParseDirections(cfg.Directions),
			BorderMargin:    cfg.BorderMargin,
			ForceIterations: cfg.ForceIterations,
			Anneal: placement.Anneal{
				StartTemperature: cfg.Annealing.StartTemperature,
				Cooling:          cfg.Annealing.Cooling,
				MinTemperature:   cfg.Annealing.MinTemperature,
				InnerIterations:  cfg.Annealing.InnerIterations,
				MaxStep:          cfg.Annealing.MaxStep,
			},
		},
	}
}
