package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"marketlabels/pkg/config"
	"marketlabels/pkg/store"
)

// StoreCheck reads the override blob. A missing key passes; a read error fails.
func StoreCheck(bs store.BlobStore, key string) CheckFunc {
	return func(ctx context.Context) error {
		if _, _, err := bs.GetBlob(ctx, key); err != nil {
			return fmt.Errorf("store unreachable: %w", err)
		}
		return nil
	}
}

// SourceCheck verifies that a layer source exists and has a supported
// extension. Shapefiles also need their .dbf sidecar.
func SourceCheck(path string) CheckFunc {
	return func(_ context.Context) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".geojson", ".json":
			return nil
		case ".shp":
			dbf := strings.TrimSuffix(path, filepath.Ext(path)) + ".dbf"
			if _, err := os.Stat(dbf); err != nil {
				return fmt.Errorf("missing attribute table: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("unsupported source format %q", ext)
		}
	}
}

// ViewportCheck flags an initial viewport with no area. The host replaces
// it on the first viewport update, so the probe is not critical.
func ViewportCheck(vc config.ViewportConfig) CheckFunc {
	return func(_ context.Context) error {
		if vc.Width <= 0 || vc.Height <= 0 {
			return fmt.Errorf("viewport size %.0fx%.0f has no area", vc.Width, vc.Height)
		}
		if vc.Extent[2] <= vc.Extent[0] || vc.Extent[3] <= vc.Extent[1] {
			return fmt.Errorf("viewport extent %v is empty", vc.Extent)
		}
		return nil
	}
}

// Startup builds the probe list for a configuration.
func Startup(cfg *config.Config, bs store.BlobStore) []Probe {
	probes := []Probe{
		{Name: "store", Check: StoreCheck(bs, cfg.Overrides.Key), Critical: true},
		{Name: "viewport", Check: ViewportCheck(cfg.Viewport)},
	}
	for _, lc := range cfg.Layers {
		probes = append(probes, Probe{
			Name:     "layer " + lc.ID,
			Check:    SourceCheck(lc.Source),
			Critical: true,
		})
	}
	return probes
}
