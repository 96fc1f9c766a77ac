package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlabels/pkg/config"
	"marketlabels/pkg/store"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{Name: "ok", Check: func(ctx context.Context) error { return nil }, Critical: true},
		{Name: "minor", Check: func(ctx context.Context) error { return errors.New("minor issue") }},
		{Name: "slow", Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	}

	results := Run(context.Background(), probes, 20*time.Millisecond)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Error)
	assert.EqualError(t, results[1].Error, "minor issue")
	assert.ErrorIs(t, results[2].Error, context.DeadlineExceeded)
}

func TestAnalyzeResults(t *testing.T) {
	fail := errors.New("fail")
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{"all pass", []Result{{Probe: Probe{Name: "P1", Critical: true}}}, false},
		{"critical failure", []Result{{Probe: Probe{Name: "P1", Critical: true}, Error: fail}}, true},
		{"non-critical failure", []Result{{Probe: Probe{Name: "P1"}, Error: fail}}, false},
		{"mixed", []Result{
			{Probe: Probe{Name: "P1"}, Error: fail},
			{Probe: Probe{Name: "P2", Critical: true}, Error: fail},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(tt.results)
			if tt.wantErr {
				assert.ErrorIs(t, err, fail)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type brokenBlobs struct{}

func (brokenBlobs) GetBlob(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}
func (brokenBlobs) SetBlob(context.Context, string, string) error { return nil }

func TestStoreCheck(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, StoreCheck(store.NewMemoryStore(), "label_overrides")(ctx))
	assert.ErrorContains(t, StoreCheck(brokenBlobs{}, "label_overrides")(ctx), "connection refused")
}

func TestSourceCheck(t *testing.T) {
	dir := t.TempDir()
	write := func(name string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		return p
	}
	ctx := context.Background()

	assert.NoError(t, SourceCheck(write("a.geojson"))(ctx))
	assert.Error(t, SourceCheck(filepath.Join(dir, "missing.geojson"))(ctx))
	assert.ErrorContains(t, SourceCheck(write("a.csv"))(ctx), "unsupported")
	assert.ErrorContains(t, SourceCheck(dir)(ctx), "directory")

	shp := write("b.shp")
	assert.ErrorContains(t, SourceCheck(shp)(ctx), "attribute table")
	write("b.dbf")
	assert.NoError(t, SourceCheck(shp)(ctx))
}

func TestViewportCheck(t *testing.T) {
	ctx := context.Background()
	vc := config.DefaultConfig().Viewport
	assert.NoError(t, ViewportCheck(vc)(ctx))

	vc.Width = 0
	assert.ErrorContains(t, ViewportCheck(vc)(ctx), "no area")

	vc = config.DefaultConfig().Viewport
	vc.Extent = [4]float64{10, 0, 5, 10}
	assert.ErrorContains(t, ViewportCheck(vc)(ctx), "empty")
}

func TestStartup(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Layers = []config.LayerConfig{{ID: "stores", Source: "missing.geojson"}}

	results := Run(context.Background(), Startup(cfg, store.NewMemoryStore()), time.Second)
	require.Len(t, results, 3)
	assert.Equal(t, "layer stores", results[2].Probe.Name)

	err := AnalyzeResults(results)
	assert.ErrorContains(t, err, "layer stores")
}
