package editor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlabels/pkg/config"
	"marketlabels/pkg/geo"
	"marketlabels/pkg/logging"
	"marketlabels/pkg/map/host"
	"marketlabels/pkg/map/labels"
	"marketlabels/pkg/map/overrides"
	"marketlabels/pkg/map/scheduler"
	"marketlabels/pkg/store"
)

type fakeScheduler struct {
	mu       sync.Mutex
	editing  map[string]string
	triggers []scheduler.Trigger
}

func (f *fakeScheduler) BeginEditing(id, region string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editing[id] = region
}

func (f *fakeScheduler) EndEditing(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.editing, id)
}

func (f *fakeScheduler) Trigger(t scheduler.Trigger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, t)
}

type fixture struct {
	view  *host.View
	mgr   *labels.Manager
	sched *fakeScheduler
	blobs *store.MemoryStore
	panel *Panel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	cfg := config.DefaultConfig()
	cfg.Labels.CRS = "planar"
	blobs := store.NewMemoryStore()
	prov := config.NewProvider(cfg, blobs)

	v := host.NewView(12, orb.Bound{Max: orb.Point{1000, 1000}}, geo.Size{Width: 1000, Height: 1000})
	ov := overrides.NewStore(blobs, "")
	mgr := labels.NewManager(v, ov, func(ctx context.Context) labels.Settings { return labels.SettingsFrom(ctx, prov) }, nil)

	rec := labels.LayerRecord{ID: "stores", Visible: true}
	for _, a := range []struct {
		id   string
		x, y float64
	}{{"A", 200, 800}, {"B", 500, 500}, {"C", 800, 200}} {
		rec.Anchors = append(rec.Anchors, labels.Anchor{
			Point:      orb.Point{a.x, a.y},
			LayerID:    "stores",
			Graphic:    host.GraphicRef("g-" + a.id),
			Text:       "Store " + a.id,
			Attributes: map[string]any{"id": a.id},
		})
	}
	mgr.AddLayer(rec)
	mgr.RunPass(ctx, nil)

	sched := &fakeScheduler{editing: make(map[string]string)}
	return &fixture{view: v, mgr: mgr, sched: sched, blobs: blobs, panel: NewPanel(mgr, sched, nil)}
}

func (f *fixture) symbol(ref host.GraphicRef) host.SymbolOffset {
	for _, g := range f.view.Graphics() {
		if g.Ref == ref {
			return g.Symbol
		}
	}
	return host.SymbolOffset{}
}

func TestPanel_SelectionIsSynchronous(t *testing.T) {
	f := newFixture(t)
	var got [][2]string
	unsub := f.panel.OnSelectionChanged(func(prev, next string) { got = append(got, [2]string{prev, next}) })

	assert.False(t, f.panel.Select("A"), "selection needs editing mode")
	f.panel.ToggleEditingMode(true)
	assert.True(t, f.panel.Select("A"))
	assert.Equal(t, [][2]string{{"", "A"}}, got, "listener ran before Select returned")
	assert.Equal(t, "A", f.panel.Selected())

	f.panel.Select("A")
	assert.Len(t, got, 1, "no event without a change")

	f.panel.ToggleEditingMode(false)
	assert.Equal(t, "", f.panel.Selected())
	assert.Equal(t, [][2]string{{"", "A"}, {"A", ""}}, got)

	unsub()
	f.panel.ToggleEditingMode(true)
	f.panel.Select("B")
	assert.Len(t, got, 2)
}

func TestPanel_UpdateTextAndFontSize(t *testing.T) {
	f := newFixture(t)
	before, ok := f.mgr.Candidate("B")
	require.True(t, ok)

	res := f.panel.UpdateLabelText("B", "  Corner Shop ")
	require.True(t, res.Success)
	assert.Equal(t, "Corner Shop", f.symbol("g-B").Text)
	assert.Equal(t, before.Offset.X, f.symbol("g-B").XOffset, "text edits keep the position")
	assert.Equal(t, before.Offset.Y, f.symbol("g-B").YOffset)

	res = f.panel.UpdateLabelFontSize("B", 18)
	require.True(t, res.Success)
	assert.Equal(t, 18.0, f.symbol("g-B").FontSize)

	o, ok := f.mgr.Overrides().Get("B")
	require.True(t, ok)
	require.NotNil(t, o.Original)
	assert.Equal(t, before.Text, o.Original.Text, "snapshot taken on the first edit only")
	assert.True(t, o.UserEdited)

	assert.False(t, f.panel.UpdateLabelFontSize("B", 0).Success)
	assert.False(t, f.panel.UpdateLabelText("nope", "x").Success)
}

func TestPanel_MoveFreezesRegion(t *testing.T) {
	f := newFixture(t)
	c, _ := f.mgr.Candidate("A")

	require.True(t, f.panel.StartMovingLabel("A").Success)
	assert.Equal(t, "A", f.panel.Moving())
	assert.Equal(t, c.Cluster, f.sched.editing["A"])

	require.True(t, f.panel.MoveLabel("A", overrides.Offset{X: 30, Y: -25}).Success)
	sym := f.symbol("g-A")
	assert.Equal(t, 30.0, sym.XOffset)
	assert.Equal(t, -25.0, sym.YOffset)

	// Moving another label ends the first move.
	require.True(t, f.panel.StartMovingLabel("C").Success)
	_, stillA := f.sched.editing["A"]
	assert.False(t, stillA)

	f.panel.StopMovingLabel()
	assert.Empty(t, f.sched.editing)
	assert.Equal(t, "", f.panel.Moving())
	assert.False(t, f.panel.StartMovingLabel("missing").Success)
}

func TestPanel_SaveLoadReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orig, _ := f.mgr.Candidate("C")

	f.panel.MoveLabel("C", overrides.Offset{X: 40, Y: 40})
	save := f.panel.SavePositions(ctx)
	require.True(t, save.Success)
	assert.Equal(t, 1, save.Count)

	reset := f.panel.ResetLabelPosition("C")
	require.True(t, reset.Success)
	assert.Equal(t, orig.Offset.X, f.symbol("g-C").XOffset)
	assert.Equal(t, orig.Offset.Y, f.symbol("g-C").YOffset)
	assert.False(t, f.panel.ResetLabelPosition("A").Success, "A was never edited")

	all := f.panel.ResetAllLabels()
	assert.Equal(t, 1, all.Count)
	assert.Equal(t, 0, f.mgr.Overrides().Len())

	load := f.panel.LoadPositions(ctx)
	require.True(t, load.Success)
	assert.Equal(t, 1, load.Count)
	assert.Equal(t, 40.0, f.symbol("g-C").XOffset)
	assert.Contains(t, f.sched.triggers, scheduler.TriggerEdit)
}

func TestPanel_PersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.panel.MoveLabel("A", overrides.Offset{X: 1, Y: 1})
	f.blobs.WriteErr = assert.AnError

	res := f.panel.SavePositions(context.Background())
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
}

func TestPanel_RefreshLabels(t *testing.T) {
	f := newFixture(t)
	f.mgr.Overrides().Record("A", overrides.Patch{Offset: &overrides.Offset{X: 5, Y: 5}}, overrides.Snapshot{})
	f.mgr.Overrides().Record("B", overrides.Patch{Offset: &overrides.Offset{X: 6, Y: 6}}, overrides.Snapshot{})

	assert.Equal(t, 1, f.panel.RefreshLabels("A").Count)
	assert.Equal(t, 5.0, f.symbol("g-A").XOffset)
	assert.Equal(t, 2, f.panel.RefreshLabels().Count)
	assert.Equal(t, 6.0, f.symbol("g-B").YOffset)
}

func TestPanel_EditsAreLogged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edits.log")
	logging.SetEditLogPath(path)
	defer logging.SetEditLogPath("")

	f := newFixture(t)
	f.panel.UpdateLabelText("A", "Main Street Market")
	assert.Contains(t, logging.GlobalEditCapture.GetLastLine(), "[text] A - Main Street Market")
}
