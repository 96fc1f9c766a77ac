package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlabels/pkg/config"
	"marketlabels/pkg/geo"
	"marketlabels/pkg/map/editor"
	"marketlabels/pkg/map/host"
	"marketlabels/pkg/map/labels"
	"marketlabels/pkg/map/overrides"
	"marketlabels/pkg/map/scheduler"
	"marketlabels/pkg/metrics"
	"marketlabels/pkg/store"
)

type recordingTrigger struct {
	mu       sync.Mutex
	triggers []scheduler.Trigger
}

func (r *recordingTrigger) Trigger(t scheduler.Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, t)
}

func (r *recordingTrigger) BeginEditing(string, string) {}
func (r *recordingTrigger) EndEditing(string)           {}

type testEnv struct {
	server *httptest.Server
	view   *host.View
	mgr    *labels.Manager
	hub    *StreamHub
	st     *store.MemoryStore
	sched  *recordingTrigger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Labels.CRS = "planar"
	st := store.NewMemoryStore()
	prov := config.NewProvider(cfg, st)

	view := host.NewView(12, orb.Bound{Max: orb.Point{1000, 1000}}, geo.Size{Width: 1000, Height: 1000})
	mgr := labels.NewManager(view, overrides.NewStore(st, ""), func(ctx context.Context) labels.Settings {
		return labels.SettingsFrom(ctx, prov)
	}, nil)
	rec := labels.LayerRecord{ID: "stores", Visible: true}
	for i, name := range []string{"Alpha", "Beta"} {
		rec.Anchors = append(rec.Anchors, labels.Anchor{
			Point:      orb.Point{300 + float64(i)*400, 500},
			LayerID:    "stores",
			Graphic:    host.GraphicRef("g-" + name),
			Text:       name,
			Attributes: map[string]any{"id": name},
		})
	}
	mgr.AddLayer(rec)
	mgr.RunPass(context.Background(), nil)

	sched := &recordingTrigger{}
	hub := NewStreamHub()
	srv := NewServer("", Handlers{
		Labels:   NewLabelsHandler(mgr, editor.NewPanel(mgr, sched, nil), sched),
		Viewport: NewViewportHandler(view),
		Settings: NewSettingsHandler(st, prov, sched),
		Stream:   hub,
		Metrics:  metrics.New().Handler(),
	}, func() {})

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, view: view, mgr: mgr, hub: hub, st: st, sched: sched}
}

func (e *testEnv) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(e.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_HealthAndVersion(t *testing.T) {
	env := newTestEnv(t)
	resp := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	v := decodeBody[map[string]string](t, env.get(t, "/api/version"))
	assert.NotEmpty(t, v["version"])
}

func TestServer_GetLabels(t *testing.T) {
	env := newTestEnv(t)
	res := decodeBody[labels.Result](t, env.get(t, "/api/labels"))
	assert.Equal(t, uint64(1), res.Pass)
	assert.Equal(t, 2, res.Visible)
	assert.Len(t, res.Candidates, 2)
}

func TestServer_EditFlow(t *testing.T) {
	env := newTestEnv(t)

	state := decodeBody[EditorState](t, env.post(t, "/api/labels/editing", `{"enabled":true}`))
	assert.True(t, state.Editing)
	state = decodeBody[EditorState](t, env.post(t, "/api/labels/select", `{"id":"Alpha"}`))
	assert.Equal(t, "Alpha", state.Selected)

	resp := env.post(t, "/api/labels/Alpha/text", `{"text":"Alpha Market"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.post(t, "/api/labels/Alpha/move", `{"x":15,"y":-30,"final":true}`)
	res := decodeBody[overrides.Result](t, resp)
	assert.True(t, res.Success)

	var alpha host.GraphicState
	for _, g := range env.view.Graphics() {
		if g.Ref == "g-Alpha" {
			alpha = g
		}
	}
	assert.Equal(t, "Alpha Market", alpha.Symbol.Text)
	assert.Equal(t, 15.0, alpha.Symbol.XOffset)
	assert.Equal(t, -30.0, alpha.Symbol.YOffset)

	save := decodeBody[overrides.Result](t, env.post(t, "/api/labels/save", ""))
	assert.Equal(t, overrides.Result{Success: true, Count: 1}, save)
	_, ok, _ := env.st.GetBlob(context.Background(), "label_overrides")
	assert.True(t, ok)

	resp = env.post(t, "/api/labels/nope/font-size", `{"size":14}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = env.post(t, "/api/labels/Alpha/text", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	refresh := decodeBody[overrides.Result](t, env.post(t, "/api/labels/refresh", ""))
	assert.Equal(t, 1, refresh.Count)

	all := decodeBody[overrides.Result](t, env.post(t, "/api/labels/reset-all", ""))
	assert.Equal(t, 1, all.Count)
}

func TestServer_SelectNeedsEditing(t *testing.T) {
	env := newTestEnv(t)
	resp := env.post(t, "/api/labels/select", `{"id":"Alpha"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_Viewport(t *testing.T) {
	env := newTestEnv(t)
	resp := env.post(t, "/api/map/viewport", `{"zoom":14,"extent":[0,0,500,500],"width":800,"height":600}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 14.0, env.view.CurrentZoom())

	got := decodeBody[ViewportRequest](t, env.get(t, "/api/map/viewport"))
	assert.Equal(t, [4]float64{0, 0, 500, 500}, got.Extent)
	assert.Equal(t, 800.0, got.Width)

	resp = env.post(t, "/api/map/viewport", `{"zoom":14,"extent":[10,0,5,500],"width":800,"height":600}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	graphics := decodeBody[[]host.GraphicState](t, env.get(t, "/api/map/graphics"))
	assert.Len(t, graphics, 2)
}

func TestServer_Settings(t *testing.T) {
	env := newTestEnv(t)
	got := decodeBody[SettingsResponse](t, env.get(t, "/api/settings"))
	assert.Equal(t, "advanced", got.Strategy)

	req, err := http.NewRequest(http.MethodPut, env.server.URL+"/api/settings", bytes.NewBufferString(`{"strategy":"high-quality","min_distance":32.5,"strict_overlap":true}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	got = decodeBody[SettingsResponse](t, resp)
	assert.Equal(t, "high-quality", got.Strategy)
	assert.Equal(t, 32.5, got.MinDistance)
	assert.True(t, got.StrictOverlap)

	val, _ := env.st.GetState(context.Background(), config.KeyMinDistance)
	assert.Equal(t, "32.5", val)
	assert.Contains(t, env.sched.triggers, scheduler.TriggerLayerSet)

	bad := env.post(t, "/api/settings", `{"strategy":"fancy"}`)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestServer_Layers(t *testing.T) {
	env := newTestEnv(t)
	layers := decodeBody[[]map[string]any](t, env.get(t, "/api/layers"))
	require.Len(t, layers, 1)
	assert.Equal(t, "stores", layers[0]["id"])

	resp := env.post(t, "/api/layers/stores/visible", `{"visible":false}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.False(t, env.mgr.Layers()[0].Visible)

	resp = env.post(t, "/api/layers/ghost/visible", `{"visible":false}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	env := newTestEnv(t)
	resp := env.get(t, "/metrics")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServer_Stream(t *testing.T) {
	env := newTestEnv(t)
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/labels/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	env.hub.PublishPass(env.mgr.Last())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pass", msg.Type)

	var res labels.Result
	require.NoError(t, json.Unmarshal(msg.Data, &res))
	assert.Equal(t, 2, res.Visible)

	env.hub.PublishGraphic(host.GraphicState{Ref: "g-Alpha", Visible: true})
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "graphic", msg.Type)
}
