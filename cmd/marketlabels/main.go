package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb"

	"marketlabels/internal/api"
	"marketlabels/pkg/config"
	"marketlabels/pkg/db"
	"marketlabels/pkg/geo"
	"marketlabels/pkg/logging"
	"marketlabels/pkg/map/editor"
	"marketlabels/pkg/map/host"
	"marketlabels/pkg/map/labels"
	"marketlabels/pkg/map/overrides"
	"marketlabels/pkg/map/scheduler"
	"marketlabels/pkg/map/zoomgate"
	"marketlabels/pkg/metrics"
	"marketlabels/pkg/probe"
	"marketlabels/pkg/store"
	"marketlabels/pkg/version"
	"marketlabels/pkg/watcher"
)

const defaultConfigPath = "configs/marketlabels.yaml"

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	trace      = flag.Bool("trace", false, "Enable trace logging of placement internals")
)

func main() {
	flag.Parse()
	_ = godotenv.Load(".env")

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()
	logging.SetTrace(*trace)

	slog.Info("MarketLabels Started", "version", version.Version)

	st, err := initStore(ctx, appCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := probe.AnalyzeResults(probe.Run(ctx, probe.Startup(appCfg, st), probe.DefaultTimeout)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	prov := config.NewProvider(appCfg, st)
	met := metrics.New()

	view := initView(appCfg.Viewport)
	ov := overrides.NewStore(st, appCfg.Overrides.Key)
	if appCfg.Overrides.AutoLoad {
		if res := ov.Load(ctx); !res.Success {
			slog.Warn("Overrides: auto-load failed", "reason", res.Message)
		}
	}

	mgr := labels.NewManager(view, ov, func(ctx context.Context) labels.Settings {
		return labels.SettingsFrom(ctx, prov)
	}, met)
	gate := zoomgate.New(mgr.Writer(), mgr, met)
	sched := scheduler.New(mgr, view.CurrentZoom, scheduler.Options{
		BaseDelay:   time.Duration(appCfg.Scheduler.BaseDelay),
		RapidWindow: time.Duration(appCfg.Scheduler.RapidWindow),
		MinZoom:     prov.MinZoom,
		Metrics:     met,
	})

	hub := api.NewStreamHub()
	mgr.Subscribe(hub.PublishPass)
	view.OnWrite(hub.PublishGraphic)

	if err := loadLayers(appCfg, mgr, gate, view); err != nil {
		return err
	}

	detachGate := gate.Attach(view)
	defer detachGate()
	detachSched := sched.Attach(ctx, view)
	defer detachSched()

	if interval := time.Duration(appCfg.Scheduler.ReloadInterval); interval > 0 && len(appCfg.Layers) > 0 {
		startLayerWatch(ctx, appCfg, interval, mgr, gate, view)
	}
	if !mgr.Intercepted() {
		scheduler.NewSweeper(mgr.Suppressions(), view, time.Duration(appCfg.Scheduler.SweepInterval)).Start(ctx)
	}
	sched.Trigger(scheduler.TriggerLayerSet)

	panel := editor.NewPanel(mgr, sched, met)
	return runServer(ctx, appCfg, api.Handlers{
		Labels:   api.NewLabelsHandler(mgr, panel, sched),
		Viewport: api.NewViewportHandler(view),
		Settings: api.NewSettingsHandler(st, prov, sched),
		Stream:   hub,
		Metrics:  met.Handler(),
	})
}

func initStore(ctx context.Context, appCfg *config.Config) (store.Store, error) {
	switch appCfg.Store.Backend {
	case "redis":
		rc := appCfg.Store.Redis
		rs := store.OpenRedis(rc.Addr, rc.Password, rc.DB, rc.Prefix)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", rc.Addr, err)
		}
		slog.Info("Store: using redis", "addr", rc.Addr)
		return rs, nil
	case "memory":
		slog.Warn("Store: using in-memory store, overrides will not survive a restart")
		return store.NewMemoryStore(), nil
	default:
		dbConn, err := db.Init(appCfg.DB.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		slog.Info("Store: using sqlite", "path", appCfg.DB.Path)
		return store.NewSQLiteStore(dbConn), nil
	}
}

func initView(vc config.ViewportConfig) *host.View {
	extent := orb.Bound{
		Min: orb.Point{vc.Extent[0], vc.Extent[1]},
		Max: orb.Point{vc.Extent[2], vc.Extent[3]},
	}
	return host.NewView(vc.Zoom, extent, geo.Size{Width: vc.Width, Height: vc.Height})
}

func loadLayers(appCfg *config.Config, mgr *labels.Manager, gate *zoomgate.Gate, view *host.View) error {
	for _, lc := range appCfg.Layers {
		rec, err := labels.LoadLayer(lc)
		if err != nil {
			return err
		}
		addLayer(rec, mgr, gate, view)
	}
	return nil
}

func addLayer(rec labels.LayerRecord, mgr *labels.Manager, gate *zoomgate.Gate, view *host.View) {
	mgr.AddLayer(rec)
	view.AddLayer(rec.ID, rec.Refs())
	gate.AddLayer(rec.ID, rec.MinZoom, view.CurrentZoom())
}

// startLayerWatch reloads a layer when its source file changes. A failed
// reload keeps the previous anchors.
func startLayerWatch(ctx context.Context, appCfg *config.Config, interval time.Duration, mgr *labels.Manager, gate *zoomgate.Gate, view *host.View) {
	byID := make(map[string]config.LayerConfig, len(appCfg.Layers))
	sources := make(map[string]string, len(appCfg.Layers))
	for _, lc := range appCfg.Layers {
		byID[lc.ID] = lc
		sources[lc.ID] = lc.Source
	}
	watcher.NewService(sources).Start(ctx, interval, func(id string) {
		rec, err := labels.LoadLayer(byID[id])
		if err != nil {
			slog.Error("Watcher: layer reload failed", "layer", id, "error", err)
			return
		}
		mgr.RemoveLayer(id)
		view.RemoveLayer(id)
		gate.RemoveLayer(id)
		addLayer(rec, mgr, gate, view)
	})
}

func runServer(ctx context.Context, cfg *config.Config, h api.Handlers) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	srv := api.NewServer(cfg.Server.Address, h, shutdownFunc)
	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
