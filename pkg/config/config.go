package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	DB        DBConfig        `yaml:"db"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Labels    LabelsConfig    `yaml:"labels"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Overrides OverridesConfig `yaml:"overrides"`
	Viewport  ViewportConfig  `yaml:"viewport"`
	Layers    []LayerConfig   `yaml:"layers"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Edits    LogSettings `yaml:"edits"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// StoreConfig selects the blob store backing label overrides and runtime settings.
type StoreConfig struct {
	Backend string      `yaml:"backend"` // "sqlite", "redis", "memory"
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LabelsConfig holds the layout engine settings.
type LabelsConfig struct {
	Strategy           string   `yaml:"strategy"` // "simple", "advanced", "high-quality"
	CRS                string   `yaml:"crs"`      // "mercator", "wgs84", "planar"
	ClusterDistance    float64  `yaml:"cluster_distance"`
	MaxVisibleLabels   int      `yaml:"max_visible_labels"`
	PriorityAttributes []string `yaml:"priority_attributes"`
	PriorityDistance   Distance `yaml:"priority_distance"`
	Jitter             float64  `yaml:"jitter"`
	FontSize           float64  `yaml:"font_size"`
	Padding            float64  `yaml:"padding"`
	MinDistance        float64  `yaml:"min_distance_between_labels"`
	MaxDistance        float64  `yaml:"max_label_distance"`
	BorderMargin       float64  `yaml:"border_margin"`
	StrictOverlap      bool     `yaml:"strict_overlap"`
	Directions         []string `yaml:"directions"`
	ForceIterations    int      `yaml:"force_iterations"`
	Annealing          Anneal   `yaml:"annealing"`
	Seed               uint64   `yaml:"seed"`
}

// Anneal holds the simulated annealing schedule.
type Anneal struct {
	StartTemperature float64 `yaml:"start_temperature"`
	Cooling          float64 `yaml:"cooling"`
	MinTemperature   float64 `yaml:"min_temperature"`
	InnerIterations  int     `yaml:"inner_iterations"`
	MaxStep          float64 `yaml:"max_step"`
}

// SchedulerConfig holds update throttling settings.
type SchedulerConfig struct {
	BaseDelay      Duration `yaml:"base_delay"`
	RapidWindow    Duration `yaml:"rapid_window"`
	SweepInterval  Duration `yaml:"sweep_interval"`
	ReloadInterval Duration `yaml:"reload_interval"` // 0 disables layer source reloading
	MinZoom        float64  `yaml:"min_zoom"`
}

// OverridesConfig holds override persistence settings.
type OverridesConfig struct {
	Key      string `yaml:"key"`
	AutoLoad bool   `yaml:"auto_load"`
}

// ViewportConfig is the initial viewport of the in-process map host.
type ViewportConfig struct {
	Width  float64    `yaml:"width"`
	Height float64    `yaml:"height"`
	Zoom   float64    `yaml:"zoom"`
	Extent [4]float64 `yaml:"extent"` // minX, minY, maxX, maxY
}

// LayerConfig declares one map layer whose point features carry labels.
type LayerConfig struct {
	ID          string        `yaml:"id"`
	Source      string        `yaml:"source"` // .geojson or .shp
	MinZoom     float64       `yaml:"min_zoom"`
	SelfManaged bool          `yaml:"self_managed"`
	FontSize    float64       `yaml:"font_size"`
	Primary     FieldConfig   `yaml:"primary"`
	Variables   []FieldConfig `yaml:"variables"`
}

// FieldConfig formats one attribute into label text.
type FieldConfig struct {
	Field  string `yaml:"field"`
	Prefix string `yaml:"prefix"`
	Suffix string `yaml:"suffix"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Edits: LogSettings{
				Path:  "./logs/edits.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/marketlabels.db",
		},
		Server: ServerConfig{
			Address: "localhost:1921",
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "marketlabels:",
			},
		},
		Labels: LabelsConfig{
			Strategy:           "advanced",
			CRS:                "mercator",
			ClusterDistance:    40,
			MaxVisibleLabels:   80,
			PriorityAttributes: []string{"priority", "population"},
			PriorityDistance:   Distance(150),
			Jitter:             0.1,
			FontSize:           12,
			Padding:            5,
			MinDistance:        20,
			MaxDistance:        120,
			BorderMargin:       20,
			StrictOverlap:      false,
			Directions:         []string{"top", "right", "bottom", "left", "top-right", "bottom-right", "bottom-left", "top-left"},
			ForceIterations:    10,
			Annealing: Anneal{
				StartTemperature: 10,
				Cooling:          0.95,
				MinTemperature:   0.1,
				InnerIterations:  20,
				MaxStep:          15,
			},
		},
		Scheduler: SchedulerConfig{
			BaseDelay:      Duration(250 * time.Millisecond),
			RapidWindow:    Duration(500 * time.Millisecond),
			SweepInterval:  Duration(1 * time.Second),
			ReloadInterval: Duration(5 * time.Second),
			MinZoom:        0,
		},
		Overrides: OverridesConfig{
			Key:      "label_overrides",
			AutoLoad: true,
		},
		Viewport: ViewportConfig{
			Width:  1280,
			Height: 800,
			Zoom:   12,
			Extent: [4]float64{0, 0, 12800, 8000},
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, defaults are merged with the file values but nothing is written back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// Environment fallback for secrets, never saved back to disk
		if cfg.Store.Redis.Password == "" {
			if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
				cfg.Store.Redis.Password = pw
			}
		}
		if addr := os.Getenv("REDIS_ADDR"); addr != "" {
			cfg.Store.Redis.Addr = addr
		}

		if err := validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	return cfg, nil
}

var layerIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("invalid store backend '%s': must be sqlite, redis or memory", cfg.Store.Backend)
	}
	switch cfg.Labels.CRS {
	case "mercator", "wgs84", "planar":
	default:
		return fmt.Errorf("invalid labels crs '%s': must be mercator, wgs84 or planar", cfg.Labels.CRS)
	}
	seen := make(map[string]bool, len(cfg.Layers))
	for _, l := range cfg.Layers {
		if !layerIDPattern.MatchString(l.ID) {
			return fmt.Errorf("invalid layer id '%s'", l.ID)
		}
		if seen[l.ID] {
			return fmt.Errorf("duplicate layer id '%s'", l.ID)
		}
		seen[l.ID] = true
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Market Labels Configuration
# ---------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (map units), km, mi, ft

`)
	data = append(header, data...)

	reStrategy := regexp.MustCompile(`(?m)^(\s+)strategy:`)
	data = reStrategy.ReplaceAll(data, []byte("${1}# Options: simple, advanced, high-quality\n${1}strategy:"))

	reBackend := regexp.MustCompile(`(?m)^(\s+)backend:`)
	data = reBackend.ReplaceAll(data, []byte("${1}# Options: sqlite, redis, memory\n${1}backend:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
