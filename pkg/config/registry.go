package config

// Persistent state keys (Registry)
const (
	KeyStrategy         = "labels_strategy"
	KeyMaxVisibleLabels = "labels_max_visible"
	KeyMinDistance      = "labels_min_distance"
	KeyMaxDistance      = "labels_max_distance"
	KeyStrictOverlap    = "labels_strict_overlap"
	KeyMinZoom          = "labels_min_zoom"
)
