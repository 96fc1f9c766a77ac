package geo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// representativePoint reduces a geometry to the point its label hangs from.
func representativePoint(geom orb.Geometry) (orb.Point, bool) {
	switch g := geom.(type) {
	case nil:
		return orb.Point{}, false
	case orb.Point:
		return g, true
	case orb.MultiPoint:
		if len(g) == 0 {
			return orb.Point{}, false
		}
		return g[0], true
	case orb.LineString:
		if len(g) == 0 {
			return orb.Point{}, false
		}
		return g[len(g)/2], true
	case orb.MultiLineString:
		if len(g) == 0 || len(g[0]) == 0 {
			return orb.Point{}, false
		}
		return g[0][len(g[0])/2], true
	case orb.Polygon, orb.MultiPolygon:
		c, area := planar.CentroidArea(g)
		if area == 0 {
			return g.Bound().Center(), true
		}
		return c, true
	}
	return geom.Bound().Center(), true
}

// getStringProp safely extracts a string property from feature properties.
func getStringProp(props map[string]any, key string) string {
	if val, ok := props[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case json.Number:
			return string(v)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case nil:
			return ""
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// coerceAttribute turns a shapefile attribute string into a number when it parses as one.
// DBF fields are padded with NULs and spaces.
func coerceAttribute(raw string) any {
	s := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
