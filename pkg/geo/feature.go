package geo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature is a labelable map feature reduced to its anchor point.
type Feature struct {
	ID         string
	Point      orb.Point
	Properties map[string]any
}

// LoadFeatures reads features from a GeoJSON (.geojson, .json) or shapefile (.shp).
// Polygons and lines are reduced to a representative point.
func LoadFeatures(path string) ([]Feature, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return loadGeoJSON(path)
	case ".shp":
		return loadShapefile(path)
	default:
		return nil, fmt.Errorf("unsupported feature source %s", path)
	}
}

func loadGeoJSON(path string) ([]Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geojson %s: %w", path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse geojson %s: %w", path, err)
	}

	out := make([]Feature, 0, len(fc.Features))
	for i, f := range fc.Features {
		pt, ok := representativePoint(f.Geometry)
		if !ok {
			continue
		}
		props := map[string]any(f.Properties)
		if props == nil {
			props = map[string]any{}
		}
		out = append(out, Feature{
			ID:         featureID(f.ID, props, i),
			Point:      pt,
			Properties: props,
		})
	}
	return out, nil
}

func loadShapefile(path string) ([]Feature, error) {
	shape, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer shape.Close()

	fields := shape.Fields()
	fieldNames := make([]string, len(fields))
	for i, f := range fields {
		fieldNames[i] = f.String()
	}

	var out []Feature
	for shape.Next() {
		n, p := shape.Shape()

		var pt orb.Point
		switch s := p.(type) {
		case *shp.Null:
			continue
		case *shp.Point:
			pt = orb.Point{s.X, s.Y}
		default:
			// Lines and polygons anchor at their bounding box center.
			b := p.BBox()
			pt = orb.Point{(b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2}
		}

		props := make(map[string]any, len(fieldNames))
		for i, name := range fieldNames {
			props[name] = coerceAttribute(shape.ReadAttribute(n, i))
		}

		out = append(out, Feature{
			ID:         featureID(nil, props, n),
			Point:      pt,
			Properties: props,
		})
	}

	if err := shape.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shapes: %w", err)
	}
	return out, nil
}

// featureID prefers the feature's own id, then an "id" or "OBJECTID" property, then its index.
func featureID(id any, props map[string]any, index int) string {
	if id != nil {
		if s := getStringProp(map[string]any{"id": id}, "id"); s != "" {
			return s
		}
	}
	for _, key := range []string{"id", "ID", "OBJECTID", "objectid"} {
		if s := getStringProp(props, key); s != "" {
			return s
		}
	}
	return strconv.Itoa(index)
}
