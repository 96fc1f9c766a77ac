package labels

import (
	"fmt"

	"marketlabels/pkg/config"
	"marketlabels/pkg/geo"
	"marketlabels/pkg/map/host"
)

// labelKeys are feature properties that belong to the label graphic rather
// than the feature, so that sources can pin ids and force labels off.
var labelKeys = []string{"labelId", "visible"}

// textKeys supply the fallback label text, in order.
var textKeys = []string{"label", "name", "NAME"}

// LoadLayer reads a configured layer source into a LayerRecord.
func LoadLayer(lc config.LayerConfig) (LayerRecord, error) {
	feats, err := geo.LoadFeatures(lc.Source)
	if err != nil {
		return LayerRecord{}, fmt.Errorf("failed to load layer %s: %w", lc.ID, err)
	}
	return NewLayerRecord(lc, feats), nil
}

// NewLayerRecord builds a visible layer from features. Each feature becomes
// one anchor whose graphic is "<layer>/<feature id>".
func NewLayerRecord(lc config.LayerConfig, feats []geo.Feature) LayerRecord {
	rec := LayerRecord{
		ID:          lc.ID,
		MinZoom:     lc.MinZoom,
		Visible:     true,
		SelfManaged: lc.SelfManaged,
		Style: LabelStyle{
			Primary:  fieldFrom(lc.Primary),
			FontSize: lc.FontSize,
		},
		Anchors: make([]Anchor, 0, len(feats)),
	}
	for _, v := range lc.Variables {
		rec.Style.Variables = append(rec.Style.Variables, fieldFrom(v))
	}

	for _, f := range feats {
		a := Anchor{
			Point:             f.Point,
			LayerID:           lc.ID,
			Graphic:           host.GraphicRef(lc.ID + "/" + f.ID),
			UID:               lc.ID + "/" + f.ID,
			FeatureAttributes: f.Properties,
		}
		for _, k := range labelKeys {
			if v, ok := f.Properties[k]; ok {
				if a.Attributes == nil {
					a.Attributes = make(map[string]any, len(labelKeys))
				}
				a.Attributes[k] = v
			}
		}
		for _, k := range textKeys {
			if s, ok := f.Properties[k].(string); ok && s != "" {
				a.Text = s
				break
			}
		}
		rec.Anchors = append(rec.Anchors, a)
	}
	return rec
}

func fieldFrom(fc config.FieldConfig) Field {
	return Field{Name: fc.Field, Prefix: fc.Prefix, Suffix: fc.Suffix}
}

// Refs lists the graphic refs of every anchor of the layer.
func (r *LayerRecord) Refs() []host.GraphicRef {
	refs := make([]host.GraphicRef, len(r.Anchors))
	for i := range r.Anchors {
		refs[i] = r.Anchors[i].GraphicRef(r.ID, i)
	}
	return refs
}
