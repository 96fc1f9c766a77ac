package labels

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"Millions", 1250000, "1.3M"},
		{"Thousands", 4500, "4.5K"},
		{"Integer", 7, "7"},
		{"IntegerFloat", 7.0, "7"},
		{"Decimal", 3.14159, "3.14"},
		{"TrimmedZeros", 2.50, "2.5"},
		{"NegativeThousands", -4500.0, "-4.5K"},
		{"ThousandsRoundingToMillion", 999960, "1.0M"},
		{"NegativeRoundingToMillion", -999960.0, "-1.0M"},
		{"JustUnderMillion", 999940, "999.9K"},
		{"DecimalRoundingToThousand", 999.996, "1.0K"},
		{"Zero", 0, "0"},
		{"JSONNumber", json.Number("1250000"), "1.3M"},
		{"String", "Downtown", "Downtown"},
		{"NumericString", "1250000", "1250000"},
		{"Nil", nil, ""},
		{"Bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}

func TestFormatValue_Exponential(t *testing.T) {
	got := FormatValue(0.0041)
	assert.Regexp(t, regexp.MustCompile(`^4\.10e-0?3$`), got)
}

func TestResolveText(t *testing.T) {
	a := &Anchor{
		Text:              "fallback",
		Attributes:        map[string]any{"name": "Oak Plaza"},
		FeatureAttributes: map[string]any{"price": 1250000.0, "sqft": 4500, "cap": 0.065, "ignored": 1},
	}

	style := LabelStyle{
		Primary: Field{Name: "name"},
		Variables: []Field{
			{Name: "price", Prefix: "$"},
			{Name: "sqft", Suffix: " sf"},
			{Name: "cap"}, // only two variables are shown
		},
	}
	assert.Equal(t, "Oak Plaza | $1.3M | 4.5K sf", ResolveText(style, a))

	missing := LabelStyle{Primary: Field{Name: "title"}}
	assert.Equal(t, "fallback", ResolveText(missing, a))

	assert.Equal(t, "", ResolveText(LabelStyle{}, &Anchor{}))
}

func TestMeasureText(t *testing.T) {
	w, h := MeasureText("Store 100", 12)
	assert.InDelta(t, 0.6*12*9, w, 1e-9)
	assert.InDelta(t, 14.4, h, 1e-9)

	w, _ = MeasureText("", 12)
	assert.Equal(t, 20.0, w, "minimum width")

	// Decomposed "é" normalizes to one rune.
	composed, _ := MeasureText("Café Central", 10)
	decomposed, _ := MeasureText("Café Central", 10)
	assert.Equal(t, composed, decomposed)
}
