package labels

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxVariables is how many secondary fields a label shows.
const maxVariables = 2

// FormatValue renders an attribute value for display. Numbers are abbreviated:
// millions as "1.3M", thousands as "4.5K", integers plain, magnitudes below
// 0.01 in exponential form, everything else to two decimals without trailing zeros.
func FormatValue(v any) string {
	if f, ok := toFloat(v); ok {
		return formatNumber(f)
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	abs := math.Abs(v)
	switch {
	case abs >= 1e6:
		return strconv.FormatFloat(roundHalfUp(v/1e6, 1), 'f', 1, 64) + "M"
	case abs >= 1e3:
		// 999960 rounds to 1000.0K, which reads as 1.0M.
		if k := roundHalfUp(v/1e3, 1); math.Abs(k) < 1e3 {
			return strconv.FormatFloat(k, 'f', 1, 64) + "K"
		}
		return strconv.FormatFloat(roundHalfUp(v/1e6, 1), 'f', 1, 64) + "M"
	case v == math.Trunc(v):
		return strconv.FormatFloat(v, 'f', 0, 64)
	case abs < 0.01:
		return fmt.Sprintf("%.2e", v)
	default:
		r := roundHalfUp(v, 2)
		if math.Abs(r) >= 1e3 {
			return formatNumber(r)
		}
		s := strconv.FormatFloat(r, 'f', 2, 64)
		s = strings.TrimRight(s, "0")
		return strings.TrimSuffix(s, ".")
	}
}

// roundHalfUp rounds away from zero at the given number of decimals.
func roundHalfUp(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// toFloat reports whether v is numeric. Numeric-looking strings are not numbers.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Format renders the field for a, reporting false when the attribute is absent or empty.
func (f Field) Format(a *Anchor) (string, bool) {
	if f.Name == "" {
		return "", false
	}
	v, ok := a.Lookup(f.Name)
	if !ok {
		return "", false
	}
	s := FormatValue(v)
	if s == "" {
		return "", false
	}
	return f.Prefix + s + f.Suffix, true
}

// ResolveText composes the display text of a from the layer style.
func ResolveText(style LabelStyle, a *Anchor) string {
	var parts []string
	if s, ok := style.Primary.Format(a); ok {
		parts = append(parts, s)
	} else if a.Text != "" {
		parts = append(parts, a.Text)
	}
	for i, f := range style.Variables {
		if i >= maxVariables {
			break
		}
		if s, ok := f.Format(a); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " | ")
}

// MeasureText estimates the box of text at fontSize.
func MeasureText(text string, fontSize float64) (width, height float64) {
	n := utf8.RuneCountInString(norm.NFC.String(text))
	return math.Max(20, 0.6*fontSize*float64(n)), fontSize * 1.2
}
