package placement

// Strategy names accepted by ByName.
const (
	NameSimple      = "simple"
	NameAdvanced    = "advanced"
	NameHighQuality = "high-quality"
)

// Func places items around obstacles in occupied and returns the extended occupied list.
type Func func(items []Item, occupied []Box, c Constraints) []Box

// ByName returns the strategy for name, falling back to Simple when unknown.
func ByName(name string) (Func, bool) {
	switch name {
	case NameSimple:
		return Simple, true
	case NameAdvanced:
		return Advanced, true
	case NameHighQuality:
		return HighQuality, true
	default:
		return Simple, false
	}
}
