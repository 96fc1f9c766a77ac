package labels

import (
	"fmt"
	"hash/fnv"
)

// IDKind tells how an AnchorID was derived, from most to least stable.
type IDKind int

const (
	ExplicitID IDKind = iota
	ObjectID
	ParentID
	UID
	GeometryHash
)

func (k IDKind) String() string {
	switch k {
	case ExplicitID:
		return "explicit"
	case ObjectID:
		return "object"
	case ParentID:
		return "parent"
	case UID:
		return "uid"
	case GeometryHash:
		return "geometry"
	default:
		return fmt.Sprintf("IDKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k IDKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *IDKind) UnmarshalText(b []byte) error {
	for c := ExplicitID; c <= GeometryHash; c++ {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown id kind %q", b)
}

// AnchorID is the stable identity of an anchor across passes.
type AnchorID struct {
	Kind  IDKind `json:"kind"`
	Value string `json:"value"`
}

func (id AnchorID) String() string { return id.Value }

type idRule func(a *Anchor) (AnchorID, bool)

// idRules are tried in order; GeometryHash always succeeds.
var idRules = []idRule{explicitID, objectID, parentID, uidID, geometryHash}

var (
	explicitKeys = []string{"labelId", "id"}
	objectKeys   = []string{"OBJECTID", "objectid", "ObjectID", "FID"}
	parentKeys   = []string{"parentId", "parentID", "parent_id"}
)

// ResolveAnchorID derives the identity of a.
func ResolveAnchorID(a *Anchor) AnchorID {
	for _, rule := range idRules {
		if id, ok := rule(a); ok {
			return id
		}
	}
	return AnchorID{}
}

// explicitID only trusts ids set on the label graphic itself.
func explicitID(a *Anchor) (AnchorID, bool) {
	for _, k := range explicitKeys {
		if s := attrString(a.Attributes[k]); s != "" {
			return AnchorID{Kind: ExplicitID, Value: s}, true
		}
	}
	return AnchorID{}, false
}

func objectID(a *Anchor) (AnchorID, bool) {
	for _, k := range objectKeys {
		v, _ := a.Lookup(k)
		if s := attrString(v); s != "" {
			return AnchorID{Kind: ObjectID, Value: a.LayerID + ":" + s}, true
		}
	}
	return AnchorID{}, false
}

func parentID(a *Anchor) (AnchorID, bool) {
	for _, k := range parentKeys {
		v, _ := a.Lookup(k)
		if s := attrString(v); s != "" {
			return AnchorID{Kind: ParentID, Value: a.LayerID + ":parent:" + s}, true
		}
	}
	return AnchorID{}, false
}

func uidID(a *Anchor) (AnchorID, bool) {
	if a.UID == "" {
		return AnchorID{}, false
	}
	return AnchorID{Kind: UID, Value: "uid:" + a.UID}, true
}

func geometryHash(a *Anchor) (AnchorID, bool) {
	h := fnv.New64a()
	fmt.Fprintf(h, "%.7f,%.7f|%s", a.Point[0], a.Point[1], a.Text)
	return AnchorID{Kind: GeometryHash, Value: fmt.Sprintf("geom:%016x", h.Sum64())}, true
}

// attrString renders an id-like attribute, treating nil and empty as absent.
func attrString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}
