package jsontree

import (
	"fmt"
	"strconv"
	"strings"
)

// Path addresses a node by object keys. A segment addressing an existing
// array uses the decimal item index.
type Path []string

// ParsePath splits a dotted path ("branding.colors.primary").
func ParsePath(s string) Path {
	s = strings.Trim(s, ".")
	if s == "" {
		return Path{}
	}
	return Path(strings.Split(s, "."))
}

func (p Path) String() string { return strings.Join(p, ".") }

// Child returns a copy of p extended with seg.
func (p Path) Child(seg ...string) Path {
	out := make(Path, 0, len(p)+len(seg))
	out = append(out, p...)
	return append(out, seg...)
}

// Edit is one path write. Unset removes the final key instead of setting it.
type Edit struct {
	Path  Path
	Value Value
	Unset bool
}

// SetEdit is shorthand for a write of v at path.
func SetEdit(path Path, v Value) Edit { return Edit{Path: path, Value: v} }

// UnsetEdit is shorthand for removing the key at path.
func UnsetEdit(path Path) Edit { return Edit{Path: path, Unset: true} }

func (e Edit) String() string {
	if e.Unset {
		return fmt.Sprintf("unset %s", e.Path)
	}
	return fmt.Sprintf("set %s = %s", e.Path, e.Value)
}

// Set returns base with v written at path. Missing or non-container
// intermediate nodes become empty objects; arrays are only traversed, never
// created. Every node on the path is copied, everything else is shared.
func Set(base Value, path Path, v Value) (Value, error) {
	if len(path) == 0 {
		return v, nil
	}
	seg := path[0]
	if base.kind == ArrayKind {
		i, err := arrayIndex(base, seg)
		if err != nil {
			return Value{}, err
		}
		child, err := Set(base.items[i], path[1:], v)
		if err != nil {
			return Value{}, err
		}
		return base.withItem(i, child), nil
	}
	if base.kind != ObjectKind {
		base = NewObject()
	}
	// a missing child is null, which the next level turns into an object
	current := base.obj.fields[seg]
	child, err := Set(current, path[1:], v)
	if err != nil {
		return Value{}, err
	}
	return base.withField(seg, child), nil
}

// Unset returns base without the key at path. Missing intermediate nodes make
// it a no-op; removing array items is not supported.
func Unset(base Value, path Path) (Value, error) {
	if len(path) == 0 {
		return Null(), nil
	}
	seg := path[0]
	switch base.kind {
	case ObjectKind:
		if len(path) == 1 {
			return base.withoutField(seg), nil
		}
		current, ok := base.obj.fields[seg]
		if !ok {
			return base, nil
		}
		child, err := Unset(current, path[1:])
		if err != nil {
			return Value{}, err
		}
		return base.withField(seg, child), nil
	case ArrayKind:
		if len(path) == 1 {
			return Value{}, fmt.Errorf("jsontree: cannot unset array item %q", seg)
		}
		i, err := arrayIndex(base, seg)
		if err != nil {
			return Value{}, err
		}
		child, err := Unset(base.items[i], path[1:])
		if err != nil {
			return Value{}, err
		}
		return base.withItem(i, child), nil
	}
	return base, nil
}

// ApplyEdits applies edits to base in order. Overlapping edits are not
// detected: a later edit simply overwrites an earlier one.
func ApplyEdits(base Value, edits []Edit) (Value, error) {
	out := base
	for _, e := range edits {
		var err error
		if e.Unset {
			out, err = Unset(out, e.Path)
		} else {
			out, err = Set(out, e.Path, e.Value)
		}
		if err != nil {
			return Value{}, fmt.Errorf("apply %s: %w", e, err)
		}
	}
	return out, nil
}

func arrayIndex(arr Value, seg string) (int, error) {
	i, err := strconv.Atoi(seg)
	if err != nil {
		return 0, fmt.Errorf("jsontree: array segment %q is not an index", seg)
	}
	if i < 0 || i >= len(arr.items) {
		return 0, fmt.Errorf("jsontree: array index %d out of range [0,%d)", i, len(arr.items))
	}
	return i, nil
}
