package site

import (
	"encoding/json"
	"fmt"

	"github.com/sitecraft/siteadmin/internal/jsontree"
)

// Part is one typed sub-object of a Component, keyed by its component type
// ("logo", "heading", ...).
type Part interface {
	PartType() string
}

type LogoPart struct {
	Path  string `json:"path"`
	Alt   string `json:"alt,omitempty"`
	Width string `json:"width,omitempty"`
}

type HeadingPart struct {
	Text  string `json:"text"`
	Level int    `json:"level,omitempty"`
}

type ButtonPart struct {
	Label   string `json:"label"`
	Href    string `json:"href,omitempty"`
	Variant string `json:"variant,omitempty"`
}

type MediaPart struct {
	Type string `json:"type,omitempty"`
	Src  string `json:"src"`
	Alt  string `json:"alt,omitempty"`
}

type BulletPointsPart struct {
	Items []string `json:"items"`
}

// OpaquePart carries a component type this package does not model.
type OpaquePart struct {
	Type string
	Raw  jsontree.Value
}

func (LogoPart) PartType() string         { return "logo" }
func (HeadingPart) PartType() string      { return "heading" }
func (ButtonPart) PartType() string       { return "button" }
func (MediaPart) PartType() string        { return "media" }
func (BulletPointsPart) PartType() string { return "bulletPoints" }
func (p OpaquePart) PartType() string     { return p.Type }

type partSpec struct {
	decode func(jsontree.Value) (Part, error)
	// keys are the JSON members owned by the typed struct
	keys []string
}

func decodeAs[T Part](v jsontree.Value) (Part, error) {
	var p T
	if err := jsontree.Decode(v, &p); err != nil {
		return nil, err
	}
	return p, nil
}

var partSpecs = map[string]partSpec{
	"logo":         {decode: decodeAs[LogoPart], keys: []string{"path", "alt", "width"}},
	"heading":      {decode: decodeAs[HeadingPart], keys: []string{"text", "level"}},
	"button":       {decode: decodeAs[ButtonPart], keys: []string{"label", "href", "variant"}},
	"media":        {decode: decodeAs[MediaPart], keys: []string{"type", "src", "alt"}},
	"bulletPoints": {decode: decodeAs[BulletPointsPart], keys: []string{"items"}},
}

type componentEntry struct {
	key  string
	raw  jsontree.Value
	part Part
}

// Component is an ordered set of parts. Members of a known part that the
// typed struct does not declare, and whole parts of unknown types, are kept
// verbatim and written back unchanged.
type Component struct {
	entries []componentEntry
}

// Types returns the component types in document order.
func (c Component) Types() []string {
	out := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.key)
	}
	return out
}

// Part returns the part stored under the component type key.
func (c Component) Part(key string) (Part, bool) {
	for _, e := range c.entries {
		if e.key == key {
			return e.part, true
		}
	}
	return nil, false
}

// WithPart returns a copy of c with p stored under p.PartType(). Members the
// typed part does not own are carried over from the existing raw value.
func (c Component) WithPart(p Part) (Component, error) {
	key := p.PartType()
	raw, err := partValue(p)
	if err != nil {
		return Component{}, err
	}
	out := Component{entries: make([]componentEntry, 0, len(c.entries)+1)}
	replaced := false
	for _, e := range c.entries {
		if e.key != key {
			out.entries = append(out.entries, e)
			continue
		}
		merged, err := overlay(e.raw, raw, partSpecs[key].keys)
		if err != nil {
			return Component{}, err
		}
		out.entries = append(out.entries, componentEntry{key: key, raw: merged, part: p})
		replaced = true
	}
	if !replaced {
		out.entries = append(out.entries, componentEntry{key: key, raw: raw, part: p})
	}
	return out, nil
}

func partValue(p Part) (jsontree.Value, error) {
	if op, ok := p.(OpaquePart); ok {
		return op.Raw, nil
	}
	return jsontree.FromGo(p)
}

// overlay drops the owned keys from base and writes the typed members on top.
func overlay(base, typed jsontree.Value, owned []string) (jsontree.Value, error) {
	if base.Kind() != jsontree.ObjectKind || typed.Kind() != jsontree.ObjectKind {
		return typed, nil
	}
	edits := make([]jsontree.Edit, 0, len(owned)+typed.Len())
	for _, k := range owned {
		edits = append(edits, jsontree.UnsetEdit(jsontree.Path{k}))
	}
	for _, k := range typed.Keys() {
		v, _ := typed.Get(k)
		edits = append(edits, jsontree.SetEdit(jsontree.Path{k}, v))
	}
	return jsontree.ApplyEdits(base, edits)
}

func (c Component) MarshalJSON() ([]byte, error) {
	members := make([]jsontree.Member, 0, len(c.entries))
	for _, e := range c.entries {
		members = append(members, jsontree.Field(e.key, e.raw))
	}
	return jsontree.NewObject(members...).MarshalJSON()
}

func (c *Component) UnmarshalJSON(data []byte) error {
	v, err := jsontree.Parse(data)
	if err != nil {
		return err
	}
	if v.Kind() != jsontree.ObjectKind {
		return fmt.Errorf("component must be an object, got %s", v.Kind())
	}
	entries := make([]componentEntry, 0, v.Len())
	for _, key := range v.Keys() {
		raw, _ := v.Get(key)
		part := Part(OpaquePart{Type: key, Raw: raw})
		// a known part in a shape the typed struct cannot hold stays opaque
		if ps, ok := partSpecs[key]; ok && raw.Kind() == jsontree.ObjectKind {
			if typed, err := ps.decode(raw); err == nil {
				part = typed
			}
		}
		entries = append(entries, componentEntry{key: key, raw: raw, part: part})
	}
	c.entries = entries
	return nil
}

var (
	_ json.Marshaler   = Component{}
	_ json.Unmarshaler = (*Component)(nil)
)
