// Package jsontree is an immutable JSON value tree with insertion-ordered
// objects. Values are never modified in place: every write returns a new tree
// that shares all untouched subtrees with the one it was derived from.
package jsontree

import (
	"encoding/json"
	"strconv"
)

// Kind is the JSON type of a Value.
type Kind uint8

const (
	NullKind Kind = iota
	BoolKind
	NumberKind
	StringKind
	ArrayKind
	ObjectKind
)

func (k Kind) String() string {
	switch k {
	case NullKind:
		return "null"
	case BoolKind:
		return "bool"
	case NumberKind:
		return "number"
	case StringKind:
		return "string"
	case ArrayKind:
		return "array"
	case ObjectKind:
		return "object"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged JSON variant. The zero Value is JSON null.
type Value struct {
	kind  Kind
	b     bool
	num   json.Number
	str   string
	items []Value
	obj   *object
}

type object struct {
	keys   []string
	fields map[string]Value
}

// Member is one key/value pair used to build objects.
type Member struct {
	Key   string
	Value Value
}

func Null() Value { return Value{} }

func NewBool(b bool) Value { return Value{kind: BoolKind, b: b} }

func NewString(s string) Value { return Value{kind: StringKind, str: s} }

func NewNumber(n json.Number) Value { return Value{kind: NumberKind, num: n} }

func NewInt(i int64) Value { return NewNumber(json.Number(strconv.FormatInt(i, 10))) }

func NewFloat(f float64) Value {
	return NewNumber(json.Number(strconv.FormatFloat(f, 'g', -1, 64)))
}

// NewArray returns an array holding a copy of items.
func NewArray(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: ArrayKind, items: cp}
}

// NewObject builds an object from members in order. A repeated key keeps its
// first position and its last value.
func NewObject(members ...Member) Value {
	o := &object{keys: make([]string, 0, len(members)), fields: make(map[string]Value, len(members))}
	for _, m := range members {
		if _, ok := o.fields[m.Key]; !ok {
			o.keys = append(o.keys, m.Key)
		}
		o.fields[m.Key] = m.Value
	}
	return Value{kind: ObjectKind, obj: o}
}

// Field is shorthand for Member{Key: key, Value: v}.
func Field(key string, v Value) Member { return Member{Key: key, Value: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == NullKind }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == BoolKind }

func (v Value) AsString() (string, bool) { return v.str, v.kind == StringKind }

func (v Value) AsNumber() (json.Number, bool) { return v.num, v.kind == NumberKind }

// Len is the number of array items or object members, 0 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case ArrayKind:
		return len(v.items)
	case ObjectKind:
		return len(v.obj.keys)
	}
	return 0
}

// Index returns the i-th array item, or null when out of range.
func (v Value) Index(i int) Value {
	if v.kind != ArrayKind || i < 0 || i >= len(v.items) {
		return Value{}
	}
	return v.items[i]
}

// Items returns a copy of the array items.
func (v Value) Items() []Value {
	if v.kind != ArrayKind {
		return nil
	}
	cp := make([]Value, len(v.items))
	copy(cp, v.items)
	return cp
}

// Keys returns object keys in insertion order.
func (v Value) Keys() []string {
	if v.kind != ObjectKind {
		return nil
	}
	cp := make([]string, len(v.obj.keys))
	copy(cp, v.obj.keys)
	return cp
}

// Get returns the member stored under key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != ObjectKind {
		return Value{}, false
	}
	f, ok := v.obj.fields[key]
	return f, ok
}

// Lookup walks path through objects and arrays.
func (v Value) Lookup(path Path) (Value, bool) {
	cur := v
	for _, seg := range path {
		switch cur.kind {
		case ObjectKind:
			next, ok := cur.obj.fields[seg]
			if !ok {
				return Value{}, false
			}
			cur = next
		case ArrayKind:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(cur.items) {
				return Value{}, false
			}
			cur = cur.items[i]
		default:
			return Value{}, false
		}
	}
	return cur, true
}

// Same reports whether a and b are the same node: the same object or the same
// array backing store. Scalars are compared by value.
func Same(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case ObjectKind:
		return a.obj == b.obj
	case ArrayKind:
		if len(a.items) != len(b.items) {
			return false
		}
		if len(a.items) == 0 {
			return true
		}
		return &a.items[0] == &b.items[0]
	}
	return Equal(a, b)
}

func (v Value) withField(key string, child Value) Value {
	o := &object{fields: make(map[string]Value, len(v.obj.keys)+1)}
	o.keys = make([]string, len(v.obj.keys), len(v.obj.keys)+1)
	copy(o.keys, v.obj.keys)
	for k, f := range v.obj.fields {
		o.fields[k] = f
	}
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = child
	return Value{kind: ObjectKind, obj: o}
}

func (v Value) withoutField(key string) Value {
	if _, ok := v.obj.fields[key]; !ok {
		return v
	}
	o := &object{keys: make([]string, 0, len(v.obj.keys)-1), fields: make(map[string]Value, len(v.obj.keys)-1)}
	for _, k := range v.obj.keys {
		if k == key {
			continue
		}
		o.keys = append(o.keys, k)
		o.fields[k] = v.obj.fields[k]
	}
	return Value{kind: ObjectKind, obj: o}
}

func (v Value) withItem(i int, child Value) Value {
	cp := make([]Value, len(v.items))
	copy(cp, v.items)
	cp[i] = child
	return Value{kind: ArrayKind, items: cp}
}
