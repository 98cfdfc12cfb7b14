package jsontree

import (
	"math/big"
	"strconv"
)

// Equal reports deep structural equality. Object key order is ignored, array
// order is significant and numbers compare by numeric value.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case NullKind:
		return true
	case BoolKind:
		return a.b == b.b
	case NumberKind:
		return numbersEqual(string(a.num), string(b.num))
	case StringKind:
		return a.str == b.str
	case ArrayKind:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case ObjectKind:
		if a.obj == b.obj {
			return true
		}
		if len(a.obj.fields) != len(b.obj.fields) {
			return false
		}
		for k, av := range a.obj.fields {
			bv, ok := b.obj.fields[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

func numbersEqual(a, b string) bool {
	if a == b {
		return true
	}
	// exact decimal comparison keeps integers beyond 2^53 apart
	if ra, ok := new(big.Rat).SetString(a); ok {
		if rb, ok := new(big.Rat).SetString(b); ok {
			return ra.Cmp(rb) == 0
		}
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && fa == fb
}
