package jsontree

import "strconv"

// Diff returns the edits that turn from into to: ApplyEdits(from, Diff(from, to))
// is Equal to to. Objects are compared member by member and arrays of equal
// length item by item, so edits stay as narrow as possible. Arrays that grew
// or shrank and scalars are replaced as a whole.
func Diff(from, to Value) []Edit {
	var out []Edit
	diff(Path{}, from, to, &out)
	return out
}

func diff(path Path, from, to Value, out *[]Edit) {
	if Equal(from, to) {
		return
	}
	switch {
	case from.kind == ObjectKind && to.kind == ObjectKind:
		diffObject(path, from, to, out)
	case from.kind == ArrayKind && to.kind == ArrayKind && len(from.items) == len(to.items):
		for i := range to.items {
			diff(path.Child(strconv.Itoa(i)), from.items[i], to.items[i], out)
		}
	default:
		*out = append(*out, SetEdit(path.Child(), to))
	}
}

func diffObject(path Path, from, to Value, out *[]Edit) {
	for _, k := range to.obj.keys {
		tv := to.obj.fields[k]
		fv, ok := from.obj.fields[k]
		if !ok {
			*out = append(*out, SetEdit(path.Child(k), tv))
			continue
		}
		diff(path.Child(k), fv, tv, out)
	}
	for _, k := range from.obj.keys {
		if _, ok := to.obj.fields[k]; !ok {
			*out = append(*out, UnsetEdit(path.Child(k)))
		}
	}
}
