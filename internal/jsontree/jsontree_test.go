package jsontree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pagesDoc = `{
	"pages": {
		"home": {"title": "Home", "show": true, "order": 1, "sections": [{"name": "hero", "show": true}]},
		"about": {"title": "About", "show": false, "order": 2, "sections": []}
	},
	"logos": {"primary-1": {"type": "primary", "path": "assets/logos/logo-primary-1.svg", "description": "main"}},
	"footer": {"height": "64px"}
}`

func TestParsePreservesKeyOrder(t *testing.T) {
	v := MustParse(`{"b":1,"a":{"z":true,"y":null},"c":[3,2,1]}`)
	require.Equal(t, ObjectKind, v.Kind())
	assert.Equal(t, []string{"b", "a", "c"}, v.Keys())

	out, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":{"z":true,"y":null},"c":[3,2,1]}`, string(out))
}

func TestParseRejectsTrailingData(t *testing.T) {
	_, err := Parse([]byte(`{"a":1} {"b":2}`))
	require.Error(t, err)

	_, err = Parse([]byte(``))
	require.Error(t, err)
}

func TestStringsAreNotHTMLEscaped(t *testing.T) {
	v := NewObject(Field("href", NewString("/a?x=1&y=<2>")))
	out, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"href":"/a?x=1&y=<2>"}`, string(out))
}

func TestEqualIgnoresKeyOrderButNotArrayOrder(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want bool
	}{
		{"same", `{"a":1,"b":2}`, `{"a":1,"b":2}`, true},
		{"key order", `{"a":1,"b":{"x":1,"y":2}}`, `{"b":{"y":2,"x":1},"a":1}`, true},
		{"array order", `[1,2,3]`, `[3,2,1]`, false},
		{"number forms", `{"n":1}`, `{"n":1.0}`, true},
		{"extra key", `{"a":1}`, `{"a":1,"b":null}`, false},
		{"kind change", `{"a":"1"}`, `{"a":1}`, false},
		{"nested array", `{"a":[{"x":1}]}`, `{"a":[{"x":2}]}`, false},
		{"null vs missing object", `null`, `{}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Equal(MustParse(tc.a), MustParse(tc.b)))
			assert.Equal(t, tc.want, Equal(MustParse(tc.b), MustParse(tc.a)))
		})
	}
}

func TestSetCreatesIntermediateObjects(t *testing.T) {
	base := MustParse(`{"branding":{"colors":{"primary":"#000000"}}}`)

	out, err := Set(base, ParsePath("branding.navbar.height"), NewString("72px"))
	require.NoError(t, err)

	got, ok := out.Lookup(ParsePath("branding.navbar.height"))
	require.True(t, ok)
	assert.Equal(t, `"72px"`, got.String())

	// base is untouched
	_, ok = base.Lookup(ParsePath("branding.navbar"))
	assert.False(t, ok)
}

func TestSetSharesUntouchedSubtrees(t *testing.T) {
	base := MustParse(pagesDoc)

	out, err := Set(base, ParsePath("pages.home.title"), NewString("Welcome"))
	require.NoError(t, err)

	baseLogos, _ := base.Get("logos")
	outLogos, _ := out.Get("logos")
	assert.True(t, Same(baseLogos, outLogos), "sibling subtree must be shared")

	baseAbout, _ := base.Lookup(ParsePath("pages.about"))
	outAbout, _ := out.Lookup(ParsePath("pages.about"))
	assert.True(t, Same(baseAbout, outAbout))

	baseHome, _ := base.Lookup(ParsePath("pages.home"))
	outHome, _ := out.Lookup(ParsePath("pages.home"))
	assert.False(t, Same(baseHome, outHome), "nodes on the path are copied")

	baseSections, _ := baseHome.Get("sections")
	outSections, _ := outHome.Get("sections")
	assert.True(t, Same(baseSections, outSections))
}

func TestSetTraversesExistingArrays(t *testing.T) {
	base := MustParse(`[{"name":"hero","components":[{"heading":{"text":"Hi"}}]}]`)

	out, err := Set(base, Path{"0", "components", "0", "heading", "text"}, NewString("Hello"))
	require.NoError(t, err)
	got, _ := out.Lookup(Path{"0", "components", "0", "heading", "text"})
	assert.Equal(t, `"Hello"`, got.String())

	_, err = Set(base, Path{"3", "name"}, NewString("x"))
	require.Error(t, err)
	_, err = Set(base, Path{"first", "name"}, NewString("x"))
	require.Error(t, err)
}

func TestUnset(t *testing.T) {
	base := MustParse(`{"a":{"b":1,"c":2}}`)

	out, err := Unset(base, Path{"a", "b"})
	require.NoError(t, err)
	assert.True(t, Equal(MustParse(`{"a":{"c":2}}`), out))

	same, err := Unset(base, Path{"missing", "b"})
	require.NoError(t, err)
	assert.True(t, Same(base, same))

	_, err = Unset(MustParse(`{"a":[1,2]}`), Path{"a", "0"})
	require.Error(t, err)
}

func TestApplyEditsDisjointPathsOnlyChangeThosePaths(t *testing.T) {
	base := MustParse(pagesDoc)
	edits := []Edit{
		SetEdit(ParsePath("pages.home.title"), NewString("Welcome")),
		SetEdit(ParsePath("footer.height"), NewString("80px")),
		SetEdit(ParsePath("branding.colors.accent"), NewString("#ff8800")),
	}

	out, err := ApplyEdits(base, edits)
	require.NoError(t, err)

	changes := Diff(base, out)
	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		paths = append(paths, c.Path.String())
	}
	assert.ElementsMatch(t, []string{"pages.home.title", "footer.height", "branding"}, paths)

	again, err := ApplyEdits(out, edits)
	require.NoError(t, err)
	assert.True(t, Equal(out, again), "re-applying the same edits is idempotent")
}

func TestApplyEditsLaterEditWins(t *testing.T) {
	base := MustParse(`{}`)
	out, err := ApplyEdits(base, []Edit{
		SetEdit(ParsePath("a.b"), NewInt(1)),
		SetEdit(ParsePath("a"), NewString("flat")),
		SetEdit(ParsePath("a.c"), NewInt(2)),
	})
	require.NoError(t, err)
	assert.True(t, Equal(MustParse(`{"a":{"c":2}}`), out))
}

func TestDiffRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		from, to string
	}{
		{"nested change", pagesDoc, `{"pages":{"home":{"title":"Home!","show":true,"order":1,"sections":[{"name":"hero","show":true}]},"about":{"title":"About","show":false,"order":2,"sections":[]}},"logos":{},"footer":{"height":"64px"}}`},
		{"removed key", `{"a":1,"b":2}`, `{"a":1}`},
		{"array reordered", `{"a":[1,2]}`, `{"a":[2,1]}`},
		{"array grown", `{"a":[1,2]}`, `{"a":[1,2,3]}`},
		{"array item field", `[{"name":"a"},{"name":"b"}]`, `[{"name":"a"},{"name":"c","show":false}]`},
		{"root kind change", `{"a":1}`, `[1]`},
		{"identical", `{"a":1}`, `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			from, to := MustParse(tc.from), MustParse(tc.to)
			out, err := ApplyEdits(from, Diff(from, to))
			require.NoError(t, err)
			assert.True(t, Equal(to, out), "got %s", out)
		})
	}
	assert.Empty(t, Diff(MustParse(`{"a":1,"b":2}`), MustParse(`{"b":2,"a":1}`)))
}

func TestDiffNarrowsArrayEdits(t *testing.T) {
	from := MustParse(`{"sections":[{"name":"hero","show":true},{"name":"faq","show":true}]}`)
	to := MustParse(`{"sections":[{"name":"hero","show":false},{"name":"faq","show":true}]}`)
	edits := Diff(from, to)
	require.Len(t, edits, 1)
	assert.Equal(t, "sections.0.show", edits[0].Path.String())

	grown := MustParse(`{"sections":[{"name":"hero","show":true}]}`)
	edits = Diff(from, grown)
	require.Len(t, edits, 1)
	assert.Equal(t, "sections", edits[0].Path.String())
}

func TestEqualComparesLargeIntegersExactly(t *testing.T) {
	assert.False(t, Equal(MustParse(`9007199254740993`), MustParse(`9007199254740992`)))
	assert.True(t, Equal(MustParse(`1.50`), MustParse(`1.5`)))
	assert.True(t, Equal(MustParse(`1e2`), MustParse(`100`)))
	assert.False(t, Equal(MustParse(`{"id":12345678901234567890}`), MustParse(`{"id":12345678901234567891}`)))
}

func TestFromGoAndDecode(t *testing.T) {
	type entry struct {
		Type string `json:"type"`
		Path string `json:"path"`
	}
	v, err := FromGo(entry{Type: "primary", Path: "assets/logos/logo-primary-1.svg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"type", "path"}, v.Keys())

	var back entry
	require.NoError(t, Decode(v, &back))
	assert.Equal(t, "primary", back.Type)
}
