package document

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sitecraft/siteadmin/internal/gitstore"
	"github.com/sitecraft/siteadmin/internal/jsontree"
	"github.com/sitecraft/siteadmin/internal/site"
)

// Snapshot is one stored version of a site document. SHA is the git blob hash
// of Data, whichever backend stores it.
type Snapshot struct {
	Kind      site.Kind       `json:"kind"`
	Data      json.RawMessage `json:"data"`
	SHA       string          `json:"sha"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ComputeSHA returns the version token for data.
func ComputeSHA(data []byte) string {
	return gitstore.BlobSHA(data)
}

// FileName is where a document lives in the git backend.
func FileName(kind site.Kind) string {
	return "data/" + kind.String() + ".json"
}

// Normalize checks that data is a single JSON value of the right shape for
// kind and re-indents it with two spaces and a trailing newline. Key order is
// kept as written.
func Normalize(kind site.Kind, data []byte) ([]byte, error) {
	v, err := jsontree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	want := jsontree.ObjectKind
	if kind == site.KindSections {
		want = jsontree.ArrayKind
	}
	if v.Kind() != want {
		return nil, fmt.Errorf("%s must be a JSON %s, got %s", kind, want, v.Kind())
	}
	out, err := jsontree.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

var defaults = map[site.Kind]string{
	site.KindContent: `{
  "site": {"name": "", "description": ""},
  "branding": {
    "colors": {"primary": "#1f2937", "secondary": "#f59e0b"},
    "fonts": {"heading": "Inter", "body": "Inter"},
    "navbar": {"height": "64px", "background": "#ffffff"},
    "footer": {"height": "80px", "background": "#111827"}
  },
  "pages": {"home": {"title": "Home"}}
}`,
	site.KindPages: `{
  "pages": {"home": {"title": "Home", "show": true, "order": 0, "sections": []}},
  "logos": {},
  "icons": {}
}`,
	site.KindSections: `[]`,
}

// DefaultSnapshot returns the seed written for kind when a store is empty.
func DefaultSnapshot(kind site.Kind) []byte {
	out, err := Normalize(kind, []byte(defaults[kind]))
	if err != nil {
		panic(err)
	}
	return out
}
