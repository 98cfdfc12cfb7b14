package site

import "fmt"

// Kind names one of the versioned site documents.
type Kind string

const (
	KindContent  Kind = "content"
	KindPages    Kind = "pages"
	KindSections Kind = "sections"
)

// Kinds lists every document kind in a stable order.
var Kinds = []Kind{KindContent, KindPages, KindSections}

func (k Kind) Valid() bool {
	switch k {
	case KindContent, KindPages, KindSections:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown document kind %q (want content, pages or sections)", s)
	}
	return k, nil
}
