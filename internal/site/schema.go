// Package site describes the shape of the site documents. The types here are
// used to inspect and validate snapshots; writes always go through jsontree
// paths so fields this package does not know about survive untouched.
package site

import "sort"

// Content is the branding and page metadata document.
type Content struct {
	Site     SiteInfo            `json:"site"`
	Branding Branding            `json:"branding"`
	Pages    map[string]PageMeta `json:"pages,omitempty" validate:"dive"`
}

type SiteInfo struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty" validate:"omitempty,url"`
}

type Branding struct {
	Colors map[string]string `json:"colors,omitempty" validate:"dive,keys,required,endkeys,hexcolor"`
	Fonts  Fonts             `json:"fonts"`
	Navbar Bar               `json:"navbar"`
	Footer Bar               `json:"footer"`
	// Logo is a registry path, copied by value.
	Logo string `json:"logo,omitempty"`
}

type Fonts struct {
	Heading string `json:"heading,omitempty"`
	Body    string `json:"body,omitempty"`
}

// Bar holds the navbar or footer settings.
type Bar struct {
	Height     string `json:"height,omitempty" validate:"omitempty,cssheight"`
	Background string `json:"background,omitempty" validate:"omitempty,hexcolor"`
}

type PageMeta struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
}

// PagesDocument maps page keys to pages and carries the asset registries.
type PagesDocument struct {
	Pages map[string]Page `json:"pages" validate:"dive"`
	Logos Registry        `json:"logos,omitempty" validate:"dive"`
	Icons Registry        `json:"icons,omitempty" validate:"dive"`
}

type Page struct {
	Title       string        `json:"title" validate:"required"`
	Show        bool          `json:"show"`
	Order       int           `json:"order" validate:"gte=0"`
	Description string        `json:"description,omitempty"`
	Navbar      *bool         `json:"navbar,omitempty"`
	Footer      *bool         `json:"footer,omitempty"`
	Sections    []PageSection `json:"sections" validate:"dive"`
}

// PageSection places a Section on a page. Name refers to Section.Name; the
// page does not own the section.
type PageSection struct {
	Name  string         `json:"name" validate:"required"`
	Props map[string]any `json:"props,omitempty"`
	Show  bool           `json:"show"`
	Order int            `json:"order" validate:"gte=0"`
}

// Registry maps a registry key to an asset reference.
type Registry map[string]RegistryEntry

// RegistryEntry points at an asset. Path is the only place its location is
// recorded; other documents copy the path string and are not updated when
// the entry changes.
type RegistryEntry struct {
	Type        string `json:"type" validate:"required"`
	Path        string `json:"path" validate:"required,assetpath"`
	Description string `json:"description,omitempty"`
}

// Section is one entry of the sections document. Name is unique within the
// document.
type Section struct {
	Name       string      `json:"name" validate:"required"`
	Components []Component `json:"components"`
}

// DanglingSectionRefs lists page sections whose name matches no section, as
// "<page>/<name>".
func DanglingSectionRefs(pages PagesDocument, sections []Section) []string {
	known := make(map[string]bool, len(sections))
	for _, s := range sections {
		known[s.Name] = true
	}
	var out []string
	for key, page := range pages.Pages {
		for _, ps := range page.Sections {
			if !known[ps.Name] {
				out = append(out, key+"/"+ps.Name)
			}
		}
	}
	sort.Strings(out)
	return out
}
