package site

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sitecraft/siteadmin/internal/jsontree"
	"github.com/sitecraft/siteadmin/internal/syncerr"
)

// Bars that carry a height and a background.
const (
	BarNavbar = "navbar"
	BarFooter = "footer"
)

// Registries of the pages document.
const (
	RegistryLogos = "logos"
	RegistryIcons = "icons"
)

// BrandColor sets branding.colors.<name> in the content document.
func BrandColor(name, color string) (jsontree.Edit, error) {
	if strings.TrimSpace(name) == "" || strings.Contains(name, ".") {
		return jsontree.Edit{}, &syncerr.ValidationError{Field: "branding.colors", Value: name, Reason: "color name must be a non-empty key without dots"}
	}
	field := "branding.colors." + name
	if err := checkVar(field, color, "required,hexcolor"); err != nil {
		return jsontree.Edit{}, err
	}
	return jsontree.SetEdit(jsontree.Path{"branding", "colors", name}, jsontree.NewString(color)), nil
}

// BarHeight sets branding.<bar>.height in the content document.
func BarHeight(bar, height string) (jsontree.Edit, error) {
	if err := checkBar(bar); err != nil {
		return jsontree.Edit{}, err
	}
	if err := checkVar("branding."+bar+".height", height, "required,cssheight"); err != nil {
		return jsontree.Edit{}, err
	}
	return jsontree.SetEdit(jsontree.Path{"branding", bar, "height"}, jsontree.NewString(height)), nil
}

// BarBackground sets branding.<bar>.background in the content document.
func BarBackground(bar, color string) (jsontree.Edit, error) {
	if err := checkBar(bar); err != nil {
		return jsontree.Edit{}, err
	}
	if err := checkVar("branding."+bar+".background", color, "required,hexcolor"); err != nil {
		return jsontree.Edit{}, err
	}
	return jsontree.SetEdit(jsontree.Path{"branding", bar, "background"}, jsontree.NewString(color)), nil
}

func checkBar(bar string) error {
	if bar != BarNavbar && bar != BarFooter {
		return &syncerr.ValidationError{Field: "branding", Value: bar, Reason: "bar must be navbar or footer"}
	}
	return nil
}

// PageTitle sets pages.<key>.title. The path is the same in the content and
// pages documents.
func PageTitle(key, title string) (jsontree.Edit, error) {
	if err := checkKey("pages", key); err != nil {
		return jsontree.Edit{}, err
	}
	if err := checkVar("pages."+key+".title", title, "required"); err != nil {
		return jsontree.Edit{}, err
	}
	return jsontree.SetEdit(jsontree.Path{"pages", key, "title"}, jsontree.NewString(title)), nil
}

// PageVisibility sets pages.<key>.show in the pages document.
func PageVisibility(key string, show bool) (jsontree.Edit, error) {
	if err := checkKey("pages", key); err != nil {
		return jsontree.Edit{}, err
	}
	return jsontree.SetEdit(jsontree.Path{"pages", key, "show"}, jsontree.NewBool(show)), nil
}

// RegistryEntryEdit stores entry under <registry>.<key> in the pages document.
func RegistryEntryEdit(registry, key string, entry RegistryEntry) (jsontree.Edit, error) {
	if registry != RegistryLogos && registry != RegistryIcons {
		return jsontree.Edit{}, &syncerr.ValidationError{Field: "registry", Value: registry, Reason: "must be logos or icons"}
	}
	if err := checkKey(registry, key); err != nil {
		return jsontree.Edit{}, err
	}
	if err := validate.Struct(entry); err != nil {
		verr := validationError(err).(*syncerr.ValidationError)
		verr.Field = registry + "." + key + "." + verr.Field
		return jsontree.Edit{}, verr
	}
	v, err := jsontree.FromGo(entry)
	if err != nil {
		return jsontree.Edit{}, err
	}
	return jsontree.SetEdit(jsontree.Path{registry, key}, v), nil
}

// SectionComponentEdit stores part in component index of the section called
// name. sections is the current sections document; the edit addresses the
// section by position, so it must be applied to that same snapshot. Members
// of the existing part that the typed struct does not declare are kept.
func SectionComponentEdit(sections jsontree.Value, name string, index int, part Part) (jsontree.Edit, error) {
	pos := -1
	for i, item := range sections.Items() {
		if n, ok := item.Get("name"); ok {
			if s, _ := n.AsString(); s == name {
				pos = i
				break
			}
		}
	}
	if pos < 0 {
		return jsontree.Edit{}, syncerr.NotFound("edit section", "sections/"+name)
	}
	path := jsontree.Path{strconv.Itoa(pos), "components", strconv.Itoa(index)}
	existing, ok := sections.Lookup(path)
	if !ok {
		return jsontree.Edit{}, &syncerr.ValidationError{
			Field:  fmt.Sprintf("sections[%d].components", pos),
			Value:  strconv.Itoa(index),
			Reason: "component index out of range",
		}
	}
	var comp Component
	raw, err := existing.MarshalJSON()
	if err != nil {
		return jsontree.Edit{}, err
	}
	if err := json.Unmarshal(raw, &comp); err != nil {
		return jsontree.Edit{}, &syncerr.ValidationError{Field: path.String(), Reason: err.Error()}
	}
	comp, err = comp.WithPart(part)
	if err != nil {
		return jsontree.Edit{}, err
	}
	v, err := jsontree.FromGo(comp)
	if err != nil {
		return jsontree.Edit{}, err
	}
	return jsontree.SetEdit(path, v), nil
}

func checkKey(field, key string) error {
	if strings.TrimSpace(key) == "" || strings.Contains(key, ".") {
		return &syncerr.ValidationError{Field: field, Value: key, Reason: "key must be non-empty and contain no dots"}
	}
	return nil
}
