package site

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sitecraft/siteadmin/internal/jsontree"
	"github.com/sitecraft/siteadmin/internal/syncerr"
)

var cssHeightPattern = regexp.MustCompile(`^(auto|0|\d+(\.\d+)?(px|rem|em|vh|%))$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cssheight", func(fl validator.FieldLevel) bool {
		return cssHeightPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("assetpath", func(fl validator.FieldLevel) bool {
		return ValidAssetPath(fl.Field().String())
	})
	return v
}

// ValidAssetPath accepts relative, clean, slash-separated paths.
func ValidAssetPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	return path.Clean(p) == p && p != "." && !strings.HasPrefix(p, "../") && p != ".."
}

// DecodeContent decodes a content snapshot.
func DecodeContent(v jsontree.Value) (Content, error) {
	var c Content
	if v.Kind() != jsontree.ObjectKind {
		return c, &syncerr.ValidationError{Field: "content", Reason: "must be an object"}
	}
	if err := jsontree.Decode(v, &c); err != nil {
		return c, &syncerr.ValidationError{Field: "content", Reason: err.Error()}
	}
	return c, nil
}

// DecodePages decodes a pages snapshot.
func DecodePages(v jsontree.Value) (PagesDocument, error) {
	var p PagesDocument
	if v.Kind() != jsontree.ObjectKind {
		return p, &syncerr.ValidationError{Field: "pages", Reason: "must be an object"}
	}
	if err := jsontree.Decode(v, &p); err != nil {
		return p, &syncerr.ValidationError{Field: "pages", Reason: err.Error()}
	}
	return p, nil
}

// DecodeSections decodes a sections snapshot.
func DecodeSections(v jsontree.Value) ([]Section, error) {
	var s []Section
	if v.Kind() != jsontree.ArrayKind {
		return nil, &syncerr.ValidationError{Field: "sections", Reason: "must be an array"}
	}
	if err := jsontree.Decode(v, &s); err != nil {
		return nil, &syncerr.ValidationError{Field: "sections", Reason: err.Error()}
	}
	return s, nil
}

// Validate checks a snapshot of the given kind. It returns the first problem
// as a *syncerr.ValidationError.
func Validate(kind Kind, v jsontree.Value) error {
	switch kind {
	case KindContent:
		c, err := DecodeContent(v)
		if err != nil {
			return err
		}
		return validationError(validate.Struct(c))
	case KindPages:
		p, err := DecodePages(v)
		if err != nil {
			return err
		}
		return validationError(validate.Struct(p))
	case KindSections:
		sections, err := DecodeSections(v)
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(sections))
		for i, s := range sections {
			if err := validate.Struct(s); err != nil {
				return validationError(err)
			}
			if seen[s.Name] {
				return &syncerr.ValidationError{Field: fmt.Sprintf("sections[%d].name", i), Value: s.Name, Reason: "duplicate section name"}
			}
			seen[s.Name] = true
		}
		return nil
	}
	return fmt.Errorf("unknown document kind %q", kind)
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		return &syncerr.ValidationError{Field: field, Value: fmt.Sprint(fe.Value()), Reason: reason(fe.Tag(), fe.Param())}
	}
	return &syncerr.ValidationError{Field: "document", Reason: err.Error()}
}

func checkVar(field, value, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &syncerr.ValidationError{Field: field, Value: value, Reason: reason(verrs[0].Tag(), verrs[0].Param())}
		}
		return &syncerr.ValidationError{Field: field, Value: value, Reason: err.Error()}
	}
	return nil
}

func reason(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "hexcolor":
		return "must be a hex color such as #1a2b3c"
	case "cssheight":
		return "must be a CSS height such as 64px, 4rem or auto"
	case "assetpath":
		return "must be a relative, clean asset path"
	case "url":
		return "must be an absolute URL"
	case "oneof":
		return "must be one of " + param
	case "gte":
		return "must be at least " + param
	}
	return "failed " + tag
}
