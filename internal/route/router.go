package route

import (
	"sort"
	"strings"
)

// Category is the outcome of classification. Each category owns one template.
type Category string

const (
	CategoryScript  Category = "script"
	CategoryImage   Category = "image"
	CategoryDefault Category = "default"
)

// Rules is the naming policy: one template per category plus the set of
// extensions that make an asset an image.
type Rules struct {
	Script  Template
	Image   Template
	Default Template

	// ImageExtensions are compared case-insensitively, with or without the
	// leading ".".
	ImageExtensions []string
}

// DefaultRules returns the stock policy.
//
// The default bucket is named after stylesheets but receives every non-image
// asset (fonts, audio, ...).
func DefaultRules() Rules {
	return Rules{
		Script:          "js/[name].js",
		Image:           "images/[name][extname]",
		Default:         "css/[name][extname]",
		ImageExtensions: []string{"png", "jpg", "jpeg", "gif", "svg", "ico"},
	}
}

// Router applies a validated Rules value. The zero value is not usable; build
// one with NewRouter.
type Router struct {
	rules  Rules
	images map[string]struct{}
}

var defaultRouter = mustRouter(DefaultRules())

func mustRouter(r Rules) *Router {
	rt, err := NewRouter(r)
	if err != nil {
		panic(err)
	}
	return rt
}

// Default returns the Router for DefaultRules.
func Default() *Router { return defaultRouter }

// NewRouter validates rules and returns an immutable Router.
func NewRouter(rules Rules) (*Router, error) {
	for _, t := range []struct {
		field string
		tmpl  Template
	}{
		{"script", rules.Script},
		{"image", rules.Image},
		{"default", rules.Default},
	} {
		if err := t.tmpl.Validate(); err != nil {
			return nil, invalidRulef("%s template: %v", t.field, err)
		}
	}

	images := make(map[string]struct{}, len(rules.ImageExtensions))
	for _, ext := range rules.ImageExtensions {
		n := normalizeExt(ext)
		if n == "" {
			return nil, invalidRulef("image extension %q is empty", ext)
		}
		if strings.ContainsAny(n, "./\\") {
			return nil, invalidRulef("image extension %q is not a single extension", ext)
		}
		images[n] = struct{}{}
	}

	exts := make([]string, 0, len(images))
	for e := range images {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	rules.ImageExtensions = exts

	return &Router{rules: rules, images: images}, nil
}

// Rules returns the normalised rules of r.
func (r *Router) Rules() Rules {
	out := r.rules
	out.ImageExtensions = append([]string(nil), r.rules.ImageExtensions...)
	return out
}

// Classify runs the decision table. First match wins:
//  1. entry or dependent script -> script
//  2. extension in the image set -> image
//  3. anything else -> default
func (r *Router) Classify(a Artifact) Category {
	if a.Kind.IsScript() {
		return CategoryScript
	}
	if r.IsImageExtension(a.Extension) {
		return CategoryImage
	}
	return CategoryDefault
}

// IsImageExtension reports whether ext belongs to the image set.
func (r *Router) IsImageExtension(ext string) bool {
	_, ok := r.images[normalizeExt(ext)]
	return ok
}

// Route returns the output path of a, relative to the output directory.
func (r *Router) Route(a Artifact) string {
	return r.Template(r.Classify(a)).Expand(a.LogicalName, routedExt(a))
}

// Template returns the template used for c.
func (r *Router) Template(c Category) Template {
	switch c {
	case CategoryScript:
		return r.rules.Script
	case CategoryImage:
		return r.rules.Image
	default:
		return r.rules.Default
	}
}

// Route applies DefaultRules to a.
func Route(a Artifact) string { return defaultRouter.Route(a) }

func routedExt(a Artifact) string {
	if a.Kind.IsScript() {
		return ""
	}
	return a.Extension
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
