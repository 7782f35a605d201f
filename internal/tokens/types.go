// Package tokens models a design token set: the named semantic values that
// literal CSS values are rewritten to reference.
package tokens

import (
	"sort"

	"github.com/gosimple/slug"
	"github.com/maruel/natural"
)

// Category identifies which stage consumes a group and which CSS variable
// prefix its tokens are exposed under.
type Category string

// Token categories. The string value doubles as the CSS variable prefix.
const (
	CategoryColor      Category = "color"
	CategorySpacing    Category = "spacing"
	CategoryRadius     Category = "radius"
	CategoryShadow     Category = "shadow"
	CategoryFontSize   Category = "font-size"
	CategoryLineHeight Category = "line-height"
	CategoryFontWeight Category = "font-weight"
	CategoryFontFamily Category = "font-family"
	CategoryDuration   Category = "duration"
	CategoryEasing     Category = "easing"
	CategoryAnimation  Category = "animation"
	CategoryGradient   Category = "gradient"
)

// Categories lists every category in fingerprint and validation order.
var Categories = []Category{
	CategoryColor,
	CategorySpacing,
	CategoryRadius,
	CategoryShadow,
	CategoryFontSize,
	CategoryLineHeight,
	CategoryFontWeight,
	CategoryFontFamily,
	CategoryDuration,
	CategoryEasing,
	CategoryAnimation,
	CategoryGradient,
}

// Value is a token leaf. A scalar leaf only sets Value; themed leaves carry
// light and dark variants as well.
type Value struct {
	Value string
	Light string
	Dark  string
}

// Primary returns the value used for matching: Value, falling back to Light.
func (v Value) Primary() string {
	if v.Value != "" {
		return v.Value
	}
	return v.Light
}

// Variants returns the non-empty distinct values of the leaf, primary first.
func (v Value) Variants() []string {
	out := make([]string, 0, 3)
	for _, s := range []string{v.Primary(), v.Light, v.Dark} {
		if s == "" || containsString(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Entry is a single named token.
type Entry struct {
	Name  string
	Value Value
}

// Group is an ordered list of tokens. Order is significant: tolerance
// matching returns the first candidate in group order.
type Group []Entry

// Find returns the entry whose slugged name equals the slugged name given.
func (g Group) Find(name string) (Entry, bool) {
	want := Slug(name)
	for _, e := range g {
		if Slug(e.Name) == want {
			return e, true
		}
	}
	return Entry{}, false
}

// Names returns the entry names in group order.
func (g Group) Names() []string {
	names := make([]string, len(g))
	for i, e := range g {
		names[i] = e.Name
	}
	return names
}

// GroupFromMap builds a group from a plain map. Map iteration order is
// random, so entries are sorted naturally ("2xl" before "10xl").
func GroupFromMap(m map[string]string) Group {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return natural.Less(names[i], names[j]) })

	g := make(Group, 0, len(names))
	for _, name := range names {
		g = append(g, Entry{Name: name, Value: Value{Value: m[name]}})
	}
	return g
}

// Colors holds color roles (colors.roles).
type Colors struct {
	Roles Group
}

// Spacing holds spacing tokens (spacing.tokens).
type Spacing struct {
	Tokens Group
}

// Typography holds the typography vocabularies.
type Typography struct {
	FontSizes    Group `yaml:"fontSizes"`
	LineHeights  Group `yaml:"lineHeights"`
	FontWeights  Group `yaml:"fontWeights"`
	FontFamilies Group `yaml:"fontFamilies"`
}

// Animations holds easing curves, durations and named animation presets.
type Animations struct {
	Easing   Group `yaml:"easing"`
	Duration Group `yaml:"duration"`
	Presets  Group `yaml:"presets"`
}

// States holds per-state declarations. Entry names are CSS property names.
type States struct {
	Hover    Group `yaml:"hover"`
	Focus    Group `yaml:"focus"`
	Active   Group `yaml:"active"`
	Disabled Group `yaml:"disabled"`
	Loading  Group `yaml:"loading"`
}

// Set is the full token vocabulary for one brand. It is treated as
// immutable for the duration of a pipeline run.
type Set struct {
	Name       string     `yaml:"name"`
	Colors     Colors     `yaml:"colors"`
	Spacing    Spacing    `yaml:"spacing"`
	Radii      Group      `yaml:"radii"`
	Elevation  Group      `yaml:"elevation"`
	Typography Typography `yaml:"typography"`
	Animations Animations `yaml:"animations"`
	States     States     `yaml:"states"`
	Gradients  Group      `yaml:"gradients"`
}

// Group returns the group backing a category.
func (s *Set) Group(c Category) Group {
	if s == nil {
		return nil
	}
	switch c {
	case CategoryColor:
		return s.Colors.Roles
	case CategorySpacing:
		return s.Spacing.Tokens
	case CategoryRadius:
		return s.Radii
	case CategoryShadow:
		return s.Elevation
	case CategoryFontSize:
		return s.Typography.FontSizes
	case CategoryLineHeight:
		return s.Typography.LineHeights
	case CategoryFontWeight:
		return s.Typography.FontWeights
	case CategoryFontFamily:
		return s.Typography.FontFamilies
	case CategoryDuration:
		return s.Animations.Duration
	case CategoryEasing:
		return s.Animations.Easing
	case CategoryAnimation:
		return s.Animations.Presets
	case CategoryGradient:
		return s.Gradients
	}
	return nil
}

// Lookup reports whether the referenced token exists in the set.
func (s *Set) Lookup(ref Ref) bool {
	_, ok := s.Group(ref.Category).Find(ref.Name)
	return ok
}

// Len returns the total number of tokens across all categories.
func (s *Set) Len() int {
	n := 0
	for _, c := range Categories {
		n += len(s.Group(c))
	}
	return n
}

// Ref points at one token.
type Ref struct {
	Category Category `json:"category"`
	Name     string   `json:"name"`
}

// Var returns the custom property name, e.g. "--spacing-md".
func (r Ref) Var() string {
	return "--" + string(r.Category) + "-" + Slug(r.Name)
}

// String returns the var() reference, e.g. "var(--spacing-md)".
func (r Ref) String() string {
	return "var(" + r.Var() + ")"
}

// WithFallback returns a var() reference carrying a literal fallback.
func (r Ref) WithFallback(fallback string) string {
	if fallback == "" {
		return r.String()
	}
	return "var(" + r.Var() + ", " + fallback + ")"
}

// Slug normalizes a token name for use in a custom property name.
func Slug(name string) string {
	return slug.Make(name)
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
