package transform

import (
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2/css"

	"github.com/yacobolo/csstokens/internal/cssparse"
	"github.com/yacobolo/csstokens/internal/match"
	"github.com/yacobolo/csstokens/internal/tokens"
)

// colorProperties carry a color at the top level of their value.
var colorProperties = map[string]bool{
	"color":                 true,
	"background":            true,
	"background-color":      true,
	"border":                true,
	"border-color":          true,
	"border-top":            true,
	"border-right":          true,
	"border-bottom":         true,
	"border-left":           true,
	"border-top-color":      true,
	"border-right-color":    true,
	"border-bottom-color":   true,
	"border-left-color":     true,
	"border-block":          true,
	"border-inline":         true,
	"border-block-color":    true,
	"border-inline-color":   true,
	"outline":               true,
	"outline-color":         true,
	"fill":                  true,
	"stroke":                true,
	"caret-color":           true,
	"accent-color":          true,
	"text-decoration":       true,
	"text-decoration-color": true,
	"column-rule":           true,
	"column-rule-color":     true,
	"stop-color":            true,
	"flood-color":           true,
	"lighting-color":        true,
	"scrollbar-color":       true,
}

// Colors rewrites hex colors to color role tokens. Gradient stops are
// nested inside functions and left to the gradient stage.
type Colors struct{}

// Name implements Stage.
func (Colors) Name() string { return "colors" }

// Transform implements Stage.
func (Colors) Transform(in *Input) (StageResult, error) {
	r := newRewriter(in)
	nearMisses := make(map[string]string)
	unmatched := 0

	for _, d := range r.decls() {
		if !colorProperties[d.Property] {
			continue
		}

		var refs []tokens.Ref
		after, changed := cssparse.MapTopLevel(d.Value, func(tok cssparse.Token) (string, bool) {
			if tok.Type != css.HashToken {
				return "", false
			}
			if _, ok := match.NormalizeHex(tok.Data); !ok {
				return "", false
			}
			ref, ok := in.Matcher.Color(tok.Data)
			if !ok {
				unmatched++
				if near, _, ok := in.Matcher.NearestColor(tok.Data); ok {
					nearMisses[strings.ToLower(tok.Data)] = near.Var()
				}
				return "", false
			}
			refs = appendRef(refs, ref)
			return ref.String(), true
		})
		if changed {
			r.replace(d, ChangeColor, after, refs)
		}
	}

	res := r.result()
	for hex, v := range nearMisses {
		res.Recommendations = append(res.Recommendations, Recommendation{
			Stage:    "colors",
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("%s is close to %s but not identical; use the token if the difference is unintended", hex, v),
		})
	}
	if unmatched >= 5 {
		res.Recommendations = append(res.Recommendations, Recommendation{
			Stage:    "colors",
			Severity: SeverityWarning,
			Message:  "many hardcoded colors have no matching token; consider extending colors.roles",
			Count:    unmatched,
		})
	}
	sortRecommendations(res.Recommendations)
	return res, nil
}

func isSpacingProperty(p string) bool {
	switch p {
	case "margin", "padding", "gap", "row-gap", "column-gap", "grid-gap",
		"grid-row-gap", "grid-column-gap", "inset":
		return true
	}
	return strings.HasPrefix(p, "margin-") ||
		strings.HasPrefix(p, "padding-") ||
		strings.HasPrefix(p, "inset-") ||
		strings.HasPrefix(p, "scroll-margin") ||
		strings.HasPrefix(p, "scroll-padding")
}

func isRadiusProperty(p string) bool {
	return strings.HasPrefix(p, "border") && strings.HasSuffix(p, "radius")
}

// Spacing rewrites spacing and radius lengths to tokens within tolerance.
// Every length of a shorthand is matched independently and the declaration
// yields one change.
type Spacing struct{}

// Name implements Stage.
func (Spacing) Name() string { return "spacing" }

// Transform implements Stage.
func (Spacing) Transform(in *Input) (StageResult, error) {
	r := newRewriter(in)
	unmatched := 0

	for _, d := range r.decls() {
		var (
			resolve func(string) (tokens.Ref, bool)
			typ     string
		)
		switch {
		case isSpacingProperty(d.Property):
			resolve, typ = in.Matcher.Spacing, ChangeSpacing
		case isRadiusProperty(d.Property):
			resolve, typ = in.Matcher.Radius, ChangeRadius
		default:
			continue
		}

		var refs []tokens.Ref
		after, changed := cssparse.MapTopLevel(d.Value, func(tok cssparse.Token) (string, bool) {
			if tok.Type != css.DimensionToken {
				return "", false
			}
			ref, ok := resolve(tok.Data)
			if !ok {
				unmatched++
				return "", false
			}
			refs = appendRef(refs, ref)
			return ref.String(), true
		})
		if changed {
			r.replace(d, typ, after, refs)
		}
	}

	res := r.result()
	if unmatched >= 10 {
		res.Recommendations = append(res.Recommendations, Recommendation{
			Stage:    "spacing",
			Severity: SeverityInfo,
			Message:  "many spacing values fall outside the token scale",
			Count:    unmatched,
		})
	}
	return res, nil
}

// Shadows rewrites box-shadow values that equal an elevation token.
type Shadows struct{}

// Name implements Stage.
func (Shadows) Name() string { return "shadows" }

// Transform implements Stage.
func (Shadows) Transform(in *Input) (StageResult, error) {
	r := newRewriter(in)
	for _, d := range r.decls() {
		if d.Property != "box-shadow" {
			continue
		}
		ref, ok := in.Matcher.Elevation(d.Value)
		if !ok {
			continue
		}
		r.replace(d, ChangeElevation, ref.String(), []tokens.Ref{ref})
	}
	return r.result(), nil
}
