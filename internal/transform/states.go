package transform

import (
	"strings"

	"github.com/yacobolo/csstokens/internal/cssparse"
	"github.com/yacobolo/csstokens/internal/tokens"
)

// States appends interactive state rules for buttons, links, form controls
// and generic components, plus accessibility media queries. It rewrites no
// declarations; each block is appended at most once.
type States struct{}

// Name implements Stage.
func (States) Name() string { return "states" }

// stateDecls holds the declarations of each interaction state.
type stateDecls struct {
	hover, focus, active, disabled, loading []string
}

// Transform implements Stage.
func (s States) Transform(in *Input) (StageResult, error) {
	d := s.declarations(in)
	transition := s.transition(in)

	j := newInjector(in, in.CSS)
	j.add("states-buttons", s.block(transition, d,
		[]string{"button", ".btn"},
		"[aria-disabled=\"true\"]", "[aria-busy=\"true\"]"))
	j.add("states-links", s.links(in, transition, d))
	j.add("states-forms", s.forms(in, transition, d))
	j.add("states-components", s.block(transition, d,
		[]string{".interactive", "[role=\"button\"]"},
		"[aria-disabled=\"true\"]", "[aria-busy=\"true\"]"))
	j.add("states-a11y", s.accessibility())

	return StageResult{CSS: j.css, Changes: j.changes, Injected: j.injected}, nil
}

// declarations merges the token set's state groups over the defaults.
func (States) declarations(in *Input) stateDecls {
	set := in.Tokens
	focusColor := tokenOr(set, tokens.CategoryColor, "focus", tokenOr(set, tokens.CategoryColor, "primary", "currentColor"))

	return stateDecls{
		hover: merge(set.States.Hover,
			"filter", "brightness(0.95)"),
		focus: merge(set.States.Focus,
			"outline", "2px solid "+focusColor,
			"outline-offset", "2px"),
		active: merge(set.States.Active,
			"transform", "translateY(1px)"),
		disabled: merge(set.States.Disabled,
			"opacity", "0.5",
			"cursor", "not-allowed",
			"pointer-events", "none"),
		loading: merge(set.States.Loading,
			"cursor", "progress",
			"opacity", "0.7"),
	}
}

// merge returns property/value pairs: the defaults in order, overridden by
// the group, followed by group entries the defaults lack. Group values that
// could not stand as a declaration value are dropped.
func merge(g tokens.Group, defaults ...string) []string {
	out := append([]string(nil), defaults...)
	for _, e := range g {
		prop := strings.ToLower(strings.TrimSpace(e.Name))
		val := strings.TrimSpace(e.Value.Primary())
		if prop == "" || !cssparse.ValidValue(val) {
			continue
		}
		replaced := false
		for i := 0; i+1 < len(out); i += 2 {
			if out[i] == prop {
				out[i+1] = val
				replaced = true
			}
		}
		if !replaced {
			out = append(out, prop, val)
		}
	}
	return out
}

func (States) transition(in *Input) string {
	dur := tokenOr(in.Tokens, tokens.CategoryDuration, "fast", "150ms")
	ease := tokenOr(in.Tokens, tokens.CategoryEasing, "ease-out", "ease-out")
	parts := make([]string, 0, 5)
	for _, p := range []string{"color", "background-color", "border-color", "box-shadow", "transform"} {
		parts = append(parts, p+" "+dur+" "+ease)
	}
	return strings.Join(parts, ", ")
}

// block renders the state rules for one family of selectors.
func (States) block(transition string, d stateDecls, selectors []string, disabledAttr, busyAttr string) string {
	with := func(suffixes ...string) string {
		var out []string
		for _, sel := range selectors {
			for _, suf := range suffixes {
				out = append(out, sel+suf)
			}
		}
		return strings.Join(out, ",")
	}

	lines := []string{
		rule(with(""), "transition", transition),
		rule(with(":hover:not(:disabled)"), d.hover...),
		rule(with(":focus-visible"), d.focus...),
		rule(with(":active:not(:disabled)"), d.active...),
		rule(with(":disabled", disabledAttr), d.disabled...),
		rule(with(".is-loading", busyAttr), d.loading...),
	}
	return strings.Join(lines, "\n")
}

func (States) links(in *Input, transition string, d stateDecls) string {
	hoverColor := tokenOr(in.Tokens, tokens.CategoryColor, "primary-hover", "inherit")
	return strings.Join([]string{
		rule("a", "transition", transition),
		rule("a:hover", "color", hoverColor, "text-decoration-thickness", "2px"),
		rule("a:focus-visible", d.focus...),
		rule("a:active", "opacity", "0.8"),
		rule("a[aria-disabled=\"true\"]", d.disabled...),
	}, "\n")
}

func (States) forms(in *Input, transition string, d stateDecls) string {
	set := in.Tokens
	controls := []string{"input", "select", "textarea"}
	with := func(suffix string) string {
		out := make([]string, len(controls))
		for i, c := range controls {
			out[i] = c + suffix
		}
		return strings.Join(out, ",")
	}

	border := tokenOr(set, tokens.CategoryColor, "border-hover", tokenOr(set, tokens.CategoryColor, "border", "currentColor"))
	invalid := tokenOr(set, tokens.CategoryColor, "error", tokenOr(set, tokens.CategoryColor, "danger", "#dc2626"))

	return strings.Join([]string{
		rule(with(""), "transition", transition),
		rule(with(":hover:not(:disabled)"), "border-color", border),
		rule(with(":focus-visible"), d.focus...),
		rule(with(":disabled"), d.disabled...),
		rule(with("[aria-invalid=\"true\"]"), "border-color", invalid),
		rule(with("[aria-busy=\"true\"]"), d.loading...),
	}, "\n")
}

func (States) accessibility() string {
	focusables := "a:focus-visible,button:focus-visible,input:focus-visible,select:focus-visible,textarea:focus-visible,.interactive:focus-visible"
	return strings.Join([]string{
		"@media (prefers-reduced-motion: reduce){" +
			rule("button,.btn,a,input,select,textarea,.interactive", "transition", "none") +
			rule(".btn:active,.interactive:active", "transform", "none") + "}",
		"@media (forced-colors: active){" +
			rule(focusables, "outline", "2px solid CanvasText") +
			rule("button:disabled,.btn:disabled", "color", "GrayText") + "}",
		"@media (prefers-contrast: more){" +
			rule(focusables, "outline-width", "3px") + "}",
	}, "\n")
}
