package transform

import (
	"math"
	"strings"
	"time"

	"github.com/yacobolo/csstokens/internal/cssparse"
	"github.com/yacobolo/csstokens/internal/match"
	"github.com/yacobolo/csstokens/internal/tokens"
)

// easingAliases lists, per CSS keyword, the token names that stand for it.
var easingAliases = map[string][]string{
	"ease":        {"ease", "ease-out", "standard", "default"},
	"ease-in":     {"ease-in", "accelerate"},
	"ease-out":    {"ease-out", "decelerate"},
	"ease-in-out": {"ease-in-out", "standard"},
	"linear":      {"linear"},
}

// ParseTime converts "150ms" or ".3s" to a duration.
func ParseTime(v string) (time.Duration, bool) {
	num, unit, ok := cssparse.ParseDimension(v)
	if !ok {
		return 0, false
	}
	switch unit {
	case "ms":
		return time.Duration(math.Round(num * float64(time.Millisecond))), true
	case "s":
		return time.Duration(math.Round(num * float64(time.Second))), true
	}
	return 0, false
}

func isEasing(v string) bool {
	lv := strings.ToLower(v)
	if _, ok := easingAliases[lv]; ok {
		return true
	}
	return strings.HasPrefix(lv, "cubic-bezier(") || strings.HasPrefix(lv, "steps(") ||
		lv == "step-start" || lv == "step-end"
}

type durationEntry struct {
	ref tokens.Ref
	d   time.Duration
}

// Animations matches durations and easing curves against the token set and
// appends motion utilities, keyframes and a reduced-motion override.
type Animations struct{}

// Name implements Stage.
func (Animations) Name() string { return "animations" }

type animationMatcher struct {
	durations []durationEntry
	easing    tokens.Group
	tolerance time.Duration
}

func newAnimationMatcher(in *Input) *animationMatcher {
	m := &animationMatcher{easing: in.Tokens.Animations.Easing, tolerance: in.Tuning.DurationTolerance}
	for _, e := range in.Tokens.Animations.Duration {
		if d, ok := ParseTime(e.Value.Primary()); ok {
			m.durations = append(m.durations, durationEntry{ref: tokens.Ref{Category: tokens.CategoryDuration, Name: e.Name}, d: d})
		}
	}
	return m
}

// duration returns the nearest duration token within tolerance.
func (m *animationMatcher) duration(v string) (tokens.Ref, bool) {
	d, ok := ParseTime(v)
	if !ok || d <= 0 {
		return tokens.Ref{}, false
	}
	best := -1
	bestDiff := time.Duration(math.MaxInt64)
	for i, e := range m.durations {
		diff := d - e.d
		if diff < 0 {
			diff = -diff
		}
		if diff <= m.tolerance && diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best < 0 {
		return tokens.Ref{}, false
	}
	return m.durations[best].ref, true
}

// easingRef matches an easing value exactly, then through keyword aliases.
func (m *animationMatcher) easingRef(v string) (tokens.Ref, bool) {
	want := match.NormalizeShadow(v)
	for _, e := range m.easing {
		if match.NormalizeShadow(e.Value.Primary()) == want {
			return tokens.Ref{Category: tokens.CategoryEasing, Name: e.Name}, true
		}
	}
	for _, name := range easingAliases[strings.ToLower(v)] {
		if e, ok := m.easing.Find(name); ok {
			return tokens.Ref{Category: tokens.CategoryEasing, Name: e.Name}, true
		}
	}
	return tokens.Ref{}, false
}

// rewriteLayers matches each comma-separated layer of a timing value. In a
// shorthand only the first time of a layer is the duration; later times are
// delays and stay literal.
func (m *animationMatcher) rewriteLayers(value string, shorthand bool, refs *[]tokens.Ref, unmatched *int) (string, bool) {
	layers := cssparse.SplitTopLevel(value)
	changed := false

	for i, layer := range layers {
		fields := cssparse.Fields(layer)
		seenTime := false
		for j, f := range fields {
			if _, ok := ParseTime(f); ok {
				if shorthand && seenTime {
					continue
				}
				seenTime = true
				if ref, ok := m.duration(f); ok {
					fields[j] = ref.String()
					*refs = appendRef(*refs, ref)
					changed = true
				} else {
					*unmatched++
				}
				continue
			}
			if isEasing(f) {
				if ref, ok := m.easingRef(f); ok {
					fields[j] = ref.String()
					*refs = appendRef(*refs, ref)
					changed = true
				}
			}
		}
		layers[i] = strings.Join(fields, " ")
	}
	return strings.Join(layers, ", "), changed
}

// Transform implements Stage.
func (a Animations) Transform(in *Input) (StageResult, error) {
	r := newRewriter(in)
	m := newAnimationMatcher(in)
	unmatched := 0

	for _, d := range r.decls() {
		var shorthand bool
		switch d.Property {
		case "transition", "animation":
			shorthand = true
		case "transition-duration", "animation-duration",
			"transition-timing-function", "animation-timing-function":
		default:
			continue
		}
		if d.AtRule != "" && strings.Contains(strings.ToLower(d.AtRule), "prefers-reduced-motion") {
			continue
		}

		var refs []tokens.Ref
		after, changed := m.rewriteLayers(d.Value, shorthand, &refs, &unmatched)
		if changed {
			r.replace(d, ChangeAnimation, after, refs)
		}
	}

	res := r.result()
	j := newInjector(in, res.CSS)
	j.add("animation-utilities", a.utilities(in))
	j.add("animation-keyframes", a.keyframes())
	j.add("animation-presets", a.presets(in))
	j.add("animation-reduced-motion", reducedMotion)
	res.CSS = j.css
	res.Changes = append(res.Changes, j.changes...)
	res.Injected = j.injected

	if unmatched >= 3 {
		res.Recommendations = append(res.Recommendations, Recommendation{
			Stage:    "animations",
			Severity: SeverityWarning,
			Message:  "many hardcoded durations found; consider adding duration tokens",
			Count:    unmatched,
		})
	}
	return res, nil
}

func (Animations) utilities(in *Input) string {
	set := in.Tokens
	fast := tokenOr(set, tokens.CategoryDuration, "fast", "150ms")
	normal := tokenOr(set, tokens.CategoryDuration, "normal", "250ms")
	ease := tokenOr(set, tokens.CategoryEasing, "ease-out", "cubic-bezier(0, 0, 0.2, 1)")
	glow := tokenOr(set, tokens.CategoryColor, "primary", "rgba(59, 130, 246, 0.5)")
	shadow := tokenOr(set, tokens.CategoryShadow, "lg", "0 10px 15px -3px rgba(0, 0, 0, 0.1)")

	lines := []string{
		rule(".hover-lift", "transition", "transform "+normal+" "+ease+", box-shadow "+normal+" "+ease),
		rule(".hover-lift:hover", "transform", "translateY(-2px)", "box-shadow", shadow),
		rule(".hover-scale", "transition", "transform "+fast+" "+ease),
		rule(".hover-scale:hover", "transform", "scale(1.05)"),
		rule(".hover-glow", "transition", "box-shadow "+normal+" "+ease),
		rule(".hover-glow:hover", "box-shadow", "0 0 0 4px "+glow),
		rule(".loading-spinner",
			"display", "inline-block",
			"width", "1em",
			"height", "1em",
			"border", "2px solid currentColor",
			"border-right-color", "transparent",
			"border-radius", "50%",
			"animation", "csstokens-spin 750ms linear infinite"),
		rule(".loading-pulse", "animation", "csstokens-pulse 1.5s ease-in-out infinite"),
		rule(".loading-dots::after", "content", `"..."`, "animation", "csstokens-fade 1s steps(4, end) infinite"),
	}
	return strings.Join(lines, "\n")
}

func (Animations) keyframes() string {
	return strings.Join([]string{
		"@keyframes csstokens-spin{to{transform:rotate(360deg);}}",
		"@keyframes csstokens-pulse{0%,100%{opacity:1;}50%{opacity:0.5;}}",
		"@keyframes csstokens-fade{from{opacity:0;}to{opacity:1;}}",
		"@keyframes csstokens-slide-up{from{opacity:0;transform:translateY(8px);}to{opacity:1;transform:none;}}",
	}, "\n")
}

func (Animations) presets(in *Input) string {
	var lines []string
	for _, e := range in.Tokens.Animations.Presets {
		ref := tokens.Ref{Category: tokens.CategoryAnimation, Name: e.Name}
		lines = append(lines, rule(".animate-"+tokens.Slug(e.Name), "animation", ref.String()))
	}
	return strings.Join(lines, "\n")
}

const reducedMotion = "@media (prefers-reduced-motion: reduce){" +
	"*,*::before,*::after{" +
	"animation-duration:0.01ms !important;" +
	"animation-iteration-count:1 !important;" +
	"transition-duration:0.01ms !important;" +
	"scroll-behavior:auto !important;}}"
