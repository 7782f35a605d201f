package transform

import (
	"fmt"
	"math"
	"strings"

	"github.com/yacobolo/csstokens/internal/cssparse"
	"github.com/yacobolo/csstokens/internal/tokens"
)

// Step is one named step of the modular type scale.
type Step struct {
	Name  string
	Power int
	Px    float64
}

var scaleSteps = []struct {
	name  string
	power int
}{
	{"xs", -2}, {"sm", -1}, {"base", 0}, {"lg", 1}, {"xl", 2},
	{"2xl", 3}, {"3xl", 4}, {"4xl", 5}, {"5xl", 6}, {"6xl", 7},
	{"7xl", 8}, {"8xl", 9}, {"9xl", 10},
}

// Steps computes base × ratio^power for every named step, clamped to
// [base×Min, base×Max]. Fields that are zero or negative take their
// default.
func (s Scale) Steps() []Step {
	s = s.withDefaults()
	lo, hi := s.Base*s.Min, s.Base*s.Max
	out := make([]Step, len(scaleSteps))
	for i, st := range scaleSteps {
		px := s.Base * math.Pow(s.Ratio, float64(st.power))
		px = math.Max(lo, math.Min(hi, px))
		out[i] = Step{Name: st.name, Power: st.power, Px: px}
	}
	return out
}

func (s Scale) withDefaults() Scale {
	def := DefaultTuning().Scale
	if s.Base <= 0 {
		s.Base = def.Base
	}
	if s.Ratio <= 0 {
		s.Ratio = def.Ratio
	}
	if s.Min <= 0 {
		s.Min = def.Min
	}
	if s.Max <= 0 {
		s.Max = def.Max
	}
	return s
}

// Nearest returns the step closest to px when it is within tolerance,
// measured relative to the step size.
func (s Scale) Nearest(px, tolerance float64) (Step, bool) {
	var best Step
	bestDiff := math.MaxFloat64
	for _, st := range s.Steps() {
		if d := math.Abs(px - st.Px); d < bestDiff {
			best, bestDiff = st, d
		}
	}
	if bestDiff/best.Px > tolerance+1e-9 {
		return Step{}, false
	}
	return best, true
}

// namedLineHeights is the fixed line-height vocabulary.
var namedLineHeights = []struct {
	name  string
	value float64
}{
	{"none", 1}, {"tight", 1.25}, {"snug", 1.375},
	{"normal", 1.5}, {"relaxed", 1.625}, {"loose", 2},
}

// fontWeightNames maps numeric weights and keywords to token names.
var fontWeightNames = map[string]string{
	"100":    "thin",
	"200":    "extralight",
	"300":    "light",
	"400":    "normal",
	"500":    "medium",
	"600":    "semibold",
	"700":    "bold",
	"800":    "extrabold",
	"900":    "black",
	"normal": "normal",
	"bold":   "bold",
}

const suggestionPrefix = "/* csstokens-suggest:"

// hierarchy maps headings to scale steps, largest first.
var hierarchy = []struct {
	selector, size, leading, weight string
}{
	{"h1", "4xl", "tight", "bold"},
	{"h2", "3xl", "tight", "bold"},
	{"h3", "2xl", "snug", "semibold"},
	{"h4", "xl", "snug", "semibold"},
	{"h5", "lg", "normal", "medium"},
	{"h6", "base", "normal", "medium"},
}

// Typography matches font sizes against the modular scale, line heights and
// weights against fixed vocabularies, and appends a heading hierarchy.
type Typography struct{}

// Name implements Stage.
func (Typography) Name() string { return "typography" }

// Transform implements Stage.
func (t Typography) Transform(in *Input) (StageResult, error) {
	r := newRewriter(in)
	offScale := 0

	for _, d := range r.decls() {
		switch d.Property {
		case "font-size":
			if !t.fontSize(r, d) {
				offScale++
			}
		case "line-height":
			t.lineHeight(r, d)
		case "font-weight":
			t.fontWeight(r, d)
		case "font-family":
			t.fontFamily(r, d)
		}
	}

	res := r.result()
	j := newInjector(in, res.CSS)
	j.add("typography-hierarchy", t.hierarchyBlock(in))
	res.CSS = j.css
	res.Changes = append(res.Changes, j.changes...)
	res.Injected = j.injected

	if offScale > 0 {
		res.Recommendations = append(res.Recommendations, Recommendation{
			Stage:    "typography",
			Severity: SeverityInfo,
			Message:  "font sizes off the type scale were left unchanged",
			Count:    offScale,
		})
	}
	return res, nil
}

// fontSize handles one font-size declaration and reports whether the value
// lies on the scale.
func (Typography) fontSize(r *rewriter, d cssparse.Decl) bool {
	num, unit, ok := cssparse.ParseDimension(d.Value)
	if !ok {
		return true
	}
	px, ok := cssparse.ToPx(num, unit, r.in.Tuning.remBase())
	if !ok || px <= 0 {
		return true
	}

	step, ok := r.in.Tuning.Scale.Nearest(px, r.in.Tuning.FontSizeTolerance)
	if !ok {
		return false
	}

	ref := tokens.Ref{Category: tokens.CategoryFontSize, Name: step.Name}
	if r.in.Tokens.Lookup(ref) {
		r.replace(d, ChangeFontSize, ref.String(), []tokens.Ref{ref})
		return true
	}

	rem := cssparse.FormatNumber(step.Px/r.in.Tuning.remBase()) + "rem"
	if r.in.Tuning.SnapToScale {
		r.replace(d, ChangeTypeSnap, rem, nil)
		return true
	}
	if math.Abs(px-step.Px) > 0.01 && !r.followedBy(d, suggestionPrefix) {
		r.annotate(d, ChangeTypeSuggestion, fmt.Sprintf("%s scale step %s (%s) */", suggestionPrefix, step.Name, rem))
	}
	return true
}

func (Typography) lineHeight(r *rewriter, d cssparse.Decl) {
	num, unit, ok := cssparse.ParseDimension(d.Value)
	if !ok || unit != "" || num <= 0 {
		return
	}

	best := -1
	bestDiff := math.MaxFloat64
	for i, lh := range namedLineHeights {
		diff := math.Abs(num-lh.value) / lh.value
		if diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best < 0 || bestDiff > r.in.Tuning.LineHeightTolerance+1e-9 {
		return
	}

	ref := tokens.Ref{Category: tokens.CategoryLineHeight, Name: namedLineHeights[best].name}
	if r.in.Tokens.Lookup(ref) {
		r.replace(d, ChangeLineHeight, ref.String(), []tokens.Ref{ref})
	}
}

func (Typography) fontWeight(r *rewriter, d cssparse.Decl) {
	name, ok := fontWeightNames[strings.ToLower(d.Value)]
	if !ok {
		return
	}
	ref := tokens.Ref{Category: tokens.CategoryFontWeight, Name: name}
	if r.in.Tokens.Lookup(ref) {
		r.replace(d, ChangeFontWeight, ref.String(), []tokens.Ref{ref})
	}
}

func (Typography) fontFamily(r *rewriter, d cssparse.Decl) {
	want := normalizeFamily(d.Value)
	for _, e := range r.in.Tokens.Typography.FontFamilies {
		if normalizeFamily(e.Value.Primary()) == want {
			ref := tokens.Ref{Category: tokens.CategoryFontFamily, Name: e.Name}
			r.replace(d, ChangeFontFamily, ref.String(), []tokens.Ref{ref})
			return
		}
	}
}

func normalizeFamily(v string) string {
	parts := cssparse.SplitTopLevel(v)
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.Trim(p, `"'`))
	}
	return strings.Join(parts, ",")
}

func (Typography) hierarchyBlock(in *Input) string {
	remBase := in.Tuning.remBase()
	steps := in.Tuning.Scale.Steps()
	rem := make(map[string]string, len(steps))

	var b strings.Builder
	root := make([]string, 0, 2*len(steps))
	for _, st := range steps {
		rem[st.Name] = cssparse.FormatNumber(st.Px/remBase) + "rem"
		root = append(root, "--type-scale-"+st.Name, rem[st.Name])
	}
	b.WriteString(rule(":root", root...))
	b.WriteByte('\n')

	size := func(step string) string {
		return tokens.Ref{Category: tokens.CategoryFontSize, Name: step}.WithFallback("var(--type-scale-" + step + ")")
	}
	leading := func(name string) string {
		for _, lh := range namedLineHeights {
			if lh.name == name {
				return tokenOr(in.Tokens, tokens.CategoryLineHeight, name, cssparse.FormatNumber(lh.value))
			}
		}
		return name
	}
	weight := func(name string) string {
		for num, n := range fontWeightNames {
			if n == name && num[0] >= '1' && num[0] <= '9' {
				return tokenOr(in.Tokens, tokens.CategoryFontWeight, name, num)
			}
		}
		return name
	}

	for _, h := range hierarchy {
		b.WriteString(rule(h.selector,
			"font-size", size(h.size),
			"line-height", leading(h.leading),
			"font-weight", weight(h.weight),
		))
		b.WriteByte('\n')
	}
	b.WriteString(rule("body", "font-size", size("base"), "line-height", leading("normal")))
	b.WriteByte('\n')

	for _, st := range steps {
		b.WriteString(rule(".text-"+st.Name, "font-size", size(st.Name)))
		b.WriteByte('\n')
	}
	return b.String()
}
