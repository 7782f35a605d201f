package transform

import (
	"math"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2/css"

	"github.com/yacobolo/csstokens/internal/cssparse"
	"github.com/yacobolo/csstokens/internal/match"
	"github.com/yacobolo/csstokens/internal/tokens"
)

var gradientFunctions = map[string]string{
	"linear-gradient(":           "linear",
	"radial-gradient(":           "radial",
	"conic-gradient(":            "conic",
	"repeating-linear-gradient(": "repeating-linear",
	"repeating-radial-gradient(": "repeating-radial",
	"repeating-conic-gradient(":  "repeating-conic",
}

var gradientProperties = map[string]bool{
	"background":          true,
	"background-image":    true,
	"border-image":        true,
	"border-image-source": true,
	"mask":                true,
	"mask-image":          true,
	"list-style-image":    true,
}

var radialShapes = map[string]bool{
	"circle":          true,
	"ellipse":         true,
	"closest-side":    true,
	"closest-corner":  true,
	"farthest-side":   true,
	"farthest-corner": true,
}

// gradient is the comparable form of a gradient function call.
type gradient struct {
	kind      string
	direction string
	stops     []string
}

func (g gradient) equal(o gradient) bool {
	if g.kind != o.kind || g.direction != o.direction || len(g.stops) != len(o.stops) {
		return false
	}
	for i := range g.stops {
		if g.stops[i] != o.stops[i] {
			return false
		}
	}
	return true
}

// parseGradient splits a gradient call into kind, direction and stop
// colors. Stop positions and color hints are ignored. resolve maps a stop
// color to its comparable form.
func parseGradient(src string, resolve func(string) string) (gradient, bool) {
	src = strings.TrimSpace(src)
	open := strings.IndexByte(src, '(')
	if open < 0 || !strings.HasSuffix(src, ")") {
		return gradient{}, false
	}
	kind, ok := gradientFunctions[strings.ToLower(src[:open+1])]
	if !ok {
		return gradient{}, false
	}

	args := cssparse.SplitTopLevel(src[open+1 : len(src)-1])
	if len(args) == 0 {
		return gradient{}, false
	}

	g := gradient{kind: kind}
	if dir, ok := gradientDirection(kind, args[0]); ok {
		g.direction = dir
		args = args[1:]
	} else {
		g.direction, _ = gradientDirection(kind, "")
	}

	for _, arg := range args {
		fields := cssparse.Fields(arg)
		if len(fields) == 0 {
			return gradient{}, false
		}
		if _, _, isLength := cssparse.ParseDimension(fields[0]); isLength || strings.HasSuffix(fields[0], "%") {
			continue
		}
		g.stops = append(g.stops, resolve(fields[0]))
	}
	if len(g.stops) == 0 {
		return gradient{}, false
	}
	return g, true
}

// gradientDirection reports whether arg is the leading direction or shape
// argument of a gradient and returns its canonical form. An empty arg yields
// the default direction of kind.
func gradientDirection(kind, arg string) (string, bool) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	switch strings.TrimPrefix(kind, "repeating-") {
	case "linear":
		deg, ok := linearAngle(arg)
		if !ok {
			return "", false
		}
		return strconv.FormatFloat(deg, 'f', 2, 64), true
	case "radial":
		if arg == "" {
			return "ellipse", true
		}
		fields := cssparse.Fields(arg)
		if !radialShapes[fields[0]] && fields[0] != "at" {
			if _, _, ok := cssparse.ParseDimension(fields[0]); !ok {
				return "", false
			}
		}
		shape := strings.Join(fields, " ")
		switch shape {
		case "ellipse farthest-corner", "farthest-corner", "ellipse at center", "ellipse farthest-corner at center":
			shape = "ellipse"
		}
		return shape, true
	default:
		if arg == "" {
			return "from 0deg", true
		}
		if !strings.HasPrefix(arg, "from ") && !strings.HasPrefix(arg, "at ") {
			return "", false
		}
		return strings.Join(cssparse.Fields(arg), " "), true
	}
}

// linearAngle converts a linear gradient direction to degrees in [0, 360).
// "to bottom" is the default.
func linearAngle(dir string) (float64, bool) {
	if dir == "" {
		return 180, true
	}
	fields := cssparse.Fields(dir)
	if fields[0] == "to" {
		var top, right, bottom, left bool
		for _, f := range fields[1:] {
			switch f {
			case "top":
				top = true
			case "right":
				right = true
			case "bottom":
				bottom = true
			case "left":
				left = true
			default:
				return 0, false
			}
		}
		switch {
		case top && right:
			return 45, true
		case bottom && right:
			return 135, true
		case bottom && left:
			return 225, true
		case top && left:
			return 315, true
		case top:
			return 0, true
		case right:
			return 90, true
		case bottom:
			return 180, true
		case left:
			return 270, true
		}
		return 0, false
	}

	if len(fields) != 1 {
		return 0, false
	}
	num, unit, ok := cssparse.ParseDimension(fields[0])
	if !ok {
		return 0, false
	}
	var deg float64
	switch unit {
	case "deg":
		deg = num
	case "grad":
		deg = num * 0.9
	case "rad":
		deg = num * 180 / math.Pi
	case "turn":
		deg = num * 360
	case "":
		if num != 0 {
			return 0, false
		}
	default:
		return 0, false
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return math.Round(deg*100) / 100, true
}

type gradientPreset struct {
	ref tokens.Ref
	g   gradient
}

// Gradients replaces gradients equal to a preset with the preset token and
// otherwise rewrites the hex stops that match color tokens.
type Gradients struct{}

// Name implements Stage.
func (Gradients) Name() string { return "gradients" }

// Transform implements Stage.
func (gs Gradients) Transform(in *Input) (StageResult, error) {
	r := newRewriter(in)
	resolve := stopResolver(in.Tokens)

	var presets []gradientPreset
	for _, e := range in.Tokens.Gradients {
		if g, ok := parseGradient(e.Value.Primary(), resolve); ok {
			presets = append(presets, gradientPreset{ref: tokens.Ref{Category: tokens.CategoryGradient, Name: e.Name}, g: g})
		}
	}

	untokenized := 0
	for _, d := range r.decls() {
		if isCustomProperty(d.Property) || !gradientProperties[d.Property] {
			continue
		}

		var refs []tokens.Ref
		usedPreset := false
		after, changed := mapGradients(d.Value, func(call string) (string, bool) {
			if g, ok := parseGradient(call, resolve); ok {
				for _, p := range presets {
					if p.g.equal(g) {
						refs = appendRef(refs, p.ref)
						usedPreset = true
						return p.ref.String(), true
					}
				}
			}
			return mapHex(call, func(hex string) (string, bool) {
				ref, ok := in.Matcher.Color(hex)
				if !ok {
					untokenized++
					return "", false
				}
				refs = appendRef(refs, ref)
				return ref.String(), true
			})
		})
		if !changed {
			continue
		}
		typ := ChangeGradientColor
		if usedPreset {
			typ = ChangeGradientPreset
		}
		r.replace(d, typ, after, refs)
	}

	res := r.result()
	j := newInjector(in, res.CSS)
	j.add("gradient-utilities", gs.utilities(in))
	res.CSS = j.css
	res.Changes = append(res.Changes, j.changes...)
	res.Injected = j.injected

	if untokenized > 0 {
		res.Recommendations = append(res.Recommendations, Recommendation{
			Stage:    "gradients",
			Severity: SeverityInfo,
			Message:  "gradient stops use colors that are not in the palette",
			Count:    untokenized,
		})
	}
	return res, nil
}

func (Gradients) utilities(in *Input) string {
	var lines []string
	for _, e := range in.Tokens.Gradients {
		ref := tokens.Ref{Category: tokens.CategoryGradient, Name: e.Name}
		name := tokens.Slug(e.Name)
		lines = append(lines,
			rule(".bg-gradient-"+name, "background-image", ref.String()),
			rule(".text-gradient-"+name,
				"background-image", ref.String(),
				"-webkit-background-clip", "text",
				"background-clip", "text",
				"-webkit-text-fill-color", "transparent",
				"color", "transparent"),
		)
	}
	return strings.Join(lines, "\n")
}

// stopResolver returns the comparable form of a stop color. Color token
// references resolve to the token's hex value so presets written with
// var(--color-x) compare equal to literal stops.
func stopResolver(set *tokens.Set) func(string) string {
	vars := make(map[string]string, len(set.Colors.Roles))
	for _, e := range set.Colors.Roles {
		ref := tokens.Ref{Category: tokens.CategoryColor, Name: e.Name}
		vars[ref.Var()] = e.Value.Primary()
	}

	var resolve func(string, int) string
	resolve = func(c string, depth int) string {
		c = strings.TrimSpace(c)
		if hex, ok := match.NormalizeHex(c); ok {
			return hex
		}
		lc := strings.ToLower(c)
		if depth < 4 && strings.HasPrefix(lc, "var(") && strings.HasSuffix(lc, ")") {
			name := strings.TrimSpace(c[4 : len(c)-1])
			if i := strings.IndexByte(name, ','); i >= 0 {
				name = strings.TrimSpace(name[:i])
			}
			if v, ok := vars[name]; ok {
				return resolve(v, depth+1)
			}
		}
		return match.NormalizeShadow(c)
	}
	return func(c string) string { return resolve(c, 0) }
}

// mapGradients calls fn for every gradient function call at the top level
// of value and substitutes the returned text.
func mapGradients(value string, fn func(call string) (string, bool)) (string, bool) {
	toks := cssparse.Tokenize(value)
	var b strings.Builder
	changed := false

	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.Type != css.FunctionToken {
			b.WriteString(tok.Data)
			if tok.Type == css.LeftParenthesisToken || tok.Type == css.LeftBracketToken {
				// copy the nested group verbatim
				end := closeIndex(toks, i)
				for _, t := range toks[i+1 : end] {
					b.WriteString(t.Data)
				}
				i = end - 1
			}
			continue
		}

		end := closeIndex(toks, i)
		var call strings.Builder
		for _, t := range toks[i:end] {
			call.WriteString(t.Data)
		}
		i = end - 1

		text := call.String()
		if _, ok := gradientFunctions[strings.ToLower(tok.Data)]; ok {
			if rep, ok := fn(text); ok {
				b.WriteString(rep)
				changed = true
				continue
			}
		}
		b.WriteString(text)
	}
	return b.String(), changed
}

// closeIndex returns the index just past the token closing the group opened
// at toks[i], or len(toks) when it is unterminated.
func closeIndex(toks []cssparse.Token, i int) int {
	depth := 0
	for j := i; j < len(toks); j++ {
		switch toks[j].Type {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(toks)
}

// mapHex substitutes hex colors at any depth of value.
func mapHex(value string, fn func(hex string) (string, bool)) (string, bool) {
	var b strings.Builder
	changed := false
	for _, tok := range cssparse.Tokenize(value) {
		if tok.Type == css.HashToken {
			if _, ok := match.NormalizeHex(tok.Data); ok {
				if rep, ok := fn(tok.Data); ok {
					b.WriteString(rep)
					changed = true
					continue
				}
			}
		}
		b.WriteString(tok.Data)
	}
	return b.String(), changed
}
