// Package match resolves literal CSS values to design token references.
package match

import (
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/tdewolff/parse/v2/css"

	"github.com/yacobolo/csstokens/internal/cssparse"
	"github.com/yacobolo/csstokens/internal/tokens"
)

// Strategy selects among several tokens within tolerance.
type Strategy int

const (
	// FirstWithin returns the first token in group order that is within
	// tolerance, even when a later one is closer.
	FirstWithin Strategy = iota
	// Closest returns the token with the smallest relative difference.
	Closest
)

// String returns the config name of the strategy.
func (s Strategy) String() string {
	if s == Closest {
		return "closest"
	}
	return "first"
}

// ParseStrategy maps a config value to a Strategy. Unknown values select
// FirstWithin.
func ParseStrategy(s string) Strategy {
	if strings.EqualFold(s, "closest") {
		return Closest
	}
	return FirstWithin
}

// Config holds the matching thresholds.
type Config struct {
	// Tolerance is the accepted relative difference for spacing and radius.
	Tolerance float64
	// RemBase is the pixel size of 1rem.
	RemBase float64
	// Strategy breaks ties between tokens within tolerance.
	Strategy Strategy
	// NearMissDistance is the CIEDE2000 distance under which an unmatched
	// color is reported as close to a token. Zero or less disables the
	// check.
	NearMissDistance float64
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		Tolerance:        0.05,
		RemBase:          16,
		Strategy:         FirstWithin,
		NearMissDistance: 0.03,
	}
}

type numericEntry struct {
	ref tokens.Ref
	px  float64
}

type colorEntry struct {
	ref   tokens.Ref
	color colorful.Color
}

// Matcher holds the lookup tables built from one token set. It is read-only
// after construction and safe for concurrent use.
type Matcher struct {
	cfg       Config
	colors    map[string]tokens.Ref
	palette   []colorEntry
	spacing   []numericEntry
	radius    []numericEntry
	elevation map[string]tokens.Ref
}

// New builds the lookup tables for set.
func New(set *tokens.Set, cfg Config) *Matcher {
	if cfg.RemBase <= 0 {
		cfg.RemBase = 16
	}

	m := &Matcher{
		cfg:       cfg,
		colors:    make(map[string]tokens.Ref),
		elevation: make(map[string]tokens.Ref),
	}

	for _, e := range set.Group(tokens.CategoryColor) {
		ref := tokens.Ref{Category: tokens.CategoryColor, Name: e.Name}
		for _, v := range e.Value.Variants() {
			key := normalizeColor(v)
			if _, ok := m.colors[key]; !ok {
				m.colors[key] = ref
			}
			if hex, ok := NormalizeHex(v); ok && len(hex) == 7 {
				if c, err := colorful.Hex(hex); err == nil {
					m.palette = append(m.palette, colorEntry{ref: ref, color: c})
				}
			}
		}
	}

	m.spacing = numericTable(set.Group(tokens.CategorySpacing), tokens.CategorySpacing, cfg.RemBase)
	m.radius = numericTable(set.Group(tokens.CategoryRadius), tokens.CategoryRadius, cfg.RemBase)

	for _, e := range set.Group(tokens.CategoryShadow) {
		key := NormalizeShadow(e.Value.Primary())
		if _, ok := m.elevation[key]; !ok {
			m.elevation[key] = tokens.Ref{Category: tokens.CategoryShadow, Name: e.Name}
		}
	}
	return m
}

// Config returns the thresholds the matcher was built with.
func (m *Matcher) Config() Config {
	return m.cfg
}

func numericTable(g tokens.Group, c tokens.Category, remBase float64) []numericEntry {
	out := make([]numericEntry, 0, len(g))
	for _, e := range g {
		num, unit, ok := cssparse.ParseDimension(e.Value.Primary())
		if !ok {
			continue
		}
		px, ok := cssparse.ToPx(num, unit, remBase)
		if !ok || px <= 0 {
			continue
		}
		out = append(out, numericEntry{ref: tokens.Ref{Category: c, Name: e.Name}, px: px})
	}
	return out
}

// Color resolves a color literal by exact match after normalization.
func (m *Matcher) Color(value string) (tokens.Ref, bool) {
	ref, ok := m.colors[normalizeColor(value)]
	return ref, ok
}

// NearestColor returns the closest token color to an unmatched hex literal
// when it is within NearMissDistance. It never reports an exact match.
func (m *Matcher) NearestColor(value string) (tokens.Ref, float64, bool) {
	if m.cfg.NearMissDistance <= 0 {
		return tokens.Ref{}, 0, false
	}
	hex, ok := NormalizeHex(value)
	if !ok || len(hex) != 7 {
		return tokens.Ref{}, 0, false
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return tokens.Ref{}, 0, false
	}

	best := -1
	bestDist := math.MaxFloat64
	for i, p := range m.palette {
		d := c.DistanceCIEDE2000(p.color)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist == 0 || bestDist > m.cfg.NearMissDistance {
		return tokens.Ref{}, 0, false
	}
	return m.palette[best].ref, bestDist, true
}

// Spacing resolves a length within tolerance of a spacing token.
func (m *Matcher) Spacing(value string) (tokens.Ref, bool) {
	return m.tolerance(value, m.spacing)
}

// Radius resolves a length within tolerance of a radius token.
func (m *Matcher) Radius(value string) (tokens.Ref, bool) {
	return m.tolerance(value, m.radius)
}

// Elevation resolves a box-shadow value by exact match after normalization.
func (m *Matcher) Elevation(value string) (tokens.Ref, bool) {
	ref, ok := m.elevation[NormalizeShadow(value)]
	return ref, ok
}

func (m *Matcher) tolerance(value string, table []numericEntry) (tokens.Ref, bool) {
	num, unit, ok := cssparse.ParseDimension(value)
	if !ok {
		return tokens.Ref{}, false
	}
	input, ok := cssparse.ToPx(num, unit, m.cfg.RemBase)
	if !ok || input <= 0 {
		return tokens.Ref{}, false
	}

	const epsilon = 1e-9
	best := -1
	bestDiff := math.MaxFloat64
	for i, e := range table {
		diff := math.Abs(input-e.px) / input
		if diff > m.cfg.Tolerance+epsilon {
			continue
		}
		if m.cfg.Strategy == FirstWithin {
			return e.ref, true
		}
		if diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best < 0 {
		return tokens.Ref{}, false
	}
	return table[best].ref, true
}

// NormalizeHex lowercases a hex color and expands the 3 and 4 digit short
// forms. ok is false for anything that is not a hex color.
func NormalizeHex(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "#") {
		return "", false
	}
	for _, c := range s[1:] {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return "", false
		}
	}

	switch len(s) {
	case 4, 7:
		c, err := colorful.Hex(s)
		if err != nil {
			return "", false
		}
		return c.Hex(), true
	case 5:
		return "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2) + strings.Repeat(s[4:5], 2), true
	case 9:
		return s, true
	}
	return "", false
}

func normalizeColor(s string) string {
	if hex, ok := NormalizeHex(s); ok {
		return hex
	}
	return NormalizeShadow(s)
}

// NormalizeShadow lowercases a value, expands hex colors and removes
// whitespace that carries no meaning: runs collapse to one space and none
// is kept next to commas or parentheses.
func NormalizeShadow(s string) string {
	toks := cssparse.Tokenize(strings.TrimSpace(s))

	var b strings.Builder
	space := false
	tight := true
	for _, tok := range toks {
		switch tok.Type {
		case css.WhitespaceToken:
			space = true
			continue
		case css.CommentToken:
			continue
		}

		data := strings.ToLower(tok.Data)
		if tok.Type == css.HashToken {
			if hex, ok := NormalizeHex(data); ok {
				data = hex
			}
		}
		closing := tok.Type == css.CommaToken || tok.Type == css.RightParenthesisToken
		if space && !tight && !closing {
			b.WriteByte(' ')
		}
		b.WriteString(data)
		space = false
		tight = tok.Type == css.CommaToken || tok.Type == css.FunctionToken || tok.Type == css.LeftParenthesisToken
	}
	return b.String()
}
