package cssparse

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// Lines maps byte offsets to 1-based line and column numbers.
type Lines struct {
	newlines []int
}

// NewLines indexes the newlines of src.
func NewLines(src string) Lines {
	var l Lines
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			l.newlines = append(l.newlines, i)
		}
	}
	return l
}

// At returns the line and column of offset.
func (l Lines) At(offset int) (line, col int) {
	n := sort.SearchInts(l.newlines, offset)
	if n == 0 {
		return 1, offset + 1
	}
	return n + 1, offset - l.newlines[n-1]
}

// Stats is the structural fingerprint used to validate rewrites.
type Stats struct {
	// SelectorCount counts distinct selectors, qualified by their enclosing
	// at-rules and compared after selector normalization.
	SelectorCount int `json:"selectorCount"`
	// PropertyCount counts declarations inside blocks.
	PropertyCount int `json:"propertyCount"`
	// OrphanedProperties counts declarations outside any block and
	// declarations without a colon.
	OrphanedProperties int `json:"orphanedProperties"`
	// BraceBalance is the number of '{' minus the number of '}'.
	BraceBalance int `json:"braceBalance"`
	// NegativeDepth is set when a '}' appears with no open block.
	NegativeDepth bool `json:"negativeDepth,omitempty"`
}

// Balanced reports whether every brace is matched.
func (s Stats) Balanced() bool {
	return s.BraceBalance == 0 && !s.NegativeDepth
}

// Analyze computes Stats for src.
func Analyze(src string) Stats {
	var st Stats

	depth := 0
	for _, tok := range Tokenize(src) {
		switch tok.Type {
		case css.LeftBraceToken:
			depth++
			st.BraceBalance++
		case css.RightBraceToken:
			depth--
			st.BraceBalance--
			if depth < 0 {
				st.NegativeDepth = true
				depth = 0
			}
		}
	}

	selectors := make(map[string]struct{})
	var walk func(nodes []*Node, context string, inBlock bool)
	walk = func(nodes []*Node, context string, inBlock bool) {
		for _, n := range nodes {
			switch n.Kind {
			case RuleNode:
				if n.Prelude != "" {
					selectors[context+"\x00"+NormalizeSelector(n.Prelude)] = struct{}{}
				}
				walk(n.Children, context+"\x00"+n.Prelude, true)
			case AtRuleNode:
				walk(n.Children, context+"\x00"+n.Prelude, !n.RuleList)
			case DeclNode:
				if inBlock && !n.Bare {
					st.PropertyCount++
				} else {
					st.OrphanedProperties++
				}
			}
		}
	}
	walk(Parse(src).Nodes, "", false)

	st.SelectorCount = len(selectors)
	return st
}

// NormalizeSelector collapses whitespace in a selector and removes it
// around combinators and commas: ".a  >  .b , .c" becomes ".a>.b,.c".
func NormalizeSelector(sel string) string {
	var b strings.Builder
	space := false
	tight := true // previous token does not want a following space

	for _, tok := range Tokenize(strings.TrimSpace(sel)) {
		switch tok.Type {
		case css.WhitespaceToken:
			space = true
			continue
		case css.CommentToken:
			continue
		}

		combinator := tok.Type == css.CommaToken ||
			(tok.Type == css.DelimToken && (tok.Data == ">" || tok.Data == "+" || tok.Data == "~"))
		if space && !tight && !combinator {
			b.WriteByte(' ')
		}
		b.WriteString(tok.Data)
		space = false
		tight = combinator || tok.Type == css.LeftParenthesisToken || tok.Type == css.FunctionToken
	}
	return b.String()
}

const markerPrefix = "csstokens:"

// MarkerComment returns the comment that marks an injected block.
func MarkerComment(name string) string {
	return "/* " + markerPrefix + name + " v1 */"
}

// Markers returns the injection markers present in src, by name, with
// their version.
func Markers(src string) map[string]int {
	out := make(map[string]int)
	for _, tok := range Tokenize(src) {
		if tok.Type != css.CommentToken {
			continue
		}
		body := strings.TrimSuffix(strings.TrimPrefix(tok.Data, "/*"), "*/")
		fields := strings.Fields(body)
		if len(fields) == 0 || !strings.HasPrefix(fields[0], markerPrefix) {
			continue
		}

		name := strings.TrimPrefix(fields[0], markerPrefix)
		if name == "" {
			continue
		}
		version := 1
		if len(fields) > 1 && strings.HasPrefix(fields[1], "v") {
			if v, err := strconv.Atoi(fields[1][1:]); err == nil {
				version = v
			}
		}
		out[name] = version
	}
	return out
}

// Comment is a comment found in source text.
type Comment struct {
	Text string
	Line int
}

// Comments returns every comment with the line it starts on.
func Comments(src string) []Comment {
	lines := NewLines(src)
	var out []Comment
	for _, tok := range Tokenize(src) {
		if tok.Type == css.CommentToken {
			line, _ := lines.At(tok.Offset)
			out = append(out, Comment{Text: tok.Data, Line: line})
		}
	}
	return out
}

// Edit replaces src[Start:End] with Text.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Rewrite applies edits to src. Edits are applied in offset order; an edit
// overlapping an earlier one is dropped.
func Rewrite(src string, edits []Edit) string {
	if len(edits) == 0 {
		return src
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	b.Grow(len(src))
	last := 0
	for _, e := range sorted {
		if e.Start < last || e.End < e.Start || e.End > len(src) {
			continue
		}
		b.WriteString(src[last:e.Start])
		b.WriteString(e.Text)
		last = e.End
	}
	b.WriteString(src[last:])
	return b.String()
}
