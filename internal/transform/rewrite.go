package transform

import (
	"sort"
	"strings"

	"github.com/yacobolo/csstokens/internal/cssparse"
	"github.com/yacobolo/csstokens/internal/match"
	"github.com/yacobolo/csstokens/internal/tokens"
)

// rewriter collects the edits and change records of one stage run.
type rewriter struct {
	in      *Input
	ignores match.Ignores
	edits   []cssparse.Edit
	changes []Change
}

func newRewriter(in *Input) *rewriter {
	return &rewriter{in: in, ignores: match.ScanIgnores(in.CSS)}
}

// decls returns the declarations of the input that the gate allows.
func (r *rewriter) decls() []cssparse.Decl {
	all := cssparse.Declarations(r.in.CSS)
	out := all[:0]
	for _, d := range all {
		if r.in.Gate.Allows(r.ignores, d.Line) {
			out = append(out, d)
		}
	}
	return out
}

func (r *rewriter) location(d cssparse.Decl) Location {
	return Location{File: r.in.FilePath, Line: d.Line, Column: d.Column, Selector: d.Selector}
}

// replace swaps the value of d for after and records a change.
func (r *rewriter) replace(d cssparse.Decl, typ, after string, refs []tokens.Ref) bool {
	if after == d.Value || !r.in.Gate.Take() {
		return false
	}
	r.edits = append(r.edits, cssparse.Edit{Start: d.Start, End: d.End, Text: after})
	r.changes = append(r.changes, Change{
		Type:     typ,
		Property: d.Property,
		Before:   d.Value,
		After:    after,
		Location: r.location(d),
		Tokens:   refs,
	})
	return true
}

// annotate appends comment after the value of d.
func (r *rewriter) annotate(d cssparse.Decl, typ, comment string) bool {
	if !r.in.Gate.Take() {
		return false
	}
	r.edits = append(r.edits, cssparse.Edit{Start: d.End, End: d.End, Text: " " + comment})
	r.changes = append(r.changes, Change{
		Type:     typ,
		Property: d.Property,
		Before:   d.Value,
		After:    d.Value + " " + comment,
		Location: r.location(d),
	})
	return true
}

// followedBy reports whether the source right after d starts with prefix,
// ignoring whitespace.
func (r *rewriter) followedBy(d cssparse.Decl, prefix string) bool {
	rest := strings.TrimLeft(r.in.CSS[d.End:], " \t\r\n")
	return strings.HasPrefix(rest, prefix)
}

func (r *rewriter) result() StageResult {
	return StageResult{
		CSS:     cssparse.Rewrite(r.in.CSS, r.edits),
		Changes: r.changes,
	}
}

func isCustomProperty(prop string) bool {
	return strings.HasPrefix(prop, "--")
}

// appendRef adds ref to refs unless it is already there.
func appendRef(refs []tokens.Ref, ref tokens.Ref) []tokens.Ref {
	for _, r := range refs {
		if r == ref {
			return refs
		}
	}
	return append(refs, ref)
}

// tokenOr returns a var() reference when the token exists and the literal
// fallback otherwise, so generated CSS never points at an undefined token.
func tokenOr(set *tokens.Set, c tokens.Category, name, fallback string) string {
	ref := tokens.Ref{Category: c, Name: name}
	if set.Lookup(ref) {
		return ref.String()
	}
	return fallback
}

// appendBlock appends a marker-guarded block to src.
func appendBlock(src, name, block string) string {
	var b strings.Builder
	trimmed := strings.TrimRight(src, " \t\r\n")
	b.WriteString(trimmed)
	if trimmed != "" {
		b.WriteString("\n\n")
	}
	b.WriteString(cssparse.MarkerComment(name))
	b.WriteByte('\n')
	b.WriteString(strings.TrimRight(block, "\n"))
	b.WriteByte('\n')
	return b.String()
}

// injector accumulates marker-guarded blocks for one stage run.
type injector struct {
	in       *Input
	css      string
	changes  []Change
	injected []string
}

func newInjector(in *Input, css string) *injector {
	return &injector{in: in, css: css}
}

// add appends block under name unless it is already present.
func (j *injector) add(name, block string) {
	if block == "" || j.in.HasInjection(name) {
		return
	}
	j.css = appendBlock(j.css, name, block)
	j.injected = append(j.injected, name)
	j.changes = append(j.changes, Change{
		Type:     ChangeInjection,
		After:    name,
		Location: Location{File: j.in.FilePath},
	})
}

// rule renders a compact rule from property/value pairs in order.
func rule(selector string, decls ...string) string {
	var b strings.Builder
	b.WriteString(selector)
	b.WriteByte('{')
	for i := 0; i+1 < len(decls); i += 2 {
		b.WriteString(decls[i])
		b.WriteByte(':')
		b.WriteString(decls[i+1])
		b.WriteByte(';')
	}
	b.WriteByte('}')
	return b.String()
}

func sortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Message < recs[j].Message })
}
