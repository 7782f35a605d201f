package cssparse

import (
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// NodeKind classifies a stylesheet node.
type NodeKind int

const (
	// RuleNode is a qualified rule: a selector and a declaration block.
	RuleNode NodeKind = iota
	// AtRuleNode is an at-rule, with or without a block.
	AtRuleNode
	// DeclNode is a property declaration.
	DeclNode
	// CommentNode is a comment kept at rule-list level.
	CommentNode
)

// Node is one element of the rule tree.
type Node struct {
	Kind NodeKind

	// Prelude is the selector of a rule, the full prelude of an at-rule
	// ("@media (max-width: 600px)") or the text of a comment.
	Prelude string

	// Property and Value are set on declarations. Value is compacted:
	// whitespace runs collapse to a single space and comments move to
	// Comments.
	Property string
	Value    string

	// Comments are the comments inside a declaration's value, in order.
	// They are written back after the value.
	Comments []string


	// Block is set on at-rules that carry a {} body.
	Block bool

	// RuleList is set when the block holds rules rather than declarations.
	RuleList bool

	// Bare is set on declarations that have no colon.
	Bare bool

	Children []*Node

	// Source position. For declarations Start/End span the raw value.
	// OpenLine is the line of the opening brace of a block.
	Start, End int
	Line       int
	Column     int
	EndLine    int
	OpenLine   int
}

// AtName returns the lowercased at-keyword of an at-rule ("@media").
func (n *Node) AtName() string {
	if n.Kind != AtRuleNode {
		return ""
	}
	name, _, _ := strings.Cut(n.Prelude, " ")
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	if n.Comments != nil {
		c.Comments = append([]string(nil), n.Comments...)
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// Stylesheet is a parsed rule tree plus the structural defects noticed while
// reading it.
type Stylesheet struct {
	Nodes []*Node

	// Unclosed counts blocks still open at end of input.
	Unclosed int
	// Unopened counts closing braces with no matching opening brace.
	Unopened int
}

// Clone returns a deep copy of the stylesheet.
func (s *Stylesheet) Clone() *Stylesheet {
	c := &Stylesheet{Unclosed: s.Unclosed, Unopened: s.Unopened}
	c.Nodes = make([]*Node, len(s.Nodes))
	for i, n := range s.Nodes {
		c.Nodes[i] = n.Clone()
	}
	return c
}

// ruleListAtRules hold rules rather than declarations.
var ruleListAtRules = map[string]bool{
	"@media":             true,
	"@supports":          true,
	"@layer":             true,
	"@container":         true,
	"@document":          true,
	"@-moz-document":     true,
	"@scope":             true,
	"@starting-style":    true,
	"@keyframes":         true,
	"@-webkit-keyframes": true,
	"@-moz-keyframes":    true,
	"@-o-keyframes":      true,
}

type parser struct {
	src   string
	toks  []Token
	pos   int
	lines Lines
	sheet *Stylesheet
}

// Parse reads src into a rule tree. It never fails: malformed input is
// recovered from and recorded in Unclosed, Unopened and orphaned
// declarations at rule-list level.
func Parse(src string) *Stylesheet {
	p := &parser{
		src:   src,
		toks:  Tokenize(src),
		lines: NewLines(src),
		sheet: &Stylesheet{},
	}

	p.sheet.Nodes = p.ruleList(0)
	p.endLines(p.sheet.Nodes)
	return p.sheet
}

func (p *parser) endLines(nodes []*Node) {
	for _, n := range nodes {
		n.EndLine, _ = p.position(n.End)
		p.endLines(n.Children)
	}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.toks)
}

func (p *parser) position(offset int) (int, int) {
	return p.lines.At(offset)
}

// scan advances to the next top-level '{', ';' or '}' and returns the index
// of that terminator (len(toks) at EOF). The terminator is not consumed.
func (p *parser) scan() int {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		tt := p.toks[i].Type
		switch {
		case opens(tt):
			depth++
		case closes(tt):
			if depth > 0 {
				depth--
			}
		case depth == 0 && (tt == css.LeftBraceToken || tt == css.SemicolonToken || tt == css.RightBraceToken):
			return i
		}
	}
	return len(p.toks)
}

func (p *parser) ruleList(depth int) []*Node {
	var nodes []*Node
	for {
		if p.eof() {
			if depth > 0 {
				p.sheet.Unclosed++
			}
			return nodes
		}

		tok := p.toks[p.pos]
		switch tok.Type {
		case css.WhitespaceToken, css.CDOToken, css.CDCToken:
			p.pos++
			continue
		case css.CommentToken:
			nodes = append(nodes, p.comment(tok))
			p.pos++
			continue
		case css.RightBraceToken:
			p.pos++
			if depth > 0 {
				return nodes
			}
			p.sheet.Unopened++
			continue
		}

		start := p.pos
		end := p.scan()
		prelude := compact(p.toks[start:end])
		line, col := p.position(p.toks[start].Offset)

		if end < len(p.toks) && p.toks[end].Type == css.LeftBraceToken {
			p.pos = end + 1
			n := &Node{Kind: RuleNode, Prelude: prelude, Start: p.toks[start].Offset, Line: line, Column: col}
			n.OpenLine, _ = p.position(p.toks[end].Offset)
			if strings.HasPrefix(prelude, "@") {
				n.Kind = AtRuleNode
				n.Block = true
			}
			if n.Kind == AtRuleNode && ruleListAtRules[n.AtName()] {
				n.RuleList = true
				n.Children = p.ruleList(depth + 1)
			} else {
				n.Children = p.declBlock(depth + 1)
			}
			n.End = p.lastOffset()
			nodes = append(nodes, n)
			continue
		}

		// Statement terminated by ';', '}' or EOF.
		p.pos = end
		if end < len(p.toks) && p.toks[end].Type == css.SemicolonToken {
			p.pos++
		}
		if strings.HasPrefix(prelude, "@") {
			nodes = append(nodes, &Node{Kind: AtRuleNode, Prelude: prelude, Start: p.toks[start].Offset, End: p.toks[end-1].End(), Line: line, Column: col})
			continue
		}
		if d := p.declaration(start, end); d != nil {
			nodes = append(nodes, d)
		}
	}
}

func (p *parser) declBlock(depth int) []*Node {
	var nodes []*Node
	for {
		if p.eof() {
			p.sheet.Unclosed++
			return nodes
		}

		switch tok := p.toks[p.pos]; tok.Type {
		case css.WhitespaceToken, css.SemicolonToken:
			p.pos++
			continue
		case css.CommentToken:
			nodes = append(nodes, p.comment(tok))
			p.pos++
			continue
		case css.RightBraceToken:
			p.pos++
			return nodes
		}

		start := p.pos
		end := p.scan()

		if end < len(p.toks) && p.toks[end].Type == css.LeftBraceToken {
			// Nested rule inside a declaration block.
			prelude := compact(p.toks[start:end])
			line, col := p.position(p.toks[start].Offset)
			p.pos = end + 1
			n := &Node{Kind: RuleNode, Prelude: prelude, Start: p.toks[start].Offset, Line: line, Column: col}
			n.OpenLine, _ = p.position(p.toks[end].Offset)
			if strings.HasPrefix(prelude, "@") {
				n.Kind = AtRuleNode
				n.Block = true
			}
			n.Children = p.declBlock(depth + 1)
			n.End = p.lastOffset()
			nodes = append(nodes, n)
			continue
		}

		p.pos = end
		if d := p.declaration(start, end); d != nil {
			nodes = append(nodes, d)
		}
	}
}

func (p *parser) comment(tok Token) *Node {
	line, col := p.position(tok.Offset)
	return &Node{Kind: CommentNode, Prelude: tok.Data, Start: tok.Offset, End: tok.End(), Line: line, Column: col}
}

// declaration builds a DeclNode from toks[start:end]. Text without a colon
// is kept as a declaration with an empty Value so nothing is silently lost.
func (p *parser) declaration(start, end int) *Node {
	toks := p.toks[start:end]
	if len(toks) == 0 {
		return nil
	}

	colon := -1
	depth := 0
	for i, tok := range toks {
		switch {
		case opens(tok.Type):
			depth++
		case closes(tok.Type) && depth > 0:
			depth--
		case tok.Type == css.ColonToken && depth == 0:
			colon = i
		}
		if colon >= 0 {
			break
		}
	}

	line, col := p.position(toks[0].Offset)
	if colon < 0 {
		text := compact(toks)
		if text == "" {
			return nil
		}
		return &Node{Kind: DeclNode, Property: text, Bare: true, Start: toks[0].Offset, End: toks[len(toks)-1].End(), Line: line, Column: col}
	}

	prop := compact(toks[:colon])
	if !strings.HasPrefix(prop, "--") {
		prop = strings.ToLower(prop)
	}

	valueToks := trimTokens(toks[colon+1:])
	n := &Node{Kind: DeclNode, Property: prop, Line: line, Column: col}
	for _, tok := range toks[colon+1:] {
		if tok.Type == css.CommentToken {
			n.Comments = append(n.Comments, tok.Data)
		}
	}
	if len(valueToks) == 0 {
		n.Start = toks[colon].End()
		n.End = n.Start
		return n
	}
	n.Value = compact(valueToks)
	n.Start = valueToks[0].Offset
	n.End = valueToks[len(valueToks)-1].End()
	n.Line, n.Column = p.position(n.Start)
	return n
}

func (p *parser) lastOffset() int {
	if p.pos == 0 {
		return 0
	}
	if p.pos > len(p.toks) {
		return len(p.src)
	}
	return p.toks[p.pos-1].End()
}

// trimTokens drops leading and trailing whitespace and comments.
func trimTokens(toks []Token) []Token {
	skip := func(tt css.TokenType) bool {
		return tt == css.WhitespaceToken || tt == css.CommentToken
	}
	for len(toks) > 0 && skip(toks[0].Type) {
		toks = toks[1:]
	}
	for len(toks) > 0 && skip(toks[len(toks)-1].Type) {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// compact joins tokens, collapsing whitespace to single spaces and dropping
// comments.
func compact(toks []Token) string {
	var b strings.Builder
	space := false
	for _, tok := range toks {
		switch tok.Type {
		case css.WhitespaceToken:
			space = true
			continue
		case css.CommentToken:
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteString(tok.Data)
	}
	return b.String()
}

// Decl is a declaration found in source text, with enough position
// information to rewrite its value in place.
type Decl struct {
	Property string
	// Value is the raw source text of the value, trimmed.
	Value    string
	Start    int
	End      int
	Line     int
	Column   int
	Selector string
	AtRule   string
}

// Declarations returns every declaration inside a block, in source order.
// Orphaned declarations at rule-list level are not included.
func Declarations(src string) []Decl {
	sheet := Parse(src)

	var out []Decl
	var walk func(nodes []*Node, selector, atRule string, inBlock bool)
	walk = func(nodes []*Node, selector, atRule string, inBlock bool) {
		for _, n := range nodes {
			switch n.Kind {
			case RuleNode:
				walk(n.Children, n.Prelude, atRule, true)
			case AtRuleNode:
				walk(n.Children, selector, n.Prelude, !n.RuleList)
			case DeclNode:
				if !inBlock || n.Value == "" {
					continue
				}
				out = append(out, Decl{
					Property: n.Property,
					Value:    src[n.Start:n.End],
					Start:    n.Start,
					End:      n.End,
					Line:     n.Line,
					Column:   n.Column,
					Selector: selector,
					AtRule:   atRule,
				})
			}
		}
	}
	walk(sheet.Nodes, "", "", false)
	return out
}
