package cssparse

import "strings"

// String serializes the stylesheet compactly: no whitespace around braces,
// colons or semicolons, and one top-level node per line. A comment keeps
// the number of line breaks it had to the node before it.
func (s *Stylesheet) String() string {
	var b strings.Builder
	line := 0
	for i, n := range s.Nodes {
		if i > 0 {
			if n.Line > 0 && (n.Kind == CommentNode || s.Nodes[i-1].Kind == CommentNode) {
				newlines(&b, n.Line-line)
			} else {
				b.WriteByte('\n')
			}
		}
		writeNode(&b, n)
		line = n.EndLine
	}
	return b.String()
}

// String serializes a single node compactly.
func (n *Node) String() string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

// Body serializes the children of a node without the surrounding braces.
func (n *Node) Body() string {
	var b strings.Builder
	writeChildren(&b, n.Children, n.OpenLine)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	switch n.Kind {
	case CommentNode:
		b.WriteString(n.Prelude)
	case DeclNode:
		b.WriteString(n.Property)
		if !n.Bare {
			b.WriteByte(':')
			b.WriteString(n.Value)
		}
		for _, c := range n.Comments {
			b.WriteByte(' ')
			b.WriteString(c)
		}
		b.WriteByte(';')
	case AtRuleNode:
		b.WriteString(n.Prelude)
		if !n.Block {
			b.WriteByte(';')
			return
		}
		writeBlock(b, n)
	case RuleNode:
		b.WriteString(n.Prelude)
		writeBlock(b, n)
	}
}

func writeBlock(b *strings.Builder, n *Node) {
	b.WriteByte('{')
	writeChildren(b, n.Children, n.OpenLine)
	b.WriteByte('}')
}

// writeChildren writes the nodes of a block. A block holding comments
// keeps the line breaks between its nodes, so line-scoped ignore markers
// still cover the same declarations once the output is parsed again.
func writeChildren(b *strings.Builder, nodes []*Node, line int) {
	keep := false
	for _, n := range nodes {
		if n.Kind == CommentNode {
			keep = true
			break
		}
	}
	for _, n := range nodes {
		if keep {
			newlines(b, n.Line-line)
			line = n.EndLine
		}
		writeNode(b, n)
	}
}

func newlines(b *strings.Builder, n int) {
	for ; n > 0; n-- {
		b.WriteByte('\n')
	}
}
