package optimize

import (
	"sort"
	"strings"

	"github.com/tdewolff/parse/v2/css"

	"github.com/yacobolo/csstokens/internal/cssparse"
)

// Step is one optimization. Apply receives the current CSS and returns the
// proposed CSS; the optimizer decides whether to accept it.
type Step struct {
	Name  string
	Apply func(src string) (string, error)
}

// DefaultSteps returns the optimizations in the order they run.
func DefaultSteps() []Step {
	return []Step{
		{Name: "deduplicate-rules", Apply: treeStep(deduplicateRules)},
		{Name: "consolidate-media", Apply: treeStep(consolidateMedia)},
		{Name: "normalize-selectors", Apply: treeStep(normalizeSelectors)},
		{Name: "minify-values", Apply: treeStep(minifyValues)},
		{Name: "sort-properties", Apply: treeStep(sortProperties)},
	}
}

// treeStep adapts a rule-list rewrite into a Step function. The result is
// serialized compactly.
func treeStep(fn func(nodes []*cssparse.Node) []*cssparse.Node) func(string) (string, error) {
	return func(src string) (string, error) {
		sheet := cssparse.Parse(src)
		sheet.Nodes = fn(sheet.Nodes)
		return sheet.String(), nil
	}
}

// deduplicateRules drops a rule or block when an identical one, same
// selector and same body, follows it in the same rule list. The last copy
// is the one that wins the cascade, so it is the one kept.
func deduplicateRules(nodes []*cssparse.Node) []*cssparse.Node {
	for _, n := range nodes {
		if n.Kind == cssparse.AtRuleNode && n.RuleList {
			n.Children = deduplicateRules(n.Children)
		}
	}

	seen := make(map[string]bool)
	keep := make([]bool, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		var key string
		switch {
		case n.Kind == cssparse.RuleNode:
			key = "r\x00" + cssparse.NormalizeSelector(n.Prelude) + "\x00" + n.Body()
		case n.Kind == cssparse.AtRuleNode && n.Block:
			key = "a\x00" + n.Prelude + "\x00" + n.Body()
		default:
			keep[i] = true
			continue
		}
		if !seen[key] {
			seen[key] = true
			keep[i] = true
		}
	}

	out := nodes[:0]
	for i, n := range nodes {
		if keep[i] {
			out = append(out, n)
		}
	}
	return out
}

// consolidateMedia merges consecutive @media blocks with the same
// condition. Only adjacent blocks are merged so no rule moves past another.
func consolidateMedia(nodes []*cssparse.Node) []*cssparse.Node {
	var out []*cssparse.Node
	for _, n := range nodes {
		if n.Kind == cssparse.AtRuleNode && n.RuleList {
			n.Children = consolidateMedia(n.Children)
		}
		if len(out) > 0 && isMedia(n) {
			prev := out[len(out)-1]
			if isMedia(prev) && strings.EqualFold(prev.Prelude, n.Prelude) {
				prev.Children = append(prev.Children, n.Children...)
				continue
			}
		}
		out = append(out, n)
	}
	return out
}

func isMedia(n *cssparse.Node) bool {
	return n.Kind == cssparse.AtRuleNode && n.RuleList && n.AtName() == "@media"
}

// normalizeSelectors collapses whitespace in selectors and removes it
// around combinators.
func normalizeSelectors(nodes []*cssparse.Node) []*cssparse.Node {
	for _, n := range nodes {
		if n.Kind == cssparse.RuleNode {
			n.Prelude = cssparse.NormalizeSelector(n.Prelude)
		}
		if len(n.Children) > 0 {
			normalizeSelectors(n.Children)
		}
	}
	return nodes
}

// lengthUnits are the units a zero length may drop.
var lengthUnits = map[string]bool{
	"px": true, "em": true, "rem": true, "ex": true, "ch": true,
	"vw": true, "vh": true, "vmin": true, "vmax": true,
	"svw": true, "svh": true, "lvw": true, "lvh": true, "dvw": true, "dvh": true,
	"vi": true, "vb": true,
	"cm": true, "mm": true, "q": true, "in": true, "pt": true, "pc": true,
}

// keepUnitProperties need a unit on zero to parse the same way.
var keepUnitProperties = map[string]bool{
	"flex":       true,
	"flex-basis": true,
}

// minifyValues strips the unit from zero lengths at the top level of a
// value. Any non-zero quantity, and zero percentages, times and angles, are
// left as written; values nested inside functions are never touched since
// calc() requires units.
func minifyValues(nodes []*cssparse.Node) []*cssparse.Node {
	for _, n := range nodes {
		switch n.Kind {
		case cssparse.DeclNode:
			if n.Bare || strings.HasPrefix(n.Property, "--") || keepUnitProperties[n.Property] {
				continue
			}
			if v, ok := cssparse.MapTopLevel(n.Value, zeroLength); ok {
				n.Value = v
			}
		case cssparse.RuleNode, cssparse.AtRuleNode:
			minifyValues(n.Children)
		}
	}
	return nodes
}

func zeroLength(tok cssparse.Token) (string, bool) {
	if tok.Type != css.DimensionToken {
		return "", false
	}
	num, unit, ok := cssparse.ParseDimension(tok.Data)
	if !ok || num != 0 || !lengthUnits[unit] {
		return "", false
	}
	return "0", true
}

// sortProperties orders the declarations of each block by property group.
// Nested rules split a block into runs that are sorted independently.
// Blocks that use the all property or hold comments are left alone.
func sortProperties(nodes []*cssparse.Node) []*cssparse.Node {
	for _, n := range nodes {
		if n.Kind != cssparse.RuleNode && n.Kind != cssparse.AtRuleNode {
			continue
		}
		if n.RuleList {
			sortProperties(n.Children)
			continue
		}
		sortBlock(n.Children)
		sortProperties(n.Children)
	}
	return nodes
}

func sortBlock(children []*cssparse.Node) {
	for _, c := range children {
		if c.Kind == cssparse.CommentNode || (c.Kind == cssparse.DeclNode && c.Property == "all") {
			return
		}
	}

	start := 0
	for i := 0; i <= len(children); i++ {
		if i < len(children) && children[i].Kind == cssparse.DeclNode {
			continue
		}
		run := children[start:i]
		sort.SliceStable(run, func(a, b int) bool {
			return groupOf(run[a].Property) < groupOf(run[b].Property)
		})
		start = i + 1
	}
}
