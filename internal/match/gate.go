package match

import (
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/yacobolo/csstokens/internal/cssparse"
)

// DefaultExclusions are vendor and build output locations that are never
// rewritten.
var DefaultExclusions = []string{
	"node_modules/",
	"vendor/",
	"dist/",
	"build/",
	".next/",
	"coverage/",
	"*.min.css",
}

// Exclusions matches file paths against gitignore-style patterns.
type Exclusions struct {
	patterns []string
	gi       *ignore.GitIgnore
}

// NewExclusions compiles patterns. An empty list selects DefaultExclusions.
func NewExclusions(patterns []string) *Exclusions {
	if len(patterns) == 0 {
		patterns = DefaultExclusions
	}
	return &Exclusions{
		patterns: patterns,
		gi:       ignore.CompileIgnoreLines(patterns...),
	}
}

// Patterns returns the compiled patterns.
func (e *Exclusions) Patterns() []string {
	return e.patterns
}

// Match reports whether path is excluded. An empty path is never excluded.
func (e *Exclusions) Match(path string) bool {
	if e == nil || path == "" {
		return false
	}
	return e.gi.MatchesPath(filepath.ToSlash(path))
}

// Inline ignore markers.
const (
	IgnoreFileMarker     = "csstokens-ignore-file"
	IgnoreNextLineMarker = "csstokens-ignore-next-line"
	IgnoreMarker         = "csstokens-ignore"
)

// Ignores records which parts of a source are protected by ignore markers.
type Ignores struct {
	File  bool
	Lines map[int]bool
}

// ScanIgnores finds ignore markers in src comments.
// csstokens-ignore-file protects the whole file, csstokens-ignore the line
// the comment sits on and csstokens-ignore-next-line the line after it.
func ScanIgnores(src string) Ignores {
	ig := Ignores{Lines: make(map[int]bool)}
	for _, c := range cssparse.Comments(src) {
		switch {
		case strings.Contains(c.Text, IgnoreFileMarker):
			ig.File = true
		case strings.Contains(c.Text, IgnoreNextLineMarker):
			ig.Lines[c.Line+strings.Count(c.Text, "\n")+1] = true
		case strings.Contains(c.Text, IgnoreMarker):
			ig.Lines[c.Line] = true
		}
	}
	return ig
}

// Skips reports whether line is protected.
func (ig Ignores) Skips(line int) bool {
	return ig.File || ig.Lines[line]
}

// Budget caps the number of rewrites in one run. Once exhausted, further
// rewrites are left untouched rather than queued.
type Budget struct {
	max  int
	used int
}

// NewBudget returns a budget of max rewrites. Zero or less is unlimited.
func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

// Take consumes one rewrite and reports whether it was available.
func (b *Budget) Take() bool {
	if b == nil {
		return true
	}
	if b.max > 0 && b.used >= b.max {
		return false
	}
	b.used++
	return true
}

// Exhausted reports whether no rewrites remain.
func (b *Budget) Exhausted() bool {
	return b != nil && b.max > 0 && b.used >= b.max
}

// Used returns the number of rewrites taken.
func (b *Budget) Used() int {
	if b == nil {
		return 0
	}
	return b.used
}

// Gate combines the safety checks applied before any rewrite.
type Gate struct {
	Excluded bool
	Budget   *Budget
}

// NewGate evaluates path against exclusions and sets up the budget.
func NewGate(path string, exclusions *Exclusions, maxChanges int) *Gate {
	return &Gate{
		Excluded: exclusions.Match(path),
		Budget:   NewBudget(maxChanges),
	}
}

// Allows reports whether a declaration on line may be rewritten, without
// consuming budget.
func (g *Gate) Allows(ig Ignores, line int) bool {
	if g == nil {
		return !ig.Skips(line)
	}
	return !g.Excluded && !ig.Skips(line) && !g.Budget.Exhausted()
}

// Take consumes budget for one rewrite.
func (g *Gate) Take() bool {
	if g == nil {
		return true
	}
	return g.Budget.Take()
}
