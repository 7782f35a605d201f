package optimize

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/csstokens/internal/cssparse"
)

func applyTree(t *testing.T, fn func([]*cssparse.Node) []*cssparse.Node, src string) string {
	t.Helper()
	out, err := treeStep(fn)(src)
	require.NoError(t, err)
	return out
}

func TestPixelPreservation(t *testing.T) {
	rep := New(nil).Optimize(".c{width:350px;height:0px;}")

	assert.Equal(t, StateFinalValidated, rep.State)
	assert.Contains(t, rep.CSS, "350px")
	assert.Contains(t, rep.CSS, "height:0")
	assert.Equal(t, ".c{width:350px;height:0;}", rep.CSS)
}

func TestDeduplicateRules(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "keeps last copy",
			src:  ".a{color:red}\n.b{color:blue}\n.a { color: red }",
			want: ".b{color:blue;}\n.a{color:red;}",
		},
		{
			name: "different bodies kept",
			src:  ".a{color:red}.a{color:blue}",
			want: ".a{color:red;}\n.a{color:blue;}",
		},
		{
			name: "inside media",
			src:  "@media print{.a{color:red}.a{color:red}}",
			want: "@media print{.a{color:red;}}",
		},
		{
			name: "comments kept",
			src:  "/* x */.a{color:red}/* x */.a{color:red}",
			want: "/* x *//* x */.a{color:red;}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyTree(t, deduplicateRules, tt.src))
		})
	}
}

func TestConsolidateMedia(t *testing.T) {
	src := "@media (max-width:600px){.a{color:red}}@media (max-width:600px){.b{color:blue}}"
	assert.Equal(t, "@media (max-width:600px){.a{color:red;}.b{color:blue;}}", applyTree(t, consolidateMedia, src))

	// A rule in between keeps the blocks apart.
	src = "@media print{.a{color:red}}.c{color:green}@media print{.b{color:blue}}"
	assert.Equal(t, "@media print{.a{color:red;}}\n.c{color:green;}\n@media print{.b{color:blue;}}", applyTree(t, consolidateMedia, src))
}

func TestNormalizeSelectors(t *testing.T) {
	src := ".a  >  .b ,  .c{color:red}@media print{ ul  li + li {margin:0}}"
	assert.Equal(t, ".a>.b,.c{color:red;}\n@media print{ul li+li{margin:0;}}", applyTree(t, normalizeSelectors, src))
}

func TestMinifyValues(t *testing.T) {
	src := ".a{margin:0px 0em 10px 0%;transition:opacity 0s;--x:0px;transform:translate(0px);flex:1 1 0px;padding:0.0rem;rotate:0deg;}"
	want := ".a{margin:0 0 10px 0%;transition:opacity 0s;--x:0px;transform:translate(0px);flex:1 1 0px;padding:0;rotate:0deg;}"
	assert.Equal(t, want, applyTree(t, minifyValues, src))
}

func TestSortProperties(t *testing.T) {
	src := ".a{color:red;--x:1;display:flex;font-size:12px;transition:none;margin:0;border-top-left-radius:2px;border:0}"
	want := ".a{--x:1;display:flex;margin:0;font-size:12px;color:red;border-top-left-radius:2px;border:0;transition:none;}"
	assert.Equal(t, want, applyTree(t, sortProperties, src))

	// all resets every property, so order matters.
	src = ".a{color:red;all:unset;display:block;}"
	assert.Equal(t, src, applyTree(t, sortProperties, src))

	// Comments stay next to the declarations they annotate.
	src = ".a{color:red;/* keep */display:block;}"
	assert.Equal(t, src, applyTree(t, sortProperties, src))
}

func TestGroupOf(t *testing.T) {
	tests := map[string]Group{
		"--brand":                 GroupCustom,
		"padding-inline-start":    GroupLayout,
		"font-variant-numeric":    GroupTypography,
		"text-decoration-color":   GroupTypography,
		"-webkit-background-clip": GroupVisual,
		"border-bottom-width":     GroupVisual,
		"animation-fill-mode":     GroupEffects,
		"unknown-thing":           GroupLayout,
	}
	for prop, want := range tests {
		assert.Equal(t, want, groupOf(prop), prop)
	}
}

func TestStepRejectedWhenSelectorsStripped(t *testing.T) {
	src := ".a{color:red;}\n.b{color:blue;}"
	strip := Step{Name: "strip", Apply: func(string) (string, error) {
		return "color:red;color:blue;", nil
	}}

	rep := New(nil, strip).Optimize(src)
	assert.Equal(t, src, rep.CSS)
	require.Len(t, rep.Records, 1)
	assert.Equal(t, StateRejected, rep.Records[0].State)
	assert.Equal(t, StateFinalValidated, rep.State)
}

func TestRollbackOnCumulativeSelectorLoss(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString(".r")
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString("{color:red;}\n")
	}
	src := b.String()

	dropFirst := Step{Name: "drop-first", Apply: func(s string) (string, error) {
		sheet := cssparse.Parse(s)
		sheet.Nodes = sheet.Nodes[1:]
		return sheet.String(), nil
	}}

	rep := New(nil, dropFirst, dropFirst, dropFirst).Optimize(src)
	assert.True(t, rep.RolledBack())
	assert.Equal(t, src, rep.CSS)

	last := rep.Records[len(rep.Records)-1]
	assert.Equal(t, RollbackStep, last.Step)
	assert.Equal(t, StateRolledBack, last.State)
	for _, rec := range rep.Records[:3] {
		assert.Equal(t, StateValidated, rec.State)
	}
}

func TestRollbackOnPixelLoss(t *testing.T) {
	src := ".c{width:350px;}"
	corrupt := Step{Name: "corrupt", Apply: func(s string) (string, error) {
		return strings.ReplaceAll(s, "350px", "35px"), nil
	}}

	rep := New(nil, corrupt).Optimize(src)
	assert.True(t, rep.RolledBack())
	assert.Equal(t, src, rep.CSS)
	assert.Contains(t, rep.Reason, "350px")
	assert.Equal(t, RollbackStep, rep.Records[len(rep.Records)-1].Step)
}

func TestFailingStepsAreSkipped(t *testing.T) {
	boom := Step{Name: "boom", Apply: func(string) (string, error) { panic("boom") }}
	fail := Step{Name: "fail", Apply: func(string) (string, error) { return "", errors.New("nope") }}
	trim := Step{Name: "trim", Apply: func(s string) (string, error) { return strings.TrimSpace(s), nil }}

	rep := New(nil, boom, fail, trim).Optimize("  .a{color:red;}  ")
	require.Len(t, rep.Records, 3)
	assert.Equal(t, StateRejected, rep.Records[0].State)
	assert.Contains(t, rep.Records[0].Reason, "panicked")
	assert.Equal(t, StateRejected, rep.Records[1].State)
	assert.Equal(t, StateValidated, rep.Records[2].State)
	assert.Equal(t, ".a{color:red;}", rep.CSS)
	assert.Equal(t, []string{"trim"}, rep.Applied())
}

func TestValidateStep(t *testing.T) {
	tests := []struct {
		name   string
		before string
		after  string
		err    error
	}{
		{"identity", ".a{color:red}", ".a{color:red;}", nil},
		{"unbalanced", ".a{color:red}", ".a{color:red", ErrUnbalanced},
		{"properties lost", ".a{color:red}", ".a{}", ErrPropertiesLost},
		{"orphan", ".a{color:red}", "color:red;.a{color:red}", ErrOrphanedProperty},
		{"selectors lost", ".a{color:red}.b{color:red}", ".a{color:red}", ErrSelectorLoss},
		{"empty", "", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStep(tt.before, tt.after)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCheckBraceSyntax(t *testing.T) {
	assert.NoError(t, checkBraceSyntax(".a{color:red;}@media print{.b{color:blue;}}"))
	assert.ErrorIs(t, checkBraceSyntax("{color:red;}"), ErrInvalidBraceSyntax)
	assert.ErrorIs(t, checkBraceSyntax(".a{color:red;}}"), ErrInvalidBraceSyntax)
	assert.ErrorIs(t, checkBraceSyntax(".a{color:red;"), ErrInvalidBraceSyntax)
}

func TestStructuralInvariant(t *testing.T) {
	inputs := []string{
		".a{color:red}.a{color:red}.b{margin:0px}",
		"@media (min-width:1px){.a{color:red}}@media (min-width:1px){.a{color:red}}",
		".a{color:red;}\n/* csstokens:states-buttons v1 */\nbutton:hover{opacity:.9}",
		".broken{color:red",
		"",
	}

	for _, src := range inputs {
		rep := New(nil).Optimize(src)
		after := cssparse.Analyze(rep.CSS)
		before := cssparse.Analyze(src)
		if before.Balanced() {
			assert.True(t, after.Balanced(), src)
		}
		if before.SelectorCount > 0 {
			assert.GreaterOrEqual(t, float64(after.SelectorCount), 0.9*float64(before.SelectorCount), src)
		}
	}
}

func TestMarkersSurviveOptimization(t *testing.T) {
	src := ".a{color:red;}\n\n/* csstokens:states-buttons v1 */\nbutton:hover{opacity:.9}"
	rep := New(nil).Optimize(src)

	require.Equal(t, StateFinalValidated, rep.State)
	assert.Contains(t, cssparse.Markers(rep.CSS), "states-buttons")
}

func TestCommentsSurviveOptimization(t *testing.T) {
	src := ".a {\n  padding: 16px; /* csstokens-ignore */\n  margin: 8px /* csstokens-suggest: 10px */;\n}\n" +
		"/* csstokens-ignore-next-line */\n.b { gap: 16px }"
	rep := New(nil).Optimize(src)

	require.Equal(t, StateFinalValidated, rep.State)
	want := ".a{\npadding:16px;/* csstokens-ignore */\nmargin:8px /* csstokens-suggest: 10px */;}\n" +
		"/* csstokens-ignore-next-line */\n.b{gap:16px;}"
	assert.Equal(t, want, rep.CSS)

	// Each marker still sits on the same line relative to its target.
	decls := cssparse.Declarations(rep.CSS)
	comments := cssparse.Comments(rep.CSS)
	require.Len(t, decls, 3)
	require.Len(t, comments, 3)
	assert.Equal(t, decls[0].Line, comments[0].Line)
	assert.Equal(t, decls[2].Line, comments[2].Line+1)

	// A second pass changes nothing.
	assert.Equal(t, rep.CSS, New(nil).Optimize(rep.CSS).CSS)
}
