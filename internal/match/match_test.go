package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/csstokens/internal/tokens"
)

func testSet() *tokens.Set {
	return &tokens.Set{
		Colors: tokens.Colors{Roles: tokens.Group{
			{Name: "primary", Value: tokens.Value{Value: "#1B3668"}},
			{Name: "white", Value: tokens.Value{Value: "#fff"}},
			{Name: "surface", Value: tokens.Value{Light: "#f8f9fa", Dark: "#212529"}},
		}},
		Spacing: tokens.Spacing{Tokens: tokens.Group{
			{Name: "sm", Value: tokens.Value{Value: "8px"}},
			{Name: "md", Value: tokens.Value{Value: "16px"}},
			{Name: "lg", Value: tokens.Value{Value: "24px"}},
		}},
		Radii: tokens.Group{
			{Name: "sm", Value: tokens.Value{Value: "0.25rem"}},
			{Name: "full", Value: tokens.Value{Value: "9999px"}},
		},
		Elevation: tokens.Group{
			{Name: "sm", Value: tokens.Value{Value: "0 1px 2px rgba(0, 0, 0, 0.05)"}},
		},
	}
}

func TestSpacingTolerance(t *testing.T) {
	m := New(testSet(), DefaultConfig())

	tests := []struct {
		value string
		name  string
		ok    bool
	}{
		{"15.5px", "md", true},
		{"16px", "md", true},
		{"1rem", "md", true},
		{"20px", "", false},
		{"15px", "", false},
		{"0", "", false},
		{"0px", "", false},
		{"-16px", "", false},
		{"1em", "", false},
		{"auto", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			ref, ok := m.Spacing(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tokens.Ref{Category: tokens.CategorySpacing, Name: tt.name}, ref)
			}
		})
	}
}

func TestToleranceStrategy(t *testing.T) {
	set := &tokens.Set{Spacing: tokens.Spacing{Tokens: tokens.Group{
		{Name: "a", Value: tokens.Value{Value: "10px"}},
		{Name: "b", Value: tokens.Value{Value: "10.4px"}},
	}}}

	first := New(set, DefaultConfig())
	ref, ok := first.Spacing("10.4px")
	require.True(t, ok)
	assert.Equal(t, "a", ref.Name)

	cfg := DefaultConfig()
	cfg.Strategy = Closest
	closest := New(set, cfg)
	ref, ok = closest.Spacing("10.4px")
	require.True(t, ok)
	assert.Equal(t, "b", ref.Name)

	assert.Equal(t, Closest, ParseStrategy("Closest"))
	assert.Equal(t, FirstWithin, ParseStrategy("anything"))
	assert.Equal(t, "closest", Closest.String())
}

func TestRadius(t *testing.T) {
	m := New(testSet(), DefaultConfig())

	ref, ok := m.Radius("4px")
	require.True(t, ok)
	assert.Equal(t, "sm", ref.Name)

	ref, ok = m.Radius("9999px")
	require.True(t, ok)
	assert.Equal(t, "full", ref.Name)

	_, ok = m.Radius("50%")
	assert.False(t, ok)
}

func TestColorExact(t *testing.T) {
	m := New(testSet(), DefaultConfig())

	tests := []struct {
		value string
		name  string
		ok    bool
	}{
		{"#1B3668", "primary", true},
		{"#1b3668", "primary", true},
		{"#fff", "white", true},
		{"#FFFFFF", "white", true},
		{"#f8f9fa", "surface", true},
		{"#212529", "surface", true},
		{"#1B3669", "", false},
		{"red", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			ref, ok := m.Color(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.name, ref.Name)
			}
		})
	}
}

func TestNearestColor(t *testing.T) {
	m := New(testSet(), DefaultConfig())

	ref, dist, ok := m.NearestColor("#1B3669")
	require.True(t, ok)
	assert.Equal(t, "primary", ref.Name)
	assert.Greater(t, dist, 0.0)

	_, _, ok = m.NearestColor("#1B3668")
	assert.False(t, ok, "exact matches are not near misses")

	_, _, ok = m.NearestColor("#ff0000")
	assert.False(t, ok)

	cfg := DefaultConfig()
	cfg.NearMissDistance = 0
	_, _, ok = New(testSet(), cfg).NearestColor("#1B3669")
	assert.False(t, ok)
}

func TestElevation(t *testing.T) {
	m := New(testSet(), DefaultConfig())

	for _, v := range []string{
		"0 1px 2px rgba(0, 0, 0, 0.05)",
		"0  1px 2px RGBA(0,0,0,0.05)",
		" 0 1px 2px rgba( 0 , 0 , 0 , 0.05 ) ",
	} {
		ref, ok := m.Elevation(v)
		assert.True(t, ok, v)
		assert.Equal(t, "sm", ref.Name)
	}

	_, ok := m.Elevation("0 1px 3px rgba(0, 0, 0, 0.05)")
	assert.False(t, ok)
}

func TestNormalizeHex(t *testing.T) {
	tests := []struct {
		in  string
		out string
		ok  bool
	}{
		{"#ABC", "#aabbcc", true},
		{"#AbCdEf", "#abcdef", true},
		{"#abcd", "#aabbccdd", true},
		{"#11223344", "#11223344", true},
		{"#ggg", "", false},
		{"#12345", "", false},
		{"abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			out, ok := NormalizeHex(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.out, out)
		})
	}
}

func TestExclusions(t *testing.T) {
	ex := NewExclusions(nil)

	excluded := []string{
		"node_modules/pkg/index.css",
		"packages/app/node_modules/pkg/a.css",
		"dist/app.css",
		"vendor/bootstrap.css",
		"styles/app.min.css",
		".next/static/a.css",
	}
	for _, p := range excluded {
		assert.True(t, ex.Match(p), p)
	}

	included := []string{"styles/app.css", "src/distance.css", ""}
	for _, p := range included {
		assert.False(t, ex.Match(p), p)
	}

	custom := NewExclusions([]string{"legacy/"})
	assert.True(t, custom.Match("legacy/a.css"))
	assert.False(t, custom.Match("dist/a.css"))
	assert.Equal(t, []string{"legacy/"}, custom.Patterns())

	var nilEx *Exclusions
	assert.False(t, nilEx.Match("dist/a.css"))
}

func TestScanIgnores(t *testing.T) {
	src := `.a { color: #fff; } /* csstokens-ignore */
/* csstokens-ignore-next-line */
.b { color: #fff; }
.c { color: #fff; }`

	ig := ScanIgnores(src)
	assert.False(t, ig.File)
	assert.True(t, ig.Skips(1))
	assert.False(t, ig.Skips(2))
	assert.True(t, ig.Skips(3))
	assert.False(t, ig.Skips(4))

	ig = ScanIgnores("/* csstokens-ignore-file */\n.a{}")
	assert.True(t, ig.File)
	assert.True(t, ig.Skips(42))
}

func TestBudget(t *testing.T) {
	b := NewBudget(2)
	assert.True(t, b.Take())
	assert.True(t, b.Take())
	assert.True(t, b.Exhausted())
	assert.False(t, b.Take())
	assert.Equal(t, 2, b.Used())

	unlimited := NewBudget(0)
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Take())
	}
	assert.False(t, unlimited.Exhausted())
}

func TestGate(t *testing.T) {
	ex := NewExclusions(nil)

	g := NewGate("dist/app.css", ex, 0)
	assert.False(t, g.Allows(Ignores{}, 1))

	g = NewGate("src/app.css", ex, 1)
	assert.True(t, g.Allows(Ignores{}, 1))
	assert.False(t, g.Allows(Ignores{Lines: map[int]bool{1: true}}, 1))
	assert.True(t, g.Take())
	assert.False(t, g.Allows(Ignores{}, 2))

	var nilGate *Gate
	assert.True(t, nilGate.Allows(Ignores{}, 1))
	assert.True(t, nilGate.Take())
}
