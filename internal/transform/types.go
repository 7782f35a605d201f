// Package transform holds the rewriting stages. Each stage rewrites one
// aspect of a stylesheet to reference design tokens, or appends generated
// utility CSS derived from the token set.
package transform

import (
	"time"

	"github.com/yacobolo/csstokens/internal/cssparse"
	"github.com/yacobolo/csstokens/internal/match"
	"github.com/yacobolo/csstokens/internal/tokens"
)

// Change types.
const (
	ChangeColor          = "color-normalization"
	ChangeSpacing        = "spacing-normalization"
	ChangeRadius         = "radius-normalization"
	ChangeElevation      = "elevation-normalization"
	ChangeFontSize       = "typography-font-size"
	ChangeLineHeight     = "typography-line-height"
	ChangeFontWeight     = "typography-font-weight"
	ChangeFontFamily     = "typography-font-family"
	ChangeTypeSuggestion = "typography-suggestion"
	ChangeTypeSnap       = "typography-snap"
	ChangeAnimation      = "animation-normalization"
	ChangeGradientPreset = "gradient-preset"
	ChangeGradientColor  = "gradient-color"
	ChangeInjection      = "injection"
	ChangeRollback       = "pipeline_rollback"
)

// Location points at the declaration a change was made to.
type Location struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Selector string `json:"selector,omitempty"`
}

// Change records one rewritten declaration or one injected block.
// Injections leave Property empty and carry the block name in After.
type Change struct {
	Type     string       `json:"type"`
	Property string       `json:"property,omitempty"`
	Before   string       `json:"before"`
	After    string       `json:"after"`
	Location Location     `json:"location"`
	Tokens   []tokens.Ref `json:"tokens,omitempty"`
	// Reason explains a rollback.
	Reason string `json:"reason,omitempty"`
}

// IsInjection reports whether the change appended a block rather than
// rewriting a declaration.
func (c Change) IsInjection() bool {
	return c.Type == ChangeInjection
}

// Severity grades a recommendation.
type Severity string

// Recommendation severities.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Recommendation is an advisory diagnostic. It never alters CSS.
type Recommendation struct {
	Stage    string   `json:"stage"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Count    int      `json:"count,omitempty"`
}

// StageResult is what every stage returns. CSS becomes the next stage's
// input.
type StageResult struct {
	CSS             string
	Changes         []Change
	Recommendations []Recommendation
	// Injected lists the blocks appended by this run.
	Injected []string
}

// Scale parameterizes the modular type scale.
type Scale struct {
	Base  float64
	Ratio float64
	Min   float64
	Max   float64
}

// Tuning gathers every threshold the stages use.
type Tuning struct {
	Match               match.Config
	Scale               Scale
	FontSizeTolerance   float64
	LineHeightTolerance float64
	DurationTolerance   time.Duration
	// SnapToScale rewrites off-scale font sizes to the nearest scale value
	// when no token exists, instead of leaving a suggestion comment.
	SnapToScale bool
}

// DefaultTuning returns the default thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		Match:               match.DefaultConfig(),
		Scale:               Scale{Base: 16, Ratio: 1.25, Min: 0.75, Max: 8},
		FontSizeTolerance:   0.20,
		LineHeightTolerance: 0.10,
		DurationTolerance:   50 * time.Millisecond,
	}
}

// WithDefaults fills every zero threshold from DefaultTuning, so a Tuning
// literal that only sets a few fields still matches and scales sensibly.
// A negative Match.NearMissDistance is kept and disables near-miss reports.
func (t Tuning) WithDefaults() Tuning {
	def := DefaultTuning()
	fill := func(v *float64, d float64) {
		if *v == 0 {
			*v = d
		}
	}
	fill(&t.Match.Tolerance, def.Match.Tolerance)
	fill(&t.Match.NearMissDistance, def.Match.NearMissDistance)
	if t.Match.RemBase <= 0 {
		t.Match.RemBase = def.Match.RemBase
	}
	t.Scale = t.Scale.withDefaults()
	fill(&t.FontSizeTolerance, def.FontSizeTolerance)
	fill(&t.LineHeightTolerance, def.LineHeightTolerance)
	if t.DurationTolerance == 0 {
		t.DurationTolerance = def.DurationTolerance
	}
	return t
}

func (t Tuning) remBase() float64 {
	if t.Match.RemBase <= 0 {
		return DefaultTuning().Match.RemBase
	}
	return t.Match.RemBase
}

// Input is what a stage works on.
type Input struct {
	CSS      string
	Tokens   *tokens.Set
	Matcher  *match.Matcher
	Gate     *match.Gate
	FilePath string
	Tuning   Tuning
	// Injected holds the blocks already applied in earlier runs.
	Injected map[string]bool

	markers map[string]int
}

// HasInjection reports whether block name is already present, either from
// the structured stamp or from a marker comment in the CSS.
func (in *Input) HasInjection(name string) bool {
	if in.Injected[name] {
		return true
	}
	if in.markers == nil {
		in.markers = cssparse.Markers(in.CSS)
	}
	_, ok := in.markers[name]
	return ok
}

// Stage is one rewriting pass.
type Stage interface {
	Name() string
	Transform(in *Input) (StageResult, error)
}
