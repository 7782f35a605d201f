package compose

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/yacobolo/csstokens/internal/cssparse"
	"github.com/yacobolo/csstokens/internal/optimize"
	"github.com/yacobolo/csstokens/internal/tokens"
	"github.com/yacobolo/csstokens/internal/transform"
)

func testSet() *tokens.Set {
	return &tokens.Set{
		Name: "acme",
		Colors: tokens.Colors{Roles: tokens.Group{
			{Name: "primary", Value: tokens.Value{Value: "#1B3668"}},
		}},
		Spacing: tokens.Spacing{Tokens: tokens.Group{
			{Name: "sm", Value: tokens.Value{Value: "8px"}},
			{Name: "md", Value: tokens.Value{Value: "16px"}},
			{Name: "lg", Value: tokens.Value{Value: "32px"}},
		}},
		Animations: tokens.Animations{
			Duration: tokens.Group{
				{Name: "fast", Value: tokens.Value{Value: "150ms"}},
			},
		},
	}
}

func spacingOnly() Options {
	return Options{EnableSpacing: true, Tuning: transform.DefaultTuning()}
}

type panicStage struct{}

func (panicStage) Name() string { return "boom" }

func (panicStage) Transform(*transform.Input) (transform.StageResult, error) {
	panic("stage exploded")
}

// badValueStage rewrites CSS but reports a change that is not a valid value.
type badValueStage struct{}

func (badValueStage) Name() string { return "bad-value" }

func (badValueStage) Transform(in *transform.Input) (transform.StageResult, error) {
	return transform.StageResult{
		CSS:     in.CSS + ".garbage{}",
		Changes: []transform.Change{{Type: "x", Property: "color", Before: "red", After: "red;}"}},
	}, nil
}

type unknownTokenStage struct{}

func (unknownTokenStage) Name() string { return "unknown-token" }

func (unknownTokenStage) Transform(in *transform.Input) (transform.StageResult, error) {
	ref := tokens.Ref{Category: tokens.CategoryColor, Name: "missing"}
	return transform.StageResult{
		CSS:     strings.ReplaceAll(in.CSS, "red", ref.String()),
		Changes: []transform.Change{{Type: "x", Property: "color", Before: "red", After: ref.String(), Tokens: []tokens.Ref{ref}}},
	}, nil
}

func TestComposeEndToEnd(t *testing.T) {
	c := New(Config{})
	opts := spacingOnly()
	opts.EnableOptimization = true

	res, err := c.Compose(context.Background(), ".btn{padding:16px 32px;}", testSet(), opts)
	require.NoError(t, err)

	assert.Equal(t, ".btn{padding:var(--spacing-md) var(--spacing-lg);}", res.CSS)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, transform.ChangeSpacing, res.Changes[0].Type)
	assert.Equal(t, 1, res.Composition.TotalChanges)
	assert.Equal(t, []string{"spacing", OptimizationStage}, res.Composition.TransformationsApplied)
	assert.Equal(t, 2, res.Analytics.TransformsApplied)
	assert.Len(t, res.Composition.CacheKey, 16)
	require.NotNil(t, res.Optimization)
	assert.Equal(t, optimize.StateFinalValidated, res.Optimization.State)
	assert.Empty(t, res.Analytics.Errors)
}

func TestComposeTransformOrder(t *testing.T) {
	c := New(Config{})
	want := []string{"typography", "colors", "spacing", "animations", "gradients", "states", "shadows", "optimization"}
	assert.Equal(t, want, c.Registry().Order())

	res, err := c.Compose(context.Background(), ".a{}", testSet(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, want, res.Composition.TransformOrder)

	var ran []string
	for _, tr := range res.Transformations {
		ran = append(ran, tr.Type)
	}
	assert.Equal(t, want, ran)
}

func TestComposeDisabledStagesDoNotRun(t *testing.T) {
	c := New(Config{})
	opts := DefaultOptions()
	opts.EnableSpacing = false
	opts.EnableStates = false

	res, err := c.Compose(context.Background(), ".btn{padding:16px;}", testSet(), opts)
	require.NoError(t, err)
	assert.Contains(t, res.CSS, "padding:16px")
	assert.NotContains(t, res.Composition.TransformationsApplied, "spacing")
	assert.NotContains(t, res.Composition.TransformationsApplied, "states")
	assert.NotContains(t, res.Composition.Injections, "states-buttons")
}

func TestComposeCacheHit(t *testing.T) {
	c := New(Config{})
	css := ".btn{padding:16px 32px;}"

	first, err := c.Compose(context.Background(), css, testSet(), spacingOnly())
	require.NoError(t, err)
	assert.False(t, first.Analytics.CacheHit)
	assert.Equal(t, int64(0), first.Analytics.CacheHits)

	second, err := c.Compose(context.Background(), css, testSet(), spacingOnly())
	require.NoError(t, err)
	assert.True(t, second.Analytics.CacheHit)
	assert.Equal(t, int64(1), second.Analytics.CacheHits)
	assert.Equal(t, first.CSS, second.CSS)
	assert.Equal(t, first.Changes, second.Changes)
	assert.Equal(t, 1, c.Cache().Len())

	// Marking a hit must not leak into the stored result.
	third, err := c.Compose(context.Background(), css, testSet(), spacingOnly())
	require.NoError(t, err)
	assert.Equal(t, int64(2), third.Analytics.CacheHits)
	assert.False(t, first.Analytics.CacheHit)

	c.Cache().Purge()
	assert.Equal(t, 0, c.Cache().Len())
}

func TestComposeCachedResultIsNotShared(t *testing.T) {
	c := New(Config{})
	css := ".btn{padding:16px 32px;}"
	opts := spacingOnly()
	opts.EnableOptimization = true

	first, err := c.Compose(context.Background(), css, testSet(), opts)
	require.NoError(t, err)
	require.Len(t, first.Changes, 1)
	require.NotNil(t, first.Optimization)
	require.NotEmpty(t, first.Optimization.Records)
	want := first.Changes[0]
	require.NotEmpty(t, want.Tokens)

	first.Changes[0].After = "tampered"
	first.Changes[0].Tokens[0].Name = "tampered"
	first.Transformations[0].Type = "tampered"
	first.Composition.TransformationsApplied[0] = "tampered"
	first.Optimization.Records[0].Step = "tampered"
	first.Optimization.State = optimize.StateRolledBack

	second, err := c.Compose(context.Background(), css, testSet(), opts)
	require.NoError(t, err)
	require.True(t, second.Analytics.CacheHit)
	assert.NotEqual(t, "tampered", second.Changes[0].After)
	assert.NotEqual(t, "tampered", second.Changes[0].Tokens[0].Name)
	assert.Equal(t, "spacing", second.Transformations[0].Type)
	assert.Equal(t, "spacing", second.Composition.TransformationsApplied[0])
	assert.NotEqual(t, "tampered", second.Optimization.Records[0].Step)
	assert.Equal(t, optimize.StateFinalValidated, second.Optimization.State)

	second.Changes[0].After = "again"
	third, err := c.Compose(context.Background(), css, testSet(), opts)
	require.NoError(t, err)
	assert.Equal(t, want.Before, third.Changes[0].Before)
	assert.Equal(t, "var(--spacing-md) var(--spacing-lg)", third.Changes[0].After)
}

func TestComposeFillsZeroTuning(t *testing.T) {
	set := testSet()
	set.Spacing.Tokens = tokens.Group{
		{Name: "sm", Value: tokens.Value{Value: "8px"}},
		{Name: "md", Value: tokens.Value{Value: "16px"}},
		{Name: "lg", Value: tokens.Value{Value: "24px"}},
	}
	opts := Options{EnableTypography: true, EnableSpacing: true}

	res, err := New(Config{}).Compose(context.Background(), ".a{padding:15.5px;}", set, opts)
	require.NoError(t, err)
	assert.NotContains(t, res.CSS, "NaN")
	assert.NotContains(t, res.CSS, "Inf")
	assert.Contains(t, res.CSS, ".a{padding:var(--spacing-md);}")
	assert.Contains(t, res.CSS, "--type-scale-base:1rem")

	var spacing int
	for _, ch := range res.Changes {
		if ch.Type == transform.ChangeSpacing {
			spacing++
		}
	}
	assert.Equal(t, 1, spacing)

	// A bare literal and the defaults share a cache entry.
	opts.Tuning = transform.DefaultTuning()
	assert.Equal(t, CacheKey(".a{padding:15.5px;}", set, opts), res.Composition.CacheKey)
}

func TestComposeCacheKeyCoversOptions(t *testing.T) {
	css := ".btn{padding:16px;}"
	base := CacheKey(css, testSet(), spacingOnly())
	assert.Equal(t, base, CacheKey(css, testSet(), spacingOnly()))

	opts := spacingOnly()
	opts.MaxChanges = 1
	assert.NotEqual(t, base, CacheKey(css, testSet(), opts))

	opts = spacingOnly()
	opts.Tuning.Match.Tolerance = 0.1
	assert.NotEqual(t, base, CacheKey(css, testSet(), opts))

	set := testSet()
	set.Spacing.Tokens[0].Value.Value = "9px"
	assert.NotEqual(t, base, CacheKey(css, set, spacingOnly()))

	assert.NotEqual(t, base, CacheKey(css+" ", testSet(), spacingOnly()))
}

func TestComposeConcurrentIdenticalRequests(t *testing.T) {
	c := New(Config{})
	css := ".btn{padding:16px 32px;}"
	set := testSet()

	const n = 16
	results := make([]*Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.Compose(context.Background(), css, set, DefaultOptions())
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, c.Cache().Len())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, results[0].CSS, r.CSS)
		assert.Equal(t, results[0].Composition.CacheKey, r.Composition.CacheKey)
	}
}

func TestComposeIsolatesStageFailures(t *testing.T) {
	tests := []struct {
		name  string
		stage transform.Stage
		err   error
	}{
		{"panic", panicStage{}, ErrStagePanicked},
		{"invalid value", badValueStage{}, ErrMalformedValue},
		{"unknown token", unknownTokenStage{}, ErrUnknownToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Config{Stages: []transform.Stage{tt.stage, transform.Spacing{}}})
			css := ".btn{color:red;padding:16px;}"

			res, err := c.Compose(context.Background(), css, testSet(), spacingOnly())
			require.NoError(t, err)

			assert.Equal(t, ".btn{color:red;padding:var(--spacing-md);}", res.CSS)
			require.Len(t, res.Analytics.Errors, 1)
			assert.Equal(t, tt.stage.Name(), res.Analytics.Errors[0].Stage)
			assert.Equal(t, []string{"spacing"}, res.Composition.TransformationsApplied)

			require.Len(t, res.Transformations, 2)
			assert.False(t, res.Transformations[0].Applied)
			assert.NotEmpty(t, res.Transformations[0].Error)
		})
	}
}

func TestRunStageWrapsPanics(t *testing.T) {
	_, err := runStage(panicStage{}, &transform.Input{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStagePanicked)
	assert.Contains(t, err.Error(), "stage exploded")
}

func TestComposeMaxChanges(t *testing.T) {
	c := New(Config{})
	opts := spacingOnly()
	opts.MaxChanges = 1

	res, err := c.Compose(context.Background(), ".a{margin:16px;padding:32px;}", testSet(), opts)
	require.NoError(t, err)
	assert.Equal(t, ".a{margin:var(--spacing-md);padding:32px;}", res.CSS)
	assert.Len(t, res.Changes, 1)
}

func TestComposeSkipsExcludedFiles(t *testing.T) {
	tests := []struct {
		name string
		path string
		css  string
	}{
		{"vendor directory", "node_modules/lib/button.css", ".btn{padding:16px;}"},
		{"minified", "static/app.min.css", ".btn{padding:16px;}"},
		{"ignore-file marker", "src/app.css", "/* csstokens-ignore-file */\n.btn{padding:16px;}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Config{})
			opts := DefaultOptions()
			opts.FilePath = tt.path

			res, err := c.Compose(context.Background(), tt.css, testSet(), opts)
			require.NoError(t, err)
			assert.Equal(t, tt.css, res.CSS)
			assert.Empty(t, res.Changes)
			assert.True(t, res.Composition.Skipped)
		})
	}
}

func TestComposeInjectionStamp(t *testing.T) {
	c := New(Config{})
	first, err := c.Compose(context.Background(), ".btn{padding:16px;}", testSet(), DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, first.Composition.Injections)
	assert.Contains(t, first.Composition.Injections, "states-buttons")

	// Strip the marker comments: the stamp alone keeps the rerun idempotent.
	css := first.CSS
	for _, name := range first.Composition.Injections {
		css = strings.ReplaceAll(css, cssparse.MarkerComment(name), "")
	}
	opts := DefaultOptions()
	opts.Injections = first.Composition.Injections

	second, err := c.Compose(context.Background(), css, testSet(), opts)
	require.NoError(t, err)
	for _, ch := range second.Changes {
		assert.False(t, ch.IsInjection(), "block %s injected twice", ch.After)
	}
	assert.ElementsMatch(t, first.Composition.Injections, second.Composition.Injections)
}

func TestComposeMarkersKeepRerunsIdempotent(t *testing.T) {
	c := New(Config{})
	first, err := c.Compose(context.Background(), ".btn{padding:16px;}", testSet(), DefaultOptions())
	require.NoError(t, err)

	second, err := c.Compose(context.Background(), first.CSS, testSet(), DefaultOptions())
	require.NoError(t, err)
	for _, ch := range second.Changes {
		assert.False(t, ch.IsInjection(), "block %s injected twice", ch.After)
	}
	for _, name := range first.Composition.Injections {
		assert.Equal(t, 1, strings.Count(second.CSS, cssparse.MarkerComment(name)), name)
	}
}

func TestComposeIgnoreMarkerSurvivesRerun(t *testing.T) {
	c := New(Config{})
	css := ".a{\n  padding:16px; /* csstokens-ignore */\n}\n.b{\n  /* csstokens-ignore-next-line */\n  margin:16px;\n}"

	first, err := c.Compose(context.Background(), css, testSet(), DefaultOptions())
	require.NoError(t, err)
	second, err := c.Compose(context.Background(), first.CSS, testSet(), DefaultOptions())
	require.NoError(t, err)

	for _, res := range []*Result{first, second} {
		assert.Contains(t, res.CSS, "padding:16px;/* csstokens-ignore */")
		assert.Contains(t, res.CSS, "/* csstokens-ignore-next-line */\nmargin:16px;")
		assert.NotContains(t, res.CSS, "var(--spacing-md)")
		for _, ch := range res.Changes {
			assert.NotEqual(t, transform.ChangeSpacing, ch.Type, ch.After)
		}
	}
}

func TestComposeSuggestionSurvivesRerun(t *testing.T) {
	c := New(Config{})
	first, err := c.Compose(context.Background(), "p{font-size:15px;}", testSet(), DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, first.CSS, "p{font-size:15px /* csstokens-suggest:")

	var suggested bool
	for _, ch := range first.Changes {
		if ch.Type == transform.ChangeTypeSuggestion {
			suggested = true
			assert.Contains(t, first.CSS, ch.After)
		}
	}
	assert.True(t, suggested)

	second, err := c.Compose(context.Background(), first.CSS, testSet(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(second.CSS, "csstokens-suggest:"))
	for _, ch := range second.Changes {
		assert.NotEqual(t, transform.ChangeTypeSuggestion, ch.Type)
	}
}

func TestComposeRollbackIsRecorded(t *testing.T) {
	corrupt := optimize.Step{Name: "corrupt", Apply: func(s string) (string, error) {
		return strings.ReplaceAll(s, "350px", "35px"), nil
	}}
	c := New(Config{Optimizer: optimize.New(nil, corrupt)})
	opts := Options{EnableOptimization: true, Tuning: transform.DefaultTuning()}

	css := ".c{width:350px;}"
	res, err := c.Compose(context.Background(), css, testSet(), opts)
	require.NoError(t, err)

	assert.True(t, res.RolledBack())
	assert.Equal(t, css, res.CSS)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, transform.ChangeRollback, res.Changes[0].Type)
	assert.Contains(t, res.Changes[0].Reason, "350px")
	assert.NotContains(t, res.Composition.TransformationsApplied, OptimizationStage)
}

func TestComposeRejectsInvalidTokenSets(t *testing.T) {
	c := New(Config{})

	_, err := c.Compose(context.Background(), ".a{}", nil, DefaultOptions())
	assert.ErrorIs(t, err, tokens.ErrMissingTokenSet)

	set := testSet()
	set.Spacing.Tokens = append(set.Spacing.Tokens, tokens.Entry{Name: "MD", Value: tokens.Value{Value: "17px"}})
	_, err = c.Compose(context.Background(), ".a{}", set, DefaultOptions())
	assert.ErrorIs(t, err, tokens.ErrInvalidTokenSet)
}

func TestComposeHonorsContext(t *testing.T) {
	c := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Compose(ctx, ".a{padding:16px;}", testSet(), spacingOnly())
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, 0, c.Cache().Len())
}

func TestBatchCompose(t *testing.T) {
	c := New(Config{})
	files := []File{
		{Path: "src/a.css", CSS: ".a{padding:16px;}"},
		{Path: "src/b.css", CSS: ".b{margin:8px 32px;}"},
		{Path: "vendor/c.css", CSS: ".c{padding:16px;}"},
	}

	batch, err := c.BatchCompose(context.Background(), files, testSet(), spacingOnly())
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Summary.TotalFiles)
	assert.Equal(t, 3, batch.Summary.Successful)
	assert.Equal(t, 0, batch.Summary.Failed)
	assert.Equal(t, 2, batch.Summary.TotalChanges)
	require.Len(t, batch.Results, 3)
	assert.Equal(t, ".b{margin:var(--spacing-sm) var(--spacing-lg);}", batch.Results[1].Result.CSS)
	assert.True(t, batch.Results[2].Result.Composition.Skipped)
}

func TestBatchComposeAggregatesFailures(t *testing.T) {
	c := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := []File{
		{Path: "a.css", CSS: ".a{padding:16px;}"},
		{Path: "b.css", CSS: ".b{padding:16px;}"},
	}
	batch, err := c.BatchCompose(ctx, files, testSet(), spacingOnly())
	require.Error(t, err)

	assert.Equal(t, 2, batch.Summary.Failed)
	assert.Equal(t, 0, batch.Summary.Successful)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	for i, e := range errs {
		assert.True(t, errors.Is(e, ErrInterrupted))
		assert.Contains(t, e.Error(), files[i].Path)
		assert.Nil(t, batch.Results[i].Result)
		assert.NotEmpty(t, batch.Results[i].Error)
	}
}
