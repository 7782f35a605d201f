// Package compose runs the transform stages in their fixed order over one
// stylesheet, isolates stage failures, optimizes the result and memoizes
// whole compositions by content hash.
package compose

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"go.trai.ch/zerr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yacobolo/csstokens/internal/cssparse"
	"github.com/yacobolo/csstokens/internal/match"
	"github.com/yacobolo/csstokens/internal/optimize"
	"github.com/yacobolo/csstokens/internal/tokens"
	"github.com/yacobolo/csstokens/internal/transform"
)

// Stage failures. A stage failing with any of these is treated as identity.
var (
	ErrStagePanicked  = zerr.New("stage panicked")
	ErrMalformedValue = zerr.New("stage produced an invalid value")
	ErrUnknownToken   = zerr.New("stage referenced an unknown token")
	ErrUnbalancedCSS  = zerr.New("stage unbalanced the stylesheet")
)

// ErrInterrupted is returned when the context ends between stages.
var ErrInterrupted = zerr.New("composition interrupted")

// Transformation summarizes one stage run.
type Transformation struct {
	Type      string    `json:"type"`
	Applied   bool      `json:"applied"`
	Changes   int       `json:"changes"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Composition describes how a result was produced.
type Composition struct {
	TransformOrder         []string      `json:"transformOrder"`
	TransformationsApplied []string      `json:"transformationsApplied"`
	TotalChanges           int           `json:"totalChanges"`
	ProcessingTime         time.Duration `json:"processingTime"`
	CacheKey               string        `json:"cacheKey"`
	// Injections stamps the blocks present in CSS. Pass it back through
	// Options.Injections to keep reruns idempotent without marker comments.
	Injections []string `json:"injections,omitempty"`
	// Skipped is set when the file was excluded or opted out with an
	// ignore-file marker.
	Skipped bool `json:"skipped,omitempty"`
}

// StageError records an isolated stage failure.
type StageError struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// Analytics are counters about the run.
type Analytics struct {
	TransformsApplied int           `json:"transformsApplied"`
	CacheHits         int64         `json:"cacheHits"`
	CacheHit          bool          `json:"cacheHit"`
	ProcessingTime    time.Duration `json:"processingTime"`
	Errors            []StageError  `json:"errors,omitempty"`
}

// Result is the outcome of one composition.
type Result struct {
	CSS             string                     `json:"css"`
	Changes         []transform.Change         `json:"changes"`
	Transformations []Transformation           `json:"transformations"`
	Recommendations []transform.Recommendation `json:"recommendations"`
	Composition     Composition                `json:"composition"`
	Optimization    *optimize.Report           `json:"optimization,omitempty"`
	Analytics       Analytics                  `json:"analytics"`
}

// clone copies r deep enough that the cached original cannot be changed
// through the copy.
func (r *Result) clone() *Result {
	out := *r
	out.Changes = cloneChanges(r.Changes)
	out.Recommendations = slices.Clone(r.Recommendations)
	out.Transformations = slices.Clone(r.Transformations)
	out.Composition.TransformOrder = slices.Clone(r.Composition.TransformOrder)
	out.Composition.TransformationsApplied = slices.Clone(r.Composition.TransformationsApplied)
	out.Composition.Injections = slices.Clone(r.Composition.Injections)
	out.Analytics.Errors = slices.Clone(r.Analytics.Errors)
	if r.Optimization != nil {
		rep := *r.Optimization
		rep.Records = slices.Clone(r.Optimization.Records)
		out.Optimization = &rep
	}
	return &out
}

func cloneChanges(changes []transform.Change) []transform.Change {
	out := slices.Clone(changes)
	for i := range out {
		out[i].Tokens = slices.Clone(out[i].Tokens)
	}
	return out
}

// RolledBack reports whether the optimization phase was discarded.
func (r *Result) RolledBack() bool {
	return r.Optimization != nil && r.Optimization.RolledBack()
}

// Config configures a Composer. The zero value is usable.
type Config struct {
	// Logger receives stage failures and rollbacks. Nil discards them.
	Logger *zap.Logger
	// Cache memoizes results. Nil selects an LRUCache of DefaultCacheSize.
	Cache Cache
	// Stages overrides transform.Pipeline().
	Stages []transform.Stage
	// Optimizer overrides the default optimization steps.
	Optimizer *optimize.Optimizer
}

// Composer runs compositions. It is safe for concurrent use; identical
// concurrent requests are computed once.
type Composer struct {
	registry  *Registry
	optimizer *optimize.Optimizer
	cache     Cache
	group     singleflight.Group
	hits      atomic.Int64
	log       *zap.Logger
}

// New returns a Composer for cfg.
func New(cfg Config) *Composer {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NewLRUCache(DefaultCacheSize)
	}
	opt := cfg.Optimizer
	if opt == nil {
		opt = optimize.New(log)
	}
	return &Composer{
		registry:  NewRegistry(cfg.Stages...),
		optimizer: opt,
		cache:     cache,
		log:       log.Named("compose"),
	}
}

// Registry returns the stages the composer runs.
func (c *Composer) Registry() *Registry {
	return c.registry
}

// Cache returns the result cache.
func (c *Composer) Cache() Cache {
	return c.cache
}

// CacheHits returns the number of compositions served from the cache.
func (c *Composer) CacheHits() int64 {
	return c.hits.Load()
}

// Compose runs the enabled stages over css, then the optimizer. Stage
// failures are isolated and reported in Analytics.Errors; an error is only
// returned for an invalid token set or when ctx ends. Zero thresholds in
// opts.Tuning take their defaults. The returned Result belongs to the
// caller and may be modified.
func (c *Composer) Compose(ctx context.Context, css string, set *tokens.Set, opts Options) (*Result, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	opts.Tuning = opts.Tuning.WithDefaults()

	key := CacheKey(css, set, opts)
	if r, ok := c.cache.Get(key); ok {
		return c.hit(r), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if r, ok := c.cache.Get(key); ok {
			return r, nil
		}
		r, err := c.run(ctx, key, css, set, opts)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, r)
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	out := v.(*Result).clone()
	out.Analytics.CacheHits = c.hits.Load()
	return out, nil
}

func (c *Composer) hit(r *Result) *Result {
	out := r.clone()
	out.Analytics.CacheHit = true
	out.Analytics.CacheHits = c.hits.Add(1)
	c.log.Debug("cache hit", zap.String("key", r.Composition.CacheKey))
	return out
}

func (c *Composer) run(ctx context.Context, key, css string, set *tokens.Set, opts Options) (*Result, error) {
	start := time.Now()
	res := &Result{
		CSS: css,
		Composition: Composition{
			TransformOrder: c.registry.Order(),
			CacheKey:       key,
		},
	}

	exclusions := match.NewExclusions(opts.Exclusions)
	injected := make(map[string]bool, len(opts.Injections))
	for _, name := range opts.Injections {
		injected[name] = true
	}

	if exclusions.Match(opts.FilePath) || match.ScanIgnores(css).File {
		c.log.Debug("composition skipped", zap.String("file", opts.FilePath))
		res.Composition.Skipped = true
		res.Composition.Injections = stamp(injected)
		c.finish(res, start)
		return res, nil
	}

	matcher := match.New(set, opts.Tuning.Match)
	gate := match.NewGate(opts.FilePath, exclusions, opts.MaxChanges)

	for _, stage := range c.registry.Stages() {
		if !runs(stage, opts) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, zerr.With(zerr.Wrap(ErrInterrupted, err.Error()), "stage", stage.Name())
		}

		in := &transform.Input{
			CSS:      res.CSS,
			Tokens:   set,
			Matcher:  matcher,
			Gate:     gate,
			FilePath: opts.FilePath,
			Tuning:   opts.Tuning,
			Injected: injected,
		}
		tr := Transformation{Type: stage.Name()}
		out, err := runStage(stage, in)
		if err == nil {
			err = checkStage(set, res.CSS, out)
		}
		tr.Timestamp = time.Now()
		if err != nil {
			c.log.Warn("stage failed",
				zap.String("stage", stage.Name()),
				zap.String("file", opts.FilePath),
				zap.Error(err))
			tr.Error = err.Error()
			res.Transformations = append(res.Transformations, tr)
			res.Analytics.Errors = append(res.Analytics.Errors, StageError{Stage: stage.Name(), Error: err.Error()})
			continue
		}

		tr.Applied = true
		tr.Changes = len(out.Changes)
		res.CSS = out.CSS
		res.Changes = append(res.Changes, out.Changes...)
		res.Recommendations = append(res.Recommendations, out.Recommendations...)
		res.Transformations = append(res.Transformations, tr)
		res.Composition.TransformationsApplied = append(res.Composition.TransformationsApplied, stage.Name())
		for _, name := range out.Injected {
			injected[name] = true
		}
	}

	if opts.EnableOptimization {
		if err := ctx.Err(); err != nil {
			return nil, zerr.With(zerr.Wrap(ErrInterrupted, err.Error()), "stage", OptimizationStage)
		}
		c.optimize(res, opts)
	}

	res.Composition.Injections = stamp(injected)
	c.finish(res, start)
	return res, nil
}

func (c *Composer) optimize(res *Result, opts Options) {
	rep := c.optimizer.Optimize(res.CSS)
	res.Optimization = rep
	res.CSS = rep.CSS
	res.Transformations = append(res.Transformations, Transformation{
		Type:      OptimizationStage,
		Applied:   !rep.RolledBack(),
		Changes:   len(rep.Applied()),
		Timestamp: time.Now(),
		Error:     rep.Reason,
	})
	if rep.RolledBack() {
		c.log.Warn("optimization rolled back", zap.String("file", opts.FilePath), zap.String("reason", rep.Reason))
		res.Changes = append(res.Changes, transform.Change{
			Type:     transform.ChangeRollback,
			Location: transform.Location{File: opts.FilePath},
			Reason:   rep.Reason,
		})
		return
	}
	res.Composition.TransformationsApplied = append(res.Composition.TransformationsApplied, OptimizationStage)
}

func (c *Composer) finish(res *Result, start time.Time) {
	elapsed := time.Since(start)
	res.Composition.TotalChanges = len(res.Changes)
	res.Composition.ProcessingTime = elapsed
	res.Analytics.TransformsApplied = len(res.Composition.TransformationsApplied)
	res.Analytics.ProcessingTime = elapsed
}

// runStage invokes stage, turning a panic into an error.
func runStage(stage transform.Stage, in *transform.Input) (out transform.StageResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = zerr.With(zerr.Wrap(ErrStagePanicked, fmt.Sprint(r)), "stage", stage.Name())
		}
	}()
	return stage.Transform(in)
}

// checkStage rejects output that breaks the change record invariants: every
// rewritten value must parse as a value and reference only tokens of set, and
// a balanced stylesheet must stay balanced.
func checkStage(set *tokens.Set, before string, out transform.StageResult) error {
	for _, ch := range out.Changes {
		if ch.IsInjection() {
			continue
		}
		if !cssparse.ValidValue(ch.After) {
			return zerr.With(zerr.Wrap(ErrMalformedValue, ch.After), "property", ch.Property)
		}
		for _, ref := range ch.Tokens {
			if !set.Lookup(ref) {
				return zerr.With(zerr.Wrap(ErrUnknownToken, ref.Var()), "property", ch.Property)
			}
		}
	}
	if cssparse.Analyze(before).Balanced() && !cssparse.Analyze(out.CSS).Balanced() {
		return ErrUnbalancedCSS
	}
	return nil
}

func stamp(injected map[string]bool) []string {
	if len(injected) == 0 {
		return nil
	}
	out := make([]string, 0, len(injected))
	for name := range injected {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
