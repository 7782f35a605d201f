// Package csstokens rewrites hardcoded CSS values into design token
// references and appends token-driven utility CSS.
//
// # Composition
//
// Load a token set and compose a stylesheet:
//
//	set, err := csstokens.LoadTokenSet("brand.yaml")
//	if err != nil {
//		return err
//	}
//	res, err := csstokens.Compose(ctx, css, set, csstokens.DefaultOptions())
//
// Stages run in a fixed order: typography, colors, spacing, animations,
// gradients, states, shadows and finally optimization. A failing stage is
// skipped and reported in Analytics.Errors; an optimization that breaks the
// stylesheet is rolled back and recorded as a pipeline_rollback change.
//
// # Caching
//
// Results are memoized by a hash of the CSS, the token set and the options.
// Compose and BatchCompose share a process-wide Composer; use NewComposer for
// an isolated cache or logger.
//
// # CLI Tool
//
// Install the command line tool with:
//
//	go install github.com/yacobolo/csstokens/cmd/csstokens@latest
package csstokens

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/yacobolo/csstokens/internal/compose"
	"github.com/yacobolo/csstokens/internal/tokens"
	"github.com/yacobolo/csstokens/internal/transform"
)

type (
	// TokenSet is a brand's design tokens.
	TokenSet = tokens.Set
	// Options selects and tunes the stages of a composition.
	Options = compose.Options
	// Tuning gathers the matching thresholds.
	Tuning = transform.Tuning
	// Result is the outcome of one composition.
	Result = compose.Result
	// Change records one rewritten declaration or injected block.
	Change = transform.Change
	// File is one input of a batch.
	File = compose.File
	// Batch is the outcome of a batch composition.
	Batch = compose.Batch
	// Composer runs compositions and owns the result cache.
	Composer = compose.Composer
	// Cache stores composition results.
	Cache = compose.Cache
)

// Errors returned for unusable token sets.
var (
	ErrInvalidTokenSet = tokens.ErrInvalidTokenSet
	ErrMissingTokenSet = tokens.ErrMissingTokenSet
)

// DefaultOptions enables every stage with the default thresholds.
func DefaultOptions() Options {
	return compose.DefaultOptions()
}

// LoadTokenSet reads and validates a YAML or JSON token file.
func LoadTokenSet(path string) (*TokenSet, error) {
	return tokens.LoadFile(path)
}

// ParseTokenSet decodes and validates a YAML or JSON token document.
func ParseTokenSet(data []byte) (*TokenSet, error) {
	return tokens.Parse(data)
}

// NewComposer returns a Composer logging to log and caching in cache. Nil
// arguments select a no-op logger and a bounded LRU cache.
func NewComposer(log *zap.Logger, cache Cache) *Composer {
	return compose.New(compose.Config{Logger: log, Cache: cache})
}

var (
	defaultOnce     sync.Once
	defaultComposer *Composer
)

// Default returns the process-wide Composer used by Compose and
// BatchCompose.
func Default() *Composer {
	defaultOnce.Do(func() {
		defaultComposer = NewComposer(nil, nil)
	})
	return defaultComposer
}

// Compose runs the enabled stages over css with the process-wide Composer.
func Compose(ctx context.Context, css string, set *TokenSet, opts Options) (*Result, error) {
	return Default().Compose(ctx, css, set, opts)
}

// BatchCompose composes every file in order with the process-wide Composer.
func BatchCompose(ctx context.Context, files []File, set *TokenSet, opts Options) (*Batch, error) {
	return Default().BatchCompose(ctx, files, set, opts)
}
