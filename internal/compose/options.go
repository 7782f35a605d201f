package compose

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/yacobolo/csstokens/internal/tokens"
	"github.com/yacobolo/csstokens/internal/transform"
)

// Options selects the stages of one composition and tunes them.
type Options struct {
	EnableTypography   bool
	EnableColors       bool
	EnableSpacing      bool
	EnableAnimations   bool
	EnableGradients    bool
	EnableStates       bool
	EnableShadows      bool
	EnableOptimization bool

	// FilePath is only used for exclusion and ignore checks.
	FilePath string

	// MaxChanges caps the number of rewrites. Zero is unlimited.
	MaxChanges int

	// Exclusions are gitignore-style path patterns. Empty selects the
	// default vendor and build locations.
	Exclusions []string

	// Injections lists blocks already present in the input, as stamped on
	// an earlier Result.
	Injections []string

	Tuning transform.Tuning
}

// DefaultOptions enables every stage with the default thresholds.
func DefaultOptions() Options {
	return Options{
		EnableTypography:   true,
		EnableColors:       true,
		EnableSpacing:      true,
		EnableAnimations:   true,
		EnableGradients:    true,
		EnableStates:       true,
		EnableShadows:      true,
		EnableOptimization: true,
		Tuning:             transform.DefaultTuning(),
	}
}

// enabled returns the flag of the built-in stage called name. known is
// false for any other name.
func (o Options) enabled(name string) (on, known bool) {
	switch name {
	case "typography":
		return o.EnableTypography, true
	case "colors":
		return o.EnableColors, true
	case "spacing":
		return o.EnableSpacing, true
	case "animations":
		return o.EnableAnimations, true
	case "gradients":
		return o.EnableGradients, true
	case "states":
		return o.EnableStates, true
	case "shadows":
		return o.EnableShadows, true
	}
	return false, false
}

// CacheKey hashes everything that can change the result of a composition.
func CacheKey(css string, set *tokens.Set, opts Options) string {
	h := xxhash.New()
	_, _ = h.WriteString(css)
	_, _ = h.Write([]byte{0})
	set.Fingerprint(h)
	_, _ = h.Write([]byte{0})

	t := opts.Tuning
	_, _ = fmt.Fprintf(h, "%t|%t|%t|%t|%t|%t|%t|%t|%q|%d|",
		opts.EnableTypography, opts.EnableColors, opts.EnableSpacing, opts.EnableAnimations,
		opts.EnableGradients, opts.EnableStates, opts.EnableShadows, opts.EnableOptimization,
		opts.FilePath, opts.MaxChanges)
	_, _ = fmt.Fprintf(h, "%g|%g|%d|%g|", t.Match.Tolerance, t.Match.RemBase, t.Match.Strategy, t.Match.NearMissDistance)
	_, _ = fmt.Fprintf(h, "%g|%g|%g|%g|%g|%g|%d|%t|",
		t.Scale.Base, t.Scale.Ratio, t.Scale.Min, t.Scale.Max,
		t.FontSizeTolerance, t.LineHeightTolerance, t.DurationTolerance, t.SnapToScale)
	_, _ = fmt.Fprintf(h, "%q|%q", opts.Exclusions, sortedCopy(opts.Injections))

	return fmt.Sprintf("%016x", h.Sum64())
}

func sortedCopy(list []string) []string {
	out := append([]string(nil), list...)
	sort.Strings(out)
	return out
}
