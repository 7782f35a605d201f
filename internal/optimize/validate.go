package optimize

import (
	"fmt"
	"sort"

	"github.com/tdewolff/parse/v2/css"
	"go.trai.ch/zerr"

	"github.com/yacobolo/csstokens/internal/cssparse"
)

// Validation failures.
var (
	ErrSelectorLoss       = zerr.New("selector count dropped by more than 10%")
	ErrPropertiesLost     = zerr.New("all properties were removed")
	ErrOrphanedProperty   = zerr.New("property outside a rule body")
	ErrUnbalanced         = zerr.New("unbalanced braces")
	ErrPixelValueLost     = zerr.New("pixel value lost")
	ErrInvalidBraceSyntax = zerr.New("invalid brace syntax")
	ErrStepPanicked       = zerr.New("optimization step panicked")
)

// maxSelectorLoss is the fraction of selectors a rewrite may lose.
const maxSelectorLoss = 0.10

// ValidateStep checks that after is a structurally sound rewrite of before.
func ValidateStep(before, after string) error {
	return checkStructure(cssparse.Analyze(before), cssparse.Analyze(after))
}

// ValidateFinal checks the optimized CSS against the composed input: the
// structural checks, then pixel preservation and brace syntax.
func ValidateFinal(composed, optimized string) error {
	if err := checkStructure(cssparse.Analyze(composed), cssparse.Analyze(optimized)); err != nil {
		return err
	}
	if err := checkPixels(composed, optimized); err != nil {
		return err
	}
	return checkBraceSyntax(optimized)
}

func checkStructure(before, after cssparse.Stats) error {
	if !after.Balanced() {
		return zerr.With(zerr.Wrap(ErrUnbalanced, "rewrite rejected"), "brace_balance", after.BraceBalance)
	}
	if before.SelectorCount > 0 && float64(after.SelectorCount) < (1-maxSelectorLoss)*float64(before.SelectorCount) {
		err := zerr.Wrap(ErrSelectorLoss, fmt.Sprintf("%d to %d selectors", before.SelectorCount, after.SelectorCount))
		return zerr.With(err, "before", before.SelectorCount)
	}
	if before.PropertyCount > 0 && after.PropertyCount == 0 {
		return zerr.With(zerr.Wrap(ErrPropertiesLost, "rewrite rejected"), "before", before.PropertyCount)
	}
	if after.OrphanedProperties > before.OrphanedProperties {
		err := zerr.Wrap(ErrOrphanedProperty, fmt.Sprintf("%d orphaned properties", after.OrphanedProperties))
		return zerr.With(err, "before", before.OrphanedProperties)
	}
	return nil
}

// pixelValues returns the distinct non-zero px quantities in src.
func pixelValues(src string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range cssparse.Tokenize(src) {
		if tok.Type != css.DimensionToken {
			continue
		}
		num, unit, ok := cssparse.ParseDimension(tok.Data)
		if ok && unit == "px" && num != 0 {
			out[cssparse.FormatNumber(num)+"px"] = true
		}
	}
	return out
}

// checkPixels requires every non-zero px value of before to still occur in
// after, at least once.
func checkPixels(before, after string) error {
	kept := pixelValues(after)
	var missing []string
	for v := range pixelValues(before) {
		if !kept[v] {
			missing = append(missing, v)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return zerr.With(zerr.Wrap(ErrPixelValueLost, missing[0]), "missing", missing)
}

// checkBraceSyntax requires balanced braces and a non-empty prelude before
// every opening brace.
func checkBraceSyntax(src string) error {
	depth := 0
	prelude := false
	for _, tok := range cssparse.Tokenize(src) {
		switch tok.Type {
		case css.WhitespaceToken, css.CommentToken:
		case css.LeftBraceToken:
			if !prelude {
				return zerr.With(zerr.Wrap(ErrInvalidBraceSyntax, "block without selector"), "offset", tok.Offset)
			}
			depth++
			prelude = false
		case css.RightBraceToken:
			depth--
			if depth < 0 {
				return zerr.With(zerr.Wrap(ErrInvalidBraceSyntax, "unexpected closing brace"), "offset", tok.Offset)
			}
			prelude = false
		case css.SemicolonToken:
			prelude = false
		default:
			prelude = true
		}
	}
	if depth != 0 {
		return zerr.With(zerr.Wrap(ErrInvalidBraceSyntax, "unclosed block"), "depth", depth)
	}
	return nil
}
