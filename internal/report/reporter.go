// Package report renders composition results for the terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/yacobolo/csstokens/internal/compose"
	"github.com/yacobolo/csstokens/internal/transform"
)

// Config controls terminal rendering.
type Config struct {
	// UseColors forces colored output.
	UseColors bool
	// ShowTokens appends the referenced token variables to each change.
	ShowTokens bool
}

// Reporter prints change records, one per line.
type Reporter struct {
	w          io.Writer
	useColors  bool
	showTokens bool
}

// NewReporter creates a reporter writing to w.
func NewReporter(w io.Writer, cfg Config) *Reporter {
	return &Reporter{
		w:          w,
		useColors:  ShouldUseColors(cfg.UseColors),
		showTokens: cfg.ShowTokens,
	}
}

// ShouldUseColors determines if colors should be enabled.
func ShouldUseColors(force bool) bool {
	if force {
		return true
	}

	// CI systems that render ANSI colors.
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		return true
	}

	if fileInfo, _ := os.Stdout.Stat(); fileInfo != nil && (fileInfo.Mode()&os.ModeCharDevice) != 0 {
		return true
	}
	return false
}

// UseColors returns whether colors are enabled.
func (r *Reporter) UseColors() bool {
	return r.useColors
}

// PrintChanges outputs changes sorted by file, line and column. Injections
// and rollbacks have no position and sort after the rewrites of their file.
func (r *Reporter) PrintChanges(changes []transform.Change) {
	sorted := append([]transform.Change(nil), changes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Location, sorted[j].Location
		if a.File != b.File {
			return a.File < b.File
		}
		if (a.Line == 0) != (b.Line == 0) {
			return b.Line == 0
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})

	for _, ch := range sorted {
		r.printChange(ch)
	}
}

// printChange formats one change as "file:line:col: property: before → after (type)".
func (r *Reporter) printChange(ch transform.Change) {
	file := ch.Location.File
	if file == "" {
		file = "<stdin>"
	}

	switch {
	case ch.Type == transform.ChangeRollback:
		fmt.Fprintf(r.w, "%s %s %s\n",
			RenderStyle(StyleCyan, file+":", r.useColors),
			RenderStyle(StyleRed, "optimization rolled back:", r.useColors),
			ch.Reason)
		return
	case ch.IsInjection():
		fmt.Fprintf(r.w, "%s injected %s%s\n",
			RenderStyle(StyleCyan, file+":", r.useColors),
			ch.After,
			RenderStyle(StyleGray, " ("+ch.Type+")", r.useColors))
		return
	}

	location := fmt.Sprintf("%s:%d:%d:", file, ch.Location.Line, ch.Location.Column)
	suffix := " (" + ch.Type + ")"
	if r.showTokens && len(ch.Tokens) > 0 {
		vars := make([]string, len(ch.Tokens))
		for i, ref := range ch.Tokens {
			vars[i] = ref.Var()
		}
		suffix = " [" + strings.Join(vars, ", ") + "]" + suffix
	}
	fmt.Fprintf(r.w, "%s %s: %s → %s%s\n",
		RenderStyle(StyleCyan, location, r.useColors),
		ch.Property,
		ch.Before,
		ch.After,
		RenderStyle(StyleGray, suffix, r.useColors))
}

// PrintSummary outputs the change counts of one result.
func (r *Reporter) PrintSummary(res *compose.Result) {
	var rewrites, injections int
	byType := make(map[string]int)
	for _, ch := range res.Changes {
		switch {
		case ch.Type == transform.ChangeRollback:
			continue
		case ch.IsInjection():
			injections++
		default:
			rewrites++
		}
		byType[ch.Type]++
	}

	fmt.Fprintln(r.w, "")
	total := rewrites + injections
	if rewrites > 0 && injections > 0 {
		fmt.Fprintf(r.w, "%s (%s, %s):\n",
			pluralizeCount(total, "change", "changes"),
			pluralizeCount(rewrites, "rewrite", "rewrites"),
			pluralizeCount(injections, "injection", "injections"))
	} else {
		fmt.Fprintf(r.w, "%s:\n", pluralizeCount(total, "change", "changes"))
	}

	types := make([]string, 0, len(byType))
	for typ := range byType {
		types = append(types, typ)
	}
	sort.Strings(types)
	for _, typ := range types {
		fmt.Fprintf(r.w, "* %s: %d\n", typ, byType[typ])
	}

	if res.RolledBack() {
		fmt.Fprintln(r.w, RenderStyle(StyleRed, "Optimization rolled back: "+res.Optimization.Reason, r.useColors))
	}
	if n := len(res.Analytics.Errors); n > 0 {
		fmt.Fprintln(r.w, RenderStyle(StyleYellow, pluralizeCount(n, "stage failure", "stage failures")+" isolated", r.useColors))
	}
	if total > 0 {
		fmt.Fprintln(r.w, "")
		fmt.Fprintln(r.w, RenderStyle(StyleGray, "Hint: Run with --format full to see statistics and recommendations", r.useColors))
	}
}

// PrintBatchSummary outputs the totals of a batch.
func (r *Reporter) PrintBatchSummary(summary compose.Summary) {
	fmt.Fprintln(r.w, "")
	fmt.Fprintf(r.w, "%s composed, %s, %s in %s\n",
		pluralizeCount(summary.TotalFiles, "file", "files"),
		RenderStyle(StyleGreen, fmt.Sprintf("%d succeeded", summary.Successful), r.useColors),
		failedCount(summary.Failed, r.useColors),
		summary.ProcessingTime.Round(time.Millisecond))
	fmt.Fprintf(r.w, "%s in total\n", pluralizeCount(summary.TotalChanges, "change", "changes"))
}

func failedCount(n int, useColors bool) string {
	text := fmt.Sprintf("%d failed", n)
	if n == 0 {
		return text
	}
	return RenderStyle(StyleRed, text, useColors)
}

// pluralizeCount returns count with the singular or plural noun.
func pluralizeCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
