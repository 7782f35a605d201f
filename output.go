package csstokens

import (
	"fmt"
	"io"
	"strings"

	"github.com/yacobolo/csstokens/internal/report"
)

// OutputFormat selects what WriteOutput renders.
type OutputFormat string

const (
	// OutputCSS writes the composed stylesheet only (pipes and build steps).
	OutputCSS OutputFormat = "css"
	// OutputSummary lists the changes with their counts.
	OutputSummary OutputFormat = "summary"
	// OutputFull adds statistics, the optimizer trail and recommendations.
	OutputFull OutputFormat = "full"
	// OutputJSON exports the result as JSON (tooling integration).
	OutputJSON OutputFormat = "json"
	// OutputMarkdown renders a shareable Markdown report.
	OutputMarkdown OutputFormat = "markdown"
)

// OutputConfig controls report rendering.
type OutputConfig struct {
	// UseColors forces colored terminal output.
	UseColors bool
	// ShowTokens lists the token variables each change references.
	ShowTokens bool
}

// DetermineOutputFormat selects the output format from the --format flag.
func DetermineOutputFormat(formatFlag string, quiet bool) OutputFormat {
	// Quiet only emits the stylesheet.
	if quiet {
		return OutputCSS
	}

	switch strings.ToLower(formatFlag) {
	case "css":
		return OutputCSS
	case "summary":
		return OutputSummary
	case "full":
		return OutputFull
	case "json":
		return OutputJSON
	case "markdown", "md":
		return OutputMarkdown
	}
	return DetermineDefaultOutputFormat()
}

// DetermineDefaultOutputFormat returns the default output format.
func DetermineDefaultOutputFormat() OutputFormat {
	return OutputCSS
}

// WriteOutput writes res in the given format.
func WriteOutput(w io.Writer, res *Result, format OutputFormat, cfg OutputConfig) error {
	switch format {
	case OutputSummary:
		reporter := report.NewReporter(w, report.Config{UseColors: cfg.UseColors, ShowTokens: cfg.ShowTokens})
		reporter.PrintChanges(res.Changes)
		reporter.PrintSummary(res)

	case OutputFull:
		reporter := report.NewReporter(w, report.Config{UseColors: cfg.UseColors, ShowTokens: cfg.ShowTokens})
		reporter.PrintChanges(res.Changes)
		reporter.PrintSummary(res)

		verbose := report.NewVerboseReporter(w, reporter.UseColors())
		verbose.PrintStatistics(res)
		verbose.PrintStages(res)
		verbose.PrintOptimization(res.Optimization)
		verbose.PrintRecommendations(res.Recommendations)
		verbose.PrintErrors(res.Analytics.Errors)

	case OutputJSON:
		return WriteJSON(w, res)

	case OutputMarkdown:
		return WriteMarkdown(w, res)

	default:
		if _, err := io.WriteString(w, res.CSS); err != nil {
			return err
		}
		if !strings.HasSuffix(res.CSS, "\n") {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteBatchOutput writes the summary of a batch. Formats other than JSON
// print one summary line per file followed by the totals.
func WriteBatchOutput(w io.Writer, batch *Batch, format OutputFormat, cfg OutputConfig) error {
	if format == OutputJSON {
		return WriteBatchJSON(w, batch)
	}

	reporter := report.NewReporter(w, report.Config{UseColors: cfg.UseColors, ShowTokens: cfg.ShowTokens})
	for _, fr := range batch.Results {
		if fr.Err != nil {
			fmt.Fprintf(w, "%s: %s\n", fr.Path, report.RenderStyle(report.StyleRed, fr.Error, reporter.UseColors()))
			continue
		}
		if format == OutputFull || format == OutputSummary {
			reporter.PrintChanges(fr.Result.Changes)
			continue
		}
		fmt.Fprintf(w, "%s: %d changes\n", fr.Path, fr.Result.Composition.TotalChanges)
	}
	reporter.PrintBatchSummary(batch.Summary)
	return nil
}

// WriteMarkdown renders res as a Markdown report.
func WriteMarkdown(w io.Writer, res *Result) error {
	var b strings.Builder
	b.WriteString("# CSS Token Composition\n\n")
	fmt.Fprintf(&b, "- **Total changes:** %d\n", res.Composition.TotalChanges)
	fmt.Fprintf(&b, "- **Stages applied:** %s\n", strings.Join(res.Composition.TransformationsApplied, ", "))
	fmt.Fprintf(&b, "- **Cache key:** `%s`\n", res.Composition.CacheKey)
	if res.RolledBack() {
		fmt.Fprintf(&b, "- **Optimization rolled back:** %s\n", res.Optimization.Reason)
	}

	var rewrites []Change
	for _, ch := range res.Changes {
		if !ch.IsInjection() && ch.Property != "" {
			rewrites = append(rewrites, ch)
		}
	}
	if len(rewrites) > 0 {
		b.WriteString("\n## Changes\n\n")
		b.WriteString("| Location | Property | Before | After | Type |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, ch := range rewrites {
			fmt.Fprintf(&b, "| %s:%d:%d | `%s` | `%s` | `%s` | %s |\n",
				ch.Location.File, ch.Location.Line, ch.Location.Column,
				ch.Property, markdownCell(ch.Before), markdownCell(ch.After), ch.Type)
		}
	}

	if len(res.Composition.Injections) > 0 {
		b.WriteString("\n## Injected Blocks\n\n")
		for _, name := range res.Composition.Injections {
			fmt.Fprintf(&b, "- `%s`\n", name)
		}
	}

	if len(res.Recommendations) > 0 {
		b.WriteString("\n## Recommendations\n\n")
		for _, rec := range res.Recommendations {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", rec.Stage, rec.Severity, rec.Message)
		}
	}

	if len(res.Analytics.Errors) > 0 {
		b.WriteString("\n## Stage Failures\n\n")
		for _, e := range res.Analytics.Errors {
			fmt.Fprintf(&b, "- **%s**: %s\n", e.Stage, e.Error)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func markdownCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
