package report

import (
	"fmt"
	"io"
	"time"

	"github.com/yacobolo/csstokens/internal/compose"
	"github.com/yacobolo/csstokens/internal/optimize"
	"github.com/yacobolo/csstokens/internal/transform"
)

// VerboseReporter prints statistics, the optimizer trail and
// recommendations.
type VerboseReporter struct {
	w         io.Writer
	useColors bool
}

// NewVerboseReporter creates a verbose reporter.
func NewVerboseReporter(w io.Writer, useColors bool) *VerboseReporter {
	return &VerboseReporter{
		w:         w,
		useColors: useColors,
	}
}

// PrintStatistics outputs the composition statistics.
func (r *VerboseReporter) PrintStatistics(res *compose.Result) {
	fmt.Fprintln(r.w, "")
	fmt.Fprintln(r.w, RenderStyle(StyleCyan, "Composition Statistics", r.useColors))
	fmt.Fprintln(r.w, "----------------------")

	fmt.Fprintf(r.w, "Stages Applied:   %d of %d\n", res.Analytics.TransformsApplied, len(res.Composition.TransformOrder))
	fmt.Fprintf(r.w, "Total Changes:    %d\n", res.Composition.TotalChanges)
	fmt.Fprintf(r.w, "Injected Blocks:  %d\n", len(res.Composition.Injections))
	fmt.Fprintf(r.w, "Processing Time:  %s\n", res.Composition.ProcessingTime.Round(time.Microsecond))
	fmt.Fprintf(r.w, "Cache Key:        %s\n", res.Composition.CacheKey)
	fmt.Fprintf(r.w, "Cache Hit:        %t (%d total)\n", res.Analytics.CacheHit, res.Analytics.CacheHits)
	if res.Composition.Skipped {
		fmt.Fprintln(r.w, RenderStyle(StyleYellow, "File excluded: no stage ran", r.useColors))
	}
}

// PrintStages shows one line per stage run.
func (r *VerboseReporter) PrintStages(res *compose.Result) {
	if len(res.Transformations) == 0 {
		return
	}

	fmt.Fprintln(r.w, "")
	fmt.Fprintln(r.w, RenderStyle(StyleCyan, "Stages", r.useColors))
	fmt.Fprintln(r.w, "------")
	for _, tr := range res.Transformations {
		status := RenderStyle(StyleGreen, "ok", r.useColors)
		if !tr.Applied {
			status = RenderStyle(StyleRed, "failed", r.useColors)
		}
		fmt.Fprintf(r.w, "%-12s %s  %s\n", tr.Type, status, pluralizeCount(tr.Changes, "change", "changes"))
		if tr.Error != "" {
			fmt.Fprintf(r.w, "             %s\n", RenderStyle(StyleGray, tr.Error, r.useColors))
		}
	}
}

// PrintOptimization shows the optimizer trail and the size reduction.
func (r *VerboseReporter) PrintOptimization(rep *optimize.Report) {
	if rep == nil {
		return
	}

	fmt.Fprintln(r.w, "")
	fmt.Fprintln(r.w, RenderStyle(StyleCyan, "Optimization", r.useColors))
	fmt.Fprintln(r.w, "------------")
	for _, rec := range rep.Records {
		style := StyleGreen
		switch rec.State {
		case optimize.StateRejected:
			style = StyleYellow
		case optimize.StateRolledBack:
			style = StyleRed
		}
		fmt.Fprintf(r.w, "%-20s %s  %d → %d bytes\n",
			rec.Step, RenderStyle(style, string(rec.State), r.useColors), rec.BytesBefore, rec.BytesAfter)
		if rec.Reason != "" {
			fmt.Fprintf(r.w, "                     %s\n", RenderStyle(StyleGray, rec.Reason, r.useColors))
		}
	}

	before := rep.Before
	after := rep.After
	fmt.Fprintf(r.w, "Selectors:  %d → %d\n", before.SelectorCount, after.SelectorCount)
	fmt.Fprintf(r.w, "Properties: %d → %d\n", before.PropertyCount, after.PropertyCount)

	if len(rep.Records) > 0 {
		first := rep.Records[0].BytesBefore
		saved := 0.0
		if first > 0 {
			saved = float64(first-len(rep.CSS)) / float64(first) * 100
		}
		fmt.Fprint(r.w, "Size reduction: ")
		printProgressBar(r.w, saved)
	}
}

// PrintRecommendations shows the advisory diagnostics of every stage.
func (r *VerboseReporter) PrintRecommendations(recs []transform.Recommendation) {
	if len(recs) == 0 {
		return
	}

	fmt.Fprintln(r.w, "")
	fmt.Fprintln(r.w, RenderStyle(StyleGreen, "Recommendations", r.useColors))
	fmt.Fprintln(r.w, "---------------")
	for _, rec := range recs {
		style := StyleGray
		if rec.Severity == transform.SeverityWarning {
			style = StyleYellow
		}
		line := fmt.Sprintf("• [%s] %s", rec.Stage, rec.Message)
		if rec.Count > 0 {
			line += fmt.Sprintf(" (%d)", rec.Count)
		}
		fmt.Fprintln(r.w, RenderStyle(style, line, r.useColors))
	}
}

// PrintErrors shows the isolated stage failures.
func (r *VerboseReporter) PrintErrors(errs []compose.StageError) {
	if len(errs) == 0 {
		return
	}

	fmt.Fprintln(r.w, "")
	fmt.Fprintln(r.w, RenderStyle(StyleRed, "Stage Failures", r.useColors))
	fmt.Fprintln(r.w, "--------------")
	for _, e := range errs {
		fmt.Fprintf(r.w, "• %s: %s\n", e.Stage, e.Error)
	}
}

// printProgressBar draws a 20 cell bar for a percentage.
func printProgressBar(w io.Writer, percentage float64) {
	barWidth := 20
	if percentage < 0 {
		percentage = 0
	}
	filled := int(percentage / 100 * float64(barWidth))

	fmt.Fprint(w, "[")
	for i := 0; i < barWidth; i++ {
		if i < filled {
			fmt.Fprint(w, "█")
		} else {
			fmt.Fprint(w, "░")
		}
	}
	fmt.Fprintf(w, "] %.1f%%\n", percentage)
}
