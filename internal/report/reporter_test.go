package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/csstokens/internal/compose"
	"github.com/yacobolo/csstokens/internal/optimize"
	"github.com/yacobolo/csstokens/internal/tokens"
	"github.com/yacobolo/csstokens/internal/transform"
)

func sampleChanges() []transform.Change {
	return []transform.Change{
		{Type: transform.ChangeInjection, After: "states-buttons", Location: transform.Location{File: "a.css"}},
		{
			Type:     transform.ChangeSpacing,
			Property: "padding",
			Before:   "16px",
			After:    "var(--spacing-md)",
			Location: transform.Location{File: "a.css", Line: 3, Column: 5},
			Tokens:   []tokens.Ref{{Category: tokens.CategorySpacing, Name: "md"}},
		},
		{
			Type:     transform.ChangeColor,
			Property: "color",
			Before:   "#1b3668",
			After:    "var(--color-primary)",
			Location: transform.Location{File: "a.css", Line: 1, Column: 4},
		},
	}
}

func TestPrintChanges(t *testing.T) {
	var buf bytes.Buffer
	r := &Reporter{w: &buf, showTokens: true}
	r.PrintChanges(sampleChanges())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "a.css:1:4: color: #1b3668 → var(--color-primary) (color-normalization)", lines[0])
	assert.Equal(t, "a.css:3:5: padding: 16px → var(--spacing-md) [--spacing-md] (spacing-normalization)", lines[1])
	assert.Equal(t, "a.css: injected states-buttons (injection)", lines[2])
}

func TestPrintChangesRollback(t *testing.T) {
	var buf bytes.Buffer
	r := &Reporter{w: &buf}
	r.PrintChanges([]transform.Change{{Type: transform.ChangeRollback, Reason: "350px: pixel value lost"}})

	assert.Equal(t, "<stdin>: optimization rolled back: 350px: pixel value lost\n", buf.String())
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	r := &Reporter{w: &buf}
	res := &compose.Result{
		Changes: sampleChanges(),
		Analytics: compose.Analytics{
			Errors: []compose.StageError{{Stage: "gradients", Error: "boom"}},
		},
	}
	r.PrintSummary(res)

	out := buf.String()
	assert.Contains(t, out, "3 changes (2 rewrites, 1 injection):")
	assert.Contains(t, out, "* color-normalization: 1\n* injection: 1\n* spacing-normalization: 1\n")
	assert.Contains(t, out, "1 stage failure isolated")
	assert.Contains(t, out, "Hint:")
}

func TestPrintSummaryNoChanges(t *testing.T) {
	var buf bytes.Buffer
	r := &Reporter{w: &buf}
	r.PrintSummary(&compose.Result{})

	assert.Equal(t, "\n0 changes:\n", buf.String())
}

func TestPrintBatchSummary(t *testing.T) {
	var buf bytes.Buffer
	r := &Reporter{w: &buf}
	r.PrintBatchSummary(compose.Summary{TotalFiles: 3, Successful: 2, Failed: 1, TotalChanges: 1})

	assert.Contains(t, buf.String(), "3 files composed, 2 succeeded, 1 failed in 0s")
	assert.Contains(t, buf.String(), "1 change in total")
}

func TestPrintOptimization(t *testing.T) {
	var buf bytes.Buffer
	r := NewVerboseReporter(&buf, false)

	rep := optimize.New(nil).Optimize(".a{margin:0px;}\n.a{margin:0px;}")
	r.PrintOptimization(rep)

	out := buf.String()
	assert.Contains(t, out, "deduplicate-rules")
	assert.Contains(t, out, "validated")
	assert.Contains(t, out, "Selectors:  1 → 1")
	assert.Contains(t, out, "Size reduction: [")
}

func TestPrintRecommendations(t *testing.T) {
	var buf bytes.Buffer
	r := NewVerboseReporter(&buf, false)
	r.PrintRecommendations([]transform.Recommendation{
		{Stage: "animations", Severity: transform.SeverityWarning, Message: "many hardcoded durations found", Count: 4},
	})

	assert.Contains(t, buf.String(), "• [animations] many hardcoded durations found (4)")
}

func TestPrintProgressBar(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{0, "[░░░░░░░░░░░░░░░░░░░░] 0.0%\n"},
		{50, "[██████████░░░░░░░░░░] 50.0%\n"},
		{100, "[████████████████████] 100.0%\n"},
		{-10, "[░░░░░░░░░░░░░░░░░░░░] 0.0%\n"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		printProgressBar(&buf, tt.percentage)
		assert.Equal(t, tt.want, buf.String())
	}
}
