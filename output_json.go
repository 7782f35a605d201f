package csstokens

import (
	"encoding/json"
	"io"
	"time"

	"github.com/yacobolo/csstokens/internal/compose"
	"github.com/yacobolo/csstokens/internal/transform"
)

// JSONSchemaVersion is the version of the JSON export.
const JSONSchemaVersion = "1.0"

// JSONOutput is the structured export of one composition.
type JSONOutput struct {
	Version         string                     `json:"version"`
	Timestamp       string                     `json:"timestamp"`
	CSS             string                     `json:"css"`
	Summary         JSONSummary                `json:"summary"`
	Changes         []transform.Change         `json:"changes"`
	Transformations []compose.Transformation   `json:"transformations"`
	Recommendations []transform.Recommendation `json:"recommendations"`
	Composition     JSONComposition            `json:"composition"`
	Optimization    *JSONOptimization          `json:"optimization,omitempty"`
	Analytics       JSONAnalytics              `json:"analytics"`
}

// JSONSummary contains the change counts.
type JSONSummary struct {
	TotalChanges int            `json:"total_changes"`
	Rewrites     int            `json:"rewrites"`
	Injections   int            `json:"injections"`
	RolledBack   bool           `json:"rolled_back"`
	ByType       map[string]int `json:"by_type"`
}

// JSONComposition describes how the result was produced.
type JSONComposition struct {
	TransformOrder         []string `json:"transform_order"`
	TransformationsApplied []string `json:"transformations_applied"`
	TotalChanges           int      `json:"total_changes"`
	ProcessingTimeMs       float64  `json:"processing_time_ms"`
	CacheKey               string   `json:"cache_key"`
	Injections             []string `json:"injections"`
	Skipped                bool     `json:"skipped,omitempty"`
}

// JSONOptimization is the optimizer trail.
type JSONOptimization struct {
	State         string          `json:"state"`
	Reason        string          `json:"reason,omitempty"`
	Optimizations []JSONOptimStep `json:"optimizations"`
	BytesBefore   int             `json:"bytes_before"`
	BytesAfter    int             `json:"bytes_after"`
}

// JSONOptimStep is one optimization step or the rollback.
type JSONOptimStep struct {
	Step        string `json:"step"`
	State       string `json:"state"`
	Reason      string `json:"reason,omitempty"`
	BytesBefore int    `json:"bytes_before"`
	BytesAfter  int    `json:"bytes_after"`
}

// JSONAnalytics contains the run counters.
type JSONAnalytics struct {
	TransformsApplied int                  `json:"transforms_applied"`
	CacheHits         int64                `json:"cache_hits"`
	CacheHit          bool                 `json:"cache_hit"`
	ProcessingTimeMs  float64              `json:"processing_time_ms"`
	Errors            []compose.StageError `json:"errors"`
}

// JSONBatchOutput is the structured export of a batch.
type JSONBatchOutput struct {
	Version   string          `json:"version"`
	Timestamp string          `json:"timestamp"`
	Summary   JSONBatchTotals `json:"summary"`
	Files     []JSONBatchFile `json:"files"`
}

// JSONBatchTotals aggregates a batch.
type JSONBatchTotals struct {
	TotalFiles       int     `json:"total_files"`
	Successful       int     `json:"successful"`
	Failed           int     `json:"failed"`
	TotalChanges     int     `json:"total_changes"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
}

// JSONBatchFile is one file of a batch.
type JSONBatchFile struct {
	Path   string      `json:"path"`
	Error  string      `json:"error,omitempty"`
	Result *JSONOutput `json:"result,omitempty"`
}

// WriteJSON writes res as JSON.
func WriteJSON(w io.Writer, res *Result) error {
	return encodeJSON(w, buildJSONOutput(res))
}

// WriteBatchJSON writes batch as JSON.
func WriteBatchJSON(w io.Writer, batch *Batch) error {
	out := JSONBatchOutput{
		Version:   JSONSchemaVersion,
		Timestamp: time.Now().Format(time.RFC3339),
		Summary: JSONBatchTotals{
			TotalFiles:       batch.Summary.TotalFiles,
			Successful:       batch.Summary.Successful,
			Failed:           batch.Summary.Failed,
			TotalChanges:     batch.Summary.TotalChanges,
			ProcessingTimeMs: milliseconds(batch.Summary.ProcessingTime),
		},
		Files: make([]JSONBatchFile, len(batch.Results)),
	}
	for i, fr := range batch.Results {
		out.Files[i] = JSONBatchFile{Path: fr.Path, Error: fr.Error}
		if fr.Result != nil {
			jr := buildJSONOutput(fr.Result)
			out.Files[i].Result = &jr
		}
	}
	return encodeJSON(w, out)
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// buildJSONOutput converts a Result to the export schema. Nil slices are
// emitted as empty arrays.
func buildJSONOutput(res *Result) JSONOutput {
	summary := JSONSummary{ByType: make(map[string]int)}
	for _, ch := range res.Changes {
		switch {
		case ch.Type == transform.ChangeRollback:
			summary.RolledBack = true
			continue
		case ch.IsInjection():
			summary.Injections++
		default:
			summary.Rewrites++
		}
		summary.ByType[ch.Type]++
	}
	summary.TotalChanges = summary.Rewrites + summary.Injections

	out := JSONOutput{
		Version:         JSONSchemaVersion,
		Timestamp:       time.Now().Format(time.RFC3339),
		CSS:             res.CSS,
		Summary:         summary,
		Changes:         nonNil(res.Changes),
		Transformations: nonNil(res.Transformations),
		Recommendations: nonNil(res.Recommendations),
		Composition: JSONComposition{
			TransformOrder:         nonNil(res.Composition.TransformOrder),
			TransformationsApplied: nonNil(res.Composition.TransformationsApplied),
			TotalChanges:           res.Composition.TotalChanges,
			ProcessingTimeMs:       milliseconds(res.Composition.ProcessingTime),
			CacheKey:               res.Composition.CacheKey,
			Injections:             nonNil(res.Composition.Injections),
			Skipped:                res.Composition.Skipped,
		},
		Analytics: JSONAnalytics{
			TransformsApplied: res.Analytics.TransformsApplied,
			CacheHits:         res.Analytics.CacheHits,
			CacheHit:          res.Analytics.CacheHit,
			ProcessingTimeMs:  milliseconds(res.Analytics.ProcessingTime),
			Errors:            nonNil(res.Analytics.Errors),
		},
	}

	if rep := res.Optimization; rep != nil {
		opt := &JSONOptimization{
			State:         string(rep.State),
			Reason:        rep.Reason,
			Optimizations: make([]JSONOptimStep, len(rep.Records)),
			BytesAfter:    len(rep.CSS),
		}
		for i, rec := range rep.Records {
			opt.Optimizations[i] = JSONOptimStep{
				Step:        rec.Step,
				State:       string(rec.State),
				Reason:      rec.Reason,
				BytesBefore: rec.BytesBefore,
				BytesAfter:  rec.BytesAfter,
			}
		}
		if len(rep.Records) > 0 {
			opt.BytesBefore = rep.Records[0].BytesBefore
		} else {
			opt.BytesBefore = len(rep.CSS)
		}
		out.Optimization = opt
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
