package compose

import (
	"context"
	"time"

	"go.trai.ch/zerr"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/yacobolo/csstokens/internal/tokens"
)

// File is one input of a batch.
type File struct {
	Path string `json:"path"`
	CSS  string `json:"-"`
}

// FileResult is the outcome of one batch input. Exactly one of Result and
// Err is set.
type FileResult struct {
	Path   string  `json:"path"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
	Error  string  `json:"error,omitempty"`
}

// Summary aggregates a batch.
type Summary struct {
	TotalFiles     int           `json:"totalFiles"`
	Successful     int           `json:"successful"`
	Failed         int           `json:"failed"`
	TotalChanges   int           `json:"totalChanges"`
	ProcessingTime time.Duration `json:"processingTime"`
}

// Batch is the outcome of BatchCompose.
type Batch struct {
	Results []FileResult `json:"results"`
	Summary Summary      `json:"summary"`
}

// BatchCompose composes every file independently and in order. opts.FilePath
// is replaced by each file's path. The returned error combines the per-file
// failures; the batch itself is always complete.
func (c *Composer) BatchCompose(ctx context.Context, files []File, set *tokens.Set, opts Options) (*Batch, error) {
	start := time.Now()
	batch := &Batch{Results: make([]FileResult, 0, len(files))}

	var errs error
	for _, f := range files {
		fileOpts := opts
		fileOpts.FilePath = f.Path

		fr := FileResult{Path: f.Path}
		res, err := c.Compose(ctx, f.CSS, set, fileOpts)
		if err != nil {
			err = zerr.With(err, "file", f.Path)
			fr.Err = err
			fr.Error = err.Error()
			errs = multierr.Append(errs, zerr.Wrap(err, f.Path))
			batch.Summary.Failed++
			c.log.Warn("file failed", zap.String("file", f.Path), zap.Error(err))
		} else {
			fr.Result = res
			batch.Summary.Successful++
			batch.Summary.TotalChanges += res.Composition.TotalChanges
		}
		batch.Results = append(batch.Results, fr)
	}

	batch.Summary.TotalFiles = len(files)
	batch.Summary.ProcessingTime = time.Since(start)
	return batch, errs
}
