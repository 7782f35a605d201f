package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yacobolo/csstokens"
)

const defaultWorkers = 8

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Compose every stylesheet matching the include globs",
	Long: `Compose a set of stylesheets with one token set. A failing file is
reported and does not stop the others. Results are written to --out-dir,
back to the inputs with --write, or only reported.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runBatch,
}

func init() {
	addOptionFlags(batchCmd)
	f := batchCmd.Flags()
	f.StringSlice("include", nil, "Glob patterns for CSS files to compose")
	f.String("out-dir", "", "Directory receiving the composed files")
	f.Bool("write", false, "Overwrite the input files")
	f.Int("workers", defaultWorkers, "Files read concurrently")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	set, err := loadTokens()
	if err != nil {
		return err
	}

	patterns := k.Strings("include")
	if len(patterns) == 0 {
		patterns = k.Strings("batch.include")
	}
	if len(patterns) == 0 {
		patterns = []string{"**/*.css"}
	}

	paths, err := discoverFiles(patterns)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files match %s", strings.Join(patterns, ", "))
	}

	ctx := cmd.Context()
	files, err := readFiles(ctx, paths, getIntWithFallback("workers", "batch.workers", defaultWorkers))
	if err != nil {
		return err
	}

	quiet := getBoolWithFallback("quiet", "quiet", false, false)
	log := newLogger(getBoolWithFallback("verbose", "verbose", false, false), quiet)
	defer func() { _ = log.Sync() }()

	batch, batchErr := csstokens.NewComposer(log, nil).BatchCompose(ctx, files, set, buildOptions())

	outDir := getStringWithFallback("out-dir", "batch.out-dir", "")
	if outDir != "" || getBoolWithFallback("write", "batch.write", false, false) {
		if err := writeResults(files, batch, outDir); err != nil {
			return err
		}
	}

	if !quiet {
		format := csstokens.DetermineOutputFormat(getStringWithFallback("format", "format", ""), quiet)
		if err := csstokens.WriteBatchOutput(cmd.OutOrStdout(), batch, format, outputConfig()); err != nil {
			return err
		}
	}

	if batchErr != nil {
		return fmt.Errorf("%d of %d files failed: %w", batch.Summary.Failed, batch.Summary.TotalFiles, batchErr)
	}
	return nil
}

// discoverFiles expands the glob patterns into a sorted list of regular
// files. A file matched by several patterns is listed once.
func discoverFiles(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}

		for _, match := range matches {
			if seen[match] {
				continue
			}
			seen[match] = true
			if info, err := os.Stat(match); err == nil && !info.IsDir() {
				files = append(files, match)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// readFiles loads paths concurrently. The result keeps the order of paths.
func readFiles(ctx context.Context, paths []string, workers int) ([]csstokens.File, error) {
	files := make([]csstokens.File, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			files[i] = csstokens.File{Path: path, CSS: string(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// writeResults stores the composed CSS of every successful file. With an
// empty outDir the inputs are overwritten, and only when they changed.
func writeResults(files []csstokens.File, batch *csstokens.Batch, outDir string) error {
	for i, fr := range batch.Results {
		if fr.Result == nil {
			continue
		}

		target := fr.Path
		if outDir != "" {
			target = filepath.Join(outDir, outputPath(fr.Path))
		} else if fr.Result.CSS == files[i].CSS {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", target, err)
		}
		if err := os.WriteFile(target, []byte(fr.Result.CSS), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", target, err)
		}
	}
	return nil
}

// outputPath maps an input path to its location below the output directory.
// Relative paths keep their directories; absolute and parent-relative paths
// keep only the file name.
func outputPath(path string) string {
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return filepath.Base(clean)
	}
	return clean
}
