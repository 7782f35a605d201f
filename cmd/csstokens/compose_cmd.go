package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yacobolo/csstokens"
	"github.com/yacobolo/csstokens/internal/compose"
)

var composeCmd = &cobra.Command{
	Use:   "compose [FILE]",
	Short: "Compose one stylesheet",
	Long: `Rewrite the hardcoded values of one stylesheet into token references.
Reads stdin when FILE is omitted or "-". The composed CSS is written to stdout
unless --output is given.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runCompose,
}

func init() {
	addOptionFlags(composeCmd)
	composeCmd.Flags().StringP("output", "o", "", "Write composed CSS to this file")
}

func runCompose(cmd *cobra.Command, args []string) error {
	set, err := loadTokens()
	if err != nil {
		return err
	}

	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	css, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	opts := buildOptions()
	if path != "-" {
		opts.FilePath = path
	}

	quiet := getBoolWithFallback("quiet", "quiet", false, false)
	log := newLogger(getBoolWithFallback("verbose", "verbose", false, false), quiet)
	defer func() { _ = log.Sync() }()

	// One run per process, so there is nothing to cache.
	res, err := csstokens.NewComposer(log, compose.NoCache{}).Compose(cmd.Context(), css, set, opts)
	if err != nil {
		return fmt.Errorf("composing %s: %w", path, err)
	}

	format := csstokens.DetermineOutputFormat(getStringWithFallback("format", "format", ""), quiet)
	if output := k.String("output"); output != "" {
		if err := os.WriteFile(output, []byte(res.CSS), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		log.Info("composed",
			zap.String("file", output),
			zap.Int("changes", res.Composition.TotalChanges),
			zap.Duration("took", res.Composition.ProcessingTime))
		if format == csstokens.OutputCSS {
			return nil
		}
	}

	return csstokens.WriteOutput(cmd.OutOrStdout(), res, format, outputConfig())
}

// loadTokens loads the token set named by --tokens or the tokens config key.
func loadTokens() (*csstokens.TokenSet, error) {
	path := k.String("tokens")
	if path == "" {
		return nil, fmt.Errorf("no token set given (use --tokens or set tokens in %s)", defaultConfigPath)
	}
	set, err := csstokens.LoadTokenSet(path)
	if err != nil {
		return nil, fmt.Errorf("loading token set %s: %w", path, err)
	}
	return set, nil
}

// readInput reads path, or r when path is "-".
func readInput(r io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func outputConfig() csstokens.OutputConfig {
	return csstokens.OutputConfig{
		UseColors:  getBoolWithFallback("color", "color", false, false),
		ShowTokens: getBoolWithFallback("show-tokens", "show-tokens", false, false),
	}
}
