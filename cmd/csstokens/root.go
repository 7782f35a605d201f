package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "csstokens",
	Short: "Rewrite hardcoded CSS values into design token references",
	Long: `Match literal colors, spacing, type sizes, durations and shadows against
a brand's design tokens and replace them with var() references. Token-driven
utility blocks are appended and the result is optimized and validated.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags (inherited by all subcommands)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().Bool("quiet", false, "Only emit composed CSS and errors")
	rootCmd.PersistentFlags().Bool("color", false, "Force color output")
	rootCmd.PersistentFlags().String("config", defaultConfigPath, "Config file path")
	rootCmd.PersistentFlags().StringP("tokens", "t", "", "Token set file (YAML or JSON)")

	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)
}

// addOptionFlags registers the flags shared by compose and batch.
func addOptionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("format", "", "Output format: css|summary|full|json|markdown")
	f.Bool("show-tokens", false, "List the token variables of each change")
	f.Int("max-changes", 0, "Maximum rewrites per file (0=unlimited)")
	f.StringSlice("exclude", nil, "Gitignore-style patterns of files left untouched")
	f.Float64("tolerance", 0, "Relative tolerance for spacing and radius matches")
	f.Float64("rem-base", 0, "Pixel size of 1rem")
	f.String("strategy", "", "Tie breaking among tokens in tolerance: first|closest")
	f.Bool("snap-to-scale", false, "Rewrite off-scale font sizes to the nearest scale step")
	for _, name := range stageKeys {
		f.Bool("no-"+name, false, "Disable the "+name+" stage")
	}
}
