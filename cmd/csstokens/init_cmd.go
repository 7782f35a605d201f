package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default .csstokens.yaml config file",
	Long:  `Create a .csstokens.yaml configuration file in the current directory with sensible defaults.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		return writeDefaultConfig(defaultConfigPath, force)
	},
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Println("Created " + path)
	return nil
}

const defaultConfig = `# csstokens configuration
# Docs: https://github.com/yacobolo/csstokens

# Token set (YAML or JSON)
tokens: design/tokens.yaml
verbose: false

# Output: css | summary | full | json | markdown
format: css
show-tokens: false

# Stages run in this order; optimization always runs last.
stages:
  typography: true
  colors: true
  spacing: true
  animations: true
  gradients: true
  states: true
  shadows: true
  optimization: true

max-changes: 0           # 0 = unlimited

# Files left untouched (gitignore syntax). Empty keeps the default vendor
# and build locations plus *.min.css.
exclude: []

tuning:
  tolerance: 0.05        # relative, spacing and radius
  rem-base: 16
  strategy: first        # first | closest
  near-miss: 0.03        # CIEDE2000 distance reported as a near miss, negative disables
  font-size-tolerance: 0.20
  line-height-tolerance: 0.10
  duration-tolerance: 50ms
  snap-to-scale: false

# Batch settings
batch:
  include:
    - "styles/**/*.css"
  out-dir: ""
  workers: 8
`

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing config file")
}
