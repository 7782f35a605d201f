package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yacobolo/csstokens"
	"github.com/yacobolo/csstokens/internal/report"
	"github.com/yacobolo/csstokens/internal/tokens"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List the CSS variables of a token set",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		set, err := loadTokens()
		if err != nil {
			return err
		}
		useColors := report.ShouldUseColors(getBoolWithFallback("color", "color", false, false))
		writeTokenList(cmd.OutOrStdout(), set, useColors)
		return nil
	},
}

// writeTokenList prints every token as "--var: value", grouped by category.
// Themed tokens list their dark variant after the primary value.
func writeTokenList(w io.Writer, set *csstokens.TokenSet, useColors bool) {
	first := true
	for _, c := range tokens.Categories {
		group := set.Group(c)
		if len(group) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(w)
		}
		first = false

		fmt.Fprintf(w, "%s (%d)\n", report.RenderStyle(report.StyleCyan, string(c), useColors), len(group))
		for _, e := range group {
			ref := tokens.Ref{Category: c, Name: e.Name}
			line := fmt.Sprintf("  %s: %s", ref.Var(), e.Value.Primary())
			if e.Value.Dark != "" && e.Value.Dark != e.Value.Primary() {
				line += report.RenderStyle(report.StyleGray, " (dark: "+e.Value.Dark+")", useColors)
			}
			fmt.Fprintln(w, line)
		}
	}
}
