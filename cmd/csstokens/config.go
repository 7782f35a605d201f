package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yacobolo/csstokens"
	"github.com/yacobolo/csstokens/internal/match"
)

const defaultConfigPath = ".csstokens.yaml"

var k = koanf.New(".")

// loadConfig loads configuration with precedence: flags > env > file > defaults.
// It must be called after cobra parses flags (in PreRunE or RunE).
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if err := loadConfigFromPath(configPath); err != nil {
		return err
	}

	// Only flags that were explicitly set override file and env values.
	flags := cmd.Flags()
	if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		return f.Name, posflag.FlagVal(flags, f)
	}), nil); err != nil {
		return fmt.Errorf("loading command flags: %w", err)
	}

	return nil
}

// loadConfigFromPath loads configuration from a file, a .env file and
// environment variables.
func loadConfigFromPath(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	// A missing .env is fine; variables already set in the environment win.
	_ = godotenv.Load()

	if err := k.Load(env.Provider("CSSTOKENS_", ".", func(s string) string {
		// CSSTOKENS_STAGES_SHADOWS -> stages.shadows
		// CSSTOKENS_TUNING_STRATEGY -> tuning.strategy
		// CSSTOKENS_TOKENS -> tokens
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "CSSTOKENS_")),
			"_", ".",
		)
	}), nil); err != nil {
		return fmt.Errorf("loading environment variables: %w", err)
	}

	return nil
}

// stageKeys are the stage names used under stages: and in --no-<stage> flags.
var stageKeys = []string{
	"typography",
	"colors",
	"spacing",
	"animations",
	"gradients",
	"states",
	"shadows",
	"optimization",
}

// buildOptions constructs the composition options from koanf state.
func buildOptions() csstokens.Options {
	opts := csstokens.DefaultOptions()

	enabled := make(map[string]bool, len(stageKeys))
	for _, name := range stageKeys {
		enabled[name] = getBoolWithFallback("no-"+name, "stages."+name, true, true)
	}
	opts.EnableTypography = enabled["typography"]
	opts.EnableColors = enabled["colors"]
	opts.EnableSpacing = enabled["spacing"]
	opts.EnableAnimations = enabled["animations"]
	opts.EnableGradients = enabled["gradients"]
	opts.EnableStates = enabled["states"]
	opts.EnableShadows = enabled["shadows"]
	opts.EnableOptimization = enabled["optimization"]

	opts.MaxChanges = getIntWithFallback("max-changes", "max-changes", 0)

	if exclude := k.Strings("exclude"); len(exclude) > 0 {
		opts.Exclusions = exclude
	}

	t := &opts.Tuning
	t.Match.Tolerance = getFloat64WithFallback("tolerance", "tuning.tolerance", t.Match.Tolerance)
	t.Match.RemBase = getFloat64WithFallback("rem-base", "tuning.rem-base", t.Match.RemBase)
	t.Match.NearMissDistance = getFloat64WithFallback("near-miss", "tuning.near-miss", t.Match.NearMissDistance)
	t.Match.Strategy = match.ParseStrategy(getStringWithFallback("strategy", "tuning.strategy", t.Match.Strategy.String()))
	t.FontSizeTolerance = getFloat64WithFallback("font-size-tolerance", "tuning.font-size-tolerance", t.FontSizeTolerance)
	t.LineHeightTolerance = getFloat64WithFallback("line-height-tolerance", "tuning.line-height-tolerance", t.LineHeightTolerance)
	t.DurationTolerance = getDurationWithFallback("duration-tolerance", "tuning.duration-tolerance", t.DurationTolerance)
	t.SnapToScale = getBoolWithFallback("snap-to-scale", "tuning.snap-to-scale", t.SnapToScale, false)

	return opts
}

// getStringWithFallback checks the flag key first, then the config file key, then returns the default.
func getStringWithFallback(flagKey, configKey, defaultVal string) string {
	if v := k.String(flagKey); v != "" {
		return v
	}
	if v := k.String(configKey); v != "" {
		return v
	}
	return defaultVal
}

// getBoolWithFallback checks the flag key first, then the config file key,
// then returns the default. A negated flag ("no-shadows") is inverted.
func getBoolWithFallback(flagKey, configKey string, defaultVal, negated bool) bool {
	if k.Exists(flagKey) {
		if negated {
			return !k.Bool(flagKey)
		}
		return k.Bool(flagKey)
	}
	if k.Exists(configKey) {
		return k.Bool(configKey)
	}
	return defaultVal
}

// getIntWithFallback checks the flag key first, then the config file key, then returns the default.
func getIntWithFallback(flagKey, configKey string, defaultVal int) int {
	if k.Exists(flagKey) {
		return k.Int(flagKey)
	}
	if k.Exists(configKey) {
		return k.Int(configKey)
	}
	return defaultVal
}

// getFloat64WithFallback checks the flag key first, then the config file key, then returns the default.
func getFloat64WithFallback(flagKey, configKey string, defaultVal float64) float64 {
	if k.Exists(flagKey) {
		return k.Float64(flagKey)
	}
	if k.Exists(configKey) {
		return k.Float64(configKey)
	}
	return defaultVal
}

// getDurationWithFallback checks the flag key first, then the config file key, then returns the default.
func getDurationWithFallback(flagKey, configKey string, defaultVal time.Duration) time.Duration {
	if k.Exists(flagKey) {
		return k.Duration(flagKey)
	}
	if k.Exists(configKey) {
		return k.Duration(configKey)
	}
	return defaultVal
}
