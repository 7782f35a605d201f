package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/csstokens/internal/match"
)

// resetKoanf creates a fresh koanf instance for each test.
func resetKoanf() {
	k = koanf.New(".")
}

func TestConfigFileLoading(t *testing.T) {
	resetKoanf()

	dir := t.TempDir()
	configPath := filepath.Join(dir, ".csstokens.yaml")
	configContent := `
tokens: brand/tokens.yaml
verbose: true
format: json

stages:
  shadows: false
  gradients: false

max-changes: 25
exclude:
  - "legacy/"

tuning:
  tolerance: 0.1
  strategy: closest
  duration-tolerance: 120ms
  snap-to-scale: true
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))
	require.NoError(t, loadConfigFromPath(configPath))

	assert.Equal(t, "brand/tokens.yaml", k.String("tokens"))
	assert.True(t, k.Bool("verbose"))
	assert.Equal(t, "json", k.String("format"))

	opts := buildOptions()
	assert.False(t, opts.EnableShadows)
	assert.False(t, opts.EnableGradients)
	assert.True(t, opts.EnableColors)
	assert.True(t, opts.EnableOptimization)
	assert.Equal(t, 25, opts.MaxChanges)
	assert.Equal(t, []string{"legacy/"}, opts.Exclusions)
	assert.InDelta(t, 0.1, opts.Tuning.Match.Tolerance, 1e-9)
	assert.Equal(t, match.Closest, opts.Tuning.Match.Strategy)
	assert.Equal(t, 120*time.Millisecond, opts.Tuning.DurationTolerance)
	assert.True(t, opts.Tuning.SnapToScale)
}

func TestConfigFileNotFound_UsesDefaults(t *testing.T) {
	resetKoanf()

	// A missing config file is not an error.
	require.NoError(t, loadConfigFromPath("/nonexistent/.csstokens.yaml"))

	opts := buildOptions()
	assert.True(t, opts.EnableTypography)
	assert.True(t, opts.EnableShadows)
	assert.True(t, opts.EnableOptimization)
	assert.Zero(t, opts.MaxChanges)
	assert.Empty(t, opts.Exclusions)
	assert.Equal(t, match.DefaultConfig(), opts.Tuning.Match)
	assert.Equal(t, 50*time.Millisecond, opts.Tuning.DurationTolerance)
}

func TestEnvVarOverridesConfigFile(t *testing.T) {
	resetKoanf()

	dir := t.TempDir()
	configPath := filepath.Join(dir, ".csstokens.yaml")
	configContent := `
tokens: from-file.yaml
stages:
  colors: true
tuning:
  strategy: first
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	// Set env vars that should override config file
	t.Setenv("CSSTOKENS_TOKENS", "from-env.yaml")
	t.Setenv("CSSTOKENS_STAGES_COLORS", "false")
	t.Setenv("CSSTOKENS_TUNING_STRATEGY", "closest")

	require.NoError(t, loadConfigFromPath(configPath))

	assert.Equal(t, "from-env.yaml", k.String("tokens"))
	opts := buildOptions()
	assert.False(t, opts.EnableColors)
	assert.Equal(t, match.Closest, opts.Tuning.Match.Strategy)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	resetKoanf()

	dir := t.TempDir()
	configPath := filepath.Join(dir, ".csstokens.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("max-changes: 5\nstages:\n  spacing: true\n"), 0o644))
	require.NoError(t, loadConfigFromPath(configPath))

	// Explicitly set flags land on their own keys.
	require.NoError(t, k.Set("max-changes", 9))
	require.NoError(t, k.Set("no-spacing", true))

	opts := buildOptions()
	assert.Equal(t, 9, opts.MaxChanges)
	assert.False(t, opts.EnableSpacing)
}

func TestLoadTokensRequiresPath(t *testing.T) {
	resetKoanf()

	_, err := loadTokens()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token set given")
}

func TestWriteDefaultConfig(t *testing.T) {
	resetKoanf()

	path := filepath.Join(t.TempDir(), ".csstokens.yaml")
	require.NoError(t, writeDefaultConfig(path, false))

	err := writeDefaultConfig(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	require.NoError(t, writeDefaultConfig(path, true))

	// The generated file must load and describe the defaults.
	require.NoError(t, loadConfigFromPath(path))
	assert.Equal(t, []string{"styles/**/*.css"}, k.Strings("batch.include"))
	opts := buildOptions()
	assert.True(t, opts.EnableShadows)
	assert.Equal(t, match.DefaultConfig(), opts.Tuning.Match)
	assert.Equal(t, 50*time.Millisecond, opts.Tuning.DurationTolerance)
}
