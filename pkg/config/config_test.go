package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 80, cfg.Analysis.Threshold)
	assert.Equal(t, "src", cfg.Analysis.SourceRoot)
	assert.Equal(t, 5, cfg.Analysis.MinCoverageIncrease)
	assert.Equal(t, ":8080", cfg.Server.ListenAddress)
	assert.Equal(t, "coverage-gaps", cfg.Report.Name)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coverpilot.yaml")
	contents := `
analysis:
  threshold: 65
  sourceRoot: lib
  excludePatterns:
    - "**/vendor/**"
generator:
  provider: anthropic
  model: claude-sonnet-4-20250514
report:
  name: gaps
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 65, cfg.Analysis.Threshold)
	assert.Equal(t, "lib", cfg.Analysis.SourceRoot)
	assert.Equal(t, []string{"**/vendor/**"}, cfg.Analysis.ExcludePatterns)
	assert.Equal(t, "anthropic", cfg.Generator.Provider)
	assert.Equal(t, "gaps", cfg.Report.Name)
	// Unset sections keep their defaults.
	assert.Equal(t, ":8080", cfg.Server.ListenAddress)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")
	t.Setenv("OPENAI_API_KEY", "oai-key")
	t.Setenv("COVERPILOT_PROVIDER", "anthropic")
	t.Setenv("COVERPILOT_THRESHOLD", "70")
	t.Setenv("COVERPILOT_LISTEN_ADDRESS", ":9999")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "gh-token", cfg.GitHub.Token)
	assert.Equal(t, "anthropic", cfg.Generator.Provider)
	assert.Equal(t, "ant-key", cfg.Generator.APIKey)
	assert.Equal(t, 70, cfg.Analysis.Threshold)
	assert.Equal(t, ":9999", cfg.Server.ListenAddress)
}

func TestProviderKeySelection(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "oai-key")
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")
	t.Setenv("COVERPILOT_PROVIDER", "")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	// Default provider is openai, so the openai key is selected.
	assert.Equal(t, "openai", cfg.Generator.Provider)
	assert.Equal(t, "oai-key", cfg.Generator.APIKey)
}
