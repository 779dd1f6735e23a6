package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultProjectConfigIsValid verifies the default configuration passes validation and carries the documented
// exploration bounds.
func TestDefaultProjectConfigIsValid(t *testing.T) {
	projectConfig := GetDefaultProjectConfig()
	require.NoError(t, projectConfig.Validate())
	assert.EqualValues(t, 100, projectConfig.Analysis.MaxIter)
	assert.EqualValues(t, 100, projectConfig.Analysis.MaxDepth)
	assert.EqualValues(t, 100, projectConfig.Analysis.MaxTries)
	assert.EqualValues(t, 2, projectConfig.Analysis.MinPredicates)
	assert.EqualValues(t, BlockingScopeAnalysis, projectConfig.Analysis.BlockingScope)
	assert.EqualValues(t, 1, projectConfig.Interprocedural.MaxHops)
}

// TestProjectConfigRoundTrip writes the configuration to disk in both supported formats and reads it back.
func TestProjectConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()

	projectConfig := GetDefaultProjectConfig()
	projectConfig.Analysis.MaxDepth = 7
	projectConfig.Analysis.TargetFunctions = []string{"f", "g"}
	projectConfig.Analysis.BlockingScope = BlockingScopePath
	projectConfig.Logging.Level = zerolog.DebugLevel

	for _, name := range []string{"symfuzz.json", "symfuzz.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, projectConfig.WriteToFile(path))

		read, err := ReadProjectConfigFromFile(path)
		require.NoError(t, err, name)
		assert.EqualValues(t, projectConfig, read, name)
	}
}

// TestReadProjectConfigKeepsDefaults verifies that values absent from a config file keep their defaults.
func TestReadProjectConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  maxDepth: 3\n"), 0644))

	read, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.EqualValues(t, 3, read.Analysis.MaxDepth)
	assert.EqualValues(t, 100, read.Analysis.MaxIter)
	assert.True(t, read.Interprocedural.Enabled)

	_, err = ReadProjectConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// TestValidate verifies that invalid configurations are rejected.
func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(p *ProjectConfig)
	}{
		{"zero max iterations", func(p *ProjectConfig) { p.Analysis.MaxIter = 0 }},
		{"negative max depth", func(p *ProjectConfig) { p.Analysis.MaxDepth = -1 }},
		{"zero max tries", func(p *ProjectConfig) { p.Analysis.MaxTries = 0 }},
		{"negative minimum predicates", func(p *ProjectConfig) { p.Analysis.MinPredicates = -1 }},
		{"zero workers", func(p *ProjectConfig) { p.Analysis.Workers = 0 }},
		{"unknown blocking scope", func(p *ProjectConfig) { p.Analysis.BlockingScope = "forever" }},
		{"zero hops", func(p *ProjectConfig) { p.Interprocedural.MaxHops = 0 }},
		{"corpus without directory", func(p *ProjectConfig) {
			p.Corpus.Enabled = true
			p.Corpus.Directory = ""
		}},
		{"unsatisfiable version", func(p *ProjectConfig) { p.MinimumVersion = ">= 999.0.0" }},
	}
	for _, tc := range testCases {
		projectConfig := GetDefaultProjectConfig()
		tc.modify(projectConfig)
		assert.Error(t, projectConfig.Validate(), tc.name)
	}
}
