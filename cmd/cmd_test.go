package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/crytic/symfuzz/cmd/exitcodes"
	"github.com/crytic/symfuzz/fuzzing"
	"github.com/crytic/symfuzz/fuzzing/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAnalysisFlagsOverrideConfig verifies only the flags that were set replace configuration values.
func TestAnalysisFlagsOverrideConfig(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addAnalysisFlags(cmd, config.GetDefaultProjectConfig())
	require.NoError(t, cmd.ParseFlags([]string{"-d", "7", "--max-tries", "3"}))

	projectConfig := config.GetDefaultProjectConfig()
	require.NoError(t, updateProjectConfigWithAnalysisFlags(cmd, projectConfig))
	assert.EqualValues(t, 7, projectConfig.Analysis.MaxDepth)
	assert.EqualValues(t, 3, projectConfig.Analysis.MaxTries)
	assert.EqualValues(t, config.GetDefaultProjectConfig().Analysis.MaxIter, projectConfig.Analysis.MaxIter)
}

// TestInitWritesDefaultConfig verifies the init command writes a configuration which reads back as the defaults.
func TestInitWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symfuzz.yaml")
	rootCmd.SetArgs([]string{"init", "--out", path, "--force"})
	require.NoError(t, rootCmd.Execute())

	projectConfig, err := config.ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.EqualValues(t, config.GetDefaultProjectConfig(), projectConfig)
}

// TestAnalyzeCommand runs the analyze command over a small source file and checks the written reports.
func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.go")
	output := filepath.Join(dir, "reports.json")
	require.NoError(t, os.WriteFile(input, []byte(`package p

func sign(a int) int {
	if a >= 0 {
		return 1
	}
	return -1
}
`), 0644))

	rootCmd.SetArgs([]string{"analyze", "-i", input, "--out", output})
	require.NoError(t, rootCmd.Execute())

	results, err := fuzzing.ReadCampaignResults(output)
	require.NoError(t, err)
	require.Len(t, results.Reports, 1)
	assert.EqualValues(t, "sign", results.Reports[0].Function)
	assert.Len(t, results.Reports[0].TestCases(), 2)
}

// TestParseFailureExitCode verifies sources which cannot be parsed exit with the parse error code.
func TestParseFailureExitCode(t *testing.T) {
	input := filepath.Join(t.TempDir(), "broken.go")
	require.NoError(t, os.WriteFile(input, []byte("package p\nfunc f( {"), 0644))

	rootCmd.SetArgs([]string{"fuzz", "-i", input, "--function", "f"})
	err := rootCmd.Execute()
	_, code, handled := exitcodes.GetInnerErrorAndExitCode(err)
	assert.EqualValues(t, exitcodes.ExitCodeParseError, code)
	assert.True(t, handled)
}

// TestFuzzCommand verifies the fuzz command stops once no further distinct test case exists.
func TestFuzzCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.go")
	output := filepath.Join(dir, "cases.json")
	require.NoError(t, os.WriteFile(input, []byte(`package p

func toggle(on bool) int {
	if on {
		return 1
	}
	return 0
}
`), 0644))

	rootCmd.SetArgs([]string{"fuzz", "-i", input, "--function", "toggle", "-n", "5", "--out", output})
	require.NoError(t, rootCmd.Execute())

	b, err := os.ReadFile(output)
	require.NoError(t, err)
	var testCases []*fuzzing.TestCase
	require.NoError(t, json.Unmarshal(b, &testCases))
	require.Len(t, testCases, 2)
	assert.NotEqualValues(t, testCases[0].Inputs["on"].Bool, testCases[1].Inputs["on"].Bool)
}
