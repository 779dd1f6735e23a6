package cmd

import (
	"github.com/crytic/symfuzz/fuzzing/config"
	"github.com/spf13/cobra"
)

// addFuzzFlags adds the various flags for the fuzz command
func addFuzzFlags() {
	// Prevent alphabetical sorting of usage message
	fuzzCmd.Flags().SortFlags = false

	addAnalysisFlags(fuzzCmd, config.GetDefaultProjectConfig())

	// Target function
	fuzzCmd.Flags().String("function", "", "function to generate test cases for")

	// Number of test cases
	fuzzCmd.Flags().IntP("count", "n", 1, "number of test cases to generate")

	// Output file
	fuzzCmd.Flags().String("out", "", "path of a JSON file to write the test cases to")
}

// updateProjectConfigWithFuzzFlags will update the given projectConfig with any CLI arguments that were provided to
// the fuzz command
func updateProjectConfigWithFuzzFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	return updateProjectConfigWithAnalysisFlags(cmd, projectConfig)
}
