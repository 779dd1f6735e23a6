package cmd

import (
	"fmt"

	"github.com/crytic/symfuzz/fuzzing/config"
	"github.com/spf13/cobra"
)

// addAnalysisFlags adds the flags shared by the commands which explore and solve paths
func addAnalysisFlags(cmd *cobra.Command, defaultConfig *config.ProjectConfig) {
	// Config file
	cmd.Flags().String("config", "", "path to config file")

	// Input source
	cmd.Flags().StringP("input", "i", "", InputFlagDescription)

	// Exploration bounds
	cmd.Flags().IntP("depth", "d", 0,
		fmt.Sprintf("maximum path depth (unless a config file is provided, default is %d)", defaultConfig.Analysis.MaxDepth))
	cmd.Flags().Int("max-iter", 0,
		fmt.Sprintf("maximum number of exploration rounds (unless a config file is provided, default is %d)", defaultConfig.Analysis.MaxIter))
	cmd.Flags().Int("max-tries", 0,
		fmt.Sprintf("maximum number of paths tried per fuzzing attempt (unless a config file is provided, default is %d)", defaultConfig.Analysis.MaxTries))
}

// addAnalyzeFlags adds the various flags for the analyze command
func addAnalyzeFlags() {
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	analyzeCmd.Flags().SortFlags = false

	addAnalysisFlags(analyzeCmd, defaultConfig)

	// Target functions
	analyzeCmd.Flags().StringSlice("function", []string{},
		"function to analyze, may be repeated (unless a config file is provided, every function is analyzed)")

	// Number of workers
	analyzeCmd.Flags().Int("workers", 0,
		fmt.Sprintf("number of functions analyzed in parallel (unless a config file is provided, default is %d)", defaultConfig.Analysis.Workers))

	// Timeout
	analyzeCmd.Flags().Int("timeout", 0,
		fmt.Sprintf("number of seconds to run the analysis for (unless a config file is provided, default is %d). 0 means that timeout is not enforced", defaultConfig.Analysis.Timeout))

	// Blocking scope
	analyzeCmd.Flags().String("blocking-scope", "",
		fmt.Sprintf("lifetime of blocking clauses, '%s' or '%s' (unless a config file is provided, default is %q)",
			config.BlockingScopeAnalysis, config.BlockingScopePath, defaultConfig.Analysis.BlockingScope))

	// Interprocedural propagation
	analyzeCmd.Flags().Bool("no-interprocedural", false, "disable the follow-up analyses of callees with call site constants")
	analyzeCmd.Flags().Int("max-hops", 0,
		fmt.Sprintf("maximum number of calls followed from an analyzed function (unless a config file is provided, default is %d)", defaultConfig.Interprocedural.MaxHops))

	// Corpus directory
	analyzeCmd.Flags().String("corpus-dir", "",
		"directory of the report cache, enables the cache when provided")
	analyzeCmd.Flags().Bool("clear-corpus", false, "remove the cached reports before analyzing")

	// Output file
	analyzeCmd.Flags().String("out", "", "path of a JSON file to write the reports to")
}

// updateProjectConfigWithAnalysisFlags will update the given projectConfig with the CLI arguments of the shared
// analysis flags
func updateProjectConfigWithAnalysisFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update depth
	if cmd.Flags().Changed("depth") {
		projectConfig.Analysis.MaxDepth, err = cmd.Flags().GetInt("depth")
		if err != nil {
			return err
		}
	}

	// Update exploration rounds
	if cmd.Flags().Changed("max-iter") {
		projectConfig.Analysis.MaxIter, err = cmd.Flags().GetInt("max-iter")
		if err != nil {
			return err
		}
	}

	// Update tries
	if cmd.Flags().Changed("max-tries") {
		projectConfig.Analysis.MaxTries, err = cmd.Flags().GetInt("max-tries")
		if err != nil {
			return err
		}
	}
	return nil
}

// updateProjectConfigWithAnalyzeFlags will update the given projectConfig with any CLI arguments that were provided
// to the analyze command
func updateProjectConfigWithAnalyzeFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	err := updateProjectConfigWithAnalysisFlags(cmd, projectConfig)
	if err != nil {
		return err
	}

	// Update target functions
	if cmd.Flags().Changed("function") {
		projectConfig.Analysis.TargetFunctions, err = cmd.Flags().GetStringSlice("function")
		if err != nil {
			return err
		}
	}

	// Update number of workers
	if cmd.Flags().Changed("workers") {
		projectConfig.Analysis.Workers, err = cmd.Flags().GetInt("workers")
		if err != nil {
			return err
		}
	}

	// Update timeout
	if cmd.Flags().Changed("timeout") {
		projectConfig.Analysis.Timeout, err = cmd.Flags().GetInt("timeout")
		if err != nil {
			return err
		}
	}

	// Update blocking scope
	if cmd.Flags().Changed("blocking-scope") {
		scope, err := cmd.Flags().GetString("blocking-scope")
		if err != nil {
			return err
		}
		projectConfig.Analysis.BlockingScope = config.BlockingScope(scope)
	}

	// Update interprocedural propagation
	if cmd.Flags().Changed("no-interprocedural") {
		disabled, err := cmd.Flags().GetBool("no-interprocedural")
		if err != nil {
			return err
		}
		projectConfig.Interprocedural.Enabled = !disabled
	}
	if cmd.Flags().Changed("max-hops") {
		projectConfig.Interprocedural.MaxHops, err = cmd.Flags().GetInt("max-hops")
		if err != nil {
			return err
		}
	}

	// Update corpus directory
	if cmd.Flags().Changed("corpus-dir") {
		projectConfig.Corpus.Directory, err = cmd.Flags().GetString("corpus-dir")
		if err != nil {
			return err
		}
		projectConfig.Corpus.Enabled = true
	}
	return nil
}
