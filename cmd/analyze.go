package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/cmd/exitcodes"
	"github.com/crytic/symfuzz/frontend"
	"github.com/crytic/symfuzz/fuzzing"
	"github.com/crytic/symfuzz/fuzzing/corpus"
	"github.com/crytic/symfuzz/logging/colors"
	"github.com/crytic/symfuzz/logging/formatters"
	"github.com/crytic/symfuzz/solver/z3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// analyzeCmd represents the command provider for analysis campaigns
var analyzeCmd = &cobra.Command{
	Use:               "analyze",
	Short:             "Explores and solves the paths of the functions of a Go source file",
	Long:              `Explores the control-flow paths of the functions of a Go source file, reporting a test case for every feasible path and the conflicting constraints of every infeasible one`,
	Args:              cmdValidateNoArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunAnalyze,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the analyze command
	addAnalyzeFlags()

	// Add the analyze command and its associated flags to the root command
	rootCmd.AddCommand(analyzeCmd)
}

// cmdValidateNoArgs makes sure that there are no positional arguments provided to a command
func cmdValidateNoArgs(cmd *cobra.Command, args []string) error {
	// Make sure we have no positional args
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = errors.Errorf("%s does not accept any positional arguments, only flags and their associated values", cmd.Name())
		cmdLogger.Error("Failed to validate args to the "+cmd.Name()+" command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeGeneralError)
	}
	return nil
}

// parseInput parses the source file named by the --input flag. Parse failures carry ExitCodeParseError.
func parseInput(cmd *cobra.Command) (*cfg.Program, error) {
	input, err := cmd.Flags().GetString("input")
	if err != nil {
		return nil, exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeGeneralError)
	}
	if input == "" {
		err = errors.New("an input file must be provided with --input")
		cmdLogger.Error("Failed to run the "+cmd.Name()+" command", err)
		return nil, exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeGeneralError)
	}

	program, err := frontend.ParseFile(input)
	if err != nil {
		cmdLogger.Error("Failed to parse "+input, err)
		if errors.Is(err, frontend.ErrParse) {
			return nil, exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeParseError)
		}
		return nil, exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeGeneralError)
	}
	return program, nil
}

// cmdRunAnalyze executes the CLI analyze command: it resolves the project configuration, parses the input, runs a
// campaign over the selected functions and reports the results.
func cmdRunAnalyze(cmd *cobra.Command, args []string) error {
	// failed logs an error of the command and attaches a general exit code
	failed := func(err error) error {
		cmdLogger.Error("Failed to run the analyze command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeGeneralError)
	}

	projectConfig, err := loadProjectConfig(cmd)
	if err != nil {
		return failed(err)
	}

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithAnalyzeFlags(cmd, projectConfig)
	if err != nil {
		return failed(err)
	}

	closeLogs, err := setupLogging(projectConfig)
	if err != nil {
		return failed(err)
	}
	defer closeLogs()

	program, err := parseInput(cmd)
	if err != nil {
		return err
	}

	// Drop cached reports if requested
	clearCorpus, err := cmd.Flags().GetBool("clear-corpus")
	if err != nil {
		return failed(err)
	}
	if clearCorpus {
		if err = corpus.Remove(projectConfig.Corpus.Directory); err != nil {
			return failed(err)
		}
		cmdLogger.Info("Removed the corpus in ", colors.Bold, projectConfig.Corpus.Directory, colors.Reset)
	}

	campaign, err := fuzzing.NewCampaign(*projectConfig, program, z3.NewFactory())
	if err != nil {
		return failed(err)
	}

	// Report every function as soon as it is analyzed
	campaign.Events.FunctionAnalyzed.Subscribe(func(event fuzzing.FunctionAnalyzedEvent) error {
		cmdLogger.Info(formatters.FormatFunctionReport(event.Report))
		return nil
	})

	// Stop the campaign on keyboard interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmdLogger.Info("Analyzing ", len(campaign.Targets()), " functions of ", colors.Bold, program.Filename, colors.Reset,
		" (run ", campaign.RunID().String(), ")")
	results, err := campaign.Run(ctx)
	if err != nil {
		return failed(err)
	}
	cmdLogger.Info(formatters.FormatSummary(results))

	// Write the reports if an output path was provided
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return failed(err)
	}
	if outputPath != "" {
		if err = results.WriteToFile(outputPath); err != nil {
			return failed(err)
		}
		cmdLogger.Info("Reports written to: ", colors.Bold, outputPath, colors.Reset)
	}

	// If any analysis ended with an internal error, we'll want to return a special exit code
	if results.Failed() {
		return exitcodes.NewErrorWithExitCode(errors.New("the analysis of at least one function failed"), exitcodes.ExitCodeAnalysisError)
	}
	return nil
}
