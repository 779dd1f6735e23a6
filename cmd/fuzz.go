package cmd

import (
	"encoding/json"
	"path/filepath"

	"github.com/crytic/symfuzz/cmd/exitcodes"
	"github.com/crytic/symfuzz/fuzzing"
	"github.com/crytic/symfuzz/logging/colors"
	"github.com/crytic/symfuzz/solver/z3"
	"github.com/crytic/symfuzz/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// fuzzCmd represents the command provider for fuzzing a single function
var fuzzCmd = &cobra.Command{
	Use:               "fuzz",
	Short:             "Generates distinct test cases for a function",
	Long:              `Generates test cases for a function, each driving it down a feasible path with inputs that were not generated before`,
	Args:              cmdValidateNoArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunFuzz,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the fuzz command
	addFuzzFlags()

	// Add the fuzz command and its associated flags to the root command
	rootCmd.AddCommand(fuzzCmd)
}

// cmdRunFuzz executes the CLI fuzz command, generating up to --count test cases for --function.
func cmdRunFuzz(cmd *cobra.Command, args []string) error {
	// failed logs an error of the command and attaches a general exit code
	failed := func(err error) error {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeGeneralError)
	}

	projectConfig, err := loadProjectConfig(cmd)
	if err != nil {
		return failed(err)
	}
	err = updateProjectConfigWithFuzzFlags(cmd, projectConfig)
	if err != nil {
		return failed(err)
	}
	if err = projectConfig.Validate(); err != nil {
		return failed(err)
	}

	closeLogs, err := setupLogging(projectConfig)
	if err != nil {
		return failed(err)
	}
	defer closeLogs()

	function, err := cmd.Flags().GetString("function")
	if err != nil {
		return failed(err)
	}
	if function == "" {
		return failed(errors.New("a function must be provided with --function"))
	}
	count, err := cmd.Flags().GetInt("count")
	if err != nil {
		return failed(err)
	}
	if count <= 0 {
		return failed(errors.Errorf("the test case count must be positive, got %d", count))
	}

	program, err := parseInput(cmd)
	if err != nil {
		return err
	}

	fuzzer, err := fuzzing.NewSymbolicFuzzer(program, function, z3.NewFactory(), projectConfig.Analysis)
	if err != nil {
		return failed(err)
	}
	defer fuzzer.Close()

	cmdLogger.Info("Fuzzing ", colors.Bold, function, colors.Reset, " over ", len(fuzzer.Paths()), " paths")
	testCases := make([]*fuzzing.TestCase, 0, count)
	for len(testCases) < count {
		testCase, err := fuzzer.Fuzz()
		if err != nil {
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeAnalysisError)
		}
		if testCase == nil {
			cmdLogger.Info("No further distinct test case could be found")
			break
		}
		testCases = append(testCases, testCase)
		cmdLogger.Info(colors.GreenBold, "[test case] ", colors.Reset, testCase.String())
	}

	// Write the test cases if an output path was provided
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return failed(err)
	}
	if outputPath != "" {
		if err = writeTestCases(outputPath, testCases); err != nil {
			return failed(err)
		}
		cmdLogger.Info("Test cases written to: ", colors.Bold, outputPath, colors.Reset)
	}
	return nil
}

// writeTestCases writes test cases as indented JSON, creating parent directories as needed.
func writeTestCases(path string, testCases []*fuzzing.TestCase) error {
	b, err := json.MarshalIndent(testCases, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}
	file, err := utils.CreateFile(filepath.Dir(path), filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err = file.Write(b); err != nil {
		file.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(file.Close())
}
