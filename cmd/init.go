package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crytic/symfuzz/cmd/exitcodes"
	"github.com/crytic/symfuzz/fuzzing/config"
	"github.com/crytic/symfuzz/logging/colors"
	"github.com/spf13/cobra"
)

// initCmd represents the command provider for init
var initCmd = &cobra.Command{
	Use:               "init",
	Short:             "Initializes a project configuration",
	Long:              `Initializes a project configuration with the default analysis settings`,
	Args:              cmdValidateNoArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunInit,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add flags to init command
	addInitFlags()

	// Add the init command and its associated flags to the root command
	rootCmd.AddCommand(initCmd)
}

// cmdRunInit executes the init CLI command and writes the default project configuration
func cmdRunInit(cmd *cobra.Command, args []string) error {
	// failed logs an error of the command and attaches a general exit code
	failed := func(err error) error {
		cmdLogger.Error("Failed to run the init command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeGeneralError)
	}

	// Check to see if --out flag was used and store the value of --out flag
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return failed(err)
	}
	// If we weren't provided an output path, we use our working directory
	if outputPath == "" {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return failed(err)
		}
		outputPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return failed(err)
	}
	if _, err = os.Stat(outputPath); err == nil && !force {
		// Prompt user for overwrite confirmation
		fmt.Print("The file already exists. Overwrite? (y/n): ")
		var response string
		if _, err := fmt.Scan(&response); err != nil {
			return failed(err)
		}

		if response != "y" && response != "Y" {
			fmt.Println("Operation canceled.")
			return nil
		}
	}

	// Write our project configuration
	projectConfig := config.GetDefaultProjectConfig()
	err = projectConfig.WriteToFile(outputPath)
	if err != nil {
		return failed(err)
	}

	// Print a success message
	if absoluteOutputPath, err := filepath.Abs(outputPath); err == nil {
		outputPath = absoluteOutputPath
	}
	cmdLogger.Info("Project configuration successfully output to: ", colors.Bold, outputPath, colors.Reset)
	return nil
}
