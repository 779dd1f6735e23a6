package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/crytic/symfuzz/fuzzing/config"
	"github.com/crytic/symfuzz/logging"
	"github.com/crytic/symfuzz/logging/colors"
	"github.com/crytic/symfuzz/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// loadProjectConfig resolves the project configuration of a command:
// #1: If a custom config file (via --config) or the default (symfuzz.json) is found, read it. If it can't be read,
// throw an error.
// #2: If a custom file was provided (--config was used) and it can't be found, throw an error.
// #3: If symfuzz.json can't be found, use the default project configuration.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	// Check to see if --config flag was used and store the value of --config flag
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If --config was not used, look for `symfuzz.json` in the current work directory
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	// Check to see if the file exists at configPath
	_, existenceError := os.Stat(configPath)

	// Possibility #1: File was found
	if existenceError == nil {
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		return config.ReadProjectConfigFromFile(configPath)
	}

	// Possibility #2: If the --config flag was used, and we couldn't find the file, we'll throw an error
	if configFlagUsed {
		return nil, existenceError
	}

	// Possibility #3: --config flag was not used and symfuzz.json was not found, so use the default project config
	cmdLogger.Debug(fmt.Sprintf("Unable to find the config file at %v, will use the default project configuration instead", configPath))
	return config.GetDefaultProjectConfig(), nil
}

// setupLogging replaces the global logger with one configured by the project configuration. Console output goes to
// stdout and, if a log directory is configured, structured output goes to a timestamped file within it. The
// returned function closes the log file, if any.
func setupLogging(projectConfig *config.ProjectConfig) (func(), error) {
	if projectConfig.Logging.NoColor {
		colors.DisableColor()
	}

	logging.GlobalLogger = logging.NewLogger(projectConfig.Logging.Level)
	logging.GlobalLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, !projectConfig.Logging.NoColor)
	cmdLogger.SetLevel(projectConfig.Logging.Level)

	if projectConfig.Logging.LogDirectory == "" {
		return func() {}, nil
	}
	filename := fmt.Sprintf("symfuzz-%d.log", time.Now().Unix())
	file, err := utils.CreateFile(projectConfig.Logging.LogDirectory, filename)
	if err != nil {
		return nil, err
	}
	logging.GlobalLogger.AddWriter(file, logging.STRUCTURED, false)
	cmdLogger.AddWriter(file, logging.STRUCTURED, false)
	return func() {
		closeLogFile(file)
	}, nil
}

// closeLogFile detaches a log file from the loggers and closes it.
func closeLogFile(file io.WriteCloser) {
	logging.GlobalLogger.RemoveWriter(file, logging.STRUCTURED, false)
	cmdLogger.RemoveWriter(file, logging.STRUCTURED, false)
	if err := file.Close(); err != nil {
		cmdLogger.Warn("Failed to close the log file", err)
	}
}

// cmdValidFlagArgs returns the flags of a command which have not been used yet, for dynamic completion.
func cmdValidFlagArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Gather a list of flags that are available to be used in the current command but have not been used yet
	var unusedFlags []string

	// Examine all the flags, and add any flags that have not been set in the current command line
	// to a list of unused flags
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			// When adding a flag to a command, include the "--" prefix to indicate that it is a flag
			// and not a positional argument.
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveNoFileComp
}
