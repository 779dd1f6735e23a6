package cmd

import (
	"os"

	"github.com/crytic/symfuzz/logging"
	"github.com/crytic/symfuzz/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "symfuzz",
	Short:   "A path-sensitive symbolic fuzzer for Go functions",
	Long:    "symfuzz explores the control-flow paths of Go functions and solves them into concrete test inputs",
	Version: version.GetInfo().Short(),
}

// cmdLogger is the logger used by the CLI commands. It writes to stdout until a project configuration is loaded.
var cmdLogger = logging.NewLogger(zerolog.InfoLevel)

func init() {
	cmdLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, true)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
