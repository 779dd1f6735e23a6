package main

import (
	"fmt"
	"os"

	"github.com/crytic/symfuzz/cmd"
	"github.com/crytic/symfuzz/cmd/exitcodes"
)

func main() {
	// Run our root CLI command, which contains all underlying command logic and will handle parsing/invocation.
	err := cmd.Execute()

	// Obtain the actual error and exit code from the error, if any.
	err, exitCode, handled := exitcodes.GetInnerErrorAndExitCode(err)

	// If we have an error which was not logged by the command, print it.
	if err != nil && !handled {
		fmt.Fprintln(os.Stderr, err)
	}

	// If we have a non-success exit code, exit with it.
	if exitCode != exitcodes.ExitCodeSuccess {
		os.Exit(exitCode)
	}
}
