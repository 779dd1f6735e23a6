package cmd

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = "symfuzz.json"

// InputFlagDescription describes the --input flag shared by the analysis commands.
const InputFlagDescription = "path to the Go source file to analyze"
