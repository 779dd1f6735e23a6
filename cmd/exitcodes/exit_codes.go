package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: Despite not being standardized, exit codes 2-5 are often used for common use cases, so we avoid them.

	// ExitCodeAnalysisError indicates that the analysis of at least one function, or of one of its follow-ups, ended
	// with an internal error. The other functions were still analyzed and reported.
	ExitCodeAnalysisError = 6

	// ExitCodeParseError indicates the input source could not be parsed or type checked.
	ExitCodeParseError = 7
)
