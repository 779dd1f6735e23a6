package formatters

import "github.com/crytic/symfuzz/logging/colors"

// The list of constants below map a specific color to a specific part of a report for console output
var (
	// testCaseColor is the color used for test cases and the number of feasible paths
	testCaseColor = colors.GreenBold
	// unsatColor is the color used for infeasible paths and their cores
	unsatColor = colors.YellowBold
	// skippedColor is the color used for paths which were not solved
	skippedColor = colors.DarkGray
	// errorColor is the color used for internal errors
	errorColor = colors.RedBold
	// functionColor is the color used for function names
	functionColor = colors.CyanBold
)

// indentUnit is the indentation added for each level of follow-up analyses.
const indentUnit = "  "
