package formatters

import (
	"fmt"
	"strings"

	"github.com/crytic/symfuzz/fuzzing"
	"github.com/crytic/symfuzz/logging"
	"github.com/crytic/symfuzz/logging/colors"
)

// FormatFunctionReport renders a function report, including its follow-up analyses, for console output.
func FormatFunctionReport(report *fuzzing.FunctionReport) *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	formatReport(buffer, report, "")
	return buffer
}

// formatReport appends a report to the buffer at the given indentation.
func formatReport(buffer *logging.LogBuffer, report *fuzzing.FunctionReport, indent string) {
	testCases := report.TestCases()
	diagnostics := report.Diagnostics()

	// Header line
	buffer.Append(colors.Bold, indent, colors.LEFT_ARROW, " ", functionColor, report.Function)
	if report.Constants != nil {
		buffer.Append(colors.Reset, " seeded with ", colors.Bold, report.Constants.String())
		if report.Unconstrained {
			buffer.Append(colors.Reset, " (constants not applicable, analyzed unconstrained)")
		}
	}
	buffer.Append(colors.Reset, fmt.Sprintf(": %d paths, ", report.PathCount),
		testCaseColor, len(testCases), colors.Reset, " test cases, ",
		unsatColor, len(diagnostics), colors.Reset, " infeasible, ",
		skippedColor, len(report.Skipped), colors.Reset, " skipped")
	if report.Cached {
		buffer.Append(skippedColor, " [cached]")
	}
	if report.Interrupted {
		buffer.Append(unsatColor, " [interrupted]")
	}
	buffer.Append(colors.Reset, "\n")

	if report.Error != "" {
		buffer.Append(colors.Reset, indent, indentUnit, errorColor, "[error] ", colors.Reset, report.Error, "\n")
	}

	// Path outcomes in path order
	for _, record := range report.Records {
		if record.TestCase != nil {
			buffer.Append(colors.Reset, indent, indentUnit, testCaseColor, "[test case] ",
				colors.Reset, fmt.Sprintf("path %d: ", record.PathIndex), colors.Bold, record.TestCase.String(), "\n")
			continue
		}
		if record.Unsat != nil {
			formatUnsat(buffer, record.PathIndex, record.Unsat, indent+indentUnit)
		}
	}
	for _, skipped := range report.Skipped {
		buffer.Append(colors.Reset, indent, indentUnit, skippedColor,
			fmt.Sprintf("[skipped] path %d (%s)", skipped.PathIndex, skipped.Reason))
		if skipped.Detail != "" {
			buffer.Append(skippedColor, ": ", skipped.Detail)
		}
		buffer.Append(colors.Reset, "\n")
	}

	for _, followUp := range report.FollowUps {
		formatReport(buffer, followUp, indent+indentUnit)
	}
}

// formatUnsat appends the unsat diagnostic of a path.
func formatUnsat(buffer *logging.LogBuffer, pathIndex int, unsat *fuzzing.UnsatDiagnostic, indent string) {
	buffer.Append(colors.Reset, indent, unsatColor, "[infeasible] ", colors.Reset,
		fmt.Sprintf("path %d, conflicting constraints: ", pathIndex), unsatColor, strings.Join(unsat.Core, ", "), "\n")
	for _, stmt := range unsat.Statements {
		if stmt.Position != "" {
			buffer.Append(colors.Reset, indent, indentUnit, skippedColor, stmt.Position, ": ", colors.Reset, stmt.Text, "\n")
		} else {
			buffer.Append(colors.Reset, indent, indentUnit, stmt.Text, "\n")
		}
	}
}
