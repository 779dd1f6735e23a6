package formatters

import (
	"fmt"

	"github.com/crytic/symfuzz/fuzzing"
	"github.com/crytic/symfuzz/logging"
	"github.com/crytic/symfuzz/logging/colors"
)

// FormatSummary renders the totals of a campaign run for console output.
func FormatSummary(results *fuzzing.CampaignResults) *logging.LogBuffer {
	var testCases, unsat, skipped, failed, interrupted, cached int
	for _, report := range results.Reports {
		testCases += len(report.TestCases())
		unsat += len(report.Diagnostics())
		skipped += len(report.Skipped)
		if report.Failed() {
			failed++
		}
		if report.Interrupted {
			interrupted++
		}
		if report.Cached {
			cached++
		}
	}

	buffer := logging.NewLogBuffer()
	buffer.Append(colors.Bold, "[summary] ", colors.Reset,
		fmt.Sprintf("%d functions analyzed in %s: ", len(results.Reports), results.Elapsed.Round(1e6)),
		testCaseColor, testCases, colors.Reset, " test cases, ",
		unsatColor, unsat, colors.Reset, " infeasible paths, ",
		skippedColor, skipped, colors.Reset, " skipped paths")
	if cached > 0 {
		buffer.Append(colors.Reset, fmt.Sprintf(", %d loaded from the corpus", cached))
	}
	if interrupted > 0 {
		buffer.Append(colors.Reset, ", ", unsatColor, interrupted, colors.Reset, " interrupted")
	}
	if failed > 0 {
		buffer.Append(colors.Reset, ", ", errorColor, failed, colors.Reset, " failed")
	}
	return buffer
}
