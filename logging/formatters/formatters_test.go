package formatters

import (
	"testing"
	"time"

	"github.com/crytic/symfuzz/fuzzing"
	"github.com/crytic/symfuzz/solver"
	"github.com/stretchr/testify/assert"
)

// testReport returns a report with one outcome of every kind and a follow-up analysis.
func testReport() *fuzzing.FunctionReport {
	return &fuzzing.FunctionReport{
		Function:  "f",
		PathCount: 3,
		Records: []fuzzing.PathRecord{
			{
				PathIndex: 0,
				TestCase: &fuzzing.TestCase{
					Function: "f",
					Params:   []string{"a"},
					Inputs:   map[string]solver.Value{"a": solver.IntValue(5)},
				},
			},
			{
				PathIndex: 1,
				Unsat: &fuzzing.UnsatDiagnostic{
					Core:       []string{"a#0 == 5", "a#0 == 6"},
					Statements: []fuzzing.SourceStatement{{Position: "test.go:4:5", Text: "a == 5"}},
				},
			},
		},
		Skipped: []fuzzing.SkippedPath{{PathIndex: 2, Reason: fuzzing.SkipDuplicate}},
		FollowUps: []*fuzzing.FunctionReport{{
			Function:  "g",
			Constants: &fuzzing.ConstantSet{Callee: "g", Args: []fuzzing.ConstArg{{Known: true, Value: solver.IntValue(3)}}},
			PathCount: 1,
			Error:     "boom",
		}},
	}
}

// TestFormatFunctionReport verifies every outcome of a report and its follow-ups are rendered.
func TestFormatFunctionReport(t *testing.T) {
	text := FormatFunctionReport(testReport()).String()

	assert.Contains(t, text, "f: 3 paths, 1 test cases, 1 infeasible, 1 skipped")
	assert.Contains(t, text, "[test case] path 0: f(a=5)")
	assert.Contains(t, text, "[infeasible] path 1, conflicting constraints: a#0 == 5, a#0 == 6")
	assert.Contains(t, text, "test.go:4:5: a == 5")
	assert.Contains(t, text, "[skipped] path 2 (duplicate)")
	assert.Contains(t, text, indentUnit+"⇾ g seeded with g(3)")
	assert.Contains(t, text, "[error] boom")
}

// TestFormatSummary verifies the totals of a campaign are rendered.
func TestFormatSummary(t *testing.T) {
	results := &fuzzing.CampaignResults{
		Elapsed: 2 * time.Second,
		Reports: []*fuzzing.FunctionReport{testReport(), {Function: "h", Interrupted: true}},
	}
	text := FormatSummary(results).String()

	assert.Contains(t, text, "2 functions analyzed in 2s: 1 test cases, 1 infeasible paths, 1 skipped paths")
	assert.Contains(t, text, ", 1 interrupted")
	assert.Contains(t, text, ", 1 failed")
}
