package fuzzing

import (
	"context"
	"strings"
	"testing"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
	"github.com/crytic/symfuzz/fuzzing/config"
	"github.com/crytic/symfuzz/solver/z3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// propagationSource calls a function with a different constant on each side of a branch.
const propagationSource = `package p

func callee(p int) int {
	if p > 10 {
		return 1
	}
	return 0
}

func caller(a int) int {
	x := 0
	if a == 3 {
		x = callee(a)
	} else {
		x = callee(20)
	}
	return x
}
`

// TestAnalyzeFunctionFollowUps verifies that callees are re-analyzed with the constants found on the feasible paths
// of their callers.
func TestAnalyzeFunctionFollowUps(t *testing.T) {
	program := parseProgram(t, propagationSource)
	analyzer := NewAnalyzer(program, config.GetDefaultProjectConfig(), z3.NewFactory())

	report, err := analyzer.AnalyzeFunction(context.Background(), "caller")
	require.NoError(t, err)
	assert.False(t, report.Failed())
	assert.EqualValues(t, 2, report.PathCount)

	testCases := report.TestCases()
	require.Len(t, testCases, 2)
	assert.EqualValues(t, 3, testCases[0].Inputs["a"].Int)
	assert.NotEqualValues(t, 3, testCases[1].Inputs["a"].Int)
	assert.EqualValues(t, []string{"a == a#0", "x#0 == 0", "a#0 == 3"}, testCases[0].Constraints)

	require.Len(t, report.FollowUps, 2)
	low, high := report.FollowUps[0], report.FollowUps[1]
	assert.EqualValues(t, "callee(3)", low.Constants.String())
	assert.EqualValues(t, 0, low.Constants.PathIndex)
	assert.EqualValues(t, "callee(20)", high.Constants.String())
	assert.EqualValues(t, 1, high.Constants.PathIndex)

	// With p bound to 3, only the path skipping the branch is feasible
	require.Len(t, low.TestCases(), 1)
	assert.EqualValues(t, 3, low.TestCases()[0].Inputs["p"].Int)
	require.Len(t, low.Diagnostics(), 1)
	assert.Contains(t, low.Diagnostics()[0].Core, "p == 3")
	assert.Contains(t, low.Diagnostics()[0].Core, "p#0 > 10")

	require.Len(t, high.TestCases(), 1)
	assert.EqualValues(t, 20, high.TestCases()[0].Inputs["p"].Int)
	assert.Len(t, high.Diagnostics(), 1)

	// Follow-ups do not go further than the configured number of hops
	assert.Empty(t, low.FollowUps)
	assert.Empty(t, high.FollowUps)
}

// TestAnalyzeFunctionWithoutPropagation verifies that no callee is re-analyzed when propagation is disabled.
func TestAnalyzeFunctionWithoutPropagation(t *testing.T) {
	program := parseProgram(t, propagationSource)
	projectConfig := config.GetDefaultProjectConfig()
	projectConfig.Interprocedural.Enabled = false
	analyzer := NewAnalyzer(program, projectConfig, z3.NewFactory())

	report, err := analyzer.AnalyzeFunction(context.Background(), "caller")
	require.NoError(t, err)
	assert.Len(t, report.TestCases(), 2)
	assert.Empty(t, report.FollowUps)
}

// TestAnalyzeFunctionSkips verifies that duplicate, degenerate and incomplete paths are recorded as skipped rather
// than solved.
func TestAnalyzeFunctionSkips(t *testing.T) {
	// Both sides of a branch without a condition produce the same predicates
	b := cfg.NewBuilder("dup", cfg.Param{Name: "a", Type: cfg.TypeInt})
	b.Declare("x", cfg.TypeInt)
	branch := b.Node(&cfg.BranchStmt{}, "unknown()")
	left := b.Node(&cfg.AssignStmt{Target: "x", Value: expr.NewIdent("a")}, "x = a")
	right := b.Node(&cfg.AssignStmt{Target: "x", Value: expr.NewIdent("a")}, "x = a")
	b.Link(b.Entry(), branch)
	b.Link(branch, left, right)
	b.Link(left, b.Exit())
	b.Link(right, b.Exit())
	dup := b.Function()

	empty := cfg.NewBuilder("empty")
	empty.Link(empty.Entry(), empty.Exit())

	program := newProgram(t, dup, empty.Function(), signFunction())
	analyzer := NewAnalyzer(program, config.GetDefaultProjectConfig(), z3.NewFactory())

	report, err := analyzer.AnalyzeFunction(context.Background(), "dup")
	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	assert.EqualValues(t, "a == a#0 ; x#0 == a#0", report.Records[0].Key)
	assert.EqualValues(t, []SkippedPath{{PathIndex: 1, Reason: SkipDuplicate}}, report.Skipped)

	report, err = analyzer.AnalyzeFunction(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, report.Records)
	require.Len(t, report.Skipped, 1)
	assert.EqualValues(t, SkipDegenerate, report.Skipped[0].Reason)

	// Running out of exploration rounds leaves every path short of the exit
	projectConfig := config.GetDefaultProjectConfig()
	projectConfig.Analysis.MaxIter = 2
	analyzer = NewAnalyzer(program, projectConfig, z3.NewFactory())
	report, err = analyzer.AnalyzeFunction(context.Background(), "sign")
	require.NoError(t, err)
	assert.Empty(t, report.Records)
	require.Len(t, report.Skipped, 2)
	for _, skipped := range report.Skipped {
		assert.EqualValues(t, SkipIncomplete, skipped.Reason)
	}
}

// TestAnalyzeFunctionExhaustedPaths verifies that a path which is only satisfiable by an input already reported for
// an earlier path is skipped rather than reported as infeasible.
func TestAnalyzeFunctionExhaustedPaths(t *testing.T) {
	b := cfg.NewBuilder("pinned", cfg.Param{Name: "a", Type: cfg.TypeInt})
	b.Declare("y", cfg.TypeInt)
	first := b.Node(&cfg.BranchStmt{Cond: expr.NewBinary(expr.OpNe, expr.NewIdent("a"), expr.NewInt(5))}, "a != 5")
	early := b.Node(&cfg.ReturnStmt{}, "return 0")
	// y comes from a call the solver knows nothing about
	opaque := b.Node(&cfg.AssignStmt{Target: "y"}, "y := g(a)")
	second := b.Node(&cfg.BranchStmt{Cond: expr.NewBinary(expr.OpGt, expr.NewIdent("y"), expr.NewInt(0))}, "y > 0")
	positive := b.Node(&cfg.ReturnStmt{}, "return 1")
	negative := b.Node(&cfg.ReturnStmt{}, "return 2")
	b.Link(b.Entry(), first)
	b.Link(first, early, opaque)
	b.Link(early, b.Exit())
	b.Link(opaque, second)
	b.Link(second, positive, negative)
	b.Link(positive, b.Exit())
	b.Link(negative, b.Exit())

	program := newProgram(t, b.Function())
	analyzer := NewAnalyzer(program, config.GetDefaultProjectConfig(), z3.NewFactory())
	report, err := analyzer.AnalyzeFunction(context.Background(), "pinned")
	require.NoError(t, err)
	assert.False(t, report.Failed())
	require.EqualValues(t, 3, report.PathCount)

	// Both paths through a == 5 need the same input, so only the first of them gets it
	assert.Len(t, report.TestCases(), 2)
	assert.Empty(t, report.Diagnostics())
	require.Len(t, report.Skipped, 1)
	assert.EqualValues(t, SkipExhausted, report.Skipped[0].Reason)

	var fives int
	for _, tc := range report.TestCases() {
		if tc.Inputs["a"].Int == 5 {
			fives++
		}
	}
	assert.EqualValues(t, 1, fives)
}

// TestAnalyzeFunctionConstantMismatch verifies that a callee whose parameters cannot take the call site constants is
// analyzed without them.
func TestAnalyzeFunctionConstantMismatch(t *testing.T) {
	b := cfg.NewBuilder("caller", cfg.Param{Name: "a", Type: cfg.TypeInt})
	call := b.Node(&cfg.CallStmt{Call: &expr.Call{Func: "sign", Args: []expr.Expr{expr.NewString("x")}}}, `sign("x")`)
	assign := b.Node(&cfg.AssignStmt{Target: "a", Value: expr.NewInt(1)}, "a = 1")
	b.Link(b.Entry(), call)
	b.Link(call, assign)
	b.Link(assign, b.Exit())

	program := newProgram(t, b.Function(), signFunction())
	analyzer := NewAnalyzer(program, config.GetDefaultProjectConfig(), z3.NewFactory())

	report, err := analyzer.AnalyzeFunction(context.Background(), "caller")
	require.NoError(t, err)
	require.Len(t, report.FollowUps, 1)
	followUp := report.FollowUps[0]
	assert.True(t, followUp.Unconstrained)
	assert.EqualValues(t, `sign("x")`, followUp.Constants.String())
	assert.Len(t, followUp.TestCases(), 2)
}

// TestAnalyzeFunctionErrors verifies that unknown functions and cancelled contexts are returned as errors, while
// unsupported functions are reported as failed analyses.
func TestAnalyzeFunctionErrors(t *testing.T) {
	unsupported := cfg.NewBuilder("unsupported")
	unsupported.SetUnsupported(errors.New("parameter 'm' has an unsupported type"))
	program := newProgram(t, signFunction(), unsupported.Function())
	analyzer := NewAnalyzer(program, config.GetDefaultProjectConfig(), z3.NewFactory())

	_, err := analyzer.AnalyzeFunction(context.Background(), "missing")
	assert.Error(t, err)

	report, err := analyzer.AnalyzeFunction(context.Background(), "unsupported")
	require.NoError(t, err)
	assert.True(t, report.Failed())
	assert.Contains(t, report.Error, "unsupported type")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err = analyzer.AnalyzeFunction(ctx, "sign")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, report.Records)
}

// TestAnalyzeFunctionReplay verifies that replaying each test case through the Go function it was derived from takes
// the path the test case was reported for.
func TestAnalyzeFunctionReplay(t *testing.T) {
	program := parseProgram(t, `package p

func clamp(v int) int {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
`)
	// branchOf mirrors clamp, returning the index of the path taken in exploration order.
	branchOf := func(v int64) int {
		if v > 100 {
			return 0
		}
		if v < 0 {
			return 1
		}
		return 2
	}

	analyzer := NewAnalyzer(program, config.GetDefaultProjectConfig(), z3.NewFactory())
	report, err := analyzer.AnalyzeFunction(context.Background(), "clamp")
	require.NoError(t, err)
	require.Len(t, report.Records, 3)
	for _, record := range report.Records {
		require.NotNil(t, record.TestCase)
		assert.EqualValues(t, record.PathIndex, branchOf(record.TestCase.Inputs["v"].Int))
	}
}

// TestAnalyzeFunctionReplayDivision verifies that test cases of a function dividing by a parameter never pick a zero
// divisor, and replay down their path.
func TestAnalyzeFunctionReplayDivision(t *testing.T) {
	program := parseProgram(t, `package p

func divide(a int, b int) int {
	c := a / b
	if c > 1 {
		return 1
	}
	return 0
}
`)
	analyzer := NewAnalyzer(program, config.GetDefaultProjectConfig(), z3.NewFactory())
	report, err := analyzer.AnalyzeFunction(context.Background(), "divide")
	require.NoError(t, err)
	require.Len(t, report.TestCases(), 2)
	for _, tc := range report.TestCases() {
		a, b := tc.Inputs["a"].Int, tc.Inputs["b"].Int
		require.NotZero(t, b, "test case %v divides by zero", tc)
		condition := tc.Constraints[len(tc.Constraints)-1]
		assert.EqualValues(t, a/b > 1, !strings.HasPrefix(condition, "!("), "test case %v, condition %s", tc, condition)
	}
}

// TestAnalyzeFunctionUnsignedParameters verifies that unsigned parameters are never given negative values, so their
// test cases can be passed to the function.
func TestAnalyzeFunctionUnsignedParameters(t *testing.T) {
	program := parseProgram(t, `package p

func unsigned(u uint, small uint8) int {
	x := u + 3
	if x < 3 {
		return 1
	}
	if small > 200 {
		return 2
	}
	return 0
}
`)
	analyzer := NewAnalyzer(program, config.GetDefaultProjectConfig(), z3.NewFactory())
	report, err := analyzer.AnalyzeFunction(context.Background(), "unsigned")
	require.NoError(t, err)
	assert.False(t, report.Failed())

	// x < 3 would need u to be negative
	require.Len(t, report.Diagnostics(), 1)
	assert.Contains(t, report.Diagnostics()[0].Core, "x#0 < 3")

	require.Len(t, report.TestCases(), 2)
	for _, tc := range report.TestCases() {
		u, small := tc.Inputs["u"].Int, tc.Inputs["small"].Int
		assert.GreaterOrEqual(t, u, int64(0), "test case %v", tc)
		assert.GreaterOrEqual(t, small, int64(0), "test case %v", tc)
		assert.LessOrEqual(t, small, int64(255), "test case %v", tc)
	}
}
