package fuzzing

import (
	"fmt"
	"go/token"
	"strings"

	"github.com/crytic/symfuzz/solver"
)

// TestCase is a concrete input assignment which drives a function down one feasible path.
type TestCase struct {
	// Function is the name of the function the inputs are for.
	Function string `json:"function"`
	// Params lists the parameter names in declaration order.
	Params []string `json:"params"`
	// Inputs maps each parameter name to its value. Parameters the path does not constrain carry an unconstrained
	// value.
	Inputs map[string]solver.Value `json:"inputs"`
	// Constraints are the predicate texts of the path the inputs satisfy.
	Constraints []string `json:"constraints"`
}

// Arguments returns the input values in parameter order.
func (t *TestCase) Arguments() []solver.Value {
	args := make([]solver.Value, len(t.Params))
	for i, name := range t.Params {
		args[i] = t.Inputs[name]
	}
	return args
}

// String renders the test case as a call expression.
func (t *TestCase) String() string {
	args := make([]string, len(t.Params))
	for i, name := range t.Params {
		args[i] = name + "=" + t.Inputs[name].Text()
	}
	return fmt.Sprintf("%s(%s)", t.Function, strings.Join(args, ", "))
}

// SourceStatement is a statement of the analyzed source, used in diagnostics.
type SourceStatement struct {
	// Position is the source position of the statement, formatted as file:line:column.
	Position string `json:"position,omitempty"`
	// Text is the statement's source text.
	Text string `json:"text"`
}

// newSourceStatement creates a SourceStatement, omitting positions that are not known.
func newSourceStatement(pos token.Position, text string) SourceStatement {
	s := SourceStatement{Text: text}
	if pos.IsValid() {
		s.Position = pos.String()
	}
	return s
}

// UnsatDiagnostic explains why a path is infeasible.
type UnsatDiagnostic struct {
	// Core contains the texts of a subset of the path's predicates which is unsatisfiable.
	Core []string `json:"core"`
	// Statements are the source statements of the path up to the last statement that contributed to the core.
	Statements []SourceStatement `json:"statements"`
}

// PathOutcome is the result of solving one path: either a TestCase or an UnsatDiagnostic.
type PathOutcome struct {
	TestCase *TestCase
	Unsat    *UnsatDiagnostic
}

// Feasible indicates whether the path could be satisfied.
func (o *PathOutcome) Feasible() bool {
	return o.TestCase != nil
}

// PathRecord is the reported outcome of one solved path.
type PathRecord struct {
	// PathIndex is the index of the path in exploration order.
	PathIndex int `json:"pathIndex"`
	// Key is the canonical key of the path's predicates.
	Key string `json:"key"`
	// TestCase is set when the path is feasible.
	TestCase *TestCase `json:"testCase,omitempty"`
	// Unsat is set when the path is infeasible.
	Unsat *UnsatDiagnostic `json:"unsat,omitempty"`
}

// SkipReason describes why a path was not solved.
type SkipReason string

const (
	// SkipIncomplete is used for paths that did not reach the function exit within the exploration bounds, or that
	// took an invalid edge.
	SkipIncomplete SkipReason = "incomplete"
	// SkipDegenerate is used for paths with too few predicates to be informative.
	SkipDegenerate SkipReason = "degenerate"
	// SkipDuplicate is used for paths whose canonical key was already solved.
	SkipDuplicate SkipReason = "duplicate"
	// SkipUnsupported is used for paths with constraints the solver cannot express.
	SkipUnsupported SkipReason = "unsupported"
	// SkipUnknown is used for paths the solver could not decide.
	SkipUnknown SkipReason = "unknown"
	// SkipExhausted is used for feasible paths whose every assignment was already reported by an earlier test case.
	SkipExhausted SkipReason = "exhausted"
)

// SkippedPath records a path which was not solved.
type SkippedPath struct {
	PathIndex int        `json:"pathIndex"`
	Reason    SkipReason `json:"reason"`
	Detail    string     `json:"detail,omitempty"`
}

// ConstArg is a call argument resolved to a literal value, or unknown.
type ConstArg struct {
	Known bool         `json:"known"`
	Value solver.Value `json:"value"`
}

// String returns the literal text of the argument, or "unknown".
func (a ConstArg) String() string {
	if !a.Known {
		return "unknown"
	}
	return a.Value.Text()
}

// ConstantSet holds the literal arguments observed at a call site on one path.
type ConstantSet struct {
	// Callee is the name of the called function.
	Callee string `json:"callee"`
	// PathIndex is the index of the caller path the call was found on.
	PathIndex int `json:"pathIndex"`
	// Args are the positional arguments of the call.
	Args []ConstArg `json:"args"`
}

// key identifies the callee and its constants, ignoring the path the set was found on.
func (c *ConstantSet) key() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Callee + "(" + strings.Join(args, ", ") + ")"
}

// String renders the constant set as a call.
func (c *ConstantSet) String() string {
	return c.key()
}

// FunctionReport is the outcome of analyzing one function.
type FunctionReport struct {
	// Function is the analyzed function's name.
	Function string `json:"function"`
	// Constants is the constant set this analysis was seeded with, if it is a follow-up analysis of a callee.
	Constants *ConstantSet `json:"constants,omitempty"`
	// Unconstrained is set when the seeding constants could not be applied and the callee was analyzed without them.
	Unconstrained bool `json:"unconstrained,omitempty"`
	// PathCount is the number of paths the explorer produced.
	PathCount int `json:"pathCount"`
	// Records are the solved paths in path order.
	Records []PathRecord `json:"records"`
	// Skipped are the paths which were not solved, in path order.
	Skipped []SkippedPath `json:"skipped,omitempty"`
	// FollowUps are the analyses of callees seeded with constants from this function.
	FollowUps []*FunctionReport `json:"followUps,omitempty"`
	// Error is set if the analysis failed with an internal error.
	Error string `json:"error,omitempty"`
	// Cached indicates the report was loaded from the corpus rather than computed.
	Cached bool `json:"cached,omitempty"`
	// Interrupted indicates the analysis was stopped before every path was solved.
	Interrupted bool `json:"interrupted,omitempty"`
}

// newFunctionReport creates an empty report for a function.
func newFunctionReport(function string, constants *ConstantSet) *FunctionReport {
	return &FunctionReport{
		Function:  function,
		Constants: constants,
		Records:   make([]PathRecord, 0),
	}
}

// TestCases returns the test cases of the feasible paths, in path order.
func (r *FunctionReport) TestCases() []*TestCase {
	var testCases []*TestCase
	for _, record := range r.Records {
		if record.TestCase != nil {
			testCases = append(testCases, record.TestCase)
		}
	}
	return testCases
}

// Diagnostics returns the unsat diagnostics of the infeasible paths, in path order.
func (r *FunctionReport) Diagnostics() []*UnsatDiagnostic {
	var diagnostics []*UnsatDiagnostic
	for _, record := range r.Records {
		if record.Unsat != nil {
			diagnostics = append(diagnostics, record.Unsat)
		}
	}
	return diagnostics
}

// Failed indicates whether this analysis or any of its follow-up analyses ended with an internal error.
func (r *FunctionReport) Failed() bool {
	if r.Error != "" {
		return true
	}
	for _, followUp := range r.FollowUps {
		if followUp.Failed() {
			return true
		}
	}
	return false
}

// addSkipped records a skipped path.
func (r *FunctionReport) addSkipped(pathIndex int, reason SkipReason, detail string) {
	r.Skipped = append(r.Skipped, SkippedPath{PathIndex: pathIndex, Reason: reason, Detail: detail})
}
