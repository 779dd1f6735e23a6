package fuzzing

import (
	"testing"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
	"github.com/crytic/symfuzz/frontend"
	"github.com/stretchr/testify/require"
)

// branchFunction builds f(a int) with a single branch on cond whose edges both return.
func branchFunction(name string, param cfg.Param, cond expr.Expr) *cfg.Function {
	b := cfg.NewBuilder(name, param)
	branch := b.Node(&cfg.BranchStmt{Cond: cond}, cond.String())
	thenReturn := b.Node(&cfg.ReturnStmt{}, "return 1")
	elseReturn := b.Node(&cfg.ReturnStmt{}, "return 0")
	b.Link(b.Entry(), branch)
	b.Link(branch, thenReturn, elseReturn)
	b.Link(thenReturn, b.Exit())
	b.Link(elseReturn, b.Exit())
	return b.Function()
}

// signFunction builds sign(a int), branching on a >= 0.
func signFunction() *cfg.Function {
	return branchFunction("sign", cfg.Param{Name: "a", Type: cfg.TypeInt},
		expr.NewBinary(expr.OpGe, expr.NewIdent("a"), expr.NewInt(0)))
}

// loopFunction builds count(n int) with a loop on i < n whose body returns to the condition.
func loopFunction() *cfg.Function {
	b := cfg.NewBuilder("count", cfg.Param{Name: "n", Type: cfg.TypeInt})
	b.Declare("i", cfg.TypeInt)
	start := b.Node(&cfg.AnnAssignStmt{Target: "i", Type: cfg.TypeInt, Value: expr.NewInt(0)}, "i := 0")
	loop := b.Node(&cfg.LoopStmt{Cond: expr.NewBinary(expr.OpLt, expr.NewIdent("i"), expr.NewIdent("n"))}, "i < n")
	body := b.Node(&cfg.AssignStmt{Target: "i", Value: expr.NewBinary(expr.OpAdd, expr.NewIdent("i"), expr.NewInt(1))}, "i++")
	b.Link(b.Entry(), start)
	b.Link(start, loop)
	b.Link(loop, body, b.Exit())
	b.Link(body, loop)
	return b.Function()
}

// newProgram wraps functions into a program.
func newProgram(t *testing.T, functions ...*cfg.Function) *cfg.Program {
	program, err := cfg.NewProgram("test.go", []byte("package p"), functions...)
	require.NoError(t, err)
	return program
}

// parseProgram parses Go source into a program.
func parseProgram(t *testing.T, src string) *cfg.Program {
	program, err := frontend.ParseSource("test.go", []byte(src))
	require.NoError(t, err)
	return program
}

// pathStrings renders paths for comparison.
func pathStrings(paths []Path) []string {
	rendered := make([]string, len(paths))
	for i, p := range paths {
		rendered[i] = p.String()
	}
	return rendered
}
