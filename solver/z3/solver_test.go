package z3

import (
	"testing"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
	"github.com/crytic/symfuzz/solver"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ident(name string) *expr.Ident {
	return expr.NewIdent(name)
}

// TestSolverModel verifies that a satisfiable set of assertions yields a model which respects them.
func TestSolverModel(t *testing.T) {
	s := NewSolver()
	defer s.Close()

	require.NoError(t, s.Declare("a", cfg.TypeInt))
	require.NoError(t, s.Declare("b", cfg.TypeInt))
	require.NoError(t, s.Assert(expr.NewBinary(expr.OpGe, ident("a"), expr.NewInt(10))))
	require.NoError(t, s.Assert(expr.Eq(ident("b"), expr.NewBinary(expr.OpAdd, ident("a"), expr.NewInt(1)))))

	status, err := s.Check()
	require.NoError(t, err)
	require.EqualValues(t, solver.StatusSat, status)

	model, err := s.Model("a", "b")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, model["a"].Int, int64(10))
	assert.EqualValues(t, model["a"].Int+1, model["b"].Int)
}

// TestSolverUnconstrainedSymbol verifies that a declared symbol which appears in no assertion is reported as
// unconstrained rather than being given an arbitrary value.
func TestSolverUnconstrainedSymbol(t *testing.T) {
	s := NewSolver()
	defer s.Close()

	require.NoError(t, s.Declare("a", cfg.TypeInt))
	require.NoError(t, s.Declare("free", cfg.TypeReal))
	require.NoError(t, s.Assert(expr.Eq(ident("a"), expr.NewInt(3))))

	status, err := s.Check()
	require.NoError(t, err)
	require.EqualValues(t, solver.StatusSat, status)

	model, err := s.Model("a", "free")
	require.NoError(t, err)
	assert.EqualValues(t, solver.IntValue(3), model["a"])
	assert.True(t, model["free"].Unconstrained)
}

// TestSolverPushPop verifies that assertions made inside a scope are discarded when the scope is popped.
func TestSolverPushPop(t *testing.T) {
	s := NewSolver()
	defer s.Close()

	require.NoError(t, s.Declare("a", cfg.TypeInt))
	require.NoError(t, s.Assert(expr.NewBinary(expr.OpGt, ident("a"), expr.NewInt(0))))

	s.Push()
	require.NoError(t, s.Assert(expr.NewBinary(expr.OpLt, ident("a"), expr.NewInt(0))))
	status, err := s.Check()
	require.NoError(t, err)
	assert.EqualValues(t, solver.StatusUnsat, status)
	require.NoError(t, s.Pop())

	status, err = s.Check()
	require.NoError(t, err)
	assert.EqualValues(t, solver.StatusSat, status)

	// Popping the base scope is an error
	assert.ErrorIs(t, s.Pop(), solver.ErrScope)
}

// TestSolverUnsatCore verifies that the unsat core of contradictory equalities contains both equalities and drops
// the unrelated assertion.
func TestSolverUnsatCore(t *testing.T) {
	s := NewSolver()
	defer s.Close()

	require.NoError(t, s.Declare("a", cfg.TypeInt))
	require.NoError(t, s.Declare("b", cfg.TypeInt))

	s.Push()
	require.NoError(t, s.AssertTracked("p0", expr.NewBinary(expr.OpGt, ident("b"), expr.NewInt(1))))
	require.NoError(t, s.AssertTracked("p1", expr.Eq(ident("a"), expr.NewInt(5))))
	require.NoError(t, s.AssertTracked("p2", expr.Eq(ident("a"), expr.NewInt(6))))

	status, err := s.Check()
	require.NoError(t, err)
	require.EqualValues(t, solver.StatusUnsat, status)

	core, err := s.UnsatCore()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, core)
	require.NoError(t, s.Pop())

	// Once the scope is gone, the tracked assertions are gone with it
	status, err = s.Check()
	require.NoError(t, err)
	assert.EqualValues(t, solver.StatusSat, status)
	_, err = s.UnsatCore()
	assert.ErrorIs(t, err, solver.ErrNoModel)
}

// TestSolverStrings verifies string equality and disequality through interned literals.
func TestSolverStrings(t *testing.T) {
	s := NewSolver()
	defer s.Close()

	require.NoError(t, s.Declare("s", cfg.TypeString))
	require.NoError(t, s.Declare("u", cfg.TypeString))
	require.NoError(t, s.Assert(expr.Eq(ident("s"), expr.NewString("hello"))))
	require.NoError(t, s.Assert(expr.NewBinary(expr.OpNe, ident("u"), expr.NewString("hello"))))

	status, err := s.Check()
	require.NoError(t, err)
	require.EqualValues(t, solver.StatusSat, status)

	model, err := s.Model("s", "u")
	require.NoError(t, err)
	assert.EqualValues(t, "hello", model["s"].String)
	assert.NotEqualValues(t, "hello", model["u"].String)

	// Ordering strings is not supported
	err = s.Assert(expr.NewBinary(expr.OpLt, ident("s"), ident("u")))
	assert.ErrorIs(t, err, solver.ErrUnsupported)
}

// TestSolverReals verifies real arithmetic, including promotion of integer operands.
func TestSolverReals(t *testing.T) {
	s := NewSolver()
	defer s.Close()

	require.NoError(t, s.Declare("x", cfg.TypeReal))
	require.NoError(t, s.Declare("n", cfg.TypeInt))
	require.NoError(t, s.Assert(expr.Eq(ident("n"), expr.NewInt(2))))
	require.NoError(t, s.Assert(expr.Eq(
		expr.NewBinary(expr.OpMul, ident("x"), ident("n")),
		expr.NewReal(decimal.RequireFromString("3")),
	)))

	status, err := s.Check()
	require.NoError(t, err)
	require.EqualValues(t, solver.StatusSat, status)

	model, err := s.Model("x")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.5").Equal(model["x"].Real), "unexpected value %v", model["x"].Real)
}

// TestSolverTruncatedDivision verifies that integer division and remainder round toward zero for every sign
// combination of their operands.
func TestSolverTruncatedDivision(t *testing.T) {
	cases := []struct{ x, y int64 }{{7, 2}, {-7, 2}, {7, -2}, {-7, -2}, {-1, 2}, {6, -3}}
	for _, c := range cases {
		s := NewSolver()
		require.NoError(t, s.Declare("q", cfg.TypeInt))
		require.NoError(t, s.Declare("r", cfg.TypeInt))
		require.NoError(t, s.Assert(expr.Eq(ident("q"), expr.NewBinary(expr.OpDiv, expr.NewInt(c.x), expr.NewInt(c.y)))))
		require.NoError(t, s.Assert(expr.Eq(ident("r"), expr.NewBinary(expr.OpMod, expr.NewInt(c.x), expr.NewInt(c.y)))))

		status, err := s.Check()
		require.NoError(t, err)
		require.EqualValues(t, solver.StatusSat, status)
		model, err := s.Model("q", "r")
		require.NoError(t, err)
		assert.EqualValues(t, c.x/c.y, model["q"].Int, "%d / %d", c.x, c.y)
		assert.EqualValues(t, c.x%c.y, model["r"].Int, "%d %% %d", c.x, c.y)
		s.Close()
	}

	// A negative odd number never has a remainder of 1
	s := NewSolver()
	defer s.Close()
	require.NoError(t, s.Declare("a", cfg.TypeInt))
	require.NoError(t, s.Assert(expr.NewBinary(expr.OpLt, ident("a"), expr.NewInt(0))))
	require.NoError(t, s.Assert(expr.Eq(expr.NewBinary(expr.OpMod, ident("a"), expr.NewInt(2)), expr.NewInt(1))))
	status, err := s.Check()
	require.NoError(t, err)
	assert.EqualValues(t, solver.StatusUnsat, status)
}

// TestSolverDivisionByZero verifies that a model never divides by zero, unless the division is short-circuited away.
func TestSolverDivisionByZero(t *testing.T) {
	quotient := expr.NewBinary(expr.OpDiv, ident("a"), ident("b"))
	zero := expr.Eq(ident("b"), expr.NewInt(0))

	s := NewSolver()
	defer s.Close()
	require.NoError(t, s.Declare("a", cfg.TypeInt))
	require.NoError(t, s.Declare("b", cfg.TypeInt))
	require.NoError(t, s.Declare("c", cfg.TypeInt))
	require.NoError(t, s.Assert(expr.Eq(ident("c"), quotient)))
	require.NoError(t, s.Assert(expr.Not(expr.NewBinary(expr.OpGt, ident("c"), expr.NewInt(1)))))

	status, err := s.Check()
	require.NoError(t, err)
	require.EqualValues(t, solver.StatusSat, status)
	model, err := s.Model("b")
	require.NoError(t, err)
	assert.NotEqualValues(t, 0, model["b"].Int)

	// Forcing a zero divisor leaves nothing to report
	s.Push()
	require.NoError(t, s.AssertTracked("zero", zero))
	status, err = s.Check()
	require.NoError(t, err)
	assert.EqualValues(t, solver.StatusUnsat, status)
	require.NoError(t, s.Pop())

	// b == 0 || a/b > 1 never evaluates the division when b is zero
	guarded := NewSolver()
	defer guarded.Close()
	require.NoError(t, guarded.Declare("a", cfg.TypeInt))
	require.NoError(t, guarded.Declare("b", cfg.TypeInt))
	require.NoError(t, guarded.Assert(expr.NewBinary(expr.OpOr, zero, expr.NewBinary(expr.OpGt, quotient, expr.NewInt(1)))))
	require.NoError(t, guarded.Assert(zero))
	status, err = guarded.Check()
	require.NoError(t, err)
	assert.EqualValues(t, solver.StatusSat, status)

	// Real division by zero has no real result either
	reals := NewSolver()
	defer reals.Close()
	require.NoError(t, reals.Declare("x", cfg.TypeReal))
	require.NoError(t, reals.Declare("y", cfg.TypeReal))
	require.NoError(t, reals.Assert(expr.Eq(expr.NewBinary(expr.OpDiv, ident("x"), ident("y")), ident("x"))))
	require.NoError(t, reals.Assert(expr.Eq(ident("y"), expr.NewReal(decimal.Zero))))
	status, err = reals.Check()
	require.NoError(t, err)
	assert.EqualValues(t, solver.StatusUnsat, status)
}

// TestSolverExactRealModel verifies that a real model value without a finite decimal form is read back exactly.
func TestSolverExactRealModel(t *testing.T) {
	s := NewSolver()
	defer s.Close()

	require.NoError(t, s.Declare("x", cfg.TypeReal))
	three := expr.NewReal(decimal.NewFromInt(3))
	require.NoError(t, s.Assert(expr.Eq(expr.NewBinary(expr.OpMul, three, ident("x")), expr.NewReal(decimal.NewFromInt(1)))))

	status, err := s.Check()
	require.NoError(t, err)
	require.EqualValues(t, solver.StatusSat, status)
	model, err := s.Model("x")
	require.NoError(t, err)
	require.NotNil(t, model["x"].Rat)
	assert.EqualValues(t, "1/3", model["x"].Rat.RatString())
	assert.EqualValues(t, "0.3333333333333333", model["x"].Text())

	// Excluding the model value leaves no solution
	literal, err := model["x"].Expr()
	require.NoError(t, err)
	require.NoError(t, s.Assert(expr.Not(expr.Eq(ident("x"), literal))))
	status, err = s.Check()
	require.NoError(t, err)
	assert.EqualValues(t, solver.StatusUnsat, status)
}

// TestSolverRejectsUnsupported verifies error reporting for calls, undeclared symbols and ill-typed assertions.
func TestSolverRejectsUnsupported(t *testing.T) {
	s := NewSolver()
	defer s.Close()

	require.NoError(t, s.Declare("a", cfg.TypeInt))
	assert.ErrorIs(t, s.Assert(&expr.Call{Func: "f", Args: []expr.Expr{ident("a")}}), solver.ErrUnsupported)
	assert.ErrorIs(t, s.Assert(expr.Eq(ident("missing"), expr.NewInt(1))), solver.ErrUndeclared)
	assert.ErrorIs(t, s.Assert(ident("a")), solver.ErrUnsupported)
	assert.Error(t, s.Declare("a", cfg.TypeBool))
	assert.NoError(t, s.Declare("a", cfg.TypeInt))

	_, err := s.Model("a")
	assert.ErrorIs(t, err, solver.ErrNoModel)
}

// TestStringTable verifies interning and that synthesized strings never collide with literals.
func TestStringTable(t *testing.T) {
	table := newStringTable()
	hello := table.intern("hello")
	assert.EqualValues(t, hello, table.intern("hello"))

	str7 := table.intern("str7")
	assert.NotEqualValues(t, hello, str7)

	// Identifier 7 is unknown, its synthesized name must avoid the literal "str7"
	synthesized := table.lookup(7)
	assert.NotEqualValues(t, "str7", synthesized)
	assert.EqualValues(t, 7, table.intern(synthesized))

	// New literals never reuse an identifier handed out before
	fresh := table.intern("fresh")
	assert.Greater(t, fresh, int64(7))
}
