package z3

import (
	"math/big"

	libz3 "github.com/aclements/go-z3/z3"
	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
	"github.com/crytic/symfuzz/solver"
	"github.com/pkg/errors"
)

// term is a lowered expression along with the type it evaluates to.
type term struct {
	val libz3.Value
	typ cfg.Type
	// defined holds the conditions under which evaluating the expression in Go does not panic, such as non-zero
	// divisors.
	defined []libz3.Bool
}

// with returns the term with the definedness conditions of the provided operands prepended to its own.
func (t term) with(operands ...term) term {
	var defined []libz3.Bool
	for _, o := range operands {
		defined = append(defined, o.defined...)
	}
	t.defined = append(defined, t.defined...)
	return t
}

// lowerBool lowers an expression which must evaluate to a boolean. The result also requires the expression to be
// evaluable without a run-time panic, so a model never picks e.g. a zero divisor.
func (s *Solver) lowerBool(e expr.Expr) (libz3.Bool, error) {
	t, err := s.lower(e)
	if err != nil {
		return libz3.Bool{}, err
	}
	if t.typ != cfg.TypeBool {
		return libz3.Bool{}, errors.Wrapf(solver.ErrUnsupported, "expression '%v' is of type %v, not bool", e, t.typ)
	}
	b := t.val.(libz3.Bool)
	if len(t.defined) > 0 {
		b = b.And(t.defined...)
	}
	return b, nil
}

// lower translates a structured expression into a z3 term.
func (s *Solver) lower(e expr.Expr) (term, error) {
	switch e := e.(type) {
	case *expr.Ident:
		sym, ok := s.symbols[e.Name]
		if !ok {
			return term{}, errors.Wrapf(solver.ErrUndeclared, "symbol '%s'", e.Name)
		}
		return term{val: sym.val, typ: sym.typ}, nil
	case *expr.IntLit:
		return term{val: s.ctx.FromInt(e.Value, s.ctx.IntSort()), typ: cfg.TypeInt}, nil
	case *expr.RealLit:
		rat := e.Value.Rat()
		num := s.ctx.FromBigInt(rat.Num(), s.ctx.RealSort()).(libz3.Real)
		if rat.IsInt() {
			return term{val: num, typ: cfg.TypeReal}, nil
		}
		den := s.ctx.FromBigInt(new(big.Int).Set(rat.Denom()), s.ctx.RealSort()).(libz3.Real)
		return term{val: num.Div(den), typ: cfg.TypeReal}, nil
	case *expr.StringLit:
		return term{val: s.ctx.FromInt(s.strings.intern(e.Value), s.ctx.IntSort()), typ: cfg.TypeString}, nil
	case *expr.BoolLit:
		return term{val: s.ctx.FromBool(e.Value), typ: cfg.TypeBool}, nil
	case *expr.Unary:
		return s.lowerUnary(e)
	case *expr.Binary:
		return s.lowerBinary(e)
	}
	return term{}, errors.Wrapf(solver.ErrUnsupported, "expression '%v'", e)
}

func (s *Solver) lowerUnary(e *expr.Unary) (term, error) {
	x, err := s.lower(e.X)
	if err != nil {
		return term{}, err
	}
	switch {
	case e.Op == expr.OpNot && x.typ == cfg.TypeBool:
		return term{val: x.val.(libz3.Bool).Not(), typ: cfg.TypeBool}.with(x), nil
	case e.Op == expr.OpNeg && x.typ == cfg.TypeInt:
		return term{val: x.val.(libz3.Int).Neg(), typ: cfg.TypeInt}.with(x), nil
	case e.Op == expr.OpNeg && x.typ == cfg.TypeReal:
		return term{val: x.val.(libz3.Real).Neg(), typ: cfg.TypeReal}.with(x), nil
	case e.Op == expr.OpToReal && x.typ == cfg.TypeInt:
		return term{val: x.val.(libz3.Int).ToReal(), typ: cfg.TypeReal}.with(x), nil
	case e.Op == expr.OpToReal && x.typ == cfg.TypeReal:
		return x, nil
	case e.Op == expr.OpToInt && x.typ == cfg.TypeReal:
		return term{val: x.val.(libz3.Real).ToInt(), typ: cfg.TypeInt}.with(x), nil
	case e.Op == expr.OpToInt && x.typ == cfg.TypeInt:
		return x, nil
	}
	return term{}, errors.Wrapf(solver.ErrUnsupported, "operator '%v' on %v", e.Op, x.typ)
}

func (s *Solver) lowerBinary(e *expr.Binary) (term, error) {
	x, err := s.lower(e.X)
	if err != nil {
		return term{}, err
	}
	y, err := s.lower(e.Y)
	if err != nil {
		return term{}, err
	}

	switch {
	case e.Op.IsLogical():
		if x.typ != cfg.TypeBool || y.typ != cfg.TypeBool {
			break
		}
		xb, yb := x.val.(libz3.Bool), y.val.(libz3.Bool)
		if e.Op == expr.OpAnd {
			return shortCircuit(term{val: xb.And(yb), typ: cfg.TypeBool}, x, y, xb), nil
		}
		return shortCircuit(term{val: xb.Or(yb), typ: cfg.TypeBool}, x, y, xb.Not()), nil

	case e.Op == expr.OpEq || e.Op == expr.OpNe:
		eq, ok := s.lowerEquality(x, y)
		if !ok {
			break
		}
		if e.Op == expr.OpNe {
			eq = eq.Not()
		}
		return term{val: eq, typ: cfg.TypeBool}.with(x, y), nil

	case e.Op.IsComparison() || e.Op.IsArithmetic():
		x, y, ok := promote(x, y)
		if !ok {
			break
		}
		var t term
		if x.typ == cfg.TypeInt {
			t, err = lowerIntOp(e.Op, x.val.(libz3.Int), y.val.(libz3.Int))
		} else {
			t, err = lowerRealOp(e.Op, x.val.(libz3.Real), y.val.(libz3.Real))
		}
		if err != nil {
			return term{}, err
		}
		return t.with(x, y), nil
	}
	return term{}, errors.Wrapf(solver.ErrUnsupported, "operator '%v' on %v and %v", e.Op, x.typ, y.typ)
}

// shortCircuit attaches the definedness conditions of a logical operation. The right operand is only evaluated when
// evaluated holds, so its conditions only apply then.
func shortCircuit(t term, x, y term, evaluated libz3.Bool) term {
	t = t.with(x)
	if len(y.defined) > 0 {
		t.defined = append(t.defined, evaluated.Implies(y.defined[0].And(y.defined[1:]...)))
	}
	return t
}

// lowerEquality builds x == y for operands of any matching type, promoting mixed numeric operands to reals.
func (s *Solver) lowerEquality(x, y term) (libz3.Bool, bool) {
	if x, y, ok := promote(x, y); ok {
		if x.typ == cfg.TypeInt {
			return x.val.(libz3.Int).Eq(y.val.(libz3.Int)), true
		}
		return x.val.(libz3.Real).Eq(y.val.(libz3.Real)), true
	}
	if x.typ != y.typ {
		return libz3.Bool{}, false
	}
	switch x.typ {
	case cfg.TypeString:
		return x.val.(libz3.Int).Eq(y.val.(libz3.Int)), true
	case cfg.TypeBool:
		return x.val.(libz3.Bool).Eq(y.val.(libz3.Bool)), true
	}
	return libz3.Bool{}, false
}

// promote brings two numeric operands to a common sort. It reports false if either operand is not numeric.
func promote(x, y term) (term, term, bool) {
	numeric := func(t cfg.Type) bool { return t == cfg.TypeInt || t == cfg.TypeReal }
	if !numeric(x.typ) || !numeric(y.typ) {
		return x, y, false
	}
	if x.typ == y.typ {
		return x, y, true
	}
	if x.typ == cfg.TypeInt {
		x = term{val: x.val.(libz3.Int).ToReal(), typ: cfg.TypeReal, defined: x.defined}
	} else {
		y = term{val: y.val.(libz3.Int).ToReal(), typ: cfg.TypeReal, defined: y.defined}
	}
	return x, y, true
}

func lowerIntOp(op expr.Op, x, y libz3.Int) (term, error) {
	switch op {
	case expr.OpAdd:
		return term{val: x.Add(y), typ: cfg.TypeInt}, nil
	case expr.OpSub:
		return term{val: x.Sub(y), typ: cfg.TypeInt}, nil
	case expr.OpMul:
		return term{val: x.Mul(y), typ: cfg.TypeInt}, nil
	case expr.OpDiv:
		return term{val: truncatedDiv(x, y), typ: cfg.TypeInt, defined: []libz3.Bool{nonZeroInt(y)}}, nil
	case expr.OpMod:
		return term{val: x.Sub(y.Mul(truncatedDiv(x, y))), typ: cfg.TypeInt, defined: []libz3.Bool{nonZeroInt(y)}}, nil
	case expr.OpLt:
		return term{val: x.LT(y), typ: cfg.TypeBool}, nil
	case expr.OpLe:
		return term{val: x.LE(y), typ: cfg.TypeBool}, nil
	case expr.OpGt:
		return term{val: x.GT(y), typ: cfg.TypeBool}, nil
	case expr.OpGe:
		return term{val: x.GE(y), typ: cfg.TypeBool}, nil
	}
	return term{}, errors.Wrapf(solver.ErrUnsupported, "integer operator '%v'", op)
}

// truncatedDiv builds x / y rounded toward zero, as Go computes it. z3's div keeps the remainder non-negative, which
// only agrees with Go for a non-negative dividend.
func truncatedDiv(x, y libz3.Int) libz3.Int {
	ctx := x.Context()
	zero := ctx.FromInt(0, ctx.IntSort()).(libz3.Int)
	return x.GE(zero).IfThenElse(x.Div(y), x.Neg().Div(y).Neg()).(libz3.Int)
}

func nonZeroInt(y libz3.Int) libz3.Bool {
	ctx := y.Context()
	return y.Eq(ctx.FromInt(0, ctx.IntSort()).(libz3.Int)).Not()
}

// nonZeroReal requires a real divisor to be non-zero. Go float division by zero does not panic, but it yields an
// infinity or NaN that reals cannot represent.
func nonZeroReal(y libz3.Real) libz3.Bool {
	ctx := y.Context()
	return y.Eq(ctx.FromInt(0, ctx.RealSort()).(libz3.Real)).Not()
}

func lowerRealOp(op expr.Op, x, y libz3.Real) (term, error) {
	switch op {
	case expr.OpAdd:
		return term{val: x.Add(y), typ: cfg.TypeReal}, nil
	case expr.OpSub:
		return term{val: x.Sub(y), typ: cfg.TypeReal}, nil
	case expr.OpMul:
		return term{val: x.Mul(y), typ: cfg.TypeReal}, nil
	case expr.OpDiv:
		return term{val: x.Div(y), typ: cfg.TypeReal, defined: []libz3.Bool{nonZeroReal(y)}}, nil
	case expr.OpLt:
		return term{val: x.LT(y), typ: cfg.TypeBool}, nil
	case expr.OpLe:
		return term{val: x.LE(y), typ: cfg.TypeBool}, nil
	case expr.OpGt:
		return term{val: x.GT(y), typ: cfg.TypeBool}, nil
	case expr.OpGe:
		return term{val: x.GE(y), typ: cfg.TypeBool}, nil
	}
	return term{}, errors.Wrapf(solver.ErrUnsupported, "real operator '%v'", op)
}
