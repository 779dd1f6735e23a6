package frontend

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"math/big"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// realPrecision is the number of decimal places kept for non-terminating real constants.
const realPrecision = 16

// errUnsupported is returned for expressions that have no symbolic counterpart.
var errUnsupported = errors.New("unsupported expression")

// binaryOps maps Go binary operators to their symbolic counterparts.
var binaryOps = map[token.Token]expr.Op{
	token.ADD:  expr.OpAdd,
	token.SUB:  expr.OpSub,
	token.MUL:  expr.OpMul,
	token.QUO:  expr.OpDiv,
	token.REM:  expr.OpMod,
	token.EQL:  expr.OpEq,
	token.NEQ:  expr.OpNe,
	token.LSS:  expr.OpLt,
	token.LEQ:  expr.OpLe,
	token.GTR:  expr.OpGt,
	token.GEQ:  expr.OpGe,
	token.LAND: expr.OpAnd,
	token.LOR:  expr.OpOr,
}

// assignOps maps compound assignment operators to the binary operator they apply.
var assignOps = map[token.Token]token.Token{
	token.ADD_ASSIGN: token.ADD,
	token.SUB_ASSIGN: token.SUB,
	token.MUL_ASSIGN: token.MUL,
	token.QUO_ASSIGN: token.QUO,
	token.REM_ASSIGN: token.REM,
}

// converter turns type checked Go expressions into symbolic expressions.
type converter struct {
	info *types.Info
}

// convert translates e, failing with errUnsupported for anything the solver cannot model.
func (c *converter) convert(e ast.Expr) (expr.Expr, error) {
	if tv, ok := c.info.Types[e]; ok && tv.Value != nil {
		return constantExpr(tv)
	}

	switch e := e.(type) {
	case *ast.ParenExpr:
		return c.convert(e.X)

	case *ast.Ident:
		v, ok := c.info.Uses[e].(*types.Var)
		if !ok {
			return nil, errors.Wrapf(errUnsupported, "'%s' is not a variable", e.Name)
		}
		if _, ok := mapType(v.Type()); !ok {
			return nil, errors.Wrapf(errUnsupported, "variable '%s' has type %s", e.Name, v.Type())
		}
		return expr.NewIdent(e.Name), nil

	case *ast.UnaryExpr:
		x, err := c.convert(e.X)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case token.ADD:
			return x, nil
		case token.SUB:
			return &expr.Unary{Op: expr.OpNeg, X: x}, nil
		case token.NOT:
			return expr.Not(x), nil
		}
		return nil, errors.Wrapf(errUnsupported, "unary operator %s", e.Op)

	case *ast.BinaryExpr:
		op, ok := binaryOps[e.Op]
		if !ok {
			return nil, errors.Wrapf(errUnsupported, "binary operator %s", e.Op)
		}
		if t, _ := mapType(c.info.TypeOf(e)); t == cfg.TypeString {
			return nil, errors.Wrap(errUnsupported, "string concatenation")
		}
		x, err := c.convert(e.X)
		if err != nil {
			return nil, err
		}
		y, err := c.convert(e.Y)
		if err != nil {
			return nil, err
		}
		return expr.NewBinary(op, x, y), nil

	case *ast.IndexExpr:
		name, ok := e.X.(*ast.Ident)
		if !ok {
			return nil, errors.Wrap(errUnsupported, "index of a non-variable")
		}
		index, ok := c.constantIndex(e.Index)
		if !ok {
			return nil, errors.Wrap(errUnsupported, "non-constant index")
		}
		if _, ok := elemType(c.info.TypeOf(e.X)); !ok {
			return nil, errors.Wrapf(errUnsupported, "'%s' is not a slice of a supported type", name.Name)
		}
		return &expr.Index{Name: name.Name, Index: index}, nil

	case *ast.CallExpr:
		if tv, ok := c.info.Types[e.Fun]; ok && tv.IsType() {
			return c.conversion(e, tv.Type)
		}
		return c.call(e)
	}
	return nil, errors.Wrapf(errUnsupported, "%T", e)
}

// conversion translates a type conversion between numeric types.
func (c *converter) conversion(e *ast.CallExpr, to types.Type) (expr.Expr, error) {
	if len(e.Args) != 1 {
		return nil, errors.Wrap(errUnsupported, "malformed conversion")
	}
	target, ok := mapType(to)
	if !ok {
		return nil, errors.Wrapf(errUnsupported, "conversion to %s", to)
	}
	source, ok := mapType(c.info.TypeOf(e.Args[0]))
	if !ok {
		return nil, errors.Wrap(errUnsupported, "conversion from an unsupported type")
	}
	x, err := c.convert(e.Args[0])
	if err != nil {
		return nil, err
	}
	switch {
	case source == target:
		return x, nil
	case source == cfg.TypeInt && target == cfg.TypeReal:
		return &expr.Unary{Op: expr.OpToReal, X: x}, nil
	case source == cfg.TypeReal && target == cfg.TypeInt:
		return &expr.Unary{Op: expr.OpToInt, X: x}, nil
	}
	return nil, errors.Wrapf(errUnsupported, "conversion from %s to %s", source, target)
}

// call translates a call of a package-level function.
func (c *converter) call(e *ast.CallExpr) (*expr.Call, error) {
	name, ok := e.Fun.(*ast.Ident)
	if !ok {
		return nil, errors.Wrap(errUnsupported, "call of a non-function")
	}
	if _, ok := c.info.Uses[name].(*types.Func); !ok {
		return nil, errors.Wrapf(errUnsupported, "call of '%s'", name.Name)
	}
	if e.Ellipsis.IsValid() {
		return nil, errors.Wrap(errUnsupported, "variadic call")
	}
	call := &expr.Call{Func: name.Name, Args: make([]expr.Expr, len(e.Args))}
	for i, arg := range e.Args {
		converted, err := c.convert(arg)
		if err != nil {
			return nil, err
		}
		call.Args[i] = converted
	}
	return call, nil
}

// constantIndex returns the value of a constant, non-negative index.
func (c *converter) constantIndex(e ast.Expr) (int, bool) {
	tv, ok := c.info.Types[e]
	if !ok || tv.Value == nil {
		return 0, false
	}
	i, exact := constant.Int64Val(constant.ToInt(tv.Value))
	if !exact || i < 0 {
		return 0, false
	}
	return int(i), true
}

// constantExpr translates a constant value into a literal of its type.
func constantExpr(tv types.TypeAndValue) (expr.Expr, error) {
	t, ok := mapType(tv.Type)
	if !ok {
		return nil, errors.Wrapf(errUnsupported, "constant of type %s", tv.Type)
	}
	switch t {
	case cfg.TypeBool:
		return expr.NewBool(constant.BoolVal(tv.Value)), nil
	case cfg.TypeString:
		return expr.NewString(constant.StringVal(tv.Value)), nil
	case cfg.TypeInt:
		i, exact := constant.Int64Val(constant.ToInt(tv.Value))
		if !exact {
			return nil, errors.Wrapf(errUnsupported, "integer constant %s overflows", tv.Value)
		}
		return expr.NewInt(i), nil
	case cfg.TypeReal:
		d, err := decimalOf(tv.Value)
		if err != nil {
			return nil, err
		}
		return expr.NewReal(d), nil
	}
	return nil, errors.Wrapf(errUnsupported, "constant %s", tv.Value)
}

// decimalOf converts a numeric constant to a decimal. Exact fractions with a non-terminating expansion are rounded.
func decimalOf(v constant.Value) (decimal.Decimal, error) {
	v = constant.ToFloat(v)
	num, ok := bigIntOf(constant.Num(v))
	if !ok {
		return decimal.Decimal{}, errors.Wrapf(errUnsupported, "real constant %s", v)
	}
	den, ok := bigIntOf(constant.Denom(v))
	if !ok {
		return decimal.Decimal{}, errors.Wrapf(errUnsupported, "real constant %s", v)
	}
	d := decimal.NewFromBigInt(num, 0)
	if den.Cmp(big.NewInt(1)) == 0 {
		return d, nil
	}
	return d.DivRound(decimal.NewFromBigInt(den, 0), realPrecision), nil
}

// bigIntOf returns the value of an integer constant.
func bigIntOf(v constant.Value) (*big.Int, bool) {
	if v.Kind() != constant.Int {
		return nil, false
	}
	switch x := constant.Val(v).(type) {
	case int64:
		return big.NewInt(x), true
	case *big.Int:
		return x, true
	}
	return nil, false
}

// zeroValue returns the zero value of a type.
func zeroValue(t cfg.Type) expr.Expr {
	switch t {
	case cfg.TypeInt:
		return expr.NewInt(0)
	case cfg.TypeReal:
		return expr.NewReal(decimal.Zero)
	case cfg.TypeString:
		return expr.NewString("")
	case cfg.TypeBool:
		return expr.NewBool(false)
	}
	return nil
}

// one returns the literal 1 of a numeric type.
func one(t cfg.Type) expr.Expr {
	if t == cfg.TypeReal {
		return expr.NewReal(decimal.NewFromInt(1))
	}
	return expr.NewInt(1)
}
