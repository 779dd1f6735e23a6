package expr

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Expr is a structured, side-effect free expression over named symbols. Expressions are immutable values once
// constructed, every transformation in this package returns a new tree.
type Expr interface {
	// String renders the expression in its canonical textual form. Two expressions with the same rendering are
	// considered equal by the deduplication layer.
	String() string

	exprNode()
}

// Ident references a named symbol, such as a variable or one of its versioned single-assignment names.
type Ident struct {
	Name string
}

// IntLit is an arbitrary integer literal, modelled as a mathematical integer.
type IntLit struct {
	Value int64
}

// RealLit is a real-valued literal. Decimals are used so the canonical rendering of a literal is exact.
type RealLit struct {
	Value decimal.Decimal
}

// StringLit is a string literal.
type StringLit struct {
	Value string
}

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool
}

// Index reads a single element of an indexed variable using a constant index, e.g. xs[1].
type Index struct {
	Name  string
	Index int
}

// Unary applies a unary operator to an operand.
type Unary struct {
	Op Op
	X  Expr
}

// Binary applies a binary operator to two operands.
type Binary struct {
	Op Op
	X  Expr
	Y  Expr
}

// Call is a call to a named function. Calls are never lowered to the solver, they only exist so constant
// arguments can be propagated into callees.
type Call struct {
	Func string
	Args []Expr
}

func (*Ident) exprNode()     {}
func (*IntLit) exprNode()    {}
func (*RealLit) exprNode()   {}
func (*StringLit) exprNode() {}
func (*BoolLit) exprNode()   {}
func (*Index) exprNode()     {}
func (*Unary) exprNode()     {}
func (*Binary) exprNode()    {}
func (*Call) exprNode()      {}

func (e *Ident) String() string {
	return e.Name
}

func (e *IntLit) String() string {
	return strconv.FormatInt(e.Value, 10)
}

func (e *RealLit) String() string {
	s := e.Value.String()
	if !strings.ContainsAny(s, ".e") {
		// Keep reals distinguishable from integers in the canonical form.
		s += ".0"
	}
	return s
}

func (e *StringLit) String() string {
	return strconv.Quote(e.Value)
}

func (e *BoolLit) String() string {
	return strconv.FormatBool(e.Value)
}

func (e *Index) String() string {
	return e.Name + "[" + strconv.Itoa(e.Index) + "]"
}

func (e *Unary) String() string {
	switch e.Op {
	case OpToReal, OpToInt:
		return e.Op.String() + "(" + e.X.String() + ")"
	}
	return e.Op.String() + wrap(e.X)
}

func (e *Binary) String() string {
	return wrap(e.X) + " " + e.Op.String() + " " + wrap(e.Y)
}

func (e *Call) String() string {
	var sb strings.Builder
	sb.WriteString(e.Func)
	sb.WriteByte('(')
	for i, arg := range e.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// wrap parenthesizes compound operands so the rendering is unambiguous without precedence rules.
func wrap(e Expr) string {
	switch e.(type) {
	case *Binary, *Unary:
		return "(" + e.String() + ")"
	}
	return e.String()
}

// NewIdent returns an identifier expression.
func NewIdent(name string) *Ident {
	return &Ident{Name: name}
}

// NewInt returns an integer literal.
func NewInt(v int64) *IntLit {
	return &IntLit{Value: v}
}

// NewReal returns a real literal.
func NewReal(v decimal.Decimal) *RealLit {
	return &RealLit{Value: v}
}

// NewString returns a string literal.
func NewString(v string) *StringLit {
	return &StringLit{Value: v}
}

// NewBool returns a boolean literal.
func NewBool(v bool) *BoolLit {
	return &BoolLit{Value: v}
}

// NewBinary returns a binary expression.
func NewBinary(op Op, x, y Expr) *Binary {
	return &Binary{Op: op, X: x, Y: y}
}

// Eq returns x == y.
func Eq(x, y Expr) *Binary {
	return NewBinary(OpEq, x, y)
}

// Not returns the logical negation of e. Double negations are collapsed.
func Not(e Expr) Expr {
	if u, ok := e.(*Unary); ok && u.Op == OpNot {
		return u.X
	}
	return &Unary{Op: OpNot, X: e}
}

// And folds the provided expressions into a left-nested conjunction. An empty list yields true.
func And(exprs ...Expr) Expr {
	if len(exprs) == 0 {
		return NewBool(true)
	}
	result := exprs[0]
	for _, e := range exprs[1:] {
		result = NewBinary(OpAnd, result, e)
	}
	return result
}

// IsLiteral indicates whether the expression is a literal constant of any type.
func IsLiteral(e Expr) bool {
	switch e.(type) {
	case *IntLit, *RealLit, *StringLit, *BoolLit:
		return true
	}
	return false
}
