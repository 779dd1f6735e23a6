package expr

// Op describes an operator used by Unary and Binary expressions.
type Op int

const (
	OpInvalid Op = iota

	// Unary operators
	OpNeg
	OpNot
	OpToReal
	OpToInt

	// Arithmetic operators
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod

	// Comparison operators
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Logical operators
	OpAnd
	OpOr
)

var opSymbols = map[Op]string{
	OpNeg:    "-",
	OpNot:    "!",
	OpToReal: "float64",
	OpToInt:  "int",
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpMod:    "%",
	OpEq:     "==",
	OpNe:     "!=",
	OpLt:     "<",
	OpLe:     "<=",
	OpGt:     ">",
	OpGe:     ">=",
	OpAnd:    "&&",
	OpOr:     "||",
}

// String returns the operator's symbol.
func (o Op) String() string {
	if s, ok := opSymbols[o]; ok {
		return s
	}
	return "?"
}

// IsArithmetic indicates whether the operator produces a numeric value from numeric operands.
func (o Op) IsArithmetic() bool {
	return o >= OpAdd && o <= OpMod
}

// IsComparison indicates whether the operator produces a boolean from two comparable operands.
func (o Op) IsComparison() bool {
	return o >= OpEq && o <= OpGe
}

// IsLogical indicates whether the operator combines boolean operands.
func (o Op) IsLogical() bool {
	return o == OpAnd || o == OpOr || o == OpNot
}
