package solver

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strconv"
	"strings"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Value is a concrete value taken from a model. Only the field matching Type is meaningful. An unconstrained value
// carries no concrete data: any value of the type satisfies the constraints.
type Value struct {
	Type          cfg.Type
	Int           int64
	Real          decimal.Decimal
	String        string
	Bool          bool
	Unconstrained bool

	// Rat is the exact value of a real read from a model when it has no finite decimal form. Real then holds it
	// rounded, for display.
	Rat *big.Rat
}

// IntValue returns a concrete integer value.
func IntValue(v int64) Value {
	return Value{Type: cfg.TypeInt, Int: v}
}

// RealValue returns a concrete real value.
func RealValue(v decimal.Decimal) Value {
	return Value{Type: cfg.TypeReal, Real: v}
}

// StringValue returns a concrete string value.
func StringValue(v string) Value {
	return Value{Type: cfg.TypeString, String: v}
}

// BoolValue returns a concrete boolean value.
func BoolValue(v bool) Value {
	return Value{Type: cfg.TypeBool, Bool: v}
}

// ExactRealValue returns a real value from a rational. If the rational has no exact decimal form, it is kept
// alongside its rounding to the given number of decimal places.
func ExactRealValue(v *big.Rat, places int32) Value {
	num := decimal.NewFromBigInt(v.Num(), 0)
	if v.IsInt() {
		return RealValue(num)
	}
	rounded := num.DivRound(decimal.NewFromBigInt(v.Denom(), 0), places)
	if rounded.Rat().Cmp(v) == 0 {
		return RealValue(rounded)
	}
	return Value{Type: cfg.TypeReal, Real: rounded, Rat: new(big.Rat).Set(v)}
}

// exactReal returns the exact value of a real.
func (v Value) exactReal() *big.Rat {
	if v.Rat != nil {
		return v.Rat
	}
	return v.Real.Rat()
}

// UnconstrainedValue returns a marker value for a symbol with no binding in a model.
func UnconstrainedValue(t cfg.Type) Value {
	return Value{Type: t, Unconstrained: true}
}

// Text renders the value the way it would be written as a literal in source code.
func (v Value) Text() string {
	if v.Unconstrained {
		return unconstrainedText
	}
	switch v.Type {
	case cfg.TypeInt:
		return strconv.FormatInt(v.Int, 10)
	case cfg.TypeReal:
		return v.Real.String()
	case cfg.TypeString:
		return strconv.Quote(v.String)
	case cfg.TypeBool:
		return strconv.FormatBool(v.Bool)
	}
	return "<invalid>"
}

// Expr returns the value as a literal expression, for use in blocking clauses.
func (v Value) Expr() (expr.Expr, error) {
	if v.Unconstrained {
		return nil, errors.New("an unconstrained value has no literal form")
	}
	switch v.Type {
	case cfg.TypeInt:
		return expr.NewInt(v.Int), nil
	case cfg.TypeReal:
		if v.Rat != nil {
			num := expr.NewReal(decimal.NewFromBigInt(v.Rat.Num(), 0))
			den := expr.NewReal(decimal.NewFromBigInt(v.Rat.Denom(), 0))
			return expr.NewBinary(expr.OpDiv, num, den), nil
		}
		return expr.NewReal(v.Real), nil
	case cfg.TypeString:
		return expr.NewString(v.String), nil
	case cfg.TypeBool:
		return expr.NewBool(v.Bool), nil
	}
	return nil, errors.Errorf("value has invalid type %v", v.Type)
}

// Equal indicates whether two values are identical.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type || v.Unconstrained != other.Unconstrained {
		return false
	}
	if v.Unconstrained {
		return true
	}
	switch v.Type {
	case cfg.TypeInt:
		return v.Int == other.Int
	case cfg.TypeReal:
		return v.exactReal().Cmp(other.exactReal()) == 0
	case cfg.TypeString:
		return v.String == other.String
	case cfg.TypeBool:
		return v.Bool == other.Bool
	case cfg.TypeInvalid:
		return true
	}
	return false
}

// MarshalJSON renders the value as a natural JSON scalar. Reals are always written with a fractional part so they
// decode back as reals. Unconstrained and zero values are rendered as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Unconstrained {
		return []byte("null"), nil
	}
	switch v.Type {
	case cfg.TypeInt:
		return json.Marshal(v.Int)
	case cfg.TypeReal:
		s := v.Real.String()
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return []byte(s), nil
	case cfg.TypeString:
		return json.Marshal(v.String)
	case cfg.TypeBool:
		return json.Marshal(v.Bool)
	}
	return []byte("null"), nil
}

// UnmarshalJSON decodes a value produced by MarshalJSON. The type is inferred from the JSON scalar, and null decodes
// to an unconstrained value without a type.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return errors.WithStack(err)
	}
	switch raw := raw.(type) {
	case nil:
		*v = Value{Unconstrained: true}
	case bool:
		*v = BoolValue(raw)
	case string:
		*v = StringValue(raw)
	case json.Number:
		text := raw.String()
		t := cfg.TypeInt
		if strings.ContainsAny(text, ".eE") {
			t = cfg.TypeReal
		}
		decoded, err := ParseValue(t, text)
		if err != nil {
			return err
		}
		*v = decoded
	default:
		return errors.Errorf("cannot decode value from %s", string(data))
	}
	return nil
}
