package solver

import (
	"math/big"
	"strconv"

	"github.com/crytic/symfuzz/cfg"
	"github.com/fxamacker/cbor"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// unconstrainedText is the text form of an unconstrained value.
const unconstrainedText = "<unconstrained>"

// ParseValue parses the text form of a value of the given type, as produced by Value.Text.
func ParseValue(t cfg.Type, text string) (Value, error) {
	if text == unconstrainedText {
		return UnconstrainedValue(t), nil
	}
	switch t {
	case cfg.TypeInt:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, errors.WithStack(err)
		}
		return IntValue(v), nil
	case cfg.TypeReal:
		v, err := decimal.NewFromString(text)
		if err != nil {
			return Value{}, errors.WithStack(err)
		}
		return RealValue(v), nil
	case cfg.TypeString:
		v, err := strconv.Unquote(text)
		if err != nil {
			return Value{}, errors.Wrapf(err, "could not parse string literal %s", text)
		}
		return StringValue(v), nil
	case cfg.TypeBool:
		v, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, errors.WithStack(err)
		}
		return BoolValue(v), nil
	}
	return Value{}, errors.Errorf("cannot parse a value of type %v", t)
}

// cborValue is the encoded form of a Value.
type cborValue struct {
	Type string `cbor:"t"`
	Text string `cbor:"v"`
	Rat  string `cbor:"r,omitempty"`
}

// MarshalCBOR encodes the value as its type and text form, plus the exact rational of a rounded real.
func (v Value) MarshalCBOR() ([]byte, error) {
	encoded := cborValue{Type: v.Type.String(), Text: v.Text()}
	if v.Rat != nil {
		encoded.Rat = v.Rat.RatString()
	}
	return cbor.Marshal(encoded, cbor.EncOptions{})
}

// UnmarshalCBOR decodes a value produced by MarshalCBOR. The zero Value round trips to itself.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var encoded cborValue
	if err := cbor.Unmarshal(data, &encoded); err != nil {
		return errors.WithStack(err)
	}
	if encoded.Type == cfg.TypeInvalid.String() {
		*v = Value{}
		return nil
	}
	t, err := cfg.ParseType(encoded.Type)
	if err != nil {
		return err
	}
	decoded, err := ParseValue(t, encoded.Text)
	if err != nil {
		return err
	}
	if encoded.Rat != "" {
		rat, ok := new(big.Rat).SetString(encoded.Rat)
		if !ok {
			return errors.Errorf("could not parse rational %s", encoded.Rat)
		}
		decoded.Rat = rat
	}
	*v = decoded
	return nil
}
