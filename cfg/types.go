package cfg

import (
	"strings"

	"github.com/pkg/errors"
)

// Type describes the semantic type of a symbolic variable.
type Type int

const (
	TypeInvalid Type = iota
	TypeInt
	TypeReal
	TypeString
	TypeBool
)

// String returns the name of the type, as used in configuration and reports.
func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeReal:
		return "real"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	default:
		return "invalid"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if t == TypeInvalid {
		return nil, errors.New("cannot marshal an invalid type")
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType parses a type name produced by Type.String.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "int":
		return TypeInt, nil
	case "real":
		return TypeReal, nil
	case "string":
		return TypeString, nil
	case "bool":
		return TypeBool, nil
	}
	return TypeInvalid, errors.Errorf("unknown type '%s'", name)
}

// Range is an inclusive range of integer values.
type Range struct {
	Min int64
	Max int64
}

// Param describes a formal parameter of a Function.
type Param struct {
	Name string
	Type Type
	// Range restricts the values of an integer parameter whose Go type is narrower than an unbounded integer, e.g.
	// unsigned or sized integers. It is nil when every int64 is a valid argument.
	Range *Range
}

// DeclarationTable maps an unversioned variable name to its declared type. Indexed variables are recorded with
// their element type.
type DeclarationTable map[string]Type

// Lookup returns the declared type of the given name.
func (d DeclarationTable) Lookup(name string) (Type, bool) {
	t, ok := d[name]
	return t, ok
}
