package solver

import (
	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
	"github.com/pkg/errors"
)

var (
	// ErrUnsupported is returned when an expression cannot be expressed in the solver's logic.
	ErrUnsupported = errors.New("expression is not supported by the solver")
	// ErrUndeclared is returned when an expression references a symbol which was never declared.
	ErrUndeclared = errors.New("symbol was not declared")
	// ErrUnknown is returned when the solver could not decide satisfiability.
	ErrUnknown = errors.New("solver returned unknown")
	// ErrNoModel is returned when a model or unsat core is requested without a matching check result.
	ErrNoModel = errors.New("no result is available for the last check")
	// ErrScope is returned when a scope is popped that was never pushed.
	ErrScope = errors.New("no solver scope to pop")
)

// Status is the result of a satisfiability check.
type Status int

const (
	StatusUnknown Status = iota
	StatusSat
	StatusUnsat
)

// String returns the SMT-LIB name of the status.
func (s Status) String() string {
	switch s {
	case StatusSat:
		return "sat"
	case StatusUnsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Model maps declared symbol names to the values of a satisfying assignment.
type Model map[string]Value

// Solver is an incremental SMT solver. Declarations are global to the solver while assertions are scoped by
// Push and Pop. A Solver is not safe for concurrent use.
type Solver interface {
	// Declare creates a symbol of the given type. Redeclaring a symbol with the same type is a no-op.
	Declare(name string, t cfg.Type) error

	// Assert adds an untracked assertion to the current scope.
	Assert(e expr.Expr) error

	// AssertTracked adds an assertion to the current scope that is reported under the provided label by UnsatCore.
	AssertTracked(label string, e expr.Expr) error

	// Push opens a new assertion scope.
	Push()

	// Pop discards every assertion made since the matching Push.
	Pop() error

	// Check decides satisfiability of the current assertions. An undecided result is reported as StatusUnknown
	// alongside an error wrapping ErrUnknown.
	Check() (Status, error)

	// Model returns the values of the named symbols under the last satisfying check. Symbols that are unconstrained
	// by the model are returned as unconstrained values.
	Model(names ...string) (Model, error)

	// UnsatCore returns a subset of the tracked labels that is unsatisfiable together with the untracked assertions,
	// following an unsatisfiable check.
	UnsatCore() ([]string, error)

	// Close releases the solver. It must not be used afterwards.
	Close()
}

// Factory creates fresh, independent solvers.
type Factory func() (Solver, error)
