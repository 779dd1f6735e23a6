package z3

import (
	"strconv"

	libz3 "github.com/aclements/go-z3/z3"
	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
	"github.com/crytic/symfuzz/solver"
	"github.com/pkg/errors"
)

// realModelPrecision is the number of decimal places a rational model value is rounded to for display when it has no
// finite decimal form.
const realModelPrecision = 16

// trackPrefix prefixes the names of tracking literals. It cannot appear in a Go identifier, so tracking literals
// never collide with user symbols.
const trackPrefix = "!track!"

// symbol is a declared constant.
type symbol struct {
	typ cfg.Type
	val libz3.Value
}

// tracked is an assertion guarded by a boolean tracking literal: guard => predicate.
type tracked struct {
	label string
	guard libz3.Bool
}

// Solver implements solver.Solver on top of z3. Unsat cores are computed by asserting each tracked predicate behind
// an implication from a fresh tracking literal, then shrinking the set of enabled literals by deletion.
type Solver struct {
	ctx     *libz3.Context
	solver  *libz3.Solver
	symbols map[string]symbol
	strings *stringTable

	// scopes holds the tracked assertions of every open scope. scopes[0] is the base scope.
	scopes [][]tracked
	// guards counts tracking literals so each one is unique across scopes.
	guards int

	lastStatus solver.Status
	model      *libz3.Model
}

var _ solver.Solver = (*Solver)(nil)

// NewSolver creates a solver with its own z3 context.
func NewSolver() *Solver {
	ctx := libz3.NewContext(nil)
	return &Solver{
		ctx:     ctx,
		solver:  libz3.NewSolver(ctx),
		symbols: make(map[string]symbol),
		strings: newStringTable(),
		scopes:  make([][]tracked, 1),
	}
}

// NewFactory returns a solver.Factory producing z3 solvers.
func NewFactory() solver.Factory {
	return func() (solver.Solver, error) {
		return NewSolver(), nil
	}
}

// Declare implements solver.Solver.
func (s *Solver) Declare(name string, t cfg.Type) error {
	if existing, ok := s.symbols[name]; ok {
		if existing.typ != t {
			return errors.Errorf("symbol '%s' is already declared as %v, cannot redeclare as %v", name, existing.typ, t)
		}
		return nil
	}

	var sort libz3.Sort
	switch t {
	case cfg.TypeInt, cfg.TypeString:
		sort = s.ctx.IntSort()
	case cfg.TypeReal:
		sort = s.ctx.RealSort()
	case cfg.TypeBool:
		sort = s.ctx.BoolSort()
	default:
		return errors.Wrapf(solver.ErrUnsupported, "cannot declare symbol '%s' of type %v", name, t)
	}
	s.symbols[name] = symbol{typ: t, val: s.ctx.Const(name, sort)}
	return nil
}

// Assert implements solver.Solver.
func (s *Solver) Assert(e expr.Expr) error {
	b, err := s.lowerBool(e)
	if err != nil {
		return err
	}
	s.invalidate()
	s.solver.Assert(b)
	return nil
}

// AssertTracked implements solver.Solver.
func (s *Solver) AssertTracked(label string, e expr.Expr) error {
	b, err := s.lowerBool(e)
	if err != nil {
		return err
	}
	s.invalidate()

	guard := s.ctx.BoolConst(trackPrefix + strconv.Itoa(s.guards) + "!" + label)
	s.guards++
	s.solver.Assert(guard.Implies(b))

	top := len(s.scopes) - 1
	s.scopes[top] = append(s.scopes[top], tracked{label: label, guard: guard})
	return nil
}

// Push implements solver.Solver.
func (s *Solver) Push() {
	s.solver.Push()
	s.scopes = append(s.scopes, nil)
}

// Pop implements solver.Solver.
func (s *Solver) Pop() error {
	if len(s.scopes) <= 1 {
		return errors.WithStack(solver.ErrScope)
	}
	s.solver.Pop()
	s.scopes = s.scopes[:len(s.scopes)-1]
	s.invalidate()
	return nil
}

// Check implements solver.Solver.
func (s *Solver) Check() (solver.Status, error) {
	s.invalidate()
	guards := s.activeGuards()

	sat, err := s.checkWith(guards, func() {
		s.model = s.solver.Model()
	})
	if err != nil {
		s.lastStatus = solver.StatusUnknown
		return s.lastStatus, errors.Wrap(solver.ErrUnknown, err.Error())
	}
	if sat {
		s.lastStatus = solver.StatusSat
	} else {
		s.lastStatus = solver.StatusUnsat
	}
	return s.lastStatus, nil
}

// checkWith checks satisfiability with the given tracking literals enabled in a temporary scope. onSat is invoked
// before the temporary scope is closed when the check is satisfiable.
func (s *Solver) checkWith(guards []tracked, onSat func()) (bool, error) {
	s.solver.Push()
	defer s.solver.Pop()
	for _, g := range guards {
		s.solver.Assert(g.guard)
	}
	sat, err := s.solver.Check()
	if err != nil {
		return false, err
	}
	if sat && onSat != nil {
		onSat()
	}
	return sat, nil
}

// Model implements solver.Solver.
func (s *Solver) Model(names ...string) (solver.Model, error) {
	if s.lastStatus != solver.StatusSat || s.model == nil {
		return nil, errors.WithStack(solver.ErrNoModel)
	}

	model := make(solver.Model, len(names))
	for _, name := range names {
		sym, ok := s.symbols[name]
		if !ok {
			return nil, errors.Wrapf(solver.ErrUndeclared, "symbol '%s'", name)
		}
		value, err := s.modelValue(sym)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read model value of '%s'", name)
		}
		model[name] = value
	}
	return model, nil
}

// modelValue evaluates a symbol under the current model without model completion, so symbols that the model does
// not constrain are reported as unconstrained.
func (s *Solver) modelValue(sym symbol) (solver.Value, error) {
	v := s.model.Eval(sym.val, false)
	switch sym.typ {
	case cfg.TypeInt, cfg.TypeString:
		i, isLiteral, ok := v.(libz3.Int).AsInt64()
		if !isLiteral {
			return solver.UnconstrainedValue(sym.typ), nil
		}
		if !ok {
			return solver.Value{}, errors.New("integer value does not fit in 64 bits")
		}
		if sym.typ == cfg.TypeString {
			return solver.StringValue(s.strings.lookup(i)), nil
		}
		return solver.IntValue(i), nil
	case cfg.TypeReal:
		r, isLiteral := v.(libz3.Real).AsBigRat()
		if !isLiteral {
			return solver.UnconstrainedValue(sym.typ), nil
		}
		return solver.ExactRealValue(r, realModelPrecision), nil
	case cfg.TypeBool:
		b, isLiteral := v.(libz3.Bool).AsBool()
		if !isLiteral {
			return solver.UnconstrainedValue(sym.typ), nil
		}
		return solver.BoolValue(b), nil
	}
	return solver.Value{}, errors.Errorf("symbol has invalid type %v", sym.typ)
}

// UnsatCore implements solver.Solver. Every tracked label is tentatively removed and re-checked; labels whose removal
// keeps the assertions unsatisfiable are dropped. The result is unsatisfiable by construction but not necessarily
// minimal in size.
func (s *Solver) UnsatCore() ([]string, error) {
	if s.lastStatus != solver.StatusUnsat {
		return nil, errors.WithStack(solver.ErrNoModel)
	}

	core := s.activeGuards()
	for i := 0; i < len(core); {
		candidate := make([]tracked, 0, len(core)-1)
		candidate = append(candidate, core[:i]...)
		candidate = append(candidate, core[i+1:]...)

		sat, err := s.checkWith(candidate, nil)
		if err == nil && !sat {
			core = candidate
			continue
		}
		i++
	}

	labels := make([]string, len(core))
	for i, g := range core {
		labels[i] = g.label
	}
	return labels, nil
}

// Close implements solver.Solver. The underlying z3 objects are released by their finalizers.
func (s *Solver) Close() {
	s.model = nil
	s.solver = nil
	s.symbols = nil
	s.scopes = nil
}

func (s *Solver) activeGuards() []tracked {
	var guards []tracked
	for _, scope := range s.scopes {
		guards = append(guards, scope...)
	}
	return guards
}

func (s *Solver) invalidate() {
	s.lastStatus = solver.StatusUnknown
	s.model = nil
}
