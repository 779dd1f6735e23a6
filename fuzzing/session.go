package fuzzing

import (
	"sort"
	"strconv"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
	"github.com/crytic/symfuzz/fuzzing/config"
	"github.com/crytic/symfuzz/solver"
	"github.com/pkg/errors"
)

// ErrPathExhausted is returned when the predicates of a path are satisfiable, but only by parameter assignments that
// blocking clauses already exclude.
var ErrPathExhausted = errors.New("every assignment of the path was already reported")

// Session solves the paths of one analysis against a single solver. Each path is solved inside its own solver scope.
// After a feasible path, a blocking clause excluding the reported parameter assignment is recorded. With
// config.BlockingScopeAnalysis the clause restricts every later path of the session. With config.BlockingScopePath
// it is discarded along with the path. A Session is not safe for concurrent use and must not be shared between
// unrelated analyses.
type Session struct {
	// solver is the solver owned by this session.
	solver solver.Solver
	// scope describes the lifetime of blocking clauses.
	scope config.BlockingScope
	// clauses holds the blocking clauses that restrict later paths. They are asserted, untracked, in the scope of
	// every path so the path's own predicates can still be checked without them.
	clauses []expr.Expr
	// blocked counts the blocking clauses produced over the session's lifetime.
	blocked int
}

// NewSession creates a session over the provided solver.
func NewSession(s solver.Solver, scope config.BlockingScope) *Session {
	return &Session{
		solver: s,
		scope:  scope,
	}
}

// BlockingClauses returns the number of blocking clauses produced by the session.
func (s *Session) BlockingClauses() int {
	return s.blocked
}

// Close releases the session's solver.
func (s *Session) Close() {
	s.solver.Close()
}

// predicateLabel returns the tracking label used for the predicate at the given index.
func predicateLabel(index int) string {
	return "p" + strconv.Itoa(index)
}

// SolvePath checks the predicates of a path. A satisfiable path yields a TestCase over the function's parameters, an
// unsatisfiable one an UnsatDiagnostic whose core is unsatisfiable on its own. A path that is only unsatisfiable
// because of blocking clauses returns an error wrapping ErrPathExhausted. Errors are also returned when a predicate
// cannot be expressed, or wrapping solver.ErrUnknown when the solver cannot decide the path.
func (s *Session) SolvePath(fn *cfg.Function, path Path, preds []Predicate, types map[string]cfg.Type) (*PathOutcome, error) {
	outcome, model, err := s.solveScoped(fn, path, preds, types, true)
	if err != nil {
		return nil, err
	}

	if outcome.Unsat != nil && len(s.clauses) > 0 {
		// The core was computed relative to the blocking clauses, so decide the predicates again without them
		outcome, _, err = s.solveScoped(fn, path, preds, types, false)
		if err != nil {
			return nil, err
		}
		if outcome.Feasible() {
			return nil, errors.Wrapf(ErrPathExhausted, "%d blocking clauses", len(s.clauses))
		}
		return outcome, nil
	}

	if outcome.Feasible() {
		if err = s.block(fn.Params, model); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

// solveScoped runs check inside a scope dedicated to the path.
func (s *Session) solveScoped(fn *cfg.Function, path Path, preds []Predicate, types map[string]cfg.Type, blocking bool) (*PathOutcome, solver.Model, error) {
	s.solver.Push()
	outcome, model, err := s.check(fn, path, preds, types, blocking)
	if popErr := s.solver.Pop(); popErr != nil && err == nil {
		err = popErr
	}
	if err != nil {
		return nil, nil, err
	}
	return outcome, model, nil
}

// check declares the symbols of a path, asserts its predicates under tracking labels and decides them, along with the
// blocking clauses if requested. It must be called within a scope dedicated to the path.
func (s *Session) check(fn *cfg.Function, path Path, preds []Predicate, types map[string]cfg.Type, blocking bool) (*PathOutcome, solver.Model, error) {
	// Declare in a stable order so solver behavior does not depend on map iteration
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.solver.Declare(name, types[name]); err != nil {
			return nil, nil, err
		}
	}
	for _, p := range fn.Params {
		if err := s.solver.Declare(p.Name, p.Type); err != nil {
			return nil, nil, err
		}
	}

	for i, p := range preds {
		if err := s.solver.AssertTracked(predicateLabel(i), p.Expr); err != nil {
			return nil, nil, errors.Wrapf(err, "could not assert '%s'", p.Text)
		}
	}
	if blocking {
		for _, clause := range s.clauses {
			if err := s.solver.Assert(clause); err != nil {
				return nil, nil, errors.Wrap(err, "could not assert blocking clause")
			}
		}
	}

	status, err := s.solver.Check()
	switch status {
	case solver.StatusSat:
		model, err := s.solver.Model(fn.ParamNames()...)
		if err != nil {
			return nil, nil, err
		}
		testCase := &TestCase{
			Function:    fn.Name,
			Params:      fn.ParamNames(),
			Inputs:      make(map[string]solver.Value, len(fn.Params)),
			Constraints: PredicateTexts(preds),
		}
		for _, p := range fn.Params {
			value, ok := model[p.Name]
			if !ok {
				value = solver.UnconstrainedValue(p.Type)
			}
			testCase.Inputs[p.Name] = value
		}
		return &PathOutcome{TestCase: testCase}, model, nil

	case solver.StatusUnsat:
		labels, err := s.solver.UnsatCore()
		if err != nil {
			return nil, nil, err
		}
		return &PathOutcome{Unsat: diagnose(path, preds, labels)}, nil, nil
	}

	if err == nil {
		err = errors.WithStack(solver.ErrUnknown)
	}
	return nil, nil, err
}

// block records that the concrete parameter values of a model may not be reported again. Unconstrained parameters
// do not take part in the clause. Nothing is recorded if no parameter is bound.
func (s *Session) block(params []cfg.Param, model solver.Model) error {
	var equalities []expr.Expr
	for _, p := range params {
		value, ok := model[p.Name]
		if !ok || value.Unconstrained {
			continue
		}
		literal, err := value.Expr()
		if err != nil {
			return err
		}
		equalities = append(equalities, expr.Eq(expr.NewIdent(p.Name), literal))
	}
	if len(equalities) == 0 {
		return nil
	}
	if s.scope == config.BlockingScopeAnalysis {
		s.clauses = append(s.clauses, expr.Not(expr.And(equalities...)))
	}
	s.blocked++
	return nil
}

// diagnose maps unsat core labels back to predicates and collects the source statements of the path up to the last
// step that introduced a core predicate.
func diagnose(path Path, preds []Predicate, labels []string) *UnsatDiagnostic {
	inCore := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		inCore[label] = struct{}{}
	}

	diagnostic := &UnsatDiagnostic{
		Core:       make([]string, 0, len(labels)),
		Statements: make([]SourceStatement, 0),
	}
	last := -1
	for i, p := range preds {
		if _, ok := inCore[predicateLabel(i)]; !ok {
			continue
		}
		diagnostic.Core = append(diagnostic.Core, p.Text)
		if p.Step > last {
			last = p.Step
		}
	}

	for i := 0; i <= last && i < len(path); i++ {
		node := path[i].Node
		if node.Source == "" {
			continue
		}
		diagnostic.Statements = append(diagnostic.Statements, newSourceStatement(node.Pos, node.Source))
	}
	return diagnostic
}
