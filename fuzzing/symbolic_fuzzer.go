package fuzzing

import (
	"sort"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/fuzzing/config"
	"github.com/crytic/symfuzz/solver"
	"github.com/pkg/errors"
)

// SymbolicFuzzer produces test cases for one function on demand. Its paths are explored once at creation, and every
// call to Fuzz tries them in reverse order, resuming where the previous call stopped and wrapping around. Blocking
// clauses are kept for the fuzzer's lifetime, so successive test cases differ.
type SymbolicFuzzer struct {
	// fn is the function being fuzzed.
	fn *cfg.Function

	// known maps the functions of the program by name, used to strip call sites from path predicates.
	known map[string]*cfg.Function

	// analysis bounds exploration and the number of attempts per Fuzz call.
	analysis config.AnalysisConfig

	// newSolver creates throwaway solvers used by CanBeSatisfied.
	newSolver solver.Factory

	// session owns the solver that accumulates blocking clauses.
	session *Session

	// paths are the explored paths of the function.
	paths []Path

	// lastPath is the index of the most recently attempted path. It starts past the end of paths.
	lastPath int
}

// NewSymbolicFuzzer creates a SymbolicFuzzer for the named function of a program and explores its paths.
func NewSymbolicFuzzer(program *cfg.Program, name string, newSolver solver.Factory, analysis config.AnalysisConfig) (*SymbolicFuzzer, error) {
	fn, ok := program.Function(name)
	if !ok {
		return nil, errors.Errorf("function '%s' is not defined in %s", name, program.Filename)
	}
	if fn.Unsupported != nil {
		return nil, errors.Wrapf(fn.Unsupported, "cannot fuzz '%s'", name)
	}

	s, err := newSolver()
	if err != nil {
		return nil, errors.Wrap(err, "could not create solver")
	}

	paths := ExplorePaths(fn.Entry, analysis.MaxIter, analysis.MaxDepth)
	return &SymbolicFuzzer{
		fn:        fn,
		known:     program.KnownFunctions(),
		analysis:  analysis,
		newSolver: newSolver,
		session:   NewSession(s, config.BlockingScopeAnalysis),
		paths:     paths,
		lastPath:  len(paths),
	}, nil
}

// Paths returns the explored paths of the function.
func (f *SymbolicFuzzer) Paths() []Path {
	return f.paths
}

// NextPath moves to the previous path, wrapping around to the last path after the first one, and returns it.
func (f *SymbolicFuzzer) NextPath() Path {
	f.lastPath--
	if f.lastPath < 0 {
		f.lastPath = len(f.paths) - 1
	}
	return f.paths[f.lastPath]
}

// Fuzz attempts up to MaxTries paths and returns the test case of the first feasible one. A nil test case is
// returned if no attempted path could be satisfied by an assignment that was not reported before.
func (f *SymbolicFuzzer) Fuzz() (*TestCase, error) {
	if len(f.paths) == 0 {
		return nil, nil
	}
	for i := 0; i < f.analysis.MaxTries; i++ {
		outcome, err := f.SolvePathConstraint(f.NextPath())
		if err != nil {
			return nil, err
		}
		if outcome != nil && outcome.Feasible() {
			return outcome.TestCase, nil
		}
	}
	return nil, nil
}

// SolvePathConstraint solves one path in the fuzzer's session. A nil outcome is returned for paths which cannot be
// solved: those that do not reach the exit, have too few predicates, that the solver cannot express or decide, or
// whose every assignment was already reported.
func (f *SymbolicFuzzer) SolvePathConstraint(path Path) (*PathOutcome, error) {
	preds, _, reason, _ := preparePath(path, f.lastPath, f.known, nil, f.analysis.MinPredicates)
	if reason != "" {
		return nil, nil
	}
	types, err := ResolveTypes(preds, f.fn.Decls)
	if err != nil {
		return nil, err
	}
	outcome, err := f.session.SolvePath(f.fn, path, preds, types)
	if err != nil {
		if _, ok := solverSkipReason(err); ok {
			return nil, nil
		}
		return nil, err
	}
	return outcome, nil
}

// CanBeSatisfied indicates whether the constraints of a path, which may stop short of the function exit, admit a
// solution. It uses a throwaway solver, so blocking clauses of the fuzzer do not apply.
func (f *SymbolicFuzzer) CanBeSatisfied(path Path) (bool, error) {
	if _, ok := invalidStep(path); ok {
		return false, nil
	}
	preds, _ := TranslatePath(path)
	preds, _ = ExtractCallSites(preds, f.known, 0)

	types, err := ResolveTypes(preds, f.fn.Decls)
	if err != nil {
		return false, err
	}

	s, err := f.newSolver()
	if err != nil {
		return false, errors.Wrap(err, "could not create solver")
	}
	defer s.Close()

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.Declare(name, types[name]); err != nil {
			return false, err
		}
	}
	for _, p := range preds {
		if err := s.Assert(p.Expr); err != nil {
			return false, errors.Wrapf(err, "could not assert '%s'", p.Text)
		}
	}
	status, err := s.Check()
	if status == solver.StatusUnknown {
		return false, err
	}
	return status == solver.StatusSat, nil
}

// invalidStep returns the index of the first step taking an edge other than 0 or 1 out of a condition.
func invalidStep(path Path) (int, bool) {
	for i := 1; i < len(path); i++ {
		switch path[i-1].Node.Stmt.(type) {
		case *cfg.BranchStmt, *cfg.LoopStmt:
			if path[i].Choice != 0 && path[i].Choice != 1 {
				return i, true
			}
		}
	}
	return 0, false
}

// BlockingClauses returns the number of test cases the fuzzer has excluded from later calls.
func (f *SymbolicFuzzer) BlockingClauses() int {
	return f.session.BlockingClauses()
}

// Close releases the fuzzer's solver.
func (f *SymbolicFuzzer) Close() {
	f.session.Close()
}
