package fuzzing

import (
	"context"
	"fmt"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/fuzzing/config"
	"github.com/crytic/symfuzz/logging"
	"github.com/crytic/symfuzz/solver"
	"github.com/crytic/symfuzz/utils"
	"github.com/pkg/errors"
)

// Analyzer runs the per-function pipeline: it explores the paths of a function, translates each one into
// single-assignment predicates, deduplicates them, solves them in a dedicated session and finally re-analyzes callees
// with the constants found at their call sites. An Analyzer may be shared between goroutines, as every analysis
// creates its own solver session.
type Analyzer struct {
	// program is the set of functions being analyzed.
	program *cfg.Program

	// analysis bounds exploration and solving.
	analysis config.AnalysisConfig

	// interprocedural configures the follow-up analyses of callees.
	interprocedural config.InterproceduralConfig

	// newSolver creates the solver owned by each analysis.
	newSolver solver.Factory

	// logger describes the Analyzer's log object that can be used to log important events
	logger *logging.Logger
}

// NewAnalyzer creates an Analyzer for the functions of a program.
func NewAnalyzer(program *cfg.Program, projectConfig *config.ProjectConfig, newSolver solver.Factory) *Analyzer {
	return &Analyzer{
		program:         program,
		analysis:        projectConfig.Analysis,
		interprocedural: projectConfig.Interprocedural,
		newSolver:       newSolver,
		logger:          logging.GlobalLogger.NewSubLogger("module", logging.FUZZING_SERVICE),
	}
}

// AnalyzeFunction analyzes the named function, followed by its callees when interprocedural propagation is enabled.
// Internal errors of the analysis are recorded in the returned report rather than returned. An error is only
// returned if the function does not exist or the context was cancelled, in which case the partial report is returned
// alongside it.
func (a *Analyzer) AnalyzeFunction(ctx context.Context, name string) (*FunctionReport, error) {
	fn, ok := a.program.Function(name)
	if !ok {
		return nil, errors.Errorf("function '%s' is not defined in %s", name, a.program.Filename)
	}
	return a.analyze(ctx, fn, nil, 0)
}

// analyze runs one analysis of a function. Constants, if provided, are injected into every path. The hop count is
// the number of calls separating this analysis from the primary one.
func (a *Analyzer) analyze(ctx context.Context, fn *cfg.Function, constants *ConstantSet, hop int) (*FunctionReport, error) {
	report := newFunctionReport(fn.Name, constants)
	if fn.Unsupported != nil {
		report.Error = fn.Unsupported.Error()
		return report, nil
	}

	// Bind the callee parameters to the call site constants. Constants which do not fit the parameters make us fall
	// back to an unconstrained analysis.
	var injected []Predicate
	if constants != nil {
		var err error
		injected, err = injectedConstraints(fn, constants)
		if errors.Is(err, ErrConstantMismatch) {
			a.logger.Debug("Analyzing ", fn.Name, " without call site constants: ", err.Error())
			report.Unconstrained = true
			injected = nil
		} else if err != nil {
			report.Error = err.Error()
			return report, nil
		}
	}

	// Every analysis owns its solver, so blocking clauses never leak between functions.
	s, err := a.newSolver()
	if err != nil {
		report.Error = errors.Wrap(err, "could not create solver").Error()
		return report, nil
	}
	session := NewSession(s, a.analysis.BlockingScope)
	defer session.Close()

	paths := ExplorePaths(fn.Entry, a.analysis.MaxIter, a.analysis.MaxDepth)
	report.PathCount = len(paths)
	known := a.program.KnownFunctions()
	seen := make(map[string]struct{})
	var followUps []ConstantSet

	for i, path := range paths {
		if utils.CheckContextDone(ctx) {
			return report, errors.WithStack(ctx.Err())
		}

		preds, calls, reason, detail := preparePath(path, i, known, injected, a.analysis.MinPredicates)
		if reason != "" {
			a.skip(report, i, reason, detail)
			continue
		}

		key := CanonicalKey(preds)
		if _, ok := seen[key]; ok {
			a.skip(report, i, SkipDuplicate, "")
			continue
		}
		seen[key] = struct{}{}

		types, err := ResolveTypes(preds, fn.Decls)
		if err != nil {
			report.Error = err.Error()
			return report, nil
		}

		outcome, err := session.SolvePath(fn, path, preds, types)
		if err != nil {
			if reason, ok := solverSkipReason(err); ok {
				a.skip(report, i, reason, err.Error())
				continue
			}
			report.Error = err.Error()
			return report, nil
		}

		report.Records = append(report.Records, PathRecord{
			PathIndex: i,
			Key:       key,
			TestCase:  outcome.TestCase,
			Unsat:     outcome.Unsat,
		})
		if outcome.Feasible() {
			followUps = append(followUps, calls...)
		}
	}

	// Re-analyze callees with the constants of their call sites, once per distinct set.
	if !a.interprocedural.Enabled || hop >= a.interprocedural.MaxHops {
		return report, nil
	}
	followUps = utils.SliceUniqueBy(followUps, func(c ConstantSet) string { return c.key() })
	for i := range followUps {
		set := followUps[i]
		callee, ok := a.program.Function(set.Callee)
		if !ok {
			continue
		}
		a.logger.Debug("Analyzing ", set.String(), " from path ", set.PathIndex, " of ", fn.Name)
		followUp, err := a.analyze(ctx, callee, &set, hop+1)
		if followUp != nil {
			report.FollowUps = append(report.FollowUps, followUp)
		}
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// skip records a skipped path and logs the reason.
func (a *Analyzer) skip(report *FunctionReport, pathIndex int, reason SkipReason, detail string) {
	report.addSkipped(pathIndex, reason, detail)
	if detail != "" {
		a.logger.Debug(fmt.Sprintf("Skipping path %d of %s (%s): %s", pathIndex, report.Function, reason, detail))
	} else {
		a.logger.Debug(fmt.Sprintf("Skipping path %d of %s (%s)", pathIndex, report.Function, reason))
	}
}

// preparePath translates a path into the predicates handed to the solver, with injected constants placed after the
// entry binding. Call sites to known functions are returned as constant sets. If the path must not be solved, a
// non-empty skip reason is returned instead.
func preparePath(path Path, pathIndex int, known map[string]*cfg.Function, injected []Predicate, minPredicates int) ([]Predicate, []ConstantSet, SkipReason, string) {
	preds, complete := TranslatePath(path)
	if !complete {
		return nil, nil, SkipIncomplete, "path does not reach the function exit"
	}

	preds, calls := ExtractCallSites(preds, known, pathIndex)
	preds = insertAfterEntry(preds, injected)
	if len(preds) < minPredicates {
		return nil, nil, SkipDegenerate, fmt.Sprintf("%d predicates", len(preds))
	}
	return preds, calls, "", ""
}

// solverSkipReason maps solver errors that only affect a single path to a skip reason.
func solverSkipReason(err error) (SkipReason, bool) {
	switch {
	case errors.Is(err, solver.ErrUnsupported):
		return SkipUnsupported, true
	case errors.Is(err, solver.ErrUnknown):
		return SkipUnknown, true
	case errors.Is(err, ErrPathExhausted):
		return SkipExhausted, true
	}
	return "", false
}
