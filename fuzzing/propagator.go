package fuzzing

import (
	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
	"github.com/crytic/symfuzz/solver"
	"github.com/pkg/errors"
)

// ErrConstantMismatch indicates that a constant set cannot be applied to a callee's parameters.
var ErrConstantMismatch = errors.New("constant set does not match the callee's parameters")

// ExtractCallSites scans the predicates of one path for calls to known functions. Each argument of such a call
// resolves to a literal when it is one, or when an earlier predicate of the same path equates that exact identifier
// with a literal; the first such predicate wins. Calls with at least one resolved argument yield a ConstantSet.
// The returned predicates exclude call statements and every predicate containing a call to a known function, since
// the solver cannot reason about calls.
func ExtractCallSites(preds []Predicate, known map[string]*cfg.Function, pathIndex int) ([]Predicate, []ConstantSet) {
	kept := make([]Predicate, 0, len(preds))
	var sets []ConstantSet

	for i, p := range preds {
		callsKnown := false
		for _, call := range expr.Calls(p.Expr) {
			if _, ok := known[call.Func]; !ok {
				continue
			}
			callsKnown = true

			set := ConstantSet{
				Callee:    call.Func,
				PathIndex: pathIndex,
				Args:      make([]ConstArg, len(call.Args)),
			}
			resolved := false
			for j, arg := range call.Args {
				set.Args[j] = resolveArgument(arg, preds[:i])
				resolved = resolved || set.Args[j].Known
			}
			if resolved {
				sets = append(sets, set)
			}
		}

		if p.Kind == PredicateCall || callsKnown {
			continue
		}
		kept = append(kept, p)
	}
	return kept, sets
}

// resolveArgument resolves a call argument to a literal using the predicates preceding the call.
func resolveArgument(arg expr.Expr, earlier []Predicate) ConstArg {
	if value, ok := literalValue(arg); ok {
		return ConstArg{Known: true, Value: value}
	}
	ident, ok := arg.(*expr.Ident)
	if !ok {
		return ConstArg{}
	}
	for _, p := range earlier {
		eq, ok := p.Expr.(*expr.Binary)
		if !ok || eq.Op != expr.OpEq {
			continue
		}
		if x, ok := eq.X.(*expr.Ident); ok && x.Name == ident.Name {
			if value, ok := literalValue(eq.Y); ok {
				return ConstArg{Known: true, Value: value}
			}
		}
		if y, ok := eq.Y.(*expr.Ident); ok && y.Name == ident.Name {
			if value, ok := literalValue(eq.X); ok {
				return ConstArg{Known: true, Value: value}
			}
		}
	}
	return ConstArg{}
}

// literalValue converts a literal expression into a value.
func literalValue(e expr.Expr) (solver.Value, bool) {
	switch e := e.(type) {
	case *expr.IntLit:
		return solver.IntValue(e.Value), true
	case *expr.RealLit:
		return solver.RealValue(e.Value), true
	case *expr.StringLit:
		return solver.StringValue(e.Value), true
	case *expr.BoolLit:
		return solver.BoolValue(e.Value), true
	}
	return solver.Value{}, false
}

// injectedConstraints builds the equalities binding a callee's parameters to the resolved constants of a call site.
// An error wrapping ErrConstantMismatch is returned if the argument count or a literal's type does not fit the
// callee's parameters.
func injectedConstraints(fn *cfg.Function, set *ConstantSet) ([]Predicate, error) {
	if len(set.Args) != len(fn.Params) {
		return nil, errors.Wrapf(ErrConstantMismatch, "%s expects %d arguments, call site provides %d",
			fn.Name, len(fn.Params), len(set.Args))
	}

	var preds []Predicate
	for i, arg := range set.Args {
		if !arg.Known {
			continue
		}
		param := fn.Params[i]
		value := arg.Value
		if value.Type != param.Type {
			if value.Type != cfg.TypeInt || param.Type != cfg.TypeReal {
				return nil, errors.Wrapf(ErrConstantMismatch, "parameter '%s' of type %v cannot take %s",
					param.Name, param.Type, value.Text())
			}
		}
		literal, err := value.Expr()
		if err != nil {
			return nil, err
		}
		preds = append(preds, NewPredicate(PredicateInjected, expr.Eq(expr.NewIdent(param.Name), literal), fn.Entry, 0))
	}
	return preds, nil
}

// insertAfterEntry places extra predicates right after the entry binding, or first if there is none.
func insertAfterEntry(preds, extra []Predicate) []Predicate {
	if len(extra) == 0 {
		return preds
	}
	at := 0
	if len(preds) > 0 && preds[0].Kind == PredicateBinding {
		at = 1
	}
	result := make([]Predicate, 0, len(preds)+len(extra))
	result = append(result, preds[:at]...)
	result = append(result, extra...)
	result = append(result, preds[at:]...)
	return result
}
