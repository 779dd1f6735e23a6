package fuzzing

import (
	"strconv"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
)

// ssaName renders the single-assignment name of a variable version as name#version. Go identifiers cannot contain
// '#', so a version never collides with a declared name.
func ssaName(name string, version int) string {
	return name + "#" + strconv.Itoa(version)
}

// flatName renders the name used for a single element of an indexed variable as name[index].
func flatName(name string, index int) string {
	return name + "[" + strconv.Itoa(index) + "]"
}

// ssaEnv maps a variable name to its current version while translating one path.
type ssaEnv map[string]int

// current returns the name of the current version of a variable. A variable that was never seen starts at version 0.
func (env ssaEnv) current(name string) string {
	version, ok := env[name]
	if !ok {
		env[name] = 0
	}
	return ssaName(name, version)
}

// fresh allocates a new version of a variable and returns its name.
func (env ssaEnv) fresh(name string) string {
	version, ok := env[name]
	if ok {
		version++
	}
	env[name] = version
	return ssaName(name, version)
}

// rename rewrites every variable reference in e to its current version. Indexed reads refer to the flattened
// element variable.
func (env ssaEnv) rename(e expr.Expr) expr.Expr {
	return expr.Map(e, func(leaf expr.Expr) expr.Expr {
		switch leaf := leaf.(type) {
		case *expr.Ident:
			return expr.NewIdent(env.current(leaf.Name))
		case *expr.Index:
			return expr.NewIdent(env.current(flatName(leaf.Name, leaf.Index)))
		}
		return leaf
	})
}

// TranslatePath converts a path into its ordered single-assignment predicates. The boolean result reports whether
// the path reached the function exit. A path taking an edge index other than 0 or 1 out of a branch or loop
// condition is malformed and yields no predicates.
func TranslatePath(path Path) ([]Predicate, bool) {
	env := make(ssaEnv)
	var preds []Predicate
	complete := false

	for i, step := range path {
		node := step.Node
		switch stmt := node.Stmt.(type) {
		case *cfg.EntryStmt:
			if len(stmt.Params) == 0 {
				continue
			}
			bindings := make([]expr.Expr, 0, len(stmt.Params))
			for _, p := range stmt.Params {
				version := expr.NewIdent(env.fresh(p.Name))
				bindings = append(bindings, expr.Eq(expr.NewIdent(p.Name), version))
				if p.Range != nil {
					bindings = append(bindings,
						expr.NewBinary(expr.OpGe, version, expr.NewInt(p.Range.Min)),
						expr.NewBinary(expr.OpLe, version, expr.NewInt(p.Range.Max)))
				}
			}
			preds = append(preds, NewPredicate(PredicateBinding, expr.And(bindings...), node, i))

		case *cfg.ExitStmt:
			complete = true

		case *cfg.BranchStmt, *cfg.LoopStmt:
			// The condition's polarity is decided by the edge taken out of this node. A condition ending a
			// truncated path has no outgoing edge and contributes nothing.
			if i+1 >= len(path) {
				continue
			}
			cond := condition(stmt)
			if cond == nil {
				continue
			}
			renamed := env.rename(cond)
			switch path[i+1].Choice {
			case 0:
			case 1:
				renamed = expr.Not(renamed)
			default:
				return nil, false
			}
			preds = append(preds, NewPredicate(PredicateCondition, renamed, node, i))

		case *cfg.AssignStmt:
			preds = assignment(preds, env, stmt.Target, stmt.Value, node, i)
		case *cfg.AnnAssignStmt:
			preds = assignment(preds, env, stmt.Target, stmt.Value, node, i)
		case *cfg.IndexAssignStmt:
			preds = assignment(preds, env, flatName(stmt.Target, stmt.Index), stmt.Value, node, i)

		case *cfg.CallStmt:
			preds = append(preds, NewPredicate(PredicateCall, env.rename(stmt.Call), node, i))

		case *cfg.ReturnStmt, *cfg.PassStmt, *cfg.OtherStmt:
			// No constraint semantics
		}
	}
	return preds, complete
}

// condition returns the condition of a branch or loop statement.
func condition(stmt cfg.Stmt) expr.Expr {
	switch stmt := stmt.(type) {
	case *cfg.BranchStmt:
		return stmt.Cond
	case *cfg.LoopStmt:
		return stmt.Cond
	}
	return nil
}

// assignment appends target_v == value', renaming the value before the target receives its fresh version. A
// declaration without a value only starts a new version.
func assignment(preds []Predicate, env ssaEnv, target string, value expr.Expr, node *cfg.Node, step int) []Predicate {
	if value == nil {
		env.fresh(target)
		return preds
	}
	renamed := env.rename(value)
	return append(preds, NewPredicate(PredicateAssignment, expr.Eq(expr.NewIdent(env.fresh(target)), renamed), node, step))
}
