package fuzzing

import (
	"strings"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
	"github.com/pkg/errors"
)

// ErrUndeclaredIdentifier indicates that a predicate references a variable whose declared type is unknown. This
// points to a translation bug or an unsupported language construct, so it is treated as an internal error.
var ErrUndeclaredIdentifier = errors.New("identifier has no declared type")

// ResolveTypes collects every symbol referenced by the predicates and resolves its declared type. Symbols are either
// unversioned names, versioned names (name#version) or versioned flattened elements (name[index]#version). Call
// predicates are skipped since they never reach the solver.
func ResolveTypes(preds []Predicate, decls cfg.DeclarationTable) (map[string]cfg.Type, error) {
	types := make(map[string]cfg.Type)
	for _, p := range preds {
		if p.Kind == PredicateCall {
			continue
		}
		for _, name := range expr.Idents(p.Expr) {
			if _, ok := types[name]; ok {
				continue
			}
			t, ok := lookupSymbolType(name, decls)
			if !ok {
				return nil, errors.Wrapf(ErrUndeclaredIdentifier, "'%s' in predicate '%s'", name, p.Text)
			}
			types[name] = t
		}
	}
	return types, nil
}

// lookupSymbolType resolves a symbol to a declared type. The exact name is tried first, then the name with its
// version suffix removed, then the flattened element index removed.
func lookupSymbolType(name string, decls cfg.DeclarationTable) (cfg.Type, bool) {
	if t, ok := decls.Lookup(name); ok {
		return t, true
	}
	base, ok := stripVersion(name)
	if !ok {
		return cfg.TypeInvalid, false
	}
	if t, ok := decls.Lookup(base); ok {
		return t, true
	}
	if base, ok = stripIndex(base); ok {
		return decls.Lookup(base)
	}
	return cfg.TypeInvalid, false
}

// stripVersion removes a trailing "#<digits>" from name.
func stripVersion(name string) (string, bool) {
	idx := strings.LastIndexByte(name, '#')
	if idx <= 0 || !allDigits(name[idx+1:]) {
		return name, false
	}
	return name[:idx], true
}

// stripIndex removes a trailing "[<digits>]" from name.
func stripIndex(name string) (string, bool) {
	if !strings.HasSuffix(name, "]") {
		return name, false
	}
	idx := strings.LastIndexByte(name, '[')
	if idx <= 0 || !allDigits(name[idx+1:len(name)-1]) {
		return name, false
	}
	return name[:idx], true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
