package expr

// Walk traverses the expression tree in pre-order, calling fn for every sub-expression. Children of an expression
// are skipped if fn returns false for it.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch e := e.(type) {
	case *Unary:
		Walk(e.X, fn)
	case *Binary:
		Walk(e.X, fn)
		Walk(e.Y, fn)
	case *Call:
		for _, arg := range e.Args {
			Walk(arg, fn)
		}
	}
}

// Idents returns the distinct identifier names referenced by the expression, in order of first occurrence.
// Indexed reads are reported by their base name.
func Idents(e Expr) []string {
	var names []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	Walk(e, func(e Expr) bool {
		switch e := e.(type) {
		case *Ident:
			add(e.Name)
		case *Index:
			add(e.Name)
		case *Call:
			// Function names are not symbols, but their arguments may reference some.
			for _, arg := range e.Args {
				for _, name := range Idents(arg) {
					add(name)
				}
			}
			return false
		}
		return true
	})
	return names
}

// Calls returns every call expression contained in the expression, outermost first.
func Calls(e Expr) []*Call {
	var calls []*Call
	Walk(e, func(e Expr) bool {
		if c, ok := e.(*Call); ok {
			calls = append(calls, c)
		}
		return true
	})
	return calls
}

// ContainsCall indicates whether the expression contains any call expression.
func ContainsCall(e Expr) bool {
	return len(Calls(e)) > 0
}

// Map rebuilds the expression bottom-up, replacing every leaf (identifiers, indexed reads and literals) with the
// result of fn. Inner nodes are copied so the input expression is never mutated.
func Map(e Expr, fn func(Expr) Expr) Expr {
	switch e := e.(type) {
	case *Unary:
		return &Unary{Op: e.Op, X: Map(e.X, fn)}
	case *Binary:
		return &Binary{Op: e.Op, X: Map(e.X, fn), Y: Map(e.Y, fn)}
	case *Call:
		args := make([]Expr, len(e.Args))
		for i, arg := range e.Args {
			args[i] = Map(arg, fn)
		}
		return &Call{Func: e.Func, Args: args}
	default:
		return fn(e)
	}
}
