package fuzzing

import (
	"testing"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTranslateBranchPaths verifies that the condition of a branch is negated on the false edge and that parameters
// are bound to their first version.
func TestTranslateBranchPaths(t *testing.T) {
	paths := ExplorePaths(signFunction().Entry, 100, 100)
	require.Len(t, paths, 2)

	preds, complete := TranslatePath(paths[0])
	assert.True(t, complete)
	assert.EqualValues(t, []string{"a == a#0", "a#0 >= 0"}, PredicateTexts(preds))
	assert.EqualValues(t, PredicateBinding, preds[0].Kind)
	assert.EqualValues(t, PredicateCondition, preds[1].Kind)
	assert.EqualValues(t, 1, preds[1].Step)

	preds, complete = TranslatePath(paths[1])
	assert.True(t, complete)
	assert.EqualValues(t, []string{"a == a#0", "!(a#0 >= 0)"}, PredicateTexts(preds))
	assert.EqualValues(t, "a == a#0 ; !(a#0 >= 0)", CanonicalKey(preds))
}

// TestTranslateLoopVersions verifies that every assignment starts a new version and that reads refer to the version
// current at that point of the path.
func TestTranslateLoopVersions(t *testing.T) {
	paths := ExplorePaths(loopFunction().Entry, 100, 10)
	require.GreaterOrEqual(t, len(paths), 2)

	preds, complete := TranslatePath(paths[1])
	assert.True(t, complete)
	assert.EqualValues(t, []string{
		"n == n#0",
		"i#0 == 0",
		"i#0 < n#0",
		"i#1 == (i#0 + 1)",
		"!(i#1 < n#0)",
	}, PredicateTexts(preds))
}

// TestTranslateIndexedAndCalls verifies that indexed elements are flattened into their own variables and that call
// statements are recorded as call predicates.
func TestTranslateIndexedAndCalls(t *testing.T) {
	b := cfg.NewBuilder("f", cfg.Param{Name: "a", Type: cfg.TypeInt})
	b.Declare("xs", cfg.TypeInt)
	store := b.Node(&cfg.IndexAssignStmt{Target: "xs", Index: 1, Value: expr.NewIdent("a")}, "xs[1] = a")
	load := b.Node(&cfg.BranchStmt{Cond: expr.NewBinary(expr.OpGt, &expr.Index{Name: "xs", Index: 1}, expr.NewInt(2))}, "xs[1] > 2")
	call := b.Node(&cfg.CallStmt{Call: &expr.Call{Func: "g", Args: []expr.Expr{expr.NewIdent("a")}}}, "g(a)")
	b.Link(b.Entry(), store)
	b.Link(store, load)
	b.Link(load, call, b.Exit())
	b.Link(call, b.Exit())
	fn := b.Function()

	paths := ExplorePaths(fn.Entry, 100, 100)
	require.Len(t, paths, 2)

	// The false edge completes first as it is the shorter path
	preds, complete := TranslatePath(paths[0])
	assert.True(t, complete)
	assert.EqualValues(t, []string{"a == a#0", "xs[1]#0 == a#0", "!(xs[1]#0 > 2)"}, PredicateTexts(preds))

	preds, complete = TranslatePath(paths[1])
	assert.True(t, complete)
	assert.EqualValues(t, []string{"a == a#0", "xs[1]#0 == a#0", "xs[1]#0 > 2", "g(a#0)"}, PredicateTexts(preds))
	assert.EqualValues(t, PredicateCall, preds[3].Kind)
}

// TestTranslateIncompleteAndMalformed verifies that truncated paths are reported as incomplete, that a condition
// ending a path contributes nothing and that invalid edge choices yield no predicates.
func TestTranslateIncompleteAndMalformed(t *testing.T) {
	fn := signFunction()
	paths := ExplorePaths(fn.Entry, 2, 100)
	require.Len(t, paths, 2)

	preds, complete := TranslatePath(paths[0][:2])
	assert.False(t, complete)
	assert.EqualValues(t, []string{"a == a#0"}, PredicateTexts(preds))

	malformed := Path{paths[0][0], paths[0][1], {Choice: 2, Node: fn.Exit}}
	preds, complete = TranslatePath(malformed)
	assert.False(t, complete)
	assert.Empty(t, preds)
}

// TestResolveTypes verifies that versioned and flattened symbols resolve to the declared type of their variable.
func TestResolveTypes(t *testing.T) {
	decls := cfg.DeclarationTable{"a": cfg.TypeInt, "xs": cfg.TypeReal, "s": cfg.TypeString}
	preds := []Predicate{
		NewPredicate(PredicateBinding, expr.Eq(expr.NewIdent("a"), expr.NewIdent("a#0")), nil, 0),
		NewPredicate(PredicateAssignment, expr.Eq(expr.NewIdent("xs[1]#2"), expr.NewIdent("xs[1]#1")), nil, 1),
		NewPredicate(PredicateCondition, expr.Eq(expr.NewIdent("s#0"), expr.NewString("hi")), nil, 2),
		// Call predicates never reach the solver and are not resolved
		NewPredicate(PredicateCall, &expr.Call{Func: "g", Args: []expr.Expr{expr.NewIdent("unknown#0")}}, nil, 3),
	}

	types, err := ResolveTypes(preds, decls)
	require.NoError(t, err)
	assert.EqualValues(t, map[string]cfg.Type{
		"a":       cfg.TypeInt,
		"a#0":     cfg.TypeInt,
		"xs[1]#2": cfg.TypeReal,
		"xs[1]#1": cfg.TypeReal,
		"s#0":     cfg.TypeString,
	}, types)

	preds = append(preds, NewPredicate(PredicateCondition, expr.NewIdent("zz#0"), nil, 4))
	_, err = ResolveTypes(preds, decls)
	assert.ErrorIs(t, err, ErrUndeclaredIdentifier)
}

// TestTranslateNameCollision verifies that versions of one parameter never share a symbol with another parameter
// whose name looks like a version.
func TestTranslateNameCollision(t *testing.T) {
	b := cfg.NewBuilder("f", cfg.Param{Name: "x", Type: cfg.TypeInt}, cfg.Param{Name: "x_1", Type: cfg.TypeString})
	assign := b.Node(&cfg.AssignStmt{Target: "x", Value: expr.NewInt(5)}, "x = 5")
	b.Link(b.Entry(), assign)
	b.Link(assign, b.Exit())
	fn := b.Function()

	paths := ExplorePaths(fn.Entry, 100, 100)
	require.Len(t, paths, 1)
	preds, complete := TranslatePath(paths[0])
	require.True(t, complete)
	assert.EqualValues(t, []string{"(x == x#0) && (x_1 == x_1#0)", "x#1 == 5"}, PredicateTexts(preds))

	types, err := ResolveTypes(preds, fn.Decls)
	require.NoError(t, err)
	assert.EqualValues(t, cfg.TypeInt, types["x#1"])
	assert.EqualValues(t, cfg.TypeString, types["x_1#0"])
	assert.EqualValues(t, cfg.TypeString, types["x_1"])
}

// TestTranslateParameterRanges verifies that the entry binding restricts ranged parameters to their range.
func TestTranslateParameterRanges(t *testing.T) {
	b := cfg.NewBuilder("f",
		cfg.Param{Name: "u", Type: cfg.TypeInt, Range: &cfg.Range{Min: 0, Max: 255}},
		cfg.Param{Name: "n", Type: cfg.TypeInt})
	b.Link(b.Entry(), b.Exit())

	paths := ExplorePaths(b.Function().Entry, 100, 100)
	require.Len(t, paths, 1)
	preds, complete := TranslatePath(paths[0])
	require.True(t, complete)
	assert.EqualValues(t, []string{"(((u == u#0) && (u#0 >= 0)) && (u#0 <= 255)) && (n == n#0)"}, PredicateTexts(preds))
}
