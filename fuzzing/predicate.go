package fuzzing

import (
	"strings"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
)

// keySeparator joins predicate texts into a canonical path key.
const keySeparator = " ; "

// PredicateKind describes where a Predicate originated.
type PredicateKind int

const (
	// PredicateBinding binds formal parameters to their initial symbolic versions.
	PredicateBinding PredicateKind = iota
	// PredicateAssignment equates a fresh variable version with an assigned value.
	PredicateAssignment
	// PredicateCondition is a branch or loop condition, negated when the false edge was taken.
	PredicateCondition
	// PredicateCall records a call statement. It is consumed by the propagator and never reaches the solver.
	PredicateCall
	// PredicateInjected is a constant constraint injected into a callee analysis from a call site.
	PredicateInjected
)

// String returns a short name for the kind.
func (k PredicateKind) String() string {
	switch k {
	case PredicateBinding:
		return "binding"
	case PredicateAssignment:
		return "assignment"
	case PredicateCondition:
		return "condition"
	case PredicateCall:
		return "call"
	case PredicateInjected:
		return "injected"
	}
	return "unknown"
}

// Predicate is a single constraint of a path in single-assignment form. Predicates are immutable.
type Predicate struct {
	// Kind describes where the predicate originated.
	Kind PredicateKind
	// Expr is the constraint.
	Expr expr.Expr
	// Text is the canonical rendering of Expr.
	Text string
	// Node is the graph node that produced the predicate.
	Node *cfg.Node
	// Step is the index of the path step that produced the predicate.
	Step int
}

// NewPredicate creates a predicate, rendering its canonical text.
func NewPredicate(kind PredicateKind, e expr.Expr, node *cfg.Node, step int) Predicate {
	return Predicate{
		Kind: kind,
		Expr: e,
		Text: e.String(),
		Node: node,
		Step: step,
	}
}

// CanonicalKey joins the texts of the predicates into the key used to detect duplicate paths.
func CanonicalKey(preds []Predicate) string {
	return strings.Join(PredicateTexts(preds), keySeparator)
}

// PredicateTexts returns the texts of the provided predicates.
func PredicateTexts(preds []Predicate) []string {
	texts := make([]string, len(preds))
	for i, p := range preds {
		texts[i] = p.Text
	}
	return texts
}
