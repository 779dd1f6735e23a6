package cfg

import "github.com/crytic/symfuzz/expr"

// Stmt is the closed set of statement classifications a Node can carry. Consumers are expected to switch over the
// concrete types exhaustively.
type Stmt interface {
	stmtNode()
}

// EntryStmt marks the entry of a function and carries its formal parameters.
type EntryStmt struct {
	Params []Param
}

// ExitStmt marks the single exit of a function. Reaching it completes a path.
type ExitStmt struct{}

// BranchStmt is a conditional branch. Child 0 is taken when Cond holds, child 1 when it does not.
type BranchStmt struct {
	Cond expr.Expr
}

// LoopStmt is a loop condition. Child 0 enters the loop body, child 1 leaves the loop.
type LoopStmt struct {
	Cond expr.Expr
}

// AssignStmt assigns Value to Target.
type AssignStmt struct {
	Target string
	Value  expr.Expr
}

// AnnAssignStmt assigns Value to Target while declaring its type.
type AnnAssignStmt struct {
	Target string
	Type   Type
	Value  expr.Expr
}

// IndexAssignStmt assigns Value to the element Index of Target.
type IndexAssignStmt struct {
	Target string
	Index  int
	Value  expr.Expr
}

// ReturnStmt returns from the function.
type ReturnStmt struct {
	Results []expr.Expr
}

// PassStmt does nothing.
type PassStmt struct{}

// CallStmt is a call evaluated for its side effects only.
type CallStmt struct {
	Call *expr.Call
}

// OtherStmt is any statement the front end could not classify. It has no constraint semantics.
type OtherStmt struct {
	Description string
}

func (*EntryStmt) stmtNode()       {}
func (*ExitStmt) stmtNode()        {}
func (*BranchStmt) stmtNode()      {}
func (*LoopStmt) stmtNode()        {}
func (*AssignStmt) stmtNode()      {}
func (*AnnAssignStmt) stmtNode()   {}
func (*IndexAssignStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()      {}
func (*PassStmt) stmtNode()        {}
func (*CallStmt) stmtNode()        {}
func (*OtherStmt) stmtNode()       {}

// StmtKind returns a short name for the statement's classification, used in logs.
func StmtKind(s Stmt) string {
	switch s.(type) {
	case *EntryStmt:
		return "entry"
	case *ExitStmt:
		return "exit"
	case *BranchStmt:
		return "branch"
	case *LoopStmt:
		return "loop"
	case *AssignStmt:
		return "assign"
	case *AnnAssignStmt:
		return "annotated-assign"
	case *IndexAssignStmt:
		return "indexed-assign"
	case *ReturnStmt:
		return "return"
	case *PassStmt:
		return "pass"
	case *CallStmt:
		return "call"
	default:
		return "other"
	}
}
