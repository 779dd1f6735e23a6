package cfg

import (
	"fmt"
	"go/token"

	"github.com/pkg/errors"
)

// Node is a single statement within a function's control-flow graph. Nodes are owned by the front end that built
// them and are treated as read-only by every consumer.
type Node struct {
	// ID is unique within the owning Function.
	ID int
	// Stmt classifies the statement.
	Stmt Stmt
	// Children are the ordered successors. For branch and loop nodes, index 0 is the true edge and index 1 is the
	// false edge.
	Children []*Node
	// Pos is the source position of the statement, if known.
	Pos token.Position
	// Source is the statement's source text, used for diagnostics.
	Source string
}

// String returns a short description of the node.
func (n *Node) String() string {
	if n.Source != "" {
		return fmt.Sprintf("#%d %s: %s", n.ID, StmtKind(n.Stmt), n.Source)
	}
	return fmt.Sprintf("#%d %s", n.ID, StmtKind(n.Stmt))
}

// Function is the control-flow graph of a single function.
type Function struct {
	// Name is the function name.
	Name string
	// Params are the formal parameters in declaration order.
	Params []Param
	// Entry is the entry node, carrying an EntryStmt.
	Entry *Node
	// Exit is the exit node, carrying an ExitStmt.
	Exit *Node
	// Nodes contains every node of the graph, indexed by ID.
	Nodes []*Node
	// Decls maps every declared variable of the function to its type.
	Decls DeclarationTable
	// Pos is the source position of the function declaration.
	Pos token.Position
	// Unsupported is set by the front end when the function cannot be analyzed, e.g. because a parameter has a
	// type that cannot be modelled.
	Unsupported error
}

// ParamNames returns the names of the formal parameters in declaration order.
func (f *Function) ParamNames() []string {
	names := make([]string, len(f.Params))
	for i, p := range f.Params {
		names[i] = p.Name
	}
	return names
}

// Program is the set of functions extracted from a single source file.
type Program struct {
	// Filename is the path of the source file the program was built from.
	Filename string
	// Source is the raw source the program was built from.
	Source []byte
	// Functions are listed in source order.
	Functions []*Function

	byName map[string]*Function
}

// NewProgram creates a program from the provided functions, which must have unique names.
func NewProgram(filename string, source []byte, functions ...*Function) (*Program, error) {
	p := &Program{
		Filename: filename,
		Source:   source,
		byName:   make(map[string]*Function, len(functions)),
	}
	for _, fn := range functions {
		if err := p.Add(fn); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add appends a function to the program.
func (p *Program) Add(fn *Function) error {
	if p.byName == nil {
		p.byName = make(map[string]*Function)
	}
	if _, exists := p.byName[fn.Name]; exists {
		return errors.Errorf("function '%s' is defined more than once", fn.Name)
	}
	p.byName[fn.Name] = fn
	p.Functions = append(p.Functions, fn)
	return nil
}

// Function looks a function up by name.
func (p *Program) Function(name string) (*Function, bool) {
	fn, ok := p.byName[name]
	return fn, ok
}

// KnownFunctions returns the set of function names defined by the program.
func (p *Program) KnownFunctions() map[string]*Function {
	known := make(map[string]*Function, len(p.byName))
	for name, fn := range p.byName {
		known[name] = fn
	}
	return known
}
