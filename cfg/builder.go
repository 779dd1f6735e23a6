package cfg

import "go/token"

// Builder incrementally constructs a Function. It allocates node identifiers and creates the entry and exit nodes
// up front so callers only need to add and link the body.
type Builder struct {
	fn *Function
}

// NewBuilder creates a builder for a function with the given name and parameters. Parameters are recorded in the
// declaration table automatically.
func NewBuilder(name string, params ...Param) *Builder {
	b := &Builder{
		fn: &Function{
			Name:   name,
			Params: params,
			Decls:  make(DeclarationTable),
		},
	}
	for _, p := range params {
		b.fn.Decls[p.Name] = p.Type
	}
	b.fn.Entry = b.Node(&EntryStmt{Params: params}, "")
	b.fn.Exit = b.Node(&ExitStmt{}, "")
	return b
}

// Entry returns the entry node of the function under construction.
func (b *Builder) Entry() *Node {
	return b.fn.Entry
}

// Exit returns the exit node of the function under construction.
func (b *Builder) Exit() *Node {
	return b.fn.Exit
}

// Node adds a new unlinked node to the function.
func (b *Builder) Node(stmt Stmt, source string) *Node {
	n := &Node{
		ID:     len(b.fn.Nodes),
		Stmt:   stmt,
		Source: source,
	}
	b.fn.Nodes = append(b.fn.Nodes, n)
	return n
}

// NodeAt adds a new unlinked node with a source position.
func (b *Builder) NodeAt(stmt Stmt, source string, pos token.Position) *Node {
	n := b.Node(stmt, source)
	n.Pos = pos
	return n
}

// Link appends the provided successors to the children of from, preserving order.
func (b *Builder) Link(from *Node, to ...*Node) {
	from.Children = append(from.Children, to...)
}

// Declare records the type of a local variable. The declared type of a parameter is never replaced.
func (b *Builder) Declare(name string, t Type) {
	for _, p := range b.fn.Params {
		if p.Name == name {
			return
		}
	}
	b.fn.Decls[name] = t
}

// SetPos records the position of the function declaration.
func (b *Builder) SetPos(pos token.Position) {
	b.fn.Pos = pos
}

// SetUnsupported marks the function as impossible to analyze.
func (b *Builder) SetUnsupported(err error) {
	b.fn.Unsupported = err
}

// Function returns the function under construction.
func (b *Builder) Function() *Function {
	return b.fn
}
