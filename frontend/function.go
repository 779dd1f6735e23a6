package frontend

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/expr"
	"github.com/pkg/errors"
	gocfg "golang.org/x/tools/go/cfg"
)

// functionBuilder lowers the basic blocks of a Go function into a statement-level control-flow graph.
type functionBuilder struct {
	fset *token.FileSet
	info *types.Info
	decl *ast.FuncDecl
	conv *converter
	b    *cfg.Builder

	// caseTags maps each expression of a switch case to the tag of its switch, or to nil for a tagless switch.
	caseTags map[ast.Expr]ast.Expr

	// first and last hold the first and last node built for each non-empty block.
	first map[*gocfg.Block]*cfg.Node
	last  map[*gocfg.Block]*cfg.Node

	// resolved caches the node an empty block forwards to.
	resolved map[*gocfg.Block]*cfg.Node
}

func newFunctionBuilder(fset *token.FileSet, info *types.Info, decl *ast.FuncDecl) *functionBuilder {
	return &functionBuilder{
		fset:     fset,
		info:     info,
		decl:     decl,
		conv:     &converter{info: info},
		caseTags: make(map[ast.Expr]ast.Expr),
		first:    make(map[*gocfg.Block]*cfg.Node),
		last:     make(map[*gocfg.Block]*cfg.Node),
		resolved: make(map[*gocfg.Block]*cfg.Node),
	}
}

// build returns the graph of the function. A function with a parameter of an unsupported type is returned with only
// its entry and exit nodes and its Unsupported error set.
func (fb *functionBuilder) build() *cfg.Function {
	params, err := fb.params()
	fb.b = cfg.NewBuilder(fb.decl.Name.Name, params...)
	fb.b.SetPos(fb.fset.Position(fb.decl.Pos()))
	if err != nil {
		fb.b.SetUnsupported(err)
		fb.b.Link(fb.b.Entry(), fb.b.Exit())
		return fb.b.Function()
	}

	if err := fb.declareLocals(); err != nil {
		fb.b.SetUnsupported(err)
		fb.b.Link(fb.b.Entry(), fb.b.Exit())
		return fb.b.Function()
	}
	fb.collectCaseTags()

	graph := gocfg.New(fb.decl.Body, fb.mayReturn)
	for _, blk := range graph.Blocks {
		if blk.Live {
			fb.buildBlock(blk)
		}
	}

	fb.b.Link(fb.b.Entry(), fb.resolve(graph.Blocks[0], make(map[*gocfg.Block]bool)))
	for _, blk := range graph.Blocks {
		last, ok := fb.last[blk]
		if !ok {
			continue
		}
		if len(blk.Succs) == 0 {
			// A panicking block never reaches the exit
			if !fb.panics(blk) {
				fb.b.Link(last, fb.b.Exit())
			}
			continue
		}
		for _, succ := range blk.Succs {
			fb.b.Link(last, fb.resolve(succ, make(map[*gocfg.Block]bool)))
		}
	}
	return fb.b.Function()
}

// params maps the formal parameters of the function. Unnamed and blank parameters receive positional names. Integer
// parameters of unsigned or sized types carry the range of values their type admits.
func (fb *functionBuilder) params() ([]cfg.Param, error) {
	var params []cfg.Param
	for _, field := range fb.decl.Type.Params.List {
		typ := fb.info.TypeOf(field.Type)
		mapped, ok := mapType(typ)
		if !ok {
			return nil, errors.Errorf("parameter type %s is not supported", typ)
		}
		valueRange := intRange(typ)
		if len(field.Names) == 0 {
			params = append(params, cfg.Param{Name: fmt.Sprintf("_%d", len(params)), Type: mapped, Range: valueRange})
			continue
		}
		for _, name := range field.Names {
			paramName := name.Name
			if paramName == "_" {
				paramName = fmt.Sprintf("_%d", len(params))
			}
			params = append(params, cfg.Param{Name: paramName, Type: mapped, Range: valueRange})
		}
	}
	return params, nil
}

// declareLocals records the type of every local variable of a supported type. Slices and arrays are declared with
// their element type, since their elements are modelled as separate variables. Variables are identified by name
// alone, so a name declared with two different types, e.g. a local shadowing a parameter, cannot be modelled.
func (fb *functionBuilder) declareLocals() error {
	decls := fb.b.Function().Decls
	var err error
	ast.Inspect(fb.decl.Body, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		ident, ok := n.(*ast.Ident)
		if !ok || ident.Name == "_" {
			return true
		}
		v, ok := fb.info.Defs[ident].(*types.Var)
		if !ok {
			return true
		}
		t, ok := mapType(v.Type())
		if !ok {
			if t, ok = elemType(v.Type()); !ok {
				return true
			}
		}
		if existing, ok := decls.Lookup(ident.Name); ok && existing != t {
			err = errors.Errorf("variable '%s' is declared as both %v and %v", ident.Name, existing, t)
			return false
		}
		fb.b.Declare(ident.Name, t)
		return true
	})
	return err
}

// collectCaseTags records the switch tag compared against each case expression. The control-flow graph keeps the
// case expressions but loses which switch they belong to.
func (fb *functionBuilder) collectCaseTags() {
	ast.Inspect(fb.decl.Body, func(n ast.Node) bool {
		s, ok := n.(*ast.SwitchStmt)
		if !ok {
			return true
		}
		for _, clause := range s.Body.List {
			for _, e := range clause.(*ast.CaseClause).List {
				fb.caseTags[e] = s.Tag
			}
		}
		return true
	})
}

// mayReturn reports whether a call may return. Calls to panic never do.
func (fb *functionBuilder) mayReturn(call *ast.CallExpr) bool {
	return !fb.isPanic(call)
}

// isPanic indicates whether the call is to the builtin panic.
func (fb *functionBuilder) isPanic(call *ast.CallExpr) bool {
	ident, ok := call.Fun.(*ast.Ident)
	if !ok {
		return false
	}
	builtin, ok := fb.info.Uses[ident].(*types.Builtin)
	return ok && builtin.Name() == "panic"
}

// panics indicates whether a block ends with a call to panic.
func (fb *functionBuilder) panics(blk *gocfg.Block) bool {
	if len(blk.Nodes) == 0 {
		return false
	}
	stmt, ok := blk.Nodes[len(blk.Nodes)-1].(*ast.ExprStmt)
	if !ok {
		return false
	}
	call, ok := stmt.X.(*ast.CallExpr)
	return ok && fb.isPanic(call)
}

// buildBlock creates and chains the nodes of a block. The last syntax node of a block with two successors is its
// condition.
func (fb *functionBuilder) buildBlock(blk *gocfg.Block) {
	var nodes []*cfg.Node
	for i, n := range blk.Nodes {
		if i == len(blk.Nodes)-1 && len(blk.Succs) == 2 {
			if e, ok := n.(ast.Expr); ok {
				nodes = append(nodes, fb.conditionNode(blk, e))
				continue
			}
		}
		nodes = append(nodes, fb.statementNodes(n)...)
	}

	// Blocks that branch without a condition, such as range loops, still need a node to branch from
	if len(nodes) == 0 && len(blk.Succs) > 1 {
		nodes = append(nodes, fb.branchlessNode(blk))
	}
	if len(nodes) == 0 {
		return
	}
	for i := 1; i < len(nodes); i++ {
		fb.b.Link(nodes[i-1], nodes[i])
	}
	fb.first[blk] = nodes[0]
	fb.last[blk] = nodes[len(nodes)-1]
}

// resolve returns the node control reaches when entering a block, skipping over empty blocks. A cycle of empty
// blocks becomes a node looping onto itself.
func (fb *functionBuilder) resolve(blk *gocfg.Block, visiting map[*gocfg.Block]bool) *cfg.Node {
	if n, ok := fb.first[blk]; ok {
		return n
	}
	if n, ok := fb.resolved[blk]; ok {
		return n
	}
	if len(blk.Succs) == 0 {
		return fb.b.Exit()
	}
	if visiting[blk] {
		n := fb.b.Node(&cfg.PassStmt{}, "")
		fb.b.Link(n, n)
		fb.resolved[blk] = n
		return n
	}
	visiting[blk] = true
	n := fb.resolve(blk.Succs[0], visiting)
	if _, ok := fb.resolved[blk]; !ok {
		fb.resolved[blk] = n
	}
	return fb.resolved[blk]
}

// conditionNode builds the branch or loop node of a condition. Conditions that cannot be modelled still branch, but
// constrain nothing.
func (fb *functionBuilder) conditionNode(blk *gocfg.Block, e ast.Expr) *cfg.Node {
	source := sourceText(fb.fset, e)
	pos := fb.fset.Position(e.Pos())

	var cond expr.Expr
	var err error
	if tag, ok := fb.caseTags[e]; ok && tag != nil {
		source = sourceText(fb.fset, tag) + " == " + source
		var x, y expr.Expr
		if x, err = fb.conv.convert(tag); err == nil {
			if y, err = fb.conv.convert(e); err == nil {
				cond = expr.Eq(x, y)
			}
		}
	} else {
		cond, err = fb.conv.convert(e)
	}
	if err != nil {
		cond = nil
	}

	if blk.Kind == gocfg.KindForLoop {
		return fb.b.NodeAt(&cfg.LoopStmt{Cond: cond}, source, pos)
	}
	return fb.b.NodeAt(&cfg.BranchStmt{Cond: cond}, source, pos)
}

// branchlessNode builds the node of an empty block with several successors.
func (fb *functionBuilder) branchlessNode(blk *gocfg.Block) *cfg.Node {
	if r, ok := blk.Stmt.(*ast.RangeStmt); ok {
		return fb.b.NodeAt(&cfg.OtherStmt{Description: "range loop"}, "range "+sourceText(fb.fset, r.X), fb.fset.Position(r.Pos()))
	}
	return fb.b.Node(&cfg.OtherStmt{Description: "branch"}, "")
}

// statementNodes lowers one syntax node of a block. It may produce no node at all, e.g. for expressions that are
// only evaluated, or several, e.g. for multiple assignments.
func (fb *functionBuilder) statementNodes(n ast.Node) []*cfg.Node {
	source := sourceText(fb.fset, n)
	pos := fb.fset.Position(n.Pos())
	node := func(stmt cfg.Stmt) *cfg.Node {
		return fb.b.NodeAt(stmt, source, pos)
	}

	switch n := n.(type) {
	case *ast.AssignStmt:
		var nodes []*cfg.Node
		for _, stmt := range fb.assignment(n) {
			nodes = append(nodes, node(stmt))
		}
		return nodes

	case *ast.IncDecStmt:
		ident, ok := n.X.(*ast.Ident)
		if !ok {
			return []*cfg.Node{node(&cfg.OtherStmt{Description: "increment"})}
		}
		t, ok := fb.varType(ident)
		if !ok {
			return nil
		}
		op := expr.OpAdd
		if n.Tok == token.DEC {
			op = expr.OpSub
		}
		value := expr.NewBinary(op, expr.NewIdent(ident.Name), one(t))
		return []*cfg.Node{node(&cfg.AssignStmt{Target: ident.Name, Value: value})}

	case *ast.ExprStmt:
		call, ok := n.X.(*ast.CallExpr)
		if !ok {
			return nil
		}
		if fb.isPanic(call) {
			return []*cfg.Node{node(&cfg.OtherStmt{Description: "panic"})}
		}
		converted, err := fb.conv.call(call)
		if err != nil {
			return []*cfg.Node{node(&cfg.OtherStmt{Description: "call"})}
		}
		return []*cfg.Node{node(&cfg.CallStmt{Call: converted})}

	case *ast.ReturnStmt:
		var results []expr.Expr
		for _, result := range n.Results {
			if converted, err := fb.conv.convert(result); err == nil {
				results = append(results, converted)
			}
		}
		return []*cfg.Node{node(&cfg.ReturnStmt{Results: results})}

	case *ast.ValueSpec:
		var nodes []*cfg.Node
		for _, stmt := range fb.declaration(n) {
			nodes = append(nodes, node(stmt))
		}
		return nodes

	case *ast.EmptyStmt, ast.Expr:
		// Switch tags and range operands are evaluated without effect on the graph
		return nil
	}
	return []*cfg.Node{node(&cfg.OtherStmt{Description: fmt.Sprintf("%T", n)})}
}

// varType returns the symbolic type of the variable an identifier defines or refers to.
func (fb *functionBuilder) varType(ident *ast.Ident) (cfg.Type, bool) {
	obj := fb.info.ObjectOf(ident)
	if obj == nil {
		return cfg.TypeInvalid, false
	}
	return mapType(obj.Type())
}

// assignment lowers an assignment statement. Values that cannot be modelled leave their target unconstrained.
func (fb *functionBuilder) assignment(n *ast.AssignStmt) []cfg.Stmt {
	// a, b = f(x)
	if len(n.Rhs) == 1 && len(n.Lhs) > 1 {
		var stmts []cfg.Stmt
		if call, ok := n.Rhs[0].(*ast.CallExpr); ok {
			if converted, err := fb.conv.call(call); err == nil {
				stmts = append(stmts, &cfg.CallStmt{Call: converted})
			}
		}
		return append(stmts, fb.unconstrained(n.Lhs)...)
	}

	// a, b = b, a reads the old values of both, which sequential assignments would not
	if len(n.Lhs) > 1 && fb.readsTargets(n) {
		return fb.unconstrained(n.Lhs)
	}

	var stmts []cfg.Stmt
	for i := range n.Lhs {
		stmts = append(stmts, fb.singleAssignment(n.Tok, n.Lhs[i], n.Rhs[i])...)
	}
	return stmts
}

// singleAssignment lowers lhs <tok> rhs.
func (fb *functionBuilder) singleAssignment(tok token.Token, lhs, rhs ast.Expr) []cfg.Stmt {
	switch lhs := lhs.(type) {
	case *ast.Ident:
		if lhs.Name == "_" {
			if call, ok := rhs.(*ast.CallExpr); ok {
				if converted, err := fb.conv.call(call); err == nil {
					return []cfg.Stmt{&cfg.CallStmt{Call: converted}}
				}
			}
			return nil
		}

		t, ok := fb.varType(lhs)
		if !ok {
			if lit, ok := rhs.(*ast.CompositeLit); ok {
				return fb.elements(lhs, lit)
			}
			return nil
		}

		value, err := fb.conv.convert(rhs)
		if err != nil {
			value = nil
		}
		if binTok, ok := assignOps[tok]; ok && value != nil {
			if t == cfg.TypeString {
				value = nil
			} else {
				value = expr.NewBinary(binaryOps[binTok], expr.NewIdent(lhs.Name), value)
			}
		} else if tok != token.ASSIGN && tok != token.DEFINE {
			value = nil
		}

		if tok == token.DEFINE && fb.info.Defs[lhs] != nil {
			return []cfg.Stmt{&cfg.AnnAssignStmt{Target: lhs.Name, Type: t, Value: value}}
		}
		return []cfg.Stmt{&cfg.AssignStmt{Target: lhs.Name, Value: value}}

	case *ast.IndexExpr:
		name, ok := lhs.X.(*ast.Ident)
		if !ok {
			return []cfg.Stmt{&cfg.OtherStmt{Description: "indexed assignment"}}
		}
		index, ok := fb.conv.constantIndex(lhs.Index)
		if !ok || tok != token.ASSIGN {
			return []cfg.Stmt{&cfg.OtherStmt{Description: "indexed assignment"}}
		}
		if _, ok := elemType(fb.info.TypeOf(lhs.X)); !ok {
			return []cfg.Stmt{&cfg.OtherStmt{Description: "indexed assignment"}}
		}
		value, err := fb.conv.convert(rhs)
		if err != nil {
			value = nil
		}
		return []cfg.Stmt{&cfg.IndexAssignStmt{Target: name.Name, Index: index, Value: value}}
	}
	return []cfg.Stmt{&cfg.OtherStmt{Description: "assignment"}}
}

// elements lowers the initialization of a slice or array variable from a composite literal.
func (fb *functionBuilder) elements(target *ast.Ident, lit *ast.CompositeLit) []cfg.Stmt {
	if _, ok := elemType(fb.info.TypeOf(lit)); !ok {
		return nil
	}
	var stmts []cfg.Stmt
	index := 0
	for _, elt := range lit.Elts {
		if kv, ok := elt.(*ast.KeyValueExpr); ok {
			i, ok := fb.conv.constantIndex(kv.Key)
			if !ok {
				return nil
			}
			index, elt = i, kv.Value
		}
		value, err := fb.conv.convert(elt)
		if err != nil {
			value = nil
		}
		stmts = append(stmts, &cfg.IndexAssignStmt{Target: target.Name, Index: index, Value: value})
		index++
	}
	return stmts
}

// declaration lowers a var declaration. Variables declared without a value start at their zero value.
func (fb *functionBuilder) declaration(spec *ast.ValueSpec) []cfg.Stmt {
	var stmts []cfg.Stmt
	for i, name := range spec.Names {
		if name.Name == "_" {
			continue
		}
		t, ok := fb.varType(name)
		if !ok {
			if i < len(spec.Values) && len(spec.Values) == len(spec.Names) {
				if lit, ok := spec.Values[i].(*ast.CompositeLit); ok {
					stmts = append(stmts, fb.elements(name, lit)...)
				}
			}
			continue
		}

		var value expr.Expr
		switch {
		case len(spec.Values) == 0:
			value = zeroValue(t)
		case len(spec.Values) == len(spec.Names):
			if converted, err := fb.conv.convert(spec.Values[i]); err == nil {
				value = converted
			}
		}
		stmts = append(stmts, &cfg.AnnAssignStmt{Target: name.Name, Type: t, Value: value})
	}
	return stmts
}

// unconstrained gives each assigned variable a new, unconstrained version.
func (fb *functionBuilder) unconstrained(lhs []ast.Expr) []cfg.Stmt {
	var stmts []cfg.Stmt
	for _, e := range lhs {
		ident, ok := e.(*ast.Ident)
		if !ok || ident.Name == "_" {
			continue
		}
		if _, ok := fb.varType(ident); ok {
			stmts = append(stmts, &cfg.AssignStmt{Target: ident.Name})
		}
	}
	return stmts
}

// readsTargets indicates whether any right-hand side of an assignment refers to a variable assigned by it.
func (fb *functionBuilder) readsTargets(n *ast.AssignStmt) bool {
	targets := make(map[string]struct{}, len(n.Lhs))
	for _, e := range n.Lhs {
		if ident, ok := e.(*ast.Ident); ok {
			targets[ident.Name] = struct{}{}
		}
	}
	found := false
	for _, rhs := range n.Rhs {
		ast.Inspect(rhs, func(node ast.Node) bool {
			if ident, ok := node.(*ast.Ident); ok {
				if _, ok := targets[ident.Name]; ok {
					found = true
				}
			}
			return !found
		})
	}
	return found
}
