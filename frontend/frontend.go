package frontend

import (
	"bytes"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/printer"
	"go/token"
	"go/types"
	"math"
	"os"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/logging"
	"github.com/pkg/errors"
)

// ErrParse is returned when the input cannot be parsed or type checked.
var ErrParse = errors.New("could not parse input")

// ParseFile reads a Go source file and builds the control-flow graph of each of its top-level functions.
func ParseFile(path string) (*cfg.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ParseSource(path, src)
}

// ParseSource builds the control-flow graph of each top-level function declared in src. Methods, generic functions
// and functions without a body are left out. Functions that cannot be modelled, e.g. because a parameter has an
// unsupported type, are still returned with their Unsupported error set.
func ParseSource(filename string, src []byte) (*cfg.Program, error) {
	logger := logging.GlobalLogger.NewSubLogger("module", logging.FRONTEND_SERVICE)

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, errors.Wrapf(ErrParse, "%v", err)
	}

	info := &types.Info{
		Types: make(map[ast.Expr]types.TypeAndValue),
		Defs:  make(map[*ast.Ident]types.Object),
		Uses:  make(map[*ast.Ident]types.Object),
	}
	var typeErrs []error
	conf := types.Config{
		Importer: importer.ForCompiler(fset, "source", nil),
		Error: func(err error) {
			typeErrs = append(typeErrs, err)
		},
	}
	// Errors are collected by the callback above
	_, _ = conf.Check(file.Name.Name, fset, []*ast.File{file}, info)
	if len(typeErrs) > 0 {
		return nil, errors.Wrapf(ErrParse, "%v", typeErrs[0])
	}

	program, err := cfg.NewProgram(filename, src)
	if err != nil {
		return nil, err
	}
	for _, decl := range file.Decls {
		funcDecl, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if funcDecl.Recv != nil || funcDecl.Body == nil || funcDecl.Type.TypeParams != nil {
			logger.Debug("Skipping ", funcDecl.Name.Name, ": methods, generic and external functions are not analyzed")
			continue
		}

		fb := newFunctionBuilder(fset, info, funcDecl)
		fn := fb.build()
		if fn.Unsupported != nil {
			logger.Debug("Function ", fn.Name, " cannot be analyzed: ", fn.Unsupported.Error())
		} else {
			logger.Trace("Built the graph of ", fn.Name, " with ", len(fn.Nodes), " nodes")
		}
		if err := program.Add(fn); err != nil {
			return nil, err
		}
	}
	return program, nil
}

// sourceText renders a syntax node back to source for diagnostics.
func sourceText(fset *token.FileSet, node any) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, node); err != nil {
		return ""
	}
	return buf.String()
}

// mapType maps a Go type to the type of a symbolic variable.
func mapType(t types.Type) (cfg.Type, bool) {
	if t == nil {
		return cfg.TypeInvalid, false
	}
	basic, ok := t.Underlying().(*types.Basic)
	if !ok {
		return cfg.TypeInvalid, false
	}
	info := basic.Info()
	switch {
	case info&types.IsBoolean != 0:
		return cfg.TypeBool, true
	case info&types.IsInteger != 0:
		return cfg.TypeInt, true
	case info&types.IsFloat != 0:
		return cfg.TypeReal, true
	case info&types.IsString != 0:
		return cfg.TypeString, true
	}
	return cfg.TypeInvalid, false
}

// elemType maps the element type of a slice or array to the type of a symbolic variable.
func elemType(t types.Type) (cfg.Type, bool) {
	switch t := t.Underlying().(type) {
	case *types.Slice:
		return mapType(t.Elem())
	case *types.Array:
		return mapType(t.Elem())
	}
	return cfg.TypeInvalid, false
}

// intRange returns the values a parameter of an unsigned or sized integer type can take, or nil for int and int64.
// Unsigned types are capped at math.MaxInt64 since model values are read back as int64. Wraparound on overflow is
// not modelled.
func intRange(t types.Type) *cfg.Range {
	basic, ok := t.Underlying().(*types.Basic)
	if !ok {
		return nil
	}
	switch basic.Kind() {
	case types.Int8:
		return &cfg.Range{Min: math.MinInt8, Max: math.MaxInt8}
	case types.Int16:
		return &cfg.Range{Min: math.MinInt16, Max: math.MaxInt16}
	case types.Int32:
		return &cfg.Range{Min: math.MinInt32, Max: math.MaxInt32}
	case types.Uint8:
		return &cfg.Range{Min: 0, Max: math.MaxUint8}
	case types.Uint16:
		return &cfg.Range{Min: 0, Max: math.MaxUint16}
	case types.Uint32:
		return &cfg.Range{Min: 0, Max: math.MaxUint32}
	case types.Uint, types.Uint64, types.Uintptr:
		return &cfg.Range{Min: 0, Max: math.MaxInt64}
	}
	return nil
}
