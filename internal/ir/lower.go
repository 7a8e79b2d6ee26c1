package ir

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/xyproto/wist/internal/abi"
	"github.com/xyproto/wist/internal/ast"
	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/engine"
)

// Options configures lowering
type Options struct {
	// Foreign resolves imported native functions. It may be nil for
	// programs without imports.
	Foreign ForeignRegistry

	// Convention bounds the argument count of foreign calls
	Convention abi.CallingConvention
}

type lowerer struct {
	tree  *ast.Tree
	img   *Image
	conv  abi.CallingConvention
	fn    *Function
	stack *TypeStack

	labelCounter  int
	stringCounter int
	userLabels    map[string]bool
	gotos         []int // goto nodes of the current function
}

// Lower turns a syntax tree into a program image. The passes run in
// order: imports, structures, function stubs, locals, bodies. The first
// error aborts lowering.
func Lower(tree *ast.Tree, opts Options) (*Image, error) {
	if opts.Convention == nil {
		return nil, diag.Internal(diag.Location{Seq: -1}, "no calling convention given")
	}
	l := &lowerer{
		tree: tree,
		img:  newImage(opts.Foreign),
		conv: opts.Convention,
	}

	if err := l.importLibraries(); err != nil {
		return nil, err
	}
	if err := l.collectStructures(); err != nil {
		return nil, err
	}
	if err := l.collectFunctions(); err != nil {
		return nil, err
	}
	for _, fn := range l.img.Functions {
		if err := l.discoverLocals(fn); err != nil {
			return nil, err
		}
	}
	for _, fn := range l.img.Functions {
		if err := l.lowerFunction(fn); err != nil {
			return nil, err
		}
	}
	if err := l.checkMain(); err != nil {
		return nil, err
	}
	return l.img, nil
}

// loc returns the error location of a node in the current function
func (l *lowerer) loc(id int) diag.Location {
	loc := diag.Location{Seq: -1}
	if id >= 0 {
		loc.Seq = l.tree.Seq(id)
	}
	if l.fn != nil {
		loc.Function = l.fn.Name
	}
	return loc
}

// locate fills in the location of errors raised without one, such as
// those from the type stack
func (l *lowerer) locate(id int, err error) error {
	var ce *diag.CompilerError
	if errors.As(err, &ce) && ce.Location.Function == "" && ce.Location.Seq < 0 {
		ce.Location = l.loc(id)
	}
	return err
}

func (l *lowerer) emit(in Instruction) {
	l.fn.Code = append(l.fn.Code, in)
}

func (l *lowerer) newLabel(prefix string) string {
	l.labelCounter++
	return fmt.Sprintf(".%s_%d", prefix, l.labelCounter)
}

func (l *lowerer) importLibraries() error {
	for _, id := range l.tree.FindAll(l.tree.Root(), ast.KindImport) {
		path := l.tree.Text(id)
		if l.img.Foreign == nil {
			return diag.Internal(l.loc(id), "import %q without a foreign function registry", path)
		}
		if err := l.img.Foreign.Import(path); err != nil {
			return l.locate(id, err)
		}
		if engine.VerboseMode {
			fmt.Fprintf(os.Stderr, "lower: imported %s\n", path)
		}
	}
	return nil
}

// resolveScalar resolves the type of a structure field or scalar declaration
func (l *lowerer) resolveScalar(id int, name string) (ValueType, error) {
	t := ParseType(name)
	if t == Invalid || t == None {
		return Invalid, diag.TypeMismatch(l.loc(id), "unknown type %s", name)
	}
	return t, nil
}

func (l *lowerer) collectStructures() error {
	for _, id := range l.tree.Children(l.tree.Root()) {
		if l.tree.Kind(id) != ast.KindStruct {
			continue
		}
		name := l.tree.Text(id)
		if _, exists := l.img.Structures[name]; exists {
			return diag.DuplicateDeclaration(l.loc(id), "structure", name)
		}
		s := &Structure{Name: name}
		for _, field := range l.tree.Children(id) {
			typeNode := l.tree.Child(field, 0)
			if l.tree.Kind(field) != ast.KindIdent || typeNode < 0 {
				return diag.Internal(l.loc(field), "structure %s: field must be (ident name type)", name)
			}
			fieldName := l.tree.Text(field)
			for _, f := range s.Fields {
				if f.Name == fieldName {
					return diag.DuplicateDeclaration(l.loc(field), "field", name+"."+fieldName)
				}
			}
			t, err := l.resolveScalar(typeNode, l.tree.Text(typeNode))
			if err != nil {
				return err
			}
			s.Fields = append(s.Fields, Field{Name: fieldName, Type: t})
		}
		if len(s.Fields) == 0 {
			return diag.TypeMismatch(l.loc(id), "structure %s has no fields", name)
		}
		l.img.Structures[name] = s
	}
	return nil
}

// funcParts splits a function node into its params, return type and body
func (l *lowerer) funcParts(id int) (params, ret, body int, err error) {
	params, ret, body = l.tree.Child(id, 0), l.tree.Child(id, 1), l.tree.Child(id, 2)
	if params < 0 || ret < 0 || body < 0 ||
		l.tree.Kind(params) != ast.KindParams ||
		l.tree.Kind(ret) != ast.KindType ||
		l.tree.Kind(body) != ast.KindBlock {
		return 0, 0, 0, diag.Internal(l.loc(id), "function %s must be (func name (params ...) type (block ...))", l.tree.Text(id))
	}
	return params, ret, body, nil
}

func (l *lowerer) collectFunctions() error {
	for _, id := range l.tree.Children(l.tree.Root()) {
		if l.tree.Kind(id) != ast.KindFunc {
			continue
		}
		name := l.tree.Text(id)
		if _, exists := l.img.functions[name]; exists {
			return diag.DuplicateDeclaration(l.loc(id), "function", name)
		}
		params, ret, _, err := l.funcParts(id)
		if err != nil {
			return err
		}
		fn := &Function{Name: name, Node: id, locals: make(map[string]*Local)}

		fn.Return = ParseType(l.tree.Text(ret))
		if fn.Return == Invalid {
			return diag.TypeMismatch(l.loc(ret), "function %s: unknown return type %s", name, l.tree.Text(ret))
		}

		for _, p := range l.tree.Children(params) {
			typeNode := l.tree.Child(p, 0)
			if l.tree.Kind(p) != ast.KindIdent || typeNode < 0 {
				return diag.Internal(l.loc(p), "function %s: parameter must be (ident name type)", name)
			}
			pname, tname := l.tree.Text(p), l.tree.Text(typeNode)
			if s, ok := l.img.Structures[tname]; ok {
				// One slot per field, in by-value push order
				for _, f := range slices.Backward(s.Fields) {
					fn.Params = append(fn.Params, Param{Name: pname + "." + f.Name, Type: f.Type})
				}
				continue
			}
			t, err := l.resolveScalar(typeNode, tname)
			if err != nil {
				return err
			}
			fn.Params = append(fn.Params, Param{Name: pname, Type: t})
		}
		fn.ArgBytes = int64(len(fn.Params)) * 8

		l.img.Functions = append(l.img.Functions, fn)
		l.img.functions[name] = fn
	}
	return nil
}

func (l *lowerer) lowerFunction(fn *Function) error {
	l.fn = fn
	l.stack = NewTypeStack()
	l.userLabels = make(map[string]bool)
	l.gotos = nil
	defer func() { l.fn = nil }()

	_, _, body, _ := l.funcParts(fn.Node)
	if err := l.lowerStatement(body); err != nil {
		return err
	}

	for _, g := range l.gotos {
		target := l.tree.Text(g)
		if !l.userLabels[target] {
			return diag.UnresolvedSymbol(l.loc(g), "label "+target)
		}
	}
	if !fn.HasReturn() {
		return diag.MissingReturn(fn.Name)
	}
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "lower: %s: %d instructions, %d locals\n", fn.Name, len(fn.Code), len(fn.Locals))
	}
	return nil
}

func (l *lowerer) checkMain() error {
	main, ok := l.img.functions["main"]
	if !ok {
		return diag.UnresolvedSymbol(diag.Location{Seq: -1}, "main").WithHelp("a program needs a function named main")
	}
	if len(main.Params) != 0 {
		return diag.TypeMismatch(diag.Location{Function: "main", Seq: -1}, "main takes no parameters")
	}
	if main.Return != I64 && main.Return != None {
		return diag.TypeMismatch(diag.Location{Function: "main", Seq: -1}, "main must return i64 or none, not %s", main.Return)
	}
	return nil
}
