package ir

import (
	"slices"

	"github.com/xyproto/wist/internal/ast"
	"github.com/xyproto/wist/internal/diag"
)

// discoverLocals builds the function's locals from its parameters and
// every declaring identifier in its body. A declaring identifier is an
// (ident name type) node. Structure-typed declarations expand into one
// real local per field, last declared field first, plus an alias.
func (l *lowerer) discoverLocals(fn *Function) error {
	l.fn = fn
	defer func() { l.fn = nil }()

	params, _, body, err := l.funcParts(fn.Node)
	if err != nil {
		return err
	}
	for _, p := range l.tree.Children(params) {
		typeNode := l.tree.Child(p, 0)
		if err := l.declare(p, l.tree.Text(p), l.tree.Text(typeNode), -1); err != nil {
			return err
		}
	}

	var declErr error
	l.tree.Walk(body, func(id int) bool {
		if declErr != nil {
			return false
		}
		if l.tree.Kind(id) != ast.KindIdent {
			return true
		}
		typeNode := l.tree.Child(id, 0)
		if typeNode >= 0 && l.tree.Kind(typeNode) == ast.KindType {
			declErr = l.declare(id, l.tree.Text(id), l.tree.Text(typeNode), l.tree.Seq(id))
		}
		return true
	})
	return declErr
}

// declare adds a local named name of type typeName to the current function
func (l *lowerer) declare(id int, name, typeName string, seq int) error {
	fn := l.fn
	if _, exists := fn.locals[name]; exists {
		return diag.DuplicateDeclaration(l.loc(id), "local", name)
	}

	if s, ok := l.img.Structures[typeName]; ok {
		alias := &Local{Name: name, Kind: Alias, Type: Invalid, StructType: s.Name, Seq: seq}
		for _, f := range slices.Backward(s.Fields) {
			field, err := l.addReal(id, name+"."+f.Name, f.Type, seq)
			if err != nil {
				return err
			}
			alias.Fields = append(alias.Fields, field)
		}
		// The first-declared field was added last and sits deepest
		alias.Offset = alias.Fields[len(alias.Fields)-1].Offset
		fn.Locals = append(fn.Locals, alias)
		fn.locals[name] = alias
		return nil
	}

	t, err := l.resolveScalar(id, typeName)
	if err != nil {
		return err
	}
	_, err = l.addReal(id, name, t, seq)
	return err
}

func (l *lowerer) addReal(id int, name string, t ValueType, seq int) (*Local, error) {
	fn := l.fn
	if _, exists := fn.locals[name]; exists {
		return nil, diag.DuplicateDeclaration(l.loc(id), "local", name)
	}
	local := &Local{
		Name:   name,
		Kind:   Real,
		Type:   t,
		Offset: int64(fn.RealLocals()+1) * 8,
		Seq:    seq,
	}
	fn.Locals = append(fn.Locals, local)
	fn.locals[name] = local
	return local, nil
}

// lookupLocal finds a local visible at node id
func (l *lowerer) lookupLocal(id int, name string) (*Local, error) {
	local, ok := l.fn.locals[name]
	if !ok {
		names := make([]string, 0, len(l.fn.Locals))
		for _, loc := range l.fn.Locals {
			names = append(names, loc.Name)
		}
		return nil, diag.UnresolvedSymbol(l.loc(id), name).WithSuggestion(similar(name, names))
	}
	if local.Seq > l.tree.Seq(id) {
		return nil, diag.UnresolvedSymbol(l.loc(id), name).WithHelp("%s is used before its declaration", name)
	}
	return local, nil
}
