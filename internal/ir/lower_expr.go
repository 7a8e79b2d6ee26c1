package ir

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xyproto/wist/internal/ast"
	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/engine"
	"github.com/xyproto/wist/internal/sexpr"
)

func similar(name string, candidates []string) []string {
	return engine.FindSimilar(name, candidates, 2)
}

var binaryOps = map[ast.Kind]Opcode{
	ast.KindAdd: OpAdd,
	ast.KindSub: OpSub,
	ast.KindMul: OpMul,
	ast.KindDiv: OpDiv,
	ast.KindMod: OpMod,
	ast.KindEq:  OpEq,
	ast.KindNe:  OpNe,
	ast.KindLt:  OpLt,
	ast.KindLe:  OpLe,
	ast.KindGt:  OpGt,
	ast.KindGe:  OpGe,
}

// lowerIdent loads a local. An identifier that is the target of a set, or
// a bare declaration statement, loads nothing.
func (l *lowerer) lowerIdent(id int) error {
	name := l.tree.Text(id)
	parent := l.tree.Parent(id)
	if parent != ast.NoParent {
		switch {
		case l.tree.Kind(parent) == ast.KindSet && l.tree.ChildIndex(id) == 0:
			_, err := l.lookupLocal(id, name)
			return err
		case l.tree.Kind(parent) == ast.KindBlock && l.tree.Child(id, 0) >= 0:
			return nil
		}
	}

	local, err := l.lookupLocal(id, name)
	if err != nil {
		if _, isFunc := l.img.functions[name]; isFunc {
			return diag.TypeMismatch(l.loc(id), "function %s used as a value", name).WithHelp("take its address with ref")
		}
		return err
	}
	l.loadLocal(local)
	return nil
}

// loadLocal pushes a local's value. An alias pushes its fields in slot
// order, which leaves the first-declared field on top and the fields laid
// out in memory exactly as in the alias's own slots.
func (l *lowerer) loadLocal(local *Local) {
	if local.Kind == Real {
		l.emit(Instruction{Op: OpLoadLocal, Type: local.Type, Name: local.Name})
		l.stack.Push(local.Type)
		return
	}
	for _, f := range local.Fields {
		l.emit(Instruction{Op: OpLoadLocal, Type: f.Type, Name: f.Name})
		l.stack.Push(f.Type)
	}
}

func (l *lowerer) lowerConstant(id int) error {
	text := l.tree.Text(id)
	switch l.tree.Kind(id) {
	case ast.KindInt:
		v, err := sexpr.ParseInteger(text)
		if err != nil {
			return diag.TypeMismatch(l.loc(id), "integer literal %s does not fit in i64", text)
		}
		l.emit(Instruction{Op: OpPush, Type: I64, Const: v})
		l.stack.Push(I64)
	case ast.KindFloat:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return diag.TypeMismatch(l.loc(id), "bad float literal %s", text)
		}
		l.emit(Instruction{Op: OpPush, Type: F64, Float: v})
		l.stack.Push(F64)
	case ast.KindChar:
		r, size := utf8.DecodeRuneInString(text)
		if size == 0 || size != len(text) {
			return diag.TypeMismatch(l.loc(id), "char literal %q must be one character", text)
		}
		l.emit(Instruction{Op: OpPush, Type: I64, Const: int64(r)})
		l.stack.Push(I64)
	}
	return nil
}

// lowerString stores the literal as static data: an 8-byte little endian
// length, the bytes, then a zero byte. The value is the address of the
// first byte, just past the length.
func (l *lowerer) lowerString(id int) error {
	text := l.tree.Text(id)
	blob := make([]byte, 8, 8+len(text)+1)
	binary.LittleEndian.PutUint64(blob, uint64(len(text)))
	blob = append(blob, text...)
	blob = append(blob, 0)

	name := fmt.Sprintf("$str_%d", l.stringCounter)
	l.stringCounter++
	l.img.Static[name] = blob
	l.img.StaticNames = append(l.img.StaticNames, name)

	l.emit(Instruction{Op: OpGetReference, Type: I64, Name: name})
	l.stack.Push(I64)
	l.emit(Instruction{Op: OpPush, Type: I64, Const: 8})
	l.stack.Push(I64)
	l.emit(Instruction{Op: OpAdd, Type: I64})
	_, err := l.stack.PopPairSame()
	return err
}

func (l *lowerer) lowerBinary(id int) error {
	kind := l.tree.Kind(id)
	left, right := l.tree.Child(id, 0), l.tree.Child(id, 1)
	if left < 0 || right < 0 {
		return diag.Internal(l.loc(id), "%s needs two operands", kind)
	}
	if err := l.lowerNode(left); err != nil {
		return err
	}
	if err := l.lowerNode(right); err != nil {
		return err
	}
	t, err := l.stack.PopPairSame()
	if err != nil {
		return l.locate(id, err)
	}
	op := binaryOps[kind]
	if op == OpMod && t == F64 {
		return diag.TypeMismatch(l.loc(id), "mod needs i64 operands, not f64")
	}
	if op.IsComparison() {
		// The result is a 0/1 integer whatever the operand type
		l.stack.Pop()
		l.stack.Push(I64)
	}
	l.emit(Instruction{Op: op, Type: t})
	return nil
}

// lowerNot lowers logical negation: 0 becomes 1, anything else 0
func (l *lowerer) lowerNot(id int) error {
	operand := l.tree.Child(id, 0)
	if operand < 0 {
		return diag.Internal(l.loc(id), "not needs an operand")
	}
	if err := l.lowerNode(operand); err != nil {
		return err
	}
	if err := l.stack.PopExpect(I64); err != nil {
		return diag.TypeMismatch(l.loc(id), "not needs an i64 operand: %v", err)
	}
	l.stack.Push(I64)
	l.emit(Instruction{Op: OpNegate, Type: I64})
	return nil
}

// lowerRef pushes the address of a local, a field, a function or a
// foreign symbol
func (l *lowerer) lowerRef(id int) error {
	target := l.tree.Child(id, 0)
	if target < 0 {
		return diag.Internal(l.loc(id), "ref needs a target")
	}

	var name string
	switch l.tree.Kind(target) {
	case ast.KindIdent:
		name = l.tree.Text(target)
	case ast.KindMember:
		root, path, call := l.memberChain(target)
		if call >= 0 || root < 0 {
			return diag.TypeMismatch(l.loc(target), "cannot take the address of a call result")
		}
		name = path
	default:
		return diag.TypeMismatch(l.loc(target), "cannot take the address of %s", l.tree.Kind(target))
	}

	if _, ok := l.fn.locals[name]; ok {
		if _, err := l.lookupLocal(target, name); err != nil {
			return err
		}
	} else if _, ok := l.img.functions[name]; !ok {
		if l.img.Foreign == nil || !l.img.Foreign.HasFunction(name) {
			return diag.UnresolvedSymbol(l.loc(target), name)
		}
	}

	l.emit(Instruction{Op: OpGetReference, Type: I64, Name: name})
	l.stack.Push(I64)
	return nil
}

// lowerDeref reads a value of the node's type through a pointer
func (l *lowerer) lowerDeref(id int) error {
	t := ParseType(l.tree.Text(id))
	if t != I64 && t != F64 {
		return diag.TypeMismatch(l.loc(id), "cannot load a %s through a pointer", l.tree.Text(id))
	}
	addr := l.tree.Child(id, 0)
	if addr < 0 {
		return diag.Internal(l.loc(id), "deref needs an address")
	}
	if err := l.lowerNode(addr); err != nil {
		return err
	}
	if err := l.stack.PopExpect(I64); err != nil {
		return diag.TypeMismatch(l.loc(addr), "pointer must be i64: %v", err)
	}
	l.emit(Instruction{Op: OpReadMem, Type: t})
	l.stack.Push(t)
	return nil
}

// memberChain walks a member access from the right down to its leftmost
// identifier. It returns that identifier, the dotted path of identifiers
// and the trailing call node, or -1 when the chain does not end in a call.
func (l *lowerer) memberChain(id int) (root int, path string, call int) {
	var parts []string
	call = -1
	node := id
	for l.tree.Kind(node) == ast.KindMember {
		left, right := l.tree.Child(node, 0), l.tree.Child(node, 1)
		if left < 0 || right < 0 {
			return -1, "", -1
		}
		switch l.tree.Kind(right) {
		case ast.KindIdent:
			parts = append(parts, l.tree.Text(right))
		case ast.KindCall:
			if node != id {
				return -1, "", -1
			}
			call = right
		default:
			return -1, "", -1
		}
		node = left
	}
	if l.tree.Kind(node) != ast.KindIdent {
		return -1, "", -1
	}
	parts = append(parts, l.tree.Text(node))
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return node, strings.Join(parts, "."), call
}

// lowerMember lowers value.field loads and value.method(args) calls. A
// method on a structure-typed local v is the function <StructType>.method
// with v passed by value ahead of the other arguments.
func (l *lowerer) lowerMember(id int) error {
	root, path, call := l.memberChain(id)
	if root < 0 {
		return diag.TypeMismatch(l.loc(id), "member access needs an identifier on the left")
	}
	if call < 0 {
		local, err := l.lookupLocal(id, path)
		if err != nil {
			return err
		}
		l.loadLocal(local)
		return nil
	}

	receiver, err := l.lookupLocal(root, path)
	if err != nil {
		return err
	}
	if receiver.Kind != Alias {
		return diag.TypeMismatch(l.loc(id), "%s is a %s, not a structure", path, receiver.Type)
	}
	name := receiver.StructType + "." + l.tree.Text(call)
	return l.lowerCallTo(call, name, receiver, l.tree.Children(call))
}
