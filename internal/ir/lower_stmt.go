package ir

import (
	"slices"

	"github.com/xyproto/wist/internal/ast"
	"github.com/xyproto/wist/internal/diag"
)

// lowerStatement lowers one statement and discards any value it leaves
// behind, so every statement ends at the depth it started at
func (l *lowerer) lowerStatement(id int) error {
	start := l.stack.Depth()
	if err := l.lowerNode(id); err != nil {
		return err
	}
	extra := l.stack.Depth() - start
	switch {
	case extra > 0:
		bytes := int64(extra) * 8
		if err := l.stack.Drop(bytes); err != nil {
			return l.locate(id, err)
		}
		l.emit(Instruction{Op: OpDrop, Type: None, Bytes: bytes})
	case extra < 0:
		return diag.Internal(l.loc(id), "%s statement consumed %d slots it did not push", l.tree.Kind(id), -extra)
	}
	return nil
}

func (l *lowerer) lowerNode(id int) error {
	switch kind := l.tree.Kind(id); kind {
	case ast.KindBlock:
		for _, c := range l.tree.Children(id) {
			if err := l.lowerStatement(c); err != nil {
				return err
			}
		}
		return nil
	case ast.KindImport, ast.KindType, ast.KindParams:
		return nil
	case ast.KindIdent:
		return l.lowerIdent(id)
	case ast.KindSet:
		return l.lowerSet(id)
	case ast.KindInt, ast.KindFloat, ast.KindChar:
		return l.lowerConstant(id)
	case ast.KindString:
		return l.lowerString(id)
	case ast.KindNot:
		return l.lowerNot(id)
	case ast.KindRef:
		return l.lowerRef(id)
	case ast.KindDeref:
		return l.lowerDeref(id)
	case ast.KindMember:
		return l.lowerMember(id)
	case ast.KindCall:
		return l.lowerCall(id)
	case ast.KindRet:
		return l.lowerRet(id)
	case ast.KindIf:
		return l.lowerIf(id)
	case ast.KindFor:
		return l.lowerFor(id)
	case ast.KindLabel:
		return l.lowerLabel(id)
	case ast.KindGoto:
		l.gotos = append(l.gotos, id)
		l.emit(Instruction{Op: OpBr, Name: l.tree.Text(id)})
		return nil
	default:
		if kind.IsBinary() {
			return l.lowerBinary(id)
		}
		return diag.Internal(l.loc(id), "unexpected %s node", kind)
	}
}

// lowerSet evaluates the value, then stores it into the target
func (l *lowerer) lowerSet(id int) error {
	target, value := l.tree.Child(id, 0), l.tree.Child(id, 1)
	if target < 0 || value < 0 {
		return diag.Internal(l.loc(id), "set needs a target and a value")
	}

	switch l.tree.Kind(target) {
	case ast.KindIdent:
		// Resolves the target name; emits no load since the parent is a set
		if err := l.lowerIdent(target); err != nil {
			return err
		}
		local, err := l.lookupLocal(target, l.tree.Text(target))
		if err != nil {
			return err
		}
		if err := l.lowerNode(value); err != nil {
			return err
		}
		return l.storeLocal(target, local)

	case ast.KindMember:
		root, path, call := l.memberChain(target)
		if call >= 0 || root < 0 {
			return diag.TypeMismatch(l.loc(target), "cannot assign to a call result")
		}
		local, err := l.lookupLocal(target, path)
		if err != nil {
			return err
		}
		if err := l.lowerNode(value); err != nil {
			return err
		}
		return l.storeLocal(target, local)

	case ast.KindDeref:
		t := ParseType(l.tree.Text(target))
		if t != I64 && t != F64 {
			return diag.TypeMismatch(l.loc(target), "cannot store a %s through a pointer", l.tree.Text(target))
		}
		addr := l.tree.Child(target, 0)
		if addr < 0 {
			return diag.Internal(l.loc(target), "deref needs an address")
		}
		if err := l.lowerNode(addr); err != nil {
			return err
		}
		if err := l.stack.PopExpect(I64); err != nil {
			return l.locate(addr, err)
		}
		l.stack.Push(I64)
		if err := l.lowerNode(value); err != nil {
			return err
		}
		if err := l.stack.PopExpect(t); err != nil {
			return l.locate(value, err)
		}
		if err := l.stack.PopExpect(I64); err != nil {
			return l.locate(target, err)
		}
		l.emit(Instruction{Op: OpWriteMem, Type: t})
		return nil

	default:
		return diag.TypeMismatch(l.loc(target), "cannot assign to %s", l.tree.Kind(target))
	}
}

// storeLocal pops the value on top of the stack into local. An alias
// takes one value per field with the first-declared field on top.
func (l *lowerer) storeLocal(id int, local *Local) error {
	if local.Kind == Real {
		if err := l.stack.PopExpect(local.Type); err != nil {
			return diag.TypeMismatch(l.loc(id), "cannot assign to %s %s: %v", local.Type, local.Name, err)
		}
		l.emit(Instruction{Op: OpSetLocal, Type: local.Type, Name: local.Name})
		return nil
	}
	for _, f := range slices.Backward(local.Fields) {
		if err := l.stack.PopExpect(f.Type); err != nil {
			return diag.TypeMismatch(l.loc(id), "cannot assign to %s %s: %v", local.StructType, local.Name, err)
		}
		l.emit(Instruction{Op: OpSetLocal, Type: f.Type, Name: f.Name})
	}
	return nil
}

func (l *lowerer) lowerRet(id int) error {
	value := l.tree.Child(id, 0)
	if value < 0 {
		if l.fn.Return != None {
			return diag.TypeMismatch(l.loc(id), "%s must return a %s value", l.fn.Name, l.fn.Return)
		}
	} else {
		if err := l.lowerNode(value); err != nil {
			return err
		}
		t, err := l.stack.Pop()
		if err != nil {
			return l.locate(value, err)
		}
		if t != l.fn.Return {
			return diag.TypeMismatch(l.loc(id), "%s returns %s, not %s", l.fn.Name, l.fn.Return, t)
		}
	}
	if l.stack.Depth() != 0 {
		return diag.Internal(l.loc(id), "return with %d slots left on the stack: %s", l.stack.Depth(), l.stack)
	}
	l.emit(Instruction{Op: OpRet, Type: l.fn.Return})
	return nil
}

// lowerCondition evaluates a condition and branches to target when it is zero
func (l *lowerer) lowerCondition(cond int, target string) error {
	if err := l.lowerNode(cond); err != nil {
		return err
	}
	t, err := l.stack.Pop()
	if err != nil {
		return l.locate(cond, err)
	}
	if t != I64 {
		return diag.TypeMismatch(l.loc(cond), "condition must be i64, not %s", t)
	}
	l.emit(Instruction{Op: OpBrFalse, Type: I64, Name: target})
	return nil
}

// lowerIf lowers an if/elif/else chain. Every arm branches to one shared
// end label and must leave the stack in the same shape; a missing else
// counts as an empty arm.
func (l *lowerer) lowerIf(id int) error {
	children := l.tree.Children(id)
	if len(children) < 2 {
		return diag.Internal(l.loc(id), "if needs a condition and a block")
	}

	type arm struct{ cond, body int }
	arms := []arm{{children[0], children[1]}}
	elseBody := -1

	rest := slices.Clone(children[2:])
	slices.SortFunc(rest, func(a, b int) int { return l.tree.Seq(a) - l.tree.Seq(b) })
	for _, c := range rest {
		switch l.tree.Kind(c) {
		case ast.KindElif:
			cond, body := l.tree.Child(c, 0), l.tree.Child(c, 1)
			if cond < 0 || body < 0 || elseBody >= 0 {
				return diag.Internal(l.loc(c), "malformed elif")
			}
			arms = append(arms, arm{cond, body})
		case ast.KindElse:
			if elseBody >= 0 || l.tree.Child(c, 0) < 0 {
				return diag.Internal(l.loc(c), "malformed else")
			}
			elseBody = l.tree.Child(c, 0)
		default:
			return diag.Internal(l.loc(c), "unexpected %s in if", l.tree.Kind(c))
		}
	}

	end := l.newLabel("endif")
	entry := l.stack.Snapshot()
	var shape []ValueType
	haveShape := false
	checkShape := func(at int) error {
		if !haveShape {
			shape, haveShape = l.stack.Snapshot(), true
			return nil
		}
		if !l.stack.Matches(shape) {
			return diag.TypeMismatch(l.loc(at), "branches leave different stacks: %v and %s", shape, l.stack)
		}
		return nil
	}

	for _, a := range arms {
		l.stack.Restore(entry)
		next := l.newLabel("else")
		if err := l.lowerCondition(a.cond, next); err != nil {
			return err
		}
		if err := l.lowerStatement(a.body); err != nil {
			return err
		}
		if err := checkShape(a.body); err != nil {
			return err
		}
		l.emit(Instruction{Op: OpBr, Name: end})
		l.emit(Instruction{Op: OpDefineLabel, Name: next})
	}

	l.stack.Restore(entry)
	if elseBody >= 0 {
		if err := l.lowerStatement(elseBody); err != nil {
			return err
		}
	}
	if err := checkShape(id); err != nil {
		return err
	}
	l.emit(Instruction{Op: OpDefineLabel, Name: end})
	return nil
}

// lowerFor lowers (for init cond step body)
func (l *lowerer) lowerFor(id int) error {
	init, cond, step, body := l.tree.Child(id, 0), l.tree.Child(id, 1), l.tree.Child(id, 2), l.tree.Child(id, 3)
	if init < 0 || cond < 0 || step < 0 || body < 0 {
		return diag.Internal(l.loc(id), "for needs init, condition, step and body")
	}
	if err := l.lowerStatement(init); err != nil {
		return err
	}
	start, end := l.newLabel("for"), l.newLabel("endfor")
	l.emit(Instruction{Op: OpDefineLabel, Name: start})
	if err := l.lowerCondition(cond, end); err != nil {
		return err
	}
	if err := l.lowerStatement(body); err != nil {
		return err
	}
	if err := l.lowerStatement(step); err != nil {
		return err
	}
	l.emit(Instruction{Op: OpBr, Name: start})
	l.emit(Instruction{Op: OpDefineLabel, Name: end})
	return nil
}

func (l *lowerer) lowerLabel(id int) error {
	name := l.tree.Text(id)
	if l.userLabels[name] {
		return diag.DuplicateDeclaration(l.loc(id), "label", name)
	}
	l.userLabels[name] = true
	l.emit(Instruction{Op: OpDefineLabel, Name: name})
	return nil
}
