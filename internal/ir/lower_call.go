package ir

import (
	"github.com/xyproto/wist/internal/diag"
)

func (l *lowerer) lowerCall(id int) error {
	return l.lowerCallTo(id, l.tree.Text(id), nil, l.tree.Children(id))
}

// lowerCallTo lowers a call of name. receiver, when set, is pushed by
// value ahead of args. Foreign functions win over internal ones of the
// same name.
func (l *lowerer) lowerCallTo(id int, name string, receiver *Local, args []int) error {
	if l.img.Foreign != nil && l.img.Foreign.HasFunction(name) {
		return l.lowerForeignCall(id, name, receiver, args)
	}
	if callee, ok := l.img.functions[name]; ok {
		return l.lowerInternalCall(id, callee, receiver, args)
	}
	names := make([]string, 0, len(l.img.Functions))
	for _, fn := range l.img.Functions {
		names = append(names, fn.Name)
	}
	return diag.UnknownFunction(l.loc(id), name).WithSuggestion(similar(name, names))
}

// pushArguments evaluates the receiver and arguments left to right and
// checks them against the parameter slot types, leaving them on the stack
func (l *lowerer) pushArguments(id int, name string, receiver *Local, args []int, params []ValueType) error {
	before := l.stack.Depth()
	if receiver != nil {
		l.loadLocal(receiver)
	}
	for _, arg := range args {
		if err := l.lowerNode(arg); err != nil {
			return err
		}
	}
	if got := l.stack.Depth() - before; got != len(params) {
		return diag.TypeMismatch(l.loc(id), "%s takes %d values, got %d", name, len(params), got)
	}
	for i := range params {
		t, _ := l.stack.PeekAt(len(params) - 1 - i)
		if t != params[i] {
			return diag.TypeMismatch(l.loc(id), "argument %d of %s: expected %s, got %s", i+1, name, params[i], t)
		}
	}
	return nil
}

// lowerInternalCall keeps arguments on the stack for the callee, which
// pops them itself when it returns. When the arguments would leave the
// stack misaligned at the call, a padding slot goes in first and the
// caller reclaims it afterwards; that byte count is the call's parameter.
func (l *lowerer) lowerInternalCall(id int, callee *Function, receiver *Local, args []int) error {
	types := make([]ValueType, len(callee.Params))
	for i, p := range callee.Params {
		types[i] = p.Type
	}

	var padBytes int64
	if (l.stack.Depth()+len(types))%2 != 0 {
		l.emit(Instruction{Op: OpPad, Type: None})
		l.stack.PushPadding()
		padBytes = 8
	}
	if err := l.pushArguments(id, callee.Name, receiver, args, types); err != nil {
		return err
	}

	if err := l.stack.Drop(callee.ArgBytes); err != nil {
		return l.locate(id, err)
	}
	if padBytes > 0 {
		if err := l.stack.PopPadding(); err != nil {
			return l.locate(id, err)
		}
	}
	l.emit(Instruction{Op: OpCall, Type: callee.Return, Name: callee.Name, Bytes: padBytes})
	if callee.Return != None {
		l.stack.Push(callee.Return)
	}
	return nil
}

// lowerForeignCall passes arguments in registers, so nothing is left on
// the stack to reclaim after the call. The register table bounds the
// argument count, checked before any argument is lowered.
func (l *lowerer) lowerForeignCall(id int, name string, receiver *Local, args []int) error {
	f, err := l.img.Foreign.Resolve(name)
	if err != nil {
		return l.locate(id, err)
	}
	if n := max(len(f.Params), len(args)); n > l.conv.MaxArgs() {
		return diag.TooManyArguments(l.loc(id), name, n, l.conv.MaxArgs())
	}
	if err := l.pushArguments(id, name, receiver, args, f.Params); err != nil {
		return err
	}
	if err := l.stack.Drop(int64(len(f.Params)) * 8); err != nil {
		return l.locate(id, err)
	}
	l.emit(Instruction{Op: OpCallForeign, Type: f.Return, Name: name, Bytes: 0})
	if f.Return != None {
		l.stack.Push(f.Return)
	}
	return nil
}
