package ir

import (
	"fmt"

	"github.com/xyproto/wist/internal/diag"
)

// CallSite records the stack depth a call is made at, in slots, after
// foreign arguments have moved to registers and padding has been added
type CallSite struct {
	Index  int
	Name   string
	Depth  int
	Padded bool // an alignment slot sits under the call
}

// Verify replays a function's instructions through a fresh type stack.
// It checks that every instruction finds the types it expects, that the
// stack is empty after every return, that branches agree on the stack
// shape at their targets and that every call is made with rsp 16-byte
// aligned. A function returning a value must not fall off its end. It
// returns the call sites it saw.
func Verify(img *Image, fn *Function) ([]CallSite, error) {
	ts := NewTypeStack()
	shapes := make(map[string][]ValueType)
	reachable := true
	var sites []CallSite

	// A label is live when code falls into it, when a live jump above it
	// targets it, or when any jump below it does
	defined := make(map[string]int)
	for i, in := range fn.Code {
		if in.Op == OpDefineLabel {
			defined[in.Name] = i
		}
	}
	reached := make(map[string]bool)
	for i, in := range fn.Code {
		if in.Op == OpBr || in.Op == OpBrFalse {
			if d, ok := defined[in.Name]; ok && i > d {
				reached[in.Name] = true
			}
		}
	}

	fail := func(i int, format string, args ...any) error {
		return diag.Internal(diag.Location{Function: fn.Name, Seq: -1}, "instruction %d (%s): %s", i, fn.Code[i], fmt.Sprintf(format, args...))
	}
	jumpTo := func(i int, label string) error {
		if reachable {
			reached[label] = true
		}
		if shape, ok := shapes[label]; ok {
			if !ts.Matches(shape) {
				return fail(i, "stack %s at branch, %v at %s", ts, shape, label)
			}
			return nil
		}
		shapes[label] = ts.Snapshot()
		return nil
	}

	for i, in := range fn.Code {
		var err error
		switch {
		case in.Op == OpNop:
		case in.Op == OpPush:
			ts.Push(in.Type)
		case in.Op == OpPad:
			ts.PushPadding()
		case in.Op == OpDrop:
			err = ts.Drop(in.Bytes)
		case in.Op.IsArithmetic():
			var t ValueType
			t, err = ts.PopPairSame()
			if err == nil && t != in.Type {
				err = fail(i, "operands are %s", t)
			}
		case in.Op.IsComparison():
			var t ValueType
			t, err = ts.PopPairSame()
			if err == nil && t != in.Type {
				err = fail(i, "operands are %s", t)
			}
			ts.Pop()
			ts.Push(I64)
		case in.Op == OpNegate:
			err = ts.PopExpect(I64)
			ts.Push(I64)
		case in.Op == OpLoadLocal:
			ts.Push(in.Type)
		case in.Op == OpGetReference:
			ts.Push(I64)
		case in.Op == OpSetLocal:
			err = ts.PopExpect(in.Type)
		case in.Op == OpReadMem:
			err = ts.PopExpect(I64)
			ts.Push(in.Type)
		case in.Op == OpWriteMem:
			if err = ts.PopExpect(in.Type); err == nil {
				err = ts.PopExpect(I64)
			}
		case in.Op == OpDefineLabel:
			if shape, ok := shapes[in.Name]; ok {
				if !reachable {
					ts.Restore(shape)
				} else if !ts.Matches(shape) {
					err = fail(i, "stack %s falls into a label expecting %v", ts, shape)
				}
			} else {
				shapes[in.Name] = ts.Snapshot()
			}
			reachable = reachable || reached[in.Name]
		case in.Op == OpBr:
			err = jumpTo(i, in.Name)
			reachable = false
		case in.Op == OpBrFalse:
			if err = ts.PopExpect(I64); err == nil {
				err = jumpTo(i, in.Name)
			}
		case in.Op == OpCall:
			callee, ok := img.Function(in.Name)
			if !ok {
				return nil, diag.UnknownFunction(diag.Location{Function: fn.Name, Seq: -1}, in.Name)
			}
			if !ts.Aligned() {
				return nil, fail(i, "call with %d bytes on the stack", ts.Bytes())
			}
			sites = append(sites, CallSite{Index: i, Name: in.Name, Depth: ts.Depth(), Padded: in.Bytes > 0})
			if err = ts.Drop(callee.ArgBytes); err == nil && in.Bytes > 0 {
				err = ts.PopPadding()
			}
			if err == nil && in.Type != None {
				ts.Push(in.Type)
			}
		case in.Op == OpCallForeign:
			var f Foreign
			if img.Foreign == nil {
				return nil, diag.UnresolvedSymbol(diag.Location{Function: fn.Name, Seq: -1}, in.Name)
			}
			f, err = img.Foreign.Resolve(in.Name)
			if err != nil {
				return nil, err
			}
			if err = ts.Drop(int64(len(f.Params)) * 8); err != nil {
				break
			}
			depth := ts.Depth()
			padded := depth%2 != 0
			if padded {
				depth++ // the code generator pads here
			}
			sites = append(sites, CallSite{Index: i, Name: in.Name, Depth: depth, Padded: padded})
			if in.Type != None {
				ts.Push(in.Type)
			}
		case in.Op == OpRet:
			if in.Type != None {
				err = ts.PopExpect(in.Type)
			}
			if err == nil && ts.Depth() != 0 {
				err = fail(i, "%d slots left on the stack at return", ts.Depth())
			}
			reachable = false
		default:
			err = fail(i, "unknown opcode")
		}
		if err != nil {
			return nil, err
		}
	}
	if reachable && fn.Return != None {
		return nil, diag.MissingReturn(fn.Name).WithHelp("control reaches the end of %s without a ret", fn.Name)
	}
	return sites, nil
}
