// typestack.go - Compile-time mirror of the runtime operand stack
package ir

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/engine"
)

// padding marks an untyped slot pushed only to keep rsp 16-byte aligned
const padding = None

// TypeStack tracks the type of every 8-byte slot on the operand stack.
// Depth()*8 is the stack pointer's displacement below the post-prologue
// baseline at every instruction boundary.
type TypeStack struct {
	slots      []ValueType
	operations []string // History of operations for error reports
}

func NewTypeStack() *TypeStack {
	return &TypeStack{
		operations: make([]string, 0, 64),
	}
}

func (ts *TypeStack) record(format string, args ...any) {
	op := fmt.Sprintf(format, args...)
	ts.operations = append(ts.operations, fmt.Sprintf("%s (depth=%d)", op, len(ts.slots)))
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "STACK: %s, depth now %d\n", op, len(ts.slots))
	}
}

// recent returns the last n recorded operations, for error help text
func (ts *TypeStack) recent(n int) string {
	start := max(len(ts.operations)-n, 0)
	return "recent stack operations: " + strings.Join(ts.operations[start:], "; ")
}

// Depth is the number of slots on the stack
func (ts *TypeStack) Depth() int {
	return len(ts.slots)
}

// Bytes is the stack displacement in bytes
func (ts *TypeStack) Bytes() int64 {
	return int64(len(ts.slots)) * 8
}

// Aligned reports whether the stack pointer is 16-byte aligned
func (ts *TypeStack) Aligned() bool {
	return len(ts.slots)%2 == 0
}

func (ts *TypeStack) Push(t ValueType) {
	ts.slots = append(ts.slots, t)
	ts.record("push %s", t)
}

func (ts *TypeStack) Pop() (ValueType, error) {
	if len(ts.slots) == 0 {
		return Invalid, diag.Internal(diag.Location{Seq: -1}, "operand stack underflow").WithHelp("%s", ts.recent(10))
	}
	t := ts.slots[len(ts.slots)-1]
	if t == padding {
		return Invalid, diag.Internal(diag.Location{Seq: -1}, "popped an alignment slot as a value").WithHelp("%s", ts.recent(10))
	}
	ts.slots = ts.slots[:len(ts.slots)-1]
	ts.record("pop %s", t)
	return t, nil
}

// PopExpect pops one slot and fails unless it has type want
func (ts *TypeStack) PopExpect(want ValueType) error {
	got, err := ts.Pop()
	if err != nil {
		return err
	}
	if got != want {
		return diag.TypeMismatch(diag.Location{Seq: -1}, "expected %s on the stack, found %s", want, got)
	}
	return nil
}

// PopPairSame pops two operands of one type and pushes a result of that
// type: the stack effect of a binary operator
func (ts *TypeStack) PopPairSame() (ValueType, error) {
	right, err := ts.Pop()
	if err != nil {
		return Invalid, err
	}
	left, err := ts.Pop()
	if err != nil {
		return Invalid, err
	}
	if left != right {
		return Invalid, diag.TypeMismatch(diag.Location{Seq: -1}, "operands have different types: %s and %s", left, right)
	}
	ts.Push(left)
	return left, nil
}

// Peek returns the type on top without changing the depth
func (ts *TypeStack) Peek() (ValueType, error) {
	if len(ts.slots) == 0 {
		return Invalid, diag.Internal(diag.Location{Seq: -1}, "peek on empty operand stack").WithHelp("%s", ts.recent(10))
	}
	return ts.slots[len(ts.slots)-1], nil
}

// PeekAt returns the type n slots below the top (0 is the top)
func (ts *TypeStack) PeekAt(n int) (ValueType, error) {
	if n < 0 || n >= len(ts.slots) {
		return Invalid, diag.Internal(diag.Location{Seq: -1}, "peek %d slots into a stack of depth %d", n, len(ts.slots))
	}
	return ts.slots[len(ts.slots)-1-n], nil
}

func (ts *TypeStack) PushPadding() {
	ts.slots = append(ts.slots, padding)
	ts.record("push padding")
}

func (ts *TypeStack) PopPadding() error {
	if len(ts.slots) == 0 || ts.slots[len(ts.slots)-1] != padding {
		return diag.Internal(diag.Location{Seq: -1}, "alignment slot is not on top of the stack").WithHelp("%s", ts.recent(10))
	}
	ts.slots = ts.slots[:len(ts.slots)-1]
	ts.record("pop padding")
	return nil
}

// Drop pops byteCount/8 slots of any type
func (ts *TypeStack) Drop(byteCount int64) error {
	if byteCount%8 != 0 {
		return diag.Internal(diag.Location{Seq: -1}, "drop of %d bytes is not slot sized", byteCount)
	}
	n := int(byteCount / 8)
	if n > len(ts.slots) {
		return diag.Internal(diag.Location{Seq: -1}, "drop of %d slots from a stack of depth %d", n, len(ts.slots)).WithHelp("%s", ts.recent(10))
	}
	ts.slots = ts.slots[:len(ts.slots)-n]
	ts.record("drop %d", byteCount)
	return nil
}

// Snapshot copies the current shape of the stack
func (ts *TypeStack) Snapshot() []ValueType {
	return slices.Clone(ts.slots)
}

// Restore resets the stack to a snapshot
func (ts *TypeStack) Restore(shape []ValueType) {
	ts.slots = slices.Clone(shape)
	ts.record("restore")
}

// Matches reports whether the current shape equals a snapshot
func (ts *TypeStack) Matches(shape []ValueType) bool {
	return slices.Equal(ts.slots, shape)
}

func (ts *TypeStack) String() string {
	parts := make([]string, len(ts.slots))
	for i, t := range ts.slots {
		if t == padding {
			parts[i] = "pad"
		} else {
			parts[i] = t.String()
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
