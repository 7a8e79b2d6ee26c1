package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcode is an IR operation of the stack machine
type Opcode int

const (
	OpNop Opcode = iota
	OpPush
	OpPad
	OpDrop
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpNegate
	OpLoadLocal
	OpSetLocal
	OpGetReference
	OpReadMem
	OpWriteMem
	OpDefineLabel
	OpBr
	OpBrFalse
	OpCall
	OpCallForeign
	OpRet
)

var opcodeNames = [...]string{
	OpNop:          "Nop",
	OpPush:         "Push",
	OpPad:          "Pad",
	OpDrop:         "Drop",
	OpAdd:          "Add",
	OpSub:          "Sub",
	OpMul:          "Mul",
	OpDiv:          "Div",
	OpMod:          "Mod",
	OpEq:           "CheckEquality",
	OpNe:           "CheckInequality",
	OpLt:           "CheckLessThan",
	OpLe:           "CheckLessOrEquals",
	OpGt:           "CheckGreaterThan",
	OpGe:           "CheckGreaterOrEquals",
	OpNegate:       "Negate",
	OpLoadLocal:    "LoadLocal",
	OpSetLocal:     "SetLocal",
	OpGetReference: "GetReference",
	OpReadMem:      "ReadMem",
	OpWriteMem:     "WriteMem",
	OpDefineLabel:  "DefineLabel",
	OpBr:           "Br",
	OpBrFalse:      "BrFalse",
	OpCall:         "Call",
	OpCallForeign:  "CallForeign",
	OpRet:          "Ret",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return "Op(" + strconv.Itoa(int(o)) + ")"
}

// IsComparison reports whether the opcode pushes a 0/1 result of comparing two values
func (o Opcode) IsComparison() bool {
	return o >= OpEq && o <= OpGe
}

// IsArithmetic reports whether the opcode is a binary arithmetic operation
func (o Opcode) IsArithmetic() bool {
	return o >= OpAdd && o <= OpMod
}

// IsCall reports whether the opcode transfers control to another function
func (o Opcode) IsCall() bool {
	return o == OpCall || o == OpCallForeign
}

// Instruction is one IR instruction. Which parameters are used depends on Op:
//
//	Push         Const (I64) or Float (F64)
//	Drop         Bytes
//	LoadLocal    Name
//	SetLocal     Name
//	GetReference Name
//	DefineLabel  Name
//	Br, BrFalse  Name (label)
//	Call         Name (function), Bytes (reclaimed by the caller)
//	CallForeign  Name (qualified foreign name), Bytes
//
// Type is the type the instruction consumes or produces.
type Instruction struct {
	Op    Opcode
	Type  ValueType
	Const int64
	Float float64
	Name  string
	Bytes int64
}

func (in Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	if in.Type != Invalid {
		sb.WriteByte('.')
		sb.WriteString(in.Type.Suffix())
	}
	switch in.Op {
	case OpPush:
		if in.Type == F64 {
			fmt.Fprintf(&sb, " %g", in.Float)
		} else {
			fmt.Fprintf(&sb, " %d", in.Const)
		}
	case OpDrop:
		fmt.Fprintf(&sb, " %d", in.Bytes)
	case OpLoadLocal, OpSetLocal, OpGetReference, OpDefineLabel, OpBr, OpBrFalse:
		sb.WriteString(" " + in.Name)
	case OpCall, OpCallForeign:
		fmt.Fprintf(&sb, " %s %d", in.Name, in.Bytes)
	}
	return sb.String()
}
