package ir

import (
	"fmt"
	"strings"
)

// LocalKind tells real stack slots apart from structure aliases
type LocalKind int

const (
	Real LocalKind = iota
	Alias
)

// Local is a named stack slot, or an alias naming a group of slots
type Local struct {
	Name string
	Kind LocalKind

	// Real: the slot's type. Alias: Invalid.
	Type ValueType

	// Offset below the frame pointer, the slot lives at [rbp-Offset].
	// For an alias this is the offset of the first-declared field.
	Offset int64

	// Alias only: the fields in slot order (last declared field first)
	// and the structure type they were expanded from.
	Fields     []*Local
	StructType string

	// Sequence number of the declaring node, -1 for parameters
	Seq int
}

// Param is one scalar slot passed on the stack by the caller, in push order
type Param struct {
	Name string // the local the slot is copied into
	Type ValueType
}

// Function is a lowered function
type Function struct {
	Name     string
	Params   []Param
	Return   ValueType
	Locals   []*Local
	Code     []Instruction
	ArgBytes int64 // stack bytes popped by the function when it returns
	Node     int   // declaring tree node

	locals map[string]*Local
}

// Local looks a local up by name
func (fn *Function) Local(name string) (*Local, bool) {
	l, ok := fn.locals[name]
	return l, ok
}

// RealLocals returns the number of physical stack slots
func (fn *Function) RealLocals() int {
	n := 0
	for _, l := range fn.Locals {
		if l.Kind == Real {
			n++
		}
	}
	return n
}

// FrameBytes is the 16-byte aligned size of the function's local slot area
func (fn *Function) FrameBytes() int64 {
	return alignUp(int64(fn.RealLocals())*8, 16)
}

// HasReturn reports whether any Ret instruction was emitted
func (fn *Function) HasReturn() bool {
	for _, in := range fn.Code {
		if in.Op == OpRet {
			return true
		}
	}
	return false
}

// Labels returns every label defined in the function, in definition order
func (fn *Function) Labels() []string {
	var labels []string
	for _, in := range fn.Code {
		if in.Op == OpDefineLabel {
			labels = append(labels, in.Name)
		}
	}
	return labels
}

// String dumps the function as a listing, one instruction per line
func (fn *Function) String() string {
	var sb strings.Builder
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name + " " + p.Type.String()
	}
	fmt.Fprintf(&sb, "%s(%s) -> %s\n", fn.Name, strings.Join(params, ", "), fn.Return)
	for _, l := range fn.Locals {
		if l.Kind == Alias {
			fmt.Fprintf(&sb, "  ; alias %s %s [rbp-%d]\n", l.Name, l.StructType, l.Offset)
		} else {
			fmt.Fprintf(&sb, "  ; local %s %s [rbp-%d]\n", l.Name, l.Type, l.Offset)
		}
	}
	for _, in := range fn.Code {
		if in.Op == OpDefineLabel {
			fmt.Fprintf(&sb, "%s:\n", in.Name)
			continue
		}
		fmt.Fprintf(&sb, "  %s\n", in)
	}
	return sb.String()
}

// Field is one structure member
type Field struct {
	Name string
	Type ValueType
}

// Structure is a declared structure type
type Structure struct {
	Name   string
	Fields []Field
}

// Foreign is a resolved foreign function
type Foreign struct {
	Name   string // library prefix + symbol name
	Addr   uintptr
	Params []ValueType
	Return ValueType
}

// ForeignRegistry imports native libraries and resolves their functions
type ForeignRegistry interface {
	Import(path string) error
	HasFunction(name string) bool
	Resolve(name string) (Foreign, error)
}

// Image is the lowered program: functions, structures, static data and
// the registry foreign calls resolve against. It is not modified after
// lowering returns.
type Image struct {
	Functions   []*Function
	Structures  map[string]*Structure
	StaticNames []string
	Static      map[string][]byte
	Foreign     ForeignRegistry

	functions map[string]*Function
}

func newImage(foreign ForeignRegistry) *Image {
	return &Image{
		Structures: make(map[string]*Structure),
		Static:     make(map[string][]byte),
		Foreign:    foreign,
		functions:  make(map[string]*Function),
	}
}

// Function looks a function up by name
func (img *Image) Function(name string) (*Function, bool) {
	fn, ok := img.functions[name]
	return fn, ok
}

// String dumps every function
func (img *Image) String() string {
	var sb strings.Builder
	for _, name := range img.StaticNames {
		fmt.Fprintf(&sb, "; data %s %q\n", name, img.Static[name])
	}
	for i, fn := range img.Functions {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(fn.String())
	}
	return sb.String()
}

func alignUp(n, align int64) int64 {
	return (n + align - 1) / align * align
}
