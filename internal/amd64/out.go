// Completion: 100% - Instruction buffer complete
package amd64

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/engine"
)

// Patch is a rel32 field waiting for the offset of a label
type Patch struct {
	Position int    // offset of the 4-byte displacement
	Target   string // label the displacement points at
}

// Out accumulates machine code. Labels may be referenced before they are
// marked; Finalize patches every reference once the whole program is laid out.
type Out struct {
	buf     bytes.Buffer
	labels  map[string]int
	patches []Patch
	err     error
}

func NewOut() *Out {
	return &Out{labels: make(map[string]int)}
}

func (o *Out) Write(b uint8) {
	o.buf.WriteByte(b)
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, " %x", b)
	}
}

func (o *Out) WriteBytes(bs []byte) {
	o.buf.Write(bs)
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, " [%d bytes]", len(bs))
	}
}

func (o *Out) Write2(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	for _, x := range b {
		o.Write(x)
	}
}

func (o *Out) Write4(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	for _, x := range b {
		o.Write(x)
	}
}

func (o *Out) Write8(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	for _, x := range b {
		o.Write(x)
	}
}

// Len is the current offset, which is where the next byte goes
func (o *Out) Len() int {
	return o.buf.Len()
}

// Bytes returns the code written so far, with unpatched displacements
func (o *Out) Bytes() []byte {
	return o.buf.Bytes()
}

// Align pads with zero bytes up to a multiple of n
func (o *Out) Align(n int) {
	for o.buf.Len()%n != 0 {
		o.buf.WriteByte(0)
	}
}

// fail keeps the first encoding error, reported by Finalize
func (o *Out) fail(err error) {
	if o.err == nil {
		o.err = err
	}
}

// MarkLabel binds label to the current offset
func (o *Out) MarkLabel(label string) {
	if _, exists := o.labels[label]; exists {
		o.fail(diag.DuplicateDeclaration(diag.Location{Seq: -1}, "label", label))
		return
	}
	offset := o.buf.Len()
	o.labels[label] = offset
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "%s: (offset %d)\n", label, offset)
	}
}

// LabelOffset returns the offset a label is bound to
func (o *Out) LabelOffset(label string) (int, bool) {
	offset, ok := o.labels[label]
	return offset, ok
}

// rel32 writes a placeholder displacement to label and records a patch
func (o *Out) rel32(label string) {
	o.patches = append(o.patches, Patch{Position: o.buf.Len(), Target: label})
	o.Write4(0xDEADBEEF)
}

// Patches returns the pending label references
func (o *Out) Patches() []Patch {
	return o.patches
}

// Finalize patches every label reference and returns the finished code
func (o *Out) Finalize() ([]byte, error) {
	if o.err != nil {
		return nil, o.err
	}
	code := o.buf.Bytes()
	for _, p := range o.patches {
		target, ok := o.labels[p.Target]
		if !ok {
			return nil, diag.UnresolvedSymbol(diag.Location{Seq: -1}, p.Target).WithHelp("no label was bound for a jump or call")
		}
		if p.Position+4 > len(code) {
			return nil, diag.Internal(diag.Location{Seq: -1}, "patch for %s at %d is out of bounds", p.Target, p.Position)
		}
		// The displacement is relative to the end of the 4-byte field
		next := p.Position + 4
		displacement := int64(target) - int64(next)
		if displacement < -0x80000000 || displacement > 0x7FFFFFFF {
			return nil, diag.Internal(diag.Location{Seq: -1}, "displacement to %s too large: %d", p.Target, displacement)
		}
		binary.LittleEndian.PutUint32(code[p.Position:], uint32(int32(displacement)))
		if engine.VerboseMode {
			fmt.Fprintf(os.Stderr, "patched %s at 0x%x: displacement %d\n", p.Target, p.Position, displacement)
		}
	}
	return code, nil
}
