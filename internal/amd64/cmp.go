// Completion: 100% - Instruction implementation complete
package amd64

import (
	"fmt"
	"os"

	"github.com/xyproto/wist/internal/engine"
)

// Cond is an x86 condition code, the low nibble of jcc and cmovcc opcodes
type Cond uint8

const (
	CondE  Cond = 0x4 // equal
	CondNE Cond = 0x5 // not equal
	CondL  Cond = 0xC // signed less
	CondGE Cond = 0xD // signed greater or equal
	CondLE Cond = 0xE // signed less or equal
	CondG  Cond = 0xF // signed greater
)

var condNames = map[Cond]string{
	CondE:  "e",
	CondNE: "ne",
	CondL:  "l",
	CondGE: "ge",
	CondLE: "le",
	CondG:  "g",
}

func (c Cond) String() string {
	if name, ok := condNames[c]; ok {
		return name
	}
	return fmt.Sprintf("cc%x", uint8(c))
}

// CmpRegToReg generates cmp a, b, setting flags for a - b
func (o *Out) CmpRegToReg(a, b string) {
	o.aluRegToReg("cmp", 0x39, a, b)
}

// CmpRegToImm generates cmp reg, imm
func (o *Out) CmpRegToImm(reg string, imm int32) {
	o.aluImmToReg("cmp", 7, reg, imm)
}

// Cmov generates cmovcc dst, src
func (o *Out) Cmov(cc Cond, dst, src string) {
	dstReg, dstOk := o.reg(dst, false)
	srcReg, srcOk := o.reg(src, false)
	if !dstOk || !srcOk {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "cmov%s %s, %s:", cc, dst, src)
	}

	// REX.W 0F 40+cc /r: dst in reg, src in r/m
	o.writeRex(true, dstReg.Encoding, srcReg.Encoding)
	o.Write(0x0F)
	o.Write(0x40 + uint8(cc))
	o.modRM(dstReg.Encoding, srcReg.Encoding)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
