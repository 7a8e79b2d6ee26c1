// Completion: 100% - Instruction implementation complete
package amd64

import (
	"fmt"
	"os"

	"github.com/xyproto/wist/internal/engine"
)

// Integer arithmetic on 64-bit registers

// aluRegToReg encodes the "op r/m64, r64" form shared by add, sub, cmp and xor
func (o *Out) aluRegToReg(mnemonic string, opcode uint8, dst, src string) {
	dstReg, dstOk := o.reg(dst, false)
	srcReg, srcOk := o.reg(src, false)
	if !dstOk || !srcOk {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "%s %s, %s:", mnemonic, dst, src)
	}

	o.writeRex(true, srcReg.Encoding, dstReg.Encoding)
	o.Write(opcode)
	o.modRM(srcReg.Encoding, dstReg.Encoding)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// aluImmToReg encodes the 83 /ext ib and 81 /ext id immediate forms
func (o *Out) aluImmToReg(mnemonic string, ext uint8, dst string, imm int32) {
	dstReg, ok := o.reg(dst, false)
	if !ok {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "%s %s, %d:", mnemonic, dst, imm)
	}

	o.writeRex(true, 0, dstReg.Encoding)
	if imm >= -128 && imm <= 127 {
		o.Write(0x83)
		o.modRM(ext, dstReg.Encoding)
		o.Write(uint8(int8(imm)))
	} else {
		o.Write(0x81)
		o.modRM(ext, dstReg.Encoding)
		o.Write4(uint32(imm))
	}

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// AddRegToReg generates add dst, src
func (o *Out) AddRegToReg(dst, src string) {
	o.aluRegToReg("add", 0x01, dst, src)
}

// SubRegToReg generates sub dst, src
func (o *Out) SubRegToReg(dst, src string) {
	o.aluRegToReg("sub", 0x29, dst, src)
}

// AddImmToReg generates add dst, imm
func (o *Out) AddImmToReg(dst string, imm int32) {
	o.aluImmToReg("add", 0, dst, imm)
}

// SubImmToReg generates sub dst, imm
func (o *Out) SubImmToReg(dst string, imm int32) {
	o.aluImmToReg("sub", 5, dst, imm)
}

// ImulRegToReg generates imul dst, src (signed, low 64 bits kept)
func (o *Out) ImulRegToReg(dst, src string) {
	dstReg, dstOk := o.reg(dst, false)
	srcReg, srcOk := o.reg(src, false)
	if !dstOk || !srcOk {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "imul %s, %s:", dst, src)
	}

	// REX.W 0F AF /r: dst in reg, src in r/m
	o.writeRex(true, dstReg.Encoding, srcReg.Encoding)
	o.Write(0x0F)
	o.Write(0xAF)
	o.modRM(dstReg.Encoding, srcReg.Encoding)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// Cqo sign-extends rax into rdx:rax ahead of idiv
func (o *Out) Cqo() {
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "cqo:")
	}
	o.Write(0x48)
	o.Write(0x99)
	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// IdivReg divides rdx:rax by src: quotient in rax, remainder in rdx.
// Both truncate toward zero.
func (o *Out) IdivReg(src string) {
	srcReg, ok := o.reg(src, false)
	if !ok {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "idiv %s:", src)
	}

	// REX.W F7 /7
	o.writeRex(true, 0, srcReg.Encoding)
	o.Write(0xF7)
	o.modRM(7, srcReg.Encoding)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// XorReg32 zeroes a register with the short xor r32, r32 form
func (o *Out) XorReg32(reg string) {
	r, ok := o.reg(reg, false)
	if !ok {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "xor %s, %s (32-bit):", reg, reg)
	}

	o.writeRex(false, r.Encoding, r.Encoding)
	o.Write(0x31)
	o.modRM(r.Encoding, r.Encoding)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
