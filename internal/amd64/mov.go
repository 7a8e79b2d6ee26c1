// Completion: 100% - Instruction implementation complete
package amd64

import (
	"fmt"
	"math"
	"os"

	"github.com/xyproto/wist/internal/engine"
)

// MovRegToReg generates mov dst, src for 64-bit registers
func (o *Out) MovRegToReg(dst, src string) {
	dstReg, dstOk := o.reg(dst, false)
	srcReg, srcOk := o.reg(src, false)
	if !dstOk || !srcOk {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "mov %s, %s:", dst, src)
	}

	// MOV r/m64, r64 (0x89): src in reg, dst in r/m
	o.writeRex(true, srcReg.Encoding, dstReg.Encoding)
	o.Write(0x89)
	o.modRM(srcReg.Encoding, dstReg.Encoding)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// MovImmToReg loads a 64-bit immediate. Values that fit a sign-extended
// imm32 use the 7-byte form, others the 10-byte movabs.
func (o *Out) MovImmToReg(dst string, imm int64) {
	dstReg, ok := o.reg(dst, false)
	if !ok {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "mov %s, %d:", dst, imm)
	}

	if imm >= math.MinInt32 && imm <= math.MaxInt32 {
		// REX.W C7 /0 id
		o.writeRex(true, 0, dstReg.Encoding)
		o.Write(0xC7)
		o.modRM(0, dstReg.Encoding)
		o.Write4(uint32(int32(imm)))
	} else {
		// REX.W B8+r io
		o.writeRex(true, 0, dstReg.Encoding)
		o.Write(0xB8 + dstReg.Encoding&7)
		o.Write8(uint64(imm))
	}

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// MovMemToReg generates mov dst, [base+disp]
func (o *Out) MovMemToReg(dst, base string, disp int32) {
	dstReg, dstOk := o.reg(dst, false)
	baseReg, baseOk := o.reg(base, false)
	if !dstOk || !baseOk {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "mov %s, [%s%+d]:", dst, base, disp)
	}

	// MOV r64, r/m64 (0x8B)
	o.writeRex(true, dstReg.Encoding, baseReg.Encoding)
	o.Write(0x8B)
	o.memOperand(dstReg.Encoding, baseReg.Encoding, disp)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// MovRegToMem generates mov [base+disp], src
func (o *Out) MovRegToMem(src, base string, disp int32) {
	srcReg, srcOk := o.reg(src, false)
	baseReg, baseOk := o.reg(base, false)
	if !srcOk || !baseOk {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "mov [%s%+d], %s:", base, disp, src)
	}

	// MOV r/m64, r64 (0x89)
	o.writeRex(true, srcReg.Encoding, baseReg.Encoding)
	o.Write(0x89)
	o.memOperand(srcReg.Encoding, baseReg.Encoding, disp)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// LeaMemToReg generates lea dst, [base+disp]
func (o *Out) LeaMemToReg(dst, base string, disp int32) {
	dstReg, dstOk := o.reg(dst, false)
	baseReg, baseOk := o.reg(base, false)
	if !dstOk || !baseOk {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "lea %s, [%s%+d]:", dst, base, disp)
	}

	o.writeRex(true, dstReg.Encoding, baseReg.Encoding)
	o.Write(0x8D)
	o.memOperand(dstReg.Encoding, baseReg.Encoding, disp)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// LeaLabelToReg generates lea dst, [rip+label]
func (o *Out) LeaLabelToReg(dst, label string) {
	dstReg, ok := o.reg(dst, false)
	if !ok {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "lea %s, [rip+%s]:", dst, label)
	}

	// ModR/M 00|reg|101 selects RIP-relative disp32
	o.writeRex(true, dstReg.Encoding, 0)
	o.Write(0x8D)
	o.Write(0x05 | (dstReg.Encoding&7)<<3)
	o.rel32(label)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// MovqXmmFromReg generates movq xmm, r64 to move raw bits into an SSE register
func (o *Out) MovqXmmFromReg(dst, src string) {
	dstReg, dstOk := o.reg(dst, true)
	srcReg, srcOk := o.reg(src, false)
	if !dstOk || !srcOk {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "movq %s, %s:", dst, src)
	}

	// 66 REX.W 0F 6E /r
	o.Write(0x66)
	o.writeRex(true, dstReg.Encoding, srcReg.Encoding)
	o.Write(0x0F)
	o.Write(0x6E)
	o.modRM(dstReg.Encoding, srcReg.Encoding)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// MovqRegFromXmm generates movq r64, xmm
func (o *Out) MovqRegFromXmm(dst, src string) {
	dstReg, dstOk := o.reg(dst, false)
	srcReg, srcOk := o.reg(src, true)
	if !dstOk || !srcOk {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "movq %s, %s:", dst, src)
	}

	// 66 REX.W 0F 7E /r: the xmm register goes in the reg field
	o.Write(0x66)
	o.writeRex(true, srcReg.Encoding, dstReg.Encoding)
	o.Write(0x0F)
	o.Write(0x7E)
	o.modRM(srcReg.Encoding, dstReg.Encoding)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
