// Completion: 100% - SIMD instruction complete
package amd64

import (
	"fmt"
	"os"

	"github.com/xyproto/wist/internal/engine"
)

// Scalar double precision arithmetic in the low lane of SSE registers

// Predicate is the immediate of cmpsd
type Predicate uint8

const (
	PredEQ  Predicate = 0
	PredLT  Predicate = 1
	PredLE  Predicate = 2
	PredNE  Predicate = 4 // unordered or not equal
	PredNLT Predicate = 5 // greater or equal, or unordered
	PredNLE Predicate = 6 // greater, or unordered
)

// scalarOp encodes F2 [REX] 0F op /r with dst in reg and src in r/m
func (o *Out) scalarOp(mnemonic string, op uint8, dst, src string) bool {
	dstReg, dstOk := o.reg(dst, true)
	srcReg, srcOk := o.reg(src, true)
	if !dstOk || !srcOk {
		return false
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "%s %s, %s:", mnemonic, dst, src)
	}

	o.Write(0xF2)
	o.writeRex(false, dstReg.Encoding, srcReg.Encoding)
	o.Write(0x0F)
	o.Write(op)
	o.modRM(dstReg.Encoding, srcReg.Encoding)
	return true
}

func (o *Out) scalar(mnemonic string, op uint8, dst, src string) {
	if o.scalarOp(mnemonic, op, dst, src) && engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// AddsdXmm generates addsd dst, src
func (o *Out) AddsdXmm(dst, src string) { o.scalar("addsd", 0x58, dst, src) }

// SubsdXmm generates subsd dst, src
func (o *Out) SubsdXmm(dst, src string) { o.scalar("subsd", 0x5C, dst, src) }

// MulsdXmm generates mulsd dst, src
func (o *Out) MulsdXmm(dst, src string) { o.scalar("mulsd", 0x59, dst, src) }

// DivsdXmm generates divsd dst, src
func (o *Out) DivsdXmm(dst, src string) { o.scalar("divsd", 0x5E, dst, src) }

// Cmpsd compares dst with src and sets dst to an all-ones or all-zeros mask
func (o *Out) Cmpsd(dst, src string, pred Predicate) {
	if !o.scalarOp("cmpsd", 0xC2, dst, src) {
		return
	}
	o.Write(uint8(pred))
	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// VZeroUpper zeros the upper bits of the vector registers, avoiding the
// AVX to SSE transition penalty in code called from AVX code
func (o *Out) VZeroUpper() {
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "vzeroupper:")
	}

	// VEX.128.0F.WIG 77
	o.Write(0xC5)
	o.Write(0xF8)
	o.Write(0x77)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
