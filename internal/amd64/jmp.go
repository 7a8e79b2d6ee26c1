// Completion: 100% - Instruction implementation complete
package amd64

import (
	"fmt"
	"os"

	"github.com/xyproto/wist/internal/engine"
)

// Control flow. Label targets are rel32 displacements patched by Finalize.

// JmpLabel generates jmp rel32
func (o *Out) JmpLabel(label string) {
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "jmp %s:", label)
	}
	o.Write(0xE9)
	o.rel32(label)
	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// JccLabel generates jcc rel32
func (o *Out) JccLabel(cc Cond, label string) {
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "j%s %s:", cc, label)
	}
	o.Write(0x0F)
	o.Write(0x80 + uint8(cc))
	o.rel32(label)
	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// CallLabel generates call rel32
func (o *Out) CallLabel(label string) {
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "call %s:", label)
	}
	o.Write(0xE8)
	o.rel32(label)
	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// CallReg generates an indirect call through a register
func (o *Out) CallReg(reg string) {
	r, ok := o.reg(reg, false)
	if !ok {
		return
	}
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "call %s:", reg)
	}
	// FF /2
	o.writeRex(false, 0, r.Encoding)
	o.Write(0xFF)
	o.modRM(2, r.Encoding)
	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// JmpReg generates an indirect jump through a register
func (o *Out) JmpReg(reg string) {
	r, ok := o.reg(reg, false)
	if !ok {
		return
	}
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "jmp %s:", reg)
	}
	// FF /4
	o.writeRex(false, 0, r.Encoding)
	o.Write(0xFF)
	o.modRM(4, r.Encoding)
	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// Ret generates a near return
func (o *Out) Ret() {
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "ret:")
	}
	o.Write(0xC3)
	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// RetImm returns and pops popBytes of arguments off the stack
func (o *Out) RetImm(popBytes uint16) {
	if popBytes == 0 {
		o.Ret()
		return
	}
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "ret %d:", popBytes)
	}
	// C2 iw
	o.Write(0xC2)
	o.Write2(popBytes)
	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// Nop generates a one-byte nop
func (o *Out) Nop() {
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "nop:")
	}
	o.Write(0x90)
	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
