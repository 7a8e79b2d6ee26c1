// Completion: 100% - Instruction implementation complete
package amd64

import (
	"fmt"
	"os"

	"github.com/xyproto/wist/internal/engine"
)

// PUSH/POP instructions for the operand stack. Every value of the stack
// machine lives in one 8-byte slot pushed by these.

// PushReg pushes a 64-bit register
func (o *Out) PushReg(reg string) {
	regInfo, ok := o.reg(reg, false)
	if !ok {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "push %s:", reg)
	}

	// PUSH uses compact encoding: 0x50 + reg
	if regInfo.Encoding >= 8 {
		o.Write(0x41) // REX.B
	}
	o.Write(0x50 + regInfo.Encoding&7)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// PopReg pops into a 64-bit register
func (o *Out) PopReg(reg string) {
	regInfo, ok := o.reg(reg, false)
	if !ok {
		return
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "pop %s:", reg)
	}

	// POP uses compact encoding: 0x58 + reg
	if regInfo.Encoding >= 8 {
		o.Write(0x41) // REX.B
	}
	o.Write(0x58 + regInfo.Encoding&7)

	if engine.VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
