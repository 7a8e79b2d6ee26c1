package stdlib

import (
	"github.com/xyproto/wist/internal/abi"
	"github.com/xyproto/wist/internal/amd64"
	"github.com/xyproto/wist/internal/engine"
)

// bridge is a small native adapter in front of a Go callback. Callbacks
// receive and return integers only, so an f64 has to be moved between an
// SSE register and a general purpose register on the way.
type bridge int

const (
	// floatArg moves an f64 first argument into the first integer argument
	// register and jumps to the callback
	floatArg bridge = iota + 1
	// floatResult calls the callback and returns its result bits in xmm0
	floatResult
)

// code assembles the bridge to target for the host calling convention
func (b bridge) code(conv abi.CallingConvention, target uintptr) ([]byte, error) {
	first := conv.ArgPairs()[0]
	o := amd64.NewOut()
	switch b {
	case floatArg:
		o.MovqRegFromXmm(first.Int, first.Float)
		o.MovImmToReg("rax", int64(target))
		o.JmpReg("rax")
	case floatResult:
		// 40 bytes realign the stack and cover the Win64 shadow space
		o.SubImmToReg("rsp", 40)
		o.MovImmToReg("rax", int64(target))
		o.CallReg("rax")
		o.AddImmToReg("rsp", 40)
		o.MovqXmmFromReg(conv.GetFloatReturnReg(), conv.GetIntegerReturnReg())
		o.Ret()
	}
	return o.Finalize()
}

// hostConvention is the convention native code in this process calls with
func hostConvention() abi.CallingConvention {
	conv, err := abi.For(engine.Target{Arch: engine.ArchX86_64, OS: engine.HostTarget().OS})
	if err != nil {
		return &abi.SystemVAMD64{}
	}
	return conv
}
