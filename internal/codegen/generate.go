// Completion: 100% - x86_64 backend complete
package codegen

import (
	"fmt"
	"os"

	"github.com/xyproto/wist/internal/abi"
	"github.com/xyproto/wist/internal/amd64"
	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/engine"
	"github.com/xyproto/wist/internal/ir"
	"github.com/xyproto/wist/internal/jit"
)

// Scratch registers. Values live on the machine stack between
// instructions; these only carry them through one instruction.
const (
	scratchA = "r13"
	scratchB = "r14"
	scratchC = "r15"
	xmmTemp  = "r11" // bits of an f64 on their way to or from an xmm register
)

// EntryLabel is bound to offset 0, the trampoline that calls main
const EntryLabel = "$entry"

// X86_64CodeGen turns a lowered image into machine code
type X86_64CodeGen struct {
	out    *amd64.Out
	img    *ir.Image
	conv   abi.CallingConvention
	target engine.Target

	fn    *ir.Function
	sites map[int]ir.CallSite // call sites of fn by instruction index
}

// Generate lays out the image for target: the entry trampoline at offset
// 0, then static data, then every function.
func Generate(img *ir.Image, target engine.Target) (*jit.Executable, error) {
	conv, err := abi.For(target)
	if err != nil {
		return nil, err
	}
	main, ok := img.Function("main")
	if !ok {
		return nil, diag.UnresolvedSymbol(diag.Location{Seq: -1}, "main")
	}

	g := &X86_64CodeGen{
		out:    amd64.NewOut(),
		img:    img,
		conv:   conv,
		target: target,
	}

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "codegen: %d functions for %s (%s)\n", len(img.Functions), target, conv.Name())
	}

	g.out.MarkLabel(EntryLabel)
	g.generateEntry(main)

	for _, name := range img.StaticNames {
		g.out.Align(8)
		g.out.MarkLabel(name)
		g.out.WriteBytes(img.Static[name])
	}

	for _, fn := range img.Functions {
		if err := g.generateFunction(fn); err != nil {
			return nil, err
		}
	}

	code, err := g.out.Finalize()
	if err != nil {
		return nil, err
	}

	symbols := make(map[string]int, len(img.Functions)+len(img.StaticNames))
	for _, fn := range img.Functions {
		symbols[fn.Name], _ = g.out.LabelOffset(fn.Name)
	}
	for _, name := range img.StaticNames {
		symbols[name], _ = g.out.LabelOffset(name)
	}
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "codegen: %d bytes\n", len(code))
	}
	return jit.New(code, target, symbols), nil
}

// generateEntry emits the trampoline the host calls. It preserves the
// callee-saved registers of the target ABI, realigns the stack for main,
// and returns main's value in rax (0 when main returns nothing).
func (g *X86_64CodeGen) generateEntry(main *ir.Function) {
	saved := g.conv.GetCalleeSavedRegs()
	for _, reg := range saved {
		g.out.PushReg(reg)
	}
	// The return address plus an even number of pushes leaves rsp 8 bytes
	// off a 16-byte boundary
	pad := len(saved)%2 == 0
	if pad {
		g.out.SubImmToReg("rsp", 8)
	}

	g.out.CallLabel(main.Name)
	if main.Return == ir.None {
		g.out.XorReg32("rax")
	}

	if pad {
		g.out.AddImmToReg("rsp", 8)
	}
	for i := len(saved) - 1; i >= 0; i-- {
		g.out.PopReg(saved[i])
	}
	g.out.Ret()
}

// localLabel qualifies a function's own label so functions can reuse names
func localLabel(fn *ir.Function, label string) string {
	return fn.Name + "/" + label
}

// pushF64 pushes the low lane of an xmm register
func (g *X86_64CodeGen) pushF64(xmm string) {
	g.out.MovqRegFromXmm(xmmTemp, xmm)
	g.out.PushReg(xmmTemp)
}

// popF64 pops a slot into the low lane of an xmm register
func (g *X86_64CodeGen) popF64(xmm string) {
	g.out.PopReg(xmmTemp)
	g.out.MovqXmmFromReg(xmm, xmmTemp)
}
