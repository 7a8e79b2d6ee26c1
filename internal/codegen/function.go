package codegen

import (
	"fmt"
	"math"
	"os"

	"github.com/xyproto/wist/internal/amd64"
	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/engine"
	"github.com/xyproto/wist/internal/ir"
)

var intConditions = map[ir.Opcode]amd64.Cond{
	ir.OpEq: amd64.CondE,
	ir.OpNe: amd64.CondNE,
	ir.OpLt: amd64.CondL,
	ir.OpLe: amd64.CondLE,
	ir.OpGt: amd64.CondG,
	ir.OpGe: amd64.CondGE,
}

var floatPredicates = map[ir.Opcode]amd64.Predicate{
	ir.OpEq: amd64.PredEQ,
	ir.OpNe: amd64.PredNE,
	ir.OpLt: amd64.PredLT,
	ir.OpLe: amd64.PredLE,
	ir.OpGt: amd64.PredNLE,
	ir.OpGe: amd64.PredNLT,
}

func (g *X86_64CodeGen) generateFunction(fn *ir.Function) error {
	if !fn.HasReturn() {
		return diag.MissingReturn(fn.Name)
	}
	sites, err := ir.Verify(g.img, fn)
	if err != nil {
		return err
	}
	g.fn = fn
	g.sites = make(map[int]ir.CallSite, len(sites))
	for _, s := range sites {
		g.sites[s.Index] = s
	}
	defer func() { g.fn = nil }()

	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "codegen: function %s at offset %d\n", fn.Name, g.out.Len())
	}

	g.out.Align(16)
	g.out.MarkLabel(fn.Name)
	if err := g.prologue(fn); err != nil {
		return err
	}
	for i, in := range fn.Code {
		if err := g.generateInstruction(i, in); err != nil {
			return err
		}
	}
	if n := len(fn.Code); n == 0 || fn.Code[n-1].Op != ir.OpRet {
		// Verify only lets functions returning nothing fall off the end
		g.epilogue(fn)
	}
	return nil
}

// prologue sets up the frame and copies the stack-passed parameters into
// their local slots. Parameter j of P sits at [rbp+16+(P-1-j)*8] since the
// caller pushed the first parameter first.
func (g *X86_64CodeGen) prologue(fn *ir.Function) error {
	g.out.PushReg("rbp")
	g.out.MovRegToReg("rbp", "rsp")
	if frame := fn.FrameBytes(); frame > 0 {
		g.out.SubImmToReg("rsp", int32(frame))
	}
	g.out.VZeroUpper()

	p := len(fn.Params)
	for j, param := range fn.Params {
		local, ok := fn.Local(param.Name)
		if !ok {
			return diag.Internal(diag.Location{Function: fn.Name, Seq: -1}, "parameter %s has no local slot", param.Name)
		}
		g.out.MovMemToReg(scratchB, "rbp", int32(16+(p-1-j)*8))
		g.out.MovRegToMem(scratchB, "rbp", -int32(local.Offset))
	}
	return nil
}

// epilogue discards the frame and returns, popping the caller's arguments
func (g *X86_64CodeGen) epilogue(fn *ir.Function) {
	g.out.MovRegToReg("rsp", "rbp")
	g.out.PopReg("rbp")
	g.out.RetImm(uint16(fn.ArgBytes))
}

func (g *X86_64CodeGen) localOffset(name string) (int32, error) {
	local, ok := g.fn.Local(name)
	if !ok {
		return 0, diag.UnresolvedSymbol(diag.Location{Function: g.fn.Name, Seq: -1}, name)
	}
	return -int32(local.Offset), nil
}

func (g *X86_64CodeGen) generateInstruction(i int, in ir.Instruction) error {
	o := g.out
	switch {
	case in.Op == ir.OpNop:

	case in.Op == ir.OpPush:
		imm := in.Const
		if in.Type == ir.F64 {
			imm = int64(math.Float64bits(in.Float))
		}
		o.MovImmToReg(scratchB, imm)
		o.PushReg(scratchB)

	case in.Op == ir.OpPad:
		o.SubImmToReg("rsp", 8)

	case in.Op == ir.OpDrop:
		o.AddImmToReg("rsp", int32(in.Bytes))

	case in.Op.IsArithmetic() && in.Type == ir.F64:
		g.popF64("xmm1")
		g.popF64("xmm0")
		switch in.Op {
		case ir.OpAdd:
			o.AddsdXmm("xmm0", "xmm1")
		case ir.OpSub:
			o.SubsdXmm("xmm0", "xmm1")
		case ir.OpMul:
			o.MulsdXmm("xmm0", "xmm1")
		case ir.OpDiv:
			o.DivsdXmm("xmm0", "xmm1")
		default:
			return diag.Internal(diag.Location{Function: g.fn.Name, Seq: -1}, "%s has no f64 form", in.Op)
		}
		g.pushF64("xmm0")

	case in.Op == ir.OpDiv || in.Op == ir.OpMod:
		o.PopReg(scratchB)
		o.PopReg("rax")
		o.Cqo()
		o.IdivReg(scratchB)
		if in.Op == ir.OpDiv {
			o.PushReg("rax")
		} else {
			o.PushReg("rdx")
		}

	case in.Op.IsArithmetic():
		o.PopReg(scratchB)
		o.PopReg(scratchC)
		switch in.Op {
		case ir.OpAdd:
			o.AddRegToReg(scratchC, scratchB)
		case ir.OpSub:
			o.SubRegToReg(scratchC, scratchB)
		case ir.OpMul:
			o.ImulRegToReg(scratchC, scratchB)
		}
		o.PushReg(scratchC)

	case in.Op.IsComparison() && in.Type == ir.F64:
		g.popF64("xmm1")
		g.popF64("xmm0")
		o.Cmpsd("xmm0", "xmm1", floatPredicates[in.Op])
		o.MovqRegFromXmm(scratchA, "xmm0")
		o.MovImmToReg(scratchB, 0)
		o.MovImmToReg(scratchC, 1)
		o.CmpRegToImm(scratchA, 0)
		o.Cmov(amd64.CondNE, scratchB, scratchC)
		o.PushReg(scratchB)

	case in.Op.IsComparison():
		o.PopReg(scratchB)
		o.PopReg(scratchC)
		o.CmpRegToReg(scratchC, scratchB)
		o.MovImmToReg(scratchB, 0)
		o.MovImmToReg(scratchA, 1)
		o.Cmov(intConditions[in.Op], scratchB, scratchA)
		o.PushReg(scratchB)

	case in.Op == ir.OpNegate:
		o.PopReg(scratchB)
		o.MovImmToReg(scratchA, 0)
		o.MovImmToReg(scratchC, 1)
		o.CmpRegToImm(scratchB, 0)
		o.Cmov(amd64.CondE, scratchB, scratchC)
		o.Cmov(amd64.CondNE, scratchB, scratchA)
		o.PushReg(scratchB)

	case in.Op == ir.OpLoadLocal:
		off, err := g.localOffset(in.Name)
		if err != nil {
			return err
		}
		o.MovMemToReg(scratchB, "rbp", off)
		o.PushReg(scratchB)

	case in.Op == ir.OpSetLocal:
		off, err := g.localOffset(in.Name)
		if err != nil {
			return err
		}
		o.PopReg(scratchB)
		o.MovRegToMem(scratchB, "rbp", off)

	case in.Op == ir.OpGetReference:
		if err := g.generateReference(in.Name); err != nil {
			return err
		}
		o.PushReg(scratchB)

	case in.Op == ir.OpReadMem:
		o.PopReg(scratchB)
		o.MovMemToReg(scratchB, scratchB, 0)
		o.PushReg(scratchB)

	case in.Op == ir.OpWriteMem:
		o.PopReg(scratchC)
		o.PopReg(scratchB)
		o.MovRegToMem(scratchC, scratchB, 0)

	case in.Op == ir.OpDefineLabel:
		o.MarkLabel(localLabel(g.fn, in.Name))

	case in.Op == ir.OpBr:
		o.JmpLabel(localLabel(g.fn, in.Name))

	case in.Op == ir.OpBrFalse:
		o.PopReg(scratchB)
		o.CmpRegToImm(scratchB, 0)
		o.JccLabel(amd64.CondE, localLabel(g.fn, in.Name))

	case in.Op == ir.OpCall:
		g.generateInternalCall(in)

	case in.Op == ir.OpCallForeign:
		return g.generateForeignCall(i, in)

	case in.Op == ir.OpRet:
		switch in.Type {
		case ir.I64:
			o.PopReg(g.conv.GetIntegerReturnReg())
		case ir.F64:
			g.popF64(g.conv.GetFloatReturnReg())
		}
		g.epilogue(g.fn)

	default:
		return diag.Internal(diag.Location{Function: g.fn.Name, Seq: -1}, "no code for %s", in)
	}
	return nil
}

// generateReference loads the address of a local, a function, static data
// or a foreign symbol into scratchB
func (g *X86_64CodeGen) generateReference(name string) error {
	if local, ok := g.fn.Local(name); ok {
		g.out.LeaMemToReg(scratchB, "rbp", -int32(local.Offset))
		return nil
	}
	if _, ok := g.img.Function(name); ok {
		g.out.LeaLabelToReg(scratchB, name)
		return nil
	}
	if _, ok := g.img.Static[name]; ok {
		g.out.LeaLabelToReg(scratchB, name)
		return nil
	}
	if g.img.Foreign != nil && g.img.Foreign.HasFunction(name) {
		f, err := g.img.Foreign.Resolve(name)
		if err != nil {
			return err
		}
		g.out.MovImmToReg(scratchB, int64(f.Addr))
		return nil
	}
	return diag.UnresolvedSymbol(diag.Location{Function: g.fn.Name, Seq: -1}, name)
}
