package codegen

import (
	"github.com/xyproto/wist/internal/abi"
	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/ir"
)

// generateInternalCall calls a function of the image. The callee pops its
// own arguments; the caller only reclaims the alignment slot, if any.
func (g *X86_64CodeGen) generateInternalCall(in ir.Instruction) {
	g.out.CallLabel(in.Name)
	if in.Bytes > 0 {
		g.out.AddImmToReg("rsp", int32(in.Bytes))
	}
	g.pushResult(in.Type)
}

// generateForeignCall moves the arguments from the stack into the
// convention's argument registers, last argument first, then calls the
// symbol's absolute address through r11.
func (g *X86_64CodeGen) generateForeignCall(i int, in ir.Instruction) error {
	loc := diag.Location{Function: g.fn.Name, Seq: -1}
	if g.img.Foreign == nil {
		return diag.UnresolvedSymbol(loc, in.Name)
	}
	f, err := g.img.Foreign.Resolve(in.Name)
	if err != nil {
		return err
	}
	if len(f.Params) > g.conv.MaxArgs() {
		return diag.TooManyArguments(loc, in.Name, len(f.Params), g.conv.MaxArgs())
	}
	site, ok := g.sites[i]
	if !ok {
		return diag.Internal(loc, "no call site recorded for %s", in.Name)
	}

	floats := 0
	for j := len(f.Params) - 1; j >= 0; j-- {
		isFloat := f.Params[j] == ir.F64
		reg := abi.ArgRegister(g.conv, j, isFloat)
		if isFloat {
			g.popF64(reg)
			floats++
		} else {
			g.out.PopReg(reg)
		}
	}

	var reclaim int32
	if site.Padded {
		g.out.SubImmToReg("rsp", 8)
		reclaim += 8
	}
	if shadow := g.conv.GetShadowSpaceSize(); shadow > 0 {
		g.out.SubImmToReg("rsp", int32(shadow))
		reclaim += int32(shadow)
	}
	if g.conv.SetsVectorCount() {
		// Variadic callees read the number of vector registers from al
		g.out.MovImmToReg("rax", int64(floats))
	}
	g.out.MovImmToReg("r11", int64(f.Addr))
	g.out.CallReg("r11")
	if reclaim > 0 {
		g.out.AddImmToReg("rsp", reclaim)
	}
	g.pushResult(f.Return)
	return nil
}

// pushResult pushes a call's return value unless it returns nothing
func (g *X86_64CodeGen) pushResult(t ir.ValueType) {
	switch t {
	case ir.I64:
		g.out.PushReg(g.conv.GetIntegerReturnReg())
	case ir.F64:
		g.pushF64(g.conv.GetFloatReturnReg())
	}
}
