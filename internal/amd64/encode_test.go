package amd64

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xyproto/wist/internal/diag"
)

// encode runs emit against a fresh buffer and returns the bytes written
func encode(emit func(o *Out)) []byte {
	o := NewOut()
	emit(o)
	return o.Bytes()
}

func TestEncodings(t *testing.T) {
	tests := []struct {
		name string
		emit func(o *Out)
		want []byte
	}{
		{"push rbp", func(o *Out) { o.PushReg("rbp") }, []byte{0x55}},
		{"push r14", func(o *Out) { o.PushReg("r14") }, []byte{0x41, 0x56}},
		{"pop rax", func(o *Out) { o.PopReg("rax") }, []byte{0x58}},
		{"pop r15", func(o *Out) { o.PopReg("r15") }, []byte{0x41, 0x5F}},

		{"mov rbp, rsp", func(o *Out) { o.MovRegToReg("rbp", "rsp") }, []byte{0x48, 0x89, 0xE5}},
		{"mov rsp, rbp", func(o *Out) { o.MovRegToReg("rsp", "rbp") }, []byte{0x48, 0x89, 0xEC}},
		{"mov r14, 5", func(o *Out) { o.MovImmToReg("r14", 5) }, []byte{0x49, 0xC7, 0xC6, 0x05, 0x00, 0x00, 0x00}},
		{"mov r14, -1", func(o *Out) { o.MovImmToReg("r14", -1) }, []byte{0x49, 0xC7, 0xC6, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"movabs rax", func(o *Out) { o.MovImmToReg("rax", 0x123456789) },
			[]byte{0x48, 0xB8, 0x89, 0x67, 0x45, 0x23, 0x01, 0x00, 0x00, 0x00}},

		{"mov r14, [rbp-8]", func(o *Out) { o.MovMemToReg("r14", "rbp", -8) }, []byte{0x4C, 0x8B, 0x75, 0xF8}},
		{"mov [rbp-16], r14", func(o *Out) { o.MovRegToMem("r14", "rbp", -16) }, []byte{0x4C, 0x89, 0x75, 0xF0}},
		{"mov rax, [rsp+0]", func(o *Out) { o.MovMemToReg("rax", "rsp", 0) }, []byte{0x48, 0x8B, 0x44, 0x24, 0x00}},
		{"mov rax, [rbp-256]", func(o *Out) { o.MovMemToReg("rax", "rbp", -256) },
			[]byte{0x48, 0x8B, 0x85, 0x00, 0xFF, 0xFF, 0xFF}},
		{"lea r14, [rbp-24]", func(o *Out) { o.LeaMemToReg("r14", "rbp", -24) }, []byte{0x4C, 0x8D, 0x75, 0xE8}},

		{"add r15, r14", func(o *Out) { o.AddRegToReg("r15", "r14") }, []byte{0x4D, 0x01, 0xF7}},
		{"sub r15, r14", func(o *Out) { o.SubRegToReg("r15", "r14") }, []byte{0x4D, 0x29, 0xF7}},
		{"sub rsp, 16", func(o *Out) { o.SubImmToReg("rsp", 16) }, []byte{0x48, 0x83, 0xEC, 0x10}},
		{"add rsp, 256", func(o *Out) { o.AddImmToReg("rsp", 256) }, []byte{0x48, 0x81, 0xC4, 0x00, 0x01, 0x00, 0x00}},
		{"imul r15, r14", func(o *Out) { o.ImulRegToReg("r15", "r14") }, []byte{0x4D, 0x0F, 0xAF, 0xFE}},
		{"cqo", func(o *Out) { o.Cqo() }, []byte{0x48, 0x99}},
		{"idiv r14", func(o *Out) { o.IdivReg("r14") }, []byte{0x49, 0xF7, 0xFE}},
		{"xor eax, eax", func(o *Out) { o.XorReg32("rax") }, []byte{0x31, 0xC0}},

		{"cmp r15, r14", func(o *Out) { o.CmpRegToReg("r15", "r14") }, []byte{0x4D, 0x39, 0xF7}},
		{"cmp r14, 0", func(o *Out) { o.CmpRegToImm("r14", 0) }, []byte{0x49, 0x83, 0xFE, 0x00}},
		{"cmove r14, r15", func(o *Out) { o.Cmov(CondE, "r14", "r15") }, []byte{0x4D, 0x0F, 0x44, 0xF7}},
		{"cmovl r14, r13", func(o *Out) { o.Cmov(CondL, "r14", "r13") }, []byte{0x4D, 0x0F, 0x4C, 0xF5}},

		{"movq xmm0, r11", func(o *Out) { o.MovqXmmFromReg("xmm0", "r11") }, []byte{0x66, 0x49, 0x0F, 0x6E, 0xC3}},
		{"movq r11, xmm0", func(o *Out) { o.MovqRegFromXmm("r11", "xmm0") }, []byte{0x66, 0x49, 0x0F, 0x7E, 0xC3}},
		{"addsd xmm0, xmm1", func(o *Out) { o.AddsdXmm("xmm0", "xmm1") }, []byte{0xF2, 0x0F, 0x58, 0xC1}},
		{"divsd xmm0, xmm1", func(o *Out) { o.DivsdXmm("xmm0", "xmm1") }, []byte{0xF2, 0x0F, 0x5E, 0xC1}},
		{"cmpltsd xmm0, xmm1", func(o *Out) { o.Cmpsd("xmm0", "xmm1", PredLT) }, []byte{0xF2, 0x0F, 0xC2, 0xC1, 0x01}},
		{"vzeroupper", func(o *Out) { o.VZeroUpper() }, []byte{0xC5, 0xF8, 0x77}},

		{"call r11", func(o *Out) { o.CallReg("r11") }, []byte{0x41, 0xFF, 0xD3}},
		{"jmp rax", func(o *Out) { o.JmpReg("rax") }, []byte{0xFF, 0xE0}},
		{"jmp r11", func(o *Out) { o.JmpReg("r11") }, []byte{0x41, 0xFF, 0xE3}},
		{"ret", func(o *Out) { o.Ret() }, []byte{0xC3}},
		{"ret 16", func(o *Out) { o.RetImm(16) }, []byte{0xC2, 0x10, 0x00}},
		{"ret 0", func(o *Out) { o.RetImm(0) }, []byte{0xC3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Equal(t, encode(tt.emit), tt.want)
		})
	}
}

func TestForwardJump(t *testing.T) {
	o := NewOut()
	o.JmpLabel("end")
	o.Nop()
	o.MarkLabel("end")
	code, err := o.Finalize()
	be.Err(t, err, nil)
	be.Equal(t, code, []byte{0xE9, 0x01, 0x00, 0x00, 0x00, 0x90})
}

func TestBackwardBranch(t *testing.T) {
	o := NewOut()
	o.MarkLabel("top")
	o.Nop()
	o.JccLabel(CondE, "top")
	code, err := o.Finalize()
	be.Err(t, err, nil)
	be.Equal(t, code, []byte{0x90, 0x0F, 0x84, 0xF9, 0xFF, 0xFF, 0xFF})
}

func TestRipRelativeLea(t *testing.T) {
	o := NewOut()
	o.LeaLabelToReg("r14", "data")
	o.MarkLabel("data")
	o.Write8(42)
	code, err := o.Finalize()
	be.Err(t, err, nil)
	// The data starts right after the 7-byte lea
	be.Equal(t, code[:7], []byte{0x4C, 0x8D, 0x35, 0x00, 0x00, 0x00, 0x00})
	be.Equal(t, len(o.Patches()), 1)
	be.Equal(t, o.Patches()[0].Position, 3)
}

func TestCallPatch(t *testing.T) {
	o := NewOut()
	o.MarkLabel("f")
	o.Ret()
	o.CallLabel("f")
	code, err := o.Finalize()
	be.Err(t, err, nil)
	// call at 1, next instruction at 6, target 0
	be.Equal(t, code[1:], []byte{0xE8, 0xFA, 0xFF, 0xFF, 0xFF})
}

func TestUnboundLabel(t *testing.T) {
	o := NewOut()
	o.CallLabel("missing")
	_, err := o.Finalize()
	be.True(t, errors.Is(err, diag.ErrUnresolvedSymbol))
	be.Err(t, err, "missing")
}

func TestDuplicateLabel(t *testing.T) {
	o := NewOut()
	o.MarkLabel("a")
	o.MarkLabel("a")
	_, err := o.Finalize()
	be.True(t, errors.Is(err, diag.ErrDuplicateDeclaration))
}

func TestInvalidRegister(t *testing.T) {
	o := NewOut()
	o.MovRegToReg("rax", "xmm0")
	o.AddsdXmm("xmm0", "rax")
	be.Equal(t, o.Len(), 0)
	_, err := o.Finalize()
	be.True(t, errors.Is(err, diag.ErrInternal))
	be.Err(t, err, `invalid register "xmm0"`)
}

func TestAlign(t *testing.T) {
	o := NewOut()
	o.Nop()
	o.Align(8)
	be.Equal(t, o.Len(), 8)
	o.Align(8)
	be.Equal(t, o.Len(), 8)
}

func TestLookups(t *testing.T) {
	r, ok := GetRegister("r13")
	be.True(t, ok)
	be.Equal(t, r.Encoding, uint8(13))
	_, ok = GetRegister("zmm0")
	be.True(t, !ok)
	// 32-bit names are not operands; XorReg32 takes the 64-bit name
	_, ok = GetRegister("eax")
	be.True(t, !ok)
	be.True(t, IsXMM("xmm7"))
	be.Equal(t, CondGE.String(), "ge")
}
