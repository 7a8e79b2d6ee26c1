// Completion: 100% - Utility module complete
package amd64

import (
	"strings"

	"github.com/xyproto/wist/internal/diag"
)

// Register definitions for x86-64

type Register struct {
	Name     string
	Size     int   // Size in bits
	Encoding uint8 // Encoding for instruction generation
}

var registers = map[string]Register{
	// 64-bit general purpose registers
	"rax": {Name: "rax", Size: 64, Encoding: 0},
	"rcx": {Name: "rcx", Size: 64, Encoding: 1},
	"rdx": {Name: "rdx", Size: 64, Encoding: 2},
	"rbx": {Name: "rbx", Size: 64, Encoding: 3},
	"rsp": {Name: "rsp", Size: 64, Encoding: 4},
	"rbp": {Name: "rbp", Size: 64, Encoding: 5},
	"rsi": {Name: "rsi", Size: 64, Encoding: 6},
	"rdi": {Name: "rdi", Size: 64, Encoding: 7},
	"r8":  {Name: "r8", Size: 64, Encoding: 8},
	"r9":  {Name: "r9", Size: 64, Encoding: 9},
	"r10": {Name: "r10", Size: 64, Encoding: 10},
	"r11": {Name: "r11", Size: 64, Encoding: 11},
	"r12": {Name: "r12", Size: 64, Encoding: 12},
	"r13": {Name: "r13", Size: 64, Encoding: 13},
	"r14": {Name: "r14", Size: 64, Encoding: 14},
	"r15": {Name: "r15", Size: 64, Encoding: 15},

	// SSE registers (scalar f64 in the low lane)
	"xmm0":  {Name: "xmm0", Size: 128, Encoding: 0},
	"xmm1":  {Name: "xmm1", Size: 128, Encoding: 1},
	"xmm2":  {Name: "xmm2", Size: 128, Encoding: 2},
	"xmm3":  {Name: "xmm3", Size: 128, Encoding: 3},
	"xmm4":  {Name: "xmm4", Size: 128, Encoding: 4},
	"xmm5":  {Name: "xmm5", Size: 128, Encoding: 5},
	"xmm6":  {Name: "xmm6", Size: 128, Encoding: 6},
	"xmm7":  {Name: "xmm7", Size: 128, Encoding: 7},
	"xmm8":  {Name: "xmm8", Size: 128, Encoding: 8},
	"xmm9":  {Name: "xmm9", Size: 128, Encoding: 9},
	"xmm10": {Name: "xmm10", Size: 128, Encoding: 10},
	"xmm11": {Name: "xmm11", Size: 128, Encoding: 11},
	"xmm12": {Name: "xmm12", Size: 128, Encoding: 12},
	"xmm13": {Name: "xmm13", Size: 128, Encoding: 13},
	"xmm14": {Name: "xmm14", Size: 128, Encoding: 14},
	"xmm15": {Name: "xmm15", Size: 128, Encoding: 15},
}

// GetRegister looks up a register by name
func GetRegister(name string) (Register, bool) {
	r, ok := registers[name]
	return r, ok
}

// IsXMM reports whether name is an SSE register
func IsXMM(name string) bool {
	return strings.HasPrefix(name, "xmm")
}

// reg resolves a register of the wanted kind, recording an error otherwise
func (o *Out) reg(name string, wantXMM bool) (Register, bool) {
	r, ok := registers[name]
	if !ok || IsXMM(name) != wantXMM {
		o.fail(diag.Internal(diag.Location{Seq: -1}, "invalid register %q", name))
		return Register{}, false
	}
	return r, true
}

// rex returns a REX prefix for the given W bit and the registers in the
// ModR/M reg and r/m fields, or 0 when none is needed
func rex(w bool, reg, rm uint8) uint8 {
	b := uint8(0x40)
	if w {
		b |= 0x08
	}
	if reg >= 8 {
		b |= 0x04 // REX.R
	}
	if rm >= 8 {
		b |= 0x01 // REX.B
	}
	if b == 0x40 {
		return 0
	}
	return b
}

func (o *Out) writeRex(w bool, reg, rm uint8) {
	if b := rex(w, reg, rm); b != 0 {
		o.Write(b)
	}
}

// modRM writes a register-direct ModR/M byte: 11|reg|r/m
func (o *Out) modRM(reg, rm uint8) {
	o.Write(0xC0 | (reg&7)<<3 | rm&7)
}

// memOperand writes ModR/M, SIB and displacement for [base+disp]. The
// displacement is always present, so rbp and r13 need no special case.
func (o *Out) memOperand(reg, base uint8, disp int32) {
	mod := uint8(0x80) // disp32
	if disp >= -128 && disp <= 127 {
		mod = 0x40 // disp8
	}
	o.Write(mod | (reg&7)<<3 | base&7)
	if base&7 == 4 {
		// rsp and r12 need a SIB byte: no index, base only
		o.Write(0x24)
	}
	if mod == 0x40 {
		o.Write(uint8(int8(disp)))
	} else {
		o.Write4(uint32(disp))
	}
}
