//go:build darwin || freebsd || (linux && (amd64 || arm64)) || windows

package jit

import (
	"github.com/ebitengine/purego"
)

// call invokes the entry trampoline at addr with the platform C calling
// convention and returns rax
func call(addr uintptr) int64 {
	r1, _, _ := purego.SyscallN(addr)
	return int64(r1)
}
