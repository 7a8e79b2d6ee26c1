//go:build !darwin && !freebsd && !(linux && (amd64 || arm64)) && !windows

package jit

// call is never reached here: CanExecute rejects hosts without a known ABI
func call(addr uintptr) int64 {
	panic("jit: no native call support on this platform")
}
