//go:build unix

package jit

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// allocExecutable maps an anonymous read/write/execute region, copies code
// into it and returns its address
func allocExecutable(code []byte) (uintptr, error) {
	mem, err := unix.Mmap(-1, 0, len(code), unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}
	copy(mem, code)
	return uintptr(unsafe.Pointer(&mem[0])), nil
}
