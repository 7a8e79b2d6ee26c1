//go:build windows

package jit

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// allocExecutable commits a PAGE_EXECUTE_READWRITE region, copies code
// into it and returns its address
func allocExecutable(code []byte) (uintptr, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(len(code)), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return 0, err
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(code)), code)
	return addr, nil
}
