//go:build windows

package ffi

import (
	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"
)

func openLibrary(path string) (uintptr, error) {
	h, err := windows.LoadLibrary(path)
	return uintptr(h), err
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

// Callback turns a Go function into a C-callable function pointer
func Callback(fn any) (uintptr, error) {
	return purego.NewCallback(fn), nil
}
