//go:build darwin || freebsd || (linux && (amd64 || arm64))

package ffi

import (
	"github.com/ebitengine/purego"
)

func openLibrary(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

// Callback turns a Go function into a C-callable function pointer
func Callback(fn any) (uintptr, error) {
	return purego.NewCallback(fn), nil
}
