//go:build !darwin && !freebsd && !(linux && (amd64 || arm64)) && !windows

package ffi

import (
	"github.com/xyproto/wist/internal/diag"
)

func openLibrary(path string) (uintptr, error) {
	return 0, diag.UnsupportedPlatform("cannot load native libraries on this platform")
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return 0, diag.UnsupportedPlatform("cannot look up native symbols on this platform")
}

func Callback(fn any) (uintptr, error) {
	return 0, diag.UnsupportedPlatform("cannot call Go functions from native code on this platform")
}
