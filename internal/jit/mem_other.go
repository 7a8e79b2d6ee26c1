//go:build !unix && !windows

package jit

import "github.com/xyproto/wist/internal/diag"

func allocExecutable(code []byte) (uintptr, error) {
	return 0, diag.UnsupportedPlatform("no executable memory on this platform")
}
