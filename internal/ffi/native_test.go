//go:build amd64 && (linux || darwin)

package ffi

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ebitengine/purego"
	"github.com/nalgeon/be"
	"github.com/xyproto/wist/internal/ir"
)

func TestRegisterHostCallback(t *testing.T) {
	r := NewRegistry()
	double := func(x uintptr) uintptr { return uintptr(int64(x) * 2) }
	be.Err(t, r.RegisterHost("Double", double, []ir.ValueType{ir.I64}, ir.I64), nil)

	f, err := r.Resolve("Double")
	be.Err(t, err, nil)
	got, _, _ := purego.SyscallN(f.Addr, 21)
	be.Equal(t, int64(got), int64(42))
}

func TestImportLibc(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("libc.so.6 is a glibc name")
	}
	dir := t.TempDir()
	manifest := `(library CLib "C::" (fn labs (i64) i64))`
	be.Err(t, os.WriteFile(filepath.Join(dir, "libc.so.6"+ManifestSuffix), []byte(manifest), 0o644), nil)

	r := NewRegistry(dir)
	if err := r.Import("libc.so.6"); err != nil {
		t.Skipf("no glibc here: %v", err)
	}
	be.Err(t, r.Import("libc.so.6"), nil)

	f, err := r.Resolve("C::labs")
	be.Err(t, err, nil)
	minusFive := int64(-5)
	got, _, _ := purego.SyscallN(f.Addr, uintptr(minusFive))
	be.Equal(t, int64(got), int64(5))
}
