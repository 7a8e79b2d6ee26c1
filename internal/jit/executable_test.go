package jit

import (
	"errors"
	"runtime"
	"testing"
	"unsafe"

	"github.com/nalgeon/be"
	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/engine"
)

func TestToBinaryCopies(t *testing.T) {
	e := New([]byte{0xC3}, engine.HostTarget(), nil)
	bin := e.ToBinary()
	bin[0] = 0x90
	be.Equal(t, e.Code[0], byte(0xC3))
}

func TestExecuteReturnsRax(t *testing.T) {
	e := New([]byte{
		0x48, 0xC7, 0xC0, 0x2A, 0x00, 0x00, 0x00, // mov rax, 42
		0xC3, // ret
	}, engine.HostTarget(), nil)
	if err := e.CanExecute(); err != nil {
		t.Skipf("cannot execute here: %v", err)
	}
	got, err := e.Execute()
	be.Err(t, err, nil)
	be.Equal(t, got, int64(42))
}

func TestExecuteRejectsForeignABI(t *testing.T) {
	other := engine.Target{Arch: engine.ArchX86_64, OS: engine.OSWindows}
	if runtime.GOOS == "windows" {
		other.OS = engine.OSLinux
	}
	e := New([]byte{0xC3}, other, nil)
	_, err := e.Execute()
	be.True(t, errors.Is(err, diag.ErrUnsupportedPlatform))
}

func TestExecuteRejectsOtherArch(t *testing.T) {
	e := New([]byte{0xC3}, engine.Target{Arch: engine.ArchARM64, OS: engine.OSLinux}, nil)
	_, err := e.Execute()
	be.True(t, errors.Is(err, diag.ErrUnsupportedPlatform))
}

func TestMapCode(t *testing.T) {
	_, err := MapCode(nil)
	be.True(t, errors.Is(err, diag.ErrInternal))

	code := []byte{0x90, 0xC3}
	addr, err := MapCode(code)
	if errors.Is(err, diag.ErrUnsupportedPlatform) {
		t.Skip(err)
	}
	be.Err(t, err, nil)
	be.Equal(t, unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(code)), code)
}
