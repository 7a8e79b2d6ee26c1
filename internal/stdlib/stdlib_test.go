package stdlib

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"strings"
	"testing"
	"unsafe"

	"github.com/nalgeon/be"
	"github.com/xyproto/wist/internal/abi"
	"github.com/xyproto/wist/internal/ffi"
)

func unary(t *testing.T, key string) func(uintptr) uintptr {
	t.Helper()
	fn, ok := implementations[key].(func(uintptr) uintptr)
	be.True(t, ok)
	return fn
}

func TestManifestCoversImplementations(t *testing.T) {
	m, err := ffi.ParseManifest(manifest)
	be.Err(t, err, nil)
	count := 0
	for _, lib := range m.Libraries {
		be.True(t, lib.Recognized())
		for _, sig := range lib.Functions {
			_, ok := implementations[lib.Name+"."+sig.Name]
			be.True(t, ok)
			count++
		}
	}
	be.Equal(t, count, len(implementations))
	for key := range bridges {
		_, ok := implementations[key]
		be.True(t, ok)
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	SetConsole(&buf, strings.NewReader("  -17\n"))
	defer SetConsole(&bytes.Buffer{}, strings.NewReader(""))

	minus := int64(-3)
	unary(t, "ConsoleLibrary.WriteI64")(uintptr(minus))
	unary(t, "ConsoleLibrary.WriteI64NoLn")(7)
	unary(t, "ConsoleLibrary.WriteI64NoLn")(8)
	implementations["ConsoleLibrary.WriteLn"].(func() uintptr)()
	be.Equal(t, buf.String(), "-3\n7 8 \n")

	got := implementations["ConsoleLibrary.ReadI64"].(func() uintptr)()
	be.Equal(t, int64(got), int64(-17))
	got = implementations["ConsoleLibrary.ReadI64"].(func() uintptr)()
	be.Equal(t, got, uintptr(0))
}

func TestWriteStr(t *testing.T) {
	var buf bytes.Buffer
	SetConsole(&buf, strings.NewReader(""))
	defer SetConsole(&bytes.Buffer{}, strings.NewReader(""))

	// Same layout as a string literal: length, then the bytes
	data := make([]byte, 8+5)
	binary.LittleEndian.PutUint64(data, 5)
	copy(data[8:], "hello")
	unary(t, "ConsoleLibrary.WriteStr")(uintptr(unsafe.Pointer(&data[8])))
	unary(t, "ConsoleLibrary.WriteStr")(0)
	be.Equal(t, buf.String(), "hello")
}

func TestAllocatorAndMemory(t *testing.T) {
	before := Allocated()
	p := unary(t, "AllocatorLibrary.Calloc")(20)
	be.True(t, p != 0)
	be.Equal(t, p%8, uintptr(0))
	be.Equal(t, Allocated(), before+1)

	read := unary(t, "MemLibrary.ReadI64")
	write := implementations["MemLibrary.WriteI64"].(func(uintptr, uintptr) uintptr)
	be.Equal(t, read(p+16), uintptr(0))
	write(p+8, 99)
	be.Equal(t, read(p+8), uintptr(99))

	unary(t, "AllocatorLibrary.Free")(p)
	be.Equal(t, Allocated(), before)
	be.Equal(t, unary(t, "AllocatorLibrary.Calloc")(0), uintptr(0))
}

func TestConsoleStrings(t *testing.T) {
	var buf bytes.Buffer
	SetConsole(&buf, strings.NewReader("first line\r\nsecond"))
	defer SetConsole(&bytes.Buffer{}, strings.NewReader(""))

	read := implementations["StdConsoleLib.Read"].(func() uintptr)
	first, second := read(), read()
	be.Equal(t, readString(first), "first line")
	be.Equal(t, readString(second), "second")
	be.Equal(t, read(), uintptr(0))

	unary(t, "StdConsoleLib.WriteNoLn")(first)
	unary(t, "StdConsoleLib.Write")(second)
	be.Equal(t, buf.String(), "first linesecond\n")

	free := unary(t, "AllocatorLibrary.Free")
	free(first)
	free(second)
}

func TestColors(t *testing.T) {
	var buf bytes.Buffer
	SetConsole(&buf, strings.NewReader(""))
	defer SetConsole(&bytes.Buffer{}, strings.NewReader(""))

	red := implementations["ConsoleLibrary.GetRedColor"].(func() uintptr)()
	be.Equal(t, red, uintptr(12))
	unary(t, "ConsoleLibrary.SetColor")(red)
	unary(t, "StdConsoleLib.SetColor")(99)
	implementations["StdConsoleLib.ResetColor"].(func() uintptr)()
	be.Equal(t, buf.String(), "\x1b[91m\x1b[0m")
}

func TestConversions(t *testing.T) {
	minus := int64(-3)
	bits := unary(t, "TypesLib.I64ToF64")(uintptr(minus))
	be.Equal(t, math.Float64frombits(uint64(bits)), -3.0)

	toInt := unary(t, "TypesLib.F64ToI64")
	be.Equal(t, toInt(uintptr(math.Float64bits(41.9))), uintptr(41))
	// The small bias absorbs representation error just below a whole number
	be.Equal(t, toInt(uintptr(math.Float64bits(2.99995))), uintptr(3))
}

func TestStrings(t *testing.T) {
	before := Allocated()

	minus := int64(-42)
	s := unary(t, "StringLib.I64ToStr")(uintptr(minus))
	be.Equal(t, readString(s), "-42")
	be.Equal(t, s%8, uintptr(0))

	f := unary(t, "StringLib.F64ToStr")(uintptr(math.Float64bits(2.5)))
	be.Equal(t, readString(f), "2.5")

	n := newString(" 17 ")
	be.Equal(t, unary(t, "StringLib.StrToI64")(n), uintptr(17))
	x := newString("0.25")
	bits := unary(t, "StringLib.StrToF64")(x)
	be.Equal(t, math.Float64frombits(uint64(bits)), 0.25)

	empty := newString("")
	be.Equal(t, readString(empty), "")

	be.Equal(t, Allocated(), before+5)
	free := unary(t, "AllocatorLibrary.Free")
	for _, p := range []uintptr{s, f, n, x, empty} {
		free(p)
	}
	be.Equal(t, Allocated(), before)
}

func TestThrow(t *testing.T) {
	var msgs bytes.Buffer
	status := -1
	SetErrors(&msgs)
	exit = func(code int) { status = code }
	defer func() {
		SetErrors(&bytes.Buffer{})
		exit = os.Exit
	}()

	msg := newString("boom")
	unary(t, "ErrLib.Throw")(msg)
	be.Equal(t, status, 1)
	be.Equal(t, msgs.String(), "error: boom\n")

	msgs.Reset()
	status = -1
	bad := newString("abc")
	be.Equal(t, unary(t, "StringLib.StrToI64")(bad), uintptr(0))
	be.Equal(t, status, 1)
	be.Equal(t, msgs.String(), "error: Str::StrToI64: \"abc\" is not an integer\n")

	free := unary(t, "AllocatorLibrary.Free")
	free(msg)
	free(bad)
}

func TestBridgeCode(t *testing.T) {
	target := uintptr(0x1122334455667788)
	movabs := []byte{0x48, 0xB8, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}

	code, err := floatArg.code(&abi.SystemVAMD64{}, target)
	be.Err(t, err, nil)
	want := append([]byte{0x66, 0x48, 0x0F, 0x7E, 0xC7}, movabs...) // movq rdi, xmm0
	want = append(want, 0xFF, 0xE0)                                // jmp rax
	be.Equal(t, code, want)

	code, err = floatArg.code(&abi.MicrosoftX64{}, target)
	be.Err(t, err, nil)
	be.Equal(t, code[:5], []byte{0x66, 0x48, 0x0F, 0x7E, 0xC1}) // movq rcx, xmm0

	code, err = floatResult.code(&abi.MicrosoftX64{}, target)
	be.Err(t, err, nil)
	want = append([]byte{0x48, 0x83, 0xEC, 0x28}, movabs...) // sub rsp, 40
	want = append(want,
		0xFF, 0xD0, // call rax
		0x48, 0x83, 0xC4, 0x28, // add rsp, 40
		0x66, 0x48, 0x0F, 0x6E, 0xC0, // movq xmm0, rax
		0xC3, // ret
	)
	be.Equal(t, code, want)
}
