//go:build amd64 && (linux || darwin)

package compiler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xyproto/wist/internal/ffi"
	"github.com/xyproto/wist/internal/ir"
	"github.com/xyproto/wist/internal/stdlib"
)

func run(t *testing.T, src string, opts Options) int64 {
	t.Helper()
	res, err := CompileSource(src, opts)
	be.Err(t, err, nil)
	if err := res.Executable.CanExecute(); err != nil {
		t.Skip(err)
	}
	got, err := res.Run()
	be.Err(t, err, nil)
	return got
}

func TestRunConstantExpression(t *testing.T) {
	got := run(t, `(func main (params) i64 (block (ret (add 2 (mul 3 4)))))`, Options{})
	be.Equal(t, got, int64(14))
}

func TestRunInternalCall(t *testing.T) {
	got := run(t, `
(func add (params (ident a i64) (ident b i64)) i64 (block (ret (add a b))))
(func main (params) i64 (block (ret (call add 3 4))))`, Options{})
	be.Equal(t, got, int64(7))
}

func TestRunForeignDouble(t *testing.T) {
	r := NewRegistry()
	r.AddHostLibrary("libdouble", func(r *ffi.Registry) error {
		double := func(x uintptr) uintptr { return uintptr(int64(x) * 2) }
		return r.RegisterHost("Double", double, []ir.ValueType{ir.I64}, ir.I64)
	})
	got := run(t, `
(import "libdouble")
(func main (params) i64 (block (ret (call Double 21))))`, Options{Registry: r})
	be.Equal(t, got, int64(42))
}

func TestRunArithmetic(t *testing.T) {
	tests := []struct {
		expr string
		want int64
	}{
		{"(sub 3 10)", -7},
		{"(mul -4 5)", -20},
		{"(div -7 2)", -3},
		{"(mod -7 2)", -1},
		{"(div 100 7)", 14},
		{"(mod 100 7)", 2},
		{"(add 9223372036854775806 1)", 9223372036854775807},
		{"(sub -9223372036854775807 1)", -9223372036854775808},
		{"(add 9223372036854775807 1)", -9223372036854775808},
		{"(eq 4 4)", 1},
		{"(ne 4 4)", 0},
		{"(lt -1 0)", 1},
		{"(le 0 0)", 1},
		{"(gt 0 -1)", 1},
		{"(ge -2 -1)", 0},
		{"(gt 2.5 1.5)", 1},
		{"(lt 2.5 1.5)", 0},
		{"(eq (mul 1.5 2.0) 3.0)", 1},
		{"(ne (sub 1.0 0.5) 0.5)", 0},
		{"(ge (div 1.0 4.0) 0.25)", 1},
		{"(le 0.5 -0.5)", 0},
		{"(not 0)", 1},
		{"(not 7)", 0},
		{`(char "A")`, 65},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := run(t, "(func main (params) i64 (block (ret "+tt.expr+")))", Options{})
			be.Equal(t, got, tt.want)
		})
	}
}

func TestRunFloatFunction(t *testing.T) {
	got := run(t, `
(func half (params (ident x f64)) f64 (block (ret (div x 2.0))))
(func main (params) i64 (block (ret (eq (call half 5.0) 2.5))))`, Options{})
	be.Equal(t, got, int64(1))
}

func TestRunStructMethod(t *testing.T) {
	got := run(t, `
(struct Pair (ident a i64) (ident b i64))
(func Pair.sum (params (ident p Pair)) i64 (block (ret (add (member p a) (member p b)))))
(func main (params) i64 (block
  (ident q Pair)
  (set (member q a) 30)
  (set (member q b) 12)
  (ret (member q (call sum)))))`, Options{})
	be.Equal(t, got, int64(42))
}

func TestRunStructCopy(t *testing.T) {
	got := run(t, `
(struct Vec3 (ident x i64) (ident y i64) (ident z i64))
(func main (params) i64 (block
  (ident v Vec3)
  (ident w Vec3)
  (set (member v x) 1)
  (set (member v y) 20)
  (set (member v z) 300)
  (set w v)
  (ret (add (member w x) (add (member w y) (member w z))))))`, Options{})
	be.Equal(t, got, int64(321))
}

func TestRunRecursion(t *testing.T) {
	got := run(t, `
(func fact (params (ident n i64)) i64 (block
  (if (le n 1) (block (ret 1)))
  (ret (mul n (call fact (sub n 1))))))
(func main (params) i64 (block (ret (call fact 10))))`, Options{})
	be.Equal(t, got, int64(3628800))
}

func TestRunControlFlow(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int64
	}{
		{"for", `(func main (params) i64 (block
  (set (ident sum i64) 0)
  (for (set (ident i i64) 0) (lt i 10) (set i (add i 1))
    (block (set sum (add sum i))))
  (ret sum)))`, 45},
		{"goto", `(func main (params) i64 (block
  (set (ident n i64) 0)
  (label again)
  (set n (add n 1))
  (if (lt n 3) (block (goto again)))
  (ret n)))`, 3},
		{"elif", `(func sign (params (ident n i64)) i64 (block
  (if (lt n 0) (block (ret -1))
      (elif (eq n 0) (block (ret 0)))
      (else (block (ret 1))))))
(func main (params) i64 (block (ret (add (mul 100 (call sign -5)) (call sign 9)))))`, -99},
		{"pointers", `(func main (params) i64 (block
  (set (ident x i64) 1)
  (set (ident p i64*) (ref x))
  (set (deref i64 p) 41)
  (ret (add (deref i64 p) (not 0)))))`, 42},
		{"string length", `(func main (params) i64 (block
  (set (ident s i64) "hello")
  (ret (deref i64 (sub s 8)))))`, 5},
		{"none main", `(func main (params) none (block (ret)))`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Equal(t, run(t, tt.src, Options{}), tt.want)
		})
	}
}

func TestRunStd(t *testing.T) {
	var out bytes.Buffer
	stdlib.SetConsole(&out, strings.NewReader("8"))
	defer stdlib.SetConsole(&bytes.Buffer{}, strings.NewReader(""))

	got := run(t, `
(import "std")
(func main (params) i64 (block
  (call WriteI64 42)
  (call WriteStr "hi")
  (set (ident p i64) (call Allocator::Calloc 16))
  (call Mem::WriteI64 (add p 8) (call ReadI64))
  (set (ident v i64) (call Mem::ReadI64 (add p 8)))
  (call Allocator::Free p)
  (ret v)))`, Options{})
	be.Equal(t, got, int64(8))
	be.Equal(t, out.String(), "42\nhi")
}

func TestRunTypeConversions(t *testing.T) {
	got := run(t, `
(import "std")
(func main (params) i64 (block
  (set (ident x f64) (call Types::I64ToF64 21))
  (ret (call Types::F64ToI64 (mul x 2.0)))))`, Options{})
	be.Equal(t, got, int64(42))

	got = run(t, `
(import "std")
(func main (params) i64 (block
  (ret (call Types::F64ToI64 (mul (call Str::StrToF64 "1.5") 4.0)))))`, Options{})
	be.Equal(t, got, int64(6))
}

func TestRunStringOutput(t *testing.T) {
	var out bytes.Buffer
	stdlib.SetConsole(&out, strings.NewReader("-31\n"))
	defer stdlib.SetConsole(&bytes.Buffer{}, strings.NewReader(""))

	got := run(t, `
(import "std")
(func main (params) i64 (block
  (set (ident s i64) (call Str::I64ToStr (mul 6 7)))
  (call Console::Write s)
  (call Allocator::Free s)
  (call Console::WriteNoLn (call Str::F64ToStr 2.5))
  (ret (call Str::StrToI64 (call Console::Read)))))`, Options{})
	be.Equal(t, got, int64(-31))
	be.Equal(t, out.String(), "42\n2.5")
}
