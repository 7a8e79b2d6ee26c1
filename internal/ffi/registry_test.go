package ffi

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/ir"
)

const mathManifest = `
; two containers, one of them ignored
(library MathLibrary "Math::"
  (fn Double (i64) i64)
  (fn Scale (f64 i64) f64))
(library Helpers (fn Ignored () none))
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest(mathManifest)
	be.Err(t, err, nil)
	be.Equal(t, len(m.Libraries), 2)

	math := m.Libraries[0]
	be.Equal(t, math.Name, "MathLibrary")
	be.Equal(t, math.Prefix, "Math::")
	be.True(t, math.Recognized())
	be.Equal(t, math.Functions, []Signature{
		{Name: "Double", Params: []ir.ValueType{ir.I64}, Return: ir.I64},
		{Name: "Scale", Params: []ir.ValueType{ir.F64, ir.I64}, Return: ir.F64},
	})

	helpers := m.Libraries[1]
	be.Equal(t, helpers.Prefix, "")
	be.True(t, !helpers.Recognized())
	be.Equal(t, helpers.Functions[0].Return, ir.None)
	be.Equal(t, len(helpers.Functions[0].Params), 0)
}

func TestRecognizedSuffixes(t *testing.T) {
	for name, want := range map[string]bool{
		"ConsoleLibrary": true,
		"CLib":           true,
		"Library":        true,
		"Helpers":        false,
		"LibraryTools":   false,
	} {
		lib := Library{Name: name}
		be.Equal(t, lib.Recognized(), want)
	}
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{`(lib X)`, "expected (library Name ...)"},
		{`(library "X")`, "library needs a name"},
		{`(library XLib (fn F (str) i64))`, `bad parameter type "str"`},
		{`(library XLib (fn F (i64) int32))`, `bad return type "int32"`},
		{`(library XLib (fn F (i64)))`, "expected (fn Name (params...) ret)"},
		{`(library XLib (fn F () none) (fn F () none))`, "F listed twice"},
		{`(library XLib`, "unclosed list"},
	}
	for _, tt := range tests {
		_, err := ParseManifest(tt.src)
		be.Err(t, err, tt.want)
	}
}

func TestRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	be.Err(t, r.Register("Math::Double", 0x1000, []ir.ValueType{ir.I64}, ir.I64), nil)
	be.True(t, r.HasFunction("Math::Double"))
	be.True(t, !r.HasFunction("Double"))

	f, err := r.Resolve("Math::Double")
	be.Err(t, err, nil)
	be.Equal(t, f.Addr, uintptr(0x1000))
	be.Equal(t, f.Params, []ir.ValueType{ir.I64})

	err = r.Register("Math::Double", 0x2000, nil, ir.None)
	be.True(t, errors.Is(err, diag.ErrDuplicateDeclaration))

	_, err = r.Resolve("Math::Doubel")
	be.True(t, errors.Is(err, diag.ErrUnresolvedSymbol))
	var ce *diag.CompilerError
	be.True(t, errors.As(err, &ce))
	be.Equal(t, ce.Context.Suggestion, "did you mean 'Math::Double'?")

	be.True(t, errors.Is(r.Register("Null", 0, nil, ir.None), diag.ErrUnresolvedSymbol))
	be.Equal(t, r.Names(), []string{"Math::Double"})
}

func TestRegisterCopiesParams(t *testing.T) {
	r := NewRegistry()
	params := []ir.ValueType{ir.I64}
	be.Err(t, r.Register("F", 0x1000, params, ir.I64), nil)
	params[0] = ir.F64
	f, _ := r.Resolve("F")
	be.Equal(t, f.Params[0], ir.I64)
}

func TestImportWithoutManifest(t *testing.T) {
	r := NewRegistry(t.TempDir())
	err := r.Import(filepath.Join(t.TempDir(), "libnothing.so"))
	be.True(t, errors.Is(err, diag.ErrUnresolvedSymbol))
	be.Err(t, err, "no manifest")
}

func TestImportBadManifest(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "libbad.so")
	be.Err(t, os.WriteFile(lib+ManifestSuffix, []byte("(library BadLib (fn F (str) i64))"), 0o644), nil)
	err := NewRegistry().Import(lib)
	be.Err(t, err, "bad parameter type")
}

func TestHostLibraryIsIdempotent(t *testing.T) {
	r := NewRegistry()
	installs := 0
	r.AddHostLibrary("host", func(r *Registry) error {
		installs++
		return r.Register("HostFn", 0x1000, nil, ir.I64)
	})
	be.Err(t, r.Import("host"), nil)
	be.Err(t, r.Import("host"), nil)
	be.Equal(t, installs, 1)
	be.True(t, r.HasFunction("HostFn"))
}
