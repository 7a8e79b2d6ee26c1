package ffi

import (
	"fmt"
	"strings"

	"github.com/xyproto/wist/internal/ir"
	"github.com/xyproto/wist/internal/sexpr"
)

// Signature is one exported function of a native library
type Signature struct {
	Name   string
	Params []ir.ValueType
	Return ir.ValueType
}

// Library is one (library Name "Prefix" (fn ...)...) container of a manifest
type Library struct {
	Name      string
	Prefix    string
	Functions []Signature
}

// Recognized reports whether the container name marks a library whose
// functions are registered. Other containers are ignored.
func (l *Library) Recognized() bool {
	return strings.HasSuffix(l.Name, "Library") || strings.HasSuffix(l.Name, "Lib")
}

// Manifest lists the functions a native library exports:
//
//	(library MathLibrary "Math::"
//	  (fn Double (i64) i64)
//	  (fn Scale (f64 i64) f64))
type Manifest struct {
	Libraries []Library
}

// ParseManifest reads a manifest from its s-expression text
func ParseManifest(src string) (*Manifest, error) {
	forms, err := sexpr.ParseAll(src)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	m := &Manifest{}
	for _, form := range forms {
		if form.Head() != "library" {
			return nil, fmt.Errorf("manifest line %d: expected (library Name ...)", form.Line)
		}
		lib, err := parseLibrary(form)
		if err != nil {
			return nil, err
		}
		m.Libraries = append(m.Libraries, lib)
	}
	return m, nil
}

func parseLibrary(form *sexpr.Node) (Library, error) {
	items := form.Items[1:]
	if len(items) == 0 || items[0].Type != sexpr.NodeSymbol {
		return Library{}, fmt.Errorf("manifest line %d: library needs a name", form.Line)
	}
	lib := Library{Name: items[0].Text}
	items = items[1:]
	if len(items) > 0 && items[0].Type == sexpr.NodeString {
		lib.Prefix = items[0].Text
		items = items[1:]
	}
	seen := make(map[string]bool)
	for _, item := range items {
		sig, err := parseSignature(item)
		if err != nil {
			return Library{}, err
		}
		if seen[sig.Name] {
			return Library{}, fmt.Errorf("manifest line %d: %s listed twice in %s", item.Line, sig.Name, lib.Name)
		}
		seen[sig.Name] = true
		lib.Functions = append(lib.Functions, sig)
	}
	return lib, nil
}

// parseSignature reads (fn Name (param types...) return type)
func parseSignature(item *sexpr.Node) (Signature, error) {
	if item.Head() != "fn" || len(item.Items) != 4 {
		return Signature{}, fmt.Errorf("manifest line %d: expected (fn Name (params...) ret)", item.Line)
	}
	name, params, ret := item.Items[1], item.Items[2], item.Items[3]
	if name.Type != sexpr.NodeSymbol || params.Type != sexpr.NodeList || ret.Type != sexpr.NodeSymbol {
		return Signature{}, fmt.Errorf("manifest line %d: expected (fn Name (params...) ret)", item.Line)
	}
	sig := Signature{Name: name.Text}
	for _, p := range params.Items {
		t := ir.ParseType(p.Text)
		if p.Type != sexpr.NodeSymbol || t == ir.Invalid || t == ir.None {
			return Signature{}, fmt.Errorf("manifest line %d: %s: bad parameter type %q", p.Line, sig.Name, p.Text)
		}
		sig.Params = append(sig.Params, t)
	}
	sig.Return = ir.ParseType(ret.Text)
	if sig.Return == ir.Invalid {
		return Signature{}, fmt.Errorf("manifest line %d: %s: bad return type %q", ret.Line, sig.Name, ret.Text)
	}
	return sig, nil
}
