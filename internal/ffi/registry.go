// Package ffi loads native libraries and resolves the functions their
// manifests declare
package ffi

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/engine"
	"github.com/xyproto/wist/internal/ir"
)

// ManifestSuffix is appended to a library path to find its manifest
const ManifestSuffix = ".manifest"

// HostLibrary installs Go functions into a registry in place of a native
// library, for import paths registered with AddHostLibrary
type HostLibrary func(r *Registry) error

// Registry maps qualified names to native functions. Imports are
// idempotent per cleaned path and libraries stay loaded for the lifetime
// of the process.
type Registry struct {
	// ManifestDirs are searched by library base name when no manifest sits
	// next to the library
	ManifestDirs []string

	functions map[string]ir.Foreign
	imported  map[string]bool
	hosts     map[string]HostLibrary
}

func NewRegistry(manifestDirs ...string) *Registry {
	return &Registry{
		ManifestDirs: manifestDirs,
		functions:    make(map[string]ir.Foreign),
		imported:     make(map[string]bool),
		hosts:        make(map[string]HostLibrary),
	}
}

// AddHostLibrary makes import path install Go functions instead of
// loading a file
func (r *Registry) AddHostLibrary(path string, install HostLibrary) {
	r.hosts[path] = install
}

// Import loads the library at path and registers the functions of every
// recognized container of its manifest under prefix+name
func (r *Registry) Import(path string) error {
	if install, ok := r.hosts[path]; ok {
		if r.imported[path] {
			return nil
		}
		if err := install(r); err != nil {
			return fmt.Errorf("installing %s: %w", path, err)
		}
		r.imported[path] = true
		return nil
	}

	clean := filepath.Clean(path)
	if r.imported[clean] {
		if engine.VerboseMode {
			fmt.Fprintf(os.Stderr, "ffi: %s already imported\n", clean)
		}
		return nil
	}

	manifestPath, err := r.findManifest(clean)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	manifest, err := ParseManifest(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", manifestPath, err)
	}

	handle, err := openLibrary(clean)
	if err != nil {
		return diag.New(diag.KindUnresolvedSymbol, diag.Location{Seq: -1}, "cannot load library %s: %v", clean, err)
	}

	for _, lib := range manifest.Libraries {
		if !lib.Recognized() {
			if engine.VerboseMode {
				fmt.Fprintf(os.Stderr, "ffi: skipping %s in %s\n", lib.Name, clean)
			}
			continue
		}
		for _, sig := range lib.Functions {
			addr, err := lookupSymbol(handle, sig.Name)
			if err != nil {
				return diag.UnresolvedSymbol(diag.Location{Seq: -1}, sig.Name).WithHelp("%s does not export it: %v", clean, err)
			}
			if err := r.Register(lib.Prefix+sig.Name, addr, sig.Params, sig.Return); err != nil {
				return err
			}
		}
	}
	r.imported[clean] = true
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "ffi: imported %s (%s)\n", clean, manifestPath)
	}
	return nil
}

// findManifest looks next to the library first, then in ManifestDirs
func (r *Registry) findManifest(libPath string) (string, error) {
	candidates := []string{libPath + ManifestSuffix}
	for _, dir := range r.ManifestDirs {
		candidates = append(candidates, filepath.Join(dir, filepath.Base(libPath)+ManifestSuffix))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", diag.New(diag.KindUnresolvedSymbol, diag.Location{Seq: -1}, "no manifest for %s", libPath).
		WithHelp("looked for %v", candidates)
}

// Register adds a function at a known address
func (r *Registry) Register(name string, addr uintptr, params []ir.ValueType, ret ir.ValueType) error {
	if _, exists := r.functions[name]; exists {
		return diag.DuplicateDeclaration(diag.Location{Seq: -1}, "foreign function", name)
	}
	if addr == 0 {
		return diag.UnresolvedSymbol(diag.Location{Seq: -1}, name).WithHelp("null address")
	}
	r.functions[name] = ir.Foreign{Name: name, Addr: addr, Params: slices.Clone(params), Return: ret}
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "ffi: %s at 0x%x\n", name, addr)
	}
	return nil
}

// RegisterHost makes a Go function callable from generated code. fn must
// take and return only uintptr-sized integers.
func (r *Registry) RegisterHost(name string, fn any, params []ir.ValueType, ret ir.ValueType) error {
	addr, err := Callback(fn)
	if err != nil {
		return err
	}
	return r.Register(name, addr, params, ret)
}

func (r *Registry) HasFunction(name string) bool {
	_, ok := r.functions[name]
	return ok
}

func (r *Registry) Resolve(name string) (ir.Foreign, error) {
	f, ok := r.functions[name]
	if !ok {
		return ir.Foreign{}, diag.UnresolvedSymbol(diag.Location{Seq: -1}, name).WithSuggestion(engine.FindSimilar(name, r.Names(), 2))
	}
	return f, nil
}

// Names lists every registered function, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
