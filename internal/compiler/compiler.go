// Package compiler drives a syntax tree through lowering, verification and
// code generation
package compiler

import (
	"fmt"
	"os"

	"github.com/xyproto/wist/internal/abi"
	"github.com/xyproto/wist/internal/ast"
	"github.com/xyproto/wist/internal/codegen"
	"github.com/xyproto/wist/internal/engine"
	"github.com/xyproto/wist/internal/ffi"
	"github.com/xyproto/wist/internal/ir"
	"github.com/xyproto/wist/internal/jit"
	"github.com/xyproto/wist/internal/stdlib"
)

// Options configures a compilation
type Options struct {
	// Target defaults to the host
	Target engine.Target

	// Registry resolves imports. When nil, a fresh registry is made that
	// searches ManifestDirs and knows the "std" host library.
	Registry     *ffi.Registry
	ManifestDirs []string
}

// Result is a successful compilation
type Result struct {
	Image      *ir.Image
	Executable *jit.Executable
	Timings    Timings
}

// NewRegistry returns a registry that searches dirs for manifests and can
// import the host library
func NewRegistry(dirs ...string) *ffi.Registry {
	r := ffi.NewRegistry(dirs...)
	r.AddHostLibrary(stdlib.ImportPath, stdlib.Install)
	return r
}

// Compile lowers, verifies and generates code for tree. The first error
// stops the compilation.
func Compile(tree *ast.Tree, opts Options) (*Result, error) {
	target := opts.Target
	if target == (engine.Target{}) {
		target = engine.HostTarget()
	}
	conv, err := abi.For(target)
	if err != nil {
		return nil, err
	}
	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry(opts.ManifestDirs...)
	}

	p := newPipeline()

	p.advanceTo(StageLowering)
	img, err := ir.Lower(tree, ir.Options{Foreign: registry, Convention: conv})
	if err != nil {
		return nil, err
	}

	p.advanceTo(StageVerify)
	for _, fn := range img.Functions {
		if _, err := ir.Verify(img, fn); err != nil {
			return nil, err
		}
	}

	p.advanceTo(StageCodegen)
	exe, err := codegen.Generate(img, target)
	if err != nil {
		return nil, err
	}

	p.advanceTo(StageComplete)
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "compiled %d functions into %d bytes for %s (%s)\n", len(img.Functions), len(exe.Code), target, p.timings)
	}
	return &Result{Image: img, Executable: exe, Timings: p.timings}, nil
}

// CompileSource reads the s-expression form of a tree and compiles it
func CompileSource(src string, opts Options) (*Result, error) {
	tree, err := ast.Read(src)
	if err != nil {
		return nil, fmt.Errorf("reading tree: %w", err)
	}
	return Compile(tree, opts)
}

// Run executes a compiled program and returns what main returned
func (r *Result) Run() (int64, error) {
	return r.Executable.Execute()
}
