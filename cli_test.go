package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/engine"
)

var testConfig = Config{OS: "linux", Arch: "amd64", Output: "program.bin"}

// newContext parses args and captures the output
func newContext(t *testing.T, args ...string) (*CommandContext, *bytes.Buffer) {
	t.Helper()
	ctx, err := parseArgs(args, testConfig)
	be.Err(t, err, nil)
	var out bytes.Buffer
	ctx.Stdout = &out
	ctx.Stderr = &out
	ctx.Stdin = strings.NewReader("")
	return ctx, &out
}

func writeProgram(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.sx")
	be.Err(t, os.WriteFile(path, []byte(src), 0o644), nil)
	return path
}

func TestParseArgs(t *testing.T) {
	ctx, err := parseArgs([]string{"-v", "build", "-o", "out.bin", "--os", "windows", "-L", "a", "-L", "b", "prog.sx"}, testConfig)
	be.Err(t, err, nil)
	be.True(t, ctx.Verbose)
	be.Equal(t, ctx.Args, []string{"build", "prog.sx"})
	be.Equal(t, ctx.OutputPath, "out.bin")
	be.Equal(t, ctx.Target, engine.Target{Arch: engine.ArchX86_64, OS: engine.OSWindows})
	be.Equal(t, []string(ctx.ManifestDirs), []string{"a", "b"})

	ctx, err = parseArgs(nil, testConfig)
	be.Err(t, err, nil)
	be.Equal(t, len(ctx.Args), 0)
	be.Equal(t, ctx.OutputPath, "program.bin")

	_, err = parseArgs([]string{"--arch", "sparc", "run", "x.sx"}, testConfig)
	be.Err(t, err, "unknown architecture")

	_, err = parseArgs([]string{"--nope"}, testConfig)
	be.True(t, err != nil)
}

func TestSplitDirs(t *testing.T) {
	list := strings.Join([]string{"a", "", "b"}, string(filepath.ListSeparator))
	be.Equal(t, splitDirs(list), []string{"a", "b"})
	be.Equal(t, len(splitDirs("")), 0)
}

func TestHelpAndVersion(t *testing.T) {
	ctx, out := newContext(t)
	be.Err(t, RunCLI(ctx), nil)
	be.True(t, strings.Contains(out.String(), "USAGE:"))

	ctx, out = newContext(t, "--version")
	be.Err(t, RunCLI(ctx), nil)
	be.Equal(t, out.String(), versionString+"\n")

	ctx, _ = newContext(t, "frobnicate")
	be.Err(t, RunCLI(ctx), "unknown command: frobnicate")

	ctx, _ = newContext(t, "run")
	be.Err(t, RunCLI(ctx), "usage: wist run")
}

func TestBuild(t *testing.T) {
	prog := writeProgram(t, `(func main (params) i64 (block (ret 42)))`)
	output := filepath.Join(t.TempDir(), "prog.bin")
	ctx, out := newContext(t, "build", "-o", output, prog)
	be.Err(t, RunCLI(ctx), nil)

	code, err := os.ReadFile(output)
	be.Err(t, err, nil)
	be.True(t, len(code) > 0)
	be.True(t, strings.HasPrefix(out.String(), "wrote "))
}

func TestIR(t *testing.T) {
	prog := writeProgram(t, `(func main (params) i64 (block (set (ident x i64) 2) (ret x)))`)
	ctx, out := newContext(t, "ir", prog)
	be.Err(t, RunCLI(ctx), nil)
	be.True(t, strings.Contains(out.String(), "main() -> i64"))
	be.True(t, strings.Contains(out.String(), "SetLocal.I x"))
}

func TestCompileErrorIsReported(t *testing.T) {
	prog := writeProgram(t, `(func main (params) i64 (block (ret (call nope))))`)
	ctx, _ := newContext(t, "ir", prog)
	err := RunCLI(ctx)
	be.True(t, errors.Is(err, diag.ErrUnknownFunction))
	var ce *diag.CompilerError
	be.True(t, errors.As(err, &ce))
	be.True(t, strings.Contains(ce.Format(false), "[UnknownFunction]"))
}

func TestRunExitStatus(t *testing.T) {
	if runtime.GOARCH != "amd64" || runtime.GOOS != "linux" {
		t.Skip("runs linux x86-64 code in process")
	}
	prog := writeProgram(t, `(func main (params) i64 (block (ret 300)))`)
	ctx, out := newContext(t, "run", prog)
	var status ExitStatus
	be.True(t, errors.As(RunCLI(ctx), &status))
	be.Equal(t, int(status), 44)
	be.Equal(t, out.String(), "300\n")

	prog = writeProgram(t, `(func main (params) i64 (block (ret 512)))`)
	ctx, out = newContext(t, "-q", "run", prog)
	be.Err(t, RunCLI(ctx), nil)
	be.Equal(t, out.String(), "")
}

func TestRunExample(t *testing.T) {
	if runtime.GOARCH != "amd64" || runtime.GOOS != "linux" {
		t.Skip("runs linux x86-64 code in process")
	}
	ctx, out := newContext(t, "run", filepath.Join("examples", "fact.sx"))
	be.Err(t, RunCLI(ctx), nil)
	be.Equal(t, out.String(), "10! = 3628800\n3628800\n")
}

func TestGoldenCommand(t *testing.T) {
	ctx, out := newContext(t, "test", filepath.Join("internal", "golden", "testdata"))
	be.Err(t, RunCLI(ctx), nil)
	be.True(t, strings.Contains(out.String(), "All tests passed"))

	failing := filepath.Join(t.TempDir(), "fail.md")
	doc := "## Test: wrong\n```wist-tree\n(func main (params) i64 (block (ret 1)))\n```\n```compile-error\nTypeMismatch\n```\n"
	be.Err(t, os.WriteFile(failing, []byte(doc), 0o644), nil)
	ctx, out = newContext(t, "test", failing)
	be.Err(t, RunCLI(ctx), "1 test(s) failed")
	be.True(t, strings.Contains(out.String(), "FAIL fail.md: wrong"))
}
