package compiler

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/engine"
	"github.com/xyproto/wist/internal/ir"
)

var linux = Options{Target: engine.Target{Arch: engine.ArchX86_64, OS: engine.OSLinux}}

func TestCompileProducesCode(t *testing.T) {
	res, err := CompileSource(`(func main (params) i64 (block (ret (add 2 (mul 3 4)))))`, linux)
	be.Err(t, err, nil)
	be.True(t, len(res.Executable.Code) > 0)
	be.Equal(t, res.Executable.Symbols["main"] > 0, true)
	be.Equal(t, res.Timings.Total(), res.Timings.Lowering+res.Timings.Verify+res.Timings.Codegen)

	main, ok := res.Image.Function("main")
	be.True(t, ok)
	be.Equal(t, main.Return, ir.I64)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"type mismatch", `(func main (params) i64 (block (ret (add 1 2.5))))`, diag.ErrTypeMismatch},
		{"unknown function", `(func main (params) i64 (block (ret (call Nope 1))))`, diag.ErrUnknownFunction},
		{"missing return", `(func f (params) i64 (block (set (ident x i64) 1))) (func main (params) i64 (block (ret 0)))`, diag.ErrMissingReturn},
		{"missing import", `(import "libmissing.so") (func main (params) i64 (block (ret 0)))`, diag.ErrUnresolvedSymbol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := CompileSource(tt.src, linux)
			be.True(t, res == nil)
			be.True(t, errors.Is(err, tt.want))
		})
	}
}

func TestTooManyArgumentsBeforeCodegen(t *testing.T) {
	r := NewRegistry()
	params := make([]ir.ValueType, 7)
	for i := range params {
		params[i] = ir.I64
	}
	// The address is never called
	be.Err(t, r.Register("Sum7", 0x1000, params, ir.I64), nil)

	opts := linux
	opts.Registry = r
	_, err := CompileSource(`(func main (params) i64 (block (ret (call Sum7 1 2 3 4 5 6 7))))`, opts)
	be.True(t, errors.Is(err, diag.ErrTooManyArguments))
}

func TestUnsupportedTargets(t *testing.T) {
	src := `(func main (params) i64 (block (ret 0)))`
	_, err := CompileSource(src, Options{Target: engine.Target{Arch: engine.ArchARM64, OS: engine.OSLinux}})
	be.True(t, errors.Is(err, diag.ErrUnsupportedPlatform))
	_, err = CompileSource(src, Options{Target: engine.Target{Arch: engine.ArchX86_64, OS: engine.OSUnknown}})
	be.True(t, errors.Is(err, diag.ErrUnsupportedPlatform))
}

func TestReadError(t *testing.T) {
	_, err := CompileSource(`(func main`, linux)
	be.Err(t, err, "reading tree")
}

func TestWindowsTarget(t *testing.T) {
	opts := Options{Target: engine.Target{Arch: engine.ArchX86_64, OS: engine.OSWindows}}
	res, err := CompileSource(`(func main (params) i64 (block (ret 1)))`, opts)
	be.Err(t, err, nil)
	be.Equal(t, res.Executable.Target.OS, engine.OSWindows)
}

func TestPipelineOrder(t *testing.T) {
	p := newPipeline()
	p.advanceTo(StageLowering)
	p.advanceTo(StageVerify)
	defer func() {
		be.True(t, recover() != nil)
	}()
	p.advanceTo(StageComplete)
}

func TestStageNames(t *testing.T) {
	be.Equal(t, StageLowering.String(), "IR Lowering")
	be.Equal(t, StageCodegen.String(), "Code Generation")
	be.Equal(t, Stage(42).String(), "Unknown Stage 42")
}
