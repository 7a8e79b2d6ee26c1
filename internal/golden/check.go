package golden

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xyproto/wist/internal/compiler"
	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/sexpr"
	"github.com/xyproto/wist/internal/stdlib"
)

// ErrSkipped is returned for cases whose assertions need to run code that
// this host cannot run
var ErrSkipped = errors.New("skipped")

// Check compiles the case and returns the first assertion that does not hold
func Check(c Case, opts compiler.Options) error {
	res, compileErr := compiler.CompileSource(c.Tree, opts)

	var (
		ran    bool
		result int64
		stdout string
	)
	execute := func() error {
		if ran {
			return nil
		}
		if err := res.Executable.CanExecute(); err != nil {
			return fmt.Errorf("%w: %v", ErrSkipped, err)
		}
		var out bytes.Buffer
		stdlib.SetConsole(&out, strings.NewReader(c.Input))
		defer stdlib.SetConsole(os.Stdout, os.Stdin)
		v, err := res.Run()
		if err != nil {
			return err
		}
		ran, result, stdout = true, v, out.String()
		return nil
	}

	for _, a := range c.Assertions {
		if a.Type == AssertionCompileError {
			want := strings.TrimSpace(a.Content)
			if compileErr == nil {
				return fmt.Errorf("line %d: expected a %s error, but it compiled", a.Line, want)
			}
			kind, ok := diag.KindOf(compileErr)
			if !ok || kind.String() != want {
				return fmt.Errorf("line %d: expected a %s error, got: %v", a.Line, want, compileErr)
			}
			continue
		}
		if compileErr != nil {
			return fmt.Errorf("line %d: compiling: %w", a.Line, compileErr)
		}

		switch a.Type {
		case AssertionIR:
			main, _ := res.Image.Function("main")
			if got, want := normalize(main.String()), normalize(a.Content); got != want {
				return fmt.Errorf("line %d: IR of main differs\n--- want\n%s\n--- got\n%s", a.Line, want, got)
			}
		case AssertionExecute:
			want, err := sexpr.ParseInteger(strings.TrimSpace(a.Content))
			if err != nil {
				return fmt.Errorf("line %d: bad expected value: %w", a.Line, err)
			}
			if err := execute(); err != nil {
				return err
			}
			if result != want {
				return fmt.Errorf("line %d: main returned %d, want %d", a.Line, result, want)
			}
		case AssertionStdout:
			if err := execute(); err != nil {
				return err
			}
			if got := strings.TrimRight(stdout, "\n"); got != a.Content {
				return fmt.Errorf("line %d: output %q, want %q", a.Line, got, a.Content)
			}
		}
	}
	return nil
}

// normalize trims every line and drops blank ones
func normalize(listing string) string {
	var lines []string
	for line := range strings.SplitSeq(listing, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
