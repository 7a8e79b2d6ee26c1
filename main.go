// Completion: 100% - entry point complete
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/engine"
)

// A compile-and-run backend: program trees in, x86-64 machine code out

const versionString = "wist 0.3.0"

func main() {
	cfg := ConfigFromEnv()
	ctx, err := parseArgs(os.Args[1:], cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	engine.VerboseMode = ctx.Verbose
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "DEBUG main: VerboseMode enabled, target %s\n", ctx.Target)
	}

	err = RunCLI(ctx)
	if err == nil {
		return
	}
	var status ExitStatus
	if errors.As(err, &status) {
		os.Exit(int(status))
	}
	var ce *diag.CompilerError
	if errors.As(err, &ce) {
		fmt.Fprint(os.Stderr, ce.Format(ctx.Color))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
