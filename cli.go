// Completion: 100% - run, build, ir and test commands complete
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/wist/internal/compiler"
	"github.com/xyproto/wist/internal/engine"
	"github.com/xyproto/wist/internal/golden"
	"github.com/xyproto/wist/internal/stdlib"
)

// cli.go - command-line interface for wist
//
// Programs are syntax trees in s-expression form (.sx files):
// - wist run <file.sx> (compile and execute in this process)
// - wist build <file.sx> (write the flat machine code blob)
// - wist ir <file.sx> (print the lowered IR)
// - wist test <file.md|dir>... (check Markdown golden cases)

// CommandContext holds the execution context for a CLI command
type CommandContext struct {
	Args         []string
	Target       engine.Target
	Verbose      bool
	Quiet        bool
	Color        bool
	Version      bool
	OutputPath   string
	ManifestDirs []string

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

// ExitStatus is the status "wist run" exits with when the program returns
// something other than zero
type ExitStatus int

func (e ExitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

// dirList collects repeated -L flags
type dirList []string

func (d *dirList) String() string { return strings.Join(*d, string(filepath.ListSeparator)) }

func (d *dirList) Set(dir string) error {
	*d = append(*d, dir)
	return nil
}

// parseArgs builds the command context from the arguments, with cfg as
// defaults. Flags may come before or after the command name.
func parseArgs(args []string, cfg Config) (*CommandContext, error) {
	ctx := &CommandContext{
		Color:  cfg.Color,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Stdin:  os.Stdin,
	}
	dirs := dirList(cfg.ManifestDirs)
	osName, archName := cfg.OS, cfg.Arch

	fs := flag.NewFlagSet("wist", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&ctx.Verbose, "v", cfg.Verbose, "verbose mode")
	fs.BoolVar(&ctx.Verbose, "verbose", cfg.Verbose, "verbose mode")
	fs.BoolVar(&ctx.Quiet, "q", false, "quiet mode")
	fs.BoolVar(&ctx.Quiet, "quiet", false, "quiet mode")
	fs.BoolVar(&ctx.Version, "V", false, "print version information and exit")
	fs.BoolVar(&ctx.Version, "version", false, "print version information and exit")
	fs.StringVar(&ctx.OutputPath, "o", cfg.Output, "output filename")
	fs.StringVar(&ctx.OutputPath, "output", cfg.Output, "output filename")
	fs.StringVar(&osName, "os", osName, "target OS (linux, darwin, freebsd, windows)")
	fs.StringVar(&archName, "arch", archName, "target architecture (amd64)")
	fs.Var(&dirs, "L", "directory to search for library manifests")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	if len(rest) > 0 {
		if err := fs.Parse(rest[1:]); err != nil {
			return nil, err
		}
		rest = append([]string{rest[0]}, fs.Args()...)
	}
	ctx.Args = rest
	ctx.ManifestDirs = dirs

	arch, err := engine.ParseArch(archName)
	if err != nil {
		return nil, err
	}
	ctx.Target = engine.Target{Arch: arch, OS: engine.ParseOS(osName)}
	return ctx, nil
}

// RunCLI runs the command named by the first argument
func RunCLI(ctx *CommandContext) error {
	if ctx.Version {
		fmt.Fprintln(ctx.Stdout, versionString)
		return nil
	}
	if len(ctx.Args) == 0 {
		return cmdHelp(ctx)
	}

	subcmd, args := ctx.Args[0], ctx.Args[1:]
	switch subcmd {
	case "run":
		if len(args) != 1 {
			return errors.New("usage: wist run <file.sx>")
		}
		return cmdRun(ctx, args[0])
	case "build":
		if len(args) != 1 {
			return errors.New("usage: wist build [-o output] <file.sx>")
		}
		return cmdBuild(ctx, args[0])
	case "ir":
		if len(args) != 1 {
			return errors.New("usage: wist ir <file.sx>")
		}
		return cmdIR(ctx, args[0])
	case "test":
		return cmdTest(ctx, args)
	case "help", "--help", "-h":
		return cmdHelp(ctx)
	case "version":
		fmt.Fprintln(ctx.Stdout, versionString)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\n\nRun 'wist help' for usage information", subcmd)
	}
}

func (ctx *CommandContext) options() compiler.Options {
	return compiler.Options{Target: ctx.Target, ManifestDirs: ctx.ManifestDirs}
}

func (ctx *CommandContext) compile(path string) (*compiler.Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if ctx.Verbose {
		fmt.Fprintf(ctx.Stderr, "compiling %s for %s\n", path, ctx.Target)
	}
	return compiler.CompileSource(string(src), ctx.options())
}

// cmdRun compiles a program and executes it in this process, then prints
// what main returned. The low byte of it becomes the exit status.
func cmdRun(ctx *CommandContext, path string) error {
	res, err := ctx.compile(path)
	if err != nil {
		return err
	}
	stdlib.SetConsole(ctx.Stdout, ctx.Stdin)
	stdlib.SetErrors(ctx.Stderr)
	result, err := res.Run()
	if err != nil {
		return err
	}
	if !ctx.Quiet {
		fmt.Fprintln(ctx.Stdout, result)
	}
	if status := int(result & 0xff); status != 0 {
		return ExitStatus(status)
	}
	return nil
}

// cmdBuild writes the machine code of a program to the output file
func cmdBuild(ctx *CommandContext, path string) error {
	res, err := ctx.compile(path)
	if err != nil {
		return err
	}
	code := res.Executable.ToBinary()
	if err := os.WriteFile(ctx.OutputPath, code, 0o644); err != nil {
		return err
	}
	if !ctx.Quiet {
		fmt.Fprintf(ctx.Stdout, "wrote %d bytes to %s\n", len(code), ctx.OutputPath)
	}
	return nil
}

// cmdIR prints the lowered IR of every function
func cmdIR(ctx *CommandContext, path string) error {
	res, err := ctx.compile(path)
	if err != nil {
		return err
	}
	fmt.Fprint(ctx.Stdout, res.Image)
	return nil
}

// cmdTest checks the golden cases of the given Markdown files, or of every
// .md file in the given directories (default: the current directory)
func cmdTest(ctx *CommandContext, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.md"))
		if err != nil {
			return fmt.Errorf("failed to find test files: %v", err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		if !ctx.Quiet {
			fmt.Fprintf(ctx.Stdout, "No test files found in %s\n", strings.Join(args, ", "))
		}
		return nil
	}

	passed, skipped := 0, 0
	var failedTests []string
	for _, file := range files {
		cases, err := golden.ReadFile(file)
		if err != nil {
			return err
		}
		for _, c := range cases {
			name := filepath.Base(file) + ": " + c.Name
			err := golden.Check(c, ctx.options())
			switch {
			case err == nil:
				passed++
				if !ctx.Quiet {
					fmt.Fprintf(ctx.Stdout, "PASS %s\n", name)
				}
			case errors.Is(err, golden.ErrSkipped):
				skipped++
				if !ctx.Quiet {
					fmt.Fprintf(ctx.Stdout, "SKIP %s\n", name)
				}
			default:
				failedTests = append(failedTests, name)
				if !ctx.Quiet {
					fmt.Fprintf(ctx.Stdout, "FAIL %s\n", name)
				}
				if ctx.Verbose {
					fmt.Fprintf(ctx.Stderr, "  Error: %v\n", err)
				}
			}
		}
	}

	if !ctx.Quiet {
		fmt.Fprintf(ctx.Stdout, "\n")
		if len(failedTests) == 0 {
			fmt.Fprintf(ctx.Stdout, "All tests passed (%d passed, %d skipped)\n", passed, skipped)
		} else {
			fmt.Fprintf(ctx.Stdout, "%d test(s) failed, %d passed, %d skipped\n", len(failedTests), passed, skipped)
			fmt.Fprintf(ctx.Stdout, "\nFailed tests:\n")
			for _, name := range failedTests {
				fmt.Fprintf(ctx.Stdout, "  - %s\n", name)
			}
		}
	}
	if len(failedTests) > 0 {
		return fmt.Errorf("%d test(s) failed", len(failedTests))
	}
	return nil
}

// cmdHelp displays usage information
func cmdHelp(ctx *CommandContext) error {
	fmt.Fprintf(ctx.Stdout, `%s - compile and run program trees as x86-64 machine code

USAGE:
    wist <command> [flags] [arguments]

COMMANDS:
    run <file.sx>          Compile a program tree, run it in this process and print its result
    build <file.sx>        Write the machine code to a flat binary file
    ir <file.sx>           Print the lowered stack machine IR
    test [file.md|dir]...  Check Markdown golden cases (default: current directory)
    help                   Show this help message
    version                Show version information

FLAGS:
    -o, --output <file>    Output file for build (default: $WIST_OUTPUT or program.bin)
    -v, --verbose          Trace lowering, code generation and timings to stderr
    -q, --quiet            Suppress progress messages
    --os <os>              Target OS: linux, darwin, freebsd, windows (default: host)
    --arch <arch>          Target architecture: amd64 (default: host)
    -L <dir>               Search dir for library manifests (repeatable, or $WIST_MANIFEST_PATH)

EXAMPLES:
    wist run examples/fact.sx
    wist build --os windows -o fact.bin examples/fact.sx
    wist test internal/golden/testdata

`, versionString)
	return nil
}
