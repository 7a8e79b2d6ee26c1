// Package jit loads generated machine code into executable memory and runs it
package jit

import (
	"fmt"
	"os"
	"runtime"
	"slices"

	"github.com/xyproto/wist/internal/abi"
	"github.com/xyproto/wist/internal/diag"
	"github.com/xyproto/wist/internal/engine"
)

// Executable is a flat blob of x86-64 code with its entry point at offset 0
type Executable struct {
	Code    []byte
	Target  engine.Target
	Symbols map[string]int // function and data offsets, for listings
}

// New wraps finished code for target
func New(code []byte, target engine.Target, symbols map[string]int) *Executable {
	return &Executable{Code: code, Target: target, Symbols: symbols}
}

// ToBinary returns a copy of the code. The origin is 0 and there is no header.
func (e *Executable) ToBinary() []byte {
	return slices.Clone(e.Code)
}

// CanExecute reports why the code cannot run in this process, if it cannot
func (e *Executable) CanExecute() error {
	host := engine.HostTarget()
	if runtime.GOARCH != "amd64" {
		return diag.UnsupportedPlatform("cannot execute x86-64 code on a %s host", runtime.GOARCH)
	}
	want, err := abi.For(e.Target)
	if err != nil {
		return err
	}
	have, err := abi.For(host)
	if err != nil {
		return err
	}
	if want.Name() != have.Name() {
		return diag.UnsupportedPlatform("code built for %s (%s) cannot run on %s (%s)", e.Target, want.Name(), host, have.Name())
	}
	return nil
}

// Execute copies the code into executable memory, calls the entry point and
// returns the value left in rax. The mapping is never released, since
// foreign libraries may keep pointers into it.
func (e *Executable) Execute() (int64, error) {
	if err := e.CanExecute(); err != nil {
		return 0, err
	}
	if len(e.Code) == 0 {
		return 0, diag.Internal(diag.Location{Seq: -1}, "empty executable")
	}
	entry, err := allocExecutable(e.Code)
	if err != nil {
		return 0, fmt.Errorf("mapping executable memory: %w", err)
	}
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "jit: %d bytes mapped at 0x%x\n", len(e.Code), entry)
	}
	result := call(entry)
	if engine.VerboseMode {
		fmt.Fprintf(os.Stderr, "jit: entry returned %d\n", result)
	}
	return result, nil
}

// MapCode copies code into executable memory and returns its address. Like
// the mapping of an Executable it is never released.
func MapCode(code []byte) (uintptr, error) {
	if len(code) == 0 {
		return 0, diag.Internal(diag.Location{Seq: -1}, "no code to map")
	}
	addr, err := allocExecutable(code)
	if err != nil {
		return 0, fmt.Errorf("mapping executable memory: %w", err)
	}
	return addr, nil
}
