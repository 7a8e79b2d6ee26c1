// Package stdlib provides the host functions behind import "std": console
// I/O, conversions, strings, errors, heap allocation and raw memory access,
// implemented in Go
package stdlib

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"github.com/xyproto/wist/internal/ffi"
	"github.com/xyproto/wist/internal/jit"
)

// ImportPath is the import that installs these functions
const ImportPath = "std"

const manifest = `
(library ConsoleLibrary
  (fn WriteI64 (i64) none)
  (fn WriteI64NoLn (i64) none)
  (fn WriteLn () none)
  (fn WriteStr (i64) none)
  (fn ReadI64 () i64)
  (fn SetColor (i64) none)
  (fn ResetColor () none)
  (fn GetRedColor () i64)
  (fn GetWhiteColor () i64)
  (fn GetCyanColor () i64))
(library StdConsoleLib "Console::"
  (fn Write (i64) none)
  (fn WriteNoLn (i64) none)
  (fn Read () i64)
  (fn SetColor (i64) none)
  (fn ResetColor () none))
(library TypesLib "Types::"
  (fn I64ToF64 (i64) f64)
  (fn F64ToI64 (f64) i64))
(library StringLib "Str::"
  (fn I64ToStr (i64) i64)
  (fn F64ToStr (f64) i64)
  (fn StrToI64 (i64) i64)
  (fn StrToF64 (i64) f64))
(library ErrLib "Err::"
  (fn Throw (i64) none))
(library AllocatorLibrary "Allocator::"
  (fn Calloc (i64) i64)
  (fn Free (i64) none))
(library MemLibrary "Mem::"
  (fn ReadI64 (i64) i64)
  (fn WriteI64 (i64 i64) none))
`

// Console colors, numbered like the .NET ConsoleColor enumeration
const (
	colorCyan  = 11
	colorRed   = 12
	colorWhite = 15
)

// ansiColors maps a console color to its SGR foreground code
var ansiColors = [16]int{30, 34, 32, 36, 31, 35, 33, 37, 90, 94, 92, 96, 91, 95, 93, 97}

var (
	mu     sync.Mutex
	out    io.Writer     = os.Stdout
	errOut io.Writer     = os.Stderr
	in     *bufio.Reader = bufio.NewReader(os.Stdin)

	// exit ends the process after Err::Throw
	exit = os.Exit

	// Allocations stay reachable from here until freed, so the collector
	// leaves them alone while native code holds their addresses
	blocks = make(map[uintptr][]byte)

	callbacksOnce sync.Once
	callbacks     map[string]uintptr
	callbacksErr  error
)

// SetConsole redirects the console functions
func SetConsole(w io.Writer, r io.Reader) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	in = bufio.NewReader(r)
}

// SetErrors redirects the message Err::Throw prints before exiting
func SetErrors(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	errOut = w
}

// implementations by container and function name. Every value is passed
// as a uintptr; f64 values travel as their bits and are moved between
// registers by a bridge.
var implementations = map[string]any{
	"ConsoleLibrary.WriteI64": func(v uintptr) uintptr {
		write(strconv.FormatInt(int64(v), 10) + "\n")
		return 0
	},
	"ConsoleLibrary.WriteI64NoLn": func(v uintptr) uintptr {
		write(strconv.FormatInt(int64(v), 10) + " ")
		return 0
	},
	"ConsoleLibrary.WriteLn": func() uintptr {
		write("\n")
		return 0
	},
	"ConsoleLibrary.WriteStr": func(p uintptr) uintptr {
		write(readString(p))
		return 0
	},
	"ConsoleLibrary.ReadI64": func() uintptr {
		mu.Lock()
		defer mu.Unlock()
		var v int64
		if _, err := fmt.Fscan(in, &v); err != nil {
			return 0
		}
		return uintptr(v)
	},
	"ConsoleLibrary.SetColor":      setColor,
	"ConsoleLibrary.ResetColor":    resetColor,
	"ConsoleLibrary.GetRedColor":   func() uintptr { return colorRed },
	"ConsoleLibrary.GetWhiteColor": func() uintptr { return colorWhite },
	"ConsoleLibrary.GetCyanColor":  func() uintptr { return colorCyan },

	"StdConsoleLib.Write": func(p uintptr) uintptr {
		write(readString(p) + "\n")
		return 0
	},
	"StdConsoleLib.WriteNoLn": func(p uintptr) uintptr {
		write(readString(p))
		return 0
	},
	"StdConsoleLib.Read": func() uintptr {
		line, ok := readLine()
		if !ok {
			return 0
		}
		return newString(line)
	},
	"StdConsoleLib.SetColor":   setColor,
	"StdConsoleLib.ResetColor": resetColor,

	"TypesLib.I64ToF64": func(v uintptr) uintptr {
		return uintptr(math.Float64bits(float64(int64(v))))
	},
	"TypesLib.F64ToI64": func(bits uintptr) uintptr {
		return uintptr(int64(math.Float64frombits(uint64(bits)) + 0.0001))
	},

	"StringLib.I64ToStr": func(v uintptr) uintptr {
		return newString(strconv.FormatInt(int64(v), 10))
	},
	"StringLib.F64ToStr": func(bits uintptr) uintptr {
		return newString(strconv.FormatFloat(math.Float64frombits(uint64(bits)), 'g', -1, 64))
	},
	"StringLib.StrToI64": func(p uintptr) uintptr {
		s := readString(p)
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			throw(fmt.Sprintf("Str::StrToI64: %q is not an integer", s))
			return 0
		}
		return uintptr(v)
	},
	"StringLib.StrToF64": func(p uintptr) uintptr {
		s := readString(p)
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			throw(fmt.Sprintf("Str::StrToF64: %q is not a number", s))
			return 0
		}
		return uintptr(math.Float64bits(v))
	},

	"ErrLib.Throw": func(p uintptr) uintptr {
		throw(readString(p))
		return 0
	},

	"AllocatorLibrary.Calloc": func(size uintptr) uintptr {
		return calloc(int64(size))
	},
	"AllocatorLibrary.Free": func(p uintptr) uintptr {
		mu.Lock()
		delete(blocks, p)
		mu.Unlock()
		return 0
	},
	"MemLibrary.ReadI64": func(p uintptr) uintptr {
		return uintptr(*(*int64)(unsafe.Pointer(p)))
	},
	"MemLibrary.WriteI64": func(p, v uintptr) uintptr {
		*(*int64)(unsafe.Pointer(p)) = int64(v)
		return 0
	},
}

// bridges lists the functions with an f64 parameter or result
var bridges = map[string]bridge{
	"TypesLib.I64ToF64":  floatResult,
	"TypesLib.F64ToI64":  floatArg,
	"StringLib.F64ToStr": floatArg,
	"StringLib.StrToF64": floatResult,
}

func write(s string) {
	mu.Lock()
	defer mu.Unlock()
	io.WriteString(out, s)
}

// readLine reads one line without its line ending. It fails only at the
// end of the input.
func readLine() (string, bool) {
	mu.Lock()
	defer mu.Unlock()
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimRight(line, "\r\n"), true
}

func setColor(color uintptr) uintptr {
	if color < uintptr(len(ansiColors)) {
		write(fmt.Sprintf("\x1b[%dm", ansiColors[color]))
	}
	return 0
}

func resetColor() uintptr {
	write("\x1b[0m")
	return 0
}

// throw prints message and ends the program with status 1
func throw(message string) {
	mu.Lock()
	fmt.Fprintf(errOut, "error: %s\n", message)
	mu.Unlock()
	exit(1)
}

// readString reads a string: the 8-byte length sits just before the bytes
// p points at
func readString(p uintptr) string {
	if p == 0 {
		return ""
	}
	header := unsafe.Slice((*byte)(unsafe.Pointer(p-8)), 8)
	n := binary.LittleEndian.Uint64(header)
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
}

// newString allocates s in the layout of a string literal and returns a
// pointer to its first byte, which Allocator::Free releases
func newString(s string) uintptr {
	words := make([]uint64, 1+max(1, (len(s)+7)/8))
	words[0] = uint64(len(s))
	block := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*8)
	copy(block[8:], s)
	p := uintptr(unsafe.Pointer(&block[8]))
	keep(p, block)
	return p
}

func calloc(size int64) uintptr {
	if size <= 0 {
		return 0
	}
	// Whole words keep the block 8-byte aligned
	words := make([]uint64, (size+7)/8)
	block := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*8)
	p := uintptr(unsafe.Pointer(&block[0]))
	keep(p, block)
	return p
}

// keep holds block until p is freed
func keep(p uintptr, block []byte) {
	mu.Lock()
	blocks[p] = block
	mu.Unlock()
}

// Allocated reports how many blocks are currently allocated
func Allocated() int {
	mu.Lock()
	defer mu.Unlock()
	return len(blocks)
}

// makeCallbacks turns every implementation into a native function pointer,
// behind a bridge where an f64 is involved. Callback slots are a limited
// process-wide resource, so this runs once.
func makeCallbacks() {
	callbacks = make(map[string]uintptr, len(implementations))
	conv := hostConvention()
	for key, fn := range implementations {
		addr, err := ffi.Callback(fn)
		if err != nil {
			callbacksErr = err
			return
		}
		if b, ok := bridges[key]; ok {
			code, err := b.code(conv, addr)
			if err != nil {
				callbacksErr = fmt.Errorf("stdlib: bridge for %s: %w", key, err)
				return
			}
			if addr, err = jit.MapCode(code); err != nil {
				callbacksErr = err
				return
			}
		}
		callbacks[key] = addr
	}
}

// Install registers the host functions, each under its container's
// prefix, and can serve as an ffi.HostLibrary
func Install(r *ffi.Registry) error {
	callbacksOnce.Do(makeCallbacks)
	if callbacksErr != nil {
		return callbacksErr
	}
	m, err := ffi.ParseManifest(manifest)
	if err != nil {
		return err
	}
	for _, lib := range m.Libraries {
		for _, sig := range lib.Functions {
			addr, ok := callbacks[lib.Name+"."+sig.Name]
			if !ok {
				return fmt.Errorf("stdlib: %s.%s has no implementation", lib.Name, sig.Name)
			}
			if err := r.Register(lib.Prefix+sig.Name, addr, sig.Params, sig.Return); err != nil {
				return err
			}
		}
	}
	return nil
}
