// Completion: 100% - Target description complete
package engine

import (
	"fmt"
	"runtime"
	"strings"
)

// Arch is a machine architecture
type Arch int

const (
	ArchUnknown Arch = iota
	ArchX86_64
	ArchARM64
	ArchRiscv64
)

func (a Arch) String() string {
	switch a {
	case ArchX86_64:
		return "x86_64"
	case ArchARM64:
		return "aarch64"
	case ArchRiscv64:
		return "riscv64"
	default:
		return "unknown"
	}
}

// ParseArch parses an architecture string (like GOARCH values)
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(s) {
	case "x86_64", "amd64", "x86-64":
		return ArchX86_64, nil
	case "aarch64", "arm64":
		return ArchARM64, nil
	case "riscv64", "riscv", "rv64":
		return ArchRiscv64, nil
	default:
		return ArchUnknown, fmt.Errorf("unknown architecture: %s", s)
	}
}

// OS is an operating system, which decides the calling convention
type OS int

const (
	OSUnknown OS = iota
	OSLinux
	OSDarwin
	OSFreeBSD
	OSWindows
)

func (o OS) String() string {
	switch o {
	case OSLinux:
		return "linux"
	case OSDarwin:
		return "darwin"
	case OSFreeBSD:
		return "freebsd"
	case OSWindows:
		return "windows"
	default:
		return "unknown"
	}
}

// ParseOS parses an OS string (like GOOS values).
// Unknown names are not an error here; they are rejected later,
// when a calling convention is chosen for the target.
func ParseOS(s string) OS {
	switch strings.ToLower(s) {
	case "linux":
		return OSLinux
	case "darwin", "macos":
		return OSDarwin
	case "freebsd":
		return OSFreeBSD
	case "windows", "win", "wine":
		return OSWindows
	default:
		return OSUnknown
	}
}

// Target is the platform code is generated for
type Target struct {
	Arch Arch
	OS   OS
}

// HostTarget returns the target matching the running process
func HostTarget() Target {
	arch, _ := ParseArch(runtime.GOARCH)
	return Target{Arch: arch, OS: ParseOS(runtime.GOOS)}
}

// IsHost reports whether code for this target can run in this process
func (t Target) IsHost() bool {
	return t == HostTarget()
}

func (t Target) String() string {
	return fmt.Sprintf("%s-%s", t.Arch, t.OS)
}
