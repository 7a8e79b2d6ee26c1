package engine

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestParseOS(t *testing.T) {
	be.Equal(t, ParseOS("linux"), OSLinux)
	be.Equal(t, ParseOS("macos"), OSDarwin)
	be.Equal(t, ParseOS("Windows"), OSWindows)
	be.Equal(t, ParseOS("plan9"), OSUnknown)
}

func TestParseArch(t *testing.T) {
	arch, err := ParseArch("amd64")
	be.Err(t, err, nil)
	be.Equal(t, arch, ArchX86_64)

	_, err = ParseArch("mips")
	be.Err(t, err)
}

func TestTargetString(t *testing.T) {
	be.Equal(t, Target{Arch: ArchX86_64, OS: OSWindows}.String(), "x86_64-windows")
}

func TestFindSimilar(t *testing.T) {
	names := []string{"counter", "count", "total", "x"}
	got := FindSimilar("coutn", names, 2)
	be.True(t, len(got) > 0)
	be.Equal(t, got[0], "count")
	be.Equal(t, len(FindSimilar("zzzzzzzz", names, 2)), 0)
}

func TestEditDistance(t *testing.T) {
	be.Equal(t, editDistance("kitten", "sitting"), 3)
	be.Equal(t, editDistance("", "abc"), 3)
	be.Equal(t, editDistance("same", "same"), 0)
}
