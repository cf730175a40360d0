package release

import "fmt"

// Operating systems with special packaging rules.
const (
	OSWindows = "windows"
	OSDarwin  = "darwin"
	OSLinux   = "linux"
)

// Target is a single operating system and architecture pair to cross-compile for.
type Target struct {
	// OS is the GOOS value.
	OS string
	// Arch is the GOARCH value.
	Arch string
}

// String renders the target as os/arch.
func (t Target) String() string {
	return fmt.Sprintf("%s/%s", t.OS, t.Arch)
}

// IsWindows reports whether the target produces a .exe and a zip archive.
func (t Target) IsWindows() bool {
	return t.OS == OSWindows
}

// IncludesExampleConfig reports whether the example configuration is shipped.
// Only linux gets it: the paths inside the example are linux paths.
func (t Target) IncludesExampleConfig() bool {
	return t.OS == OSLinux
}

// Matrix is an ordered list of targets.
type Matrix []Target

// DefaultMatrix returns the platforms qbsgo is released for, in processing order.
// A fresh slice is returned on every call so callers cannot alter the set.
func DefaultMatrix() Matrix {
	return Matrix{
		{OS: OSWindows, Arch: "amd64"},
		{OS: OSWindows, Arch: "arm64"},
		{OS: OSDarwin, Arch: "amd64"},
		{OS: OSDarwin, Arch: "arm64"},
		{OS: OSLinux, Arch: "amd64"},
		{OS: OSLinux, Arch: "arm64"},
		{OS: OSLinux, Arch: "arm"},
	}
}
