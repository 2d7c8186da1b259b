// Package platform detects the host OS and architecture and maps them to the
// platform names used by the protect-web distribution service.
//
// gopsutil supplies Linux distribution details, which are only used for
// diagnostics and for the read-only platform table exposed to Lua blueprints.
package platform

import "context"

// Distribution platform names as published in the server file list.
const (
	DistMac     = "mac"
	DistWindows = "windows"
	DistLinux   = "linux"
)

// Info contains platform detection information.
type Info struct {
	OS      string // "linux", "darwin", "windows"
	Arch    string // "amd64", "arm64" (normalized)
	ArchRaw string // original GOARCH
	Distro  string // distro ID (Linux only, e.g. "ubuntu")
	Family  string // distro family as reported by the host (Linux only)
	Version string // distro version (Linux only)
}

// Distribution returns the platform name the download service files
// artifacts under, or "" when the OS has no published build.
func (i *Info) Distribution() string {
	return distributionFor(i.OS)
}

// BinaryName returns the executable name of the protection binary.
func (i *Info) BinaryName(base string) string {
	if i.IsWindows() {
		return base + ".exe"
	}
	return base
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// IsAppleSilicon returns true if running on Apple Silicon (macOS + arm64).
func (i *Info) IsAppleSilicon() bool {
	return i.OS == "darwin" && i.Arch == "arm64"
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
