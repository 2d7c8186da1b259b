package platform

import (
	"strings"
)

// distributionMap maps GOOS values to distribution platform names.
var distributionMap = map[string]string{
	"darwin":  DistMac,
	"windows": DistWindows,
	"linux":   DistLinux,
}

func distributionFor(goos string) string {
	return distributionMap[goos]
}

// normalizeArch converts GOARCH aliases to canonical names. Unknown values
// pass through lowercased; the distribution service decides what it ships.
func normalizeArch(arch string) string {
	switch arch {
	case "amd64", "x86_64":
		return "amd64"
	case "arm64", "aarch64":
		return "arm64"
	default:
		return strings.ToLower(arch)
	}
}

// normalizeField lowercases and trims host-reported identifiers.
func normalizeField(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
