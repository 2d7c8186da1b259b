package artifact

import (
	"path/filepath"
	"strings"
)

// AccessToken is a short-lived bearer credential for the download service.
// It is kept in memory for a single acquisition.
type AccessToken struct {
	TokenType string
	Token     string
}

// Authorization returns the value of the authorization header.
func (t AccessToken) Authorization() string {
	return t.TokenType + " " + t.Token
}

// FileEntry is one row of the server's file list.
type FileEntry struct {
	Filename string `json:"filename"`
	Platform string `json:"platform"`
}

// Descriptor identifies the package chosen for this host.
type Descriptor struct {
	Filename string
	Platform string

	// SignatureFilename is the detached signature published next to
	// Filename, or empty when the server lists none.
	SignatureFilename string
}

// IsDiskImage reports whether the package is a macOS disk image that has
// to be mounted rather than extracted.
func (d Descriptor) IsDiskImage() bool {
	return strings.HasSuffix(strings.ToLower(d.Filename), ".dmg")
}

// ArchiveKind classifies a package filename.
type ArchiveKind int

const (
	// ArchiveNone is a file stored as downloaded.
	ArchiveNone ArchiveKind = iota
	ArchiveZip
	ArchiveTar
	ArchiveTarGz
	ArchiveTarZst
)

// archiveKindOf maps a filename to its archive format by extension.
func archiveKindOf(filename string) ArchiveKind {
	name := strings.ToLower(filepath.Base(filename))
	switch {
	case strings.HasSuffix(name, ".zip"):
		return ArchiveZip
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return ArchiveTarGz
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		return ArchiveTarZst
	case strings.HasSuffix(name, ".tar"):
		return ArchiveTar
	default:
		return ArchiveNone
	}
}
