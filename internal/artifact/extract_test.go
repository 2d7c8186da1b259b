package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

func TestArchiveKindOf(t *testing.T) {
	tests := map[string]ArchiveKind{
		"protect-web.zip":        ArchiveZip,
		"protect-web.TAR.GZ":     ArchiveTarGz,
		"protect-web.tgz":        ArchiveTarGz,
		"protect-web.tar.zst":    ArchiveTarZst,
		"protect-web.tar":        ArchiveTar,
		"protect-web.dmg":        ArchiveNone,
		"protect-web-linux":      ArchiveNone,
		"protect-web.tar.gz.sig": ArchiveNone,
	}
	for name, want := range tests {
		if got := archiveKindOf(name); got != want {
			t.Errorf("archiveKindOf(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestExtractArchive_Formats(t *testing.T) {
	entries := []archiveEntry{
		{name: "bin/protect-web", body: "binary", mode: 0o755},
		{name: "README", body: "readme"},
	}

	tests := []struct {
		name string
		kind ArchiveKind
		data []byte
	}{
		{"tar", ArchiveTar, buildTar(t, entries)},
		{"tar.gz", ArchiveTarGz, buildTarGz(t, entries)},
		{"tar.zst", ArchiveTarZst, buildTarZst(t, entries)},
		{"zip", ArchiveZip, buildZip(t, entries)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			archive := filepath.Join(dir, "pkg")
			if err := os.WriteFile(archive, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}
			dest := filepath.Join(dir, "out")

			if err := extractArchive(tt.kind, archive, dest); err != nil {
				t.Fatalf("extractArchive() error = %v", err)
			}

			data, err := os.ReadFile(filepath.Join(dest, "bin", "protect-web"))
			if err != nil || string(data) != "binary" {
				t.Fatalf("binary content = %q, %v", data, err)
			}
			info, err := os.Stat(filepath.Join(dest, "bin", "protect-web"))
			if err != nil {
				t.Fatal(err)
			}
			if info.Mode().Perm()&0o100 == 0 {
				t.Errorf("mode = %v, want executable", info.Mode())
			}
		})
	}
}

func TestExtractArchive_PathTraversal(t *testing.T) {
	tests := []struct {
		name    string
		kind    ArchiveKind
		entries []archiveEntry
	}{
		{"tar dotdot", ArchiveTarGz, []archiveEntry{{name: "../evil", body: "x"}}},
		{"tar nested dotdot", ArchiveTarGz, []archiveEntry{{name: "bin/../../evil", body: "x"}}},
		{"zip dotdot", ArchiveZip, []archiveEntry{{name: "../evil", body: "x"}}},
		{"absolute symlink", ArchiveTarGz, []archiveEntry{{name: "link", link: "/etc/passwd"}}},
		{"relative escaping symlink", ArchiveTarGz, []archiveEntry{{name: "bin/link", link: "../../outside"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			archive := filepath.Join(dir, "pkg")
			var data []byte
			if tt.kind == ArchiveZip {
				data = buildZip(t, tt.entries)
			} else {
				data = buildTarGz(t, tt.entries)
			}
			if err := os.WriteFile(archive, data, 0o644); err != nil {
				t.Fatal(err)
			}

			if err := extractArchive(tt.kind, archive, filepath.Join(dir, "out")); err == nil {
				t.Fatal("extractArchive() expected error for entry escaping the destination")
			}
			if _, err := os.Lstat(filepath.Join(dir, "evil")); !os.IsNotExist(err) {
				t.Error("file written outside destination")
			}
		})
	}
}

func TestExtractArchive_InternalSymlink(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "pkg")
	data := buildTarGz(t, []archiveEntry{
		{name: "bin/protect-web-6.3.0", body: "binary", mode: 0o755},
		{name: "bin/protect-web", link: "protect-web-6.3.0"},
	})
	if err := os.WriteFile(archive, data, 0o644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "out")
	if err := extractArchive(ArchiveTarGz, archive, dest); err != nil {
		t.Fatalf("extractArchive() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dest, "bin", "protect-web"))
	if err != nil || string(data) != "binary" {
		t.Errorf("symlinked binary = %q, %v", data, err)
	}
}
