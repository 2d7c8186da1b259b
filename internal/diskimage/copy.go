package diskimage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// volumeMetadata lists macOS volume bookkeeping entries that are never
// part of the package and are often unreadable.
var volumeMetadata = map[string]bool{
	".Trashes":        true,
	".fseventsd":      true,
	".Spotlight-V100": true,
	".TemporaryItems": true,
}

// copyTree recursively copies src into dst, preserving file modes and
// recreating symlinks. dst is created if needed and existing files are
// overwritten.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel != "." && volumeMetadata[d.Name()] && filepath.Dir(rel) == "." {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)

		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			os.Remove(target)
			return os.Symlink(link, target)

		case d.Type().IsRegular():
			return copyFile(path, target, info.Mode().Perm())

		default:
			return nil
		}
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, mode|0o200)
}
