package bridge

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// AssetTree is the build tool's view of emitted files, keyed by
// slash-separated relative path.
type AssetTree interface {
	// Names lists every asset.
	Names() ([]string, error)
	// Read returns an asset's content.
	Read(name string) ([]byte, error)
	// Write registers an asset, overwriting any existing one.
	Write(name string, data []byte) error
}

// cleanName validates an asset name and returns it in canonical slash form.
func cleanName(name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", fmt.Errorf("illegal asset name: %q", name)
	}
	return clean, nil
}

// MemTree is an in-memory AssetTree. It is safe for concurrent use.
type MemTree struct {
	mu     sync.RWMutex
	assets map[string][]byte
}

// NewMemTree returns a MemTree holding a copy of assets.
func NewMemTree(assets map[string][]byte) *MemTree {
	t := &MemTree{assets: make(map[string][]byte, len(assets))}
	for name, data := range assets {
		t.assets[name] = append([]byte(nil), data...)
	}
	return t
}

// Names returns asset names in sorted order.
func (t *MemTree) Names() ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.assets))
	for name := range t.assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (t *MemTree) Read(name string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	data, ok := t.assets[name]
	if !ok {
		return nil, fmt.Errorf("asset %q: %w", name, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (t *MemTree) Write(name string, data []byte) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.assets[clean] = append([]byte(nil), data...)
	return nil
}

// Size returns the byte length of an asset, or -1 if it does not exist.
func (t *MemTree) Size(name string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	data, ok := t.assets[name]
	if !ok {
		return -1
	}
	return len(data)
}

// DirTree is an AssetTree backed by a directory, such as a bundler's
// output folder.
type DirTree struct {
	root string
}

// NewDirTree returns a DirTree rooted at dir.
func NewDirTree(dir string) *DirTree {
	return &DirTree{root: dir}
}

// Root returns the tree's directory.
func (t *DirTree) Root() string {
	return t.root
}

// Names walks the directory and returns regular files in lexical order.
func (t *DirTree) Names() ([]string, error) {
	var names []string
	err := filepath.WalkDir(t.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(t.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.root, err)
	}
	return names, nil
}

func (t *DirTree) Read(name string) ([]byte, error) {
	p, err := t.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (t *DirTree) Write(name string, data []byte) error {
	p, err := t.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (t *DirTree) path(name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(t.root, filepath.FromSlash(clean)), nil
}
