//go:build !windows

package invoke

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/idanshimon/protect-web/internal/blueprint"
)

const envExitChildTempDir = "INVOKE_TEST_EXIT_TEMPDIR"

// TestMain lets the test binary act as a child that writes a blueprint and
// exits without running its cleanup.
func TestMain(m *testing.M) {
	if dir := os.Getenv(envExitChildTempDir); dir != "" {
		p, err := New(Config{Installer: &fakeInstaller{}, TempDir: dir})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		if _, _, err := p.writeBlueprint("child", blueprint.NewMap()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func TestWriteBlueprint_ExitHookWithSpacedTempDir(t *testing.T) {
	base := t.TempDir()
	neighbour := filepath.Join(base, "my")
	tempDir := filepath.Join(base, "my builds")
	for _, dir := range []string{neighbour, tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	cmd := exec.Command(os.Args[0], "-test.run=^$")
	cmd.Env = append(os.Environ(), envExitChildTempDir+"="+tempDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("child failed: %v\n%s", err, out)
	}

	deadline := time.Now().Add(10 * time.Second)
	var entries []os.DirEntry
	for time.Now().Before(deadline) {
		entries, _ = os.ReadDir(tempDir)
		if len(entries) == 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(entries) != 0 {
		t.Errorf("blueprint dir not removed after exit: %v", entries)
	}
	if _, err := os.Stat(neighbour); err != nil {
		t.Errorf("unrelated directory %s removed: %v", neighbour, err)
	}
}
