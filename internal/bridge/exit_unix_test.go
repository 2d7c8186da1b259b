//go:build !windows

package bridge

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/idanshimon/protect-web/internal/blueprint"
	"github.com/idanshimon/protect-web/internal/invoke"
)

const envExitChildTempDir = "BRIDGE_TEST_EXIT_TEMPDIR"

type nopProtector struct{}

func (nopProtector) Invoke(context.Context, *blueprint.Map) (invoke.Output, error) {
	return invoke.Output{}, nil
}

// TestMain lets the test binary act as a child that creates scratch
// directories and exits without running their cleanup.
func TestMain(m *testing.M) {
	if dir := os.Getenv(envExitChildTempDir); dir != "" {
		b, err := New(nil, nopProtector{}, Options{TempDir: dir})
		if err == nil {
			_, _, err = b.scratchDir("protect-web-in-")
		}
		if err == nil {
			_, _, err = b.scratchDir("protect-web-out-")
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func TestScratchDir_ExitHookWithSpacedTempDir(t *testing.T) {
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
		t.Errorf("scratch dirs not removed after exit: %v", entries)
	}
	if _, err := os.Stat(neighbour); err != nil {
		t.Errorf("unrelated directory %s removed: %v", neighbour, err)
	}
}
