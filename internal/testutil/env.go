// Package testutil provides helpers for testing protect-web in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// Env describes the isolated directories created by SetupTestEnv.
type Env struct {
	Root       string
	InstallDir string
	TempDir    string
}

// SetupTestEnv points every protect-web setting at a fresh temp directory
// and clears credentials inherited from the developer's shell, so tests
// never download, reuse a real install or license a real build.
//
// Directories are removed by t.TempDir().
func SetupTestEnv(t *testing.T) Env {
	t.Helper()

	root := t.TempDir()
	env := Env{
		Root:       root,
		InstallDir: filepath.Join(root, "installs"),
		TempDir:    filepath.Join(root, "tmp"),
	}

	for _, name := range []string{
		"A4WEB_API_KEY",
		"A4WEB_API_SECRET",
		"A4WEB_LICENSE_TOKEN",
		"A4WEB_LICENSE_REGION",
		"A4WEB_KEYRING",
		"A4WEB_TIMEOUT",
		"A4WEB_API_URL",
		"A4WEB_METRICS_FILE",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
		"SJS_NPM_INVOCATION",
	} {
		// Setenv registers the restore; Unsetenv makes the variable absent
		// rather than empty for the duration of the test.
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	t.Setenv("A4WEB_INSTALL_DIR", env.InstallDir)
	t.Setenv("A4WEB_LOG_LEVEL", "debug")
	t.Setenv("TMPDIR", env.TempDir)

	if err := os.MkdirAll(env.TempDir, 0o750); err != nil {
		t.Fatalf("failed to create test directory %s: %v", env.TempDir, err)
	}
	return env
}

// WriteStubBinary writes an executable bash script named name into dir and
// returns its path. The script body follows the shebang line.
func WriteStubBinary(t *testing.T, dir, name, script string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("stub binaries require a POSIX shell")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create stub dir: %v", err)
	}
	path := filepath.Join(dir, name)
	content := "#!/usr/bin/env bash\n" + script + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("failed to write stub binary: %v", err)
	}
	return path
}

// InstallStubBinary writes a stub protect-web into installDir/bin and
// records version in installDir/metadata.json, as a completed acquisition
// would.
func InstallStubBinary(t *testing.T, installDir, version, script string) string {
	t.Helper()

	path := WriteStubBinary(t, filepath.Join(installDir, "bin"), "protect-web", script)
	if version != "" {
		meta := `{"version":"` + version + `"}`
		if err := os.WriteFile(filepath.Join(installDir, "metadata.json"), []byte(meta), 0o644); err != nil {
			t.Fatalf("failed to write metadata: %v", err)
		}
	}
	return path
}
