package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/idanshimon/protect-web/internal/artifact"
	"github.com/idanshimon/protect-web/internal/config"
	"github.com/idanshimon/protect-web/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, Version) || !strings.Contains(out, config.RequiredVersion) {
		t.Errorf("version output = %q", out)
	}
}

func TestProtectCommand(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	t.Setenv(config.EnvLicenseToken, "TOKEN-1")
	testutil.InstallStubBinary(t, env.InstallDir, config.RequiredVersion,
		`echo "args: $1"; grep -q TOKEN-1 "$2" && echo "token merged"; echo "warn" >&2`)

	bpPath := filepath.Join(env.Root, "blueprint.yaml")
	writeFile(t, bpPath, "globalConfiguration:\n  guardConfiguration: {}\n")

	out, errOut, err := execute(t, "protect", "--blueprint", bpPath)
	if err != nil {
		t.Fatalf("protect error = %v", err)
	}
	if !strings.Contains(out, "args: --blueprint") || !strings.Contains(out, "token merged") {
		t.Errorf("stdout = %q", out)
	}
	if !strings.Contains(errOut, "warn") {
		t.Errorf("stderr = %q, want binary stderr relayed", errOut)
	}
}

func TestProtectCommand_Errors(t *testing.T) {
	t.Run("missing flag", func(t *testing.T) {
		testutil.SetupTestEnv(t)
		if _, _, err := execute(t, "protect"); err == nil {
			t.Error("protect without --blueprint error = nil")
		}
	})

	t.Run("missing binary without credentials", func(t *testing.T) {
		env := testutil.SetupTestEnv(t)
		t.Setenv(config.EnvLicenseToken, "TOKEN-1")
		bpPath := filepath.Join(env.Root, "bp.json")
		writeFile(t, bpPath, `{}`)

		_, _, err := execute(t, "protect", "--blueprint", bpPath)
		if err == nil || !strings.Contains(err.Error(), config.EnvAPIKey) {
			t.Errorf("protect error = %v, want missing credentials", err)
		}
	})
}

func TestBuildCommand(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	t.Setenv(config.EnvLicenseToken, "TOKEN-1")
	testutil.InstallStubBinary(t, env.InstallDir, config.RequiredVersion, `
field() { grep -o "\"$1\": *\"[^\"]*\"" "$2" | head -n1 | sed 's/.*"\([^"]*\)"$/\1/'; }
in=$(field input "$2")
out=$(field outputDirectory "$2")
cp -R "$in"/. "$out"/
find "$out" -name '*.js' | while read -r f; do printf '//p' >> "$f"; done
`)

	assets := filepath.Join(env.Root, "dist")
	writeFile(t, filepath.Join(assets, "main.js"), "a")
	writeFile(t, filepath.Join(assets, "css", "site.css"), "body{}")

	out, _, err := execute(t, "build", "--assets", assets, "--context", env.Root)
	if err != nil {
		t.Fatalf("build error = %v", err)
	}
	if !strings.Contains(out, "1 files staged") {
		t.Errorf("stdout = %q", out)
	}

	data, _ := os.ReadFile(filepath.Join(assets, "main.js"))
	if string(data) != "a//p" {
		t.Errorf("main.js = %q", data)
	}
	css, _ := os.ReadFile(filepath.Join(assets, "css", "site.css"))
	if string(css) != "body{}" {
		t.Errorf("site.css = %q, want untouched", css)
	}
}

func TestInstallCommand(t *testing.T) {
	t.Run("already installed", func(t *testing.T) {
		env := testutil.SetupTestEnv(t)
		testutil.InstallStubBinary(t, env.InstallDir, config.RequiredVersion, `exit 0`)

		out, _, err := execute(t, "install")
		if err != nil {
			t.Fatalf("install error = %v", err)
		}
		if !strings.Contains(out, "already installed") {
			t.Errorf("stdout = %q", out)
		}
	})

	t.Run("no credentials", func(t *testing.T) {
		testutil.SetupTestEnv(t)

		_, _, err := execute(t, "install")
		if !errors.Is(err, artifact.ErrAuthentication) {
			t.Errorf("install error = %v, want ErrAuthentication", err)
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if err := loadDotEnv(filepath.Join(dir, "absent.env")); err != nil {
			t.Errorf("loadDotEnv(missing) error = %v", err)
		}
	})

	t.Run("valid file", func(t *testing.T) {
		t.Setenv("PROTECT_WEB_DOTENV_TEST", "")
		os.Unsetenv("PROTECT_WEB_DOTENV_TEST")
		path := filepath.Join(dir, "valid.env")
		writeFile(t, path, "PROTECT_WEB_DOTENV_TEST=from-file\n")

		if err := loadDotEnv(path); err != nil {
			t.Fatalf("loadDotEnv() error = %v", err)
		}
		if got := os.Getenv("PROTECT_WEB_DOTENV_TEST"); got != "from-file" {
			t.Errorf("variable = %q, want from-file", got)
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(dir, "bad.env")
		writeFile(t, path, "BAD-KEY=1\n")

		if err := loadDotEnv(path); err == nil {
			t.Error("loadDotEnv(malformed) error = nil")
		}
	})

	t.Run("unreadable path", func(t *testing.T) {
		// A directory cannot be read as a file.
		if err := loadDotEnv(dir); err == nil {
			t.Error("loadDotEnv(directory) error = nil")
		}
	})
}

func TestProtectCommand_MalformedDotEnv(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	bpPath := filepath.Join(env.Root, "bp.json")
	writeFile(t, bpPath, `{}`)

	t.Chdir(env.Root)
	writeFile(t, filepath.Join(env.Root, ".env"), "BAD-KEY=1\n")

	_, _, err := execute(t, "protect", "--blueprint", bpPath)
	if err == nil || !strings.Contains(err.Error(), "load .env") {
		t.Errorf("protect error = %v, want .env load failure", err)
	}
}
