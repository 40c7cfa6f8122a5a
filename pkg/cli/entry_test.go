package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/pybind/internal/config"
	"github.com/funvibe/pybind/internal/manifest"
)

func writeProject(t *testing.T, stats string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"pybind.yaml": `package: geo
sources:
  - "scripts/*.py"
modules:
  - file: scripts/geometry.py
    type_name: Geo
`,
		"scripts/geometry.py": "def area(w: float, h: float) -> float: ...\ndef names(xs: list[str]) -> None: ...\n",
		"scripts/stats.py":    stats,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Main(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestMain_Commands(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		code   int
		stdout string
		stderr string
	}{
		{"version", []string{"version"}, exitOK, "pybind " + config.Version, ""},
		{"help", []string{"help"}, exitOK, "Usage:", ""},
		{"no command", nil, exitUsage, "", "Usage:"},
		{"unknown", []string{"frobnicate"}, exitUsage, "", `unknown command "frobnicate"`},
		{"bad flag", []string{"gen", "--frob"}, exitUsage, "", "flag provided but not defined"},
		{"cache without clean", []string{"cache"}, exitUsage, "", "pybind cache clean"},
		{"missing config", []string{"check", "--config", "/nonexistent/pybind.yaml"}, exitError, "", "error: reading config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := run(t, tt.args...)
			if code != tt.code {
				t.Errorf("exit code = %d; want %d (stderr: %s)", code, tt.code, stderr)
			}
			if !strings.Contains(stdout, tt.stdout) {
				t.Errorf("stdout = %q; want it to contain %q", stdout, tt.stdout)
			}
			if !strings.Contains(stderr, tt.stderr) {
				t.Errorf("stderr = %q; want it to contain %q", stderr, tt.stderr)
			}
		})
	}
}

func TestGen(t *testing.T) {
	dir := writeProject(t, "def summary(m: dict[str, list[int]]) -> None: ...\n")
	cfgPath := filepath.Join(dir, "pybind.yaml")

	code, stdout, stderr := run(t, "gen", "--config", cfgPath)
	if code != exitOK {
		t.Fatalf("gen exit code = %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "generated geometry -> bindings/geometry.pybind.go (Geo, 2 functions)") {
		t.Errorf("stdout = %s", stdout)
	}
	if !strings.Contains(stdout, "2 modules, 0 cached, 0 errors") {
		t.Errorf("summary missing from %s", stdout)
	}
	for _, name := range []string{"bindings/geometry.pybind.go", "bindings/stats.pybind.go", config.DefaultManifest, config.DefaultCache} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s was not written: %v", name, err)
		}
	}

	code, stdout, _ = run(t, "gen", "--config", cfgPath)
	if code != exitOK || !strings.Contains(stdout, "2 modules, 2 cached") {
		t.Errorf("second gen: code = %d, stdout = %s", code, stdout)
	}

	code, stdout, _ = run(t, "cache", "clean", "--config", cfgPath)
	if code != exitOK || !strings.Contains(stdout, "removed 2 cache entries") {
		t.Errorf("cache clean: code = %d, stdout = %s", code, stdout)
	}
	code, stdout, _ = run(t, "gen", "--config", cfgPath)
	if code != exitOK || !strings.Contains(stdout, "0 cached") {
		t.Errorf("gen after clean: code = %d, stdout = %s", code, stdout)
	}
}

func TestGen_ErrorsExitNonZero(t *testing.T) {
	dir := writeProject(t, "def broken(c: Custom[int]) -> None: ...\n")
	code, _, stderr := run(t, "gen", "--no-cache", "--config", filepath.Join(dir, "pybind.yaml"))
	if code != exitError {
		t.Errorf("exit code = %d; want %d", code, exitError)
	}
	if !strings.Contains(stderr, "error PYB001") || !strings.Contains(stderr, "broken") {
		t.Errorf("stderr = %s", stderr)
	}
	if strings.Contains(stderr, "PYB002") {
		t.Error("informational diagnostics are only shown with --verbose")
	}
}

func TestGen_DryRunAndOut(t *testing.T) {
	dir := writeProject(t, "def summary(m: dict[str, int]) -> None: ...\n")
	out := filepath.Join(dir, "elsewhere")
	code, _, stderr := run(t, "gen", "--dry-run", "--out", out, "--config", filepath.Join(dir, "pybind.yaml"))
	if code != exitOK {
		t.Fatalf("exit code = %d: %s", code, stderr)
	}
	for _, name := range []string{"elsewhere", "bindings", config.DefaultManifest, config.DefaultCache} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("dry run wrote %s", name)
		}
	}

	code, _, _ = run(t, "gen", "--no-cache", "--out", out, "--config", filepath.Join(dir, "pybind.yaml"))
	if _, err := os.Stat(filepath.Join(out, "stats.pybind.go")); code != exitOK || err != nil {
		t.Errorf("--out was not honored: code = %d, err = %v", code, err)
	}
}

func TestCheck(t *testing.T) {
	dir := writeProject(t, "def summary(m: dict[str, list[int]]) -> None: ...\n")
	code, stdout, stderr := run(t, "check", "--config", filepath.Join(dir, "pybind.yaml"))
	if code != exitOK {
		t.Fatalf("exit code = %d: %s", code, stderr)
	}
	for _, want := range []string{
		"geometry Geo",
		"  area -> Area",
		"  names -> Names",
		"encoders: ListConverter[string]",
		"encoders: DictConverter[string, []int64], TupleConverter, ListConverter[int64]",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("check output lacks %q:\n%s", want, stdout)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "bindings")); !os.IsNotExist(err) {
		t.Error("check must not write bindings")
	}
}

func TestManifest(t *testing.T) {
	dir := writeProject(t, "def summary(m: dict[str, int]) -> None: ...\n")
	code, stdout, stderr := run(t, "manifest", "--config", filepath.Join(dir, "pybind.yaml"))
	if code != exitOK {
		t.Fatalf("exit code = %d: %s", code, stderr)
	}
	path := filepath.Join(t.TempDir(), "m.yaml")
	if err := os.WriteFile(path, []byte(stdout), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Read(path)
	if err != nil {
		t.Fatalf("manifest output is not readable: %v\n%s", err, stdout)
	}
	if m.Package != "geo" || len(m.Modules) != 2 || m.Modules[0].TypeName != "Geo" {
		t.Errorf("manifest = %+v", m)
	}
	if _, err := os.Stat(filepath.Join(dir, config.DefaultManifest)); !os.IsNotExist(err) {
		t.Error("manifest command must not write the manifest file")
	}
}
