package driver

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sage/interpreter-go/pkg/interpreter"
	"sage/interpreter-go/pkg/parser"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func runWithLoader(t *testing.T, loader *Loader, src string) (string, error) {
	t.Helper()
	program, err := parser.ParseProgram(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var stdout, stderr bytes.Buffer
	interp := interpreter.New(interpreter.Options{Stdout: &stdout, Stderr: &stderr, Loader: loader})
	_, err = interp.EvaluateProgram(program)
	return stdout.String(), err
}

func TestLoaderResolutionOrder(t *testing.T) {
	t.Setenv("SAGE_PATH", "")
	root := t.TempDir()
	extra := t.TempDir()
	pkgDir := t.TempDir()
	writeFiles(t, root, map[string]string{
		"local.sage":                "let where = \"root\"\n",
		"lib/local.sage":            "let where = \"lib\"\n",
		"lib/helpers.sage":          "let where = \"lib\"\n",
		"modules/geo/__init__.sage": "let where = \"package dir\"\n",
		"modules/geo/shapes.sage":   "let where = \"nested\"\n",
	})
	writeFiles(t, extra, map[string]string{"far.sage": "let where = \"extra\"\n"})
	writeFiles(t, pkgDir, map[string]string{"__init__.sage": "let where = \"dependency\"\n"})

	loader := NewLoader(LoaderOptions{
		BaseDir:     root,
		SearchPaths: []string{extra},
		Packages:    map[string]string{"dep-pkg": pkgDir},
	})
	cases := map[string]string{
		"local":      filepath.Join(root, "local.sage"),
		"helpers":    filepath.Join(root, "lib", "helpers.sage"),
		"geo":        filepath.Join(root, "modules", "geo", "__init__.sage"),
		"geo.shapes": filepath.Join(root, "modules", "geo", "shapes.sage"),
		"far":        filepath.Join(extra, "far.sage"),
		"dep_pkg":    filepath.Join(pkgDir, "__init__.sage"),
	}
	for name, want := range cases {
		got, err := loader.Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", name, err)
		}
		if got != want {
			t.Fatalf("Resolve(%q) = %q, want %q", name, got, want)
		}
	}

	_, err := loader.Resolve("nowhere")
	var notFound *ModuleNotFoundError
	if !errors.As(err, &notFound) || notFound.Error() != "Module 'nowhere' not found" {
		t.Fatalf("expected ModuleNotFoundError, got %v", err)
	}
}

func TestLoaderSagePathEnv(t *testing.T) {
	envDir := t.TempDir()
	writeFiles(t, envDir, map[string]string{"envmod.sage": "let x = 1\n"})
	t.Setenv("SAGE_PATH", envDir)

	loader := NewLoader(LoaderOptions{BaseDir: t.TempDir()})
	paths := loader.SearchPaths()
	if paths[len(paths)-1] != envDir {
		t.Fatalf("SAGE_PATH should be searched last: %v", paths)
	}
	if _, err := loader.Resolve("envmod"); err != nil {
		t.Fatalf("Resolve via SAGE_PATH: %v", err)
	}
}

func TestLoaderExecutesModulesOnce(t *testing.T) {
	t.Setenv("SAGE_PATH", "")
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"counter.sage": "print \"loading counter\"\nlet start = 10\nproc bump(n):\n    return n + start\n",
	})
	loader := NewLoader(LoaderOptions{BaseDir: root})
	out, err := runWithLoader(t, loader, `import counter
import counter as c
from counter import bump
print counter.bump(1), c.start, bump(5)
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "loading counter\n11 10 15\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLoaderDetectsCycles(t *testing.T) {
	t.Setenv("SAGE_PATH", "")
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.sage": "import b\n",
		"b.sage": "import a\n",
	})
	loader := NewLoader(LoaderOptions{BaseDir: root})
	_, err := runWithLoader(t, loader, "import a\n")
	if err == nil || !strings.Contains(err.Error(), "Circular dependency detected for module 'a'") {
		t.Fatalf("expected circular import error, got %v", err)
	}
}

func TestLoaderErrorsAreCatchable(t *testing.T) {
	t.Setenv("SAGE_PATH", "")
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"bad_syntax.sage": "let = 3\n",
	})
	loader := NewLoader(LoaderOptions{BaseDir: root})
	out, err := runWithLoader(t, loader, `try:
    import missing_mod
catch e:
    print e
try:
    import bad_syntax
catch e:
    print "syntax"
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Module 'missing_mod' not found\nsyntax\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestDependencyDirs(t *testing.T) {
	lock := &Lockfile{Packages: []*LockedPackage{
		{Name: "local", Version: "local", Source: "path:/src/local"},
		{Name: "remote", Version: "v1.2.0@abc", Source: "git+https://example.com/r.git@abc"},
	}}
	dirs := DependencyDirs(lock, "/cache")
	if dirs["local"] != "/src/local" {
		t.Fatalf("path dependency dir = %q", dirs["local"])
	}
	if want := filepath.Join("/cache", "pkg", "src", "remote", "v1.2.0_abc"); dirs["remote"] != want {
		t.Fatalf("git dependency dir = %q, want %q", dirs["remote"], want)
	}
}

func TestSageHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SAGE_HOME", dir)
	home, err := SageHome()
	if err != nil || home != dir {
		t.Fatalf("SageHome = %q, %v", home, err)
	}
}
