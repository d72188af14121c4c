package driver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadManifestBasic(t *testing.T) {
	path := writeManifest(t, `
name: sage-tools
version: "0.3.1"
search_paths:
  - src
  - /opt/sage/lib
gc:
  initial_threshold: 4096
  grow_factor: 3
  enabled: false
dependencies:
  strings:
    git: https://example.com/strings.git
    version: "1.2"
  local-utils:
    path: ../utils
  pinned:
    git: https://example.com/pinned.git
    rev: abc123
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	dir := filepath.Dir(path)

	if got, want := manifest.Name, "sage_tools"; got != want {
		t.Fatalf("Name = %q, want %q", got, want)
	}
	if manifest.Version != "0.3.1" {
		t.Fatalf("Version = %q, want 0.3.1", manifest.Version)
	}
	if len(manifest.SearchPaths) != 2 || manifest.SearchPaths[0] != filepath.Join(dir, "src") || manifest.SearchPaths[1] != "/opt/sage/lib" {
		t.Fatalf("SearchPaths unexpected: %#v", manifest.SearchPaths)
	}

	local := manifest.Dependencies["local_utils"]
	if local == nil || local.Path != filepath.Join(filepath.Dir(dir), "utils") {
		t.Fatalf("path dependency not resolved: %#v", local)
	}
	if dep := manifest.Dependencies["strings"]; dep == nil || dep.Version != "1.2" || dep.Git == "" {
		t.Fatalf("version dependency not parsed: %#v", dep)
	}
	if got := strings.Join(manifest.DependencyNames(), ","); got != "local_utils,pinned,strings" {
		t.Fatalf("DependencyNames = %q", got)
	}

	cfg := manifest.HeapConfig()
	if cfg.InitialThreshold != 4096 || cfg.GrowFactor != 3 || !cfg.Disabled {
		t.Fatalf("HeapConfig did not apply overrides: %+v", cfg)
	}
}

func TestManifestHeapConfigDefaults(t *testing.T) {
	path := writeManifest(t, "name: plain\n")
	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	cfg := manifest.HeapConfig()
	if cfg.Disabled || cfg.InitialThreshold <= 0 || cfg.GrowFactor <= 0 {
		t.Fatalf("expected default collector settings, got %+v", cfg)
	}
}

func TestLoadManifestValidation(t *testing.T) {
	path := writeManifest(t, `
version: not-a-version
gc:
  grow_factor: -1
dependencies:
  both:
    path: ../x
    git: https://example.com/x.git
  nothing:
    version: "1.0"
  loose:
    git: https://example.com/loose.git
  overpinned:
    git: https://example.com/o.git
    tag: v1.0.0
    branch: main
`)

	_, err := LoadManifest(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{
		"name must be provided",
		`version "not-a-version" is not a semantic version`,
		"gc.grow_factor must not be negative",
		"dependencies.both: path overrides cannot specify version or git source",
		"dependencies.loose: git dependencies require rev, tag, branch or version",
		"dependencies.nothing: must specify git or path",
		"dependencies.overpinned: specify at most one of rev, tag or branch",
	}
	for _, issue := range want {
		if !strings.Contains(err.Error(), issue) {
			t.Fatalf("expected issue %q in:\n%s", issue, err)
		}
	}
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	path := writeManifest(t, "name: x\ntargets:\n  app: main.sage\n")
	if _, err := LoadManifest(path); err == nil || !strings.Contains(err.Error(), "targets") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestFindManifestWalksUpward(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ManifestName), []byte("name: root\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	found, err := FindManifest(nested)
	if err != nil {
		t.Fatalf("FindManifest: %v", err)
	}
	if found != filepath.Join(root, ManifestName) {
		t.Fatalf("FindManifest = %q", found)
	}
}

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "project")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(strings.TrimLeft(contents, "\n")), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}
