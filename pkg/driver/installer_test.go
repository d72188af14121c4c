package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type fakeFetcher struct {
	mu      sync.Mutex
	fetched []string
	fail    string
}

func (f *fakeFetcher) Fetch(ctx context.Context, name string, spec *DependencySpec) (*LockedPackage, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, name)
	f.mu.Unlock()
	if name == f.fail {
		return nil, fmt.Errorf("dependency %q: unreachable", name)
	}
	if spec.Path != "" {
		return fetchPath(name, spec.Path)
	}
	return &LockedPackage{
		Name:     name,
		Version:  spec.Tag + "@deadbeef",
		Source:   "git+" + spec.Git + "@deadbeef",
		Checksum: "sha256:00",
	}, nil
}

func TestInstallerProducesSortedLockfile(t *testing.T) {
	local := t.TempDir()
	writeFiles(t, local, map[string]string{"__init__.sage": "let x = 1\n"})
	manifest := &Manifest{
		Name: "app",
		Dependencies: map[string]*DependencySpec{
			"zlib":  {Git: "https://example.com/zlib.git", Tag: "v1.0.0"},
			"local": {Path: local},
			"beta":  {Git: "https://example.com/beta.git", Tag: "v0.2.0"},
		},
	}
	fetcher := &fakeFetcher{}
	installer := &Installer{Fetcher: fetcher, Concurrency: 2, Tool: "sage test"}
	lock, err := installer.Install(context.Background(), manifest)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if len(fetcher.fetched) != 3 {
		t.Fatalf("expected 3 fetches, got %v", fetcher.fetched)
	}
	var names []string
	for _, pkg := range lock.Packages {
		names = append(names, pkg.Name)
	}
	if got := strings.Join(names, ","); got != "beta,local,zlib" {
		t.Fatalf("lockfile order = %q", got)
	}
	pkg, _ := lock.Find("local")
	if pkg.Source != "path:"+local || !strings.HasPrefix(pkg.Checksum, "sha256:") {
		t.Fatalf("path dependency not recorded: %#v", pkg)
	}
	if lock.Root != "app" || lock.Tool != "sage test" {
		t.Fatalf("lockfile metadata unexpected: %+v", lock)
	}
}

func TestInstallerPropagatesFetchErrors(t *testing.T) {
	manifest := &Manifest{
		Name: "app",
		Dependencies: map[string]*DependencySpec{
			"ok":     {Git: "https://example.com/ok.git", Tag: "v1.0.0"},
			"broken": {Git: "https://example.com/broken.git", Tag: "v1.0.0"},
		},
	}
	installer := &Installer{Fetcher: &fakeFetcher{fail: "broken"}}
	_, err := installer.Install(context.Background(), manifest)
	if err == nil || !strings.Contains(err.Error(), `dependency "broken"`) {
		t.Fatalf("expected fetch failure, got %v", err)
	}
}

func TestGitFetcherPathDependency(t *testing.T) {
	local := t.TempDir()
	writeFiles(t, local, map[string]string{"a.sage": "let a = 1\n", "sub/b.sage": "let b = 2\n"})
	fetcher := NewGitFetcher(t.TempDir(), nil)

	first, err := fetcher.Fetch(context.Background(), "my-lib", &DependencySpec{Path: local})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if first.Name != "my_lib" || first.Source != "path:"+local {
		t.Fatalf("unexpected locked package %#v", first)
	}

	if err := os.WriteFile(filepath.Join(local, "a.sage"), []byte("let a = 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	second, err := fetcher.Fetch(context.Background(), "my-lib", &DependencySpec{Path: local})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if first.Checksum == second.Checksum {
		t.Fatalf("checksum should change with contents")
	}

	_, err = fetcher.Fetch(context.Background(), "gone", &DependencySpec{Path: filepath.Join(local, "nope")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing directory error, got %v", err)
	}
}

func TestSelectVersionTag(t *testing.T) {
	tags := []string{"v1.2.0", "1.2.7", "v1.20.0", "v1.3.0", "v1.2.9-rc1", "release", "v2.0.0"}
	cases := []struct {
		prefix string
		want   string
		ok     bool
	}{
		{"1.2", "1.2.7", true},
		{"v1", "v1.20.0", true},
		{"1.2.0", "v1.2.0", true},
		{"2", "v2.0.0", true},
		{"3", "", false},
	}
	for _, tc := range cases {
		got, ok := selectVersionTag(tags, tc.prefix)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("selectVersionTag(%q) = %q, %v; want %q, %v", tc.prefix, got, ok, tc.want, tc.ok)
		}
	}
}

func TestGitRevisionFromSpec(t *testing.T) {
	rev, desc, err := gitRevisionFromSpec(&DependencySpec{Branch: "main"})
	if err != nil || rev != "refs/heads/main" || desc != "main" {
		t.Fatalf("branch revision = %q %q %v", rev, desc, err)
	}
	if _, _, err := gitRevisionFromSpec(&DependencySpec{}); err == nil {
		t.Fatalf("expected error without a pin")
	}
	if got := gitPinnedVersion("v1.0.0", "abc"); got != "v1.0.0@abc" {
		t.Fatalf("gitPinnedVersion = %q", got)
	}
	if got := sanitizePathSegment("v1.0.0@abc/x"); got != "v1.0.0_abc_x" {
		t.Fatalf("sanitizePathSegment = %q", got)
	}
}
