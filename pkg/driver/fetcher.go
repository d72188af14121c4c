package driver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"golang.org/x/mod/semver"
)

// Fetcher materialises one dependency and describes what it pinned.
type Fetcher interface {
	Fetch(ctx context.Context, name string, spec *DependencySpec) (*LockedPackage, error)
}

// GitFetcher checks dependencies out under <CacheDir>/pkg/src/<name>/<version>.
type GitFetcher struct {
	CacheDir string
	Logger   *slog.Logger
}

// NewGitFetcher returns a fetcher rooted at cacheDir.
func NewGitFetcher(cacheDir string, logger *slog.Logger) *GitFetcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &GitFetcher{CacheDir: cacheDir, Logger: logger}
}

// Fetch resolves spec and records the pinned commit. Path dependencies are
// checksummed in place.
func (g *GitFetcher) Fetch(ctx context.Context, name string, spec *DependencySpec) (*LockedPackage, error) {
	if g == nil || g.CacheDir == "" {
		return nil, errors.New("git fetcher unavailable")
	}
	if spec.Path != "" {
		return fetchPath(name, spec.Path)
	}
	url := strings.TrimSpace(spec.Git)
	if url == "" {
		return nil, fmt.Errorf("dependency %q: git URL required", name)
	}

	revision, descriptor, err := g.revisionFor(ctx, url, spec)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: %w", name, err)
	}
	baseDir := filepath.Join(g.CacheDir, "pkg", "src", sanitizeSegment(name))
	version, commit, err := ensureGitCheckout(ctx, baseDir, url, revision, descriptor)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: %w", name, err)
	}

	checksum, err := dirChecksum(filepath.Join(baseDir, sanitizePathSegment(version)))
	if err != nil {
		return nil, err
	}
	g.Logger.Info("fetched dependency",
		slog.String("name", name),
		slog.String("version", version),
		slog.String("commit", commit),
	)
	return &LockedPackage{
		Name:     sanitizeSegment(name),
		Version:  version,
		Source:   fmt.Sprintf("git+%s@%s", url, commit),
		Checksum: checksum,
	}, nil
}

func fetchPath(name, dir string) (*LockedPackage, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: %w", name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dependency %q: %s is not a directory", name, dir)
	}
	checksum, err := dirChecksum(dir)
	if err != nil {
		return nil, err
	}
	return &LockedPackage{
		Name:     sanitizeSegment(name),
		Version:  "local",
		Source:   "path:" + dir,
		Checksum: checksum,
	}, nil
}

// revisionFor turns a spec into a git revision. A version prefix selects the
// highest matching release tag advertised by the remote.
func (g *GitFetcher) revisionFor(ctx context.Context, url string, spec *DependencySpec) (plumbing.Revision, string, error) {
	if spec.Version == "" {
		return gitRevisionFromSpec(spec)
	}
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{Name: "origin", URLs: []string{url}})
	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return "", "", fmt.Errorf("list tags of %s: %w", url, err)
	}
	var tags []string
	for _, ref := range refs {
		if ref.Name().IsTag() {
			tags = append(tags, ref.Name().Short())
		}
	}
	tag, ok := selectVersionTag(tags, spec.Version)
	if !ok {
		return "", "", fmt.Errorf("no tag of %s matches version %s", url, spec.Version)
	}
	return plumbing.Revision("refs/tags/" + tag), tag, nil
}

// selectVersionTag picks the highest release tag whose version equals or
// extends prefix; "1.2" matches "v1.2.0" and "1.2.7" but not "1.20.0".
func selectVersionTag(tags []string, prefix string) (string, bool) {
	want := canonicalVersion(prefix)
	var (
		best     string
		bestTag  string
		matchAll = semver.Prerelease(want) != ""
	)
	for _, tag := range tags {
		v := canonicalVersion(tag)
		if !semver.IsValid(v) {
			continue
		}
		if semver.Prerelease(v) != "" && !matchAll {
			continue
		}
		if v != want && !strings.HasPrefix(v, want+".") && !strings.HasPrefix(v, want+"-") {
			continue
		}
		if best == "" || semver.Compare(v, best) > 0 {
			best, bestTag = v, tag
		}
	}
	return bestTag, bestTag != ""
}

func ensureGitCheckout(ctx context.Context, baseDir, url string, revision plumbing.Revision, descriptor string) (string, string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}
	if isCommitHash(descriptor) {
		existing := filepath.Join(baseDir, sanitizePathSegment(descriptor))
		if _, err := os.Stat(existing); err == nil {
			return descriptor, descriptor, nil
		}
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", "", err
	}

	repo, err := git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:               url,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git clone %s: %w", url, err)
	}

	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}

	version := gitPinnedVersion(descriptor, hash.String())
	targetDir := filepath.Join(baseDir, sanitizePathSegment(version))
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
		return version, hash.String(), nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git checkout %s: %w", revision, err)
	}
	if err := os.RemoveAll(filepath.Join(tmpDir, ".git")); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	return version, hash.String(), nil
}

func isCommitHash(s string) bool {
	if len(s) != 40 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func gitPinnedVersion(descriptor, commit string) string {
	commit = strings.TrimSpace(commit)
	descriptor = strings.TrimSpace(descriptor)
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return fmt.Sprintf("%s@%s", descriptor, commit)
}

func gitRevisionFromSpec(spec *DependencySpec) (plumbing.Revision, string, error) {
	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		return plumbing.Revision(rev), rev, nil
	}
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), tag, nil
	}
	if branch := strings.TrimSpace(spec.Branch); branch != "" {
		return plumbing.Revision("refs/heads/" + branch), branch, nil
	}
	return "", "", fmt.Errorf("git dependencies require rev, tag, branch or version")
}

// PackageDir is where an installed package's sources live.
func PackageDir(cacheDir string, pkg *LockedPackage) string {
	if dir, ok := strings.CutPrefix(pkg.Source, "path:"); ok {
		return dir
	}
	return filepath.Join(cacheDir, "pkg", "src", sanitizeSegment(pkg.Name), sanitizePathSegment(pkg.Version))
}

func dirChecksum(path string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		h.Write([]byte(filepath.ToSlash(rel)))
		h.Write(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

func sanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "head"
	}
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
