package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"sage/interpreter-go/pkg/runtime"
)

// ManifestName is the project manifest file searched for next to a script.
const ManifestName = "sage.yml"

// Manifest represents the parsed contents of sage.yml.
type Manifest struct {
	Path    string
	Dir     string
	Name    string
	Version string
	// SearchPaths are absolute, in declaration order.
	SearchPaths  []string
	GC           GCSettings
	Dependencies map[string]*DependencySpec
}

// GCSettings mirrors the collector knobs a project may override.
type GCSettings struct {
	InitialThreshold int
	GrowFactor       int
	Enabled          *bool
}

// DependencySpec describes a dependency descriptor in the manifest. Git
// dependencies pin a rev, tag or branch, or select the highest remote tag
// matching a semver Version prefix.
type DependencySpec struct {
	Version string
	Git     string
	Rev     string
	Tag     string
	Branch  string
	Path    string
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadManifest parses sage.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// FindManifest walks from start towards the filesystem root and returns the
// first sage.yml found, or "" when there is none.
func FindManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// HeapConfig applies the manifest's collector overrides to the defaults.
func (m *Manifest) HeapConfig() runtime.HeapConfig {
	cfg := runtime.DefaultHeapConfig()
	if m == nil {
		return cfg
	}
	if m.GC.InitialThreshold > 0 {
		cfg.InitialThreshold = m.GC.InitialThreshold
	}
	if m.GC.GrowFactor > 0 {
		cfg.GrowFactor = m.GC.GrowFactor
	}
	if m.GC.Enabled != nil {
		cfg.Disabled = !*m.GC.Enabled
	}
	return cfg
}

// DependencyNames returns dependency names in sorted order.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if m.Version != "" && !semver.IsValid(canonicalVersion(m.Version)) {
		errs.Issues = append(errs.Issues, fmt.Sprintf("version %q is not a semantic version", m.Version))
	}
	for i, path := range m.SearchPaths {
		if path == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("search_paths[%d] must be a non-empty string", i))
		}
	}
	if m.GC.InitialThreshold < 0 {
		errs.Issues = append(errs.Issues, "gc.initial_threshold must not be negative")
	}
	if m.GC.GrowFactor < 0 {
		errs.Issues = append(errs.Issues, "gc.grow_factor must not be negative")
	}
	for _, name := range m.DependencyNames() {
		dep := m.Dependencies[name]
		if dep == nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: must not be empty", name))
			continue
		}
		for _, issue := range dep.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: %s", name, issue))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (d *DependencySpec) validate() []string {
	var errs []string
	if d.Path != "" && (d.Version != "" || d.Git != "") {
		errs = append(errs, "path overrides cannot specify version or git source")
	}
	if d.Path == "" && d.Git == "" {
		errs = append(errs, "must specify git or path")
	}
	pins := 0
	for _, pin := range []string{d.Rev, d.Tag, d.Branch} {
		if pin != "" {
			pins++
		}
	}
	if pins > 1 {
		errs = append(errs, "specify at most one of rev, tag or branch")
	}
	if d.Git != "" && pins == 0 && d.Version == "" {
		errs = append(errs, "git dependencies require rev, tag, branch or version")
	}
	if d.Version != "" && pins > 0 {
		errs = append(errs, "version selection cannot be combined with rev, tag or branch")
	}
	if d.Version != "" && !semver.IsValid(canonicalVersion(d.Version)) {
		errs = append(errs, fmt.Sprintf("invalid version %q", d.Version))
	}
	return errs
}

// canonicalVersion adds the "v" prefix x/mod/semver expects.
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

type manifestFile struct {
	Name         string        `yaml:"name"`
	Version      string        `yaml:"version"`
	SearchPaths  []string      `yaml:"search_paths"`
	GC           gcYAML        `yaml:"gc"`
	Dependencies dependencyMap `yaml:"dependencies"`
}

type gcYAML struct {
	InitialThreshold int   `yaml:"initial_threshold"`
	GrowFactor       int   `yaml:"grow_factor"`
	Enabled          *bool `yaml:"enabled"`
}

type dependencyYAML struct {
	Version string `yaml:"version"`
	Git     string `yaml:"git"`
	Rev     string `yaml:"rev"`
	Tag     string `yaml:"tag"`
	Branch  string `yaml:"branch"`
	Path    string `yaml:"path"`
}

type dependencyMap map[string]*dependencyYAML

func (mf manifestFile) toManifest(path string) *Manifest {
	dir := filepath.Dir(path)
	result := &Manifest{
		Path:    path,
		Dir:     dir,
		Name:    sanitizeSegment(mf.Name),
		Version: strings.TrimSpace(mf.Version),
		GC: GCSettings{
			InitialThreshold: mf.GC.InitialThreshold,
			GrowFactor:       mf.GC.GrowFactor,
			Enabled:          mf.GC.Enabled,
		},
		Dependencies: make(map[string]*DependencySpec, len(mf.Dependencies)),
	}
	for _, sp := range mf.SearchPaths {
		sp = strings.TrimSpace(sp)
		if sp != "" && !filepath.IsAbs(sp) {
			sp = filepath.Join(dir, sp)
		}
		result.SearchPaths = append(result.SearchPaths, sp)
	}
	for name, dep := range mf.Dependencies {
		key := sanitizeSegment(name)
		if dep == nil {
			result.Dependencies[key] = nil
			continue
		}
		spec := &DependencySpec{
			Version: strings.TrimSpace(dep.Version),
			Git:     strings.TrimSpace(dep.Git),
			Rev:     strings.TrimSpace(dep.Rev),
			Tag:     strings.TrimSpace(dep.Tag),
			Branch:  strings.TrimSpace(dep.Branch),
			Path:    strings.TrimSpace(dep.Path),
		}
		if spec.Path != "" && !filepath.IsAbs(spec.Path) {
			spec.Path = filepath.Join(dir, spec.Path)
		}
		result.Dependencies[key] = spec
	}
	return result
}

func sanitizeSegment(seg string) string {
	seg = strings.TrimSpace(seg)
	seg = strings.ReplaceAll(seg, "-", "_")
	return seg
}
