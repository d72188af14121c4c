package driver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"sage/interpreter-go/pkg/interpreter"
	"sage/interpreter-go/pkg/parser"
	"sage/interpreter-go/pkg/runtime"
)

// SourceExt is the file extension of Sage modules.
const SourceExt = ".sage"

// ModuleNotFoundError reports a module absent from every search root.
type ModuleNotFoundError struct {
	Name     string
	Searched []string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("Module '%s' not found", e.Name)
}

// CircularImportError reports an import of a module still being executed.
type CircularImportError struct {
	Name string
}

func (e *CircularImportError) Error() string {
	return fmt.Sprintf("Circular dependency detected for module '%s'", e.Name)
}

// Loader resolves import names to files, executes each module once and
// caches the resulting namespace.
type Loader struct {
	searchPaths []string
	packages    map[string]string
	cache       map[string]*runtime.ModuleValue
	inProgress  map[string]bool
	logger      *slog.Logger
}

// LoaderOptions configures module resolution.
type LoaderOptions struct {
	// BaseDir anchors the default roots ".", "lib" and "modules".
	BaseDir string
	// SearchPaths are consulted after the default roots.
	SearchPaths []string
	// Packages maps installed dependency names to their source directory.
	Packages map[string]string
	Logger   *slog.Logger
}

// NewLoader builds a loader. Roots are searched in this order: BaseDir,
// BaseDir/lib, BaseDir/modules, SearchPaths, then each SAGE_PATH entry.
func NewLoader(opts LoaderOptions) *Loader {
	base := opts.BaseDir
	if base == "" {
		base = "."
	}
	roots := []string{base, filepath.Join(base, "lib"), filepath.Join(base, "modules")}
	roots = append(roots, opts.SearchPaths...)
	if env := os.Getenv("SAGE_PATH"); env != "" {
		for _, p := range filepath.SplitList(env) {
			if p = strings.TrimSpace(p); p != "" {
				roots = append(roots, p)
			}
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	packages := make(map[string]string, len(opts.Packages))
	for name, dir := range opts.Packages {
		packages[sanitizeSegment(name)] = dir
	}
	return &Loader{
		searchPaths: dedupePaths(roots),
		packages:    packages,
		cache:       make(map[string]*runtime.ModuleValue),
		inProgress:  make(map[string]bool),
		logger:      logger,
	}
}

// SearchPaths returns the resolved roots in lookup order.
func (l *Loader) SearchPaths() []string {
	return append([]string(nil), l.searchPaths...)
}

// Resolve maps a module name to a source file. Dotted names descend into
// directories, and a directory module is backed by its __init__.sage.
func (l *Loader) Resolve(name string) (string, error) {
	rel := filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))
	head, _, _ := strings.Cut(name, ".")

	var candidates []string
	if dir, ok := l.packages[sanitizeSegment(head)]; ok {
		if head == name {
			candidates = append(candidates,
				filepath.Join(dir, "__init__"+SourceExt),
				filepath.Join(dir, head+SourceExt),
			)
		} else {
			sub := filepath.FromSlash(strings.ReplaceAll(strings.TrimPrefix(name, head+"."), ".", "/"))
			candidates = append(candidates,
				filepath.Join(dir, sub+SourceExt),
				filepath.Join(dir, sub, "__init__"+SourceExt),
			)
		}
	}
	for _, root := range l.searchPaths {
		candidates = append(candidates,
			filepath.Join(root, rel+SourceExt),
			filepath.Join(root, rel, "__init__"+SourceExt),
		)
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", &ModuleNotFoundError{Name: name, Searched: candidates}
}

// LoadModule implements interpreter.ModuleLoader.
func (l *Loader) LoadModule(interp *interpreter.Interpreter, name string) (*runtime.ModuleValue, error) {
	if mod, ok := l.cache[name]; ok {
		return mod, nil
	}
	if l.inProgress[name] {
		return nil, &CircularImportError{Name: name}
	}

	path, err := l.Resolve(name)
	if err != nil {
		var notFound *ModuleNotFoundError
		if errors.As(err, &notFound) {
			l.logger.Warn("module not found", slog.String("module", name), slog.Int("candidates", len(notFound.Searched)))
		}
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Module '%s': %w", name, err)
	}
	program, err := parser.ParseProgram(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l.inProgress[name] = true
	defer delete(l.inProgress, name)
	l.logger.Debug("loading module", slog.String("module", name), slog.String("path", path))

	mod, err := interp.ExecuteModule(name, path, program)
	if err != nil {
		return nil, err
	}
	l.cache[name] = mod
	return mod, nil
}

// DependencyDirs maps each locked package to its installed directory.
func DependencyDirs(lock *Lockfile, cacheDir string) map[string]string {
	dirs := make(map[string]string)
	if lock == nil {
		return dirs
	}
	for _, pkg := range lock.Packages {
		if pkg == nil {
			continue
		}
		dirs[pkg.Name] = PackageDir(cacheDir, pkg)
	}
	return dirs
}

// SageHome is where fetched dependencies are cached. SAGE_HOME overrides the
// default of ~/.sage.
func SageHome() (string, error) {
	if env := strings.TrimSpace(os.Getenv("SAGE_HOME")); env != "" {
		return filepath.Abs(env)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".sage"), nil
}

func dedupePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	return out
}
