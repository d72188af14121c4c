package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"sage/interpreter-go/pkg/driver"
	"sage/interpreter-go/pkg/interpreter"
	"sage/interpreter-go/pkg/parser"
)

// session bundles the project configuration found around a script.
type session struct {
	manifest *driver.Manifest
	loader   *driver.Loader
}

// openSession locates sage.yml above dir and prepares a module loader that
// searches the manifest's paths and installed dependencies.
func (c *cli) openSession(dir string) (*session, error) {
	manifestPath, err := driver.FindManifest(dir)
	if err != nil {
		return nil, err
	}
	var (
		manifest *driver.Manifest
		packages = map[string]string{}
	)
	if manifestPath != "" {
		manifest, err = driver.LoadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
		for name, dep := range manifest.Dependencies {
			if dep != nil && dep.Path != "" {
				packages[name] = dep.Path
			}
		}
		lock, err := driver.LoadLockfile(filepath.Join(manifest.Dir, driver.LockfileName))
		switch {
		case err == nil:
			home, herr := driver.SageHome()
			if herr != nil {
				return nil, herr
			}
			for name, pkgDir := range driver.DependencyDirs(lock, home) {
				packages[name] = pkgDir
			}
		case errors.Is(err, os.ErrNotExist):
			if len(manifest.Dependencies) > len(packages) {
				c.logger.Warn("sage.lock missing; run `sage deps install`", slog.String("manifest", manifestPath))
			}
		default:
			return nil, err
		}
		c.logger.Debug("loaded manifest", slog.String("path", manifestPath), slog.String("name", manifest.Name))
	}

	opts := driver.LoaderOptions{BaseDir: dir, Packages: packages, Logger: c.logger}
	if manifest != nil {
		opts.SearchPaths = manifest.SearchPaths
	}
	return &session{manifest: manifest, loader: driver.NewLoader(opts)}, nil
}

func (c *cli) newInterpreter(s *session) *interpreter.Interpreter {
	return interpreter.New(interpreter.Options{
		Stdout: c.stdout,
		Stderr: c.stderr,
		Stdin:  c.stdin,
		Logger: c.logger,
		Loader: s.loader,
		GC:     s.manifest.HeapConfig(),
	})
}

// runFile parses and executes one statement at a time, so output produced
// before a syntax error is kept.
func (c *cli) runFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(c.stderr, "Could not open file \"%s\".\n", path)
		return exitIO
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitIO
	}
	s, err := c.openSession(dir)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitFailure
	}
	interp := c.newInterpreter(s)

	p := parser.New(string(data))
	for {
		stmt, err := p.ParseStatement()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintln(c.stderr, err)
			return exitFailure
		}
		if _, err := interp.Execute(stmt); err != nil {
			return c.reportRuntime(interp, err)
		}
	}
	if err := interp.FlushDefers(); err != nil {
		return c.reportRuntime(interp, err)
	}
	return exitOK
}

func (c *cli) reportRuntime(interp *interpreter.Interpreter, err error) int {
	fmt.Fprintln(c.stderr, err)
	var uncaught *interpreter.UncaughtError
	if errors.As(err, &uncaught) {
		if ferr := interp.FlushDefers(); ferr != nil {
			fmt.Fprintln(c.stderr, ferr)
		}
	}
	return exitSoftware
}
