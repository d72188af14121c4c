package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"sage/interpreter-go/pkg/driver"
)

func (c *cli) runDeps(args []string) int {
	if len(args) == 0 || args[0] != "install" || len(args) > 2 {
		fmt.Fprintln(c.stderr, "Usage: sage deps install [dir]")
		return exitUsage
	}
	start := "."
	if len(args) == 2 {
		start = args[1]
	}
	manifestPath, err := driver.FindManifest(start)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitIO
	}
	if manifestPath == "" {
		fmt.Fprintf(c.stderr, "%s not found\n", driver.ManifestName)
		return exitFailure
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitFailure
	}
	home, err := driver.SageHome()
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	installer := &driver.Installer{
		Fetcher: driver.NewGitFetcher(home, c.logger),
		Tool:    cliToolVersion,
		Logger:  c.logger,
	}
	lock, err := installer.Install(ctx, manifest)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitFailure
	}
	lockPath := filepath.Join(manifest.Dir, driver.LockfileName)
	if err := driver.WriteLockfile(lock, lockPath); err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitIO
	}
	for _, pkg := range lock.Packages {
		fmt.Fprintf(c.stdout, "  %s %s (%s)\n", pkg.Name, pkg.Version, pkg.Source)
	}
	fmt.Fprintf(c.stdout, "Installed %d dependencies into %s\n", len(lock.Packages), lockPath)
	return exitOK
}
