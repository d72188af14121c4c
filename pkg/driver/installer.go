package driver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultInstallConcurrency bounds parallel fetches.
const DefaultInstallConcurrency = 4

// Installer resolves every manifest dependency and produces a lockfile.
type Installer struct {
	Fetcher     Fetcher
	Concurrency int
	Tool        string
	Logger      *slog.Logger
}

// Install fetches all dependencies concurrently. The first failure cancels
// the remaining fetches.
func (in *Installer) Install(ctx context.Context, manifest *Manifest) (*Lockfile, error) {
	if manifest == nil {
		return nil, fmt.Errorf("installer: nil manifest")
	}
	if in.Fetcher == nil {
		return nil, fmt.Errorf("installer: no fetcher configured")
	}
	logger := in.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	limit := in.Concurrency
	if limit <= 0 {
		limit = DefaultInstallConcurrency
	}

	lock := NewLockfile(manifest.Name, in.Tool)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, name := range manifest.DependencyNames() {
		spec := manifest.Dependencies[name]
		g.Go(func() error {
			logger.Debug("resolving dependency", slog.String("name", name))
			pkg, err := in.Fetcher.Fetch(gctx, name, spec)
			if err != nil {
				return err
			}
			mu.Lock()
			lock.Packages = append(lock.Packages, pkg)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	lock.normalize()
	logger.Info("dependencies installed", slog.Int("count", len(lock.Packages)))
	return lock, nil
}
