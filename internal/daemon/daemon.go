// Package daemon ties the job engine, pipeline adapters, and API server into
// a single lifecycle with flock-based locking to prevent multiple instances
// from sharing one work directory.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"mixdown/internal/api"
	"mixdown/internal/config"
	"mixdown/internal/jobs"
	"mixdown/internal/logging"
	"mixdown/internal/pipeline"
	"mixdown/internal/transcache"
	"mixdown/internal/workspace"
)

// Daemon owns the long-lived service state.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store   *jobs.Store
	runner  *jobs.Runner
	janitor *workspace.Janitor
	cache   *transcache.Store
	server  *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	janitor, err := workspace.NewJanitor(cfg.Paths.WorkDir)
	if err != nil {
		return nil, err
	}

	var cache *transcache.Store
	if cfg.TranscriptCache.Enabled {
		cache, err = transcache.Open(cfg.TranscriptCache.Path)
		if err != nil {
			return nil, err
		}
	}

	store := jobs.NewStore(cfg.Limits.LogTail)
	runner := jobs.NewRunner(store, logger, time.Duration(cfg.Limits.PipelineTimeout)*time.Second)
	deps := pipeline.NewDeps(cfg, cache, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "mixdownd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		runner:   runner,
		janitor:  janitor,
		cache:    cache,
		server:   api.NewServer(cfg, store, runner, janitor, deps, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and brings up the API server and the
// background maintenance loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mixdown daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.server.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		d.sweepLoop(groupCtx)
		return nil
	})
	if d.cache != nil && d.cfg.TranscriptCache.MaxAgeDays > 0 {
		group.Go(func() error {
			d.pruneLoop(groupCtx)
			return nil
		})
	}
	go func() {
		_ = group.Wait()
	}()

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.server.Addr()))
	return nil
}

// Stop shuts down the API server, waits for in-flight jobs, and releases the
// instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	d.runner.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.cache != nil {
		return d.cache.Close()
	}
	return nil
}

// Addr returns the API listen address once started.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// sweepLoop periodically removes terminal job records that were never
// retrieved, releasing their workspaces.
func (d *Daemon) sweepLoop(ctx context.Context) {
	sweepAfter := time.Duration(d.cfg.Limits.SweepAfter) * time.Second
	if sweepAfter <= 0 {
		return
	}
	ticker := time.NewTicker(sweepAfter / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runner.Sweep(sweepAfter)
		}
	}
}

// pruneLoop ages out cached transcripts.
func (d *Daemon) pruneLoop(ctx context.Context) {
	maxAge := time.Duration(d.cfg.TranscriptCache.MaxAgeDays) * 24 * time.Hour
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed, err := d.cache.Prune(ctx, maxAge); err != nil {
				d.logger.Warn("transcript cache prune failed", logging.Error(err))
			} else if removed > 0 {
				d.logger.Info("pruned cached transcripts", logging.Int64("removed", removed))
			}
		}
	}
}
