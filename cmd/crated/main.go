// Command crated is the crate catalog daemon. It owns the catalog
// database, the tiered storage writer, and the HTTP API, and runs the
// periodic orphan reconciliation sweep.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/coverart"
	"crate/internal/dedup"
	"crate/internal/ingest"
	"crate/internal/logging"
	"crate/internal/notifications"
	"crate/internal/reconcile"
	"crate/internal/server"
	"crate/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Fatalf("crated: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, _, _, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewForDir(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return errors.New("another crated instance is already running")
	}
	defer lock.Unlock() //nolint:errcheck

	store, err := catalog.Open(cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	remote, err := storage.NewRemoteClient(cfg)
	if err != nil {
		return fmt.Errorf("configure remote storage: %w", err)
	}
	local := storage.NewLocalTier(cfg.Paths.LibraryDir, cfg.Storage.UploadPrefix)
	writer := storage.NewWriter(remote, local, cfg.RemoteTimeout(), cfg.Storage.EnforceRemote, logger)

	art, err := coverart.NewResolver(cfg, nil, logger)
	if err != nil {
		return fmt.Errorf("configure cover art: %w", err)
	}

	detector := dedup.NewDetector(store, logger)
	notifier := notifications.NewService(cfg)
	pipeline := ingest.New(cfg, store, detector, writer, art, notifier, logger)
	reconciler := reconcile.NewService(store, local, logger)

	srv := server.New(cfg, store, pipeline, writer, local, reconciler, logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	if interval := cfg.ReconcileInterval(); interval > 0 {
		go reconcileLoop(ctx, reconciler, notifier, logger, interval, !cfg.Reconcile.Apply)
	}

	logger.Info("crated running",
		logging.String("bind", srv.Addr()),
		logging.String("library_dir", cfg.Paths.LibraryDir),
		logging.Bool("remote_configured", cfg.RemoteConfigured()),
	)

	<-ctx.Done()
	logger.Info("crated shutting down")
	return nil
}

// reconcileLoop sweeps the catalog for orphaned records on a fixed
// cadence. dryRun sweeps only report; applied sweeps delete.
func reconcileLoop(ctx context.Context, reconciler *reconcile.Service, notifier notifications.Service, logger *slog.Logger, interval time.Duration, dryRun bool) {
	log := logging.NewComponentLogger(logger, "reconcile-loop")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, _, err := reconciler.Cleanup(ctx, dryRun)
			if err != nil {
				log.Error("reconcile sweep failed", logging.Error(err))
				continue
			}
			if result.Orphans == 0 {
				continue
			}
			log.Info("reconcile sweep finished",
				logging.Int("scanned", result.Scanned),
				logging.Int("orphans", result.Orphans),
				logging.Int("deleted", result.Deleted),
				logging.Bool("dry_run", result.DryRun),
			)
			payload := notifications.Payload{
				"orphans": strconv.Itoa(result.Orphans),
				"deleted": strconv.Itoa(result.Deleted),
				"applied": strconv.FormatBool(!result.DryRun),
			}
			if err := notifier.Publish(ctx, notifications.EventReconcileCompleted, payload); err != nil {
				log.Warn("reconcile notification failed", logging.Error(err))
			}
		}
	}
}
