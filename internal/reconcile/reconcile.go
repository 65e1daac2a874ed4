// Package reconcile repairs drift between the catalog and the local
// storage tier. Records whose stored location no longer resolves to a
// file are orphans; the sweep reports them and, when applied, removes
// them from the catalog as a single batch.
//
// Remote locations are never treated as orphans: the remote store is
// not enumerable from here, and a transient remote outage must not
// trigger catalog deletions.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crate/internal/catalog"
	"crate/internal/logging"
	"crate/internal/metrics"
	"crate/internal/services"
	"crate/internal/storage"
)

// OrphanReport describes one catalog record with no backing file.
type OrphanReport struct {
	MixID          int64  `json:"mix_id"`
	Title          string `json:"title"`
	StoredLocation string `json:"stored_location"`
	Reason         string `json:"reason"`
}

// CleanupResult summarizes one reconciliation pass.
type CleanupResult struct {
	Scanned int  `json:"scanned"`
	Orphans int  `json:"orphans"`
	Deleted int  `json:"deleted"`
	DryRun  bool `json:"dry_run"`
}

// RecordSource lists location-bearing catalog records and deletes
// orphaned batches.
type RecordSource interface {
	ListStoredRecords(ctx context.Context) ([]catalog.StoredRecord, error)
	DeleteMixes(ctx context.Context, ids []int64) (int64, error)
	DeleteMix(ctx context.Context, id int64) (bool, error)
}

// Service runs the orphan sweep.
type Service struct {
	records RecordSource
	local   *storage.LocalTier
	logger  *slog.Logger
}

// NewService builds the reconciliation service.
func NewService(records RecordSource, local *storage.LocalTier, logger *slog.Logger) *Service {
	return &Service{
		records: records,
		local:   local,
		logger:  logging.NewComponentLogger(logger, "reconcile"),
	}
}

// FindOrphaned scans all catalog records and returns those whose local
// file is gone. Records on the remote tier are skipped.
func (s *Service) FindOrphaned(ctx context.Context) ([]OrphanReport, error) {
	records, err := s.records.ListStoredRecords(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrReconciliation, "reconcile", "list records", "", err)
	}

	var orphans []OrphanReport
	for _, record := range records {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrReconciliation, "reconcile", "scan", "canceled", ctx.Err())
		}
		if !s.local.Owns(record.StoredLocation) {
			continue
		}
		if _, ok := s.local.Resolve(record.StoredLocation); ok {
			continue
		}
		orphans = append(orphans, OrphanReport{
			MixID:          record.ID,
			Title:          record.Title,
			StoredLocation: record.StoredLocation,
			Reason:         "no file found under the library root for this location",
		})
	}
	return orphans, nil
}

// Cleanup runs one sweep. With dryRun the catalog is left untouched and
// only the report is returned. An applied sweep deletes all orphaned
// records in one transaction: either the whole batch is removed or none
// of it is.
func (s *Service) Cleanup(ctx context.Context, dryRun bool) (CleanupResult, []OrphanReport, error) {
	started := time.Now()

	records, err := s.records.ListStoredRecords(ctx)
	if err != nil {
		return CleanupResult{}, nil, services.Wrap(services.ErrReconciliation, "reconcile", "list records", "", err)
	}

	orphans, err := s.FindOrphaned(ctx)
	if err != nil {
		return CleanupResult{}, nil, err
	}

	result := CleanupResult{
		Scanned: len(records),
		Orphans: len(orphans),
		DryRun:  dryRun,
	}

	if dryRun || len(orphans) == 0 {
		s.logger.Info("reconciliation sweep finished",
			logging.Int64("scanned", int64(result.Scanned)),
			logging.Int64("orphans", int64(result.Orphans)),
			logging.String("mode", sweepMode(dryRun)),
			logging.String("elapsed", time.Since(started).Round(time.Millisecond).String()))
		return result, orphans, nil
	}

	ids := make([]int64, 0, len(orphans))
	for _, orphan := range orphans {
		ids = append(ids, orphan.MixID)
	}
	deleted, err := s.records.DeleteMixes(ctx, ids)
	if err != nil {
		return CleanupResult{}, nil, services.Wrap(services.ErrReconciliation, "reconcile", "delete batch",
			fmt.Sprintf("%d orphans", len(ids)), err)
	}
	result.Deleted = int(deleted)
	metrics.OrphansDeleted.Add(float64(deleted))

	s.logger.Info("reconciliation sweep finished",
		logging.Int64("scanned", int64(result.Scanned)),
		logging.Int64("orphans", int64(result.Orphans)),
		logging.Int64("deleted", deleted),
		logging.String("mode", sweepMode(dryRun)),
		logging.String("elapsed", time.Since(started).Round(time.Millisecond).String()))
	return result, orphans, nil
}

// OnFileDeleted removes the catalog records pointing at a just-deleted
// library file. Called from the API when a local blob is removed out of
// band.
func (s *Service) OnFileDeleted(ctx context.Context, path string) (int, error) {
	records, err := s.records.ListStoredRecords(ctx)
	if err != nil {
		return 0, services.Wrap(services.ErrReconciliation, "reconcile", "list records", "", err)
	}

	var removed int
	for _, record := range records {
		if !s.local.Owns(record.StoredLocation) {
			continue
		}
		matches := false
		for _, candidate := range s.local.Candidates(record.StoredLocation) {
			if candidate == path {
				matches = true
				break
			}
		}
		if !matches {
			continue
		}
		// The record only counts as orphaned if no other candidate
		// path still holds the file.
		if _, ok := s.local.Resolve(record.StoredLocation); ok {
			continue
		}
		ok, err := s.records.DeleteMix(ctx, record.ID)
		if err != nil {
			return removed, services.Wrap(services.ErrReconciliation, "reconcile", "delete record",
				fmt.Sprintf("mix %d", record.ID), err)
		}
		if ok {
			removed++
			metrics.OrphansDeleted.Inc()
		}
	}
	return removed, nil
}

func sweepMode(dryRun bool) string {
	if dryRun {
		return "dry-run"
	}
	return "apply"
}
