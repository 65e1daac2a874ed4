package storage

import (
	"context"
	"log/slog"
	"time"

	"crate/internal/catalog"
	"crate/internal/logging"
	"crate/internal/services"
)

// Outcome reports where one blob ended up.
type Outcome struct {
	Tier     catalog.Tier
	Location string
	// FellBackFromRemote is true only when the remote tier was
	// configured, attempted, and failed. Deliberate local-only mode is
	// not a fallback.
	FellBackFromRemote bool
	RemoteStatus       RemoteStatus
}

// Writer persists blobs to the remote tier first and falls back to the
// local tier unless remote storage is enforced.
type Writer struct {
	remote        RemoteClient
	local         *LocalTier
	remoteTimeout time.Duration
	enforceRemote bool
	logger        *slog.Logger
}

// NewWriter builds the tiered writer.
func NewWriter(remote RemoteClient, local *LocalTier, remoteTimeout time.Duration, enforceRemote bool, logger *slog.Logger) *Writer {
	if remoteTimeout <= 0 {
		remoteTimeout = 30 * time.Second
	}
	return &Writer{
		remote:        remote,
		local:         local,
		remoteTimeout: remoteTimeout,
		enforceRemote: enforceRemote,
		logger:        logging.NewComponentLogger(logger, "storage"),
	}
}

// Write stores data under key, preferring the remote tier. The remote
// attempt is bounded by the configured timeout and made exactly once.
func (w *Writer) Write(ctx context.Context, key string, data []byte, contentType string) (Outcome, error) {
	if w.remote.Configured() {
		attemptCtx, cancel := context.WithTimeout(ctx, w.remoteTimeout)
		result := w.remote.Put(attemptCtx, key, data, contentType)
		cancel()

		if result.OK() {
			w.logger.Info("stored on remote tier",
				logging.String("key", key),
				logging.String(logging.FieldLocation, result.Location))
			return Outcome{
				Tier:         catalog.TierRemote,
				Location:     result.Location,
				RemoteStatus: result.Status,
			}, nil
		}

		w.logger.Warn("remote tier write failed",
			logging.String("key", key),
			logging.String("status", string(result.Status)),
			logging.String("detail", result.Detail))

		if w.enforceRemote {
			return Outcome{RemoteStatus: result.Status}, services.Wrap(
				services.ErrStorageUnavailable, "storage", "remote write",
				"remote tier failed with status "+string(result.Status)+" and fallback is disabled", nil)
		}

		location, err := w.local.Write(key, data)
		if err != nil {
			return Outcome{RemoteStatus: result.Status}, services.Wrap(
				services.ErrStorageUnavailable, "storage", "local write",
				"no tier accepted the blob", err)
		}
		w.logger.Info("fell back to local tier",
			logging.String("key", key),
			logging.String(logging.FieldLocation, location))
		return Outcome{
			Tier:               catalog.TierLocal,
			Location:           location,
			FellBackFromRemote: true,
			RemoteStatus:       result.Status,
		}, nil
	}

	if w.enforceRemote {
		return Outcome{RemoteStatus: RemoteNotConfigured}, services.Wrap(
			services.ErrConfiguration, "storage", "remote write",
			"remote storage enforced but not configured", nil)
	}

	location, err := w.local.Write(key, data)
	if err != nil {
		return Outcome{RemoteStatus: RemoteNotConfigured}, services.Wrap(
			services.ErrStorageUnavailable, "storage", "local write",
			"local tier rejected the blob", err)
	}
	return Outcome{
		Tier:         catalog.TierLocal,
		Location:     location,
		RemoteStatus: RemoteNotConfigured,
	}, nil
}

// Delete removes the blob behind a stored location, picking the tier
// from the location shape. Unknown or already-absent blobs are success.
func (w *Writer) Delete(ctx context.Context, location string) error {
	if location == "" {
		return nil
	}
	if w.local.Owns(location) {
		return w.local.Delete(location)
	}
	if key, ok := w.remote.KeyFor(location); ok {
		deleteCtx, cancel := context.WithTimeout(ctx, w.remoteTimeout)
		defer cancel()
		return w.remote.Delete(deleteCtx, key)
	}
	// A remote-shaped location from a bucket this deployment no longer
	// points at. Nothing to do.
	w.logger.Warn("skipping delete for unrecognized remote location",
		logging.String(logging.FieldLocation, location))
	return nil
}

// Health reports the remote tier status for the storage health
// endpoint.
func (w *Writer) Health(ctx context.Context) RemoteResult {
	if !w.remote.Configured() {
		return RemoteResult{Status: RemoteNotConfigured}
	}
	healthCtx, cancel := context.WithTimeout(ctx, w.remoteTimeout)
	defer cancel()
	return w.remote.Health(healthCtx)
}
