package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/coverart"
	"crate/internal/dedup"
	"crate/internal/fingerprint"
	"crate/internal/logging"
	"crate/internal/metrics"
	"crate/internal/notifications"
	"crate/internal/services"
	"crate/internal/storage"
	"crate/internal/textutil"
	"crate/internal/validate"
)

// Pipeline stage names used for log fields and error context.
const (
	StageValidating        = "validating"
	StageFingerprinting    = "fingerprinting"
	StageDuplicateChecking = "duplicate_checking"
	StageMetadataResolving = "metadata_resolving"
	StageStorageWriting    = "storage_writing"
	StagePersisting        = "persisting"
)

// Submission is one upload handed to the pipeline. Explicit metadata
// fields override whatever the tags carry.
type Submission struct {
	Filename string
	Data     []byte

	CoverArt     []byte
	CoverArtMIME string

	Title      string
	Artist     string
	Album      string
	Genre      string
	Year       int
	CategoryID int64

	// SkipDuplicateCheck bypasses detection for deliberate re-uploads.
	// The storage key is salted so the new blob cannot collide with the
	// original's stored location.
	SkipDuplicateCheck bool
}

// Result is a committed ingestion.
type Result struct {
	Mix                *catalog.Mix
	Tier               catalog.Tier
	FellBackFromRemote bool
	ArtSource          coverart.Source
}

// Preview is the dry-run outcome for the preview endpoint: what the
// pipeline would catalog, with no side effects.
type Preview struct {
	Valid       bool
	Reason      string
	Code        validate.Code
	Fingerprint fingerprint.Fingerprint
	Duplicate   *dedup.Match
}

// DuplicateError carries the match that blocked an ingestion.
type DuplicateError struct {
	Match dedup.Match
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%v: matches mix %d (%s, confidence %.2f)",
		services.ErrDuplicateConflict, e.Match.MatchedID, e.Match.Type, e.Match.Confidence)
}

func (e *DuplicateError) Unwrap() error { return services.ErrDuplicateConflict }

// Pipeline wires the ingestion stages together.
type Pipeline struct {
	cfg       *config.Config
	store     *catalog.Store
	validator *validate.Validator
	detector  *dedup.Detector
	writer    *storage.Writer
	art       *coverart.Resolver
	notifier  notifications.Service
	logger    *slog.Logger
}

// New builds the pipeline from its collaborators.
func New(cfg *config.Config, store *catalog.Store, detector *dedup.Detector, writer *storage.Writer, art *coverart.Resolver, notifier notifications.Service, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		validator: validate.New(cfg.MaxUploadBytes()),
		detector:  detector,
		writer:    writer,
		art:       art,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "ingest"),
	}
}

func (p *Pipeline) validationMode() validate.Mode {
	if p.cfg.Ingest.FullValidation {
		return validate.ModeFull
	}
	return validate.ModeLight
}

// Ingest runs one submission through the full pipeline and commits it
// to the catalog.
func (p *Pipeline) Ingest(ctx context.Context, sub Submission) (*Result, error) {
	log := logging.WithContext(ctx, p.logger).With(logging.String("filename", sub.Filename))

	result := p.validator.Validate(sub.Data, sub.Filename, p.validationMode())
	if !result.Valid {
		metrics.IngestsTotal.WithLabelValues("invalid_input").Inc()
		log.Warn("submission rejected",
			logging.String(logging.FieldStage, StageValidating),
			logging.String("code", string(result.Code)),
			logging.String("reason", result.Reason))
		return nil, services.Wrap(services.ErrInvalidInput, StageValidating, string(result.Code), result.Reason, nil)
	}

	fp := fingerprint.Compute(sub.Data, sub.Filename)
	applyOverrides(&fp, sub)

	if !sub.SkipDuplicateCheck {
		match, err := p.detector.FindDuplicate(ctx, fp)
		if err != nil {
			metrics.IngestsTotal.WithLabelValues("error").Inc()
			return nil, services.Wrap(services.ErrPersistence, StageDuplicateChecking, "find duplicate", "", err)
		}
		if match != nil {
			metrics.IngestsTotal.WithLabelValues("duplicate").Inc()
			metrics.DuplicatesTotal.WithLabelValues(string(match.Type)).Inc()
			log.Info("duplicate rejected",
				logging.String(logging.FieldStage, StageDuplicateChecking),
				logging.Int64("matched_id", match.MatchedID),
				logging.String("match_type", string(match.Type)),
				logging.Float64("confidence", match.Confidence))
			return nil, &DuplicateError{Match: *match}
		}
	}

	artist, err := p.store.EnsureArtist(ctx, fp.Artist)
	if err != nil {
		metrics.IngestsTotal.WithLabelValues("error").Inc()
		return nil, services.Wrap(services.ErrPersistence, StageMetadataResolving, "ensure artist", fp.Artist, err)
	}

	key := p.storageKey(fp, result.Extension, sub.SkipDuplicateCheck)
	outcome, err := p.writer.Write(ctx, key, sub.Data, result.MIMEType)
	if err != nil {
		p.recordFailure(ctx, sub.Filename, err)
		return nil, err
	}
	metrics.StorageWritesTotal.WithLabelValues(string(outcome.Tier), string(outcome.RemoteStatus)).Inc()
	if outcome.FellBackFromRemote {
		p.publish(ctx, notifications.EventStorageFallback, notifications.Payload{
			"title":  fp.Title,
			"artist": fp.Artist,
			"status": string(outcome.RemoteStatus),
		})
	}

	artLocation, artSource := p.storeArtwork(ctx, sub, fp, key, log)

	mix := &catalog.Mix{
		Title:            fp.Title,
		ArtistID:         artist.ID,
		CategoryID:       sub.CategoryID,
		Album:            fp.Album,
		Genre:            fp.Genre,
		ReleaseYear:      fp.Year,
		DurationSeconds:  fp.DurationSeconds,
		SizeMB:           fp.SizeMB(),
		QualityKbps:      fp.QualityKbps,
		StoredLocation:   outcome.Location,
		StorageTier:      outcome.Tier,
		ContentHash:      fp.ContentHash,
		CoverArtLocation: artLocation,
		OriginalFilename: filepath.Base(sub.Filename),
	}

	created, err := p.store.CreateMix(ctx, mix)
	if err != nil {
		p.compensate(ctx, outcome.Location, artLocation, log)
		if errors.Is(err, catalog.ErrLocationExists) {
			// Lost the commit race to a concurrent ingestion of the
			// same key. The winner's record stands.
			metrics.IngestsTotal.WithLabelValues("duplicate").Inc()
			log.Info("lost stored-location race",
				logging.String(logging.FieldStage, StagePersisting),
				logging.String(logging.FieldLocation, outcome.Location))
			return nil, services.Wrap(services.ErrDuplicateConflict, StagePersisting, "commit",
				"an identical submission was committed concurrently", err)
		}
		p.recordFailure(ctx, sub.Filename, err)
		return nil, services.Wrap(services.ErrPersistence, StagePersisting, "create mix", "", err)
	}

	metrics.IngestsTotal.WithLabelValues("committed").Inc()
	log.Info("mix cataloged",
		logging.Int64(logging.FieldMixID, created.ID),
		logging.String(logging.FieldArtist, created.ArtistName),
		logging.String(logging.FieldTitle, created.Title),
		logging.String(logging.FieldTier, string(created.StorageTier)),
		logging.String(logging.FieldLocation, created.StoredLocation))
	p.publish(ctx, notifications.EventIngestCompleted, notifications.Payload{
		"title":  created.Title,
		"artist": created.ArtistName,
		"tier":   string(created.StorageTier),
	})

	return &Result{
		Mix:                created,
		Tier:               outcome.Tier,
		FellBackFromRemote: outcome.FellBackFromRemote,
		ArtSource:          artSource,
	}, nil
}

// PreviewSubmission runs the side-effect-free stages only. Validation
// stays light here: preview answers what would be cataloged, and the
// full container parse belongs to the committing path.
func (p *Pipeline) PreviewSubmission(ctx context.Context, sub Submission) (*Preview, error) {
	result := p.validator.Validate(sub.Data, sub.Filename, validate.ModeLight)
	if !result.Valid {
		return &Preview{Reason: result.Reason, Code: result.Code}, nil
	}

	fp := fingerprint.Compute(sub.Data, sub.Filename)
	applyOverrides(&fp, sub)

	match, err := p.detector.FindDuplicate(ctx, fp)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, StageDuplicateChecking, "find duplicate", "", err)
	}

	return &Preview{Valid: true, Fingerprint: fp, Duplicate: match}, nil
}

// storageKey derives the blob key from resolved metadata. Skipping the
// duplicate check salts the key so a deliberate re-upload of identical
// metadata cannot collide with the original record's location.
func (p *Pipeline) storageKey(fp fingerprint.Fingerprint, ext string, salted bool) string {
	stem := textutil.SanitizeFileName(fp.Artist + " - " + fp.Title)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	if salted {
		stem = stem + "-" + uuid.NewString()[:8]
	}
	return stem + ext
}

// storeArtwork resolves and persists cover art. Failures degrade to an
// uncovered mix, never a failed ingestion.
func (p *Pipeline) storeArtwork(ctx context.Context, sub Submission, fp fingerprint.Fingerprint, audioKey string, log *slog.Logger) (string, coverart.Source) {
	if p.art == nil {
		return "", ""
	}
	art, err := p.art.Resolve(ctx, sub.CoverArt, sub.CoverArtMIME, fp)
	if err != nil || art == nil {
		return "", ""
	}

	stem := strings.TrimSuffix(audioKey, filepath.Ext(audioKey))
	key := "art/" + stem + artExtension(art.MIME)
	outcome, err := p.writer.Write(ctx, key, art.Data, art.MIME)
	if err != nil {
		log.Warn("cover art write failed",
			logging.String("source", string(art.Source)),
			logging.Error(err))
		return "", ""
	}
	return outcome.Location, art.Source
}

// compensate removes blobs written before a failed commit.
func (p *Pipeline) compensate(ctx context.Context, audioLocation, artLocation string, log *slog.Logger) {
	if err := p.writer.Delete(ctx, audioLocation); err != nil {
		log.Warn("compensating audio delete failed",
			logging.String(logging.FieldLocation, audioLocation),
			logging.Error(err))
	}
	if artLocation != "" {
		if err := p.writer.Delete(ctx, artLocation); err != nil {
			log.Warn("compensating art delete failed",
				logging.String(logging.FieldLocation, artLocation),
				logging.Error(err))
		}
	}
}

func (p *Pipeline) recordFailure(ctx context.Context, filename string, err error) {
	switch {
	case errors.Is(err, services.ErrStorageUnavailable):
		metrics.IngestsTotal.WithLabelValues("storage_unavailable").Inc()
	default:
		metrics.IngestsTotal.WithLabelValues("error").Inc()
	}
	p.publish(ctx, notifications.EventIngestFailed, notifications.Payload{
		"filename": filename,
		"reason":   err.Error(),
	})
}

// publish sends a notification without letting delivery failures affect
// the pipeline.
func (p *Pipeline) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Publish(ctx, event, payload); err != nil {
		p.logger.Warn("notification delivery failed",
			logging.String("event", string(event)),
			logging.Error(err))
	}
}

// applyOverrides lets explicit submission fields win over tag values and
// fills the artist fallback for untagged uploads.
func applyOverrides(fp *fingerprint.Fingerprint, sub Submission) {
	if v := strings.TrimSpace(sub.Title); v != "" {
		fp.Title = v
	}
	if v := strings.TrimSpace(sub.Artist); v != "" {
		fp.Artist = v
	}
	if v := strings.TrimSpace(sub.Album); v != "" {
		fp.Album = v
	}
	if v := strings.TrimSpace(sub.Genre); v != "" {
		fp.Genre = v
	}
	if sub.Year > 0 {
		fp.Year = sub.Year
	}
	if strings.TrimSpace(fp.Artist) == "" {
		fp.Artist = "Unknown Artist"
	}
}

func artExtension(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
