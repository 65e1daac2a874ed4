package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"crate/internal/api"
	"crate/internal/catalog"
	"crate/internal/dedup"
	"crate/internal/ingest"
	"crate/internal/logging"
	"crate/internal/metrics"
	"crate/internal/reconcile"
	"crate/internal/services"
	"crate/internal/storage"
)

// multipartSlack covers form fields and cover art beyond the audio
// upload ceiling.
const multipartSlack = 16 << 20

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	sub, err := s.parseSubmission(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.pipeline.Ingest(r.Context(), *sub)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, api.IngestResponse{
		Mix:                mixDTO(result.Mix),
		StorageTier:        string(result.Tier),
		FellBackFromRemote: result.FellBackFromRemote,
		ArtSource:          string(result.ArtSource),
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sub, err := s.parseSubmission(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	preview, err := s.pipeline.PreviewSubmission(r.Context(), *sub)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := api.PreviewResponse{
		Valid:  preview.Valid,
		Reason: preview.Reason,
		Code:   string(preview.Code),
	}
	if preview.Valid {
		fp := preview.Fingerprint
		resp.Title = fp.Title
		resp.Artist = fp.Artist
		resp.Album = fp.Album
		resp.Genre = fp.Genre
		resp.DurationSeconds = fp.DurationSeconds
		resp.SizeMB = fp.SizeMB()
		resp.QualityKbps = fp.QualityKbps
		resp.ContentHash = fp.ContentHash
		resp.Duplicate = duplicateInfo(preview.Duplicate)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// parseSubmission reads the multipart upload form into a pipeline
// submission. Errors are already classified for writeError.
func (s *Server) parseSubmission(w http.ResponseWriter, r *http.Request) (*ingest.Submission, error) {
	limit := s.cfg.MaxUploadBytes() + multipartSlack
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, services.Wrap(services.ErrInvalidInput, ingest.StageValidating, "file_too_large",
				"request body exceeds the upload ceiling", nil)
		}
		return nil, services.Wrap(services.ErrInvalidInput, ingest.StageValidating, "parse form", err.Error(), nil)
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, ingest.StageValidating, "missing file",
			`multipart field "file" is required`, nil)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, ingest.StageValidating, "read file", err.Error(), nil)
	}

	sub := &ingest.Submission{
		Filename: header.Filename,
		Data:     data,
		Title:    r.FormValue("title"),
		Artist:   r.FormValue("artist"),
		Album:    r.FormValue("album"),
		Genre:    r.FormValue("genre"),
	}
	if year := strings.TrimSpace(r.FormValue("year")); year != "" {
		if parsed, err := strconv.Atoi(year); err == nil {
			sub.Year = parsed
		}
	}
	if id := strings.TrimSpace(r.FormValue("category_id")); id != "" {
		if parsed, err := strconv.ParseInt(id, 10, 64); err == nil {
			sub.CategoryID = parsed
		}
	}
	if skip := r.FormValue("skip_duplicate_check"); skip == "true" || skip == "1" {
		sub.SkipDuplicateCheck = true
	}

	if art, artHeader, err := r.FormFile("cover_art"); err == nil {
		defer art.Close()
		artData, readErr := io.ReadAll(art)
		if readErr == nil && len(artData) > 0 {
			sub.CoverArt = artData
			sub.CoverArtMIME = artHeader.Header.Get("Content-Type")
		}
	}

	return sub, nil
}

func (s *Server) handleListMixes(w http.ResponseWriter, r *http.Request) {
	opts := catalog.ListOptions{}
	query := r.URL.Query()
	if v := query.Get("artist_id"); v != "" {
		opts.ArtistID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := query.Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := query.Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}

	mixes, err := s.store.ListMixes(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, mixDTOs(mixes))
}

func (s *Server) handleGetMix(w http.ResponseWriter, r *http.Request) {
	id, ok := s.mixIDParam(w, r)
	if !ok {
		return
	}
	mix, err := s.store.GetMix(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if mix == nil {
		s.writeNotFound(w, "mix", id)
		return
	}
	s.writeJSON(w, http.StatusOK, mixDTO(mix))
}

func (s *Server) handleDeleteMix(w http.ResponseWriter, r *http.Request) {
	id, ok := s.mixIDParam(w, r)
	if !ok {
		return
	}
	mix, err := s.store.GetMix(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if mix == nil {
		s.writeNotFound(w, "mix", id)
		return
	}

	// Blobs go first so a failed record delete can be retried; blob
	// deletes are idempotent.
	if err := s.writer.Delete(r.Context(), mix.StoredLocation); err != nil {
		s.writeError(w, err)
		return
	}
	if mix.CoverArtLocation != "" {
		if err := s.writer.Delete(r.Context(), mix.CoverArtLocation); err != nil {
			s.logger.Warn("cover art delete failed",
				logging.Int64(logging.FieldMixID, mix.ID),
				logging.Error(err))
		}
	}
	if _, err := s.store.DeleteMix(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, ok := s.mixIDParam(w, r)
	if !ok {
		return
	}
	mix, err := s.store.GetMix(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if mix == nil {
		s.writeNotFound(w, "mix", id)
		return
	}

	if bumped, err := s.store.IncrementPlayCount(r.Context(), id); err != nil {
		s.logger.Warn("play count increment failed",
			logging.Int64(logging.FieldMixID, id),
			logging.Error(err))
	} else if bumped {
		metrics.PlaysTotal.Inc()
	}

	http.Redirect(w, r, mix.StoredLocation, http.StatusFound)
}

func (s *Server) handleListArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := s.store.ListArtists(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]api.Artist, 0, len(artists))
	for _, artist := range artists {
		out = append(out, api.Artist{ID: artist.ID, Name: artist.Name})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleArtistMixes(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeBadRequest(w, "invalid artist id")
		return
	}
	artist, err := s.store.GetArtist(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if artist == nil {
		s.writeNotFound(w, "artist", id)
		return
	}
	mixes, err := s.store.ListMixes(r.Context(), catalog.ListOptions{ArtistID: id})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, mixDTOs(mixes))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]api.Category, 0, len(categories))
	for _, category := range categories {
		out = append(out, api.Category{ID: category.ID, Name: category.Name, Description: category.Description})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		s.writeBadRequest(w, "category name is required")
		return
	}
	category, err := s.store.EnsureCategory(r.Context(), payload.Name, payload.Description)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.Category{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
	})
}

func (s *Server) handleOrphans(w http.ResponseWriter, r *http.Request) {
	result, orphans, err := s.reconciler.Cleanup(r.Context(), true)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cleanupDTO(result, orphans))
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	dryRun := true
	if v := r.URL.Query().Get("dry_run"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			s.writeBadRequest(w, "dry_run must be true or false")
			return
		}
		dryRun = parsed
	}

	result, orphans, err := s.reconciler.Cleanup(r.Context(), dryRun)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cleanupDTO(result, orphans))
}

// handleDeleteLocalFile removes the local blob behind a mix and
// synchronously reaps the records that pointed at it, instead of
// leaving them for the next reconciliation sweep.
func (s *Server) handleDeleteLocalFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.mixIDParam(w, r)
	if !ok {
		return
	}
	mix, err := s.store.GetMix(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if mix == nil {
		s.writeNotFound(w, "mix", id)
		return
	}
	if !s.local.Owns(mix.StoredLocation) {
		s.writeBadRequest(w, "mix is stored on the remote tier")
		return
	}

	resolved, found := s.local.Resolve(mix.StoredLocation)
	if found {
		if err := s.local.Delete(mix.StoredLocation); err != nil {
			s.writeError(w, err)
			return
		}
	} else if candidates := s.local.Candidates(mix.StoredLocation); len(candidates) > 0 {
		// The blob is already gone; the hook still reaps the record.
		resolved = candidates[0]
	}
	if mix.CoverArtLocation != "" {
		if err := s.writer.Delete(r.Context(), mix.CoverArtLocation); err != nil {
			s.logger.Warn("cover art delete failed",
				logging.Int64(logging.FieldMixID, mix.ID),
				logging.Error(err))
		}
	}

	removed, err := s.reconciler.OnFileDeleted(r.Context(), resolved)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.LocalFileCleanup{MixID: id, RecordsRemoved: removed})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	metrics.CatalogMixes.Set(float64(stats.Mixes))

	byTier := make(map[string]int64, len(stats.ByTier))
	for tier, count := range stats.ByTier {
		byTier[string(tier)] = count
	}
	s.writeJSON(w, http.StatusOK, api.Stats{
		Mixes:       stats.Mixes,
		Artists:     stats.Artists,
		Categories:  stats.Categories,
		TotalSizeMB: stats.TotalSizeMB,
		TotalPlays:  stats.TotalPlays,
		ByTier:      byTier,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, api.Health{Status: "degraded", Version: Version})
		return
	}
	s.writeJSON(w, http.StatusOK, api.Health{Status: "ok", Version: Version})
}

func (s *Server) handleStorageHealth(w http.ResponseWriter, r *http.Request) {
	result := s.writer.Health(r.Context())
	status := http.StatusOK
	if !result.OK() && result.Status != storage.RemoteNotConfigured {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, api.StorageHealth{
		RemoteStatus: string(result.Status),
		Detail:       result.Detail,
	})
}

func (s *Server) mixIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeBadRequest(w, "invalid mix id")
		return 0, false
	}
	return id, true
}

func duplicateInfo(match *dedup.Match) *api.DuplicateInfo {
	if match == nil {
		return nil
	}
	return &api.DuplicateInfo{
		MatchedID:  match.MatchedID,
		Title:      match.Title,
		Artist:     match.Artist,
		MatchType:  string(match.Type),
		Confidence: match.Confidence,
		Reasons:    match.Reasons,
	}
}

func cleanupDTO(result reconcile.CleanupResult, orphans []reconcile.OrphanReport) api.CleanupResult {
	reports := make([]api.Orphan, 0, len(orphans))
	for _, orphan := range orphans {
		reports = append(reports, api.Orphan{
			MixID:          orphan.MixID,
			Title:          orphan.Title,
			StoredLocation: orphan.StoredLocation,
			Reason:         orphan.Reason,
		})
	}
	return api.CleanupResult{
		Scanned: result.Scanned,
		Orphans: result.Orphans,
		Deleted: result.Deleted,
		DryRun:  result.DryRun,
		Reports: reports,
	}
}
