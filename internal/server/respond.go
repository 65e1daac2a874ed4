package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"crate/internal/api"
	"crate/internal/catalog"
	"crate/internal/ingest"
	"crate/internal/logging"
	"crate/internal/services"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response failed", logging.Error(err))
	}
}

// writeError renders the JSON error envelope, deriving status and code
// from the pipeline error taxonomy. Duplicate conflicts carry the match
// details so clients can show what blocked the upload.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	detail := api.ErrorDetail{
		Code:    services.ErrorCode(err),
		Message: err.Error(),
	}
	var dup *ingest.DuplicateError
	if errors.As(err, &dup) {
		detail.Duplicate = duplicateInfo(&dup.Match)
	}
	s.writeJSON(w, services.HTTPStatus(err), api.ErrorBody{Error: detail})
}

func (s *Server) writeNotFound(w http.ResponseWriter, what string, id int64) {
	s.writeError(w, services.Wrap(services.ErrNotFound, "", "", fmt.Sprintf("%s %d does not exist", what, id), nil))
}

func (s *Server) writeBadRequest(w http.ResponseWriter, message string) {
	s.writeError(w, services.Wrap(services.ErrInvalidInput, "", "", message, nil))
}

func mixDTO(mix *catalog.Mix) api.Mix {
	return api.Mix{
		ID:               mix.ID,
		Title:            mix.Title,
		Artist:           mix.ArtistName,
		ArtistID:         mix.ArtistID,
		Album:            mix.Album,
		Genre:            mix.Genre,
		ReleaseYear:      mix.ReleaseYear,
		DurationSeconds:  mix.DurationSeconds,
		SizeMB:           mix.SizeMB,
		QualityKbps:      mix.QualityKbps,
		StorageTier:      string(mix.StorageTier),
		StreamURL:        fmt.Sprintf("/api/v1/mixes/%d/stream", mix.ID),
		CoverArtURL:      mix.CoverArtLocation,
		OriginalFilename: mix.OriginalFilename,
		PlayCount:        mix.PlayCount,
		CreatedAt:        mix.CreatedAt,
	}
}

func mixDTOs(mixes []*catalog.Mix) []api.Mix {
	out := make([]api.Mix, 0, len(mixes))
	for _, mix := range mixes {
		out = append(out, mixDTO(mix))
	}
	return out
}
