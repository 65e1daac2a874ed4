package api

import "time"

// Mix is the wire form of one catalog record.
type Mix struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Artist           string    `json:"artist"`
	ArtistID         int64     `json:"artist_id"`
	Album            string    `json:"album,omitempty"`
	Genre            string    `json:"genre,omitempty"`
	ReleaseYear      int       `json:"release_year,omitempty"`
	DurationSeconds  int       `json:"duration_seconds"`
	SizeMB           float64   `json:"size_mb"`
	QualityKbps      int       `json:"quality_kbps,omitempty"`
	StorageTier      string    `json:"storage_tier"`
	StreamURL        string    `json:"stream_url"`
	CoverArtURL      string    `json:"cover_art_url,omitempty"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	PlayCount        int64     `json:"play_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// Artist is the wire form of one catalog artist.
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Category is the wire form of one catalog category.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// IngestResponse is returned by a committed upload.
type IngestResponse struct {
	Mix                Mix    `json:"mix"`
	StorageTier        string `json:"storage_tier"`
	FellBackFromRemote bool   `json:"fell_back_from_remote"`
	ArtSource          string `json:"art_source,omitempty"`
}

// DuplicateInfo describes the match that blocked an upload.
type DuplicateInfo struct {
	MatchedID  int64    `json:"matched_id"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	MatchType  string   `json:"match_type"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons,omitempty"`
}

// PreviewResponse is the dry-run outcome of an upload.
type PreviewResponse struct {
	Valid           bool           `json:"valid"`
	Reason          string         `json:"reason,omitempty"`
	Code            string         `json:"code,omitempty"`
	Title           string         `json:"title,omitempty"`
	Artist          string         `json:"artist,omitempty"`
	Album           string         `json:"album,omitempty"`
	Genre           string         `json:"genre,omitempty"`
	DurationSeconds int            `json:"duration_seconds,omitempty"`
	SizeMB          float64        `json:"size_mb,omitempty"`
	QualityKbps     int            `json:"quality_kbps,omitempty"`
	ContentHash     string         `json:"content_hash,omitempty"`
	Duplicate       *DuplicateInfo `json:"duplicate,omitempty"`
}

// Stats summarizes the catalog.
type Stats struct {
	Mixes       int64            `json:"mixes"`
	Artists     int64            `json:"artists"`
	Categories  int64            `json:"categories"`
	TotalSizeMB float64          `json:"total_size_mb"`
	TotalPlays  int64            `json:"total_plays"`
	ByTier      map[string]int64 `json:"by_tier"`
}

// Orphan is one catalog record with no backing file.
type Orphan struct {
	MixID          int64  `json:"mix_id"`
	Title          string `json:"title"`
	StoredLocation string `json:"stored_location"`
	Reason         string `json:"reason"`
}

// CleanupResult summarizes a reconciliation sweep.
type CleanupResult struct {
	Scanned int      `json:"scanned"`
	Orphans int      `json:"orphans"`
	Deleted int      `json:"deleted"`
	DryRun  bool     `json:"dry_run"`
	Reports []Orphan `json:"reports,omitempty"`
}

// LocalFileCleanup is returned by a local blob delete: how many
// catalog records pointed at the removed file and were reaped.
type LocalFileCleanup struct {
	MixID          int64 `json:"mix_id"`
	RecordsRemoved int   `json:"records_removed"`
}

// StorageHealth reports the remote tier state.
type StorageHealth struct {
	RemoteStatus string `json:"remote_status"`
	Detail       string `json:"detail,omitempty"`
}

// Health is the liveness body.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ErrorBody is the JSON error envelope every failed request carries.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the stable machine code plus a human message.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Duplicate *DuplicateInfo `json:"duplicate,omitempty"`
}
