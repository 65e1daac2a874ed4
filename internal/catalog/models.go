package catalog

import "time"

// Tier identifies which storage backend holds a mix's audio bytes.
type Tier string

const (
	TierRemote Tier = "remote"
	TierLocal  Tier = "local"
)

// Artist is a catalog artist row.
type Artist struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Category is a catalog category row.
type Category struct {
	ID          int64
	Name        string
	Description string
}

// Mix is a committed catalog record referencing one stored audio blob.
// StoredLocation is unique across all records; that constraint is the
// backstop against concurrent ingestions racing to the same key.
type Mix struct {
	ID               int64
	Title            string
	ArtistID         int64
	ArtistName       string
	CategoryID       int64
	Album            string
	Genre            string
	ReleaseYear      int
	DurationSeconds  int
	SizeMB           float64
	QualityKbps      int
	StoredLocation   string
	StorageTier      Tier
	ContentHash      string
	CoverArtLocation string
	OriginalFilename string
	PlayCount        int64
	CreatedAt        time.Time
}

// DedupCandidate carries the comparable fields the duplicate detector
// scores a submission against.
type DedupCandidate struct {
	ID              int64
	Title           string
	ArtistName      string
	Album           string
	DurationSeconds int
	SizeMB          float64
	ContentHash     string
}

// StoredRecord carries the location-bearing fields the reconciliation
// service resolves against the filesystem.
type StoredRecord struct {
	ID             int64
	Title          string
	StoredLocation string
	StorageTier    Tier
}

// Stats summarizes catalog contents for the stats endpoint and CLI.
type Stats struct {
	Mixes       int64
	Artists     int64
	Categories  int64
	TotalSizeMB float64
	TotalPlays  int64
	ByTier      map[Tier]int64
}
