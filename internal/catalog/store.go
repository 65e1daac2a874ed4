package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"crate/internal/config"
)

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Open initializes or connects to the catalog database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureArtist returns the artist with the given name, creating it when
// absent. Concurrent creation of the same name is resolved through the
// unique constraint: the loser of the insert race re-reads the winner's
// row.
func (s *Store) EnsureArtist(ctx context.Context, name string) (*Artist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("artist name required")
	}

	if artist, err := s.artistByName(ctx, name); err != nil {
		return nil, err
	} else if artist != nil {
		return artist, nil
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO artists (name, created_at) VALUES (?, ?)`,
		name, timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if artist, lookupErr := s.artistByName(ctx, name); lookupErr == nil && artist != nil {
				return artist, nil
			}
		}
		return nil, fmt.Errorf("insert artist: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetArtist(ctx, id)
}

func (s *Store) artistByName(ctx context.Context, name string) (*Artist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM artists WHERE name = ?`, name)
	artist, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query artist by name: %w", err)
	}
	return artist, nil
}

// GetArtist loads one artist by ID.
func (s *Store) GetArtist(ctx context.Context, id int64) (*Artist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM artists WHERE id = ?`, id)
	artist, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query artist: %w", err)
	}
	return artist, nil
}

// ListArtists returns all artists ordered by name.
func (s *Store) ListArtists(ctx context.Context) ([]*Artist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM artists ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("query artists: %w", err)
	}
	defer rows.Close()

	var artists []*Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		artists = append(artists, artist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artists: %w", err)
	}
	return artists, nil
}

// EnsureCategory returns the category with the given name, creating it
// when absent.
func (s *Store) EnsureCategory(ctx context.Context, name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("category name required")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(description, '') FROM categories WHERE name = ?`, name)
	category := &Category{}
	err := row.Scan(&category.ID, &category.Name, &category.Description)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query category: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, description) VALUES (?, ?)`,
		name, nullableString(description),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return s.EnsureCategory(ctx, name, description)
		}
		return nil, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Category{ID: id, Name: name, Description: strings.TrimSpace(description)}, nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]*Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, '') FROM categories ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		category := &Category{}
		if err := rows.Scan(&category.ID, &category.Name, &category.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// CreateMix persists a new mix row and returns the stored record. A
// stored-location collision returns ErrLocationExists so callers can
// treat it as a duplicate conflict.
func (s *Store) CreateMix(ctx context.Context, mix *Mix) (*Mix, error) {
	if mix == nil {
		return nil, errors.New("mix required")
	}
	if strings.TrimSpace(mix.Title) == "" {
		return nil, errors.New("mix title required")
	}
	if mix.ArtistID == 0 {
		return nil, errors.New("mix artist required")
	}
	if strings.TrimSpace(mix.StoredLocation) == "" {
		return nil, errors.New("mix stored location required")
	}
	if strings.TrimSpace(mix.ContentHash) == "" {
		return nil, errors.New("mix content hash required")
	}

	tier := mix.StorageTier
	if tier == "" {
		tier = TierLocal
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mixes (
            title, artist_id, category_id, album, genre, release_year,
            duration_seconds, size_mb, quality_kbps, stored_location,
            storage_tier, content_hash, cover_art_location,
            original_filename, play_count, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mix.Title,
		mix.ArtistID,
		nullableID(mix.CategoryID),
		nullableString(mix.Album),
		nullableString(mix.Genre),
		nullableInt(mix.ReleaseYear),
		mix.DurationSeconds,
		mix.SizeMB,
		mix.QualityKbps,
		mix.StoredLocation,
		string(tier),
		mix.ContentHash,
		nullableString(mix.CoverArtLocation),
		nullableString(mix.OriginalFilename),
		mix.PlayCount,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrLocationExists, mix.StoredLocation)
		}
		return nil, fmt.Errorf("insert mix: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetMix(ctx, id)
}

const mixColumns = `m.id, m.title, m.artist_id, a.name, m.category_id, m.album,
        m.genre, m.release_year, m.duration_seconds, m.size_mb, m.quality_kbps,
        m.stored_location, m.storage_tier, m.content_hash, m.cover_art_location,
        m.original_filename, m.play_count, m.created_at`

// GetMix loads one mix with its artist name joined in.
func (s *Store) GetMix(ctx context.Context, id int64) (*Mix, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mixColumns+` FROM mixes m JOIN artists a ON a.id = m.artist_id WHERE m.id = ?`, id)
	mix, err := scanMix(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query mix: %w", err)
	}
	return mix, nil
}

// ListOptions narrows and pages ListMixes results.
type ListOptions struct {
	ArtistID int64
	Limit    int
	Offset   int
}

// ListMixes returns mixes newest first.
func (s *Store) ListMixes(ctx context.Context, opts ListOptions) ([]*Mix, error) {
	q := builder.
		Select(strings.Split(mixColumns, ",")...).
		From("mixes m").
		Join("artists a ON a.id = m.artist_id").
		OrderBy("m.created_at DESC", "m.id DESC")
	if opts.ArtistID > 0 {
		q = q.Where(sq.Eq{"m.artist_id": opts.ArtistID})
	}
	if opts.Limit > 0 {
		q = q.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Offset(uint64(opts.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build mix query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mixes: %w", err)
	}
	defer rows.Close()

	var mixes []*Mix
	for rows.Next() {
		mix, err := scanMix(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mix: %w", err)
		}
		mixes = append(mixes, mix)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mixes: %w", err)
	}
	return mixes, nil
}

// DeleteMix removes one mix row. Returns false when no row existed.
func (s *Store) DeleteMix(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mixes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete mix: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteMixes removes the given rows in a single transaction. Either
// every row is deleted or none are.
func (s *Store) DeleteMixes(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := builder.Delete("mixes").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete query: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete mixes: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return affected, nil
}

// ListDedupCandidates snapshots the fields the duplicate detector
// compares against.
func (s *Store) ListDedupCandidates(ctx context.Context) ([]DedupCandidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.title, a.name, COALESCE(m.album, ''), m.duration_seconds,
                m.size_mb, m.content_hash
         FROM mixes m JOIN artists a ON a.id = m.artist_id`)
	if err != nil {
		return nil, fmt.Errorf("query dedup candidates: %w", err)
	}
	defer rows.Close()

	var candidates []DedupCandidate
	for rows.Next() {
		var c DedupCandidate
		if err := rows.Scan(&c.ID, &c.Title, &c.ArtistName, &c.Album, &c.DurationSeconds, &c.SizeMB, &c.ContentHash); err != nil {
			return nil, fmt.Errorf("scan dedup candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dedup candidates: %w", err)
	}
	return candidates, nil
}

// ListStoredRecords snapshots every mix's stored location for
// reconciliation.
func (s *Store) ListStoredRecords(ctx context.Context) ([]StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, stored_location, storage_tier FROM mixes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query stored records: %w", err)
	}
	defer rows.Close()

	var records []StoredRecord
	for rows.Next() {
		var r StoredRecord
		var tier string
		if err := rows.Scan(&r.ID, &r.Title, &r.StoredLocation, &tier); err != nil {
			return nil, fmt.Errorf("scan stored record: %w", err)
		}
		r.StorageTier = Tier(tier)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stored records: %w", err)
	}
	return records, nil
}

// IncrementPlayCount bumps a mix's play counter. Returns false when the
// mix does not exist.
func (s *Store) IncrementPlayCount(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mixes SET play_count = play_count + 1 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("increment play count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats summarizes catalog contents.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByTier: map[Tier]int64{}}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(size_mb), 0), COALESCE(SUM(play_count), 0) FROM mixes`)
	if err := row.Scan(&stats.Mixes, &stats.TotalSizeMB, &stats.TotalPlays); err != nil {
		return Stats{}, fmt.Errorf("scan mix stats: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM artists`).Scan(&stats.Artists); err != nil {
		return Stats{}, fmt.Errorf("scan artist count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM categories`).Scan(&stats.Categories); err != nil {
		return Stats{}, fmt.Errorf("scan category count: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT storage_tier, COUNT(1) FROM mixes GROUP BY storage_tier`)
	if err != nil {
		return Stats{}, fmt.Errorf("query tier counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tier string
		var count int64
		if err := rows.Scan(&tier, &count); err != nil {
			return Stats{}, fmt.Errorf("scan tier count: %w", err)
		}
		stats.ByTier[Tier(tier)] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate tier counts: %w", err)
	}
	return stats, nil
}

func scanArtist(scanner interface{ Scan(dest ...any) error }) (*Artist, error) {
	var (
		artist     Artist
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&artist.ID, &artist.Name, &createdRaw); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		artist.CreatedAt = created
	}
	return &artist, nil
}

func scanMix(scanner interface{ Scan(dest ...any) error }) (*Mix, error) {
	var (
		mix              Mix
		categoryID       sql.NullInt64
		album            sql.NullString
		genre            sql.NullString
		releaseYear      sql.NullInt64
		tier             string
		coverArtLocation sql.NullString
		originalFilename sql.NullString
		createdRaw       sql.NullString
	)

	if err := scanner.Scan(
		&mix.ID,
		&mix.Title,
		&mix.ArtistID,
		&mix.ArtistName,
		&categoryID,
		&album,
		&genre,
		&releaseYear,
		&mix.DurationSeconds,
		&mix.SizeMB,
		&mix.QualityKbps,
		&mix.StoredLocation,
		&tier,
		&mix.ContentHash,
		&coverArtLocation,
		&originalFilename,
		&mix.PlayCount,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	mix.CategoryID = categoryID.Int64
	mix.Album = album.String
	mix.Genre = genre.String
	mix.ReleaseYear = int(releaseYear.Int64)
	mix.StorageTier = Tier(tier)
	mix.CoverArtLocation = coverArtLocation.String
	mix.OriginalFilename = originalFilename.String
	if created, err := parseTimeString(createdRaw.String); err == nil {
		mix.CreatedAt = created
	}
	return &mix, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableID(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
