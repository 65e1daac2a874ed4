// Package catalog manages persistence for mixes, artists, and
// categories backed by SQLite.
//
// The store applies embedded migrations on open and exposes the
// operations the ingestion pipeline and reconciliation service need:
// artist get-or-create, mix creation with the stored-location
// uniqueness backstop, dedup candidate snapshots, and transactional
// batch deletion. CreateMix surfaces ErrLocationExists when a
// concurrent ingestion won the race to the same stored location; the
// orchestrator converts that into a duplicate conflict.
package catalog
