package testsupport

import (
	"context"
	"testing"

	"crate/internal/catalog"
	"crate/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedMix inserts an artist and a mix row for tests and returns the
// stored record.
func SeedMix(t testing.TB, store *catalog.Store, mix catalog.Mix, artistName string) *catalog.Mix {
	t.Helper()

	ctx := context.Background()
	artist, err := store.EnsureArtist(ctx, artistName)
	if err != nil {
		t.Fatalf("EnsureArtist: %v", err)
	}
	mix.ArtistID = artist.ID
	created, err := store.CreateMix(ctx, &mix)
	if err != nil {
		t.Fatalf("CreateMix: %v", err)
	}
	return created
}
