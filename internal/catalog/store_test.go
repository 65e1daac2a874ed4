package catalog_test

import (
	"context"
	"errors"
	"testing"

	"crate/internal/catalog"
	"crate/internal/testsupport"
)

func newStore(t *testing.T) *catalog.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

func baseMix(location string) catalog.Mix {
	return catalog.Mix{
		Title:           "Deep Sessions Vol 3",
		DurationSeconds: 3785,
		SizeMB:          84.2,
		QualityKbps:     320,
		StoredLocation:  location,
		StorageTier:     catalog.TierLocal,
		ContentHash:     "hash-" + location,
	}
}

func TestEnsureArtistIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first, err := store.EnsureArtist(ctx, "Calvin Fallo")
	if err != nil {
		t.Fatalf("EnsureArtist: %v", err)
	}
	second, err := store.EnsureArtist(ctx, "Calvin Fallo")
	if err != nil {
		t.Fatalf("EnsureArtist again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same artist row, got %d and %d", first.ID, second.ID)
	}

	artists, err := store.ListArtists(ctx)
	if err != nil {
		t.Fatalf("ListArtists: %v", err)
	}
	if len(artists) != 1 {
		t.Fatalf("expected 1 artist, got %d", len(artists))
	}
}

func TestEnsureArtistRequiresName(t *testing.T) {
	store := newStore(t)
	if _, err := store.EnsureArtist(context.Background(), "   "); err == nil {
		t.Fatal("expected blank artist name to be rejected")
	}
}

func TestCreateMixRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	mix := baseMix("/uploads/deep-sessions.mp3")
	mix.Album = "Winter Mixes"
	mix.Genre = "Amapiano"
	mix.ReleaseYear = 2024
	mix.OriginalFilename = "deep sessions vol 3.mp3"
	created := testsupport.SeedMix(t, store, mix, "Calvin Fallo")

	got, err := store.GetMix(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetMix: %v", err)
	}
	if got == nil {
		t.Fatal("expected mix to exist")
	}
	if got.ArtistName != "Calvin Fallo" {
		t.Fatalf("expected joined artist name, got %q", got.ArtistName)
	}
	if got.Album != "Winter Mixes" || got.Genre != "Amapiano" || got.ReleaseYear != 2024 {
		t.Fatalf("metadata fields did not round-trip: %+v", got)
	}
	if got.StorageTier != catalog.TierLocal {
		t.Fatalf("expected local tier, got %q", got.StorageTier)
	}
	if got.PlayCount != 0 {
		t.Fatalf("expected zero plays on a new mix, got %d", got.PlayCount)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be populated")
	}
}

func TestGetMixMissingReturnsNil(t *testing.T) {
	store := newStore(t)

	got, err := store.GetMix(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetMix: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a missing mix, got %+v", got)
	}
}

func TestCreateMixLocationConflict(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	testsupport.SeedMix(t, store, baseMix("/uploads/same.mp3"), "Calvin Fallo")

	artist, err := store.EnsureArtist(ctx, "DJ Stokie")
	if err != nil {
		t.Fatalf("EnsureArtist: %v", err)
	}
	duplicate := baseMix("/uploads/same.mp3")
	duplicate.Title = "Another Mix"
	duplicate.ContentHash = "different-hash"
	duplicate.ArtistID = artist.ID

	if _, err := store.CreateMix(ctx, &duplicate); !errors.Is(err, catalog.ErrLocationExists) {
		t.Fatalf("expected ErrLocationExists, got %v", err)
	}
}

func TestListMixesFilterAndPaging(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	testsupport.SeedMix(t, store, baseMix("/uploads/a.mp3"), "Calvin Fallo")
	testsupport.SeedMix(t, store, baseMix("/uploads/b.mp3"), "Calvin Fallo")
	testsupport.SeedMix(t, store, baseMix("/uploads/c.mp3"), "DJ Stokie")

	all, err := store.ListMixes(ctx, catalog.ListOptions{})
	if err != nil {
		t.Fatalf("ListMixes: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 mixes, got %d", len(all))
	}
	// Newest first: the last insert leads.
	if all[0].StoredLocation != "/uploads/c.mp3" {
		t.Fatalf("expected newest mix first, got %q", all[0].StoredLocation)
	}

	artist, err := store.EnsureArtist(ctx, "Calvin Fallo")
	if err != nil {
		t.Fatalf("EnsureArtist: %v", err)
	}
	filtered, err := store.ListMixes(ctx, catalog.ListOptions{ArtistID: artist.ID})
	if err != nil {
		t.Fatalf("ListMixes filtered: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 mixes for artist, got %d", len(filtered))
	}

	paged, err := store.ListMixes(ctx, catalog.ListOptions{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListMixes paged: %v", err)
	}
	if len(paged) != 1 || paged[0].StoredLocation != "/uploads/b.mp3" {
		t.Fatalf("unexpected page contents: %+v", paged)
	}
}

func TestDeleteMixes(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first := testsupport.SeedMix(t, store, baseMix("/uploads/a.mp3"), "Calvin Fallo")
	second := testsupport.SeedMix(t, store, baseMix("/uploads/b.mp3"), "Calvin Fallo")
	keeper := testsupport.SeedMix(t, store, baseMix("/uploads/c.mp3"), "DJ Stokie")

	deleted, err := store.DeleteMixes(ctx, []int64{first.ID, second.ID})
	if err != nil {
		t.Fatalf("DeleteMixes: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deletions, got %d", deleted)
	}

	if got, err := store.GetMix(ctx, keeper.ID); err != nil || got == nil {
		t.Fatalf("expected surviving mix, got %v err=%v", got, err)
	}

	ok, err := store.DeleteMix(ctx, keeper.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteMix: ok=%v err=%v", ok, err)
	}
	ok, err = store.DeleteMix(ctx, keeper.ID)
	if err != nil {
		t.Fatalf("DeleteMix repeat: %v", err)
	}
	if ok {
		t.Fatal("expected second delete to report no rows")
	}
}

func TestIncrementPlayCount(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	mix := testsupport.SeedMix(t, store, baseMix("/uploads/a.mp3"), "Calvin Fallo")

	for i := 0; i < 3; i++ {
		ok, err := store.IncrementPlayCount(ctx, mix.ID)
		if err != nil || !ok {
			t.Fatalf("IncrementPlayCount: ok=%v err=%v", ok, err)
		}
	}
	got, err := store.GetMix(ctx, mix.ID)
	if err != nil || got == nil {
		t.Fatalf("GetMix: %v", err)
	}
	if got.PlayCount != 3 {
		t.Fatalf("expected 3 plays, got %d", got.PlayCount)
	}

	ok, err := store.IncrementPlayCount(ctx, 9999)
	if err != nil {
		t.Fatalf("IncrementPlayCount missing: %v", err)
	}
	if ok {
		t.Fatal("expected missing mix to report false")
	}
}

func TestStatsAndCategories(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	localMix := baseMix("/uploads/a.mp3")
	testsupport.SeedMix(t, store, localMix, "Calvin Fallo")

	remoteMix := baseMix("https://cdn.example.com/bucket/b.mp3")
	remoteMix.StorageTier = catalog.TierRemote
	testsupport.SeedMix(t, store, remoteMix, "DJ Stokie")

	if _, err := store.EnsureCategory(ctx, "Amapiano", "South African house"); err != nil {
		t.Fatalf("EnsureCategory: %v", err)
	}
	// Ensure is idempotent on the name.
	again, err := store.EnsureCategory(ctx, "Amapiano", "ignored")
	if err != nil {
		t.Fatalf("EnsureCategory again: %v", err)
	}
	if again.Description != "South African house" {
		t.Fatalf("expected original description, got %q", again.Description)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Mixes != 2 || stats.Artists != 2 || stats.Categories != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.ByTier[catalog.TierLocal] != 1 || stats.ByTier[catalog.TierRemote] != 1 {
		t.Fatalf("unexpected tier counts: %+v", stats.ByTier)
	}
	if stats.TotalSizeMB < 168 || stats.TotalSizeMB > 169 {
		t.Fatalf("unexpected total size: %f", stats.TotalSizeMB)
	}
}

func TestDedupCandidatesSnapshot(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	mix := baseMix("/uploads/a.mp3")
	mix.Album = "Winter Mixes"
	testsupport.SeedMix(t, store, mix, "Calvin Fallo")

	candidates, err := store.ListDedupCandidates(ctx)
	if err != nil {
		t.Fatalf("ListDedupCandidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	c := candidates[0]
	if c.Title != "Deep Sessions Vol 3" || c.ArtistName != "Calvin Fallo" || c.Album != "Winter Mixes" {
		t.Fatalf("unexpected candidate: %+v", c)
	}
	if c.ContentHash != "hash-/uploads/a.mp3" {
		t.Fatalf("unexpected hash: %q", c.ContentHash)
	}
}
