package reconcile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"crate/internal/catalog"
	"crate/internal/logging"
	"crate/internal/reconcile"
	"crate/internal/storage"
	"crate/internal/testsupport"
)

func newFixture(t *testing.T) (*catalog.Store, *storage.LocalTier, *reconcile.Service) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	local := storage.NewLocalTier(cfg.Paths.LibraryDir, cfg.Storage.UploadPrefix)
	return store, local, reconcile.NewService(store, local, logging.NewNop())
}

func seedLocalMix(t *testing.T, store *catalog.Store, local *storage.LocalTier, title, content string) *catalog.Mix {
	t.Helper()
	location, err := local.Write(title+".mp3", []byte(content))
	if err != nil {
		t.Fatalf("local write: %v", err)
	}
	return testsupport.SeedMix(t, store, catalog.Mix{
		Title:          title,
		StoredLocation: location,
		StorageTier:    catalog.TierLocal,
		ContentHash:    "hash-" + title,
	}, "Calvin Fallo")
}

func TestFindOrphanedReportsMissingLocalFiles(t *testing.T) {
	store, local, svc := newFixture(t)

	healthy := seedLocalMix(t, store, local, "healthy", "a")
	orphan := seedLocalMix(t, store, local, "orphan", "b")

	// Records on the remote tier are never orphans, resolvable or not.
	testsupport.SeedMix(t, store, catalog.Mix{
		Title:          "remote",
		StoredLocation: "https://cdn.example.com/bucket/remote.mp3",
		StorageTier:    catalog.TierRemote,
		ContentHash:    "hash-remote",
	}, "DJ Zinhle")

	resolved, ok := local.Resolve(orphan.StoredLocation)
	if !ok {
		t.Fatal("seeded orphan location does not resolve")
	}
	if err := os.Remove(resolved); err != nil {
		t.Fatalf("remove blob: %v", err)
	}

	orphans, err := svc.FindOrphaned(context.Background())
	if err != nil {
		t.Fatalf("FindOrphaned: %v", err)
	}
	if len(orphans) != 1 {
		t.Fatalf("orphans = %d, want 1", len(orphans))
	}
	if orphans[0].MixID != orphan.ID {
		t.Fatalf("orphan id = %d, want %d", orphans[0].MixID, orphan.ID)
	}
	if orphans[0].MixID == healthy.ID {
		t.Fatal("healthy record reported as orphan")
	}
}

func TestFindOrphanedKeepsAbsoluteLegacyLocations(t *testing.T) {
	store, _, svc := newFixture(t)

	// A record whose stored location is an absolute path outside the
	// library root is healthy as long as that file exists.
	legacy := filepath.Join(t.TempDir(), "legacy.mp3")
	if err := os.WriteFile(legacy, []byte("a"), 0o644); err != nil {
		t.Fatalf("seed blob: %v", err)
	}
	testsupport.SeedMix(t, store, catalog.Mix{
		Title:          "legacy",
		StoredLocation: legacy,
		StorageTier:    catalog.TierLocal,
		ContentHash:    "hash-legacy",
	}, "Calvin Fallo")

	orphans, err := svc.FindOrphaned(context.Background())
	if err != nil {
		t.Fatalf("FindOrphaned: %v", err)
	}
	if len(orphans) != 0 {
		t.Fatalf("orphans = %+v, want none", orphans)
	}
}

func TestCleanupDryRunLeavesCatalogIntact(t *testing.T) {
	store, local, svc := newFixture(t)
	orphan := seedLocalMix(t, store, local, "gone", "x")
	resolved, _ := local.Resolve(orphan.StoredLocation)
	if err := os.Remove(resolved); err != nil {
		t.Fatalf("remove blob: %v", err)
	}

	result, orphans, err := svc.Cleanup(context.Background(), true)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if !result.DryRun || result.Deleted != 0 {
		t.Fatalf("result = %+v", result)
	}
	if result.Orphans != 1 || len(orphans) != 1 {
		t.Fatalf("orphans = %d / %d, want 1", result.Orphans, len(orphans))
	}

	got, err := store.GetMix(context.Background(), orphan.ID)
	if err != nil {
		t.Fatalf("GetMix: %v", err)
	}
	if got == nil {
		t.Fatal("dry run must not delete records")
	}
}

func TestCleanupAppliedDeletesBatch(t *testing.T) {
	store, local, svc := newFixture(t)

	kept := seedLocalMix(t, store, local, "kept", "a")
	first := seedLocalMix(t, store, local, "first", "b")
	second := seedLocalMix(t, store, local, "second", "c")
	for _, orphan := range []*catalog.Mix{first, second} {
		resolved, _ := local.Resolve(orphan.StoredLocation)
		if err := os.Remove(resolved); err != nil {
			t.Fatalf("remove blob: %v", err)
		}
	}

	result, _, err := svc.Cleanup(context.Background(), false)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if result.Deleted != 2 {
		t.Fatalf("deleted = %d, want 2", result.Deleted)
	}

	got, err := store.GetMix(context.Background(), kept.ID)
	if err != nil {
		t.Fatalf("GetMix: %v", err)
	}
	if got == nil {
		t.Fatal("kept record deleted")
	}
	for _, orphan := range []*catalog.Mix{first, second} {
		got, err := store.GetMix(context.Background(), orphan.ID)
		if err != nil {
			t.Fatalf("GetMix: %v", err)
		}
		if got != nil {
			t.Fatalf("orphan %d still present after applied sweep", orphan.ID)
		}
	}
}

func TestOnFileDeletedRemovesMatchingRecord(t *testing.T) {
	store, local, svc := newFixture(t)
	mix := seedLocalMix(t, store, local, "removed-out-of-band", "a")

	resolved, _ := local.Resolve(mix.StoredLocation)
	if err := os.Remove(resolved); err != nil {
		t.Fatalf("remove blob: %v", err)
	}

	removed, err := svc.OnFileDeleted(context.Background(), resolved)
	if err != nil {
		t.Fatalf("OnFileDeleted: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	got, err := store.GetMix(context.Background(), mix.ID)
	if err != nil {
		t.Fatalf("GetMix: %v", err)
	}
	if got != nil {
		t.Fatal("record still present after file deletion hook")
	}
}

func TestOnFileDeletedIgnoresUnrelatedPaths(t *testing.T) {
	store, local, svc := newFixture(t)
	mix := seedLocalMix(t, store, local, "still-here", "a")

	removed, err := svc.OnFileDeleted(context.Background(), filepath.Join(local.Root(), "unrelated.mp3"))
	if err != nil {
		t.Fatalf("OnFileDeleted: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	got, err := store.GetMix(context.Background(), mix.ID)
	if err != nil {
		t.Fatalf("GetMix: %v", err)
	}
	if got == nil {
		t.Fatal("record lost")
	}
}
