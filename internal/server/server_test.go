package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"crate/internal/api"
	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/coverart"
	"crate/internal/dedup"
	"crate/internal/ingest"
	"crate/internal/logging"
	"crate/internal/reconcile"
	"crate/internal/server"
	"crate/internal/storage"
	"crate/internal/testsupport"
)

type harness struct {
	cfg    *config.Config
	store  *catalog.Store
	local  *storage.LocalTier
	client *api.Client
	http   *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Ingest.FullValidation = true

	store := testsupport.MustOpenStore(t, cfg)
	local := storage.NewLocalTier(cfg.Paths.LibraryDir, cfg.Storage.UploadPrefix)
	remote, err := storage.NewRemoteClient(cfg)
	if err != nil {
		t.Fatalf("NewRemoteClient: %v", err)
	}
	writer := storage.NewWriter(remote, local, time.Second, cfg.Storage.EnforceRemote, logging.NewNop())
	detector := dedup.NewDetector(store, logging.NewNop())
	art, err := coverart.NewResolver(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	pipeline := ingest.New(cfg, store, detector, writer, art, nil, logging.NewNop())
	reconciler := reconcile.NewService(store, local, logging.NewNop())

	srv := server.New(cfg, store, pipeline, writer, local, reconciler, logging.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &harness{
		cfg:    cfg,
		store:  store,
		local:  local,
		client: api.NewClient(ts.URL),
		http:   ts,
	}
}

func writeUpload(t *testing.T, spec testsupport.AudioSpec) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.mp3")
	if err := os.WriteFile(path, testsupport.MP3(t, spec), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}
	return path
}

func TestIngestEndpointHappyPath(t *testing.T) {
	h := newHarness(t)
	path := writeUpload(t, testsupport.AudioSpec{
		Title:           "Ithemba",
		Artist:          "Calvin Fallo",
		Genre:           "Gqom",
		DurationSeconds: 120,
	})

	resp, err := h.client.Ingest(context.Background(), path, api.IngestOptions{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if resp.Mix.Title != "Ithemba" || resp.Mix.Artist != "Calvin Fallo" {
		t.Fatalf("mix = %+v", resp.Mix)
	}
	if resp.StorageTier != string(catalog.TierLocal) {
		t.Fatalf("tier = %q", resp.StorageTier)
	}
	if resp.FellBackFromRemote {
		t.Fatal("local-only mode reported as fallback")
	}
	if resp.Mix.StreamURL == "" {
		t.Fatal("stream URL missing")
	}

	fetched, err := h.client.GetMix(context.Background(), resp.Mix.ID)
	if err != nil {
		t.Fatalf("GetMix: %v", err)
	}
	if fetched.Title != "Ithemba" {
		t.Fatalf("fetched title = %q", fetched.Title)
	}
}

func TestIngestEndpointRejectsCorrupted(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "broken.mp3")
	if err := os.WriteFile(path, testsupport.RandomBytes(t, 2048), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}

	_, err := h.client.Ingest(context.Background(), path, api.IngestOptions{})
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", apiErr.Status)
	}
	if apiErr.Code != "invalid_input" {
		t.Fatalf("code = %q", apiErr.Code)
	}
}

func TestIngestEndpointDuplicateConflict(t *testing.T) {
	h := newHarness(t)
	path := writeUpload(t, testsupport.AudioSpec{
		Title:           "Ithemba",
		Artist:          "Calvin Fallo",
		DurationSeconds: 60,
	})

	if _, err := h.client.Ingest(context.Background(), path, api.IngestOptions{}); err != nil {
		t.Fatalf("first Ingest: %v", err)
	}

	_, err := h.client.Ingest(context.Background(), path, api.IngestOptions{})
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusConflict {
		t.Fatalf("status = %d, want 409", apiErr.Status)
	}
	if apiErr.Code != "duplicate_conflict" {
		t.Fatalf("code = %q", apiErr.Code)
	}
	if apiErr.Duplicate == nil || apiErr.Duplicate.MatchType != string(dedup.MatchExactContent) {
		t.Fatalf("duplicate detail = %+v", apiErr.Duplicate)
	}

	// A deliberate re-upload with the check skipped goes through.
	resp, err := h.client.Ingest(context.Background(), path, api.IngestOptions{SkipDuplicateCheck: true})
	if err != nil {
		t.Fatalf("skip-check Ingest: %v", err)
	}
	if resp.Mix.ID == apiErr.Duplicate.MatchedID {
		t.Fatal("skip-check upload reused the original record")
	}
}

func TestPreviewEndpoint(t *testing.T) {
	h := newHarness(t)
	path := writeUpload(t, testsupport.AudioSpec{
		Title:           "Umlilo",
		Artist:          "DJ Zinhle",
		DurationSeconds: 90,
	})

	preview, err := h.client.Preview(context.Background(), path, api.IngestOptions{})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !preview.Valid {
		t.Fatalf("preview invalid: %s", preview.Reason)
	}
	if preview.Title != "Umlilo" || preview.Artist != "DJ Zinhle" {
		t.Fatalf("preview metadata = %q / %q", preview.Title, preview.Artist)
	}
	if preview.Duplicate != nil {
		t.Fatalf("unexpected duplicate: %+v", preview.Duplicate)
	}

	stats, err := h.client.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Mixes != 0 {
		t.Fatalf("preview committed a record: %+v", stats)
	}
}

func TestStreamRedirectBumpsPlayCount(t *testing.T) {
	h := newHarness(t)
	path := writeUpload(t, testsupport.AudioSpec{
		Title:           "Ithemba",
		Artist:          "Calvin Fallo",
		DurationSeconds: 60,
	})
	resp, err := h.client.Ingest(context.Background(), path, api.IngestOptions{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	httpClient := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	streamURL := h.http.URL + resp.Mix.StreamURL
	redirect, err := httpClient.Get(streamURL)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer redirect.Body.Close()
	if redirect.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", redirect.StatusCode)
	}
	location := redirect.Header.Get("Location")
	if location == "" {
		t.Fatal("redirect location missing")
	}

	// The local location is served by the uploads file server.
	blob, err := http.Get(h.http.URL + location)
	if err != nil {
		t.Fatalf("fetch blob: %v", err)
	}
	defer blob.Body.Close()
	if blob.StatusCode != http.StatusOK {
		t.Fatalf("blob status = %d", blob.StatusCode)
	}

	fetched, err := h.client.GetMix(context.Background(), resp.Mix.ID)
	if err != nil {
		t.Fatalf("GetMix: %v", err)
	}
	if fetched.PlayCount != 1 {
		t.Fatalf("play count = %d, want 1", fetched.PlayCount)
	}
}

func TestDeleteMixRemovesBlobAndRecord(t *testing.T) {
	h := newHarness(t)
	path := writeUpload(t, testsupport.AudioSpec{
		Title:           "Ithemba",
		Artist:          "Calvin Fallo",
		DurationSeconds: 60,
	})
	resp, err := h.client.Ingest(context.Background(), path, api.IngestOptions{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if err := h.client.DeleteMix(context.Background(), resp.Mix.ID); err != nil {
		t.Fatalf("DeleteMix: %v", err)
	}

	if _, err := h.client.GetMix(context.Background(), resp.Mix.ID); err == nil {
		t.Fatal("record still fetchable after delete")
	}
	entries, err := os.ReadDir(h.cfg.Paths.LibraryDir)
	if err != nil {
		t.Fatalf("read library: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("library still holds %d blobs", len(entries))
	}
}

func TestOrphanEndpoints(t *testing.T) {
	h := newHarness(t)
	path := writeUpload(t, testsupport.AudioSpec{
		Title:           "Ithemba",
		Artist:          "Calvin Fallo",
		DurationSeconds: 60,
	})
	resp, err := h.client.Ingest(context.Background(), path, api.IngestOptions{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// Remove the blob out of band to orphan the record.
	resolved, ok := h.local.Resolve(mixLocation(t, h, resp.Mix.ID))
	if !ok {
		t.Fatal("stored location does not resolve")
	}
	if err := os.Remove(resolved); err != nil {
		t.Fatalf("remove blob: %v", err)
	}

	orphans, err := h.client.Orphans(context.Background())
	if err != nil {
		t.Fatalf("Orphans: %v", err)
	}
	if len(orphans) != 1 || orphans[0].MixID != resp.Mix.ID {
		t.Fatalf("orphans = %+v", orphans)
	}

	// Dry run leaves the record; apply removes it.
	dry, err := h.client.Cleanup(context.Background(), false)
	if err != nil {
		t.Fatalf("dry Cleanup: %v", err)
	}
	if !dry.DryRun || dry.Deleted != 0 || dry.Orphans != 1 {
		t.Fatalf("dry result = %+v", dry)
	}

	applied, err := h.client.Cleanup(context.Background(), true)
	if err != nil {
		t.Fatalf("applied Cleanup: %v", err)
	}
	if applied.Deleted != 1 {
		t.Fatalf("applied result = %+v", applied)
	}
	if _, err := h.client.GetMix(context.Background(), resp.Mix.ID); err == nil {
		t.Fatal("orphaned record still fetchable")
	}
}

func TestDeleteLocalFileReapsRecord(t *testing.T) {
	h := newHarness(t)
	path := writeUpload(t, testsupport.AudioSpec{
		Title:           "Ithemba",
		Artist:          "Calvin Fallo",
		DurationSeconds: 60,
	})
	resp, err := h.client.Ingest(context.Background(), path, api.IngestOptions{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	resolved, ok := h.local.Resolve(mixLocation(t, h, resp.Mix.ID))
	if !ok {
		t.Fatal("stored location does not resolve")
	}

	cleanup, err := h.client.DeleteLocalFile(context.Background(), resp.Mix.ID)
	if err != nil {
		t.Fatalf("DeleteLocalFile: %v", err)
	}
	if cleanup.RecordsRemoved != 1 {
		t.Fatalf("records removed = %d, want 1", cleanup.RecordsRemoved)
	}
	if _, err := os.Stat(resolved); !os.IsNotExist(err) {
		t.Fatalf("blob still present: %v", err)
	}
	if _, err := h.client.GetMix(context.Background(), resp.Mix.ID); err == nil {
		t.Fatal("record still fetchable after local file delete")
	}

	// No orphan is left behind for the sweep.
	orphans, err := h.client.Orphans(context.Background())
	if err != nil {
		t.Fatalf("Orphans: %v", err)
	}
	if len(orphans) != 0 {
		t.Fatalf("orphans = %+v, want none", orphans)
	}
}

func TestDeleteLocalFileRejectsRemoteTier(t *testing.T) {
	h := newHarness(t)
	mix := testsupport.SeedMix(t, h.store, catalog.Mix{
		Title:          "remote",
		StoredLocation: "https://cdn.example.com/bucket/remote.mp3",
		StorageTier:    catalog.TierRemote,
		ContentHash:    "hash-remote",
	}, "DJ Zinhle")

	_, err := h.client.DeleteLocalFile(context.Background(), mix.ID)
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", apiErr.Status)
	}
}

func TestStatsAndHealthEndpoints(t *testing.T) {
	h := newHarness(t)

	health, err := h.client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("health = %+v", health)
	}

	storageHealth, err := h.client.StorageHealth(context.Background())
	if err != nil {
		t.Fatalf("StorageHealth: %v", err)
	}
	if storageHealth.RemoteStatus != string(storage.RemoteNotConfigured) {
		t.Fatalf("remote status = %q", storageHealth.RemoteStatus)
	}

	path := writeUpload(t, testsupport.AudioSpec{
		Title:           "Ithemba",
		Artist:          "Calvin Fallo",
		DurationSeconds: 60,
	})
	if _, err := h.client.Ingest(context.Background(), path, api.IngestOptions{}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	stats, err := h.client.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Mixes != 1 || stats.Artists != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.ByTier[string(catalog.TierLocal)] != 1 {
		t.Fatalf("tier counts = %v", stats.ByTier)
	}
}

func TestCategoryEndpoints(t *testing.T) {
	h := newHarness(t)

	created, err := h.store.EnsureCategory(context.Background(), "Gqom", "South African club sound")
	if err != nil {
		t.Fatalf("EnsureCategory: %v", err)
	}

	categories, err := h.client.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(categories) != 1 || categories[0].ID != created.ID || categories[0].Name != "Gqom" {
		t.Fatalf("categories = %+v", categories)
	}
}

func mixLocation(t *testing.T, h *harness, id int64) string {
	t.Helper()
	mix, err := h.store.GetMix(context.Background(), id)
	if err != nil {
		t.Fatalf("GetMix: %v", err)
	}
	if mix == nil {
		t.Fatalf("mix %d missing", id)
	}
	return mix.StoredLocation
}
