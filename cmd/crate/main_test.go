package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crate/internal/api"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	content := fmt.Sprintf(
		"[server]\nbind = %q\n\n[paths]\nstate_dir = %q\nlibrary_dir = %q\nlog_dir = %q\n",
		"127.0.0.1:0",
		filepath.Join(base, "state"),
		filepath.Join(base, "library"),
		filepath.Join(base, "logs"),
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, apiBase, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if apiBase != "" {
		flags = append(flags, "--api", apiBase)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

func jsonHandler(status int, payload any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func TestStatusCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", jsonHandler(http.StatusOK, api.Health{Status: "ok", Version: "test"}))
	mux.HandleFunc("/api/v1/stats", jsonHandler(http.StatusOK, api.Stats{
		Mixes:       3,
		Artists:     2,
		Categories:  1,
		TotalSizeMB: 120.5,
		TotalPlays:  7,
		ByTier:      map[string]int64{"local": 2, "remote": 1},
	}))
	mux.HandleFunc("/api/v1/storage/health", jsonHandler(http.StatusOK, api.StorageHealth{RemoteStatus: "not_configured"}))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, _, err := runCLI(t, []string{"status"}, srv.URL, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "ok at "+srv.URL)
	requireContains(t, out, "local-only mode")
	requireContains(t, out, "120.5 MB")
	requireContains(t, out, "local=2 remote=1")
}

func TestMixesListCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	mixes := []api.Mix{
		{
			ID:              1,
			Title:           "Deep Sessions Vol 3",
			Artist:          "Calvin Fallo",
			DurationSeconds: 3785,
			SizeMB:          84.2,
			StorageTier:     "remote",
			PlayCount:       12,
			CreatedAt:       time.Now(),
		},
		{
			ID:              2,
			Title:           "Amapiano Live",
			Artist:          "DJ Stokie",
			DurationSeconds: 245,
			SizeMB:          8.4,
			StorageTier:     "local",
			CreatedAt:       time.Now(),
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/mixes", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("expected default limit 50, got %q", got)
		}
		jsonHandler(http.StatusOK, mixes)(w, r)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, _, err := runCLI(t, []string{"mixes", "list"}, srv.URL, configPath)
	if err != nil {
		t.Fatalf("mixes list: %v", err)
	}
	requireContains(t, out, "Deep Sessions Vol 3")
	requireContains(t, out, "DJ Stokie")
	requireContains(t, out, "1:03:05")
	requireContains(t, out, "4:05")

	out, _, err = runCLI(t, []string{"mixes", "list", "--json"}, srv.URL, configPath)
	if err != nil {
		t.Fatalf("mixes list --json: %v", err)
	}
	var decoded []api.Mix
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode JSON output: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Title != "Deep Sessions Vol 3" {
		t.Fatalf("unexpected JSON output: %s", out)
	}
}

func TestMixesListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/mixes", jsonHandler(http.StatusOK, []api.Mix{}))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, _, err := runCLI(t, []string{"mixes", "list"}, srv.URL, configPath)
	if err != nil {
		t.Fatalf("mixes list: %v", err)
	}
	requireContains(t, out, "No mixes found.")
}

func TestIngestDuplicateRendering(t *testing.T) {
	configPath := writeTestConfig(t)

	envelope := api.ErrorBody{Error: api.ErrorDetail{
		Code:    "duplicate_conflict",
		Message: "duplicate of an existing mix",
		Duplicate: &api.DuplicateInfo{
			MatchedID:  7,
			Title:      "Deep Sessions Vol 3",
			Artist:     "Calvin Fallo",
			MatchType:  "exact_content",
			Confidence: 1.0,
			Reasons:    []string{"identical content hash"},
		},
	}}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/mixes", jsonHandler(http.StatusConflict, envelope))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	uploadPath := filepath.Join(t.TempDir(), "mix.mp3")
	if err := os.WriteFile(uploadPath, []byte("audio bytes"), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}

	out, _, err := runCLI(t, []string{"ingest", uploadPath}, srv.URL, configPath)
	if err == nil {
		t.Fatal("expected duplicate rejection to fail the command")
	}
	requireContains(t, out, "Deep Sessions Vol 3")
	requireContains(t, out, "exact_content")
	requireContains(t, out, "--skip-duplicate-check")
}

func TestIngestSuccessRendering(t *testing.T) {
	configPath := writeTestConfig(t)

	response := api.IngestResponse{
		Mix: api.Mix{
			ID:              42,
			Title:           "Ithemba",
			Artist:          "Calvin Fallo",
			DurationSeconds: 245,
			SizeMB:          8.4,
			StorageTier:     "local",
			StreamURL:       "/api/v1/mixes/42/stream",
			CreatedAt:       time.Now(),
		},
		StorageTier:        "local",
		FellBackFromRemote: true,
		ArtSource:          "generated",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/mixes", jsonHandler(http.StatusCreated, response))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	uploadPath := filepath.Join(t.TempDir(), "mix.mp3")
	if err := os.WriteFile(uploadPath, []byte("audio bytes"), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}

	out, _, err := runCLI(t, []string{"ingest", uploadPath, "--artist", "Calvin Fallo"}, srv.URL, configPath)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	requireContains(t, out, `Cataloged "Ithemba" by Calvin Fallo (id 42)`)
	requireContains(t, out, "generated")
	requireContains(t, out, "stored locally")
}

func TestCleanupCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/reconcile/cleanup", func(w http.ResponseWriter, r *http.Request) {
		dryRun := r.URL.Query().Get("dry_run") == "true"
		result := api.CleanupResult{Scanned: 5, Orphans: 2, DryRun: dryRun}
		if !dryRun {
			result.Deleted = 2
		}
		jsonHandler(http.StatusOK, result)(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, _, err := runCLI(t, []string{"cleanup"}, srv.URL, configPath)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	requireContains(t, out, "found 2 orphaned")
	requireContains(t, out, "--apply")

	out, _, err = runCLI(t, []string{"cleanup", "--apply"}, srv.URL, configPath)
	if err != nil {
		t.Fatalf("cleanup --apply: %v", err)
	}
	requireContains(t, out, "Deleted 2 orphaned records")
}

func TestOrphansCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/reconcile/orphans", jsonHandler(http.StatusOK, api.CleanupResult{
		Scanned: 3,
		Orphans: 1,
		DryRun:  true,
		Reports: []api.Orphan{{
			MixID:          9,
			Title:          "Lost Mix",
			StoredLocation: "/uploads/lost.mp3",
			Reason:         "local file missing",
		}},
	}))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, _, err := runCLI(t, []string{"orphans"}, srv.URL, configPath)
	if err != nil {
		t.Fatalf("orphans: %v", err)
	}
	requireContains(t, out, "Lost Mix")
	requireContains(t, out, "/uploads/lost.mp3")
	requireContains(t, out, "cleanup --apply")
}

func TestDaemonUnreachableHint(t *testing.T) {
	configPath := writeTestConfig(t)

	// Reserve and release a port so nothing is listening on it.
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, _, err := runCLI(t, []string{"status"}, base, configPath)
	if err == nil {
		t.Fatal("expected connection error")
	}
	requireContains(t, err.Error(), "is crated running?")
}
