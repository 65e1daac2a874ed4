package dedup_test

import (
	"context"
	"errors"
	"testing"

	"crate/internal/catalog"
	"crate/internal/dedup"
	"crate/internal/fingerprint"
	"crate/internal/logging"
)

type staticSource struct {
	candidates []catalog.DedupCandidate
	err        error
}

func (s staticSource) ListDedupCandidates(context.Context) ([]catalog.DedupCandidate, error) {
	return s.candidates, s.err
}

func TestFindDuplicateExactHash(t *testing.T) {
	source := staticSource{candidates: []catalog.DedupCandidate{
		{ID: 7, Title: "Ithemba", ArtistName: "Calvin Fallo", ContentHash: "abc123"},
	}}
	detector := dedup.NewDetector(source, logging.NewNop())

	match, err := detector.FindDuplicate(context.Background(), fingerprint.Fingerprint{
		ContentHash: "abc123",
		Title:       "Completely Different Name",
	})
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if match == nil {
		t.Fatal("expected exact match")
	}
	if match.Type != dedup.MatchExactContent {
		t.Fatalf("type = %q", match.Type)
	}
	if match.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", match.Confidence)
	}
	if match.MatchedID != 7 {
		t.Fatalf("matched id = %d", match.MatchedID)
	}
}

func TestFindDuplicateThresholdBoundary(t *testing.T) {
	// Identical title and artist, nothing else comparable: exactly
	// 0.40 + 0.30 = 0.70, which is inclusive on the match side.
	source := staticSource{candidates: []catalog.DedupCandidate{
		{ID: 1, Title: "Ithemba", ArtistName: "Calvin Fallo", ContentHash: "other"},
	}}
	detector := dedup.NewDetector(source, logging.NewNop())

	match, err := detector.FindDuplicate(context.Background(), fingerprint.Fingerprint{
		ContentHash: "different",
		Title:       "Ithemba",
		Artist:      "Calvin Fallo",
	})
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if match == nil {
		t.Fatal("score of exactly 0.70 must match")
	}
	if match.Type != dedup.MatchMetadataSimilarity {
		t.Fatalf("type = %q", match.Type)
	}
	if match.Confidence < 0.699 || match.Confidence > 0.701 {
		t.Fatalf("confidence = %v, want 0.70", match.Confidence)
	}

	// Slightly imperfect artist pushes the sum under the threshold.
	match, err = detector.FindDuplicate(context.Background(), fingerprint.Fingerprint{
		ContentHash: "different",
		Title:       "Ithemba",
		Artist:      "Calvin Falloh",
	})
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if match != nil {
		t.Fatalf("score under 0.70 must not match, got confidence %v", match.Confidence)
	}
}

func TestFindDuplicateNearDuplicateScenario(t *testing.T) {
	// Same title/artist/duration as the existing record, ~2% smaller
	// file, album tag stripped: a typical re-encode.
	source := staticSource{candidates: []catalog.DedupCandidate{
		{
			ID:              3,
			Title:           "Ithemba",
			ArtistName:      "Calvin Fallo",
			Album:           "Gqom Sessions Vol 1",
			DurationSeconds: 240,
			SizeMB:          58.0,
			ContentHash:     "original-hash",
		},
	}}
	detector := dedup.NewDetector(source, logging.NewNop())

	sizeMB := 56.84
	match, err := detector.FindDuplicate(context.Background(), fingerprint.Fingerprint{
		ContentHash:     "reencoded-hash",
		Title:           "Ithemba!",
		Artist:          "Calvin Fallo",
		DurationSeconds: 240,
		SizeBytes:       int64(sizeMB * 1024 * 1024),
	})
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if match == nil {
		t.Fatal("expected near-duplicate match")
	}
	if match.Type != dedup.MatchMetadataSimilarity {
		t.Fatalf("type = %q", match.Type)
	}
	if match.Confidence < 0.80 || match.Confidence > 0.95 {
		t.Fatalf("confidence = %v, want roughly 0.85", match.Confidence)
	}
	if len(match.Reasons) == 0 {
		t.Fatal("expected reasons for the match")
	}
}

func TestFindDuplicateAbsentFieldsContributeZero(t *testing.T) {
	// The candidate has no album and no size: those terms award zero
	// without renormalizing, so the score is capped below a full match.
	source := staticSource{candidates: []catalog.DedupCandidate{
		{ID: 4, Title: "Umlilo", ArtistName: "DJ Zinhle", DurationSeconds: 180, ContentHash: "x"},
	}}
	detector := dedup.NewDetector(source, logging.NewNop())

	match, err := detector.FindDuplicate(context.Background(), fingerprint.Fingerprint{
		ContentHash:     "y",
		Title:           "Umlilo",
		Artist:          "DJ Zinhle",
		DurationSeconds: 180,
	})
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if match == nil {
		t.Fatal("expected match")
	}
	// title 0.40 + artist 0.30 + duration 0.15 = 0.85, no album/size.
	if match.Confidence < 0.849 || match.Confidence > 0.851 {
		t.Fatalf("confidence = %v, want 0.85", match.Confidence)
	}
}

func TestFindDuplicateNoMatch(t *testing.T) {
	source := staticSource{candidates: []catalog.DedupCandidate{
		{ID: 9, Title: "Completely Unrelated Song", ArtistName: "Someone Else", ContentHash: "z"},
	}}
	detector := dedup.NewDetector(source, logging.NewNop())

	match, err := detector.FindDuplicate(context.Background(), fingerprint.Fingerprint{
		ContentHash: "w",
		Title:       "Ithemba",
		Artist:      "Calvin Fallo",
	})
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if match != nil {
		t.Fatalf("unexpected match: %+v", match)
	}
}

func TestFindDuplicateSourceError(t *testing.T) {
	wantErr := errors.New("db gone")
	detector := dedup.NewDetector(staticSource{err: wantErr}, logging.NewNop())

	_, err := detector.FindDuplicate(context.Background(), fingerprint.Fingerprint{ContentHash: "h"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped %v", err, wantErr)
	}
}
