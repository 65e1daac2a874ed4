package fingerprint_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"crate/internal/fingerprint"
	"crate/internal/testsupport"
)

func TestComputeHashIsContentSensitive(t *testing.T) {
	a := testsupport.MP3(t, testsupport.AudioSpec{Title: "Ithemba", Artist: "Calvin Fallo", DurationSeconds: 2})
	b := testsupport.MP3(t, testsupport.AudioSpec{Title: "Other", Artist: "Calvin Fallo", DurationSeconds: 2})

	fpA := fingerprint.Compute(a, "one.mp3")
	fpB := fingerprint.Compute(b, "two.mp3")
	if fpA.ContentHash == fpB.ContentHash {
		t.Fatal("different bytes produced the same content hash")
	}

	// Identical bytes hash identically regardless of declared filename.
	fpA2 := fingerprint.Compute(a, "renamed.mp3")
	if fpA.ContentHash != fpA2.ContentHash {
		t.Fatal("same bytes produced different content hashes")
	}

	want := sha256.Sum256(a)
	if fpA.ContentHash != hex.EncodeToString(want[:]) {
		t.Fatal("content hash is not the SHA-256 of the raw bytes")
	}
}

func TestComputeMP3Tags(t *testing.T) {
	data := testsupport.MP3(t, testsupport.AudioSpec{
		Title:           "Ithemba",
		Artist:          "Calvin Fallo",
		Album:           "Gqom Sessions",
		Genre:           "Gqom",
		Year:            2023,
		DurationSeconds: 240,
		Picture:         []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02},
	})

	fp := fingerprint.Compute(data, "upload.mp3")
	if fp.Title != "Ithemba" || fp.Artist != "Calvin Fallo" || fp.Album != "Gqom Sessions" {
		t.Fatalf("tags not extracted: %+v", fp)
	}
	if fp.Genre != "Gqom" {
		t.Fatalf("genre = %q", fp.Genre)
	}
	if fp.Year != 2023 {
		t.Fatalf("year = %d", fp.Year)
	}
	if fp.DurationSeconds < 230 || fp.DurationSeconds > 250 {
		t.Fatalf("duration = %d, want ~240", fp.DurationSeconds)
	}
	if fp.QualityKbps != 128 {
		t.Fatalf("quality = %d, want 128", fp.QualityKbps)
	}
	if len(fp.Picture) == 0 {
		t.Fatal("embedded picture not extracted")
	}
}

func TestComputeFLACTags(t *testing.T) {
	data := testsupport.FLAC(t, testsupport.AudioSpec{
		Title:           "Deeper",
		Artist:          "Calvin Fallo",
		Album:           "Night Drive",
		Genre:           "Deep House",
		Year:            2022,
		DurationSeconds: 180,
	})

	fp := fingerprint.Compute(data, "deeper.flac")
	if fp.Title != "Deeper" || fp.Artist != "Calvin Fallo" || fp.Album != "Night Drive" {
		t.Fatalf("tags not extracted: %+v", fp)
	}
	if fp.Year != 2022 {
		t.Fatalf("year = %d", fp.Year)
	}
	if fp.DurationSeconds != 180 {
		t.Fatalf("duration = %d, want 180", fp.DurationSeconds)
	}
}

func TestComputeFilenameFallbacks(t *testing.T) {
	// Untagged content: title falls back to the stem, artist to the
	// left of the separator.
	data := testsupport.MP3(t, testsupport.AudioSpec{DurationSeconds: 1})

	fp := fingerprint.Compute(data, "Calvin Fallo - Ithemba.mp3")
	if fp.Title != "Calvin Fallo - Ithemba" {
		t.Fatalf("title = %q", fp.Title)
	}
	if fp.Artist != "Calvin Fallo" {
		t.Fatalf("artist = %q", fp.Artist)
	}

	fp = fingerprint.Compute(data, "DJ Zinhle • Umlilo.mp3")
	if fp.Artist != "DJ Zinhle" {
		t.Fatalf("artist = %q", fp.Artist)
	}

	// No separator: title only, artist stays empty.
	fp = fingerprint.Compute(data, "Ithemba.mp3")
	if fp.Title != "Ithemba" || fp.Artist != "" {
		t.Fatalf("got title %q artist %q", fp.Title, fp.Artist)
	}
}

func TestComputeNeverFailsOnMalformedTags(t *testing.T) {
	fp := fingerprint.Compute(testsupport.RandomBytes(t, 1024), "junk.mp3")
	if fp.ContentHash == "" {
		t.Fatal("hash missing for malformed input")
	}
	if fp.Title != "junk" {
		t.Fatalf("title fallback = %q", fp.Title)
	}
	if fp.SizeBytes != 1024 {
		t.Fatalf("size = %d", fp.SizeBytes)
	}
}
