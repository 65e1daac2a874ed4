package dedup

import (
	"fmt"
	"math"

	"github.com/hbollon/go-edlib"

	"crate/internal/catalog"
	"crate/internal/fingerprint"
	"crate/internal/textutil"
)

// Fixed field weights. They are never renormalized when a field is
// absent: a missing field contributes zero and the candidate is
// penalized for its thin metadata. That bias is deliberate and keeps
// scores comparable across records.
const (
	weightTitle    = 0.40
	weightArtist   = 0.30
	weightDuration = 0.15
	weightAlbum    = 0.10
	weightSize     = 0.05
)

// durationWindowSeconds is the delta at which the duration term decays
// to zero.
const durationWindowSeconds = 5.0

// sizeWindowRatio is the relative size delta at which the size term
// decays to zero.
const sizeWindowRatio = 0.10

// similarityScore computes the weighted similarity between a submission
// and one candidate, along with human-readable reasons for the terms
// that contributed.
func similarityScore(fp fingerprint.Fingerprint, candidate catalog.DedupCandidate) (float64, []string) {
	var score float64
	var reasons []string

	if s := stringSimilarity(fp.Title, candidate.Title); s > 0 {
		score += weightTitle * s
		reasons = append(reasons, fmt.Sprintf("title similarity %.2f", s))
	}
	if s := stringSimilarity(fp.Artist, candidate.ArtistName); s > 0 {
		score += weightArtist * s
		reasons = append(reasons, fmt.Sprintf("artist similarity %.2f", s))
	}
	if s := durationSimilarity(fp.DurationSeconds, candidate.DurationSeconds); s > 0 {
		score += weightDuration * s
		reasons = append(reasons, fmt.Sprintf("duration within %.0fs window (%.2f)", durationWindowSeconds, s))
	}
	if s := stringSimilarity(fp.Album, candidate.Album); s > 0 {
		score += weightAlbum * s
		reasons = append(reasons, fmt.Sprintf("album similarity %.2f", s))
	}
	if s := sizeSimilarity(fp.SizeMB(), candidate.SizeMB); s > 0 {
		score += weightSize * s
		reasons = append(reasons, fmt.Sprintf("size within %.0f%% window (%.2f)", sizeWindowRatio*100, s))
	}

	return score, reasons
}

// stringSimilarity is a normalized edit-distance ratio over cleaned
// strings. Empty input on either side scores zero.
func stringSimilarity(a, b string) float64 {
	a = textutil.NormalizeForComparison(a)
	b = textutil.NormalizeForComparison(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	similarity, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return float64(similarity)
}

// durationSimilarity decays linearly to zero across the window. A zero
// duration on either side scores zero.
func durationSimilarity(a, b int) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	delta := math.Abs(float64(a - b))
	if delta >= durationWindowSeconds {
		return 0
	}
	return 1 - delta/durationWindowSeconds
}

// sizeSimilarity decays linearly to zero across the relative delta
// window.
func sizeSimilarity(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	larger := math.Max(a, b)
	ratio := math.Abs(a-b) / larger
	if ratio >= sizeWindowRatio {
		return 0
	}
	return 1 - ratio/sizeWindowRatio
}
