package dedup

import (
	"context"
	"fmt"
	"log/slog"

	"crate/internal/catalog"
	"crate/internal/fingerprint"
	"crate/internal/logging"
)

// MatchType distinguishes how a duplicate was identified.
type MatchType string

const (
	MatchExactContent       MatchType = "exact_content"
	MatchMetadataSimilarity MatchType = "metadata_similarity"
)

// Threshold is the inclusive weighted-similarity score at which a
// candidate counts as a duplicate.
const Threshold = 0.70

// Match reports one detected duplicate.
type Match struct {
	MatchedID  int64
	Title      string
	Artist     string
	Type       MatchType
	Confidence float64
	Reasons    []string
}

// CandidateSource supplies the catalog snapshot the detector scores
// against.
type CandidateSource interface {
	ListDedupCandidates(ctx context.Context) ([]catalog.DedupCandidate, error)
}

// Detector finds duplicates for incoming submissions.
type Detector struct {
	source CandidateSource
	logger *slog.Logger
}

// NewDetector builds a detector over the given candidate source.
func NewDetector(source CandidateSource, logger *slog.Logger) *Detector {
	return &Detector{
		source: source,
		logger: logging.NewComponentLogger(logger, "dedup"),
	}
}

// FindDuplicate returns the best duplicate match for fp, or nil when no
// candidate clears the threshold. Malformed candidate metadata never
// fails the check; only a catalog read error is returned.
func (d *Detector) FindDuplicate(ctx context.Context, fp fingerprint.Fingerprint) (*Match, error) {
	candidates, err := d.source.ListDedupCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dedup candidates: %w", err)
	}

	for _, candidate := range candidates {
		if candidate.ContentHash != "" && candidate.ContentHash == fp.ContentHash {
			d.logger.Info("exact content duplicate",
				logging.Int64("matched_id", candidate.ID),
				logging.String("hash", fp.ContentHash))
			return &Match{
				MatchedID:  candidate.ID,
				Title:      candidate.Title,
				Artist:     candidate.ArtistName,
				Type:       MatchExactContent,
				Confidence: 1.0,
				Reasons:    []string{"identical content hash"},
			}, nil
		}
	}

	var best *Match
	for _, candidate := range candidates {
		score, reasons := similarityScore(fp, candidate)
		if score < Threshold {
			continue
		}
		if best == nil || score > best.Confidence {
			best = &Match{
				MatchedID:  candidate.ID,
				Title:      candidate.Title,
				Artist:     candidate.ArtistName,
				Type:       MatchMetadataSimilarity,
				Confidence: score,
				Reasons:    reasons,
			}
		}
	}

	if best != nil {
		d.logger.Info("metadata similarity duplicate",
			logging.Int64("matched_id", best.MatchedID),
			logging.Float64("confidence", best.Confidence))
	}
	return best, nil
}
