package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
	"strings"

	"crate/internal/media/mpegaudio"
)

// Fingerprint is the content hash plus extracted comparable metadata
// for one submission.
type Fingerprint struct {
	ContentHash     string
	Title           string
	Artist          string
	Album           string
	Genre           string
	Year            int
	DurationSeconds int
	SizeBytes       int64
	QualityKbps     int
	Picture         []byte
}

// SizeMB returns the submission size in megabytes.
func (f Fingerprint) SizeMB() float64 {
	return float64(f.SizeBytes) / (1024 * 1024)
}

// artistSeparators are the filename conventions "Artist - Title.mp3"
// style uploads use.
var artistSeparators = []string{" - ", "-", "–", "|", "•"}

// Compute derives the fingerprint for data. The declared name supplies
// the container dialect to read tags with and the fallback title and
// artist when tags are missing.
func Compute(data []byte, declaredName string) Fingerprint {
	sum := sha256.Sum256(data)
	fp := Fingerprint{
		ContentHash: hex.EncodeToString(sum[:]),
		SizeBytes:   int64(len(data)),
	}

	switch strings.ToLower(filepath.Ext(declaredName)) {
	case ".mp3", ".wma", ".aiff":
		readID3Tags(data, &fp)
		if seconds, bitrate, err := mpegaudio.EstimateDuration(data); err == nil {
			fp.DurationSeconds = seconds
			fp.QualityKbps = bitrate
		}
	case ".flac":
		readFLACTags(data, &fp)
	case ".ogg":
		readOggTags(data, &fp)
	case ".m4a":
		readMP4Tags(data, &fp)
	}

	applyFilenameFallbacks(declaredName, &fp)
	return fp
}

// applyFilenameFallbacks fills the title from the filename stem and the
// artist from an "Artist - Title" style split when tags left them empty.
func applyFilenameFallbacks(declaredName string, fp *Fingerprint) {
	stem := strings.TrimSuffix(filepath.Base(declaredName), filepath.Ext(declaredName))
	stem = strings.TrimSpace(stem)

	if fp.Title == "" {
		fp.Title = stem
	}
	if fp.Artist == "" {
		for _, sep := range artistSeparators {
			left, _, found := strings.Cut(stem, sep)
			if !found {
				continue
			}
			if left = strings.TrimSpace(left); left != "" {
				fp.Artist = left
				break
			}
		}
	}
}

// parseYear pulls a four-digit year from date-style tag values like
// "2023-01-01" or plain "2023".
func parseYear(value string) int {
	value = strings.TrimSpace(value)
	if len(value) < 4 {
		return 0
	}
	year, err := strconv.Atoi(value[:4])
	if err != nil || year < 1000 || year > 9999 {
		return 0
	}
	return year
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
