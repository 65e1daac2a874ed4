// Package coverart resolves artwork for ingested mixes: explicit user
// uploads win, then artwork embedded in the audio tags, then a
// generated image from an AI image endpoint. Generation failures are
// never fatal to an ingestion.
package coverart

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"crate/internal/config"
	"crate/internal/fingerprint"
	"crate/internal/logging"
)

// maxGeneratedBytes caps how much of a generator response is read.
const maxGeneratedBytes = 8 << 20

// Source records where resolved artwork came from.
type Source string

const (
	SourceUpload    Source = "upload"
	SourceEmbedded  Source = "embedded"
	SourceGenerated Source = "generated"
)

// Artwork is resolved cover art ready for the storage writer.
type Artwork struct {
	Data   []byte
	MIME   string
	Source Source
}

// Doer issues HTTP requests. *http.Client satisfies it; tests inject
// stubs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver picks cover art for a submission.
type Resolver struct {
	enabled  bool
	endpoint string
	client   Doer
	cache    *lru.Cache[string, []byte]
	logger   *slog.Logger

	negativePrompt string
}

// NewResolver builds the resolver from config. When generation is
// disabled the resolver still serves uploaded and embedded artwork.
func NewResolver(cfg *config.Config, client Doer, logger *slog.Logger) (*Resolver, error) {
	size := cfg.CoverArt.CacheSize
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("build cover art cache: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.CoverArtTimeout()}
	}
	return &Resolver{
		enabled:        cfg.CoverArt.Enabled,
		endpoint:       strings.TrimRight(cfg.CoverArt.Endpoint, "/"),
		client:         client,
		cache:          cache,
		logger:         logging.NewComponentLogger(logger, "coverart"),
		negativePrompt: "text, words, letters, watermark, signature, low quality",
	}, nil
}

// Resolve returns artwork for a submission, or nil when none is
// available. The error return is reserved for context cancellation;
// generator failures degrade to nil artwork.
func (r *Resolver) Resolve(ctx context.Context, uploaded []byte, uploadedMIME string, fp fingerprint.Fingerprint) (*Artwork, error) {
	if len(uploaded) > 0 {
		if uploadedMIME == "" {
			uploadedMIME = http.DetectContentType(uploaded)
		}
		return &Artwork{Data: uploaded, MIME: uploadedMIME, Source: SourceUpload}, nil
	}

	if len(fp.Picture) > 0 {
		return &Artwork{Data: fp.Picture, MIME: http.DetectContentType(fp.Picture), Source: SourceEmbedded}, nil
	}

	if !r.enabled || r.endpoint == "" {
		return nil, nil
	}
	return r.generate(ctx, fp)
}

func (r *Resolver) generate(ctx context.Context, fp fingerprint.Fingerprint) (*Artwork, error) {
	key := cacheKey(fp.Artist, fp.Title)
	if data, ok := r.cache.Get(key); ok {
		return &Artwork{Data: data, MIME: http.DetectContentType(data), Source: SourceGenerated}, nil
	}

	requestURL := r.promptURL(fp)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		r.logger.Warn("build art request failed", logging.Error(err))
		return nil, nil
	}

	started := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("art generation request failed",
			logging.String(logging.FieldTitle, fp.Title),
			logging.Error(err))
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("art generation rejected",
			logging.String(logging.FieldTitle, fp.Title),
			logging.Int64("status", int64(resp.StatusCode)))
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGeneratedBytes))
	if err != nil || len(data) == 0 {
		r.logger.Warn("art generation read failed", logging.Error(err))
		return nil, nil
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		r.logger.Warn("art generator returned non-image payload",
			logging.String("mime", mime))
		return nil, nil
	}

	r.cache.Add(key, data)
	r.logger.Info("generated cover art",
		logging.String(logging.FieldArtist, fp.Artist),
		logging.String(logging.FieldTitle, fp.Title),
		logging.Int64("bytes", int64(len(data))),
		logging.String("elapsed", time.Since(started).Round(time.Millisecond).String()))
	return &Artwork{Data: data, MIME: mime, Source: SourceGenerated}, nil
}

// promptURL builds the generator request. The seed is derived from the
// artist and title so repeated ingestions of the same mix get the same
// image.
func (r *Resolver) promptURL(fp fingerprint.Fingerprint) string {
	prompt := buildPrompt(fp)
	query := url.Values{}
	query.Set("width", "1024")
	query.Set("height", "1024")
	query.Set("model", "flux")
	query.Set("seed", fmt.Sprintf("%d", seedFor(fp.Artist, fp.Title)))
	query.Set("nologo", "yes")
	query.Set("negative_prompt", r.negativePrompt)
	return r.endpoint + "/prompt/" + url.PathEscape(prompt) + "?" + query.Encode()
}

func buildPrompt(fp fingerprint.Fingerprint) string {
	parts := []string{"album cover art for a DJ mix"}
	if fp.Title != "" {
		parts = append(parts, fmt.Sprintf("titled %q", fp.Title))
	}
	if fp.Artist != "" {
		parts = append(parts, "by "+fp.Artist)
	}
	if fp.Genre != "" {
		parts = append(parts, fp.Genre+" style")
	}
	parts = append(parts, "vibrant, professional, no text")
	return strings.Join(parts, ", ")
}

func cacheKey(artist, title string) string {
	return strings.ToLower(strings.TrimSpace(artist)) + "|" + strings.ToLower(strings.TrimSpace(title))
}

func seedFor(artist, title string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(cacheKey(artist, title)))
	return h.Sum32()
}
