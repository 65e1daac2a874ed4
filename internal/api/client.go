package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Duplicate *DuplicateInfo
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%d)", e.Code, e.Status)
}

// Client talks to a running crated instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given base URL, e.g.
// "http://127.0.0.1:7613".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// IngestOptions carries the optional multipart fields of an upload.
type IngestOptions struct {
	Title              string
	Artist             string
	Album              string
	Genre              string
	Year               int
	CategoryID         int64
	CoverArtPath       string
	SkipDuplicateCheck bool
}

// Health checks daemon liveness.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.get(ctx, "/healthz", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats fetches catalog totals.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.get(ctx, "/api/v1/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StorageHealth probes the remote storage tier through the daemon.
func (c *Client) StorageHealth(ctx context.Context) (*StorageHealth, error) {
	var out StorageHealth
	if err := c.get(ctx, "/api/v1/storage/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMixes pages through catalog records, newest first.
func (c *Client) ListMixes(ctx context.Context, artistID int64, limit, offset int) ([]Mix, error) {
	query := url.Values{}
	if artistID > 0 {
		query.Set("artist_id", strconv.FormatInt(artistID, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	var out []Mix
	if err := c.get(ctx, "/api/v1/mixes", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMix fetches one record.
func (c *Client) GetMix(ctx context.Context, id int64) (*Mix, error) {
	var out Mix
	if err := c.get(ctx, fmt.Sprintf("/api/v1/mixes/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMix removes one record and its stored blobs.
func (c *Client) DeleteMix(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/mixes/%d", id), "", nil, nil)
}

// ListArtists fetches all artists.
func (c *Client) ListArtists(ctx context.Context) ([]Artist, error) {
	var out []Artist
	if err := c.get(ctx, "/api/v1/artists", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCategories fetches all categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.get(ctx, "/api/v1/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCategory registers a category. Creating an existing name
// returns the existing category.
func (c *Client) CreateCategory(ctx context.Context, name, description string) (*Category, error) {
	payload, err := json.Marshal(map[string]string{"name": name, "description": description})
	if err != nil {
		return nil, fmt.Errorf("encode category: %w", err)
	}
	var out Category
	if err := c.do(ctx, http.MethodPost, "/api/v1/categories", "application/json", bytes.NewReader(payload), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ingest uploads an audio file for cataloging.
func (c *Client) Ingest(ctx context.Context, path string, opts IngestOptions) (*IngestResponse, error) {
	body, contentType, err := buildUploadBody(path, opts)
	if err != nil {
		return nil, err
	}
	var out IngestResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/mixes", contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Preview runs the upload through the side-effect-free pipeline stages.
func (c *Client) Preview(ctx context.Context, path string, opts IngestOptions) (*PreviewResponse, error) {
	body, contentType, err := buildUploadBody(path, opts)
	if err != nil {
		return nil, err
	}
	var out PreviewResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/mixes/preview", contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteLocalFile removes the local blob behind a mix and reaps the
// catalog records that pointed at it.
func (c *Client) DeleteLocalFile(ctx context.Context, id int64) (*LocalFileCleanup, error) {
	var out LocalFileCleanup
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/files/local/%d", id), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Orphans fetches the current orphan report without deleting anything.
func (c *Client) Orphans(ctx context.Context) ([]Orphan, error) {
	var out CleanupResult
	if err := c.get(ctx, "/api/v1/reconcile/orphans", nil, &out); err != nil {
		return nil, err
	}
	return out.Reports, nil
}

// Cleanup runs a reconciliation sweep. apply=false is a dry run.
func (c *Client) Cleanup(ctx context.Context, apply bool) (*CleanupResult, error) {
	query := url.Values{}
	query.Set("dry_run", strconv.FormatBool(!apply))
	var out CleanupResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/reconcile/cleanup?"+query.Encode(), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func buildUploadBody(path string, opts IngestOptions) (io.Reader, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}

	fields := map[string]string{
		"title":  opts.Title,
		"artist": opts.Artist,
		"album":  opts.Album,
		"genre":  opts.Genre,
	}
	if opts.Year > 0 {
		fields["year"] = strconv.Itoa(opts.Year)
	}
	if opts.CategoryID > 0 {
		fields["category_id"] = strconv.FormatInt(opts.CategoryID, 10)
	}
	if opts.SkipDuplicateCheck {
		fields["skip_duplicate_check"] = "true"
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	if opts.CoverArtPath != "" {
		art, err := os.ReadFile(opts.CoverArtPath)
		if err != nil {
			return nil, "", fmt.Errorf("read cover art: %w", err)
		}
		artPart, err := writer.CreateFormFile("cover_art", filepath.Base(opts.CoverArtPath))
		if err != nil {
			return nil, "", fmt.Errorf("build cover art part: %w", err)
		}
		if _, err := artPart.Write(art); err != nil {
			return nil, "", fmt.Errorf("write cover art part: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finish multipart: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: "unknown"}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(data) > 0 {
		var envelope ErrorBody
		if json.Unmarshal(data, &envelope) == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
			apiErr.Duplicate = envelope.Error.Duplicate
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
	}
	return apiErr
}
