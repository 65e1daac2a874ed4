package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"crate/internal/config"
)

// RemoteStatus classifies one remote tier attempt.
type RemoteStatus string

const (
	RemoteOK             RemoteStatus = "ok"
	RemoteAuthError      RemoteStatus = "auth_error"
	RemoteBucketNotFound RemoteStatus = "bucket_not_found"
	RemoteTimeout        RemoteStatus = "timeout"
	RemoteRateLimited    RemoteStatus = "rate_limited"
	RemoteClientError    RemoteStatus = "client_error"
	RemoteNotConfigured  RemoteStatus = "not_configured"
)

// RemoteResult is the structured outcome of one remote operation.
type RemoteResult struct {
	Status   RemoteStatus
	Location string
	Detail   string
}

// OK reports whether the operation succeeded.
func (r RemoteResult) OK() bool { return r.Status == RemoteOK }

// RemoteClient is the remote blob-store collaborator. "Not configured"
// is a first-class implementation of this interface, decided once at
// construction, never an ambient nil.
type RemoteClient interface {
	// Configured reports whether the remote tier can be attempted.
	Configured() bool
	// Put stores data under key with the given content type.
	Put(ctx context.Context, key string, data []byte, contentType string) RemoteResult
	// Delete removes the object under key. Deleting an absent object
	// is success.
	Delete(ctx context.Context, key string) error
	// Health probes the bucket for the storage health endpoint.
	Health(ctx context.Context) RemoteResult
	// KeyFor derives the object key from a previously returned
	// location, when the location denotes this remote tier.
	KeyFor(location string) (string, bool)
}

// NewRemoteClient builds the remote tier from config. An incomplete
// remote section yields the not-configured client.
func NewRemoteClient(cfg *config.Config) (RemoteClient, error) {
	if !cfg.RemoteConfigured() {
		return notConfiguredClient{}, nil
	}

	endpoint := cfg.Storage.RemoteEndpoint
	secure := true
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		secure = parsed.Scheme != "http"
		endpoint = parsed.Host
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.RemoteKeyID, cfg.Storage.RemoteSecret, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("build remote storage client: %w", err)
	}

	publicBase := cfg.Storage.RemotePublicBaseURL
	if publicBase == "" {
		scheme := "https"
		if !secure {
			scheme = "http"
		}
		publicBase = fmt.Sprintf("%s://%s/%s", scheme, endpoint, cfg.Storage.RemoteBucket)
	}

	return &s3Client{
		client:     client,
		bucket:     cfg.Storage.RemoteBucket,
		publicBase: publicBase,
	}, nil
}

type s3Client struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

func (s *s3Client) Configured() bool { return true }

const blobCacheControl = "public, max-age=31536000"

func (s *s3Client) Put(ctx context.Context, key string, data []byte, contentType string) RemoteResult {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: blobCacheControl,
	})
	if err != nil {
		return classifyRemoteError(err)
	}
	return RemoteResult{
		Status:   RemoteOK,
		Location: s.publicBase + "/" + key,
	}
}

func (s *s3Client) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("remove remote object %s: %w", key, err)
}

func (s *s3Client) Health(ctx context.Context) RemoteResult {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return classifyRemoteError(err)
	}
	if !exists {
		return RemoteResult{Status: RemoteBucketNotFound, Detail: s.bucket}
	}
	return RemoteResult{Status: RemoteOK}
}

func (s *s3Client) KeyFor(location string) (string, bool) {
	if key, found := strings.CutPrefix(location, s.publicBase+"/"); found {
		return key, true
	}
	parsed, err := url.Parse(location)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	path := strings.TrimPrefix(parsed.Path, "/")
	if key, found := strings.CutPrefix(path, s.bucket+"/"); found {
		return key, true
	}
	return path, path != ""
}

// classifyRemoteError maps vendor errors onto the remote status classes
// the orchestrator logs and the health endpoint reports.
func classifyRemoteError(err error) RemoteResult {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return RemoteResult{Status: RemoteTimeout, Detail: err.Error()}
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return RemoteResult{Status: RemoteAuthError, Detail: err.Error()}
	case "NoSuchBucket":
		return RemoteResult{Status: RemoteBucketNotFound, Detail: err.Error()}
	case "SlowDown", "TooManyRequests", "RequestLimitExceeded":
		return RemoteResult{Status: RemoteRateLimited, Detail: err.Error()}
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return RemoteResult{Status: RemoteAuthError, Detail: err.Error()}
	case http.StatusTooManyRequests:
		return RemoteResult{Status: RemoteRateLimited, Detail: err.Error()}
	}
	return RemoteResult{Status: RemoteClientError, Detail: err.Error()}
}

// notConfiguredClient is the deliberate local-only mode.
type notConfiguredClient struct{}

func (notConfiguredClient) Configured() bool { return false }

func (notConfiguredClient) Put(context.Context, string, []byte, string) RemoteResult {
	return RemoteResult{Status: RemoteNotConfigured}
}

func (notConfiguredClient) Delete(context.Context, string) error {
	return errors.New("remote storage not configured")
}

func (notConfiguredClient) Health(context.Context) RemoteResult {
	return RemoteResult{Status: RemoteNotConfigured}
}

func (notConfiguredClient) KeyFor(string) (string, bool) { return "", false }
