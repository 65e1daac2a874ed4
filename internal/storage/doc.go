// Package storage persists audio and cover-art blobs across a tiered
// backend: a remote S3-compatible object store attempted first under a
// bounded timeout, and a local filesystem tier used as the fallback.
//
// Each remote attempt produces a structured result classifying the
// outcome (ok, auth error, bucket not found, timeout, rate limited,
// client error, not configured); the writer makes exactly one attempt
// per call and never retries. A deployment with no remote tier
// configured runs in deliberate local-only mode, which is not reported
// as a fallback. Deletion is tier-aware from the shape of the stored
// location and is idempotent for remote objects.
package storage
