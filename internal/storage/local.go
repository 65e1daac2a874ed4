package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"crate/internal/fileutil"
	"crate/internal/textutil"
)

// maxCollisionSuffix bounds the "-1", "-2", ... probe when a sanitized
// name is already taken under the library root.
const maxCollisionSuffix = 1000

// LocalTier writes blobs under the library directory and serves them
// back through the configured upload prefix.
type LocalTier struct {
	root   string
	prefix string
}

// NewLocalTier builds the local tier over the library root. prefix is
// the URL path prefix stored locations carry, e.g. "/uploads".
func NewLocalTier(root, prefix string) *LocalTier {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = "/uploads"
	}
	return &LocalTier{root: root, prefix: prefix}
}

// Root returns the library directory blobs are written under.
func (l *LocalTier) Root() string { return l.root }

// Prefix returns the URL path prefix of locally stored locations.
func (l *LocalTier) Prefix() string { return l.prefix }

// Write stores data under a sanitized version of name, probing numeric
// suffixes on collision, and returns the stored location.
func (l *LocalTier) Write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return "", fmt.Errorf("create library directory: %w", err)
	}

	base := textutil.SanitizeFileName(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidate := base
	for i := 1; ; i++ {
		target := filepath.Join(l.root, candidate)
		if !fileutil.FileExists(target) {
			if err := fileutil.WriteFileAtomic(target, data, 0o644); err != nil {
				return "", fmt.Errorf("write local blob: %w", err)
			}
			return l.prefix + "/" + candidate, nil
		}
		if i > maxCollisionSuffix {
			return "", fmt.Errorf("no free filename for %q after %d attempts", base, maxCollisionSuffix)
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
}

// Owns reports whether location denotes this tier rather than a remote
// URL.
func (l *LocalTier) Owns(location string) bool {
	return !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://")
}

// Candidates lists the filesystem paths a stored location may resolve
// to, most specific first. Records written by older deployments carry
// slightly different location shapes, so resolution tries the value
// verbatim when it is an absolute path, then the relative path under
// the root, the path with the upload prefix stripped, and finally the
// bare filename under the root.
func (l *LocalTier) Candidates(location string) []string {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil
	}

	var paths []string
	appendPath := func(p string) {
		for _, existing := range paths {
			if existing == p {
				return
			}
		}
		paths = append(paths, p)
	}
	appendRelative := func(rel string) {
		rel = strings.Trim(rel, "/")
		if rel == "" {
			return
		}
		appendPath(filepath.Join(l.root, filepath.FromSlash(rel)))
	}

	// The oldest records stored absolute filesystem paths outright.
	if native := filepath.FromSlash(location); filepath.IsAbs(native) {
		appendPath(filepath.Clean(native))
	}

	appendRelative(location)
	appendRelative(strings.TrimPrefix(location, l.prefix+"/"))
	appendRelative(strings.TrimPrefix(location, "/uploads/"))
	appendRelative(strings.TrimPrefix(location, "uploads/"))
	appendRelative(path.Base(location))

	return paths
}

// Resolve returns the first existing filesystem path for a stored
// location, or false when none of the candidates exist.
func (l *LocalTier) Resolve(location string) (string, bool) {
	for _, candidate := range l.Candidates(location) {
		if fileutil.FileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Delete removes the blob behind a stored location. A location that no
// longer resolves is success.
func (l *LocalTier) Delete(location string) error {
	resolved, ok := l.Resolve(location)
	if !ok {
		return nil
	}
	if err := os.Remove(resolved); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove local blob: %w", err)
	}
	return nil
}
