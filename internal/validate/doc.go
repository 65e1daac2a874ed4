// Package validate classifies submitted byte streams as supported audio
// before anything else in the ingestion pipeline runs.
//
// Light mode checks size and extension only and is used on the
// metadata-preview path. Full mode additionally parses container and
// codec headers, first in memory and then against a temp file, because
// some parsers misbehave on non-seekable buffers. Validation is a pure
// function over bytes plus the declared filename; the temp file is the
// only side effect and is always removed.
package validate
