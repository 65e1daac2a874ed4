// Package fingerprint derives the comparable identity of one submitted
// audio file: a SHA-256 content hash plus best-effort tag metadata.
//
// The hash covers the exact byte sequence, so two files with identical
// audio but different container bytes hash differently; that is the
// intended exact-duplicate semantics. Tag extraction tries an ordered
// list of candidate keys per logical field across the tag dialects the
// supported containers use (ID3v2 frames, Vorbis comments, MP4 atoms)
// and takes the first present non-empty value. Malformed tags never
// fail extraction; absent fields stay zero.
package fingerprint
