// Package textutil provides text processing utilities for metadata
// normalization and filename sanitization.
//
// The primary use cases are:
//   - Normalizing tag strings (lowercase, diacritics folded, punctuation
//     stripped, whitespace collapsed) so the duplicate detector compares
//     content rather than casing or formatting
//   - Sanitizing filenames and storage-key segments for safe filesystem
//     and object-store use
package textutil
