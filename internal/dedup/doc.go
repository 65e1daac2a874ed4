// Package dedup decides whether a submission matches an existing
// catalog entry.
//
// Exact content-hash equality is checked first and wins with full
// confidence. Otherwise every candidate is scored with a fixed-weight
// blend of field similarities (title, artist, duration, album, size)
// and the best candidate at or above the threshold is reported. Absent
// fields contribute zero to the weighted sum rather than being excluded
// from it, so confidence values stay comparable across records with
// different metadata coverage.
package dedup
