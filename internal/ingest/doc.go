// Package ingest runs submitted audio through the cataloging pipeline:
// validation, fingerprinting, duplicate detection, metadata resolution,
// tiered storage, and the final catalog commit.
//
// Every stage before the storage write is side-effect free, so a
// rejection leaves nothing behind. Once blobs are written, a failed
// commit triggers compensating deletes before the error is surfaced;
// the unique stored-location constraint in the catalog is the backstop
// against two concurrent ingestions committing the same key.
package ingest
