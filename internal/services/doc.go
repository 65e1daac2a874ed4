// Package services defines shared utilities consumed by the ingestion
// pipeline and the HTTP surface.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, mix IDs, and pipeline
//     stage names for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate
//     failures into consistent HTTP statuses and response codes.
//
// Use these helpers when wiring new pipeline logic so error handling
// and observability stay uniform across components.
package services
