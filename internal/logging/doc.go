// Package logging assembles the structured slog loggers used across
// crate.
//
// It owns the JSON and console handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so request handlers and
// pipeline code automatically tag log lines with request IDs, mix IDs,
// and pipeline stages. A no-op logger is provided for tests and wiring
// code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every
// component emits records with the same shape.
package logging
