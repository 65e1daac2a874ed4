package logging

import (
	"context"
	"log/slog"

	"crate/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRequestID is the standardized structured logging key for request correlation identifiers.
	FieldRequestID = "request_id"
	// FieldMixID is the standardized structured logging key for catalog mix identifiers.
	FieldMixID = "mix_id"
	// FieldStage is the standardized structured logging key for ingestion stage names.
	FieldStage = "stage"
	// FieldTier is the standardized structured logging key for the storage tier in use.
	FieldTier = "tier"
	// FieldArtist is the standardized structured logging key for artist names.
	FieldArtist = "artist"
	// FieldTitle is the standardized structured logging key for mix titles.
	FieldTitle = "title"
	// FieldLocation is the standardized structured logging key for stored blob locations.
	FieldLocation = "location"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, rid))
	}
	if id, ok := services.MixIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldMixID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
