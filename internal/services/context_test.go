package services_test

import (
	"context"
	"testing"

	"crate/internal/services"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("expected no request id on fresh context")
	}
	ctx = services.WithRequestID(ctx, "req-123")
	id, ok := services.RequestIDFromContext(ctx)
	if !ok || id != "req-123" {
		t.Fatalf("expected req-123, got %q ok=%v", id, ok)
	}
}

func TestWithRequestIDIgnoresEmpty(t *testing.T) {
	ctx := services.WithRequestID(context.Background(), "")
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("empty request id should not be stored")
	}
}

func TestMixIDRoundTrip(t *testing.T) {
	ctx := services.WithMixID(context.Background(), 42)
	id, ok := services.MixIDFromContext(ctx)
	if !ok || id != 42 {
		t.Fatalf("expected 42, got %d ok=%v", id, ok)
	}
}

func TestStageRoundTrip(t *testing.T) {
	ctx := services.WithStage(context.Background(), "storage_writing")
	stage, ok := services.StageFromContext(ctx)
	if !ok || stage != "storage_writing" {
		t.Fatalf("expected storage_writing, got %q ok=%v", stage, ok)
	}
}
