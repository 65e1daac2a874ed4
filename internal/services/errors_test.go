package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"crate/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStorageUnavailable, "storage", "write", "remote rejected", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrStorageUnavailable) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"storage", "write", "remote rejected"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToPersistence(t *testing.T) {
	err := services.Wrap(nil, "persist", "create", "insert failed", errors.New("io"))
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence marker, got %v", err)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid", services.Wrap(services.ErrInvalidInput, "validate", "size", "too large", nil), http.StatusBadRequest, "invalid_input"},
		{"duplicate", services.Wrap(services.ErrDuplicateConflict, "dedup", "", "exact match", nil), http.StatusConflict, "duplicate_conflict"},
		{"not found", services.Wrap(services.ErrNotFound, "catalog", "get", "no such mix", nil), http.StatusNotFound, "not_found"},
		{"storage", services.Wrap(services.ErrStorageUnavailable, "storage", "write", "no tier", nil), http.StatusServiceUnavailable, "storage_unavailable"},
		{"persistence", services.Wrap(services.ErrPersistence, "persist", "create", "constraint", errors.New("db")), http.StatusInternalServerError, "persistence_error"},
		{"reconciliation", services.Wrap(services.ErrReconciliation, "reconcile", "cleanup", "rollback", nil), http.StatusInternalServerError, "reconciliation_error"},
		{"unclassified", errors.New("mystery"), http.StatusInternalServerError, "persistence_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.HTTPStatus(tc.err); got != tc.status {
				t.Fatalf("HTTPStatus = %d, want %d", got, tc.status)
			}
			if got := services.ErrorCode(tc.err); got != tc.code {
				t.Fatalf("ErrorCode = %q, want %q", got, tc.code)
			}
		})
	}
}

func TestHTTPStatusNil(t *testing.T) {
	if got := services.HTTPStatus(nil); got != http.StatusOK {
		t.Fatalf("expected 200 for nil error, got %d", got)
	}
	if got := services.ErrorCode(nil); got != "" {
		t.Fatalf("expected empty code for nil error, got %q", got)
	}
}
