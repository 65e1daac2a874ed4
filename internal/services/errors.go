package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidInput marks submissions rejected before any side effect:
	// bad size, unsupported type, corrupted audio.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateConflict marks submissions that matched an existing
	// catalog entry, either through the duplicate detector or by losing
	// the stored-location race at commit time.
	ErrDuplicateConflict = errors.New("duplicate conflict")
	// ErrStorageUnavailable marks ingestions where no storage tier
	// accepted the write.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrPersistence marks unexpected catalog database failures.
	ErrPersistence = errors.New("persistence error")
	// ErrReconciliation marks failed reconciliation batches; the batch
	// is rolled back as a whole.
	ErrReconciliation = errors.New("reconciliation error")
	// ErrNotFound marks lookups for records that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks misconfiguration detected after startup
	// validation should have caught it.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes pipeline context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrPersistence
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// HTTPStatus maps a pipeline error to the status code the API surface
// should answer with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns the stable machine-readable code carried in JSON
// error bodies.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDuplicateConflict):
		return "duplicate_conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrReconciliation):
		return "reconciliation_error"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	default:
		return "persistence_error"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
