package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"crate/internal/logging"
	"crate/internal/services"
)

const requestIDHeader = "X-Request-ID"

// requestID assigns every request a correlation identifier, honoring
// one the caller supplied.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the original ResponseWriter.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// requestLogger logs every request: method, path, status, duration,
// response size. The level follows the status class.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			if wrapped.statusCode >= 500 {
				level = slog.LevelError
			} else if wrapped.statusCode >= 400 {
				level = slog.LevelWarn
			}

			log := logging.WithContext(r.Context(), logger)
			log.LogAttrs(r.Context(), level, "http request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", wrapped.statusCode),
				logging.Duration("duration", time.Since(start)),
				logging.Int64("bytes", wrapped.written),
				logging.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
