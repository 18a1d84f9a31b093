package logger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Inbound request IDs longer than this are replaced.
const maxRequestIDLength = 128

type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

// RequestID propagates X-Request-ID, generating one when the caller did
// not send a usable value, and stores a request-scoped logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := WithRequestID(r.Context(), requestID)

		logger := slog.Default().With(slog.String("request_id", requestID))
		ctx = WithLogger(ctx, logger)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		logLevel := slog.LevelInfo
		switch {
		case wrapped.status >= http.StatusInternalServerError:
			logLevel = slog.LevelError
		case wrapped.status >= http.StatusBadRequest:
			logLevel = slog.LevelWarn
		}

		FromContext(r.Context()).Log(r.Context(), logLevel, "HTTP request completed",
			slog.String("http.method", r.Method),
			slog.String("http.path", r.URL.Path),
			slog.String("http.remote_addr", r.RemoteAddr),
			slog.String("http.user_agent", r.UserAgent()),
			slog.Int64("http.content_length", r.ContentLength),
			slog.Int("http.status", wrapped.status),
			slog.Int64("http.duration_ms", time.Since(start).Milliseconds()),
			slog.Int("http.bytes", wrapped.bytes),
		)
	})
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
