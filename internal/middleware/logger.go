// Package middleware holds HTTP middleware shared by the admin API.
package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"
)

// NewStructuredLogger logs one line per HTTP request with the method,
// path, status, size and duration.
func NewStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "http"))

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				attrs := []any{
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("took", time.Since(start)),
				}
				if id := chimiddleware.GetReqID(r.Context()); id != "" {
					attrs = append(attrs, slog.String("request_id", id))
				}

				if status >= http.StatusInternalServerError {
					logger.Error("http request", attrs...)
					return
				}
				logger.Info("http request", attrs...)
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
