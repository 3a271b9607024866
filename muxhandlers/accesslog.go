package muxhandlers

import (
	"net/http"
	"time"

	"github.com/urfave/negroni"
	"github.com/vitalvas/routedoc/mux"
	"go.uber.org/zap"
)

// AccessLogMiddleware logs method, path, final status, size and latency of
// every request at info level.
func AccessLogMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := negroni.NewResponseWriter(w)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("size", ww.Size()),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			)
		})
	}
}
