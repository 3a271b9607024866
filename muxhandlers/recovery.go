package muxhandlers

import (
	"fmt"
	"net/http"

	"github.com/vitalvas/routedoc/mux"
	"go.uber.org/zap"
)

// RecoveryConfig configures the Recovery middleware behaviour.
type RecoveryConfig struct {
	// Logger receives one error entry per recovered panic. When nil, no
	// logging is performed.
	Logger *zap.Logger
}

// RecoveryMiddleware returns a middleware that recovers from panics in
// downstream handlers. When a panic occurs it returns 500 Internal Server
// Error to the client and logs the recovered value.
func RecoveryMiddleware(cfg RecoveryConfig) mux.MiddlewareFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rv := recover(); rv != nil {
					if rv == http.ErrAbortHandler {
						panic(rv)
					}
					logger.Error("handler panic",
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.String("request_id", RequestIDFromContext(r.Context())),
						zap.String("panic", fmt.Sprint(rv)),
					)

					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
