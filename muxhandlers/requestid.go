package muxhandlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/vitalvas/routedoc/mux"
)

type requestIDKey struct{}

// RequestIDFromContext returns the request ID stored in the context by
// RequestIDMiddleware. Returns an empty string if no ID is present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}

	return ""
}

// RequestIDConfig configures the Request ID middleware behaviour.
type RequestIDConfig struct {
	// HeaderName overrides the header used to propagate the request ID.
	// Defaults to "X-Request-ID" when empty.
	HeaderName string

	// TrustIncoming, when true, reuses an existing request ID from the
	// incoming request header instead of generating a new one.
	TrustIncoming bool
}

// RequestIDMiddleware returns a middleware that generates or propagates a
// request ID header. The ID is set on the request context and on the
// response header. Generated IDs are UUID v7, so they sort by time.
//
// Spec reference: https://www.rfc-editor.org/rfc/rfc9562#section-5.7
func RequestIDMiddleware(cfg RequestIDConfig) mux.MiddlewareFunc {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "X-Request-ID"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cfg.TrustIncoming {
				id = r.Header.Get(headerName)
			}
			if id == "" {
				id = newRequestID()
			}

			w.Header().Set(headerName, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.New().String()
}
