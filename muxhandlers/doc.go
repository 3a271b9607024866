// Package muxhandlers provides HTTP middleware for the mux router.
//
// # Request ID Middleware
//
// RequestIDMiddleware generates a UUID per request (or reuses a trusted
// incoming one), stores it in the request context and echoes it in the
// response header:
//
//	r.Use(muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{}))
//
// # Recovery Middleware
//
// RecoveryMiddleware turns handler panics into 500 responses and logs them:
//
//	r.Use(muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{Logger: logger}))
//
// # Access Log Middleware
//
// AccessLogMiddleware logs one structured line per request with the final
// status code:
//
//	r.Use(muxhandlers.AccessLogMiddleware(logger))
package muxhandlers
