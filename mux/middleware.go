package mux

import "net/http"

// MiddlewareFunc is a function which receives an http.Handler and returns
// another http.Handler. Typically, the returned handler is a closure which
// does something with the http.ResponseWriter and http.Request passed to it,
// and then calls the handler passed as parameter to the MiddlewareFunc.
type MiddlewareFunc func(http.Handler) http.Handler

// Middleware allows MiddlewareFunc to implement the middleware interface.
func (mw MiddlewareFunc) Middleware(handler http.Handler) http.Handler {
	return mw(handler)
}
