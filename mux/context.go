package mux

import (
	"context"
	"net/http"
)

// routeContextKey is an unexported type for the single context key.
type routeContextKey struct{}

// ctxKey is the single context key used to store both node and vars.
var ctxKey = routeContextKey{}

// routeContext holds the matched node and extracted variables.
type routeContext struct {
	node *Node
	vars map[string]string
}

// Vars returns the route variables for the current request, if any.
func Vars(r *http.Request) map[string]string {
	if rc, ok := r.Context().Value(ctxKey).(*routeContext); ok {
		return rc.vars
	}
	return nil
}

// VarGet returns the value of a single route variable by name and a boolean
// indicating whether the variable exists.
func VarGet(r *http.Request, name string) (string, bool) {
	if rc, ok := r.Context().Value(ctxKey).(*routeContext); ok && rc.vars != nil {
		val, exists := rc.vars[name]
		return val, exists
	}
	return "", false
}

// CurrentNode returns the matched method node for the current request.
// This only works inside the handler of the matched node because the
// node is stored in the request context during dispatch.
func CurrentNode(r *http.Request) *Node {
	if rc, ok := r.Context().Value(ctxKey).(*routeContext); ok {
		return rc.node
	}
	return nil
}

// SetURLVars sets the URL variables for the given request, returning the
// modified request. This is intended for testing route handlers.
func SetURLVars(r *http.Request, val map[string]string) *http.Request {
	var node *Node
	if rc, ok := r.Context().Value(ctxKey).(*routeContext); ok {
		node = rc.node
	}
	return setRouteContext(r, node, val)
}

func setRouteContext(r *http.Request, node *Node, vars map[string]string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey, &routeContext{node: node, vars: vars}))
}
