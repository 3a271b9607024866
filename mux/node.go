package mux

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// SelectorKind identifies what a Node matches against.
type SelectorKind int

const (
	// SelectorRoot is the kind of the router root node.
	SelectorRoot SelectorKind = iota
	// SelectorLiteral matches one path segment by exact text.
	SelectorLiteral
	// SelectorParam matches one path segment and captures it as {name}.
	SelectorParam
	// SelectorOptionalParam matches zero or one path segment, {name?}.
	SelectorOptionalParam
	// SelectorWildcard matches exactly one path segment, {*}.
	SelectorWildcard
	// SelectorTailcard matches all remaining segments, {**} or {name...}.
	SelectorTailcard
	// SelectorMethod binds an HTTP method and a handler.
	SelectorMethod
	// SelectorQueryParam requires a query parameter to be present.
	SelectorQueryParam
	// SelectorHeader requires a request header, optionally with a fixed value.
	SelectorHeader
)

var selectorKindNames = [...]string{
	SelectorRoot:          "root",
	SelectorLiteral:       "literal",
	SelectorParam:         "param",
	SelectorOptionalParam: "optional-param",
	SelectorWildcard:      "wildcard",
	SelectorTailcard:      "tailcard",
	SelectorMethod:        "method",
	SelectorQueryParam:    "query",
	SelectorHeader:        "header",
}

func (k SelectorKind) String() string {
	if int(k) < len(selectorKindNames) {
		return selectorKindNames[k]
	}
	return fmt.Sprintf("SelectorKind(%d)", int(k))
}

// IsPathSegment reports whether the kind consumes URL path segments.
func (k SelectorKind) IsPathSegment() bool {
	switch k {
	case SelectorLiteral, SelectorParam, SelectorOptionalParam, SelectorWildcard, SelectorTailcard:
		return true
	}
	return false
}

// Node is one selector in the route tree. Path segments, methods, required
// query parameters and required headers are all nodes; a handler lives on a
// method node.
//
// Nodes are created through the registration methods and must not be
// mutated after the router starts serving requests.
type Node struct {
	router   *Router
	parent   *Node
	children []*Node

	kind  SelectorKind
	value string // literal text, variable name, method, query or header name
	match string // expected header value, empty for presence only

	handler http.Handler
	source  string
}

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child nodes in registration order.
func (n *Node) Children() []*Node { return n.children }

// Kind returns the selector kind.
func (n *Node) Kind() SelectorKind { return n.kind }

// Value returns the literal text, variable name, HTTP method, query
// parameter name or header name, depending on Kind.
func (n *Node) Value() string { return n.value }

// HeaderValue returns the required value of a header selector, if any.
func (n *Node) HeaderValue() string { return n.match }

// Method returns the HTTP method for method nodes and "" otherwise.
func (n *Node) Method() string {
	if n.kind == SelectorMethod {
		return n.value
	}
	return ""
}

// Handler returns the handler bound to a method node.
func (n *Node) Handler() http.Handler { return n.handler }

// Source returns the file in which the handler was registered. It is
// recorded on a best-effort basis and may be empty.
func (n *Node) Source() string { return n.source }

// Router returns the router that owns the node.
func (n *Node) Router() *Router { return n.router }

// String renders the selector for diagnostics.
func (n *Node) String() string {
	switch n.kind {
	case SelectorRoot:
		return "/"
	case SelectorLiteral:
		return n.value
	case SelectorParam:
		return "{" + n.value + "}"
	case SelectorOptionalParam:
		return "{" + n.value + "?}"
	case SelectorWildcard:
		return "{*}"
	case SelectorTailcard:
		if n.value != "" {
			return "{" + n.value + "...}"
		}
		return "{**}"
	case SelectorMethod:
		return "(method:" + n.value + ")"
	case SelectorQueryParam:
		return "[?" + n.value + "]"
	case SelectorHeader:
		if n.match != "" {
			return "[" + n.value + "=" + n.match + "]"
		}
		return "[" + n.value + "]"
	}
	return n.kind.String()
}

// child returns the existing child with the same selector, or appends a new one.
func (n *Node) child(kind SelectorKind, value, match string) *Node {
	for _, c := range n.children {
		if c.kind == kind && c.value == value && c.match == match {
			return c
		}
	}
	c := &Node{router: n.router, parent: n, kind: kind, value: value, match: match}
	n.children = append(n.children, c)
	return c
}

// Route creates (or reuses) the chain of path nodes for the template under
// n, calls fn with the deepest node when fn is not nil, and returns it.
//
//	r.Route("/users", func(users *mux.Node) {
//	    users.Get("", listUsers)
//	    users.Get("/{id}", getUser)
//	})
//
// It panics if the template is malformed.
func (n *Node) Route(path string, fn func(*Node)) *Node {
	segs, err := parseTemplate(path)
	if err != nil {
		panic(err)
	}
	cur := n
	for _, s := range segs {
		cur = cur.child(s.kind, s.value, "")
	}
	if fn != nil {
		fn(cur)
	}
	return cur
}

// QueryParam adds a selector requiring the named query parameter and calls
// fn with it when fn is not nil.
func (n *Node) QueryParam(name string, fn func(*Node)) *Node {
	if name == "" {
		panic("mux: empty query parameter name")
	}
	c := n.child(SelectorQueryParam, name, "")
	if fn != nil {
		fn(c)
	}
	return c
}

// Header adds a selector requiring the named header. When value is not
// empty the header must equal it. It panics on an invalid header name.
func (n *Node) Header(name, value string, fn func(*Node)) *Node {
	if !httpguts.ValidHeaderFieldName(name) {
		panic(fmt.Sprintf("mux: invalid header name %q", name))
	}
	c := n.child(SelectorHeader, http.CanonicalHeaderKey(name), value)
	if fn != nil {
		fn(c)
	}
	return c
}

// Handle binds handler to method at path below n and returns the method node.
// Registering the same method and path again replaces the handler.
func (n *Node) Handle(method, path string, handler http.Handler) *Node {
	return n.handle(method, path, handler, 2)
}

// HandleFunc is Handle for plain functions.
func (n *Node) HandleFunc(method, path string, f func(http.ResponseWriter, *http.Request)) *Node {
	return n.handle(method, path, http.HandlerFunc(f), 2)
}

// Get registers a GET handler.
func (n *Node) Get(path string, f http.HandlerFunc) *Node {
	return n.handle(http.MethodGet, path, f, 2)
}

// Post registers a POST handler.
func (n *Node) Post(path string, f http.HandlerFunc) *Node {
	return n.handle(http.MethodPost, path, f, 2)
}

// Put registers a PUT handler.
func (n *Node) Put(path string, f http.HandlerFunc) *Node {
	return n.handle(http.MethodPut, path, f, 2)
}

// Patch registers a PATCH handler.
func (n *Node) Patch(path string, f http.HandlerFunc) *Node {
	return n.handle(http.MethodPatch, path, f, 2)
}

// Delete registers a DELETE handler.
func (n *Node) Delete(path string, f http.HandlerFunc) *Node {
	return n.handle(http.MethodDelete, path, f, 2)
}

// Head registers a HEAD handler.
func (n *Node) Head(path string, f http.HandlerFunc) *Node {
	return n.handle(http.MethodHead, path, f, 2)
}

// Options registers an OPTIONS handler.
func (n *Node) Options(path string, f http.HandlerFunc) *Node {
	return n.handle(http.MethodOptions, path, f, 2)
}

func (n *Node) handle(method, path string, handler http.Handler, skip int) *Node {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		panic("mux: empty method")
	}
	if handler == nil {
		panic("mux: nil handler")
	}
	target := n
	if path != "" {
		target = n.Route(path, nil)
	}
	m := target.child(SelectorMethod, method, "")
	m.handler = handler
	if _, file, _, ok := runtime.Caller(skip); ok {
		m.source = file
	}
	return m
}
