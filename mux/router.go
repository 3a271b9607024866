package mux

import (
	"errors"
	"net/http"
	"slices"
	"strings"
)

// ErrNotFound is the match error when no node matches the request path.
var ErrNotFound = errors.New("no matching route was found")

// ErrMethodMismatch is the match error when the path matches but no
// method node accepts the request method.
var ErrMethodMismatch = errors.New("method is not allowed")

// SkipNode can be returned from a WalkFunc to skip the children of the
// node being visited.
var SkipNode = errors.New("skip this node")

// WalkFunc is called for every node visited by Walk.
type WalkFunc func(n *Node) error

// Router is a tree of selector nodes that dispatches requests to the
// handler bound on the first matching method node.
//
// It implements the http.Handler interface, so it can be registered to serve
// requests:
//
//	r := mux.NewRouter()
//	r.Get("/users/{id}", getUser)
//	http.ListenAndServe(":8080", r)
type Router struct {
	// NotFoundHandler is called when no route matches.
	// If nil, http.NotFoundHandler() is used.
	// Corresponds to 404 Not Found per RFC 9110 Section 15.5.5.
	NotFoundHandler http.Handler

	// MethodNotAllowedHandler is called when a route matches the path
	// but not the method. If nil, a default 405 handler is used.
	// Per RFC 9110 Section 15.5.6, the Allow header is always set before
	// this handler is invoked.
	MethodNotAllowedHandler http.Handler

	root        *Node
	middlewares []MiddlewareFunc
}

// NewRouter returns a new router with an empty root node.
func NewRouter() *Router {
	r := &Router{}
	r.root = &Node{router: r, kind: SelectorRoot}
	return r
}

// Root returns the root node of the route tree.
func (r *Router) Root() *Node { return r.root }

// Route creates the path nodes for path under the root; see Node.Route.
func (r *Router) Route(path string, fn func(*Node)) *Node {
	return r.root.Route(path, fn)
}

// Handle binds handler to method at path.
func (r *Router) Handle(method, path string, handler http.Handler) *Node {
	return r.root.handle(method, path, handler, 2)
}

// HandleFunc binds a handler function to method at path.
func (r *Router) HandleFunc(method, path string, f func(http.ResponseWriter, *http.Request)) *Node {
	return r.root.handle(method, path, http.HandlerFunc(f), 2)
}

// Get registers a GET handler at path.
func (r *Router) Get(path string, f http.HandlerFunc) *Node {
	return r.root.handle(http.MethodGet, path, f, 2)
}

// Post registers a POST handler at path.
func (r *Router) Post(path string, f http.HandlerFunc) *Node {
	return r.root.handle(http.MethodPost, path, f, 2)
}

// Put registers a PUT handler at path.
func (r *Router) Put(path string, f http.HandlerFunc) *Node {
	return r.root.handle(http.MethodPut, path, f, 2)
}

// Patch registers a PATCH handler at path.
func (r *Router) Patch(path string, f http.HandlerFunc) *Node {
	return r.root.handle(http.MethodPatch, path, f, 2)
}

// Delete registers a DELETE handler at path.
func (r *Router) Delete(path string, f http.HandlerFunc) *Node {
	return r.root.handle(http.MethodDelete, path, f, 2)
}

// Head registers a HEAD handler at path.
func (r *Router) Head(path string, f http.HandlerFunc) *Node {
	return r.root.handle(http.MethodHead, path, f, 2)
}

// Options registers an OPTIONS handler at path.
func (r *Router) Options(path string, f http.HandlerFunc) *Node {
	return r.root.handle(http.MethodOptions, path, f, 2)
}

// Use appends middleware to the chain. Middleware wraps the whole dispatch,
// so it also sees 404 and 405 responses.
func (r *Router) Use(mwf ...MiddlewareFunc) {
	r.middlewares = append(r.middlewares, mwf...)
}

// Walk visits every node of the tree pre-order, children in registration
// order, starting with the root.
func (r *Router) Walk(walkFn WalkFunc) error {
	return walk(r.root, walkFn)
}

func walk(n *Node, walkFn WalkFunc) error {
	err := walkFn(n)
	if errors.Is(err, SkipNode) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, c := range n.children {
		if err := walk(c, walkFn); err != nil {
			return err
		}
	}
	return nil
}

// ServeHTTP dispatches the request through the middleware chain to the
// handler of the matched method node.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = http.HandlerFunc(r.dispatch)
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i].Middleware(h)
	}
	h.ServeHTTP(w, req)
}

func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	var match RouteMatch
	if r.Match(req, &match) {
		match.Handler.ServeHTTP(w, setRouteContext(req, match.Node, match.Vars))
		return
	}

	if errors.Is(match.MatchErr, ErrMethodMismatch) {
		// RFC 9110 Section 15.5.6: the origin server MUST generate an
		// Allow header field in a 405 response.
		w.Header().Set("Allow", strings.Join(match.Allowed, ", "))
		handler := r.MethodNotAllowedHandler
		if handler == nil {
			handler = defaultMethodNotAllowedHandler
		}
		handler.ServeHTTP(w, req)
		return
	}

	handler := r.NotFoundHandler
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	handler.ServeHTTP(w, req)
}

// RouteMatch stores information about a matched route.
type RouteMatch struct {
	Node    *Node
	Handler http.Handler
	Vars    map[string]string

	// MatchErr is ErrNotFound or ErrMethodMismatch when Match fails.
	MatchErr error

	// Allowed lists the methods registered for the matched path when
	// MatchErr is ErrMethodMismatch.
	Allowed []string
}

// Match resolves the request against the tree. Children are tried in
// registration order and the first complete match wins.
func (r *Router) Match(req *http.Request, match *RouteMatch) bool {
	st := &resolveState{req: req}
	node, vars := st.resolve(r.root, splitPath(cleanPath(req.URL.Path)), nil)
	if node != nil {
		match.Node = node
		match.Handler = node.handler
		if len(vars) > 0 {
			match.Vars = make(map[string]string, len(vars)/2)
			for i := 0; i < len(vars); i += 2 {
				match.Vars[vars[i]] = vars[i+1]
			}
		}
		return true
	}
	if len(st.allowed) > 0 {
		slices.Sort(st.allowed)
		match.Allowed = slices.Compact(st.allowed)
		match.MatchErr = ErrMethodMismatch
		return false
	}
	match.MatchErr = ErrNotFound
	return false
}

type resolveState struct {
	req     *http.Request
	allowed []string
}

// resolve walks the children of n against the remaining segments. vars is a
// flat name/value list; it is extended with a full slice expression so
// sibling branches never observe each other's captures.
func (st *resolveState) resolve(n *Node, segs []string, vars []string) (*Node, []string) {
	for _, c := range n.children {
		if found, v := st.enter(c, segs, vars); found != nil {
			return found, v
		}
	}
	return nil, nil
}

func (st *resolveState) enter(c *Node, segs []string, vars []string) (*Node, []string) {
	switch c.kind {
	case SelectorLiteral:
		if len(segs) == 0 || segs[0] != c.value {
			return nil, nil
		}
		return st.resolve(c, segs[1:], vars)

	case SelectorParam:
		if len(segs) == 0 {
			return nil, nil
		}
		return st.resolve(c, segs[1:], appendVar(vars, c.value, segs[0]))

	case SelectorOptionalParam:
		if len(segs) > 0 {
			if found, v := st.resolve(c, segs[1:], appendVar(vars, c.value, segs[0])); found != nil {
				return found, v
			}
		}
		return st.resolve(c, segs, vars)

	case SelectorWildcard:
		if len(segs) == 0 {
			return nil, nil
		}
		return st.resolve(c, segs[1:], vars)

	case SelectorTailcard:
		if c.value != "" {
			vars = appendVar(vars, c.value, strings.Join(segs, "/"))
		}
		return st.resolve(c, nil, vars)

	case SelectorQueryParam:
		if !st.req.URL.Query().Has(c.value) {
			return nil, nil
		}
		return st.resolve(c, segs, vars)

	case SelectorHeader:
		got := st.req.Header.Get(c.value)
		if got == "" || (c.match != "" && got != c.match) {
			return nil, nil
		}
		return st.resolve(c, segs, vars)

	case SelectorMethod:
		if len(segs) != 0 {
			return nil, nil
		}
		if c.value != st.req.Method {
			st.allowed = append(st.allowed, c.value)
			return nil, nil
		}
		return c, vars
	}
	return nil, nil
}

func appendVar(vars []string, name, value string) []string {
	return append(vars[:len(vars):len(vars)], name, value)
}

var defaultMethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
})
