// Package mux implements a tree-structured request router.
//
// Routes are built from selector nodes. Every path segment, HTTP method,
// required query parameter and required header is a Node with a parent
// link, so the registered API can be walked and inspected at runtime.
//
// # Router
//
// Create a router and register handlers:
//
//	r := mux.NewRouter()
//	r.Get("/health", health)
//	r.Route("/users", func(users *mux.Node) {
//	    users.Get("", listUsers)
//	    users.Post("", createUser)
//	    users.Get("/{id}", getUser)
//	})
//	http.ListenAndServe(":8080", r)
//
// # Path Templates
//
// A template is a slash-separated list of segments. Braces must enclose a
// whole segment:
//
//	/users          literal
//	/users/{id}     named parameter, available via mux.Vars(r)["id"]
//	/files/{name?}  optional parameter, matches with or without the segment
//	/assets/{*}     exactly one segment of any value
//	/static/{**}    all remaining segments
//	/static/{p...}  all remaining segments, captured as "p"
//
// # Query and Header Selectors
//
// A subtree can require a query parameter or header:
//
//	r.Route("/search", func(n *mux.Node) {
//	    n.QueryParam("q", func(q *mux.Node) {
//	        q.Get("", search)
//	    })
//	})
//
// # Matching
//
// Children are tried depth-first in registration order and the first node
// chain that consumes the whole path and accepts the method wins. When a path
// matches but no method does, the router answers 405 with an Allow header
// (RFC 9110 Section 15.5.6); otherwise 404.
//
// # Middleware
//
// Middleware registered with Use wraps the whole dispatch, including 404 and
// 405 responses:
//
//	r.Use(func(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
//	        next.ServeHTTP(w, req)
//	    })
//	})
//
// # Walking
//
// Walk visits every node pre-order. Returning SkipNode skips a subtree:
//
//	r.Walk(func(n *mux.Node) error {
//	    if n.Kind() == mux.SelectorMethod {
//	        fmt.Println(n.Method(), n.Parent())
//	    }
//	    return nil
//	})
package mux
