package mux

import "path"

// cleanPath returns the canonical path for p, eliminating . and .. elements
// per RFC 3986 Section 5.2.4 (remove dot segments).
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}
