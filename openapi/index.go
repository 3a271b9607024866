package openapi

import (
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/vitalvas/routedoc/mux"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// OperationKey identifies one documented operation.
type OperationKey struct {
	Method  string
	Pattern string
}

func (k OperationKey) String() string {
	return k.Method + " " + k.Pattern
}

type patternMatcher struct {
	pattern string
	re      *regexp.Regexp
}

// indexSnapshot is immutable once published.
type indexSnapshot struct {
	matchers []patternMatcher
	routes   map[OperationKey]*mux.Node
	keys     []OperationKey
}

// Index maps raw request paths to registered route patterns and operation
// keys to route nodes. It is built lazily on first use from a single walk
// of the route tree and never changes afterwards, so routes must be
// registered before the first lookup.
type Index struct {
	router   *mux.Router
	uiPath   string
	excluded []string
	logger   *zap.Logger

	mu   sync.Mutex
	snap atomic.Pointer[indexSnapshot]
}

// NewIndex returns an index over r. Patterns equal to an excluded path, and
// patterns equal to or below uiPath, are never indexed.
func NewIndex(r *mux.Router, uiPath string, excluded ...string) *Index {
	return &Index{
		router:   r,
		uiPath:   strings.TrimRight(uiPath, "/"),
		excluded: excluded,
		logger:   zap.NewNop(),
	}
}

// MatchPattern returns the pattern of the first registered route, in
// registration order, whose compiled pattern matches rawPath.
func (x *Index) MatchPattern(rawPath string) (string, bool) {
	for _, m := range x.snapshot().matchers {
		if m.re.MatchString(rawPath) {
			return m.pattern, true
		}
	}
	return "", false
}

// RouteFor returns the method node registered for method and pattern.
func (x *Index) RouteFor(method, pattern string) (*mux.Node, bool) {
	n, ok := x.snapshot().routes[OperationKey{Method: strings.ToUpper(method), Pattern: pattern}]
	return n, ok
}

// Operations returns every indexed operation key in registration order.
func (x *Index) Operations() []OperationKey {
	return slices.Clone(x.snapshot().keys)
}

// Excluded reports whether pattern belongs to the documentation surface.
func (x *Index) Excluded(pattern string) bool {
	if slices.Contains(x.excluded, pattern) {
		return true
	}
	if x.uiPath == "" {
		return false
	}
	return pattern == x.uiPath || strings.HasPrefix(pattern, x.uiPath+"/")
}

func (x *Index) snapshot() *indexSnapshot {
	if s := x.snap.Load(); s != nil {
		return s
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if s := x.snap.Load(); s != nil {
		return s
	}
	s := x.build()
	x.snap.Store(s)
	return s
}

func (x *Index) build() *indexSnapshot {
	s := &indexSnapshot{routes: make(map[OperationKey]*mux.Node)}
	if x.router == nil {
		x.logger.Debug("route index built without a router")
		return s
	}
	seen := make(map[string]bool)

	_ = x.router.Walk(func(n *mux.Node) error {
		if n.Kind() != mux.SelectorMethod {
			return nil
		}
		pattern := Pattern(n)
		if x.Excluded(pattern) {
			return nil
		}

		if !seen[pattern] {
			seen[pattern] = true
			s.matchers = append(s.matchers, patternMatcher{pattern: pattern, re: compilePattern(pattern)})
		}

		key := OperationKey{Method: n.Method(), Pattern: pattern}
		if _, dup := s.routes[key]; !dup {
			s.keys = append(s.keys, key)
		}
		s.routes[key] = n
		return nil
	})

	x.logger.Debug("route index built",
		zap.Int("patterns", len(s.matchers)),
		zap.Int("operations", len(s.keys)),
	)
	return s
}

// Pattern renders the route pattern of n by walking its parent links.
// Optional parameters render as {name}, wildcards as {*} and tailcards as
// {**}. Query and header selectors do not contribute.
func Pattern(n *mux.Node) string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent() {
		switch cur.Kind() {
		case mux.SelectorLiteral:
			parts = append(parts, cur.Value())
		case mux.SelectorParam, mux.SelectorOptionalParam:
			parts = append(parts, "{"+cur.Value()+"}")
		case mux.SelectorWildcard:
			parts = append(parts, "{*}")
		case mux.SelectorTailcard:
			parts = append(parts, "{**}")
		}
	}
	slices.Reverse(parts)
	return "/" + strings.Join(parts, "/")
}

func compilePattern(pattern string) *regexp.Regexp {
	segs := strings.Split(pattern, "/")
	for i, seg := range segs {
		switch {
		case seg == "{**}":
			segs[i] = ".*"
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			segs[i] = "[^/]+"
		default:
			segs[i] = regexp.QuoteMeta(seg)
		}
	}
	return regexp.MustCompile("^" + strings.Join(segs, "/") + "$")
}
