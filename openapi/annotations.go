package openapi

import (
	"sync"

	"github.com/vitalvas/routedoc/mux"
)

// Annotations is a side table of documentation attached to route nodes.
// Docs may be attached to any node; docs on ancestors act as bases for every
// operation below them, so a group can declare shared responses once.
//
// It is safe for concurrent use.
type Annotations struct {
	mu      sync.RWMutex
	docs    map[*mux.Node]OperationDoc
	modules map[*mux.Node]string
}

// NewAnnotations returns an empty table.
func NewAnnotations() *Annotations {
	return &Annotations{
		docs:    make(map[*mux.Node]OperationDoc),
		modules: make(map[*mux.Node]string),
	}
}

// Doc runs fn against a fresh builder and combines the result over the
// documentation already attached to n, so repeated calls layer rather than
// replace. It returns n for chaining at registration time.
func (a *Annotations) Doc(n *mux.Node, fn func(*OperationBuilder)) *mux.Node {
	b := NewOperationBuilder()
	if fn != nil {
		fn(b)
	}
	a.Attach(n, b.Build())
	return n
}

// Attach combines doc over the documentation already attached to n.
func (a *Annotations) Attach(n *mux.Node, doc OperationDoc) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.docs[n]; ok {
		doc = Combine(existing, doc)
	}
	a.docs[n] = doc
}

// Get returns the documentation attached directly to n.
func (a *Annotations) Get(n *mux.Node) (OperationDoc, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	doc, ok := a.docs[n]
	return doc, ok
}

// Effective folds the documentation of n's ancestors, outermost first, and
// then n's own documentation into one doc.
func (a *Annotations) Effective(n *mux.Node) OperationDoc {
	var chain []*mux.Node
	for cur := n; cur != nil; cur = cur.Parent() {
		chain = append(chain, cur)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var out OperationDoc
	for i := len(chain) - 1; i >= 0; i-- {
		if doc, ok := a.docs[chain[i]]; ok {
			out = Combine(out, doc)
		}
	}
	return out
}

// Module tags n and every node below it with an explicit module name used
// by the module hierarchy mode.
func (a *Annotations) Module(n *mux.Node, name string) *mux.Node {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.modules[n] = name
	return n
}

// ModuleOf returns the module name set on n or its nearest ancestor.
func (a *Annotations) ModuleOf(n *mux.Node) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for cur := n; cur != nil; cur = cur.Parent() {
		if name, ok := a.modules[cur]; ok && name != "" {
			return name, true
		}
	}
	return "", false
}
