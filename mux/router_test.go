package mux

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}
}

func serve(r *Router, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestParseTemplate(t *testing.T) {
	t.Run("all segment kinds", func(t *testing.T) {
		segs, err := parseTemplate("/a/{id}/{opt?}/{*}/{**}")
		require.NoError(t, err)
		require.Len(t, segs, 5)
		assert.Equal(t, segment{kind: SelectorLiteral, value: "a"}, segs[0])
		assert.Equal(t, segment{kind: SelectorParam, value: "id"}, segs[1])
		assert.Equal(t, segment{kind: SelectorOptionalParam, value: "opt"}, segs[2])
		assert.Equal(t, segment{kind: SelectorWildcard}, segs[3])
		assert.Equal(t, segment{kind: SelectorTailcard}, segs[4])
	})

	t.Run("named tailcard", func(t *testing.T) {
		segs, err := parseTemplate("/static/{path...}")
		require.NoError(t, err)
		assert.Equal(t, segment{kind: SelectorTailcard, value: "path"}, segs[1])
	})

	t.Run("empty segments ignored", func(t *testing.T) {
		segs, err := parseTemplate("//users/")
		require.NoError(t, err)
		assert.Equal(t, []segment{{kind: SelectorLiteral, value: "users"}}, segs)
	})

	t.Run("errors", func(t *testing.T) {
		for _, tpl := range []string{
			"/users/{id",
			"/users/x{id}",
			"/users/{}",
			"/users/{?}",
			"/a/{**}/b",
			"/a/{id}/{id}",
		} {
			_, err := parseTemplate(tpl)
			assert.Error(t, err, tpl)
		}
	})
}

func TestRouterTree(t *testing.T) {
	r := NewRouter()
	r.Route("/users", func(users *Node) {
		users.Get("", textHandler("list"))
		users.Get("/{id}", textHandler("get"))
	})
	r.Post("/users", textHandler("create"))

	users := r.Root().Children()[0]
	assert.Equal(t, SelectorLiteral, users.Kind())
	assert.Equal(t, "users", users.Value())
	require.Len(t, users.Children(), 3, "GET, {id}, POST share the users node")

	get := users.Children()[0]
	assert.Equal(t, SelectorMethod, get.Kind())
	assert.Equal(t, http.MethodGet, get.Method())
	assert.Same(t, users, get.Parent())
	assert.True(t, strings.HasSuffix(get.Source(), "router_test.go"))
}

func TestRouterDispatch(t *testing.T) {
	r := NewRouter()
	r.Get("/", textHandler("root"))
	r.Get("/users", textHandler("list"))
	r.Get("/users/me", textHandler("me"))
	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("user " + Vars(req)["id"]))
	})
	r.Get("/files/{name?}", func(w http.ResponseWriter, req *http.Request) {
		name, ok := VarGet(req, "name")
		if !ok {
			name = "<none>"
		}
		_, _ = w.Write([]byte("file " + name))
	})
	r.Get("/assets/{*}", textHandler("asset"))
	r.Get("/static/{rest...}", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("static " + Vars(req)["rest"]))
	})

	tests := []struct {
		target string
		code   int
		body   string
	}{
		{"/", http.StatusOK, "root"},
		{"/users", http.StatusOK, "list"},
		{"/users/", http.StatusOK, "list"},
		{"/users/me", http.StatusOK, "me"},
		{"/users/42", http.StatusOK, "user 42"},
		{"/files", http.StatusOK, "file <none>"},
		{"/files/a.txt", http.StatusOK, "file a.txt"},
		{"/assets/app.js", http.StatusOK, "asset"},
		{"/assets/js/app.js", http.StatusNotFound, ""},
		{"/static/css/site.css", http.StatusOK, "static css/site.css"},
		{"/users/../users/7", http.StatusOK, "user 7"},
		{"/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := serve(r, http.MethodGet, tt.target)
			assert.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestRouterFirstMatchWins(t *testing.T) {
	r := NewRouter()
	r.Get("/items/{id}", textHandler("param"))
	r.Get("/items/special", textHandler("literal"))

	w := serve(r, http.MethodGet, "/items/special")
	assert.Equal(t, "param", w.Body.String())
}

func TestRouterMethodNotAllowed(t *testing.T) {
	r := NewRouter()
	r.Get("/users", textHandler("list"))
	r.Post("/users", textHandler("create"))

	w := serve(r, http.MethodDelete, "/users")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, POST", w.Header().Get("Allow"))

	t.Run("custom handler", func(t *testing.T) {
		r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		w := serve(r, http.MethodPut, "/users")
		assert.Equal(t, http.StatusTeapot, w.Code)
	})
}

func TestRouterQueryAndHeaderSelectors(t *testing.T) {
	r := NewRouter()
	r.Route("/search", func(n *Node) {
		n.QueryParam("q", func(q *Node) {
			q.Get("", textHandler("search"))
		})
	})
	r.Route("/v2", func(n *Node) {
		n.Header("x-api-version", "2", func(h *Node) {
			h.Get("/ping", textHandler("pong v2"))
		})
	})

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/search").Code)
	assert.Equal(t, "search", serve(r, http.MethodGet, "/search?q=go").Body.String())

	req := httptest.NewRequest(http.MethodGet, "/v2/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req.Header.Set("X-Api-Version", "2")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "pong v2", w.Body.String())

	header := r.Root().Children()[1].Children()[0]
	assert.Equal(t, SelectorHeader, header.Kind())
	assert.Equal(t, "X-Api-Version", header.Value())
	assert.Equal(t, "2", header.HeaderValue())
}

func TestRouterRegistrationPanics(t *testing.T) {
	r := NewRouter()
	assert.Panics(t, func() { r.Get("/a/{b", textHandler("")) })
	assert.Panics(t, func() { r.Root().Header("bad header", "", nil) })
	assert.Panics(t, func() { r.Handle("", "/x", textHandler("")) })
	assert.Panics(t, func() { r.Handle(http.MethodGet, "/x", nil) })
}

func TestRouterReplaceHandler(t *testing.T) {
	r := NewRouter()
	first := r.Get("/x", textHandler("first"))
	second := r.Get("/x", textHandler("second"))
	assert.Same(t, first, second)
	assert.Equal(t, "second", serve(r, http.MethodGet, "/x").Body.String())
}

func TestRouterWalk(t *testing.T) {
	r := NewRouter()
	r.Get("/a/b", textHandler(""))
	r.Get("/c", textHandler(""))

	var visited []string
	err := r.Walk(func(n *Node) error {
		visited = append(visited, n.String())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "a", "b", "(method:GET)", "c", "(method:GET)"}, visited)

	t.Run("skip node", func(t *testing.T) {
		var got []string
		_ = r.Walk(func(n *Node) error {
			got = append(got, n.String())
			if n.Value() == "a" {
				return SkipNode
			}
			return nil
		})
		assert.Equal(t, []string{"/", "a", "c", "(method:GET)"}, got)
	})
}

func TestRouterMiddlewareSeesNotFound(t *testing.T) {
	r := NewRouter()
	var codes []int
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
			w.WriteHeader(rec.Code)
		})
	})
	r.Get("/ok", textHandler("ok"))

	serve(r, http.MethodGet, "/ok")
	serve(r, http.MethodGet, "/missing")
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, codes)
}

func TestCurrentNode(t *testing.T) {
	r := NewRouter()
	var seen *Node
	node := r.Get("/who", func(_ http.ResponseWriter, req *http.Request) {
		seen = CurrentNode(req)
	})
	serve(r, http.MethodGet, "/who")
	assert.Same(t, node, seen)

	req := SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "1"})
	assert.Equal(t, "1", Vars(req)["id"])
	assert.Nil(t, CurrentNode(req))
}

func TestSelectorKindString(t *testing.T) {
	assert.Equal(t, "optional-param", SelectorOptionalParam.String())
	assert.Equal(t, "SelectorKind(42)", SelectorKind(42).String())
	assert.True(t, SelectorTailcard.IsPathSegment())
	assert.False(t, SelectorHeader.IsPathSegment())
}

func TestResponseJSONAndBind(t *testing.T) {
	w := httptest.NewRecorder()
	ResponseJSON(w, http.StatusCreated, map[string]int{"n": 1})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, w.Body.String())

	var v struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, BindJSON(req, &v))
	assert.Equal(t, "a", v.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"other":1}`))
	assert.Error(t, BindJSON(req, &v))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"} {}`))
	assert.Error(t, BindJSON(req, &v))
}
