package internal

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/routedoc/openapi"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDumpJSON(t *testing.T) {
	out, err := runCommand(t, "dump")
	require.NoError(t, err)

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(out))
	require.NoError(t, err)
	require.NoError(t, doc.Validate(loader.Context))

	assert.NotNil(t, doc.Paths.Find("/api/v1/users/{id}"))
	assert.NotNil(t, doc.Paths.Find("/api/v1/search"))
	assert.NotNil(t, doc.Paths.Find("/healthz"))
	assert.Nil(t, doc.Paths.Find("/openapi.json"))

	users := doc.Paths.Find("/api/v1/users")
	require.NotNil(t, users)
	assert.Equal(t, "List users", users.Get.Summary)
	assert.Equal(t, []string{"api/v1/users"}, users.Get.Tags)
}

func TestDumpYAML(t *testing.T) {
	out, err := runCommand(t, "dump", "--format", "yaml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "openapi: 3.0.3\n"))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "paths")
}

func TestDumpWithConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routedoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
title: Demo
hierarchy_mode: module
bearer_auth: true
`), 0o600))

	out, err := runCommand(t, "dump", "--config", path)
	require.NoError(t, err)

	var doc openapi.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Demo", doc.Info.Title)
	assert.Contains(t, doc.Components.SecuritySchemes, "bearerAuth")

	op := doc.Paths["/api/v1/users/{id}"].Get
	require.NotNil(t, op)
	assert.Equal(t, []string{"users"}, op.Tags)
}

func TestDumpErrors(t *testing.T) {
	t.Run("unknown format", func(t *testing.T) {
		_, err := runCommand(t, "dump", "--format", "xml")
		assert.ErrorContains(t, err, "unknown format")
	})

	t.Run("missing config", func(t *testing.T) {
		_, err := runCommand(t, "dump", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := newLogger("loud")
		assert.Error(t, err)
	})
}

func TestApp(t *testing.T) {
	a, err := newApp(openapi.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	send := func(method, target, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, httptest.NewRequest(method, target, strings.NewReader(body)))
		return w
	}

	w := send(http.MethodPost, "/api/v1/users", `{"name":"Alice","email":"alice@example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "POST /api/v1/users", w.Header().Get("X-Observed-For"))

	var created User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, RoleMember, created.Role)

	w = send(http.MethodGet, "/api/v1/users/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "GET /api/v1/users/{id}", w.Header().Get("X-Observed-For"))

	w = send(http.MethodGet, "/api/v1/users/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "200,404", w.Header().Get("X-Observed-Codes"))

	w = send(http.MethodPost, "/api/v1/users", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(http.MethodGet, "/api/v1/search?q=ali", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page UserPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)

	w = send(http.MethodDelete, "/api/v1/users/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	doc := a.spec.Build()
	get := doc.Paths["/api/v1/users/{id}"].Get
	require.NotNil(t, get)
	assert.Len(t, get.Responses, 2)
	assert.Contains(t, get.Responses, "200")
	assert.Contains(t, get.Responses, "404")

	post := doc.Paths["/api/v1/users"].Post
	require.NotNil(t, post)
	assert.Len(t, post.Responses, 2)
	assert.Contains(t, post.Responses, "201")
	assert.Contains(t, post.Responses, "400")

	families, err := a.registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "routedoc_observed_responses_total")
}
