package openapi

import (
	"embed"
	"fmt"
	"html"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/negroni"
	"github.com/vitalvas/routedoc/mux"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	initializerTemplate = "initializer.template.js"
	initializerFile     = "initializer.js"
	stylesheetFile      = "routedoc.css"
	specURLPlaceholder  = "__SPEC_URL__"
)

//go:embed assets
var embeddedAssets embed.FS

func defaultAssets() fs.FS {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// Handle registers the documentation endpoints on r:
//
//	GET <OpenAPIPath>              the document as JSON
//	GET <YAMLPath>                 the document as YAML
//	GET <UIPath>                   the Swagger UI page
//	GET <UIPath>/initializer.js    the UI bootstrap script
//	GET <UIPath>/{**}              static UI assets
//
// The document is regenerated on every request, so it reflects new
// annotations and observations immediately. None of these routes is
// documented or observed.
func (s *Spec) Handle(r *mux.Router) {
	r.Get(s.cfg.OpenAPIPath, s.serveJSON)
	r.Get(s.cfg.YAMLPath(), s.serveYAML)

	ui := s.cfg.UIPath
	r.Get(ui, s.serveUI)
	r.Get(s.uiAsset(initializerFile), s.serveInitializer)
	r.Get(s.uiAsset("{**}"), http.StripPrefix(strings.TrimSuffix(ui, "/"), http.FileServer(http.FS(s.assets))).ServeHTTP)
}

func (s *Spec) uiAsset(name string) string {
	return path.Join(s.cfg.UIPath, name)
}

// JSON builds the document and encodes it as indented JSON.
func (s *Spec) JSON() ([]byte, error) {
	return json.MarshalIndent(s.Build(), "", "  ")
}

// YAML builds the document and encodes it as block-style YAML with
// the same key order as the JSON form.
func (s *Spec) YAML() ([]byte, error) {
	data, err := s.JSON()
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to convert document to YAML: %w", err)
	}
	resetStyle(&node)
	return yaml.Marshal(&node)
}

// resetStyle drops the flow and quoting styles the JSON source implies.
func resetStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		resetStyle(c)
	}
}

func (s *Spec) serveJSON(w http.ResponseWriter, _ *http.Request) {
	data, err := s.JSON()
	if err != nil {
		s.logger.Error("failed to serialize document as JSON", zap.Error(err))
		http.Error(w, "failed to serialize OpenAPI document as JSON", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Spec) serveYAML(w http.ResponseWriter, _ *http.Request) {
	data, err := s.YAML()
	if err != nil {
		s.logger.Error("failed to serialize document as YAML", zap.Error(err))
		http.Error(w, "failed to serialize OpenAPI document as YAML", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Spec) serveUI(w http.ResponseWriter, _ *http.Request) {
	page := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css">
<link rel="stylesheet" href=%q>
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
<script src="https://unpkg.com/swagger-ui-dist/swagger-ui-standalone-preset.js"></script>
<script src=%q></script>
</body>
</html>`, html.EscapeString(s.cfg.Title), s.uiAsset(stylesheetFile), s.uiAsset(initializerFile))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func (s *Spec) serveInitializer(w http.ResponseWriter, _ *http.Request) {
	tmpl, err := fs.ReadFile(s.assets, initializerTemplate)
	if err != nil {
		s.logger.Error("failed to read UI initializer template", zap.Error(err))
		http.Error(w, "initializer template is missing", http.StatusInternalServerError)
		return
	}
	script := strings.ReplaceAll(string(tmpl), specURLPlaceholder, s.cfg.OpenAPIPath)

	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(script))
}

// ObserveMiddleware records the status code of every response under the
// operation that served it and reports the known codes in the
// X-Observed-For, X-Observed-Codes and X-All-Codes response headers.
// Requests are attributed to the first registered pattern matching the raw
// path, or to the raw path itself when none does. Documentation endpoints
// are skipped. When observation is disabled the middleware is a no-op.
func (s *Spec) ObserveMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if !s.cfg.ObserveResponses {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.URL.Path
			trimmed := strings.TrimRight(raw, "/")
			if trimmed == "" {
				trimmed = "/"
			}
			if s.index.Excluded(trimmed) {
				next.ServeHTTP(w, r)
				return
			}

			pattern, ok := s.index.MatchPattern(raw)
			if !ok {
				pattern = raw
			}
			method := strings.ToUpper(r.Method)

			observed := false
			observe := func(h http.Header, code int) {
				if observed {
					return
				}
				observed = true
				if ok {
					s.observed.Record(method, pattern, code)
				} else {
					s.observed.RecordUnmatched(method, pattern, code)
				}

				h.Set("X-Observed-For", method+" "+pattern)
				h.Set("X-Observed-Codes", joinCodes(s.observed.Get(method, pattern)))
				h.Set("X-All-Codes", joinCodes(s.EffectiveCodes(method, pattern)))
			}

			rw := negroni.NewResponseWriter(w)
			rw.Before(func(rw negroni.ResponseWriter) {
				observe(rw.Header(), rw.Status())
			})

			next.ServeHTTP(rw, r)

			if !rw.Written() {
				observe(rw.Header(), http.StatusOK)
			}
		})
	}
}
