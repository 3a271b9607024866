package openapi

import (
	"fmt"
	"io/fs"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vitalvas/routedoc/mux"
	"go.uber.org/zap"
)

const (
	bearerSchemeName = "bearerAuth"
	apiKeySchemeName = "apiKeyAuth"
	errorSchemaName  = "Error"
)

// Option configures a Spec.
type Option func(*Spec)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Spec) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObservations shares an observation store, for example with another
// Spec serving the same routes.
func WithObservations(o *Observations) Option {
	return func(s *Spec) {
		if o != nil {
			s.observed = o
		}
	}
}

// WithAnnotations shares an annotation table.
func WithAnnotations(a *Annotations) Option {
	return func(s *Spec) {
		if a != nil {
			s.docs = a
		}
	}
}

// WithRegisterer exports the observation counter through reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Spec) {
		s.registerer = reg
	}
}

// WithAssets replaces the documentation UI assets. The file system must
// contain initializer.template.js; other files are served as static
// assets under the UI path.
func WithAssets(fsys fs.FS) Option {
	return func(s *Spec) {
		s.assets = fsys
	}
}

// Spec infers an OpenAPI document from a live route tree. It owns the route
// index, the annotation table and the observation store, and regenerates
// the document from scratch on every Build.
type Spec struct {
	cfg        Config
	router     *mux.Router
	index      *Index
	docs       *Annotations
	observed   *Observations
	logger     *zap.Logger
	registerer prometheus.Registerer
	assets     fs.FS
}

// NewSpec returns a Spec for the routes of r. The configuration is
// normalized and validated.
func NewSpec(r *mux.Router, cfg Config, opts ...Option) (*Spec, error) {
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Spec{
		cfg:      cfg,
		router:   r,
		docs:     NewAnnotations(),
		observed: NewObservations(),
		logger:   zap.NewNop(),
		assets:   defaultAssets(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.registerer != nil {
		if err := s.observed.Instrument(s.registerer); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	// The UI routes are listed explicitly as well: a UI mounted at the root
	// has no prefix to exclude them by.
	s.index = NewIndex(r, cfg.UIPath,
		cfg.OpenAPIPath,
		cfg.YAMLPath(),
		cfg.UIPath,
		s.uiAsset(initializerFile),
		s.uiAsset("{**}"),
	)
	s.index.logger = s.logger
	return s, nil
}

// Config returns the normalized configuration.
func (s *Spec) Config() Config { return s.cfg }

// Index returns the route index.
func (s *Spec) Index() *Index { return s.index }

// Annotations returns the annotation table.
func (s *Spec) Annotations() *Annotations { return s.docs }

// Observations returns the observation store.
func (s *Spec) Observations() *Observations { return s.observed }

// OpenAPIPath returns the path the JSON document is served at, for UI
// bootstrapping.
func (s *Spec) OpenAPIPath() string { return s.cfg.OpenAPIPath }

// Doc attaches documentation to n; see Annotations.Doc.
func (s *Spec) Doc(n *mux.Node, fn func(*OperationBuilder)) *mux.Node {
	return s.docs.Doc(n, fn)
}

// Module sets the module name of n and its subtree; see Annotations.Module.
func (s *Spec) Module(n *mux.Node, name string) *mux.Node {
	return s.docs.Module(n, name)
}

// EffectiveCodes returns the codes published for method and pattern; see
// the package-level EffectiveCodes for the precedence.
func (s *Spec) EffectiveCodes(method, pattern string) []int {
	method = strings.ToUpper(method)
	node, _ := s.index.RouteFor(method, pattern)
	return s.effectiveCodes(method, pattern, node, s.declared(node))
}

func (s *Spec) declared(n *mux.Node) OperationDoc {
	if n == nil {
		return OperationDoc{}
	}
	return s.docs.Effective(n)
}

func (s *Spec) effectiveCodes(method, pattern string, n *mux.Node, declared OperationDoc) []int {
	required := strings.Contains(pattern, "{")
	if n != nil {
		required = len(collectParameters(n)) > 0
	}
	return EffectiveCodes(method, CodeSources{
		Preset:         s.cfg.presetCodes(method, pattern),
		Observed:       s.observed.Get(method, pattern),
		Declared:       declared.Codes(),
		RequiredInputs: required,
		Include500:     s.cfg.Include500WhenObserved,
	})
}

// Build generates the document from the current routes, annotations and
// observations. A failure while building one operation replaces that
// operation with a stub reporting a generation error and leaves the rest of
// the document intact.
func (s *Spec) Build() *Document {
	gen := NewSchemaGenerator()

	doc := &Document{
		OpenAPI: Version,
		Info:    s.info(),
		Servers: s.servers(),
		Paths:   make(map[string]*PathItem),
	}

	used := make(map[string]bool)
	for _, key := range s.index.Operations() {
		node, _ := s.index.RouteFor(key.Method, key.Pattern)

		op := s.safeOperation(gen, key, node, s.tagFor(key, node))
		for _, tag := range op.Tags {
			used[tag] = true
		}

		item, ok := doc.Paths[key.Pattern]
		if !ok {
			item = &PathItem{}
			doc.Paths[key.Pattern] = item
		}
		if !item.SetOperation(key.Method, op) {
			s.logger.Debug("method has no OpenAPI slot", zap.String("operation", key.String()))
		}
	}

	doc.Tags, doc.TagGroups = buildTags(s.cfg.HierarchyMode, used, s.cfg.TagDescriptions)
	doc.Components = s.components(gen)
	return doc
}

func (s *Spec) info() Info {
	info := Info{
		Title:          s.cfg.Title,
		Version:        s.cfg.Version,
		Description:    s.cfg.Description,
		TermsOfService: s.cfg.TermsOfService,
	}
	if c := s.cfg.Contact; c != (ContactConfig{}) {
		info.Contact = &Contact{Name: c.Name, URL: c.URL, Email: c.Email}
	}
	if l := s.cfg.License; l.Name != "" {
		info.License = &License{Name: l.Name, URL: l.URL}
	}
	return info
}

func (s *Spec) servers() []Server {
	if len(s.cfg.Servers) == 0 {
		return nil
	}
	out := make([]Server, len(s.cfg.Servers))
	for i, u := range s.cfg.Servers {
		out[i] = Server{URL: u}
	}
	return out
}

func (s *Spec) tagFor(key OperationKey, n *mux.Node) string {
	switch s.cfg.HierarchyMode {
	case HierarchyModule:
		return moduleTag(s.docs, n, key.Pattern)
	case HierarchyFlat:
		return FlatTag
	}
	return ContainerTag(key.Pattern)
}

func (s *Spec) security() []SecurityRequirement {
	var reqs []SecurityRequirement
	if s.cfg.BearerAuth {
		reqs = append(reqs, SecurityRequirement{bearerSchemeName: {}})
	}
	if s.cfg.APIKeyHeader != "" {
		reqs = append(reqs, SecurityRequirement{apiKeySchemeName: {}})
	}
	return reqs
}

// safeOperation builds one operation and turns an error or a panic into
// the generation error stub. Components registered by a failed operation
// are dropped so that no reference is left dangling.
func (s *Spec) safeOperation(gen *SchemaGenerator, key OperationKey, n *mux.Node, tag string) (op *Operation) {
	snap := gen.snapshot()
	defer func() {
		if rv := recover(); rv != nil {
			gen.restore(snap)
			op = s.failedOperation(key, fmt.Errorf("panic: %v", rv))
		}
	}()

	op, err := s.buildOperation(gen, key, n, tag)
	if err != nil {
		gen.restore(snap)
		return s.failedOperation(key, err)
	}
	return op
}

func (s *Spec) failedOperation(key OperationKey, err error) *Operation {
	s.logger.Error("failed to generate operation",
		zap.String("error_id", uuid.NewString()),
		zap.String("method", key.Method),
		zap.String("pattern", key.Pattern),
		zap.Error(err),
	)
	return &Operation{
		Responses: map[string]*Response{
			"500": {Description: "Generation error"},
		},
	}
}

func (s *Spec) buildOperation(gen *SchemaGenerator, key OperationKey, n *mux.Node, tag string) (*Operation, error) {
	params := collectParameters(n)
	declared := s.declared(n)
	doc := Combine(inferDefaults(key.Method, key.Pattern, len(params) > 0), declared)

	op := &Operation{
		OperationID: OperationID(key.Method, key.Pattern),
		Tags:        []string{tag},
		Parameters:  params,
		Security:    s.security(),
		Responses:   make(map[string]*Response),
	}
	if doc.Summary != nil {
		op.Summary = *doc.Summary
	}
	if doc.Description != nil {
		op.Description = *doc.Description
	}

	if rb := doc.RequestBody; rb != nil {
		content, err := resolveContent(gen, rb.Content)
		if err != nil {
			return nil, fmt.Errorf("request body: %w", err)
		}
		op.RequestBody = &RequestBody{Required: rb.Required, Content: content}
	}

	for _, code := range s.effectiveCodes(key.Method, key.Pattern, n, declared) {
		resp := &Response{Description: StatusText(code)}
		if rd, ok := declared.Response(code); ok {
			if rd.Description != "" {
				resp.Description = rd.Description
			}
			content, err := resolveContent(gen, rd.Content)
			if err != nil {
				return nil, fmt.Errorf("response %d: %w", code, err)
			}
			resp.Content = content
		}
		op.Responses[fmt.Sprint(code)] = resp
	}

	return op, nil
}

func resolveContent(gen *SchemaGenerator, content map[string]MediaTypeDoc) (map[string]*MediaType, error) {
	if len(content) == 0 {
		return nil, nil
	}
	out := make(map[string]*MediaType, len(content))
	for ct, mt := range content {
		schema, err := mt.Schema.resolve(gen)
		if err != nil {
			return nil, err
		}
		out[ct] = &MediaType{Schema: schema}
	}
	return out, nil
}

// inferDefaults returns the documentation assumed for a route without
// annotations.
func inferDefaults(method, pattern string, requiredInputs bool) OperationDoc {
	summary := Summary(method, pattern)
	description := summary + " endpoint."

	success := SuccessCode(method)
	responses := []ResponseDoc{{Status: success, Description: StatusText(success)}}
	if requiredInputs {
		responses = append(responses, ResponseDoc{Status: http.StatusBadRequest, Description: StatusText(http.StatusBadRequest)})
	}
	responses = append(responses, ResponseDoc{Status: http.StatusInternalServerError, Description: StatusText(http.StatusInternalServerError)})

	doc := OperationDoc{
		Summary:     &summary,
		Description: &description,
		Responses:   responses,
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		doc.RequestBody = &RequestBodyDoc{
			Required: true,
			Content:  map[string]MediaTypeDoc{"application/json": {Schema: NoSchema()}},
		}
	}
	return doc
}

// Summary returns the inferred summary of an operation, for example
// "Get users by id" for GET /users/{id}.
func Summary(method, pattern string) string {
	var words []string
	for seg := range strings.SplitSeq(strings.Trim(pattern, "/"), "/") {
		if seg == "" {
			continue
		}
		if name, ok := paramName(seg); ok {
			words = append(words, "by", name)
			continue
		}
		words = append(words, seg)
	}

	var verb string
	switch strings.ToUpper(method) {
	case http.MethodGet:
		verb = "Get"
	case http.MethodPost:
		verb = "Create"
	case http.MethodPut:
		verb = "Replace"
	case http.MethodPatch:
		verb = "Update"
	case http.MethodDelete:
		verb = "Delete"
	default:
		verb = upperFirst(strings.ToLower(method))
	}
	return strings.TrimSpace(verb + " " + strings.Join(words, " "))
}

// OperationID returns the inferred operation id, the lowercase method
// followed by the camel-cased path, for example "getUsersById".
func OperationID(method, pattern string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for seg := range strings.SplitSeq(strings.Trim(pattern, "/"), "/") {
		switch seg {
		case "":
			continue
		case "{*}":
			b.WriteString("ByAny")
			continue
		case "{**}":
			b.WriteString("ByRest")
			continue
		}
		if name, ok := paramName(seg); ok {
			b.WriteString("By" + upperFirst(stripNonAlnum(name)))
			continue
		}
		b.WriteString(upperFirst(stripNonAlnum(seg)))
	}
	return b.String()
}

func paramName(seg string) (string, bool) {
	if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}

// collectParameters documents the path parameters, required query
// parameters and required headers on the selector chain of n, outermost
// first.
func collectParameters(n *mux.Node) []*Parameter {
	var chain []*mux.Node
	for cur := n; cur != nil; cur = cur.Parent() {
		chain = append(chain, cur)
	}
	slices.Reverse(chain)

	var params []*Parameter
	seen := make(map[string]bool)
	add := func(p *Parameter) {
		if key := p.In + ":" + p.Name; !seen[key] {
			seen[key] = true
			params = append(params, p)
		}
	}

	for _, cur := range chain {
		switch cur.Kind() {
		case mux.SelectorParam, mux.SelectorOptionalParam:
			add(&Parameter{Name: cur.Value(), In: "path", Required: true, Schema: &Schema{Type: "string"}})
		case mux.SelectorQueryParam:
			add(&Parameter{Name: cur.Value(), In: "query", Required: true, Schema: &Schema{Type: "string"}})
		case mux.SelectorHeader:
			schema := &Schema{Type: "string"}
			if v := cur.HeaderValue(); v != "" {
				schema.Enum = []any{v}
			}
			add(&Parameter{Name: cur.Value(), In: "header", Required: true, Schema: schema})
		}
	}
	return params
}

// components assembles security schemes, the collected schemas plus the
// shared Error schema, and the common responses and parameters.
func (s *Spec) components(gen *SchemaGenerator) *Components {
	gen.Register(errorSchemaName, &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"message": {Type: "string"},
			"code":    {Type: "string"},
			"details": {Type: "object", AdditionalProperties: &Schema{Type: "string"}},
		},
		Required: []string{"message"},
	})

	c := &Components{
		Schemas:    gen.Schemas(),
		Responses:  make(map[string]*Response),
		Parameters: commonParameters(),
	}

	for _, code := range []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusUnprocessableEntity,
		http.StatusInternalServerError,
	} {
		c.Responses[fmt.Sprint(code)] = &Response{
			Description: StatusText(code),
			Content: map[string]*MediaType{
				"application/json": {Schema: refTo(errorSchemaName)},
			},
		}
	}

	if s.cfg.BearerAuth || s.cfg.APIKeyHeader != "" {
		c.SecuritySchemes = make(map[string]*SecurityScheme)
	}
	if s.cfg.BearerAuth {
		c.SecuritySchemes[bearerSchemeName] = &SecurityScheme{Type: "http", Scheme: "bearer", BearerFormat: "JWT"}
	}
	if h := s.cfg.APIKeyHeader; h != "" {
		c.SecuritySchemes[apiKeySchemeName] = &SecurityScheme{Type: "apiKey", In: "header", Name: h}
	}
	return c
}

func commonParameters() map[string]*Parameter {
	one, maxSize := 1.0, 200.0
	return map[string]*Parameter{
		"Page": {
			Name:        "page",
			In:          "query",
			Description: "Page number (1-based)",
			Schema:      &Schema{Type: "integer", Minimum: &one},
		},
		"Size": {
			Name:        "size",
			In:          "query",
			Description: "Page size",
			Schema:      &Schema{Type: "integer", Minimum: &one, Maximum: &maxSize},
		},
	}
}
