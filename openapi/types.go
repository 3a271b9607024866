package openapi

// Version is the OpenAPI version emitted by the generator.
const Version = "3.0.3"

// Document represents the root of an OpenAPI v3.0.3 document.
//
// Paths and Components are always emitted, so a router without routes still
// produces a valid document.
//
// See: https://spec.openapis.org/oas/v3.0.3#openapi-object
type Document struct {
	OpenAPI    string                `json:"openapi"`
	Info       Info                  `json:"info"`
	Servers    []Server              `json:"servers,omitempty"`
	Tags       []Tag                 `json:"tags,omitempty"`
	TagGroups  []TagGroup            `json:"x-tagGroups,omitempty"`
	Components *Components           `json:"components"`
	Security   []SecurityRequirement `json:"security,omitempty"`
	Paths      map[string]*PathItem  `json:"paths"`
}

// Info provides metadata about the API.
//
// See: https://spec.openapis.org/oas/v3.0.3#info-object
type Info struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	TermsOfService string   `json:"termsOfService,omitempty"`
	Contact        *Contact `json:"contact,omitempty"`
	License        *License `json:"license,omitempty"`
	Version        string   `json:"version"`
}

// Contact represents contact information for the API.
//
// See: https://spec.openapis.org/oas/v3.0.3#contact-object
type Contact struct {
	Name  string `json:"name,omitempty"`
	URL   string `json:"url,omitempty"`
	Email string `json:"email,omitempty"`
}

// License represents license information for the API.
//
// See: https://spec.openapis.org/oas/v3.0.3#license-object
type License struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Server represents a server.
//
// See: https://spec.openapis.org/oas/v3.0.3#server-object
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem describes the operations available on a single path.
//
// See: https://spec.openapis.org/oas/v3.0.3#path-item-object
type PathItem struct {
	Get     *Operation `json:"get,omitempty"`
	Put     *Operation `json:"put,omitempty"`
	Post    *Operation `json:"post,omitempty"`
	Delete  *Operation `json:"delete,omitempty"`
	Options *Operation `json:"options,omitempty"`
	Head    *Operation `json:"head,omitempty"`
	Patch   *Operation `json:"patch,omitempty"`
	Trace   *Operation `json:"trace,omitempty"`
}

// Operation returns the operation bound to method, or nil.
func (p *PathItem) Operation(method string) *Operation {
	if ptr := p.slot(method); ptr != nil {
		return *ptr
	}
	return nil
}

// SetOperation binds op to method. Unknown methods are ignored and reported
// as false.
func (p *PathItem) SetOperation(method string, op *Operation) bool {
	ptr := p.slot(method)
	if ptr == nil {
		return false
	}
	*ptr = op
	return true
}

func (p *PathItem) slot(method string) **Operation {
	switch method {
	case "GET":
		return &p.Get
	case "PUT":
		return &p.Put
	case "POST":
		return &p.Post
	case "DELETE":
		return &p.Delete
	case "OPTIONS":
		return &p.Options
	case "HEAD":
		return &p.Head
	case "PATCH":
		return &p.Patch
	case "TRACE":
		return &p.Trace
	}
	return nil
}

// Operation describes a single API operation on a path.
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object
type Operation struct {
	OperationID string                `json:"operationId,omitempty"`
	Summary     string                `json:"summary,omitempty"`
	Description string                `json:"description,omitempty"`
	Tags        []string              `json:"tags,omitempty"`
	Parameters  []*Parameter          `json:"parameters,omitempty"`
	RequestBody *RequestBody          `json:"requestBody,omitempty"`
	Security    []SecurityRequirement `json:"security,omitempty"`
	Responses   map[string]*Response  `json:"responses"`
}

// Parameter describes a single operation parameter, or a reference to a
// component parameter when Ref is set.
//
// See: https://spec.openapis.org/oas/v3.0.3#parameter-object
type Parameter struct {
	Ref         string  `json:"$ref,omitempty"`
	Name        string  `json:"name,omitempty"`
	In          string  `json:"in,omitempty"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// RequestBody describes a single request body.
//
// See: https://spec.openapis.org/oas/v3.0.3#request-body-object
type RequestBody struct {
	Description string                `json:"description,omitempty"`
	Required    bool                  `json:"required,omitempty"`
	Content     map[string]*MediaType `json:"content"`
}

// Response describes a single response from an API operation.
// The description field is REQUIRED by OpenAPI.
//
// See: https://spec.openapis.org/oas/v3.0.3#response-object
type Response struct {
	Ref         string                `json:"$ref,omitempty"`
	Description string                `json:"description,omitempty"`
	Content     map[string]*MediaType `json:"content,omitempty"`
}

// MediaType describes a media type with a schema.
//
// See: https://spec.openapis.org/oas/v3.0.3#media-type-object
type MediaType struct {
	Schema  *Schema `json:"schema,omitempty"`
	Example any     `json:"example,omitempty"`
}

// Schema is the OpenAPI 3.0 Schema Object subset produced by the schema
// generator. Exactly one shape is populated: a primitive (Type and Format),
// an enumeration, an array (Items), an object (Properties, Required,
// AdditionalProperties) or a reference (Ref). Nullable is orthogonal.
//
// See: https://spec.openapis.org/oas/v3.0.3#schema-object
type Schema struct {
	Ref    string `json:"$ref,omitempty"`
	Type   string `json:"type,omitempty"`
	Format string `json:"format,omitempty"`

	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
	Example     any    `json:"example,omitempty"`
	Nullable    bool   `json:"nullable,omitempty"`
	Deprecated  bool   `json:"deprecated,omitempty"`
	ReadOnly    bool   `json:"readOnly,omitempty"`
	WriteOnly   bool   `json:"writeOnly,omitempty"`

	Minimum   *float64 `json:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`

	Items       *Schema `json:"items,omitempty"`
	MinItems    *int    `json:"minItems,omitempty"`
	MaxItems    *int    `json:"maxItems,omitempty"`
	UniqueItems bool    `json:"uniqueItems,omitempty"`

	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`

	Enum []any `json:"enum,omitempty"`
}

// Components holds the reusable objects shared by operations.
//
// See: https://spec.openapis.org/oas/v3.0.3#components-object
type Components struct {
	SecuritySchemes map[string]*SecurityScheme `json:"securitySchemes,omitempty"`
	Schemas         map[string]*Schema         `json:"schemas"`
	Responses       map[string]*Response       `json:"responses,omitempty"`
	Parameters      map[string]*Parameter      `json:"parameters,omitempty"`
}

// Tag adds metadata to a single tag used by Operation Objects.
//
// See: https://spec.openapis.org/oas/v3.0.3#tag-object
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TagGroup is one entry of the x-tagGroups vendor extension understood by
// Redoc and several Swagger UI plugins.
type TagGroup struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// SecurityRequirement lists required security schemes for an operation.
//
// See: https://spec.openapis.org/oas/v3.0.3#security-requirement-object
type SecurityRequirement map[string][]string

// SecurityScheme defines a security scheme used by API operations.
//
// See: https://spec.openapis.org/oas/v3.0.3#security-scheme-object
type SecurityScheme struct {
	Type         string `json:"type"`
	Description  string `json:"description,omitempty"`
	Name         string `json:"name,omitempty"`
	In           string `json:"in,omitempty"`
	Scheme       string `json:"scheme,omitempty"`
	BearerFormat string `json:"bearerFormat,omitempty"`
}

// refTo returns a reference schema to a component schema name.
func refTo(name string) *Schema {
	return &Schema{Ref: "#/components/schemas/" + name}
}
