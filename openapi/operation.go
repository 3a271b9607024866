package openapi

import (
	"reflect"
	"slices"
)

// SchemaRef points at the schema of a request or response body. It is
// either empty (a generic object), an inline schema, or a Go type that is
// resolved against the component registry when the document is generated,
// so recursive and late-registered types work.
type SchemaRef struct {
	typ    reflect.Type
	inline *Schema
}

// NoSchema returns an empty reference, documented as a generic object.
func NoSchema() SchemaRef { return SchemaRef{} }

// InlineSchema references an explicit schema.
func InlineSchema(s *Schema) SchemaRef { return SchemaRef{inline: s} }

// SchemaOf references the Go type T.
func SchemaOf[T any]() SchemaRef { return SchemaRef{typ: reflect.TypeFor[T]()} }

// SchemaFor references the dynamic type of v. A *Schema is used inline and
// a nil v yields NoSchema.
func SchemaFor(v any) SchemaRef {
	switch x := v.(type) {
	case nil:
		return SchemaRef{}
	case *Schema:
		return SchemaRef{inline: x}
	case SchemaRef:
		return x
	}
	return SchemaRef{typ: reflect.TypeOf(v)}
}

// IsNone reports whether the reference is empty.
func (r SchemaRef) IsNone() bool { return r.typ == nil && r.inline == nil }

func (r SchemaRef) resolve(g *SchemaGenerator) (*Schema, error) {
	switch {
	case r.inline != nil:
		return r.inline, nil
	case r.typ != nil:
		return g.Resolve(r.typ)
	}
	return &Schema{Type: "object"}, nil
}

// MediaTypeDoc documents one content type of a body.
type MediaTypeDoc struct {
	Schema SchemaRef
}

// RequestBodyDoc documents a request body.
type RequestBodyDoc struct {
	Required bool
	Content  map[string]MediaTypeDoc
}

// ResponseDoc documents one response status.
type ResponseDoc struct {
	Status      int
	Description string
	Content     map[string]MediaTypeDoc
}

// OperationDoc is the mergeable documentation of one operation. Nil and
// empty fields mean "not specified" and fall back to the base in Combine.
type OperationDoc struct {
	Summary     *string
	Description *string
	Tags        []string
	RequestBody *RequestBodyDoc
	Responses   []ResponseDoc
}

// IsZero reports whether no field is specified.
func (d OperationDoc) IsZero() bool {
	return d.Summary == nil && d.Description == nil && len(d.Tags) == 0 &&
		d.RequestBody == nil && len(d.Responses) == 0
}

// Codes returns the distinct declared response codes in ascending order.
func (d OperationDoc) Codes() []int {
	if len(d.Responses) == 0 {
		return nil
	}
	codes := make([]int, 0, len(d.Responses))
	for _, r := range d.Responses {
		codes = append(codes, r.Status)
	}
	slices.Sort(codes)
	return slices.Compact(codes)
}

// Response returns the last declared response for status.
func (d OperationDoc) Response(status int) (ResponseDoc, bool) {
	for i := len(d.Responses) - 1; i >= 0; i-- {
		if d.Responses[i].Status == status {
			return d.Responses[i], true
		}
	}
	return ResponseDoc{}, false
}

// Combine merges override over base field by field. Optional fields take
// the override when present; tags and responses take the override's whole
// list when it is not empty. Lists are never concatenated.
func Combine(base, override OperationDoc) OperationDoc {
	out := base
	if override.Summary != nil {
		out.Summary = override.Summary
	}
	if override.Description != nil {
		out.Description = override.Description
	}
	if len(override.Tags) > 0 {
		out.Tags = override.Tags
	}
	if override.RequestBody != nil {
		out.RequestBody = override.RequestBody
	}
	if len(override.Responses) > 0 {
		out.Responses = override.Responses
	}
	return out
}

// OperationBuilder provides a fluent API for composing an OperationDoc.
//
//	docs.Doc(node, func(b *openapi.OperationBuilder) {
//	    b.Summary("Get a user").
//	        JSONResponse(http.StatusOK, "The user", User{}).
//	        Response(http.StatusNotFound, "No such user")
//	})
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object
type OperationBuilder struct {
	doc OperationDoc
}

// NewOperationBuilder returns an empty builder.
func NewOperationBuilder() *OperationBuilder {
	return &OperationBuilder{}
}

// Summary sets the operation summary.
func (b *OperationBuilder) Summary(s string) *OperationBuilder {
	b.doc.Summary = &s
	return b
}

// Description sets the operation description.
func (b *OperationBuilder) Description(d string) *OperationBuilder {
	b.doc.Description = &d
	return b
}

// Tags adds tags to the operation. The generated document replaces them
// with the single hierarchy tag of the operation.
func (b *OperationBuilder) Tags(tags ...string) *OperationBuilder {
	b.doc.Tags = append(b.doc.Tags, tags...)
	return b
}

// RequestBody sets the request body to a single content type.
func (b *OperationBuilder) RequestBody(contentType string, required bool, schema SchemaRef) *OperationBuilder {
	b.doc.RequestBody = &RequestBodyDoc{
		Required: required,
		Content:  map[string]MediaTypeDoc{contentType: {Schema: schema}},
	}
	return b
}

// JSONRequest sets a required application/json request body of the type
// of body.
func (b *OperationBuilder) JSONRequest(body any) *OperationBuilder {
	return b.RequestBody("application/json", true, SchemaFor(body))
}

// Response adds a response without content.
func (b *OperationBuilder) Response(status int, description string) *OperationBuilder {
	b.doc.Responses = append(b.doc.Responses, ResponseDoc{Status: status, Description: description})
	return b
}

// ResponseContent adds a response with one content type.
func (b *OperationBuilder) ResponseContent(status int, description, contentType string, schema SchemaRef) *OperationBuilder {
	b.doc.Responses = append(b.doc.Responses, ResponseDoc{
		Status:      status,
		Description: description,
		Content:     map[string]MediaTypeDoc{contentType: {Schema: schema}},
	})
	return b
}

// JSONResponse adds an application/json response of the type of body.
func (b *OperationBuilder) JSONResponse(status int, description string, body any) *OperationBuilder {
	return b.ResponseContent(status, description, "application/json", SchemaFor(body))
}

// Build returns the composed documentation.
func (b *OperationBuilder) Build() OperationDoc {
	doc := b.doc
	doc.Tags = slices.Clone(doc.Tags)
	doc.Responses = slices.Clone(doc.Responses)
	return doc
}
