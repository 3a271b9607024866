package openapi

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// maxSchemaDepth bounds the nesting of inline schemas. Named records stop
// recursion through $ref, so only pathological anonymous nesting reaches it.
const maxSchemaDepth = 32

var (
	// ErrUnsupportedType is returned for kinds that have no JSON shape,
	// such as channels, functions and complex numbers.
	ErrUnsupportedType = errors.New("openapi: unsupported type")

	// ErrSchemaDepth is returned when a type nests deeper than the
	// generator allows.
	ErrSchemaDepth = errors.New("openapi: schema nesting too deep")
)

var (
	timeType = reflect.TypeFor[time.Time]()
	dateType = reflect.TypeFor[Date]()
)

// Exampler can be implemented by types to provide an example value
// for the generated schema. The returned value is set as the "example"
// field on the component schema.
//
//	func (u User) OpenAPIExample() any {
//	    return User{ID: "550e8400-e29b-41d4-a716-446655440000", Name: "Alice"}
//	}
type Exampler interface {
	OpenAPIExample() any
}

// Enum is implemented by enumerated types. The values are emitted as a
// string enumeration in declaration order.
//
//	type Role string
//
//	func (Role) EnumValues() []string { return []string{"admin", "member"} }
type Enum interface {
	EnumValues() []string
}

// Describer lets a record type list its fields explicitly instead of having
// them discovered from struct fields. It takes precedence over reflection.
type Describer interface {
	OpenAPIFields() []Field
}

// Field is one property of a Describer record.
type Field struct {
	Name        string
	Type        reflect.Type
	Optional    bool
	Description string
}

// FieldOf returns a Field of type T. A pointer T produces a nullable,
// non-required property.
func FieldOf[T any](name string) Field {
	return Field{Name: name, Type: reflect.TypeFor[T]()}
}

// SchemaGenerator converts Go types to schema objects and collects named
// record types into a component registry keyed by their short type name.
//
// A generator is owned by a single generation pass and is not safe for
// concurrent use.
//
// See: https://spec.openapis.org/oas/v3.0.3#schema-object
type SchemaGenerator struct {
	schemas map[string]*Schema
}

// NewSchemaGenerator creates a generator with an empty registry.
func NewSchemaGenerator() *SchemaGenerator {
	return &SchemaGenerator{schemas: make(map[string]*Schema)}
}

// Schemas returns the collected component schemas.
func (g *SchemaGenerator) Schemas() map[string]*Schema {
	return g.schemas
}

// Register adds a component schema under name unless one already exists.
func (g *SchemaGenerator) Register(name string, s *Schema) {
	if _, ok := g.schemas[name]; !ok {
		g.schemas[name] = s
	}
}

// snapshot returns the names of the components registered so far.
func (g *SchemaGenerator) snapshot() map[string]struct{} {
	names := make(map[string]struct{}, len(g.schemas))
	for name := range g.schemas {
		names[name] = struct{}{}
	}
	return names
}

// restore drops every component registered after snap was taken.
func (g *SchemaGenerator) restore(snap map[string]struct{}) {
	for name := range g.schemas {
		if _, ok := snap[name]; !ok {
			delete(g.schemas, name)
		}
	}
}

// Generate produces a schema for the dynamic type of v. A nil v yields a
// nil schema.
func (g *SchemaGenerator) Generate(v any) (*Schema, error) {
	if v == nil {
		return nil, nil
	}
	return g.Resolve(reflect.TypeOf(v))
}

// Resolve produces a schema for t. Named record types are registered once
// and referenced via $ref; every later encounter, including a
// self-reference met while the record is still being expanded, returns the
// reference without expanding the body again.
//
// Identity is the short type name, so two distinct types sharing a name
// resolve to the same component.
func (g *SchemaGenerator) Resolve(t reflect.Type) (*Schema, error) {
	return g.resolve(t, 0)
}

func (g *SchemaGenerator) resolve(t reflect.Type, depth int) (*Schema, error) {
	if depth > maxSchemaDepth {
		return nil, fmt.Errorf("%w: %s", ErrSchemaDepth, t)
	}

	nullable := false
	for t.Kind() == reflect.Pointer {
		nullable = true
		t = t.Elem()
	}

	s, err := g.resolveValue(t, depth)
	if err != nil {
		return nil, err
	}
	if nullable {
		s.Nullable = true
	}
	return s, nil
}

func (g *SchemaGenerator) resolveValue(t reflect.Type, depth int) (*Schema, error) {
	switch t {
	case timeType:
		return &Schema{Type: "string", Format: "date-time"}, nil
	case dateType:
		return &Schema{Type: "string", Format: "date"}, nil
	}

	if e, ok := capability[Enum](t); ok {
		values := e.EnumValues()
		s := &Schema{Type: "string", Enum: make([]any, len(values))}
		for i, v := range values {
			s.Enum[i] = v
		}
		return s, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil

	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64:
		return &Schema{Type: "integer", Format: "int64"}, nil

	case reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return &Schema{Type: "integer", Format: "int32"}, nil

	case reflect.Float32:
		return &Schema{Type: "number", Format: "float"}, nil

	case reflect.Float64:
		return &Schema{Type: "number", Format: "double"}, nil

	case reflect.String:
		return &Schema{Type: "string"}, nil

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Schema{Type: "string", Format: "byte"}, nil
		}
		return g.array(t, depth)

	case reflect.Array:
		return g.array(t, depth)

	case reflect.Map:
		values, err := g.resolve(t.Elem(), depth+1)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: values}, nil

	case reflect.Interface:
		return &Schema{}, nil

	case reflect.Struct:
		return g.record(t, depth)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

func (g *SchemaGenerator) array(t reflect.Type, depth int) (*Schema, error) {
	items, err := g.resolve(t.Elem(), depth+1)
	if err != nil {
		return nil, err
	}
	return &Schema{Type: "array", Items: items}, nil
}

// record resolves a struct type. Anonymous structs are inlined.
func (g *SchemaGenerator) record(t reflect.Type, depth int) (*Schema, error) {
	name := schemaName(t)
	if name == "" {
		return g.object(t, depth)
	}
	if _, ok := g.schemas[name]; ok {
		return refTo(name), nil
	}

	// The placeholder turns self-references into $ref while expanding.
	g.schemas[name] = &Schema{Type: "object"}
	s, err := g.object(t, depth)
	if err != nil {
		delete(g.schemas, name)
		return nil, err
	}
	if ex, ok := capability[Exampler](t); ok {
		s.Example = ex.OpenAPIExample()
	}
	g.schemas[name] = s

	return refTo(name), nil
}

func (g *SchemaGenerator) object(t reflect.Type, depth int) (*Schema, error) {
	s := &Schema{Type: "object", Properties: make(map[string]*Schema)}

	if d, ok := capability[Describer](t); ok {
		for _, f := range d.OpenAPIFields() {
			if f.Type == nil {
				return nil, fmt.Errorf("%w: field %s.%s has no type", ErrUnsupportedType, t, f.Name)
			}
			fs, err := g.resolve(f.Type, depth+1)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", t, f.Name, err)
			}
			if f.Description != "" {
				fs.Description = f.Description
			}
			s.Properties[f.Name] = fs
			if !f.Optional && f.Type.Kind() != reflect.Pointer {
				s.Required = append(s.Required, f.Name)
			}
		}
	} else if err := g.collectFields(t, s, false, depth); err != nil {
		return nil, err
	}

	if len(s.Properties) == 0 {
		s.Properties = nil
	}
	return s, nil
}

// collectFields collects exported struct fields into the schema. When
// allOptional is true no field is required; this is used for
// pointer-embedded structs, whose fields are all absent when the pointer
// is nil.
func (g *SchemaGenerator) collectFields(t reflect.Type, s *Schema, allOptional bool, depth int) error {
	for i := range t.NumField() {
		field := t.Field(i)
		if field.Anonymous {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if !field.IsExported() && ft.Kind() != reflect.Struct {
				continue
			}
		} else if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name, opts := parseJSONTag(jsonTag)

		// encoding/json inlines an anonymous struct field only when the
		// tag gives it no name.
		if field.Anonymous && name == "" {
			ft := field.Type
			isPtr := ft.Kind() == reflect.Pointer
			if isPtr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := g.collectFields(ft, s, allOptional || isPtr, depth); err != nil {
					return err
				}
				continue
			}
		}

		if name == "" {
			name = field.Name
		}

		fs, err := g.resolve(field.Type, depth+1)
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", t, field.Name, err)
		}
		applyOpenAPITag(fs, field.Tag.Get("openapi"))

		s.Properties[name] = fs
		if !opts.omitempty && !allOptional && field.Type.Kind() != reflect.Pointer {
			s.Required = append(s.Required, name)
		}
	}
	return nil
}

type jsonTagOpts struct {
	omitempty bool
}

func parseJSONTag(tag string) (string, jsonTagOpts) {
	if tag == "" {
		return "", jsonTagOpts{}
	}
	name, rest, _ := strings.Cut(tag, ",")
	return name, jsonTagOpts{
		omitempty: strings.Contains(rest, "omitempty") || strings.Contains(rest, "omitzero"),
	}
}

// applyOpenAPITag parses the `openapi` struct tag and applies constraints to
// the schema.
//
//	Name string `json:"name" openapi:"description=Display name,minLength=1,maxLength=64"`
func applyOpenAPITag(s *Schema, tag string) {
	if tag == "" {
		return
	}

	for part := range strings.SplitSeq(tag, ",") {
		key, value, _ := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "description":
			s.Description = value
		case "title":
			s.Title = value
		case "example":
			s.Example = parseExampleValue(s, value)
		case "format":
			s.Format = value
		case "minimum":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				s.Minimum = &v
			}
		case "maximum":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				s.Maximum = &v
			}
		case "minLength":
			if v, err := strconv.Atoi(value); err == nil {
				s.MinLength = &v
			}
		case "maxLength":
			if v, err := strconv.Atoi(value); err == nil {
				s.MaxLength = &v
			}
		case "minItems":
			if v, err := strconv.Atoi(value); err == nil {
				s.MinItems = &v
			}
		case "maxItems":
			if v, err := strconv.Atoi(value); err == nil {
				s.MaxItems = &v
			}
		case "pattern":
			s.Pattern = value
		case "enum":
			values := strings.Split(value, "|")
			s.Enum = make([]any, len(values))
			for i, v := range values {
				s.Enum[i] = parseExampleValue(s, v)
			}
		case "uniqueItems":
			s.UniqueItems = true
		case "deprecated":
			s.Deprecated = true
		case "readOnly":
			s.ReadOnly = true
		case "writeOnly":
			s.WriteOnly = true
		}
	}
}

// parseExampleValue converts a tag value to the Go type matching the
// schema type.
func parseExampleValue(s *Schema, value string) any {
	switch s.Type {
	case "integer":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	case "number":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	case "boolean":
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return value
}

// schemaName returns the component name for a named type, or "" for
// anonymous types.
func schemaName(t reflect.Type) string {
	if t.Name() == "" || t.PkgPath() == "" {
		return ""
	}
	return sanitizeSchemaName(t.Name())
}

// sanitizeSchemaName turns Go type names into component keys. Generic
// instantiations drop package paths from their type arguments:
// "Page[example.com/api.User]" becomes "PageUser" and
// "Page[[]example.com/api.User]" becomes "PageUserList".
func sanitizeSchemaName(name string) string {
	base, inner, ok := strings.Cut(name, "[")
	if !ok {
		return name
	}
	inner = strings.TrimSuffix(inner, "]")

	var b strings.Builder
	b.WriteString(base)
	for arg := range strings.SplitSeq(inner, ",") {
		arg = strings.TrimSpace(arg)
		list := strings.HasPrefix(arg, "[]")
		arg = strings.TrimPrefix(arg, "[]")
		if dot := strings.LastIndexByte(arg, '.'); dot >= 0 {
			arg = arg[dot+1:]
		}
		b.WriteString(upperFirst(stripNonAlnum(arg)))
		if list {
			b.WriteString("List")
		}
	}
	return b.String()
}

func stripNonAlnum(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// capability reports whether t implements I with either a value or a
// pointer receiver, and returns a zero value of t viewed as I.
func capability[I any](t reflect.Type) (I, bool) {
	if v, ok := reflect.New(t).Elem().Interface().(I); ok {
		return v, true
	}
	if v, ok := reflect.New(t).Interface().(I); ok {
		return v, true
	}
	var zero I
	return zero, false
}
